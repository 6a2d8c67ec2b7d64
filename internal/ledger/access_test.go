package ledger

import (
	"errors"
	"testing"
)

func TestTransferAdministrator(t *testing.T) {
	l, _ := newTestLedger(t)

	newAdmin := Principal{0x42}

	// Only the current administrator may transfer.
	if err := l.TransferAdministrator(alice, newAdmin); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected Unauthorized, got %v", err)
	}

	if err := l.TransferAdministrator(testAdmin, newAdmin); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	if got := l.Administrator(); got != newAdmin {
		t.Errorf("expected new admin, got %s", got)
	}

	// The old administrator lost the role.
	if err := l.TransferAdministrator(testAdmin, testAdmin); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("old admin must be locked out, got %v", err)
	}
}

func TestSetAttestor(t *testing.T) {
	emitter := &recordingEmitter{}
	l, port := newTestLedger(t, WithEmitter(emitter))

	newAttestor := Principal{0x43}
	pub := make([]byte, 48)

	if err := l.SetAttestor(alice, newAttestor, nil); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected Unauthorized, got %v", err)
	}

	if err := l.SetAttestor(testAdmin, newAttestor, pub); err != nil {
		t.Fatalf("set attestor: %v", err)
	}

	if got := l.Attestor(); got != newAttestor {
		t.Errorf("expected new attestor, got %s", got)
	}
	if got := l.AttestorPublicKey(); len(got) != 48 {
		t.Errorf("expected stored pub key, got %d bytes", len(got))
	}

	// The old attestor can no longer drive transitions.
	openSession(t, l, port, alice, 10)
	if err := l.UpdateState(testAttestor, alice, StatusTerminated, nil, nil); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("old attestor must be locked out, got %v", err)
	}
	if err := l.UpdateState(newAttestor, alice, StatusTerminated, nil, nil); err != nil {
		t.Errorf("new attestor rejected: %v", err)
	}

	// role-changed event carries old and new identity
	var found bool
	for _, e := range emitter.events {
		rc, ok := e.(RoleChanged)
		if ok && rc.Role == "attestor" {
			found = true
			if rc.OldID != testAttestor || rc.NewID != newAttestor {
				t.Errorf("unexpected role event: %+v", rc)
			}
		}
	}
	if !found {
		t.Error("missing role-changed event")
	}
}

func TestSetExitFloorUnauthorized(t *testing.T) {
	l, _ := newTestLedger(t)

	if err := l.SetExitFloor(alice, 100); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected Unauthorized, got %v", err)
	}
	if err := l.SetExitFloor(testAttestor, 100); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("attestor must not set policy, got %v", err)
	}
}

func TestRolesPersistAcrossReload(t *testing.T) {
	db := newTestStorage(t)
	port := newTestPort()

	l, err := New(db, port, testAdmin, testAttestor, nil)
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}

	newAttestor := Principal{0x55}
	if err := l.SetAttestor(testAdmin, newAttestor, nil); err != nil {
		t.Fatalf("set attestor: %v", err)
	}

	// A second ledger over the same storage sees the rotated role, not
	// the bootstrap identity.
	l2, err := New(db, port, testAdmin, testAttestor, nil)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}

	if got := l2.Attestor(); got != newAttestor {
		t.Errorf("expected persisted attestor %s, got %s", newAttestor, got)
	}
}
