package ledger

import (
	"encoding/binary"

	"ArenaVault/internal/logger"
	"ArenaVault/internal/storage"
)

// Access config storage keys.
var (
	accessAdminKey       = []byte("a:admin")
	accessAttestorKey    = []byte("a:attestor")
	accessAttestorPubKey = []byte("a:attestor_pub")
	accessFloorKey       = []byte("a:exit_floor")
)

// accessConfig holds the two distinguished roles and the governed
// policy parameters. It is owned by the ledger and mutated only through
// the setter operations below.
type accessConfig struct {
	db *storage.Storage

	admin       Principal // admin may rotate both roles and set policy
	attestor    Principal // attestor may drive terminal transitions
	attestorPub []byte    // attestor BLS public key for signed attestations
	exitFloor   uint64    // minimum oracle value required to exit, 0 = disabled
}

// loadAccessConfig reads persisted roles, falling back to the given
// bootstrap identities on first start.
func loadAccessConfig(db *storage.Storage, admin, attestor Principal, attestorPub []byte) (*accessConfig, error) {
	ac := &accessConfig{db: db, admin: admin, attestor: attestor, attestorPub: attestorPub}

	if data, err := db.Get(accessAdminKey); err != nil {
		return nil, wrap(ErrStorage, err)
	} else if len(data) == 32 {
		copy(ac.admin[:], data)
	}

	if data, err := db.Get(accessAttestorKey); err != nil {
		return nil, wrap(ErrStorage, err)
	} else if len(data) == 32 {
		copy(ac.attestor[:], data)
	}

	if data, err := db.Get(accessAttestorPubKey); err != nil {
		return nil, wrap(ErrStorage, err)
	} else if len(data) > 0 {
		ac.attestorPub = data
	}

	if data, err := db.Get(accessFloorKey); err != nil {
		return nil, wrap(ErrStorage, err)
	} else if len(data) == 8 {
		ac.exitFloor = binary.LittleEndian.Uint64(data)
	}

	return ac, nil
}

// setAdmin persists a new administrator identity.
func (ac *accessConfig) setAdmin(newID Principal) error {
	if err := ac.db.Set(accessAdminKey, newID[:]); err != nil {
		return wrap(ErrStorage, err)
	}

	ac.admin = newID

	return nil
}

// setAttestor persists a new attestor identity and, when provided, its
// BLS public key for the signed-attestation path.
func (ac *accessConfig) setAttestor(newID Principal, pub []byte) error {
	if err := ac.db.Set(accessAttestorKey, newID[:]); err != nil {
		return wrap(ErrStorage, err)
	}

	if len(pub) > 0 {
		if err := ac.db.Set(accessAttestorPubKey, pub); err != nil {
			return wrap(ErrStorage, err)
		}
		ac.attestorPub = pub
	}

	ac.attestor = newID

	return nil
}

// setExitFloor persists the minimum exit value threshold.
func (ac *accessConfig) setExitFloor(floor uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], floor)

	if err := ac.db.Set(accessFloorKey, buf[:]); err != nil {
		return wrap(ErrStorage, err)
	}

	ac.exitFloor = floor

	return nil
}

// TransferAdministrator hands governance to a new identity.
// Callable only by the current administrator.
func (l *Ledger) TransferAdministrator(caller, newID Principal) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if caller != l.access.admin {
		return ErrUnauthorized
	}

	old := l.access.admin
	if err := l.access.setAdmin(newID); err != nil {
		return err
	}

	logger.Info("administrator transferred", "old", old, "new", newID)
	l.emitter.Emit(RoleChanged{Role: "administrator", OldID: old, NewID: newID})

	return nil
}

// SetAttestor rotates the attestor identity. pub, when non-empty, is the
// new attestor's BLS public key for signed attestations.
// Callable only by the administrator.
func (l *Ledger) SetAttestor(caller, newID Principal, pub []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if caller != l.access.admin {
		return ErrUnauthorized
	}

	old := l.access.attestor
	if err := l.access.setAttestor(newID, pub); err != nil {
		return err
	}

	logger.Info("attestor rotated", "old", old, "new", newID)
	l.emitter.Emit(RoleChanged{Role: "attestor", OldID: old, NewID: newID})

	return nil
}

// SetExitFloor sets the minimum common-denomination reward value a
// session must carry to exit. Zero disables the check.
// Callable only by the administrator.
func (l *Ledger) SetExitFloor(caller Principal, floor uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if caller != l.access.admin {
		return ErrUnauthorized
	}

	if err := l.access.setExitFloor(floor); err != nil {
		return err
	}

	logger.Info("exit floor updated", "floor", floor)

	return nil
}

// Administrator returns the current administrator identity.
func (l *Ledger) Administrator() Principal {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.access.admin
}

// Attestor returns the current attestor identity.
func (l *Ledger) Attestor() Principal {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.access.attestor
}

// AttestorPublicKey returns the attestor's BLS public key, or nil when
// the signed-attestation path is not configured.
func (l *Ledger) AttestorPublicKey() []byte {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.access.attestorPub
}
