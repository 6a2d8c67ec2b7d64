package events

import (
	"bytes"
	"os"
	"testing"

	"ArenaVault/internal/ledger"
	"ArenaVault/internal/storage"
)

// newTestStorage creates a temporary storage for testing.
func newTestStorage(t *testing.T) *storage.Storage {
	t.Helper()

	dir, err := os.MkdirTemp("", "journal_test_*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}

	t.Cleanup(func() {
		os.RemoveAll(dir)
	})

	db, err := storage.New(dir)
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func TestJournalAppendAndRead(t *testing.T) {
	db := newTestStorage(t)

	j, err := Open(db)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	principal := ledger.Principal{0x01}

	j.Emit(ledger.EntryRecorded{Principal: principal, Amount: 10, SessionID: 1})
	j.Emit(ledger.StateUpdated{Principal: principal, SessionID: 1, NewStatus: "exited"})
	j.Emit(ledger.ClaimSettled{Principal: principal, SessionID: 1})

	entries, err := j.Entries(0, 0)
	if err != nil {
		t.Fatalf("entries: %v", err)
	}

	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}

	kinds := []string{"entry_recorded", "state_updated", "claim_settled"}
	for i, e := range entries {
		if e.Kind != kinds[i] {
			t.Errorf("entry %d: expected %s, got %s", i, kinds[i], e.Kind)
		}
		if e.Seq != uint64(i+1) {
			t.Errorf("entry %d: expected seq %d, got %d", i, i+1, e.Seq)
		}
	}
}

func TestJournalCursorAndLimit(t *testing.T) {
	db := newTestStorage(t)

	j, err := Open(db)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	for i := 0; i < 5; i++ {
		j.Emit(ledger.EntryRecorded{SessionID: uint64(i + 1)})
	}

	entries, err := j.Entries(2, 2)
	if err != nil {
		t.Fatalf("entries: %v", err)
	}

	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Seq != 3 || entries[1].Seq != 4 {
		t.Errorf("unexpected cursor window: %d, %d", entries[0].Seq, entries[1].Seq)
	}
}

func TestJournalResumesSequence(t *testing.T) {
	db := newTestStorage(t)

	j, err := Open(db)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	j.Emit(ledger.EntryRecorded{SessionID: 1})
	j.Emit(ledger.EntryRecorded{SessionID: 2})

	// A journal reopened over the same storage continues the sequence.
	j2, err := Open(db)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}

	j2.Emit(ledger.EntryRecorded{SessionID: 3})

	entries, err := j2.Entries(0, 0)
	if err != nil {
		t.Fatalf("entries: %v", err)
	}

	if len(entries) != 3 || entries[2].Seq != 3 {
		t.Fatalf("sequence not resumed: %+v", entries)
	}
}

func TestJournalExportRoundTrip(t *testing.T) {
	db := newTestStorage(t)

	j, err := Open(db)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	j.Emit(ledger.EntryRecorded{SessionID: 1, Amount: 10})
	j.Emit(ledger.ClaimSettled{SessionID: 1})

	compressed, err := j.Export()
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	raw, err := DecodeExport(compressed)
	if err != nil {
		t.Fatalf("decode export: %v", err)
	}

	lines := bytes.Split(bytes.TrimSpace(raw), []byte("\n"))
	if len(lines) != 2 {
		t.Fatalf("expected 2 JSON lines, got %d", len(lines))
	}

	if !bytes.Contains(lines[0], []byte("entry_recorded")) {
		t.Errorf("first line missing kind: %s", lines[0])
	}
	if !bytes.Contains(lines[1], []byte("claim_settled")) {
		t.Errorf("second line missing kind: %s", lines[1])
	}
}
