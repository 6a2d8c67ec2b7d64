package events

import (
	"encoding/binary"
	"encoding/json"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"ArenaVault/internal/ledger"
	"ArenaVault/internal/logger"
	"ArenaVault/internal/storage"
)

// journalKeyPrefix is the Pebble key prefix for journal entries.
// Sequence numbers are big-endian so prefix iteration yields emission order.
var journalKeyPrefix = []byte("e:")

// Entry is one persisted notification.
type Entry struct {
	Seq     uint64          `json:"seq"`
	Kind    string          `json:"kind"`
	At      int64           `json:"at"` // unix seconds
	Payload json.RawMessage `json:"payload"`
}

// Journal is the append-only notification log. It implements
// ledger.Emitter; external indexers consume it through Entries or a
// compressed Export.
type Journal struct {
	db  *storage.Storage
	mu  sync.Mutex
	seq uint64
}

// Open creates a journal over the given storage, resuming the sequence
// from the last persisted entry.
func Open(db *storage.Storage) (*Journal, error) {
	j := &Journal{db: db}

	err := db.IteratePrefix(journalKeyPrefix, func(key, value []byte) error {
		if len(key) == len(journalKeyPrefix)+8 {
			j.seq = binary.BigEndian.Uint64(key[len(journalKeyPrefix):])
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return j, nil
}

// Emit implements ledger.Emitter. A journal write failure is logged
// and swallowed: by the time an event is emitted the transition is
// committed, and the ledger must not fail on it.
func (j *Journal) Emit(e ledger.Event) {
	payload, err := json.Marshal(e)
	if err != nil {
		logger.Error("journal encode failed", "kind", e.Kind(), "error", err)
		return
	}

	j.mu.Lock()
	j.seq++
	seq := j.seq
	j.mu.Unlock()

	entry := Entry{
		Seq:     seq,
		Kind:    e.Kind(),
		At:      time.Now().Unix(),
		Payload: payload,
	}

	data, err := json.Marshal(entry)
	if err != nil {
		logger.Error("journal encode failed", "kind", e.Kind(), "error", err)
		return
	}

	if err := j.db.Set(journalKey(seq), data); err != nil {
		logger.Error("journal write failed", "kind", e.Kind(), "seq", seq, "error", err)
	}
}

// Entries returns journal entries with sequence greater than after,
// up to limit entries. A limit of 0 means no limit.
func (j *Journal) Entries(after uint64, limit int) ([]Entry, error) {
	var entries []Entry

	err := j.db.IteratePrefix(journalKeyPrefix, func(key, value []byte) error {
		if len(key) != len(journalKeyPrefix)+8 {
			return nil
		}

		if binary.BigEndian.Uint64(key[len(journalKeyPrefix):]) <= after {
			return nil
		}

		if limit > 0 && len(entries) >= limit {
			return nil
		}

		var e Entry
		if err := json.Unmarshal(value, &e); err != nil {
			return err
		}

		entries = append(entries, e)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return entries, nil
}

// Export serializes the full journal as zstd-compressed JSON lines for
// external indexers.
func (j *Journal) Export() ([]byte, error) {
	var raw []byte

	err := j.db.IteratePrefix(journalKeyPrefix, func(key, value []byte) error {
		raw = append(raw, value...)
		raw = append(raw, '\n')
		return nil
	})
	if err != nil {
		return nil, err
	}

	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	defer encoder.Close()

	return encoder.EncodeAll(raw, nil), nil
}

// DecodeExport decompresses an exported journal back to JSON lines.
func DecodeExport(data []byte) ([]byte, error) {
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer decoder.Close()

	return decoder.DecodeAll(data, nil)
}

// journalKey builds the Pebble key for a sequence number.
func journalKey(seq uint64) []byte {
	key := make([]byte, len(journalKeyPrefix)+8)
	copy(key, journalKeyPrefix)
	binary.BigEndian.PutUint64(key[len(journalKeyPrefix):], seq)

	return key
}
