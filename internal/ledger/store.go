package ledger

import (
	"encoding/binary"
	"fmt"

	"ArenaVault/internal/storage"
)

// Storage key prefixes. Nonces ("n:") belong to the attest package;
// listed here so nothing else claims the prefix.
var (
	sessionKeyPrefix = []byte("s:")
	sessionSeqKey    = []byte("m:session_seq")
)

// sessionStore persists session records in Pebble, keyed by principal.
type sessionStore struct {
	db *storage.Storage
}

// newSessionStore creates a session store backed by the given storage.
func newSessionStore(db *storage.Storage) *sessionStore {
	return &sessionStore{db: db}
}

// get retrieves the session for a principal. A principal with no record
// yet gets a zero session (StatusInactive).
func (st *sessionStore) get(p Principal) (*Session, error) {
	data, err := st.db.Get(st.makeKey(p))
	if err != nil {
		return nil, wrap(ErrStorage, err)
	}

	if data == nil {
		return &Session{Status: StatusInactive}, nil
	}

	s, err := decodeSession(data)
	if err != nil {
		return nil, wrap(ErrStorage, err)
	}

	return s, nil
}

// put stores the session for a principal.
func (st *sessionStore) put(p Principal, s *Session) error {
	if err := st.db.Set(st.makeKey(p), encodeSession(s)); err != nil {
		return wrap(ErrStorage, err)
	}
	return nil
}

// nextSessionID increments and persists the global session counter.
// IDs are strictly increasing across all principals for the ledger's
// lifetime.
func (st *sessionStore) nextSessionID() (uint64, error) {
	data, err := st.db.Get(sessionSeqKey)
	if err != nil {
		return 0, wrap(ErrStorage, err)
	}

	var seq uint64
	if len(data) == 8 {
		seq = binary.LittleEndian.Uint64(data)
	}

	seq++

	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], seq)

	if err := st.db.Set(sessionSeqKey, buf[:]); err != nil {
		return 0, wrap(ErrStorage, err)
	}

	return seq, nil
}

// export returns all session records for inspection and snapshots.
func (st *sessionStore) export() (map[Principal]*Session, error) {
	sessions := make(map[Principal]*Session)

	err := st.db.IteratePrefix(sessionKeyPrefix, func(key, value []byte) error {
		if len(key) != len(sessionKeyPrefix)+32 {
			return nil
		}

		var p Principal
		copy(p[:], key[len(sessionKeyPrefix):])

		s, err := decodeSession(value)
		if err != nil {
			return fmt.Errorf("decode session %x:\n%w", p[:8], err)
		}

		sessions[p] = s

		return nil
	})
	if err != nil {
		return nil, wrap(ErrStorage, err)
	}

	return sessions, nil
}

// makeKey builds the Pebble key for a principal: "s:" + principal bytes.
func (st *sessionStore) makeKey(p Principal) []byte {
	key := make([]byte, len(sessionKeyPrefix)+len(p))
	copy(key, sessionKeyPrefix)
	copy(key[len(sessionKeyPrefix):], p[:])

	return key
}
