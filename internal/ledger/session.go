package ledger

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// Principal is the 32-byte identity of a depositor.
type Principal [32]byte

// String returns the abbreviated hex form used in logs.
func (p Principal) String() string {
	return hex.EncodeToString(p[:8])
}

// MarshalJSON encodes the full identity as a hex string.
func (p Principal) MarshalJSON() ([]byte, error) {
	return []byte(`"` + hex.EncodeToString(p[:]) + `"`), nil
}

// AssetID is the 32-byte identifier of a fungible asset type.
type AssetID [32]byte

// String returns the abbreviated hex form used in logs.
func (a AssetID) String() string {
	return hex.EncodeToString(a[:8])
}

// MarshalJSON encodes the full identifier as a hex string.
func (a AssetID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + hex.EncodeToString(a[:]) + `"`), nil
}

// Status is the lifecycle state of a session.
type Status uint8

// Session lifecycle states. A session is open in Active and Exited,
// closed in every other state.
const (
	StatusInactive Status = iota
	StatusActive
	StatusExited
	StatusTerminated
	StatusClaimed
)

// String returns the status name for logging and API responses.
func (s Status) String() string {
	switch s {
	case StatusInactive:
		return "inactive"
	case StatusActive:
		return "active"
	case StatusExited:
		return "exited"
	case StatusTerminated:
		return "terminated"
	case StatusClaimed:
		return "claimed"
	default:
		return "unknown"
	}
}

// Session is the per-principal custody record, one play-through from
// entry to claim or termination. Reward slices are parallel and
// non-empty only in StatusExited.
type Session struct {
	Status        Status
	EntryAsset    AssetID
	EntryAmount   uint64
	RewardAssets  []AssetID
	RewardAmounts []uint64
	OpenedAt      int64 // unix seconds
	ID            uint64
}

// open reports whether the session blocks a new entry.
func (s *Session) open() bool {
	return s.Status == StatusActive || s.Status == StatusExited
}

// encodeSession serializes a session record.
// Layout (little-endian): u8 status | [32]entry_asset | u64 entry_amount |
// i64 opened_at | u64 id | u32 n | n*[32]reward_asset | u32 n | n*u64 reward_amount
func encodeSession(s *Session) []byte {
	n := len(s.RewardAssets)
	buf := make([]byte, 0, 1+32+8+8+8+4+n*32+4+n*8)

	buf = append(buf, byte(s.Status))
	buf = append(buf, s.EntryAsset[:]...)
	buf = binary.LittleEndian.AppendUint64(buf, s.EntryAmount)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(s.OpenedAt))
	buf = binary.LittleEndian.AppendUint64(buf, s.ID)

	buf = binary.LittleEndian.AppendUint32(buf, uint32(n))
	for _, a := range s.RewardAssets {
		buf = append(buf, a[:]...)
	}

	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(s.RewardAmounts)))
	for _, v := range s.RewardAmounts {
		buf = binary.LittleEndian.AppendUint64(buf, v)
	}

	return buf
}

// decodeSession deserializes a session record.
func decodeSession(data []byte) (*Session, error) {
	const fixed = 1 + 32 + 8 + 8 + 8
	if len(data) < fixed+4 {
		return nil, fmt.Errorf("session record too short: %d bytes", len(data))
	}

	s := &Session{Status: Status(data[0])}
	copy(s.EntryAsset[:], data[1:33])
	s.EntryAmount = binary.LittleEndian.Uint64(data[33:41])
	s.OpenedAt = int64(binary.LittleEndian.Uint64(data[41:49]))
	s.ID = binary.LittleEndian.Uint64(data[49:57])

	offset := uint64(fixed)
	assetCount := uint64(binary.LittleEndian.Uint32(data[offset : offset+4]))
	offset += 4

	if uint64(len(data)) < offset+assetCount*32+4 {
		return nil, fmt.Errorf("session record truncated in reward assets")
	}

	s.RewardAssets = make([]AssetID, assetCount)
	for i := uint64(0); i < assetCount; i++ {
		copy(s.RewardAssets[i][:], data[offset:offset+32])
		offset += 32
	}

	amountCount := uint64(binary.LittleEndian.Uint32(data[offset : offset+4]))
	offset += 4

	if uint64(len(data)) < offset+amountCount*8 {
		return nil, fmt.Errorf("session record truncated in reward amounts")
	}

	s.RewardAmounts = make([]uint64, amountCount)
	for i := uint64(0); i < amountCount; i++ {
		s.RewardAmounts[i] = binary.LittleEndian.Uint64(data[offset : offset+8])
		offset += 8
	}

	return s, nil
}
