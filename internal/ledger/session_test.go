package ledger

import (
	"testing"
)

func TestSessionCodec(t *testing.T) {
	s := &Session{
		Status:        StatusExited,
		EntryAsset:    assetX,
		EntryAmount:   10,
		RewardAssets:  []AssetID{assetX, assetY},
		RewardAmounts: []uint64{100, 0},
		OpenedAt:      1_700_000_000,
		ID:            42,
	}

	decoded, err := decodeSession(encodeSession(s))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if decoded.Status != s.Status || decoded.ID != s.ID || decoded.OpenedAt != s.OpenedAt {
		t.Errorf("header mismatch: %+v", decoded)
	}
	if decoded.EntryAsset != s.EntryAsset || decoded.EntryAmount != s.EntryAmount {
		t.Errorf("entry mismatch: %+v", decoded)
	}
	if len(decoded.RewardAssets) != 2 || decoded.RewardAssets[1] != assetY {
		t.Errorf("reward assets mismatch: %v", decoded.RewardAssets)
	}
	if len(decoded.RewardAmounts) != 2 || decoded.RewardAmounts[0] != 100 {
		t.Errorf("reward amounts mismatch: %v", decoded.RewardAmounts)
	}
}

func TestSessionCodecEmptyRewards(t *testing.T) {
	s := &Session{Status: StatusActive, EntryAmount: 1, ID: 1}

	decoded, err := decodeSession(encodeSession(s))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if len(decoded.RewardAssets) != 0 || len(decoded.RewardAmounts) != 0 {
		t.Errorf("expected empty rewards, got %v %v", decoded.RewardAssets, decoded.RewardAmounts)
	}
}

func TestDecodeSessionTruncated(t *testing.T) {
	full := encodeSession(&Session{
		Status:        StatusExited,
		RewardAssets:  []AssetID{assetX},
		RewardAmounts: []uint64{5},
	})

	// Every strict prefix must fail cleanly, not panic.
	for cut := 0; cut < len(full); cut++ {
		if _, err := decodeSession(full[:cut]); err == nil {
			t.Errorf("expected error at cut %d", cut)
		}
	}
}
