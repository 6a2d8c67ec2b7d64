package api

import (
	"encoding/hex"
	"fmt"

	"ArenaVault/internal/attest"
	"ArenaVault/internal/ledger"
)

const (
	// idSize is the size of principal and asset identifiers.
	idSize = 32

	// maxRewardPairs bounds the reward basket size accepted over the API.
	maxRewardPairs = 64
)

// enterRequest is the body of POST /enter.
type enterRequest struct {
	Principal string `json:"principal"` // hex, 32 bytes
	Asset     string `json:"asset"`     // hex, 32 bytes
	Amount    uint64 `json:"amount"`
}

func (r *enterRequest) parse() (ledger.Principal, ledger.AssetID, error) {
	principal, err := parsePrincipal(r.Principal)
	if err != nil {
		return ledger.Principal{}, ledger.AssetID{}, err
	}

	asset, err := parseAsset(r.Asset)
	if err != nil {
		return ledger.Principal{}, ledger.AssetID{}, err
	}

	return principal, asset, nil
}

// claimRequest is the body of POST /claim.
type claimRequest struct {
	Principal string `json:"principal"`
}

// updateRequest is the body of POST /update.
type updateRequest struct {
	Caller        string   `json:"caller"`
	Principal     string   `json:"principal"`
	NewStatus     string   `json:"new_status"` // "exited" or "terminated"
	RewardAssets  []string `json:"reward_assets"`
	RewardAmounts []uint64 `json:"reward_amounts"`
}

func (r *updateRequest) parse() (caller, principal ledger.Principal, status ledger.Status, assets []ledger.AssetID, amounts []uint64, err error) {
	caller, err = parsePrincipal(r.Caller)
	if err != nil {
		return
	}

	principal, err = parsePrincipal(r.Principal)
	if err != nil {
		return
	}

	status, err = parseTerminalStatus(r.NewStatus)
	if err != nil {
		return
	}

	assets, err = parseAssetList(r.RewardAssets)
	if err != nil {
		return
	}

	amounts = r.RewardAmounts

	return
}

// attestedRequest is the body of POST /attested.
type attestedRequest struct {
	Principal string   `json:"principal"`
	Assets    []string `json:"assets"`
	Amounts   []uint64 `json:"amounts"`
	Nonce     uint64   `json:"nonce"`
	Signature string   `json:"signature"` // hex, 96 bytes
}

func (r *attestedRequest) parse() (principal ledger.Principal, assets []ledger.AssetID, amounts []uint64, signature []byte, err error) {
	principal, err = parsePrincipal(r.Principal)
	if err != nil {
		return
	}

	assets, err = parseAssetList(r.Assets)
	if err != nil {
		return
	}

	signature, err = hex.DecodeString(r.Signature)
	if err != nil {
		err = fmt.Errorf("invalid signature hex: %v", err)
		return
	}

	if len(signature) != attest.SignatureSize {
		err = fmt.Errorf("signature must be %d bytes, got %d", attest.SignatureSize, len(signature))
		return
	}

	amounts = r.Amounts

	return
}

// roleRequest is the body of POST /admin/attestor and /admin/transfer.
type roleRequest struct {
	Caller string `json:"caller"`
	NewID  string `json:"new_id"`
	PubKey string `json:"pub_key,omitempty"` // hex BLS key, attestor rotation only
}

func (r *roleRequest) parse() (caller, newID ledger.Principal, pub []byte, err error) {
	caller, err = parsePrincipal(r.Caller)
	if err != nil {
		return
	}

	newID, err = parsePrincipal(r.NewID)
	if err != nil {
		return
	}

	if r.PubKey != "" {
		pub, err = hex.DecodeString(r.PubKey)
		if err != nil {
			err = fmt.Errorf("invalid pub_key hex: %v", err)
			return
		}

		if len(pub) != attest.PublicKeySize {
			err = fmt.Errorf("pub_key must be %d bytes, got %d", attest.PublicKeySize, len(pub))
			return
		}
	}

	return
}

// floorRequest is the body of POST /admin/floor.
type floorRequest struct {
	Caller string `json:"caller"`
	Floor  uint64 `json:"floor"`
}

// sessionResponse is the body of GET /session/{principal}.
type sessionResponse struct {
	Status        string           `json:"status"`
	SessionID     uint64           `json:"session_id"`
	EntryAsset    ledger.AssetID   `json:"entry_asset"`
	EntryAmount   uint64           `json:"entry_amount"`
	OpenedAt      int64            `json:"opened_at"`
	RewardAssets  []ledger.AssetID `json:"reward_assets,omitempty"`
	RewardAmounts []uint64         `json:"reward_amounts,omitempty"`
}

// rewardsResponse is the body of GET /rewards/{principal}.
type rewardsResponse struct {
	Assets  []ledger.AssetID `json:"assets"`
	Amounts []uint64         `json:"amounts"`
}

// parsePrincipal decodes a 32-byte hex principal identity.
func parsePrincipal(s string) (ledger.Principal, error) {
	data, err := hex.DecodeString(s)
	if err != nil {
		return ledger.Principal{}, fmt.Errorf("invalid principal hex: %v", err)
	}

	if len(data) != idSize {
		return ledger.Principal{}, fmt.Errorf("principal must be %d bytes, got %d", idSize, len(data))
	}

	var p ledger.Principal
	copy(p[:], data)

	return p, nil
}

// parseAsset decodes a 32-byte hex asset identifier.
func parseAsset(s string) (ledger.AssetID, error) {
	data, err := hex.DecodeString(s)
	if err != nil {
		return ledger.AssetID{}, fmt.Errorf("invalid asset hex: %v", err)
	}

	if len(data) != idSize {
		return ledger.AssetID{}, fmt.Errorf("asset must be %d bytes, got %d", idSize, len(data))
	}

	var a ledger.AssetID
	copy(a[:], data)

	return a, nil
}

// parseAssetList decodes a bounded list of hex asset identifiers.
func parseAssetList(raw []string) ([]ledger.AssetID, error) {
	if len(raw) > maxRewardPairs {
		return nil, fmt.Errorf("too many reward pairs: %d, max %d", len(raw), maxRewardPairs)
	}

	assets := make([]ledger.AssetID, len(raw))

	for i, s := range raw {
		a, err := parseAsset(s)
		if err != nil {
			return nil, fmt.Errorf("asset %d: %v", i, err)
		}

		assets[i] = a
	}

	return assets, nil
}

// parseTerminalStatus decodes the target status of an update request.
func parseTerminalStatus(s string) (ledger.Status, error) {
	switch s {
	case "exited":
		return ledger.StatusExited, nil
	case "terminated":
		return ledger.StatusTerminated, nil
	default:
		return ledger.StatusInactive, fmt.Errorf("new_status must be exited or terminated, got %q", s)
	}
}
