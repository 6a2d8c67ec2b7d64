package client

import (
	"encoding/hex"
	"fmt"
	"sync/atomic"

	"ArenaVault/internal/attest"
	"ArenaVault/internal/ledger"
)

// Attestor signs and submits settlement attestations. It wraps the
// attestor key pair and hands out fresh nonces from a local counter;
// the counter only has to avoid nonces already consumed on the node,
// so callers restarting the attestor seed it past the last used value.
type Attestor struct {
	id    ledger.Principal // id is the attestor's on-ledger identity
	key   *attest.KeyPair  // key signs attestation digests
	nonce atomic.Uint64    // nonce is the last issued nonce
}

// NewAttestor creates an attestor handle from an identity and key pair.
// nextNonce is the first nonce the attestor will issue.
func NewAttestor(id ledger.Principal, key *attest.KeyPair, nextNonce uint64) *Attestor {
	a := &Attestor{id: id, key: key}

	if nextNonce > 0 {
		a.nonce.Store(nextNonce - 1)
	}

	return a
}

// PublicKey returns the attestor's compressed BLS public key.
func (a *Attestor) PublicKey() []byte {
	return a.key.PublicKeyBytes()
}

// Settle signs a reward basket for `principal` and submits it via the
// signed settlement path. Returns the nonce used, which the caller can
// persist to survive restarts.
func (a *Attestor) Settle(c *Client, principal ledger.Principal, assets []ledger.AssetID, amounts []uint64) (uint64, error) {
	nonce := a.nonce.Add(1)
	sig := attest.SignAttestation(a.key, principal, assets, amounts, nonce)

	body := map[string]any{
		"principal": hex.EncodeToString(principal[:]),
		"assets":    encodeAssetList(assets),
		"amounts":   amounts,
		"nonce":     nonce,
		"signature": hex.EncodeToString(sig),
	}

	var resp struct {
		Status string `json:"status"`
	}

	if err := httpPostJSON("http://"+c.nodeAddr+"/attested", body, &resp); err != nil {
		return nonce, fmt.Errorf("submit attested settlement:\n%w", err)
	}

	return nonce, nil
}

// Update drives a session to a terminal state through the direct
// attestor-identity path, without a signed message.
func (a *Attestor) Update(c *Client, principal ledger.Principal, newStatus ledger.Status, assets []ledger.AssetID, amounts []uint64) error {
	body := map[string]any{
		"caller":         hex.EncodeToString(a.id[:]),
		"principal":      hex.EncodeToString(principal[:]),
		"new_status":     newStatus.String(),
		"reward_assets":  encodeAssetList(assets),
		"reward_amounts": amounts,
	}

	var resp struct {
		Status string `json:"status"`
	}

	if err := httpPostJSON("http://"+c.nodeAddr+"/update", body, &resp); err != nil {
		return fmt.Errorf("submit state update:\n%w", err)
	}

	return nil
}

// encodeAssetList hex-encodes asset identifiers for JSON transport.
func encodeAssetList(assets []ledger.AssetID) []string {
	out := make([]string, len(assets))
	for i, a := range assets {
		out[i] = hex.EncodeToString(a[:])
	}

	return out
}
