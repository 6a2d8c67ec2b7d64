package client

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"ArenaVault/internal/ledger"
)

// Client connects to a vault node via HTTP.
type Client struct {
	nodeAddr string // nodeAddr is the HTTP address (e.g. "127.0.0.1:8080")
}

// SessionInfo holds a parsed session record from the API.
type SessionInfo struct {
	Status        string           // Status is the lifecycle state name
	SessionID     uint64           // SessionID is the monotonic entry identifier
	EntryAsset    ledger.AssetID   // EntryAsset is the deposited asset type
	EntryAmount   uint64           // EntryAmount is the deposited amount
	OpenedAt      int64            // OpenedAt is the entry time in unix seconds
	RewardAssets  []ledger.AssetID // RewardAssets is the settled reward basket
	RewardAmounts []uint64         // RewardAmounts are the per-asset reward amounts
}

// EventRecord is one journal entry from the /events feed.
type EventRecord struct {
	Seq     uint64          `json:"seq"`
	Kind    string          `json:"kind"`
	At      int64           `json:"at"`
	Payload json.RawMessage `json:"payload"`
}

// NewClient creates a client connected to a node.
// It verifies the node is reachable via its /health endpoint.
func NewClient(nodeAddr string) (*Client, error) {
	nodeAddr = strings.TrimPrefix(nodeAddr, "http://")

	var health struct {
		Status string `json:"status"`
	}

	if err := httpGet("http://"+nodeAddr+"/health", &health); err != nil {
		return nil, fmt.Errorf("get health:\n%w", err)
	}

	if health.Status != "ok" {
		return nil, fmt.Errorf("node unhealthy: %q", health.Status)
	}

	return &Client{nodeAddr: nodeAddr}, nil
}

// Enter deposits `amount` of `asset` for `principal`, opening a session.
// Returns the assigned session ID.
func (c *Client) Enter(principal ledger.Principal, asset ledger.AssetID, amount uint64) (uint64, error) {
	body := map[string]any{
		"principal": hex.EncodeToString(principal[:]),
		"asset":     hex.EncodeToString(asset[:]),
		"amount":    amount,
	}

	var resp struct {
		SessionID uint64 `json:"session_id"`
	}

	if err := httpPostJSON("http://"+c.nodeAddr+"/enter", body, &resp); err != nil {
		return 0, fmt.Errorf("enter:\n%w", err)
	}

	return resp.SessionID, nil
}

// Claim releases the settled rewards of an exited session to the principal.
func (c *Client) Claim(principal ledger.Principal) error {
	body := map[string]any{
		"principal": hex.EncodeToString(principal[:]),
	}

	var resp struct {
		Status string `json:"status"`
	}

	if err := httpPostJSON("http://"+c.nodeAddr+"/claim", body, &resp); err != nil {
		return fmt.Errorf("claim:\n%w", err)
	}

	return nil
}

// Session retrieves the session record of a principal.
func (c *Client) Session(principal ledger.Principal) (*SessionInfo, error) {
	var resp struct {
		Status        string   `json:"status"`
		SessionID     uint64   `json:"session_id"`
		EntryAsset    string   `json:"entry_asset"`
		EntryAmount   uint64   `json:"entry_amount"`
		OpenedAt      int64    `json:"opened_at"`
		RewardAssets  []string `json:"reward_assets"`
		RewardAmounts []uint64 `json:"reward_amounts"`
	}

	url := "http://" + c.nodeAddr + "/session/" + hex.EncodeToString(principal[:])
	if err := httpGet(url, &resp); err != nil {
		return nil, fmt.Errorf("get session:\n%w", err)
	}

	info := &SessionInfo{
		Status:        resp.Status,
		SessionID:     resp.SessionID,
		EntryAmount:   resp.EntryAmount,
		OpenedAt:      resp.OpenedAt,
		RewardAmounts: resp.RewardAmounts,
	}

	entryAsset, err := decodeHexID(resp.EntryAsset)
	if err != nil {
		return nil, fmt.Errorf("invalid entry asset:\n%w", err)
	}
	info.EntryAsset = ledger.AssetID(entryAsset)

	info.RewardAssets, err = parseAssetList(resp.RewardAssets)
	if err != nil {
		return nil, fmt.Errorf("invalid reward assets:\n%w", err)
	}

	return info, nil
}

// Rewards retrieves the settled reward amounts of a principal's session.
func (c *Client) Rewards(principal ledger.Principal) ([]ledger.AssetID, []uint64, error) {
	var resp struct {
		Assets  []string `json:"assets"`
		Amounts []uint64 `json:"amounts"`
	}

	url := "http://" + c.nodeAddr + "/rewards/" + hex.EncodeToString(principal[:])
	if err := httpGet(url, &resp); err != nil {
		return nil, nil, fmt.Errorf("get rewards:\n%w", err)
	}

	assets, err := parseAssetList(resp.Assets)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid reward assets:\n%w", err)
	}

	return assets, resp.Amounts, nil
}

// CustodyBalance retrieves the total custody held for an asset.
func (c *Client) CustodyBalance(asset ledger.AssetID) (uint64, error) {
	var resp struct {
		Balance uint64 `json:"balance"`
	}

	url := "http://" + c.nodeAddr + "/custody/" + hex.EncodeToString(asset[:])
	if err := httpGet(url, &resp); err != nil {
		return 0, fmt.Errorf("get custody:\n%w", err)
	}

	return resp.Balance, nil
}

// Events retrieves journal entries with sequence numbers above `after`,
// at most `limit` of them. limit <= 0 means no bound.
func (c *Client) Events(after uint64, limit int) ([]EventRecord, error) {
	query := url.Values{}
	query.Set("after", strconv.FormatUint(after, 10))

	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	var entries []EventRecord
	if err := httpGet("http://"+c.nodeAddr+"/events?"+query.Encode(), &entries); err != nil {
		return nil, fmt.Errorf("get events:\n%w", err)
	}

	return entries, nil
}

// TransferAdministrator hands the administrator role to a new identity.
// The caller must be the current administrator.
func (c *Client) TransferAdministrator(caller, newID ledger.Principal) error {
	body := map[string]any{
		"caller": hex.EncodeToString(caller[:]),
		"new_id": hex.EncodeToString(newID[:]),
	}

	var resp struct {
		Status string `json:"status"`
	}

	if err := httpPostJSON("http://"+c.nodeAddr+"/admin/transfer", body, &resp); err != nil {
		return fmt.Errorf("transfer administrator:\n%w", err)
	}

	return nil
}

// SetAttestor rotates the trusted attestor identity and public key.
// The caller must be the current administrator.
func (c *Client) SetAttestor(caller, newID ledger.Principal, pubKey []byte) error {
	body := map[string]any{
		"caller":  hex.EncodeToString(caller[:]),
		"new_id":  hex.EncodeToString(newID[:]),
		"pub_key": hex.EncodeToString(pubKey),
	}

	var resp struct {
		Status string `json:"status"`
	}

	if err := httpPostJSON("http://"+c.nodeAddr+"/admin/attestor", body, &resp); err != nil {
		return fmt.Errorf("set attestor:\n%w", err)
	}

	return nil
}

// SetExitFloor sets the minimum scaled basket value required for an exit.
// The caller must be the current administrator.
func (c *Client) SetExitFloor(caller ledger.Principal, floor uint64) error {
	body := map[string]any{
		"caller": hex.EncodeToString(caller[:]),
		"floor":  floor,
	}

	var resp struct {
		Status string `json:"status"`
	}

	if err := httpPostJSON("http://"+c.nodeAddr+"/admin/floor", body, &resp); err != nil {
		return fmt.Errorf("set exit floor:\n%w", err)
	}

	return nil
}

// parseAssetList decodes a list of hex asset identifiers.
func parseAssetList(raw []string) ([]ledger.AssetID, error) {
	assets := make([]ledger.AssetID, len(raw))

	for i, s := range raw {
		id, err := decodeHexID(s)
		if err != nil {
			return nil, fmt.Errorf("asset %d:\n%w", i, err)
		}

		assets[i] = ledger.AssetID(id)
	}

	return assets, nil
}

// decodeHexID decodes a 64-char hex string to a [32]byte.
func decodeHexID(hexStr string) ([32]byte, error) {
	b, err := hex.DecodeString(hexStr)
	if err != nil || len(b) != 32 {
		return [32]byte{}, fmt.Errorf("invalid hex ID: %q", hexStr)
	}

	var id [32]byte
	copy(id[:], b)

	return id, nil
}
