package client

import (
	"errors"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"ArenaVault/internal/api"
	"ArenaVault/internal/attest"
	"ArenaVault/internal/events"
	"ArenaVault/internal/ledger"
	"ArenaVault/internal/storage"
	"ArenaVault/internal/transfer"
)

var (
	testAdmin    = ledger.Principal{0xAD}
	testAttestor = ledger.Principal{0xA7}
	alice        = ledger.Principal{0x01}
	assetX       = ledger.AssetID{0xAA}
	assetY       = ledger.AssetID{0xBB}
)

// testNode bundles the in-process node a client test talks to.
type testNode struct {
	bank     *transfer.Bank
	ledger   *ledger.Ledger
	attestor *Attestor
	addr     string
}

// startTestNode wires storage, bank, journal, ledger and verifier behind
// an httptest server and returns a node handle with a live attestor key.
func startTestNode(t *testing.T) *testNode {
	t.Helper()

	dir, err := os.MkdirTemp("", "client_test_*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	db, err := storage.New(dir)
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	key, err := attest.KeyFromSeed([]byte("client-test-attestor-seed-0000000000"))
	if err != nil {
		t.Fatalf("failed to derive attestor key: %v", err)
	}

	bank := transfer.NewBank(db)

	journal, err := events.Open(db)
	if err != nil {
		t.Fatalf("failed to open journal: %v", err)
	}

	l, err := ledger.New(db, bank, testAdmin, testAttestor, key.PublicKeyBytes(),
		ledger.WithEmitter(journal))
	if err != nil {
		t.Fatalf("failed to create ledger: %v", err)
	}

	verifier := attest.NewVerifier(db, l.AttestorPublicKey)
	ledger.WithAttestationChecker(verifier)(l)

	srv := api.New(":0", l, journal)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &testNode{
		bank:     bank,
		ledger:   l,
		attestor: NewAttestor(testAttestor, key, 1),
		addr:     strings.TrimPrefix(ts.URL, "http://"),
	}
}

func TestNewClientHealthCheck(t *testing.T) {
	node := startTestNode(t)

	if _, err := NewClient(node.addr); err != nil {
		t.Fatalf("client against live node: %v", err)
	}

	if _, err := NewClient("127.0.0.1:1"); err == nil {
		t.Error("expected error against dead address")
	}
}

func TestEnterSettleClaimFlow(t *testing.T) {
	node := startTestNode(t)

	c, err := NewClient(node.addr)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	if err := node.bank.Mint(alice, assetX, 100); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := node.bank.FundCustody(assetY, 500); err != nil {
		t.Fatalf("fund custody: %v", err)
	}

	id, err := c.Enter(alice, assetX, 30)
	if err != nil {
		t.Fatalf("enter: %v", err)
	}
	if id != 1 {
		t.Errorf("expected session id 1, got %d", id)
	}

	// signed settlement path
	nonce, err := node.attestor.Settle(c, alice,
		[]ledger.AssetID{assetX, assetY}, []uint64{30, 70})
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if nonce != 1 {
		t.Errorf("expected nonce 1, got %d", nonce)
	}

	sess, err := c.Session(alice)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if sess.Status != "exited" {
		t.Fatalf("expected exited, got %q", sess.Status)
	}
	if len(sess.RewardAssets) != 2 || sess.RewardAssets[1] != assetY {
		t.Errorf("unexpected reward assets: %v", sess.RewardAssets)
	}
	if sess.EntryAsset != assetX || sess.EntryAmount != 30 {
		t.Errorf("unexpected entry: %v %d", sess.EntryAsset, sess.EntryAmount)
	}

	if err := c.Claim(alice); err != nil {
		t.Fatalf("claim: %v", err)
	}

	gotX, err := node.bank.Balance(alice, assetX)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if gotX != 100 {
		t.Errorf("expected 100 of assetX back, got %d", gotX)
	}

	gotY, err := node.bank.Balance(alice, assetY)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if gotY != 70 {
		t.Errorf("expected 70 of assetY, got %d", gotY)
	}

	rewardAssets, rewardAmounts, err := c.Rewards(alice)
	if err != nil {
		t.Fatalf("rewards: %v", err)
	}
	if len(rewardAssets) != 2 || rewardAssets[0] != assetX || rewardAssets[1] != assetY {
		t.Errorf("unexpected reward assets: %v", rewardAssets)
	}
	if len(rewardAmounts) != 2 || rewardAmounts[0] != 30 || rewardAmounts[1] != 70 {
		t.Errorf("unexpected reward amounts: %v", rewardAmounts)
	}
}

func TestDirectUpdatePath(t *testing.T) {
	node := startTestNode(t)

	c, err := NewClient(node.addr)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	if err := node.bank.Mint(alice, assetX, 50); err != nil {
		t.Fatalf("mint: %v", err)
	}

	if _, err := c.Enter(alice, assetX, 50); err != nil {
		t.Fatalf("enter: %v", err)
	}

	err = node.attestor.Update(c, alice, ledger.StatusTerminated, nil, nil)
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	sess, err := c.Session(alice)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if sess.Status != "terminated" {
		t.Errorf("expected terminated, got %q", sess.Status)
	}
}

func TestAPIErrorCarriesCode(t *testing.T) {
	node := startTestNode(t)

	c, err := NewClient(node.addr)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = c.Enter(alice, assetX, 0)
	if err == nil {
		t.Fatal("expected error for zero amount")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T: %v", err, err)
	}
	if apiErr.Code != string(ledger.CodeInvalidAmount) {
		t.Errorf("expected INVALID_AMOUNT, got %q", apiErr.Code)
	}
}

func TestEventsFeed(t *testing.T) {
	node := startTestNode(t)

	c, err := NewClient(node.addr)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	if err := node.bank.Mint(alice, assetX, 10); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := c.Enter(alice, assetX, 10); err != nil {
		t.Fatalf("enter: %v", err)
	}
	if err := node.attestor.Update(c, alice, ledger.StatusTerminated, nil, nil); err != nil {
		t.Fatalf("update: %v", err)
	}

	entries, err := c.Events(0, 10)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 events, got %d", len(entries))
	}
	if entries[0].Kind != "entry_recorded" || entries[1].Kind != "state_updated" {
		t.Errorf("unexpected kinds: %q, %q", entries[0].Kind, entries[1].Kind)
	}

	// cursor skips consumed entries
	tail, err := c.Events(entries[0].Seq, 10)
	if err != nil {
		t.Fatalf("events after cursor: %v", err)
	}
	if len(tail) != 1 || tail[0].Kind != "state_updated" {
		t.Errorf("unexpected tail: %v", tail)
	}
}

func TestAdminOperations(t *testing.T) {
	node := startTestNode(t)

	c, err := NewClient(node.addr)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	if err := c.SetExitFloor(testAdmin, 1000); err != nil {
		t.Fatalf("set floor: %v", err)
	}

	// non-admin caller is rejected with a code
	err = c.SetExitFloor(alice, 0)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != string(ledger.CodeUnauthorized) {
		t.Errorf("expected UNAUTHORIZED, got %v", err)
	}

	newAdmin := ledger.Principal{0xEE}
	if err := c.TransferAdministrator(testAdmin, newAdmin); err != nil {
		t.Fatalf("transfer admin: %v", err)
	}

	key2, err := attest.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	newAttestor := ledger.Principal{0xEF}
	if err := c.SetAttestor(newAdmin, newAttestor, key2.PublicKeyBytes()); err != nil {
		t.Fatalf("set attestor: %v", err)
	}

	if node.ledger.Attestor() != newAttestor {
		t.Error("attestor rotation not applied")
	}
}
