package integration

import (
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"ArenaVault/client"
	"ArenaVault/internal/api"
	"ArenaVault/internal/attest"
	"ArenaVault/internal/events"
	"ArenaVault/internal/ledger"
	"ArenaVault/internal/oracle"
	"ArenaVault/internal/storage"
	"ArenaVault/internal/transfer"
)

var (
	admin        = ledger.Principal{0xAD}
	attestorID   = ledger.Principal{0xA7}
	tokenAsset   = ledger.AssetID{0x01}
	rewardAsset  = ledger.AssetID{0x02}
	attestorSeed = []byte("integration-attestor-seed-00000000000000")
)

// Vault is a fully wired in-process node: storage, bank, journal,
// oracle, ledger, verifier and HTTP API on an ephemeral listener.
type Vault struct {
	DataDir  string
	DB       *storage.Storage
	Bank     *transfer.Bank
	Journal  *events.Journal
	Ledger   *ledger.Ledger
	Attestor *client.Attestor
	Addr     string

	ts *httptest.Server
}

// vaultOption mutates the wiring before the ledger is built.
type vaultOption func(*vaultConfig)

type vaultConfig struct {
	oracle    ledger.Oracle
	nextNonce uint64
}

// WithOracle wires a price oracle so the exit floor is enforced.
func WithOracle(o ledger.Oracle) vaultOption {
	return func(c *vaultConfig) { c.oracle = o }
}

// WithNextNonce seeds the attestor's nonce counter, as a restarted
// attestor process would from its persisted cursor.
func WithNextNonce(n uint64) vaultOption {
	return func(c *vaultConfig) { c.nextNonce = n }
}

// StartVault boots a vault over a fresh temp directory.
func StartVault(t *testing.T, opts ...vaultOption) *Vault {
	t.Helper()

	dir, err := os.MkdirTemp("", "vault_integration_*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	return startVaultAt(t, dir, opts...)
}

// Restart closes the vault and boots a new one over the same data
// directory, as a process restart would.
func (v *Vault) Restart(t *testing.T, opts ...vaultOption) *Vault {
	t.Helper()

	v.Stop(t)

	return startVaultAt(t, v.DataDir, opts...)
}

// Stop shuts the HTTP listener and storage down.
func (v *Vault) Stop(t *testing.T) {
	t.Helper()

	v.ts.Close()

	if err := v.DB.Close(); err != nil {
		t.Fatalf("failed to close storage: %v", err)
	}
}

// Client opens an API client against the vault.
func (v *Vault) Client(t *testing.T) *client.Client {
	t.Helper()

	c, err := client.NewClient(v.Addr)
	if err != nil {
		t.Fatalf("failed to connect client: %v", err)
	}

	return c
}

func startVaultAt(t *testing.T, dir string, opts ...vaultOption) *Vault {
	t.Helper()

	cfg := vaultConfig{nextNonce: 1}
	for _, opt := range opts {
		opt(&cfg)
	}

	db, err := storage.New(dir)
	if err != nil {
		t.Fatalf("failed to open storage: %v", err)
	}

	key, err := attest.KeyFromSeed(attestorSeed)
	if err != nil {
		t.Fatalf("failed to derive attestor key: %v", err)
	}

	bank := transfer.NewBank(db)

	journal, err := events.Open(db)
	if err != nil {
		t.Fatalf("failed to open journal: %v", err)
	}

	ledgerOpts := []ledger.Option{ledger.WithEmitter(journal)}
	if cfg.oracle != nil {
		ledgerOpts = append(ledgerOpts, ledger.WithOracle(cfg.oracle))
	}

	l, err := ledger.New(db, bank, admin, attestorID, key.PublicKeyBytes(), ledgerOpts...)
	if err != nil {
		t.Fatalf("failed to create ledger: %v", err)
	}

	verifier := attest.NewVerifier(db, l.AttestorPublicKey)
	ledger.WithAttestationChecker(verifier)(l)

	srv := api.New(":0", l, journal)
	ts := httptest.NewServer(srv.Handler())

	return &Vault{
		DataDir:  dir,
		DB:       db,
		Bank:     bank,
		Journal:  journal,
		Ledger:   l,
		Attestor: client.NewAttestor(attestorID, key, cfg.nextNonce),
		Addr:     strings.TrimPrefix(ts.URL, "http://"),
		ts:       ts,
	}
}

// mustKey derives the shared test attestor key pair.
func mustKey(t *testing.T) *attest.KeyPair {
	t.Helper()

	key, err := attest.KeyFromSeed(attestorSeed)
	if err != nil {
		t.Fatalf("failed to derive attestor key: %v", err)
	}

	return key
}

// principalN derives a distinct principal identity from an index.
func principalN(i int) ledger.Principal {
	return ledger.Principal{0x10, byte(i)}
}

// staticOracle aliases the fixed-quote source used in floor tests.
func staticOracle(prices map[ledger.AssetID]uint64) ledger.Oracle {
	return oracle.NewAdapter(oracle.NewStaticSource("static", prices))
}
