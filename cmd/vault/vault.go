package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ArenaVault/internal/api"
	"ArenaVault/internal/attest"
	"ArenaVault/internal/events"
	"ArenaVault/internal/ledger"
	"ArenaVault/internal/logger"
	"ArenaVault/internal/oracle"
	"ArenaVault/internal/storage"
	"ArenaVault/internal/transfer"
)

// Vault is the running daemon: storage, bank, ledger, journal and API
// wired together.
type Vault struct {
	cfg     *Config
	storage *storage.Storage
	bank    *transfer.Bank
	journal *events.Journal
	ledger  *ledger.Ledger
	api     *api.Server
}

// NewVault creates and wires a vault from the configuration.
func NewVault(cfg *Config) (*Vault, error) {
	v := &Vault{cfg: cfg}

	db, err := storage.New(cfg.DataPath)
	if err != nil {
		return nil, fmt.Errorf("open storage:\n%w", err)
	}
	v.storage = db

	v.bank = transfer.NewBank(db)

	v.journal, err = events.Open(db)
	if err != nil {
		v.Close()
		return nil, fmt.Errorf("open journal:\n%w", err)
	}

	opts := []ledger.Option{ledger.WithEmitter(v.journal)}

	if cfg.OracleConfigPath != "" {
		oracleCfg, err := oracle.LoadConfig(cfg.OracleConfigPath)
		if err != nil {
			v.Close()
			return nil, err
		}

		adapter, err := oracleCfg.Build()
		if err != nil {
			v.Close()
			return nil, err
		}

		opts = append(opts, ledger.WithOracle(adapter))
	}

	var attestorPub []byte
	if cfg.AttestorKey != nil {
		attestorPub = cfg.AttestorKey.PublicKeyBytes()
	}

	l, err := ledger.New(db, v.bank, cfg.Admin, cfg.Attestor, attestorPub, opts...)
	if err != nil {
		v.Close()
		return nil, fmt.Errorf("open ledger:\n%w", err)
	}
	v.ledger = l

	// The verifier reads the attestor key through the ledger so a
	// rotation takes effect without rewiring. It is attached after
	// construction to break the cycle.
	verifier := attest.NewVerifier(db, l.AttestorPublicKey)
	ledger.WithAttestationChecker(verifier)(l)

	v.api = api.New(cfg.HTTPAddress, l, v.journal)

	return v, nil
}

// Run starts the API server and blocks until a shutdown signal.
func (v *Vault) Run() error {
	if err := v.api.Start(); err != nil {
		return fmt.Errorf("start api:\n%w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", "signal", sig)

	return v.Close()
}

// Close releases all resources in reverse initialization order.
func (v *Vault) Close() error {
	if v.api != nil {
		if err := v.api.Stop(); err != nil {
			logger.Warn("api shutdown error", "error", err)
		}
	}

	if v.storage != nil {
		if err := v.storage.Close(); err != nil {
			return fmt.Errorf("close storage:\n%w", err)
		}
	}

	return nil
}
