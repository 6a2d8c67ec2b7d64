package main

import (
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"

	"ArenaVault/internal/attest"
	"ArenaVault/internal/ledger"
)

// Config holds the daemon configuration. Environment variables provide
// defaults; flags override them.
type Config struct {
	// DataPath is the directory for persistent storage.
	DataPath string `env:"VAULT_DATA" envDefault:"./data"`

	// HTTPAddress is the HTTP API listen address.
	HTTPAddress string `env:"VAULT_HTTP" envDefault:":8080"`

	// AdminID is the hex administrator identity used at bootstrap.
	AdminID string `env:"VAULT_ADMIN"`

	// AttestorID is the hex attestor identity used at bootstrap.
	AttestorID string `env:"VAULT_ATTESTOR"`

	// AttestorKeyPath is the path to the attestor BLS seed file. When the
	// daemon runs colocated with the attestor, the key is loaded or
	// generated here and its public half configured on the verifier.
	AttestorKeyPath string `env:"VAULT_ATTESTOR_KEY"`

	// OracleConfigPath is the path to the YAML price-source chain.
	// Empty disables the oracle and the exit floor check.
	OracleConfigPath string `env:"VAULT_ORACLE_CONFIG"`

	// Admin and Attestor are the parsed bootstrap identities.
	Admin    ledger.Principal
	Attestor ledger.Principal

	// AttestorKey is the loaded attestor key pair, nil when not colocated.
	AttestorKey *attest.KeyPair
}

// parseConfig reads environment defaults and command-line flags.
func parseConfig() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment:\n%w", err)
	}

	flag.StringVar(&cfg.DataPath, "data", cfg.DataPath, "Data directory path")
	flag.StringVar(&cfg.HTTPAddress, "http", cfg.HTTPAddress, "HTTP API address")
	flag.StringVar(&cfg.AdminID, "admin", cfg.AdminID, "Administrator identity (hex, 32 bytes)")
	flag.StringVar(&cfg.AttestorID, "attestor", cfg.AttestorID, "Attestor identity (hex, 32 bytes)")
	flag.StringVar(&cfg.AttestorKeyPath, "attestor-key", cfg.AttestorKeyPath, "Attestor BLS seed path (generates new if missing)")
	flag.StringVar(&cfg.OracleConfigPath, "oracle-config", cfg.OracleConfigPath, "Oracle source chain YAML path")
	flag.Parse()

	var err error

	cfg.Admin, err = parseIdentity(cfg.AdminID, "admin")
	if err != nil {
		return nil, err
	}

	cfg.Attestor, err = parseIdentity(cfg.AttestorID, "attestor")
	if err != nil {
		return nil, err
	}

	if cfg.AttestorKeyPath != "" {
		cfg.AttestorKey, err = loadOrGenerateKey(cfg.AttestorKeyPath)
		if err != nil {
			return nil, fmt.Errorf("load attestor key:\n%w", err)
		}
	}

	return cfg, nil
}

// parseIdentity decodes a 32-byte hex identity.
func parseIdentity(s, role string) (ledger.Principal, error) {
	if s == "" {
		return ledger.Principal{}, fmt.Errorf("%s identity is required", role)
	}

	data, err := hex.DecodeString(s)
	if err != nil {
		return ledger.Principal{}, fmt.Errorf("invalid %s identity:\n%w", role, err)
	}

	if len(data) != 32 {
		return ledger.Principal{}, fmt.Errorf("%s identity must be 32 bytes, got %d", role, len(data))
	}

	var p ledger.Principal
	copy(p[:], data)

	return p, nil
}

// loadOrGenerateKey loads the attestor BLS seed from file or generates
// a new one.
func loadOrGenerateKey(path string) (*attest.KeyPair, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return generateAndSaveKey(path)
	}

	if err != nil {
		return nil, fmt.Errorf("read seed file:\n%w", err)
	}

	if len(data) < 32 {
		return nil, fmt.Errorf("seed too short: got %d bytes, want at least 32", len(data))
	}

	return attest.KeyFromSeed(data)
}

// generateAndSaveKey creates a new seed and saves it to the given path.
func generateAndSaveKey(path string) (*attest.KeyPair, error) {
	var seed [32]byte
	if _, err := rand.Read(seed[:]); err != nil {
		return nil, fmt.Errorf("generate seed:\n%w", err)
	}

	if err := os.WriteFile(path, seed[:], 0600); err != nil {
		return nil, fmt.Errorf("save seed to %s:\n%w", path, err)
	}

	return attest.KeyFromSeed(seed[:])
}
