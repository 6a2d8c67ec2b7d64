package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"ArenaVault/internal/logger"
)

func main() {
	logger.Init()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main entry point with error handling.
func run() error {
	cfg, err := parseConfig()
	if err != nil {
		return err
	}

	vault, err := NewVault(cfg)
	if err != nil {
		return fmt.Errorf("create vault:\n%w", err)
	}

	printStartupInfo(cfg)

	return vault.Run()
}

// printStartupInfo displays the daemon configuration at startup.
func printStartupInfo(cfg *Config) {
	logger.Info("starting ArenaVault",
		"http", cfg.HTTPAddress,
		"data", cfg.DataPath,
		"admin", cfg.Admin,
		"attestor", cfg.Attestor,
		"oracle", cfg.OracleConfigPath != "",
	)

	if cfg.AttestorKey != nil {
		logger.Info("attestor key loaded",
			"pubkey", hex.EncodeToString(cfg.AttestorKey.PublicKeyBytes()[:8]))
	}
}
