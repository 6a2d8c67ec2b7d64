package oracle

import (
	"encoding/hex"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"ArenaVault/internal/ledger"
)

// SourceConfig describes one price source in the fallback chain.
type SourceConfig struct {
	Name     string            `yaml:"name"`
	Kind     string            `yaml:"kind"` // "venue" or "static"
	BaseURL  string            `yaml:"base_url,omitempty"`
	Decimals uint              `yaml:"decimals,omitempty"`
	Symbols  map[string]string `yaml:"symbols,omitempty"` // hex asset id → venue symbol
	Prices   map[string]uint64 `yaml:"prices,omitempty"`  // hex asset id → price at Scale
}

// Config is the oracle section of the daemon configuration. Sources are
// listed in priority order.
type Config struct {
	Sources []SourceConfig `yaml:"sources"`
}

// LoadConfig reads a YAML oracle configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read oracle config:\n%w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse oracle config:\n%w", err)
	}

	return &cfg, nil
}

// Build constructs the adapter from the configured source chain.
func (c *Config) Build() (*Adapter, error) {
	sources := make([]Source, 0, len(c.Sources))

	for _, sc := range c.Sources {
		switch sc.Kind {
		case "venue":
			symbols, err := parseSymbolTable(sc.Symbols)
			if err != nil {
				return nil, fmt.Errorf("source %q:\n%w", sc.Name, err)
			}

			sources = append(sources, NewVenueSource(sc.Name, sc.BaseURL, symbols, sc.Decimals))

		case "static":
			prices, err := parsePriceTable(sc.Prices)
			if err != nil {
				return nil, fmt.Errorf("source %q:\n%w", sc.Name, err)
			}

			sources = append(sources, NewStaticSource(sc.Name, prices))

		default:
			return nil, fmt.Errorf("source %q: unknown kind %q", sc.Name, sc.Kind)
		}
	}

	return NewAdapter(sources...), nil
}

// parseSymbolTable decodes hex asset ids into a symbol map.
func parseSymbolTable(raw map[string]string) (map[ledger.AssetID]string, error) {
	symbols := make(map[ledger.AssetID]string, len(raw))

	for idHex, symbol := range raw {
		id, err := parseAssetID(idHex)
		if err != nil {
			return nil, err
		}

		symbols[id] = symbol
	}

	return symbols, nil
}

// parsePriceTable decodes hex asset ids into a price map.
func parsePriceTable(raw map[string]uint64) (map[ledger.AssetID]uint64, error) {
	prices := make(map[ledger.AssetID]uint64, len(raw))

	for idHex, price := range raw {
		id, err := parseAssetID(idHex)
		if err != nil {
			return nil, err
		}

		prices[id] = price
	}

	return prices, nil
}

// parseAssetID decodes a 32-byte hex asset identifier.
func parseAssetID(s string) (ledger.AssetID, error) {
	data, err := hex.DecodeString(s)
	if err != nil {
		return ledger.AssetID{}, fmt.Errorf("invalid asset id %q:\n%w", s, err)
	}

	if len(data) != 32 {
		return ledger.AssetID{}, fmt.Errorf("asset id %q: got %d bytes, want 32", s, len(data))
	}

	var id ledger.AssetID
	copy(id[:], data)

	return id, nil
}
