package oracle

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testConfigYAML = `
sources:
  - name: primary-venue
    kind: venue
    base_url: http://venue.internal:9100
    decimals: 6
    symbols:
      aa00000000000000000000000000000000000000000000000000000000000000: GOLD
  - name: fallback-table
    kind: static
    prices:
      aa00000000000000000000000000000000000000000000000000000000000000: 2000000000
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "oracle.yaml")

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	return path
}

func TestLoadConfigAndBuild(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, testConfigYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if len(cfg.Sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(cfg.Sources))
	}

	adapter, err := cfg.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if len(adapter.sources) != 2 {
		t.Fatalf("expected 2 built sources, got %d", len(adapter.sources))
	}

	// Priority order is preserved.
	if adapter.sources[0].Name() != "primary-venue" || adapter.sources[1].Name() != "fallback-table" {
		t.Errorf("order lost: %s, %s", adapter.sources[0].Name(), adapter.sources[1].Name())
	}

	// The static tail quotes the configured price.
	var id [32]byte
	id[0] = 0xAA
	price, err := adapter.sources[1].Quote(id)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if price != 2*Scale {
		t.Errorf("expected %d, got %d", 2*Scale, price)
	}
}

func TestBuildRejectsUnknownKind(t *testing.T) {
	cfg := &Config{Sources: []SourceConfig{{Name: "x", Kind: "teapot"}}}

	if _, err := cfg.Build(); err == nil || !strings.Contains(err.Error(), "unknown kind") {
		t.Errorf("expected unknown kind error, got %v", err)
	}
}

func TestBuildRejectsBadAssetID(t *testing.T) {
	cfg := &Config{Sources: []SourceConfig{{
		Name:   "x",
		Kind:   "static",
		Prices: map[string]uint64{"not-hex": 1},
	}}}

	if _, err := cfg.Build(); err == nil {
		t.Error("expected error for malformed asset id")
	}
}
