package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Addr != DefaultHTTPAddr {
		t.Fatalf("addr = %q, want %q", cfg.Server.Addr, DefaultHTTPAddr)
	}
	if cfg.Gateway.BaseURL != DefaultGatewayURL {
		t.Fatalf("gateway base url = %q, want %q", cfg.Gateway.BaseURL, DefaultGatewayURL)
	}
	if cfg.Gateway.BackoffMin() != time.Second {
		t.Fatalf("backoff min = %v, want 1s", cfg.Gateway.BackoffMin())
	}
	if len(cfg.Uploads.AllowedExtensions["image"]) == 0 {
		t.Fatal("expected default image extensions")
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[server]
addr = ":9090"

[gateway]
base_url = "http://gw:3001"
backoff_max_seconds = 120

[uploads]
max_bytes = 1024
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Addr != ":9090" {
		t.Fatalf("addr = %q, want :9090", cfg.Server.Addr)
	}
	if cfg.Gateway.BaseURL != "http://gw:3001" {
		t.Fatalf("gateway base url = %q", cfg.Gateway.BaseURL)
	}
	if cfg.Gateway.BackoffMax() != 120*time.Second {
		t.Fatalf("backoff max = %v, want 120s", cfg.Gateway.BackoffMax())
	}
	if cfg.Uploads.MaxBytes != 1024 {
		t.Fatalf("max bytes = %d, want 1024", cfg.Uploads.MaxBytes)
	}
	if cfg.Postgres.Database != DefaultPGDatabase {
		t.Fatalf("database = %q, want default", cfg.Postgres.Database)
	}
}
