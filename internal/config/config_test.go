package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.DatabasePath != DefaultDatabaseFile {
		t.Errorf("DatabasePath = %q, want %q", cfg.DatabasePath, DefaultDatabaseFile)
	}
	if cfg.Server.Bind != "127.0.0.1" || cfg.Server.Port != 8087 {
		t.Errorf("server defaults = %s:%d, want 127.0.0.1:8087", cfg.Server.Bind, cfg.Server.Port)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DatabasePath != DefaultDatabaseFile {
		t.Errorf("DatabasePath = %q, want %q", cfg.DatabasePath, DefaultDatabaseFile)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Logging.Level)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()

	cfg := DefaultConfig()
	cfg.DatabasePath = filepath.Join(dir, "data", "assets.db")
	cfg.Server.Port = 9000
	cfg.Auth.AllowedUsers = []string{"alice@example.com", "bob@example.com"}
	cfg.Logging.Level = "debug"

	if err := cfg.Save(dir); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "config.toml")); err != nil {
		t.Fatalf("config.toml not written: %v", err)
	}

	got, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.DatabasePath != cfg.DatabasePath {
		t.Errorf("DatabasePath = %q, want %q", got.DatabasePath, cfg.DatabasePath)
	}
	if got.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", got.Server.Port)
	}
	if len(got.Auth.AllowedUsers) != 2 || got.Auth.AllowedUsers[0] != "alice@example.com" {
		t.Errorf("AllowedUsers = %v", got.Auth.AllowedUsers)
	}
	if got.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", got.Logging.Level)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"empty database path", func(c *Config) { c.DatabasePath = "" }, true},
		{"port zero", func(c *Config) { c.Server.Port = 0 }, true},
		{"port too large", func(c *Config) { c.Server.Port = 70000 }, true},
		{"blank allow-list entry", func(c *Config) { c.Auth.AllowedUsers = []string{"  "} }, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.wantErr && err == nil {
				t.Error("expected a validation error")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
