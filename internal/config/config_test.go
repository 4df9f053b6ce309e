package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewDefaults(t *testing.T) {
	cfg := New()
	if cfg.BaseURL != "http://localhost:8080" {
		t.Errorf("unexpected default base URL: %s", cfg.BaseURL)
	}
	if !cfg.Notifications.Enabled {
		t.Error("notifications should be enabled by default")
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.BaseURL != "http://localhost:8080" {
		t.Errorf("expected default base URL, got %s", cfg.BaseURL)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config")

	cfg := New()
	cfg.BaseURL = "https://rgsx.example.com"
	cfg.APIKey = "secret123"
	cfg.Notifications.ShowDownloadFailed = false

	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.BaseURL != "https://rgsx.example.com" {
		t.Errorf("base URL not round-tripped: %s", loaded.BaseURL)
	}
	if loaded.APIKey != "secret123" {
		t.Errorf("api key not round-tripped: %s", loaded.APIKey)
	}
	if loaded.Notifications.ShowDownloadFailed {
		t.Error("show_download_failed should be false")
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if info.Mode().Perm()&0077 != 0 {
		t.Errorf("config file should not be group/world accessible, got %v", info.Mode().Perm())
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ROMDECK_BASE_URL", "https://env.example.com")
	t.Setenv("ROMDECK_API_KEY", "env-key")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.BaseURL != "https://env.example.com" {
		t.Errorf("env override not applied: %s", cfg.BaseURL)
	}
	if cfg.APIKey != "env-key" {
		t.Errorf("env override not applied: %s", cfg.APIKey)
	}
}

func TestValidate(t *testing.T) {
	cfg := New()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}

	cfg.BaseURL = ""
	if err := cfg.Validate(); err != ErrMissingBaseURL {
		t.Errorf("expected ErrMissingBaseURL, got %v", err)
	}

	cfg.BaseURL = "ftp://nope"
	if err := cfg.Validate(); err != ErrInvalidBaseURL {
		t.Errorf("expected ErrInvalidBaseURL, got %v", err)
	}
}
