// Package config provides configuration management for romdeck.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/ini.v1"
)

// Config holds the client configuration.
//
// Config file location:
//   - Windows: %USERPROFILE%\.config\romdeck\config
//   - Unix: ~/.config/romdeck/config
//
// INI format:
//
//	[server]
//	base_url = http://localhost:8080
//	api_key = <optional-api-key>
//
//	[romdeck.notifications]
//	enabled = true
//	show_download_complete = true
//	show_download_failed = true
//
// Environment variables (ROMDECK_BASE_URL, ROMDECK_API_KEY, ...) override the
// file; command-line flags override both.
type Config struct {
	// Server connection settings
	BaseURL string `ini:"base_url" envconfig:"BASE_URL"`
	APIKey  string `ini:"api_key" envconfig:"API_KEY"`

	// ProxyURL optionally routes API traffic through an HTTP proxy.
	// Empty means use the standard HTTP(S)_PROXY environment handling.
	ProxyURL string `ini:"proxy_url" envconfig:"PROXY_URL"`

	// ProxyNTLM enables NTLM negotiation against the proxy
	// (ProxyUser/ProxyPassword must be set).
	ProxyNTLM     bool   `ini:"proxy_ntlm" envconfig:"PROXY_NTLM"`
	ProxyUser     string `ini:"proxy_user" envconfig:"PROXY_USER"`
	ProxyPassword string `ini:"proxy_password" envconfig:"PROXY_PASSWORD"`

	// Notification settings
	Notifications NotificationConfig
}

// NotificationConfig contains settings for desktop notifications.
type NotificationConfig struct {
	// Enabled indicates whether notifications are shown.
	// Default: true
	Enabled bool `ini:"enabled" envconfig:"NOTIFICATIONS_ENABLED"`

	// ShowDownloadComplete shows a notification when a download completes.
	// Default: true
	ShowDownloadComplete bool `ini:"show_download_complete" envconfig:"NOTIFY_DOWNLOAD_COMPLETE"`

	// ShowDownloadFailed shows a notification when a download fails.
	// Default: true
	ShowDownloadFailed bool `ini:"show_download_failed" envconfig:"NOTIFY_DOWNLOAD_FAILED"`
}

// Validation errors
var (
	ErrMissingBaseURL = errors.New("base_url is required")
	ErrInvalidBaseURL = errors.New("base_url must start with http:// or https://")
)

// DefaultConfigPath returns the default path for the config file.
func DefaultConfigPath() (string, error) {
	var configDir string

	if runtime.GOOS == "windows" {
		userProfile := os.Getenv("USERPROFILE")
		if userProfile == "" {
			return "", errors.New("USERPROFILE environment variable not set")
		}
		configDir = filepath.Join(userProfile, ".config", "romdeck")
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, ".config", "romdeck")
	}

	return filepath.Join(configDir, "config"), nil
}

// New creates a Config with default values.
func New() *Config {
	return &Config{
		BaseURL: "http://localhost:8080",
		Notifications: NotificationConfig{
			Enabled:              true,
			ShowDownloadComplete: true,
			ShowDownloadFailed:   true,
		},
	}
}

// Load reads configuration from an INI file and then applies ROMDECK_*
// environment variable overrides. If the file doesn't exist, file settings
// fall back to defaults and no error is returned.
func Load(path string) (*Config, error) {
	cfg := New()

	if path == "" {
		var err error
		path, err = DefaultConfigPath()
		if err != nil {
			path = "" // env overrides still apply below
		}
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			iniFile, err := ini.Load(path)
			if err != nil {
				return nil, fmt.Errorf("failed to load config: %w", err)
			}

			serverSection := iniFile.Section("server")
			cfg.BaseURL = serverSection.Key("base_url").MustString(cfg.BaseURL)
			cfg.APIKey = serverSection.Key("api_key").String()
			cfg.ProxyURL = serverSection.Key("proxy_url").String()
			cfg.ProxyNTLM = serverSection.Key("proxy_ntlm").MustBool(false)
			cfg.ProxyUser = serverSection.Key("proxy_user").String()
			cfg.ProxyPassword = serverSection.Key("proxy_password").String()

			notifySection := iniFile.Section("romdeck.notifications")
			cfg.Notifications.Enabled = notifySection.Key("enabled").MustBool(true)
			cfg.Notifications.ShowDownloadComplete = notifySection.Key("show_download_complete").MustBool(true)
			cfg.Notifications.ShowDownloadFailed = notifySection.Key("show_download_failed").MustBool(true)
		}
	}

	// Environment overrides (ROMDECK_BASE_URL, ROMDECK_API_KEY, ...)
	if err := envconfig.Process("romdeck", cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment overrides: %w", err)
	}
	if err := envconfig.Process("romdeck", &cfg.Notifications); err != nil {
		return nil, fmt.Errorf("failed to process environment overrides: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to an INI file, creating parent directories
// as needed. The API key is stored in the file, so permissions are 0600.
func Save(cfg *Config, path string) error {
	if path == "" {
		var err error
		path, err = DefaultConfigPath()
		if err != nil {
			return fmt.Errorf("failed to determine config path: %w", err)
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	iniFile := ini.Empty()

	serverSection, err := iniFile.NewSection("server")
	if err != nil {
		return fmt.Errorf("failed to create server section: %w", err)
	}
	serverSection.Key("base_url").SetValue(cfg.BaseURL)
	serverSection.Key("api_key").SetValue(cfg.APIKey)
	if cfg.ProxyURL != "" {
		serverSection.Key("proxy_url").SetValue(cfg.ProxyURL)
	}
	if cfg.ProxyNTLM {
		serverSection.Key("proxy_ntlm").SetValue("true")
		serverSection.Key("proxy_user").SetValue(cfg.ProxyUser)
		serverSection.Key("proxy_password").SetValue(cfg.ProxyPassword)
	}

	notifySection, err := iniFile.NewSection("romdeck.notifications")
	if err != nil {
		return fmt.Errorf("failed to create notifications section: %w", err)
	}
	notifySection.Key("enabled").SetValue(fmt.Sprintf("%t", cfg.Notifications.Enabled))
	notifySection.Key("show_download_complete").SetValue(fmt.Sprintf("%t", cfg.Notifications.ShowDownloadComplete))
	notifySection.Key("show_download_failed").SetValue(fmt.Sprintf("%t", cfg.Notifications.ShowDownloadFailed))

	// Temp file + rename so a crash mid-write never leaves a torn config.
	tmpPath := path + ".tmp"
	if err := iniFile.SaveTo(tmpPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := os.Chmod(tmpPath, 0600); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to set config permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace config: %w", err)
	}

	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return ErrMissingBaseURL
	}
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return ErrInvalidBaseURL
	}
	return nil
}
