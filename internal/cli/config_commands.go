// Package cli configuration commands.
package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/romdeck/romdeck/internal/config"
)

// newConfigCmd creates the 'config' command group.
func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage client configuration",
		Long:  `Show and update the local configuration file.`,
	}

	configCmd.AddCommand(newConfigShowCmd())
	configCmd.AddCommand(newConfigSetCmd())
	configCmd.AddCommand(newConfigPathCmd())

	return configCmd
}

// newConfigShowCmd creates the 'config show' command.
func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			fmt.Printf("base_url: %s\n", cfg.BaseURL)
			fmt.Printf("api_key:  %s\n", maskKey(cfg.APIKey))
			if cfg.ProxyURL != "" {
				fmt.Printf("proxy:    %s (ntlm: %t)\n", cfg.ProxyURL, cfg.ProxyNTLM)
			}
			fmt.Printf("notifications: enabled=%t complete=%t failed=%t\n",
				cfg.Notifications.Enabled,
				cfg.Notifications.ShowDownloadComplete,
				cfg.Notifications.ShowDownloadFailed)
			return nil
		},
	}
}

// newConfigSetCmd creates the 'config set' command.
func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long: `Set one configuration key and write the file.

Supported keys:
  base_url, api_key, proxy_url,
  notifications.enabled, notifications.show_download_complete,
  notifications.show_download_failed

Examples:
  romdeck config set base_url http://deck.local:8080
  romdeck config set api_key s3cret
  romdeck config set notifications.enabled false`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]

			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			switch key {
			case "base_url":
				cfg.BaseURL = value
			case "api_key":
				cfg.APIKey = value
			case "proxy_url":
				cfg.ProxyURL = value
			case "notifications.enabled":
				b, err := strconv.ParseBool(value)
				if err != nil {
					return fmt.Errorf("invalid boolean %q", value)
				}
				cfg.Notifications.Enabled = b
			case "notifications.show_download_complete":
				b, err := strconv.ParseBool(value)
				if err != nil {
					return fmt.Errorf("invalid boolean %q", value)
				}
				cfg.Notifications.ShowDownloadComplete = b
			case "notifications.show_download_failed":
				b, err := strconv.ParseBool(value)
				if err != nil {
					return fmt.Errorf("invalid boolean %q", value)
				}
				cfg.Notifications.ShowDownloadFailed = b
			default:
				return fmt.Errorf("unknown config key %q", key)
			}

			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := config.Save(cfg, cfgFile); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}
			fmt.Printf("Set %s\n", key)
			return nil
		},
	}
}

// newConfigPathCmd creates the 'config path' command.
func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfgFile != "" {
				fmt.Println(cfgFile)
				return nil
			}
			path, err := config.DefaultConfigPath()
			if err != nil {
				return err
			}
			fmt.Println(path)
			return nil
		},
	}
}

// maskKey hides all but the last 4 characters of a key.
func maskKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}
