// Package cli server settings commands.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newSettingsCmd creates the 'settings' command group for server-side
// settings.
func newSettingsCmd() *cobra.Command {
	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "Manage server-side settings",
		Long:  `Commands for settings stored on the server, such as the 1fichier API key.`,
	}

	settingsCmd.AddCommand(newOnefichierCmd())

	return settingsCmd
}

// newOnefichierCmd creates the 'settings onefichier' command group.
func newOnefichierCmd() *cobra.Command {
	onefichierCmd := &cobra.Command{
		Use:   "onefichier",
		Short: "Manage the server's 1fichier API key",
	}

	onefichierCmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show whether a 1fichier key is configured",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := GetContext()

			apiClient, err := newAPIClient()
			if err != nil {
				return err
			}

			status, err := apiClient.OnefichierStatus(ctx)
			if err != nil {
				return fmt.Errorf("failed to get 1fichier status: %w", err)
			}

			if status.Present {
				fmt.Printf("1fichier key configured (%d characters)\n", status.Length)
			} else {
				fmt.Println("No 1fichier key configured")
			}
			return nil
		},
	})

	onefichierCmd.AddCommand(&cobra.Command{
		Use:   "set-key <key>",
		Short: "Store a 1fichier API key on the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := GetContext()

			apiClient, err := newAPIClient()
			if err != nil {
				return err
			}

			if err := apiClient.SetOnefichierKey(ctx, args[0]); err != nil {
				return fmt.Errorf("failed to set 1fichier key: %w", err)
			}
			fmt.Println("1fichier key updated")
			return nil
		},
	})

	return onefichierCmd
}
