// Package cli interactive browser command.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/romdeck/romdeck/internal/tui"
)

// newBrowseCmd creates the 'browse' command.
func newBrowseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Open the interactive catalog browser",
		Long: `Open the full-screen terminal browser: platform catalog, per-platform
game lists with batch marking, search as you type, and download history
with live progress.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newServices()
			if err != nil {
				return err
			}
			defer svc.shutdown()

			return tui.Run(tui.RunDeps{
				API:          tui.NewAPIFacade(svc.api),
				Orchestrator: svc.orch,
				Jobs:         svc.jobs,
				Cache:        svc.cache,
				Bus:          svc.bus,
			})
		},
	}
}
