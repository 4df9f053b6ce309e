// Package cli catalog commands: server status, platforms, games, search,
// and download history.
package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/romdeck/romdeck/internal/models"
)

// newStatusCmd creates the 'status' command.
func newStatusCmd() *cobra.Command {
	var outputJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show server readiness",
		Long: `Probe the server's status endpoint and report whether its game sources
and directories are available.

Examples:
  romdeck status
  romdeck status --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := GetContext()

			apiClient, err := newAPIClient()
			if err != nil {
				return err
			}

			status, err := apiClient.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get server status: %w", err)
			}

			if outputJSON {
				return printJSON(status)
			}

			fmt.Printf("Server: %s\n", apiClient.BaseURL())
			fmt.Printf("  sources:   %s\n", readyMark(status.Sources))
			fmt.Printf("  games dir: %s\n", readyMark(status.GamesDir))
			if status.RomsDir != "" {
				fmt.Printf("  roms dir:  %s\n", status.RomsDir)
			}
			if status.SavesDir != "" {
				fmt.Printf("  saves dir: %s\n", status.SavesDir)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&outputJSON, "json", false, "Output as JSON")
	return cmd
}

// newPlatformsCmd creates the 'platforms' command.
func newPlatformsCmd() *cobra.Command {
	var outputJSON bool

	cmd := &cobra.Command{
		Use:   "platforms",
		Short: "List catalog platforms",
		Long: `List the platforms (systems) available in the server's catalog.

Examples:
  romdeck platforms
  romdeck platforms --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := GetContext()

			apiClient, err := newAPIClient()
			if err != nil {
				return err
			}

			platforms, err := apiClient.ListPlatforms(ctx)
			if err != nil {
				return fmt.Errorf("failed to list platforms: %w", err)
			}

			if outputJSON {
				return printJSON(platforms)
			}

			if len(platforms) == 0 {
				fmt.Println("No platforms found")
				return nil
			}

			fmt.Printf("Found %d platform(s):\n\n", len(platforms))
			maxID := 0
			for _, p := range platforms {
				if len(p.ID) > maxID {
					maxID = len(p.ID)
				}
			}
			for _, p := range platforms {
				fmt.Printf("  %-*s  %s\n", maxID, p.ID, p.Name)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&outputJSON, "json", false, "Output as JSON")
	return cmd
}

// newGamesCmd creates the 'games' command.
func newGamesCmd() *cobra.Command {
	var (
		outputJSON    bool
		onlyCompleted bool
	)

	cmd := &cobra.Command{
		Use:   "games <platform-id>",
		Short: "List games for a platform",
		Long: `List the downloadable games for one platform. Games already present in
the completed download history are marked with a check.

Examples:
  romdeck games snes
  romdeck games snes --completed
  romdeck games snes --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := GetContext()
			platformID := args[0]

			apiClient, err := newAPIClient()
			if err != nil {
				return err
			}

			games, err := apiClient.ListGames(ctx, platformID)
			if err != nil {
				return fmt.Errorf("failed to list games for %s: %w", platformID, err)
			}

			// Completed membership comes from history, not the game list.
			history, err := apiClient.History(ctx, models.StatusCompleted, 0)
			if err != nil {
				GetLogger().Warn().Err(err).Msg("Could not load history; completion marks unavailable")
			}
			completed := make(map[string]bool, len(history))
			for _, e := range history {
				completed[e.URL] = true
			}
			for i := range games {
				games[i].Completed = completed[games[i].URL]
			}

			if onlyCompleted {
				filtered := games[:0]
				for _, g := range games {
					if g.Completed {
						filtered = append(filtered, g)
					}
				}
				games = filtered
			}

			if outputJSON {
				return printJSON(games)
			}

			if len(games) == 0 {
				fmt.Println("No games found")
				return nil
			}

			fmt.Printf("Found %d game(s) for %s:\n\n", len(games), platformID)
			printGames(games)
			return nil
		},
	}

	cmd.Flags().BoolVar(&outputJSON, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&onlyCompleted, "completed", false, "Show only games with a completed download")
	return cmd
}

// newSearchCmd creates the 'search' command.
func newSearchCmd() *cobra.Command {
	var (
		outputJSON bool
		platformID string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the catalog",
		Long: `Search game names across the catalog, optionally scoped to one platform.

Examples:
  romdeck search "mario"
  romdeck search "mario" --platform snes
  romdeck search zelda --limit 10 --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := GetContext()
			query := strings.Join(args, " ")

			apiClient, err := newAPIClient()
			if err != nil {
				return err
			}

			results, err := apiClient.Search(ctx, query, platformID, limit)
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}

			if outputJSON {
				return printJSON(results)
			}

			if len(results) == 0 {
				fmt.Printf("No results for %q\n", query)
				return nil
			}

			fmt.Printf("Found %d result(s) for %q:\n\n", len(results), query)
			printGames(results)
			return nil
		},
	}

	cmd.Flags().BoolVar(&outputJSON, "json", false, "Output as JSON")
	cmd.Flags().StringVarP(&platformID, "platform", "p", "", "Restrict search to one platform")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of results")
	return cmd
}

// newHistoryCmd creates the 'history' command.
func newHistoryCmd() *cobra.Command {
	var (
		outputJSON bool
		status     string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show download history",
		Long: `Show the server's download history, newest entries first. Statuses are
normalized to: completed, error, downloading, extracting, canceled, unknown.

Examples:
  romdeck history
  romdeck history --status completed
  romdeck history --status error --limit 20 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := GetContext()

			apiClient, err := newAPIClient()
			if err != nil {
				return err
			}

			entries, err := apiClient.History(ctx, models.Status(status), limit)
			if err != nil {
				return fmt.Errorf("failed to load history: %w", err)
			}

			if outputJSON {
				return printJSON(entries)
			}

			if len(entries) == 0 {
				fmt.Println("No history entries")
				return nil
			}

			fmt.Printf("%d history entr%s:\n\n", len(entries), pluralY(len(entries)))
			for _, e := range entries {
				ts := e.Timestamp
				if ts == "" {
					ts = "-"
				}
				fmt.Printf("  %-11s  %-10s  %s\n", e.NormalizedStatus(), e.Platform, e.GameName)
				fmt.Printf("               %s  %s\n", ts, e.URL)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&outputJSON, "json", false, "Output as JSON")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (completed, error, downloading, extracting, canceled)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of entries (0 = all)")
	return cmd
}

func printGames(games []models.Game) {
	for _, g := range games {
		mark := " "
		if g.Completed {
			mark = "✓"
		}
		size := ""
		if g.Size != "" {
			size = "  (" + g.Size + ")"
		}
		platform := ""
		if g.Platform != "" {
			platform = "  [" + g.Platform + "]"
		}
		fmt.Printf("  %s %s%s%s\n", mark, g.Name, platform, size)
		fmt.Printf("    %s\n", g.URL)
	}
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func readyMark(ok bool) string {
	if ok {
		return "ready"
	}
	return "unavailable"
}

func pluralY(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}
