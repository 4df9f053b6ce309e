// Package cli download commands: start, batch, cancel, redownload.
package cli

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/romdeck/romdeck/internal/download"
	"github.com/romdeck/romdeck/internal/events"
	"github.com/romdeck/romdeck/internal/progressui"
)

// newDownloadCmd creates the 'download' command.
func newDownloadCmd() *cobra.Command {
	var (
		platformID string
		gameName   string
		watch      bool
	)

	cmd := &cobra.Command{
		Use:   "download <url>",
		Short: "Start a download job",
		Long: `Start a download job for one game URL and follow its progress channel.

The server runs the job; this command opens the job's progress channel and
renders it until the job reaches a terminal state. With --watch=false the
command returns as soon as the server accepts the job.

Examples:
  romdeck download --platform snes "http://host/roms/Game%20(USA).zip"
  romdeck download --platform snes --name "My Game" http://host/roms/game.zip
  romdeck download --platform snes --watch=false http://host/roms/game.zip`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := GetContext()
			jobURL := args[0]

			name := gameName
			if name == "" {
				name = gameNameFromURL(jobURL)
			}

			svc, err := newServices()
			if err != nil {
				return err
			}
			defer svc.shutdown()

			// Subscribe before starting so the terminal event cannot be missed.
			sub := svc.bus.SubscribeAll()

			if err := svc.orch.Start(ctx, platformID, name, jobURL); err != nil {
				return fmt.Errorf("failed to start download: %w", err)
			}
			fmt.Printf("Download started: %s\n", name)

			if !watch {
				return nil
			}
			return watchSingle(ctx, sub, jobURL, name)
		},
	}

	cmd.Flags().StringVarP(&platformID, "platform", "p", "", "Platform id the game belongs to")
	cmd.Flags().StringVar(&gameName, "name", "", "Game name (default: derived from URL)")
	cmd.Flags().BoolVar(&watch, "watch", true, "Follow progress until the job finishes")
	cmd.MarkFlagRequired("platform")
	return cmd
}

// newBatchCmd creates the 'batch' command.
func newBatchCmd() *cobra.Command {
	var (
		platformID string
		watch      bool
	)

	cmd := &cobra.Command{
		Use:   "batch <url>...",
		Short: "Start multiple download jobs",
		Long: `Submit several game URLs as one batch. Each item is accepted or rejected
independently; rejected items are reported without affecting the rest.

Examples:
  romdeck batch --platform snes http://host/a.zip http://host/b.zip
  romdeck batch --platform gba --watch=false http://host/c.zip`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := GetContext()

			svc, err := newServices()
			if err != nil {
				return err
			}
			defer svc.shutdown()

			batchID := uuid.NewString()
			log := GetLogger().With().Str("batch_id", batchID).Logger()

			items := make([]download.BatchItem, 0, len(args))
			names := make(map[string]string, len(args))
			for _, jobURL := range args {
				name := gameNameFromURL(jobURL)
				names[jobURL] = name
				items = append(items, download.BatchItem{
					Platform: platformID,
					GameName: name,
					URL:      jobURL,
				})
			}

			sub := svc.bus.SubscribeAll()

			log.Info().Int("items", len(items)).Msg("Submitting batch")
			result, err := svc.orch.StartBatch(ctx, items)
			if err != nil {
				return fmt.Errorf("batch submission failed: %w", err)
			}

			fmt.Printf("Batch %s: %d started, %d rejected\n", batchID, len(result.Started), len(result.Failures))
			for _, f := range result.Failures {
				fmt.Fprintf(os.Stderr, "  rejected: %s: %v\n", f.Item.URL, f.Err)
			}

			if !watch || len(result.Started) == 0 {
				if len(result.Failures) > 0 {
					return fmt.Errorf("%d item(s) rejected", len(result.Failures))
				}
				return nil
			}

			succeeded, err := progressui.WatchEvents(ctx, sub, result.Started, names)
			if err != nil {
				return err
			}
			fmt.Printf("Finished: %d/%d completed\n", succeeded, len(result.Started))
			if succeeded < len(result.Started) || len(result.Failures) > 0 {
				return fmt.Errorf("some downloads did not complete")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&platformID, "platform", "p", "", "Platform id the games belong to")
	cmd.Flags().BoolVar(&watch, "watch", true, "Follow progress until all jobs finish")
	cmd.MarkFlagRequired("platform")
	return cmd
}

// newCancelCmd creates the 'cancel' command.
func newCancelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cancel <url>",
		Short: "Cancel a running download",
		Long: `Ask the server to cancel the download job for a URL.

Examples:
  romdeck cancel http://host/roms/game.zip`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := GetContext()

			svc, err := newServices()
			if err != nil {
				return err
			}
			defer svc.shutdown()

			if err := svc.orch.Cancel(ctx, args[0]); err != nil {
				return fmt.Errorf("cancel failed: %w", err)
			}
			fmt.Println("Cancel requested")
			return nil
		},
	}
	return cmd
}

// newRedownloadCmd creates the 'redownload' command.
func newRedownloadCmd() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "redownload <url>",
		Short: "Redo a download from history",
		Long: `Re-trigger the download job for a URL already present in history.

Examples:
  romdeck redownload http://host/roms/game.zip`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := GetContext()
			jobURL := args[0]

			svc, err := newServices()
			if err != nil {
				return err
			}
			defer svc.shutdown()

			sub := svc.bus.SubscribeAll()

			if err := svc.orch.Redownload(ctx, jobURL); err != nil {
				return fmt.Errorf("redownload failed: %w", err)
			}

			name := gameNameFromURL(jobURL)
			if job, ok := svc.jobs.Job(jobURL); ok && job.Name != "" {
				name = job.Name
			}
			fmt.Printf("Redownload started: %s\n", name)

			if !watch {
				return nil
			}
			return watchSingle(ctx, sub, jobURL, name)
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", true, "Follow progress until the job finishes")
	return cmd
}

// watchSingle renders one job's progress with a simple percent bar and
// returns an error if the job did not complete.
func watchSingle(ctx context.Context, sub <-chan events.Event, jobURL, name string) error {
	bar := progressbar.NewOptions(100,
		progressbar.OptionSetDescription(name),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetWidth(40),
		progressbar.OptionClearOnFinish(),
	)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-sub:
			if !ok {
				return fmt.Errorf("progress channel closed before job finished")
			}
			job, isJob := ev.(*events.JobEvent)
			if !isJob || job.URL != jobURL {
				continue
			}
			switch ev.Type() {
			case events.EventJobUpdate:
				_ = bar.Set(job.Percent)
			case events.EventJobDone:
				_ = bar.Finish()
				if job.Completed {
					fmt.Printf("Completed: %s\n", name)
					return nil
				}
				return fmt.Errorf("download ended with status %s", job.Status)
			}
		}
	}
}

// gameNameFromURL derives a display name from the last path segment.
func gameNameFromURL(jobURL string) string {
	parsed, err := url.Parse(jobURL)
	if err != nil {
		return jobURL
	}
	base := path.Base(parsed.Path)
	if decoded, err := url.PathUnescape(base); err == nil {
		base = decoded
	}
	if base == "" || base == "." || base == "/" {
		return jobURL
	}
	return base
}
