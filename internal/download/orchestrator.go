// Package download coordinates download jobs against the server: starting
// single jobs and batches, cancelling, and redownloading from history. The
// orchestrator owns the mapping from job URL to server task id and delegates
// channel lifecycle to the progress manager.
package download

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/romdeck/romdeck/internal/api"
	"github.com/romdeck/romdeck/internal/logging"
	"github.com/romdeck/romdeck/internal/models"
)

// ErrURLMismatch is returned when a redownload response resolves to a
// different URL than requested. The channel key is the URL, so trusting
// either side silently would desynchronize the job table.
var ErrURLMismatch = errors.New("redownload response url does not match requested url")

// APIClient is the server surface the orchestrator depends on. *api.Client
// satisfies it; tests substitute a double.
type APIClient interface {
	StartDownload(ctx context.Context, req api.DownloadRequest) (*api.DownloadOutcome, error)
	StartBatch(ctx context.Context, reqs []api.DownloadRequest) ([]api.DownloadOutcome, error)
	Cancel(ctx context.Context, taskID, jobURL string) error
	Redownload(ctx context.Context, jobURL string) (*api.DownloadOutcome, error)
}

// ChannelOpener is the progress-channel surface the orchestrator depends on.
// *progress.Manager satisfies it.
type ChannelOpener interface {
	Open(ctx context.Context, url, name string) error
	Close(url string)
}

// BatchItem is one download intent in a batch submission.
type BatchItem struct {
	Platform string
	GameName string
	URL      string
}

// BatchFailure pairs a rejected item with its reason.
type BatchFailure struct {
	Item BatchItem
	Err  error
}

// BatchResult reports a batch submission's independent per-item outcomes.
type BatchResult struct {
	Started  []string // URLs whose jobs were accepted and have open channels
	Failures []BatchFailure
}

// Orchestrator is the public coordinator for download actions.
type Orchestrator struct {
	api      APIClient
	channels ChannelOpener
	logger   *logging.Logger

	mu      sync.Mutex
	taskIDs map[string]string // job URL -> server task id
}

// NewOrchestrator creates an orchestrator wired to the given API client and
// channel manager.
func NewOrchestrator(apiClient APIClient, channels ChannelOpener, logger *logging.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Orchestrator{
		api:      apiClient,
		channels: channels,
		logger:   logger,
		taskIDs:  make(map[string]string),
	}
}

// Start begins one download job. On server rejection no local state is
// touched; on acceptance a progress channel is opened for the URL.
func (o *Orchestrator) Start(ctx context.Context, platformID, gameName, jobURL string) error {
	req := api.DownloadRequest{
		Platform:  platformID,
		GameName:  gameName,
		URL:       jobURL,
		IsArchive: models.IsArchiveURL(jobURL),
	}

	outcome, err := o.api.StartDownload(ctx, req)
	if err != nil {
		return fmt.Errorf("start %s: %w", gameName, err)
	}
	if !outcome.Accepted() {
		return fmt.Errorf("start %s: server rejected download: %s", gameName, outcome.Error)
	}

	o.rememberTask(jobURL, outcome.TaskID)

	if err := o.channels.Open(ctx, jobURL, gameName); err != nil {
		// The job is running server-side; only the live view is degraded.
		o.logger.Warn().Str("url", jobURL).Err(err).Msg("job started but progress channel failed")
		return fmt.Errorf("job started but progress channel failed: %w", err)
	}

	o.logger.Info().Str("game", gameName).Str("platform", platformID).Msg("download started")
	return nil
}

// StartBatch submits all items as one request. Outcomes are independent:
// accepted items get progress channels, rejections are reported per item,
// and successes are never rolled back because of failures.
func (o *Orchestrator) StartBatch(ctx context.Context, items []BatchItem) (BatchResult, error) {
	var result BatchResult
	if len(items) == 0 {
		return result, nil
	}

	reqs := make([]api.DownloadRequest, len(items))
	for i, item := range items {
		reqs[i] = api.DownloadRequest{
			Platform:  item.Platform,
			GameName:  item.GameName,
			URL:       item.URL,
			IsArchive: models.IsArchiveURL(item.URL),
		}
	}

	outcomes, err := o.api.StartBatch(ctx, reqs)
	if err != nil {
		return result, fmt.Errorf("batch submit: %w", err)
	}

	for i, item := range items {
		if i >= len(outcomes) {
			result.Failures = append(result.Failures, BatchFailure{
				Item: item,
				Err:  fmt.Errorf("no outcome returned for %s", item.URL),
			})
			continue
		}
		outcome := outcomes[i]
		if !outcome.Accepted() {
			result.Failures = append(result.Failures, BatchFailure{
				Item: item,
				Err:  fmt.Errorf("server rejected download: %s", outcome.Error),
			})
			continue
		}

		o.rememberTask(item.URL, outcome.TaskID)
		if err := o.channels.Open(ctx, item.URL, item.GameName); err != nil {
			result.Failures = append(result.Failures, BatchFailure{Item: item, Err: err})
			continue
		}
		result.Started = append(result.Started, item.URL)
	}

	o.logger.Info().
		Int("started", len(result.Started)).
		Int("failed", len(result.Failures)).
		Msg("batch submitted")
	return result, nil
}

// Cancel requests cancellation of the job for jobURL. The local channel is
// closed first so the UI stops showing progress even if the acknowledgment
// is delayed or lost; the server's terminal status remains authoritative for
// history.
func (o *Orchestrator) Cancel(ctx context.Context, jobURL string) error {
	o.channels.Close(jobURL)

	o.mu.Lock()
	taskID := o.taskIDs[jobURL]
	delete(o.taskIDs, jobURL)
	o.mu.Unlock()

	if err := o.api.Cancel(ctx, taskID, jobURL); err != nil {
		return fmt.Errorf("cancel %s: %w", jobURL, err)
	}
	o.logger.Info().Str("url", jobURL).Msg("cancellation requested")
	return nil
}

// Redownload re-triggers a job for a URL already present in history. The
// URL echoed in the response must equal the requested one; a mismatch is an
// error and opens no channel.
func (o *Orchestrator) Redownload(ctx context.Context, jobURL string) error {
	outcome, err := o.api.Redownload(ctx, jobURL)
	if err != nil {
		return fmt.Errorf("redownload %s: %w", jobURL, err)
	}
	if !outcome.Accepted() {
		return fmt.Errorf("redownload %s: server rejected download: %s", jobURL, outcome.Error)
	}
	if outcome.History.URL != jobURL {
		return fmt.Errorf("redownload %s: %w (got %s)", jobURL, ErrURLMismatch, outcome.History.URL)
	}

	o.rememberTask(jobURL, outcome.TaskID)

	if err := o.channels.Open(ctx, jobURL, outcome.History.GameName); err != nil {
		return fmt.Errorf("job started but progress channel failed: %w", err)
	}
	o.logger.Info().Str("url", jobURL).Msg("redownload started")
	return nil
}

// TaskID returns the server-assigned task id for a job URL, if known.
func (o *Orchestrator) TaskID(jobURL string) (string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	id, ok := o.taskIDs[jobURL]
	return id, ok
}

func (o *Orchestrator) rememberTask(jobURL, taskID string) {
	if taskID == "" {
		return
	}
	o.mu.Lock()
	o.taskIDs[jobURL] = taskID
	o.mu.Unlock()
}
