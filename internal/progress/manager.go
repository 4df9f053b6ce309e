// Package progress owns the per-job progress channels: one live WebSocket
// per in-flight URL, a registry of Job state fed by inbound frames, and the
// teardown rules for terminal statuses and transport failures.
package progress

import (
	"context"
	"sort"
	"sync"

	"github.com/romdeck/romdeck/internal/events"
	"github.com/romdeck/romdeck/internal/logging"
	"github.com/romdeck/romdeck/internal/models"
)

// ChannelDialer opens the transport stream for one job's progress channel.
type ChannelDialer interface {
	Dial(ctx context.Context, jobURL string) (ChannelConn, error)
}

// ChannelConn is one live progress stream. Next blocks until a frame arrives
// and returns an error when the stream closes, gracefully or not.
type ChannelConn interface {
	Next() (models.ProgressUpdate, error)
	Close() error
}

// CompletedRecorder receives URLs whose jobs finished successfully. The
// catalog cache implements it; the manager calls it atomically with job
// removal so a URL is never both in-flight and completed.
type CompletedRecorder interface {
	MarkCompleted(url string)
}

// channel pairs a live connection with its job record. Lifecycle is owned
// exclusively by the Manager; no other component holds the conn.
type channel struct {
	conn ChannelConn
	job  models.Job
}

// Manager multiplexes per-job progress channels. At most one channel exists
// per URL; Open is idempotent. Every channel has exactly one reader
// goroutine, so frames for one URL apply in arrival order while different
// URLs interleave freely.
type Manager struct {
	mu       sync.Mutex
	channels map[string]*channel

	dialer   ChannelDialer
	recorder CompletedRecorder
	bus      *events.EventBus
	logger   *logging.Logger
}

// NewManager creates a channel manager. recorder and bus may not be nil.
func NewManager(dialer ChannelDialer, recorder CompletedRecorder, bus *events.EventBus, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Manager{
		channels: make(map[string]*channel),
		dialer:   dialer,
		recorder: recorder,
		bus:      bus,
		logger:   logger,
	}
}

// Open establishes a progress channel for url and registers a Job
// {name, percent 0, downloading}. If a channel for url already exists the
// call is a no-op. On dial failure nothing is registered.
func (m *Manager) Open(ctx context.Context, url, name string) error {
	m.mu.Lock()
	if _, exists := m.channels[url]; exists {
		m.mu.Unlock()
		return nil
	}
	ch := &channel{
		job: models.Job{
			URL:    url,
			Name:   name,
			Status: models.StatusDownloading,
		},
	}
	m.channels[url] = ch
	m.mu.Unlock()

	conn, err := m.dialer.Dial(ctx, url)
	if err != nil {
		m.mu.Lock()
		if m.channels[url] == ch {
			delete(m.channels, url)
		}
		m.mu.Unlock()
		return err
	}

	m.mu.Lock()
	if m.channels[url] != ch {
		// Closed (or replaced) while dialing; the registration no longer
		// stands, so the fresh connection is discarded.
		m.mu.Unlock()
		conn.Close()
		return nil
	}
	ch.conn = conn
	job := ch.job
	m.mu.Unlock()

	m.bus.PublishJob(events.EventJobStarted, job, false)
	go m.readLoop(url, ch)
	return nil
}

// readLoop applies inbound frames to the job record until a terminal status
// arrives or the transport closes.
func (m *Manager) readLoop(url string, ch *channel) {
	for {
		update, err := ch.conn.Next()
		if err != nil {
			// Transport close without a terminal frame. The job entry must
			// never outlive its channel.
			job, removed := m.removeChannel(url, ch)
			if removed {
				m.logger.Warn().Str("url", url).Err(err).Msg("progress channel closed unexpectedly")
				m.bus.PublishJob(events.EventJobDone, job, false)
			}
			return
		}

		status := update.NormalizedStatus()

		m.mu.Lock()
		current, tracked := m.channels[url]
		if !tracked || current != ch {
			// Late frame on a channel the manager no longer tracks (e.g. a
			// completed racing a cancel). Must not resurrect a job entry.
			m.mu.Unlock()
			return
		}

		// Last write wins; no reordering is assumed from the transport.
		ch.job.Status = status
		ch.job.Percent = clampPercent(update.Percent)
		ch.job.Speed = update.Speed
		if update.GameName != "" {
			ch.job.Name = update.GameName
		}
		job := ch.job

		if status.IsTerminal() {
			delete(m.channels, url)
			completed := status == models.StatusCompleted
			if completed && m.recorder != nil {
				// Inside the lock: the URL leaves the job table and joins the
				// completed-set in one step, never visible as both or neither.
				m.recorder.MarkCompleted(url)
			}
			m.mu.Unlock()

			ch.conn.Close()
			m.bus.PublishJob(events.EventJobDone, job, completed)
			return
		}
		m.mu.Unlock()

		m.bus.PublishJob(events.EventJobUpdate, job, false)
	}
}

// Close tears down the channel for url locally, if one exists. Used by the
// cancel path so the UI stops showing progress regardless of when (or
// whether) the server acknowledges. The removed job is reported as canceled;
// it never joins the completed-set.
func (m *Manager) Close(url string) {
	m.mu.Lock()
	ch, exists := m.channels[url]
	if !exists {
		m.mu.Unlock()
		return
	}
	delete(m.channels, url)
	ch.job.Status = models.StatusCanceled
	job := ch.job
	conn := ch.conn
	m.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	m.bus.PublishJob(events.EventJobDone, job, false)
}

// CloseAll tears down every live channel. Used on shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	channels := m.channels
	m.channels = make(map[string]*channel)
	m.mu.Unlock()

	for _, ch := range channels {
		if ch.conn != nil {
			ch.conn.Close()
		}
	}
}

// removeChannel deletes the entry for url if it still belongs to ch and
// returns the job as last observed.
func (m *Manager) removeChannel(url string, ch *channel) (models.Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, exists := m.channels[url]
	if !exists || current != ch {
		return models.Job{}, false
	}
	delete(m.channels, url)
	return ch.job, true
}

// Job returns the tracked job for url, if any.
func (m *Manager) Job(url string) (models.Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, exists := m.channels[url]
	if !exists {
		return models.Job{}, false
	}
	return ch.job, true
}

// Jobs returns a snapshot of all in-flight jobs, ordered by URL for stable
// rendering.
func (m *Manager) Jobs() []models.Job {
	m.mu.Lock()
	jobs := make([]models.Job, 0, len(m.channels))
	for _, ch := range m.channels {
		jobs = append(jobs, ch.job)
	}
	m.mu.Unlock()

	sort.Slice(jobs, func(i, j int) bool { return jobs[i].URL < jobs[j].URL })
	return jobs
}

// Len returns the number of in-flight jobs.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.channels)
}

func clampPercent(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
