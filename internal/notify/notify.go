// Package notify provides cross-platform desktop notifications for finished
// downloads. It uses github.com/gen2brain/beeep for cross-platform support.
package notify

import (
	"fmt"
	"sync"

	"github.com/gen2brain/beeep"

	"github.com/romdeck/romdeck/internal/config"
	"github.com/romdeck/romdeck/internal/events"
	"github.com/romdeck/romdeck/internal/logging"
)

const appTitle = "RomDeck"

// sendFunc allows tests to capture notifications instead of hitting the OS.
type sendFunc func(title, message string) error

// Notifier sends desktop notifications for download outcomes.
type Notifier struct {
	logger *logging.Logger
	send   sendFunc

	mu           sync.RWMutex
	enabled      bool
	showComplete bool
	showFailed   bool
}

// NewNotifier creates a notifier from notification settings.
func NewNotifier(cfg config.NotificationConfig, logger *logging.Logger) *Notifier {
	return &Notifier{
		logger:       logger,
		send:         systemNotify,
		enabled:      cfg.Enabled,
		showComplete: cfg.ShowDownloadComplete,
		showFailed:   cfg.ShowDownloadFailed,
	}
}

func systemNotify(title, message string) error {
	// beeep.Notify is cross-platform:
	// - Windows: toast notifications
	// - macOS: NSUserNotificationCenter
	// - Linux: D-Bus notifications
	return beeep.Notify(title, message, "")
}

// SetEnabled enables or disables all notifications.
func (n *Notifier) SetEnabled(enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled = enabled
}

// IsEnabled returns whether notifications are enabled.
func (n *Notifier) IsEnabled() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.enabled
}

// DownloadComplete sends a notification for a successfully finished download.
func (n *Notifier) DownloadComplete(gameName string) {
	n.mu.RLock()
	show := n.enabled && n.showComplete
	n.mu.RUnlock()
	if !show {
		return
	}

	message := fmt.Sprintf("\"%s\" finished downloading.", truncate(gameName, 60))
	if err := n.send("Download Complete", message); err != nil {
		n.logger.Warn().Err(err).Str("game", gameName).Msg("Failed to send download complete notification")
	}
}

// DownloadFailed sends a notification for a failed or canceled download.
func (n *Notifier) DownloadFailed(gameName, reason string) {
	n.mu.RLock()
	show := n.enabled && n.showFailed
	n.mu.RUnlock()
	if !show {
		return
	}

	message := fmt.Sprintf("\"%s\" did not finish:\n%s", truncate(gameName, 60), truncate(reason, 100))
	if err := n.send("Download Failed", message); err != nil {
		n.logger.Warn().Err(err).Str("game", gameName).Msg("Failed to send download failed notification")
	}
}

// Watch consumes job completion events from the bus and notifies on each one.
// It returns when the subscription channel closes. Run it in its own
// goroutine.
func (n *Notifier) Watch(sub <-chan events.Event) {
	for ev := range sub {
		job, ok := ev.(*events.JobEvent)
		if !ok || ev.Type() != events.EventJobDone {
			continue
		}
		name := job.Name
		if name == "" {
			name = job.URL
		}
		if job.Completed {
			n.DownloadComplete(name)
		} else {
			n.DownloadFailed(name, string(job.Status))
		}
	}
}

// Alert sends a prominent notification for critical issues.
func (n *Notifier) Alert(message string) {
	if !n.IsEnabled() {
		return
	}

	if err := beeep.Alert(appTitle, message, ""); err != nil {
		if err := n.send(appTitle, message); err != nil {
			n.logger.Error().Err(err).Str("message", message).Msg("Failed to send alert notification")
		}
	}
}

// truncate shortens a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
