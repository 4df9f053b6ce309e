// Package progressui renders live job progress for watch mode using mpb
// multi-bars, falling back to plain text when stdout is not a terminal.
package progressui

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/term"

	"github.com/romdeck/romdeck/internal/events"
	"github.com/romdeck/romdeck/internal/models"
)

// WatchUI manages one progress bar per watched job.
type WatchUI struct {
	progress   *mpb.Progress
	mu         sync.Mutex
	bars       map[string]*jobBar
	isTerminal bool
}

// jobBar is a single job's progress bar. Jobs report percent, not bytes, so
// bars run 0..100 with the server-reported speed shown as a decorator.
type jobBar struct {
	bar   *mpb.Bar
	name  string
	speed atomic.Int64 // bytes/sec
}

// NewWatchUI creates a watch UI writing to stderr, keeping stdout clean for
// command output.
func NewWatchUI() *WatchUI {
	isTerminal := term.IsTerminal(int(os.Stderr.Fd()))

	var p *mpb.Progress
	if isTerminal {
		p = mpb.New(
			mpb.WithOutput(os.Stderr),
			mpb.WithRefreshRate(300*time.Millisecond),
			mpb.WithWidth(80),
		)
	} else {
		p = mpb.New(mpb.WithOutput(io.Discard))
	}

	return &WatchUI{
		progress:   p,
		bars:       make(map[string]*jobBar),
		isTerminal: isTerminal,
	}
}

// AddJob registers a bar for one job.
func (u *WatchUI) AddJob(url, name string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if _, exists := u.bars[url]; exists {
		return
	}

	jb := &jobBar{name: name}
	if u.isTerminal {
		jb.bar = u.progress.New(100,
			mpb.BarStyle().Lbound("[").Filler("█").Tip("█").Padding("░").Rbound("]"),
			mpb.PrependDecorators(
				decor.Name(name, decor.WCSyncSpaceR),
			),
			mpb.AppendDecorators(
				decor.Percentage(decor.WCSyncSpace),
				decor.Name("  "),
				decor.Any(func(s decor.Statistics) string {
					return formatSpeed(jb.speed.Load())
				}, decor.WCSyncSpace),
			),
			mpb.BarRemoveOnComplete(),
		)
	} else {
		fmt.Fprintf(os.Stderr, "Watching: %s\n", name)
	}
	u.bars[url] = jb
}

// Update applies a progress frame to the job's bar.
func (u *WatchUI) Update(url string, percent int, status models.Status, speed float64) {
	u.mu.Lock()
	jb, ok := u.bars[url]
	u.mu.Unlock()
	if !ok || jb.bar == nil {
		return
	}
	jb.speed.Store(int64(speed))
	jb.bar.SetCurrent(int64(percent))
}

// Finish marks a job's bar as done and prints a one-line summary above the
// remaining bars.
func (u *WatchUI) Finish(url string, status models.Status, completed bool) {
	u.mu.Lock()
	jb, ok := u.bars[url]
	delete(u.bars, url)
	u.mu.Unlock()
	if !ok {
		return
	}

	if jb.bar != nil {
		if completed {
			jb.bar.SetCurrent(100)
			jb.bar.SetTotal(100, true)
		} else {
			jb.bar.Abort(true)
		}
	}

	var msg string
	if completed {
		msg = fmt.Sprintf("✓ %s\n", jb.name)
	} else {
		msg = fmt.Sprintf("✗ %s (%s)\n", jb.name, status)
	}
	if u.isTerminal {
		u.progress.Write([]byte(msg))
	} else {
		fmt.Fprint(os.Stderr, msg)
	}
}

// Wait blocks until all bars have rendered their final state.
func (u *WatchUI) Wait() {
	u.progress.Wait()
}

// Writer returns a writer that prints safely above active bars.
func (u *WatchUI) Writer() io.Writer {
	if u.isTerminal {
		return u.progress
	}
	return os.Stderr
}

// Watch drives a WatchUI from bus events until every URL in urls reaches a
// terminal state or ctx is cancelled. Returns the number of jobs that
// finished successfully.
func Watch(ctx context.Context, bus *events.EventBus, urls []string, names map[string]string) (int, error) {
	return WatchEvents(ctx, bus.SubscribeAll(), urls, names)
}

// WatchEvents is Watch over an already-established subscription. Subscribing
// before the downloads start guarantees no terminal event is missed.
func WatchEvents(ctx context.Context, sub <-chan events.Event, urls []string, names map[string]string) (int, error) {
	if len(urls) == 0 {
		return 0, nil
	}

	ui := NewWatchUI()
	pending := make(map[string]bool, len(urls))
	for _, u := range urls {
		pending[u] = true
		name := names[u]
		if name == "" {
			name = u
		}
		ui.AddJob(u, name)
	}

	succeeded := 0
	for len(pending) > 0 {
		select {
		case <-ctx.Done():
			ui.Wait()
			return succeeded, ctx.Err()
		case ev, ok := <-sub:
			if !ok {
				ui.Wait()
				return succeeded, nil
			}
			job, isJob := ev.(*events.JobEvent)
			if !isJob || !pending[job.URL] {
				continue
			}
			switch ev.Type() {
			case events.EventJobUpdate:
				ui.Update(job.URL, job.Percent, job.Status, job.Speed)
			case events.EventJobDone:
				ui.Finish(job.URL, job.Status, job.Completed)
				delete(pending, job.URL)
				if job.Completed {
					succeeded++
				}
			}
		}
	}

	ui.Wait()
	return succeeded, nil
}

func formatSpeed(bytesPerSec int64) string {
	switch {
	case bytesPerSec <= 0:
		return ""
	case bytesPerSec < 1024:
		return fmt.Sprintf("%d B/s", bytesPerSec)
	case bytesPerSec < 1024*1024:
		return fmt.Sprintf("%.1f KiB/s", float64(bytesPerSec)/1024)
	default:
		return fmt.Sprintf("%.1f MiB/s", float64(bytesPerSec)/(1024*1024))
	}
}
