// Package search coalesces rapid query input into a single delayed remote
// search call.
package search

import (
	"strings"
	"sync"
	"time"
)

// DefaultQuietPeriod is the delay between the last keystroke and the issued
// query.
const DefaultQuietPeriod = 300 * time.Millisecond

// Debouncer schedules at most one pending query at a time. Each new query
// cancels the previous schedule, so only the newest query ever fires. A
// blank query short-circuits: pending work is canceled and the clear
// callback runs immediately, with no remote call.
type Debouncer struct {
	mu    sync.Mutex
	timer *time.Timer
	gen   uint64
	quiet time.Duration
	run   func(query string)
	clear func()
}

// NewDebouncer creates a debouncer. quiet <= 0 selects DefaultQuietPeriod.
// run is invoked (on a timer goroutine) with the winning query; clear is
// invoked synchronously from Query for blank input.
func NewDebouncer(quiet time.Duration, run func(query string), clear func()) *Debouncer {
	if quiet <= 0 {
		quiet = DefaultQuietPeriod
	}
	return &Debouncer{
		quiet: quiet,
		run:   run,
		clear: clear,
	}
}

// Query registers a keystroke's worth of input.
func (d *Debouncer) Query(q string) {
	trimmed := strings.TrimSpace(q)

	d.mu.Lock()
	// Bumping the generation invalidates any timer that already fired but
	// has not yet run; Stop alone cannot win that race.
	d.gen++
	gen := d.gen
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}

	if trimmed == "" {
		d.mu.Unlock()
		if d.clear != nil {
			d.clear()
		}
		return
	}

	d.timer = time.AfterFunc(d.quiet, func() {
		d.mu.Lock()
		if gen != d.gen {
			d.mu.Unlock()
			return
		}
		d.timer = nil
		d.mu.Unlock()
		d.run(trimmed)
	})
	d.mu.Unlock()
}

// Cancel drops any pending query without firing it.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
