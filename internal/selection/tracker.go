// Package selection tracks the games a user has marked for batch download.
package selection

import (
	"sync"

	"github.com/romdeck/romdeck/internal/models"
)

// Item is one marked game, carrying everything a batch submission needs.
type Item struct {
	Platform  string
	GameName  string
	URL       string
	IsArchive bool
}

// Tracker maintains the set of marked games. Marks survive navigation
// between views; the set clears when the platform that produced the listing
// changes or after a batch is submitted.
type Tracker struct {
	mu       sync.RWMutex
	platform string
	items    map[string]Item // keyed by URL
	order    []string        // URLs in marking order
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{items: make(map[string]Item)}
}

// SetPlatform records which platform the current listing belongs to.
// Switching platforms discards marks made against the previous listing.
func (t *Tracker) SetPlatform(platformID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.platform != platformID {
		t.platform = platformID
		t.items = make(map[string]Item)
		t.order = nil
	}
}

// Toggle flips the mark for a game and reports the new state.
func (t *Tracker) Toggle(platformID string, game models.Game) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, marked := t.items[game.URL]; marked {
		delete(t.items, game.URL)
		for i, u := range t.order {
			if u == game.URL {
				t.order = append(t.order[:i], t.order[i+1:]...)
				break
			}
		}
		return false
	}

	t.items[game.URL] = Item{
		Platform:  platformID,
		GameName:  game.Name,
		URL:       game.URL,
		IsArchive: models.IsArchiveURL(game.URL),
	}
	t.order = append(t.order, game.URL)
	return true
}

// Marked reports whether a URL is currently marked.
func (t *Tracker) Marked(url string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.items[url]
	return ok
}

// Count returns the number of marked games. Drives visibility of the
// batch-action affordance.
func (t *Tracker) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.items)
}

// Collect returns the marked items in marking order, for use as a batch
// request payload.
func (t *Tracker) Collect() []Item {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Item, 0, len(t.order))
	for _, url := range t.order {
		out = append(out, t.items[url])
	}
	return out
}

// Clear discards all marks. Called after a batch submission.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.items = make(map[string]Item)
	t.order = nil
}
