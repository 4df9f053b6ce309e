// Package catalog caches the remote catalog client-side: platforms, the
// current game list, search results, and the derived completed-set.
package catalog

import (
	"sync"

	"github.com/romdeck/romdeck/internal/models"
)

// Cache holds the last-fetched catalog data. Lists are replaced wholesale on
// each navigation or search, never patched. The completed-set is derived:
// seeded from a full history fetch, extended by live job completions, and
// only rebuilt on an explicit history reload.
type Cache struct {
	mu            sync.RWMutex
	platforms     []models.Platform
	games         []models.Game
	gamesPlatform string
	results       []models.Game
	completed     map[string]struct{}
}

// NewCache creates an empty catalog cache.
func NewCache() *Cache {
	return &Cache{
		completed: make(map[string]struct{}),
	}
}

// SetPlatforms replaces the platform list.
func (c *Cache) SetPlatforms(platforms []models.Platform) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.platforms = append([]models.Platform(nil), platforms...)
}

// Platforms returns the cached platform list.
func (c *Cache) Platforms() []models.Platform {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]models.Platform(nil), c.platforms...)
}

// Platform looks up a cached platform by id.
func (c *Cache) Platform(id string) (models.Platform, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, p := range c.platforms {
		if p.ID == id {
			return p, true
		}
	}
	return models.Platform{}, false
}

// SetGames replaces the current game list with the listing for one platform.
func (c *Cache) SetGames(platformID string, games []models.Game) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gamesPlatform = platformID
	c.games = append([]models.Game(nil), games...)
}

// Games returns the current game list with completed flags overlaid from the
// completed-set, so live completions show without a refetch.
func (c *Cache) Games() []models.Game {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.overlayCompleted(c.games)
}

// GamesPlatform returns the platform id the current game list belongs to.
func (c *Cache) GamesPlatform() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gamesPlatform
}

// SetSearchResults replaces the search result list.
func (c *Cache) SetSearchResults(results []models.Game) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append([]models.Game(nil), results...)
}

// ClearSearchResults empties the search result list.
func (c *Cache) ClearSearchResults() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = nil
}

// SearchResults returns the cached search results with completed flags
// overlaid.
func (c *Cache) SearchResults() []models.Game {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.overlayCompleted(c.results)
}

// SeedCompleted rebuilds the completed-set from a full history fetch. Only
// entries whose status normalizes to completed count. Used at initial load
// and on explicit history reloads; live completions use MarkCompleted.
func (c *Cache) SeedCompleted(entries []models.HistoryEntry) {
	completed := make(map[string]struct{})
	for _, e := range entries {
		if e.URL != "" && e.NormalizedStatus() == models.StatusCompleted {
			completed[e.URL] = struct{}{}
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.completed = completed
}

// MarkCompleted adds one URL to the completed-set. Called by the progress
// channel manager when a job reaches completed; the set never shrinks
// between history reloads.
func (c *Cache) MarkCompleted(url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.completed[url] = struct{}{}
}

// IsCompleted reports membership of url in the completed-set.
func (c *Cache) IsCompleted(url string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.completed[url]
	return ok
}

// CompletedCount returns the size of the completed-set.
func (c *Cache) CompletedCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.completed)
}

// overlayCompleted returns a copy of games with Completed set for every URL
// in the completed-set. Callers must hold at least the read lock.
func (c *Cache) overlayCompleted(games []models.Game) []models.Game {
	out := make([]models.Game, len(games))
	copy(out, games)
	for i := range out {
		if _, ok := c.completed[out[i].URL]; ok {
			out[i].Completed = true
		}
	}
	return out
}
