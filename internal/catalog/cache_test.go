package catalog

import (
	"testing"

	"github.com/romdeck/romdeck/internal/models"
)

func TestSeedCompletedFiltersByStatus(t *testing.T) {
	cache := NewCache()
	cache.SeedCompleted([]models.HistoryEntry{
		{URL: "http://host/a.zip", Status: "Download_OK"},
		{URL: "http://host/b.zip", Status: "Erreur"},
		{URL: "http://host/c.zip", Status: "done"},
		{URL: "", Status: "completed"},
	})

	if !cache.IsCompleted("http://host/a.zip") {
		t.Error("a.zip should be completed")
	}
	if cache.IsCompleted("http://host/b.zip") {
		t.Error("b.zip failed, must not be completed")
	}
	if cache.CompletedCount() != 2 {
		t.Errorf("expected 2 completed URLs, got %d", cache.CompletedCount())
	}
}

func TestSeedCompletedRebuildsWholesale(t *testing.T) {
	cache := NewCache()
	cache.MarkCompleted("http://host/session.zip")

	cache.SeedCompleted([]models.HistoryEntry{
		{URL: "http://host/a.zip", Status: "completed"},
	})

	if cache.IsCompleted("http://host/session.zip") {
		t.Error("explicit reload should replace the derived set")
	}
	if !cache.IsCompleted("http://host/a.zip") {
		t.Error("a.zip should be completed after reload")
	}
}

func TestGamesOverlayCompleted(t *testing.T) {
	cache := NewCache()
	cache.SetGames("snes", []models.Game{
		{Name: "A", URL: "http://host/a.zip"},
		{Name: "B", URL: "http://host/b.zip"},
	})
	cache.MarkCompleted("http://host/b.zip")

	games := cache.Games()
	if games[0].Completed {
		t.Error("A should not be completed")
	}
	if !games[1].Completed {
		t.Error("B should be completed via overlay")
	}
	if cache.GamesPlatform() != "snes" {
		t.Errorf("unexpected games platform %q", cache.GamesPlatform())
	}
}

func TestSetGamesReplacesWholesale(t *testing.T) {
	cache := NewCache()
	cache.SetGames("snes", []models.Game{{Name: "A", URL: "u1"}})
	cache.SetGames("megadrive", []models.Game{{Name: "B", URL: "u2"}, {Name: "C", URL: "u3"}})

	games := cache.Games()
	if len(games) != 2 || games[0].Name != "B" {
		t.Errorf("game list should be replaced, got %v", games)
	}
}

func TestSearchResultsLifecycle(t *testing.T) {
	cache := NewCache()
	cache.SetSearchResults([]models.Game{{Name: "A", URL: "u1", Platform: "snes"}})
	if len(cache.SearchResults()) != 1 {
		t.Fatal("expected 1 result")
	}
	cache.ClearSearchResults()
	if len(cache.SearchResults()) != 0 {
		t.Error("results should be cleared")
	}
}

func TestPlatformLookup(t *testing.T) {
	cache := NewCache()
	cache.SetPlatforms([]models.Platform{{ID: "snes", Name: "Super Nintendo"}})

	if p, ok := cache.Platform("snes"); !ok || p.Name != "Super Nintendo" {
		t.Errorf("lookup failed: %v %v", p, ok)
	}
	if _, ok := cache.Platform("missing"); ok {
		t.Error("missing platform should not be found")
	}
}
