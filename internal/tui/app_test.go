package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/romdeck/romdeck/internal/api"
	"github.com/romdeck/romdeck/internal/catalog"
	"github.com/romdeck/romdeck/internal/download"
	"github.com/romdeck/romdeck/internal/events"
	"github.com/romdeck/romdeck/internal/models"
	"github.com/romdeck/romdeck/internal/progress"
	"github.com/romdeck/romdeck/internal/views"
)

type fakeAPI struct{}

func (fakeAPI) StartDownload(ctx context.Context, req api.DownloadRequest) (*api.DownloadOutcome, error) {
	return &api.DownloadOutcome{TaskID: "t1", History: &models.HistoryEntry{URL: req.URL, GameName: req.GameName}}, nil
}
func (fakeAPI) StartBatch(ctx context.Context, reqs []api.DownloadRequest) ([]api.DownloadOutcome, error) {
	return nil, errors.New("not used")
}
func (fakeAPI) Cancel(ctx context.Context, taskID, jobURL string) error { return nil }
func (fakeAPI) Redownload(ctx context.Context, jobURL string) (*api.DownloadOutcome, error) {
	return nil, errors.New("not used")
}

type idleConn struct{ done chan struct{} }

func (c *idleConn) Next() (models.ProgressUpdate, error) {
	<-c.done
	return models.ProgressUpdate{}, errors.New("closed")
}
func (c *idleConn) Close() error {
	select {
	case <-c.done:
	default:
		close(c.done)
	}
	return nil
}

type idleDialer struct{}

func (idleDialer) Dial(ctx context.Context, jobURL string) (progress.ChannelConn, error) {
	return &idleConn{done: make(chan struct{})}, nil
}

func newTestModel(t *testing.T) Model {
	t.Helper()
	bus := events.NewEventBus(64)
	cache := catalog.NewCache()
	jobs := progress.NewManager(idleDialer{}, cache, bus, nil)
	orch := download.NewOrchestrator(fakeAPI{}, jobs, nil)

	facade := &apiFacade{
		ListPlatforms: func(ctx context.Context) ([]models.Platform, error) { return nil, nil },
		ListGames:     func(ctx context.Context, platformID string) ([]models.Game, error) { return nil, nil },
		History: func(ctx context.Context, status models.Status, limit int) ([]models.HistoryEntry, error) {
			return nil, nil
		},
		Search: func(ctx context.Context, query, platformID string, limit int) ([]models.Game, error) {
			return nil, nil
		},
	}

	m := NewModel(facade, orch, jobs, cache, bus)
	m.width = 80
	m.height = 24
	m.platformList.height = 16
	m.gameList.height = 16
	m.searchList.height = 14
	m.historyList.height = 16
	return m
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	model, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return model
}

func key(t *testing.T, m Model, k string) Model {
	t.Helper()
	var msg tea.KeyMsg
	switch k {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEscape}
	case " ":
		msg = tea.KeyMsg{Type: tea.KeySpace}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
	return update(t, m, msg)
}

func loaded(t *testing.T, m Model) Model {
	t.Helper()
	return update(t, m, catalogLoadedMsg{
		platforms: []models.Platform{
			{ID: "snes", Name: "Super Nintendo"},
			{ID: "gba", Name: "Game Boy Advance"},
		},
		history: []models.HistoryEntry{
			{URL: "http://host/old.zip", GameName: "Old Game", Status: "download_ok"},
		},
	})
}

func TestStartsInLoadingView(t *testing.T) {
	m := newTestModel(t)
	if got := m.machine.Current(); got != views.ViewLoading {
		t.Fatalf("initial view = %s, want loading", got)
	}
}

func TestCatalogLoadShowsCatalogAndSeedsCompleted(t *testing.T) {
	m := loaded(t, newTestModel(t))

	if got := m.machine.Current(); got != views.ViewCatalog {
		t.Fatalf("view = %s, want catalog", got)
	}
	if !m.cache.IsCompleted("http://host/old.zip") {
		t.Error("completed-set not seeded from history")
	}
	if len(m.cache.Platforms()) != 2 {
		t.Errorf("platforms = %d, want 2", len(m.cache.Platforms()))
	}
}

func TestGamesLoadedSwitchesViewAndSetsPlatform(t *testing.T) {
	m := loaded(t, newTestModel(t))
	m = update(t, m, gamesLoadedMsg{
		platformID: "snes",
		games: []models.Game{
			{Name: "Game A", URL: "http://host/a.zip"},
			{Name: "Game B", URL: "http://host/b.zip"},
		},
	})

	if got := m.machine.Current(); got != views.ViewGames {
		t.Fatalf("view = %s, want games", got)
	}
	if got := m.cache.GamesPlatform(); got != "snes" {
		t.Errorf("games platform = %q", got)
	}
}

func TestMarkingGamesUpdatesTracker(t *testing.T) {
	m := loaded(t, newTestModel(t))
	m = update(t, m, gamesLoadedMsg{
		platformID: "snes",
		games: []models.Game{
			{Name: "Game A", URL: "http://host/a.zip"},
			{Name: "Game B", URL: "http://host/b.zip"},
		},
	})

	m = key(t, m, " ")
	m = key(t, m, " ")
	if got := m.tracker.Count(); got != 2 {
		t.Fatalf("marked = %d, want 2", got)
	}

	// Esc clears marks.
	m = key(t, m, "esc")
	if got := m.tracker.Count(); got != 0 {
		t.Fatalf("marked after esc = %d, want 0", got)
	}
}

func TestBatchOfSeveralNeedsConfirmation(t *testing.T) {
	m := loaded(t, newTestModel(t))
	m = update(t, m, gamesLoadedMsg{
		platformID: "snes",
		games: []models.Game{
			{Name: "Game A", URL: "http://host/a.zip"},
			{Name: "Game B", URL: "http://host/b.zip"},
		},
	})
	m = key(t, m, " ")
	m = key(t, m, " ")

	m = key(t, m, "d")
	if !m.batchConfirm {
		t.Fatal("expected confirmation prompt for multi-item batch")
	}

	m = key(t, m, "n")
	if m.batchConfirm {
		t.Fatal("confirmation not dismissed")
	}
	if got := m.tracker.Count(); got != 2 {
		t.Fatalf("marks lost on canceled batch, count = %d", got)
	}
}

func TestBatchDoneClearsSelection(t *testing.T) {
	m := loaded(t, newTestModel(t))
	m = update(t, m, gamesLoadedMsg{
		platformID: "snes",
		games:      []models.Game{{Name: "Game A", URL: "http://host/a.zip"}},
	})
	m = key(t, m, " ")

	m = update(t, m, batchDoneMsg{
		result: download.BatchResult{Started: []string{"http://host/a.zip"}},
	})
	if got := m.tracker.Count(); got != 0 {
		t.Fatalf("selection not cleared after batch, count = %d", got)
	}
}

func TestSearchResultsPopulateCache(t *testing.T) {
	m := loaded(t, newTestModel(t))
	m = update(t, m, searchResultsMsg{
		query:   "mario",
		results: []models.Game{{Name: "Mario", URL: "http://host/mario.zip"}},
	})

	if got := len(m.cache.SearchResults()); got != 1 {
		t.Fatalf("results = %d, want 1", got)
	}

	m = update(t, m, searchClearMsg{})
	if got := len(m.cache.SearchResults()); got != 0 {
		t.Fatalf("results after clear = %d, want 0", got)
	}
}

func TestViewSwitchKeys(t *testing.T) {
	m := loaded(t, newTestModel(t))

	m = key(t, m, "3")
	if got := m.machine.Current(); got != views.ViewSearch {
		t.Fatalf("view = %s, want search", got)
	}
	if !m.input.Focused() {
		t.Error("search input not focused on view switch")
	}

	m = key(t, m, "esc") // leave input before global keys apply
	m = key(t, m, "1")
	if got := m.machine.Current(); got != views.ViewCatalog {
		t.Fatalf("view = %s, want catalog", got)
	}
}

func TestQuitConfirmsWhileJobsActive(t *testing.T) {
	m := loaded(t, newTestModel(t))
	if err := m.jobs.Open(context.Background(), "http://host/a.zip", "Game A"); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer m.jobs.CloseAll()

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	m = next.(Model)
	if cmd == nil {
		t.Fatal("expected status command, got quit")
	}
	if !m.quitConfirm {
		t.Fatal("expected quit confirmation with active jobs")
	}
}

func TestSelectionBarOverlayFollowsView(t *testing.T) {
	m := loaded(t, newTestModel(t))

	if m.machine.OverlayVisible(selectionBar) {
		t.Fatal("selection bar visible in catalog view")
	}
	m = update(t, m, gamesLoadedMsg{platformID: "snes", games: []models.Game{{Name: "A", URL: "http://host/a.zip"}}})
	if !m.machine.OverlayVisible(selectionBar) {
		t.Fatal("selection bar not visible in games view")
	}
}
