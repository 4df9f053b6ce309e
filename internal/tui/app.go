// Package tui is the interactive browser: platform catalog, per-platform game
// lists with marking, live search, and download history, with download
// progress rendered in place.
package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/romdeck/romdeck/internal/api"
	"github.com/romdeck/romdeck/internal/catalog"
	"github.com/romdeck/romdeck/internal/download"
	"github.com/romdeck/romdeck/internal/events"
	"github.com/romdeck/romdeck/internal/models"
	"github.com/romdeck/romdeck/internal/progress"
	"github.com/romdeck/romdeck/internal/search"
	"github.com/romdeck/romdeck/internal/selection"
	"github.com/romdeck/romdeck/internal/views"
)

const selectionBar = "selection-bar"

// historyFilters cycles through the status filters offered in the history
// view. The empty status means no filter.
var historyFilters = []models.Status{
	"", models.StatusCompleted, models.StatusError, models.StatusCanceled, models.StatusDownloading,
}

// Messages

type catalogLoadedMsg struct {
	platforms []models.Platform
	history   []models.HistoryEntry
}

type gamesLoadedMsg struct {
	platformID string
	games      []models.Game
}

type historyLoadedMsg struct {
	entries []models.HistoryEntry
	filter  models.Status
}

// searchTriggerMsg fires when the debouncer's quiet period elapses.
type searchTriggerMsg struct{ query string }

// searchClearMsg fires when the query is blanked.
type searchClearMsg struct{}

type searchResultsMsg struct {
	query   string
	results []models.Game
}

type actionDoneMsg struct {
	status string
	err    error
}

type batchDoneMsg struct {
	result download.BatchResult
	err    error
}

type errMsg struct {
	action string
	err    error
}

type busMsg struct{ ev events.Event }

type statusClearMsg struct{ id int }

// Model is the main Bubble Tea model.
type Model struct {
	api      *apiFacade
	orch     *download.Orchestrator
	jobs     *progress.Manager
	cache    *catalog.Cache
	tracker  *selection.Tracker
	machine  *views.Machine
	deb      *search.Debouncer
	spinner  spinner.Model
	input    textinput.Model
	searched string

	platformList listState
	gameList     listState
	searchList   listState
	historyList  listState

	history       []models.HistoryEntry
	historyFilter int

	width        int
	height       int
	showHelp     bool
	statusMsg    string
	statusID     int
	quitConfirm  bool
	batchConfirm bool
	loading      bool
	loadErr      error
}

// apiFacade is the server surface the model uses, separated so tests can
// substitute a double.
type apiFacade struct {
	Status        func(ctx context.Context) (*api.ServerStatus, error)
	ListPlatforms func(ctx context.Context) ([]models.Platform, error)
	ListGames     func(ctx context.Context, platformID string) ([]models.Game, error)
	History       func(ctx context.Context, status models.Status, limit int) ([]models.HistoryEntry, error)
	Search        func(ctx context.Context, query, platformID string, limit int) ([]models.Game, error)
}

// NewModel creates the TUI model. The debouncer is attached later by Run,
// once the program exists to deliver its callbacks as messages.
func NewModel(api *apiFacade, orch *download.Orchestrator, jobs *progress.Manager, cache *catalog.Cache, bus *events.EventBus) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot

	ti := textinput.New()
	ti.Placeholder = "search games"
	ti.CharLimit = 120

	machine := views.NewMachine(bus)
	machine.RegisterOverlay(selectionBar, views.ViewGames, views.ViewSearch)

	return Model{
		api:     api,
		orch:    orch,
		jobs:    jobs,
		cache:   cache,
		tracker: selection.NewTracker(),
		machine: machine,
		spinner: s,
		input:   ti,
		loading: true,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.loadCatalog())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		viewHeight := m.height - 6
		m.platformList.height = viewHeight
		m.gameList.height = viewHeight
		m.searchList.height = viewHeight - 2
		m.historyList.height = viewHeight
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case catalogLoadedMsg:
		m.loading = false
		m.loadErr = nil
		m.cache.SetPlatforms(msg.platforms)
		m.cache.SeedCompleted(msg.history)
		m.history = msg.history
		m.platformList.setLength(len(msg.platforms))
		m.machine.Show(views.ViewCatalog)
		return m, nil

	case gamesLoadedMsg:
		m.loading = false
		m.cache.SetGames(msg.platformID, msg.games)
		m.tracker.SetPlatform(msg.platformID)
		m.gameList.reset()
		m.gameList.setLength(len(msg.games))
		m.machine.Show(views.ViewGames)
		return m, nil

	case historyLoadedMsg:
		m.loading = false
		m.history = msg.entries
		if msg.filter == "" || msg.filter == models.StatusCompleted {
			m.cache.SeedCompleted(msg.entries)
		}
		m.historyList.reset()
		m.historyList.setLength(len(msg.entries))
		return m, nil

	case searchTriggerMsg:
		return m, m.performSearch(msg.query)

	case searchClearMsg:
		m.cache.ClearSearchResults()
		m.searched = ""
		m.searchList.reset()
		m.searchList.setLength(0)
		return m, nil

	case searchResultsMsg:
		m.cache.SetSearchResults(msg.results)
		m.searched = msg.query
		m.searchList.reset()
		m.searchList.setLength(len(msg.results))
		return m, nil

	case actionDoneMsg:
		if msg.err != nil {
			return m, m.setStatus(errorStyle.Render(msg.err.Error()))
		}
		return m, m.setStatus(msg.status)

	case batchDoneMsg:
		if msg.err != nil {
			return m, m.setStatus(errorStyle.Render(fmt.Sprintf("Batch failed: %v", msg.err)))
		}
		m.tracker.Clear()
		status := fmt.Sprintf("Started %d downloads", len(msg.result.Started))
		if n := len(msg.result.Failures); n > 0 {
			status = fmt.Sprintf("Started %d downloads, %d rejected", len(msg.result.Started), n)
		}
		return m, m.setStatus(status)

	case errMsg:
		m.loading = false
		if m.machine.Current() == views.ViewLoading {
			m.loadErr = msg.err
			return m, nil
		}
		return m, m.setStatus(errorStyle.Render(fmt.Sprintf("%s: %v", msg.action, msg.err)))

	case busMsg:
		// Job state lives in the progress manager and the completed-set in
		// the cache; receiving the event is enough to trigger a re-render.
		if ev, ok := msg.ev.(*events.ErrorEvent); ok {
			return m, m.setStatus(errorStyle.Render(fmt.Sprintf("%s: %v", ev.Action, ev.Err)))
		}
		return m, nil

	case statusClearMsg:
		if msg.id == m.statusID {
			m.statusMsg = ""
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	current := m.machine.Current()
	typing := current == views.ViewSearch && m.input.Focused()

	if m.showHelp {
		switch key {
		case "?", "esc", "q":
			m.showHelp = false
		}
		return m, nil
	}

	// Global keys. Letters pass through while the search input is focused.
	switch key {
	case "ctrl+c":
		return m.quit()
	case "q":
		if !typing {
			return m.quit()
		}
	case "?":
		if !typing {
			m.showHelp = true
			return m, nil
		}
	case "1":
		if !typing && current != views.ViewLoading {
			return m.showView(views.ViewCatalog), nil
		}
	case "2":
		if !typing && current != views.ViewLoading && m.cache.GamesPlatform() != "" {
			return m.showView(views.ViewGames), nil
		}
	case "3":
		if !typing && current != views.ViewLoading {
			return m.showView(views.ViewSearch), nil
		}
	case "4":
		if !typing && current != views.ViewLoading {
			m = m.showView(views.ViewHistory)
			m.loading = true
			return m, m.loadHistory()
		}
	case "esc":
		if m.quitConfirm {
			m.quitConfirm = false
			return m, m.setStatus("Quit canceled")
		}
		if m.batchConfirm {
			m.batchConfirm = false
			return m, m.setStatus("Batch canceled")
		}
	}

	switch current {
	case views.ViewCatalog:
		return m.handleCatalogKey(key)
	case views.ViewGames:
		return m.handleGamesKey(key)
	case views.ViewSearch:
		return m.handleSearchKey(key, msg)
	case views.ViewHistory:
		return m.handleHistoryKey(key)
	}
	return m, nil
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	if m.quitConfirm {
		m.jobs.CloseAll()
		return m, tea.Quit
	}
	if m.jobs.Len() > 0 {
		m.quitConfirm = true
		return m, m.setStatus("Downloads in progress. Press q again to close channels and quit, Esc to stay")
	}
	return m, tea.Quit
}

// showView transitions the state machine and syncs UI focus to the new view.
func (m Model) showView(v views.View) Model {
	m.batchConfirm = false
	m.machine.Show(v)
	if v == views.ViewSearch {
		m.input.Focus()
	} else {
		m.input.Blur()
	}
	return m
}

func (m Model) handleCatalogKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "up", "k":
		m.platformList.moveUp()
	case "down", "j":
		m.platformList.moveDown()
	case "pgup", "ctrl+u":
		m.platformList.pageUp()
	case "pgdown", "ctrl+d":
		m.platformList.pageDown()
	case "home", "g":
		m.platformList.goHome()
	case "end", "G":
		m.platformList.goEnd()
	case "enter", "l", "right":
		platforms := m.cache.Platforms()
		if m.platformList.cursor < len(platforms) {
			p := platforms[m.platformList.cursor]
			m.loading = true
			return m, m.loadGames(p.ID)
		}
	case "r":
		m.loading = true
		return m, m.loadCatalog()
	}
	return m, nil
}

func (m Model) handleGamesKey(key string) (tea.Model, tea.Cmd) {
	if m.batchConfirm {
		switch key {
		case "y", "Y", "enter":
			m.batchConfirm = false
			return m, m.submitBatch()
		case "n", "N", "esc":
			m.batchConfirm = false
			return m, m.setStatus("Batch canceled")
		}
		return m, nil
	}

	games := m.cache.Games()
	switch key {
	case "up", "k":
		m.gameList.moveUp()
	case "down", "j":
		m.gameList.moveDown()
	case "pgup", "ctrl+u":
		m.gameList.pageUp()
	case "pgdown", "ctrl+d":
		m.gameList.pageDown()
	case "home", "g":
		m.gameList.goHome()
	case "end", "G":
		m.gameList.goEnd()
	case "backspace", "h", "left":
		return m.showView(views.ViewCatalog), nil
	case " ":
		if m.gameList.cursor < len(games) {
			m.tracker.Toggle(m.cache.GamesPlatform(), games[m.gameList.cursor])
			m.gameList.moveDown()
		}
	case "enter":
		if m.gameList.cursor < len(games) {
			g := games[m.gameList.cursor]
			return m, m.startDownload(m.cache.GamesPlatform(), g.Name, g.URL)
		}
	case "d":
		if m.tracker.Count() > 1 {
			m.batchConfirm = true
			return m, nil
		}
		if m.tracker.Count() == 1 {
			return m, m.submitBatch()
		}
		if m.gameList.cursor < len(games) {
			g := games[m.gameList.cursor]
			return m, m.startDownload(m.cache.GamesPlatform(), g.Name, g.URL)
		}
	case "c":
		if m.gameList.cursor < len(games) {
			url := games[m.gameList.cursor].URL
			if _, active := m.jobs.Job(url); active {
				return m, m.cancelDownload(url)
			}
			return m, m.setStatus("No active download for selection")
		}
	case "R":
		if m.gameList.cursor < len(games) {
			g := games[m.gameList.cursor]
			if g.Completed {
				return m, m.redownload(g.URL)
			}
			return m, m.setStatus("Selection has no completed download to redo")
		}
	case "esc":
		if m.tracker.Count() > 0 {
			n := m.tracker.Count()
			m.tracker.Clear()
			return m, m.setStatus(fmt.Sprintf("Cleared %d marks", n))
		}
	}
	return m, nil
}

func (m Model) handleSearchKey(key string, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	results := m.cache.SearchResults()

	if m.input.Focused() {
		switch key {
		case "esc":
			m.input.Blur()
			return m, nil
		case "up", "down", "pgup", "pgdown":
			m.input.Blur()
			return m.handleSearchKey(key, msg)
		case "enter":
			if m.searchList.cursor < len(results) {
				g := results[m.searchList.cursor]
				return m, m.startDownload(g.Platform, g.Name, g.URL)
			}
			return m, nil
		default:
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			if m.deb != nil {
				m.deb.Query(m.input.Value())
			}
			return m, cmd
		}
	}

	switch key {
	case "up", "k":
		m.searchList.moveUp()
	case "down", "j":
		m.searchList.moveDown()
	case "pgup", "ctrl+u":
		m.searchList.pageUp()
	case "pgdown", "ctrl+d":
		m.searchList.pageDown()
	case "/", "i":
		m.input.Focus()
	case " ":
		if m.searchList.cursor < len(results) {
			g := results[m.searchList.cursor]
			m.tracker.Toggle(g.Platform, g)
			m.searchList.moveDown()
		}
	case "enter":
		if m.searchList.cursor < len(results) {
			g := results[m.searchList.cursor]
			return m, m.startDownload(g.Platform, g.Name, g.URL)
		}
	case "d":
		if m.tracker.Count() > 0 {
			return m, m.submitBatch()
		}
	case "esc":
		m.input.Focus()
	}
	return m, nil
}

func (m Model) handleHistoryKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "up", "k":
		m.historyList.moveUp()
	case "down", "j":
		m.historyList.moveDown()
	case "pgup", "ctrl+u":
		m.historyList.pageUp()
	case "pgdown", "ctrl+d":
		m.historyList.pageDown()
	case "home", "g":
		m.historyList.goHome()
	case "end", "G":
		m.historyList.goEnd()
	case "f":
		m.historyFilter = (m.historyFilter + 1) % len(historyFilters)
		m.loading = true
		return m, m.loadHistory()
	case "r":
		m.loading = true
		return m, m.loadHistory()
	case "R":
		if m.historyList.cursor < len(m.history) {
			e := m.history[m.historyList.cursor]
			if e.NormalizedStatus() == models.StatusCompleted {
				return m, m.redownload(e.URL)
			}
			return m, m.setStatus("Only completed entries can be redownloaded")
		}
	case "c":
		if m.historyList.cursor < len(m.history) {
			e := m.history[m.historyList.cursor]
			if _, active := m.jobs.Job(e.URL); active {
				return m, m.cancelDownload(e.URL)
			}
			return m, m.setStatus("No active download for entry")
		}
	}
	return m, nil
}

// Commands

func (m Model) loadCatalog() tea.Cmd {
	return func() tea.Msg {
		// Readiness probe first; an unreachable server fails fast with a
		// clearer message than a catalog fetch would.
		if m.api.Status != nil {
			if _, err := m.api.Status(context.Background()); err != nil {
				return errMsg{action: "probe server", err: err}
			}
		}
		platforms, err := m.api.ListPlatforms(context.Background())
		if err != nil {
			return errMsg{action: "load platforms", err: err}
		}
		history, err := m.api.History(context.Background(), "", 0)
		if err != nil {
			return errMsg{action: "load history", err: err}
		}
		return catalogLoadedMsg{platforms: platforms, history: history}
	}
}

func (m Model) loadGames(platformID string) tea.Cmd {
	return func() tea.Msg {
		games, err := m.api.ListGames(context.Background(), platformID)
		if err != nil {
			return errMsg{action: "load games", err: err}
		}
		return gamesLoadedMsg{platformID: platformID, games: games}
	}
}

func (m Model) loadHistory() tea.Cmd {
	filter := historyFilters[m.historyFilter]
	return func() tea.Msg {
		entries, err := m.api.History(context.Background(), filter, 0)
		if err != nil {
			return errMsg{action: "load history", err: err}
		}
		return historyLoadedMsg{entries: entries, filter: filter}
	}
}

func (m Model) performSearch(query string) tea.Cmd {
	return func() tea.Msg {
		results, err := m.api.Search(context.Background(), query, "", 100)
		if err != nil {
			return errMsg{action: "search", err: err}
		}
		return searchResultsMsg{query: query, results: results}
	}
}

func (m Model) startDownload(platformID, gameName, url string) tea.Cmd {
	return func() tea.Msg {
		if err := m.orch.Start(context.Background(), platformID, gameName, url); err != nil {
			return actionDoneMsg{err: err}
		}
		return actionDoneMsg{status: fmt.Sprintf("Downloading: %s", gameName)}
	}
}

func (m Model) submitBatch() tea.Cmd {
	marked := m.tracker.Collect()
	items := make([]download.BatchItem, 0, len(marked))
	for _, it := range marked {
		items = append(items, download.BatchItem{
			Platform: it.Platform,
			GameName: it.GameName,
			URL:      it.URL,
		})
	}
	return func() tea.Msg {
		result, err := m.orch.StartBatch(context.Background(), items)
		return batchDoneMsg{result: result, err: err}
	}
}

func (m Model) cancelDownload(url string) tea.Cmd {
	return func() tea.Msg {
		if err := m.orch.Cancel(context.Background(), url); err != nil {
			return actionDoneMsg{err: err}
		}
		return actionDoneMsg{status: "Download canceled"}
	}
}

func (m Model) redownload(url string) tea.Cmd {
	return func() tea.Msg {
		if err := m.orch.Redownload(context.Background(), url); err != nil {
			return actionDoneMsg{err: err}
		}
		return actionDoneMsg{status: "Redownload started"}
	}
}

func (m *Model) setStatus(msg string) tea.Cmd {
	m.statusMsg = msg
	m.statusID++
	id := m.statusID
	return tea.Tick(4*time.Second, func(time.Time) tea.Msg {
		return statusClearMsg{id: id}
	})
}

// Run starts the TUI against live services. It owns the debouncer and the
// bus-to-program event pump.
func Run(deps RunDeps) error {
	m := NewModel(deps.API, deps.Orchestrator, deps.Jobs, deps.Cache, deps.Bus)

	// The debouncer delivers its callbacks as program messages, so it must
	// exist before the program copies the model.
	var p *tea.Program
	m.deb = search.NewDebouncer(search.DefaultQuietPeriod,
		func(query string) { p.Send(searchTriggerMsg{query: query}) },
		func() { p.Send(searchClearMsg{}) },
	)

	p = tea.NewProgram(m, tea.WithAltScreen())

	sub := deps.Bus.SubscribeAll()
	go func() {
		for ev := range sub {
			p.Send(busMsg{ev: ev})
		}
	}()

	_, err := p.Run()
	deps.Jobs.CloseAll()
	return err
}

// RunDeps bundles the live services the TUI drives.
type RunDeps struct {
	API          *apiFacade
	Orchestrator *download.Orchestrator
	Jobs         *progress.Manager
	Cache        *catalog.Cache
	Bus          *events.EventBus
}

// NewAPIFacade adapts any client with the catalog read methods.
func NewAPIFacade(c interface {
	Status(ctx context.Context) (*api.ServerStatus, error)
	ListPlatforms(ctx context.Context) ([]models.Platform, error)
	ListGames(ctx context.Context, platformID string) ([]models.Game, error)
	History(ctx context.Context, status models.Status, limit int) ([]models.HistoryEntry, error)
	Search(ctx context.Context, query, platformID string, limit int) ([]models.Game, error)
}) *apiFacade {
	return &apiFacade{
		Status:        c.Status,
		ListPlatforms: c.ListPlatforms,
		ListGames:     c.ListGames,
		History:       c.History,
		Search:        c.Search,
	}
}
