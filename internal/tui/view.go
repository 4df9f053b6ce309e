package tui

import (
	"fmt"
	"strings"

	"github.com/romdeck/romdeck/internal/models"
	"github.com/romdeck/romdeck/internal/views"
)

func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var sb strings.Builder

	sb.WriteString(titleStyle.Render("  RomDeck  "))
	sb.WriteString("\n")
	sb.WriteString(m.tabLine())
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("─", m.width))
	sb.WriteString("\n")

	if m.showHelp {
		sb.WriteString(m.helpView())
	} else {
		switch m.machine.Current() {
		case views.ViewLoading:
			sb.WriteString(m.loadingView())
		case views.ViewCatalog:
			sb.WriteString(m.catalogView())
		case views.ViewGames:
			sb.WriteString(m.gamesView())
		case views.ViewSearch:
			sb.WriteString(m.searchView())
		case views.ViewHistory:
			sb.WriteString(m.historyView())
		}
	}

	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("─", m.width))
	sb.WriteString("\n")

	statusLine := m.statusMsg
	if statusLine == "" {
		statusLine = m.defaultStatus()
	}
	sb.WriteString(statusBarStyle.Render(statusLine))

	return sb.String()
}

func (m Model) tabLine() string {
	tabs := []struct {
		name string
		view views.View
		key  string
	}{
		{"Platforms", views.ViewCatalog, "1"},
		{"Games", views.ViewGames, "2"},
		{"Search", views.ViewSearch, "3"},
		{"History", views.ViewHistory, "4"},
	}

	current := m.machine.Current()
	var line strings.Builder
	for _, t := range tabs {
		label := fmt.Sprintf(" %s %s ", t.key, t.name)
		if current == t.view {
			line.WriteString(tabActiveStyle.Render(label))
		} else {
			line.WriteString(tabInactiveStyle.Render(label))
		}
		line.WriteString(" ")
	}

	if n := m.jobs.Len(); n > 0 {
		line.WriteString(downloadingStyle.Render(fmt.Sprintf(" [%d downloading]", n)))
	}
	if m.machine.OverlayVisible(selectionBar) {
		if n := m.tracker.Count(); n > 0 {
			line.WriteString(markedStyle.Render(fmt.Sprintf(" [%d marked]", n)))
		}
	}
	return line.String()
}

func (m Model) loadingView() string {
	if m.loadErr != nil {
		return errorStyle.Render(fmt.Sprintf("  Failed to reach server: %v\n  Press q to quit.", m.loadErr))
	}
	return fmt.Sprintf("  %s Contacting server...", m.spinner.View())
}

func (m Model) catalogView() string {
	platforms := m.cache.Platforms()
	if m.loading {
		return fmt.Sprintf("  %s Loading...", m.spinner.View())
	}
	if len(platforms) == 0 {
		return dimStyle.Render("  No platforms in catalog.")
	}

	var sb strings.Builder
	start, end := m.platformList.window()
	for i := start; i < end; i++ {
		p := platforms[i]
		row := fmt.Sprintf("%s  %s", p.Name, dimStyle.Render(p.Folder))
		sb.WriteString(m.renderRow(i == m.platformList.cursor, row))
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m Model) gamesView() string {
	games := m.cache.Games()
	if m.loading {
		return fmt.Sprintf("  %s Loading...", m.spinner.View())
	}
	if len(games) == 0 {
		return dimStyle.Render("  No games for this platform.")
	}

	var sb strings.Builder
	if m.batchConfirm {
		sb.WriteString(markedStyle.Render(fmt.Sprintf("  Download %d marked games? y to confirm, n to cancel", m.tracker.Count())))
		sb.WriteString("\n\n")
	}

	start, end := m.gameList.window()
	for i := start; i < end; i++ {
		sb.WriteString(m.renderGameRow(games[i], i == m.gameList.cursor))
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m Model) searchView() string {
	var sb strings.Builder
	sb.WriteString("  ")
	sb.WriteString(m.input.View())
	sb.WriteString("\n\n")

	results := m.cache.SearchResults()
	switch {
	case m.searched == "" && len(results) == 0:
		sb.WriteString(dimStyle.Render("  Type to search the catalog."))
	case len(results) == 0:
		sb.WriteString(dimStyle.Render(fmt.Sprintf("  No results for %q.", m.searched)))
	default:
		start, end := m.searchList.window()
		for i := start; i < end; i++ {
			sb.WriteString(m.renderGameRow(results[i], i == m.searchList.cursor && !m.input.Focused()))
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func (m Model) historyView() string {
	if m.loading {
		return fmt.Sprintf("  %s Loading...", m.spinner.View())
	}
	if len(m.history) == 0 {
		return dimStyle.Render("  No history entries.")
	}

	var sb strings.Builder
	if filter := historyFilters[m.historyFilter]; filter != "" {
		sb.WriteString(dimStyle.Render(fmt.Sprintf("  filter: %s", filter)))
		sb.WriteString("\n")
	}

	start, end := m.historyList.window()
	for i := start; i < end; i++ {
		e := m.history[i]
		status := e.NormalizedStatus()
		label := string(status)
		if job, active := m.jobs.Job(e.URL); active {
			label = fmt.Sprintf("%s %d%%", job.Status, job.Percent)
		}
		row := fmt.Sprintf("%s %s  %s", m.statusBadge(status), e.GameName, dimStyle.Render(label))
		sb.WriteString(m.renderRow(i == m.historyList.cursor, row))
		sb.WriteString("\n")
	}
	return sb.String()
}

// renderGameRow shows mark state, completion, and live progress for one game.
func (m Model) renderGameRow(g models.Game, cursor bool) string {
	mark := "[ ]"
	if m.tracker.Marked(g.URL) {
		mark = markedStyle.Render("[x]")
	}

	suffix := ""
	if job, active := m.jobs.Job(g.URL); active {
		suffix = downloadingStyle.Render(fmt.Sprintf("  %s %d%%", job.Status, job.Percent))
	} else if g.Completed {
		suffix = completedStyle.Render("  ✓")
	}

	size := ""
	if g.Size != "" {
		size = dimStyle.Render("  " + g.Size)
	}

	return m.renderRow(cursor, fmt.Sprintf("%s %s%s%s", mark, g.Name, size, suffix))
}

func (m Model) renderRow(cursor bool, row string) string {
	if cursor {
		return selectedStyle.Render("▸ ") + row
	}
	return "  " + row
}

func (m Model) statusBadge(s models.Status) string {
	switch s {
	case models.StatusCompleted:
		return completedStyle.Render("✓")
	case models.StatusError:
		return errorStyle.Render("✗")
	case models.StatusCanceled:
		return dimStyle.Render("∅")
	case models.StatusDownloading, models.StatusExtracting:
		return downloadingStyle.Render("↓")
	default:
		return dimStyle.Render("?")
	}
}

func (m Model) defaultStatus() string {
	switch m.machine.Current() {
	case views.ViewCatalog:
		return "j/k:navigate  Enter:open platform  r:refresh  ?:help  q:quit"
	case views.ViewGames:
		return "j/k:navigate  Space:mark  Enter:download  d:download marked  c:cancel  R:redownload  ?:help"
	case views.ViewSearch:
		return "type:search  Esc:leave input  j/k:results  Enter:download  d:download marked  ?:help"
	case views.ViewHistory:
		return "j/k:navigate  f:cycle filter  R:redownload  c:cancel  r:refresh  ?:help"
	}
	return ""
}

func (m Model) helpView() string {
	lines := []string{
		"  Keyboard Shortcuts",
		"  ──────────────────",
		"",
		"  Global:",
		"    1-4           Switch views",
		"    ?             Toggle help",
		"    q / Ctrl+C    Quit (double-press if downloads active)",
		"",
		"  Platforms:",
		"    j/k           Navigate",
		"    Enter         Open game list",
		"    r             Refresh catalog",
		"",
		"  Games:",
		"    Space         Mark/unmark game",
		"    Enter         Download selected",
		"    d             Download marked (confirm for more than one)",
		"    c             Cancel active download",
		"    R             Redownload completed game",
		"    Esc           Clear marks",
		"    Backspace / h Back to platforms",
		"",
		"  Search:",
		"    type          Search as you type",
		"    Esc           Leave input / focus input",
		"    Space         Mark result",
		"    Enter / d     Download",
		"",
		"  History:",
		"    f             Cycle status filter",
		"    R             Redownload completed entry",
		"    c             Cancel active download",
		"",
		"  Press ? or Esc to close help.",
	}
	return helpStyle.Render(strings.Join(lines, "\n"))
}
