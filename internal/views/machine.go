// Package views tracks which screen of the client is active.
package views

import (
	"fmt"
	"sync"
	"time"

	"github.com/romdeck/romdeck/internal/events"
)

// View identifies one of the client's main screens.
type View string

const (
	ViewLoading View = "loading"
	ViewCatalog View = "catalog"
	ViewGames   View = "games"
	ViewSearch  View = "search"
	ViewHistory View = "history"
)

// known is the complete view set. Transitions to anything else are a
// programming error, not a runtime condition.
var known = map[View]bool{
	ViewLoading: true,
	ViewCatalog: true,
	ViewGames:   true,
	ViewSearch:  true,
	ViewHistory: true,
}

// Machine is the view state machine. Exactly one view is active at a time;
// overlays are registered with the set of views they are visible in, so
// every transition implicitly re-evaluates overlay visibility.
type Machine struct {
	mu       sync.RWMutex
	current  View
	overlays map[string][]View
	bus      *events.EventBus
}

// NewMachine creates a machine in the loading view. bus may be nil when no
// renderer listens for transitions.
func NewMachine(bus *events.EventBus) *Machine {
	return &Machine{
		current:  ViewLoading,
		overlays: make(map[string][]View),
		bus:      bus,
	}
}

// Current returns the active view.
func (m *Machine) Current() View {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Show transitions to the named view. No transition is rejected; an unknown
// view name panics because it can only come from a caller bug.
func (m *Machine) Show(v View) {
	if !known[v] {
		panic(fmt.Sprintf("views: unknown view %q", v))
	}

	m.mu.Lock()
	old := m.current
	m.current = v
	m.mu.Unlock()

	if m.bus != nil {
		m.bus.Publish(&events.ViewChangeEvent{
			BaseEvent: events.BaseEvent{EventType: events.EventViewChange, Time: time.Now()},
			OldView:   string(old),
			NewView:   string(v),
		})
	}
}

// RegisterOverlay declares a transient surface and the views it is visible
// in (e.g. a batch-action bar shown only over the game list).
func (m *Machine) RegisterOverlay(name string, visibleIn ...View) {
	for _, v := range visibleIn {
		if !known[v] {
			panic(fmt.Sprintf("views: unknown view %q", v))
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overlays[name] = append([]View(nil), visibleIn...)
}

// OverlayVisible reports whether the named overlay is visible in the current
// view. Unregistered overlays are never visible.
func (m *Machine) OverlayVisible(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, v := range m.overlays[name] {
		if v == m.current {
			return true
		}
	}
	return false
}
