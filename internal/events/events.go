// Package events provides an in-process event bus connecting the download
// orchestration layer to UI renderers (TUI views, watch-mode progress bars).
package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/romdeck/romdeck/internal/models"
)

// EventType defines the types of events that can be emitted
type EventType string

const (
	EventJobStarted EventType = "job_started" // Channel opened, job registered
	EventJobUpdate  EventType = "job_update"  // Progress frame applied
	EventJobDone    EventType = "job_done"    // Terminal status or channel close
	EventViewChange EventType = "view_change" // Active view switched
	EventError      EventType = "error"       // Action-level failure
)

const defaultBufferSize = 256

// Event is the base interface for all events
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common event fields
type BaseEvent struct {
	EventType EventType
	Time      time.Time
}

func (e BaseEvent) Type() EventType      { return e.EventType }
func (e BaseEvent) Timestamp() time.Time { return e.Time }

// JobEvent carries the state of one job after an update. For EventJobDone,
// Status holds the terminal (or last known) status; Completed indicates the
// job finished successfully and joined the completed-set.
type JobEvent struct {
	BaseEvent
	URL       string
	Name      string
	Percent   int
	Status    models.Status
	Speed     float64
	Completed bool
}

// ViewChangeEvent represents a view transition.
type ViewChangeEvent struct {
	BaseEvent
	OldView string
	NewView string
}

// ErrorEvent represents an action-level failure surfaced to the user.
type ErrorEvent struct {
	BaseEvent
	Action string
	URL    string
	Err    error
}

// EventBus manages event subscriptions and publishing
type EventBus struct {
	subscribers   map[EventType][]chan Event
	all           []chan Event
	mu            sync.RWMutex
	bufferSize    int
	closed        bool
	droppedEvents atomic.Int64
}

// NewEventBus creates a new event bus with the specified buffer size.
// A non-positive size selects the default.
func NewEventBus(bufferSize int) *EventBus {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	return &EventBus{
		subscribers: make(map[EventType][]chan Event),
		all:         make([]chan Event, 0),
		bufferSize:  bufferSize,
	}
}

// Subscribe creates a subscription to a specific event type
func (eb *EventBus) Subscribe(eventType EventType) <-chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	ch := make(chan Event, eb.bufferSize)
	eb.subscribers[eventType] = append(eb.subscribers[eventType], ch)
	return ch
}

// SubscribeAll creates a subscription to all events
func (eb *EventBus) SubscribeAll() <-chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	ch := make(chan Event, eb.bufferSize)
	eb.all = append(eb.all, ch)
	return ch
}

// Publish sends an event to all subscribers. Non-blocking: if a subscriber's
// buffer is full the event is dropped for that subscriber and counted.
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if eb.closed {
		return
	}

	for _, ch := range eb.subscribers[event.Type()] {
		select {
		case ch <- event:
		default:
			eb.droppedEvents.Add(1)
		}
	}

	for _, ch := range eb.all {
		select {
		case ch <- event:
		default:
			eb.droppedEvents.Add(1)
		}
	}
}

// Dropped returns the number of events dropped due to full buffers.
func (eb *EventBus) Dropped() int64 {
	return eb.droppedEvents.Load()
}

// Close shuts down the event bus and closes all subscriber channels.
func (eb *EventBus) Close() {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}
	eb.closed = true

	for _, channels := range eb.subscribers {
		for _, ch := range channels {
			close(ch)
		}
	}
	for _, ch := range eb.all {
		close(ch)
	}
}

// PublishJob is a convenience method for publishing job events.
func (eb *EventBus) PublishJob(eventType EventType, job models.Job, completed bool) {
	eb.Publish(&JobEvent{
		BaseEvent: BaseEvent{EventType: eventType, Time: time.Now()},
		URL:       job.URL,
		Name:      job.Name,
		Percent:   job.Percent,
		Status:    job.Status,
		Speed:     job.Speed,
		Completed: completed,
	})
}

// PublishError is a convenience method for publishing failure events.
func (eb *EventBus) PublishError(action, url string, err error) {
	eb.Publish(&ErrorEvent{
		BaseEvent: BaseEvent{EventType: EventError, Time: time.Now()},
		Action:    action,
		URL:       url,
		Err:       err,
	})
}
