package alerting

import (
	"time"

	"github.com/babysphere/backend/internal/sensor"
)

// DefaultHistoryLimit is how many alerts are retained
const DefaultHistoryLimit = 50

// Event is one fired alert
type Event struct {
	ID        string            `json:"id"`
	DeviceID  string            `json:"device_id,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Metric    sensor.MetricKind `json:"metric"`
	Value     float64           `json:"value"`
	Direction Direction         `json:"direction"`
	Message   string            `json:"message"`
}

// History is a bounded list of events, newest first. When full, the oldest
// event is evicted.
type History struct {
	limit  int
	events []Event
}

// NewHistory creates a history holding at most limit events
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &History{limit: limit, events: make([]Event, 0, limit)}
}

// Add records e as the newest event
func (h *History) Add(e Event) {
	if len(h.events) == h.limit {
		h.events = h.events[:h.limit-1]
	}
	h.events = append(h.events, Event{})
	copy(h.events[1:], h.events)
	h.events[0] = e
}

// Reset replaces the contents with events (newest first), keeping the newest limit entries
func (h *History) Reset(events []Event) {
	if len(events) > h.limit {
		events = events[:h.limit]
	}
	h.events = append(h.events[:0], events...)
}

// Events returns a copy of the events, newest first
func (h *History) Events() []Event {
	out := make([]Event, len(h.events))
	copy(out, h.events)
	return out
}

// Len returns the number of retained events
func (h *History) Len() int {
	return len(h.events)
}

// Limit returns the capacity
func (h *History) Limit() int {
	return h.limit
}
