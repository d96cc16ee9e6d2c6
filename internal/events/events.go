// Package events carries progress events from the ledger to live dashboard
// subscribers. Delivery is best effort; the ledger never blocks on a slow
// subscriber.
package events

import (
	"sync"
	"time"
)

// ProgressEvent is emitted once per recorded item completion.
type ProgressEvent struct {
	UserID     string    `json:"user_id"`
	CourseID   string    `json:"course_id"`
	ItemRef    string    `json:"item_ref"`
	Progress   int       `json:"progress"`
	Status     string    `json:"status"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Sink receives progress events.
type Sink interface {
	Publish(ev ProgressEvent)
}

// NopSink ignores all events.
type NopSink struct{}

func (NopSink) Publish(ProgressEvent) {}

// MemorySink stores events in memory for tests.
type MemorySink struct {
	mu     sync.Mutex
	events []ProgressEvent
}

func NewMemorySink() *MemorySink {
	return &MemorySink{events: []ProgressEvent{}}
}

func (s *MemorySink) Publish(ev ProgressEvent) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	s.mu.Unlock()
}

func (s *MemorySink) Events() []ProgressEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ProgressEvent{}, s.events...)
}
