package sinks

import (
	"context"
	"sync"

	"github.com/zadorian/SEARCH-ENGINEER-sub004/internal/progress"
)

// MemorySink keeps a bounded ring of recent events for tests and ad hoc
// inspection of a running hub.
type MemorySink struct {
	mu     sync.Mutex
	cap    int
	events []progress.Event
}

// NewMemorySink creates a MemorySink retaining at most capacity events
// (default 1024).
func NewMemorySink(capacity int) *MemorySink {
	if capacity <= 0 {
		capacity = 1024
	}
	return &MemorySink{cap: capacity}
}

// Consume appends the batch, evicting the oldest events past capacity.
func (s *MemorySink) Consume(_ context.Context, batch []progress.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, batch...)
	if over := len(s.events) - s.cap; over > 0 {
		s.events = append(s.events[:0:0], s.events[over:]...)
	}
	return nil
}

// Events returns a copy of the retained events, oldest first.
func (s *MemorySink) Events() []progress.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]progress.Event(nil), s.events...)
}

// EventsForRun filters retained events by run ID.
func (s *MemorySink) EventsForRun(runID [16]byte) []progress.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []progress.Event
	for _, evt := range s.events {
		if evt.RunID == runID {
			out = append(out, evt)
		}
	}
	return out
}

// Close implements the Sink interface; it performs no action.
func (s *MemorySink) Close(context.Context) error {
	return nil
}
