package progress

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureSink struct {
	mu     sync.Mutex
	events []Event
	closed bool
}

func (s *captureSink) Consume(_ context.Context, batch []Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, batch...)
	return nil
}

func (s *captureSink) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *captureSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func validEvent(stage Stage) Event {
	return Event{
		RunID: UUIDToBytes(uuid.New()),
		TS:    time.Now().UTC(),
		Stage: stage,
		Tier:  "static",
		Host:  "example.com",
	}
}

func TestHubDeliversEventsToSinks(t *testing.T) {
	t.Parallel()

	sink := &captureSink{}
	hub := NewHub(Config{FlushInterval: 10 * time.Millisecond}, sink)

	for i := 0; i < 5; i++ {
		hub.Emit(validEvent(StageFetchDone))
	}

	require.Eventually(t, func() bool {
		return sink.count() == 5
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Close(context.Background()))
	assert.True(t, sink.closed)
}

func TestHubFlushesOnBatchSize(t *testing.T) {
	t.Parallel()

	sink := &captureSink{}
	hub := NewHub(Config{MaxBatchEvents: 2, FlushInterval: time.Hour}, sink)
	defer hub.Close(context.Background()) //nolint:errcheck // test cleanup

	hub.Emit(validEvent(StageFetchDone))
	hub.Emit(validEvent(StageFetchDone))

	require.Eventually(t, func() bool {
		return sink.count() == 2
	}, time.Second, 10*time.Millisecond)
}

func TestHubDropsInvalidEvents(t *testing.T) {
	t.Parallel()

	sink := &captureSink{}
	hub := NewHub(Config{FlushInterval: 10 * time.Millisecond}, sink)

	hub.Emit(Event{Stage: StageFetchDone}) // missing run id and timestamp
	hub.Emit(validEvent(StageBatchStart))

	require.NoError(t, hub.Close(context.Background()))
	assert.Equal(t, 1, sink.count())
}

func TestHubCloseFlushesPending(t *testing.T) {
	t.Parallel()

	sink := &captureSink{}
	hub := NewHub(Config{FlushInterval: time.Hour, MaxBatchEvents: 1000}, sink)

	for i := 0; i < 10; i++ {
		hub.Emit(validEvent(StagePhaseDone))
	}
	require.NoError(t, hub.Close(context.Background()))
	assert.Equal(t, 10, sink.count())

	// Emitting after close is a silent no-op.
	hub.Emit(validEvent(StagePhaseDone))
	assert.Equal(t, 10, sink.count())
}

func TestNilHubIsSafe(t *testing.T) {
	t.Parallel()

	var hub *Hub
	hub.Emit(validEvent(StageBatchStart))
	require.NoError(t, hub.Close(context.Background()))
}
