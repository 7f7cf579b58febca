package sinks

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zadorian/SEARCH-ENGINEER-sub004/internal/progress"
)

func TestPrometheusSinkCountsBatchLifecycle(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	sink, err := NewPrometheusSink(reg)
	require.NoError(t, err)

	runID := progress.UUIDToBytes(uuid.New())
	now := time.Now().UTC()

	batch := []progress.Event{
		{RunID: runID, TS: now, Stage: progress.StageBatchStart},
		{RunID: runID, TS: now, Stage: progress.StagePhaseDone, Tier: "direct", Resolved: 600, Total: 1000, Dur: 12 * time.Second},
		{RunID: runID, TS: now, Stage: progress.StagePhaseDone, Tier: "static", Resolved: 900, Total: 1000, Dur: 30 * time.Second},
		{RunID: runID, TS: now, Stage: progress.StageBatchDone},
	}
	require.NoError(t, sink.Consume(context.Background(), batch))

	assert.Equal(t, float64(1), testutil.ToFloat64(sink.batchesStarted))
	assert.Equal(t, float64(1), testutil.ToFloat64(sink.batchesDone))
	assert.Equal(t, float64(0), testutil.ToFloat64(sink.batchesRunning))
	assert.Equal(t, float64(600), testutil.ToFloat64(sink.phaseResolved.WithLabelValues("direct")))
	assert.Equal(t, float64(900), testutil.ToFloat64(sink.phaseResolved.WithLabelValues("static")))
}

func TestPrometheusSinkCountsFetches(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	sink, err := NewPrometheusSink(reg)
	require.NoError(t, err)

	runID := progress.UUIDToBytes(uuid.New())
	now := time.Now().UTC()

	batch := []progress.Event{
		{RunID: runID, TS: now, Stage: progress.StageFetchDone, Tier: "direct", Host: "a.test", Bytes: 1024, Dur: 50 * time.Millisecond},
		{RunID: runID, TS: now, Stage: progress.StageFetchDone, Tier: "direct", Host: "a.test", Bytes: 2048, Dur: 70 * time.Millisecond},
	}
	require.NoError(t, sink.Consume(context.Background(), batch))

	assert.Equal(t, float64(2), testutil.ToFloat64(sink.fetchCompleted.WithLabelValues("direct", "a.test")))
	assert.Equal(t, float64(3072), testutil.ToFloat64(sink.fetchBytes.WithLabelValues("direct")))
}

func TestPrometheusSinkDuplicateRegistration(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	_, err := NewPrometheusSink(reg)
	require.NoError(t, err)
	_, err = NewPrometheusSink(reg)
	require.Error(t, err)
}
