package sinks

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/zadorian/SEARCH-ENGINEER-sub004/internal/progress"
)

// PrometheusSink exports cascade progress metrics. It owns collectors
// for batch runs and per-tier phase/fetch counters.
type PrometheusSink struct {
	batchesStarted prometheus.Counter
	batchesDone    prometheus.Counter
	batchesRunning prometheus.Gauge
	phaseResolved  *prometheus.GaugeVec
	phaseDuration  *prometheus.HistogramVec

	fetchCompleted *prometheus.CounterVec
	fetchBytes     *prometheus.CounterVec
	fetchDuration  *prometheus.HistogramVec

	tracker *runTracker
}

// NewPrometheusSink registers the collectors against the provided
// registry (DefaultRegisterer when nil).
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		batchesStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cascade_batches_started_total",
			Help: "Total batch runs started.",
		}),
		batchesDone: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cascade_batches_completed_total",
			Help: "Total batch runs completed.",
		}),
		batchesRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cascade_batches_running",
			Help: "Current number of running batch runs.",
		}),
		phaseResolved: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cascade_phase_resolved",
			Help: "URLs resolved after each tier phase, partitioned by tier.",
		}, []string{"tier"}),
		phaseDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cascade_phase_duration_seconds",
			Help:    "Wall time per tier phase.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"tier"}),
		fetchCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cascade_fetch_completed_total",
			Help: "Fetch completions partitioned by tier and host.",
		}, []string{"tier", "host"}),
		fetchBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cascade_fetch_bytes_total",
			Help: "Bytes downloaded per tier.",
		}, []string{"tier"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cascade_fetch_duration_seconds",
			Help:    "Fetch duration partitioned by tier.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		}, []string{"tier"}),
		tracker: newRunTracker(),
	}
	for _, collector := range []prometheus.Collector{
		s.batchesStarted,
		s.batchesDone,
		s.batchesRunning,
		s.phaseResolved,
		s.phaseDuration,
		s.fetchCompleted,
		s.fetchBytes,
		s.fetchDuration,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the collectors using the provided batch. It is safe
// for concurrent use.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		s.consumeEvent(evt)
	}
	return nil
}

func (s *PrometheusSink) consumeEvent(evt progress.Event) {
	switch evt.Stage {
	case progress.StageBatchStart:
		s.batchesStarted.Inc()
		if s.tracker.start(evt.RunID) {
			s.batchesRunning.Inc()
		}
	case progress.StageBatchDone:
		s.batchesDone.Inc()
		if s.tracker.complete(evt.RunID) {
			s.batchesRunning.Dec()
		}
	case progress.StagePhaseDone:
		s.phaseResolved.WithLabelValues(evt.Tier).Set(float64(evt.Resolved))
		if evt.Dur > 0 {
			s.phaseDuration.WithLabelValues(evt.Tier).Observe(evt.Dur.Seconds())
		}
	case progress.StageFetchDone:
		s.fetchCompleted.WithLabelValues(evt.Tier, evt.Host).Inc()
		if evt.Bytes > 0 {
			s.fetchBytes.WithLabelValues(evt.Tier).Add(float64(evt.Bytes))
		}
		if evt.Dur > 0 {
			s.fetchDuration.WithLabelValues(evt.Tier).Observe(evt.Dur.Seconds())
		}
	}
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}

type runTracker struct {
	mu      sync.Mutex
	running map[[16]byte]struct{}
}

func newRunTracker() *runTracker {
	return &runTracker{running: make(map[[16]byte]struct{})}
}

func (t *runTracker) start(id [16]byte) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.running[id]; ok {
		return false
	}
	t.running[id] = struct{}{}
	return true
}

func (t *runTracker) complete(id [16]byte) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.running[id]; !ok {
		return false
	}
	delete(t.running, id)
	return true
}
