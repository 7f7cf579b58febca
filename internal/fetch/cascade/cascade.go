// Package cascade implements the adaptive multi-tier fetch orchestrator:
// the per-URL fallback cascade and the phase-based batch optimizer that
// amortizes expensive tiers across large URL sets.
package cascade

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/zadorian/SEARCH-ENGINEER-sub004/internal/fetch"
	"github.com/zadorian/SEARCH-ENGINEER-sub004/internal/metrics"
	"github.com/zadorian/SEARCH-ENGINEER-sub004/internal/progress"
)

// Cascade tries fetch tiers in priority order for one URL, stopping at
// the first usable result. It is stateless across calls and safe for
// concurrent use; configuration is copied at construction and immutable
// for the orchestrator's lifetime.
type Cascade struct {
	cfg     fetch.Config
	order   []fetch.Tier
	execs   map[fetch.Tier]fetch.Executor
	emitter progress.Emitter
	runID   [16]byte
	logger  *zap.Logger
}

// Option customizes a Cascade.
type Option func(*Cascade)

// WithEmitter attaches a progress emitter; fetch and phase milestones
// are published to it as a pure side observation of the returned values.
func WithEmitter(e progress.Emitter) Option {
	return func(c *Cascade) { c.emitter = e }
}

// New constructs a Cascade over the given executors. Enabled tiers with
// no registered executor are skipped at runtime exactly like unavailable
// tiers.
func New(cfg fetch.Config, logger *zap.Logger, execs []fetch.Executor, opts ...Option) (*Cascade, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("cascade config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	byTier := make(map[fetch.Tier]fetch.Executor, len(execs))
	for _, e := range execs {
		if e == nil {
			continue
		}
		if _, dup := byTier[e.Tier()]; dup {
			return nil, fmt.Errorf("duplicate executor for tier %s", e.Tier())
		}
		byTier[e.Tier()] = e
	}
	c := &Cascade{
		cfg:    cfg,
		order:  cfg.Enabled(),
		execs:  byTier,
		runID:  progress.UUIDToBytes(uuid.New()),
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Config returns a copy of the cascade's effective configuration.
func (c *Cascade) Config() fetch.Config {
	return c.cfg
}

// Scrape runs the full cascade for one URL, honoring the configured
// forced starting tier if any. It never returns an error: terminal
// failure is a Blocked result.
func (c *Cascade) Scrape(ctx context.Context, url string) fetch.Result {
	start := fetch.TierDirect
	if c.cfg.ForcedTierSet {
		start = c.cfg.ForcedTier
	}
	return c.ScrapeFrom(ctx, url, start)
}

// ScrapeFrom runs the cascade beginning at the given tier. Tiers ranked
// below start are never invoked; the order is never changed. A static
// result flagged NeedsJS raises the floor to the first JS-capable tier,
// which skips ahead but never reorders.
func (c *Cascade) ScrapeFrom(ctx context.Context, url string, start fetch.Tier) fetch.Result {
	if strings.TrimSpace(url) == "" {
		return fetch.Blocked(url, "empty url")
	}

	lastErr := ""
	floor := start
	attempted := false
	for _, tier := range c.order {
		if tier < floor {
			continue
		}
		exec := c.execs[tier]
		if exec == nil || !exec.Available() {
			continue
		}
		attempted = true

		res := c.attempt(ctx, exec, tier, url)
		if res.Success(c.cfg.MinValidLength) {
			return res
		}
		lastErr = failureText(res, c.cfg.MinValidLength)
		if res.NeedsJS && floor < fetch.TierRender {
			c.logger.Debug("static result needs js, skipping to render tiers",
				zap.String("url", url), zap.String("tier", tier.String()))
			floor = fetch.TierRender
		}
	}

	if attempted {
		c.logger.Warn("all fetch tiers exhausted", zap.String("url", url), zap.String("last_error", lastErr))
	}
	metrics.ObserveBlocked()
	return fetch.Blocked(url, lastErr)
}

// ScrapeBatch schedules every URL independently through the full cascade
// under one global concurrency limit. Completion order is unspecified;
// the output is reassembled into input order before return, one result
// per input URL.
func (c *Cascade) ScrapeBatch(ctx context.Context, urls []string) []fetch.Result {
	out := make([]fetch.Result, len(urls))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.TierConcurrency(fetch.TierDirect))
	for i, u := range urls {
		g.Go(func() error {
			out[i] = c.Scrape(gctx, u)
			return nil
		})
	}
	_ = g.Wait() // workers never return errors
	return out
}

// attempt invokes one tier for one URL and folds any internal error into
// a failure result, so nothing ever propagates past the cascade.
func (c *Cascade) attempt(ctx context.Context, exec fetch.Executor, tier fetch.Tier, url string) fetch.Result {
	timeout := c.cfg.TierTimeout(tier)
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	started := time.Now()
	res, err := exec.FetchOne(tctx, url, timeout)
	if err != nil {
		c.logger.Debug("tier attempt errored",
			zap.String("tier", tier.String()), zap.String("url", url), zap.Error(err))
		metrics.ObserveTierAttempt(tier.String(), "error", 0)
		return fetch.Failure(url, tier, err)
	}

	res.URL = url
	if res.Latency == 0 {
		res.Latency = time.Since(started)
	}
	res = res.Finalize(tier)

	outcome := "failure"
	if res.Success(c.cfg.MinValidLength) {
		outcome = "success"
	}
	metrics.ObserveTierAttempt(tier.String(), outcome, len(res.HTML))
	c.emitFetch(tier, res)
	return res
}

func (c *Cascade) emitFetch(tier fetch.Tier, res fetch.Result) {
	if c.emitter == nil {
		return
	}
	c.emitter.Emit(progress.Event{
		RunID: c.runID,
		TS:    time.Now().UTC(),
		Stage: progress.StageFetchDone,
		Tier:  tier.String(),
		Host:  fetch.HostOf(res.URL),
		URL:   res.URL,
		Bytes: int64(len(res.HTML)),
		Dur:   res.Latency,
		Note:  res.Error,
	})
}

// failureText describes why a non-successful result failed, for folding
// into the terminal Blocked result.
func failureText(res fetch.Result, minLength int) string {
	if res.Error != "" {
		return res.Error
	}
	return fmt.Sprintf("%s returned %d bytes (minimum %d)", res.TierName, len(res.HTML), minLength)
}
