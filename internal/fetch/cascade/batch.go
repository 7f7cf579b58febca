package cascade

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zadorian/SEARCH-ENGINEER-sub004/internal/fetch"
	"github.com/zadorian/SEARCH-ENGINEER-sub004/internal/metrics"
	"github.com/zadorian/SEARCH-ENGINEER-sub004/internal/progress"
)

// BatchOptions tunes one optimized batch run.
type BatchOptions struct {
	// Progress, if set, is called once after every executed phase with
	// the tier name, the cumulative count of resolved URLs, and the
	// total number of distinct URLs in the batch.
	Progress fetch.Progress

	// AllowPaid opts paid tiers into the phase loop for this run,
	// regardless of the cascade-wide default.
	AllowPaid bool
}

// ScrapeBatchOptimized fetches a URL set tier by tier: each enabled tier
// runs one bulk fetch over every URL still pending, successes leave the
// pending set, and the next tier only sees the survivors. Cheap tiers
// therefore absorb the bulk of the batch before an expensive tier ever
// starts. URLs still pending after the last phase come back Blocked.
// The output carries exactly one result per input URL, in input order.
func (c *Cascade) ScrapeBatchOptimized(ctx context.Context, urls []string, opts BatchOptions) []fetch.Result {
	runID := progress.UUIDToBytes(uuid.New())

	// Deduplicate up front so each distinct URL is fetched at most once
	// per phase; duplicates share the winner's result on output.
	resolved := make(map[string]fetch.Result, len(urls))
	pending := make([]string, 0, len(urls))
	seen := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		if strings.TrimSpace(u) == "" {
			resolved[u] = fetch.Blocked(u, "empty url")
			continue
		}
		pending = append(pending, u)
	}
	total := len(pending)

	c.emitBatch(runID, progress.StageBatchStart, "", 0, total, 0)
	c.logger.Info("batch started", zap.Int("urls", len(urls)), zap.Int("distinct", total))

	allowPaid := opts.AllowPaid || c.cfg.AllowPaidInBatch
	for _, tier := range c.order {
		if len(pending) == 0 {
			break
		}
		if tier.Paid() && !allowPaid {
			continue
		}
		exec := c.execs[tier]
		if exec == nil || !exec.Available() {
			continue
		}

		pending = c.runPhase(ctx, runID, exec, tier, pending, resolved, total)

		if opts.Progress != nil {
			opts.Progress(tier.String(), total-len(pending), total)
		}
	}

	for _, u := range pending {
		var lastErr string
		if last, ok := resolved[u]; ok {
			lastErr = failureText(last, c.cfg.MinValidLength)
		}
		resolved[u] = fetch.Blocked(u, lastErr)
		metrics.ObserveBlocked()
	}

	c.emitBatch(runID, progress.StageBatchDone, "", total-len(pending), total, 0)
	c.logger.Info("batch finished",
		zap.Int("resolved", total-len(pending)), zap.Int("blocked", len(pending)))

	out := make([]fetch.Result, len(urls))
	for i, u := range urls {
		out[i] = resolved[u]
	}
	return out
}

// runPhase executes one tier's bulk fetch over the pending set and
// returns the URLs that still need a higher tier. Every pending URL gets
// its latest result recorded in resolved, success or not, so the terminal
// Blocked result can carry the last error seen.
func (c *Cascade) runPhase(ctx context.Context, runID [16]byte, exec fetch.Executor, tier fetch.Tier, pending []string, resolved map[string]fetch.Result, total int) []string {
	started := time.Now()
	timeout := c.cfg.TierTimeout(tier)
	limit := c.cfg.TierConcurrency(tier)

	results, err := exec.FetchMany(ctx, append([]string(nil), pending...), limit, timeout)

	var next []string
	if err != nil {
		// Whole-phase failure: nothing resolved, everything moves on.
		c.logger.Warn("batch phase errored",
			zap.String("tier", tier.String()), zap.Int("pending", len(pending)), zap.Error(err))
		for _, u := range pending {
			resolved[u] = fetch.Failure(u, tier, err)
			metrics.ObserveTierAttempt(tier.String(), "error", 0)
		}
		next = pending
	} else {
		byURL := make(map[string]fetch.Result, len(results))
		for _, r := range results {
			byURL[r.URL] = r.Finalize(tier)
		}
		for _, u := range pending {
			r, ok := byURL[u]
			if !ok {
				r = fetch.Failure(u, tier, errors.New("executor returned no result"))
			}
			resolved[u] = r
			if r.Success(c.cfg.MinValidLength) {
				metrics.ObserveTierAttempt(tier.String(), "success", len(r.HTML))
			} else {
				metrics.ObserveTierAttempt(tier.String(), "failure", len(r.HTML))
				next = append(next, u)
			}
		}
	}

	dur := time.Since(started)
	metrics.ObserveBatchPhase(tier.String(), dur)
	c.emitBatch(runID, progress.StagePhaseDone, tier.String(), total-len(next), total, dur)
	c.logger.Info("batch phase complete",
		zap.String("tier", tier.String()),
		zap.Int("attempted", len(pending)),
		zap.Int("remaining", len(next)),
		zap.Duration("dur", dur))
	return next
}

func (c *Cascade) emitBatch(runID [16]byte, stage progress.Stage, tier string, resolvedCount, total int, dur time.Duration) {
	if c.emitter == nil {
		return
	}
	c.emitter.Emit(progress.Event{
		RunID:    runID,
		TS:       time.Now().UTC(),
		Stage:    stage,
		Tier:     tier,
		Resolved: resolvedCount,
		Total:    total,
		Dur:      dur,
	})
}
