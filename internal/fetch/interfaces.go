package fetch

import (
	"context"
	"time"
)

// Executor is the contract every fetch tier implements. The orchestrator
// owns tier ordering and success criteria; executors only know how to
// move bytes.
//
// FetchMany must be a single logical invocation covering the whole list,
// not a loop over FetchOne: batch-capable tiers schedule the list with
// their own internal concurrency. FetchMany must not mutate caller
// state; the phase driver folds its results back in after it returns.
type Executor interface {
	Name() string
	Tier() Tier

	// Available reports whether the tier's prerequisite is satisfied
	// (binary on PATH, API key present). Unavailable tiers are skipped
	// at zero cost and are not counted as attempted.
	Available() bool

	FetchOne(ctx context.Context, url string, timeout time.Duration) (Result, error)
	FetchMany(ctx context.Context, urls []string, limit int, timeout time.Duration) ([]Result, error)
}

// Extractor is the black-box entity extractor run over fetched HTML
// after scraping completes. It returns entity-type -> values.
type Extractor interface {
	Extract(ctx context.Context, url, html string) (map[string][]string, error)
}

// Progress is invoked once per completed optimizer phase with the tier
// name, the count of URLs resolved so far, and the batch total.
type Progress func(tier string, resolved, total int)
