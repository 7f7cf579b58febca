// Package static implements the native static-crawler tier: an async
// colly collector that follows redirects, decodes charsets, and carries
// cookies within one bulk run. Its limiter rides colly's own per-rule
// parallelism rather than the shared governor, which already guards the
// tiers that issue one request at a time.
package static

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/zadorian/SEARCH-ENGINEER-sub004/internal/fetch"
	"github.com/zadorian/SEARCH-ENGINEER-sub004/internal/fetch/detector"
)

// Config controls collector behavior.
type Config struct {
	UserAgent      string
	RespectRobots  bool
	PerDomainLimit int
	// Delay inserts a politeness pause between requests to one domain.
	Delay time.Duration
}

// Executor is the static-crawler tier.
type Executor struct {
	cfg    Config
	detect *detector.Heuristic
	logger *zap.Logger
}

// New builds the static executor.
func New(cfg Config, logger *zap.Logger) *Executor {
	if cfg.UserAgent == "" {
		cfg.UserAgent = fetch.DefaultUserAgent
	}
	if cfg.PerDomainLimit <= 0 {
		cfg.PerDomainLimit = fetch.DefaultPerDomainLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		cfg:    cfg,
		detect: detector.NewHeuristic(0),
		logger: logger,
	}
}

func (e *Executor) Name() string     { return "static" }
func (e *Executor) Tier() fetch.Tier { return fetch.TierStatic }
func (e *Executor) Available() bool  { return true }

// FetchOne runs a one-URL bulk fetch.
func (e *Executor) FetchOne(ctx context.Context, url string, timeout time.Duration) (fetch.Result, error) {
	out, err := e.FetchMany(ctx, []string{url}, 1, timeout)
	if err != nil {
		return fetch.Result{}, err
	}
	return out[0], nil
}

// FetchMany issues every URL on one async collector and waits for the
// whole run. Redirected responses are keyed back to the URL that was
// asked for, so callers can match results to inputs even when the final
// location differs.
func (e *Executor) FetchMany(ctx context.Context, urls []string, limit int, timeout time.Duration) ([]fetch.Result, error) {
	if limit <= 0 {
		limit = 1
	}
	collector, err := e.newCollector(limit, timeout)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	byOrigin := make(map[string]fetch.Result, len(urls))
	started := make(map[string]time.Time, len(urls))

	collector.OnResponse(func(r *colly.Response) {
		origin := r.Ctx.Get("origin")
		mu.Lock()
		defer mu.Unlock()
		res := fetch.Result{
			URL:        origin,
			StatusCode: r.StatusCode,
			HTML:       string(r.Body),
			Latency:    time.Since(started[origin]),
		}
		res.NeedsJS = e.detect.NeedsJS(res.StatusCode, res.HTML)
		byOrigin[origin] = res
	})
	collector.OnError(func(r *colly.Response, visitErr error) {
		origin := ""
		status := 0
		if r != nil && r.Request != nil {
			origin = r.Ctx.Get("origin")
			status = r.StatusCode
		}
		if origin == "" {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		byOrigin[origin] = fetch.Result{
			URL:        origin,
			StatusCode: status,
			Error:      visitErr.Error(),
			Latency:    time.Since(started[origin]),
		}
	})

	// Populate before the first request goes out; the callbacks only read.
	now := time.Now()
	for _, u := range urls {
		started[u] = now
	}
	for _, u := range urls {
		cctx := colly.NewContext()
		cctx.Put("origin", u)
		if err := collector.Request("GET", u, nil, cctx, nil); err != nil {
			mu.Lock()
			byOrigin[u] = fetch.Result{URL: u, Error: err.Error()}
			mu.Unlock()
		}
	}

	done := make(chan struct{})
	go func() {
		collector.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("static batch canceled: %w", ctx.Err())
	case <-done:
	}

	mu.Lock()
	defer mu.Unlock()
	out := make([]fetch.Result, len(urls))
	for i, u := range urls {
		res, ok := byOrigin[u]
		if !ok {
			res = fetch.Result{URL: u, Error: "no response received"}
		}
		out[i] = res
	}
	return out, nil
}

func (e *Executor) newCollector(limit int, timeout time.Duration) (*colly.Collector, error) {
	c := colly.NewCollector(colly.Async(true))
	c.UserAgent = e.cfg.UserAgent
	c.IgnoreRobotsTxt = !e.cfg.RespectRobots
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c.SetRequestTimeout(timeout)

	parallel := limit
	if e.cfg.PerDomainLimit < parallel {
		parallel = e.cfg.PerDomainLimit
	}
	if err := c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: parallel,
		Delay:       e.cfg.Delay,
	}); err != nil {
		return nil, fmt.Errorf("static limit rule: %w", err)
	}
	return c, nil
}
