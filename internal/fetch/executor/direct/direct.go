// Package direct implements the cheapest fetch tier: a plain HTTP GET
// through a pooled transport, no JavaScript, no cookies carried between
// requests.
package direct

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/zadorian/SEARCH-ENGINEER-sub004/internal/fetch"
	"github.com/zadorian/SEARCH-ENGINEER-sub004/internal/fetch/detector"
	"github.com/zadorian/SEARCH-ENGINEER-sub004/internal/fetch/governor"
	"github.com/zadorian/SEARCH-ENGINEER-sub004/internal/fetch/ratelimit"
)

// Config controls collector behavior.
type Config struct {
	UserAgent     string
	RespectRobots bool
}

// Executor is the direct-HTTP tier. A base collector holds the shared
// transport; every request runs on a clone so per-request hooks never
// leak between fetches.
type Executor struct {
	cfg     Config
	gov     *governor.Governor
	limiter *ratelimit.Limiter
	base    *colly.Collector
	detect  *detector.Heuristic
	logger  *zap.Logger
}

// New builds the direct executor. gov may be nil in tests.
func New(cfg Config, gov *governor.Governor, logger *zap.Logger) *Executor {
	if cfg.UserAgent == "" {
		cfg.UserAgent = fetch.DefaultUserAgent
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := colly.NewCollector(colly.Async(false))
	c.WithTransport(newHTTPTransport())
	return &Executor{
		cfg:    cfg,
		gov:    gov,
		base:   c,
		detect: detector.NewHeuristic(0),
		logger: logger,
	}
}

// SetLimiter attaches an optional per-domain request pacer. Pass nil to
// run unpaced.
func (e *Executor) SetLimiter(l *ratelimit.Limiter) { e.limiter = l }

func (e *Executor) Name() string     { return "direct" }
func (e *Executor) Tier() fetch.Tier { return fetch.TierDirect }
func (e *Executor) Available() bool  { return true }

// FetchOne performs a single GET under the concurrency governor.
func (e *Executor) FetchOne(ctx context.Context, url string, timeout time.Duration) (fetch.Result, error) {
	if err := e.limiter.Wait(ctx, url); err != nil {
		return fetch.Result{}, err
	}
	if e.gov != nil {
		release, err := e.gov.Acquire(ctx, url)
		if err != nil {
			return fetch.Result{}, err
		}
		defer release()
	}
	return e.fetch(ctx, url, timeout), nil
}

// FetchMany fans the URL set out over a bounded worker group. Transport
// and HTTP failures are folded into per-URL results; only a wholesale
// inability to run reports an error.
func (e *Executor) FetchMany(ctx context.Context, urls []string, limit int, timeout time.Duration) ([]fetch.Result, error) {
	if limit <= 0 {
		limit = 1
	}
	out := make([]fetch.Result, len(urls))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, u := range urls {
		g.Go(func() error {
			res, err := e.FetchOne(gctx, u, timeout)
			if err != nil {
				res = fetch.Result{URL: u, Error: err.Error()}
			}
			out[i] = res
			return nil
		})
	}
	_ = g.Wait()
	return out, nil
}

func (e *Executor) fetch(ctx context.Context, url string, timeout time.Duration) fetch.Result {
	collector := e.base.Clone()
	collector.UserAgent = e.cfg.UserAgent
	collector.IgnoreRobotsTxt = !e.cfg.RespectRobots
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	collector.SetRequestTimeout(timeout)

	start := time.Now()
	result := fetch.Result{URL: url}
	var fetchErr error

	collector.OnResponse(func(r *colly.Response) {
		result.StatusCode = r.StatusCode
		result.HTML = string(r.Body)
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil {
			result.StatusCode = r.StatusCode
			result.HTML = string(r.Body)
		}
		fetchErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		result.Error = fmt.Sprintf("direct fetch canceled: %v", ctx.Err())
	case err := <-done:
		switch {
		case fetchErr != nil:
			result.Error = fetchErr.Error()
		case err != nil:
			result.Error = err.Error()
		}
	}

	result.Latency = time.Since(start)
	if result.Error == "" {
		result.NeedsJS = e.detect.NeedsJS(result.StatusCode, result.HTML)
	}
	return result
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
