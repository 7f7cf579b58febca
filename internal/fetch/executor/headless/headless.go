// Package headless runs the browser tier: full page loads in headless
// Chrome via chromedp, for sites that defeat both static fetching and
// the external renderer.
package headless

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/zadorian/SEARCH-ENGINEER-sub004/internal/fetch"
	"github.com/zadorian/SEARCH-ENGINEER-sub004/internal/fetch/governor"
)

// Config controls the behavior of the headless executor.
type Config struct {
	UserAgent   string
	MaxParallel int
	// SettleDelay waits after body readiness so late script work lands
	// in the captured DOM.
	SettleDelay time.Duration
}

// Executor is the headless-browser tier. One Chrome allocator is shared;
// every fetch runs in its own tab context.
type Executor struct {
	cfg         Config
	gov         *governor.Governor
	limiter     chan struct{}
	allocator   context.Context
	allocCancel context.CancelFunc
	logger      *zap.Logger
}

// New creates the executor and its Chrome allocator. Close must be
// called to release the allocator.
func New(cfg Config, gov *governor.Governor, logger *zap.Logger) (*Executor, error) {
	if cfg.MaxParallel < 0 {
		return nil, fmt.Errorf("max parallel must be >= 0")
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = fetch.DefaultUserAgent
	}
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = 500 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	var limiter chan struct{}
	if cfg.MaxParallel > 0 {
		limiter = make(chan struct{}, cfg.MaxParallel)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &Executor{
		cfg:         cfg,
		gov:         gov,
		limiter:     limiter,
		allocator:   allocCtx,
		allocCancel: allocCancel,
		logger:      logger,
	}, nil
}

// Close cancels the allocator context.
func (e *Executor) Close() {
	e.allocCancel()
}

func (e *Executor) Name() string     { return "headless" }
func (e *Executor) Tier() fetch.Tier { return fetch.TierHeadless }
func (e *Executor) Available() bool  { return true }

// FetchOne renders one URL in a fresh tab under both the browser-slot
// limiter and the shared governor.
func (e *Executor) FetchOne(ctx context.Context, url string, timeout time.Duration) (fetch.Result, error) {
	if e.gov != nil {
		release, err := e.gov.Acquire(ctx, url)
		if err != nil {
			return fetch.Result{}, err
		}
		defer release()
	}
	if err := e.acquireSlot(ctx); err != nil {
		return fetch.Result{}, err
	}
	defer e.releaseSlot()

	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	taskCtx, taskCancel := chromedp.NewContext(e.allocator)
	defer taskCancel()
	taskCtx, cancel := context.WithTimeout(taskCtx, timeout)
	defer cancel()

	meta := newResponseMeta()
	chromedp.ListenTarget(taskCtx, meta.captureEvent)

	start := time.Now()
	var html string
	actions := []chromedp.Action{
		e.networkSetupAction(),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(e.cfg.SettleDelay),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	}
	if err := chromedp.Run(taskCtx, actions...); err != nil {
		return fetch.Result{
			URL:     url,
			Error:   fmt.Sprintf("chromedp run: %v", err),
			Latency: time.Since(start),
		}, nil
	}

	status := meta.status()
	if status == 0 {
		status = http.StatusOK
	}
	return fetch.Result{
		URL:        url,
		HTML:       html,
		StatusCode: status,
		Latency:    time.Since(start),
	}, nil
}

// FetchMany fans URLs out over bounded tab workers sharing the one
// browser process.
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

func (e *Executor) networkSetupAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if err := emulation.SetUserAgentOverride(e.cfg.UserAgent).Do(ctx); err != nil {
			return fmt.Errorf("set user-agent: %w", err)
		}
		return nil
	})
}

func (e *Executor) acquireSlot(ctx context.Context) error {
	if e.limiter == nil {
		return nil
	}
	select {
	case e.limiter <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("headless slot wait canceled: %w", ctx.Err())
	}
}

func (e *Executor) releaseSlot() {
	if e.limiter == nil {
		return
	}
	select {
	case <-e.limiter:
	default:
	}
}

// responseMeta captures the document response status from CDP network
// events.
type responseMeta struct {
	mu         sync.RWMutex
	statusCode int
}

func newResponseMeta() *responseMeta {
	return &responseMeta{}
}

func (m *responseMeta) captureEvent(ev any) {
	resp, ok := ev.(*network.EventResponseReceived)
	if !ok || resp.Type != network.ResourceTypeDocument || resp.Response == nil {
		return
	}
	m.mu.Lock()
	m.statusCode = int(resp.Response.Status)
	m.mu.Unlock()
}

func (m *responseMeta) status() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.statusCode
}
