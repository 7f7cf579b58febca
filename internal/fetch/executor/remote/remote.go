// Package remote implements the paid fallback tiers: hosted scraping
// APIs that run their own browser and proxy fleets. Two providers are
// configured as separate tiers so the cheaper one is always exhausted
// first.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/zadorian/SEARCH-ENGINEER-sub004/internal/fetch"
)

// maxResponseBytes caps how much rendered HTML one provider response may
// carry.
const maxResponseBytes = 32 * 1024 * 1024

// Config describes one provider account.
type Config struct {
	Endpoint  string
	APIKey    string
	UserAgent string
}

// Provider is one hosted scraping API bound to a tier slot. A provider
// without an API key reports itself unavailable and costs nothing.
type Provider struct {
	name   string
	tier   fetch.Tier
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// NewProviderA builds the primary paid tier.
func NewProviderA(cfg Config, logger *zap.Logger) *Provider {
	return newProvider("remote_a", fetch.TierRemoteA, cfg, logger)
}

// NewProviderB builds the last-resort paid tier.
func NewProviderB(cfg Config, logger *zap.Logger) *Provider {
	return newProvider("remote_b", fetch.TierRemoteB, cfg, logger)
}

func newProvider(name string, tier fetch.Tier, cfg Config, logger *zap.Logger) *Provider {
	if cfg.UserAgent == "" {
		cfg.UserAgent = fetch.DefaultUserAgent
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		name:   name,
		tier:   tier,
		cfg:    cfg,
		client: &http.Client{},
		logger: logger,
	}
}

func (p *Provider) Name() string     { return p.name }
func (p *Provider) Tier() fetch.Tier { return p.tier }

// Available reports whether the provider is configured for use.
func (p *Provider) Available() bool {
	return p.cfg.APIKey != "" && p.cfg.Endpoint != ""
}

type apiRequest struct {
	URL       string `json:"url"`
	RenderJS  bool   `json:"render_js"`
	UserAgent string `json:"user_agent,omitempty"`
	TimeoutMs int64  `json:"timeout_ms,omitempty"`
}

type apiResponse struct {
	HTML       string `json:"html"`
	StatusCode int    `json:"status_code"`
	Error      string `json:"error,omitempty"`
}

// FetchOne submits one URL to the provider.
func (p *Provider) FetchOne(ctx context.Context, url string, timeout time.Duration) (fetch.Result, error) {
	if !p.Available() {
		return fetch.Result{}, fmt.Errorf("%s is not configured", p.name)
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	payload, err := json.Marshal(apiRequest{
		URL:       url,
		RenderJS:  true,
		UserAgent: p.cfg.UserAgent,
		TimeoutMs: timeout.Milliseconds(),
	})
	if err != nil {
		return fetch.Result{}, fmt.Errorf("%s request encode: %w", p.name, err)
	}

	rctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(rctx, http.MethodPost, p.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return fetch.Result{}, fmt.Errorf("%s request build: %w", p.name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return fetch.Result{URL: url, Error: err.Error(), Latency: time.Since(start)}, nil
	}
	defer resp.Body.Close() //nolint:errcheck // read side already consumed

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fetch.Result{URL: url, Error: err.Error(), Latency: time.Since(start)}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return fetch.Result{
			URL:        url,
			StatusCode: resp.StatusCode,
			Error:      fmt.Sprintf("%s returned http %d", p.name, resp.StatusCode),
			Latency:    time.Since(start),
		}, nil
	}

	var parsed apiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return fetch.Result{URL: url, Error: fmt.Sprintf("%s response decode: %v", p.name, err), Latency: time.Since(start)}, nil
	}
	return fetch.Result{
		URL:        url,
		HTML:       parsed.HTML,
		StatusCode: parsed.StatusCode,
		Error:      parsed.Error,
		Latency:    time.Since(start),
	}, nil
}

// FetchMany submits the set with a small worker pool. Paid providers
// meter by request, so the ceiling stays in the single digits no matter
// what the caller asks for.
func (p *Provider) FetchMany(ctx context.Context, urls []string, limit int, timeout time.Duration) ([]fetch.Result, error) {
	if !p.Available() {
		return nil, fmt.Errorf("%s is not configured", p.name)
	}
	if limit <= 0 || limit > 5 {
		limit = 5
	}
	out := make([]fetch.Result, len(urls))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, u := range urls {
		g.Go(func() error {
			res, err := p.FetchOne(gctx, u, timeout)
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
