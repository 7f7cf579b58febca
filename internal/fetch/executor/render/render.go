// Package render shells out to an external JavaScript rendering worker.
// The worker reads request lines on stdin and writes one JSON result
// line per URL on stdout, which lets a whole batch amortize a single
// process start.
package render

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"time"

	"go.uber.org/zap"

	"github.com/zadorian/SEARCH-ENGINEER-sub004/internal/fetch"
)

// DefaultCommand is the worker binary searched for on PATH.
const DefaultCommand = "render-worker"

// Config controls the render executor.
type Config struct {
	Command   string
	Args      []string
	UserAgent string
}

type request struct {
	URL       string `json:"url"`
	UserAgent string `json:"user_agent,omitempty"`
	TimeoutMs int64  `json:"timeout_ms,omitempty"`
}

type response struct {
	URL        string `json:"url"`
	HTML       string `json:"html"`
	StatusCode int    `json:"status_code"`
	Error      string `json:"error,omitempty"`
}

// Executor is the render tier. It is unavailable when the worker binary
// is not on PATH, and the cascade skips it at zero cost.
type Executor struct {
	cfg    Config
	path   string
	logger *zap.Logger
}

// New resolves the worker binary. A missing binary is not an error;
// the executor just reports itself unavailable.
func New(cfg Config, logger *zap.Logger) *Executor {
	if cfg.Command == "" {
		cfg.Command = DefaultCommand
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = fetch.DefaultUserAgent
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	path, err := exec.LookPath(cfg.Command)
	if err != nil {
		logger.Info("render worker not found, tier disabled", zap.String("command", cfg.Command))
		path = ""
	}
	return &Executor{cfg: cfg, path: path, logger: logger}
}

func (e *Executor) Name() string     { return "render" }
func (e *Executor) Tier() fetch.Tier { return fetch.TierRender }
func (e *Executor) Available() bool  { return e.path != "" }

// FetchOne renders a single URL in its own worker invocation.
func (e *Executor) FetchOne(ctx context.Context, url string, timeout time.Duration) (fetch.Result, error) {
	out, err := e.FetchMany(ctx, []string{url}, 1, timeout)
	if err != nil {
		return fetch.Result{}, err
	}
	return out[0], nil
}

// FetchMany streams the whole URL set through one worker process. The
// worker owns its internal parallelism; limit is forwarded via argv so
// operators can still cap it.
func (e *Executor) FetchMany(ctx context.Context, urls []string, limit int, timeout time.Duration) ([]fetch.Result, error) {
	if e.path == "" {
		return nil, fmt.Errorf("render worker %q not installed", e.cfg.Command)
	}

	args := append([]string(nil), e.cfg.Args...)
	if limit > 0 {
		args = append(args, fmt.Sprintf("--parallel=%d", limit))
	}
	cmd := exec.CommandContext(ctx, e.path, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("render stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("render stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("render worker start: %w", err)
	}

	started := time.Now()
	writeErr := make(chan error, 1)
	go func() {
		defer stdin.Close() //nolint:errcheck // close error folds into worker exit
		enc := json.NewEncoder(stdin)
		for _, u := range urls {
			req := request{URL: u, UserAgent: e.cfg.UserAgent, TimeoutMs: timeout.Milliseconds()}
			if err := enc.Encode(req); err != nil {
				writeErr <- err
				return
			}
		}
		writeErr <- nil
	}()

	byURL := make(map[string]fetch.Result, len(urls))
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		var resp response
		if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
			e.logger.Warn("render worker emitted malformed line", zap.Error(err))
			continue
		}
		byURL[resp.URL] = fetch.Result{
			URL:        resp.URL,
			HTML:       resp.HTML,
			StatusCode: resp.StatusCode,
			Error:      resp.Error,
			Latency:    time.Since(started),
		}
	}

	waitErr := cmd.Wait()
	if err := <-writeErr; err != nil {
		return nil, fmt.Errorf("render worker write: %w", err)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("render worker read: %w", err)
	}
	if waitErr != nil {
		return nil, fmt.Errorf("render worker exited: %w", waitErr)
	}

	out := make([]fetch.Result, len(urls))
	for i, u := range urls {
		res, ok := byURL[u]
		if !ok {
			res = fetch.Result{URL: u, Error: "render worker returned no result"}
		}
		out[i] = res
	}
	return out, nil
}
