// Package api exposes the HTTP interface for the fetch orchestrator.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zadorian/SEARCH-ENGINEER-sub004/internal/config"
	"github.com/zadorian/SEARCH-ENGINEER-sub004/internal/crawl"
	"github.com/zadorian/SEARCH-ENGINEER-sub004/internal/fetch"
	"github.com/zadorian/SEARCH-ENGINEER-sub004/internal/fetch/cascade"
	"github.com/zadorian/SEARCH-ENGINEER-sub004/internal/metrics"
)

// Orchestrator is the cascade surface the handlers depend on.
type Orchestrator interface {
	Scrape(ctx context.Context, url string) fetch.Result
	ScrapeFrom(ctx context.Context, url string, start fetch.Tier) fetch.Result
	ScrapeBatch(ctx context.Context, urls []string) []fetch.Result
	ScrapeBatchOptimized(ctx context.Context, urls []string, opts cascade.BatchOptions) []fetch.Result
}

// Server wires HTTP handlers to the orchestrator and crawler.
type Server struct {
	router    chi.Router
	orch      Orchestrator
	crawler   *crawl.Crawler
	extractor fetch.Extractor
	cfg       config.Config
	logger    *zap.Logger
}

// NewServer constructs a Server with middleware and routes. extractor
// may be nil to disable entity extraction on responses.
func NewServer(orch Orchestrator, crawler *crawl.Crawler, extractor fetch.Extractor, cfg config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		orch:      orch,
		crawler:   crawler,
		extractor: extractor,
		cfg:       cfg,
		logger:    logger,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(metricsMiddleware)
	r.Use(timeoutMiddleware(5 * time.Minute))
	if cfg.Auth.Enabled {
		r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
	}

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/scrape", s.scrape)
		r.Post("/batch", s.batch)
		r.Post("/crawl", s.crawlDomain)
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	if s.orch == nil {
		s.writeError(w, http.StatusServiceUnavailable, "orchestrator not ready")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write JSON failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
