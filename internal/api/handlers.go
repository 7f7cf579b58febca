package api

import (
	"encoding/json"
	"net/http"

	"github.com/zadorian/SEARCH-ENGINEER-sub004/internal/crawl"
	"github.com/zadorian/SEARCH-ENGINEER-sub004/internal/extract"
	"github.com/zadorian/SEARCH-ENGINEER-sub004/internal/fetch"
	"github.com/zadorian/SEARCH-ENGINEER-sub004/internal/fetch/cascade"
)

type scrapeRequest struct {
	URL       string `json:"url"`
	ForceTier string `json:"force_tier,omitempty"`
	Extract   bool   `json:"extract,omitempty"`
}

type scrapeResponse struct {
	Result   fetch.Result        `json:"result"`
	Entities map[string][]string `json:"entities,omitempty"`
}

func (s *Server) scrape(w http.ResponseWriter, r *http.Request) {
	var req scrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.URL == "" {
		s.writeError(w, http.StatusBadRequest, "url required")
		return
	}

	var result fetch.Result
	if req.ForceTier != "" {
		tier, err := fetch.ParseTier(req.ForceTier)
		if err != nil || tier == fetch.TierBlocked {
			s.writeError(w, http.StatusBadRequest, "unknown tier")
			return
		}
		result = s.orch.ScrapeFrom(r.Context(), req.URL, tier)
	} else {
		result = s.orch.Scrape(r.Context(), req.URL)
	}

	resp := scrapeResponse{Result: result}
	if req.Extract && s.extractor != nil && result.Success(1) {
		entities, err := s.extractor.Extract(r.Context(), result.URL, result.HTML)
		if err == nil {
			resp.Entities = entities
		}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

type batchRequest struct {
	URLs []string `json:"urls"`
	// Optimized selects the phase-based strategy; it is the default.
	Optimized *bool `json:"optimized,omitempty"`
	AllowPaid bool  `json:"allow_paid,omitempty"`
	Extract   bool  `json:"extract,omitempty"`
}

type batchResponse struct {
	Results  []fetch.Result                 `json:"results"`
	Resolved int                            `json:"resolved"`
	Blocked  int                            `json:"blocked"`
	Entities map[string]map[string][]string `json:"entities,omitempty"`
}

const maxBatchURLs = 10000

func (s *Server) batch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if len(req.URLs) == 0 {
		s.writeError(w, http.StatusBadRequest, "urls required")
		return
	}
	if len(req.URLs) > maxBatchURLs {
		s.writeError(w, http.StatusBadRequest, "too many urls")
		return
	}

	var results []fetch.Result
	if req.Optimized == nil || *req.Optimized {
		results = s.orch.ScrapeBatchOptimized(r.Context(), req.URLs, cascade.BatchOptions{AllowPaid: req.AllowPaid})
	} else {
		results = s.orch.ScrapeBatch(r.Context(), req.URLs)
	}

	resp := batchResponse{Results: results}
	for _, res := range results {
		if res.Tier == fetch.TierBlocked {
			resp.Blocked++
		} else if res.Error == "" {
			resp.Resolved++
		}
	}
	if req.Extract && s.extractor != nil {
		resp.Entities = extract.ExtractResults(r.Context(), s.extractor, results, 1, 8)
	}
	s.writeJSON(w, http.StatusOK, resp)
}

type crawlRequest struct {
	Seed string `json:"seed"`
	// MaxDepth overrides the configured depth bound. An explicit 0
	// fetches the seed page only.
	MaxDepth     *int `json:"max_depth,omitempty"`
	MaxPages     int  `json:"max_pages,omitempty"`
	OutlinkSeeds int  `json:"outlink_seeds,omitempty"`
}

type crawlResponse struct {
	Result    *crawl.Result   `json:"result"`
	Neighbors []*crawl.Result `json:"neighbors,omitempty"`
}

func (s *Server) crawlDomain(w http.ResponseWriter, r *http.Request) {
	var req crawlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Seed == "" {
		s.writeError(w, http.StatusBadRequest, "seed required")
		return
	}
	if s.crawler == nil {
		s.writeError(w, http.StatusServiceUnavailable, "crawler not configured")
		return
	}

	crawler := s.crawler
	if req.MaxDepth != nil || req.MaxPages > 0 {
		depth := s.cfg.Crawl.MaxDepth
		if req.MaxDepth != nil {
			depth = *req.MaxDepth
		}
		crawler = crawler.WithOptions(crawl.Options{
			MaxDepth:       depth,
			MaxPages:       req.MaxPages,
			Concurrency:    s.cfg.Crawl.Concurrency,
			Delay:          s.cfg.CrawlDelay(),
			MinValidLength: s.cfg.Cascade.MinValidLength,
		})
	}

	if req.OutlinkSeeds > 0 {
		primary, neighbors, err := crawler.CrawlWithOutlinks(r.Context(), req.Seed, req.OutlinkSeeds)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.writeJSON(w, http.StatusOK, crawlResponse{Result: primary, Neighbors: neighbors})
		return
	}

	result, err := crawler.Crawl(r.Context(), req.Seed)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, crawlResponse{Result: result})
}
