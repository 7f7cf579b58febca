// Package metrics exposes Prometheus collectors for the fetch orchestrator.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	tierAttemptsTotal       *prometheus.CounterVec
	tierBytesTotal          *prometheus.CounterVec
	cascadeBlockedTotal     prometheus.Counter
	batchPhaseSeconds       *prometheus.HistogramVec
	governorWaitSeconds     *prometheus.HistogramVec
	rateLimitDelaySeconds   *prometheus.HistogramVec
	crawlPagesTotal         *prometheus.CounterVec
	httpRequestsTotal       *prometheus.CounterVec
	httpRequestDurationSecs *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus collectors. It is safe to call
// multiple times.
func Init() {
	once.Do(func() {
		tierAttemptsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fetch_tier_attempts_total",
				Help: "Fetch attempts, labeled by tier and outcome (success, failure, error).",
			},
			[]string{"tier", "outcome"},
		)

		tierBytesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fetch_tier_bytes_total",
				Help: "Bytes of HTML obtained, labeled by tier.",
			},
			[]string{"tier"},
		)

		cascadeBlockedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "fetch_cascade_blocked_total",
				Help: "URLs for which every enabled tier failed.",
			},
		)

		batchPhaseSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fetch_batch_phase_seconds",
				Help:    "Duration of one batched tier phase, labeled by tier.",
				Buckets: []float64{0.5, 1, 5, 15, 30, 60, 120, 300},
			},
			[]string{"tier"},
		)

		governorWaitSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fetch_governor_wait_seconds",
				Help:    "Time spent waiting on global/per-domain permits.",
				Buckets: []float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"domain"},
		)

		rateLimitDelaySeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fetch_ratelimit_delay_seconds",
				Help:    "Delay introduced by per-domain request rate limiting.",
				Buckets: []float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"domain"},
		)

		crawlPagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawl_pages_total",
				Help: "Pages yielded by the domain crawler, labeled by host and status.",
			},
			[]string{"host", "status"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "API requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSecs = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "API request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// SanitizeHost extracts a lowercase hostname suitable as a metric label.
// It returns "unknown" if the URL is invalid.
func SanitizeHost(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler exposing the Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveTierAttempt records one (URL, tier) attempt.
func ObserveTierAttempt(tier, outcome string, bytesFetched int) {
	if tierAttemptsTotal == nil {
		return
	}
	tierAttemptsTotal.WithLabelValues(tier, outcome).Inc()
	if bytesFetched > 0 {
		tierBytesTotal.WithLabelValues(tier).Add(float64(bytesFetched))
	}
}

// ObserveBlocked counts a URL that exhausted every enabled tier.
func ObserveBlocked() {
	if cascadeBlockedTotal == nil {
		return
	}
	cascadeBlockedTotal.Inc()
}

// ObserveBatchPhase records the duration of one batched tier phase.
func ObserveBatchPhase(tier string, duration time.Duration) {
	if batchPhaseSeconds == nil {
		return
	}
	batchPhaseSeconds.WithLabelValues(tier).Observe(duration.Seconds())
}

// ObserveGovernorWait records time spent acquiring concurrency permits.
func ObserveGovernorWait(domain string, duration time.Duration) {
	if governorWaitSeconds == nil {
		return
	}
	governorWaitSeconds.WithLabelValues(domain).Observe(duration.Seconds())
}

// ObserveRateLimitDelay records time spent waiting on the per-domain
// request rate limiter.
func ObserveRateLimitDelay(domain string, duration time.Duration) {
	if rateLimitDelaySeconds == nil {
		return
	}
	rateLimitDelaySeconds.WithLabelValues(domain).Observe(duration.Seconds())
}

// ObserveCrawlPage counts a page yielded by the domain crawler.
func ObserveCrawlPage(host string, statusCode int) {
	if crawlPagesTotal == nil {
		return
	}
	crawlPagesTotal.WithLabelValues(SanitizeHost(host), strconv.Itoa(statusCode)).Inc()
}

// ObserveHTTPRequest records an API request.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSecs.WithLabelValues(method, route).Observe(duration.Seconds())
}
