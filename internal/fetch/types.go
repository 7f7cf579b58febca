// Package fetch defines the tier ordering, result types, and executor
// contract shared by the cascade, the batch optimizer, and the domain
// crawler.
package fetch

import (
	"fmt"
	"time"
)

// Tier identifies one fetch strategy in the strictly ordered fallback
// sequence. Lower values are cheaper and are always tried first.
type Tier int

// Canonical tier order. TierBlocked is the terminal pseudo-tier recorded
// when every enabled tier failed for a URL; it is never executed.
const (
	TierDirect Tier = iota
	TierStatic
	TierRender
	TierHeadless
	TierRemoteA
	TierRemoteB
	TierBlocked
)

var tierNames = map[Tier]string{
	TierDirect:   "direct",
	TierStatic:   "static",
	TierRender:   "render",
	TierHeadless: "headless",
	TierRemoteA:  "remote_a",
	TierRemoteB:  "remote_b",
	TierBlocked:  "blocked",
}

// String returns the stable lowercase name used in config files, logs,
// and metric labels.
func (t Tier) String() string {
	if name, ok := tierNames[t]; ok {
		return name
	}
	return fmt.Sprintf("tier(%d)", int(t))
}

// Paid reports whether the tier calls a metered third-party API. Paid
// tiers are excluded from batch runs unless explicitly opted into.
func (t Tier) Paid() bool {
	return t == TierRemoteA || t == TierRemoteB
}

// ParseTier resolves a tier name back to its Tier value.
func ParseTier(name string) (Tier, error) {
	for t, n := range tierNames {
		if n == name {
			return t, nil
		}
	}
	return TierBlocked, fmt.Errorf("unknown tier %q", name)
}

// CanonicalTiers returns the executable tiers in cascade order.
func CanonicalTiers() []Tier {
	return []Tier{TierDirect, TierStatic, TierRender, TierHeadless, TierRemoteA, TierRemoteB}
}

// Result is the outcome of one (URL, tier) attempt. Results are created
// once and never mutated afterwards; the cascade discards failed
// intermediate results except for their error text.
type Result struct {
	URL           string        `json:"url"`
	HTML          string        `json:"html,omitempty"`
	Tier          Tier          `json:"-"`
	TierName      string        `json:"tier"`
	StatusCode    int           `json:"status_code,omitempty"`
	Latency       time.Duration `json:"-"`
	LatencyMs     int64         `json:"latency_ms"`
	ContentLength int           `json:"content_length"`
	NeedsJS       bool          `json:"needs_js,omitempty"`
	Error         string        `json:"error,omitempty"`
}

// Success reports whether the result counts as usable HTML: a body of at
// least minLength bytes and no recorded error.
func (r Result) Success(minLength int) bool {
	return r.Error == "" && len(r.HTML) >= minLength
}

// Finalize stamps the derived fields so every Result leaving the
// orchestrator is internally consistent.
func (r Result) Finalize(tier Tier) Result {
	r.Tier = tier
	r.TierName = tier.String()
	r.ContentLength = len(r.HTML)
	r.LatencyMs = r.Latency.Milliseconds()
	return r
}

// Failure builds a failed attempt result for a tier.
func Failure(url string, tier Tier, err error) Result {
	msg := "fetch failed"
	if err != nil {
		msg = err.Error()
	}
	return Result{URL: url, Error: msg}.Finalize(tier)
}

// Blocked builds the terminal result returned when all enabled tiers
// were exhausted for a URL.
func Blocked(url, lastError string) Result {
	if lastError == "" {
		lastError = "all fetch tiers failed"
	}
	return Result{URL: url, Error: lastError}.Finalize(TierBlocked)
}
