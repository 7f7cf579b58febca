package fetch

import (
	"fmt"
	"time"
)

// Defaults applied by DefaultConfig and by the accessors when a tier has
// no explicit settings.
const (
	DefaultMinValidLength = 100
	DefaultPerDomainLimit = 10
	DefaultUserAgent      = "search-engineer-bot/1.0"
)

// TierSettings carries the per-tier knobs.
type TierSettings struct {
	Timeout     time.Duration
	Concurrency int
}

// Config is the immutable configuration for one cascade or batch run.
// EnabledTiers is an order-preserving filter of the canonical order;
// callers may skip cheaper tiers via ForcedTier but may never reorder.
type Config struct {
	UserAgent      string
	EnabledTiers   []Tier
	ForcedTier     Tier
	ForcedTierSet  bool
	PerDomainLimit int
	MinValidLength int

	// AllowPaidInBatch opts the metered remote tiers into batch runs.
	// They are excluded by default because a large batch against a paid
	// API is an expensive mistake to make implicitly.
	AllowPaidInBatch bool

	Tiers map[Tier]TierSettings
}

// DefaultConfig returns a Config with every canonical tier enabled and
// the stock ceilings: high parallelism for the cheap static tiers, tens
// for the browser tier, single digits for the paid APIs.
func DefaultConfig() Config {
	return Config{
		UserAgent:      DefaultUserAgent,
		EnabledTiers:   CanonicalTiers(),
		PerDomainLimit: DefaultPerDomainLimit,
		MinValidLength: DefaultMinValidLength,
		Tiers: map[Tier]TierSettings{
			TierDirect:   {Timeout: 15 * time.Second, Concurrency: 100},
			TierStatic:   {Timeout: 30 * time.Second, Concurrency: 500},
			TierRender:   {Timeout: 60 * time.Second, Concurrency: 200},
			TierHeadless: {Timeout: 45 * time.Second, Concurrency: 25},
			TierRemoteA:  {Timeout: 60 * time.Second, Concurrency: 5},
			TierRemoteB:  {Timeout: 60 * time.Second, Concurrency: 5},
		},
	}
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.UserAgent == "" {
		return fmt.Errorf("user agent must be set")
	}
	if len(c.EnabledTiers) == 0 {
		return fmt.Errorf("at least one tier must be enabled")
	}
	for _, t := range c.EnabledTiers {
		if t == TierBlocked {
			return fmt.Errorf("blocked is a terminal state, not an enableable tier")
		}
	}
	if c.MinValidLength <= 0 {
		return fmt.Errorf("min_valid_length must be > 0")
	}
	if c.PerDomainLimit <= 0 {
		return fmt.Errorf("per_domain_limit must be > 0")
	}
	return nil
}

// Enabled returns the enabled tiers restored to canonical order,
// deduplicated. The caller-supplied EnabledTiers is a filter, never a
// reordering.
func (c Config) Enabled() []Tier {
	want := make(map[Tier]bool, len(c.EnabledTiers))
	for _, t := range c.EnabledTiers {
		want[t] = true
	}
	var out []Tier
	for _, t := range CanonicalTiers() {
		if want[t] {
			out = append(out, t)
		}
	}
	return out
}

// TierTimeout returns the timeout for a tier, falling back to 30s.
func (c Config) TierTimeout(t Tier) time.Duration {
	if s, ok := c.Tiers[t]; ok && s.Timeout > 0 {
		return s.Timeout
	}
	return 30 * time.Second
}

// TierConcurrency returns the concurrency ceiling for a tier, falling
// back to 1.
func (c Config) TierConcurrency(t Tier) int {
	if s, ok := c.Tiers[t]; ok && s.Concurrency > 0 {
		return s.Concurrency
	}
	return 1
}
