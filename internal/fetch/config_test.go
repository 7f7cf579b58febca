package fetch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValidates(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultMinValidLength, cfg.MinValidLength)
	assert.Equal(t, DefaultPerDomainLimit, cfg.PerDomainLimit)
	assert.False(t, cfg.AllowPaidInBatch)
}

func TestConfigValidateRejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty user agent", func(c *Config) { c.UserAgent = "" }},
		{"no tiers", func(c *Config) { c.EnabledTiers = nil }},
		{"blocked enabled", func(c *Config) { c.EnabledTiers = []Tier{TierBlocked} }},
		{"zero min length", func(c *Config) { c.MinValidLength = 0 }},
		{"zero domain limit", func(c *Config) { c.PerDomainLimit = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestEnabledRestoresCanonicalOrder(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	// Caller-supplied order is a filter, never a reordering.
	cfg.EnabledTiers = []Tier{TierHeadless, TierDirect, TierStatic, TierDirect}

	assert.Equal(t, []Tier{TierDirect, TierStatic, TierHeadless}, cfg.Enabled())
}

func TestTierSettingFallbacks(t *testing.T) {
	t.Parallel()

	cfg := Config{}
	assert.Equal(t, 30*time.Second, cfg.TierTimeout(TierDirect))
	assert.Equal(t, 1, cfg.TierConcurrency(TierDirect))

	cfg = DefaultConfig()
	assert.Equal(t, 500, cfg.TierConcurrency(TierStatic))
	assert.Equal(t, 45*time.Second, cfg.TierTimeout(TierHeadless))
}
