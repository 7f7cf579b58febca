package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zadorian/SEARCH-ENGINEER-sub004/internal/fetch"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, fetch.DefaultUserAgent, cfg.Cascade.UserAgent)
	assert.Equal(t, fetch.DefaultMinValidLength, cfg.Cascade.MinValidLength)
	assert.False(t, cfg.Cascade.AllowPaidInBatch)
	assert.Equal(t, 200, cfg.Governor.GlobalLimit)
	assert.Equal(t, 100, cfg.Tiers.Direct.Concurrency)
	assert.Equal(t, 5, cfg.Tiers.RemoteA.Concurrency)
	assert.Equal(t, "render-worker", cfg.Render.Command)
	assert.True(t, cfg.Logging.Development)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("CASCADE_SERVER_PORT", "9191")
	t.Setenv("CASCADE_CASCADE_USER_AGENT", "env-bot/2.0")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, "env-bot/2.0", cfg.Cascade.UserAgent)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 7070
cascade:
  enabled_tiers: ["direct", "static"]
  forced_tier: "static"
crawl:
  max_pages: 25
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, []string{"direct", "static"}, cfg.Cascade.EnabledTiers)
	assert.Equal(t, 25, cfg.Crawl.MaxPages)

	fc, err := cfg.FetchConfig()
	require.NoError(t, err)
	assert.Equal(t, []fetch.Tier{fetch.TierDirect, fetch.TierStatic}, fc.EnabledTiers)
	assert.True(t, fc.ForcedTierSet)
	assert.Equal(t, fetch.TierStatic, fc.ForcedTier)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	base, err := Load("")
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"empty user agent", func(c *Config) { c.Cascade.UserAgent = "" }},
		{"no tiers", func(c *Config) { c.Cascade.EnabledTiers = nil }},
		{"unknown tier", func(c *Config) { c.Cascade.EnabledTiers = []string{"direct", "warp"} }},
		{"unknown forced tier", func(c *Config) { c.Cascade.ForcedTier = "warp" }},
		{"bad min length", func(c *Config) { c.Cascade.MinValidLength = 0 }},
		{"bad domain limit", func(c *Config) { c.Governor.PerDomainLimit = 0 }},
		{"headless without parallel", func(c *Config) { c.Headless.Enabled = true; c.Headless.MaxParallel = 0 }},
		{"auth without key", func(c *Config) { c.Auth.Enabled = true; c.Auth.APIKey = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestFetchConfigDropsDisabledHeadless(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	cfg.Headless.Enabled = false

	fc, err := cfg.FetchConfig()
	require.NoError(t, err)
	for _, tier := range fc.EnabledTiers {
		assert.NotEqual(t, fetch.TierHeadless, tier)
	}
}

func TestDurationHelpers(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, int64(500), cfg.SettleDelay().Milliseconds())
	assert.Equal(t, int64(500), cfg.FlushInterval().Milliseconds())
	assert.Zero(t, cfg.CrawlDelay())
}
