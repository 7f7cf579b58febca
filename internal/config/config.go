// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/zadorian/SEARCH-ENGINEER-sub004/internal/fetch"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Cascade  CascadeConfig  `mapstructure:"cascade"`
	Governor GovernorConfig `mapstructure:"governor"`
	Tiers    TiersConfig    `mapstructure:"tiers"`
	Render   RenderConfig   `mapstructure:"render"`
	Headless HeadlessConfig `mapstructure:"headless"`
	RemoteA  RemoteConfig   `mapstructure:"remote_a"`
	RemoteB  RemoteConfig   `mapstructure:"remote_b"`
	Crawl    CrawlConfig    `mapstructure:"crawl"`
	Progress ProgressConfig `mapstructure:"progress"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// CascadeConfig governs the tier cascade itself.
type CascadeConfig struct {
	UserAgent        string   `mapstructure:"user_agent"`
	EnabledTiers     []string `mapstructure:"enabled_tiers"`
	ForcedTier       string   `mapstructure:"forced_tier"`
	MinValidLength   int      `mapstructure:"min_valid_length"`
	AllowPaidInBatch bool     `mapstructure:"allow_paid_in_batch"`
	RespectRobots    bool     `mapstructure:"respect_robots"`
}

// GovernorConfig bounds total and per-domain request concurrency, plus
// an optional per-domain request rate. A zero DomainRPS disables pacing.
type GovernorConfig struct {
	GlobalLimit    int     `mapstructure:"global_limit"`
	PerDomainLimit int     `mapstructure:"per_domain_limit"`
	DomainRPS      float64 `mapstructure:"domain_rps"`
	DomainBurst    int     `mapstructure:"domain_burst"`
}

// TierConfig sets one tier's request timeout and worker ceiling.
type TierConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
	Concurrency    int `mapstructure:"concurrency"`
}

// TiersConfig holds per-tier settings keyed by tier.
type TiersConfig struct {
	Direct   TierConfig `mapstructure:"direct"`
	Static   TierConfig `mapstructure:"static"`
	Render   TierConfig `mapstructure:"render"`
	Headless TierConfig `mapstructure:"headless"`
	RemoteA  TierConfig `mapstructure:"remote_a"`
	RemoteB  TierConfig `mapstructure:"remote_b"`
}

// RenderConfig configures the external JS rendering worker.
type RenderConfig struct {
	Command string `mapstructure:"command"`
}

// HeadlessConfig configures the browser tier.
type HeadlessConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxParallel   int  `mapstructure:"max_parallel"`
	SettleDelayMs int  `mapstructure:"settle_delay_ms"`
}

// RemoteConfig holds one paid provider's account settings.
type RemoteConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	APIKey   string `mapstructure:"api_key"`
}

// CrawlConfig sets the default bounds for domain crawls.
type CrawlConfig struct {
	MaxDepth     int `mapstructure:"max_depth"`
	MaxPages     int `mapstructure:"max_pages"`
	Concurrency  int `mapstructure:"concurrency"`
	DelaySeconds int `mapstructure:"delay_seconds"`
	OutlinkSeeds int `mapstructure:"outlink_seeds"`
}

// ProgressConfig tunes the event hub.
type ProgressConfig struct {
	BufferSize      int `mapstructure:"buffer_size"`
	FlushIntervalMs int `mapstructure:"flush_interval_ms"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CASCADE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("cascade.user_agent", fetch.DefaultUserAgent)
	v.SetDefault("cascade.enabled_tiers", []string{"direct", "static", "render", "headless", "remote_a", "remote_b"})
	v.SetDefault("cascade.min_valid_length", fetch.DefaultMinValidLength)
	v.SetDefault("cascade.allow_paid_in_batch", false)
	v.SetDefault("cascade.respect_robots", false)
	v.SetDefault("governor.global_limit", 200)
	v.SetDefault("governor.per_domain_limit", fetch.DefaultPerDomainLimit)
	v.SetDefault("governor.domain_rps", 0.0)
	v.SetDefault("governor.domain_burst", 1)
	v.SetDefault("tiers.direct.timeout_seconds", 15)
	v.SetDefault("tiers.direct.concurrency", 100)
	v.SetDefault("tiers.static.timeout_seconds", 30)
	v.SetDefault("tiers.static.concurrency", 500)
	v.SetDefault("tiers.render.timeout_seconds", 60)
	v.SetDefault("tiers.render.concurrency", 200)
	v.SetDefault("tiers.headless.timeout_seconds", 45)
	v.SetDefault("tiers.headless.concurrency", 25)
	v.SetDefault("tiers.remote_a.timeout_seconds", 60)
	v.SetDefault("tiers.remote_a.concurrency", 5)
	v.SetDefault("tiers.remote_b.timeout_seconds", 60)
	v.SetDefault("tiers.remote_b.concurrency", 5)
	v.SetDefault("render.command", "render-worker")
	v.SetDefault("headless.enabled", true)
	v.SetDefault("headless.max_parallel", 4)
	v.SetDefault("headless.settle_delay_ms", 500)
	v.SetDefault("crawl.max_depth", 2)
	v.SetDefault("crawl.max_pages", 100)
	v.SetDefault("crawl.concurrency", 8)
	v.SetDefault("crawl.delay_seconds", 0)
	v.SetDefault("crawl.outlink_seeds", 0)
	v.SetDefault("progress.buffer_size", 4096)
	v.SetDefault("progress.flush_interval_ms", 500)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Cascade.UserAgent == "" {
		return fmt.Errorf("cascade.user_agent must be set")
	}
	if len(c.Cascade.EnabledTiers) == 0 {
		return fmt.Errorf("cascade.enabled_tiers must name at least one tier")
	}
	for _, name := range c.Cascade.EnabledTiers {
		if _, err := fetch.ParseTier(name); err != nil {
			return fmt.Errorf("cascade.enabled_tiers: %w", err)
		}
	}
	if c.Cascade.ForcedTier != "" {
		if _, err := fetch.ParseTier(c.Cascade.ForcedTier); err != nil {
			return fmt.Errorf("cascade.forced_tier: %w", err)
		}
	}
	if c.Cascade.MinValidLength <= 0 {
		return fmt.Errorf("cascade.min_valid_length must be > 0")
	}
	if c.Governor.PerDomainLimit <= 0 {
		return fmt.Errorf("governor.per_domain_limit must be > 0")
	}
	if c.Headless.Enabled && c.Headless.MaxParallel <= 0 {
		return fmt.Errorf("headless.max_parallel must be > 0 when headless is enabled")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	return nil
}

// FetchConfig translates the loaded configuration into the cascade's
// runtime form.
func (c Config) FetchConfig() (fetch.Config, error) {
	out := fetch.Config{
		UserAgent:        c.Cascade.UserAgent,
		PerDomainLimit:   c.Governor.PerDomainLimit,
		MinValidLength:   c.Cascade.MinValidLength,
		AllowPaidInBatch: c.Cascade.AllowPaidInBatch,
		Tiers: map[fetch.Tier]fetch.TierSettings{
			fetch.TierDirect:   c.Tiers.Direct.settings(),
			fetch.TierStatic:   c.Tiers.Static.settings(),
			fetch.TierRender:   c.Tiers.Render.settings(),
			fetch.TierHeadless: c.Tiers.Headless.settings(),
			fetch.TierRemoteA:  c.Tiers.RemoteA.settings(),
			fetch.TierRemoteB:  c.Tiers.RemoteB.settings(),
		},
	}
	for _, name := range c.Cascade.EnabledTiers {
		tier, err := fetch.ParseTier(name)
		if err != nil {
			return fetch.Config{}, err
		}
		if tier == fetch.TierHeadless && !c.Headless.Enabled {
			continue
		}
		out.EnabledTiers = append(out.EnabledTiers, tier)
	}
	if c.Cascade.ForcedTier != "" {
		tier, err := fetch.ParseTier(c.Cascade.ForcedTier)
		if err != nil {
			return fetch.Config{}, err
		}
		out.ForcedTier = tier
		out.ForcedTierSet = true
	}
	return out, nil
}

func (t TierConfig) settings() fetch.TierSettings {
	return fetch.TierSettings{
		Timeout:     time.Duration(t.TimeoutSeconds) * time.Second,
		Concurrency: t.Concurrency,
	}
}

// CrawlDelay returns the politeness delay as a duration.
func (c Config) CrawlDelay() time.Duration {
	return time.Duration(c.Crawl.DelaySeconds) * time.Second
}

// SettleDelay returns the headless settle pause as a duration.
func (c Config) SettleDelay() time.Duration {
	return time.Duration(c.Headless.SettleDelayMs) * time.Millisecond
}

// FlushInterval returns the progress hub flush cadence as a duration.
func (c Config) FlushInterval() time.Duration {
	return time.Duration(c.Progress.FlushIntervalMs) * time.Millisecond
}
