// Appscope - Mobile App Market Intelligence and Review Harvesting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/appscope

// Package config loads and validates the Appscope service configuration
// from defaults, an optional YAML file, and environment variables.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the crawl service.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
	Fetch    FetchConfig    `koanf:"fetch"`
	Cache    CacheConfig    `koanf:"cache"`
	Feed     FeedConfig     `koanf:"feed"`
	Browser  BrowserConfig  `koanf:"browser"`
	Reddit   RedditConfig   `koanf:"reddit"`
	Website  WebsiteConfig  `koanf:"website"`
	Jobs     JobsConfig     `koanf:"jobs"`
	Catalog  CatalogConfig  `koanf:"catalog"`
	Metrics  MetricsConfig  `koanf:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	MaxBodyBytes    int64         `koanf:"max_body_bytes"`
}

// SecurityConfig holds inbound-surface protections.
type SecurityConfig struct {
	APIKey             string   `koanf:"api_key"`
	CORSOrigins        []string `koanf:"cors_origins"`
	RateLimitPerMinute int      `koanf:"rate_limit_per_minute"`
	RateLimitBurst     int      `koanf:"rate_limit_burst"`
	RateLimitDisabled  bool     `koanf:"rate_limit_disabled"`
}

// LoggingConfig holds log settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// FetchConfig tunes the shared fetch substrate.
type FetchConfig struct {
	// RequestsPerMinute is the global sliding-window ceiling.
	RequestsPerMinute int `koanf:"requests_per_minute"`
	// PerOriginPerMinute is the per-origin sliding-window ceiling.
	PerOriginPerMinute int `koanf:"per_origin_per_minute"`
	// MaxConcurrent caps in-flight outbound requests.
	MaxConcurrent int `koanf:"max_concurrent"`
	// RetryBaseDelay is the base for exponential retry backoff.
	RetryBaseDelay time.Duration `koanf:"retry_base_delay"`
	// Timeout is the per-request HTTP client timeout.
	Timeout time.Duration `koanf:"timeout"`
	// UserAgent is sent on every outbound request.
	UserAgent string `koanf:"user_agent"`
}

// CacheConfig tunes the two-tier content cache.
type CacheConfig struct {
	// Path is the badger directory for the durable tier.
	// Empty disables the durable tier.
	Path string `koanf:"path"`
	// MemoryCapacity caps the in-memory tier entry count.
	MemoryCapacity int `koanf:"memory_capacity"`
	// DefaultTTL is applied when a write does not specify one.
	DefaultTTL time.Duration `koanf:"default_ttl"`
	// GCInterval is the badger value-log GC cadence.
	GCInterval time.Duration `koanf:"gc_interval"`
}

// FeedConfig tunes the feed-based review collector.
type FeedConfig struct {
	BaseDelay      time.Duration `koanf:"base_delay"`
	Randomization  float64       `koanf:"randomization"`
	FilterCooldown time.Duration `koanf:"filter_cooldown"`
	AutoThrottle   bool          `koanf:"auto_throttle"`
	PhaseBudget    time.Duration `koanf:"phase_budget"`
}

// BrowserConfig tunes the scripted-browser review collector.
type BrowserConfig struct {
	Enabled     bool          `koanf:"enabled"`
	Headless    bool          `koanf:"headless"`
	PhaseBudget time.Duration `koanf:"phase_budget"`
	NavTimeout  time.Duration `koanf:"nav_timeout"`
}

// RedditConfig tunes the discussion crawlers.
type RedditConfig struct {
	UserAgent       string        `koanf:"user_agent"`
	RequestGap      time.Duration `koanf:"request_gap"`
	RetryAfter      time.Duration `koanf:"retry_after"`
	MaxCommentDepth int           `koanf:"max_comment_depth"`
}

// WebsiteConfig tunes the landing-page extractor.
type WebsiteConfig struct {
	MaxPages     int           `koanf:"max_pages"`
	SubpageDelay time.Duration `koanf:"subpage_delay"`
}

// JobsConfig tunes the async job registry.
type JobsConfig struct {
	Retention    time.Duration `koanf:"retention"`
	ReapInterval time.Duration `koanf:"reap_interval"`
	MaxQueued    int           `koanf:"max_queued"`
}

// CatalogConfig locates the persistent fallback-list stores.
type CatalogConfig struct {
	DataDir string `koanf:"data_dir"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `koanf:"enabled"`
}

// defaultConfig returns a Config with all defaults applied. Defaults are
// loaded first, then overridden by the config file and environment.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8000,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    10 * time.Minute, // streaming crawls outlive typical timeouts
			ShutdownTimeout: 15 * time.Second,
			MaxBodyBytes:    100 * 1024,
		},
		Security: SecurityConfig{
			APIKey:             "",
			CORSOrigins:        []string{},
			RateLimitPerMinute: 60,
			RateLimitBurst:     10,
			RateLimitDisabled:  false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Fetch: FetchConfig{
			RequestsPerMinute:  60,
			PerOriginPerMinute: 30,
			MaxConcurrent:      8,
			RetryBaseDelay:     2 * time.Second,
			Timeout:            30 * time.Second,
			UserAgent:          "Appscope/1.0 (market research; contact via repo)",
		},
		Cache: CacheConfig{
			Path:           "/data/appscope/cache",
			MemoryCapacity: 100,
			DefaultTTL:     time.Hour,
			GCInterval:     10 * time.Minute,
		},
		Feed: FeedConfig{
			BaseDelay:      2 * time.Second,
			Randomization:  30,
			FilterCooldown: 5 * time.Second,
			AutoThrottle:   true,
			PhaseBudget:    90 * time.Second,
		},
		Browser: BrowserConfig{
			Enabled:     true,
			Headless:    true,
			PhaseBudget: 300 * time.Second,
			NavTimeout:  30 * time.Second,
		},
		Reddit: RedditConfig{
			UserAgent:       "Appscope/1.0 (by /u/appscope_bot; market research)",
			RequestGap:      1500 * time.Millisecond,
			RetryAfter:      60 * time.Second,
			MaxCommentDepth: 3,
		},
		Website: WebsiteConfig{
			MaxPages:     10,
			SubpageDelay: 500 * time.Millisecond,
		},
		Jobs: JobsConfig{
			Retention:    time.Hour,
			ReapInterval: 5 * time.Minute,
			MaxQueued:    32,
		},
		Catalog: CatalogConfig{
			DataDir: "/data/appscope/catalog",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate checks the configuration for values the service cannot start
// with. It returns an error with a remediation hint.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range; set PORT to 1-65535", c.Server.Port)
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("server.max_body_bytes must be positive")
	}
	if c.Security.RateLimitPerMinute <= 0 {
		return fmt.Errorf("security.rate_limit_per_minute must be positive; set RATE_LIMIT_PER_MINUTE")
	}
	if c.Security.RateLimitBurst <= 0 {
		return fmt.Errorf("security.rate_limit_burst must be positive; set RATE_LIMIT_BURST")
	}
	for _, origin := range c.Security.CORSOrigins {
		if origin == "*" {
			return fmt.Errorf("security.cors_origins must not contain a wildcard; list explicit origins in CORS_ALLOWED_ORIGINS")
		}
	}
	if c.Fetch.RequestsPerMinute <= 0 || c.Fetch.PerOriginPerMinute <= 0 {
		return fmt.Errorf("fetch rate ceilings must be positive")
	}
	if c.Fetch.MaxConcurrent <= 0 {
		return fmt.Errorf("fetch.max_concurrent must be positive")
	}
	if c.Cache.MemoryCapacity <= 0 {
		return fmt.Errorf("cache.memory_capacity must be positive")
	}
	if c.Reddit.MaxCommentDepth < 0 || c.Reddit.MaxCommentDepth > 10 {
		return fmt.Errorf("reddit.max_comment_depth %d out of range 0-10", c.Reddit.MaxCommentDepth)
	}
	if c.Website.MaxPages < 1 {
		return fmt.Errorf("website.max_pages must be at least 1")
	}
	return nil
}
