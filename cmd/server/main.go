// Appscope - Mobile App Market Intelligence and Review Harvesting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/appscope

// Package main is the entry point for the Appscope server.
//
// Appscope is a self-hosted crawl service for mobile-app market
// intelligence: App Store review harvesting (feed and scripted-browser
// phases), version-history and privacy-label lookups, multi-country
// top-chart sweeps, Reddit discussion crawls, and landing-page
// extraction, exposed over a JSON/SSE HTTP API.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: layered defaults, config file, environment (Koanf v2)
//  2. Cache: in-memory tier plus an optional BadgerDB durable tier
//  3. Fetch substrate: shared rate-limited HTTP client for all collectors
//  4. Collectors: feed, browser (optional), App Store, Reddit, website
//  5. Job manager: bounded worker pool for async batch harvests
//  6. HTTP server: chi router with the full middleware stack
//
// Everything long-running goes under a suture supervision tree with
// storage, worker, and API layers, so a crashing component restarts
// without taking down its siblings.
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins):
//   - Environment variables (PORT, API_KEY, CACHE_PATH, ...)
//   - Config file (CONFIG_PATH, ./config.yaml, /etc/appscope/config.yaml)
//   - Built-in defaults
//
// # Signal Handling
//
// The server handles graceful shutdown on SIGINT and SIGTERM:
//   - Stops accepting new connections
//   - Waits for in-flight requests to complete (shutdown timeout)
//   - Stops the job workers and the cache GC loop
//   - Closes the durable cache tier
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/appscope/internal/api"
	"github.com/tomtom215/appscope/internal/cache"
	"github.com/tomtom215/appscope/internal/catalog"
	"github.com/tomtom215/appscope/internal/collector/appstore"
	"github.com/tomtom215/appscope/internal/collector/browser"
	"github.com/tomtom215/appscope/internal/collector/feed"
	"github.com/tomtom215/appscope/internal/collector/reddit"
	"github.com/tomtom215/appscope/internal/collector/website"
	"github.com/tomtom215/appscope/internal/config"
	"github.com/tomtom215/appscope/internal/fetch"
	"github.com/tomtom215/appscope/internal/jobs"
	"github.com/tomtom215/appscope/internal/logging"
	"github.com/tomtom215/appscope/internal/middleware"
	"github.com/tomtom215/appscope/internal/pipeline"
	"github.com/tomtom215/appscope/internal/supervisor"
	"github.com/tomtom215/appscope/internal/supervisor/services"
)

// version is stamped at build time:
//
//	go build -ldflags "-X main.version=$(git describe --tags)" ./cmd/server
var version = "dev"

func main() {
	// Load configuration first to get logging settings.
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("version", version).
		Bool("browser_enabled", cfg.Browser.Enabled).
		Bool("metrics_enabled", cfg.Metrics.Enabled).
		Msg("Starting Appscope")

	// Cache. The durable tier is optional; an empty path leaves the
	// cache memory-only.
	var durable *cache.DurableTier
	if cfg.Cache.Path != "" {
		durable, err = cache.OpenDurableTier(cfg.Cache.Path)
		if err != nil {
			logging.Fatal().Err(err).Str("path", cfg.Cache.Path).
				Msg("Failed to open durable cache (set CACHE_PATH to a writable directory, or empty to disable)")
		}
		logging.Info().Str("path", cfg.Cache.Path).Msg("Durable cache tier opened")
	} else {
		logging.Info().Msg("Durable cache tier disabled, running memory-only")
	}
	tiered := cache.New(cache.Options{
		MemoryCapacity: cfg.Cache.MemoryCapacity,
		DefaultTTL:     cfg.Cache.DefaultTTL,
		Durable:        durable,
	})

	// Shared fetch substrate. Every collector's outbound traffic passes
	// this client's rate limiter.
	limiter := fetch.NewLimiter(
		cfg.Fetch.RequestsPerMinute,
		cfg.Fetch.PerOriginPerMinute,
		cfg.Fetch.MaxConcurrent,
	)
	client := fetch.NewClient(fetch.Config{
		Limiter:        limiter,
		Cache:          tiered,
		Timeout:        cfg.Fetch.Timeout,
		RetryBaseDelay: cfg.Fetch.RetryBaseDelay,
		UserAgent:      cfg.Fetch.UserAgent,
	})

	// Collectors.
	feedCollector := feed.NewCollector(client)
	var browserCollector pipeline.BrowserCollector
	if cfg.Browser.Enabled {
		browserCollector = browser.NewCollector(client, browser.Options{
			Headless:   cfg.Browser.Headless,
			NavTimeout: cfg.Browser.NavTimeout,
		})
		logging.Info().Bool("headless", cfg.Browser.Headless).Msg("Browser collector enabled")
	} else {
		logging.Info().Msg("Browser collector disabled, review harvests run feed-only")
	}

	orchestrator := pipeline.NewOrchestrator(feedCollector, browserCollector)
	orchestrator.SetPhaseBudgets(cfg.Feed.PhaseBudget, cfg.Browser.PhaseBudget)

	redditCrawler := reddit.NewCrawler(client, reddit.Options{
		UserAgent:       cfg.Reddit.UserAgent,
		RequestGap:      cfg.Reddit.RequestGap,
		RetryAfter:      cfg.Reddit.RetryAfter,
		MaxCommentDepth: cfg.Reddit.MaxCommentDepth,
	})
	websiteExtractor := website.NewExtractor(client, website.Options{
		MaxPages:     cfg.Website.MaxPages,
		SubpageDelay: cfg.Website.SubpageDelay,
	})
	storeClient := appstore.NewClient(client)

	// Async job registry and its reaper.
	manager := jobs.NewManager(jobs.Options{
		QueueDepth:   cfg.Jobs.MaxQueued,
		Retention:    cfg.Jobs.Retention,
		ReapInterval: cfg.Jobs.ReapInterval,
	})

	// Curated catalogs.
	palettes := catalog.NewPalettes(cfg.Catalog.DataDir)
	fontPairs := catalog.NewFontPairs(cfg.Catalog.DataDir)

	server := api.NewServer(api.Config{
		Version:        version,
		CORSOrigins:    cfg.Security.CORSOrigins,
		MetricsEnabled: cfg.Metrics.Enabled,
		Stealth: feed.Stealth{
			BaseDelay:      cfg.Feed.BaseDelay,
			Randomization:  cfg.Feed.Randomization,
			FilterCooldown: cfg.Feed.FilterCooldown,
			AutoThrottle:   cfg.Feed.AutoThrottle,
		},
		Middleware: middleware.Config{
			APIKey:             cfg.Security.APIKey,
			RateLimitPerMinute: cfg.Security.RateLimitPerMinute,
			RateLimitBurst:     cfg.Security.RateLimitBurst,
			RateLimitDisabled:  cfg.Security.RateLimitDisabled,
			MaxBodyBytes:       cfg.Server.MaxBodyBytes,
		},
	}, api.Deps{
		Harvester: orchestrator,
		Feed:      feedCollector,
		Reddit:    redditCrawler,
		Website:   websiteExtractor,
		Store:     storeClient,
		Jobs:      manager,
		Palettes:  palettes,
		FontPairs: fontPairs,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      server.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Supervision tree: storage, workers, API.
	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if durable != nil {
		tree.AddStorageService(services.NewCacheGCService(durable, cfg.Cache.GCInterval))
	}
	tree.AddWorkerService(manager)
	tree.AddWorkerService(&jobs.Reaper{Manager: manager})
	tree.AddAPIService(services.NewHTTPServerService(httpServer, cfg.Server.ShutdownTimeout))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().Str("addr", addr).Msg("Appscope listening")
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree exited with error")
		shutdownCache(durable)
		os.Exit(1)
	}

	if report, rerr := tree.UnstoppedServiceReport(); rerr == nil && len(report) > 0 {
		for _, svc := range report {
			logging.Warn().Str("service", svc.Name).Msg("Service did not stop within timeout")
		}
	}

	shutdownCache(durable)
	logging.Info().Msg("Shutdown complete")
}

func shutdownCache(durable *cache.DurableTier) {
	if durable == nil {
		return
	}
	if err := durable.Close(); err != nil {
		logging.Error().Err(err).Msg("Error closing durable cache tier")
	}
}
