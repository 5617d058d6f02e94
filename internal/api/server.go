// Appscope - Mobile App Market Intelligence and Review Harvesting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/appscope

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/appscope/internal/catalog"
	"github.com/tomtom215/appscope/internal/collector/appstore"
	"github.com/tomtom215/appscope/internal/collector/feed"
	"github.com/tomtom215/appscope/internal/collector/reddit"
	"github.com/tomtom215/appscope/internal/collector/website"
	"github.com/tomtom215/appscope/internal/jobs"
	"github.com/tomtom215/appscope/internal/middleware"
	"github.com/tomtom215/appscope/internal/models"
	"github.com/tomtom215/appscope/internal/pipeline"
)

// Harvester runs the two-phase review pipeline.
type Harvester interface {
	Harvest(ctx context.Context, params pipeline.Params) (*pipeline.Result, error)
}

// StreamCollector runs the feed-only crawl for the SSE endpoint.
type StreamCollector interface {
	Collect(ctx context.Context, appID, country string, filters []feed.Filter, stealth feed.Stealth, sink feed.Sink) (*feed.Result, error)
}

// DiscussionCrawler covers the discussion-crawl endpoints.
type DiscussionCrawler interface {
	Crawl(ctx context.Context, params reddit.CrawlParams) *models.DiscussionResult
	DeepDive(ctx context.Context, params reddit.DeepDiveParams) *models.DeepDiveResult
	ValidateCommunities(ctx context.Context, names []string) (models.SubredditValidation, map[string]models.SubredditInfo)
}

// SiteExtractor runs the landing-page extraction.
type SiteExtractor interface {
	Extract(ctx context.Context, params website.Params) (*models.WebsiteExtract, error)
}

// StoreClient covers the app-store metadata endpoints.
type StoreClient interface {
	WhatsNew(ctx context.Context, appID, country string) ([]models.VersionNote, error)
	Privacy(ctx context.Context, appID, country string) (*appstore.PrivacyInfo, error)
	TopCharts(ctx context.Context, params appstore.ChartParams, sink appstore.Sink) (*appstore.ChartResult, error)
}

// JobRegistry covers the async batch facility.
type JobRegistry interface {
	Submit(jobType string, request interface{}, run jobs.RunFunc) (string, error)
	Get(id string) (models.Job, error)
	Cancel(id string) error
	Subscribe(id string) (<-chan map[string]interface{}, func(), error)
}

// Config holds the API-level settings.
type Config struct {
	Version        string
	CORSOrigins    []string
	MetricsEnabled bool
	Middleware     middleware.Config

	// Stealth is the server-wide pacing baseline for review crawls.
	// Request-level overrides layer on top. Zero means the collector
	// defaults.
	Stealth feed.Stealth
}

// Deps wires the server's collaborators.
type Deps struct {
	Harvester Harvester
	Feed      StreamCollector
	Reddit    DiscussionCrawler
	Website   SiteExtractor
	Store     StoreClient
	Jobs      JobRegistry
	Palettes  *catalog.Palettes
	FontPairs *catalog.FontPairs
}

// Server holds the handlers and their dependencies.
type Server struct {
	cfg  Config
	deps Deps

	started time.Time
}

// NewServer creates the API server.
func NewServer(cfg Config, deps Deps) *Server {
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	if cfg.Stealth == (feed.Stealth{}) {
		cfg.Stealth = feed.DefaultStealth()
	}
	return &Server{
		cfg:     cfg,
		deps:    deps,
		started: time.Now(),
	}
}

// Router builds the chi router with the full middleware stack.
func (s *Server) Router() http.Handler {
	stack := middleware.NewStack(s.cfg.Middleware)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "X-API-Key", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           86400,
	}))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.Prometheus)
	r.Use(stack.RateLimit())
	r.Use(stack.APIKey())
	r.Use(stack.BodyLimit())
	r.Use(middleware.Compression)

	r.Get("/health", s.handleHealth)
	if s.cfg.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/crawl", func(r chi.Router) {
		r.Route("/app-store", func(r chi.Router) {
			r.Post("/reviews", s.handleReviews)
			r.Post("/reviews/stream", s.handleReviewsStream)
			r.Post("/whats-new", s.handleWhatsNew)
			r.Post("/privacy", s.handlePrivacy)
			r.Post("/top-charts", s.handleTopCharts)
		})
		r.Route("/reddit", func(r chi.Router) {
			r.Post("/", s.handleReddit)
			r.Post("/deep-dive", s.handleDeepDive)
			r.Post("/validate-subreddits", s.handleValidateSubreddits)
		})
		r.Post("/website", s.handleWebsite)
	})

	r.Route("/jobs", func(r chi.Router) {
		r.Post("/reviews", s.handleJobSubmit)
		r.Get("/{id}", s.handleJobGet)
		r.Delete("/{id}", s.handleJobCancel)
		r.Get("/{id}/events", s.handleJobEvents)
	})

	r.Route("/catalog", func(r chi.Router) {
		r.Get("/palettes", s.handlePalettes)
		r.Get("/font-pairs", s.handleFontPairs)
	})

	return r
}
