// Appscope - Mobile App Market Intelligence and Review Harvesting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/appscope

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// Crawl Metrics
	CrawlDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crawl_duration_seconds",
			Help:    "Duration of crawl operations in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"kind"}, // "feed", "browser", "reddit", "reddit_deep_dive", "website"
	)

	CrawlErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawl_errors_total",
			Help: "Total number of failed crawl operations",
		},
		[]string{"kind", "error_type"},
	)

	ReviewsCollected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reviews_collected_total",
			Help: "Total number of reviews collected, before deduplication",
		},
		[]string{"source"}, // "feed", "browser"
	)

	ReviewsDeduplicated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reviews_deduplicated_total",
			Help: "Total number of reviews dropped as cross-source duplicates",
		},
	)

	// Outbound Fetch Metrics
	FetchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fetch_requests_total",
			Help: "Total number of outbound fetch attempts",
		},
		[]string{"origin", "status_class"}, // status_class: "2xx", "4xx", "5xx", "429", "error"
	)

	FetchRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fetch_retries_total",
			Help: "Total number of outbound fetch retries",
		},
		[]string{"origin"},
	)

	RateLimitWaits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_waits_total",
			Help: "Total number of admissions delayed by the sliding window limiter",
		},
		[]string{"scope"}, // "global", "origin"
	)

	ThrottleEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "throttle_events_total",
			Help: "Total number of upstream 429 throttle events",
		},
		[]string{"origin"},
	)

	// Cache Metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"tier"}, // "memory", "disk"
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"tier"},
	)

	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_evictions_total",
			Help: "Total number of cache evictions",
		},
		[]string{"tier", "reason"}, // reason: "ttl", "capacity"
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Current circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breakers",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// Job Metrics
	JobsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobs_created_total",
			Help: "Total number of background crawl jobs created",
		},
		[]string{"kind"},
	)

	JobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobs_completed_total",
			Help: "Total number of background crawl jobs finished",
		},
		[]string{"kind", "status"}, // status: "completed", "failed", "cancelled"
	)

	JobsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "jobs_active",
			Help: "Current number of running background crawl jobs",
		},
	)

	JobQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "job_queue_depth",
			Help: "Current number of pending background crawl jobs",
		},
	)
)

// RecordAPIRequest records a completed HTTP request.
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordCrawl records a finished crawl of the given kind.
func RecordCrawl(kind string, duration time.Duration, err error) {
	CrawlDuration.WithLabelValues(kind).Observe(duration.Seconds())
	if err != nil {
		CrawlErrors.WithLabelValues(kind, "error").Inc()
	}
}

// RecordFetch records one outbound fetch attempt by status class.
func RecordFetch(origin string, statusCode int, err error) {
	class := "error"
	switch {
	case err == nil && statusCode >= 200 && statusCode < 300:
		class = "2xx"
	case statusCode == 429:
		class = "429"
	case statusCode >= 500:
		class = "5xx"
	case statusCode >= 400:
		class = "4xx"
	}
	FetchRequestsTotal.WithLabelValues(origin, class).Inc()
}

// RecordCacheHit records a cache hit on the given tier.
func RecordCacheHit(tier string) {
	CacheHits.WithLabelValues(tier).Inc()
}

// RecordCacheMiss records a cache miss on the given tier.
func RecordCacheMiss(tier string) {
	CacheMisses.WithLabelValues(tier).Inc()
}
