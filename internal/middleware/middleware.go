// Appscope - Mobile App Market Intelligence and Review Harvesting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/appscope

package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"
	"github.com/goccy/go-json"

	"github.com/tomtom215/appscope/internal/logging"
	"github.com/tomtom215/appscope/internal/metrics"
)

// Config holds the tunable middleware settings.
type Config struct {
	// APIKey, when non-empty, requires every request to carry it in
	// X-API-Key. Empty disables the check.
	APIKey string

	// RateLimitPerMinute and RateLimitBurst form the per-IP window
	// ceiling: perMinute + burst requests per minute.
	RateLimitPerMinute int
	RateLimitBurst     int
	RateLimitDisabled  bool

	// MaxBodyBytes caps request bodies. Zero applies the 100 KiB default.
	MaxBodyBytes int64
}

const defaultMaxBodyBytes = 100 * 1024

// Stack builds the configurable middlewares.
type Stack struct {
	cfg Config
}

// NewStack creates the middleware factory.
func NewStack(cfg Config) *Stack {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	return &Stack{cfg: cfg}
}

// RateLimit returns the per-IP inbound rate limiter. Health probes are
// exempt so monitoring cannot starve itself out.
func (s *Stack) RateLimit() func(http.Handler) http.Handler {
	if s.cfg.RateLimitDisabled {
		return passthrough
	}

	limit := s.cfg.RateLimitPerMinute + s.cfg.RateLimitBurst
	limiter := httprate.Limit(
		limit,
		time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(rateLimitExceeded),
	)

	return func(next http.Handler) http.Handler {
		limited := limiter(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/health" {
				next.ServeHTTP(w, r)
				return
			}
			limited.ServeHTTP(w, r)
		})
	}
}

// rateLimitExceeded answers an over-limit request with the 429 contract
// body and a Retry-After header.
func rateLimitExceeded(w http.ResponseWriter, r *http.Request) {
	metrics.APIRateLimitHits.WithLabelValues(r.URL.Path).Inc()
	logging.Warn().
		Str("path", r.URL.Path).
		Str("remote_addr", r.RemoteAddr).
		Msg("inbound rate limit exceeded")

	retryAfter := w.Header().Get("Retry-After")
	if retryAfter == "" {
		retryAfter = "60"
		w.Header().Set("Retry-After", retryAfter)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error":       "rate limit exceeded",
		"retry_after": retryAfter,
		"message":     "too many requests; retry after the indicated delay",
	})
}

// APIKey screens requests against the configured key. A missing
// configuration disables the check entirely.
func (s *Stack) APIKey() func(http.Handler) http.Handler {
	if s.cfg.APIKey == "" {
		return passthrough
	}
	key := s.cfg.APIKey

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/health" {
				next.ServeHTTP(w, r)
				return
			}
			if r.Header.Get("X-API-Key") != key {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]interface{}{
					"error": "invalid or missing API key",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// BodyLimit caps request bodies. Oversize bodies surface as a
// *http.MaxBytesError from the handler's decode, answered with 413.
func (s *Stack) BodyLimit() func(http.Handler) http.Handler {
	maxBytes := s.cfg.MaxBodyBytes
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SecurityHeaders adds the API response hardening headers. HSTS is set
// only when the request arrived over TLS or a TLS-terminating proxy.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		next.ServeHTTP(w, r)
	})
}

func passthrough(next http.Handler) http.Handler {
	return next
}
