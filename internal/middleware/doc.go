// Appscope - Mobile App Market Intelligence and Review Harvesting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/appscope

/*
Package middleware provides the HTTP middleware stack for the crawl API.

Every middleware is a chi-compatible func(http.Handler) http.Handler:

  - RequestID: UUID request tracking, honoring upstream X-Request-ID
  - Prometheus: request counters, latency histograms, in-flight gauge
  - SecurityHeaders: nosniff, frame denial, referrer policy, conditional HSTS
  - RateLimit: per-IP sliding window via go-chi/httprate, /health exempt
  - APIKey: optional X-API-Key screening
  - BodyLimit: request-body cap via http.MaxBytesReader
  - Compression: gzip for JSON responses, bypassed for SSE streams

The router applies them outermost-first:

	r.Use(middleware.RequestID)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.Prometheus)
	r.Use(m.RateLimit())
	r.Use(m.APIKey())
	r.Use(m.BodyLimit())
	r.Use(middleware.Compression)
*/
package middleware
