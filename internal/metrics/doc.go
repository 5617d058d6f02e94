// Appscope - Mobile App Market Intelligence and Review Harvesting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/appscope

/*
Package metrics provides Prometheus metrics collection and export.

Metrics cover the HTTP surface (request counts, latency, in-flight,
rate-limit rejections), crawl operations (duration and errors per
crawl kind, reviews collected per source, deduplication), the shared
outbound fetch substrate (attempts by status class, retries, limiter
waits, upstream throttles), the tiered cache (hits, misses, evictions
per tier), circuit breakers (state, request outcomes, transitions),
and the background job registry (created, completed, active, queued).

Metrics are exposed at the /metrics endpoint in Prometheus text
format:

	curl http://localhost:8000/metrics

All collectors are registered with the default registry through
promauto at package initialization, so importing the package is
enough to make the metrics live.
*/
package metrics
