// Appscope - Mobile App Market Intelligence and Review Harvesting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/appscope

/*
Package api provides the HTTP surface of the crawl service.

Routing uses chi with the shared middleware stack (request ids,
security headers, Prometheus instrumentation, per-IP rate limiting,
optional API key, body cap, gzip). Handlers decode and validate the
request, drive the matching collector or the pipeline, and answer with
a bare JSON payload; the streaming endpoints answer with an SSE frame
sequence instead.

Collector dependencies are narrow interfaces so handler tests run
against scripted fakes rather than live crawls.
*/
package api
