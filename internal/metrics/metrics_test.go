// Appscope - Mobile App Market Intelligence and Review Harvesting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/appscope

package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("POST", "/crawl/app-store/reviews", "200"))

	RecordAPIRequest("POST", "/crawl/app-store/reviews", 200, 120*time.Millisecond)
	RecordAPIRequest("POST", "/crawl/app-store/reviews", 200, 80*time.Millisecond)

	after := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("POST", "/crawl/app-store/reviews", "200"))
	if after-before != 2 {
		t.Errorf("expected 2 new requests, got %v", after-before)
	}
}

func TestRecordFetchStatusClasses(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		err        error
		class      string
	}{
		{"success", 200, nil, "2xx"},
		{"throttled", 429, nil, "429"},
		{"server error", 503, nil, "5xx"},
		{"client error", 404, nil, "4xx"},
		{"transport failure", 0, errors.New("connection refused"), "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			origin := "itunes.apple.com-" + tt.name
			RecordFetch(origin, tt.statusCode, tt.err)

			got := testutil.ToFloat64(FetchRequestsTotal.WithLabelValues(origin, tt.class))
			if got != 1 {
				t.Errorf("class %s: expected 1 recorded fetch, got %v", tt.class, got)
			}
		})
	}
}

func TestRecordCrawlError(t *testing.T) {
	before := testutil.ToFloat64(CrawlErrors.WithLabelValues("website", "error"))

	RecordCrawl("website", time.Second, errors.New("fetch failed"))
	RecordCrawl("website", time.Second, nil)

	after := testutil.ToFloat64(CrawlErrors.WithLabelValues("website", "error"))
	if after-before != 1 {
		t.Errorf("expected 1 new crawl error, got %v", after-before)
	}
}

func TestCacheCounters(t *testing.T) {
	hitsBefore := testutil.ToFloat64(CacheHits.WithLabelValues("memory"))
	missesBefore := testutil.ToFloat64(CacheMisses.WithLabelValues("disk"))

	RecordCacheHit("memory")
	RecordCacheHit("memory")
	RecordCacheMiss("disk")

	if got := testutil.ToFloat64(CacheHits.WithLabelValues("memory")) - hitsBefore; got != 2 {
		t.Errorf("expected 2 memory hits, got %v", got)
	}
	if got := testutil.ToFloat64(CacheMisses.WithLabelValues("disk")) - missesBefore; got != 1 {
		t.Errorf("expected 1 disk miss, got %v", got)
	}
}

// Metrics are recorded from collector goroutines and HTTP handlers
// concurrently; the counters must tolerate that.
func TestConcurrentRecording(t *testing.T) {
	const workers = 16
	const perWorker = 50

	before := testutil.ToFloat64(ReviewsCollected.WithLabelValues("feed"))

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				ReviewsCollected.WithLabelValues("feed").Inc()
				RecordAPIRequest("GET", "/health", 200, time.Millisecond)
			}
		}()
	}
	wg.Wait()

	got := testutil.ToFloat64(ReviewsCollected.WithLabelValues("feed")) - before
	if got != workers*perWorker {
		t.Errorf("expected %d reviews recorded, got %v", workers*perWorker, got)
	}
}

func TestJobGauges(t *testing.T) {
	JobsActive.Set(0)
	JobsActive.Inc()
	JobsActive.Inc()
	JobsActive.Dec()

	if got := testutil.ToFloat64(JobsActive); got != 1 {
		t.Errorf("expected 1 active job, got %v", got)
	}
}
