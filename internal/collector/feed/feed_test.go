// Appscope - Mobile App Market Intelligence and Review Harvesting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/appscope

package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/appscope/internal/fetch"
	"github.com/tomtom215/appscope/internal/models"
)

// feedPage builds a feed JSON page with an app-metadata head entry and
// n review entries numbered from start.
func feedPage(start, n int) string {
	entries := []string{`{"id":{"label":"app-entry"},"im:name":{"label":"Some App"}}`}
	for i := 0; i < n; i++ {
		id := start + i
		entries = append(entries, fmt.Sprintf(
			`{"id":{"label":"r%d"},"title":{"label":"Title %d"},"content":{"label":"Review body number %d with enough text"},"im:rating":{"label":"%d"},"im:voteCount":{"label":"3"},"im:voteSum":{"label":"2"},"im:version":{"label":"1.2"},"author":{"name":{"label":"user%d"}}}`,
			id, id, id, 1+id%5, id))
	}
	return `{"feed":{"entry":[` + strings.Join(entries, ",") + `]}}`
}

func emptyPage() string {
	return `{"feed":{}}`
}

// newTestCollector wires a collector to srv with sleeps recorded, not
// performed.
func newTestCollector(srv *httptest.Server) (*Collector, *[]time.Duration) {
	waits := &[]time.Duration{}
	limiter := fetch.NewLimiter(100000, 100000, 16)
	client := fetch.NewClient(fetch.Config{
		Limiter:        limiter,
		Timeout:        5 * time.Second,
		RetryBaseDelay: time.Millisecond,
		Sleep: func(ctx context.Context, d time.Duration) error {
			return ctx.Err()
		},
		Jitter: func() time.Duration { return time.Millisecond },
	})
	c := NewCollector(client)
	c.host = srv.URL
	c.sleep = func(ctx context.Context, d time.Duration) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		*waits = append(*waits, d)
		return nil
	}
	c.randf = func() float64 { return 0.5 }
	return c, waits
}

func collectEvents() (Sink, *[]Event) {
	events := &[]Event{}
	return func(ev Event) { *events = append(*events, ev) }, events
}

func eventTypes(events []Event) []string {
	types := make([]string, 0, len(events))
	for _, ev := range events {
		types = append(types, ev["type"].(string))
	}
	return types
}

func TestCollectTargetReached(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Pages of 50 reviews each; request path carries page number.
		var page int
		_, err := fmt.Sscanf(pagePart(r.URL.Path), "page=%d", &page)
		require.NoError(t, err)
		_, _ = w.Write([]byte(feedPage(page*100, 50)))
	}))
	defer srv.Close()

	c, _ := newTestCollector(srv)
	sink, events := collectEvents()

	result, err := c.Collect(context.Background(), "100001", "us",
		[]Filter{{Sort: "mostRecent", Target: 120}}, DefaultStealth(), sink)
	require.NoError(t, err)

	// 3 pages of 50 reach the 120 target.
	assert.GreaterOrEqual(t, len(result.Reviews), 120)
	types := eventTypes(*events)
	assert.Equal(t, "start", types[0])
	assert.Contains(t, types, "filterTargetReached")
	assert.Contains(t, types, "filterComplete")

	for _, rv := range result.Reviews {
		assert.Equal(t, models.ReviewSourceFeed, rv.Source)
		assert.Equal(t, "mostRecent", rv.SortOrigin)
		require.NotNil(t, rv.Rating)
		assert.GreaterOrEqual(t, *rv.Rating, 1)
		assert.LessOrEqual(t, *rv.Rating, 5)
	}
}

func TestCollectExhaustionAfterEmptyPages(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var page int
		_, _ = fmt.Sscanf(pagePart(r.URL.Path), "page=%d", &page)
		switch {
		case page == 1:
			_, _ = w.Write([]byte(feedPage(100, 20)))
		default:
			_, _ = w.Write([]byte(emptyPage()))
		}
	}))
	defer srv.Close()

	c, _ := newTestCollector(srv)
	sink, events := collectEvents()

	result, err := c.Collect(context.Background(), "100001", "us",
		[]Filter{{Sort: "mostRecent", Target: 2000}}, DefaultStealth(), sink)
	require.NoError(t, err)

	assert.Len(t, result.Reviews, 20)
	types := eventTypes(*events)
	assert.Contains(t, types, "filterEarlyStop")
	assert.NotContains(t, types, "filterTargetReached")

	// Page 1 plus exactly five empty pages before giving up.
	progress := 0
	for _, ev := range *events {
		if ev["type"] == "progress" {
			progress++
		}
	}
	assert.Equal(t, 6, progress)
}

func TestCollectThrottleAndRecover(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Rate-limit the first burst so the substrate exhausts its
		// retries, then serve normally.
		if calls.Add(1) <= 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(feedPage(100, 50)))
	}))
	defer srv.Close()

	c, _ := newTestCollector(srv)
	// Swap the client's internal sleeps out too.
	sink, events := collectEvents()

	result, err := c.Collect(context.Background(), "100001", "us",
		[]Filter{{Sort: "mostRecent", Target: 50}}, DefaultStealth(), sink)
	require.NoError(t, err)

	require.Len(t, result.Reviews, 50)

	var throttle Event
	for _, ev := range *events {
		if ev["type"] == "throttle" {
			throttle = ev
		}
	}
	require.NotNil(t, throttle, "throttle event expected")
	assert.Equal(t, 2.0, throttle["newDelayMultiplier"])
	assert.Equal(t, "mostRecent", throttle["filter"])
}

func TestCollectPersistentRateLimitSkipsFilter(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "sortBy=mostRecent") {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(feedPage(500, 30)))
	}))
	defer srv.Close()

	c, _ := newTestCollector(srv)
	sink, events := collectEvents()

	result, err := c.Collect(context.Background(), "100001", "us",
		[]Filter{
			{Sort: "mostRecent", Target: 100},
			{Sort: "mostHelpful", Target: 30},
		}, DefaultStealth(), sink)
	require.NoError(t, err)

	types := eventTypes(*events)
	assert.Contains(t, types, "filterSkipped")

	// The second filter still ran.
	assert.Len(t, result.Reviews, 30)
	assert.Equal(t, "mostHelpful", result.Reviews[0].SortOrigin)
}

func TestCollectDeduplicatesAcrossFilters(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Both sort orders return the same 30 reviews.
		_, _ = w.Write([]byte(feedPage(100, 30)))
	}))
	defer srv.Close()

	c, _ := newTestCollector(srv)

	result, err := c.Collect(context.Background(), "100001", "us",
		[]Filter{
			{Sort: "mostRecent", Target: 30},
			{Sort: "mostHelpful", Target: 30},
		}, DefaultStealth(), nil)
	require.NoError(t, err)

	assert.Len(t, result.Reviews, 30)
	// First-seen filter owns the sort-origin tag.
	assert.Equal(t, "mostRecent", result.Reviews[0].SortOrigin)
	assert.Equal(t, 30, result.Stats.Total)
	assert.Equal(t, 30, result.Stats.Sources.Feed)
}

func TestCollectSkipsAppEntryAndNullRatings(t *testing.T) {
	t.Parallel()

	page := `{"feed":{"entry":[
		{"id":{"label":"app-entry"},"im:name":{"label":"The App"}},
		{"id":{"label":"good"},"title":{"label":"ok"},"content":{"label":"fine review body"},"im:rating":{"label":"4"},"author":{"name":{"label":"a"}}},
		{"id":{"label":"weird"},"title":{"label":"odd"},"content":{"label":"unrated review body"},"im:rating":{"label":"eleven"},"author":{"name":{"label":"b"}}},
		{"id":{"label":"out"},"title":{"label":"oob"},"content":{"label":"out of band rating"},"im:rating":{"label":"9"},"author":{"name":{"label":"c"}}}
	]}}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	c, _ := newTestCollector(srv)

	result, err := c.Collect(context.Background(), "100001", "us",
		[]Filter{{Sort: "mostRecent", Target: 3}}, DefaultStealth(), nil)
	require.NoError(t, err)

	require.Len(t, result.Reviews, 3)
	assert.Equal(t, "good", result.Reviews[0].ID)
	require.NotNil(t, result.Reviews[0].Rating)
	assert.Equal(t, 4, *result.Reviews[0].Rating)
	assert.Nil(t, result.Reviews[1].Rating, "unparseable rating stays null")
	assert.Nil(t, result.Reviews[2].Rating, "out-of-range rating stays null")

	// Null ratings are excluded from the distribution and average.
	assert.Equal(t, 1, result.Stats.RatingDistribution["4"])
	assert.Equal(t, 4.0, result.Stats.AverageRating)
}

func TestEntryListToleratesSingleObject(t *testing.T) {
	t.Parallel()

	var doc feedDocument
	require.NoError(t, json.Unmarshal([]byte(
		`{"feed":{"entry":{"id":{"label":"only"},"im:rating":{"label":"5"}}}}`), &doc))
	require.Len(t, doc.Feed.Entry, 1)
	assert.Equal(t, "only", doc.Feed.Entry[0].ID.Label)
}

func TestStealthDelayBounds(t *testing.T) {
	t.Parallel()

	base := 2 * time.Second
	for _, r := range []float64{0, 25, 50, 100} {
		for i := 0; i < 20; i++ {
			d := stealthDelay(base, r, func() float64 { return float64(i) / 19 })
			assert.GreaterOrEqual(t, d, 100*time.Millisecond)
			assert.LessOrEqual(t, d, base+time.Duration(float64(base)*r/100))
		}
	}
}

// pagePart extracts the "page=N" path segment.
func pagePart(path string) string {
	for _, part := range strings.Split(path, "/") {
		if strings.HasPrefix(part, "page=") {
			return part
		}
	}
	return ""
}
