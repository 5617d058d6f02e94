// Appscope - Mobile App Market Intelligence and Review Harvesting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/appscope

package reddit

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/appscope/internal/fetch"
	"github.com/tomtom215/appscope/internal/models"
)

// postJSON renders one t3 search child.
func postJSON(id string, subreddit string, score, comments int, created float64) string {
	return fmt.Sprintf(`{"kind":"t3","data":{"id":"%s","subreddit":"%s","title":"Post %s","selftext":"body of %s","score":%d,"num_comments":%d,"created_utc":%f,"permalink":"/r/%s/comments/%s/post/","author":"u%s","upvote_ratio":0.9}}`,
		id, subreddit, id, id, score, comments, created, subreddit, id, id)
}

func searchListing(children ...string) string {
	return `{"data":{"children":[` + strings.Join(children, ",") + `]}}`
}

func aboutJSON(name string, subscribers int, typ, description string) string {
	return fmt.Sprintf(`{"data":{"display_name":"%s","title":"%s","subscribers":%d,"subreddit_type":"%s","public_description":"%s","description":"","over18":false}}`,
		name, name, subscribers, typ, description)
}

// commentsJSON renders the two-element post+comments payload with one
// top comment holding one nested reply holding one depth-2 reply.
const commentsJSON = `[
  {"data":{"children":[]}},
  {"data":{"children":[
    {"kind":"t1","data":{"id":"c1","author":"alice","body":"top level","score":12,"created_utc":1700000000,"parent_id":"t3_p1","is_submitter":true,
      "replies":{"data":{"children":[
        {"kind":"t1","data":{"id":"c2","author":"bob","body":"first reply","score":4,"created_utc":1700000100,"parent_id":"t1_c1","is_submitter":false,
          "replies":{"data":{"children":[
            {"kind":"t1","data":{"id":"c3","author":"carol","body":"second reply","score":1,"created_utc":1700000200,"parent_id":"t1_c2","is_submitter":false,
              "replies":{"data":{"children":[
                {"kind":"t1","data":{"id":"c4","author":"dave","body":"third reply beyond depth","score":1,"created_utc":1700000300,"parent_id":"t1_c3","is_submitter":false,"replies":""}}
              ]}}}}
          ]}}}},
        {"kind":"t1","data":{"id":"c5","author":"erin","body":"[deleted]","score":0,"created_utc":1700000400,"parent_id":"t1_c1","is_submitter":false,"replies":""}}
      ]}}}},
    {"kind":"t1","data":{"id":"c6","author":"frank","body":"","score":2,"created_utc":1700000500,"parent_id":"t3_p1","is_submitter":false,"replies":""}}
  ]}}
]`

func newTestCrawler(t *testing.T, handler http.Handler) (*Crawler, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := fetch.NewClient(fetch.Config{
		Limiter: fetch.NewLimiter(100000, 100000, 16),
		Sleep:   func(ctx context.Context, d time.Duration) error { return ctx.Err() },
		Jitter:  func() time.Duration { return time.Millisecond },
	})
	c := NewCrawler(client, Options{
		RequestGap: time.Microsecond,
		RetryAfter: time.Minute,
	})
	c.sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }
	return c, srv
}

func swapHost(c *Crawler, hostURL string) {
	c.host = hostURL
}

func TestThresholdFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		subscribers int
		adaptive    bool
		want        models.EngagementThreshold
	}{
		{5_000, true, models.EngagementThreshold{MinScore: 2, MinComments: 1}},
		{50_000, true, models.EngagementThreshold{MinScore: 5, MinComments: 3}},
		{800_000, true, models.EngagementThreshold{MinScore: 10, MinComments: 5}},
		{2_000_000, true, models.EngagementThreshold{MinScore: 20, MinComments: 10}},
		{2_000_000, false, models.EngagementThreshold{MinScore: 5, MinComments: 3}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, thresholdFor(tt.subscribers, tt.adaptive),
			"subscribers=%d adaptive=%v", tt.subscribers, tt.adaptive)
	}
}

func TestScanMentions(t *testing.T) {
	t.Parallel()

	text := "See also r/iosapps and r/apphookup. Avoid r/all. https://reddit.com/r/swift too."
	mentions := scanMentions(text)
	assert.Contains(t, mentions, "iosapps")
	assert.Contains(t, mentions, "apphookup")
	assert.Contains(t, mentions, "swift")
}

func TestParseCommentForestDepthAndDrops(t *testing.T) {
	t.Parallel()

	var pages []listing
	require.NoError(t, json.Unmarshal([]byte(commentsJSON), &pages))
	require.Len(t, pages, 2)

	forest := parseCommentForest(&pages[1], 0, 3)

	// c6 (empty body) and c5 ([deleted]) are dropped.
	require.Len(t, forest, 1)
	top := forest[0]
	assert.Equal(t, "c1", top.ID)
	assert.True(t, top.IsOP)
	assert.Equal(t, 0, top.Depth)

	require.Len(t, top.Replies, 1)
	assert.Equal(t, 1, top.Replies[0].Depth)
	require.Len(t, top.Replies[0].Replies, 1)
	assert.Equal(t, 2, top.Replies[0].Replies[0].Depth)

	// Depth 3 is included; the fixture nests its deepest comment at 3.
	d3 := top.Replies[0].Replies[0].Replies
	require.Len(t, d3, 1)
	assert.Equal(t, 3, d3[0].Depth)
	assert.Empty(t, d3[0].Replies)

	assert.Equal(t, 4, countComments(forest))
}

func TestDeepDiveAdaptiveGate(t *testing.T) {
	t.Parallel()

	c, srv := newTestCrawler(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "/about.json"):
			// 800k subscribers maps to (10, 5).
			_, _ = w.Write([]byte(aboutJSON("bigsub", 800_000, "public", "")))
		case strings.Contains(r.URL.Path, "/search.json"):
			_, _ = w.Write([]byte(searchListing(
				postJSON("rejected", "bigsub", 8, 4, 1700000000),  // below both bars
				postJSON("accepted", "bigsub", 8, 6, 1700001000),  // clears comments bar
				postJSON("strong", "bigsub", 40, 30, 1700002000),  // clears both
			)))
		case strings.Contains(r.URL.Path, "/comments/"):
			_, _ = w.Write([]byte(commentsJSON))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	swapHost(c, srv.URL)

	result := c.DeepDive(context.Background(), DeepDiveParams{
		Topics:      []string{"crash"},
		Communities: []string{"bigsub"},
		Validate:    true,
		Adaptive:    true,
	})

	require.True(t, result.Success)
	require.Len(t, result.Posts, 2)
	// Ranked by score + 2*comments descending.
	assert.Equal(t, "strong", result.Posts[0].ID)
	assert.Equal(t, "accepted", result.Posts[1].ID)

	// Only the strong post clears the high-engagement comment gate.
	assert.NotEmpty(t, result.Posts[0].Comments)
	assert.Empty(t, result.Posts[1].Comments)

	yield := result.Stats.SubredditStats["bigsub"]
	assert.Equal(t, 2, yield.PostCount)
	assert.InDelta(t, ((8.0+6)+(40+30))/2, yield.MeanEngagement, 0.001)

	require.NotNil(t, result.Stats.DateRange.Start)
	require.NotNil(t, result.Stats.DateRange.End)
	assert.Less(t, *result.Stats.DateRange.Start, *result.Stats.DateRange.End)
}

func TestDeepDiveAllCommunitiesInvalid(t *testing.T) {
	t.Parallel()

	c, srv := newTestCrawler(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/about.json") {
			_, _ = w.Write([]byte(aboutJSON("hidden", 100, "private", "")))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	swapHost(c, srv.URL)

	result := c.DeepDive(context.Background(), DeepDiveParams{
		Topics:      []string{"anything"},
		Communities: []string{"hidden"},
		Validate:    true,
		Adaptive:    true,
	})

	assert.False(t, result.Success)
	assert.Equal(t, "no valid subreddits to search", result.Error)
	assert.Empty(t, result.Posts)
	assert.Equal(t, []string{"hidden"}, result.Validation.Invalid)
}

func TestValidateCommunitiesDiscovery(t *testing.T) {
	t.Parallel()

	c, srv := newTestCrawler(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "/r/seed/about.json"):
			_, _ = w.Write([]byte(aboutJSON("seed", 50_000, "public",
				"Related: r/iosdev and r/all and r/seed itself")))
		case strings.Contains(r.URL.Path, "/r/seed/wiki/index.json"):
			_, _ = w.Write([]byte(`{"data":{"content_md":"also try r/swiftui"}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	swapHost(c, srv.URL)

	validation, infos := c.ValidateCommunities(context.Background(), []string{"seed"})

	assert.Equal(t, []string{"seed"}, validation.Valid)
	assert.Contains(t, validation.Discovered, "iosdev")
	assert.Contains(t, validation.Discovered, "swiftui")
	assert.NotContains(t, validation.Discovered, "all", "denylisted")
	assert.NotContains(t, validation.Discovered, "seed", "seed excluded")
	assert.Equal(t, 50_000, infos["seed"].Subscribers)
}

func TestCrawlSimple(t *testing.T) {
	t.Parallel()

	c, srv := newTestCrawler(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/search.json"):
			_, _ = w.Write([]byte(searchListing(
				postJSON("p1", "apps", 30, 12, 1700000000),
				postJSON("p2", "ios", 5, 2, 1700001000),
			)))
		case strings.Contains(r.URL.Path, "/comments/"):
			_, _ = w.Write([]byte(commentsJSON))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	swapHost(c, srv.URL)

	result := c.Crawl(context.Background(), CrawlParams{
		Keywords: []string{"budget app"},
		MaxPosts: 10,
	})

	require.Len(t, result.Posts, 2)
	assert.Equal(t, []string{"budget app"}, result.Posts[0].Keywords)
	assert.Equal(t, "https://reddit.com/r/apps/comments/p1/post/", result.Posts[0].URL)
	assert.NotEmpty(t, result.Posts[0].Comments, "top posts carry comments")
	assert.Equal(t, 2, result.TotalPosts)
}

func TestCrawlDeduplicatesAcrossKeywords(t *testing.T) {
	t.Parallel()

	c, srv := newTestCrawler(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/search.json") {
			_, _ = w.Write([]byte(searchListing(postJSON("same", "apps", 30, 12, 1700000000))))
			return
		}
		_, _ = w.Write([]byte(commentsJSON))
	}))
	swapHost(c, srv.URL)

	result := c.Crawl(context.Background(), CrawlParams{
		Keywords: []string{"first", "second"},
		MaxPosts: 10,
	})
	assert.Len(t, result.Posts, 1)
}
