// Appscope - Mobile App Market Intelligence and Review Harvesting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/appscope

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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

type fakeHarvester struct {
	got    pipeline.Params
	result *pipeline.Result
	err    error
}

func (f *fakeHarvester) Harvest(ctx context.Context, params pipeline.Params) (*pipeline.Result, error) {
	f.got = params
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeFeed struct {
	events []feed.Event
	result *feed.Result
	err    error
}

func (f *fakeFeed) Collect(ctx context.Context, appID, country string, filters []feed.Filter, stealth feed.Stealth, sink feed.Sink) (*feed.Result, error) {
	for _, ev := range f.events {
		sink(ev)
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeReddit struct {
	crawl      *models.DiscussionResult
	deepDive   *models.DeepDiveResult
	validation models.SubredditValidation
	gotDive    reddit.DeepDiveParams
}

func (f *fakeReddit) Crawl(ctx context.Context, params reddit.CrawlParams) *models.DiscussionResult {
	return f.crawl
}

func (f *fakeReddit) DeepDive(ctx context.Context, params reddit.DeepDiveParams) *models.DeepDiveResult {
	f.gotDive = params
	return f.deepDive
}

func (f *fakeReddit) ValidateCommunities(ctx context.Context, names []string) (models.SubredditValidation, map[string]models.SubredditInfo) {
	return f.validation, nil
}

type fakeWebsite struct {
	result *models.WebsiteExtract
	err    error
	calls  int
}

func (f *fakeWebsite) Extract(ctx context.Context, params website.Params) (*models.WebsiteExtract, error) {
	f.calls++
	return f.result, f.err
}

type fakeStore struct {
	versions []models.VersionNote
	privacy  *appstore.PrivacyInfo
	charts   *appstore.ChartResult
	events   []appstore.Event
	err      error
}

func (f *fakeStore) WhatsNew(ctx context.Context, appID, country string) ([]models.VersionNote, error) {
	return f.versions, f.err
}

func (f *fakeStore) Privacy(ctx context.Context, appID, country string) (*appstore.PrivacyInfo, error) {
	return f.privacy, f.err
}

func (f *fakeStore) TopCharts(ctx context.Context, params appstore.ChartParams, sink appstore.Sink) (*appstore.ChartResult, error) {
	for _, ev := range f.events {
		if sink != nil {
			sink(ev)
		}
	}
	return f.charts, f.err
}

type serverOption func(*Deps)

func newTestServer(t *testing.T, opts ...serverOption) (*httptest.Server, *Deps) {
	t.Helper()

	manager := jobs.NewManager(jobs.Options{Workers: 1, QueueDepth: 8, Retention: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = manager.Serve(ctx) }()

	deps := &Deps{
		Harvester: &fakeHarvester{result: &pipeline.Result{Reviews: []models.Review{}, Stats: models.ReviewStats{}}},
		Feed:      &fakeFeed{result: &feed.Result{}},
		Reddit:    &fakeReddit{},
		Website:   &fakeWebsite{},
		Store:     &fakeStore{},
		Jobs:      manager,
		Palettes:  catalog.NewPalettes(t.TempDir()),
		FontPairs: catalog.NewFontPairs(t.TempDir()),
	}
	for _, opt := range opts {
		opt(deps)
	}

	srv := NewServer(Config{
		Version: "test",
		Middleware: middleware.Config{
			RateLimitPerMinute: 10000,
			RateLimitBurst:     100,
		},
	}, *deps)

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts, deps
}

func postJSON(t *testing.T, url string, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dst interface{}) {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
}

// sseFrames splits an SSE body into its decoded data payloads.
func sseFrames(t *testing.T, resp *http.Response) []map[string]interface{} {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()

	var frames []map[string]interface{}
	var buf strings.Builder
	b := make([]byte, 4096)
	for {
		n, err := resp.Body.Read(b)
		buf.Write(b[:n])
		if err != nil {
			break
		}
	}
	for _, chunk := range strings.Split(buf.String(), "\n\n") {
		chunk = strings.TrimSpace(chunk)
		if chunk == "" {
			continue
		}
		require.True(t, strings.HasPrefix(chunk, "data: "), "frame %q", chunk)
		var frame map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(chunk, "data: ")), &frame))
		frames = append(frames, frame)
	}
	return frames
}

func TestHealth(t *testing.T) {
	t.Parallel()

	ts, _ := newTestServer(t)
	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)

	var health models.HealthStatus
	decodeBody(t, resp, &health)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "test", health.Version)
}

func TestReviewsValidation(t *testing.T) {
	t.Parallel()

	ts, _ := newTestServer(t)

	resp := postJSON(t, ts.URL+"/crawl/app-store/reviews", `{not json`)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postJSON(t, ts.URL+"/crawl/app-store/reviews", `{"country":"us","max_reviews":50}`)
	var errResp models.ErrorResponse
	decodeBody(t, resp, &errResp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, errResp.Error, "AppID")

	resp = postJSON(t, ts.URL+"/crawl/app-store/reviews", `{"app_id":"123","max_reviews":99999}`)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestReviewsPassesParams(t *testing.T) {
	t.Parallel()

	harvester := &fakeHarvester{result: &pipeline.Result{
		Reviews: []models.Review{{ID: "1", Author: "a", Content: "fine", Source: "feed"}},
		Stats:   models.ReviewStats{Total: 1},
	}}
	ts, _ := newTestServer(t, func(d *Deps) { d.Harvester = harvester })

	resp := postJSON(t, ts.URL+"/crawl/app-store/reviews",
		`{"app_id":"553834731","country":"gb","max_reviews":250,"min_rating":4,"multi_country":true}`)

	var body models.ReviewsResponse
	decodeBody(t, resp, &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "553834731", body.AppID)
	assert.Equal(t, "gb", body.Country)
	assert.Len(t, body.Reviews, 1)

	assert.Equal(t, "553834731", harvester.got.AppID)
	assert.Equal(t, "gb", harvester.got.Country)
	assert.Equal(t, 250, harvester.got.MaxReviews)
	require.NotNil(t, harvester.got.Rating.Min)
	assert.Equal(t, 4, *harvester.got.Rating.Min)
	assert.True(t, harvester.got.MultiLocale)
}

func TestReviewsStreamEmitsFrames(t *testing.T) {
	t.Parallel()

	ts, _ := newTestServer(t, func(d *Deps) {
		d.Feed = &fakeFeed{
			events: []feed.Event{
				{"type": feed.EventStart, "totalTargetReviews": float64(100)},
				{"type": feed.EventProgress, "page": float64(1)},
			},
			result: &feed.Result{
				Reviews: []models.Review{{ID: "1", Author: "a", Content: "ok", Source: "feed"}},
				Stats:   models.ReviewStats{Total: 1},
			},
		}
	})

	resp := postJSON(t, ts.URL+"/crawl/app-store/reviews/stream",
		`{"app_id":"123","filters":[{"sort":"mostRecent","target":100}]}`)
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	frames := sseFrames(t, resp)
	require.Len(t, frames, 3)
	assert.Equal(t, "start", frames[0]["type"])
	assert.Equal(t, "progress", frames[1]["type"])
	assert.Equal(t, "complete", frames[2]["type"])
	assert.NotNil(t, frames[2]["stats"])
}

func TestReviewsStreamErrorFrame(t *testing.T) {
	t.Parallel()

	ts, _ := newTestServer(t, func(d *Deps) {
		d.Feed = &fakeFeed{err: context.DeadlineExceeded}
	})

	resp := postJSON(t, ts.URL+"/crawl/app-store/reviews/stream",
		`{"app_id":"123","filters":[{"sort":"mostRecent","target":100}]}`)
	frames := sseFrames(t, resp)
	require.Len(t, frames, 1)
	assert.Equal(t, "error", frames[0]["type"])
}

func TestWhatsNewUpstreamError(t *testing.T) {
	t.Parallel()

	ts, _ := newTestServer(t, func(d *Deps) {
		d.Store = &fakeStore{err: assert.AnError}
	})

	resp := postJSON(t, ts.URL+"/crawl/app-store/whats-new", `{"app_id":"123"}`)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestWhatsNew(t *testing.T) {
	t.Parallel()

	ts, _ := newTestServer(t, func(d *Deps) {
		d.Store = &fakeStore{versions: []models.VersionNote{{Version: "2.0", Notes: "things"}}}
	})

	resp := postJSON(t, ts.URL+"/crawl/app-store/whats-new", `{"app_id":"123","country":"de"}`)
	var body models.WhatsNewResponse
	decodeBody(t, resp, &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "de", body.Country)
	require.Len(t, body.Versions, 1)
	assert.Equal(t, "2.0", body.Versions[0].Version)
}

func TestTopChartsStream(t *testing.T) {
	t.Parallel()

	avg := 1.0
	ts, _ := newTestServer(t, func(d *Deps) {
		d.Store = &fakeStore{
			events: []appstore.Event{
				{"type": appstore.EventCountryStart, "country": "us"},
				{"type": appstore.EventCountryComplete, "country": "us", "apps": float64(1)},
			},
			charts: &appstore.ChartResult{
				Category:  "Games",
				Countries: map[string][]models.ChartApp{"us": {{ID: "1", Rank: 1}}},
				Presence:  []models.ChartPresence{{AppStoreID: "1", PresenceCount: 1, AverageRank: &avg}},
			},
		}
	})

	resp := postJSON(t, ts.URL+"/crawl/app-store/top-charts",
		`{"category":"Games","countries":["us"]}`)
	frames := sseFrames(t, resp)
	require.Len(t, frames, 3)
	assert.Equal(t, "country_start", frames[0]["type"])
	assert.Equal(t, "result", frames[2]["type"])

	data := frames[2]["data"].(map[string]interface{})
	assert.Equal(t, float64(1), data["unique_apps"])
	assert.Equal(t, float64(1), data["total_apps"])
}

func TestDeepDiveDefaults(t *testing.T) {
	t.Parallel()

	crawler := &fakeReddit{deepDive: &models.DeepDiveResult{Success: true}}
	ts, _ := newTestServer(t, func(d *Deps) { d.Reddit = crawler })

	resp := postJSON(t, ts.URL+"/crawl/reddit/deep-dive",
		`{"search_topics":["note app"],"subreddits":["productivity"]}`)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.True(t, crawler.gotDive.Validate, "validation defaults on")
	assert.True(t, crawler.gotDive.Adaptive, "adaptive thresholds default on")
	assert.Equal(t, []string{"note app"}, crawler.gotDive.Topics)
}

func TestValidateSubreddits(t *testing.T) {
	t.Parallel()

	ts, _ := newTestServer(t, func(d *Deps) {
		d.Reddit = &fakeReddit{validation: models.SubredditValidation{
			Valid:      []string{"productivity"},
			Invalid:    []string{"nope"},
			Discovered: []string{"apps"},
		}}
	})

	resp := postJSON(t, ts.URL+"/crawl/reddit/validate-subreddits", `{"subreddits":["productivity","nope"]}`)
	var body models.SubredditValidation
	decodeBody(t, resp, &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"productivity"}, body.Valid)
	assert.Equal(t, []string{"apps"}, body.Discovered)
}

func TestWebsiteRejectsPrivateURL(t *testing.T) {
	t.Parallel()

	extractor := &fakeWebsite{}
	ts, _ := newTestServer(t, func(d *Deps) { d.Website = extractor })

	resp := postJSON(t, ts.URL+"/crawl/website", `{"url":"http://192.168.1.10/admin"}`)
	var errResp models.ErrorResponse
	decodeBody(t, resp, &errResp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "URLs pointing to internal/private IP addresses are not allowed", errResp.Error)
	assert.Zero(t, extractor.calls, "extractor must not run for rejected URLs")
}

func TestWebsite(t *testing.T) {
	t.Parallel()

	ts, _ := newTestServer(t, func(d *Deps) {
		d.Website = &fakeWebsite{result: &models.WebsiteExtract{
			URL:          "https://example.com",
			Domain:       "example.com",
			Title:        "Example",
			CrawledPages: 2,
		}}
	})

	resp := postJSON(t, ts.URL+"/crawl/website", `{"url":"https://example.com"}`)
	var body models.WebsiteExtract
	decodeBody(t, resp, &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "example.com", body.Domain)
	assert.Equal(t, 2, body.CrawledPages)
}

func TestJobLifecycleOverHTTP(t *testing.T) {
	t.Parallel()

	ts, _ := newTestServer(t)

	resp := postJSON(t, ts.URL+"/jobs/reviews",
		`{"requests":[{"app_id":"123","max_reviews":10},{"app_id":"456","max_reviews":10}]}`)
	var submit models.JobSubmitResponse
	decodeBody(t, resp, &submit)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	require.NotEmpty(t, submit.JobID)

	var job models.Job
	require.Eventually(t, func() bool {
		r, err := http.Get(ts.URL + "/jobs/" + submit.JobID)
		if err != nil {
			return false
		}
		decodeBody(t, r, &job)
		return job.Status == models.JobCompleted
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1.0, job.Progress)

	// A late subscriber replays the whole event log and the stream
	// closes because the job is terminal.
	r, err := http.Get(ts.URL + "/jobs/" + submit.JobID + "/events")
	require.NoError(t, err)
	frames := sseFrames(t, r)
	require.NotEmpty(t, frames)
	assert.Equal(t, "job_completed", frames[len(frames)-1]["type"])
}

func TestJobNotFound(t *testing.T) {
	t.Parallel()

	ts, _ := newTestServer(t)
	resp, err := http.Get(ts.URL + "/jobs/no-such-job")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestBodyCapReturns413(t *testing.T) {
	t.Parallel()

	manager := jobs.NewManager(jobs.Options{})
	srv := NewServer(Config{
		Middleware: middleware.Config{
			RateLimitPerMinute: 10000,
			RateLimitBurst:     100,
			MaxBodyBytes:       64,
		},
	}, Deps{
		Harvester: &fakeHarvester{},
		Feed:      &fakeFeed{},
		Reddit:    &fakeReddit{},
		Website:   &fakeWebsite{},
		Store:     &fakeStore{},
		Jobs:      manager,
		Palettes:  catalog.NewPalettes(t.TempDir()),
		FontPairs: catalog.NewFontPairs(t.TempDir()),
	})
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	big := `{"app_id":"123","max_reviews":10,"country":"` + strings.Repeat("x", 200) + `"}`
	resp := postJSON(t, ts.URL+"/crawl/app-store/reviews", big)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestCatalogEndpoints(t *testing.T) {
	t.Parallel()

	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/catalog/palettes")
	require.NoError(t, err)
	var palettes struct {
		Palettes []catalog.Palette `json:"palettes"`
		Total    int               `json:"total"`
	}
	decodeBody(t, resp, &palettes)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, palettes.Palettes, "curated fallback serves an empty store")
	assert.Equal(t, len(palettes.Palettes), palettes.Total)

	resp, err = http.Get(ts.URL + "/catalog/font-pairs")
	require.NoError(t, err)
	var pairs struct {
		FontPairs []catalog.FontPairing `json:"font_pairs"`
	}
	decodeBody(t, resp, &pairs)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, pairs.FontPairs)
}
