// Appscope - Mobile App Market Intelligence and Review Harvesting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/appscope

package appstore

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/appscope/internal/fetch"
)

const lookupJSON = `{
  "resultCount": 1,
  "results": [{
    "trackId": 100001,
    "trackName": "Notely",
    "bundleId": "com.example.notely",
    "artistName": "Example Labs",
    "version": "3.2.1",
    "currentVersionReleaseDate": "2026-08-01T10:00:00Z",
    "releaseNotes": "Fixed sync conflicts and improved search.",
    "sellerUrl": "https://notely.example.com",
    "averageUserRating": 4.6,
    "userRatingCount": 12345,
    "genres": ["Productivity", "Utilities"],
    "primaryGenreName": "Productivity",
    "trackViewUrl": "https://apps.apple.com/us/app/id100001"
  }]
}`

const storefrontHTML = `<html><body>
<section class="version-history">
  <ul>
    <li><h4>3.2.1</h4><time datetime="2026-08-01"></time><p>Fixed sync conflicts and improved search.</p></li>
    <li><h4>3.2.0</h4><time datetime="2026-07-10"></time><p>New widgets.</p></li>
    <li><h4>3.1.0</h4><time datetime="2026-06-02"></time><p>Folders.</p></li>
  </ul>
</section>
<section class="app-privacy">
  <div class="privacy-type__card">
    <h3>Data Linked to You</h3>
    <ul><li>Contact Info</li><li>Identifiers</li></ul>
  </div>
  <div class="privacy-type__card">
    <h3>Data Not Linked to You</h3>
    <ul><li>Diagnostics</li></ul>
  </div>
</section>
</body></html>`

func newTestClient(handler http.Handler) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	c := NewClient(fetch.NewClient(fetch.Config{
		Limiter: fetch.NewLimiter(100000, 100000, 16),
		Sleep:   func(ctx context.Context, d time.Duration) error { return ctx.Err() },
		Jitter:  func() time.Duration { return time.Millisecond },
	}))
	c.lookupHost = srv.URL
	c.storefrontURL = srv.URL
	c.sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }
	return c, srv
}

func TestWhatsNewMergesLookupAndStorefront(t *testing.T) {
	t.Parallel()

	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/lookup") {
			fmt.Fprint(w, lookupJSON)
			return
		}
		fmt.Fprint(w, storefrontHTML)
	}))
	defer srv.Close()

	notes, err := c.WhatsNew(context.Background(), "100001", "us")
	require.NoError(t, err)

	// Current version from the lookup API first; the storefront's
	// duplicate 3.2.1 entry is dropped.
	require.Len(t, notes, 3)
	assert.Equal(t, "3.2.1", notes[0].Version)
	assert.Equal(t, "Fixed sync conflicts and improved search.", notes[0].Notes)
	assert.Equal(t, "3.2.0", notes[1].Version)
	assert.Equal(t, "2026-07-10", notes[1].ReleaseDate)
	assert.Equal(t, "3.1.0", notes[2].Version)
}

func TestWhatsNewSurvivesStorefrontFailure(t *testing.T) {
	t.Parallel()

	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/lookup") {
			fmt.Fprint(w, lookupJSON)
			return
		}
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	notes, err := c.WhatsNew(context.Background(), "100001", "us")
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "3.2.1", notes[0].Version)
}

func TestWhatsNewUnknownApp(t *testing.T) {
	t.Parallel()

	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"resultCount": 0, "results": []}`)
	}))
	defer srv.Close()

	_, err := c.WhatsNew(context.Background(), "999999", "us")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestPrivacyLabels(t *testing.T) {
	t.Parallel()

	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/lookup") {
			fmt.Fprint(w, lookupJSON)
			return
		}
		fmt.Fprint(w, storefrontHTML)
	}))
	defer srv.Close()

	info, err := c.Privacy(context.Background(), "100001", "us")
	require.NoError(t, err)

	assert.Equal(t, "https://notely.example.com", info.PrivacyPolicyURL)
	require.Len(t, info.Labels, 2)
	assert.Equal(t, "Data Linked to You", info.Labels[0].Category)
	assert.Equal(t, []string{"Contact Info", "Identifiers"}, info.Labels[0].DataTypes)
	assert.Equal(t, []string{"Diagnostics"}, info.Labels[1].DataTypes)
}

func chartFeedJSON(ids ...string) string {
	var entries []string
	for _, id := range ids {
		entries = append(entries, fmt.Sprintf(`{
			"im:name": {"label": "App %[1]s"},
			"im:artist": {"label": "Dev %[1]s"},
			"im:price": {"attributes": {"amount": "0.00", "currency": "USD"}},
			"id": {"label": "https://apps.apple.com/us/app/id%[1]s", "attributes": {"im:id": "%[1]s", "im:bundleId": "com.example.a%[1]s"}},
			"im:image": [{"label": "https://img.example.com/%[1]s-small.png"}, {"label": "https://img.example.com/%[1]s.png"}]
		}`, id))
	}
	return fmt.Sprintf(`{"feed": {"entry": [%s]}}`, strings.Join(entries, ","))
}

func chartLookupJSON(ids ...string) string {
	var results []string
	for _, id := range ids {
		results = append(results, fmt.Sprintf(`{
			"trackId": %[1]s,
			"averageUserRating": 4.2,
			"userRatingCount": 900,
			"version": "1.0",
			"primaryGenreName": "Productivity",
			"trackViewUrl": "https://apps.apple.com/app/id%[1]s"
		}`, id))
	}
	return fmt.Sprintf(`{"resultCount": %d, "results": [%s]}`, len(results), strings.Join(results, ","))
}

func TestTopChartsAggregatesPresence(t *testing.T) {
	t.Parallel()

	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "/us/rss/"):
			fmt.Fprint(w, chartFeedJSON("111", "222"))
		case strings.Contains(r.URL.Path, "/gb/rss/"):
			fmt.Fprint(w, chartFeedJSON("222", "333"))
		case strings.HasPrefix(r.URL.Path, "/lookup"):
			ids := strings.Split(r.URL.Query().Get("id"), ",")
			fmt.Fprint(w, chartLookupJSON(ids...))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	var events []Event
	result, err := c.TopCharts(context.Background(), ChartParams{
		Category:  "Productivity",
		Countries: []string{"us", "gb"},
	}, func(e Event) { events = append(events, e) })
	require.NoError(t, err)

	require.Len(t, result.Countries["us"], 2)
	require.Len(t, result.Countries["gb"], 2)
	assert.Equal(t, 1, result.Countries["us"][0].Rank)
	assert.Equal(t, 4.2, result.Countries["us"][0].Rating, "enriched from lookup")
	assert.Equal(t, "https://img.example.com/111.png", result.Countries["us"][0].IconURL, "largest image wins")

	// App 222 charts in both countries.
	require.Len(t, result.Presence, 3)
	byID := map[string]int{}
	for i, p := range result.Presence {
		byID[p.AppStoreID] = i
	}
	p := result.Presence[byID["222"]]
	assert.Equal(t, 2, p.PresenceCount)
	assert.Equal(t, map[string]int{"us": 2, "gb": 1}, p.CountryRanks)
	require.NotNil(t, p.AverageRank)
	assert.Equal(t, 1.5, *p.AverageRank)

	// Event envelope: start/progress/complete per country, then the
	// terminal summary.
	var types []string
	for _, e := range events {
		types = append(types, e["type"].(string))
	}
	assert.Equal(t, []string{
		EventCountryStart, EventCountryProgress, EventCountryComplete,
		EventCountryStart, EventCountryProgress, EventCountryComplete,
		EventComplete,
	}, types)
}

func TestTopChartsSkipsFailingCountry(t *testing.T) {
	t.Parallel()

	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "/us/rss/"):
			http.Error(w, "unavailable", http.StatusNotFound)
		case strings.Contains(r.URL.Path, "/gb/rss/"):
			fmt.Fprint(w, chartFeedJSON("444"))
		case strings.HasPrefix(r.URL.Path, "/lookup"):
			fmt.Fprint(w, chartLookupJSON("444"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	result, err := c.TopCharts(context.Background(), ChartParams{
		Category:  "Games",
		Countries: []string{"us", "gb"},
	}, nil)
	require.NoError(t, err)

	assert.NotContains(t, result.Countries, "us")
	require.Len(t, result.Countries["gb"], 1)
	assert.Len(t, result.Presence, 1)
}
