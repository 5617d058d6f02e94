// Appscope - Mobile App Market Intelligence and Review Harvesting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/appscope

package appstore

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/appscope/internal/logging"
	"github.com/tomtom215/appscope/internal/models"
)

// Chart progress event names.
const (
	EventCountryStart    = "country_start"
	EventCountryProgress = "country_progress"
	EventCountryComplete = "country_complete"
	EventComplete        = "complete"
)

// Event is one chart progress payload.
type Event map[string]interface{}

// Sink receives chart progress events.
type Sink func(Event)

// genreIDs maps App Store category names to RSS feed genre ids.
var genreIDs = map[string]string{
	"Books":             "6018",
	"Business":          "6000",
	"Developer Tools":   "6026",
	"Education":         "6017",
	"Entertainment":     "6016",
	"Finance":           "6015",
	"Food & Drink":      "6023",
	"Games":             "6014",
	"Health & Fitness":  "6013",
	"Lifestyle":         "6012",
	"Medical":           "6020",
	"Music":             "6011",
	"Navigation":        "6010",
	"News":              "6009",
	"Photo & Video":     "6008",
	"Productivity":      "6007",
	"Reference":         "6006",
	"Shopping":          "6024",
	"Social Networking": "6005",
	"Sports":            "6004",
	"Travel":            "6003",
	"Utilities":         "6002",
	"Weather":           "6001",
}

// ChartParams selects a top-chart scrape.
type ChartParams struct {
	Category       string
	Countries      []string
	AppsPerCountry int
	IncludePaid    bool
}

// ChartResult is the cross-country scrape payload.
type ChartResult struct {
	Category  string                       `json:"category"`
	Countries map[string][]models.ChartApp `json:"countries"`
	Presence  []models.ChartPresence       `json:"presence"`
}

// TopCharts scrapes the RSS top-apps feed per country, enriches each
// ranked app through the lookup API in batches, and aggregates
// cross-country presence. Countries that fail are skipped.
func (c *Client) TopCharts(ctx context.Context, params ChartParams, sink Sink) (*ChartResult, error) {
	if params.AppsPerCountry <= 0 || params.AppsPerCountry > 100 {
		params.AppsPerCountry = 50
	}

	result := &ChartResult{
		Category:  params.Category,
		Countries: make(map[string][]models.ChartApp, len(params.Countries)),
	}
	presence := map[string]*models.ChartPresence{}
	var order []string

	for _, country := range params.Countries {
		if ctx.Err() != nil {
			break
		}
		emit(sink, Event{"type": EventCountryStart, "country": country})

		apps, err := c.chartForCountry(ctx, country, params, sink)
		if err != nil {
			logging.Warn().Err(err).Str("country", country).Msg("top-chart scrape failed")
			emit(sink, Event{"type": EventCountryComplete, "country": country, "apps": 0})
			continue
		}
		result.Countries[country] = apps
		emit(sink, Event{"type": EventCountryComplete, "country": country, "apps": len(apps)})

		for _, app := range apps {
			p := presence[app.ID]
			if p == nil {
				p = &models.ChartPresence{
					AppStoreID:      app.ID,
					AppName:         app.Name,
					AppIconURL:      app.IconURL,
					AppDeveloper:    app.Developer,
					AppRating:       app.Rating,
					AppReviewCount:  app.ReviewCount,
					AppPrimaryGenre: app.PrimaryGenre,
					AppURL:          app.URL,
					CountryRanks:    map[string]int{},
				}
				presence[app.ID] = p
				order = append(order, app.ID)
			}
			p.CountriesPresent = append(p.CountriesPresent, country)
			p.CountryRanks[country] = app.Rank
		}
	}

	for _, id := range order {
		p := presence[id]
		p.PresenceCount = len(p.CountriesPresent)
		if p.PresenceCount > 0 {
			sum := 0
			for _, rank := range p.CountryRanks {
				sum += rank
			}
			avg := float64(sum) / float64(p.PresenceCount)
			p.AverageRank = &avg
		}
		result.Presence = append(result.Presence, *p)
	}

	emit(sink, Event{
		"type":       EventComplete,
		"countries":  len(result.Countries),
		"uniqueApps": len(result.Presence),
	})
	return result, nil
}

// chartForCountry fetches one country's ranked feed and enriches it.
func (c *Client) chartForCountry(ctx context.Context, country string, params ChartParams, sink Sink) ([]models.ChartApp, error) {
	feedKind := "topfreeapplications"
	if params.IncludePaid {
		feedKind = "topgrossingapplications"
	}
	url := fmt.Sprintf("%s/%s/rss/%s/limit=%d", c.lookupHost, country, feedKind, params.AppsPerCountry)
	if genre, ok := genreIDs[params.Category]; ok {
		url += "/genre=" + genre
	}
	url += "/json"

	var feed chartFeed
	if err := c.client.FetchJSON(ctx, url, nil, &feed); err != nil {
		return nil, err
	}

	apps := make([]models.ChartApp, 0, len(feed.Feed.Entry))
	ids := make([]string, 0, len(feed.Feed.Entry))
	for i, entry := range feed.Feed.Entry {
		id := entry.ID.Attributes.ID
		if id == "" {
			continue
		}
		price, _ := strconv.ParseFloat(entry.Price.Attributes.Amount, 64)
		app := models.ChartApp{
			ID:        id,
			Name:      entry.Name.Label,
			BundleID:  entry.ID.Attributes.BundleID,
			Developer: entry.Artist.Label,
			Price:     price,
			Currency:  entry.Price.Attributes.Currency,
			URL:       entry.ID.Label,
			Rank:      i + 1,
		}
		if len(entry.Image) > 0 {
			app.IconURL = entry.Image[len(entry.Image)-1].Label
		}
		apps = append(apps, app)
		ids = append(ids, id)
	}

	emit(sink, Event{"type": EventCountryProgress, "country": country, "fetched": len(apps)})
	c.enrich(ctx, country, apps, ids)
	return apps, nil
}

// enrich fills chart apps from the lookup API, batched at the API's
// 200-id ceiling. Enrichment failures leave the feed fields in place.
func (c *Client) enrich(ctx context.Context, country string, apps []models.ChartApp, ids []string) {
	byID := make(map[string]*models.ChartApp, len(apps))
	for i := range apps {
		byID[apps[i].ID] = &apps[i]
	}

	for start := 0; start < len(ids); start += lookupBatchSize {
		end := start + lookupBatchSize
		if end > len(ids) {
			end = len(ids)
		}
		url := fmt.Sprintf("%s/lookup?id=%s&country=%s", c.lookupHost, strings.Join(ids[start:end], ","), country)

		var env lookupEnvelope
		if err := c.client.FetchJSON(ctx, url, nil, &env); err != nil {
			logging.Warn().Err(err).Str("country", country).Msg("chart enrichment lookup failed")
			continue
		}
		for i := range env.Results {
			r := &env.Results[i]
			app, ok := byID[strconv.FormatInt(r.TrackID, 10)]
			if !ok {
				continue
			}
			app.Rating = r.AverageUserRating
			app.ReviewCount = r.UserRatingCount
			app.Version = r.Version
			app.ReleaseDate = r.CurrentVersionReleaseDate
			app.Genres = r.Genres
			app.PrimaryGenre = r.PrimaryGenreName
			app.ContentRating = r.ContentAdvisoryRating
			if r.TrackViewURL != "" {
				app.URL = r.TrackViewURL
			}
			if r.Description != "" {
				app.Description = truncate(r.Description, 500)
			}
		}
		if end < len(ids) {
			if err := c.sleep(ctx, 300*time.Millisecond); err != nil {
				return
			}
		}
	}
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func emit(sink Sink, event Event) {
	if sink != nil {
		sink(event)
	}
}
