// Appscope - Mobile App Market Intelligence and Review Harvesting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/appscope

// Package appstore covers the lookup-API surfaces that sit next to the
// review pipeline: version history, privacy labels, and the
// cross-country top-chart scrape.
package appstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/tomtom215/appscope/internal/fetch"
	"github.com/tomtom215/appscope/internal/logging"
	"github.com/tomtom215/appscope/internal/models"
)

const (
	lookupCacheTTL = 6 * time.Hour

	// The lookup API accepts at most 200 ids per call.
	lookupBatchSize = 200
)

// Client drives the iTunes lookup API and the public storefront pages.
type Client struct {
	client        *fetch.Client
	lookupHost    string
	storefrontURL string

	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient creates an app-store metadata client.
func NewClient(client *fetch.Client) *Client {
	return &Client{
		client:        client,
		lookupHost:    "https://itunes.apple.com",
		storefrontURL: "https://apps.apple.com",
		sleep:         sleepCtx,
	}
}

// lookup fetches one app's lookup record, cache-backed.
func (c *Client) lookup(ctx context.Context, appID, country string) (*lookupApp, error) {
	url := fmt.Sprintf("%s/lookup?id=%s&country=%s", c.lookupHost, appID, country)
	var env lookupEnvelope
	spec := &fetch.CacheSpec{
		Type:       "lookup",
		Identifier: appID,
		Params:     map[string]interface{}{"country": country},
		TTL:        lookupCacheTTL,
	}
	if err := c.client.FetchJSONCached(ctx, url, nil, spec, &env); err != nil {
		return nil, err
	}
	if len(env.Results) == 0 {
		return nil, fmt.Errorf("app %s not found in %s storefront", appID, country)
	}
	return &env.Results[0], nil
}

// WhatsNew returns the app's version history: the current version from
// the lookup API, plus whatever older entries the storefront page
// exposes. The page scrape is best effort; its failure only shortens
// the list.
func (c *Client) WhatsNew(ctx context.Context, appID, country string) ([]models.VersionNote, error) {
	app, err := c.lookup(ctx, appID, country)
	if err != nil {
		return nil, err
	}

	notes := []models.VersionNote{{
		Version:     app.Version,
		ReleaseDate: app.CurrentVersionReleaseDate,
		Notes:       app.ReleaseNotes,
	}}

	seen := map[string]bool{app.Version: true}
	for _, n := range c.scrapeVersionHistory(ctx, appID, country) {
		if n.Version == "" || seen[n.Version] {
			continue
		}
		seen[n.Version] = true
		notes = append(notes, n)
	}
	return notes, nil
}

// scrapeVersionHistory pulls older version entries out of the public
// storefront page.
func (c *Client) scrapeVersionHistory(ctx context.Context, appID, country string) []models.VersionNote {
	url := fmt.Sprintf("%s/%s/app/id%s", c.storefrontURL, country, appID)
	html, err := c.client.FetchText(ctx, url, nil)
	if err != nil {
		logging.Debug().Err(err).Str("app_id", appID).Msg("storefront page fetch failed")
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var notes []models.VersionNote
	doc.Find(`[class*="version-history"] li, [class*="whats-new"] li`).Each(func(_ int, s *goquery.Selection) {
		version := strings.TrimSpace(s.Find(`[class*="version"] , h4`).First().Text())
		if version == "" {
			return
		}
		notes = append(notes, models.VersionNote{
			Version:     version,
			ReleaseDate: strings.TrimSpace(s.Find("time").First().AttrOr("datetime", "")),
			Notes:       strings.TrimSpace(s.Find("p").Text()),
		})
	})
	return notes
}

// PrivacyInfo is the privacy-label harvest result.
type PrivacyInfo struct {
	AppID            string                `json:"app_id"`
	PrivacyPolicyURL string                `json:"privacy_policy_url,omitempty"`
	Labels           []models.PrivacyLabel `json:"labels"`
}

// Privacy returns the app's privacy labels: the seller policy URL from
// the lookup API plus the storefront privacy cards when the page
// exposes them.
func (c *Client) Privacy(ctx context.Context, appID, country string) (*PrivacyInfo, error) {
	app, err := c.lookup(ctx, appID, country)
	if err != nil {
		return nil, err
	}

	info := &PrivacyInfo{
		AppID:            appID,
		PrivacyPolicyURL: app.SellerURL,
		Labels:           []models.PrivacyLabel{},
	}
	info.Labels = append(info.Labels, c.scrapePrivacyLabels(ctx, appID, country)...)
	return info, nil
}

// scrapePrivacyLabels reads the storefront privacy cards, best effort.
func (c *Client) scrapePrivacyLabels(ctx context.Context, appID, country string) []models.PrivacyLabel {
	url := fmt.Sprintf("%s/%s/app/id%s", c.storefrontURL, country, appID)
	html, err := c.client.FetchText(ctx, url, nil)
	if err != nil {
		logging.Debug().Err(err).Str("app_id", appID).Msg("storefront page fetch failed")
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var labels []models.PrivacyLabel
	doc.Find(`[class*="privacy-type__card"], [class*="app-privacy"] [class*="card"]`).Each(func(_ int, card *goquery.Selection) {
		category := strings.TrimSpace(card.Find("h3, h4").First().Text())
		if category == "" {
			return
		}
		label := models.PrivacyLabel{Category: category, DataTypes: []string{}}
		card.Find("li, [class*=\"data-category\"]").Each(func(_ int, s *goquery.Selection) {
			if t := strings.TrimSpace(s.Text()); t != "" {
				label.DataTypes = append(label.DataTypes, t)
			}
		})
		labels = append(labels, label)
	})
	return labels
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
