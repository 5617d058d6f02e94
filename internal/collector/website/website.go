// Appscope - Mobile App Market Intelligence and Review Harvesting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/appscope

// Package website extracts market intelligence from competitor landing
// pages: metadata, hero copy, feature lists, pricing plans,
// screenshots, testimonials, technology hints, and social links, with
// an optional prioritized subpage traversal on the same host.
package website

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/tomtom215/appscope/internal/fetch"
	"github.com/tomtom215/appscope/internal/logging"
	"github.com/tomtom215/appscope/internal/models"
	"github.com/tomtom215/appscope/internal/security"
)

// subpagePriority front-loads the queue with the pages most likely to
// carry product intelligence.
var subpagePriority = []string{
	"pricing", "price", "plans", "features", "capabilities",
	"about", "testimonials", "reviews", "faq",
}

// Options tunes the extractor.
type Options struct {
	MaxPages     int
	SubpageDelay time.Duration
}

// Params selects what a single extraction run does.
type Params struct {
	URL             string
	MaxPages        int
	IncludeSubpages bool
	ExtractPricing  bool
	ExtractFeatures bool
}

// Extractor crawls landing pages through the shared substrate.
type Extractor struct {
	client *fetch.Client
	opts   Options

	guard func(string) error
	sleep func(ctx context.Context, d time.Duration) error
}

// NewExtractor creates a website extractor.
func NewExtractor(client *fetch.Client, opts Options) *Extractor {
	if opts.MaxPages <= 0 {
		opts.MaxPages = 10
	}
	if opts.SubpageDelay <= 0 {
		opts.SubpageDelay = 500 * time.Millisecond
	}
	return &Extractor{
		client: client,
		opts:   opts,
		guard:  security.ValidateOutboundURL,
		sleep:  sleepCtx,
	}
}

// Extract crawls up to MaxPages same-host pages starting at the root
// URL and merges what each page yields. The SSRF guard runs before
// every fetch, including discovered subpages.
func (e *Extractor) Extract(ctx context.Context, params Params) (*models.WebsiteExtract, error) {
	if err := e.guard(params.URL); err != nil {
		return nil, err
	}
	root, err := url.Parse(params.URL)
	if err != nil {
		return nil, err
	}
	maxPages := params.MaxPages
	if maxPages <= 0 || maxPages > e.opts.MaxPages {
		maxPages = e.opts.MaxPages
	}

	result := &models.WebsiteExtract{
		URL:          params.URL,
		Domain:       root.Host,
		Features:     []string{},
		Screenshots:  []string{},
		Testimonials: []string{},
		SocialLinks:  map[string]string{},
	}

	queue := []string{params.URL}
	visited := map[string]bool{}

	for len(queue) > 0 && result.CrawledPages < maxPages {
		if ctx.Err() != nil {
			break
		}
		pageURL := queue[0]
		queue = queue[1:]
		if visited[pageURL] {
			continue
		}
		visited[pageURL] = true

		if e.guard(pageURL) != nil {
			continue
		}

		html, err := e.client.FetchText(ctx, pageURL, nil)
		if err != nil {
			logging.Warn().Err(err).Str("url", pageURL).Msg("page fetch failed")
			continue
		}
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		if err != nil {
			logging.Warn().Err(err).Str("url", pageURL).Msg("page parse failed")
			continue
		}

		first := result.CrawledPages == 0
		result.CrawledPages++
		mergePage(result, doc, html, params, first)

		if params.IncludeSubpages && result.CrawledPages < maxPages {
			queue = enqueueSubpages(queue, doc, root, visited)
			if len(queue) > 0 {
				if err := e.sleep(ctx, e.opts.SubpageDelay); err != nil {
					break
				}
			}
		}
	}

	return result, nil
}

// mergePage folds one parsed page into the running result. Scalar
// fields keep the first non-empty value; list fields accumulate.
func mergePage(result *models.WebsiteExtract, doc *goquery.Document, html string, params Params, first bool) {
	if result.Title == "" {
		result.Title = cleanText(doc.Find("title").First().Text())
	}
	if result.Description == "" {
		result.Description = metaDescription(doc)
	}
	if result.HeroText == "" {
		result.HeroText = heroText(doc)
	}
	if first {
		result.MainContent = mainContent(doc)
	}

	if params.ExtractFeatures {
		result.Features = appendUnique(result.Features, extractFeatures(doc), 30)
	}
	if params.ExtractPricing && result.PricingInfo == nil {
		result.PricingInfo = extractPricing(doc)
	}
	result.Screenshots = appendUnique(result.Screenshots, extractScreenshots(doc), 20)
	result.Testimonials = appendUnique(result.Testimonials, extractTestimonials(doc), 10)
	result.Technologies = appendUnique(result.Technologies, detectTechnologies(html), 20)

	for platform, link := range extractSocialLinks(doc) {
		if _, ok := result.SocialLinks[platform]; !ok {
			result.SocialLinks[platform] = link
		}
	}
}

// enqueueSubpages collects unvisited same-host links, placing
// high-value paths at the front of the queue.
func enqueueSubpages(queue []string, doc *goquery.Document, root *url.URL, visited map[string]bool) []string {
	var priority, rest []string
	queued := map[string]bool{}
	for _, u := range queue {
		queued[u] = true
	}

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		link, err := root.Parse(href)
		if err != nil || link.Host != root.Host {
			return
		}
		link.Fragment = ""
		abs := link.String()
		if visited[abs] || queued[abs] {
			return
		}
		queued[abs] = true

		lower := strings.ToLower(link.Path)
		for _, keyword := range subpagePriority {
			if strings.Contains(lower, keyword) {
				priority = append(priority, abs)
				return
			}
		}
		rest = append(rest, abs)
	})

	return append(append(priority, queue...), rest...)
}

func appendUnique(dst, src []string, limit int) []string {
	seen := make(map[string]bool, len(dst))
	for _, v := range dst {
		seen[v] = true
	}
	for _, v := range src {
		if len(dst) >= limit {
			break
		}
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		dst = append(dst, v)
	}
	return dst
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
