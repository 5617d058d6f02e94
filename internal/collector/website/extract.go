// Appscope - Mobile App Market Intelligence and Review Harvesting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/appscope

package website

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"

	"github.com/tomtom215/appscope/internal/models"
)

const (
	heroMaxLen        = 1000
	mainContentMaxLen = 2000
)

var (
	textPolicy = bluemonday.StrictPolicy()
	spaceRun   = regexp.MustCompile(`\s+`)
)

// cleanText strips markup remnants and collapses whitespace.
func cleanText(s string) string {
	s = textPolicy.Sanitize(s)
	return strings.TrimSpace(spaceRun.ReplaceAllString(s, " "))
}

func metaDescription(doc *goquery.Document) string {
	if content, ok := doc.Find(`meta[name="description"]`).First().Attr("content"); ok && content != "" {
		return cleanText(content)
	}
	if content, ok := doc.Find(`meta[property="og:description"]`).First().Attr("content"); ok {
		return cleanText(content)
	}
	return ""
}

// heroSelectors are probed in order; the first non-empty hit wins.
var heroSelectors = []string{
	".hero", ".jumbotron", ".banner", `[class*="hero"]`, "header",
}

func heroText(doc *goquery.Document) string {
	for _, sel := range heroSelectors {
		text := cleanText(doc.Find(sel).First().Text())
		if text != "" {
			if len(text) > heroMaxLen {
				text = text[:heroMaxLen]
			}
			return text
		}
	}
	return ""
}

func mainContent(doc *goquery.Document) string {
	for _, sel := range []string{"main", "article", `[role="main"]`, "body"} {
		text := cleanText(doc.Find(sel).First().Text())
		if text != "" {
			if len(text) > mainContentMaxLen {
				text = text[:mainContentMaxLen]
			}
			return text
		}
	}
	return ""
}

// extractFeatures unions heading and list-item text under feature-like
// containers.
func extractFeatures(doc *goquery.Document) []string {
	var features []string

	doc.Find(`[class*="feature"], [class*="benefit"]`).Each(func(_ int, container *goquery.Selection) {
		container.Find("h2, h3, h4, strong, b").Each(func(_ int, s *goquery.Selection) {
			text := cleanText(s.Text())
			if len(text) > 5 && len(text) < 100 {
				features = append(features, text)
			}
		})
		container.Find("li").Each(func(i int, s *goquery.Selection) {
			if i >= 10 {
				return
			}
			text := cleanText(s.Text())
			if len(text) > 5 && len(text) < 200 {
				features = append(features, text)
			}
		})
	})

	return features
}

// currencySymbols maps price-string symbols to ISO codes.
var currencySymbols = []struct {
	symbol string
	code   string
}{
	{"€", "EUR"},
	{"£", "GBP"},
	{"¥", "JPY"},
	{"$", "USD"},
}

var pricePattern = regexp.MustCompile(`[$€£¥]\s*\d+(?:[.,]\d{1,2})?|\d+(?:[.,]\d{1,2})?\s*(?:USD|EUR|GBP)|(?i:free)`)

// extractPricing reads plan cards out of pricing containers. Returns
// nil when the page carries no recognizable plans.
func extractPricing(doc *goquery.Document) *models.PricingInfo {
	info := &models.PricingInfo{Plans: []models.PricingPlan{}, Currency: "USD"}

	doc.Find(`[class*="pricing"], [class*="plan"], [class*="tier"]`).Each(func(_ int, container *goquery.Selection) {
		if len(info.Plans) >= 6 {
			return
		}
		text := cleanText(container.Text())
		price := pricePattern.FindString(text)
		if price == "" {
			return
		}

		plan := models.PricingPlan{
			Name:  cleanText(container.Find("h2, h3, h4, [class*='name'], [class*='title']").First().Text()),
			Price: price,
		}
		container.Find("li").Each(func(i int, s *goquery.Selection) {
			if i >= 10 {
				return
			}
			if t := cleanText(s.Text()); t != "" {
				plan.Features = append(plan.Features, t)
			}
		})
		info.Plans = append(info.Plans, plan)

		lower := strings.ToLower(text)
		if strings.Contains(lower, "free") || strings.Contains(lower, "$0") || strings.Contains(lower, "0/mo") {
			info.HasFreeTier = true
		}
		for _, cs := range currencySymbols {
			if strings.Contains(text, cs.symbol) {
				info.Currency = cs.code
				break
			}
		}
	})

	if len(info.Plans) == 0 {
		return nil
	}
	return info
}

var screenshotExclude = []string{"icon", "logo", "avatar", "profile"}

// extractScreenshots finds product imagery, skipping branding assets.
func extractScreenshots(doc *goquery.Document) []string {
	var shots []string
	doc.Find(`img[class*="screenshot"], img[class*="product"], img[class*="preview"], img[alt*="screenshot" i], img[alt*="product" i]`).
		Each(func(_ int, s *goquery.Selection) {
			src, ok := s.Attr("src")
			if !ok || src == "" {
				return
			}
			lower := strings.ToLower(src)
			for _, word := range screenshotExclude {
				if strings.Contains(lower, word) {
					return
				}
			}
			shots = append(shots, src)
		})
	return shots
}

func extractTestimonials(doc *goquery.Document) []string {
	var out []string
	doc.Find(`[class*="testimonial"], [class*="review"], blockquote`).Each(func(_ int, s *goquery.Selection) {
		text := cleanText(s.Text())
		if len(text) >= 20 && len(text) <= 500 {
			out = append(out, text)
		}
	})
	return out
}

// technologyHints maps display names to the substrings that betray
// them in raw page source.
var technologyHints = []struct {
	name    string
	markers []string
}{
	{"React", []string{"react.production", "react-dom", "_reactRoot", "data-reactroot"}},
	{"Vue.js", []string{"vue.runtime", "data-v-app", "__vue__"}},
	{"Angular", []string{"ng-version", "angular.min.js"}},
	{"Next.js", []string{"__NEXT_DATA__", "_next/static"}},
	{"Nuxt", []string{"__NUXT__", "_nuxt/"}},
	{"Svelte", []string{"svelte-"}},
	{"jQuery", []string{"jquery.min.js", "jquery-"}},
	{"Tailwind CSS", []string{"tailwindcss", "tailwind.min.css"}},
	{"Bootstrap", []string{"bootstrap.min.css", "bootstrap.bundle"}},
	{"WordPress", []string{"wp-content", "wp-includes"}},
	{"Shopify", []string{"cdn.shopify.com", "Shopify.theme"}},
	{"Webflow", []string{"webflow.js", "w-nav"}},
	{"Squarespace", []string{"squarespace.com", "sqs-block"}},
	{"Stripe", []string{"js.stripe.com"}},
	{"Intercom", []string{"widget.intercom.io", "intercomSettings"}},
	{"Google Analytics", []string{"google-analytics.com", "gtag("}},
	{"Segment", []string{"cdn.segment.com"}},
	{"Hotjar", []string{"static.hotjar.com"}},
}

// detectTechnologies substring-matches the raw HTML against the hint
// dictionary.
func detectTechnologies(html string) []string {
	var found []string
	for _, tech := range technologyHints {
		for _, marker := range tech.markers {
			if strings.Contains(html, marker) {
				found = append(found, tech.name)
				break
			}
		}
	}
	return found
}

// socialPatterns match profile URLs per platform; only the first hit
// per platform is kept.
var socialPatterns = map[string]*regexp.Regexp{
	"twitter":   regexp.MustCompile(`(?:twitter\.com|x\.com)/[A-Za-z0-9_]+`),
	"facebook":  regexp.MustCompile(`facebook\.com/[A-Za-z0-9_.]+`),
	"linkedin":  regexp.MustCompile(`linkedin\.com/(?:company|in)/[A-Za-z0-9_-]+`),
	"instagram": regexp.MustCompile(`instagram\.com/[A-Za-z0-9_.]+`),
	"youtube":   regexp.MustCompile(`youtube\.com/(?:@|c/|channel/|user/)?[A-Za-z0-9_-]+`),
	"github":    regexp.MustCompile(`github\.com/[A-Za-z0-9_-]+`),
}

func extractSocialLinks(doc *goquery.Document) map[string]string {
	links := map[string]string{}
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		for platform, pattern := range socialPatterns {
			if _, ok := links[platform]; ok {
				continue
			}
			if pattern.MatchString(href) {
				links[platform] = href
			}
		}
	})
	return links
}
