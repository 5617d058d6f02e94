// Appscope - Mobile App Market Intelligence and Review Harvesting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/appscope

package models

// WebsiteExtract is the structured result of a landing-page crawl.
type WebsiteExtract struct {
	URL          string            `json:"url"`
	Domain       string            `json:"domain"`
	Title        string            `json:"title"`
	Description  string            `json:"description"`
	HeroText     string            `json:"hero_text,omitempty"`
	MainContent  string            `json:"main_content"`
	Features     []string          `json:"features"`
	PricingInfo  *PricingInfo      `json:"pricing_info"`
	Screenshots  []string          `json:"screenshots"`
	Testimonials []string          `json:"testimonials"`
	Technologies []string          `json:"technologies,omitempty"`
	SocialLinks  map[string]string `json:"social_links"`
	CrawledPages int               `json:"crawled_pages"`
}

// PricingInfo groups the pricing plans discovered on a pricing page.
type PricingInfo struct {
	Plans       []PricingPlan `json:"plans"`
	Currency    string        `json:"currency"`
	HasFreeTier bool          `json:"has_free_tier"`
}

// PricingPlan is one plan card extracted from a pricing container.
type PricingPlan struct {
	Name     string   `json:"name"`
	Price    string   `json:"price"`
	Features []string `json:"features,omitempty"`
}
