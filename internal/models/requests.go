// Appscope - Mobile App Market Intelligence and Review Harvesting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/appscope

package models

// Request types for the crawl endpoints. Validation tags are enforced
// by internal/validation before any collector runs.

// ReviewsRequest drives the combined feed+browser review pipeline.
type ReviewsRequest struct {
	AppID        string `json:"app_id" validate:"required,numeric,max=20"`
	Country      string `json:"country" validate:"omitempty,alpha,len=2"`
	MaxReviews   int    `json:"max_reviews" validate:"required,min=1,max=10000"`
	MinRating    *int   `json:"min_rating" validate:"omitempty,min=1,max=5"`
	MaxRating    *int   `json:"max_rating" validate:"omitempty,min=1,max=5"`
	MultiCountry bool   `json:"multi_country"`
}

// ReviewFilter is one {sort-order, target} pair of a streaming feed crawl.
type ReviewFilter struct {
	Sort   string `json:"sort" validate:"required,oneof=mostRecent mostHelpful mostFavorable mostCritical"`
	Target int    `json:"target" validate:"required,min=1,max=2000"`
}

// StealthConfig tunes the feed collector's pacing.
type StealthConfig struct {
	BaseDelay      float64 `json:"base_delay" validate:"omitempty,min=0.5,max=10"`
	Randomization  float64 `json:"randomization" validate:"omitempty,min=0,max=100"`
	FilterCooldown float64 `json:"filter_cooldown" validate:"omitempty,min=1,max=30"`
	AutoThrottle   *bool   `json:"auto_throttle"`
}

// StreamReviewsRequest drives the SSE feed-only crawl.
type StreamReviewsRequest struct {
	AppID   string         `json:"app_id" validate:"required,numeric,max=20"`
	Country string         `json:"country" validate:"omitempty,alpha,len=2"`
	Filters []ReviewFilter `json:"filters" validate:"required,min=1,max=10,dive"`
	Stealth *StealthConfig `json:"stealth" validate:"omitempty"`
}

// RedditRequest drives the simple keyword discussion crawl.
type RedditRequest struct {
	Keywords           []string `json:"keywords" validate:"required,min=1,max=10,dive,required,max=200"`
	Subreddits         []string `json:"subreddits" validate:"omitempty,max=20,dive,max=100"`
	MaxPosts           int      `json:"max_posts" validate:"omitempty,min=1,max=200"`
	MaxCommentsPerPost int      `json:"max_comments_per_post" validate:"omitempty,min=1,max=100"`
	TimeFilter         string   `json:"time_filter" validate:"omitempty,oneof=hour day week month year all"`
	Sort               string   `json:"sort" validate:"omitempty,oneof=relevance hot top new comments"`
}

// DeepDiveRequest drives the two-phase community deep-dive.
type DeepDiveRequest struct {
	SearchTopics          []string `json:"search_topics" validate:"required,min=1,max=10,dive,required,max=200"`
	Subreddits            []string `json:"subreddits" validate:"required,min=1,max=20,dive,required,max=100"`
	TimeFilter            string   `json:"time_filter" validate:"omitempty,oneof=week month year"`
	MaxPostsPerCombo      int      `json:"max_posts_per_combo" validate:"omitempty,min=1,max=100"`
	MaxCommentsPerPost    int      `json:"max_comments_per_post" validate:"omitempty,min=1,max=100"`
	ValidateSubreddits    *bool    `json:"validate_subreddits"`
	UseAdaptiveThresholds *bool    `json:"use_adaptive_thresholds"`
}

// ValidateSubredditsRequest drives standalone community validation.
type ValidateSubredditsRequest struct {
	Subreddits []string `json:"subreddits" validate:"required,min=1,max=20,dive,required,max=100"`
}

// WebsiteRequest drives the landing-page extractor. The URL is
// additionally screened by the SSRF guard before any fetch.
type WebsiteRequest struct {
	URL             string `json:"url" validate:"required,url,max=2000"`
	MaxPages        int    `json:"max_pages" validate:"omitempty,min=1,max=25"`
	IncludeSubpages *bool  `json:"include_subpages"`
	ExtractPricing  *bool  `json:"extract_pricing"`
	ExtractFeatures *bool  `json:"extract_features"`
}

// AppLookupRequest drives the whats-new and privacy endpoints.
type AppLookupRequest struct {
	AppID   string `json:"app_id" validate:"required,numeric,max=20"`
	Country string `json:"country" validate:"omitempty,alpha,len=2"`
}

// TopChartsRequest drives the cross-country top-chart scrape.
type TopChartsRequest struct {
	Category       string   `json:"category" validate:"required,max=50"`
	Countries      []string `json:"countries" validate:"required,min=1,max=20,dive,alpha,len=2"`
	AppsPerCountry int      `json:"apps_per_country" validate:"omitempty,min=1,max=100"`
	IncludePaid    *bool    `json:"include_paid"`
}

// BatchReviewsRequest submits a batch of review crawls as one async job.
type BatchReviewsRequest struct {
	Requests []ReviewsRequest `json:"requests" validate:"required,min=1,max=20,dive"`
}
