// Appscope - Mobile App Market Intelligence and Review Harvesting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/appscope

// Package models defines the domain entities shared across collectors,
// the pipeline, and the API layer.
package models

import (
	"crypto/sha256"
	"encoding/hex"
)

// Review source tags.
const (
	ReviewSourceFeed    = "feed"
	ReviewSourceBrowser = "browser"
)

// MaxReviewContentLen caps review content at ingest.
const MaxReviewContentLen = 5000

// Review is a single user review harvested from either collector.
//
// Rating is a pointer so a missing or out-of-range source rating stays
// null instead of skewing aggregate statistics toward zero.
type Review struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Content    string `json:"content"`
	Rating     *int   `json:"rating"`
	Author     string `json:"author"`
	AppVersion string `json:"app_version,omitempty"`
	VoteCount  int    `json:"vote_count"`
	VoteSum    int    `json:"vote_sum"`
	Country    string `json:"country"`
	SortOrigin string `json:"sort_origin,omitempty"`
	Source     string `json:"source"`
}

// Digest returns the stable cross-process identity of a review:
// the first 16 hex characters of sha256(author ":" content[:100]).
// Both collectors key their accumulators on this digest, so a review
// seen through the feed and again through the browser dedupes to one.
func (r *Review) Digest() string {
	return ReviewDigest(r.Author, r.Content)
}

// ReviewDigest computes the review identity digest from raw fields.
func ReviewDigest(author, content string) string {
	if len(content) > 100 {
		content = content[:100]
	}
	sum := sha256.Sum256([]byte(author + ":" + content))
	return hex.EncodeToString(sum[:])[:16]
}

// TruncateContent enforces the ingest cap on review content.
func TruncateContent(content string) string {
	if len(content) > MaxReviewContentLen {
		return content[:MaxReviewContentLen]
	}
	return content
}

// IntRating validates a parsed rating, returning nil for values
// outside 1..5 so they serialize as null.
func IntRating(v int, ok bool) *int {
	if !ok || v < 1 || v > 5 {
		return nil
	}
	return &v
}

// ReviewStats aggregates a harvested review set.
type ReviewStats struct {
	Total              int            `json:"total"`
	AverageRating      float64        `json:"average_rating"`
	RatingDistribution map[string]int `json:"rating_distribution"`
	Sources            SourceCounts   `json:"sources"`
}

// SourceCounts reports per-collector contribution to a review set.
type SourceCounts struct {
	Feed    int `json:"feed"`
	Browser int `json:"browser"`
}

// ComputeReviewStats builds the aggregate stats for a review slice.
// Null ratings are excluded from the distribution and the average.
func ComputeReviewStats(reviews []Review) ReviewStats {
	stats := ReviewStats{
		Total:              len(reviews),
		RatingDistribution: map[string]int{"1": 0, "2": 0, "3": 0, "4": 0, "5": 0},
	}

	sum, rated := 0, 0
	for i := range reviews {
		switch reviews[i].Source {
		case ReviewSourceBrowser:
			stats.Sources.Browser++
		default:
			stats.Sources.Feed++
		}
		if r := reviews[i].Rating; r != nil {
			switch *r {
			case 1:
				stats.RatingDistribution["1"]++
			case 2:
				stats.RatingDistribution["2"]++
			case 3:
				stats.RatingDistribution["3"]++
			case 4:
				stats.RatingDistribution["4"]++
			case 5:
				stats.RatingDistribution["5"]++
			}
			sum += *r
			rated++
		}
	}
	if rated > 0 {
		stats.AverageRating = float64(sum) / float64(rated)
	}
	return stats
}
