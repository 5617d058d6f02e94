// Appscope - Mobile App Market Intelligence and Review Harvesting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/appscope

package browser

import (
	"sync"

	"github.com/tomtom215/appscope/internal/models"
)

// accumulator collects extracted reviews across scroll iterations and
// locales, de-duplicating on the digest identity and applying the
// caller's rating filter.
type accumulator struct {
	mu     sync.Mutex
	cap    int
	rating RatingRange
	seen   map[string]struct{}
	out    []models.Review
}

func newAccumulator(cap int, rating RatingRange) *accumulator {
	return &accumulator{
		cap:    cap,
		rating: rating,
		seen:   make(map[string]struct{}),
	}
}

// absorb merges one extraction pass, returning how many reviews were
// new. Candidates already seen in any earlier pass count as zero.
func (a *accumulator) absorb(raw []rawReview, locale string) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	added := 0
	for _, r := range raw {
		if len(a.out) >= a.cap {
			break
		}
		if !a.rating.Admits(r.Rating) {
			continue
		}

		review := models.Review{
			ID:      r.ID,
			Title:   r.Title,
			Content: models.TruncateContent(r.Content),
			Rating:  r.Rating,
			Author:  r.Author,
			Country: locale,
			Source:  models.ReviewSourceBrowser,
		}

		digest := review.Digest()
		if _, dup := a.seen[digest]; dup {
			continue
		}
		a.seen[digest] = struct{}{}
		a.out = append(a.out, review)
		added++
	}
	return added
}

func (a *accumulator) full() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.out) >= a.cap
}

func (a *accumulator) reviews() []models.Review {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]models.Review, len(a.out))
	copy(out, a.out)
	return out
}

// Admits applies the optional rating bounds. Unrated reviews are
// admitted only when no bound is set, matching the feed collector.
func (rr RatingRange) Admits(rating *int) bool {
	if rr.Min == nil && rr.Max == nil {
		return true
	}
	if rating == nil {
		return false
	}
	if rr.Min != nil && *rating < *rr.Min {
		return false
	}
	if rr.Max != nil && *rating > *rr.Max {
		return false
	}
	return true
}
