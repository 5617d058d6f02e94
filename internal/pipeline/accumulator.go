// Appscope - Mobile App Market Intelligence and Review Harvesting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/appscope

package pipeline

import (
	"sync"

	"github.com/tomtom215/appscope/internal/collector/browser"
	"github.com/tomtom215/appscope/internal/metrics"
	"github.com/tomtom215/appscope/internal/models"
)

// accumulator merges both phases under one digest-keyed map. Insertion
// order is preserved; duplicates keep their first-seen source tag, so
// feed-origin reviews win over browser-origin ones.
type accumulator struct {
	mu     sync.Mutex
	cap    int
	rating browser.RatingRange
	seen   map[string]bool
	out    []models.Review
}

func newAccumulator(cap int, rating browser.RatingRange) *accumulator {
	return &accumulator{
		cap:    cap,
		rating: rating,
		seen:   make(map[string]bool, cap),
	}
}

// absorb merges a phase's reviews, returning how many were added.
func (a *accumulator) absorb(reviews []models.Review) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	added := 0
	for i := range reviews {
		if len(a.out) >= a.cap {
			break
		}
		r := reviews[i]
		if !a.rating.Admits(r.Rating) {
			continue
		}
		digest := r.Digest()
		if a.seen[digest] {
			metrics.ReviewsDeduplicated.Inc()
			continue
		}
		a.seen[digest] = true
		r.Content = models.TruncateContent(r.Content)
		a.out = append(a.out, r)
		added++
	}
	return added
}

func (a *accumulator) len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.out)
}

func (a *accumulator) reviews() []models.Review {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]models.Review, len(a.out))
	copy(out, a.out)
	return out
}
