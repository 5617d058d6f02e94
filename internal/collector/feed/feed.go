// Appscope - Mobile App Market Intelligence and Review Harvesting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/appscope

// Package feed harvests App Store reviews from the paginated iTunes
// customer-reviews feed. A crawl sweeps an ordered list of sort-order
// filters, paces itself with randomized stealth delays, adapts to 429s
// with a delay multiplier, and reports progress through an event sink.
package feed

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/tomtom215/appscope/internal/fetch"
	"github.com/tomtom215/appscope/internal/logging"
	"github.com/tomtom215/appscope/internal/models"
)

const (
	feedPageSize = 50
	maxPages     = 40
	// emptyPageTolerance ends a filter after this many consecutive
	// pages with zero review entries.
	emptyPageTolerance = 5

	maxDelayMultiplier = 4.0
	throttleGrowth     = 2.0
	throttleRelax      = 0.75
)

// Filter is one {sort-order, target} step of a sweep.
type Filter struct {
	Sort   string
	Target int
}

// Stealth tunes crawl pacing.
type Stealth struct {
	BaseDelay      time.Duration
	Randomization  float64 // percent, 0..100
	FilterCooldown time.Duration
	AutoThrottle   bool
}

// DefaultStealth mirrors the collector's tuned defaults.
func DefaultStealth() Stealth {
	return Stealth{
		BaseDelay:      2 * time.Second,
		Randomization:  50,
		FilterCooldown: 5 * time.Second,
		AutoThrottle:   true,
	}
}

// DefaultFilters is the sweep used when the caller does not choose one.
func DefaultFilters() []Filter {
	return []Filter{
		{Sort: "mostRecent", Target: 500},
		{Sort: "mostHelpful", Target: 500},
	}
}

// Collector drives feed crawls through the shared fetch substrate.
type Collector struct {
	client *fetch.Client
	host   string

	sleep func(ctx context.Context, d time.Duration) error
	randf func() float64
}

// NewCollector creates a feed collector.
func NewCollector(client *fetch.Client) *Collector {
	return &Collector{
		client: client,
		host:   "https://itunes.apple.com",
		sleep:  sleepCtx,
		randf:  rand.Float64,
	}
}

// Result is the terminal payload of a crawl.
type Result struct {
	Reviews []models.Review
	Stats   models.ReviewStats
}

// Collect runs a full filter sweep and returns the de-duplicated
// reviews in first-seen order. Events are delivered to sink when it is
// non-nil; the terminal complete/error event is the caller's to emit.
// A context deadline ends the crawl early with whatever was collected.
func (c *Collector) Collect(ctx context.Context, appID, country string, filters []Filter, stealth Stealth, sink Sink) (*Result, error) {
	if len(filters) == 0 {
		filters = DefaultFilters()
	}
	if country == "" {
		country = "us"
	}
	if stealth.BaseDelay <= 0 {
		stealth = DefaultStealth()
	}

	state := &crawlState{
		seen:       make(map[string]models.Review),
		order:      make([]string, 0, 256),
		multiplier: 1.0,
	}

	totalTarget := 0
	for i := range filters {
		if filters[i].Target > 2000 {
			filters[i].Target = 2000
		}
		totalTarget += filters[i].Target
	}
	emit(sink, Event{
		"type":               EventStart,
		"filters":            len(filters),
		"totalTargetReviews": totalTarget,
	})

	for idx, filter := range filters {
		if err := c.runFilter(ctx, appID, country, filter, idx, stealth, state, sink); err != nil {
			// Deadline or cancellation: return what we have.
			if ctx.Err() != nil {
				logging.Warn().
					Str("app_id", appID).
					Str("filter", filter.Sort).
					Int("collected", len(state.order)).
					Msg("feed crawl ended early")
				return state.result(country), nil
			}
			return nil, err
		}

		emit(sink, Event{
			"type":             EventFilterComplete,
			"filter":           filter.Sort,
			"filterIndex":      idx,
			"reviewsCollected": state.filterCount,
			"totalUniqueNow":   len(state.order),
		})

		if idx < len(filters)-1 {
			cooldown := stealthDelay(stealth.FilterCooldown, stealth.Randomization, c.randf)
			emit(sink, Event{
				"type":       EventFilterCooldown,
				"nextFilter": filters[idx+1].Sort,
				"cooldownMs": cooldown.Milliseconds(),
			})
			if err := c.sleep(ctx, cooldown); err != nil {
				return state.result(country), nil
			}
			// Clean filter boundary relaxes the throttle.
			if state.multiplier > 1.0 {
				state.multiplier = math.Max(1.0, state.multiplier*throttleRelax)
			}
		}
	}

	return state.result(country), nil
}

// runFilter pages through one sort order until a terminal state.
func (c *Collector) runFilter(ctx context.Context, appID, country string, filter Filter, idx int, stealth Stealth, state *crawlState, sink Sink) error {
	pageCap := int(math.Ceil(float64(filter.Target) / feedPageSize))
	if pageCap > maxPages {
		pageCap = maxPages
	}

	consecutiveEmpty := 0
	state.filterCount = 0

	for page := 1; page <= pageCap; page++ {
		doc, skip, err := c.fetchPage(ctx, appID, country, filter.Sort, page, stealth, state, sink)
		if err != nil {
			return err
		}
		if skip {
			emit(sink, Event{
				"type":   EventFilterSkipped,
				"filter": filter.Sort,
				"reason": "Rate limited after retry",
			})
			return nil
		}

		pageReviews, newUnique := state.absorb(doc, country, filter.Sort)
		if len(pageReviews) > 0 {
			consecutiveEmpty = 0
		} else {
			consecutiveEmpty++
		}

		delay := stealthDelay(scaleDelay(stealth.BaseDelay, state.multiplier), stealth.Randomization, c.randf)
		emit(sink, Event{
			"type":               EventProgress,
			"filter":             filter.Sort,
			"filterIndex":        idx,
			"page":               page,
			"maxPages":           pageCap,
			"reviewsThisPage":    len(pageReviews),
			"newUniqueThisPage":  newUnique,
			"filterReviewsTotal": state.filterCount,
			"totalUnique":        len(state.order),
			"nextDelayMs":        delay.Milliseconds(),
		})

		if consecutiveEmpty >= emptyPageTolerance {
			emit(sink, Event{
				"type":           EventFilterEarlyStop,
				"filter":         filter.Sort,
				"reason":         "No more reviews available from feed",
				"pagesCompleted": page,
			})
			return nil
		}
		if state.filterCount >= filter.Target {
			emit(sink, Event{
				"type":   EventFilterTargetReached,
				"filter": filter.Sort,
				"target": filter.Target,
				"actual": state.filterCount,
			})
			return nil
		}

		if page < pageCap {
			if err := c.sleep(ctx, delay); err != nil {
				return err
			}
		}
	}
	return nil
}

// fetchPage fetches one feed page, absorbing a single throttle-and-retry
// cycle on 429. skip=true means the filter should be abandoned.
func (c *Collector) fetchPage(ctx context.Context, appID, country, sort string, page int, stealth Stealth, state *crawlState, sink Sink) (*feedDocument, bool, error) {
	url := fmt.Sprintf("%s/%s/rss/customerreviews/page=%d/id=%s/sortBy=%s/json", c.host, country, page, appID, sort)

	var doc feedDocument
	err := c.client.FetchJSON(ctx, url, nil, &doc)
	if err == nil {
		return &doc, false, nil
	}
	if !fetch.IsStatus(err, http.StatusTooManyRequests) {
		if ctx.Err() != nil {
			return nil, false, err
		}
		// Transient exhaustion or a decode failure reads as an empty
		// page; the empty-page tolerance decides when to give up.
		logging.Warn().Err(err).Str("url", url).Msg("feed page fetch failed")
		return &feedDocument{}, false, nil
	}

	if !stealth.AutoThrottle {
		return nil, true, nil
	}

	state.multiplier = math.Min(state.multiplier*throttleGrowth, maxDelayMultiplier)
	emit(sink, Event{
		"type":               EventThrottle,
		"filter":             sort,
		"page":               page,
		"newDelayMultiplier": state.multiplier,
		"message":            "Rate limited - increasing delays",
	})

	wait := scaleDelay(stealth.BaseDelay, state.multiplier*2)
	if err := c.sleep(ctx, wait); err != nil {
		return nil, false, err
	}

	err = c.client.FetchJSON(ctx, url, nil, &doc)
	if err == nil {
		return &doc, false, nil
	}
	if fetch.IsStatus(err, http.StatusTooManyRequests) {
		return nil, true, nil
	}
	if ctx.Err() != nil {
		return nil, false, err
	}
	logging.Warn().Err(err).Str("url", url).Msg("feed page retry failed")
	return &feedDocument{}, false, nil
}

// crawlState accumulates a sweep's reviews and throttle position.
type crawlState struct {
	seen        map[string]models.Review
	order       []string
	filterCount int
	multiplier  float64
}

// absorb parses a page's entries into reviews, returning the page's
// review list and how many were new to the accumulator.
func (s *crawlState) absorb(doc *feedDocument, country, sort string) ([]models.Review, int) {
	var pageReviews []models.Review
	newUnique := 0

	for _, entry := range doc.Feed.Entry {
		// The app-metadata entry carries no rating element.
		if entry.Rating == nil {
			continue
		}
		id := entry.ID.Label
		if id == "" {
			continue
		}

		v, perr := strconv.Atoi(entry.Rating.Label)
		review := models.Review{
			ID:         id,
			Title:      entry.Title.Label,
			Content:    models.TruncateContent(entry.Content.Label),
			Rating:     models.IntRating(v, perr == nil),
			Author:     entry.Author.Name.Label,
			AppVersion: entry.Version.Label,
			VoteCount:  atoiOrZero(entry.VoteCount.Label),
			VoteSum:    atoiOrZero(entry.VoteSum.Label),
			Country:    country,
			SortOrigin: sort,
			Source:     models.ReviewSourceFeed,
		}
		pageReviews = append(pageReviews, review)

		if _, ok := s.seen[id]; !ok {
			s.seen[id] = review
			s.order = append(s.order, id)
			newUnique++
		}
	}

	s.filterCount += len(pageReviews)
	return pageReviews, newUnique
}

func (s *crawlState) result(country string) *Result {
	reviews := make([]models.Review, 0, len(s.order))
	for _, id := range s.order {
		reviews = append(reviews, s.seen[id])
	}
	stats := models.ComputeReviewStats(reviews)
	return &Result{Reviews: reviews, Stats: stats}
}

// stealthDelay randomizes base by ±(randomization% of base), floored at
// 100ms so the crawl never machine-guns the feed.
func stealthDelay(base time.Duration, randomization float64, randf func() float64) time.Duration {
	if randomization <= 0 {
		return base
	}
	variance := float64(base) * randomization / 100
	lo := math.Max(float64(100*time.Millisecond), float64(base)-variance)
	hi := float64(base) + variance
	return time.Duration(lo + randf()*(hi-lo))
}

func scaleDelay(base time.Duration, multiplier float64) time.Duration {
	return time.Duration(float64(base) * multiplier)
}

func atoiOrZero(s string) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return v
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
