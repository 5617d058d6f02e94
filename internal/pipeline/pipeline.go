// Appscope - Mobile App Market Intelligence and Review Harvesting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/appscope

// Package pipeline composes the feed and browser collectors into one
// best-effort review harvest: a cheap feed phase first, then an
// expensive browser phase for the remainder, merged through a
// digest-keyed accumulator in which the first-seen source wins.
package pipeline

import (
	"context"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/appscope/internal/collector/browser"
	"github.com/tomtom215/appscope/internal/collector/feed"
	"github.com/tomtom215/appscope/internal/logging"
	"github.com/tomtom215/appscope/internal/metrics"
	"github.com/tomtom215/appscope/internal/models"
)

const (
	// Phase budgets. Each phase returns whatever it has when its
	// budget runs out; the orchestrator proceeds.
	feedBudget    = 90 * time.Second
	browserBudget = 300 * time.Second

	// The feed endpoint tops out at about 500 items per sort order,
	// so the feed phase fans out over sorts to reach its cap.
	feedPerSort = 500
	feedMaxCap  = 2000
)

// feedSortSweep is the order in which sort orders are added as the
// requested cap grows.
var feedSortSweep = []string{"mostRecent", "mostHelpful", "mostFavorable", "mostCritical"}

// FeedCollector is the feed phase dependency.
type FeedCollector interface {
	Collect(ctx context.Context, appID, country string, filters []feed.Filter, stealth feed.Stealth, sink feed.Sink) (*feed.Result, error)
}

// BrowserCollector is the browser phase dependency.
type BrowserCollector interface {
	Collect(ctx context.Context, appID, locale string, cap int, rating browser.RatingRange, multiLocale bool) ([]models.Review, error)
}

// Params selects what a harvest run does.
type Params struct {
	AppID       string
	Country     string
	MaxReviews  int
	Rating      browser.RatingRange
	MultiLocale bool
	Stealth     feed.Stealth

	// Sink receives feed progress events when streaming; nil otherwise.
	Sink feed.Sink
}

// Result is the merged harvest payload.
type Result struct {
	Reviews []models.Review    `json:"reviews"`
	Stats   models.ReviewStats `json:"stats"`
}

// Orchestrator runs the two-phase harvest. The browser phase sits
// behind a circuit breaker so a misbehaving Chrome install degrades
// the pipeline to feed-only instead of stalling every request.
type Orchestrator struct {
	feed    FeedCollector
	browser BrowserCollector
	breaker *gobreaker.CircuitBreaker[[]models.Review]

	feedBudget    time.Duration
	browserBudget time.Duration
}

// NewOrchestrator creates a harvest orchestrator.
func NewOrchestrator(feedC FeedCollector, browserC BrowserCollector) *Orchestrator {
	return &Orchestrator{
		feed:          feedC,
		browser:       browserC,
		breaker:       newBrowserBreaker(),
		feedBudget:    feedBudget,
		browserBudget: browserBudget,
	}
}

// SetPhaseBudgets overrides the per-phase time budgets. A zero value
// keeps the default for that phase.
func (o *Orchestrator) SetPhaseBudgets(feed, browser time.Duration) {
	if feed > 0 {
		o.feedBudget = feed
	}
	if browser > 0 {
		o.browserBudget = browser
	}
}

// Harvest runs the feed phase, then the browser phase for the
// remainder, and returns the merged, capped review set with aggregate
// stats. Browser failures degrade to a feed-only result.
func (o *Orchestrator) Harvest(ctx context.Context, params Params) (*Result, error) {
	cap := params.MaxReviews
	if cap <= 0 {
		cap = feedPerSort
	}
	if params.Country == "" {
		params.Country = "us"
	}

	acc := newAccumulator(cap, params.Rating)

	// Phase 1: feed.
	feedCap := cap
	if feedCap > feedMaxCap {
		feedCap = feedMaxCap
	}
	feedCtx, cancelFeed := context.WithTimeout(ctx, o.feedBudget)
	feedStart := time.Now()
	feedRes, err := o.feed.Collect(feedCtx, params.AppID, params.Country, feedFilters(feedCap), params.Stealth, params.Sink)
	cancelFeed()
	metrics.RecordCrawl("feed", time.Since(feedStart), err)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logging.Warn().Err(err).Str("app_id", params.AppID).Msg("feed phase failed")
	}
	if feedRes != nil {
		metrics.ReviewsCollected.WithLabelValues(models.ReviewSourceFeed).Add(float64(len(feedRes.Reviews)))
		acc.absorb(feedRes.Reviews)
	}

	// Phase 2: browser, only for the shortfall.
	if remaining := cap - acc.len(); remaining > 0 && o.browser != nil && ctx.Err() == nil {
		browserStart := time.Now()
		reviews, berr := o.breaker.Execute(func() ([]models.Review, error) {
			browserCtx, cancel := context.WithTimeout(ctx, o.browserBudget)
			defer cancel()
			return o.browser.Collect(browserCtx, params.AppID, params.Country, remaining, params.Rating, params.MultiLocale)
		})
		metrics.RecordCrawl("browser", time.Since(browserStart), berr)
		if berr != nil {
			// Failures and timeout yield an empty set, not an abort.
			logging.Warn().Err(berr).Str("app_id", params.AppID).Msg("browser phase failed, continuing feed-only")
		} else {
			metrics.ReviewsCollected.WithLabelValues(models.ReviewSourceBrowser).Add(float64(len(reviews)))
			acc.absorb(reviews)
		}
	}

	reviews := acc.reviews()
	return &Result{
		Reviews: reviews,
		Stats:   models.ComputeReviewStats(reviews),
	}, nil
}

// feedFilters fans the feed cap out over sort orders, 500 per sort.
func feedFilters(cap int) []feed.Filter {
	var filters []feed.Filter
	for _, sort := range feedSortSweep {
		if cap <= 0 {
			break
		}
		target := cap
		if target > feedPerSort {
			target = feedPerSort
		}
		filters = append(filters, feed.Filter{Sort: sort, Target: target})
		cap -= target
	}
	return filters
}

// newBrowserBreaker builds the breaker guarding the browser phase.
// Three consecutive failures open it; after two minutes it half-opens
// and admits a single probe.
func newBrowserBreaker() *gobreaker.CircuitBreaker[[]models.Review] {
	name := "browser-collector"
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	return gobreaker.NewCircuitBreaker[[]models.Review](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state change")
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	default:
		return 2
	}
}
