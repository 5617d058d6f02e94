// Appscope - Mobile App Market Intelligence and Review Harvesting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/appscope

// Package browser harvests App Store reviews by driving a headless
// browser against the storefront's human-facing pages. It is the
// expensive second phase of the review pipeline: the feed collector
// tops out near 500 reviews per locale/sort, so large caps require
// walking the storefront itself across multiple national locales.
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/chromedp/chromedp"

	"github.com/tomtom215/appscope/internal/fetch"
	"github.com/tomtom215/appscope/internal/logging"
	"github.com/tomtom215/appscope/internal/models"
)

const (
	storefrontHost = "https://apps.apple.com"

	maxScrollIterations = 25
	// A locale ends after this many scroll iterations that surface no
	// new reviews.
	stalledIterationLimit = 5

	interLocaleDelay = 1500 * time.Millisecond
)

// priorityLocales is the fixed storefront sweep order after the
// caller's primary locale.
var priorityLocales = []string{
	"us", "gb", "ca", "au", "de", "fr", "jp", "in",
	"br", "mx", "es", "it", "nl", "kr", "ru", "sg",
}

// Options configures the collector.
type Options struct {
	Headless   bool
	NavTimeout time.Duration
}

// RatingRange filters extracted reviews; nil bounds are open.
type RatingRange struct {
	Min *int
	Max *int
}

// Collector owns one browser process shared by all requests. Context
// allocation is serialized: the underlying driver does not tolerate
// concurrent new-context calls.
type Collector struct {
	client *fetch.Client
	opts   Options

	launchOnce sync.Once
	launchErr  error
	allocCtx   context.Context
	allocStop  context.CancelFunc

	ctxMu sync.Mutex

	newDriver func(ctx context.Context) (pageDriver, func(), error)
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewCollector creates a browser collector. The browser process itself
// launches lazily on first use.
func NewCollector(client *fetch.Client, opts Options) *Collector {
	if opts.NavTimeout <= 0 {
		opts.NavTimeout = 30 * time.Second
	}
	c := &Collector{
		client: client,
		opts:   opts,
		sleep:  sleepCtx,
	}
	c.newDriver = c.newChromeDriver
	return c
}

// Close tears down the browser process.
func (c *Collector) Close() {
	if c.allocStop != nil {
		c.allocStop()
	}
}

// Collect walks one or more storefront locales until cap reviews are
// accumulated or the sweep is exhausted. A failing locale logs and the
// sweep continues; only a dead browser or a canceled context aborts.
func (c *Collector) Collect(ctx context.Context, appID, primaryLocale string, cap int, rating RatingRange, multiLocale bool) ([]models.Review, error) {
	if cap <= 0 {
		return nil, nil
	}
	locales := localesFor(primaryLocale, cap, multiLocale)

	acc := newAccumulator(cap, rating)

	for i, locale := range locales {
		if acc.full() {
			break
		}
		if ctx.Err() != nil {
			break
		}

		if err := c.collectLocale(ctx, appID, locale, acc); err != nil {
			if ctx.Err() != nil {
				break
			}
			logging.Warn().Err(err).
				Str("app_id", appID).
				Str("locale", locale).
				Msg("storefront locale failed, continuing sweep")
		}

		if i < len(locales)-1 && !acc.full() {
			if err := c.sleep(ctx, interLocaleDelay); err != nil {
				break
			}
		}
	}

	return acc.reviews(), nil
}

// collectLocale navigates one storefront locale and runs the
// extract-scroll loop until it stalls or the accumulator fills.
func (c *Collector) collectLocale(ctx context.Context, appID, locale string, acc *accumulator) error {
	url := fmt.Sprintf("%s/%s/app/id%s", storefrontHost, locale, appID)

	release, err := c.client.Acquire(ctx, url)
	if err != nil {
		return err
	}
	defer release()

	driver, stop, err := c.newDriver(ctx)
	if err != nil {
		return err
	}
	defer stop()

	// Navigation is the flakiest step of the sweep; retry it briefly
	// before writing the locale off.
	nav := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2), ctx)
	if err := backoff.Retry(func() error {
		return driver.navigate(ctx, url)
	}, nav); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}

	// Surface the full review list when the affordance exists; its
	// absence is not an error.
	if err := driver.clickSeeAll(ctx); err != nil {
		logging.Debug().Str("locale", locale).Msg("see-all affordance not found")
	}

	stalled := 0
	for iter := 0; iter < maxScrollIterations && !acc.full(); iter++ {
		raw, err := driver.extract(ctx)
		if err != nil {
			return fmt.Errorf("extract %s: %w", locale, err)
		}

		if added := acc.absorb(raw, locale); added == 0 {
			stalled++
			if stalled >= stalledIterationLimit {
				break
			}
		} else {
			stalled = 0
		}

		if acc.full() {
			break
		}
		if err := driver.scroll(ctx); err != nil {
			return fmt.Errorf("scroll %s: %w", locale, err)
		}

		// Lazy-loaded content settles slowly at first.
		wait := 1500 * time.Millisecond
		if iter < 5 {
			wait = 2500 * time.Millisecond
		}
		if err := c.sleep(ctx, wait); err != nil {
			return err
		}
	}
	return nil
}

// localesFor builds the sweep order: the primary locale first, then
// the fixed priority list, sized by the requested cap. Small caps stay
// single-locale; larger caps widen the sweep.
func localesFor(primary string, cap int, multiLocale bool) []string {
	if primary == "" {
		primary = "us"
	}
	if !multiLocale || cap <= 100 {
		return []string{primary}
	}

	count := 8
	switch {
	case cap >= 3000:
		count = 16
	case cap >= 1500:
		count = 12
	}

	locales := make([]string, 0, count)
	locales = append(locales, primary)
	for _, l := range priorityLocales {
		if len(locales) >= count {
			break
		}
		if l != primary {
			locales = append(locales, l)
		}
	}
	return locales
}

// chromeOptions are the anti-automation launch flags plus a desktop
// viewport.
func chromeOptions(headless bool) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("headless", headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
		chromedp.WindowSize(1440, 900),
		chromedp.UserAgent("Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"),
	)
	return opts
}

// launch starts the shared browser process once.
func (c *Collector) launch() error {
	c.launchOnce.Do(func() {
		ctx, stop := chromedp.NewExecAllocator(context.Background(), chromeOptions(c.opts.Headless)...)
		c.allocCtx = ctx
		c.allocStop = stop
	})
	return c.launchErr
}

// newChromeDriver allocates a fresh isolated context and tab. The
// returned stop function tears both down; allocation is serialized.
func (c *Collector) newChromeDriver(ctx context.Context) (pageDriver, func(), error) {
	if err := c.launch(); err != nil {
		return nil, nil, err
	}

	c.ctxMu.Lock()
	tabCtx, cancel := chromedp.NewContext(c.allocCtx)
	c.ctxMu.Unlock()

	return &chromeDriver{ctx: tabCtx, navTimeout: c.opts.NavTimeout}, cancel, nil
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
