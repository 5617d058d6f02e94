// Appscope - Mobile App Market Intelligence and Review Harvesting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/appscope

package browser

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
)

// rawReview is one candidate lifted out of the page by the extraction
// script. Rating is nil when no star affordance could be read.
type rawReview struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Rating  *int   `json:"rating"`
	Author  string `json:"author"`
	Date    string `json:"date"`
}

// pageDriver is the per-tab surface the locale loop drives. The
// chromedp implementation is swapped for a fake in tests.
type pageDriver interface {
	navigate(ctx context.Context, url string) error
	clickSeeAll(ctx context.Context) error
	extract(ctx context.Context) ([]rawReview, error)
	scroll(ctx context.Context) error
}

// chromeDriver drives one isolated browser tab.
type chromeDriver struct {
	ctx        context.Context
	navTimeout time.Duration
}

func (d *chromeDriver) navigate(ctx context.Context, url string) error {
	navCtx, cancel := context.WithTimeout(d.ctx, d.navTimeout)
	defer cancel()
	return chromedp.Run(navCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

// seeAllSelectors are CSS fallbacks tried after the text locator.
var seeAllSelectors = []string{
	`a[href*="see-all/reviews"]`,
	`.we-customer-ratings__see-all`,
	`section[class*="reviews"] a[class*="see-all"]`,
}

func (d *chromeDriver) clickSeeAll(ctx context.Context) error {
	clickCtx, cancel := context.WithTimeout(d.ctx, 5*time.Second)
	defer cancel()

	// Text locator first: the storefront's link copy is stable across
	// locales less often than its markup, so both paths are tried.
	err := chromedp.Run(clickCtx,
		chromedp.Click(`//a[contains(., "See All")]`, chromedp.BySearch),
	)
	if err == nil {
		return nil
	}
	for _, sel := range seeAllSelectors {
		attemptCtx, cancelAttempt := context.WithTimeout(d.ctx, 2*time.Second)
		err = chromedp.Run(attemptCtx, chromedp.Click(sel, chromedp.ByQuery))
		cancelAttempt()
		if err == nil {
			return nil
		}
	}
	return err
}

func (d *chromeDriver) extract(ctx context.Context) ([]rawReview, error) {
	var raw []rawReview
	evalCtx, cancel := context.WithTimeout(d.ctx, 15*time.Second)
	defer cancel()
	if err := chromedp.Run(evalCtx, chromedp.Evaluate(extractScript, &raw)); err != nil {
		return nil, err
	}
	return raw, nil
}

func (d *chromeDriver) scroll(ctx context.Context) error {
	scrollCtx, cancel := context.WithTimeout(d.ctx, 10*time.Second)
	defer cancel()
	// The script reports whether it scrolled a modal container; the
	// document fallback additionally needs an End key press to kick
	// lazy loaders listening for keyboard navigation.
	var scrolledModal bool
	if err := chromedp.Run(scrollCtx, chromedp.Evaluate(scrollScript, &scrolledModal)); err != nil {
		return err
	}
	if !scrolledModal {
		return chromedp.Run(scrollCtx, chromedp.KeyEvent(kb.End))
	}
	return nil
}
