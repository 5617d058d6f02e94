// Appscope - Mobile App Market Intelligence and Review Harvesting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/appscope

// Package reddit crawls public discussion endpoints: keyword search,
// community-restricted deep-dives with adaptive engagement thresholds,
// community validation/discovery, and threaded-comment recovery.
package reddit

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/tomtom215/appscope/internal/fetch"
	"github.com/tomtom215/appscope/internal/logging"
)

// DefaultSubreddits seed the simple crawl when the caller names none.
var DefaultSubreddits = []string{"iphone", "ios", "apple", "apps", "AppHookup"}

// Options tunes the crawler.
type Options struct {
	UserAgent  string
	RequestGap time.Duration // inter-request gate on top of the substrate
	RetryAfter time.Duration // wait before the single 429 retry

	// MaxCommentDepth bounds comment forest recovery. Default 3.
	MaxCommentDepth int
}

// Crawler drives all discussion crawls. Every request passes a
// dedicated pacing gate before the shared substrate's limiter; the API
// bans fast clients outright, so the gate is deliberately conservative.
type Crawler struct {
	client  *fetch.Client
	opts    Options
	gate    *rate.Limiter
	headers map[string]string
	host    string

	sleep func(ctx context.Context, d time.Duration) error
}

// NewCrawler creates a discussion crawler.
func NewCrawler(client *fetch.Client, opts Options) *Crawler {
	if opts.UserAgent == "" {
		opts.UserAgent = "appscope/1.0 (market research; contact tomtom215)"
	}
	if opts.RequestGap <= 0 {
		opts.RequestGap = 1500 * time.Millisecond
	}
	if opts.RetryAfter <= 0 {
		opts.RetryAfter = 60 * time.Second
	}
	if opts.MaxCommentDepth <= 0 {
		opts.MaxCommentDepth = maxCommentDepth
	}
	return &Crawler{
		client: client,
		opts:   opts,
		host:   "https://www.reddit.com",
		gate:   rate.NewLimiter(rate.Every(opts.RequestGap), 1),
		headers: map[string]string{
			"User-Agent":      opts.UserAgent,
			"Accept":          "application/json",
			"Accept-Language": "en-US,en;q=0.9",
		},
		sleep: sleepCtx,
	}
}

// fetchJSON passes the pacing gate, fetches, and absorbs one 429 with
// a long sleep and a single retry.
func (c *Crawler) fetchJSON(ctx context.Context, rawurl string, out interface{}) error {
	if err := c.gate.Wait(ctx); err != nil {
		return err
	}
	err := c.client.FetchJSON(ctx, rawurl, c.headers, out)
	if err == nil || !fetch.IsStatus(err, http.StatusTooManyRequests) {
		return err
	}

	logging.Warn().Str("url", rawurl).Dur("wait", c.opts.RetryAfter).Msg("rate limited, backing off")
	if serr := c.sleep(ctx, c.opts.RetryAfter); serr != nil {
		return serr
	}
	if gerr := c.gate.Wait(ctx); gerr != nil {
		return gerr
	}
	return c.client.FetchJSON(ctx, rawurl, c.headers, out)
}

func (c *Crawler) searchURL(query, sort, timeFilter string, limit int) string {
	return fmt.Sprintf("%s/search.json?q=%s&sort=%s&t=%s&limit=%d",
		c.host, url.QueryEscape(query), sort, timeFilter, limit)
}

func (c *Crawler) subredditSearchURL(subreddit, query, timeFilter string, limit int) string {
	return fmt.Sprintf("%s/r/%s/search.json?q=%s&restrict_sr=on&sort=relevance&limit=%d&t=%s",
		c.host, url.PathEscape(subreddit), url.QueryEscape(query), limit, timeFilter)
}

func (c *Crawler) commentsURL(subreddit, postID string, limit int) string {
	return fmt.Sprintf("%s/r/%s/comments/%s.json?limit=%d&sort=top",
		c.host, url.PathEscape(subreddit), url.PathEscape(postID), limit)
}

func (c *Crawler) aboutURL(subreddit string) string {
	return fmt.Sprintf("%s/r/%s/about.json", c.host, url.PathEscape(subreddit))
}

func (c *Crawler) wikiURL(subreddit string) string {
	return fmt.Sprintf("%s/r/%s/wiki/index.json", c.host, url.PathEscape(subreddit))
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
