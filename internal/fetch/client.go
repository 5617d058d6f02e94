// Appscope - Mobile App Market Intelligence and Review Harvesting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/appscope

package fetch

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"net"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/appscope/internal/cache"
	"github.com/tomtom215/appscope/internal/logging"
	"github.com/tomtom215/appscope/internal/metrics"
)

const (
	maxAttempts  = 3
	maxBodyBytes = 10 << 20
)

// Config configures a Client.
type Config struct {
	Limiter        *Limiter
	Cache          *cache.TieredCache // optional
	Timeout        time.Duration
	RetryBaseDelay time.Duration
	UserAgent      string

	// Sleep and Jitter override the wait primitives. Tests inject
	// these to observe rather than perform waits.
	Sleep  func(ctx context.Context, d time.Duration) error
	Jitter func() time.Duration
}

// CacheSpec names the cache slot for a cached fetch.
type CacheSpec struct {
	Type       string
	Identifier string
	Params     map[string]interface{}
	TTL        time.Duration
}

// Client is the substrate's HTTP client. Every fetch passes the rate
// limiter, consults the cache when a CacheSpec is given, and retries
// transient failures up to three attempts:
//
//	429           sleep base*2^attempt + U(1,3)s, record origin backoff, retry
//	5xx           sleep base*2^attempt, retry
//	other 4xx     terminal, no retry
//	timeout       sleep base*2^attempt, retry
//	decode error  terminal, no retry
//
// After the final attempt the last failure is returned as a *Error.
type Client struct {
	http      *http.Client
	limiter   *Limiter
	cache     *cache.TieredCache
	baseDelay time.Duration
	userAgent string

	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() time.Duration
}

// NewClient creates a substrate client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	baseDelay := cfg.RetryBaseDelay
	if baseDelay <= 0 {
		baseDelay = 2 * time.Second
	}
	limiter := cfg.Limiter
	if limiter == nil {
		limiter = NewLimiter(0, 0, 0)
	}
	c := &Client{
		http:      &http.Client{Timeout: timeout},
		limiter:   limiter,
		cache:     cfg.Cache,
		baseDelay: baseDelay,
		userAgent: cfg.UserAgent,
		sleep:     sleepCtx,
		jitter: func() time.Duration {
			// Uniform 1..3s, desynchronizing callers that hit the same
			// origin's 429 window together.
			return time.Duration((1 + 2*rand.Float64()) * float64(time.Second))
		},
	}
	if cfg.Sleep != nil {
		c.sleep = cfg.Sleep
		limiter.sleep = cfg.Sleep
	}
	if cfg.Jitter != nil {
		c.jitter = cfg.Jitter
	}
	return c
}

// Acquire exposes raw admission for callers that manage their own
// transport (the browser collector). The release function must be
// called on every exit path.
func (c *Client) Acquire(ctx context.Context, rawurl string) (func(), error) {
	return c.limiter.Acquire(ctx, rawurl)
}

// Limiter returns the shared limiter, for callers that record
// origin-level backoff themselves.
func (c *Client) Limiter() *Limiter {
	return c.limiter
}

// FetchText fetches a URL and returns its body as text.
func (c *Client) FetchText(ctx context.Context, rawurl string, headers map[string]string) (string, error) {
	body, err := c.FetchBytes(ctx, rawurl, headers, nil)
	return string(body), err
}

// FetchJSON fetches a URL and decodes its JSON body into out.
// A decode failure on a 2xx body is terminal, not retried.
func (c *Client) FetchJSON(ctx context.Context, rawurl string, headers map[string]string, out interface{}) error {
	return c.FetchJSONCached(ctx, rawurl, headers, nil, out)
}

// FetchJSONCached is FetchJSON with a cache slot.
func (c *Client) FetchJSONCached(ctx context.Context, rawurl string, headers map[string]string, spec *CacheSpec, out interface{}) error {
	body, err := c.FetchBytes(ctx, rawurl, headers, spec)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		// Poison the cache slot so the malformed body is not served again.
		if spec != nil && c.cache != nil {
			_ = c.cache.Delete(spec.Type, spec.Identifier, spec.Params)
		}
		return &Error{Kind: KindDecode, Origin: OriginOf(rawurl), Err: err}
	}
	return nil
}

// FetchBytes fetches a URL's body, consulting the cache first when a
// CacheSpec is given and populating it after a successful fetch.
func (c *Client) FetchBytes(ctx context.Context, rawurl string, headers map[string]string, spec *CacheSpec) ([]byte, error) {
	if spec != nil && c.cache != nil {
		if content, ok := c.cache.Get(spec.Type, spec.Identifier, spec.Params); ok {
			return content, nil
		}
	}

	body, err := c.doWithRetry(ctx, rawurl, headers)
	if err != nil {
		return nil, err
	}

	if spec != nil && c.cache != nil {
		if cerr := c.cache.Set(spec.Type, spec.Identifier, spec.Params, body, spec.TTL); cerr != nil {
			logging.Warn().Err(cerr).Str("url", rawurl).Msg("cache write failed")
		}
	}
	return body, nil
}

// doWithRetry runs the attempt loop with the disposition table above.
func (c *Client) doWithRetry(ctx context.Context, rawurl string, headers map[string]string) ([]byte, error) {
	origin := OriginOf(rawurl)
	var lastErr *Error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		body, ferr := c.doOnce(ctx, rawurl, headers)
		if ferr == nil {
			return body, nil
		}
		if ferr.Kind == KindCancel || !ferr.Retryable {
			return nil, ferr
		}
		lastErr = ferr
		metrics.FetchRetries.WithLabelValues(origin).Inc()

		delay := c.baseDelay * (1 << attempt)
		if ferr.Status == http.StatusTooManyRequests {
			delay += c.jitter()
			c.limiter.SetOriginBackoff(origin, time.Now().Add(delay))
			metrics.ThrottleEvents.WithLabelValues(origin).Inc()
		}

		logging.Warn().
			Str("url", rawurl).
			Int("attempt", attempt+1).
			Int("status", ferr.Status).
			Dur("delay", delay).
			Msg("fetch retrying")

		if attempt < maxAttempts-1 {
			if err := c.sleep(ctx, delay); err != nil {
				return nil, &Error{Kind: KindCancel, Origin: origin, Err: err}
			}
		}
	}
	return nil, lastErr
}

// doOnce performs a single admitted request and classifies the outcome.
func (c *Client) doOnce(ctx context.Context, rawurl string, headers map[string]string) ([]byte, *Error) {
	origin := OriginOf(rawurl)

	release, err := c.limiter.Acquire(ctx, rawurl)
	if err != nil {
		return nil, &Error{Kind: KindCancel, Origin: origin, Err: err}
	}
	defer release()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawurl, nil)
	if err != nil {
		return nil, &Error{Kind: KindConnect, Origin: origin, Err: err}
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &Error{Kind: KindCancel, Origin: origin, Err: ctx.Err()}
		}
		metrics.RecordFetch(origin, 0, err)
		if isTimeout(err) {
			return nil, &Error{Kind: KindTimeout, Origin: origin, Retryable: true, Err: err}
		}
		return nil, &Error{Kind: KindConnect, Origin: origin, Retryable: true, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()
	metrics.RecordFetch(origin, resp.StatusCode, nil)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		body, rerr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if rerr != nil {
			return nil, &Error{Kind: KindTimeout, Origin: origin, Retryable: true, Err: rerr}
		}
		return body, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &Error{Kind: KindStatus, Status: resp.StatusCode, Origin: origin, Retryable: true}
	case resp.StatusCode >= 500:
		return nil, &Error{Kind: KindStatus, Status: resp.StatusCode, Origin: origin, Retryable: true}
	default:
		return nil, &Error{Kind: KindStatus, Status: resp.StatusCode, Origin: origin}
	}
}

// isTimeout reports whether err is a connect/read timeout.
func isTimeout(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
