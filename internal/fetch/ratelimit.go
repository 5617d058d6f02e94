// Appscope - Mobile App Market Intelligence and Review Harvesting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/appscope

package fetch

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/tomtom215/appscope/internal/metrics"
)

// window is the sliding-window span for both scopes.
const window = time.Minute

// Limiter admits outbound requests against a global sliding window, a
// per-origin sliding window, and a bounded concurrency semaphore. A
// per-origin backoff deadline, recorded when an origin returns 429,
// overrides admission until it passes.
//
// Admission blocks until every applicable window accepts a new
// timestamp; callers bound the wait with their context. The semaphore
// is the service's principal backpressure mechanism: once saturated,
// further Acquire calls block with no queue above it.
type Limiter struct {
	mu           sync.Mutex
	global       []time.Time
	perOrigin    map[string][]time.Time
	backoffUntil map[string]time.Time

	globalLimit int
	originLimit int

	slots chan struct{}

	// sleep is swapped in tests to avoid real waiting.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewLimiter creates a limiter with the given per-minute ceilings and
// in-flight cap.
func NewLimiter(globalPerMinute, perOriginPerMinute, maxConcurrent int) *Limiter {
	if globalPerMinute <= 0 {
		globalPerMinute = 60
	}
	if perOriginPerMinute <= 0 {
		perOriginPerMinute = 30
	}
	if maxConcurrent <= 0 {
		maxConcurrent = 8
	}
	return &Limiter{
		perOrigin:    make(map[string][]time.Time),
		backoffUntil: make(map[string]time.Time),
		globalLimit:  globalPerMinute,
		originLimit:  perOriginPerMinute,
		slots:        make(chan struct{}, maxConcurrent),
		sleep:        sleepCtx,
	}
}

// Acquire blocks until the request to rawurl is admitted, then claims a
// concurrency slot. The returned release function must be called when
// the request completes, on every exit path.
func (l *Limiter) Acquire(ctx context.Context, rawurl string) (func(), error) {
	origin := OriginOf(rawurl)

	for {
		wait := l.admitOrWait(origin)
		if wait <= 0 {
			break
		}
		if err := l.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}

	select {
	case l.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() { <-l.slots })
	}, nil
}

// SetOriginBackoff forces all requests to origin to sleep until the
// deadline. Called by the client when an origin answers 429.
func (l *Limiter) SetOriginBackoff(origin string, until time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if until.After(l.backoffUntil[origin]) {
		l.backoffUntil[origin] = until
	}
}

// WindowCounts returns the current global and per-origin window sizes.
// Used by metrics and tests.
func (l *Limiter) WindowCounts(origin string) (global, perOrigin int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	l.global = evict(l.global, now)
	l.perOrigin[origin] = evict(l.perOrigin[origin], now)
	return len(l.global), len(l.perOrigin[origin])
}

// admitOrWait either records a timestamp in both windows and returns 0,
// or returns how long the caller must sleep before trying again. The
// lock is held only for constant-time work.
func (l *Limiter) admitOrWait(origin string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()

	if until, ok := l.backoffUntil[origin]; ok {
		if now.Before(until) {
			metrics.RateLimitWaits.WithLabelValues("origin").Inc()
			return until.Sub(now)
		}
		delete(l.backoffUntil, origin)
	}

	l.global = evict(l.global, now)
	if len(l.global) >= l.globalLimit {
		metrics.RateLimitWaits.WithLabelValues("global").Inc()
		return l.global[0].Add(window).Sub(now)
	}

	l.perOrigin[origin] = evict(l.perOrigin[origin], now)
	if len(l.perOrigin[origin]) >= l.originLimit {
		metrics.RateLimitWaits.WithLabelValues("origin").Inc()
		return l.perOrigin[origin][0].Add(window).Sub(now)
	}

	l.global = append(l.global, now)
	l.perOrigin[origin] = append(l.perOrigin[origin], now)
	return 0
}

// evict drops timestamps older than now - window.
func evict(ts []time.Time, now time.Time) []time.Time {
	cutoff := now.Add(-window)
	i := 0
	for i < len(ts) && !ts[i].After(cutoff) {
		i++
	}
	return ts[i:]
}

// OriginOf extracts the rate-limit scope key (the URL host) from a raw
// URL, falling back to the raw string when unparseable.
func OriginOf(rawurl string) string {
	u, err := url.Parse(rawurl)
	if err != nil || u.Host == "" {
		return rawurl
	}
	return u.Host
}

// sleepCtx sleeps for d or until the context ends.
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
