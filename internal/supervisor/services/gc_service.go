// Appscope - Mobile App Market Intelligence and Review Harvesting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/appscope

package services

import (
	"context"
	"time"
)

// GarbageCollector is the durable cache tier's value-log GC trigger.
type GarbageCollector interface {
	RunGC()
}

// CacheGCService runs the durable tier's garbage collection on a fixed
// cadence. Badger reclaims value-log space only when asked.
type CacheGCService struct {
	gc       GarbageCollector
	interval time.Duration
}

// NewCacheGCService wraps the cache GC loop as a supervised service.
func NewCacheGCService(gc GarbageCollector, interval time.Duration) *CacheGCService {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &CacheGCService{gc: gc, interval: interval}
}

// Serve implements suture.Service.
func (s *CacheGCService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.gc.RunGC()
		}
	}
}

// String identifies the service in supervisor logs.
func (s *CacheGCService) String() string {
	return "cache-gc"
}
