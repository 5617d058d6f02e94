// Appscope - Mobile App Market Intelligence and Review Harvesting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/appscope

package cache

import (
	"time"

	"github.com/tomtom215/appscope/internal/metrics"
	"github.com/tomtom215/appscope/internal/models"
)

// TieredCache composes the memory and durable tiers. Reads consult
// memory first; a durable hit is promoted into memory. Writes populate
// both tiers.
type TieredCache struct {
	memory     *MemoryTier
	durable    *DurableTier // nil when the durable tier is disabled
	defaultTTL time.Duration
}

// Options configures a TieredCache.
type Options struct {
	MemoryCapacity int
	DefaultTTL     time.Duration
	Durable        *DurableTier
}

// New creates a tiered cache. A nil Durable leaves the cache
// memory-only.
func New(opts Options) *TieredCache {
	ttl := opts.DefaultTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TieredCache{
		memory:     NewMemoryTier(opts.MemoryCapacity),
		durable:    opts.Durable,
		defaultTTL: ttl,
	}
}

// Get returns the cached content for (cacheType, identifier, params).
func (c *TieredCache) Get(cacheType, identifier string, params map[string]interface{}) ([]byte, bool) {
	key := GenerateKey(cacheType, identifier, params)

	if entry, ok := c.memory.Get(key); ok {
		metrics.RecordCacheHit("memory")
		return entry.Content, true
	}
	metrics.RecordCacheMiss("memory")

	if c.durable != nil {
		if entry, ok := c.durable.Get(key); ok {
			metrics.RecordCacheHit("disk")
			c.memory.Set(entry)
			return entry.Content, true
		}
		metrics.RecordCacheMiss("disk")
	}
	return nil, false
}

// Set stores content under (cacheType, identifier, params) in both
// tiers with the given TTL (0 uses the default).
func (c *TieredCache) Set(cacheType, identifier string, params map[string]interface{}, content []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	now := time.Now()
	entry := &models.CacheEntry{
		CacheKey:   GenerateKey(cacheType, identifier, params),
		CacheType:  cacheType,
		Identifier: identifier,
		Content:    content,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}

	c.memory.Set(entry)
	if c.durable != nil {
		return c.durable.Upsert(entry)
	}
	return nil
}

// Delete removes the entry from both tiers.
func (c *TieredCache) Delete(cacheType, identifier string, params map[string]interface{}) error {
	key := GenerateKey(cacheType, identifier, params)
	c.memory.Delete(key)
	if c.durable != nil {
		return c.durable.Delete(key)
	}
	return nil
}

// MemoryStats exposes the memory tier's counters for metrics.
func (c *TieredCache) MemoryStats() (hits, misses int64, size int) {
	return c.memory.Stats()
}
