// Appscope - Mobile App Market Intelligence and Review Harvesting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/appscope

package cache

import (
	"sync"
	"time"

	"github.com/tomtom215/appscope/internal/models"
)

// MemoryTier is the bounded in-memory cache tier. Capacity is fixed at
// construction; when full, the entry with the lowest hit count is
// evicted (ties broken arbitrarily). Expired entries behave as misses
// and are deleted on discovery.
type MemoryTier struct {
	mu       sync.Mutex
	entries  map[string]*models.CacheEntry
	capacity int

	hits   int64
	misses int64
}

// NewMemoryTier creates a memory tier holding at most capacity entries.
func NewMemoryTier(capacity int) *MemoryTier {
	if capacity <= 0 {
		capacity = 100
	}
	return &MemoryTier{
		entries:  make(map[string]*models.CacheEntry, capacity),
		capacity: capacity,
	}
}

// Get returns the entry for key, incrementing its hit count in place.
func (m *MemoryTier) Get(key string) (*models.CacheEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok {
		m.misses++
		return nil, false
	}
	if entry.Expired(time.Now()) {
		delete(m.entries, key)
		m.misses++
		return nil, false
	}

	entry.HitCount++
	m.hits++
	return entry, true
}

// Set stores an entry, evicting the lowest-hit-count entry when full.
func (m *MemoryTier) Set(entry *models.CacheEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[entry.CacheKey]; !exists && len(m.entries) >= m.capacity {
		m.evictColdest()
	}
	m.entries[entry.CacheKey] = entry
}

// Delete removes an entry if present.
func (m *MemoryTier) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
}

// Len returns the current entry count.
func (m *MemoryTier) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Stats returns hit/miss counters and current size.
func (m *MemoryTier) Stats() (hits, misses int64, size int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hits, m.misses, len(m.entries)
}

// evictColdest removes the entry with the lowest hit count.
// Must be called with the lock held.
func (m *MemoryTier) evictColdest() {
	var coldestKey string
	coldest := int64(-1)
	for key, entry := range m.entries {
		if coldest < 0 || entry.HitCount < coldest {
			coldest = entry.HitCount
			coldestKey = key
		}
	}
	if coldestKey != "" {
		delete(m.entries, coldestKey)
	}
}
