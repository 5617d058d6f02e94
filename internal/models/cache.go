// Appscope - Mobile App Market Intelligence and Review Harvesting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/appscope

package models

import "time"

// CacheEntry is the unit stored in both cache tiers. The durable tier
// persists it as a single upsertable record keyed by CacheKey, so
// HitCount survives process restarts.
type CacheEntry struct {
	CacheKey   string    `json:"cache_key"`
	CacheType  string    `json:"cache_type"`
	Identifier string    `json:"identifier"`
	Content    []byte    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	HitCount   int64     `json:"hit_count"`
}

// Expired reports whether the entry is past its expiry at instant t.
// Expired entries behave as misses and are deleted on discovery.
func (e *CacheEntry) Expired(t time.Time) bool {
	return !t.Before(e.ExpiresAt)
}
