// Appscope - Mobile App Market Intelligence and Review Harvesting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/appscope

package cache

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/appscope/internal/logging"
	"github.com/tomtom215/appscope/internal/models"
)

const durableKeyPrefix = "content:"

// DurableTier persists cache entries in badger so content and hit
// counts survive restarts. Each entry is one upsertable record keyed
// by its cache key; badger's TTL mirrors the entry's expiry.
type DurableTier struct {
	db *badger.DB
}

// OpenDurableTier opens (or creates) the badger store at path.
func OpenDurableTier(path string) (*DurableTier, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // badger's own logger is too chatty; we log GC ourselves
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open cache store at %s: %w", path, err)
	}
	return &DurableTier{db: db}, nil
}

// NewDurableTierWithDB wraps an existing badger handle. Used by tests.
func NewDurableTierWithDB(db *badger.DB) *DurableTier {
	return &DurableTier{db: db}
}

// Get returns the stored entry for key and increments its persisted
// hit count. Expired entries are deleted and reported as misses.
func (d *DurableTier) Get(key string) (*models.CacheEntry, bool) {
	var entry models.CacheEntry
	found := false

	err := d.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(durableKeyPrefix + key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get cache entry: %w", err)
		}

		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		}); err != nil {
			return fmt.Errorf("decode cache entry: %w", err)
		}

		if entry.Expired(time.Now()) {
			return txn.Delete([]byte(durableKeyPrefix + key))
		}

		entry.HitCount++
		data, err := json.Marshal(&entry)
		if err != nil {
			return fmt.Errorf("encode cache entry: %w", err)
		}
		found = true
		e := badger.NewEntry([]byte(durableKeyPrefix+key), data).
			WithTTL(time.Until(entry.ExpiresAt))
		return txn.SetEntry(e)
	})
	if err != nil {
		logging.Warn().Err(err).Str("key", key).Msg("durable cache read failed")
		return nil, false
	}
	if !found {
		return nil, false
	}
	return &entry, true
}

// Upsert writes the entry as a single record.
func (d *DurableTier) Upsert(entry *models.CacheEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}

	return d.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(durableKeyPrefix+entry.CacheKey), data).
			WithTTL(time.Until(entry.ExpiresAt))
		return txn.SetEntry(e)
	})
}

// Delete removes the entry for key if present.
func (d *DurableTier) Delete(key string) error {
	return d.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete([]byte(durableKeyPrefix + key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
}

// RunGC performs one badger value-log GC pass.
func (d *DurableTier) RunGC() {
	for {
		if err := d.db.RunValueLogGC(0.5); err != nil {
			return
		}
	}
}

// Close closes the underlying store.
func (d *DurableTier) Close() error {
	return d.db.Close()
}
