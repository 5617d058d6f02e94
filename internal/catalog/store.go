// Appscope - Mobile App Market Intelligence and Review Harvesting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/appscope

// Package catalog holds the curated design-asset catalogs (color
// palettes, font pairings) and their accumulating JSON list stores.
// Each store persists one file shaped
// {cached_at, total_accumulated, <items>: [...]}; accumulating saves
// merge uniquely so the collection only grows.
package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/appscope/internal/logging"
)

// maxAge is the freshness window; stale files still load for
// accumulation, they just report expired.
const maxAge = 24 * time.Hour

// Store persists one accumulating item list as a JSON file.
type Store[T any] struct {
	mu       sync.Mutex
	path     string
	itemsKey string
	keyOf    func(T) string
}

// NewStore creates a list store writing to path. itemsKey names the
// item array inside the file; keyOf yields the uniqueness key used by
// accumulating saves.
func NewStore[T any](path, itemsKey string, keyOf func(T) string) *Store[T] {
	return &Store[T]{path: path, itemsKey: itemsKey, keyOf: keyOf}
}

type fileHeader struct {
	CachedAt         string `json:"cached_at"`
	TotalAccumulated int    `json:"total_accumulated"`
}

// Load reads the stored items. expired reports whether the file is
// older than the freshness window; a missing file loads as empty and
// expired.
func (s *Store[T]) Load() (items []T, expired bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *Store[T]) loadLocked() ([]T, bool, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, true, nil
	}
	if err != nil {
		return nil, true, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, true, err
	}

	var header fileHeader
	if err := json.Unmarshal(raw, &header); err != nil {
		return nil, true, err
	}
	expired := true
	if at, perr := time.Parse(time.RFC3339, header.CachedAt); perr == nil {
		expired = time.Since(at) > maxAge
	}

	var items []T
	if body, ok := fields[s.itemsKey]; ok {
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, expired, err
		}
	}
	return items, expired, nil
}

// Save persists items. With accumulate, the existing collection is
// loaded regardless of expiry and new items are merged in by key, so
// total_accumulated grows monotonically. The write is a temp file
// rename.
func (s *Store[T]) Save(items []T, accumulate bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := items
	if accumulate {
		existing, _, err := s.loadLocked()
		if err != nil {
			logging.Warn().Err(err).Str("path", s.path).Msg("catalog load for accumulation failed, replacing")
			existing = nil
		}
		seen := make(map[string]bool, len(existing))
		for _, item := range existing {
			seen[s.keyOf(item)] = true
		}
		all = existing
		for _, item := range items {
			if key := s.keyOf(item); !seen[key] {
				seen[key] = true
				all = append(all, item)
			}
		}
	}

	if all == nil {
		all = []T{}
	}
	payload, err := json.MarshalIndent(map[string]interface{}{
		"cached_at":         time.Now().Format(time.RFC3339),
		"total_accumulated": len(all),
		s.itemsKey:          all,
	}, "", "  ")
	if err != nil {
		return err
	}

	return writeAtomic(s.path, payload)
}

// writeAtomic writes via a temp file in the target directory, then
// renames into place.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
