// Appscope - Mobile App Market Intelligence and Review Harvesting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/appscope

// Package cache provides the two-tier content cache consulted by the
// fetch substrate: a bounded in-memory tier evicting by lowest hit
// count, backed by an optional durable badger tier with TTL.
package cache

import (
	"crypto/md5" //nolint:gosec // key derivation, not security
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/goccy/go-json"
)

// GenerateKey derives a cache key of the form
// "cache_type:identifier[:md5(canonical-json(params))[:8]]".
// The params component is canonicalized (sorted keys) so logically
// equal parameter sets always produce the same key.
func GenerateKey(cacheType, identifier string, params map[string]interface{}) string {
	if len(params) == 0 {
		return cacheType + ":" + identifier
	}
	return cacheType + ":" + identifier + ":" + paramsDigest(params)
}

// paramsDigest returns the first 8 hex chars of md5 over the canonical
// JSON encoding of params.
func paramsDigest(params map[string]interface{}) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		kj, _ := json.Marshal(k)
		vj, err := json.Marshal(params[k])
		if err != nil {
			vj = []byte(fmt.Sprintf("%q", fmt.Sprint(params[k])))
		}
		b.Write(kj)
		b.WriteByte(':')
		b.Write(vj)
	}
	b.WriteByte('}')

	sum := md5.Sum([]byte(b.String())) //nolint:gosec // key derivation, not security
	return hex.EncodeToString(sum[:])[:8]
}
