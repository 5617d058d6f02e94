// Appscope - Mobile App Market Intelligence and Review Harvesting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/appscope

package feed

import (
	"bytes"

	"github.com/goccy/go-json"
)

// feedDocument mirrors the iTunes customer-reviews JSON envelope. Only
// the fields the collector reads are declared.
type feedDocument struct {
	Feed struct {
		Entry entryList `json:"entry"`
	} `json:"feed"`
}

type feedLabel struct {
	Label string `json:"label"`
}

type feedEntry struct {
	ID        feedLabel  `json:"id"`
	Title     feedLabel  `json:"title"`
	Content   feedLabel  `json:"content"`
	Rating    *feedLabel `json:"im:rating"`
	VoteCount feedLabel  `json:"im:voteCount"`
	VoteSum   feedLabel  `json:"im:voteSum"`
	Version   feedLabel  `json:"im:version"`
	Author    struct {
		Name feedLabel `json:"name"`
	} `json:"author"`
}

// entryList tolerates the feed's habit of emitting a bare object
// instead of a one-element array when a page has a single entry.
type entryList []feedEntry

func (e *entryList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*e = nil
		return nil
	}
	if data[0] == '{' {
		var single feedEntry
		if err := json.Unmarshal(data, &single); err != nil {
			return err
		}
		*e = entryList{single}
		return nil
	}
	var many []feedEntry
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*e = many
	return nil
}
