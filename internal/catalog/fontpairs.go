// Appscope - Mobile App Market Intelligence and Review Harvesting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/appscope

package catalog

import "path/filepath"

// FontPairing is one heading/body font combination.
type FontPairing struct {
	HeadingFont     string `json:"heading_font"`
	BodyFont        string `json:"body_font"`
	HeadingCategory string `json:"heading_category"`
	BodyCategory    string `json:"body_category"`
	Style           string `json:"style,omitempty"`
	SourceURL       string `json:"source_url,omitempty"`
}

// FontPairs wraps the font-pairing store with the curated fallback
// set.
type FontPairs struct {
	store *Store[FontPairing]
}

// NewFontPairs creates the font-pair catalog persisting under dataDir.
func NewFontPairs(dataDir string) *FontPairs {
	return &FontPairs{
		store: NewStore(filepath.Join(dataDir, "fontpairs.json"), "pairings", func(p FontPairing) string {
			return p.HeadingFont + "|" + p.BodyFont
		}),
	}
}

// List returns the accumulated pairings, falling back to the curated
// set when nothing is stored yet.
func (f *FontPairs) List() ([]FontPairing, error) {
	items, _, err := f.store.Load()
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return curatedFontPairings(), nil
	}
	return items, nil
}

// Save accumulates pairings into the store.
func (f *FontPairs) Save(items []FontPairing) error {
	return f.store.Save(items, true)
}

func sansPair(heading, body, style string) FontPairing {
	return FontPairing{
		HeadingFont:     heading,
		BodyFont:        body,
		HeadingCategory: "sans-serif",
		BodyCategory:    "sans-serif",
		Style:           style,
	}
}

func serifHeadingPair(heading, body, style string) FontPairing {
	return FontPairing{
		HeadingFont:     heading,
		BodyFont:        body,
		HeadingCategory: "serif",
		BodyCategory:    "sans-serif",
		Style:           style,
	}
}

// curatedFontPairings is the shipped fallback collection.
func curatedFontPairings() []FontPairing {
	return []FontPairing{
		sansPair("Inter", "Inter", "modern"),
		sansPair("Space Grotesk", "Inter", "modern"),
		sansPair("Plus Jakarta Sans", "Inter", "modern"),
		sansPair("Manrope", "Inter", "modern"),
		sansPair("DM Sans", "DM Sans", "modern"),
		sansPair("Outfit", "Inter", "modern"),
		sansPair("Clash Display", "DM Sans", "modern"),
		sansPair("Geist", "Geist", "modern"),
		sansPair("Poppins", "Open Sans", "professional"),
		sansPair("Montserrat", "Roboto", "professional"),
		sansPair("Work Sans", "Lato", "professional"),
		sansPair("Raleway", "Roboto", "professional"),
		sansPair("Rubik", "Roboto", "professional"),
		sansPair("Karla", "Lato", "professional"),
		serifHeadingPair("Playfair Display", "Lato", "editorial"),
		serifHeadingPair("Merriweather", "Open Sans", "editorial"),
		serifHeadingPair("Lora", "Roboto", "editorial"),
		serifHeadingPair("Fraunces", "Inter", "editorial"),
		serifHeadingPair("DM Serif Display", "DM Sans", "editorial"),
		serifHeadingPair("Spectral", "Open Sans", "editorial"),
		sansPair("Poppins", "Poppins", "friendly"),
		sansPair("Nunito", "Nunito", "friendly"),
		sansPair("Quicksand", "Open Sans", "friendly"),
		sansPair("Comfortaa", "Open Sans", "friendly"),
	}
}
