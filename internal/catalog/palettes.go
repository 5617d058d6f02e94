// Appscope - Mobile App Market Intelligence and Review Harvesting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/appscope

package catalog

import (
	"math"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Palette is one color palette with mood metadata.
type Palette struct {
	Colors    []string `json:"colors"`
	Name      string   `json:"name,omitempty"`
	Mood      string   `json:"mood,omitempty"`
	Likes     int      `json:"likes"`
	SourceURL string   `json:"source_url,omitempty"`
}

// Palettes wraps the palette store with the curated fallback set.
type Palettes struct {
	store *Store[Palette]
}

// NewPalettes creates the palette catalog persisting under dataDir.
func NewPalettes(dataDir string) *Palettes {
	return &Palettes{
		store: NewStore(filepath.Join(dataDir, "palettes.json"), "palettes", func(p Palette) string {
			return strings.Join(p.Colors, ",")
		}),
	}
}

// List returns the accumulated palettes, falling back to the curated
// set when nothing is stored yet.
func (p *Palettes) List() ([]Palette, error) {
	items, _, err := p.store.Load()
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return curatedPalettes(), nil
	}
	return items, nil
}

// Save accumulates palettes into the store.
func (p *Palettes) Save(items []Palette) error {
	return p.store.Save(items, true)
}

// categoryMoods maps an App Store category to its preferred palette
// moods, strongest preference first.
var categoryMoods = map[string][]string{
	"Finance":           {"professional", "dark", "neutral"},
	"Business":          {"professional", "neutral", "cool"},
	"Productivity":      {"professional", "calm", "neutral"},
	"Health & Fitness":  {"calm", "cool", "light"},
	"Medical":           {"calm", "professional", "cool"},
	"Lifestyle":         {"warm", "calm", "light"},
	"Entertainment":     {"playful", "bold", "warm"},
	"Games":             {"bold", "playful", "dark"},
	"Photo & Video":     {"dark", "professional", "neutral"},
	"Music":             {"bold", "dark", "cool"},
	"Social Networking": {"playful", "warm", "light"},
	"Dating":            {"warm", "playful", "bold"},
	"Education":         {"calm", "light", "cool"},
	"Books":             {"calm", "warm", "neutral"},
	"Reference":         {"professional", "neutral", "light"},
	"Utilities":         {"professional", "neutral", "dark"},
	"Developer Tools":   {"dark", "professional", "cool"},
	"Weather":           {"cool", "calm", "light"},
	"Shopping":          {"warm", "playful", "bold"},
	"Food & Drink":      {"warm", "playful", "light"},
	"Travel":            {"warm", "bold", "playful"},
	"Navigation":        {"cool", "professional", "dark"},
	"Kids":              {"playful", "bold", "light"},
}

// SelectForApp ranks palettes for an app context. An explicit mood
// hint beats the category mapping; with neither, a conservative
// professional/calm/neutral preference applies.
func SelectForApp(palettes []Palette, category, moodHint string, topN int) []Palette {
	if len(palettes) == 0 {
		return nil
	}
	preferred := []string{"professional", "calm", "neutral"}
	if moodHint != "" {
		preferred = []string{moodHint}
	} else if moods, ok := categoryMoods[category]; ok {
		preferred = moods
	}

	score := func(p Palette) float64 {
		moodScore := 0.0
		for i, mood := range preferred {
			if p.Mood == mood {
				moodScore = float64(len(preferred) - i)
				break
			}
		}
		likesScore := math.Min(float64(p.Likes)/1000, 10)
		return moodScore*100 + likesScore*10 - float64(len(p.Colors))
	}

	ranked := make([]Palette, len(palettes))
	copy(ranked, palettes)
	sort.SliceStable(ranked, func(i, j int) bool { return score(ranked[i]) > score(ranked[j]) })
	if topN > 0 && len(ranked) > topN {
		ranked = ranked[:topN]
	}
	return ranked
}

// DetectMood classifies a palette by the HSV profile of its colors:
// professional, bold, calm, playful, warm, cool, dark, light, or
// neutral.
func DetectMood(colors []string) string {
	if len(colors) == 0 {
		return "neutral"
	}

	var satSum, valSum float64
	warm, cool := 0, 0
	parsed := 0
	for _, c := range colors {
		h, s, v, ok := hexToHSV(c)
		if !ok {
			continue
		}
		parsed++
		satSum += s
		valSum += v
		if h < 60 || h > 300 {
			warm++
		}
		if h > 120 && h < 270 {
			cool++
		}
	}
	if parsed == 0 {
		return "neutral"
	}

	avgSat := satSum / float64(parsed)
	avgVal := valSum / float64(parsed)
	isDark := avgVal < 0.4
	isLight := avgVal > 0.8
	isMuted := avgSat < 0.3
	isVibrant := avgSat > 0.7
	isWarm := warm*2 > parsed
	isCool := cool*2 > parsed

	switch {
	case isDark && isMuted:
		return "professional"
	case isDark && isVibrant:
		return "bold"
	case isLight && isMuted:
		return "calm"
	case isLight && isVibrant:
		return "playful"
	case isWarm && isVibrant:
		return "warm"
	case isCool && isMuted:
		return "cool"
	case isDark:
		return "dark"
	case isLight:
		return "light"
	default:
		return "neutral"
	}
}

// hexToHSV parses a 6-digit hex color into hue [0,360), saturation and
// value [0,1].
func hexToHSV(hex string) (h, s, v float64, ok bool) {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 {
		return 0, 0, 0, false
	}
	n, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, 0, 0, false
	}
	r := float64(n>>16&0xFF) / 255
	g := float64(n>>8&0xFF) / 255
	b := float64(n&0xFF) / 255

	maxC := math.Max(r, math.Max(g, b))
	minC := math.Min(r, math.Min(g, b))
	v = maxC
	if maxC > 0 {
		s = (maxC - minC) / maxC
	}
	switch {
	case maxC == minC:
		h = 0
	case maxC == r:
		h = 60 * math.Mod((g-b)/(maxC-minC), 6)
	case maxC == g:
		h = 60 * ((b-r)/(maxC-minC) + 2)
	default:
		h = 60 * ((r-g)/(maxC-minC) + 4)
	}
	if h < 0 {
		h += 360
	}
	return h, s, v, true
}

// curatedPalettes is the shipped fallback collection, mood-tagged for
// the category selector.
func curatedPalettes() []Palette {
	return []Palette{
		{Colors: []string{"0D1B2A", "1B263B", "415A77", "778DA9", "E0E1DD"}, Name: "Midnight Slate", Mood: "professional"},
		{Colors: []string{"10002B", "3C096C", "7B2CBF", "C77DFF", "E0AAFF"}, Name: "Ultraviolet", Mood: "bold"},
		{Colors: []string{"F8F9FA", "E9ECEF", "DEE2E6", "ADB5BD", "495057"}, Name: "Paper Gray", Mood: "calm"},
		{Colors: []string{"FFBE0B", "FB5607", "FF006E", "8338EC", "3A86FF"}, Name: "Carnival", Mood: "playful"},
		{Colors: []string{"E76F51", "F4A261", "E9C46A", "2A9D8F", "264653"}, Name: "Desert Dusk", Mood: "warm"},
		{Colors: []string{"CAF0F8", "90E0EF", "00B4D8", "0077B6", "03045E"}, Name: "Ocean Depth", Mood: "cool"},
		{Colors: []string{"0B090A", "161A1D", "660708", "A4161A", "E5383B"}, Name: "Ember", Mood: "dark"},
		{Colors: []string{"FFFCF2", "CCC5B9", "403D39", "252422", "EB5E28"}, Name: "Charcoal Accent", Mood: "neutral"},
		{Colors: []string{"D8F3DC", "95D5B2", "52B788", "2D6A4F", "081C15"}, Name: "Forest", Mood: "cool"},
		{Colors: []string{"FFE5EC", "FFC2D1", "FFB3C6", "FF8FAB", "FB6F92"}, Name: "Rose Quartz", Mood: "light"},
		{Colors: []string{"03071E", "370617", "9D0208", "DC2F02", "FFBA08"}, Name: "Lava", Mood: "bold"},
		{Colors: []string{"EDEDE9", "D6CCC2", "F5EBE0", "E3D5CA", "D5BDAF"}, Name: "Linen", Mood: "calm"},
		{Colors: []string{"22223B", "4A4E69", "9A8C98", "C9ADA7", "F2E9E4"}, Name: "Dusty Plum", Mood: "professional"},
		{Colors: []string{"8ECAE6", "219EBC", "023047", "FFB703", "FB8500"}, Name: "Harbor Sunset", Mood: "neutral"},
		{Colors: []string{"606C38", "283618", "FEFAE0", "DDA15E", "BC6C25"}, Name: "Olive Grove", Mood: "warm"},
		{Colors: []string{"F72585", "B5179E", "7209B7", "3A0CA3", "4361EE"}, Name: "Neon Night", Mood: "bold"},
	}
}
