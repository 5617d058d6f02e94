// Appscope - Mobile App Market Intelligence and Review Harvesting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/appscope

package models

// VersionNote is one entry of an app's version history.
type VersionNote struct {
	Version     string `json:"version"`
	ReleaseDate string `json:"release_date,omitempty"`
	Notes       string `json:"notes"`
}

// PrivacyLabel is one storefront privacy-practice category with the
// data types it declares.
type PrivacyLabel struct {
	Category  string   `json:"category"`
	DataTypes []string `json:"data_types"`
}

// ChartApp is one application enriched from the top-charts feed plus
// the lookup endpoint.
type ChartApp struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	BundleID      string   `json:"bundle_id,omitempty"`
	Developer     string   `json:"developer,omitempty"`
	Price         float64  `json:"price"`
	Currency      string   `json:"currency,omitempty"`
	Rating        float64  `json:"rating"`
	ReviewCount   int      `json:"review_count"`
	Version       string   `json:"version,omitempty"`
	ReleaseDate   string   `json:"release_date,omitempty"`
	Genres        []string `json:"genres,omitempty"`
	PrimaryGenre  string   `json:"primary_genre,omitempty"`
	URL           string   `json:"url,omitempty"`
	IconURL       string   `json:"icon_url,omitempty"`
	Description   string   `json:"description,omitempty"`
	ContentRating string   `json:"content_rating,omitempty"`
	Rank          int      `json:"rank"`
}

// ChartPresence aggregates one app's rank across the scraped countries.
type ChartPresence struct {
	AppStoreID       string         `json:"app_store_id"`
	AppName          string         `json:"app_name"`
	AppIconURL       string         `json:"app_icon_url,omitempty"`
	AppDeveloper     string         `json:"app_developer,omitempty"`
	AppRating        float64        `json:"app_rating"`
	AppReviewCount   int            `json:"app_review_count"`
	AppPrimaryGenre  string         `json:"app_primary_genre,omitempty"`
	AppURL           string         `json:"app_url,omitempty"`
	CountriesPresent []string       `json:"countries_present"`
	CountryRanks     map[string]int `json:"country_ranks"`
	PresenceCount    int            `json:"presence_count"`
	AverageRank      *float64       `json:"average_rank"`
}
