// Appscope - Mobile App Market Intelligence and Review Harvesting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/appscope

package models

// HealthStatus is the GET /health payload.
type HealthStatus struct {
	Status        string  `json:"status"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	Version       string  `json:"version"`
}

// ErrorResponse is the uniform error payload for 4xx/5xx responses.
type ErrorResponse struct {
	Error   string      `json:"error"`
	Details interface{} `json:"details,omitempty"`
}

// RateLimitResponse is the 429 payload emitted by the inbound
// rate-limit middleware, paired with a Retry-After header.
type RateLimitResponse struct {
	Error      string `json:"error"`
	RetryAfter int    `json:"retry_after"`
	Message    string `json:"message"`
}

// ReviewsResponse is the review-harvest payload.
type ReviewsResponse struct {
	AppID   string      `json:"app_id"`
	Country string      `json:"country"`
	Reviews []Review    `json:"reviews"`
	Stats   ReviewStats `json:"stats"`
}

// WhatsNewResponse is the version-history payload.
type WhatsNewResponse struct {
	AppID    string        `json:"app_id"`
	Country  string        `json:"country"`
	Versions []VersionNote `json:"versions"`
}

// PrivacyResponse is the privacy-label payload.
type PrivacyResponse struct {
	AppID         string         `json:"app_id"`
	Country       string         `json:"country"`
	PrivacyLabels []PrivacyLabel `json:"privacy_labels"`
}

// TopChartsResponse is the cross-country chart payload.
type TopChartsResponse struct {
	TotalApps        int             `json:"total_apps"`
	UniqueApps       int             `json:"unique_apps"`
	CountriesScraped []string        `json:"countries_scraped"`
	Apps             []ChartPresence `json:"apps"`
}

// JobSubmitResponse acknowledges an async batch submission.
type JobSubmitResponse struct {
	JobID string `json:"job_id"`
}
