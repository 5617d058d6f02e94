// Appscope - Mobile App Market Intelligence and Review Harvesting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/appscope

package appstore

// lookupEnvelope is the iTunes lookup API response.
type lookupEnvelope struct {
	ResultCount int         `json:"resultCount"`
	Results     []lookupApp `json:"results"`
}

// lookupApp is one application record from the lookup API. Only the
// fields the collectors read are declared.
type lookupApp struct {
	TrackID                   int64    `json:"trackId"`
	TrackName                 string   `json:"trackName"`
	BundleID                  string   `json:"bundleId"`
	ArtistName                string   `json:"artistName"`
	Price                     float64  `json:"price"`
	Currency                  string   `json:"currency"`
	AverageUserRating         float64  `json:"averageUserRating"`
	UserRatingCount           int      `json:"userRatingCount"`
	Version                   string   `json:"version"`
	CurrentVersionReleaseDate string   `json:"currentVersionReleaseDate"`
	ReleaseNotes              string   `json:"releaseNotes"`
	FileSizeBytes             string   `json:"fileSizeBytes"`
	SellerURL                 string   `json:"sellerUrl"`
	Genres                    []string `json:"genres"`
	PrimaryGenreName          string   `json:"primaryGenreName"`
	TrackViewURL              string   `json:"trackViewUrl"`
	ArtworkURL100             string   `json:"artworkUrl100"`
	Description               string   `json:"description"`
	ContentAdvisoryRating     string   `json:"contentAdvisoryRating"`
}

// chartFeed is the RSS top-apps feed envelope.
type chartFeed struct {
	Feed struct {
		Entry []chartEntry `json:"entry"`
	} `json:"feed"`
}

type chartLabel struct {
	Label string `json:"label"`
}

// chartEntry is one ranked application in the top-apps feed.
type chartEntry struct {
	Name struct {
		Label string `json:"label"`
	} `json:"im:name"`
	Artist struct {
		Label string `json:"label"`
	} `json:"im:artist"`
	Price struct {
		Attributes struct {
			Amount   string `json:"amount"`
			Currency string `json:"currency"`
		} `json:"attributes"`
	} `json:"im:price"`
	ID struct {
		Label      string `json:"label"`
		Attributes struct {
			ID       string `json:"im:id"`
			BundleID string `json:"im:bundleId"`
		} `json:"attributes"`
	} `json:"id"`
	Image []chartLabel `json:"im:image"`
}
