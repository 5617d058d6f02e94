// Appscope - Mobile App Market Intelligence and Review Harvesting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/appscope

package models

// DiscussionPost is a single community post with its recovered comment tree.
// Identity is the source-supplied post id; a post appears at most once per
// crawl accumulator.
type DiscussionPost struct {
	ID          string    `json:"id"`
	Subreddit   string    `json:"subreddit"`
	Title       string    `json:"title"`
	Selftext    string    `json:"selftext"`
	Score       int       `json:"score"`
	NumComments int       `json:"num_comments"`
	CreatedUTC  float64   `json:"created_utc"`
	Permalink   string    `json:"permalink"`
	URL         string    `json:"url"`
	Author      string    `json:"author"`
	UpvoteRatio float64   `json:"upvote_ratio"`
	SearchTopic string    `json:"search_topic,omitempty"`
	Keywords    []string  `json:"keywords,omitempty"`
	Comments    []Comment `json:"comments"`
}

// Comment is one node of a threaded discussion. Replies nest to the
// crawl's configured depth; deleted and removed bodies are dropped at
// parse time rather than emitted with placeholder text.
type Comment struct {
	ID         string    `json:"id"`
	Author     string    `json:"author"`
	Body       string    `json:"body"`
	Score      int       `json:"score"`
	CreatedUTC float64   `json:"created_utc"`
	Depth      int       `json:"depth"`
	IsOP       bool      `json:"is_op"`
	ParentID   string    `json:"parent_id,omitempty"`
	Replies    []Comment `json:"replies,omitempty"`
}

// SubredditInfo is community metadata from the about endpoint,
// used for validation and adaptive threshold selection.
type SubredditInfo struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	Subscribers int    `json:"subscribers"`
	Type        string `json:"subreddit_type"`
	Description string `json:"public_description"`
	Over18      bool   `json:"over18"`
}

// EngagementThreshold is the minimum score/comment gate a post must
// clear (either one suffices) to enter the accumulator.
type EngagementThreshold struct {
	MinScore    int `json:"min_score"`
	MinComments int `json:"min_comments"`
}

// SubredditYield is the per-community yield sidecar of a deep-dive.
type SubredditYield struct {
	PostCount      int     `json:"post_count"`
	MeanEngagement float64 `json:"mean_engagement"`
}

// SubredditValidation reports the outcome of community validation
// and sidebar/wiki discovery.
type SubredditValidation struct {
	Valid      []string `json:"valid"`
	Invalid    []string `json:"invalid"`
	Discovered []string `json:"discovered"`
}

// DateRange is the [min, max] creation-time envelope of a post set,
// ISO-8601 formatted, nil-able when the set is empty.
type DateRange struct {
	Start *string `json:"start"`
	End   *string `json:"end"`
}

// DeepDiveStats aggregates a deep-dive crawl.
type DeepDiveStats struct {
	TotalPosts         int                       `json:"total_posts"`
	TotalComments      int                       `json:"total_comments"`
	SubredditsSearched []string                  `json:"subreddits_searched"`
	TopicsSearched     []string                  `json:"topics_searched"`
	SubredditStats     map[string]SubredditYield `json:"subreddit_stats"`
	DateRange          DateRange                 `json:"date_range"`
}

// DeepDiveResult is the full deep-dive payload.
type DeepDiveResult struct {
	Posts      []DiscussionPost    `json:"posts"`
	Stats      DeepDiveStats       `json:"stats"`
	Validation SubredditValidation `json:"validation"`
	Success    bool                `json:"success"`
	Error      string              `json:"error,omitempty"`
}

// DiscussionResult is the simple (non-deep-dive) discussion crawl payload.
type DiscussionResult struct {
	Posts            []DiscussionPost `json:"posts"`
	TotalPosts       int              `json:"total_posts"`
	KeywordsSearched []string         `json:"keywords_searched"`
}
