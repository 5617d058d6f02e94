// Appscope - Mobile App Market Intelligence and Review Harvesting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/appscope

package reddit

import (
	"github.com/goccy/go-json"

	"github.com/tomtom215/appscope/internal/models"
)

// Listing envelopes as the JSON API emits them. A comments fetch
// returns a two-element array: the post listing and the comment
// forest.

type listing struct {
	Data struct {
		Children []listingChild `json:"children"`
	} `json:"data"`
}

type listingChild struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

type postData struct {
	ID          string  `json:"id"`
	Subreddit   string  `json:"subreddit"`
	Title       string  `json:"title"`
	Selftext    string  `json:"selftext"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	CreatedUTC  float64 `json:"created_utc"`
	Permalink   string  `json:"permalink"`
	Author      string  `json:"author"`
	UpvoteRatio float64 `json:"upvote_ratio"`
}

type commentData struct {
	ID          string  `json:"id"`
	Author      string  `json:"author"`
	Body        string  `json:"body"`
	Score       int     `json:"score"`
	CreatedUTC  float64 `json:"created_utc"`
	ParentID    string  `json:"parent_id"`
	IsSubmitter bool    `json:"is_submitter"`
	Replies     replies `json:"replies"`
}

// replies is either a nested listing or the empty string.
type replies struct {
	listing *listing
}

func (r *replies) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || data[0] == '"' || string(data) == "null" {
		r.listing = nil
		return nil
	}
	var l listing
	if err := json.Unmarshal(data, &l); err != nil {
		return err
	}
	r.listing = &l
	return nil
}

type aboutEnvelope struct {
	Data struct {
		DisplayName       string `json:"display_name"`
		Title             string `json:"title"`
		Subscribers       int    `json:"subscribers"`
		SubredditType     string `json:"subreddit_type"`
		PublicDescription string `json:"public_description"`
		Description       string `json:"description"`
		Over18            bool   `json:"over18"`
	} `json:"data"`
}

type wikiEnvelope struct {
	Data struct {
		ContentMD string `json:"content_md"`
	} `json:"data"`
}

// toPost converts a wire post into the domain shape.
func (p *postData) toPost() models.DiscussionPost {
	author := p.Author
	if author == "" {
		author = "deleted"
	}
	return models.DiscussionPost{
		ID:          p.ID,
		Subreddit:   p.Subreddit,
		Title:       p.Title,
		Selftext:    p.Selftext,
		Score:       p.Score,
		NumComments: p.NumComments,
		CreatedUTC:  p.CreatedUTC,
		Permalink:   p.Permalink,
		URL:         "https://reddit.com" + p.Permalink,
		Author:      author,
		UpvoteRatio: p.UpvoteRatio,
		Comments:    []models.Comment{},
	}
}

// parsePosts decodes the t3 children of a search listing.
func parsePosts(l *listing) []postData {
	posts := make([]postData, 0, len(l.Data.Children))
	for _, child := range l.Data.Children {
		if child.Kind != "" && child.Kind != "t3" {
			continue
		}
		var p postData
		if err := json.Unmarshal(child.Data, &p); err != nil {
			continue
		}
		if p.ID != "" {
			posts = append(posts, p)
		}
	}
	return posts
}

// parseCommentForest walks the t1 children of a comment listing to
// maxDepth inclusive, dropping empty, deleted, and removed bodies.
// Subtrees under a dropped comment are dropped with it.
func parseCommentForest(l *listing, depth, maxDepth int) []models.Comment {
	if l == nil || depth > maxDepth {
		return nil
	}
	var out []models.Comment
	for _, child := range l.Data.Children {
		if child.Kind != "t1" {
			continue
		}
		var c commentData
		if err := json.Unmarshal(child.Data, &c); err != nil {
			continue
		}
		if c.Body == "" || c.Body == "[deleted]" || c.Body == "[removed]" {
			continue
		}
		author := c.Author
		if author == "" {
			author = "deleted"
		}
		out = append(out, models.Comment{
			ID:         c.ID,
			Author:     author,
			Body:       c.Body,
			Score:      c.Score,
			CreatedUTC: c.CreatedUTC,
			Depth:      depth,
			IsOP:       c.IsSubmitter,
			ParentID:   c.ParentID,
			Replies:    parseCommentForest(c.Replies.listing, depth+1, maxDepth),
		})
	}
	return out
}

// countComments totals a forest including nested replies.
func countComments(comments []models.Comment) int {
	n := len(comments)
	for i := range comments {
		n += countComments(comments[i].Replies)
	}
	return n
}
