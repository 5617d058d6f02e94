// Appscope - Mobile App Market Intelligence and Review Harvesting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/appscope

package reddit

import (
	"context"

	"github.com/tomtom215/appscope/internal/logging"
	"github.com/tomtom215/appscope/internal/models"
)

// commentedPostLimit caps how many of a simple crawl's posts get their
// comments recovered.
const commentedPostLimit = 10

// CrawlParams configures a simple keyword discussion crawl.
type CrawlParams struct {
	Keywords           []string
	Subreddits         []string
	MaxPosts           int
	MaxCommentsPerPost int
	TimeFilter         string
	Sort               string
}

// Crawl searches site-wide for each keyword and returns matching posts
// with comments recovered for the first commentedPostLimit of them.
func (c *Crawler) Crawl(ctx context.Context, params CrawlParams) *models.DiscussionResult {
	if params.MaxPosts <= 0 {
		params.MaxPosts = 50
	}
	if params.MaxCommentsPerPost <= 0 {
		params.MaxCommentsPerPost = 20
	}
	if params.TimeFilter == "" {
		params.TimeFilter = "year"
	}
	if params.Sort == "" {
		params.Sort = "relevance"
	}

	seen := make(map[string]bool)
	var posts []models.DiscussionPost

	for _, keyword := range params.Keywords {
		if len(posts) >= params.MaxPosts || ctx.Err() != nil {
			break
		}

		var l listing
		if err := c.fetchJSON(ctx, c.searchURL(keyword, params.Sort, params.TimeFilter, 25), &l); err != nil {
			logging.Warn().Err(err).Str("keyword", keyword).Msg("discussion search failed")
			continue
		}

		for _, p := range parsePosts(&l) {
			if len(posts) >= params.MaxPosts {
				break
			}
			if seen[p.ID] {
				continue
			}
			seen[p.ID] = true

			post := p.toPost()
			post.Keywords = []string{keyword}
			posts = append(posts, post)
		}
	}

	for i := range posts {
		if i >= commentedPostLimit {
			break
		}
		posts[i].Comments = c.fetchComments(ctx, posts[i].Subreddit, posts[i].ID, params.MaxCommentsPerPost)
	}

	if posts == nil {
		posts = []models.DiscussionPost{}
	}
	return &models.DiscussionResult{
		Posts:            posts,
		TotalPosts:       len(posts),
		KeywordsSearched: params.Keywords,
	}
}
