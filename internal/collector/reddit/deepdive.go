// Appscope - Mobile App Market Intelligence and Review Harvesting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/appscope

package reddit

import (
	"context"
	"sort"
	"time"

	"github.com/tomtom215/appscope/internal/logging"
	"github.com/tomtom215/appscope/internal/models"
)

const (
	// Comment recovery is restricted to the strongest posts of the
	// sweep.
	commentFetchLimit  = 20
	highEngageScore    = 20
	highEngageComments = 10

	maxCommentDepth = 3
)

// DeepDiveParams configures a two-phase community deep-dive.
type DeepDiveParams struct {
	Topics             []string
	Communities        []string
	TimeFilter         string // week, month, year
	MaxPostsPerCombo   int
	MaxCommentsPerPost int
	Validate           bool
	Adaptive           bool
}

// DeepDive sweeps the topics × communities cartesian, gates posts by
// community-size-adaptive engagement thresholds, and recovers threaded
// comments for the highest-engagement subset.
func (c *Crawler) DeepDive(ctx context.Context, params DeepDiveParams) *models.DeepDiveResult {
	if params.TimeFilter == "" {
		params.TimeFilter = "month"
	}
	if params.MaxPostsPerCombo <= 0 {
		params.MaxPostsPerCombo = 50
	}
	if params.MaxCommentsPerPost <= 0 {
		params.MaxCommentsPerPost = 30
	}

	result := &models.DeepDiveResult{
		Posts: []models.DiscussionPost{},
		Validation: models.SubredditValidation{
			Valid:      params.Communities,
			Invalid:    []string{},
			Discovered: []string{},
		},
		Success: true,
	}

	communities := params.Communities
	infos := map[string]models.SubredditInfo{}
	if params.Validate {
		validation, validInfos := c.ValidateCommunities(ctx, params.Communities)
		result.Validation = validation
		communities = validation.Valid
		infos = validInfos

		if len(communities) == 0 {
			result.Success = false
			result.Error = "no valid subreddits to search"
			result.Stats = emptyStats(params)
			return result
		}
	}

	// Phase B: sweep.
	accumulator := make(map[string]*models.DiscussionPost)
	var order []string
	yields := make(map[string]*yieldAccum)

	for _, community := range communities {
		threshold := thresholdFor(infos[community].Subscribers, params.Validate && params.Adaptive)
		for _, topic := range params.Topics {
			if ctx.Err() != nil {
				break
			}
			var l listing
			url := c.subredditSearchURL(community, topic, params.TimeFilter, params.MaxPostsPerCombo)
			if err := c.fetchJSON(ctx, url, &l); err != nil {
				logging.Warn().Err(err).
					Str("subreddit", community).
					Str("topic", topic).
					Msg("deep-dive search failed")
				continue
			}

			for _, p := range parsePosts(&l) {
				if _, dup := accumulator[p.ID]; dup {
					continue
				}
				// Gate: a post survives by clearing either bar.
				if p.Score < threshold.MinScore && p.NumComments < threshold.MinComments {
					continue
				}
				post := p.toPost()
				post.SearchTopic = topic
				accumulator[p.ID] = &post
				order = append(order, p.ID)

				y := yields[post.Subreddit]
				if y == nil {
					y = &yieldAccum{}
					yields[post.Subreddit] = y
				}
				y.count++
				y.engagement += float64(post.Score + post.NumComments)
			}
		}
	}

	// Phase C: comment recovery on the high-engagement subset.
	ranked := make([]*models.DiscussionPost, 0, len(order))
	for _, id := range order {
		ranked = append(ranked, accumulator[id])
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score+2*ranked[i].NumComments > ranked[j].Score+2*ranked[j].NumComments
	})

	totalComments := 0
	fetched := 0
	for _, post := range ranked {
		if fetched >= commentFetchLimit {
			break
		}
		if post.Score <= highEngageScore && post.NumComments <= highEngageComments {
			continue
		}
		fetched++
		comments := c.fetchComments(ctx, post.Subreddit, post.ID, params.MaxCommentsPerPost)
		post.Comments = comments
		totalComments += countComments(comments)
	}

	result.Posts = make([]models.DiscussionPost, 0, len(ranked))
	for _, p := range ranked {
		result.Posts = append(result.Posts, *p)
	}
	result.Stats = models.DeepDiveStats{
		TotalPosts:         len(result.Posts),
		TotalComments:      totalComments,
		SubredditsSearched: communities,
		TopicsSearched:     params.Topics,
		SubredditStats:     finishYields(yields),
		DateRange:          dateRangeOf(result.Posts),
	}
	return result
}

// fetchComments recovers one post's comment forest to the configured
// depth bound.
func (c *Crawler) fetchComments(ctx context.Context, subreddit, postID string, limit int) []models.Comment {
	var pages []listing
	if err := c.fetchJSON(ctx, c.commentsURL(subreddit, postID, limit), &pages); err != nil {
		logging.Warn().Err(err).Str("post_id", postID).Msg("comment fetch failed")
		return []models.Comment{}
	}
	if len(pages) < 2 {
		return []models.Comment{}
	}
	forest := parseCommentForest(&pages[1], 0, c.opts.MaxCommentDepth)
	if len(forest) > limit {
		forest = forest[:limit]
	}
	if forest == nil {
		forest = []models.Comment{}
	}
	return forest
}

type yieldAccum struct {
	count      int
	engagement float64
}

func finishYields(yields map[string]*yieldAccum) map[string]models.SubredditYield {
	out := make(map[string]models.SubredditYield, len(yields))
	for name, y := range yields {
		mean := 0.0
		if y.count > 0 {
			mean = y.engagement / float64(y.count)
		}
		out[name] = models.SubredditYield{PostCount: y.count, MeanEngagement: mean}
	}
	return out
}

// dateRangeOf computes the ISO-8601 envelope of post creation times.
func dateRangeOf(posts []models.DiscussionPost) models.DateRange {
	var earliest, latest float64
	for _, p := range posts {
		if p.CreatedUTC == 0 {
			continue
		}
		if earliest == 0 || p.CreatedUTC < earliest {
			earliest = p.CreatedUTC
		}
		if p.CreatedUTC > latest {
			latest = p.CreatedUTC
		}
	}
	if earliest == 0 {
		return models.DateRange{}
	}
	start := time.Unix(int64(earliest), 0).UTC().Format("2006-01-02T15:04:05")
	end := time.Unix(int64(latest), 0).UTC().Format("2006-01-02T15:04:05")
	return models.DateRange{Start: &start, End: &end}
}

func emptyStats(params DeepDiveParams) models.DeepDiveStats {
	return models.DeepDiveStats{
		SubredditsSearched: []string{},
		TopicsSearched:     params.Topics,
		SubredditStats:     map[string]models.SubredditYield{},
	}
}
