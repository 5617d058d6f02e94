// Appscope - Mobile App Market Intelligence and Review Harvesting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/appscope

package reddit

import (
	"context"
	"regexp"
	"strings"

	"github.com/tomtom215/appscope/internal/logging"
	"github.com/tomtom215/appscope/internal/models"
)

// maxDiscovered bounds sidebar/wiki discovery across all seeds.
const maxDiscovered = 10

// discoveryDenylist names pseudo-communities and moderation surfaces
// that mention-scanning would otherwise pick up.
var discoveryDenylist = map[string]bool{
	"all":           true,
	"popular":       true,
	"random":        true,
	"mods":          true,
	"mod":           true,
	"announcements": true,
}

var mentionPattern = regexp.MustCompile(`(?:^|[^\w/])r/([A-Za-z0-9_]{3,21})`)

// ValidateCommunities checks each community's metadata endpoint,
// partitioning valid from invalid and scanning valid descriptions and
// wikis for further community mentions. Discovery is depth-1 only:
// discovered names are never themselves scanned.
func (c *Crawler) ValidateCommunities(ctx context.Context, names []string) (models.SubredditValidation, map[string]models.SubredditInfo) {
	validation := models.SubredditValidation{
		Valid:      []string{},
		Invalid:    []string{},
		Discovered: []string{},
	}
	infos := make(map[string]models.SubredditInfo)
	seeds := make(map[string]bool, len(names))
	for _, n := range names {
		seeds[strings.ToLower(n)] = true
	}

	for _, name := range names {
		info, err := c.fetchAbout(ctx, name)
		if err != nil || (info.Type != "public" && info.Type != "restricted") {
			validation.Invalid = append(validation.Invalid, name)
			continue
		}
		validation.Valid = append(validation.Valid, name)
		infos[name] = info

		if len(validation.Discovered) >= maxDiscovered {
			continue
		}
		corpus := info.Description + "\n" + c.fetchWiki(ctx, name)
		for _, mention := range scanMentions(corpus) {
			if len(validation.Discovered) >= maxDiscovered {
				break
			}
			lower := strings.ToLower(mention)
			if seeds[lower] || discoveryDenylist[lower] || containsFold(validation.Discovered, mention) {
				continue
			}
			validation.Discovered = append(validation.Discovered, mention)
		}
	}
	return validation, infos
}

// fetchAbout reads community metadata. The long description rides
// along for mention scanning.
func (c *Crawler) fetchAbout(ctx context.Context, name string) (models.SubredditInfo, error) {
	var envelope aboutEnvelope
	if err := c.fetchJSON(ctx, c.aboutURL(name), &envelope); err != nil {
		return models.SubredditInfo{}, err
	}
	d := envelope.Data
	return models.SubredditInfo{
		Name:        d.DisplayName,
		Title:       d.Title,
		Subscribers: d.Subscribers,
		Type:        d.SubredditType,
		Description: d.PublicDescription + "\n" + d.Description,
		Over18:      d.Over18,
	}, nil
}

// fetchWiki reads the community wiki index; a missing wiki is normal.
func (c *Crawler) fetchWiki(ctx context.Context, name string) string {
	var envelope wikiEnvelope
	if err := c.fetchJSON(ctx, c.wikiURL(name), &envelope); err != nil {
		logging.Debug().Str("subreddit", name).Msg("wiki index unavailable")
		return ""
	}
	return envelope.Data.ContentMD
}

// scanMentions extracts r/<name> references from free text.
func scanMentions(text string) []string {
	var out []string
	for _, m := range mentionPattern.FindAllStringSubmatch(text, -1) {
		out = append(out, m[1])
	}
	return out
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

// thresholdFor maps community size to the engagement gate applied
// during the sweep. Larger communities need stronger signals for a
// post to mean anything.
func thresholdFor(subscribers int, adaptive bool) models.EngagementThreshold {
	if !adaptive {
		return models.EngagementThreshold{MinScore: 5, MinComments: 3}
	}
	switch {
	case subscribers < 10_000:
		return models.EngagementThreshold{MinScore: 2, MinComments: 1}
	case subscribers < 100_000:
		return models.EngagementThreshold{MinScore: 5, MinComments: 3}
	case subscribers < 1_000_000:
		return models.EngagementThreshold{MinScore: 10, MinComments: 5}
	default:
		return models.EngagementThreshold{MinScore: 20, MinComments: 10}
	}
}
