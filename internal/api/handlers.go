// Appscope - Mobile App Market Intelligence and Review Harvesting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/appscope

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/appscope/internal/collector/appstore"
	"github.com/tomtom215/appscope/internal/collector/browser"
	"github.com/tomtom215/appscope/internal/collector/feed"
	"github.com/tomtom215/appscope/internal/collector/reddit"
	"github.com/tomtom215/appscope/internal/collector/website"
	"github.com/tomtom215/appscope/internal/jobs"
	"github.com/tomtom215/appscope/internal/logging"
	"github.com/tomtom215/appscope/internal/models"
	"github.com/tomtom215/appscope/internal/pipeline"
	"github.com/tomtom215/appscope/internal/security"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, models.HealthStatus{
		Status:        "ok",
		UptimeSeconds: time.Since(s.started).Seconds(),
		Version:       s.cfg.Version,
	})
}

func (s *Server) handleReviews(w http.ResponseWriter, r *http.Request) {
	var req models.ReviewsRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	result, err := s.deps.Harvester.Harvest(r.Context(), pipeline.Params{
		AppID:       req.AppID,
		Country:     req.Country,
		MaxReviews:  req.MaxReviews,
		Rating:      browser.RatingRange{Min: req.MinRating, Max: req.MaxRating},
		MultiLocale: req.MultiCountry,
		Stealth:     s.cfg.Stealth,
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "review harvest failed", nil)
		return
	}

	respondJSON(w, http.StatusOK, models.ReviewsResponse{
		AppID:   req.AppID,
		Country: countryOr(req.Country),
		Reviews: result.Reviews,
		Stats:   result.Stats,
	})
}

func (s *Server) handleReviewsStream(w http.ResponseWriter, r *http.Request) {
	var req models.StreamReviewsRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	stream, err := newSSEStream(w)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error(), nil)
		return
	}

	filters := make([]feed.Filter, len(req.Filters))
	for i, f := range req.Filters {
		filters[i] = feed.Filter{Sort: f.Sort, Target: f.Target}
	}

	result, err := s.deps.Feed.Collect(
		r.Context(), req.AppID, countryOr(req.Country), filters, s.stealthOf(req.Stealth),
		func(ev feed.Event) { stream.send(ev) },
	)
	if err != nil {
		stream.send(feed.Event{"type": feed.EventError, "message": err.Error()})
		return
	}
	stream.send(feed.Event{
		"type":    feed.EventComplete,
		"reviews": result.Reviews,
		"stats":   result.Stats,
	})
}

func (s *Server) handleWhatsNew(w http.ResponseWriter, r *http.Request) {
	var req models.AppLookupRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	versions, err := s.deps.Store.WhatsNew(r.Context(), req.AppID, countryOr(req.Country))
	if err != nil {
		respondUpstreamError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, models.WhatsNewResponse{
		AppID:    req.AppID,
		Country:  countryOr(req.Country),
		Versions: versions,
	})
}

func (s *Server) handlePrivacy(w http.ResponseWriter, r *http.Request) {
	var req models.AppLookupRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	info, err := s.deps.Store.Privacy(r.Context(), req.AppID, countryOr(req.Country))
	if err != nil {
		respondUpstreamError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, models.PrivacyResponse{
		AppID:         req.AppID,
		Country:       countryOr(req.Country),
		PrivacyLabels: info.Labels,
	})
}

func (s *Server) handleTopCharts(w http.ResponseWriter, r *http.Request) {
	var req models.TopChartsRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	stream, err := newSSEStream(w)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error(), nil)
		return
	}

	result, err := s.deps.Store.TopCharts(r.Context(), appstore.ChartParams{
		Category:       req.Category,
		Countries:      req.Countries,
		AppsPerCountry: req.AppsPerCountry,
		IncludePaid:    boolOr(req.IncludePaid, false),
	}, func(ev appstore.Event) { stream.send(ev) })
	if err != nil {
		stream.send(appstore.Event{"type": "error", "message": err.Error()})
		return
	}

	total := 0
	countries := make([]string, 0, len(result.Countries))
	for country, apps := range result.Countries {
		countries = append(countries, country)
		total += len(apps)
	}
	stream.send(map[string]interface{}{
		"type": "result",
		"data": models.TopChartsResponse{
			TotalApps:        total,
			UniqueApps:       len(result.Presence),
			CountriesScraped: countries,
			Apps:             result.Presence,
		},
	})
}

func (s *Server) handleReddit(w http.ResponseWriter, r *http.Request) {
	var req models.RedditRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	result := s.deps.Reddit.Crawl(r.Context(), reddit.CrawlParams{
		Keywords:           req.Keywords,
		Subreddits:         req.Subreddits,
		MaxPosts:           req.MaxPosts,
		MaxCommentsPerPost: req.MaxCommentsPerPost,
		TimeFilter:         req.TimeFilter,
		Sort:               req.Sort,
	})
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleDeepDive(w http.ResponseWriter, r *http.Request) {
	var req models.DeepDiveRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	result := s.deps.Reddit.DeepDive(r.Context(), reddit.DeepDiveParams{
		Topics:             req.SearchTopics,
		Communities:        req.Subreddits,
		TimeFilter:         req.TimeFilter,
		MaxPostsPerCombo:   req.MaxPostsPerCombo,
		MaxCommentsPerPost: req.MaxCommentsPerPost,
		Validate:           boolOr(req.ValidateSubreddits, true),
		Adaptive:           boolOr(req.UseAdaptiveThresholds, true),
	})
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleValidateSubreddits(w http.ResponseWriter, r *http.Request) {
	var req models.ValidateSubredditsRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	validation, _ := s.deps.Reddit.ValidateCommunities(r.Context(), req.Subreddits)
	respondJSON(w, http.StatusOK, validation)
}

func (s *Server) handleWebsite(w http.ResponseWriter, r *http.Request) {
	var req models.WebsiteRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	if err := security.ValidateOutboundURL(req.URL); err != nil {
		respondError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	result, err := s.deps.Website.Extract(r.Context(), website.Params{
		URL:             req.URL,
		MaxPages:        req.MaxPages,
		IncludeSubpages: boolOr(req.IncludeSubpages, true),
		ExtractPricing:  boolOr(req.ExtractPricing, true),
		ExtractFeatures: boolOr(req.ExtractFeatures, true),
	})
	if err != nil {
		if errors.Is(err, security.ErrPrivateAddress) || errors.Is(err, security.ErrUnsupportedScheme) {
			respondError(w, http.StatusBadRequest, err.Error(), nil)
			return
		}
		respondError(w, http.StatusBadGateway, "website extraction failed", nil)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleJobSubmit(w http.ResponseWriter, r *http.Request) {
	var req models.BatchReviewsRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	requests := req.Requests
	run := func(ctx context.Context, report jobs.Report) (interface{}, error) {
		responses := make([]models.ReviewsResponse, 0, len(requests))
		for i, rr := range requests {
			result, err := s.deps.Harvester.Harvest(ctx, pipeline.Params{
				AppID:       rr.AppID,
				Country:     rr.Country,
				MaxReviews:  rr.MaxReviews,
				Rating:      browser.RatingRange{Min: rr.MinRating, Max: rr.MaxRating},
				MultiLocale: rr.MultiCountry,
				Stealth:     s.cfg.Stealth,
			})
			if err != nil {
				if ctx.Err() != nil {
					return responses, ctx.Err()
				}
				logging.Warn().Err(err).Str("app_id", rr.AppID).Msg("batch request failed")
				report(float64(i+1)/float64(len(requests)), map[string]interface{}{
					"type":   "request_failed",
					"app_id": rr.AppID,
					"error":  err.Error(),
				})
				continue
			}
			responses = append(responses, models.ReviewsResponse{
				AppID:   rr.AppID,
				Country: countryOr(rr.Country),
				Reviews: result.Reviews,
				Stats:   result.Stats,
			})
			report(float64(i+1)/float64(len(requests)), map[string]interface{}{
				"type":    "request_complete",
				"app_id":  rr.AppID,
				"reviews": len(result.Reviews),
			})
		}
		return responses, nil
	}

	id, err := s.deps.Jobs.Submit("reviews", req, run)
	if err != nil {
		if errors.Is(err, jobs.ErrQueueFull) {
			respondError(w, http.StatusServiceUnavailable, "job queue is full", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "job submission failed", nil)
		return
	}
	respondJSON(w, http.StatusAccepted, models.JobSubmitResponse{JobID: id})
}

func (s *Server) handleJobGet(w http.ResponseWriter, r *http.Request) {
	job, err := s.deps.Jobs.Get(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusNotFound, "job not found", nil)
		return
	}
	respondJSON(w, http.StatusOK, job)
}

func (s *Server) handleJobCancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.deps.Jobs.Cancel(id); err != nil {
		switch {
		case errors.Is(err, jobs.ErrNotFound):
			respondError(w, http.StatusNotFound, "job not found", nil)
		case errors.Is(err, jobs.ErrTerminal):
			respondError(w, http.StatusConflict, "job already finished", nil)
		default:
			respondError(w, http.StatusInternalServerError, "job cancellation failed", nil)
		}
		return
	}
	job, err := s.deps.Jobs.Get(id)
	if err != nil {
		respondError(w, http.StatusNotFound, "job not found", nil)
		return
	}
	respondJSON(w, http.StatusOK, job)
}

func (s *Server) handleJobEvents(w http.ResponseWriter, r *http.Request) {
	events, stop, err := s.deps.Jobs.Subscribe(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusNotFound, "job not found", nil)
		return
	}
	defer stop()

	stream, serr := newSSEStream(w)
	if serr != nil {
		respondError(w, http.StatusInternalServerError, serr.Error(), nil)
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			stream.send(ev)
		}
	}
}

func (s *Server) handlePalettes(w http.ResponseWriter, r *http.Request) {
	palettes, err := s.deps.Palettes.List()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "palette catalog unavailable", nil)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"palettes": palettes,
		"total":    len(palettes),
	})
}

func (s *Server) handleFontPairs(w http.ResponseWriter, r *http.Request) {
	pairs, err := s.deps.FontPairs.List()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "font-pair catalog unavailable", nil)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"font_pairs": pairs,
		"total":      len(pairs),
	})
}

// respondUpstreamError maps an app-store lookup failure to a status:
// unknown apps are the caller's mistake, everything else is upstream.
func respondUpstreamError(w http.ResponseWriter, err error) {
	if strings.Contains(err.Error(), "not found") {
		respondError(w, http.StatusNotFound, err.Error(), nil)
		return
	}
	respondError(w, http.StatusBadGateway, fmt.Sprintf("upstream fetch failed: %v", err), nil)
}

// countryOr applies the default storefront country.
func countryOr(country string) string {
	if country == "" {
		return "us"
	}
	return country
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

// stealthOf converts the request's pacing overrides, which speak in
// seconds, to the collector's durations. The server-wide baseline is
// the starting point.
func (s *Server) stealthOf(cfg *models.StealthConfig) feed.Stealth {
	stealth := s.cfg.Stealth
	if cfg == nil {
		return stealth
	}
	if cfg.BaseDelay > 0 {
		stealth.BaseDelay = time.Duration(cfg.BaseDelay * float64(time.Second))
	}
	if cfg.Randomization > 0 {
		stealth.Randomization = cfg.Randomization
	}
	if cfg.FilterCooldown > 0 {
		stealth.FilterCooldown = time.Duration(cfg.FilterCooldown * float64(time.Second))
	}
	if cfg.AutoThrottle != nil {
		stealth.AutoThrottle = *cfg.AutoThrottle
	}
	return stealth
}
