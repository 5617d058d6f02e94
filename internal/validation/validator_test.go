// Appscope - Mobile App Market Intelligence and Review Harvesting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/appscope

package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/appscope/internal/models"
)

func TestValidateStruct_ReviewsRequest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		req     models.ReviewsRequest
		wantErr bool
	}{
		{
			name:    "valid minimal",
			req:     models.ReviewsRequest{AppID: "100001", MaxReviews: 100},
			wantErr: false,
		},
		{
			name:    "valid with country and ratings",
			req:     models.ReviewsRequest{AppID: "100001", Country: "us", MaxReviews: 500, MinRating: intPtr(2), MaxRating: intPtr(5)},
			wantErr: false,
		},
		{
			name:    "missing app id",
			req:     models.ReviewsRequest{MaxReviews: 100},
			wantErr: true,
		},
		{
			name:    "non-numeric app id",
			req:     models.ReviewsRequest{AppID: "abc123", MaxReviews: 100},
			wantErr: true,
		},
		{
			name:    "max reviews over cap",
			req:     models.ReviewsRequest{AppID: "100001", MaxReviews: 10001},
			wantErr: true,
		},
		{
			name:    "zero max reviews",
			req:     models.ReviewsRequest{AppID: "100001", MaxReviews: 0},
			wantErr: true,
		},
		{
			name:    "bad country length",
			req:     models.ReviewsRequest{AppID: "100001", Country: "usa", MaxReviews: 10},
			wantErr: true,
		},
		{
			name:    "rating out of range",
			req:     models.ReviewsRequest{AppID: "100001", MaxReviews: 10, MinRating: intPtr(6)},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(&tt.req)
			if tt.wantErr {
				require.NotNil(t, err)
				assert.NotEmpty(t, err.Message())
			} else {
				assert.Nil(t, err)
			}
		})
	}
}

func TestValidateStruct_DeepDiveRequest(t *testing.T) {
	t.Parallel()

	valid := models.DeepDiveRequest{
		SearchTopics: []string{"habit tracking"},
		Subreddits:   []string{"productivity"},
		TimeFilter:   "month",
	}
	assert.Nil(t, ValidateStruct(&valid))

	tooManyTopics := valid
	tooManyTopics.SearchTopics = make([]string, 11)
	for i := range tooManyTopics.SearchTopics {
		tooManyTopics.SearchTopics[i] = "t"
	}
	assert.NotNil(t, ValidateStruct(&tooManyTopics))

	badFilter := valid
	badFilter.TimeFilter = "decade"
	assert.NotNil(t, ValidateStruct(&badFilter))

	noSubreddits := valid
	noSubreddits.Subreddits = nil
	assert.NotNil(t, ValidateStruct(&noSubreddits))
}

func TestValidateStruct_StreamReviewsRequest(t *testing.T) {
	t.Parallel()

	valid := models.StreamReviewsRequest{
		AppID: "100001",
		Filters: []models.ReviewFilter{
			{Sort: "mostRecent", Target: 500},
		},
	}
	assert.Nil(t, ValidateStruct(&valid))

	badSort := valid
	badSort.Filters = []models.ReviewFilter{{Sort: "oldest", Target: 100}}
	assert.NotNil(t, ValidateStruct(&badSort))

	overTarget := valid
	overTarget.Filters = []models.ReviewFilter{{Sort: "mostRecent", Target: 2001}}
	assert.NotNil(t, ValidateStruct(&overTarget))
}

func TestValidateStruct_MultipleErrors(t *testing.T) {
	t.Parallel()

	req := models.ReviewsRequest{AppID: "abc", Country: "toolong", MaxReviews: 0}
	err := ValidateStruct(&req)
	require.NotNil(t, err)
	assert.GreaterOrEqual(t, len(err.Fields()), 2)
	assert.Contains(t, err.Message(), ";")
}

func TestTranslateErrorMessages(t *testing.T) {
	t.Parallel()

	req := models.WebsiteRequest{URL: "not a url"}
	err := ValidateStruct(&req)
	require.NotNil(t, err)
	assert.Contains(t, err.Message(), "must be a valid URL")
}

func intPtr(v int) *int { return &v }
