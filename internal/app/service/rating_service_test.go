package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRatingService_AddRating(t *testing.T) {
	f := setupDirectoryTest(t)
	ctx := context.Background()

	place := f.mustCreate(t, 1, draft("Zuni", -122.42, 37.77))

	tests := []struct {
		name      string
		placeID   uint
		text      string
		score     int
		wantErr   error
		wantField string
	}{
		{name: "Valid rating", placeID: place.ID, text: "  Great  ", score: 5},
		{name: "Lowest score", placeID: place.ID, text: "Meh", score: 1},
		{name: "Score too high", placeID: place.ID, text: "Wow", score: 6, wantField: "score"},
		{name: "Score zero", placeID: place.ID, text: "Bad", score: 0, wantField: "score"},
		{name: "Blank text", placeID: place.ID, text: "   ", score: 3, wantField: "text"},
		{name: "Unknown place", placeID: 9999, text: "Where?", score: 3, wantErr: ErrRatingPlaceNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rating, err := f.ratings.AddRating(ctx, 7, tt.placeID, tt.text, tt.score)

			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, rating)
			case tt.wantField != "":
				var verr *ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Contains(t, verr.Fields, tt.wantField)
			default:
				require.NoError(t, err)
				assert.NotZero(t, rating.ID)
				assert.Equal(t, uint(7), rating.RaterID)
			}
		})
	}

	ratings, err := f.ratings.ListRatings(ctx, place.ID)
	require.NoError(t, err)
	require.Len(t, ratings, 2)
	assert.Equal(t, "Great", ratings[1].Text)
}

func TestRatingService_ListRatingsUnknownPlace(t *testing.T) {
	f := setupDirectoryTest(t)

	_, err := f.ratings.ListRatings(context.Background(), 9999)
	assert.ErrorIs(t, err, ErrPlaceNotFound)
}
