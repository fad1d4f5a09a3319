package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestParseError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		resource   string
		wantStatus int
		wantCode   string
	}{
		{"Nil error", nil, "place", http.StatusInternalServerError, InternalServerError},
		{"Record not found", gorm.ErrRecordNotFound, "place", http.StatusNotFound, ResourceNotFound},
		{"Wrapped not found", fmt.Errorf("load: %w", gorm.ErrRecordNotFound), "rating", http.StatusNotFound, ResourceNotFound},
		{"Slug duplicate", errors.New(`ERROR: duplicate key value violates unique constraint "idx_places_slug"`), "place", http.StatusConflict, PlaceSlugConflict},
		{"Translated duplicate", gorm.ErrDuplicatedKey, "favorite", http.StatusConflict, ResourceAlreadyExists},
		{"Score check", errors.New(`new row violates check constraint "chk_ratings_score"`), "rating", http.StatusBadRequest, RatingInvalidScore},
		{"Cancelled", context.Canceled, "place", http.StatusServiceUnavailable, InternalDatabaseError},
		{"Connection", errors.New("dial tcp: connection refused"), "place", http.StatusServiceUnavailable, InternalDatabaseError},
		{"Unknown", errors.New("boom"), "favorite", http.StatusInternalServerError, InternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := ParseError(tt.err, tt.resource)
			assert.Equal(t, tt.wantStatus, info.Status)
			assert.Equal(t, tt.wantCode, info.Code)
			assert.NotEmpty(t, info.Message)
		})
	}
}

func TestParseError_Messages(t *testing.T) {
	assert.Equal(t, "Place not found", ParseError(gorm.ErrRecordNotFound, "place").Message)
	assert.Equal(t, "Failed to update favorites", ParseError(errors.New("x"), "favorite").Message)
}
