package service

import (
	"context"
	"errors"
	"strings"

	"github.com/placedir/placedir-backend/internal/app/model"
	"github.com/placedir/placedir-backend/internal/app/repository"
	"github.com/placedir/placedir-backend/internal/cache"
	"github.com/placedir/placedir-backend/pkg/logger"
	"gorm.io/gorm"
)

type RatingService interface {
	AddRating(ctx context.Context, raterID, placeID uint, text string, score int) (*model.Rating, error)
	ListRatings(ctx context.Context, placeID uint) ([]model.Rating, error)
}

type ratingService struct {
	ratingRepo repository.RatingRepository
	placeRepo  repository.PlaceRepository
	aggCache   *cache.AggregateCache
}

func NewRatingService(
	ratingRepo repository.RatingRepository,
	placeRepo repository.PlaceRepository,
	aggCache *cache.AggregateCache,
) RatingService {
	return &ratingService{
		ratingRepo: ratingRepo,
		placeRepo:  placeRepo,
		aggCache:   aggCache,
	}
}

func (s *ratingService) AddRating(ctx context.Context, raterID, placeID uint, text string, score int) (*model.Rating, error) {
	verr := &ValidationError{}
	text = strings.TrimSpace(text)
	if text == "" {
		verr.add("text", "must not be empty")
	}
	if score < model.MinScore || score > model.MaxScore {
		verr.add("score", "must be between 1 and 5")
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	rating := &model.Rating{
		PlaceID: placeID,
		RaterID: raterID,
		Text:    text,
		Score:   score,
	}
	if err := s.ratingRepo.Create(ctx, rating); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Rating for unknown place rejected", map[string]interface{}{
				"place_id": placeID,
				"rater_id": raterID,
			})
			return nil, ErrRatingPlaceNotFound
		}
		logger.Error("Failed to add rating", err, map[string]interface{}{
			"place_id": placeID,
		})
		return nil, err
	}

	s.aggCache.Invalidate(ctx)

	logger.Info("Rating added", map[string]interface{}{
		"rating_id": rating.ID,
		"place_id":  placeID,
		"score":     score,
	})
	return rating, nil
}

// ListRatings returns a place's ratings newest first
func (s *ratingService) ListRatings(ctx context.Context, placeID uint) ([]model.Rating, error) {
	if _, err := s.placeRepo.FindByID(ctx, placeID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlaceNotFound
		}
		return nil, err
	}
	return s.ratingRepo.FindByPlaceID(ctx, placeID)
}
