package repository

import (
	"context"
	"errors"

	"github.com/placedir/placedir-backend/internal/app/model"
	"github.com/placedir/placedir-backend/pkg/logger"
	"gorm.io/gorm"
)

type RatingRepository interface {
	Create(ctx context.Context, rating *model.Rating) error
	FindByPlaceID(ctx context.Context, placeID uint) ([]model.Rating, error)
	FindByPlaceIDs(ctx context.Context, placeIDs []uint) (map[uint][]model.Rating, error)
}

type ratingRepository struct {
	db *gorm.DB
}

func NewRatingRepository(db *gorm.DB) RatingRepository {
	return &ratingRepository{db: db}
}

// Create inserts the rating only if its place exists, in one transaction.
// A missing place yields gorm.ErrRecordNotFound.
func (r *ratingRepository) Create(ctx context.Context, rating *model.Rating) error {
	logger.Debug("Creating rating in database", map[string]interface{}{
		"place_id": rating.PlaceID,
		"rater_id": rating.RaterID,
		"score":    rating.Score,
	})

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Place{}).Where("id = ?", rating.PlaceID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Create(rating).Error
	})
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("Failed to create rating in database", err, map[string]interface{}{
				"place_id": rating.PlaceID,
				"rater_id": rating.RaterID,
			})
		}
		return err
	}

	logger.Debug("Rating created in database", map[string]interface{}{
		"rating_id": rating.ID,
		"place_id":  rating.PlaceID,
	})
	return nil
}

// FindByPlaceID returns ratings newest first
func (r *ratingRepository) FindByPlaceID(ctx context.Context, placeID uint) ([]model.Rating, error) {
	ratings := []model.Rating{}
	err := r.db.WithContext(ctx).
		Where("place_id = ?", placeID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&ratings).Error
	if err != nil {
		logger.Error("Failed to find ratings by place ID", err, map[string]interface{}{
			"place_id": placeID,
		})
		return nil, err
	}
	return ratings, nil
}

func (r *ratingRepository) FindByPlaceIDs(ctx context.Context, placeIDs []uint) (map[uint][]model.Rating, error) {
	grouped := make(map[uint][]model.Rating, len(placeIDs))
	if len(placeIDs) == 0 {
		return grouped, nil
	}

	var ratings []model.Rating
	err := r.db.WithContext(ctx).
		Where("place_id IN ?", placeIDs).
		Order("created_at DESC").
		Order("id DESC").
		Find(&ratings).Error
	if err != nil {
		logger.Error("Failed to find ratings by place IDs", err, map[string]interface{}{
			"count": len(placeIDs),
		})
		return nil, err
	}

	for _, rating := range ratings {
		grouped[rating.PlaceID] = append(grouped[rating.PlaceID], rating)
	}
	return grouped, nil
}
