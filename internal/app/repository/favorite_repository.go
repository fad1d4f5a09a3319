package repository

import (
	"context"
	"errors"

	"github.com/placedir/placedir-backend/internal/app/model"
	"github.com/placedir/placedir-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type FavoriteRepository interface {
	Toggle(ctx context.Context, userID, placeID uint) (added bool, placeIDs []uint, err error)
	ListPlaceIDs(ctx context.Context, userID uint) ([]uint, error)
}

type favoriteRepository struct {
	db *gorm.DB
}

func NewFavoriteRepository(db *gorm.DB) FavoriteRepository {
	return &favoriteRepository{db: db}
}

// Toggle removes the membership when present and adds it otherwise, in one
// transaction, and returns the resulting set. A missing place yields
// gorm.ErrRecordNotFound and changes nothing.
func (r *favoriteRepository) Toggle(ctx context.Context, userID, placeID uint) (bool, []uint, error) {
	logger.Debug("Toggling favorite in database", map[string]interface{}{
		"user_id":  userID,
		"place_id": placeID,
	})

	var added bool
	var placeIDs []uint
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Place{}).Where("id = ?", placeID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return gorm.ErrRecordNotFound
		}

		deleted := tx.Where("user_id = ? AND place_id = ?", userID, placeID).Delete(&model.Favorite{})
		if deleted.Error != nil {
			return deleted.Error
		}
		if deleted.RowsAffected == 0 {
			fav := model.Favorite{UserID: userID, PlaceID: placeID}
			inserted := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&fav)
			if inserted.Error != nil {
				return inserted.Error
			}
			added = inserted.RowsAffected > 0
			if !added {
				// 동시 토글이 먼저 추가함: 이 토글은 제거로 처리
				if err := tx.Where("user_id = ? AND place_id = ?", userID, placeID).Delete(&model.Favorite{}).Error; err != nil {
					return err
				}
			}
		}

		return tx.Model(&model.Favorite{}).
			Where("user_id = ?", userID).
			Order("created_at ASC").
			Order("id ASC").
			Pluck("place_id", &placeIDs).Error
	})
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("Failed to toggle favorite in database", err, map[string]interface{}{
				"user_id":  userID,
				"place_id": placeID,
			})
		}
		return false, nil, err
	}

	logger.Debug("Favorite toggled in database", map[string]interface{}{
		"user_id":  userID,
		"place_id": placeID,
		"added":    added,
	})
	if placeIDs == nil {
		placeIDs = []uint{}
	}
	return added, placeIDs, nil
}

func (r *favoriteRepository) ListPlaceIDs(ctx context.Context, userID uint) ([]uint, error) {
	placeIDs := []uint{}
	err := r.db.WithContext(ctx).
		Model(&model.Favorite{}).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Order("id ASC").
		Pluck("place_id", &placeIDs).Error
	if err != nil {
		logger.Error("Failed to list favorites", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}
	return placeIDs, nil
}
