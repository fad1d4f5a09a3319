package service

import (
	"context"
	"errors"

	"github.com/placedir/placedir-backend/internal/app/model"
	"github.com/placedir/placedir-backend/internal/app/repository"
	"github.com/placedir/placedir-backend/pkg/logger"
	"gorm.io/gorm"
)

// ToggleResult is the favorites set after a toggle and which way it went
type ToggleResult struct {
	Added bool              `json:"added"`
	Set   model.FavoriteSet `json:"favorites"`
}

type FavoriteService interface {
	Toggle(ctx context.Context, userID, placeID uint) (*ToggleResult, error)
	List(ctx context.Context, userID uint) ([]model.Place, error)
}

type favoriteService struct {
	favoriteRepo repository.FavoriteRepository
	placeRepo    repository.PlaceRepository
}

func NewFavoriteService(favoriteRepo repository.FavoriteRepository, placeRepo repository.PlaceRepository) FavoriteService {
	return &favoriteService{
		favoriteRepo: favoriteRepo,
		placeRepo:    placeRepo,
	}
}

func (s *favoriteService) Toggle(ctx context.Context, userID, placeID uint) (*ToggleResult, error) {
	added, placeIDs, err := s.favoriteRepo.Toggle(ctx, userID, placeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Favorite toggle for unknown place", map[string]interface{}{
				"user_id":  userID,
				"place_id": placeID,
			})
			return nil, ErrPlaceNotFound
		}
		logger.Error("Failed to toggle favorite", err, map[string]interface{}{
			"user_id":  userID,
			"place_id": placeID,
		})
		return nil, err
	}

	logger.Info("Favorite toggled", map[string]interface{}{
		"user_id":  userID,
		"place_id": placeID,
		"added":    added,
	})
	return &ToggleResult{
		Added: added,
		Set:   model.FavoriteSet{UserID: userID, PlaceIDs: placeIDs},
	}, nil
}

// List resolves the user's favorites; ids whose place is gone are skipped
func (s *favoriteService) List(ctx context.Context, userID uint) ([]model.Place, error) {
	placeIDs, err := s.favoriteRepo.ListPlaceIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.placeRepo.FindByIDs(ctx, placeIDs)
}
