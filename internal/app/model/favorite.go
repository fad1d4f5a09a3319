package model

import (
	"time"
)

// Favorite is one membership of a user's favorites set
type Favorite struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_favorites_user_place" json:"user_id"`
	PlaceID   uint      `gorm:"not null;uniqueIndex:idx_favorites_user_place;index" json:"place_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (Favorite) TableName() string {
	return "favorites"
}

// FavoriteSet is the resolved favorites of one user
type FavoriteSet struct {
	UserID   uint   `json:"user_id"`
	PlaceIDs []uint `json:"place_ids"`
}

func (s FavoriteSet) Contains(placeID uint) bool {
	for _, id := range s.PlaceIDs {
		if id == placeID {
			return true
		}
	}
	return false
}
