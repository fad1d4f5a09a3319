package repository

import (
	"context"

	"github.com/placedir/placedir-backend/internal/app/model"
	"github.com/placedir/placedir-backend/pkg/logger"
	"gorm.io/gorm"
)

// UserRepository reads users for author and rater joins. Users are written
// by the authentication service; Create exists for seeding.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id uint) (*model.User, error)
	FindByIDs(ctx context.Context, ids []uint) (map[uint]model.User, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	logger.Debug("Creating user in database", map[string]interface{}{
		"email": user.Email,
	})

	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		logger.Error("Failed to create user in database", err, map[string]interface{}{
			"email": user.Email,
		})
		return err
	}
	return nil
}

func (r *userRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	logger.Debug("Finding user by ID in database", map[string]interface{}{
		"user_id": id,
	})

	var user model.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByIDs(ctx context.Context, ids []uint) (map[uint]model.User, error) {
	users := make(map[uint]model.User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}

	var found []model.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&found).Error; err != nil {
		logger.Error("Failed to find users by IDs in database", err, map[string]interface{}{
			"count": len(ids),
		})
		return nil, err
	}
	for _, u := range found {
		users[u.ID] = u
	}
	return users, nil
}
