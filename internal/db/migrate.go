package db

import (
	"github.com/placedir/placedir-backend/internal/app/model"
	"github.com/placedir/placedir-backend/pkg/logger"
	"gorm.io/gorm"
)

// Models lists every table owned by the directory
func Models() []interface{} {
	return []interface{}{
		&model.User{},
		&model.Place{},
		&model.Rating{},
		&model.Favorite{},
	}
}

// Migrate runs database migrations
func Migrate(database *gorm.DB) error {
	logger.Info("Running database migrations...")

	models := Models()
	if err := database.AutoMigrate(models...); err != nil {
		logger.Error("Failed to run migrations", err)
		return err
	}

	if database.Dialector.Name() == "postgres" {
		if err := createPostgresIndexes(database); err != nil {
			logger.Error("Failed to create postgres indexes", err)
			return err
		}
	}

	logger.Info("Database migrations completed successfully", map[string]interface{}{
		"models_count": len(models),
	})
	return nil
}

// createPostgresIndexes adds indexes gorm tags cannot express
func createPostgresIndexes(database *gorm.DB) error {
	statements := []string{
		`CREATE INDEX IF NOT EXISTS idx_places_tags ON places USING GIN (tags)`,
		`CREATE INDEX IF NOT EXISTS idx_places_lower_slug ON places (LOWER(slug))`,
		`DO $$ BEGIN
			ALTER TABLE ratings ADD CONSTRAINT chk_ratings_score CHECK (score BETWEEN 1 AND 5);
		EXCEPTION WHEN duplicate_object THEN NULL; END $$`,
	}
	for _, stmt := range statements {
		if err := database.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
