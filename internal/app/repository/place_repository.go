package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/placedir/placedir-backend/internal/aggregate"
	"github.com/placedir/placedir-backend/internal/app/model"
	"github.com/placedir/placedir-backend/pkg/logger"
	"gorm.io/gorm"
)

// Snapshot is a consistent read of every place and rating
type Snapshot struct {
	Places  []model.Place
	Ratings []model.Rating
}

type PlaceRepository interface {
	Create(ctx context.Context, place *model.Place) error
	UpdateFields(ctx context.Context, id uint, version int, fields map[string]interface{}) (int64, error)
	FindByID(ctx context.Context, id uint) (*model.Place, error)
	FindBySlug(ctx context.Context, slug string) (*model.Place, error)
	FindByIDs(ctx context.Context, ids []uint) ([]model.Place, error)
	List(ctx context.Context, offset, limit int) ([]model.Place, int64, error)
	FindAll(ctx context.Context) ([]model.Place, error)
	FindByTag(ctx context.Context, tag string) ([]model.Place, error)
	SlugCandidates(ctx context.Context, base string, excludeID uint) ([]string, error)
	Snapshot(ctx context.Context) (*Snapshot, error)
}

type placeRepository struct {
	db *gorm.DB
}

func NewPlaceRepository(db *gorm.DB) PlaceRepository {
	return &placeRepository{db: db}
}

// IsDuplicateKey reports a unique constraint violation. TranslateError covers
// postgres and sqlite; the string check catches drivers it does not know.
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

func (r *placeRepository) Create(ctx context.Context, place *model.Place) error {
	logger.Debug("Creating place in database", map[string]interface{}{
		"name":     place.Name,
		"slug":     place.Slug,
		"owner_id": place.OwnerID,
	})

	if place.Version == 0 {
		place.Version = 1
	}
	if place.Tags == nil {
		place.Tags = model.TagList{}
	}

	if err := r.db.WithContext(ctx).Create(place).Error; err != nil {
		if IsDuplicateKey(err) {
			logger.Debug("Place slug already taken", map[string]interface{}{
				"slug": place.Slug,
			})
			return gorm.ErrDuplicatedKey
		}
		logger.Error("Failed to create place in database", err, map[string]interface{}{
			"name": place.Name,
			"slug": place.Slug,
		})
		return err
	}

	logger.Debug("Place created in database", map[string]interface{}{
		"place_id": place.ID,
		"slug":     place.Slug,
	})
	return nil
}

// UpdateFields writes only the given columns when the stored version still
// matches, bumping it by one. Zero rows affected means the version moved or
// the place is gone.
func (r *placeRepository) UpdateFields(ctx context.Context, id uint, version int, fields map[string]interface{}) (int64, error) {
	logger.Debug("Updating place fields in database", map[string]interface{}{
		"place_id": id,
		"version":  version,
		"fields":   len(fields),
	})

	updates := make(map[string]interface{}, len(fields)+2)
	for k, v := range fields {
		updates[k] = v
	}
	updates["version"] = gorm.Expr("version + 1")
	updates["updated_at"] = time.Now()

	result := r.db.WithContext(ctx).
		Model(&model.Place{}).
		Where("id = ? AND version = ?", id, version).
		Updates(updates)
	if result.Error != nil {
		if IsDuplicateKey(result.Error) {
			return 0, gorm.ErrDuplicatedKey
		}
		logger.Error("Failed to update place in database", result.Error, map[string]interface{}{
			"place_id": id,
		})
		return 0, result.Error
	}

	logger.Debug("Place fields updated in database", map[string]interface{}{
		"place_id":      id,
		"rows_affected": result.RowsAffected,
	})
	return result.RowsAffected, nil
}

func (r *placeRepository) FindByID(ctx context.Context, id uint) (*model.Place, error) {
	var place model.Place
	if err := r.db.WithContext(ctx).First(&place, id).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("Failed to find place by ID in database", err, map[string]interface{}{
				"place_id": id,
			})
		}
		return nil, err
	}
	return &place, nil
}

func (r *placeRepository) FindBySlug(ctx context.Context, slug string) (*model.Place, error) {
	logger.Debug("Finding place by slug in database", map[string]interface{}{
		"slug": slug,
	})

	var place model.Place
	err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&place).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("Failed to find place by slug in database", err, map[string]interface{}{
				"slug": slug,
			})
		}
		return nil, err
	}
	return &place, nil
}

// FindByIDs loads places in the order of ids; missing ids are skipped
func (r *placeRepository) FindByIDs(ctx context.Context, ids []uint) ([]model.Place, error) {
	if len(ids) == 0 {
		return []model.Place{}, nil
	}

	var found []model.Place
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&found).Error; err != nil {
		logger.Error("Failed to find places by IDs in database", err, map[string]interface{}{
			"count": len(ids),
		})
		return nil, err
	}

	byID := make(map[uint]model.Place, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	places := make([]model.Place, 0, len(found))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			places = append(places, p)
		}
	}
	return places, nil
}

// List returns one page, newest first, and the total number of places
func (r *placeRepository) List(ctx context.Context, offset, limit int) ([]model.Place, int64, error) {
	logger.Debug("Listing places", map[string]interface{}{
		"offset": offset,
		"limit":  limit,
	})

	var total int64
	if err := r.db.WithContext(ctx).Model(&model.Place{}).Count(&total).Error; err != nil {
		logger.Error("Failed to count places", err)
		return nil, 0, err
	}

	places := []model.Place{}
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&places).Error
	if err != nil {
		logger.Error("Failed to list places", err, map[string]interface{}{
			"offset": offset,
			"limit":  limit,
		})
		return nil, 0, err
	}
	return places, total, nil
}

func (r *placeRepository) FindAll(ctx context.Context) ([]model.Place, error) {
	places := []model.Place{}
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&places).Error; err != nil {
		logger.Error("Failed to find all places", err)
		return nil, err
	}
	return places, nil
}

// FindByTag uses the array operator on postgres and filters in memory
// elsewhere, where tags are stored as an array literal.
func (r *placeRepository) FindByTag(ctx context.Context, tag string) ([]model.Place, error) {
	logger.Debug("Finding places by tag", map[string]interface{}{
		"tag": tag,
	})

	query := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC")
	if r.db.Dialector.Name() == "postgres" {
		if tag == "" {
			query = query.Where("cardinality(tags) > 0")
		} else {
			query = query.Where("? = ANY(tags)", tag)
		}
		places := []model.Place{}
		if err := query.Find(&places).Error; err != nil {
			logger.Error("Failed to find places by tag", err, map[string]interface{}{
				"tag": tag,
			})
			return nil, err
		}
		return places, nil
	}

	var all []model.Place
	if err := query.Find(&all).Error; err != nil {
		logger.Error("Failed to find places by tag", err, map[string]interface{}{
			"tag": tag,
		})
		return nil, err
	}
	return aggregate.FilterByTag(all, tag), nil
}

// SlugCandidates returns stored slugs equal to base or starting with "base-",
// case-insensitively, excluding the place with excludeID.
func (r *placeRepository) SlugCandidates(ctx context.Context, base string, excludeID uint) ([]string, error) {
	lower := strings.ToLower(base)
	query := r.db.WithContext(ctx).
		Model(&model.Place{}).
		Where("LOWER(slug) = ? OR LOWER(slug) LIKE ?", lower, lower+"-%")
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}

	var slugs []string
	if err := query.Pluck("slug", &slugs).Error; err != nil {
		logger.Error("Failed to load slug candidates", err, map[string]interface{}{
			"base": base,
		})
		return nil, err
	}
	return slugs, nil
}

// Snapshot reads places and ratings inside one transaction. On postgres the
// transaction is repeatable read so both statements see the same data.
func (r *placeRepository) Snapshot(ctx context.Context) (*Snapshot, error) {
	var opts []*sql.TxOptions
	if r.db.Dialector.Name() == "postgres" {
		opts = append(opts, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	}

	snap := &Snapshot{Places: []model.Place{}, Ratings: []model.Rating{}}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Order("id ASC").Find(&snap.Places).Error; err != nil {
			return err
		}
		return tx.Order("id ASC").Find(&snap.Ratings).Error
	}, opts...)
	if err != nil {
		logger.Error("Failed to read directory snapshot", err)
		return nil, err
	}

	logger.Debug("Directory snapshot read", map[string]interface{}{
		"places":  len(snap.Places),
		"ratings": len(snap.Ratings),
	})
	return snap, nil
}
