package service

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/placedir/placedir-backend/config"
	"github.com/placedir/placedir-backend/internal/app/model"
	"github.com/placedir/placedir-backend/internal/app/repository"
	"github.com/placedir/placedir-backend/internal/cache"
	"github.com/placedir/placedir-backend/internal/index"
	"github.com/placedir/placedir-backend/internal/metrics"
	"github.com/placedir/placedir-backend/pkg/logger"
	"github.com/placedir/placedir-backend/pkg/slug"
	"github.com/placedir/placedir-backend/pkg/util"
	"gorm.io/gorm"
)

// maxSlugAttempts bounds reassignment after a unique index collision
const maxSlugAttempts = 3

// PlaceDraft is the input for a new place
type PlaceDraft struct {
	Name        string
	Description string
	Tags        []string
	Longitude   *float64
	Latitude    *float64
	Address     string
	PhotoRef    string
}

// PlacePatch carries only the fields to change. Location changes need both
// coordinates. ExpectedVersion, when set, must match the stored version.
type PlacePatch struct {
	Name            *string
	Description     *string
	Tags            *[]string
	Longitude       *float64
	Latitude        *float64
	Address         *string
	PhotoRef        *string
	ExpectedVersion *int
}

// FetchOptions selects the explicit joins of a place read
type FetchOptions struct {
	WithRatings bool
	WithAuthor  bool
}

type PlacePage struct {
	Places   []model.Place `json:"places"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
	LastPage int           `json:"last_page"`
	Total    int64         `json:"total"`
}

// NearQuery uses the configured defaults for a nil or zero MaxDistanceMeters
// and Limit
type NearQuery struct {
	Longitude         float64
	Latitude          float64
	MaxDistanceMeters *float64
	Limit             *int
}

type SearchHit struct {
	Place model.Place `json:"place"`
	Score float64     `json:"score"`
}

type PlaceService interface {
	CreatePlace(ctx context.Context, ownerID uint, draft PlaceDraft) (*model.Place, error)
	UpdatePlace(ctx context.Context, userID, placeID uint, patch PlacePatch) (*model.Place, error)
	GetPlaceBySlug(ctx context.Context, slug string, opts FetchOptions) (*model.Place, error)
	GetPlaceByID(ctx context.Context, id uint, opts FetchOptions) (*model.Place, error)
	ListPlaces(ctx context.Context, page, pageSize int) (*PlacePage, error)
	SearchPlaces(ctx context.Context, query string, limit int) ([]SearchHit, error)
	NearPlaces(ctx context.Context, q NearQuery) ([]model.PlaceSummary, error)
	ListPlacesByTag(ctx context.Context, tag string) ([]model.Place, error)
	RebuildIndexes(ctx context.Context) error
}

type placeService struct {
	placeRepo  repository.PlaceRepository
	ratingRepo repository.RatingRepository
	userRepo   repository.UserRepository
	geo        *index.GeoIndex
	text       *index.TextIndex
	aggCache   *cache.AggregateCache
	cfg        config.DirectoryConfig

	rebuildMu sync.Mutex
	indexMu   sync.Mutex
	// touched collects places indexed while a rebuild is loading; nil otherwise
	touched map[uint]struct{}
}

func NewPlaceService(
	placeRepo repository.PlaceRepository,
	ratingRepo repository.RatingRepository,
	userRepo repository.UserRepository,
	geo *index.GeoIndex,
	text *index.TextIndex,
	aggCache *cache.AggregateCache,
	cfg config.DirectoryConfig,
) PlaceService {
	return &placeService{
		placeRepo:  placeRepo,
		ratingRepo: ratingRepo,
		userRepo:   userRepo,
		geo:        geo,
		text:       text,
		aggCache:   aggCache,
		cfg:        cfg,
	}
}

func validateDraft(d PlaceDraft) error {
	verr := &ValidationError{}
	if strings.TrimSpace(d.Name) == "" {
		verr.add("name", "must not be empty")
	}
	if strings.TrimSpace(d.Address) == "" {
		verr.add("address", "must not be empty")
	}
	switch {
	case d.Longitude == nil || d.Latitude == nil:
		verr.add("location", "longitude and latitude are required")
	case !util.ValidCoordinates(*d.Longitude, *d.Latitude):
		verr.add("location", "coordinates must be finite, longitude in [-180,180] and latitude in [-90,90]")
	}
	return verr.orNil()
}

func validatePatch(p PlacePatch) error {
	verr := &ValidationError{}
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		verr.add("name", "must not be empty")
	}
	if p.Address != nil && strings.TrimSpace(*p.Address) == "" {
		verr.add("address", "must not be empty")
	}
	switch {
	case (p.Longitude == nil) != (p.Latitude == nil):
		verr.add("location", "longitude and latitude must be updated together")
	case p.Longitude != nil && !util.ValidCoordinates(*p.Longitude, *p.Latitude):
		verr.add("location", "coordinates must be finite, longitude in [-180,180] and latitude in [-90,90]")
	}
	if p.ExpectedVersion != nil && *p.ExpectedVersion < 1 {
		verr.add("expected_version", "must be positive")
	}
	return verr.orNil()
}

func (s *placeService) slugLookup(excludeID uint) slug.LookupFunc {
	return func(ctx context.Context, base string) ([]string, error) {
		return s.placeRepo.SlugCandidates(ctx, base, excludeID)
	}
}

func (s *placeService) CreatePlace(ctx context.Context, ownerID uint, draft PlaceDraft) (*model.Place, error) {
	logger.Debug("Creating place", map[string]interface{}{
		"owner_id": ownerID,
		"name":     draft.Name,
	})

	if err := validateDraft(draft); err != nil {
		logger.Warn("Place draft rejected", map[string]interface{}{
			"owner_id": ownerID,
			"error":    err.Error(),
		})
		return nil, err
	}

	place := &model.Place{
		OwnerID:     ownerID,
		Name:        strings.TrimSpace(draft.Name),
		Description: strings.TrimSpace(draft.Description),
		Tags:        model.NormalizeTags(draft.Tags),
		Longitude:   *draft.Longitude,
		Latitude:    *draft.Latitude,
		Address:     strings.TrimSpace(draft.Address),
		PhotoRef:    strings.TrimSpace(draft.PhotoRef),
	}

	for attempt := 1; ; attempt++ {
		assigned, err := slug.Assign(ctx, place.Name, s.slugLookup(0))
		if err != nil {
			logger.Error("Failed to assign slug", err, map[string]interface{}{
				"name": place.Name,
			})
			return nil, err
		}
		place.ID = 0
		place.Slug = assigned

		err = s.placeRepo.Create(ctx, place)
		if err == nil {
			break
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			logger.Error("Failed to create place", err, map[string]interface{}{
				"owner_id": ownerID,
			})
			return nil, err
		}
		if attempt == maxSlugAttempts {
			logger.Warn("Giving up on slug assignment", map[string]interface{}{
				"name":     place.Name,
				"attempts": attempt,
			})
			return nil, ErrSlugConflict
		}
		metrics.SlugRetries.Inc()
		logger.Warn("Slug collided, reassigning", map[string]interface{}{
			"slug":    assigned,
			"attempt": attempt,
		})
	}

	s.indexPlace(place)
	s.aggCache.Invalidate(ctx)

	logger.Info("Place created", map[string]interface{}{
		"place_id": place.ID,
		"slug":     place.Slug,
		"owner_id": ownerID,
	})
	return place, nil
}

func (s *placeService) UpdatePlace(ctx context.Context, userID, placeID uint, patch PlacePatch) (*model.Place, error) {
	logger.Debug("Updating place", map[string]interface{}{
		"place_id": placeID,
		"user_id":  userID,
	})

	if err := validatePatch(patch); err != nil {
		return nil, err
	}

	place, err := s.loadPlace(ctx, placeID)
	if err != nil {
		return nil, err
	}
	if place.OwnerID != userID {
		logger.Warn("Place update denied", map[string]interface{}{
			"place_id": placeID,
			"owner_id": place.OwnerID,
			"user_id":  userID,
		})
		return nil, ErrForbidden
	}

	version := place.Version
	if patch.ExpectedVersion != nil {
		if *patch.ExpectedVersion != place.Version {
			return nil, ErrPlaceVersionConflict
		}
		version = *patch.ExpectedVersion
	}

	fields := make(map[string]interface{})
	renamed := false
	if patch.Name != nil {
		if name := strings.TrimSpace(*patch.Name); name != place.Name {
			fields["name"] = name
			renamed = true
		}
	}
	if patch.Description != nil {
		fields["description"] = strings.TrimSpace(*patch.Description)
	}
	if patch.Tags != nil {
		fields["tags"] = model.NormalizeTags(*patch.Tags)
	}
	if patch.Longitude != nil {
		fields["longitude"] = *patch.Longitude
		fields["latitude"] = *patch.Latitude
	}
	if patch.Address != nil {
		fields["address"] = strings.TrimSpace(*patch.Address)
	}
	if patch.PhotoRef != nil {
		fields["photo_ref"] = strings.TrimSpace(*patch.PhotoRef)
	}

	if len(fields) == 0 {
		return place, nil
	}

	for attempt := 1; ; attempt++ {
		if renamed {
			newSlug, err := s.renameSlug(ctx, place, fields["name"].(string))
			if err != nil {
				return nil, err
			}
			if newSlug == place.Slug {
				delete(fields, "slug")
			} else {
				fields["slug"] = newSlug
			}
		}

		rows, err := s.placeRepo.UpdateFields(ctx, place.ID, version, fields)
		if err == nil {
			if rows == 0 {
				return nil, s.lostUpdate(ctx, place.ID)
			}
			break
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) || !renamed {
			logger.Error("Failed to update place", err, map[string]interface{}{
				"place_id": place.ID,
			})
			return nil, err
		}
		if attempt == maxSlugAttempts {
			return nil, ErrSlugConflict
		}
		metrics.SlugRetries.Inc()
		logger.Warn("Slug collided on rename, reassigning", map[string]interface{}{
			"place_id": place.ID,
			"attempt":  attempt,
		})
	}

	updated, err := s.loadPlace(ctx, place.ID)
	if err != nil {
		return nil, err
	}

	s.indexPlace(updated)
	s.aggCache.Invalidate(ctx)

	logger.Info("Place updated", map[string]interface{}{
		"place_id": updated.ID,
		"slug":     updated.Slug,
		"version":  updated.Version,
		"fields":   len(fields),
	})
	return updated, nil
}

// renameSlug keeps the current slug when it already fits the new name
func (s *placeService) renameSlug(ctx context.Context, place *model.Place, name string) (string, error) {
	if slug.Pattern(slug.Normalize(name)).MatchString(place.Slug) {
		return place.Slug, nil
	}
	assigned, err := slug.Assign(ctx, name, s.slugLookup(place.ID))
	if err != nil {
		logger.Error("Failed to assign slug", err, map[string]interface{}{
			"place_id": place.ID,
		})
		return "", err
	}
	return assigned, nil
}

// lostUpdate tells a deleted place from a concurrent modification
func (s *placeService) lostUpdate(ctx context.Context, id uint) error {
	if _, err := s.loadPlace(ctx, id); err != nil {
		return err
	}
	logger.Warn("Place version conflict", map[string]interface{}{
		"place_id": id,
	})
	return ErrPlaceVersionConflict
}

func (s *placeService) loadPlace(ctx context.Context, id uint) (*model.Place, error) {
	place, err := s.placeRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlaceNotFound
		}
		return nil, err
	}
	return place, nil
}

// indexPlace runs after the write committed
func (s *placeService) indexPlace(place *model.Place) {
	s.indexMu.Lock()
	defer s.indexMu.Unlock()

	s.applyIndex(place)
	if s.touched != nil {
		s.touched[place.ID] = struct{}{}
	}
	s.reportIndexSize()
}

func (s *placeService) applyIndex(place *model.Place) {
	if err := s.geo.Upsert(place.ID, place.Longitude, place.Latitude); err != nil {
		logger.Error("Failed to index place location", err, map[string]interface{}{
			"place_id": place.ID,
		})
	}
	s.text.Upsert(place.ID, place.Name, place.Description, place.CreatedAt)
}

func (s *placeService) reportIndexSize() {
	metrics.IndexedPlaces.WithLabelValues("geo").Set(float64(s.geo.Len()))
	metrics.IndexedPlaces.WithLabelValues("text").Set(float64(s.text.Len()))
}

func (s *placeService) GetPlaceBySlug(ctx context.Context, slugValue string, opts FetchOptions) (*model.Place, error) {
	place, err := s.placeRepo.FindBySlug(ctx, slugValue)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Place not found by slug", map[string]interface{}{
				"slug": slugValue,
			})
			return nil, ErrPlaceNotFound
		}
		logger.Error("Failed to fetch place by slug", err, map[string]interface{}{
			"slug": slugValue,
		})
		return nil, err
	}
	if err := s.join(ctx, place, opts); err != nil {
		return nil, err
	}
	return place, nil
}

func (s *placeService) GetPlaceByID(ctx context.Context, id uint, opts FetchOptions) (*model.Place, error) {
	place, err := s.loadPlace(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrPlaceNotFound) {
			logger.Error("Failed to fetch place", err, map[string]interface{}{
				"place_id": id,
			})
		}
		return nil, err
	}
	if err := s.join(ctx, place, opts); err != nil {
		return nil, err
	}
	return place, nil
}

// join fills the relations requested in opts. A missing author is left nil.
func (s *placeService) join(ctx context.Context, place *model.Place, opts FetchOptions) error {
	if opts.WithRatings {
		ratings, err := s.ratingRepo.FindByPlaceID(ctx, place.ID)
		if err != nil {
			return err
		}
		place.Ratings = ratings
	}

	if opts.WithAuthor {
		ids := []uint{place.OwnerID}
		for _, r := range place.Ratings {
			ids = append(ids, r.RaterID)
		}
		users, err := s.userRepo.FindByIDs(ctx, ids)
		if err != nil {
			return err
		}
		if author, ok := users[place.OwnerID]; ok {
			place.Author = &author
		}
		for i := range place.Ratings {
			if rater, ok := users[place.Ratings[i].RaterID]; ok {
				place.Ratings[i].Rater = &rater
			}
		}
	}
	return nil
}

func (s *placeService) ListPlaces(ctx context.Context, page, pageSize int) (*PlacePage, error) {
	if page == 0 {
		page = 1
	}
	if pageSize == 0 {
		pageSize = s.cfg.PageSize
	}
	verr := &ValidationError{}
	if page < 1 {
		verr.add("page", "must be positive")
	}
	if pageSize < 1 {
		verr.add("page_size", "must be positive")
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}
	if s.cfg.MaxPageSize > 0 && pageSize > s.cfg.MaxPageSize {
		pageSize = s.cfg.MaxPageSize
	}

	places, total, err := s.placeRepo.List(ctx, (page-1)*pageSize, pageSize)
	if err != nil {
		logger.Error("Failed to list places", err, map[string]interface{}{
			"page": page,
		})
		return nil, err
	}

	lastPage := int((total + int64(pageSize) - 1) / int64(pageSize))
	if lastPage < 1 {
		lastPage = 1
	}
	if page > lastPage {
		logger.Warn("Requested page out of range", map[string]interface{}{
			"page":      page,
			"last_page": lastPage,
		})
		return nil, &PageOutOfRangeError{Page: page, LastPage: lastPage}
	}

	return &PlacePage{
		Places:   places,
		Page:     page,
		PageSize: pageSize,
		LastPage: lastPage,
		Total:    total,
	}, nil
}

func (s *placeService) SearchPlaces(ctx context.Context, query string, limit int) ([]SearchHit, error) {
	if limit == 0 {
		limit = s.cfg.SearchLimit
	}
	if limit < 0 {
		return nil, &ValidationError{Fields: map[string]string{"limit": "must be positive"}}
	}

	hits := s.text.Search(query, limit)
	if len(hits) == 0 {
		return []SearchHit{}, nil
	}

	ids := make([]uint, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	places, err := s.placeRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]model.Place, len(places))
	for _, p := range places {
		byID[p.ID] = p
	}

	results := make([]SearchHit, 0, len(hits))
	for _, h := range hits {
		if p, ok := byID[h.ID]; ok {
			results = append(results, SearchHit{Place: p, Score: h.Score})
		}
	}

	logger.Debug("Search completed", map[string]interface{}{
		"query":   query,
		"results": len(results),
	})
	return results, nil
}

func (s *placeService) NearPlaces(ctx context.Context, q NearQuery) ([]model.PlaceSummary, error) {
	maxDistance := s.cfg.NearMaxDistanceMeters
	if q.MaxDistanceMeters != nil && *q.MaxDistanceMeters != 0 {
		maxDistance = *q.MaxDistanceMeters
	}
	limit := s.cfg.NearLimit
	if q.Limit != nil && *q.Limit != 0 {
		limit = *q.Limit
	}

	hits, err := s.geo.Near(q.Longitude, q.Latitude, maxDistance, limit)
	if err != nil {
		switch {
		case errors.Is(err, index.ErrInvalidPoint):
			return nil, &ValidationError{Fields: map[string]string{"location": err.Error()}}
		case errors.Is(err, index.ErrInvalidDistance):
			return nil, &ValidationError{Fields: map[string]string{"max_distance": err.Error()}}
		case errors.Is(err, index.ErrInvalidLimit):
			return nil, &ValidationError{Fields: map[string]string{"limit": err.Error()}}
		}
		return nil, err
	}

	ids := make([]uint, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	places, err := s.placeRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]*model.Place, len(places))
	for i := range places {
		byID[places[i].ID] = &places[i]
	}

	summaries := make([]model.PlaceSummary, 0, len(hits))
	for _, h := range hits {
		if p, ok := byID[h.ID]; ok {
			summaries = append(summaries, p.Summary(h.DistanceMeters))
		}
	}
	return summaries, nil
}

func (s *placeService) ListPlacesByTag(ctx context.Context, tag string) ([]model.Place, error) {
	places, err := s.placeRepo.FindByTag(ctx, strings.TrimSpace(tag))
	if err != nil {
		logger.Error("Failed to list places by tag", err, map[string]interface{}{
			"tag": tag,
		})
		return nil, err
	}
	return places, nil
}

// RebuildIndexes reloads both indexes from the database. Places written
// while the load runs are read again after the swap, so the rebuilt indexes
// never roll back a concurrent create or update.
func (s *placeService) RebuildIndexes(ctx context.Context) error {
	s.rebuildMu.Lock()
	defer s.rebuildMu.Unlock()

	s.indexMu.Lock()
	s.touched = make(map[uint]struct{})
	s.indexMu.Unlock()

	places, err := s.placeRepo.FindAll(ctx)
	if err != nil {
		s.indexMu.Lock()
		s.touched = nil
		s.indexMu.Unlock()
		logger.Error("Failed to load places for index rebuild", err)
		return err
	}

	points := make([]index.GeoPoint, len(places))
	docs := make([]index.TextDoc, len(places))
	for i, p := range places {
		points[i] = index.GeoPoint{ID: p.ID, Longitude: p.Longitude, Latitude: p.Latitude}
		docs[i] = index.TextDoc{ID: p.ID, Name: p.Name, Description: p.Description, CreatedAt: p.CreatedAt}
	}

	s.indexMu.Lock()
	defer s.indexMu.Unlock()

	skipped := s.geo.Rebuild(points)
	s.text.Rebuild(docs)

	touched := make([]uint, 0, len(s.touched))
	for id := range s.touched {
		touched = append(touched, id)
	}
	s.touched = nil

	if len(touched) > 0 {
		// 재구성 중 커밋된 변경을 다시 반영
		current, err := s.placeRepo.FindByIDs(ctx, touched)
		if err != nil {
			s.reportIndexSize()
			logger.Error("Failed to reload places written during index rebuild", err, map[string]interface{}{
				"places": len(touched),
			})
			return err
		}
		for i := range current {
			s.applyIndex(&current[i])
		}
	}
	s.reportIndexSize()

	logger.Info("Indexes rebuilt", map[string]interface{}{
		"places":      len(places),
		"reapplied":   len(touched),
		"geo_skipped": skipped,
	})
	return nil
}
