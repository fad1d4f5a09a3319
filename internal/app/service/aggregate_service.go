package service

import (
	"context"
	"fmt"

	"github.com/placedir/placedir-backend/config"
	"github.com/placedir/placedir-backend/internal/aggregate"
	"github.com/placedir/placedir-backend/internal/app/repository"
	"github.com/placedir/placedir-backend/internal/cache"
	"github.com/placedir/placedir-backend/internal/metrics"
	"github.com/placedir/placedir-backend/pkg/logger"
)

const tagCountsCacheKey = "tags"

type AggregateService interface {
	TagCounts(ctx context.Context) ([]aggregate.TagCount, error)
	// TopRated uses the configured defaults for zero arguments
	TopRated(ctx context.Context, limit, minRatings int) ([]aggregate.RatedPlace, error)
	// Warm precomputes the default aggregations into the cache
	Warm(ctx context.Context) error
}

type aggregateService struct {
	placeRepo repository.PlaceRepository
	aggCache  *cache.AggregateCache
	cfg       config.DirectoryConfig
}

func NewAggregateService(placeRepo repository.PlaceRepository, aggCache *cache.AggregateCache, cfg config.DirectoryConfig) AggregateService {
	return &aggregateService{
		placeRepo: placeRepo,
		aggCache:  aggCache,
		cfg:       cfg,
	}
}

func topRatedCacheKey(limit, minRatings int) string {
	return fmt.Sprintf("top:%d:%d", limit, minRatings)
}

// cached returns the generation a miss must be stored under
func (s *aggregateService) cached(ctx context.Context, key string, dst interface{}) (int64, bool) {
	gen, hit := s.aggCache.Get(ctx, key, dst)
	if hit {
		metrics.AggregateCacheLookups.WithLabelValues("hit").Inc()
	} else {
		metrics.AggregateCacheLookups.WithLabelValues("miss").Inc()
	}
	return gen, hit
}

func (s *aggregateService) TagCounts(ctx context.Context) ([]aggregate.TagCount, error) {
	var counts []aggregate.TagCount
	gen, hit := s.cached(ctx, tagCountsCacheKey, &counts)
	if hit {
		return counts, nil
	}

	snap, err := s.placeRepo.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	counts = aggregate.TagCounts(snap.Places)
	s.aggCache.Set(ctx, gen, tagCountsCacheKey, counts)

	logger.Debug("Tag histogram computed", map[string]interface{}{
		"tags":   len(counts),
		"places": len(snap.Places),
	})
	return counts, nil
}

func (s *aggregateService) TopRated(ctx context.Context, limit, minRatings int) ([]aggregate.RatedPlace, error) {
	if limit == 0 {
		limit = s.cfg.TopRatedLimit
	}
	if minRatings == 0 {
		minRatings = s.cfg.TopRatedMinRatings
	}
	verr := &ValidationError{}
	if limit < 0 {
		verr.add("limit", "must be positive")
	}
	if minRatings < 0 {
		verr.add("min_ratings", "must be positive")
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	key := topRatedCacheKey(limit, minRatings)
	var top []aggregate.RatedPlace
	gen, hit := s.cached(ctx, key, &top)
	if hit {
		return top, nil
	}

	snap, err := s.placeRepo.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	top = aggregate.TopRated(snap.Places, snap.Ratings, limit, minRatings)
	s.aggCache.Set(ctx, gen, key, top)

	logger.Debug("Top rated computed", map[string]interface{}{
		"limit":       limit,
		"min_ratings": minRatings,
		"results":     len(top),
	})
	return top, nil
}

func (s *aggregateService) Warm(ctx context.Context) error {
	gen := s.aggCache.Generation(ctx)
	snap, err := s.placeRepo.Snapshot(ctx)
	if err != nil {
		logger.Error("Failed to read snapshot for cache warmup", err)
		return err
	}

	s.aggCache.Set(ctx, gen, tagCountsCacheKey, aggregate.TagCounts(snap.Places))
	limit, minRatings := s.cfg.TopRatedLimit, s.cfg.TopRatedMinRatings
	s.aggCache.Set(ctx, gen, topRatedCacheKey(limit, minRatings),
		aggregate.TopRated(snap.Places, snap.Ratings, limit, minRatings))

	logger.Info("Aggregate cache warmed", map[string]interface{}{
		"places":  len(snap.Places),
		"ratings": len(snap.Ratings),
	})
	return nil
}
