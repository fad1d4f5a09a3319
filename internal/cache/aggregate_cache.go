package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/placedir/placedir-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix     = "placedir:agg"
	generationKey = keyPrefix + ":gen"
)

// AggregateCache stores aggregation results in Redis under keys that carry a
// generation number. Invalidate bumps the generation so every older entry
// becomes unreachable and expires on its own TTL.
//
// A nil *AggregateCache, or one built with a nil client, is a valid cache
// that never hits. Redis failures are logged and reported as misses.
type AggregateCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewAggregateCache(client *redis.Client, ttl time.Duration) *AggregateCache {
	return &AggregateCache{client: client, ttl: ttl}
}

func (c *AggregateCache) enabled() bool {
	return c != nil && c.client != nil
}

// NoGeneration marks a generation that could not be read. Set ignores it.
const NoGeneration int64 = -1

// Generation returns the current generation, or NoGeneration when the cache
// is disabled or Redis is unreachable. Read it before loading the data an
// entry is computed from, so a write that lands in between retires the entry.
func (c *AggregateCache) Generation(ctx context.Context) int64 {
	if !c.enabled() {
		return NoGeneration
	}

	gen, err := c.client.Get(ctx, generationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0
	}
	if err != nil {
		logger.Warn("Aggregate cache generation lookup failed", map[string]interface{}{
			"error": err.Error(),
		})
		return NoGeneration
	}
	return gen
}

// Key builds the versioned key for one aggregation query
func Key(gen int64, name string) string {
	return fmt.Sprintf("%s:v%d:%s", keyPrefix, gen, name)
}

// Get decodes the cached value for name into dst. It returns the generation
// it looked under, for a later Set on a miss, and whether it hit.
func (c *AggregateCache) Get(ctx context.Context, name string, dst interface{}) (int64, bool) {
	gen := c.Generation(ctx)
	if gen == NoGeneration {
		return gen, false
	}

	raw, err := c.client.Get(ctx, Key(gen, name)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Warn("Aggregate cache read failed", map[string]interface{}{
				"key":   name,
				"error": err.Error(),
			})
		}
		return gen, false
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		logger.Warn("Aggregate cache entry is corrupt", map[string]interface{}{
			"key":   name,
			"error": err.Error(),
		})
		return gen, false
	}
	return gen, true
}

// Set stores value under name for generation gen
func (c *AggregateCache) Set(ctx context.Context, gen int64, name string, value interface{}) {
	if !c.enabled() || gen == NoGeneration {
		return
	}

	raw, err := json.Marshal(value)
	if err != nil {
		logger.Warn("Aggregate cache encode failed", map[string]interface{}{
			"key":   name,
			"error": err.Error(),
		})
		return
	}

	if err := c.client.Set(ctx, Key(gen, name), raw, c.ttl).Err(); err != nil {
		logger.Warn("Aggregate cache write failed", map[string]interface{}{
			"key":   name,
			"error": err.Error(),
		})
	}
}

// Invalidate drops every cached aggregation
func (c *AggregateCache) Invalidate(ctx context.Context) {
	if !c.enabled() {
		return
	}

	gen, err := c.client.Incr(ctx, generationKey).Result()
	if err != nil {
		logger.Warn("Aggregate cache invalidation failed", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	logger.Debug("Aggregate cache invalidated", map[string]interface{}{
		"generation": gen,
	})
}
