package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tagEntry struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

func setupCacheTest(t *testing.T) (*miniredis.Miniredis, *AggregateCache) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, NewAggregateCache(client, time.Minute)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "placedir:agg:v0:tags", Key(0, "tags"))
	assert.Equal(t, "placedir:agg:v12:top:10:3", Key(12, "top:10:3"))
}

func TestAggregateCache_NilIsNoop(t *testing.T) {
	ctx := context.Background()

	var nilCache *AggregateCache
	var out []string
	gen, hit := nilCache.Get(ctx, "tags", &out)
	assert.False(t, hit)
	assert.Equal(t, NoGeneration, gen)
	assert.Equal(t, NoGeneration, nilCache.Generation(ctx))
	nilCache.Set(ctx, 0, "tags", []string{"a"})
	nilCache.Invalidate(ctx)

	noClient := NewAggregateCache(nil, time.Minute)
	_, hit = noClient.Get(ctx, "tags", &out)
	assert.False(t, hit)
	noClient.Set(ctx, 0, "tags", []string{"a"})
	noClient.Invalidate(ctx)
	assert.Nil(t, out)
}

func TestAggregateCache_UnreachableRedisIsAMiss(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	c := NewAggregateCache(client, time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	var out []string
	assert.Equal(t, NoGeneration, c.Generation(ctx))
	c.Set(ctx, 0, "tags", []string{"coffee"})
	c.Invalidate(ctx)
	gen, hit := c.Get(ctx, "tags", &out)
	assert.False(t, hit)
	assert.Equal(t, NoGeneration, gen)
	assert.Nil(t, out)
}

func TestAggregateCache_SetThenGet(t *testing.T) {
	mr, c := setupCacheTest(t)
	ctx := context.Background()

	var out []tagEntry
	gen, hit := c.Get(ctx, "tags", &out)
	require.False(t, hit)
	assert.Equal(t, int64(0), gen)

	want := []tagEntry{{Tag: "coffee", Count: 3}, {Tag: "wifi", Count: 2}}
	c.Set(ctx, gen, "tags", want)
	assert.True(t, mr.Exists(Key(0, "tags")))
	assert.Equal(t, time.Minute, mr.TTL(Key(0, "tags")))

	gen, hit = c.Get(ctx, "tags", &out)
	require.True(t, hit)
	assert.Equal(t, int64(0), gen)
	assert.Equal(t, want, out)
}

func TestAggregateCache_InvalidateRetiresEntries(t *testing.T) {
	mr, c := setupCacheTest(t)
	ctx := context.Background()

	c.Set(ctx, c.Generation(ctx), "tags", []tagEntry{{Tag: "coffee", Count: 1}})
	c.Invalidate(ctx)
	assert.Equal(t, int64(1), c.Generation(ctx))

	var out []tagEntry
	gen, hit := c.Get(ctx, "tags", &out)
	assert.False(t, hit)
	assert.Equal(t, int64(1), gen)
	assert.Nil(t, out)
	// the old entry is left to its TTL
	assert.True(t, mr.Exists(Key(0, "tags")))
}

func TestAggregateCache_SetUnderRetiredGenerationIsUnreachable(t *testing.T) {
	_, c := setupCacheTest(t)
	ctx := context.Background()

	gen := c.Generation(ctx)
	c.Invalidate(ctx)
	c.Set(ctx, gen, "tags", []tagEntry{{Tag: "stale", Count: 1}})

	var out []tagEntry
	_, hit := c.Get(ctx, "tags", &out)
	assert.False(t, hit)
}

func TestAggregateCache_CorruptEntryIsAMiss(t *testing.T) {
	mr, c := setupCacheTest(t)
	ctx := context.Background()

	require.NoError(t, mr.Set(Key(0, "tags"), "{not json"))

	var out []tagEntry
	_, hit := c.Get(ctx, "tags", &out)
	assert.False(t, hit)
}
