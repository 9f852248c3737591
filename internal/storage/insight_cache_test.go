package storage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupInsightCache(t *testing.T, ttl time.Duration) (*InsightCache, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewInsightCache(NewRedisCacheFromClient(client), ttl), mr
}

type testInsights struct {
	Thesis    string   `json:"thesis"`
	Strengths []string `json:"strengths"`
}

func TestInsightCache_SetGet(t *testing.T) {
	cache, _ := setupInsightCache(t, time.Hour)
	ctx := context.Background()

	key := cache.Key("portfolio-1", time.Unix(1718000000, 0))
	stored := testInsights{Thesis: "balanced growth", Strengths: []string{"diversified"}}

	require.NoError(t, cache.Set(ctx, key, stored))

	var got testInsights
	found, err := cache.Get(ctx, key, &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, stored, got)
}

func TestInsightCache_MissWhenAbsent(t *testing.T) {
	cache, _ := setupInsightCache(t, time.Hour)

	var got testInsights
	found, err := cache.Get(context.Background(), "insights:unknown:0", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestInsightCache_ExpiresAfterTTL(t *testing.T) {
	cache, mr := setupInsightCache(t, time.Minute)
	ctx := context.Background()

	key := cache.Key("portfolio-1", time.Unix(1718000000, 0))
	require.NoError(t, cache.Set(ctx, key, testInsights{Thesis: "x"}))

	mr.FastForward(2 * time.Minute)

	var got testInsights
	found, err := cache.Get(ctx, key, &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestInsightCache_KeyChangesWithUpdateTime(t *testing.T) {
	cache, _ := setupInsightCache(t, time.Hour)

	before := cache.Key("portfolio-1", time.Unix(1718000000, 0))
	after := cache.Key("portfolio-1", time.Unix(1718000001, 0))

	assert.NotEqual(t, before, after)
}
