package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// InsightCache stores generated AI commentary in Redis so repeated views of
// an unchanged portfolio do not re-run the model. Keys incorporate the
// portfolio's update time, so any edit naturally invalidates the entry.
type InsightCache struct {
	redis *RedisCache
	ttl   time.Duration
}

// NewInsightCache creates a new insight cache
func NewInsightCache(redisCache *RedisCache, ttl time.Duration) *InsightCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &InsightCache{
		redis: redisCache,
		ttl:   ttl,
	}
}

// Key builds the cache key for a portfolio's insights.
// Format: insights:<portfolio-id>:<updated-at-unix>
func (c *InsightCache) Key(portfolioID string, updatedAt time.Time) string {
	return fmt.Sprintf("insights:%s:%d", portfolioID, updatedAt.Unix())
}

// Get retrieves cached insights into dest, reporting whether an entry existed.
func (c *InsightCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := c.redis.Get(ctx, key)
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, fmt.Errorf("failed to get from insight cache: %w", err)
	}

	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cached insights: %w", err)
	}

	return true, nil
}

// Set stores insights under the given key with the configured TTL.
func (c *InsightCache) Set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal insights: %w", err)
	}
	return c.redis.Set(ctx, key, data, c.ttl)
}
