// AngelaMos | 2026
// cache.go

package feature

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	cacheKey = "feature_flags:all"
	cacheTTL = 30 * time.Second
)

// Cache stores the whole flag set under one key. A miss is reported as
// (nil, nil).
type Cache interface {
	Get(ctx context.Context) ([]Flag, error)
	Set(ctx context.Context, flags []Flag) error
	Invalidate(ctx context.Context) error
}

type redisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client) Cache {
	return &redisCache{client: client, ttl: cacheTTL}
}

func (c *redisCache) Get(ctx context.Context) ([]Flag, error) {
	data, err := c.client.Get(ctx, cacheKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cached flags: %w", err)
	}

	var flags []Flag
	if err := json.Unmarshal(data, &flags); err != nil {
		return nil, fmt.Errorf("decode cached flags: %w", err)
	}
	return flags, nil
}

func (c *redisCache) Set(ctx context.Context, flags []Flag) error {
	data, err := json.Marshal(flags)
	if err != nil {
		return fmt.Errorf("encode flags: %w", err)
	}

	if err := c.client.Set(ctx, cacheKey, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache flags: %w", err)
	}
	return nil
}

func (c *redisCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, cacheKey).Err(); err != nil {
		return fmt.Errorf("invalidate flags: %w", err)
	}
	return nil
}
