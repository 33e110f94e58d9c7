// Package rediscache is a redis-backed cache.Cache for deployments
// where several instances must share the cached view.
package rediscache

import (
	"context"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

type Cache struct {
	client *redis.Client
}

func New(client *redis.Client) *Cache {
	return &Cache{client: client}
}

func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	return nil
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()

	switch {
	case err == nil:
		return data, true, nil
	case errors.Is(err, redis.Nil):
		return nil, false, nil
	default:
		return nil, false, fmt.Errorf("redis error: %w", err)
	}
}

func (c *Cache) InvalidatePattern(ctx context.Context, substring string) error {
	iter := c.client.Scan(ctx, 0, "*"+substring+"*", 0).Iterator()

	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("redis error: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis error: %w", err)
	}

	return nil
}
