package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "roulette:cache:"

// RedisCache stores small JSON values with an expiry.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// GetLines returns the cached lines for key. A miss is (nil, false, nil).
func (c *RedisCache) GetLines(ctx context.Context, key string) ([]string, bool, error) {
	raw, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}
	var lines []string
	if err := json.Unmarshal(raw, &lines); err != nil {
		return nil, false, fmt.Errorf("cache decode: %w", err)
	}
	return lines, true, nil
}

func (c *RedisCache) SetLines(ctx context.Context, key string, lines []string, ttl time.Duration) error {
	raw, err := json.Marshal(lines)
	if err != nil {
		return err
	}
	if err := c.client.SetEx(ctx, keyPrefix+key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}
