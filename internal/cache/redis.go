package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a Cache shared by every API instance. Values are stored as JSON
// with SETEX so Redis enforces the TTL.
type Redis[V any] struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedis[V any](rdb *redis.Client, prefix string, ttl time.Duration) *Redis[V] {
	return &Redis[V]{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (c *Redis[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var v V
	b, err := c.rdb.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return v, false, nil
	}
	if err != nil {
		return v, false, err
	}
	if err := json.Unmarshal(b, &v); err != nil {
		// a corrupt entry is a miss; the next Set overwrites it
		return v, false, nil
	}
	return v, true, nil
}

func (c *Redis[V]) Set(ctx context.Context, key string, v V) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}
	return c.rdb.SetEx(ctx, c.prefix+key, b, c.ttl).Err()
}

func (c *Redis[V]) Delete(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, c.prefix+key).Err()
}
