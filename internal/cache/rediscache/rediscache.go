// Package rediscache is the Redis implementation of the byte cache and
// the per-provider request rate limiter. All keys live under the sptms:
// namespace so a shared Redis can host more than one environment.
package rediscache

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "sptms:"

type RedisCache struct {
	c *redis.Client
}

func New(addr string) *RedisCache {
	return &RedisCache{
		c: redis.NewClient(&redis.Options{
			Addr: addr,
		}),
	}
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := r.c.Get(ctx, keyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "redis get")
	}
	return val, true, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.c.Set(ctx, keyPrefix+key, value, ttl).Err(); err != nil {
		return errors.Wrap(err, "redis set")
	}
	return nil
}

// Delete drops a cached entry, e.g. a lane rate that was invalidated
// by a fresh posting.
func (r *RedisCache) Delete(ctx context.Context, key string) error {
	if err := r.c.Del(ctx, keyPrefix+key).Err(); err != nil {
		return errors.Wrap(err, "redis del")
	}
	return nil
}
