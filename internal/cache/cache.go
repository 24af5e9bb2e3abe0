// Package cache provides a Redis JSON cache and the cached doctor directory.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned by Get when the key is absent.
var ErrMiss = errors.New("cache miss")

type Cache struct {
	redis  *redis.Client
	prefix string
}

func NewCache(rdb *redis.Client, prefix string) *Cache {
	return &Cache{
		redis:  rdb,
		prefix: prefix,
	}
}

// NewClient parses a redis:// URL and pings the server.
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "invalid redis url")
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, errors.Wrap(err, "failed to ping redis")
	}
	return rdb, nil
}

func (c *Cache) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := c.redis.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return ErrMiss
		}
		return errors.Wrap(err, "failed to get from cache")
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return errors.Wrap(err, "failed to unmarshal cached data")
	}
	return nil
}

func (c *Cache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrap(err, "failed to marshal data for cache")
	}

	if err := c.redis.Set(ctx, c.prefix+key, data, expiration).Err(); err != nil {
		return errors.Wrap(err, "failed to set cache")
	}
	return nil
}

func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.prefix + k
	}
	if err := c.redis.Del(ctx, full...).Err(); err != nil {
		return errors.Wrap(err, "failed to delete from cache")
	}
	return nil
}

// Clear deletes every key under the prefix, optionally narrowed by pattern.
func (c *Cache) Clear(ctx context.Context, pattern string) error {
	if pattern == "" {
		pattern = "*"
	}
	iter := c.redis.Scan(ctx, 0, c.prefix+pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := c.redis.Del(ctx, iter.Val()).Err(); err != nil {
			return errors.Wrap(err, "failed to clear cache")
		}
	}
	return errors.Wrap(iter.Err(), "failed to iterate over cache keys")
}
