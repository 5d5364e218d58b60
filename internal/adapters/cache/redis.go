package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache implements Cache on a Redis server. Expiry is delegated to
// server-side TTL, which satisfies the read-time age invariant because Redis
// never returns a key past its TTL.
type RedisCache struct {
	client    *redis.Client
	keyPrefix string
}

// RedisOption applies a configuration option to the RedisCache.
type RedisOption func(*RedisCache)

// WithKeyPrefix namespaces all keys written by this cache.
func WithKeyPrefix(prefix string) RedisOption {
	return func(c *RedisCache) {
		if prefix != "" {
			c.keyPrefix = prefix
		}
	}
}

// NewRedisCache creates a Redis-backed cache against the given address.
func NewRedisCache(addr string, opts ...RedisOption) *RedisCache {
	c := &RedisCache{
		client:    redis.NewClient(&redis.Options{Addr: addr}),
		keyPrefix: "guidance:rank:",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the value for key if present and unexpired.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.client.Get(ctx, c.keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

// Set overwrites key unconditionally with the given TTL.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, c.keyPrefix+key, value, ttl).Err()
}

// Close releases the underlying client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
