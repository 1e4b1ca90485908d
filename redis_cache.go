package jangkau

import (
	"context"
	"time"

	json "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces cache keys so multiple applications can
// share one Redis server.
const DefaultRedisPrefix = "jangkau:"

// RedisCache implements Cache over a Redis server, letting processes share
// cached responses. Expiry is delegated to Redis; the entry bound is
// whatever eviction policy the server runs. Failures degrade to misses.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// RedisCacheOption configures a RedisCache.
type RedisCacheOption func(*RedisCache)

// WithRedisPrefix overrides the key namespace prefix.
func WithRedisPrefix(prefix string) RedisCacheOption {
	return func(c *RedisCache) {
		c.prefix = prefix
	}
}

// WithRedisTTL sets the default TTL applied when Set receives a
// non-positive one.
func WithRedisTTL(ttl time.Duration) RedisCacheOption {
	return func(c *RedisCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// NewRedisCache wraps an existing go-redis client as a Cache.
func NewRedisCache(client *redis.Client, opts ...RedisCacheOption) *RedisCache {
	c := &RedisCache{
		client: client,
		prefix: DefaultRedisPrefix,
		ttl:    DefaultCacheTTL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the entry under key when present, treating every Redis or
// decode failure as a miss.
func (c *RedisCache) Get(key string) (*CacheEntry, bool) {
	raw, err := c.client.Get(context.Background(), c.prefix+key).Bytes()
	if err != nil {
		return nil, false
	}
	var entry CacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, false
	}
	return &entry, true
}

// Set stores entry under key with ttl mapped to Redis expiry, using the
// cache default when ttl is non-positive.
func (c *RedisCache) Set(key string, entry *CacheEntry, ttl time.Duration) {
	if entry == nil {
		return
	}
	if ttl <= 0 {
		ttl = c.ttl
	}
	entry.ExpiresAt = time.Now().Add(ttl)

	raw, err := json.Marshal(entry)
	if err != nil {
		return
	}
	c.client.Set(context.Background(), c.prefix+key, raw, ttl)
}

// Delete removes the entry under key, if any.
func (c *RedisCache) Delete(key string) {
	c.client.Del(context.Background(), c.prefix+key)
}

// Clear drops every entry under the cache's prefix.
func (c *RedisCache) Clear() {
	c.scanDelete(c.prefix + "*")
}

// ClearPattern drops every entry whose key contains pattern as a substring.
func (c *RedisCache) ClearPattern(pattern string) {
	c.scanDelete(c.prefix + "*" + pattern + "*")
}

// Len reports the number of entries under the cache's prefix.
func (c *RedisCache) Len() int {
	ctx := context.Background()
	var (
		cursor uint64
		total  int
	)
	for {
		keys, next, err := c.client.Scan(ctx, cursor, c.prefix+"*", 256).Result()
		if err != nil {
			return total
		}
		total += len(keys)
		cursor = next
		if cursor == 0 {
			return total
		}
	}
}

func (c *RedisCache) scanDelete(match string) {
	ctx := context.Background()
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, match, 256).Result()
		if err != nil {
			return
		}
		if len(keys) > 0 {
			c.client.Del(ctx, keys...)
		}
		cursor = next
		if cursor == 0 {
			return
		}
	}
}
