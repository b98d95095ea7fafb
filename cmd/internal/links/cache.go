package links

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache sits in front of the store on the redirect path.
type Cache interface {
	Get(ctx context.Context, key string) (Link, bool, error)
	Set(ctx context.Context, l Link) error
	Delete(ctx context.Context, key string) error
}

// NopCache never stores anything.
type NopCache struct{}

// Get always misses.
func (NopCache) Get(context.Context, string) (Link, bool, error) { return Link{}, false, nil }

// Set discards the link.
func (NopCache) Set(context.Context, Link) error { return nil }

// Delete is a no-op.
func (NopCache) Delete(context.Context, string) error { return nil }

const redisKeyPrefix = "kwlnk:link:"

// RedisCache caches resolved links in Redis. An entry never outlives the
// link's own expiry.
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
	now func() time.Time
}

// NewRedisCache returns a cache holding entries for at most ttl.
func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisCache{rdb: rdb, ttl: ttl, now: func() time.Time { return time.Now().UTC() }}
}

type cachedLink struct {
	URI       string     `json:"uri"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Get returns the cached link; the bool is false on a miss.
func (c *RedisCache) Get(ctx context.Context, key string) (Link, bool, error) {
	raw, err := c.rdb.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Link{}, false, nil
		}
		return Link{}, false, fmt.Errorf("links.cache.get: %w", err)
	}
	var v cachedLink
	if err := json.Unmarshal(raw, &v); err != nil {
		_ = c.rdb.Del(ctx, redisKeyPrefix+key).Err()
		return Link{}, false, nil
	}
	return Link{Key: key, URI: v.URI, ExpiresAt: v.ExpiresAt}, true, nil
}

// Set caches l until the cache TTL or the link expiry, whichever is sooner.
func (c *RedisCache) Set(ctx context.Context, l Link) error {
	ttl := c.ttl
	if l.ExpiresAt != nil {
		remaining := l.ExpiresAt.Sub(c.now())
		if remaining <= 0 {
			return nil
		}
		if remaining < ttl {
			ttl = remaining
		}
	}
	raw, err := json.Marshal(cachedLink{URI: l.URI, ExpiresAt: l.ExpiresAt})
	if err != nil {
		return err
	}
	if err := c.rdb.Set(ctx, redisKeyPrefix+l.Key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("links.cache.set: %w", err)
	}
	return nil
}

// Delete drops the cached entry for key.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.rdb.Del(ctx, redisKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("links.cache.delete: %w", err)
	}
	return nil
}
