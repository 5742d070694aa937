package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/clinicore/clinicore/internal/config"
	"github.com/clinicore/clinicore/internal/logger"
)

// RedisCache implements the Cache interface backed by redis so that cached
// lookups stay coherent across server instances. Values are stored as
// strings; callers that cache structs use the in-memory backend.
type RedisCache struct {
	client *redis.Client
	cfg    *config.Configuration
	logger *logger.Logger
}

// NewRedisCache creates a new redis backed cache
func NewRedisCache(cfg *config.Configuration, logger *logger.Logger) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	return &RedisCache{client: client, cfg: cfg, logger: logger}
}

// Get retrieves a value from the cache
func (c *RedisCache) Get(ctx context.Context, key string) (interface{}, bool) {
	if !c.cfg.Cache.Enabled {
		return nil, false
	}
	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warnw("redis cache get failed", "key", key, "error", err)
		}
		return nil, false
	}
	return val, true
}

// Set adds a value to the cache with the specified expiration
func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) {
	if !c.cfg.Cache.Enabled {
		return
	}
	if err := c.client.Set(ctx, key, value, expiration).Err(); err != nil {
		c.logger.Warnw("redis cache set failed", "key", key, "error", err)
	}
}

// Delete removes a key from the cache
func (c *RedisCache) Delete(ctx context.Context, key string) {
	if !c.cfg.Cache.Enabled {
		return
	}
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.logger.Warnw("redis cache delete failed", "key", key, "error", err)
	}
}

// Invalidate removes every key within the given scope prefix
func (c *RedisCache) Invalidate(ctx context.Context, prefix string) {
	if !c.cfg.Cache.Enabled {
		return
	}
	iter := c.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			c.logger.Warnw("redis cache invalidate failed", "key", iter.Val(), "error", err)
		}
	}
	if err := iter.Err(); err != nil {
		c.logger.Warnw("redis cache scan failed", "prefix", prefix, "error", err)
	}
}

// Flush removes all items from the cache
func (c *RedisCache) Flush(ctx context.Context) {
	if !c.cfg.Cache.Enabled {
		return
	}
	if err := c.client.FlushDB(ctx).Err(); err != nil {
		c.logger.Warnw("redis cache flush failed", "error", err)
	}
}
