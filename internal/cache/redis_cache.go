package cache

import (
	"context"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/feedback-intel/core/internal/platform/logger"
)

// redisCache is grounded on the teacher's redis.SSEBus construction idiom:
// env-driven address, ping-on-construct, graceful absence when unset.
type redisCache struct {
	log *logger.Logger
	rdb *goredis.Client
}

// NewRedisCache returns a Cache backed by Redis, or a noopCache if addr is
// empty or the backend is unreachable — the adapter never fails a caller
// because of a missing cache (spec §4.2, §7 graceful degradation).
func NewRedisCache(addr string, log *logger.Logger) Cache {
	if strings.TrimSpace(addr) == "" {
		log.Warn("cache backend not configured; running with a no-op cache")
		return noopCache{}
	}

	rdb := goredis.NewClient(&goredis.Options{Addr: addr, DialTimeout: 5 * time.Second})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("cache backend unreachable; running with a no-op cache", "error", err)
		return noopCache{}
	}

	return &redisCache{log: log.With("service", "RedisCache"), rdb: rdb}
}

func (c *redisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err != goredis.Nil {
			c.log.Warn("cache get failed, treating as miss", "key", key, "error", err)
		}
		return nil, false
	}
	return val, true
}

func (c *redisCache) SetTTL(ctx context.Context, key string, value []byte, ttlSeconds int) {
	if err := c.rdb.Set(ctx, key, value, time.Duration(ttlSeconds)*time.Second).Err(); err != nil {
		c.log.Warn("cache set failed", "key", key, "error", err)
	}
}

func (c *redisCache) Delete(ctx context.Context, key string) {
	if err := c.rdb.Del(ctx, key).Err(); err != nil {
		c.log.Warn("cache delete failed", "key", key, "error", err)
	}
}

// DeleteByPrefix scans for matching keys and pipelines their deletion,
// never using KEYS in the hot path.
func (c *redisCache) DeleteByPrefix(ctx context.Context, prefix string) {
	var cursor uint64
	pattern := prefix + "*"
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, pattern, 200).Result()
		if err != nil {
			c.log.Warn("cache scan failed", "prefix", prefix, "error", err)
			return
		}
		if len(keys) > 0 {
			pipe := c.rdb.Pipeline()
			for _, k := range keys {
				pipe.Del(ctx, k)
			}
			if _, err := pipe.Exec(ctx); err != nil {
				c.log.Warn("cache pipelined delete failed", "prefix", prefix, "error", err)
			}
		}
		cursor = next
		if cursor == 0 {
			return
		}
	}
}

type noopCache struct{}

func (noopCache) Get(context.Context, string) ([]byte, bool)         { return nil, false }
func (noopCache) SetTTL(context.Context, string, []byte, int)        {}
func (noopCache) Delete(context.Context, string)                     {}
func (noopCache) DeleteByPrefix(context.Context, string)              {}
