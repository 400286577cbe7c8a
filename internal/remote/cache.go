package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/champlabs/schoolsync/internal/models"
)

const cachePrefix = "schoolsync"

// CacheMetrics receives hit/miss telemetry from the read cache. Satisfied
// by *service.MetricsService.
type CacheMetrics interface {
	RecordCacheOperation(hit bool)
}

// ReadCache is a TTL cache for remote list reads. A nil receiver or nil
// client disables caching, so the adapter code never branches on presence.
// Cache failures are logged and treated as misses; they never surface to
// the read path.
type ReadCache struct {
	client  *redis.Client
	ttl     time.Duration
	metrics CacheMetrics
	logger  *zap.Logger
}

// NewReadCache wraps a redis client for use by the Postgres adapter. The
// metrics recorder may be nil.
func NewReadCache(client *redis.Client, ttl time.Duration, metrics CacheMetrics, logger *zap.Logger) *ReadCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReadCache{client: client, ttl: ttl, metrics: metrics, logger: logger}
}

func (c *ReadCache) observe(hit bool) {
	if c.metrics != nil {
		c.metrics.RecordCacheOperation(hit)
	}
}

func (c *ReadCache) key(collection models.Collection, scope string) string {
	return fmt.Sprintf("%s:%s:%s", cachePrefix, collection, scope)
}

func (c *ReadCache) get(ctx context.Context, key string, dest interface{}) bool {
	if c == nil || c.client == nil {
		return false
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		}
		c.observe(false)
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		c.logger.Warn("cache entry unreadable", zap.String("key", key), zap.Error(err))
		c.observe(false)
		return false
	}
	c.observe(true)
	return true
}

func (c *ReadCache) set(ctx context.Context, key string, value interface{}) {
	if c == nil || c.client == nil {
		return
	}
	payload, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *ReadCache) invalidate(ctx context.Context, collection models.Collection) {
	if c == nil || c.client == nil {
		return
	}
	pattern := fmt.Sprintf("%s:%s:*", cachePrefix, collection)
	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			c.logger.Warn("cache invalidation failed", zap.String("key", iter.Val()), zap.Error(err))
		}
	}
	if err := iter.Err(); err != nil {
		c.logger.Warn("cache scan failed", zap.String("pattern", pattern), zap.Error(err))
	}
}
