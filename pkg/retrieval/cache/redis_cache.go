package cache

import (
	"context"
	"encoding/json"
	"time"

	"support-chat-be/internal/pkg/logger"
	"support-chat-be/pkg/store"

	"github.com/redis/go-redis/v9"
)

// RedisCache is the multi-instance result cache. Every Set also registers
// the key in a per-workspace index set so InvalidateWorkspace can delete
// without a SCAN.
//
// All failures degrade to a miss; the cache is never allowed to break a
// search.
type RedisCache struct {
	rdb     *redis.Client
	logger  logger.ILogger
	timeout time.Duration
}

var _ ResultCache = &RedisCache{}

func NewRedisCache(rdb *redis.Client, log logger.ILogger) *RedisCache {
	return &RedisCache{
		rdb:     rdb,
		logger:  log,
		timeout: 2 * time.Second,
	}
}

func (c *RedisCache) Get(ctx context.Context, workspaceId, query string, topK int) ([]store.RetrievedChunk, bool) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	raw, err := c.rdb.Get(ctx, Key(workspaceId, query, topK)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("SearchCache", "Cache read failed, treating as miss", map[string]interface{}{
				"workspace_id": workspaceId,
				"error":        err.Error(),
			})
		}
		return nil, false
	}

	var chunks []store.RetrievedChunk
	if err := json.Unmarshal(raw, &chunks); err != nil {
		c.logger.Warn("SearchCache", "Corrupt cache entry, treating as miss", map[string]interface{}{
			"workspace_id": workspaceId,
			"error":        err.Error(),
		})
		return nil, false
	}
	return chunks, true
}

func (c *RedisCache) Set(ctx context.Context, workspaceId, query string, topK int, chunks []store.RetrievedChunk, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	raw, err := json.Marshal(chunks)
	if err != nil {
		return
	}

	key := Key(workspaceId, query, topK)
	idx := indexKey(workspaceId)

	pipe := c.rdb.TxPipeline()
	pipe.Set(ctx, key, raw, ttl)
	pipe.SAdd(ctx, idx, key)
	// Index outlives entries slightly; stale members are harmless on delete
	pipe.Expire(ctx, idx, ttl+time.Minute)

	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn("SearchCache", "Cache write failed", map[string]interface{}{
			"workspace_id": workspaceId,
			"error":        err.Error(),
		})
	}
}

func (c *RedisCache) InvalidateWorkspace(ctx context.Context, workspaceId string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	idx := indexKey(workspaceId)

	keys, err := c.rdb.SMembers(ctx, idx).Result()
	if err != nil && err != redis.Nil {
		c.logger.Warn("SearchCache", "Invalidation read failed", map[string]interface{}{
			"workspace_id": workspaceId,
			"error":        err.Error(),
		})
		return err
	}

	keys = append(keys, idx)
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("SearchCache", "Invalidation delete failed", map[string]interface{}{
			"workspace_id": workspaceId,
			"error":        err.Error(),
		})
		return err
	}

	c.logger.Info("SearchCache", "Workspace cache invalidated", map[string]interface{}{
		"workspace_id": workspaceId,
		"entries":      len(keys) - 1,
	})
	return nil
}
