package cache

import (
	"context"
	"strings"
	"time"

	"support-chat-be/pkg/store"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache is the single-instance result cache, used for deployments
// without Redis and in tests. go-cache's janitor handles TTL expiry.
type MemoryCache struct {
	cache *gocache.Cache
}

var _ ResultCache = &MemoryCache{}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		cache: gocache.New(DefaultTTL, 1*time.Minute),
	}
}

func (c *MemoryCache) Get(ctx context.Context, workspaceId, query string, topK int) ([]store.RetrievedChunk, bool) {
	if x, found := c.cache.Get(Key(workspaceId, query, topK)); found {
		return x.([]store.RetrievedChunk), true
	}
	return nil, false
}

func (c *MemoryCache) Set(ctx context.Context, workspaceId, query string, topK int, chunks []store.RetrievedChunk, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c.cache.Set(Key(workspaceId, query, topK), chunks, ttl)
}

func (c *MemoryCache) InvalidateWorkspace(ctx context.Context, workspaceId string) error {
	prefix := workspacePrefix(workspaceId)
	for key := range c.cache.Items() {
		if strings.HasPrefix(key, prefix) {
			c.cache.Delete(key)
		}
	}
	return nil
}
