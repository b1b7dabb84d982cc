package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// NormalizeQuery collapses whitespace and case so trivially-different
// phrasings of the same query share a cache entry.
func NormalizeQuery(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}

// Key derives the stable cache key for one (workspace, query, topK) triple.
func Key(workspaceId, query string, topK int) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%d", workspaceId, NormalizeQuery(query), topK)))
	return "searchcache:" + workspaceId + ":" + hex.EncodeToString(h[:])
}

// workspacePrefix is shared by every key of one workspace, which is what
// makes wholesale invalidation possible on both backends.
func workspacePrefix(workspaceId string) string {
	return "searchcache:" + workspaceId + ":"
}

// indexKey is the Redis set tracking a workspace's live cache keys.
func indexKey(workspaceId string) string {
	return "searchcache-index:" + workspaceId
}
