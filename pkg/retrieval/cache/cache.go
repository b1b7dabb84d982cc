package cache

import (
	"context"
	"time"

	"support-chat-be/pkg/store"
)

// DefaultTTL bounds staleness of similarity-search results.
const DefaultTTL = 10 * time.Minute

// ResultCache caches similarity-search results keyed by
// (workspace, normalized query, topK). Invalidation is workspace-wide:
// serving a stale chunk is worse than re-running a search.
type ResultCache interface {
	Get(ctx context.Context, workspaceId, query string, topK int) ([]store.RetrievedChunk, bool)
	Set(ctx context.Context, workspaceId, query string, topK int, chunks []store.RetrievedChunk, ttl time.Duration)
	// InvalidateWorkspace drops every cached result for the workspace. Called
	// by document-mutation collaborators after any add/delete.
	InvalidateWorkspace(ctx context.Context, workspaceId string) error
}
