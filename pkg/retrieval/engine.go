package retrieval

import (
	"context"
	"fmt"
	"time"

	"support-chat-be/internal/pkg/logger"
	"support-chat-be/internal/repository/contract"
	"support-chat-be/pkg/embedding"
	"support-chat-be/pkg/retrieval/cache"
	"support-chat-be/pkg/store"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultTopK is the number of chunks returned when the caller does
	// not specify one.
	DefaultTopK = 5

	// MaxTopK bounds what a client may request.
	MaxTopK = 20

	// scoreThreshold drops chunks with near-zero similarity before they
	// reach the prompt.
	scoreThreshold = 0.3
)

// Result is one retrieval outcome. Degraded means the vector store failed
// and the caller got an empty (but valid) chunk list instead of an error.
type Result struct {
	Chunks   []store.RetrievedChunk
	CacheHit bool
	Degraded bool
}

// Engine embeds the query, searches the workspace's chunks by cosine
// similarity and caches results per (workspace, query, topK).
type Engine struct {
	embedder embedding.EmbeddingProvider
	chunks   contract.DocumentChunkRepository
	cache    cache.ResultCache
	logger   logger.ILogger
	cacheTTL time.Duration

	// group coalesces identical concurrent searches so a burst of the
	// same question embeds and hits the store once.
	group singleflight.Group
}

func NewEngine(
	embedder embedding.EmbeddingProvider,
	chunks contract.DocumentChunkRepository,
	resultCache cache.ResultCache,
	log logger.ILogger,
	cacheTTL time.Duration,
) *Engine {
	if cacheTTL <= 0 {
		cacheTTL = cache.DefaultTTL
	}
	return &Engine{
		embedder: embedder,
		chunks:   chunks,
		cache:    resultCache,
		logger:   log,
		cacheTTL: cacheTTL,
	}
}

// Search returns the topK most similar chunks of the workspace. Embedding
// failures are errors (the query cannot be served at all), vector store
// failures degrade to an empty result.
func (e *Engine) Search(ctx context.Context, workspaceId uuid.UUID, query string, topK int) (*Result, error) {
	topK = ClampTopK(topK)
	ws := workspaceId.String()

	if chunks, found := e.cache.Get(ctx, ws, query, topK); found {
		return &Result{Chunks: chunks, CacheHit: true}, nil
	}

	key := cache.Key(ws, query, topK)
	v, err, shared := e.group.Do(key, func() (interface{}, error) {
		return e.search(ctx, workspaceId, query, topK)
	})
	if err != nil {
		return nil, err
	}

	res := v.(*Result)
	if shared {
		// Coalesced followers share the leader's result but report it as
		// a cache hit, they never touched the store themselves.
		return &Result{Chunks: res.Chunks, CacheHit: true, Degraded: res.Degraded}, nil
	}
	return res, nil
}

func (e *Engine) search(ctx context.Context, workspaceId uuid.UUID, query string, topK int) (*Result, error) {
	embResp, err := e.embedder.Generate(query, embedding.TaskRetrievalQuery)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	scored, err := e.chunks.SearchSimilarWithScore(ctx, embResp.Embedding.Values, topK, workspaceId, scoreThreshold)
	if err != nil {
		e.logger.Error("retrieval", "vector search failed, degrading to empty result", map[string]interface{}{
			"workspace_id": workspaceId.String(),
			"error":        err.Error(),
		})
		return &Result{Degraded: true}, nil
	}

	chunks := make([]store.RetrievedChunk, len(scored))
	for i, s := range scored {
		chunks[i] = store.RetrievedChunk{
			ID:           s.Chunk.Id.String(),
			DocumentID:   s.Chunk.DocumentId.String(),
			Excerpt:      s.Chunk.Content,
			Score:        s.Similarity,
			SectionTitle: s.Chunk.SectionTitle,
			Position:     s.Chunk.ChunkIndex,
			WorkspaceID:  s.Chunk.WorkspaceId.String(),
		}
	}

	e.cache.Set(ctx, workspaceId.String(), query, topK, chunks, e.cacheTTL)

	e.logger.Debug("retrieval", "vector search completed", map[string]interface{}{
		"workspace_id": workspaceId.String(),
		"top_k":        topK,
		"returned":     len(chunks),
	})

	return &Result{Chunks: chunks}, nil
}

// Invalidate drops every cached result of a workspace. Called after any
// document change so stale excerpts are never served.
func (e *Engine) Invalidate(ctx context.Context, workspaceId uuid.UUID) error {
	return e.cache.InvalidateWorkspace(ctx, workspaceId.String())
}

func ClampTopK(topK int) int {
	if topK <= 0 {
		return DefaultTopK
	}
	if topK > MaxTopK {
		return MaxTopK
	}
	return topK
}
