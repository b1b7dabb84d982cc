package retrieval

import (
	"context"
	"errors"
	"testing"

	"support-chat-be/internal/entity"
	"support-chat-be/internal/repository/contract"
	"support-chat-be/internal/repository/specification"
	"support-chat-be/pkg/embedding"
	"support-chat-be/pkg/retrieval/cache"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type nopLogger struct{}

func (nopLogger) Debug(string, string, map[string]interface{}) {}
func (nopLogger) Info(string, string, map[string]interface{})  {}
func (nopLogger) Warn(string, string, map[string]interface{})  {}
func (nopLogger) Error(string, string, map[string]interface{}) {}
func (nopLogger) Sync() error                                  { return nil }

type stubEmbedder struct {
	err   error
	calls int
}

func (s *stubEmbedder) Generate(text string, taskType string) (*embedding.EmbeddingResponse, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &embedding.EmbeddingResponse{
		Embedding: embedding.EmbeddingResponseEmbedding{Values: []float32{0.1, 0.2, 0.3}},
	}, nil
}

type stubChunkRepo struct {
	scored      []*contract.ScoredDocumentChunk
	searchErr   error
	searchCalls int
}

func (s *stubChunkRepo) Create(context.Context, *entity.DocumentChunk) error       { return nil }
func (s *stubChunkRepo) CreateBulk(context.Context, []*entity.DocumentChunk) error { return nil }
func (s *stubChunkRepo) Delete(context.Context, uuid.UUID) error                   { return nil }
func (s *stubChunkRepo) DeleteByDocumentId(context.Context, uuid.UUID) error       { return nil }
func (s *stubChunkRepo) DeleteByWorkspaceIdUnscoped(context.Context, uuid.UUID) error {
	return nil
}
func (s *stubChunkRepo) FindOne(context.Context, ...specification.Specification) (*entity.DocumentChunk, error) {
	return nil, nil
}
func (s *stubChunkRepo) FindAll(context.Context, ...specification.Specification) ([]*entity.DocumentChunk, error) {
	return nil, nil
}
func (s *stubChunkRepo) Count(context.Context, ...specification.Specification) (int64, error) {
	return 0, nil
}

func (s *stubChunkRepo) SearchSimilarWithScore(_ context.Context, _ []float32, _ int, _ uuid.UUID, _ float64) ([]*contract.ScoredDocumentChunk, error) {
	s.searchCalls++
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	return s.scored, nil
}

func newTestEngine(embedder *stubEmbedder, repo *stubChunkRepo) *Engine {
	return NewEngine(embedder, repo, cache.NewMemoryCache(), nopLogger{}, 0)
}

func TestSearchMapsChunks(t *testing.T) {
	wsID := uuid.New()
	chunkID := uuid.New()
	docID := uuid.New()

	repo := &stubChunkRepo{
		scored: []*contract.ScoredDocumentChunk{
			{
				Chunk: &entity.DocumentChunk{
					Id:           chunkID,
					DocumentId:   docID,
					WorkspaceId:  wsID,
					Content:      "refunds within 30 days",
					SectionTitle: "Refunds",
					ChunkIndex:   2,
				},
				Similarity: 0.91,
			},
		},
	}

	e := newTestEngine(&stubEmbedder{}, repo)
	res, err := e.Search(context.Background(), wsID, "refund policy", 5)

	assert.NoError(t, err)
	assert.False(t, res.Degraded)
	assert.Len(t, res.Chunks, 1)

	chunk := res.Chunks[0]
	assert.Equal(t, chunkID.String(), chunk.ID)
	assert.Equal(t, docID.String(), chunk.DocumentID)
	assert.Equal(t, "refunds within 30 days", chunk.Excerpt)
	assert.Equal(t, 0.91, chunk.Score)
	assert.Equal(t, "Refunds", chunk.SectionTitle)
	assert.Equal(t, 2, chunk.Position)
	assert.Equal(t, wsID.String(), chunk.WorkspaceID)
}

func TestSearchCacheHitSkipsStore(t *testing.T) {
	wsID := uuid.New()
	embedder := &stubEmbedder{}
	repo := &stubChunkRepo{
		scored: []*contract.ScoredDocumentChunk{
			{Chunk: &entity.DocumentChunk{Id: uuid.New(), WorkspaceId: wsID, Content: "x"}, Similarity: 0.8},
		},
	}
	e := newTestEngine(embedder, repo)
	ctx := context.Background()

	first, err := e.Search(ctx, wsID, "refund policy", 5)
	assert.NoError(t, err)
	assert.False(t, first.CacheHit)

	second, err := e.Search(ctx, wsID, "Refund   Policy", 5)
	assert.NoError(t, err)
	assert.True(t, second.CacheHit, "normalized rephrasing must hit the cache")
	assert.Equal(t, first.Chunks, second.Chunks)

	assert.Equal(t, 1, repo.searchCalls)
	assert.Equal(t, 1, embedder.calls)
}

func TestSearchDegradesOnStoreFailure(t *testing.T) {
	e := newTestEngine(&stubEmbedder{}, &stubChunkRepo{searchErr: errors.New("connection refused")})

	res, err := e.Search(context.Background(), uuid.New(), "refund policy", 5)

	assert.NoError(t, err)
	assert.True(t, res.Degraded)
	assert.Empty(t, res.Chunks)
}

func TestSearchEmbeddingFailureIsAnError(t *testing.T) {
	e := newTestEngine(&stubEmbedder{err: errors.New("api down")}, &stubChunkRepo{})

	_, err := e.Search(context.Background(), uuid.New(), "refund policy", 5)
	assert.Error(t, err)
}

func TestInvalidateDropsCachedResults(t *testing.T) {
	wsID := uuid.New()
	repo := &stubChunkRepo{
		scored: []*contract.ScoredDocumentChunk{
			{Chunk: &entity.DocumentChunk{Id: uuid.New(), WorkspaceId: wsID, Content: "x"}, Similarity: 0.8},
		},
	}
	e := newTestEngine(&stubEmbedder{}, repo)
	ctx := context.Background()

	_, err := e.Search(ctx, wsID, "refund policy", 5)
	assert.NoError(t, err)

	assert.NoError(t, e.Invalidate(ctx, wsID))

	res, err := e.Search(ctx, wsID, "refund policy", 5)
	assert.NoError(t, err)
	assert.False(t, res.CacheHit)
	assert.Equal(t, 2, repo.searchCalls)
}

func TestClampTopK(t *testing.T) {
	assert.Equal(t, DefaultTopK, ClampTopK(0))
	assert.Equal(t, DefaultTopK, ClampTopK(-3))
	assert.Equal(t, 7, ClampTopK(7))
	assert.Equal(t, MaxTopK, ClampTopK(100))
}
