package cache

import (
	"context"
	"testing"
	"time"

	"support-chat-be/pkg/store"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeQuery(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"lowercases", "Refund Policy", "refund policy"},
		{"collapses whitespace", "  refund \t policy \n", "refund policy"},
		{"already normal", "refund policy", "refund policy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeQuery(tt.query))
		})
	}
}

func TestKeyStability(t *testing.T) {
	a := Key("ws-1", "Refund Policy", 5)
	b := Key("ws-1", "  refund   policy ", 5)
	assert.Equal(t, a, b, "normalized variants share a key")

	assert.NotEqual(t, a, Key("ws-2", "Refund Policy", 5), "workspace is part of the key")
	assert.NotEqual(t, a, Key("ws-1", "Refund Policy", 10), "topK is part of the key")

	assert.Contains(t, a, workspacePrefix("ws-1"))
}

func TestMemoryCacheRoundTrip(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	chunks := []store.RetrievedChunk{
		{ID: "c1", DocumentID: "d1", Excerpt: "refunds within 30 days", Score: 0.91, WorkspaceID: "ws-1"},
		{ID: "c2", DocumentID: "d1", Excerpt: "contact support", Score: 0.72, WorkspaceID: "ws-1"},
	}

	_, found := c.Get(ctx, "ws-1", "refund policy", 5)
	assert.False(t, found)

	c.Set(ctx, "ws-1", "refund policy", 5, chunks, DefaultTTL)

	got, found := c.Get(ctx, "ws-1", "Refund   Policy", 5)
	assert.True(t, found, "normalized rephrasing hits the same entry")
	assert.Equal(t, chunks, got)
}

func TestMemoryCacheTTLExpiry(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	c.Set(ctx, "ws-1", "refund policy", 5, []store.RetrievedChunk{{ID: "c1"}}, 20*time.Millisecond)

	_, found := c.Get(ctx, "ws-1", "refund policy", 5)
	assert.True(t, found)

	time.Sleep(40 * time.Millisecond)

	_, found = c.Get(ctx, "ws-1", "refund policy", 5)
	assert.False(t, found, "entry must never be served past its TTL")
}

func TestMemoryCacheWorkspaceInvalidation(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	c.Set(ctx, "ws-1", "refund policy", 5, []store.RetrievedChunk{{ID: "c1"}}, DefaultTTL)
	c.Set(ctx, "ws-1", "shipping times", 5, []store.RetrievedChunk{{ID: "c2"}}, DefaultTTL)
	c.Set(ctx, "ws-2", "refund policy", 5, []store.RetrievedChunk{{ID: "c3"}}, DefaultTTL)

	assert.NoError(t, c.InvalidateWorkspace(ctx, "ws-1"))

	_, found := c.Get(ctx, "ws-1", "refund policy", 5)
	assert.False(t, found)
	_, found = c.Get(ctx, "ws-1", "shipping times", 5)
	assert.False(t, found)

	_, found = c.Get(ctx, "ws-2", "refund policy", 5)
	assert.True(t, found, "other workspaces must be untouched")
}
