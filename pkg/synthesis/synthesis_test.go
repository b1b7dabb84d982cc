package synthesis

import (
	"context"
	"errors"
	"strings"
	"testing"

	"support-chat-be/internal/constant"
	"support-chat-be/pkg/llm"
	"support-chat-be/pkg/store"

	"github.com/stretchr/testify/assert"
)

type nopLogger struct{}

func (nopLogger) Debug(string, string, map[string]interface{}) {}
func (nopLogger) Info(string, string, map[string]interface{})  {}
func (nopLogger) Warn(string, string, map[string]interface{})  {}
func (nopLogger) Error(string, string, map[string]interface{}) {}
func (nopLogger) Sync() error                                  { return nil }

type stubProvider struct {
	answer string
	err    error
	gotMsg []llm.Message
}

func (s *stubProvider) Chat(_ context.Context, history []llm.Message, _ ...llm.Option) (string, error) {
	s.gotMsg = history
	return s.answer, s.err
}

func (s *stubProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return s.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, opts...)
}

func chunkWithScore(id string, score float64) store.RetrievedChunk {
	return store.RetrievedChunk{
		ID:           id,
		DocumentID:   "doc-1",
		Excerpt:      "refunds are processed within 30 days",
		Score:        score,
		SectionTitle: "Refunds",
	}
}

func TestScoreConfidence(t *testing.T) {
	tests := []struct {
		name   string
		answer string
		chunks []store.RetrievedChunk
		want   string
	}{
		{"no chunks", "an answer", nil, constant.ConfidenceLow},
		{
			"uncertainty overrides strong evidence",
			"I don't know the refund window.",
			[]store.RetrievedChunk{chunkWithScore("c1", 0.95), chunkWithScore("c2", 0.9)},
			constant.ConfidenceLow,
		},
		{
			"two strong chunks",
			"Refunds take 30 days.",
			[]store.RetrievedChunk{chunkWithScore("c1", 0.95), chunkWithScore("c2", 0.81)},
			constant.ConfidenceHigh,
		},
		{
			"one strong chunk",
			"Refunds take 30 days.",
			[]store.RetrievedChunk{chunkWithScore("c1", 0.95), chunkWithScore("c2", 0.5)},
			constant.ConfidenceMedium,
		},
		{
			"only weak chunks",
			"Refunds take 30 days.",
			[]store.RetrievedChunk{chunkWithScore("c1", 0.4)},
			constant.ConfidenceLow,
		},
		{
			"threshold is strict",
			"Refunds take 30 days.",
			[]store.RetrievedChunk{chunkWithScore("c1", 0.8)},
			constant.ConfidenceLow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ScoreConfidence(tt.answer, tt.chunks))
		})
	}
}

func TestFallbackAnswer(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		hasContext bool
		want       string
	}{
		{"greeting", "Hello!", false, constant.FallbackGreeting},
		{"greeting with tail", "hi there", false, constant.FallbackGreeting},
		{"thanks", "thank you", true, constant.FallbackThanks},
		{"farewell", "bye", true, constant.FallbackFarewell},
		{"question without context", "what is the refund policy?", false, constant.FallbackNoContext},
		{"question with context", "what is the refund policy?", true, constant.FallbackGeneric},
		{"word prefix is not a greeting", "history of the product", true, constant.FallbackGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FallbackAnswer(tt.query, tt.hasContext))
		})
	}
}

func TestBuildContext(t *testing.T) {
	chunks := []store.RetrievedChunk{
		chunkWithScore("c1", 0.9),
		{ID: "c2", DocumentID: "doc-2", Excerpt: "contact support via chat", Score: 0.7},
	}

	out := BuildContext(chunks, 0)

	assert.Contains(t, out, "[chunk:c1|doc:doc-1|Refunds]")
	assert.Contains(t, out, "[chunk:c2|doc:doc-2|untitled]", "missing section falls back to untitled")
	assert.Contains(t, out, "refunds are processed within 30 days")
}

func TestBuildContextBudget(t *testing.T) {
	chunks := []store.RetrievedChunk{
		{ID: "c1", DocumentID: "d", Excerpt: strings.Repeat("a", 100), SectionTitle: "s"},
		{ID: "c2", DocumentID: "d", Excerpt: strings.Repeat("b", 100), SectionTitle: "s"},
	}

	out := BuildContext(chunks, 150)

	assert.Contains(t, out, "chunk:c1")
	assert.NotContains(t, out, "chunk:c2", "chunks past the budget are dropped whole")
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("abc"))
	assert.Equal(t, 1, EstimateTokens("abcd"))
	assert.Equal(t, 2, EstimateTokens("abcde"))
}

func TestNormalizeTone(t *testing.T) {
	assert.Equal(t, constant.ToneFormal, NormalizeTone("Formal"))
	assert.Equal(t, constant.ToneFriendly, NormalizeTone(""))
	assert.Equal(t, constant.ToneFriendly, NormalizeTone("sarcastic"))
}

func TestGenerateUsesModelAnswer(t *testing.T) {
	provider := &stubProvider{answer: "Refunds take 30 days."}
	g := NewGenerator(provider, nopLogger{})

	chunks := []store.RetrievedChunk{chunkWithScore("c1", 0.95), chunkWithScore("c2", 0.9)}
	res := g.Generate(context.Background(), "what is the refund window?", chunks, nil, constant.ToneFriendly)

	assert.Equal(t, "Refunds take 30 days.", res.Answer)
	assert.Equal(t, constant.ConfidenceHigh, res.Confidence)
	assert.False(t, res.Fallback)
	assert.Greater(t, res.TokensUsed, 0)

	first := provider.gotMsg[0]
	assert.Equal(t, constant.ChatMessageRoleSystem, first.Role)
	assert.Contains(t, first.Content, constant.TonePresets[constant.ToneFriendly])

	last := provider.gotMsg[len(provider.gotMsg)-1]
	assert.Contains(t, last.Content, "[chunk:c1|doc:doc-1|Refunds]")
	assert.Contains(t, last.Content, "what is the refund window?")
}

func TestGenerateFallsBackOnError(t *testing.T) {
	provider := &stubProvider{err: errors.New("connection refused")}
	g := NewGenerator(provider, nopLogger{})

	res := g.Generate(context.Background(), "what is the refund window?", []store.RetrievedChunk{chunkWithScore("c1", 0.9)}, nil, "")

	assert.True(t, res.Fallback)
	assert.Equal(t, constant.FallbackGeneric, res.Answer)
	assert.Equal(t, constant.ConfidenceLow, res.Confidence)
}

func TestGenerateFallsBackOnEmptyAnswer(t *testing.T) {
	provider := &stubProvider{answer: "   "}
	g := NewGenerator(provider, nopLogger{})

	res := g.Generate(context.Background(), "hello", nil, nil, "")

	assert.True(t, res.Fallback)
	assert.Equal(t, constant.FallbackGreeting, res.Answer)
}
