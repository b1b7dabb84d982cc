package synthesis

import (
	"context"
	"fmt"
	"strings"

	"support-chat-be/internal/constant"
	"support-chat-be/internal/pkg/logger"
	"support-chat-be/pkg/llm"
	"support-chat-be/pkg/store"
)

// Result is the outcome of one answer synthesis.
type Result struct {
	Answer     string
	Confidence string
	TokensUsed int
	Fallback   bool
}

// Generator turns retrieved chunks and chat history into a grounded answer.
type Generator struct {
	llmProvider llm.LLMProvider
	logger      logger.ILogger
}

func NewGenerator(llmProvider llm.LLMProvider, logger logger.ILogger) *Generator {
	return &Generator{
		llmProvider: llmProvider,
		logger:      logger,
	}
}

// Generate produces an answer from the grounded context. It never returns an
// error: when the model fails, the rule-based fallback answers instead and
// the result is flagged so callers can mark the response degraded.
func (g *Generator) Generate(
	ctx context.Context,
	query string,
	chunks []store.RetrievedChunk,
	history []llm.Message,
	tone string,
) *Result {
	systemPrompt := g.buildSystemPrompt(tone)
	userPrompt := g.buildUserPrompt(query, chunks)

	messages := make([]llm.Message, 0, len(history)+2*len(constant.DefaultFewShots)+2)
	messages = append(messages, llm.Message{Role: constant.ChatMessageRoleSystem, Content: systemPrompt})
	for _, shot := range constant.DefaultFewShots {
		messages = append(messages,
			llm.Message{Role: constant.ChatMessageRoleUser, Content: shot.Question},
			llm.Message{Role: "assistant", Content: shot.Answer},
		)
	}
	messages = append(messages, history...)
	messages = append(messages, llm.Message{Role: constant.ChatMessageRoleUser, Content: userPrompt})

	promptTokens := 0
	for _, m := range messages {
		promptTokens += EstimateTokens(m.Content)
	}

	answer, err := g.llmProvider.Chat(ctx, messages, llm.WithTemperature(0.3))
	if err != nil || strings.TrimSpace(answer) == "" {
		if err != nil {
			g.logger.Warn("synthesis", "llm generation failed, using fallback", map[string]interface{}{
				"error": err.Error(),
			})
		}
		fallback := FallbackAnswer(query, len(chunks) > 0)
		return &Result{
			Answer:     fallback,
			Confidence: constant.ConfidenceLow,
			TokensUsed: promptTokens + EstimateTokens(fallback),
			Fallback:   true,
		}
	}

	return &Result{
		Answer:     answer,
		Confidence: ScoreConfidence(answer, chunks),
		TokensUsed: promptTokens + EstimateTokens(answer),
	}
}

func (g *Generator) buildSystemPrompt(tone string) string {
	var b strings.Builder
	b.WriteString(constant.PersonaInstruction)
	b.WriteString("\n\nTONE: ")
	b.WriteString(constant.TonePresets[NormalizeTone(tone)])
	return b.String()
}

func (g *Generator) buildUserPrompt(query string, chunks []store.RetrievedChunk) string {
	var b strings.Builder

	if len(chunks) > 0 {
		b.WriteString("<reference_material>\n")
		b.WriteString(BuildContext(chunks, DefaultContextBudget))
		b.WriteString("\n</reference_material>\n\n")
	} else {
		b.WriteString("<reference_material>\n(no matching documentation was found)\n</reference_material>\n\n")
	}

	b.WriteString(fmt.Sprintf("Question: %s", query))
	return b.String()
}

// NormalizeTone maps unknown or empty tones to the friendly default.
func NormalizeTone(tone string) string {
	t := strings.ToLower(strings.TrimSpace(tone))
	if _, ok := constant.TonePresets[t]; ok {
		return t
	}
	return constant.ToneFriendly
}
