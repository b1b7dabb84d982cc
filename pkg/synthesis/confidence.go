package synthesis

import (
	"strings"

	"support-chat-be/internal/constant"
	"support-chat-be/pkg/store"
)

// highScoreThreshold marks a chunk as strong supporting evidence.
const highScoreThreshold = 0.8

// ScoreConfidence grades an answer by the strength of its supporting chunks.
// An uncertain answer is low confidence no matter how good the retrieval was.
func ScoreConfidence(answer string, chunks []store.RetrievedChunk) string {
	if len(chunks) == 0 {
		return constant.ConfidenceLow
	}

	lowered := strings.ToLower(answer)
	for _, phrase := range constant.UncertaintyPhrases {
		if strings.Contains(lowered, phrase) {
			return constant.ConfidenceLow
		}
	}

	strong := 0
	for _, chunk := range chunks {
		if chunk.Score > highScoreThreshold {
			strong++
		}
	}

	switch {
	case strong >= 2:
		return constant.ConfidenceHigh
	case strong == 1:
		return constant.ConfidenceMedium
	default:
		return constant.ConfidenceLow
	}
}
