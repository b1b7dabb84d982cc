package synthesis

import (
	"fmt"
	"strings"

	"support-chat-be/pkg/store"
)

// DefaultContextBudget caps the reference material injected into the prompt.
const DefaultContextBudget = 6000

// BuildContext renders retrieved chunks as reference material for the prompt.
// Each chunk carries a source token so persisted sources can be traced back,
// the model itself is instructed never to echo the tokens.
func BuildContext(chunks []store.RetrievedChunk, maxChars int) string {
	if maxChars <= 0 {
		maxChars = DefaultContextBudget
	}

	var b strings.Builder
	for _, chunk := range chunks {
		section := chunk.SectionTitle
		if section == "" {
			section = "untitled"
		}
		entry := fmt.Sprintf("[chunk:%s|doc:%s|%s]\n%s\n\n", chunk.ID, chunk.DocumentID, section, chunk.Excerpt)

		// Budget is enforced per whole chunk, a truncated excerpt would
		// invite the model to hallucinate the missing half.
		if b.Len()+len(entry) > maxChars {
			break
		}
		b.WriteString(entry)
	}

	return strings.TrimRight(b.String(), "\n")
}

// EstimateTokens approximates the model token count of a text. Providers do
// not expose tokenizers over their APIs, so 4 characters per token is used.
func EstimateTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	return (len(text) + 3) / 4
}
