package synthesis

import (
	"strings"

	"support-chat-be/internal/constant"
)

var (
	greetingWords = []string{"hi", "hello", "hey", "good morning", "good afternoon", "good evening"}
	thanksWords   = []string{"thanks", "thank you", "thx"}
	farewellWords = []string{"bye", "goodbye", "see you", "farewell"}
)

// FallbackAnswer is the rule-based path used when the language model is
// unavailable or returned garbage. Social intents get canned replies, real
// questions get an honest degradation notice.
func FallbackAnswer(query string, hasContext bool) string {
	q := strings.ToLower(strings.TrimSpace(query))
	q = strings.Trim(q, "!.?,")

	if matchesAny(q, greetingWords) {
		return constant.FallbackGreeting
	}
	if matchesAny(q, thanksWords) {
		return constant.FallbackThanks
	}
	if matchesAny(q, farewellWords) {
		return constant.FallbackFarewell
	}

	if !hasContext {
		return constant.FallbackNoContext
	}
	return constant.FallbackGeneric
}

func matchesAny(query string, phrases []string) bool {
	for _, phrase := range phrases {
		if query == phrase || strings.HasPrefix(query, phrase+" ") {
			return true
		}
	}
	return false
}
