package constant

const (
	ChatMessageRoleUser   = "user"
	ChatMessageRoleModel  = "model"
	ChatMessageRoleSystem = "system"

	ConfidenceLow    = "low"
	ConfidenceMedium = "medium"
	ConfidenceHigh   = "high"

	ToneFormal   = "formal"
	ToneFriendly = "friendly"
	TonePlayful  = "playful"

	// PersonaInstruction anchors every generation. The grounding rules mirror
	// the retrieval contract: answer ONLY from the cited context.
	PersonaInstruction = `You are a support assistant answering customer questions for one workspace.

RULES (follow, don't explain):
1. Answer ONLY from the reference material below. No outside knowledge.
2. Keep citations implicit - the system attaches sources separately. Never
   emit bracket tokens like [chunk:...] in your answer.
3. If the material doesn't cover the question, say you don't have that
   information and suggest what the user could ask instead.
4. Answer directly in 2-5 sentences unless the user asks for detail.`
)

// TonePresets are appended to the persona instruction. Unrecognized tones
// normalize to friendly before lookup.
var TonePresets = map[string]string{
	ToneFormal:   "Use a professional, precise tone. No exclamation marks, no emoji.",
	ToneFriendly: "Use a warm, helpful tone. Plain language, short sentences.",
	TonePlayful:  "Use a light, upbeat tone. A little personality is fine, accuracy is not negotiable.",
}

// FewShotExchange is one illustrative Q/A pair injected into the prompt.
type FewShotExchange struct {
	Question string
	Answer   string
}

var DefaultFewShots = []FewShotExchange{
	{
		Question: "How do I reset my password?",
		Answer:   "Open Settings > Security and choose \"Reset password\". A confirmation link is emailed to you and stays valid for one hour.",
	},
	{
		Question: "Do you support SSO?",
		Answer:   "I don't have information about SSO in this workspace's documentation. You could ask about the available login methods instead.",
	},
}

// UncertaintyPhrases force confidence down to low when present in an answer.
var UncertaintyPhrases = []string{
	"i don't know",
	"i do not know",
	"i'm not sure",
	"i am not sure",
	"i don't have that information",
	"i don't have information",
	"no information about",
}

// Canned responses for the rule-based fallback path.
const (
	FallbackGreeting  = "Hello! I'm the support assistant for this workspace. Ask me anything about the product or documentation."
	FallbackThanks    = "You're welcome! Let me know if there's anything else I can help with."
	FallbackFarewell  = "Goodbye! Feel free to come back whenever you have more questions."
	FallbackGeneric   = "I'm having trouble generating a full answer right now. Could you ask me something specific about the product or its documentation?"
	FallbackNoContext = "I couldn't find anything in this workspace's documentation that covers your question. Try rephrasing it, or ask about a specific feature."
)
