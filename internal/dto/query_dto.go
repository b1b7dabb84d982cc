package dto

import (
	"time"

	"github.com/google/uuid"
)

type QueryRequest struct {
	Query     string     `json:"query" validate:"required,min=1,max=4000"`
	SessionId *uuid.UUID `json:"session_id,omitempty"`
	TopK      int        `json:"top_k,omitempty" validate:"omitempty,min=1,max=20"`
	Tone      string     `json:"tone,omitempty"` // formal | friendly | playful
}

type SourceDTO struct {
	ChunkId      string  `json:"chunk_id"`
	DocumentId   string  `json:"document_id"`
	Excerpt      string  `json:"excerpt"`
	Score        float64 `json:"score"`
	SectionTitle string  `json:"section_title,omitempty"`
}

type QueryResponse struct {
	Answer         string      `json:"answer"`
	Sources        []SourceDTO `json:"sources"`
	SessionId      uuid.UUID   `json:"session_id"`
	Confidence     string      `json:"confidence"` // low | medium | high
	TokensUsed     int         `json:"tokens_used"`
	ResponseTimeMs int64       `json:"response_time_ms"`
	Degraded       bool        `json:"degraded,omitempty"`
}

// StreamEventDTO is the wire shape of one orchestrator stream event.
type StreamEventDTO struct {
	Type     string                 `json:"type"` // start | searching | sources | generating | answer | end | error
	Content  string                 `json:"content,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

type CreateSessionResponse struct {
	Id uuid.UUID `json:"id"`
}

type EndSessionRequest struct {
	SessionId uuid.UUID `json:"session_id" validate:"required"`
}

type GetHistoryResponse struct {
	Id         uuid.UUID   `json:"id"`
	Role       string      `json:"role"`
	Content    string      `json:"content"`
	Confidence string      `json:"confidence,omitempty"`
	Sources    []SourceDTO `json:"sources,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}
