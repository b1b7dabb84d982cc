package entity

import (
	"time"

	"github.com/google/uuid"
)

type ChatMessage struct {
	Id            uuid.UUID `gorm:"type:uuid;primaryKey"`
	Content       string
	Role          string
	ChatSessionId uuid.UUID `gorm:"type:uuid;index"`
	WorkspaceId   uuid.UUID `gorm:"type:uuid;index"`
	TokensUsed    int
	Confidence    string
	Sources       []MessageSource
	CreatedAt     time.Time
	UpdatedAt     *time.Time
	DeletedAt     *time.Time
	IsDeleted     bool
}

// MessageSource is a citation attached to a model message.
type MessageSource struct {
	ChunkId      string  `json:"chunk_id"`
	DocumentId   string  `json:"document_id"`
	Excerpt      string  `json:"excerpt"`
	Score        float64 `json:"score"`
	SectionTitle string  `json:"section_title,omitempty"`
}
