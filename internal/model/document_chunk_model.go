package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type DocumentChunk struct {
	Id         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	DocumentId uuid.UUID `gorm:"type:uuid;not null;index"`
	// WorkspaceId is the mandatory server-side isolation filter.
	WorkspaceId  uuid.UUID `gorm:"type:uuid;not null;index"`
	Content      string    `gorm:"type:text"`
	SectionTitle string    `gorm:"type:text"`
	// ChunkIndex is the 0-based position within the source document.
	ChunkIndex int `gorm:"default:0"`
	// EmbeddingValue is 768-dimensional (Gemini text-embedding-004).
	EmbeddingValue pgvector.Vector `gorm:"type:vector(768)"`
	CreatedAt      time.Time       `gorm:"autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime"`
	DeletedAt      gorm.DeletedAt  `gorm:"index"`
}

func (DocumentChunk) TableName() string {
	return "document_chunks"
}
