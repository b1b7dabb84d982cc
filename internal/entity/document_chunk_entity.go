package entity

import (
	"time"

	"github.com/google/uuid"
)

// DocumentChunk is one indexed segment of a workspace document, carrying
// its embedding for similarity search. WorkspaceId is denormalized onto the
// chunk so the store itself can enforce tenant isolation.
type DocumentChunk struct {
	Id             uuid.UUID `gorm:"type:uuid;primaryKey"`
	DocumentId     uuid.UUID `gorm:"type:uuid;index"`
	WorkspaceId    uuid.UUID `gorm:"type:uuid;index"`
	Content        string
	SectionTitle   string
	ChunkIndex     int
	EmbeddingValue []float32
	CreatedAt      time.Time
	UpdatedAt      *time.Time
	DeletedAt      *time.Time
	IsDeleted      bool
}
