package specification

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WorkspaceOwnedBy scopes a query to one tenant. Every chat/chunk read goes
// through this filter.
type WorkspaceOwnedBy struct {
	WorkspaceID uuid.UUID
}

func (s WorkspaceOwnedBy) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("workspace_id = ?", s.WorkspaceID)
}

// ByChatSessionID filters messages by session
type ByChatSessionID struct {
	ChatSessionID uuid.UUID
}

func (s ByChatSessionID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("chat_session_id = ?", s.ChatSessionID)
}

// ByRole filters messages by role (user/model/system)
type ByRole struct {
	Role string
}

func (s ByRole) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("role = ?", s.Role)
}

// CreatedSince filters rows created at or after the given instant. Used by
// the budget tracker to recompute period usage on counter-cache miss.
type CreatedSince struct {
	Since time.Time
}

func (s CreatedSince) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("created_at >= ?", s.Since)
}

// ByDocumentID filters chunks by owning document
type ByDocumentID struct {
	DocumentID uuid.UUID
}

func (s ByDocumentID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("document_id = ?", s.DocumentID)
}
