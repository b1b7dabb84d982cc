package dto

import (
	"github.com/google/uuid"
)

// IngestDocumentRequest submits (or re-submits) one document for indexing.
// Omitting DocumentId assigns a fresh one.
type IngestDocumentRequest struct {
	DocumentId *uuid.UUID `json:"document_id,omitempty"`
	Title      string     `json:"title" validate:"required,min=1,max=200"`
	Content    string     `json:"content" validate:"required,min=1"`
}

type IngestDocumentResponse struct {
	DocumentId uuid.UUID `json:"document_id"`
}

// PublishEmbedDocumentMessage is the internal queue payload for the indexing
// worker. Content travels in the message because documents themselves are
// not stored, only their chunks.
type PublishEmbedDocumentMessage struct {
	DocumentId  uuid.UUID `json:"document_id"`
	WorkspaceId uuid.UUID `json:"workspace_id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
}

type DeleteDocumentRequest struct {
	DocumentId uuid.UUID `json:"document_id" validate:"required"`
}
