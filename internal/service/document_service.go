package service

import (
	"context"
	"encoding/json"
	"time"

	"support-chat-be/internal/dto"
	"support-chat-be/internal/pkg/logger"
	"support-chat-be/internal/repository/unitofwork"
	"support-chat-be/pkg/events"
	"support-chat-be/pkg/retrieval"

	"github.com/google/uuid"
)

// EventPublisher pushes domain events onto the external bus. Nil-safe at the
// call sites: event delivery is auxiliary and never fails a request.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// IDocumentService manages the workspace knowledge base.
type IDocumentService interface {
	IngestDocument(ctx context.Context, workspaceId uuid.UUID, req *dto.IngestDocumentRequest) (*dto.IngestDocumentResponse, error)
	DeleteDocument(ctx context.Context, workspaceId uuid.UUID, req *dto.DeleteDocumentRequest) error
}

type documentService struct {
	uowFactory       unitofwork.RepositoryFactory
	publisherService IPublisherService
	eventPublisher   EventPublisher
	engine           *retrieval.Engine
	logger           logger.ILogger
}

func NewDocumentService(
	uowFactory unitofwork.RepositoryFactory,
	publisherService IPublisherService,
	eventPublisher EventPublisher,
	engine *retrieval.Engine,
	log logger.ILogger,
) IDocumentService {
	return &documentService{
		uowFactory:       uowFactory,
		publisherService: publisherService,
		eventPublisher:   eventPublisher,
		engine:           engine,
		logger:           log,
	}
}

// IngestDocument queues the document for asynchronous chunking + embedding.
// The caller gets the document id back immediately.
func (s *documentService) IngestDocument(ctx context.Context, workspaceId uuid.UUID, req *dto.IngestDocumentRequest) (*dto.IngestDocumentResponse, error) {
	documentId := uuid.New()
	if req.DocumentId != nil {
		documentId = *req.DocumentId
	}

	msgPayload := dto.PublishEmbedDocumentMessage{
		DocumentId:  documentId,
		WorkspaceId: workspaceId,
		Title:       req.Title,
		Content:     req.Content,
	}
	msgJson, err := json.Marshal(msgPayload)
	if err != nil {
		return nil, err
	}

	if err := s.publisherService.Publish(ctx, msgJson); err != nil {
		return nil, err
	}

	return &dto.IngestDocumentResponse{DocumentId: documentId}, nil
}

// DeleteDocument drops the document's chunks and flushes the workspace's
// cached search results so stale excerpts stop being served immediately.
func (s *documentService) DeleteDocument(ctx context.Context, workspaceId uuid.UUID, req *dto.DeleteDocumentRequest) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	if err := uow.DocumentChunkRepository().DeleteByDocumentId(ctx, req.DocumentId); err != nil {
		return err
	}

	if err := s.engine.Invalidate(ctx, workspaceId); err != nil {
		s.logger.Warn("DocumentService", "Cache invalidation failed after delete", map[string]interface{}{
			"workspace_id": workspaceId.String(),
			"error":        err.Error(),
		})
	}

	if s.eventPublisher != nil {
		evt := events.BaseEvent{
			Type: events.TypeDocumentDeleted,
			Data: map[string]interface{}{
				"document_id":  req.DocumentId,
				"workspace_id": workspaceId,
			},
			OccurredAt: time.Now(),
		}
		if err := s.eventPublisher.Publish(ctx, evt); err != nil {
			s.logger.Warn("DocumentService", "Failed to publish deletion event", map[string]interface{}{
				"document_id": req.DocumentId.String(),
				"error":       err.Error(),
			})
		}
	}

	return nil
}
