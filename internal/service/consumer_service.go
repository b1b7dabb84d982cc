package service

import (
	"context"
	"encoding/json"
	"time"

	"support-chat-be/internal/dto"
	"support-chat-be/internal/entity"
	"support-chat-be/internal/pkg/logger"
	"support-chat-be/internal/repository/unitofwork"
	"support-chat-be/pkg/embedding"
	"support-chat-be/pkg/events"
	"support-chat-be/pkg/retrieval"
	"support-chat-be/pkg/utils"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

// Chunking parameters. ~1500 chars is roughly 375 tokens, comfortably below
// any embedding model's context limit; the overlap preserves boundary context.
const (
	chunkSize    = 1500
	chunkOverlap = 200
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService is the indexing worker: it chunks a submitted document,
// embeds every chunk and swaps the document's chunk set atomically.
type consumerService struct {
	pubSub            *gochannel.GoChannel
	topicName         string
	uowFactory        unitofwork.RepositoryFactory
	embeddingProvider embedding.EmbeddingProvider
	engine            *retrieval.Engine
	eventPublisher    EventPublisher
	logger            logger.ILogger
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	uowFactory unitofwork.RepositoryFactory,
	embeddingProvider embedding.EmbeddingProvider,
	engine *retrieval.Engine,
	eventPublisher EventPublisher,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		pubSub:            pubSub,
		topicName:         topicName,
		uowFactory:        uowFactory,
		embeddingProvider: embeddingProvider,
		engine:            engine,
		eventPublisher:    eventPublisher,
		logger:            log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.PublishEmbedDocumentMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error("Consumer", "Failed to unmarshal message", map[string]interface{}{
			"error": err.Error(),
		})
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	cs.logger.Info("Consumer", "Indexing document", map[string]interface{}{
		"document_id":  payload.DocumentId.String(),
		"workspace_id": payload.WorkspaceId.String(),
		"content_len":  len(payload.Content),
	})

	chunks := utils.SplitText(payload.Content, chunkSize, chunkOverlap)

	newChunks := make([]*entity.DocumentChunk, 0, len(chunks))
	for i, chunk := range chunks {
		res, err := cs.embeddingProvider.Generate(chunk, embedding.TaskRetrievalDocument)
		if err != nil {
			cs.logger.Error("Consumer", "Embedding failed for chunk", map[string]interface{}{
				"document_id": payload.DocumentId.String(),
				"chunk_index": i,
				"error":       err.Error(),
			})
			msg.Nack() // Retriable
			return
		}

		newChunks = append(newChunks, &entity.DocumentChunk{
			Id:             uuid.New(),
			DocumentId:     payload.DocumentId,
			WorkspaceId:    payload.WorkspaceId,
			Content:        chunk,
			SectionTitle:   payload.Title,
			ChunkIndex:     i,
			EmbeddingValue: res.Embedding.Values,
			CreatedAt:      time.Now(),
		})
	}

	uow := cs.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		cs.logger.Error("Consumer", "Failed to begin transaction", map[string]interface{}{
			"error": err.Error(),
		})
		msg.Nack()
		return
	}
	defer uow.Rollback()

	if err := uow.DocumentChunkRepository().DeleteByDocumentId(ctx, payload.DocumentId); err != nil {
		cs.logger.Error("Consumer", "Failed to delete old chunks", map[string]interface{}{
			"document_id": payload.DocumentId.String(),
			"error":       err.Error(),
		})
		msg.Nack()
		return
	}

	if len(newChunks) > 0 {
		if err := uow.DocumentChunkRepository().CreateBulk(ctx, newChunks); err != nil {
			cs.logger.Error("Consumer", "Failed to create chunks", map[string]interface{}{
				"document_id": payload.DocumentId.String(),
				"error":       err.Error(),
			})
			msg.Nack()
			return
		}
	}

	if err := uow.Commit(); err != nil {
		cs.logger.Error("Consumer", "Failed to commit transaction", map[string]interface{}{
			"error": err.Error(),
		})
		msg.Nack()
		return
	}

	// The chunk set changed, cached search results are now stale.
	if err := cs.engine.Invalidate(ctx, payload.WorkspaceId); err != nil {
		cs.logger.Warn("Consumer", "Cache invalidation failed after indexing", map[string]interface{}{
			"workspace_id": payload.WorkspaceId.String(),
			"error":        err.Error(),
		})
	}

	if cs.eventPublisher != nil {
		evt := events.BaseEvent{
			Type: events.TypeDocumentIndexed,
			Data: map[string]interface{}{
				"document_id":  payload.DocumentId,
				"workspace_id": payload.WorkspaceId,
				"chunk_count":  len(newChunks),
			},
			OccurredAt: time.Now(),
		}
		if err := cs.eventPublisher.Publish(ctx, evt); err != nil {
			cs.logger.Warn("Consumer", "Failed to publish indexed event", map[string]interface{}{
				"document_id": payload.DocumentId.String(),
				"error":       err.Error(),
			})
		}
	}

	cs.logger.Info("Consumer", "Document indexed", map[string]interface{}{
		"document_id": payload.DocumentId.String(),
		"chunks":      len(newChunks),
	})
	msg.Ack()
}
