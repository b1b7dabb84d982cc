package service

import (
	"context"
	"strings"

	"support-chat-be/internal/pkg/logger"
	"support-chat-be/pkg/events"
	pktNats "support-chat-be/pkg/nats"
	"support-chat-be/pkg/retrieval"

	"github.com/google/uuid"
)

// InvalidationService listens for document lifecycle events on the bus and
// drops the owning workspace's search cache. Indexing that happened in
// another process still invalidates the cache this instance serves from.
type InvalidationService struct {
	subscriber *pktNats.Subscriber
	engine     *retrieval.Engine
	logger     logger.ILogger
}

func NewInvalidationService(sub *pktNats.Subscriber, engine *retrieval.Engine, log logger.ILogger) *InvalidationService {
	return &InvalidationService{
		subscriber: sub,
		engine:     engine,
		logger:     log,
	}
}

// Start begins listening to the event bus.
func (s *InvalidationService) Start() {
	err := s.subscriber.Subscribe("events.>", "cache-invalidation-worker", s.handleEvent)
	if err != nil {
		s.logger.Error("InvalidationService", "Failed to start invalidation subscriber", map[string]interface{}{"error": err})
		return
	}
	s.logger.Info("InvalidationService", "Invalidation service started, listening to events.>", nil)
}

func (s *InvalidationService) handleEvent(ctx context.Context, event events.Event) error {
	// NATS subject includes the stream prefix
	typeCode := strings.TrimPrefix(event.EventType(), "events.")

	switch typeCode {
	case events.TypeDocumentIndexed, events.TypeDocumentDeleted:
	default:
		return nil
	}

	raw, _ := event.Payload()["workspace_id"].(string)
	workspaceId, err := uuid.Parse(raw)
	if err != nil {
		s.logger.Warn("InvalidationService", "Event missing workspace_id, skipping", map[string]interface{}{
			"type": typeCode,
		})
		return nil
	}

	if err := s.engine.Invalidate(ctx, workspaceId); err != nil {
		s.logger.Warn("InvalidationService", "Cache invalidation failed", map[string]interface{}{
			"workspace_id": workspaceId.String(),
			"error":        err.Error(),
		})
	}
	return nil
}
