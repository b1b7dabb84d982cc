package service

import (
	"context"
	"time"

	"support-chat-be/internal/config"
	"support-chat-be/internal/constant"
	"support-chat-be/internal/entity"
	"support-chat-be/internal/pkg/logger"
	"support-chat-be/internal/repository/specification"
	"support-chat-be/internal/repository/unitofwork"
	"support-chat-be/pkg/llm"
	"support-chat-be/pkg/orchestrator"
	"support-chat-be/pkg/store"
	"support-chat-be/pkg/synthesis"

	"github.com/google/uuid"
)

// limitResolver merges the workspace_quotas row with config defaults.
// A zero field on the row means "use the default", negative means unlimited.
type limitResolver struct {
	uowFactory unitofwork.RepositoryFactory
	defaults   config.LimitConfig
	logger     logger.ILogger
}

var _ orchestrator.LimitResolver = &limitResolver{}

func NewLimitResolver(uowFactory unitofwork.RepositoryFactory, defaults config.LimitConfig, log logger.ILogger) orchestrator.LimitResolver {
	return &limitResolver{
		uowFactory: uowFactory,
		defaults:   defaults,
		logger:     log,
	}
}

func (r *limitResolver) Resolve(ctx context.Context, workspaceId uuid.UUID) orchestrator.Limits {
	limits := orchestrator.Limits{
		RequestsPerMinute: r.defaults.RequestsPerMinute,
		RateWindow:        time.Duration(r.defaults.RateWindowSeconds) * time.Second,
		DailyTokens:       r.defaults.DailyTokenLimit,
		MonthlyTokens:     r.defaults.MonthlyTokenLimit,
	}

	uow := r.uowFactory.NewUnitOfWork(ctx)
	quota, err := uow.WorkspaceQuotaRepository().FindByWorkspaceId(ctx, workspaceId)
	if err != nil {
		r.logger.Warn("LimitResolver", "Quota lookup failed, using defaults", map[string]interface{}{
			"workspace_id": workspaceId.String(),
			"error":        err.Error(),
		})
		return limits
	}
	if quota == nil {
		return limits
	}

	if quota.RequestsPerMinute != 0 {
		limits.RequestsPerMinute = quota.RequestsPerMinute
	}
	if quota.DailyTokenLimit != 0 {
		limits.DailyTokens = quota.DailyTokenLimit
	}
	if quota.MonthlyTokenLimit != 0 {
		limits.MonthlyTokens = quota.MonthlyTokenLimit
	}
	return limits
}

// messageRecorder persists exchanges and replays history through the
// unit-of-work layer.
type messageRecorder struct {
	uowFactory unitofwork.RepositoryFactory
	logger     logger.ILogger
}

var _ orchestrator.MessageRecorder = &messageRecorder{}

func NewMessageRecorder(uowFactory unitofwork.RepositoryFactory, log logger.ILogger) orchestrator.MessageRecorder {
	return &messageRecorder{
		uowFactory: uowFactory,
		logger:     log,
	}
}

// RecordExchange writes the user query and the model answer as one
// transaction so history never shows a question without its answer.
func (r *messageRecorder) RecordExchange(
	ctx context.Context,
	workspaceId, sessionId uuid.UUID,
	query string,
	result *synthesis.Result,
	sources []store.RetrievedChunk,
) error {
	uow := r.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return err
	}

	if err := ensureSessionRow(ctx, uow, workspaceId, sessionId, query); err != nil {
		_ = uow.Rollback()
		return err
	}

	msgSources := make([]entity.MessageSource, len(sources))
	for i, c := range sources {
		msgSources[i] = entity.MessageSource{
			ChunkId:      c.ID,
			DocumentId:   c.DocumentID,
			Excerpt:      c.Excerpt,
			Score:        c.Score,
			SectionTitle: c.SectionTitle,
		}
	}

	messages := []*entity.ChatMessage{
		{
			Id:            uuid.New(),
			Content:       query,
			Role:          constant.ChatMessageRoleUser,
			ChatSessionId: sessionId,
			WorkspaceId:   workspaceId,
		},
		{
			Id:            uuid.New(),
			Content:       result.Answer,
			Role:          constant.ChatMessageRoleModel,
			ChatSessionId: sessionId,
			WorkspaceId:   workspaceId,
			TokensUsed:    result.TokensUsed,
			Confidence:    result.Confidence,
			Sources:       msgSources,
		},
	}

	if err := uow.ChatMessageRepository().CreateBulk(ctx, messages); err != nil {
		_ = uow.Rollback()
		return err
	}

	return uow.Commit()
}

// History replays the last N messages of a session in prompt order.
func (r *messageRecorder) History(ctx context.Context, workspaceId, sessionId uuid.UUID, limit int) ([]llm.Message, error) {
	uow := r.uowFactory.NewUnitOfWork(ctx)

	messages, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.WorkspaceOwnedBy{WorkspaceID: workspaceId},
		specification.ByChatSessionID{ChatSessionID: sessionId},
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: limit},
	)
	if err != nil {
		return nil, err
	}

	// Newest-first from the store, oldest-first for the prompt
	history := make([]llm.Message, len(messages))
	for i, msg := range messages {
		role := msg.Role
		if role == constant.ChatMessageRoleModel {
			role = "assistant"
		}
		history[len(messages)-1-i] = llm.Message{
			Role:    role,
			Content: msg.Content,
		}
	}
	return history, nil
}
