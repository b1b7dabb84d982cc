package service

import (
	"context"
	"time"
	"unicode/utf8"

	"support-chat-be/internal/dto"
	"support-chat-be/internal/entity"
	"support-chat-be/internal/pkg/logger"
	"support-chat-be/internal/repository/memory"
	"support-chat-be/internal/repository/specification"
	"support-chat-be/internal/repository/unitofwork"
	"support-chat-be/pkg/orchestrator"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// IQueryService is the admission + retrieval + synthesis surface exposed to
// the transport layer.
type IQueryService interface {
	ProcessQuery(ctx context.Context, workspaceId uuid.UUID, req *dto.QueryRequest) (*dto.QueryResponse, error)
	StreamQuery(ctx context.Context, workspaceId uuid.UUID, req *dto.QueryRequest) <-chan orchestrator.StreamEvent
	CreateSession(ctx context.Context, workspaceId uuid.UUID) (*dto.CreateSessionResponse, error)
	EndSession(ctx context.Context, workspaceId uuid.UUID, req *dto.EndSessionRequest) error
	GetChatHistory(ctx context.Context, workspaceId uuid.UUID, sessionId uuid.UUID) ([]*dto.GetHistoryResponse, error)
}

type queryService struct {
	orch        *orchestrator.Orchestrator
	sessionRepo *memory.SessionRepository
	uowFactory  unitofwork.RepositoryFactory
	logger      logger.ILogger
	defaultTopK int
}

func NewQueryService(
	orch *orchestrator.Orchestrator,
	sessionRepo *memory.SessionRepository,
	uowFactory unitofwork.RepositoryFactory,
	log logger.ILogger,
	defaultTopK int,
) IQueryService {
	return &queryService{
		orch:        orch,
		sessionRepo: sessionRepo,
		uowFactory:  uowFactory,
		logger:      log,
		defaultTopK: defaultTopK,
	}
}

func (s *queryService) ProcessQuery(ctx context.Context, workspaceId uuid.UUID, req *dto.QueryRequest) (*dto.QueryResponse, error) {
	resp, err := s.orch.Process(ctx, s.toPipelineRequest(workspaceId, req))
	if err != nil {
		return nil, err
	}

	sources := make([]dto.SourceDTO, len(resp.Sources))
	for i, c := range resp.Sources {
		sources[i] = dto.SourceDTO{
			ChunkId:      c.ID,
			DocumentId:   c.DocumentID,
			Excerpt:      c.Excerpt,
			Score:        c.Score,
			SectionTitle: c.SectionTitle,
		}
	}

	return &dto.QueryResponse{
		Answer:         resp.Answer,
		Sources:        sources,
		SessionId:      resp.SessionID,
		Confidence:     resp.Confidence,
		TokensUsed:     resp.TokensUsed,
		ResponseTimeMs: resp.ResponseTime.Milliseconds(),
		Degraded:       resp.Degraded,
	}, nil
}

func (s *queryService) StreamQuery(ctx context.Context, workspaceId uuid.UUID, req *dto.QueryRequest) <-chan orchestrator.StreamEvent {
	return s.orch.ProcessStream(ctx, s.toPipelineRequest(workspaceId, req))
}

func (s *queryService) toPipelineRequest(workspaceId uuid.UUID, req *dto.QueryRequest) *orchestrator.Request {
	topK := req.TopK
	if topK <= 0 {
		topK = s.defaultTopK
	}
	return &orchestrator.Request{
		WorkspaceID: workspaceId,
		Query:       req.Query,
		SessionID:   req.SessionId,
		TopK:        topK,
		Tone:        req.Tone,
	}
}

func (s *queryService) CreateSession(ctx context.Context, workspaceId uuid.UUID) (*dto.CreateSessionResponse, error) {
	session := s.sessionRepo.Create(workspaceId.String())
	return &dto.CreateSessionResponse{Id: uuid.MustParse(session.ID)}, nil
}

func (s *queryService) EndSession(ctx context.Context, workspaceId uuid.UUID, req *dto.EndSessionRequest) error {
	if _, found := s.sessionRepo.Get(req.SessionId.String(), workspaceId.String()); !found {
		return fiber.NewError(fiber.StatusNotFound, "session not found")
	}
	s.sessionRepo.End(req.SessionId.String())
	return nil
}

func (s *queryService) GetChatHistory(ctx context.Context, workspaceId uuid.UUID, sessionId uuid.UUID) ([]*dto.GetHistoryResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	messages, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.WorkspaceOwnedBy{WorkspaceID: workspaceId},
		specification.ByChatSessionID{ChatSessionID: sessionId},
		specification.OrderBy{Field: "created_at"},
	)
	if err != nil {
		return nil, err
	}

	history := make([]*dto.GetHistoryResponse, len(messages))
	for i, msg := range messages {
		sources := make([]dto.SourceDTO, len(msg.Sources))
		for j, src := range msg.Sources {
			sources[j] = dto.SourceDTO{
				ChunkId:      src.ChunkId,
				DocumentId:   src.DocumentId,
				Excerpt:      src.Excerpt,
				Score:        src.Score,
				SectionTitle: src.SectionTitle,
			}
		}
		history[i] = &dto.GetHistoryResponse{
			Id:         msg.Id,
			Role:       msg.Role,
			Content:    msg.Content,
			Confidence: msg.Confidence,
			Sources:    sources,
			CreatedAt:  msg.CreatedAt,
		}
	}
	return history, nil
}

// ensureSessionRow creates the durable session row when the first exchange
// of an implicit session is recorded.
func ensureSessionRow(ctx context.Context, uow unitofwork.UnitOfWork, workspaceId, sessionId uuid.UUID, firstQuery string) error {
	existing, err := uow.ChatSessionRepository().FindOne(ctx,
		specification.ByID{ID: sessionId},
		specification.WorkspaceOwnedBy{WorkspaceID: workspaceId},
	)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	title := truncateTitle(firstQuery, 80)
	return uow.ChatSessionRepository().Create(ctx, &entity.ChatSession{
		Id:          sessionId,
		WorkspaceId: workspaceId,
		Title:       title,
		CreatedAt:   time.Now(),
	})
}

// truncateTitle caps the title at max bytes without splitting a rune.
func truncateTitle(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
