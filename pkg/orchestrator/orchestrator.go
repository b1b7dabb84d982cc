package orchestrator

import (
	"context"
	"time"

	"support-chat-be/internal/dto"
	"support-chat-be/internal/pkg/logger"
	"support-chat-be/pkg/budget"
	"support-chat-be/pkg/llm"
	"support-chat-be/pkg/ratelimit"
	"support-chat-be/pkg/retrieval"
	"support-chat-be/pkg/store"
	"support-chat-be/pkg/synthesis"

	"github.com/google/uuid"
)

// answerReserveTokens is added to the prompt estimate during the budget
// check so an admitted query cannot be starved of its answer.
const answerReserveTokens = 500

// historyWindow bounds how many prior messages are replayed into the prompt.
const historyWindow = 10

// Limits are the resolved admission limits of one workspace.
type Limits struct {
	RequestsPerMinute int
	RateWindow        time.Duration
	DailyTokens       int64
	MonthlyTokens     int64
}

// LimitResolver yields per-workspace limits (quota row or config defaults).
type LimitResolver interface {
	Resolve(ctx context.Context, workspaceId uuid.UUID) Limits
}

// AdmissionGate is the sliding-window rate limiter.
type AdmissionGate interface {
	Check(ctx context.Context, identifier string, limit int, window time.Duration) ratelimit.Result
}

// BudgetGate tracks token spend per workspace.
type BudgetGate interface {
	Check(ctx context.Context, workspaceId uuid.UUID, requestedTokens int64, dailyLimit, monthlyLimit int64) budget.CheckResult
	Consume(ctx context.Context, workspaceId uuid.UUID, tokensUsed int64) error
}

// Retriever searches workspace chunks for a query.
type Retriever interface {
	Search(ctx context.Context, workspaceId uuid.UUID, query string, topK int) (*retrieval.Result, error)
}

// Synthesizer produces the grounded answer.
type Synthesizer interface {
	Generate(ctx context.Context, query string, chunks []store.RetrievedChunk, history []llm.Message, tone string) *synthesis.Result
}

// SessionStore is the in-memory conversation state.
type SessionStore interface {
	Create(workspaceId string) *store.QuerySession
	Get(sessionID, workspaceId string) (*store.QuerySession, bool)
	Touch(session *store.QuerySession, activity string)
	SavePartial(sessionID, content string)
	GetPartial(sessionID string) (*store.PartialMessage, bool)
	ClearPartial(sessionID string)
}

// MessageRecorder persists the exchange and replays history for the prompt.
type MessageRecorder interface {
	RecordExchange(ctx context.Context, workspaceId, sessionId uuid.UUID, query string, result *synthesis.Result, sources []store.RetrievedChunk) error
	History(ctx context.Context, workspaceId, sessionId uuid.UUID, limit int) ([]llm.Message, error)
}

// Request is one admitted-or-rejected user query.
type Request struct {
	WorkspaceID uuid.UUID
	Query       string
	SessionID   *uuid.UUID
	TopK        int
	Tone        string
}

// Response is the full pipeline outcome for the synchronous path.
type Response struct {
	Answer       string
	Sources      []store.RetrievedChunk
	SessionID    uuid.UUID
	Confidence   string
	TokensUsed   int
	ResponseTime time.Duration
	Degraded     bool
}

// Orchestrator runs the admission -> retrieval -> synthesis pipeline.
type Orchestrator struct {
	limiter   AdmissionGate
	budget    BudgetGate
	sessions  SessionStore
	retriever Retriever
	generator Synthesizer
	recorder  MessageRecorder
	limits    LimitResolver
	logger    logger.ILogger
}

func New(
	limiter AdmissionGate,
	budgetGate BudgetGate,
	sessions SessionStore,
	retriever Retriever,
	generator Synthesizer,
	recorder MessageRecorder,
	limits LimitResolver,
	log logger.ILogger,
) *Orchestrator {
	return &Orchestrator{
		limiter:   limiter,
		budget:    budgetGate,
		sessions:  sessions,
		retriever: retriever,
		generator: generator,
		recorder:  recorder,
		limits:    limits,
		logger:    log,
	}
}

// Process runs one query through the full pipeline. Only admission failures
// return errors; every downstream failure degrades into a best-effort answer.
func (o *Orchestrator) Process(ctx context.Context, req *Request) (*Response, error) {
	started := time.Now()

	session, err := o.admit(ctx, req)
	if err != nil {
		return nil, err
	}

	history := o.loadHistory(ctx, req.WorkspaceID, session)

	chunks, degraded := o.retrieve(ctx, req)

	result := o.generator.Generate(ctx, req.Query, chunks, history, req.Tone)
	degraded = degraded || result.Fallback

	o.finish(ctx, req, session, result, chunks)

	return &Response{
		Answer:       result.Answer,
		Sources:      chunks,
		SessionID:    uuid.MustParse(session.ID),
		Confidence:   result.Confidence,
		TokensUsed:   result.TokensUsed,
		ResponseTime: time.Since(started),
		Degraded:     degraded,
	}, nil
}

// admit runs both admission gates and resolves the session. Both denial
// errors carry the full window/budget state for the client payload.
func (o *Orchestrator) admit(ctx context.Context, req *Request) (*store.QuerySession, error) {
	limits := o.limits.Resolve(ctx, req.WorkspaceID)

	rate := o.limiter.Check(ctx, req.WorkspaceID.String(), limits.RequestsPerMinute, limits.RateWindow)
	if !rate.Allowed {
		return nil, &dto.RateLimitExceededError{
			Limit:      rate.Limit,
			Remaining:  rate.Remaining,
			RetryAfter: rate.RetryAfter,
			ResetAfter: rate.ResetAfter,
		}
	}

	estimated := int64(synthesis.EstimateTokens(req.Query)) + answerReserveTokens
	budgetRes := o.budget.Check(ctx, req.WorkspaceID, estimated, limits.DailyTokens, limits.MonthlyTokens)
	if !budgetRes.WithinBudget {
		return nil, &dto.BudgetExceededError{
			DailyLimit:       budgetRes.DailyLimit,
			DailyUsed:        budgetRes.DailyUsed,
			DailyRemaining:   budgetRes.DailyRemaining,
			MonthlyLimit:     budgetRes.MonthlyLimit,
			MonthlyUsed:      budgetRes.MonthlyUsed,
			MonthlyRemaining: budgetRes.MonthlyRemaining,
			ResetAfter:       budgetRes.ResetAfter,
		}
	}

	return o.resolveSession(req), nil
}

// resolveSession returns the existing session or silently creates a fresh
// one; an expired or foreign session id must not fail the query.
func (o *Orchestrator) resolveSession(req *Request) *store.QuerySession {
	ws := req.WorkspaceID.String()
	if req.SessionID != nil {
		if session, found := o.sessions.Get(req.SessionID.String(), ws); found {
			return session
		}
	}
	return o.sessions.Create(ws)
}

func (o *Orchestrator) loadHistory(ctx context.Context, workspaceId uuid.UUID, session *store.QuerySession) []llm.Message {
	sessionId, err := uuid.Parse(session.ID)
	if err != nil {
		return nil
	}
	history, err := o.recorder.History(ctx, workspaceId, sessionId, historyWindow)
	if err != nil {
		o.logger.Warn("Orchestrator", "History load failed, answering without it", map[string]interface{}{
			"session_id": session.ID,
			"error":      err.Error(),
		})
		return nil
	}
	return history
}

// retrieve never fails the pipeline: an embedding or store error yields an
// empty chunk list and the degraded flag.
func (o *Orchestrator) retrieve(ctx context.Context, req *Request) ([]store.RetrievedChunk, bool) {
	res, err := o.retriever.Search(ctx, req.WorkspaceID, req.Query, req.TopK)
	if err != nil {
		o.logger.Error("Orchestrator", "Retrieval failed, degrading", map[string]interface{}{
			"workspace_id": req.WorkspaceID.String(),
			"error":        err.Error(),
		})
		return nil, true
	}
	return res.Chunks, res.Degraded
}

// finish persists the exchange, records the spend and touches the session.
// All of it is best-effort: the answer is already produced.
func (o *Orchestrator) finish(ctx context.Context, req *Request, session *store.QuerySession, result *synthesis.Result, chunks []store.RetrievedChunk) {
	sessionId, err := uuid.Parse(session.ID)
	if err == nil {
		if err := o.recorder.RecordExchange(ctx, req.WorkspaceID, sessionId, req.Query, result, chunks); err != nil {
			o.logger.Error("Orchestrator", "Failed to persist exchange", map[string]interface{}{
				"session_id": session.ID,
				"error":      err.Error(),
			})
		}
	}

	if err := o.budget.Consume(ctx, req.WorkspaceID, int64(result.TokensUsed)); err != nil {
		o.logger.Warn("Orchestrator", "Failed to record token spend", map[string]interface{}{
			"workspace_id": req.WorkspaceID.String(),
		})
	}

	o.sessions.Touch(session, store.ActivityQuery)
}
