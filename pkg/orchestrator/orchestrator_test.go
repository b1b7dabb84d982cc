package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"support-chat-be/internal/dto"
	"support-chat-be/internal/repository/memory"
	"support-chat-be/pkg/budget"
	"support-chat-be/pkg/llm"
	"support-chat-be/pkg/ratelimit"
	"support-chat-be/pkg/retrieval"
	"support-chat-be/pkg/store"
	"support-chat-be/pkg/synthesis"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type nopLogger struct{}

func (nopLogger) Debug(string, string, map[string]interface{}) {}
func (nopLogger) Info(string, string, map[string]interface{})  {}
func (nopLogger) Warn(string, string, map[string]interface{})  {}
func (nopLogger) Error(string, string, map[string]interface{}) {}
func (nopLogger) Sync() error                                  { return nil }

type fakeLimiter struct {
	result ratelimit.Result
	calls  int
}

func (f *fakeLimiter) Check(context.Context, string, int, time.Duration) ratelimit.Result {
	f.calls++
	return f.result
}

type fakeBudget struct {
	result   budget.CheckResult
	consumed []int64
	checks   int
}

func (f *fakeBudget) Check(context.Context, uuid.UUID, int64, int64, int64) budget.CheckResult {
	f.checks++
	return f.result
}

func (f *fakeBudget) Consume(_ context.Context, _ uuid.UUID, tokens int64) error {
	f.consumed = append(f.consumed, tokens)
	return nil
}

type fakeRetriever struct {
	result *retrieval.Result
	err    error
	calls  int
}

func (f *fakeRetriever) Search(context.Context, uuid.UUID, string, int) (*retrieval.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeSynthesizer struct {
	result *synthesis.Result
	calls  int
}

func (f *fakeSynthesizer) Generate(context.Context, string, []store.RetrievedChunk, []llm.Message, string) *synthesis.Result {
	f.calls++
	return f.result
}

type fakeRecorder struct {
	history    []llm.Message
	historyErr error
	recorded   int
	recordErr  error
}

func (f *fakeRecorder) RecordExchange(context.Context, uuid.UUID, uuid.UUID, string, *synthesis.Result, []store.RetrievedChunk) error {
	f.recorded++
	return f.recordErr
}

func (f *fakeRecorder) History(context.Context, uuid.UUID, uuid.UUID, int) ([]llm.Message, error) {
	return f.history, f.historyErr
}

type fixedLimits struct{}

func (fixedLimits) Resolve(context.Context, uuid.UUID) Limits {
	return Limits{
		RequestsPerMinute: 30,
		RateWindow:        time.Minute,
		DailyTokens:       100000,
		MonthlyTokens:     2000000,
	}
}

type harness struct {
	orch      *Orchestrator
	limiter   *fakeLimiter
	budget    *fakeBudget
	sessions  *memory.SessionRepository
	retriever *fakeRetriever
	generator *fakeSynthesizer
	recorder  *fakeRecorder
}

func newHarness() *harness {
	h := &harness{
		limiter:  &fakeLimiter{result: ratelimit.Result{Allowed: true, Limit: 30, Remaining: 29}},
		budget:   &fakeBudget{result: budget.CheckResult{WithinBudget: true}},
		sessions: memory.NewSessionRepository(0),
		retriever: &fakeRetriever{result: &retrieval.Result{
			Chunks: []store.RetrievedChunk{
				{ID: "c1", DocumentID: "d1", Excerpt: "refunds within 30 days", Score: 0.9},
			},
		}},
		generator: &fakeSynthesizer{result: &synthesis.Result{
			Answer:     "Refunds take 30 days.",
			Confidence: "high",
			TokensUsed: 120,
		}},
		recorder: &fakeRecorder{},
	}
	h.orch = New(h.limiter, h.budget, h.sessions, h.retriever, h.generator, h.recorder, fixedLimits{}, nopLogger{})
	return h
}

func TestProcessHappyPath(t *testing.T) {
	h := newHarness()
	wsID := uuid.New()

	resp, err := h.orch.Process(context.Background(), &Request{WorkspaceID: wsID, Query: "refund window?"})

	assert.NoError(t, err)
	assert.Equal(t, "Refunds take 30 days.", resp.Answer)
	assert.Equal(t, "high", resp.Confidence)
	assert.Equal(t, 120, resp.TokensUsed)
	assert.Len(t, resp.Sources, 1)
	assert.False(t, resp.Degraded)
	assert.NotEqual(t, uuid.Nil, resp.SessionID)

	assert.Equal(t, 1, h.recorder.recorded)
	assert.Equal(t, []int64{120}, h.budget.consumed, "actual spend is recorded after generation")

	_, found := h.sessions.Get(resp.SessionID.String(), wsID.String())
	assert.True(t, found, "implicit session is created and kept")
}

func TestProcessRateLimited(t *testing.T) {
	h := newHarness()
	h.limiter.result = ratelimit.Result{Allowed: false, Limit: 30, RetryAfter: 12}

	_, err := h.orch.Process(context.Background(), &Request{WorkspaceID: uuid.New(), Query: "q"})

	var rateErr *dto.RateLimitExceededError
	assert.ErrorAs(t, err, &rateErr)
	assert.Equal(t, 12, rateErr.RetryAfter)

	assert.Equal(t, 0, h.budget.checks, "budget is not consulted after a rate denial")
	assert.Equal(t, 0, h.retriever.calls)
	assert.Equal(t, 0, h.generator.calls)
	assert.Empty(t, h.budget.consumed)
}

func TestProcessBudgetExceeded(t *testing.T) {
	h := newHarness()
	h.budget.result = budget.CheckResult{
		WithinBudget: false,
		DailyLimit:   10000,
		DailyUsed:    9500,
	}

	_, err := h.orch.Process(context.Background(), &Request{WorkspaceID: uuid.New(), Query: "q"})

	var budgetErr *dto.BudgetExceededError
	assert.ErrorAs(t, err, &budgetErr)
	assert.Equal(t, int64(9500), budgetErr.DailyUsed)

	assert.Equal(t, 0, h.retriever.calls)
	assert.Empty(t, h.budget.consumed, "a denied request must not consume budget")
}

func TestProcessReusesSession(t *testing.T) {
	h := newHarness()
	wsID := uuid.New()
	session := h.sessions.Create(wsID.String())
	sessionID := uuid.MustParse(session.ID)

	resp, err := h.orch.Process(context.Background(), &Request{
		WorkspaceID: wsID,
		Query:       "q",
		SessionID:   &sessionID,
	})

	assert.NoError(t, err)
	assert.Equal(t, sessionID, resp.SessionID)
}

func TestProcessExpiredSessionGetsFreshOne(t *testing.T) {
	h := newHarness()
	wsID := uuid.New()
	stale := uuid.New()

	resp, err := h.orch.Process(context.Background(), &Request{
		WorkspaceID: wsID,
		Query:       "q",
		SessionID:   &stale,
	})

	assert.NoError(t, err)
	assert.NotEqual(t, stale, resp.SessionID, "unknown session id yields a new session, not an error")
}

func TestProcessForeignSessionIsNotShared(t *testing.T) {
	h := newHarness()
	otherWs := h.sessions.Create(uuid.NewString())
	foreignID := uuid.MustParse(otherWs.ID)

	resp, err := h.orch.Process(context.Background(), &Request{
		WorkspaceID: uuid.New(),
		Query:       "q",
		SessionID:   &foreignID,
	})

	assert.NoError(t, err)
	assert.NotEqual(t, foreignID, resp.SessionID)
}

func TestProcessDegradesOnRetrievalError(t *testing.T) {
	h := newHarness()
	h.retriever.err = errors.New("embedding api down")
	h.generator.result = &synthesis.Result{Answer: "fallback", Confidence: "low", TokensUsed: 10, Fallback: true}

	resp, err := h.orch.Process(context.Background(), &Request{WorkspaceID: uuid.New(), Query: "q"})

	assert.NoError(t, err, "retrieval failure must not reject the query")
	assert.True(t, resp.Degraded)
	assert.Empty(t, resp.Sources)
	assert.Equal(t, "fallback", resp.Answer)
}

func TestProcessPersistFailureStillAnswers(t *testing.T) {
	h := newHarness()
	h.recorder.recordErr = errors.New("db down")

	resp, err := h.orch.Process(context.Background(), &Request{WorkspaceID: uuid.New(), Query: "q"})

	assert.NoError(t, err)
	assert.Equal(t, "Refunds take 30 days.", resp.Answer)
	assert.Equal(t, []int64{120}, h.budget.consumed, "spend is recorded even when persistence fails")
}

func collect(ch <-chan StreamEvent) []StreamEvent {
	var events []StreamEvent
	for ev := range ch {
		events = append(events, ev)
	}
	return events
}

func TestProcessStreamOrdering(t *testing.T) {
	h := newHarness()

	events := collect(h.orch.ProcessStream(context.Background(), &Request{WorkspaceID: uuid.New(), Query: "q"}))

	types := make([]string, len(events))
	for i, ev := range events {
		types[i] = ev.Type
	}
	assert.Equal(t, []string{EventStart, EventSearching, EventSources, EventGenerating, EventAnswer, EventEnd}, types)

	terminals := 0
	for _, ev := range events {
		if ev.Terminal() {
			terminals++
		}
	}
	assert.Equal(t, 1, terminals, "exactly one terminal event")
	assert.True(t, events[len(events)-1].Terminal(), "terminal event is last")

	answer := events[4]
	assert.Equal(t, "Refunds take 30 days.", answer.Content)
	assert.Equal(t, "high", answer.Metadata["confidence"])

	end := events[5]
	assert.Equal(t, 120, end.Metadata["tokens_used"])
}

func TestProcessStreamAdmissionDenial(t *testing.T) {
	h := newHarness()
	h.limiter.result = ratelimit.Result{Allowed: false, Limit: 30, RetryAfter: 5}

	events := collect(h.orch.ProcessStream(context.Background(), &Request{WorkspaceID: uuid.New(), Query: "q"}))

	assert.Len(t, events, 1, "a denied stream emits the error and nothing else")
	assert.Equal(t, EventError, events[0].Type)
	assert.Equal(t, 0, h.generator.calls)

	// The denial carries the same structured payload as the HTTP 429 path
	assert.Equal(t, "rate_limit_exceeded", events[0].Metadata["code"])
	details, ok := events[0].Metadata["details"].(*dto.RateLimitExceededError)
	assert.True(t, ok)
	assert.Equal(t, 30, details.Limit)
	assert.Equal(t, 5, details.RetryAfter)
}

func TestProcessStreamBudgetDenialCarriesCounters(t *testing.T) {
	h := newHarness()
	h.budget.result = budget.CheckResult{
		WithinBudget: false,
		DailyLimit:   10000,
		DailyUsed:    9500,
	}

	events := collect(h.orch.ProcessStream(context.Background(), &Request{WorkspaceID: uuid.New(), Query: "q"}))

	assert.Len(t, events, 1)
	assert.Equal(t, EventError, events[0].Type)
	assert.Equal(t, "budget_exceeded", events[0].Metadata["code"])
	details, ok := events[0].Metadata["details"].(*dto.BudgetExceededError)
	assert.True(t, ok)
	assert.Equal(t, int64(10000), details.DailyLimit)
	assert.Equal(t, int64(9500), details.DailyUsed)
}

func TestProcessStreamClearsPartialAfterEnd(t *testing.T) {
	h := newHarness()
	wsID := uuid.New()

	events := collect(h.orch.ProcessStream(context.Background(), &Request{WorkspaceID: wsID, Query: "q"}))

	sessionID := events[0].Metadata["session_id"].(string)
	_, found := h.sessions.GetPartial(sessionID)
	assert.False(t, found, "partial fragment is dropped once the exchange is recorded")

	_, found = h.orch.Resume(wsID, uuid.MustParse(sessionID))
	assert.False(t, found)
}
