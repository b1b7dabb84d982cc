package orchestrator

import (
	"context"
	"errors"
	"time"

	"support-chat-be/internal/dto"
	"support-chat-be/pkg/store"

	"github.com/google/uuid"
)

// ProcessStream runs the same pipeline as Process but reports progress as
// events on the returned channel. The channel is closed after exactly one
// terminal event (end or error); nothing follows a terminal.
func (o *Orchestrator) ProcessStream(ctx context.Context, req *Request) <-chan StreamEvent {
	out := make(chan StreamEvent)

	go func() {
		defer close(out)

		emit := func(ev StreamEvent) bool {
			select {
			case out <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		started := time.Now()

		session, err := o.admit(ctx, req)
		if err != nil {
			emit(admissionDeniedEvent(err))
			return
		}

		if !emit(StreamEvent{Type: EventStart, Metadata: map[string]interface{}{
			"session_id": session.ID,
		}}) {
			return
		}
		o.sessions.Touch(session, store.ActivityStream)

		if !emit(StreamEvent{Type: EventSearching}) {
			return
		}

		chunks, degraded := o.retrieve(ctx, req)

		if !emit(StreamEvent{Type: EventSources, Metadata: map[string]interface{}{
			"sources":  sourcesMetadata(chunks),
			"degraded": degraded,
		}}) {
			return
		}

		if !emit(StreamEvent{Type: EventGenerating}) {
			return
		}

		history := o.loadHistory(ctx, req.WorkspaceID, session)
		result := o.generator.Generate(ctx, req.Query, chunks, history, req.Tone)
		degraded = degraded || result.Fallback

		// Keep the fragment around so a reconnecting client can resume,
		// it is cleared once the exchange is durably recorded.
		o.sessions.SavePartial(session.ID, result.Answer)

		if !emit(StreamEvent{Type: EventAnswer, Content: result.Answer, Metadata: map[string]interface{}{
			"confidence": result.Confidence,
		}}) {
			return
		}

		o.finish(ctx, req, session, result, chunks)
		o.sessions.ClearPartial(session.ID)

		emit(StreamEvent{Type: EventEnd, Metadata: map[string]interface{}{
			"tokens_used":      result.TokensUsed,
			"response_time_ms": time.Since(started).Milliseconds(),
			"degraded":         degraded,
		}})
	}()

	return out
}

// admissionDeniedEvent shapes a denial so stream consumers get the same
// structured limit payload the HTTP 429 path carries, not just prose.
func admissionDeniedEvent(err error) StreamEvent {
	ev := StreamEvent{Type: EventError, Content: err.Error()}

	var rateErr *dto.RateLimitExceededError
	if errors.As(err, &rateErr) {
		ev.Metadata = map[string]interface{}{
			"code":    "rate_limit_exceeded",
			"details": rateErr,
		}
		return ev
	}

	var budgetErr *dto.BudgetExceededError
	if errors.As(err, &budgetErr) {
		ev.Metadata = map[string]interface{}{
			"code":    "budget_exceeded",
			"details": budgetErr,
		}
	}
	return ev
}

func sourcesMetadata(chunks []store.RetrievedChunk) []map[string]interface{} {
	sources := make([]map[string]interface{}, len(chunks))
	for i, c := range chunks {
		sources[i] = map[string]interface{}{
			"chunk_id":    c.ID,
			"document_id": c.DocumentID,
			"score":       c.Score,
		}
	}
	return sources
}

// Resume returns the partial answer of an interrupted stream, if one is
// still retained for the session.
func (o *Orchestrator) Resume(workspaceId uuid.UUID, sessionId uuid.UUID) (*store.PartialMessage, bool) {
	if _, found := o.sessions.Get(sessionId.String(), workspaceId.String()); !found {
		return nil, false
	}
	return o.sessions.GetPartial(sessionId.String())
}
