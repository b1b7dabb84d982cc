package memory

import (
	"sync"
	"time"

	"support-chat-be/pkg/store"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

const (
	// DefaultSessionTTL is the idle lifetime of a conversation. Every
	// activity slides the expiry forward by the full TTL.
	DefaultSessionTTL = 24 * time.Hour

	// partialTTL covers streamed answer fragments kept for reconnecting
	// clients. Deliberately much shorter than the session itself.
	partialTTL = 1 * time.Hour
)

// SessionRepository hands out private copies: stored sessions are never
// mutated in place, so concurrent Get/Touch on one session id are safe.
type SessionRepository struct {
	mu         sync.Mutex // serializes Touch's read-modify-write
	sessions   *cache.Cache
	partials   *cache.Cache
	sessionTTL time.Duration
}

func NewSessionRepository(sessionTTL time.Duration) *SessionRepository {
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}
	return &SessionRepository{
		sessions:   cache.New(sessionTTL, 10*time.Minute),
		partials:   cache.New(partialTTL, 10*time.Minute),
		sessionTTL: sessionTTL,
	}
}

func (r *SessionRepository) Create(workspaceId string) *store.QuerySession {
	now := time.Now()
	session := &store.QuerySession{
		ID:           uuid.NewString(),
		WorkspaceID:  workspaceId,
		CreatedAt:    now,
		LastActivity: now,
		State:        map[string]interface{}{},
	}
	r.sessions.Set(session.ID, cloneSession(session), cache.DefaultExpiration)
	return session
}

// Get returns the session only when it belongs to the given workspace.
// A session id from another tenant behaves exactly like an expired one.
func (r *SessionRepository) Get(sessionID, workspaceId string) (*store.QuerySession, bool) {
	x, found := r.sessions.Get(sessionID)
	if !found {
		return nil, false
	}
	session := x.(*store.QuerySession)
	if session.WorkspaceID != workspaceId {
		return nil, false
	}
	return cloneSession(session), true
}

// Touch records activity and slides the expiry forward. The stored session is
// replaced by an updated copy rather than written through the caller's
// pointer, so concurrent touches never race on the state map.
func (r *SessionRepository) Touch(session *store.QuerySession, activity string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current := session
	if x, found := r.sessions.Get(session.ID); found {
		current = x.(*store.QuerySession)
	}

	next := cloneSession(current)
	next.LastActivity = time.Now()
	if activity != "" {
		next.State["last_activity_type"] = activity
	}
	r.sessions.Set(next.ID, next, cache.DefaultExpiration)
}

func cloneSession(s *store.QuerySession) *store.QuerySession {
	c := *s
	c.State = make(map[string]interface{}, len(s.State))
	for k, v := range s.State {
		c.State[k] = v
	}
	return &c
}

func (r *SessionRepository) End(sessionID string) {
	r.sessions.Delete(sessionID)
	r.partials.Delete(sessionID)
}

func (r *SessionRepository) SavePartial(sessionID, content string) {
	r.partials.Set(sessionID, &store.PartialMessage{
		SessionID: sessionID,
		Content:   content,
		UpdatedAt: time.Now(),
	}, cache.DefaultExpiration)
}

func (r *SessionRepository) GetPartial(sessionID string) (*store.PartialMessage, bool) {
	if x, found := r.partials.Get(sessionID); found {
		return x.(*store.PartialMessage), true
	}
	return nil, false
}

func (r *SessionRepository) ClearPartial(sessionID string) {
	r.partials.Delete(sessionID)
}
