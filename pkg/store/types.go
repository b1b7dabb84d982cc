package store

import "time"

// RetrievedChunk is a scored excerpt returned by the retrieval engine.
// WorkspaceId always equals the workspace that issued the search; the
// similarity filter runs server-side so cross-tenant rows never reach here.
type RetrievedChunk struct {
	ID           string  `json:"id"`
	DocumentID   string  `json:"document_id"`
	Excerpt      string  `json:"excerpt"`
	Score        float64 `json:"score"` // cosine similarity in [0,1]
	SectionTitle string  `json:"section_title,omitempty"`
	Position     int     `json:"position"`
	WorkspaceID  string  `json:"workspace_id"`
}

// QuerySession is the short-lived in-memory session state for a conversation.
// The orchestrator is the only writer during a request.
type QuerySession struct {
	ID           string                 `json:"id"`
	WorkspaceID  string                 `json:"workspace_id"`
	CreatedAt    time.Time              `json:"created_at"`
	LastActivity time.Time              `json:"last_activity"`
	State        map[string]interface{} `json:"state,omitempty"`
}

// PartialMessage holds a streaming answer fragment so a reconnecting client
// can resume. Expires on a much shorter TTL than the session itself.
type PartialMessage struct {
	SessionID string    `json:"session_id"`
	Content   string    `json:"content"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Activity types recorded on a session.
const (
	ActivityQuery  = "QUERY"
	ActivityStream = "STREAM"
	ActivityEnd    = "END"
)
