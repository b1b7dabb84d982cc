package orchestrator

// Stream event types, emitted in pipeline order. Error replaces whatever
// stage was running and is always terminal.
const (
	EventStart      = "start"
	EventSearching  = "searching"
	EventSources    = "sources"
	EventGenerating = "generating"
	EventAnswer     = "answer"
	EventEnd        = "end"
	EventError      = "error"
)

// StreamEvent is one progress notification of a streamed query.
type StreamEvent struct {
	Type     string                 `json:"type"`
	Content  string                 `json:"content,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Terminal reports whether no further events may follow.
func (e StreamEvent) Terminal() bool {
	return e.Type == EventEnd || e.Type == EventError
}
