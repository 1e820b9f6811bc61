package provider

import "github.com/menonsoftware/Konexion/pkg/api"

// ChatRequest is the adapter-facing request for one turn. It contains only
// what the backend needs, stripped of transport concerns. Images are
// forwarded opaquely; the adapter decides whether to embed them (vision
// models) or substitute a textual description (everything else).
type ChatRequest struct {
	Model     string
	Messages  []Message
	Images    []api.ImageAttachment
	MaxTokens int
}

// Message is one entry in the conversation sent to the backend.
type Message struct {
	Role    string
	Content string
}

// Conversation roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// EventType classifies a streaming event from an adapter.
type EventType int

const (
	// EventChunk carries an incremental text delta.
	EventChunk EventType = iota

	// EventComplete signals the stream finished; FinishReason is set.
	EventComplete

	// EventError signals the stream failed; Err is set. No further
	// events follow an error.
	EventError
)

// Event is a single tagged streaming event from an adapter. Ordering
// within one stream is strictly FIFO.
type Event struct {
	Type         EventType
	Delta        string
	FinishReason string
	Err          error
}

// ChunkEvent builds a text delta event.
func ChunkEvent(delta string) Event {
	return Event{Type: EventChunk, Delta: delta}
}

// CompleteEvent builds a stream completion event.
func CompleteEvent(reason string) Event {
	return Event{Type: EventComplete, FinishReason: reason}
}

// ErrorEvent builds a stream error event.
func ErrorEvent(err error) Event {
	return Event{Type: EventError, Err: err}
}
