package gateway

import (
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/menonsoftware/Konexion/pkg/provider"
)

// SessionState is the lifecycle state of a chat session. A session
// spends most of its life in StateIdle; a turn walks it through
// AwaitingModel, Streaming and Completing and back to Idle. A failed
// turn parks it in StateErrored, from which the next turn may start
// normally.
type SessionState int

const (
	StateIdle SessionState = iota
	StateAwaitingModel
	StateStreaming
	StateCompleting
	StateErrored
)

func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingModel:
		return "awaiting_model"
	case StateStreaming:
		return "streaming"
	case StateCompleting:
		return "completing"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// DefaultSystemPrompt seeds every session's conversation.
const DefaultSystemPrompt = "You are a helpful assistant."

// Session holds the per-connection conversation state. It lives exactly
// as long as its websocket connection and is never shared between
// connections.
type Session struct {
	ID uuid.UUID

	mu        sync.Mutex
	state     SessionState
	model     string
	history   []provider.Message
	assistant strings.Builder
}

func newSession(systemPrompt string) *Session {
	return &Session{
		ID: uuid.New(),
		history: []provider.Message{
			{Role: provider.RoleSystem, Content: systemPrompt},
		},
	}
}

// begin attempts to start a new turn. It succeeds only when no turn is
// in flight; a session left in StateErrored by a previous turn is
// startable again.
func (s *Session) begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle && s.state != StateErrored {
		return false
	}
	s.state = StateAwaitingModel
	s.assistant.Reset()
	return true
}

// startStreaming records the resolved model and the user's message,
// then moves the session into StateStreaming.
func (s *Session) startStreaming(model, userMessage string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateStreaming
	s.model = model
	s.history = append(s.history, provider.Message{
		Role:    provider.RoleUser,
		Content: userMessage,
	})
}

// appendDelta accumulates a streamed fragment of the assistant reply.
func (s *Session) appendDelta(delta string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assistant.WriteString(delta)
}

// finish closes the turn. Whatever assistant text accumulated is
// committed to the history, even for a turn that errored mid-stream, so
// follow-up turns see the partial reply the user saw.
func (s *Session) finish(errored bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if text := s.assistant.String(); text != "" {
		s.history = append(s.history, provider.Message{
			Role:    provider.RoleAssistant,
			Content: text,
		})
	}
	s.assistant.Reset()
	if errored {
		s.state = StateErrored
		return
	}
	s.state = StateIdle
}

// fail aborts a turn that never produced output.
func (s *Session) fail() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assistant.Reset()
	s.state = StateErrored
}

// completing marks the turn as wrapping up before the finish frame is
// written.
func (s *Session) completing() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateCompleting
}

// State returns the current lifecycle state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Messages returns a copy of the conversation so far, system prompt
// included.
func (s *Session) Messages() []provider.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]provider.Message, len(s.history))
	copy(out, s.history)
	return out
}
