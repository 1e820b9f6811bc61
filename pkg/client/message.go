package client

import "github.com/google/uuid"

// Message roles on the client side.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one rendered chat message. Content grows as flushes land;
// IsComplete flips once the turn's finish frame arrives.
type Message struct {
	ID         uuid.UUID
	Role       string
	Content    string
	IsComplete bool

	// Err carries a turn-scoped error message. Content already flushed
	// before the error is preserved.
	Err string
}
