package provider

import (
	"context"

	"github.com/menonsoftware/Konexion/pkg/api"
)

// Adapter abstracts one upstream AI inference provider. The interface is
// protocol-agnostic: each adapter handles its own backend protocol (Chat
// Completions SSE, the Ollama API, etc.) internally.
//
// Implementations must be safe for concurrent use by multiple goroutines.
type Adapter interface {
	// Name returns the provider identifier (e.g., "groq", "ollama").
	// It matches the client_type of every entry the adapter lists.
	Name() string

	// ListModels returns the models currently served by the backend,
	// including their capabilities. Capability flags come from provider
	// metadata, never from the model id string.
	ListModels(ctx context.Context) ([]api.ModelEntry, error)

	// Stream performs streaming inference. The returned channel receives
	// Event values in the order the backend produced them and is closed
	// by the adapter when the stream completes, errors, or ctx is
	// cancelled. A cancelled stream releases the upstream connection and
	// emits no further events.
	Stream(ctx context.Context, req *ChatRequest) (<-chan Event, error)

	// Close releases adapter resources (HTTP clients, connections).
	Close() error
}
