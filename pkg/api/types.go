package api

// ClientType identifies which provider adapter serves a model.
type ClientType string

const (
	// ClientTypeGroq marks models served by the Groq cloud API.
	ClientTypeGroq ClientType = "groq"

	// ClientTypeOllama marks models served by a local Ollama engine.
	ClientTypeOllama ClientType = "ollama"
)

// ModelCapabilities declares what a model supports. Capabilities are
// populated by each adapter from provider metadata, never inferred from
// the model id string.
type ModelCapabilities struct {
	// Vision indicates whether the model accepts image inputs.
	Vision bool `json:"vision"`
}

// ModelEntry describes one model in the catalog. Entries are immutable
// once published into a catalog snapshot.
type ModelEntry struct {
	ModelID       string            `json:"model_id"`
	OwnedBy       string            `json:"owned_by"`
	ContextWindow int               `json:"context_window"`
	ClientType    ClientType        `json:"client_type"`
	Capabilities  ModelCapabilities `json:"capabilities"`
}

// ImageAttachment carries one image uploaded with a turn. Data holds a
// data URL ("data:image/jpeg;base64,..."); the gateway forwards it to the
// adapter without interpreting the bytes.
type ImageAttachment struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Size int64  `json:"size"`
	Data string `json:"data"`
}

// TurnRequest is the client-to-server frame that starts a turn.
type TurnRequest struct {
	Message   string            `json:"message"`
	Model     string            `json:"model"`
	Images    []ImageAttachment `json:"images,omitempty"`
	MaxTokens *int              `json:"max_tokens,omitempty"`
}

// ModelsResponse is the GET /api/models response envelope.
type ModelsResponse struct {
	Models []ModelEntry `json:"models"`
}

// RefreshResponse is the POST /api/models/refresh response envelope.
// Per-provider counts are flattened into "<provider>_models" keys.
type RefreshResponse struct {
	Status       string `json:"status"`
	TotalModels  int    `json:"total_models"`
	GroqModels   int    `json:"groq_models"`
	OllamaModels int    `json:"ollama_models"`
	Message      string `json:"message,omitempty"`
}

// HealthResponse is the GET /api/health response envelope.
type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}
