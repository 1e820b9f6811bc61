package groq

// Chat Completions wire types. These mirror the subset of the OpenAI
// Chat Completions format the Groq API speaks.

// chatCompletionRequest is the request body for /chat/completions.
type chatCompletionRequest struct {
	Model         string             `json:"model"`
	Messages      []chatMessage      `json:"messages"`
	MaxTokens     *int               `json:"max_tokens,omitempty"`
	Stop          []string           `json:"stop,omitempty"`
	Stream        bool               `json:"stream"`
	StreamOptions *chatStreamOptions `json:"stream_options,omitempty"`
}

// chatStreamOptions controls streaming behavior.
type chatStreamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

// chatMessage represents a message in the Chat Completions format.
// Content is either a plain string or, for vision input, a []contentPart.
type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// contentPart is one element of a multi-part user message.
type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

// imageURL wraps a data URL for an inline image part.
type imageURL struct {
	URL string `json:"url"`
}

// chatCompletionChunk is a single SSE chunk in a streaming response.
type chatCompletionChunk struct {
	ID      string            `json:"id"`
	Model   string            `json:"model"`
	Choices []chatChunkChoice `json:"choices"`
}

// chatChunkChoice represents a streaming choice delta.
type chatChunkChoice struct {
	Index        int            `json:"index"`
	Delta        chatChunkDelta `json:"delta"`
	FinishReason *string        `json:"finish_reason"`
}

// chatChunkDelta holds incremental content in a streaming chunk.
type chatChunkDelta struct {
	Role    string  `json:"role,omitempty"`
	Content *string `json:"content,omitempty"`
}

// chatErrorResponse is the error format returned by the backend.
type chatErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error"`
}

// modelsResponse is the response from /models.
type modelsResponse struct {
	Object string  `json:"object"`
	Data   []model `json:"data"`
}

// model represents a model in the /models response.
type model struct {
	ID            string `json:"id"`
	Object        string `json:"object"`
	OwnedBy       string `json:"owned_by"`
	ContextWindow int    `json:"context_window"`
}
