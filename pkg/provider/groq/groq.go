package groq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/menonsoftware/Konexion/pkg/api"
	"github.com/menonsoftware/Konexion/pkg/debug"
	"github.com/menonsoftware/Konexion/pkg/provider"
)

// Name is the provider identifier for this adapter.
const Name = "groq"

// DefaultBaseURL is the Groq OpenAI-compatible API root.
const DefaultBaseURL = "https://api.groq.com/openai/v1"

// DefaultVisionModels lists Groq model ids known to accept image input.
// The set is configuration, not inference from the id string, so new
// vision models are added by exact id.
var DefaultVisionModels = []string{
	"meta-llama/llama-4-scout-17b-16e-instruct",
	"meta-llama/llama-4-maverick-17b-128e-instruct",
	"llama-3.2-11b-vision-preview",
	"llama-3.2-90b-vision-preview",
}

// excludedModelKeywords filters audio and safety models out of the chat
// catalog; they cannot serve chat turns.
var excludedModelKeywords = []string{"tts", "whisper", "guard"}

// Config holds the settings for a Groq adapter.
type Config struct {
	// BaseURL is the API root. Defaults to DefaultBaseURL.
	BaseURL string

	// APIKey authenticates requests. An adapter without a key still
	// constructs, but lists zero models and refuses to stream.
	APIKey string

	// Timeout bounds list requests. Streaming relies on context
	// cancellation instead. Defaults to 10 seconds.
	Timeout time.Duration

	// VisionModels is the exact-id set of vision-capable models.
	// Defaults to DefaultVisionModels.
	VisionModels []string
}

// Adapter talks to the Groq cloud API.
type Adapter struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	vision     map[string]bool
}

var _ provider.Adapter = (*Adapter)(nil)

// New creates a Groq adapter.
func New(cfg Config) *Adapter {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	visionModels := cfg.VisionModels
	if visionModels == nil {
		visionModels = DefaultVisionModels
	}
	vision := make(map[string]bool, len(visionModels))
	for _, id := range visionModels {
		vision[id] = true
	}

	return &Adapter{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		vision:     vision,
	}
}

// Name returns the provider identifier.
func (a *Adapter) Name() string {
	return Name
}

// ListModels queries /models and maps the result to catalog entries.
// Audio and safety models are filtered out. Without an API key the
// adapter reports an empty catalog rather than an error, matching a
// deployment with no cloud provider configured.
func (a *Adapter) ListModels(ctx context.Context) ([]api.ModelEntry, error) {
	if a.apiKey == "" {
		return nil, nil
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/models", nil)
	if err != nil {
		return nil, api.NewServerError(fmt.Sprintf("failed to create HTTP request: %s", err.Error()))
	}
	httpReq.Header.Set("Authorization", "Bearer "+a.apiKey)

	httpResp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, mapNetworkError(err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, mapHTTPError(httpResp)
	}

	var resp modelsResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, api.NewServerError(fmt.Sprintf("failed to parse models response: %s", err.Error()))
	}

	var entries []api.ModelEntry
	for _, m := range resp.Data {
		if isExcludedModel(m.ID) {
			continue
		}
		entries = append(entries, api.ModelEntry{
			ModelID:       m.ID,
			OwnedBy:       m.OwnedBy,
			ContextWindow: m.ContextWindow,
			ClientType:    api.ClientTypeGroq,
			Capabilities:  api.ModelCapabilities{Vision: a.vision[m.ID]},
		})
	}
	return entries, nil
}

// Stream performs streaming inference against /chat/completions.
// The returned channel is closed when the stream completes, errors, or
// ctx is cancelled.
//
// The HTTP client timeout is not applied for streaming requests because a
// stream can legitimately last longer than any fixed timeout. Lifecycle
// control relies on context cancellation instead.
func (a *Adapter) Stream(ctx context.Context, req *provider.ChatRequest) (<-chan provider.Event, error) {
	if a.apiKey == "" {
		return nil, api.NewServerError("Groq API key not configured")
	}

	chatReq := a.buildRequest(req)

	body, err := json.Marshal(chatReq)
	if err != nil {
		return nil, api.NewServerError(fmt.Sprintf("failed to marshal request: %s", err.Error()))
	}
	debug.Log("providers", "groq stream request",
		"model", req.Model, "messages", len(req.Messages), "images", len(req.Images))
	debug.Raw("providers", string(body))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, api.NewServerError(fmt.Sprintf("failed to create HTTP request: %s", err.Error()))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Authorization", "Bearer "+a.apiKey)

	// Use a client without timeout for streaming; the context controls
	// the request lifetime instead.
	streamClient := &http.Client{Transport: a.httpClient.Transport}

	httpResp, err := streamClient.Do(httpReq)
	if err != nil {
		return nil, mapNetworkError(err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		httpResp.Body.Close()
		return nil, mapHTTPError(httpResp)
	}

	ch := make(chan provider.Event, 16)
	go func() {
		defer close(ch)
		defer httpResp.Body.Close()
		parseSSEStream(ctx, httpResp.Body, ch)
	}()

	return ch, nil
}

// buildRequest translates a ChatRequest into the Chat Completions format,
// embedding images for vision models and substituting a textual
// description otherwise.
func (a *Adapter) buildRequest(req *provider.ChatRequest) *chatCompletionRequest {
	chatReq := &chatCompletionRequest{
		Model:         req.Model,
		Stream:        true,
		StreamOptions: &chatStreamOptions{IncludeUsage: false},
	}
	if req.MaxTokens > 0 {
		maxTokens := req.MaxTokens
		chatReq.MaxTokens = &maxTokens
	}

	for _, msg := range req.Messages {
		if msg.Role == provider.RoleUser && len(req.Images) > 0 {
			if a.vision[req.Model] {
				chatReq.Messages = append(chatReq.Messages, a.buildVisionMessage(msg.Content, req.Images))
			} else {
				chatReq.Messages = append(chatReq.Messages, chatMessage{
					Role:    provider.RoleUser,
					Content: provider.DescribeImages(msg.Content, req.Images),
				})
			}
			continue
		}
		chatReq.Messages = append(chatReq.Messages, chatMessage{Role: msg.Role, Content: msg.Content})
	}

	return chatReq
}

// buildVisionMessage embeds images as multi-part content with inline
// data URLs.
func (a *Adapter) buildVisionMessage(text string, images []api.ImageAttachment) chatMessage {
	if strings.TrimSpace(text) == "" {
		text = provider.DefaultVisionPrompt
	}

	parts := []contentPart{{Type: "text", Text: text}}
	for _, img := range images {
		if img.Data == "" {
			continue
		}
		mediaType := img.Type
		if mediaType == "" {
			mediaType = "image/jpeg"
		}
		parts = append(parts, contentPart{
			Type: "image_url",
			ImageURL: &imageURL{
				URL: fmt.Sprintf("data:%s;base64,%s", mediaType, provider.Base64Payload(img.Data)),
			},
		})
	}
	return chatMessage{Role: provider.RoleUser, Content: parts}
}

// SupportsVision reports whether the given model id is in the configured
// vision set.
func (a *Adapter) SupportsVision(modelID string) bool {
	return a.vision[modelID]
}

// Close releases adapter resources.
func (a *Adapter) Close() error {
	a.httpClient.CloseIdleConnections()
	return nil
}

// isExcludedModel reports whether a model id belongs to the audio/safety
// families excluded from the chat catalog.
func isExcludedModel(id string) bool {
	lower := strings.ToLower(id)
	for _, kw := range excludedModelKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
