package ollama

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	ollamaapi "github.com/ollama/ollama/api"

	"github.com/menonsoftware/Konexion/pkg/api"
	"github.com/menonsoftware/Konexion/pkg/debug"
	"github.com/menonsoftware/Konexion/pkg/provider"
)

// Name is the provider identifier for this adapter.
const Name = "ollama"

// DefaultURL is the standard local Ollama endpoint.
const DefaultURL = "http://localhost:11434"

// defaultContextWindow is used when the engine does not report a context
// length for a model.
const defaultContextWindow = 4096

// visionFamilies are the model families the engine reports for models
// with an image projector.
var visionFamilies = map[string]bool{
	"clip":   true,
	"mllama": true,
}

// Config holds the settings for an Ollama adapter.
type Config struct {
	// URL is the engine endpoint. Defaults to DefaultURL.
	URL string

	// Timeout bounds list requests. Streaming relies on context
	// cancellation. Defaults to 30 seconds.
	Timeout time.Duration

	// MaxTokens is the generation limit applied when a turn does not
	// carry its own. Defaults to 2048.
	MaxTokens int
}

// Adapter talks to a local Ollama engine.
type Adapter struct {
	client    *ollamaapi.Client
	timeout   time.Duration
	maxTokens int

	// vision caches per-model vision capability from the last listing,
	// so Stream can decide image handling without a round trip.
	mu     sync.RWMutex
	vision map[string]bool
}

var _ provider.Adapter = (*Adapter)(nil)

// New creates an Ollama adapter.
func New(cfg Config) (*Adapter, error) {
	rawURL := cfg.URL
	if rawURL == "" {
		rawURL = DefaultURL
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Ollama URL %q: %w", rawURL, err)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 2048
	}

	// The shared client carries no timeout; a chat stream can outlive
	// any fixed deadline. List calls get a per-call context deadline.
	return &Adapter{
		client:    ollamaapi.NewClient(parsed, &http.Client{}),
		timeout:   timeout,
		maxTokens: maxTokens,
		vision:    make(map[string]bool),
	}, nil
}

// Name returns the provider identifier.
func (a *Adapter) Name() string {
	return Name
}

// ListModels queries the engine's tag list and maps it to catalog
// entries. Vision capability comes from the reported model families.
func (a *Adapter) ListModels(ctx context.Context) ([]api.ModelEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	resp, err := a.client.List(ctx)
	if err != nil {
		return nil, api.NewProviderError(fmt.Sprintf("listing Ollama models: %s", err.Error()))
	}

	vision := make(map[string]bool, len(resp.Models))
	entries := make([]api.ModelEntry, 0, len(resp.Models))
	for _, m := range resp.Models {
		isVision := hasVisionFamily(m.Details.Families)
		vision[m.Name] = isVision
		entries = append(entries, api.ModelEntry{
			ModelID:       m.Name,
			OwnedBy:       Name,
			ContextWindow: defaultContextWindow,
			ClientType:    api.ClientTypeOllama,
			Capabilities:  api.ModelCapabilities{Vision: isVision},
		})
	}

	a.mu.Lock()
	a.vision = vision
	a.mu.Unlock()

	return entries, nil
}

// Stream performs streaming chat inference. The returned channel is
// closed when the stream completes, errors, or ctx is cancelled; a
// cancelled stream emits no further events.
func (a *Adapter) Stream(ctx context.Context, req *provider.ChatRequest) (<-chan provider.Event, error) {
	chatReq, err := a.buildRequest(req)
	if err != nil {
		return nil, err
	}
	debug.Log("providers", "ollama stream request",
		"model", req.Model, "messages", len(req.Messages), "images", len(req.Images))

	ch := make(chan provider.Event, 16)
	go func() {
		defer close(ch)

		// Sends are guarded by the context so an abandoned consumer
		// never strands this goroutine on a full channel.
		emit := func(ev provider.Event) bool {
			select {
			case ch <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		completed := false
		err := a.client.Chat(ctx, chatReq, func(resp ollamaapi.ChatResponse) error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if resp.Message.Content != "" {
				if !emit(provider.ChunkEvent(resp.Message.Content)) {
					return ctx.Err()
				}
			}
			if resp.Done {
				completed = true
				if !emit(provider.CompleteEvent(api.FinishReasonCompleted)) {
					return ctx.Err()
				}
			}
			return nil
		})

		if ctx.Err() != nil {
			return
		}
		if err != nil {
			emit(provider.ErrorEvent(api.NewProviderError(fmt.Sprintf("Ollama chat stream: %s", err.Error()))))
			return
		}
		if !completed {
			emit(provider.CompleteEvent(api.FinishReasonCompleted))
		}
	}()

	return ch, nil
}

// buildRequest translates a ChatRequest into the engine's chat format.
// Images go to vision models as decoded bytes on the user message; other
// models get a textual description instead.
func (a *Adapter) buildRequest(req *provider.ChatRequest) (*ollamaapi.ChatRequest, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = a.maxTokens
	}

	stream := true
	chatReq := &ollamaapi.ChatRequest{
		Model:   req.Model,
		Stream:  &stream,
		Options: map[string]any{"num_predict": maxTokens},
	}

	embedImages := len(req.Images) > 0 && a.supportsVision(req.Model)

	for _, msg := range req.Messages {
		m := ollamaapi.Message{Role: msg.Role, Content: msg.Content}

		if msg.Role == provider.RoleUser && len(req.Images) > 0 {
			if embedImages {
				if strings.TrimSpace(m.Content) == "" {
					m.Content = provider.DefaultVisionPrompt
				}
				for _, img := range req.Images {
					if img.Data == "" {
						continue
					}
					_, data, err := provider.DecodeDataURL(img.Data)
					if err != nil {
						return nil, api.NewInvalidRequestError(fmt.Sprintf("image %q: %s", img.Name, err.Error()))
					}
					m.Images = append(m.Images, ollamaapi.ImageData(data))
				}
			} else {
				m.Content = provider.DescribeImages(m.Content, req.Images)
			}
		}

		chatReq.Messages = append(chatReq.Messages, m)
	}

	return chatReq, nil
}

// supportsVision consults the capability cache from the last listing.
func (a *Adapter) supportsVision(modelID string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	v, ok := a.vision[modelID]
	if !ok {
		slog.Debug("vision capability unknown for model, treating as text-only", "model", modelID)
	}
	return v
}

// Close releases adapter resources. The api client owns no connections
// beyond its HTTP transport.
func (a *Adapter) Close() error {
	return nil
}

// hasVisionFamily reports whether any reported family indicates an image
// projector.
func hasVisionFamily(families []string) bool {
	for _, f := range families {
		if visionFamilies[strings.ToLower(f)] {
			return true
		}
	}
	return false
}
