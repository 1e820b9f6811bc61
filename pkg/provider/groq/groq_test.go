package groq

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/menonsoftware/Konexion/pkg/api"
	"github.com/menonsoftware/Konexion/pkg/provider"
)

func TestListModelsFiltersAndFlagsVision(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		fmt.Fprint(w, `{"object":"list","data":[
			{"id":"llama-3.3-70b-versatile","object":"model","owned_by":"Meta","context_window":131072},
			{"id":"whisper-large-v3","object":"model","owned_by":"OpenAI","context_window":448},
			{"id":"playai-tts","object":"model","owned_by":"PlayAI","context_window":8192},
			{"id":"llama-guard-4-12b","object":"model","owned_by":"Meta","context_window":131072},
			{"id":"llama-3.2-11b-vision-preview","object":"model","owned_by":"Meta","context_window":131072}
		]}`)
	}))
	defer srv.Close()

	a := New(Config{BaseURL: srv.URL, APIKey: "test-key"})
	defer a.Close()

	entries, err := a.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels: %v", err)
	}

	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2 (tts/whisper/guard filtered): %+v", len(entries), entries)
	}

	byID := make(map[string]api.ModelEntry)
	for _, e := range entries {
		byID[e.ModelID] = e
		if e.ClientType != api.ClientTypeGroq {
			t.Errorf("entry %s client type = %s", e.ModelID, e.ClientType)
		}
	}

	if byID["llama-3.3-70b-versatile"].Capabilities.Vision {
		t.Error("llama-3.3-70b-versatile should not be vision-capable")
	}
	if !byID["llama-3.2-11b-vision-preview"].Capabilities.Vision {
		t.Error("llama-3.2-11b-vision-preview should be vision-capable")
	}
	if byID["llama-3.3-70b-versatile"].ContextWindow != 131072 {
		t.Errorf("context window = %d", byID["llama-3.3-70b-versatile"].ContextWindow)
	}
}

func TestListModelsWithoutAPIKey(t *testing.T) {
	a := New(Config{})
	defer a.Close()

	entries, err := a.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels without key should not error, got %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("got %d entries, want 0", len(entries))
	}
}

func TestListModelsBackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"Invalid API Key","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	a := New(Config{BaseURL: srv.URL, APIKey: "bad-key"})
	defer a.Close()

	_, err := a.ListModels(context.Background())
	if err == nil {
		t.Fatal("expected error for 401 response")
	}
	apiErr, ok := err.(*api.APIError)
	if !ok {
		t.Fatalf("error type = %T, want *api.APIError", err)
	}
	if !strings.Contains(apiErr.Message, "Invalid API Key") {
		t.Errorf("backend message not propagated: %q", apiErr.Message)
	}
}

func TestStreamEndToEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req chatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		if !req.Stream {
			t.Error("request should have stream=true")
		}
		if req.MaxTokens == nil || *req.MaxTokens != 256 {
			t.Errorf("MaxTokens = %v, want 256", req.MaxTokens)
		}

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\"Hi\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"index\":0,\"delta\":{},\"finish_reason\":\"stop\"}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	a := New(Config{BaseURL: srv.URL, APIKey: "test-key"})
	defer a.Close()

	ch, err := a.Stream(context.Background(), &provider.ChatRequest{
		Model: "llama-3.3-70b-versatile",
		Messages: []provider.Message{
			{Role: provider.RoleSystem, Content: "You are a helpful assistant."},
			{Role: provider.RoleUser, Content: "hello"},
		},
		MaxTokens: 256,
	})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}

	var text strings.Builder
	sawComplete := false
	for ev := range ch {
		switch ev.Type {
		case provider.EventChunk:
			text.WriteString(ev.Delta)
		case provider.EventComplete:
			sawComplete = true
		case provider.EventError:
			t.Fatalf("stream error: %v", ev.Err)
		}
	}

	if text.String() != "Hi" {
		t.Errorf("text = %q", text.String())
	}
	if !sawComplete {
		t.Error("stream did not complete")
	}
}

func TestBuildRequestVisionEmbedding(t *testing.T) {
	a := New(Config{APIKey: "k"})

	req := &provider.ChatRequest{
		Model: "llama-3.2-11b-vision-preview",
		Messages: []provider.Message{
			{Role: provider.RoleSystem, Content: "You are a helpful assistant."},
			{Role: provider.RoleUser, Content: "what is this"},
		},
		Images: []api.ImageAttachment{
			{Name: "cat.jpg", Type: "image/jpeg", Data: "data:image/jpeg;base64,Zm9v"},
		},
	}

	chatReq := a.buildRequest(req)
	if len(chatReq.Messages) != 2 {
		t.Fatalf("message count = %d", len(chatReq.Messages))
	}

	parts, ok := chatReq.Messages[1].Content.([]contentPart)
	if !ok {
		t.Fatalf("vision model user content type = %T, want []contentPart", chatReq.Messages[1].Content)
	}
	if len(parts) != 2 {
		t.Fatalf("content parts = %d, want text + image", len(parts))
	}
	if parts[0].Type != "text" || parts[0].Text != "what is this" {
		t.Errorf("text part = %+v", parts[0])
	}
	if parts[1].Type != "image_url" || parts[1].ImageURL == nil {
		t.Fatalf("image part = %+v", parts[1])
	}
	if parts[1].ImageURL.URL != "data:image/jpeg;base64,Zm9v" {
		t.Errorf("image URL = %q", parts[1].ImageURL.URL)
	}
}

func TestBuildRequestNonVisionSubstitution(t *testing.T) {
	a := New(Config{APIKey: "k"})

	req := &provider.ChatRequest{
		Model: "llama-3.3-70b-versatile",
		Messages: []provider.Message{
			{Role: provider.RoleUser, Content: "describe"},
		},
		Images: []api.ImageAttachment{
			{Name: "cat.jpg", Type: "image/jpeg", Data: "data:image/jpeg;base64,Zm9v"},
		},
	}

	chatReq := a.buildRequest(req)
	content, ok := chatReq.Messages[0].Content.(string)
	if !ok {
		t.Fatalf("non-vision user content type = %T, want string", chatReq.Messages[0].Content)
	}
	if !strings.Contains(content, "[Image 1: cat.jpg (image/jpeg)]") {
		t.Errorf("image substitution missing: %q", content)
	}
}

func TestStreamWithoutAPIKey(t *testing.T) {
	a := New(Config{})
	_, err := a.Stream(context.Background(), &provider.ChatRequest{Model: "m"})
	if err == nil {
		t.Fatal("expected error streaming without API key")
	}
}
