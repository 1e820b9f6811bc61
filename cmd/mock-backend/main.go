// Command mock-backend runs a deterministic provider emulator for local
// development of the gateway without real upstreams. It speaks both
// provider dialects on one port: the Groq OpenAI-compatible surface
// (GET /v1/models, POST /v1/chat/completions with SSE) and the Ollama
// surface (GET /api/tags, POST /api/chat with NDJSON).
//
// Point both adapters at it:
//
//	KONEXION_GROQ_BASE_URL=http://localhost:9090/v1
//	OLLAMA_URL=http://localhost:9090
//	GROQ_API_KEY=mock
//
// Configuration:
//
//	MOCK_PORT - Listen port (default: 9090)
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
)

func main() {
	port := os.Getenv("MOCK_PORT")
	if port == "" {
		port = "9090"
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/models", handleGroqModels)
	mux.HandleFunc("POST /v1/chat/completions", handleGroqChat)
	mux.HandleFunc("GET /api/tags", handleOllamaTags)
	mux.HandleFunc("POST /api/chat", handleOllamaChat)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})

	srv := &http.Server{Addr: ":" + port, Handler: mux}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("mock backend starting", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("mock backend failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("mock backend shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
}

// reply builds the canned answer streamed back for any prompt. The last
// user message is echoed so clients can verify end-to-end plumbing.
func reply(lastUser string) []string {
	text := "You said: " + strings.TrimSpace(lastUser) + ". This is a mock reply."
	words := strings.Fields(text)
	chunks := make([]string, 0, len(words))
	for i, w := range words {
		if i > 0 {
			w = " " + w
		}
		chunks = append(chunks, w)
	}
	return chunks
}

// --- Groq surface ---

type groqChatRequest struct {
	Model    string        `json:"model"`
	Messages []groqMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type groqMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

func handleGroqModels(w http.ResponseWriter, r *http.Request) {
	// The whisper entry exercises the adapter's audio-model filtering.
	body := map[string]any{
		"object": "list",
		"data": []map[string]any{
			{"id": "llama-3.1-8b-instant", "object": "model", "owned_by": "Meta", "context_window": 131072},
			{"id": "llama-3.3-70b-versatile", "object": "model", "owned_by": "Meta", "context_window": 131072},
			{"id": "whisper-large-v3", "object": "model", "owned_by": "OpenAI", "context_window": 448},
		},
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(body)
}

func handleGroqChat(w http.ResponseWriter, r *http.Request) {
	var req groqChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":{"message":"invalid request","type":"invalid_request_error"}}`, http.StatusBadRequest)
		return
	}
	if !req.Stream {
		http.Error(w, `{"error":{"message":"mock backend only supports streaming","type":"invalid_request_error"}}`, http.StatusBadRequest)
		return
	}

	var lastUser string
	for _, m := range req.Messages {
		if m.Role == "user" {
			if s, ok := m.Content.(string); ok {
				lastUser = s
			}
		}
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	flusher, _ := w.(http.Flusher)

	writeChunk := func(delta, finish string) {
		chunk := map[string]any{
			"id":     "chatcmpl-mock",
			"object": "chat.completion.chunk",
			"model":  req.Model,
			"choices": []map[string]any{{
				"index":         0,
				"delta":         map[string]any{"content": delta},
				"finish_reason": nilIfEmpty(finish),
			}},
		}
		data, _ := json.Marshal(chunk)
		fmt.Fprintf(w, "data: %s\n\n", data)
		if flusher != nil {
			flusher.Flush()
		}
	}

	for _, delta := range reply(lastUser) {
		writeChunk(delta, "")
		time.Sleep(20 * time.Millisecond)
	}
	writeChunk("", "stop")
	fmt.Fprint(w, "data: [DONE]\n\n")
	if flusher != nil {
		flusher.Flush()
	}
}

func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// --- Ollama surface ---

type ollamaChatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func handleOllamaTags(w http.ResponseWriter, r *http.Request) {
	// llava carries the clip family so vision detection is exercised.
	body := map[string]any{
		"models": []map[string]any{
			{
				"name":    "llama3.2:latest",
				"model":   "llama3.2:latest",
				"details": map[string]any{"families": []string{"llama"}},
			},
			{
				"name":    "llava:latest",
				"model":   "llava:latest",
				"details": map[string]any{"families": []string{"llama", "clip"}},
			},
		},
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(body)
}

func handleOllamaChat(w http.ResponseWriter, r *http.Request) {
	var req ollamaChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request"}`, http.StatusBadRequest)
		return
	}

	var lastUser string
	for _, m := range req.Messages {
		if m.Role == "user" {
			lastUser = m.Content
		}
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	flusher, _ := w.(http.Flusher)
	enc := json.NewEncoder(w)

	for _, delta := range reply(lastUser) {
		enc.Encode(map[string]any{
			"model":   req.Model,
			"message": map[string]any{"role": "assistant", "content": delta},
			"done":    false,
		})
		if flusher != nil {
			flusher.Flush()
		}
		time.Sleep(20 * time.Millisecond)
	}
	enc.Encode(map[string]any{
		"model":       req.Model,
		"message":     map[string]any{"role": "assistant", "content": ""},
		"done":        true,
		"done_reason": "stop",
	})
	if flusher != nil {
		flusher.Flush()
	}
}
