package groq

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"

	"github.com/menonsoftware/Konexion/pkg/api"
	"github.com/menonsoftware/Konexion/pkg/provider"
)

// parseSSEStream reads Chat Completions SSE chunks from the given reader,
// translates each chunk to provider events, and sends them on ch. The
// channel is NOT closed by this function; the caller is responsible for
// closing it.
//
// SSE format expected:
//
//	data: {"id":"...","choices":[...]}\n
//	\n
//	data: [DONE]\n
//	\n
//
// Malformed chunks are logged and skipped. Context cancellation stops
// reading immediately without emitting further events; every send is
// guarded by the context so an abandoned consumer never strands this
// goroutine on a full channel.
func parseSSEStream(ctx context.Context, body io.Reader, ch chan<- provider.Event) {
	scanner := bufio.NewScanner(body)

	completed := false

	for scanner.Scan() {
		// Check for context cancellation between lines.
		if ctx.Err() != nil {
			return
		}

		line := scanner.Text()

		// SSE lines that don't start with "data: " are ignored
		// (e.g., empty lines, comments starting with ":").
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		payload := strings.TrimPrefix(line, "data: ")

		// Handle the [DONE] sentinel.
		if payload == "[DONE]" {
			if !completed {
				emit(ctx, ch, provider.CompleteEvent(api.FinishReasonCompleted))
			}
			return
		}

		var chunk chatCompletionChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			slog.Warn("skipping malformed SSE chunk",
				"error", err.Error(),
				"data", truncate(payload, 200),
			)
			continue
		}

		done, ok := translateChunk(ctx, &chunk, ch)
		if !ok {
			return
		}
		if done {
			completed = true
		}
	}

	// Scanner error (e.g., connection dropped).
	if err := scanner.Err(); err != nil {
		// Context cancellation is not an error from our perspective.
		if ctx.Err() != nil {
			return
		}
		emit(ctx, ch, provider.ErrorEvent(api.NewProviderError("SSE stream read error: "+err.Error())))
		return
	}

	// Stream ended without [DONE] or a finish_reason.
	if !completed && ctx.Err() == nil {
		emit(ctx, ch, provider.CompleteEvent(api.FinishReasonCompleted))
	}
}

// translateChunk converts a single chunk into provider events sent on ch.
// It reports whether the chunk carried a finish_reason, and whether the
// consumer is still listening.
func translateChunk(ctx context.Context, chunk *chatCompletionChunk, ch chan<- provider.Event) (done, ok bool) {
	if len(chunk.Choices) == 0 {
		return false, true
	}

	choice := chunk.Choices[0]

	if choice.Delta.Content != nil && *choice.Delta.Content != "" {
		if !emit(ctx, ch, provider.ChunkEvent(*choice.Delta.Content)) {
			return false, false
		}
	}

	if choice.FinishReason != nil {
		if !emit(ctx, ch, provider.CompleteEvent(api.FinishReasonCompleted)) {
			return false, false
		}
		return true, true
	}
	return false, true
}

// emit sends an event unless the context is done, so a consumer that
// stopped reading cannot block the producer forever.
func emit(ctx context.Context, ch chan<- provider.Event, ev provider.Event) bool {
	select {
	case ch <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// truncate limits a string to maxLen characters for log output.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
