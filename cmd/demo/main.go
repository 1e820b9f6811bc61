// Command demo is a minimal terminal chat client for the gateway. It
// dials the websocket endpoint, reads prompts from stdin, and renders
// the streamed reply through the coalescing stream buffer, so it doubles
// as a smoke test for the client package against a running server.
//
// Usage:
//
//	go run ./cmd/demo -url ws://localhost:8000/ws/chat -model llama3.2:latest
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/menonsoftware/Konexion/pkg/api"
	"github.com/menonsoftware/Konexion/pkg/client"
)

func main() {
	url := flag.String("url", "ws://localhost:8000/ws/chat", "gateway websocket URL")
	model := flag.String("model", "llama3.2:latest", "model id to chat with")
	chunkSize := flag.Int("chunk-size", client.DefaultMinChunkSize, "render flush threshold in bytes")
	flushEvery := flag.Duration("flush-interval", client.DefaultFlushInterval, "render flush interval")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	r := &renderer{
		chunkSize:  *chunkSize,
		flushEvery: *flushEvery,
	}
	c := client.NewClient(*url, r, client.WithClientLogger(logger))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dialCtx, dialCancel := context.WithTimeout(ctx, 10*time.Second)
	err := c.Connect(dialCtx)
	dialCancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot reach gateway at %s: %v\n", *url, err)
		os.Exit(1)
	}
	defer c.Close()

	runErr := make(chan error, 1)
	go func() { runErr <- c.Run(ctx) }()

	fmt.Printf("Connected to %s (model %s). Empty line or Ctrl-D quits.\n", *url, *model)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			break
		}

		r.beginTurn()
		if err := c.Send(api.TurnRequest{Message: line, Model: *model}); err != nil {
			fmt.Fprintf(os.Stderr, "send failed: %v\n", err)
			break
		}

		select {
		case <-r.done():
		case err := <-runErr:
			if errors.Is(err, client.ErrReconnectExhausted) {
				fmt.Fprintln(os.Stderr, "gateway unreachable, giving up")
			} else if err != nil && !errors.Is(err, context.Canceled) {
				fmt.Fprintf(os.Stderr, "connection error: %v\n", err)
			}
			os.Exit(1)
		}
	}

	cancel()
	fmt.Println("\nbye")
}

// renderer adapts the stream buffer to a line-oriented terminal: each
// update carries the full message text, so only the unseen suffix is
// printed.
type renderer struct {
	chunkSize  int
	flushEvery time.Duration

	mu      sync.Mutex
	buf     *client.StreamBuffer
	printed int
	turn    chan struct{}
}

// beginTurn resets the renderer for a fresh assistant message.
func (r *renderer) beginTurn() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.printed = 0
	r.turn = make(chan struct{})
	r.buf = client.NewStreamBuffer(r.render,
		client.WithMinChunkSize(r.chunkSize),
		client.WithFlushInterval(r.flushEvery))
}

func (r *renderer) done() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.turn
}

func (r *renderer) render(msg client.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(msg.Content) > r.printed {
		fmt.Print(msg.Content[r.printed:])
		r.printed = len(msg.Content)
	}
	if msg.IsComplete {
		if msg.Err != "" {
			fmt.Printf("\n[error: %s]", msg.Err)
		}
		fmt.Println()
		close(r.turn)
	}
}

func (r *renderer) OnChunk(delta string) {
	r.withBuf(func(b *client.StreamBuffer) { b.OnChunk(delta) })
}

func (r *renderer) OnComplete(reason string) {
	r.withBuf(func(b *client.StreamBuffer) { b.OnComplete(reason) })
}

func (r *renderer) OnError(message string) {
	r.withBuf(func(b *client.StreamBuffer) { b.OnError(message) })
}

func (r *renderer) withBuf(fn func(*client.StreamBuffer)) {
	r.mu.Lock()
	buf := r.buf
	r.mu.Unlock()
	if buf != nil {
		fn(buf)
	}
}
