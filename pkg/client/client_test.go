package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/menonsoftware/Konexion/pkg/api"
)

// captureHandler records dispatched frames and can cancel the run
// context once the turn completes.
type captureHandler struct {
	mu       sync.Mutex
	chunks   []string
	finishes []string
	errs     []string
	onDone   func()
}

func (h *captureHandler) OnChunk(delta string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.chunks = append(h.chunks, delta)
}

func (h *captureHandler) OnComplete(reason string) {
	h.mu.Lock()
	h.finishes = append(h.finishes, reason)
	done := h.onDone
	h.mu.Unlock()
	if done != nil {
		done()
	}
}

func (h *captureHandler) OnError(message string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errs = append(h.errs, message)
}

func (h *captureHandler) text() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return strings.Join(h.chunks, "")
}

var testUpgrader = websocket.Upgrader{}

// wsServer runs fn per accepted connection and closes it afterward.
func wsServer(t *testing.T, fn func(conn *websocket.Conn, n int)) *httptest.Server {
	t.Helper()
	var (
		mu    sync.Mutex
		count int
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		mu.Lock()
		count++
		n := count
		mu.Unlock()
		fn(conn, n)
		conn.Close()
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestRunDispatchesFramesAndDropsMalformed(t *testing.T) {
	srv := wsServer(t, func(conn *websocket.Conn, _ int) {
		conn.WriteMessage(websocket.TextMessage, []byte(`{"unexpected":"field"}`))
		conn.WriteJSON(api.ChunkFrame("He"))
		conn.WriteJSON(api.ChunkFrame("llo"))
		conn.WriteJSON(api.CompleteFrame(api.FinishReasonCompleted))
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	handler := &captureHandler{onDone: cancel}

	c := NewClient(wsURL(srv), handler)
	if err := c.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}

	if err := c.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run = %v, want context.Canceled", err)
	}

	if got := handler.text(); got != "Hello" {
		t.Errorf("assembled = %q, want %q", got, "Hello")
	}
	handler.mu.Lock()
	defer handler.mu.Unlock()
	if len(handler.finishes) != 1 || handler.finishes[0] != api.FinishReasonCompleted {
		t.Errorf("finishes = %v", handler.finishes)
	}
	if len(handler.errs) != 0 {
		t.Errorf("malformed frame reached the handler: %v", handler.errs)
	}
}

func TestRunReconnectExhausted(t *testing.T) {
	srv := wsServer(t, func(conn *websocket.Conn, _ int) {
		// Drop immediately; the deferred close severs the connection.
	})

	ctx := context.Background()
	c := NewClient(wsURL(srv), &captureHandler{},
		WithMaxReconnectAttempts(2),
		WithReconnectBaseDelay(time.Millisecond))
	if err := c.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}

	// Kill the server so every redial fails.
	srv.Close()

	if err := c.Run(ctx); !errors.Is(err, ErrReconnectExhausted) {
		t.Fatalf("Run = %v, want ErrReconnectExhausted", err)
	}
}

func TestRunRecoversAfterDrop(t *testing.T) {
	srv := wsServer(t, func(conn *websocket.Conn, n int) {
		if n == 1 {
			// First connection is dropped before any frame.
			return
		}
		conn.WriteJSON(api.ChunkFrame("back"))
		conn.WriteJSON(api.CompleteFrame(api.FinishReasonCompleted))
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	handler := &captureHandler{onDone: cancel}

	c := NewClient(wsURL(srv), handler,
		WithMaxReconnectAttempts(3),
		WithReconnectBaseDelay(time.Millisecond))
	if err := c.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}

	if err := c.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run = %v, want context.Canceled", err)
	}
	if got := handler.text(); got != "back" {
		t.Errorf("text after recovery = %q, want %q", got, "back")
	}
}

func TestSendRequiresConnection(t *testing.T) {
	c := NewClient("ws://127.0.0.1:0", &captureHandler{})
	if err := c.Send(api.TurnRequest{Message: "hi", Model: "m"}); err == nil {
		t.Fatal("Send on an unconnected client should fail")
	}
}

func TestRunUnblocksOnCancelDuringIdleRead(t *testing.T) {
	// The server accepts and then goes silent, so Run sits in a blocking
	// read. Cancellation must still end Run promptly.
	block := make(chan struct{})
	srv := wsServer(t, func(conn *websocket.Conn, _ int) {
		<-block
	})
	defer close(block)

	c := NewClient(wsURL(srv), &captureHandler{})
	ctx, cancel := context.WithCancel(context.Background())
	if err := c.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}

	runErr := make(chan error, 1)
	go func() { runErr <- c.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-runErr:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run still blocked after cancellation")
	}
}
