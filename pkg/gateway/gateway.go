package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/menonsoftware/Konexion/pkg/api"
	"github.com/menonsoftware/Konexion/pkg/registry"
)

const (
	defaultWriteTimeout = 10 * time.Second
	defaultMaxTokens    = 2048
)

// Metrics receives gateway lifecycle events. pkg/observability provides
// the Prometheus-backed implementation; the zero Gateway uses a no-op.
type Metrics interface {
	SessionOpened()
	SessionClosed()
	TurnFinished(providerName, model, status string, elapsed time.Duration)
}

type nopMetrics struct{}

func (nopMetrics) SessionOpened() {}
func (nopMetrics) SessionClosed() {}
func (nopMetrics) TurnFinished(string, string, string, time.Duration) {}

// Gateway serves the websocket chat endpoint. It is an http.Handler;
// mount it at the chat path.
type Gateway struct {
	registry     *registry.Registry
	logger       *slog.Logger
	metrics      Metrics
	upgrader     websocket.Upgrader
	systemPrompt string
	maxTokens    int
	writeTimeout time.Duration
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gateway) { g.logger = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(g *Gateway) { g.metrics = m }
}

// WithSystemPrompt overrides the prompt that seeds every session.
func WithSystemPrompt(prompt string) Option {
	return func(g *Gateway) { g.systemPrompt = prompt }
}

// WithDefaultMaxTokens sets the token limit applied when a turn does
// not specify one.
func WithDefaultMaxTokens(n int) Option {
	return func(g *Gateway) { g.maxTokens = n }
}

// WithCheckOrigin sets the websocket origin check.
func WithCheckOrigin(check func(*http.Request) bool) Option {
	return func(g *Gateway) { g.upgrader.CheckOrigin = check }
}

// New creates a Gateway resolving models and adapters through reg.
func New(reg *registry.Registry, opts ...Option) *Gateway {
	g := &Gateway{
		registry: reg,
		logger:   slog.Default(),
		metrics:  nopMetrics{},
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		systemPrompt: DefaultSystemPrompt,
		maxTokens:    defaultMaxTokens,
		writeTimeout: defaultWriteTimeout,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ServeHTTP upgrades the connection and runs the session until the
// client disconnects.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Warn("websocket upgrade failed", "error", err.Error())
		return
	}
	defer conn.Close()

	sess := newSession(g.systemPrompt)
	g.metrics.SessionOpened()
	defer g.metrics.SessionClosed()

	logger := g.logger.With("session_id", sess.ID.String())
	logger.Info("session opened", "remote", conn.RemoteAddr().String())
	defer logger.Info("session closed")

	g.serve(r.Context(), conn, sess, logger)
}

// serve runs the read loop and the single writer for one connection.
// All outbound frames funnel through the out channel so their order on
// the wire matches the order they were produced.
func (g *Gateway) serve(ctx context.Context, conn *websocket.Conn, sess *Session, logger *slog.Logger) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	out := make(chan api.ServerFrame, 64)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		g.writePump(conn, out, cancel, logger)
	}()

	var turns sync.WaitGroup
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn("connection dropped", "error", err.Error())
			}
			break
		}

		var req api.TurnRequest
		if err := json.Unmarshal(data, &req); err != nil {
			logger.Warn("dropping malformed turn request", "error", err.Error())
			g.send(ctx, out, api.ErrorFrame(api.NewInvalidRequestError("invalid request payload").Message))
			continue
		}

		if !sess.begin() {
			g.send(ctx, out, api.ErrorFrame("a response is already being generated for this session"))
			continue
		}

		turns.Add(1)
		go func() {
			defer turns.Done()
			g.runTurn(ctx, sess, &req, out, logger)
		}()
	}

	// Disconnect: cancel the in-flight turn, wait for it to drain, then
	// release the writer.
	cancel()
	turns.Wait()
	close(out)
	<-writerDone
}

// writePump is the only goroutine that writes to the connection.
func (g *Gateway) writePump(conn *websocket.Conn, out <-chan api.ServerFrame, cancel context.CancelFunc, logger *slog.Logger) {
	for frame := range out {
		conn.SetWriteDeadline(time.Now().Add(g.writeTimeout))
		if err := conn.WriteJSON(frame); err != nil {
			logger.Warn("frame write failed", "error", err.Error())
			cancel()
			// Keep draining so senders never block on a dead writer.
		}
	}
}

// send enqueues a frame unless the connection is gone.
func (g *Gateway) send(ctx context.Context, out chan<- api.ServerFrame, frame api.ServerFrame) bool {
	select {
	case out <- frame:
		return true
	case <-ctx.Done():
		return false
	}
}
