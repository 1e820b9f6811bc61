package client

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/menonsoftware/Konexion/pkg/api"
)

const (
	// DefaultMaxReconnectAttempts bounds automatic reconnection.
	DefaultMaxReconnectAttempts = 5

	// DefaultReconnectBaseDelay is multiplied by the attempt number, so
	// retries back off linearly: 1s, 2s, 3s, ...
	DefaultReconnectBaseDelay = time.Second
)

// ErrReconnectExhausted is returned once the reconnection budget is
// spent without a successful dial.
var ErrReconnectExhausted = errors.New("reconnect attempts exhausted")

// FrameHandler consumes decoded server frames. StreamBuffer satisfies
// it for a single assistant message.
type FrameHandler interface {
	OnChunk(delta string)
	OnComplete(finishReason string)
	OnError(message string)
}

// Client maintains a chat connection to the gateway. Run reads frames
// until the context ends, transparently redialing on connection loss
// with bounded linear backoff. The attempt counter resets after every
// successful dial, so a long-lived connection earns back its full
// reconnection budget.
type Client struct {
	url       string
	handler   FrameHandler
	logger    *slog.Logger
	dialer    *websocket.Dialer
	maxTries  int
	baseDelay time.Duration

	mu   sync.Mutex
	conn *websocket.Conn
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithClientLogger sets the structured logger.
func WithClientLogger(l *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// WithMaxReconnectAttempts bounds automatic redials.
func WithMaxReconnectAttempts(n int) ClientOption {
	return func(c *Client) { c.maxTries = n }
}

// WithReconnectBaseDelay sets the linear backoff unit.
func WithReconnectBaseDelay(d time.Duration) ClientOption {
	return func(c *Client) { c.baseDelay = d }
}

// NewClient creates a client for the given websocket URL.
func NewClient(url string, handler FrameHandler, opts ...ClientOption) *Client {
	c := &Client{
		url:       url,
		handler:   handler,
		logger:    slog.Default(),
		dialer:    websocket.DefaultDialer,
		maxTries:  DefaultMaxReconnectAttempts,
		baseDelay: DefaultReconnectBaseDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect dials the gateway once, without backoff.
func (c *Client) Connect(ctx context.Context) error {
	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return err
	}
	c.mu.Lock()
	if c.conn != nil {
		c.conn.Close()
	}
	c.conn = conn
	c.mu.Unlock()
	return nil
}

// Send submits a turn request on the current connection.
func (c *Client) Send(req api.TurnRequest) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return errors.New("not connected")
	}
	return conn.WriteJSON(req)
}

// Close tears down the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// Run reads frames and dispatches them to the handler until ctx ends.
// On connection loss it redials with linear backoff; it returns
// ErrReconnectExhausted when the budget runs out, or ctx.Err() on
// cancellation.
func (c *Client) Run(ctx context.Context) error {
	for {
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn == nil {
			if err := c.reconnect(ctx); err != nil {
				return err
			}
			continue
		}

		if err := c.readLoop(ctx, conn); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Warn("connection lost", "error", err.Error())
			c.Close()
			if err := c.reconnect(ctx); err != nil {
				return err
			}
		}
	}
}

// readLoop decodes and dispatches frames from one connection until it
// fails. Malformed frames are dropped with a warning; everything else
// is delivered in arrival order. A watcher closes the connection when
// ctx ends so a blocked ReadMessage unblocks immediately.
func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		frame, kind := api.DecodeServerFrame(data)
		switch kind {
		case api.FrameChunk:
			c.handler.OnChunk(*frame.Chunk)
		case api.FrameComplete:
			c.handler.OnComplete(*frame.FinishReason)
		case api.FrameError:
			c.handler.OnError(*frame.Error)
		default:
			c.logger.Warn("dropping malformed frame", "payload", string(data))
		}
	}
}

// Reconnect redials immediately with a fresh backoff budget. Use it for
// user-initiated retries after Run has given up.
func (c *Client) Reconnect(ctx context.Context) error {
	c.Close()
	return c.reconnect(ctx)
}

// reconnect dials with linear backoff: attempt n waits n * baseDelay
// before trying, up to maxTries attempts.
func (c *Client) reconnect(ctx context.Context) error {
	for attempt := 1; attempt <= c.maxTries; attempt++ {
		delay := time.Duration(attempt) * c.baseDelay
		c.logger.Info("reconnecting", "attempt", attempt, "delay", delay.String())

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}

		if err := c.Connect(ctx); err != nil {
			c.logger.Warn("reconnect failed", "attempt", attempt, "error", err.Error())
			continue
		}
		c.logger.Info("reconnected", "attempt", attempt)
		return nil
	}
	return ErrReconnectExhausted
}
