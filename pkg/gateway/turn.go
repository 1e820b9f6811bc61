package gateway

import (
	"context"
	"log/slog"
	"time"

	"github.com/menonsoftware/Konexion/pkg/api"
	"github.com/menonsoftware/Konexion/pkg/debug"
	"github.com/menonsoftware/Konexion/pkg/provider"
)

// Turn status labels reported to metrics.
const (
	turnStatusCompleted = "completed"
	turnStatusError     = "error"
	turnStatusCancelled = "cancelled"
	turnStatusRejected  = "rejected"
)

// runTurn executes one turn end to end: validation, model resolution,
// upstream streaming, and frame forwarding. Validation and resolution
// failures produce an error frame and leave the session usable; they
// never tear down the connection.
func (g *Gateway) runTurn(ctx context.Context, sess *Session, req *api.TurnRequest, out chan<- api.ServerFrame, logger *slog.Logger) {
	if req.Message == "" && len(req.Images) == 0 {
		g.send(ctx, out, api.ErrorFrame("message is required"))
		sess.fail()
		return
	}
	if req.Model == "" {
		g.send(ctx, out, api.ErrorFrame("model is required"))
		sess.fail()
		return
	}

	adapter, ok := g.registry.AdapterFor(req.Model)
	if !ok {
		// The client gets both the error and a closing finish reason so
		// its renderer can settle the message.
		g.send(ctx, out, api.ErrorFrame(api.NewModelNotFoundError(req.Model).Message))
		g.send(ctx, out, api.CompleteFrame(api.FinishReasonError))
		sess.fail()
		g.metrics.TurnFinished("none", req.Model, turnStatusRejected, 0)
		return
	}

	sess.startStreaming(req.Model, req.Message)
	logger.Info("turn started",
		"model", req.Model,
		"provider", adapter.Name(),
		"images", len(req.Images))

	maxTokens := g.maxTokens
	if req.MaxTokens != nil && *req.MaxTokens > 0 {
		maxTokens = *req.MaxTokens
	}

	// The turn gets its own context so a finished turn releases upstream
	// resources without waiting for the connection to close.
	turnCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	start := time.Now()
	events, err := adapter.Stream(turnCtx, &provider.ChatRequest{
		Model:     req.Model,
		Messages:  sess.Messages(),
		Images:    req.Images,
		MaxTokens: maxTokens,
	})
	if err != nil {
		logger.Error("stream setup failed", "provider", adapter.Name(), "error", err.Error())
		g.send(ctx, out, api.ErrorFrame(api.NewProviderError(err.Error()).Message))
		g.send(ctx, out, api.CompleteFrame(api.FinishReasonError))
		sess.fail()
		g.metrics.TurnFinished(adapter.Name(), req.Model, turnStatusError, time.Since(start))
		return
	}

	g.forward(ctx, sess, adapter.Name(), req.Model, events, out, logger, start)
}

// forward relays adapter events to the client in arrival order.
func (g *Gateway) forward(ctx context.Context, sess *Session, providerName, model string, events <-chan provider.Event, out chan<- api.ServerFrame, logger *slog.Logger, start time.Time) {
	for {
		select {
		case <-ctx.Done():
			// Client gone. The adapter sees the cancelled context and
			// shuts the stream down; nothing more to deliver.
			sess.finish(true)
			g.metrics.TurnFinished(providerName, model, turnStatusCancelled, time.Since(start))
			return

		case ev, open := <-events:
			if !open {
				// Defensive close without a completion event.
				sess.completing()
				g.send(ctx, out, api.CompleteFrame(api.FinishReasonCompleted))
				sess.finish(false)
				g.metrics.TurnFinished(providerName, model, turnStatusCompleted, time.Since(start))
				return
			}

			switch ev.Type {
			case provider.EventChunk:
				debug.Trace("gateway", "forwarding chunk", "len", len(ev.Delta))
				sess.appendDelta(ev.Delta)
				if !g.send(ctx, out, api.ChunkFrame(ev.Delta)) {
					sess.finish(true)
					g.metrics.TurnFinished(providerName, model, turnStatusCancelled, time.Since(start))
					return
				}

			case provider.EventComplete:
				sess.completing()
				reason := ev.FinishReason
				if reason == "" {
					reason = api.FinishReasonCompleted
				}
				g.send(ctx, out, api.CompleteFrame(reason))
				sess.finish(false)
				logger.Info("turn completed",
					"model", model,
					"provider", providerName,
					"duration_ms", time.Since(start).Milliseconds())
				g.metrics.TurnFinished(providerName, model, turnStatusCompleted, time.Since(start))
				return

			case provider.EventError:
				logger.Error("stream failed",
					"model", model,
					"provider", providerName,
					"error", ev.Err.Error())
				g.send(ctx, out, api.ErrorFrame(api.NewProviderError(ev.Err.Error()).Message))
				g.send(ctx, out, api.CompleteFrame(api.FinishReasonError))
				sess.finish(true)
				g.metrics.TurnFinished(providerName, model, turnStatusError, time.Since(start))
				return
			}
		}
	}
}
