package client

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultMinChunkSize is the pending-byte threshold that forces an
	// immediate flush.
	DefaultMinChunkSize = 20

	// DefaultFlushInterval bounds how long a small fragment may sit
	// unflushed.
	DefaultFlushInterval = 50 * time.Millisecond
)

// UpdateFunc receives the message after every flush. It is called with
// a copy; the buffer retains ownership of its internal state.
type UpdateFunc func(Message)

// StreamBuffer coalesces streamed deltas into fewer renderer updates.
// A flush happens when the pending text reaches MinChunkSize, when the
// flush timer fires, or when the turn completes, whichever comes first.
// At most one flush timer is outstanding: it is scheduled when
// the first unflushed delta arrives and cleared by any flush; deltas
// arriving while it is pending never reschedule it.
type StreamBuffer struct {
	minChunkSize  int
	flushInterval time.Duration
	onUpdate      UpdateFunc

	mu      sync.Mutex
	msg     Message
	pending strings.Builder
	timer   *time.Timer
}

// BufferOption configures a StreamBuffer.
type BufferOption func(*StreamBuffer)

// WithMinChunkSize sets the size threshold in bytes.
func WithMinChunkSize(n int) BufferOption {
	return func(b *StreamBuffer) { b.minChunkSize = n }
}

// WithFlushInterval sets the time threshold.
func WithFlushInterval(d time.Duration) BufferOption {
	return func(b *StreamBuffer) { b.flushInterval = d }
}

// NewStreamBuffer creates a buffer for one assistant message. onUpdate
// must be non-nil.
func NewStreamBuffer(onUpdate UpdateFunc, opts ...BufferOption) *StreamBuffer {
	b := &StreamBuffer{
		minChunkSize:  DefaultMinChunkSize,
		flushInterval: DefaultFlushInterval,
		onUpdate:      onUpdate,
		msg: Message{
			ID:   uuid.New(),
			Role: RoleAssistant,
		},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// OnChunk appends a streamed delta. It flushes immediately once the
// pending text reaches the size threshold; otherwise it arms the flush
// timer if none is outstanding.
func (b *StreamBuffer) OnChunk(delta string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.pending.WriteString(delta)
	if b.pending.Len() >= b.minChunkSize {
		b.flushLocked()
		return
	}
	if b.timer == nil {
		b.timer = time.AfterFunc(b.flushInterval, b.Flush)
	}
}

// Flush moves all pending text into the message and emits exactly one
// update. With nothing pending it does nothing.
func (b *StreamBuffer) Flush() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.flushLocked()
}

// flushLocked requires b.mu held.
func (b *StreamBuffer) flushLocked() {
	b.clearTimerLocked()
	if b.pending.Len() == 0 {
		return
	}
	b.msg.Content += b.pending.String()
	b.pending.Reset()
	b.onUpdate(b.msg)
}

// OnComplete folds any remainder into the message, marks it complete,
// and emits one final update.
func (b *StreamBuffer) OnComplete(finishReason string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.clearTimerLocked()
	b.msg.Content += b.pending.String()
	b.pending.Reset()
	b.msg.IsComplete = true
	b.onUpdate(b.msg)
}

// OnError preserves whatever text arrived before the failure and marks
// the message complete with the error attached, in one final update.
func (b *StreamBuffer) OnError(message string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.clearTimerLocked()
	b.msg.Content += b.pending.String()
	b.pending.Reset()
	b.msg.IsComplete = true
	b.msg.Err = message
	b.onUpdate(b.msg)
}

func (b *StreamBuffer) clearTimerLocked() {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
}
