package api

import "encoding/json"

// FrameKind classifies a server-to-client frame.
type FrameKind int

const (
	// FrameMalformed marks a frame that decodes as JSON but carries none
	// of the recognized fields. Receivers drop these with a warning.
	FrameMalformed FrameKind = iota

	// FrameChunk carries an incremental fragment of assistant output.
	FrameChunk

	// FrameComplete closes a turn with a finish reason.
	FrameComplete

	// FrameError reports a turn-scoped failure. The session stays usable.
	FrameError
)

// Finish reasons sent in complete frames.
const (
	FinishReasonCompleted = "completed"
	FinishReasonError     = "error"
)

// ServerFrame is one server-to-client frame. Exactly one of the pointer
// fields is set; the zero frame is malformed.
type ServerFrame struct {
	Chunk        *string `json:"chunk,omitempty"`
	FinishReason *string `json:"finish_reason,omitempty"`
	Error        *string `json:"error,omitempty"`
}

// Kind reports which of the three recognized frame kinds this frame is.
// Error takes precedence over finish_reason so that an error paired with
// a spurious finish reason still surfaces as an error.
func (f *ServerFrame) Kind() FrameKind {
	switch {
	case f.Error != nil:
		return FrameError
	case f.FinishReason != nil:
		return FrameComplete
	case f.Chunk != nil:
		return FrameChunk
	default:
		return FrameMalformed
	}
}

// ChunkFrame builds a frame carrying a text delta.
func ChunkFrame(text string) ServerFrame {
	return ServerFrame{Chunk: &text}
}

// CompleteFrame builds a frame closing a turn with the given finish reason.
func CompleteFrame(reason string) ServerFrame {
	return ServerFrame{FinishReason: &reason}
}

// ErrorFrame builds a frame reporting a turn-scoped error message.
func ErrorFrame(message string) ServerFrame {
	return ServerFrame{Error: &message}
}

// DecodeServerFrame parses raw JSON into a ServerFrame. A decode failure
// or a frame with no recognized field yields FrameMalformed.
func DecodeServerFrame(data []byte) (ServerFrame, FrameKind) {
	var f ServerFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return ServerFrame{}, FrameMalformed
	}
	return f, f.Kind()
}
