// Package gateway implements the websocket chat endpoint. Each
// connection owns one session that cycles through a small state machine
// per turn; at most one turn streams at a time, and all frames for a
// connection pass through a single writer goroutine so delivery order
// matches production order. Disconnecting cancels the in-flight
// upstream stream.
package gateway
