// Package client is the Go-side counterpart of the chat gateway: a
// websocket client with bounded linear-backoff reconnection, and a
// StreamBuffer that coalesces high-frequency deltas into fewer renderer
// updates under a dual size-or-time threshold.
package client
