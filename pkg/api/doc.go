// Package api defines the wire-level protocol types for the Konexion gateway.
//
// This package provides the data types shared between the server and client
// sides of the chat channel: the model catalog entry, the turn request sent
// by a client, the three server frame kinds (chunk, finish_reason, error),
// the REST response envelopes, and the structured error taxonomy.
//
// The package has zero external dependencies (Go standard library only) and
// performs no I/O. All types serialize to the JSON frame format spoken over
// the websocket channel and the catalog REST surface.
package api
