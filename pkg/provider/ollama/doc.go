// Package ollama implements the provider adapter for a locally hosted
// Ollama engine, built on the official github.com/ollama/ollama/api
// client. Vision capability is read from the model family metadata the
// engine reports, and vision turns carry decoded image bytes.
package ollama
