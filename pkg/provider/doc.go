// Package provider defines the uniform adapter contract for AI inference
// backends. Each upstream provider (Groq, Ollama) is wrapped by one adapter
// implementing [Adapter]; the registry and gateway never touch a backend's
// protocol directly.
package provider
