// Package groq implements the provider adapter for the Groq cloud API,
// an OpenAI-compatible Chat Completions backend. Streaming uses SSE;
// vision-capable models receive images as data-URL content parts, all
// other models receive a textual description of the attachments.
package groq
