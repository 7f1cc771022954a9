// Package llm defines the provider-agnostic types the relay speaks and the
// Model contract every upstream provider implements.
package llm

import "context"

// Model is a handle to a hosted text generation model.
// Implementations are built once at startup and must be safe for concurrent
// use; they hold no per-request state.
type Model interface {
	// Name returns the canonical provider name (e.g., "gemini", "vertex", "ollama")
	Name() string

	// ModelID returns the opaque model identifier sent upstream.
	ModelID() string

	// Invoke blocks until the full answer for prompt is generated.
	Invoke(ctx context.Context, prompt string) (*ChatResponse, error)

	// Stream opens a streaming generation for prompt. Errors returned here
	// mean the stream never started; faults after that surface from Recv.
	Stream(ctx context.Context, prompt string) (Stream, error)
}
