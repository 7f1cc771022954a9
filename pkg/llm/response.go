package llm

import (
	"encoding/json"
	"time"
)

// ChatResponse represents a provider-agnostic synchronous completion.
type ChatResponse struct {
	// Model that generated the response
	Model string `json:"model"`

	// Response timestamp
	CreatedAt time.Time `json:"created_at,omitzero"`

	// The assistant's response message
	Message Message `json:"message"`

	// Stop reason (e.g., "STOP", "MAX_TOKENS", "stop")
	StopReason string `json:"stop_reason,omitempty"`

	// Token usage and timing metrics
	Usage *Usage `json:"usage,omitempty"`

	// RawResponse preserves the original response payload for debugging.
	RawResponse json.RawMessage `json:"raw_response,omitempty"`
}

// Usage contains token counts and timing information.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens,omitempty"`

	// Timing (provider-specific, normalized to nanoseconds where possible)
	TotalDurationNs int64 `json:"total_duration_ns,omitempty"`
}

// ErrorResponse is the JSON body the relay returns when a request fails
// before any response bytes were written.
type ErrorResponse struct {
	Error string `json:"error"`
}
