package llm

import "time"

// StreamChunk is one fragment of generated text, in emission order.
// Concatenating every chunk's text for a request yields the full answer.
type StreamChunk struct {
	// Model that generated the chunk
	Model string `json:"model"`

	// Chunk timestamp
	CreatedAt time.Time `json:"created_at,omitempty"`

	// The content of this chunk
	Message Message `json:"message"`

	// Stop reason (only present on the final chunk)
	StopReason string `json:"stop_reason,omitempty"`

	// Usage metrics (typically only present on the final chunk)
	Usage *Usage `json:"usage,omitempty"`
}

// Text returns the chunk's generated text.
func (c *StreamChunk) Text() string {
	return c.Message.GetText()
}

// Stream is a lazy, finite, non-restartable sequence of chunks.
type Stream interface {
	// Recv blocks for the next chunk. It returns io.EOF once the provider
	// has finished; any other error means the stream faulted mid-generation.
	Recv() (*StreamChunk, error)

	// Close releases the underlying connection. Safe to call more than once.
	Close() error
}
