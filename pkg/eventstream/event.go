package eventstream

import (
	"time"

	"github.com/google/uuid"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeRelayCompleted is emitted after a /run or /run_stream call ends.
	EventTypeRelayCompleted = "relay.completion.finished"
)

// Completion outcomes recorded in RelayMeta.Status.
const (
	StatusOK      = "ok"
	StatusFailed  = "failed"
	StatusFaulted = "faulted"
)

// RelayCompletedEvent is a transport-neutral record of one relayed prompt.
type RelayCompletedEvent struct {
	SchemaVersion int         `json:"schema_version"`
	EventType     string      `json:"event_type"`
	EventID       string      `json:"event_id"`
	EmittedAt     time.Time   `json:"emitted_at"`
	Source        EventSource `json:"source"`
	Relay         RelayMeta   `json:"relay"`
	Prompt        string      `json:"prompt"`
	Answer        string      `json:"answer"`
}

// EventSource identifies the model that produced the answer.
type EventSource struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// RelayMeta captures request lifecycle metadata for the event.
type RelayMeta struct {
	Route       string    `json:"route"`
	Streaming   bool      `json:"streaming"`
	Chunks      int       `json:"chunks,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	DurationMs  int64     `json:"duration_ms"`
	Status      string    `json:"status"`
	Error       string    `json:"error,omitempty"`
}

// NewRelayCompletedEvent stamps a new event with an id and emission time.
func NewRelayCompletedEvent(source EventSource, meta RelayMeta, prompt, answer string) *RelayCompletedEvent {
	return &RelayCompletedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeRelayCompleted,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Source:        source,
		Relay:         meta,
		Prompt:        prompt,
		Answer:        answer,
	}
}
