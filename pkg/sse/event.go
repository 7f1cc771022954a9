// Package sse provides a minimal SSE (Server-Sent Events) reader for
// consuming streamed provider responses, such as Gemini's
// streamGenerateContent with alt=sse.
//
// This package intentionally does NOT provide SSE writer or server
// capabilities: the relay's own stream is plain text framed with a separator.
//
// See the SSE specification:
// https://html.spec.whatwg.org/multipage/server-sent-events.html
package sse

// Event represents a single parsed SSE event, delimited by a blank line
// in the upstream byte stream.
type Event struct {
	// Type is the SSE event type from the "event:" field.
	// An empty string means the default "message" type.
	Type string

	// Data is the contents of all "data:" lines for this event joined with "\n".
	Data string

	// ID is the last event ID from the "id:" field, if present.
	ID string
}
