package relay

import (
	"time"

	"github.com/papercomputeco/relay/pkg/eventstream"
	"github.com/papercomputeco/relay/relay/worker"
)

// enqueueCompletion hands a completion record to the worker pool. It never
// blocks the request path; a full queue drops the event.
func (r *Relay) enqueueCompletion(route string, streaming bool, prompt, answer string, chunks int, startTime time.Time, status string, err error) {
	completedAt := time.Now()

	meta := eventstream.RelayMeta{
		Route:       route,
		Streaming:   streaming,
		Chunks:      chunks,
		StartedAt:   startTime.UTC(),
		CompletedAt: completedAt.UTC(),
		DurationMs:  completedAt.Sub(startTime).Milliseconds(),
		Status:      status,
	}
	if err != nil {
		meta.Error = err.Error()
	}

	source := eventstream.EventSource{
		Provider: r.model.Name(),
		Model:    r.model.ModelID(),
	}

	r.workerPool.Enqueue(worker.Job{
		Event: eventstream.NewRelayCompletedEvent(source, meta, prompt, answer),
	})
}
