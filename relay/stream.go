package relay

import (
	"errors"
	"io"
	"strings"
	"time"

	"github.com/papercomputeco/relay/pkg/eventstream"
	"github.com/papercomputeco/relay/pkg/llm"
)

// pumpStream copies chunks from the provider stream into the response pipe
// in arrival order. A provider fault closes the pipe with that error, which
// aborts the chunked response without a terminating chunk. The completion
// event is enqueued before the pipe closes, so it is queued by the time the
// client sees the end of the body.
func (r *Relay) pumpStream(stream llm.Stream, pw *io.PipeWriter, prompt string, startTime time.Time) {
	defer stream.Close()

	var answer strings.Builder
	chunks := 0

	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			r.logger.Debug("stream complete",
				"provider", r.model.Name(),
				"chunks", chunks,
				"duration", time.Since(startTime),
			)
			r.enqueueCompletion(routeRunStream, true, prompt, answer.String(), chunks, startTime, eventstream.StatusOK, nil)
			pw.Close()
			return
		}
		if err != nil {
			r.logger.Error("provider stream faulted",
				"provider", r.model.Name(),
				"chunks", chunks,
				"error", err,
			)
			r.enqueueCompletion(routeRunStream, true, prompt, answer.String(), chunks, startTime, eventstream.StatusFaulted, err)
			pw.CloseWithError(err)
			return
		}

		text := chunk.Text()
		if _, err := io.WriteString(pw, text+Separator); err != nil {
			// The reader side is gone: the client disconnected.
			r.logger.Warn("error writing chunk to pipe", "error", err, "chunks", chunks)
			r.enqueueCompletion(routeRunStream, true, prompt, answer.String(), chunks, startTime, eventstream.StatusFaulted, err)
			pw.CloseWithError(err)
			return
		}

		answer.WriteString(text)
		chunks++
	}
}
