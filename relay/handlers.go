package relay

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/relay/pkg/eventstream"
	"github.com/papercomputeco/relay/pkg/utils"
)

const (
	routeRun       = "/run"
	routeRunStream = "/run_stream"
	routeMCP       = "/mcp"
)

// handleHello is the liveness greeting.
func (r *Relay) handleHello(c *fiber.Ctx) error {
	return c.SendString("Hello")
}

// handleRun invokes the model once and returns the whole answer as text.
func (r *Relay) handleRun(c *fiber.Ctx) error {
	startTime := time.Now()
	prompt := r.message(c)

	r.logger.Debug("invoking model",
		"provider", r.model.Name(),
		"model", r.model.ModelID(),
		"prompt", utils.Truncate(prompt, 80),
	)

	resp, err := r.model.Invoke(c.UserContext(), prompt)
	if err != nil {
		r.enqueueCompletion(routeRun, false, prompt, "", 0, startTime, eventstream.StatusFailed, err)
		return fmt.Errorf("invoking %s: %w", r.model.Name(), err)
	}

	answer := resp.Message.GetText()
	r.enqueueCompletion(routeRun, false, prompt, answer, 0, startTime, eventstream.StatusOK, nil)

	return c.SendString(answer)
}

// handleRunStream relays the provider's stream as it arrives, writing each
// chunk followed by Separator.
func (r *Relay) handleRunStream(c *fiber.Ctx) error {
	startTime := time.Now()
	prompt := r.message(c)

	r.logger.Debug("opening model stream",
		"provider", r.model.Name(),
		"model", r.model.ModelID(),
		"prompt", utils.Truncate(prompt, 80),
	)

	// fasthttp recycles its RequestCtx once the handler returns, while the
	// pump goroutine is still reading the stream.
	stream, err := r.model.Stream(context.Background(), prompt)
	if err != nil {
		r.enqueueCompletion(routeRunStream, true, prompt, "", 0, startTime, eventstream.StatusFailed, err)
		return fmt.Errorf("opening %s stream: %w", r.model.Name(), err)
	}

	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)

	// pw.Write blocks until fasthttp has read the chunk from pr and flushed
	// it to the socket, so every chunk goes out as it is produced.
	pr, pw := io.Pipe()
	go r.pumpStream(stream, pw, prompt, startTime)

	// Unknown size (-1) selects chunked transfer encoding.
	c.Context().Response.SetBodyStream(pr, -1)

	return nil
}

// message reads the message parameter from the query string, then from a
// url-encoded form body. Present but empty is a valid prompt.
func (r *Relay) message(c *fiber.Ctx) string {
	query := c.Context().QueryArgs()
	if query.Has("message") {
		return string(query.Peek("message"))
	}

	form := c.Context().PostArgs()
	if form.Has("message") {
		return string(form.Peek("message"))
	}

	return r.config.DefaultPrompt
}
