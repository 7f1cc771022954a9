// Package relay provides an HTTP service that forwards a prompt to a hosted
// LLM and relays the generated answer, either whole or chunk by chunk as the
// provider produces it.
package relay

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/papercomputeco/relay/pkg/eventstream"
	"github.com/papercomputeco/relay/pkg/llm"
	"github.com/papercomputeco/relay/relay/worker"
)

// readBufferSize bounds the request line plus headers. Prompts travel in the
// query string, so it is well above fasthttp's 4 KB default.
const readBufferSize = 64 * 1024

// Relay is the relay HTTP server. The model handle is shared read-only by
// every request.
type Relay struct {
	config     Config
	model      llm.Model
	workerPool *worker.Pool
	logger     *slog.Logger
	server     *fiber.App
}

// New creates a new Relay. Completed calls are reported to publisher through
// an asynchronous worker pool.
func New(config Config, model llm.Model, publisher eventstream.Publisher, logger *slog.Logger) (*Relay, error) {
	if model == nil {
		return nil, errors.New("model is required")
	}
	if publisher == nil {
		return nil, errors.New("event publisher is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	if config.DefaultPrompt == "" {
		config.DefaultPrompt = DefaultPrompt
	}

	wp, err := worker.NewPool(&worker.Config{
		Publisher:  publisher,
		NumWorkers: config.EventWorkers,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create worker pool: %w", err)
	}

	r := &Relay{
		config:     config,
		model:      model,
		workerPool: wp,
		logger:     logger,
	}

	app := fiber.New(fiber.Config{
		// Disable startup message for cleaner logs
		DisableStartupMessage: true,
		ReadBufferSize:        readBufferSize,
		ErrorHandler:          r.handleError,
	})

	app.Use(recover.New())
	app.Use(r.logRequests)

	app.Get("/", r.handleHello)
	app.Post("/run", r.handleRun)
	app.Post("/run_stream", r.handleRunStream)

	if config.EnableMCP {
		mcpServer := newMCPServer(r)
		app.All("/mcp", adaptor.HTTPHandler(mcpServer.handler))
	}

	r.server = app

	return r, nil
}

// Run starts the relay server on the configured listening address.
func (r *Relay) Run() error {
	r.logger.Info("starting relay server",
		"listen", r.config.ListenAddr,
		"provider", r.model.Name(),
		"model", r.model.ModelID(),
		"mcp", r.config.EnableMCP,
	)

	return r.server.Listen(r.config.ListenAddr)
}

// RunWithListener starts the relay server using the provided listener.
func (r *Relay) RunWithListener(listener net.Listener) error {
	r.logger.Info("starting relay server",
		"listen", listener.Addr().String(),
		"provider", r.model.Name(),
		"model", r.model.ModelID(),
		"mcp", r.config.EnableMCP,
	)

	return r.server.Listener(listener)
}

// Close shuts down the server and waits for pending events to be published.
func (r *Relay) Close() error {
	err := r.server.Shutdown()
	r.workerPool.Close()
	return err
}

// logRequests logs every request once the handler chain returns.
func (r *Relay) logRequests(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	status := c.Response().StatusCode()
	var fe *fiber.Error
	if err != nil && errors.As(err, &fe) {
		status = fe.Code
	}

	r.logger.Debug("request",
		"method", c.Method(),
		"path", c.Path(),
		"status", status,
		"duration", time.Since(start),
	)

	return err
}
