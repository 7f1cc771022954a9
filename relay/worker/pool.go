// Package worker provides an asynchronous worker pool that hands relay
// completion events to an eventstream.Publisher.
// Publication runs off the HTTP request path.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/papercomputeco/relay/pkg/eventstream"
)

var (
	defaultNumWorkers   uint = 1
	defaultJobQueueSize uint = 256
)

// Job is a unit of work for the worker pool to execute against.
type Job struct {
	Event *eventstream.RelayCompletedEvent
}

// Config is the configuration options for the worker pool.
type Config struct {
	// Publisher receives every enqueued event.
	Publisher eventstream.Publisher

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	// Logger is the provided slog logger
	Logger *slog.Logger
}

// Pool publishes events asynchronously via a worker pool.
type Pool struct {
	config *Config
	queue  chan Job
	wg     sync.WaitGroup
	logger *slog.Logger

	// mu guards closed and the queue against sends after Close.
	mu     sync.RWMutex
	closed bool
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.Publisher == nil {
		return nil, errors.New("publisher is required")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	logger := c.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	wp := &Pool{
		config: c,
		queue:  make(chan Job, c.QueueSize),
		logger: logger,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits a job for processing by the worker pool. It returns false
// and drops the job when the queue is full or the pool is closed.
func (p *Pool) Enqueue(job Job) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.logger.Warn("event not queued, pool closed, event dropped", "event_id", eventID(job))
		return false
	}

	select {
	case p.queue <- job:
		p.logger.Debug("event queued", "event_id", eventID(job))
		return true
	default:
		p.logger.Error("event not queued, queue full, event dropped", "event_id", eventID(job))
		return false
	}
}

// Close signals workers to stop, waits for queued events to drain and closes
// the publisher. Call this after the HTTP server has stopped.
// Calling Close more than once is a no-op.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()

	if err := p.config.Publisher.Close(); err != nil {
		p.logger.Warn("failed to close event publisher", "error", err)
	}
}

// worker is the inner worker thread that continuously pulls jobs off the jobs queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", "worker_id", id)

	for job := range p.queue {
		p.processJob(job)
	}

	p.logger.Debug("event worker stopped", "worker_id", id)
}

// processJob publishes one event. Failures are logged and the event dropped.
func (p *Pool) processJob(job Job) {
	if err := p.config.Publisher.PublishCompletion(context.Background(), job.Event); err != nil {
		p.logger.Warn("failed to publish relay event",
			"event_id", eventID(job),
			"error", err,
		)
		return
	}

	p.logger.Debug("relay event published",
		"event_id", job.Event.EventID,
		"route", job.Event.Relay.Route,
		"status", job.Event.Relay.Status,
	)
}

func eventID(job Job) string {
	if job.Event == nil {
		return ""
	}
	return job.Event.EventID
}
