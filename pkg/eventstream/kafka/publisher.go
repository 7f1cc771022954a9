// Package kafka publishes relay events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/papercomputeco/relay/pkg/eventstream"
)

// Config configures the Kafka publisher.
type Config struct {
	Brokers []string
	Topic   string

	// WriteTimeout bounds a single publish. Zero uses kafka-go's default.
	WriteTimeout time.Duration
}

// batchTimeout caps how long a write waits for more messages. Each publish
// carries a single event, so kafka-go's 1s default would stall the worker.
const batchTimeout = 5 * time.Millisecond

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher writes each event as one JSON message keyed by its event id.
type Publisher struct {
	writer messageWriter
}

// NewPublisher creates a Kafka publisher. Connections are made lazily on
// the first publish.
func NewPublisher(cfg Config) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka: at least one broker is required")
	}
	if cfg.Topic == "" {
		return nil, errors.New("kafka: topic is required")
	}

	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireOne,
		AllowAutoTopicCreation: true,
		BatchTimeout:           batchTimeout,
		WriteTimeout:           cfg.WriteTimeout,
	}

	return &Publisher{writer: w}, nil
}

// PublishCompletion marshals the event and writes it synchronously.
func (p *Publisher) PublishCompletion(ctx context.Context, event *eventstream.RelayCompletedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("kafka: marshal event: %w", err)
	}

	msg := kafkago.Message{
		Key:   []byte(event.EventID),
		Value: value,
		Time:  event.EmittedAt,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka: write event %s: %w", event.EventID, err)
	}

	return nil
}

// Close flushes pending writes and closes broker connections.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
