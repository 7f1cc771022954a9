package kafka_test

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/relay/pkg/eventstream"
	"github.com/papercomputeco/relay/pkg/eventstream/kafka"
)

var _ = Describe("Publisher", func() {
	Describe("NewPublisher", func() {
		It("flushes single events without waiting for a batch", func() {
			p, err := kafka.NewPublisher(kafka.Config{Brokers: []string{"localhost:9092"}, Topic: "relay.completions"})
			Expect(err).NotTo(HaveOccurred())
			defer p.Close()

			w := kafka.WriterOf(p)
			Expect(w).NotTo(BeNil())
			Expect(w.BatchTimeout).To(BeNumerically(">", 0))
			Expect(w.BatchTimeout).To(BeNumerically("<=", 10*time.Millisecond))
		})

		It("requires brokers", func() {
			_, err := kafka.NewPublisher(kafka.Config{Topic: "relay.completions"})
			Expect(err).To(MatchError(ContainSubstring("broker")))
		})

		It("requires a topic", func() {
			_, err := kafka.NewPublisher(kafka.Config{Brokers: []string{"localhost:9092"}})
			Expect(err).To(MatchError(ContainSubstring("topic")))
		})

		It("builds a publisher without dialing", func() {
			p, err := kafka.NewPublisher(kafka.Config{Brokers: []string{"localhost:9092"}, Topic: "relay.completions"})
			Expect(err).NotTo(HaveOccurred())
			Expect(p.Close()).To(Succeed())
		})
	})

	Describe("PublishCompletion", func() {
		var (
			w *kafka.RecordingWriter
			p *kafka.Publisher
		)

		BeforeEach(func() {
			w = &kafka.RecordingWriter{}
			p = kafka.NewPublisherWithWriter(w)
		})

		It("rejects nil events", func() {
			Expect(p.PublishCompletion(context.Background(), nil)).To(MatchError(eventstream.ErrNilEvent))
			Expect(w.Messages).To(BeEmpty())
		})

		It("writes the event as JSON keyed by event id", func() {
			event := eventstream.NewRelayCompletedEvent(
				eventstream.EventSource{Provider: "gemini", Model: "gemini-1.5-flash-preview-0514"},
				eventstream.RelayMeta{Route: "/run", Status: eventstream.StatusOK},
				"What is baseball?",
				"A sport.",
			)

			Expect(p.PublishCompletion(context.Background(), event)).To(Succeed())
			Expect(w.Messages).To(HaveLen(1))

			msg := w.Messages[0]
			Expect(string(msg.Key)).To(Equal(event.EventID))

			var decoded eventstream.RelayCompletedEvent
			Expect(json.Unmarshal(msg.Value, &decoded)).To(Succeed())
			Expect(decoded.Answer).To(Equal("A sport."))
			Expect(decoded.Relay.Route).To(Equal("/run"))
		})

		It("wraps writer failures", func() {
			w.Err = errors.New("leader not available")
			err := p.PublishCompletion(context.Background(), &eventstream.RelayCompletedEvent{EventID: "evt"})
			Expect(err).To(MatchError(ContainSubstring("leader not available")))
		})

		It("closes the writer", func() {
			Expect(p.Close()).To(Succeed())
			Expect(w.Closed).To(BeTrue())
		})
	})
})
