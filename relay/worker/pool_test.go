package worker

import (
	"context"
	"errors"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/relay/pkg/eventstream"
	"github.com/papercomputeco/relay/pkg/logger"
)

// recordingPublisher collects published events in memory.
type recordingPublisher struct {
	mu     sync.Mutex
	events []*eventstream.RelayCompletedEvent
	err    error
	closed bool
}

func (p *recordingPublisher) PublishCompletion(_ context.Context, event *eventstream.RelayCompletedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}
	if p.err != nil {
		return p.err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func newEvent(route string) *eventstream.RelayCompletedEvent {
	return eventstream.NewRelayCompletedEvent(
		eventstream.EventSource{Provider: "gemini", Model: "test-model"},
		eventstream.RelayMeta{Route: route, Status: eventstream.StatusOK},
		"What is baseball?",
		"A sport.",
	)
}

var _ = Describe("Worker Pool", func() {
	var (
		wp        *Pool
		publisher *recordingPublisher
	)

	BeforeEach(func() {
		publisher = &recordingPublisher{}

		var err error
		wp, err = NewPool(&Config{
			Publisher: publisher,
			Logger:    logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("NewPool", func() {
		It("requires a publisher", func() {
			_, err := NewPool(&Config{})
			Expect(err).To(MatchError(ContainSubstring("publisher is required")))
			wp.Close()
		})

		It("applies defaults", func() {
			Expect(wp.config.NumWorkers).To(Equal(defaultNumWorkers))
			Expect(cap(wp.queue)).To(Equal(int(defaultJobQueueSize)))
			wp.Close()
		})
	})

	Describe("Enqueue", func() {
		It("returns true when the queue has capacity", func() {
			Expect(wp.Enqueue(Job{Event: newEvent("/run")})).To(BeTrue())
			wp.Close()
		})

		It("publishes every queued event before Close returns", func() {
			for _, route := range []string{"/run", "/run_stream", "/run"} {
				Expect(wp.Enqueue(Job{Event: newEvent(route)})).To(BeTrue())
			}
			wp.Close()

			Expect(publisher.events).To(HaveLen(3))
			Expect(publisher.events[1].Relay.Route).To(Equal("/run_stream"))
			Expect(publisher.closed).To(BeTrue())
		})

		It("drops events when the queue is full", func() {
			blocked := make(chan struct{})
			full, err := NewPool(&Config{
				Publisher:  &blockingPublisher{release: blocked},
				NumWorkers: 1,
				QueueSize:  1,
				Logger:     logger.Nop(),
			})
			Expect(err).NotTo(HaveOccurred())

			// One event is held by the worker, one fills the queue.
			Expect(full.Enqueue(Job{Event: newEvent("/run")})).To(BeTrue())
			Eventually(func() int { return len(full.queue) }).Should(Equal(0))
			Expect(full.Enqueue(Job{Event: newEvent("/run")})).To(BeTrue())
			Expect(full.Enqueue(Job{Event: newEvent("/run")})).To(BeFalse())

			close(blocked)
			full.Close()
			wp.Close()
		})

		It("drops events enqueued after Close instead of panicking", func() {
			wp.Close()

			Expect(func() {
				Expect(wp.Enqueue(Job{Event: newEvent("/run_stream")})).To(BeFalse())
			}).NotTo(Panic())
			Expect(publisher.events).To(BeEmpty())
		})

		It("tolerates Close racing with Enqueue", func() {
			var senders sync.WaitGroup
			for range 8 {
				senders.Add(1)
				go func() {
					defer GinkgoRecover()
					defer senders.Done()
					for range 50 {
						wp.Enqueue(Job{Event: newEvent("/run")})
					}
				}()
			}

			wp.Close()
			wp.Close()
			senders.Wait()
			Expect(publisher.closed).To(BeTrue())
		})
	})

	Describe("publish failures", func() {
		It("are logged and do not stop the pool", func() {
			publisher.err = errors.New("broker unavailable")
			Expect(wp.Enqueue(Job{Event: newEvent("/run")})).To(BeTrue())
			wp.Close()

			Expect(publisher.events).To(BeEmpty())
			Expect(publisher.closed).To(BeTrue())
		})
	})
})

type blockingPublisher struct {
	release chan struct{}
}

func (p *blockingPublisher) PublishCompletion(_ context.Context, _ *eventstream.RelayCompletedEvent) error {
	<-p.release
	return nil
}

func (p *blockingPublisher) Close() error {
	return nil
}
