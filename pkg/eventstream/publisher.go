package eventstream

import "context"

// Publisher publishes relay events to an event stream backend.
type Publisher interface {
	PublishCompletion(ctx context.Context, event *RelayCompletedEvent) error
	Close() error
}
