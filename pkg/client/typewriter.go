package client

import (
	"context"
	"iter"
	"time"
)

// DefaultPace is the delay between characters of the typewriter effect.
const DefaultPace = 20 * time.Millisecond

// Typewriter yields text one character (rune) at a time, waiting delay
// after each. Iteration stops early when ctx is cancelled.
func Typewriter(ctx context.Context, text string, delay time.Duration) iter.Seq[string] {
	return func(yield func(string) bool) {
		var timer *time.Timer
		defer func() {
			if timer != nil {
				timer.Stop()
			}
		}()

		for _, r := range text {
			if ctx.Err() != nil {
				return
			}
			if !yield(string(r)) {
				return
			}
			if delay <= 0 {
				continue
			}

			if timer == nil {
				timer = time.NewTimer(delay)
			} else {
				timer.Reset(delay)
			}

			select {
			case <-ctx.Done():
				return
			case <-timer.C:
			}
		}
	}
}
