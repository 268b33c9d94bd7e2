package poll

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
)

// Waiter performs bounded sleeps and condition polls against a clock.
type Waiter struct {
	clock clock.Clock
}

// NewWaiter returns a Waiter on the given clock. A nil clock means the
// real one.
func NewWaiter(c clock.Clock) *Waiter {
	if c == nil {
		c = clock.New()
	}

	return &Waiter{clock: c}
}

// Sleep blocks for the given duration or until the context is canceled.
func (w *Waiter) Sleep(ctx context.Context, d time.Duration) error {
	timer := w.clock.Timer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Until polls cond up to attempts times, sleeping interval before each
// check. It returns true as soon as cond holds, false when every attempt
// is exhausted, and the context error on cancellation.
func (w *Waiter) Until(ctx context.Context, interval time.Duration, attempts int, cond func() bool) (bool, error) {
	for i := 0; i < attempts; i++ {
		if err := w.Sleep(ctx, interval); err != nil {
			return false, err
		}

		if cond() {
			return true, nil
		}
	}

	return false, nil
}
