package poll

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"
)

// drive advances the mock clock in one-second steps until done is closed,
// letting waits progress without wall-clock sleeps.
func drive(mock *clock.Mock, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		default:
			mock.Add(time.Second)
		}
	}
}

// TestUntil_StopsAtFirstSuccess verifies cond is polled once per interval
// and polling ends at the first success.
func TestUntil_StopsAtFirstSuccess(t *testing.T) {
	t.Parallel()

	mock := clock.NewMock()
	waiter := NewWaiter(mock)

	var calls atomic.Int32

	done := make(chan struct{})
	go drive(mock, done)

	ok, err := waiter.Until(context.Background(), time.Second, 30, func() bool {
		return calls.Add(1) >= 3
	})

	close(done)

	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int32(3), calls.Load())
}

// TestUntil_ExhaustsAttempts verifies the attempt bound holds.
func TestUntil_ExhaustsAttempts(t *testing.T) {
	t.Parallel()

	mock := clock.NewMock()
	waiter := NewWaiter(mock)

	var calls atomic.Int32

	done := make(chan struct{})
	go drive(mock, done)

	ok, err := waiter.Until(context.Background(), time.Second, 10, func() bool {
		calls.Add(1)
		return false
	})

	close(done)

	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, int32(10), calls.Load())
}

// TestSleep_CancelAborts verifies cancellation wins over the timer.
func TestSleep_CancelAborts(t *testing.T) {
	t.Parallel()

	mock := clock.NewMock()
	waiter := NewWaiter(mock)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := waiter.Sleep(ctx, time.Minute)
	require.ErrorIs(t, err, context.Canceled)
}

// TestUntil_CancelPropagates verifies a canceled context surfaces from Until.
func TestUntil_CancelPropagates(t *testing.T) {
	t.Parallel()

	mock := clock.NewMock()
	waiter := NewWaiter(mock)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := waiter.Until(ctx, time.Second, 5, func() bool { return false })
	require.ErrorIs(t, err, context.Canceled)
}
