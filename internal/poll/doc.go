// Package poll provides bounded, cancellable waiting on an injectable clock.
//
// It replaces fixed sleep loops with a Waiter that can be driven by a mock
// clock in tests, so shutdown-escalation logic is verified without
// wall-clock sleeps. Every wait aborts promptly on context cancellation.
package poll
