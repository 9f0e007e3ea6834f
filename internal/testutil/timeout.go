package testutil

import (
	"context"
	"testing"
	"time"
)

// Default timeouts for player operations under test.
const (
	// DefaultBackendTimeout bounds backend calls in integration tests.
	DefaultBackendTimeout = 30 * time.Second

	// DefaultTestBuffer is the buffer time subtracted from the test
	// deadline to allow for cleanup before the test times out.
	DefaultTestBuffer = 10 * time.Second
)

// ContextWithTestDeadline creates a context that respects the test's deadline.
// It subtracts a buffer from the test deadline to allow time for cleanup.
// If the test has no deadline, it falls back to the provided fallback duration.
//
// Usage:
//
//	func TestSomething(t *testing.T) {
//	    ctx, cancel := testutil.ContextWithTestDeadline(t, time.Minute)
//	    defer cancel()
//	    // ... test code using ctx
//	}
func ContextWithTestDeadline(t *testing.T, fallback time.Duration) (context.Context, context.CancelFunc) {
	t.Helper()
	return ContextWithTestDeadlineBuffer(t, fallback, DefaultTestBuffer)
}

// ContextWithTestDeadlineBuffer creates a context that respects the test's
// deadline with a custom buffer. If the test has no deadline, or the
// adjusted deadline is already in the past, the fallback duration is used.
func ContextWithTestDeadlineBuffer(t *testing.T, fallback, buffer time.Duration) (context.Context, context.CancelFunc) {
	t.Helper()

	if deadline, ok := t.Deadline(); ok {
		adjusted := deadline.Add(-buffer)
		if time.Until(adjusted) > 0 {
			return context.WithDeadline(context.Background(), adjusted)
		}
	}
	return context.WithTimeout(context.Background(), fallback)
}

// BackendContext creates a context with the standard backend timeout,
// respecting the test deadline if one is set.
func BackendContext(t *testing.T) (context.Context, context.CancelFunc) {
	t.Helper()
	return ContextWithTestDeadline(t, DefaultBackendTimeout)
}
