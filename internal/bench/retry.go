package bench

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// TimeoutError indicates an operation did not complete within its deadline.
// It is the only error kind the retry wrapper retries.
type TimeoutError struct {
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("operation timed out after %s", e.After)
}

// WithTimeoutAndRetries races op against a timer. A timed-out attempt is
// retried with the same operation, up to maxRetries times (at most
// maxRetries+1 attempts total); any other error propagates immediately.
//
// A losing attempt is abandoned, not cancelled: the underlying call may run
// to completion on the remote side, its result discarded. This is a known
// resource leak per timeout.
func WithTimeoutAndRetries[T any](ctx context.Context, timeout time.Duration, maxRetries int, op func(context.Context) (T, error)) (T, error) {
	var zero T
	for attempt := 0; ; attempt++ {
		v, err := attemptOnce(ctx, timeout, op)
		if err == nil {
			return v, nil
		}

		var te *TimeoutError
		if !errors.As(err, &te) {
			return zero, err
		}
		if attempt >= maxRetries {
			return zero, err
		}

		slog.Warn("extraction call timed out, retrying",
			"timeout", timeout,
			"attempt", attempt+1,
			"max_attempts", maxRetries+1,
		)
	}
}

func attemptOnce[T any](ctx context.Context, timeout time.Duration, op func(context.Context) (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}

	// Buffered so an abandoned attempt can finish without a reader.
	done := make(chan result, 1)
	go func() {
		v, err := op(ctx)
		done <- result{v: v, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var zero T
	select {
	case r := <-done:
		return r.v, r.err
	case <-timer.C:
		return zero, &TimeoutError{After: timeout}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
