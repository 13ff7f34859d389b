package executor

import (
	"context"
	"time"
)

// RetryPolicy bounds a fixed-interval retry loop by a total time budget
// rather than an attempt count. Page loads against IMDB use a 180 second
// budget subdivided into short intervals.
type RetryPolicy struct {
	Interval time.Duration
	Budget   time.Duration
}

// Retryable marks errors worth retrying under a RetryPolicy. Errors that do
// not implement it are terminal for the attempt.
type Retryable interface {
	Retryable() bool
}

// Retry runs fn until it succeeds, the policy budget is exhausted, or it
// returns a non-retryable error. The last error is returned on exhaustion.
func Retry[T any](ctx context.Context, policy RetryPolicy, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	deadline := time.Now().Add(policy.Budget)

	for {
		value, err := fn(ctx)
		if err == nil {
			return value, nil
		}
		if r, ok := err.(Retryable); !ok || !r.Retryable() {
			return zero, err
		}
		if time.Now().Add(policy.Interval).After(deadline) {
			return zero, err
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(policy.Interval):
		}
	}
}
