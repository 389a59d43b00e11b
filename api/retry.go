package api

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"takerminer/logger"
)

// Every API operation gets this many attempts, DefaultRetryDelay apart.
const (
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = 3 * time.Second
)

// RetryPolicy bounds how many times an operation is tried and how long to
// wait between tries.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// DefaultRetryPolicy returns the fixed 3 attempts, 3s apart policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: DefaultMaxAttempts, Delay: DefaultRetryDelay}
}

// Retry runs fn until it succeeds, returns a permanent error, the context is
// done, or policy.MaxAttempts attempts have failed. Every failed attempt that
// is followed by another one is logged as a warning; the final failure is
// logged as an error and returned.
func Retry[T any](ctx context.Context, policy RetryPolicy, op string, fn func(context.Context) (T, error)) (T, error) {
	log := logger.FromContext(ctx)

	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var b backoff.BackOff = backoff.NewConstantBackOff(policy.Delay)
	b = backoff.WithMaxRetries(b, uint64(attempts-1))
	b = backoff.WithContext(b, ctx)

	attempt := 0
	result, err := backoff.RetryNotifyWithData(func() (T, error) {
		attempt++
		return fn(ctx)
	}, b, func(err error, next time.Duration) {
		log.Warn(op+" failed",
			"error", err,
			"retry_in", next,
			"attempts_left", attempts-attempt)
	})
	if err != nil {
		log.Error(op+" failed after retries",
			"attempts", attempt,
			"error", err)
		var zero T
		return zero, err
	}
	return result, nil
}
