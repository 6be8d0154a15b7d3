// Package reliability contains retry and maintenance helpers for outbound calls and local storage.
package reliability

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// Backoff configures Retry. A zero Base or AttemptTimeout falls back to the DefaultBackoff value.
type Backoff struct {
	Base           time.Duration // Delay before the first retry, doubled per attempt
	MaxJitter      time.Duration // Uniform random jitter added to each delay, in [0, MaxJitter)
	MaxRetries     int           // Retries after the first attempt
	AttemptTimeout time.Duration // Deadline for a single attempt
}

// DefaultBackoff is used for every provider call: 250ms base, <100ms jitter, 3 retries, 8s per attempt.
func DefaultBackoff() Backoff {
	return Backoff{
		Base:           250 * time.Millisecond,
		MaxJitter:      100 * time.Millisecond,
		MaxRetries:     3,
		AttemptTimeout: 8 * time.Second,
	}
}

// Next returns the wait before retry number attempt (1-based): Base * 2^(attempt-1) + jitter.
func (b Backoff) Next(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}
	base := b.Base
	if base <= 0 {
		base = DefaultBackoff().Base
	}

	wait := base << uint(attempt-1)
	if b.MaxJitter > 0 {
		wait += time.Duration(rand.Int63n(int64(b.MaxJitter)))
	}
	return wait
}

// ErrAttemptTimeout is returned for an attempt that did not finish before AttemptTimeout
var ErrAttemptTimeout = errors.New("attempt timed out")

type attemptResult[T any] struct {
	value T
	err   error
}

// Retry runs op until it succeeds or the retries are exhausted, returning the last error.
// Each attempt gets its own deadline. An attempt that misses it is abandoned and its late
// result discarded, so ops that ignore their context cannot stall the caller.
// Waiting between attempts stops as soon as ctx is done.
func Retry[T any](ctx context.Context, b Backoff, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	timeout := b.AttemptTimeout
	if timeout <= 0 {
		timeout = DefaultBackoff().AttemptTimeout
	}
	retries := b.MaxRetries
	if retries < 0 {
		retries = 0
	}

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(b.Next(attempt))
			select {
			case <-ctx.Done():
				timer.Stop()
				return zero, fmt.Errorf("retry aborted after %d attempts: %w (last error: %v)", attempt, ctx.Err(), lastErr)
			case <-timer.C:
			}
		}

		value, err := runAttempt(ctx, timeout, op)
		if err == nil {
			return value, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return zero, lastErr
		}
	}

	return zero, lastErr
}

func runAttempt[T any](ctx context.Context, timeout time.Duration, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Buffered so an abandoned op can still deliver and exit
	done := make(chan attemptResult[T], 1)
	go func() {
		v, err := op(attemptCtx)
		done <- attemptResult[T]{value: v, err: err}
	}()

	select {
	case res := <-done:
		return res.value, res.err
	case <-attemptCtx.Done():
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		return zero, fmt.Errorf("%w after %s", ErrAttemptTimeout, timeout)
	}
}
