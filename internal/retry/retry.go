// Package retry runs an operation again when it fails with a retryable error.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

// ErrExhausted wraps the last error once every attempt has failed.
var ErrExhausted = errors.New("retry budget exhausted")

// Policy bounds how often and how fast an operation is retried.
type Policy struct {
	MaxAttempts int
	// BaseDelay is multiplied by the attempt number before each retry.
	BaseDelay time.Duration
	// MaxJitter adds a random delay in [0, MaxJitter).
	MaxJitter time.Duration
	// Retryable decides whether err is worth another attempt.
	Retryable func(err error) bool
}

// Backoff returns the wait before retry number n (1-based).
func (p Policy) Backoff(n int) time.Duration {
	d := p.BaseDelay * time.Duration(n)
	if p.MaxJitter > 0 {
		d += rand.N(p.MaxJitter)
	}
	return d
}

// Do calls fn until it succeeds, returns a non-retryable error, ctx is done,
// or MaxAttempts calls have failed. In the last case the returned error wraps
// both ErrExhausted and the final failure.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for n := 1; n <= attempts; n++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}
		if p.Retryable == nil || !p.Retryable(err) {
			return err
		}
		if n == attempts {
			break
		}

		timer := time.NewTimer(p.Backoff(n))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrExhausted, attempts, err)
}
