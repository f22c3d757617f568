// Package retry implements the exponential-backoff-with-jitter retry
// policy used by the vector-store adapter and the OpenAI-backed model
// adapter. The persistence and queue adapters do not retry.
package retry

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// Policy is the retry policy described in spec §4.1: up to MaxAttempts
// attempts on a transient error, exponential backoff with jitter, no
// retry on non-transient errors.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Factor      float64
	JitterFrac  float64
}

func Default() Policy {
	return Policy{MaxAttempts: 3, BaseDelay: 50 * time.Millisecond, Factor: 2, JitterFrac: 0.2}
}

// Transient classifies an error as retryable. Adapters pass errors they've
// already classified into this shape by wrapping with MarkTransient.
type transientError struct{ err error }

func (t *transientError) Error() string { return t.err.Error() }
func (t *transientError) Unwrap() error { return t.err }

func MarkTransient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

func IsTransient(err error) bool {
	var t *transientError
	return errors.As(err, &t)
}

// Do runs fn, retrying on transient errors per the policy. fn should wrap
// retryable failures with MarkTransient; anything else aborts immediately.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	delay := p.BaseDelay
	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if !IsTransient(err) || attempt == p.MaxAttempts {
			return unwrapTransient(err)
		}
		sleep := jitter(delay, p.JitterFrac)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleep):
		}
		delay = time.Duration(float64(delay) * p.Factor)
	}
	return unwrapTransient(lastErr)
}

func unwrapTransient(err error) error {
	var t *transientError
	if errors.As(err, &t) {
		return t.err
	}
	return err
}

func jitter(d time.Duration, frac float64) time.Duration {
	if frac <= 0 {
		return d
	}
	delta := float64(d) * frac
	offset := (rand.Float64()*2 - 1) * delta
	result := float64(d) + offset
	if result < 0 {
		result = 0
	}
	return time.Duration(result)
}
