// Package retry wraps single upstream calls with bounded attempts and
// exponential backoff. Each operation class configures one Policy value;
// the constants are data, not copy-pasted loops.
package retry

import (
	"context"
	"time"
)

// Policy describes how one operation class retries. The zero values of
// MaxAttempts and BaseDelay are normalized to 1 attempt and 1 second.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration

	// ShouldRetry classifies an error as transient. A nil predicate
	// never retries.
	ShouldRetry func(error) bool

	// RetryAfter, when set, may return a server-suggested delay for a
	// retryable error. When it reports false the doubled delay is used.
	// The next backoff doubles from whichever delay was actually slept.
	RetryAfter func(error) (time.Duration, bool)
}

// Do runs op under the policy. It returns nil on the first success, the
// error unchanged when it is not retryable, and the last error once
// attempts are exhausted. Backoff sleeps honor ctx.
func (p Policy) Do(ctx context.Context, op func() error) error {
	_, err := DoValue(ctx, p, func() (struct{}, error) {
		return struct{}{}, op()
	})
	return err
}

// DoValue is Do for operations returning a value.
func DoValue[T any](ctx context.Context, p Policy, op func() (T, error)) (T, error) {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	delay := p.BaseDelay
	if delay <= 0 {
		delay = time.Second
	}

	var zero T
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		var val T
		val, err = op()
		if err == nil {
			return val, nil
		}
		if p.ShouldRetry == nil || !p.ShouldRetry(err) {
			return zero, err
		}
		if attempt == attempts {
			break
		}

		wait := delay
		if p.RetryAfter != nil {
			if suggested, ok := p.RetryAfter(err); ok && suggested > 0 {
				wait = suggested
			}
		}
		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		}
		delay = wait * 2
	}
	return zero, err
}
