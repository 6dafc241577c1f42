package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"scout/internal/retry"
)

var errTransient = errors.New("transient")

func transientOnly(err error) bool { return errors.Is(err, errTransient) }

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	p := retry.Policy{MaxAttempts: 4, BaseDelay: 10 * time.Millisecond, ShouldRetry: transientOnly}

	calls := 0
	start := time.Now()
	err := p.Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errTransient
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, calls)
	// 10ms + 20ms of backoff before the third attempt
	require.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestDo_NonRetryableReturnsImmediately(t *testing.T) {
	p := retry.Policy{MaxAttempts: 4, BaseDelay: 10 * time.Millisecond, ShouldRetry: transientOnly}

	terminal := errors.New("bad request")
	calls := 0
	err := p.Do(context.Background(), func() error {
		calls++
		return terminal
	})
	require.ErrorIs(t, err, terminal)
	require.Equal(t, 1, calls)
}

func TestDo_ExhaustionReturnsLastError(t *testing.T) {
	p := retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, ShouldRetry: transientOnly}

	calls := 0
	err := p.Do(context.Background(), func() error {
		calls++
		return errTransient
	})
	require.ErrorIs(t, err, errTransient)
	require.Equal(t, 3, calls)
}

func TestDo_NilPredicateNeverRetries(t *testing.T) {
	p := retry.Policy{MaxAttempts: 5, BaseDelay: time.Millisecond}

	calls := 0
	err := p.Do(context.Background(), func() error {
		calls++
		return errTransient
	})
	require.Error(t, err)
	require.Equal(t, 1, calls)
}

func TestDoValue_ReturnsValue(t *testing.T) {
	p := retry.Policy{MaxAttempts: 2, BaseDelay: time.Millisecond, ShouldRetry: transientOnly}

	calls := 0
	got, err := retry.DoValue(context.Background(), p, func() (string, error) {
		calls++
		if calls == 1 {
			return "", errTransient
		}
		return "ok", nil
	})
	require.NoError(t, err)
	require.Equal(t, "ok", got)
}

func TestDo_ServerHintOverridesBackoff(t *testing.T) {
	p := retry.Policy{
		MaxAttempts: 2,
		BaseDelay:   500 * time.Millisecond,
		ShouldRetry: transientOnly,
		RetryAfter: func(error) (time.Duration, bool) {
			return 20 * time.Millisecond, true
		},
	}

	start := time.Now()
	calls := 0
	err := p.Do(context.Background(), func() error {
		calls++
		if calls == 1 {
			return errTransient
		}
		return nil
	})
	require.NoError(t, err)
	elapsed := time.Since(start)
	require.GreaterOrEqual(t, elapsed, 20*time.Millisecond)
	require.Less(t, elapsed, 400*time.Millisecond, "hint should replace the configured delay")
}

func TestDo_BackoffDoublesFromServerHint(t *testing.T) {
	hinted := false
	p := retry.Policy{
		MaxAttempts: 3,
		BaseDelay:   5 * time.Millisecond,
		ShouldRetry: transientOnly,
		RetryAfter: func(error) (time.Duration, bool) {
			if hinted {
				return 0, false
			}
			hinted = true
			return 60 * time.Millisecond, true
		},
	}

	calls := 0
	start := time.Now()
	err := p.Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errTransient
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, calls)
	// 60ms hinted wait, then 120ms doubled from the hint rather than
	// 10ms doubled from the base delay
	require.GreaterOrEqual(t, time.Since(start), 170*time.Millisecond)
}

func TestDo_ContextCancelsBackoff(t *testing.T) {
	p := retry.Policy{MaxAttempts: 3, BaseDelay: time.Minute, ShouldRetry: transientOnly}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := p.Do(ctx, func() error { return errTransient })
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Less(t, time.Since(start), 10*time.Second)
}
