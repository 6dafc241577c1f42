package ratelimit_test

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"scout/internal/ratelimit"
)

func TestClassify_ClosedConnection(t *testing.T) {
	require.True(t, ratelimit.IsClosedErrForTest(redis.ErrClosed))
	require.True(t, ratelimit.IsClosedErrForTest(fmt.Errorf("incr: %w", redis.ErrClosed)))
	require.True(t, ratelimit.IsClosedErrForTest(net.ErrClosed))
	require.False(t, ratelimit.IsClosedErrForTest(nil))
	require.False(t, ratelimit.IsClosedErrForTest(errors.New("connection closed")),
		"message substrings must not drive classification")
}

func TestNewReconnectingClient_InvalidURL(t *testing.T) {
	_, err := ratelimit.NewReconnectingClient("not-a-url")
	require.Error(t, err)
}

func TestReconnectingClient_RetriesOnceOnClosed(t *testing.T) {
	client, err := ratelimit.NewReconnectingClient("redis://127.0.0.1:6379/0")
	require.NoError(t, err)
	defer client.Close()

	calls := 0
	result, err := client.ExecuteForTest(context.Background(), func(ctx context.Context, c *redis.Client) (string, error) {
		calls++
		if calls == 1 {
			return "", redis.ErrClosed
		}
		return "ok", nil
	})
	require.NoError(t, err)
	require.Equal(t, "ok", result)
	require.Equal(t, 2, calls)
}

func TestReconnectingClient_OtherErrorsPropagate(t *testing.T) {
	client, err := ratelimit.NewReconnectingClient("redis://127.0.0.1:6379/0")
	require.NoError(t, err)
	defer client.Close()

	boom := errors.New("boom")
	calls := 0
	_, err = client.ExecuteForTest(context.Background(), func(ctx context.Context, c *redis.Client) (string, error) {
		calls++
		return "", boom
	})
	require.ErrorIs(t, err, boom)
	require.Equal(t, 1, calls, "non-closed errors are not retried")
}

func TestReconnectingClient_SecondFailurePropagates(t *testing.T) {
	client, err := ratelimit.NewReconnectingClient("redis://127.0.0.1:6379/0")
	require.NoError(t, err)
	defer client.Close()

	calls := 0
	_, err = client.ExecuteForTest(context.Background(), func(ctx context.Context, c *redis.Client) (string, error) {
		calls++
		return "", redis.ErrClosed
	})
	require.ErrorIs(t, err, redis.ErrClosed)
	require.Equal(t, 2, calls, "exactly one reconnect attempt per operation")
}
