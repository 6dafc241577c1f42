package ratelimit

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// IsClosedErrForTest exposes the closed-connection classification.
func IsClosedErrForTest(err error) bool {
	return classifyErr(err) == errKindClosed
}

// ExecuteForTest exposes the reconnect-and-retry wrapper.
func (c *ReconnectingClient) ExecuteForTest(ctx context.Context, op func(context.Context, *redis.Client) (string, error)) (string, error) {
	return execute(ctx, c, op)
}
