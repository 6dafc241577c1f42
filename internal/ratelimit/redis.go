package ratelimit

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"scout/pkg/logger"
)

// ErrCacheMiss is returned by Get when the key does not exist.
var ErrCacheMiss = errors.New("cache miss")

// errKind classifies store transport errors so retry decisions do not
// depend on matching error message substrings.
type errKind int

const (
	errKindNone errKind = iota
	errKindClosed
	errKindOther
)

func classifyErr(err error) errKind {
	switch {
	case err == nil:
		return errKindNone
	case errors.Is(err, redis.ErrClosed), errors.Is(err, net.ErrClosed):
		return errKindClosed
	default:
		return errKindOther
	}
}

// ReconnectingClient wraps a Redis client and transparently rebuilds it
// when an operation fails because the underlying connection was closed.
// The retry happens exactly once per operation; any other error, or a
// second failure after reconnecting, propagates unchanged.
//
// The client is shared by every limiter and pacing gate in the process.
type ReconnectingClient struct {
	mu     sync.Mutex
	opts   *redis.Options
	client *redis.Client
}

// NewReconnectingClient dials the store described by redisURL
// (redis:// or rediss://).
func NewReconnectingClient(redisURL string) (*ReconnectingClient, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	return &ReconnectingClient{
		opts:   opts,
		client: redis.NewClient(opts),
	}, nil
}

func (c *ReconnectingClient) current() *redis.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.client
}

// reconnect swaps in a fresh client. When another caller already
// replaced the one that failed, the existing replacement is reused.
func (c *ReconnectingClient) reconnect(failed *redis.Client) *redis.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != failed {
		return c.client
	}
	_ = c.client.Close()
	c.client = redis.NewClient(c.opts)
	return c.client
}

// execute runs op, reconnecting and retrying once when the error
// indicates a closed connection.
func execute[T any](ctx context.Context, c *ReconnectingClient, op func(context.Context, *redis.Client) (T, error)) (T, error) {
	client := c.current()
	val, err := op(ctx, client)
	if classifyErr(err) != errKindClosed {
		return val, err
	}

	logger.Debug("redis connection closed, reconnecting", "module", "ratelimit")
	client = c.reconnect(client)
	return op(ctx, client)
}

// Incr atomically increments the integer value at key.
func (c *ReconnectingClient) Incr(ctx context.Context, key string) (int64, error) {
	return execute(ctx, c, func(ctx context.Context, client *redis.Client) (int64, error) {
		return client.Incr(ctx, key).Result()
	})
}

// Expire sets a TTL on key.
func (c *ReconnectingClient) Expire(ctx context.Context, key string, ttl time.Duration) error {
	_, err := execute(ctx, c, func(ctx context.Context, client *redis.Client) (bool, error) {
		return client.Expire(ctx, key, ttl).Result()
	})
	return err
}

// Get returns the string value at key, or ErrCacheMiss.
func (c *ReconnectingClient) Get(ctx context.Context, key string) (string, error) {
	val, err := execute(ctx, c, func(ctx context.Context, client *redis.Client) (string, error) {
		return client.Get(ctx, key).Result()
	})
	if errors.Is(err, redis.Nil) {
		return "", ErrCacheMiss
	}
	return val, err
}

// Set stores value at key with the given TTL.
func (c *ReconnectingClient) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	_, err := execute(ctx, c, func(ctx context.Context, client *redis.Client) (string, error) {
		return client.Set(ctx, key, value, ttl).Result()
	})
	return err
}

// Eval runs a server-side script.
func (c *ReconnectingClient) Eval(ctx context.Context, script *redis.Script, keys []string, args ...any) (any, error) {
	return execute(ctx, c, func(ctx context.Context, client *redis.Client) (any, error) {
		return script.Run(ctx, client, keys, args...).Result()
	})
}

// Ping checks connectivity.
func (c *ReconnectingClient) Ping(ctx context.Context) error {
	_, err := execute(ctx, c, func(ctx context.Context, client *redis.Client) (string, error) {
		return client.Ping(ctx).Result()
	})
	return err
}

// Close releases the underlying connection pool.
func (c *ReconnectingClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.client.Close()
}
