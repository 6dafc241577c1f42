package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"scout/pkg/logger"
)

// ErrRateLimited is returned by Check when the caller exceeded its
// quota for the current window.
var ErrRateLimited = errors.New("rate limit exceeded")

// CounterStore is the subset of store operations the limiter needs.
// *ReconnectingClient satisfies it.
type CounterStore interface {
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
}

// Config bounds one operation class: at most MaxRequests admissions per
// Window. Window values below one second are raised to one second so
// the store TTL (whole seconds) stays meaningful.
type Config struct {
	MaxRequests int
	Window      time.Duration
}

// outcome tags the result of one limiting layer so the fallback chain
// is explicit instead of being driven by error types.
type outcome int

const (
	outcomeAdmitted outcome = iota
	outcomeRejected
	outcomeUnavailable
)

// Limiter is a fixed-window rate limiter for a single named operation
// class. With a store it counts admissions in shared window-indexed
// keys; without one (or when the store fails) it falls back to a
// process-local timestamp queue.
type Limiter struct {
	name  string
	cfg   Config
	store CounterStore

	mu    sync.Mutex
	queue []int64 // admission times in ms, ascending
}

// NewLimiter creates a limiter for the given operation class. A nil
// store means in-memory limiting only.
func NewLimiter(name string, cfg Config, store CounterStore) *Limiter {
	if cfg.Window < time.Second {
		cfg.Window = time.Second
	}
	return &Limiter{name: name, cfg: cfg, store: store}
}

// Check admits or rejects the calling operation, recording admissions.
// Store transport failures never surface to the caller; the decision
// falls back to the in-memory path instead.
func (l *Limiter) Check(ctx context.Context) error {
	nowMs := time.Now().UnixMilli()

	if l.store != nil {
		switch l.storeCheck(ctx, nowMs) {
		case outcomeAdmitted:
			return nil
		case outcomeRejected:
			logger.Warn("rate limit exceeded", "module", "ratelimit", "name", l.name, "backend", "store")
			return ErrRateLimited
		}
		// outcomeUnavailable falls through to the in-memory path.
	}

	return l.memoryCheck(nowMs)
}

func (l *Limiter) storeCheck(ctx context.Context, nowMs int64) outcome {
	windowMs := l.cfg.Window.Milliseconds()
	key := fmt.Sprintf("ratelimit:%s:%d", l.name, nowMs/windowMs)

	count, err := l.store.Incr(ctx, key)
	if err != nil {
		logger.Warn("rate limiter store unavailable, falling back to in-memory",
			"module", "ratelimit", "name", l.name, "error", err)
		return outcomeUnavailable
	}
	if count == 1 {
		// First admission of the window owns the TTL. Best effort: a
		// lost expiry self-corrects once the key is evicted.
		if err := l.store.Expire(ctx, key, l.cfg.Window); err != nil {
			logger.Warn("rate limiter expire failed", "module", "ratelimit", "name", l.name, "error", err)
		}
	}
	if count > int64(l.cfg.MaxRequests) {
		return outcomeRejected
	}
	return outcomeAdmitted
}

func (l *Limiter) memoryCheck(nowMs int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	windowMs := l.cfg.Window.Milliseconds()
	cut := 0
	for cut < len(l.queue) && nowMs-l.queue[cut] > windowMs {
		cut++
	}
	l.queue = l.queue[cut:]

	if len(l.queue) >= l.cfg.MaxRequests {
		logger.Warn("rate limit exceeded", "module", "ratelimit", "name", l.name, "backend", "memory",
			"queue_length", len(l.queue))
		return ErrRateLimited
	}
	l.queue = append(l.queue, nowMs)
	return nil
}
