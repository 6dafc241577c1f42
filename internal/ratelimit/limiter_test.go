package ratelimit_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"scout/internal/ratelimit"
)

type stubStore struct {
	mu      sync.Mutex
	count   int64
	incrErr error
	expires int
}

func (s *stubStore) Incr(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.incrErr != nil {
		return 0, s.incrErr
	}
	s.count++
	return s.count, nil
}

func (s *stubStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expires++
	return nil
}

func TestLimiter_AdmitsUpToMax(t *testing.T) {
	limiter := ratelimit.NewLimiter("test", ratelimit.Config{MaxRequests: 3, Window: time.Second}, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, limiter.Check(ctx))
	}
	require.ErrorIs(t, limiter.Check(ctx), ratelimit.ErrRateLimited)
}

func TestLimiter_WindowRollsOver(t *testing.T) {
	limiter := ratelimit.NewLimiter("test", ratelimit.Config{MaxRequests: 3, Window: time.Second}, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, limiter.Check(ctx))
		time.Sleep(100 * time.Millisecond)
	}
	require.ErrorIs(t, limiter.Check(ctx), ratelimit.ErrRateLimited)

	// The first admission ages out of the trailing window.
	time.Sleep(1100 * time.Millisecond)
	require.NoError(t, limiter.Check(ctx))
}

func TestLimiter_ZeroMaxRejectsEverything(t *testing.T) {
	limiter := ratelimit.NewLimiter("test", ratelimit.Config{MaxRequests: 0, Window: time.Second}, nil)
	require.ErrorIs(t, limiter.Check(context.Background()), ratelimit.ErrRateLimited)
}

func TestLimiter_StoreCounts(t *testing.T) {
	store := &stubStore{}
	limiter := ratelimit.NewLimiter("test", ratelimit.Config{MaxRequests: 2, Window: time.Minute}, store)
	ctx := context.Background()

	require.NoError(t, limiter.Check(ctx))
	require.NoError(t, limiter.Check(ctx))
	require.ErrorIs(t, limiter.Check(ctx), ratelimit.ErrRateLimited)
	require.Equal(t, 1, store.expires, "only the first admission of a window sets the TTL")
}

func TestLimiter_StoreErrorFallsBackInMemory(t *testing.T) {
	store := &stubStore{incrErr: errors.New("connection closed")}
	limiter := ratelimit.NewLimiter("test", ratelimit.Config{MaxRequests: 2, Window: time.Minute}, store)
	ctx := context.Background()

	// Store errors never surface; the in-memory queue decides.
	require.NoError(t, limiter.Check(ctx))
	require.NoError(t, limiter.Check(ctx))
	require.ErrorIs(t, limiter.Check(ctx), ratelimit.ErrRateLimited)
}

func TestLimiter_ConcurrentAdmissions(t *testing.T) {
	limiter := ratelimit.NewLimiter("test", ratelimit.Config{MaxRequests: 10, Window: time.Minute}, nil)

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0

	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := limiter.Check(context.Background()); err == nil {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 10, admitted)
}
