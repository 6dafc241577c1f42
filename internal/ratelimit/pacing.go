package ratelimit

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"scout/pkg/logger"
)

// PacingStore is the store operation the pacing gate needs.
// *ReconnectingClient satisfies it.
type PacingStore interface {
	Eval(ctx context.Context, script *redis.Script, keys []string, args ...any) (any, error)
}

// The script either claims the free slot or reserves the next one:
// the next-allowed timestamp advances on both branches, so N
// concurrent callers receive N distinct grant times each a full
// interval apart. Read, compare and write happen in one server-side
// step so two callers can never reserve the same slot. The reply is a
// string because Redis truncates numeric script replies to integers.
var pacingScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local min_interval = tonumber(ARGV[2])
local next_allowed = tonumber(redis.call("GET", KEYS[1]) or "0")
if now < next_allowed then
    redis.call("SET", KEYS[1], tostring(next_allowed + min_interval))
    return tostring(next_allowed - now)
end
redis.call("SET", KEYS[1], tostring(now + min_interval))
return "0"
`)

// PacingGate enforces a minimum interval between successive calls of a
// paced operation class across all processes sharing the store. Without
// a store it degrades to a process-local gate with the same interval.
type PacingGate struct {
	name     string
	interval time.Duration
	store    PacingStore
	local    *rate.Limiter
}

// NewPacingGate creates a gate for the given operation class. A nil
// store means process-local pacing only.
func NewPacingGate(name string, interval time.Duration, store PacingStore) *PacingGate {
	return &PacingGate{
		name:     name,
		interval: interval,
		store:    store,
		local:    rate.NewLimiter(rate.Every(interval), 1),
	}
}

// AcquireSlot blocks until the minimum interval since the last granted
// slot has elapsed. It fails only when ctx is cancelled while waiting.
func (g *PacingGate) AcquireSlot(ctx context.Context) error {
	if g.store != nil {
		wait, err := g.storeAcquire(ctx)
		if err == nil {
			if wait <= 0 {
				return nil
			}
			logger.Debug("pacing gate waiting", "module", "ratelimit", "name", g.name, "wait", wait)
			return sleep(ctx, wait)
		}
		logger.Warn("pacing store unavailable, using local gate",
			"module", "ratelimit", "name", g.name, "error", err)
	}
	return g.local.Wait(ctx)
}

func (g *PacingGate) storeAcquire(ctx context.Context) (time.Duration, error) {
	now := float64(time.Now().UnixMicro()) / 1e6
	reply, err := g.store.Eval(ctx, pacingScript, []string{"pace:" + g.name}, now, g.interval.Seconds())
	if err != nil {
		return 0, err
	}

	raw, ok := reply.(string)
	if !ok {
		return 0, errUnexpectedReply
	}
	seconds, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

var errUnexpectedReply = errors.New("unexpected pacing script reply")

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
