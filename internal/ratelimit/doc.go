// Package ratelimit implements the admission-control primitives shared
// by every upstream adapter: a fixed-window rate limiter backed by a
// shared Redis counter with an in-memory fallback, a pacing gate that
// enforces a minimum interval between successive calls, and a
// reconnecting Redis client that self-heals closed connections.
//
// The limiter bounds total volume per window ("at most N per minute");
// the pacing gate bounds burstiness ("no two calls within a second").
// Adapters apply both in sequence before any outbound call. A missing
// store is a fully supported mode, not a degraded one: every primitive
// falls back to process-local state.
package ratelimit
