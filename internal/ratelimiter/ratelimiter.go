// Package ratelimiter throttles outgoing RPC calls with a token bucket.
//
// A mount client talking to a shared mountd is a good citizen when scripted
// callers (probes, bulk umounts) cannot flood the server. The limiter wraps
// golang.org/x/time/rate; a nil *RateLimiter is valid and never throttles.
package ratelimiter

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimiter gates calls at a sustained rate with a burst allowance.
//
// Thread safety:
// All methods are safe for concurrent use.
type RateLimiter struct {
	limiter *rate.Limiter
}

// New creates a limiter allowing callsPerSecond sustained calls and bursts
// of up to burst calls.
//
// callsPerSecond <= 0 disables limiting and returns nil. A burst below 1 is
// raised to 1, otherwise no call could ever pass.
func New(callsPerSecond float64, burst int) *RateLimiter {
	if callsPerSecond <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(callsPerSecond), burst),
	}
}

// Allow consumes a token if one is available and reports whether it did.
func (r *RateLimiter) Allow() bool {
	if r == nil {
		return true
	}
	return r.limiter.Allow()
}

// Wait blocks until a token is available or ctx is done.
//
// Returns the context error, wrapped, if the wait was abandoned.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if r == nil {
		return ctx.Err()
	}
	if err := r.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	return nil
}

// SetLimit changes the sustained rate. callsPerSecond <= 0 removes the limit.
func (r *RateLimiter) SetLimit(callsPerSecond float64) {
	if r == nil {
		return
	}
	if callsPerSecond <= 0 {
		r.limiter.SetLimit(rate.Inf)
		return
	}
	r.limiter.SetLimit(rate.Limit(callsPerSecond))
}

// SetBurst changes the bucket capacity.
func (r *RateLimiter) SetBurst(burst int) {
	if r == nil {
		return
	}
	if burst < 1 {
		burst = 1
	}
	r.limiter.SetBurst(burst)
}

// Limit returns the sustained rate in calls per second (0 when unlimited).
func (r *RateLimiter) Limit() float64 {
	if r == nil || r.limiter.Limit() == rate.Inf {
		return 0
	}
	return float64(r.limiter.Limit())
}

// Burst returns the bucket capacity.
func (r *RateLimiter) Burst() int {
	if r == nil {
		return 0
	}
	return r.limiter.Burst()
}

// Tokens returns the number of tokens currently available. The value may be
// stale as soon as it is returned.
func (r *RateLimiter) Tokens() float64 {
	if r == nil {
		return 0
	}
	return r.limiter.Tokens()
}
