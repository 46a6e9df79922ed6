// Package ratelimiter throttles how fast the server accepts new TCP
// connections, per SPEC_FULL §4.9. It wraps golang.org/x/time/rate with the
// token-bucket parameters config.AcceptLimitConfig exposes and nothing more:
// the accept loop only ever needs a non-blocking check, never a wait.
package ratelimiter

import (
	"golang.org/x/time/rate"
)

// RateLimiter gates Accept() calls with a token bucket: requestsPerSecond
// tokens are added per second, up to burst capacity, and each accepted
// connection consumes one.
type RateLimiter struct {
	limiter *rate.Limiter
}

// New creates a RateLimiter. A requestsPerSecond of 0 disables throttling
// (server.New never constructs one in that case, but New stays
// total so a zero value is never a trap for a future caller).
func New(requestsPerSecond, burst uint) *RateLimiter {
	if requestsPerSecond == 0 {
		requestsPerSecond = 1_000_000_000 // effectively unlimited
		burst = requestsPerSecond
	}

	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), int(burst)),
	}
}

// Allow reports whether the next connection may be accepted now, consuming
// one token if so. The accept loop rejects the connection immediately on
// false rather than waiting, since a blocked acceptor stalls every other
// pending connection behind it too.
func (r *RateLimiter) Allow() bool {
	return r.limiter.Allow()
}
