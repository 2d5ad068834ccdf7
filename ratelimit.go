package gemguard

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimitConfig configures client-side request pacing.
type RateLimitConfig struct {
	// RequestsPerSecond of 0 disables pacing.
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// RateLimiter paces calls with a token bucket so that bursts do not run
// straight into provider rate limits.
type RateLimiter struct {
	limiter *rate.Limiter
}

var _ Middleware = (*RateLimiter)(nil)

// NewRateLimiter creates a limiter allowing rps calls per second with the
// given burst.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

// Do waits for a token, then runs fn.
func (l *RateLimiter) Do(ctx context.Context, fn func(context.Context) error) error {
	if err := l.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("gemguard: rate limiter: %w", err)
	}
	return fn(ctx)
}

// Allow reports whether a call may run now without waiting, consuming a
// token if so.
func (l *RateLimiter) Allow() bool {
	return l.limiter.Allow()
}
