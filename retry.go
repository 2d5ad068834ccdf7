package gemguard

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"
)

// RetryPolicy configures exponential backoff.
type RetryPolicy struct {
	// MaxRetries is the number of attempts after the first.
	MaxRetries int
	// BaseDelay is the delay after the first failed attempt.
	BaseDelay time.Duration
	// MaxDelay caps every computed delay.
	MaxDelay time.Duration
	// ExponentialBase is the per-attempt multiplier.
	ExponentialBase float64
	// Jitter multiplies each delay by a uniform factor in [0.5, 1.5).
	// The result is still capped by MaxDelay.
	Jitter bool
	// NonRetryable reports errors that must be returned without retrying.
	// Nil means IsNonRetryable.
	NonRetryable func(error) bool
}

// DefaultRetryPolicy returns 3 retries, 1s base, 60s cap, base 2, jitter on.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:      3,
		BaseDelay:       time.Second,
		MaxDelay:        60 * time.Second,
		ExponentialBase: 2.0,
		Jitter:          true,
		NonRetryable:    IsNonRetryable,
	}
}

// Delay returns the jitter-free delay after failed attempt i (zero-based):
// min(BaseDelay * ExponentialBase^i, MaxDelay).
// A zero MaxDelay leaves the delay uncapped; it saturates at the largest
// time.Duration instead of overflowing.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	return p.clamp(float64(p.BaseDelay) * math.Pow(p.ExponentialBase, float64(attempt)))
}

func (p RetryPolicy) clamp(d float64) time.Duration {
	switch {
	case math.IsNaN(d) || d <= 0:
		return 0
	case p.MaxDelay > 0 && d > float64(p.MaxDelay):
		return p.MaxDelay
	case d >= math.MaxInt64:
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(d)
}

// Validate checks the policy for inconsistent values.
func (p RetryPolicy) Validate() error {
	if p.MaxRetries < 0 {
		return fmt.Errorf("gemguard: retry: max_retries must be >= 0")
	}
	if p.BaseDelay < 0 || p.MaxDelay < 0 {
		return fmt.Errorf("gemguard: retry: delays must be >= 0")
	}
	if p.ExponentialBase < 1 {
		return fmt.Errorf("gemguard: retry: exponential_base must be >= 1")
	}
	return nil
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RetryExecutor runs operations with exponential backoff.
// It holds no per-call state and is safe for concurrent use.
type RetryExecutor struct {
	policy RetryPolicy
	meter  Meter
	sleep  Sleeper
	random func() float64
}

var _ Middleware = (*RetryExecutor)(nil)

// RetryOption configures a RetryExecutor.
type RetryOption func(*RetryExecutor)

// WithRetryMeter sets the meter receiving retry events.
func WithRetryMeter(m Meter) RetryOption {
	return func(r *RetryExecutor) { r.meter = m }
}

// WithSleeper replaces the wait between attempts.
func WithSleeper(s Sleeper) RetryOption {
	return func(r *RetryExecutor) { r.sleep = s }
}

// WithRandom replaces the jitter source; fn must return values in [0, 1).
func WithRandom(fn func() float64) RetryOption {
	return func(r *RetryExecutor) { r.random = fn }
}

// NewRetryExecutor creates a RetryExecutor for policy.
func NewRetryExecutor(policy RetryPolicy, opts ...RetryOption) *RetryExecutor {
	if policy.MaxRetries < 0 {
		policy.MaxRetries = 0
	}
	if policy.ExponentialBase <= 0 {
		policy.ExponentialBase = 2.0
	}
	if policy.ExponentialBase < 1 {
		policy.ExponentialBase = 1
	}
	if policy.BaseDelay < 0 {
		policy.BaseDelay = 0
	}
	if policy.NonRetryable == nil {
		policy.NonRetryable = IsNonRetryable
	}

	r := &RetryExecutor{
		policy: policy,
		meter:  noopMeter{},
		sleep:  sleepContext,
		random: rand.Float64,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Policy returns the executor's policy.
func (r *RetryExecutor) Policy() RetryPolicy { return r.policy }

// Do runs fn until it succeeds, fails with a non-retryable error, or
// MaxRetries+1 attempts have failed. In the last case the final error is
// returned wrapped in a *RetryError.
func (r *RetryExecutor) Do(ctx context.Context, fn func(context.Context) error) error {
	attempts := r.policy.MaxRetries + 1

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return errors.Join(err, lastErr)
			}
			return err
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if r.policy.NonRetryable(err) {
			r.meter.OnRetry(RetryEvent{
				Attempt:      attempt,
				MaxAttempts:  attempts,
				Err:          err,
				NonRetryable: true,
			})
			return err
		}

		if attempt == attempts-1 {
			break
		}

		delay := r.delay(attempt)
		r.meter.OnRetry(RetryEvent{
			Attempt:     attempt,
			MaxAttempts: attempts,
			Delay:       delay,
			Err:         err,
		})

		if err := r.sleep(ctx, delay); err != nil {
			return errors.Join(err, lastErr)
		}
	}

	r.meter.OnRetry(RetryEvent{
		Attempt:     attempts - 1,
		MaxAttempts: attempts,
		Err:         lastErr,
		Exhausted:   true,
	})
	return &RetryError{Attempts: attempts, Err: lastErr}
}

func (r *RetryExecutor) delay(attempt int) time.Duration {
	d := r.policy.Delay(attempt)
	if r.policy.Jitter {
		return r.policy.clamp(float64(d) * (0.5 + r.random()))
	}
	return d
}

// Retry runs op through r and returns its result.
func Retry[T any](ctx context.Context, r *RetryExecutor, op Op[T]) (T, error) {
	return Wrap[T](r, op)(ctx)
}
