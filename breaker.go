package gemguard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// BreakerState is the state of a CircuitBreaker.
type BreakerState int

const (
	StateClosed BreakerState = iota
	StateOpen
	StateHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig configures a CircuitBreaker.
type BreakerConfig struct {
	Name string `yaml:"name"`
	// FailureThreshold is the number of consecutive counted failures that
	// opens the breaker.
	FailureThreshold int `yaml:"failure_threshold"`
	// Timeout is how long the breaker stays open before admitting a trial call.
	Timeout time.Duration `yaml:"timeout"`
	// Expected selects the errors that count as failures. Other errors pass
	// through without touching breaker state. Nil counts every error except
	// cancellation of the caller's context.
	Expected func(error) bool `yaml:"-"`
}

// DefaultBreakerConfig returns a threshold of 5 and a 60s timeout.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:             "gemini",
		FailureThreshold: 5,
		Timeout:          60 * time.Second,
	}
}

// MatchAll counts every error except context cancellation.
func MatchAll(err error) bool {
	return !errors.Is(err, context.Canceled)
}

// MatchErrors returns a filter matching errors that wrap any of targets.
func MatchErrors(targets ...error) func(error) bool {
	return func(err error) bool {
		for _, t := range targets {
			if errors.Is(err, t) {
				return true
			}
		}
		return false
	}
}

// BreakerSnapshot is a read-only copy of breaker state.
type BreakerSnapshot struct {
	State       BreakerState
	Failures    int
	LastFailure time.Time
}

// CircuitBreaker short-circuits calls after repeated failures.
//
// Closed counts consecutive expected failures and opens at the threshold.
// Open rejects calls with ErrCircuitOpen until Timeout has elapsed since the
// last failure; the next call then moves it to HalfOpen and runs. A success
// in HalfOpen closes the breaker, a counted failure reopens it. The
// Open->HalfOpen move is evaluated when a call arrives, not by a timer.
// HalfOpen admits every concurrent caller as a trial call; the first result
// decides. Use breaker.Ratio with MaxRequests to bound trials.
type CircuitBreaker struct {
	cfg   BreakerConfig
	meter Meter
	now   func() time.Time

	mu          sync.Mutex
	state       BreakerState
	failures    int
	lastFailure time.Time
}

var _ Middleware = (*CircuitBreaker)(nil)

// BreakerOption configures a CircuitBreaker.
type BreakerOption func(*CircuitBreaker)

// WithBreakerMeter sets the meter receiving breaker events.
func WithBreakerMeter(m Meter) BreakerOption {
	return func(b *CircuitBreaker) { b.meter = m }
}

// WithBreakerClock sets the clock used for the open timeout.
func WithBreakerClock(now func() time.Time) BreakerOption {
	return func(b *CircuitBreaker) { b.now = now }
}

// NewCircuitBreaker creates a closed CircuitBreaker.
func NewCircuitBreaker(cfg BreakerConfig, opts ...BreakerOption) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.Expected == nil {
		cfg.Expected = MatchAll
	}

	b := &CircuitBreaker{
		cfg:   cfg,
		meter: noopMeter{},
		now:   time.Now,
		state: StateClosed,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name returns the breaker name.
func (b *CircuitBreaker) Name() string { return b.cfg.Name }

// State returns the current state. It does not perform the lazy
// Open->HalfOpen transition.
func (b *CircuitBreaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Snapshot returns a copy of the breaker state.
func (b *CircuitBreaker) Snapshot() BreakerSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BreakerSnapshot{State: b.state, Failures: b.failures, LastFailure: b.lastFailure}
}

// Do runs fn unless the breaker is open.
func (b *CircuitBreaker) Do(ctx context.Context, fn func(context.Context) error) error {
	if err := b.before(); err != nil {
		return err
	}

	err := fn(ctx)
	b.after(err)
	return err
}

func (b *CircuitBreaker) before() error {
	b.mu.Lock()

	if b.state != StateOpen {
		b.mu.Unlock()
		return nil
	}

	elapsed := b.now().Sub(b.lastFailure)
	if elapsed < b.cfg.Timeout {
		failures := b.failures
		b.mu.Unlock()
		return &BreakerOpenError{
			Name:       b.cfg.Name,
			Failures:   failures,
			RetryAfter: (b.cfg.Timeout - elapsed).Seconds(),
		}
	}

	b.state = StateHalfOpen
	ev := b.event(StateOpen, nil)
	b.mu.Unlock()

	b.meter.OnBreaker(ev)
	return nil
}

func (b *CircuitBreaker) after(err error) {
	if err != nil && !b.cfg.Expected(err) {
		return
	}

	b.mu.Lock()

	// A call admitted before the breaker opened must not change it.
	if b.state == StateOpen {
		b.mu.Unlock()
		return
	}

	if err == nil {
		from := b.state
		b.state = StateClosed
		b.failures = 0
		if from == StateClosed {
			b.mu.Unlock()
			return
		}
		ev := b.event(from, nil)
		b.mu.Unlock()
		b.meter.OnBreaker(ev)
		return
	}

	from := b.state
	b.failures++
	b.lastFailure = b.now()
	if from == StateHalfOpen || b.failures >= b.cfg.FailureThreshold {
		b.state = StateOpen
	}
	ev := b.event(from, err)
	b.mu.Unlock()

	b.meter.OnBreaker(ev)
}

// event must be called with b.mu held.
func (b *CircuitBreaker) event(from BreakerState, err error) BreakerEvent {
	return BreakerEvent{
		Name:      b.cfg.Name,
		From:      from,
		To:        b.state,
		Failures:  b.failures,
		Threshold: b.cfg.FailureThreshold,
		Err:       err,
	}
}

// Call runs op through b and returns its result.
func Call[T any](ctx context.Context, b *CircuitBreaker, op Op[T]) (T, error) {
	return Wrap[T](b, op)(ctx)
}

// Validate checks the breaker configuration.
func (c BreakerConfig) Validate() error {
	if c.FailureThreshold < 0 {
		return fmt.Errorf("gemguard: breaker: failure_threshold must be >= 0")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("gemguard: breaker: timeout must be >= 0")
	}
	return nil
}
