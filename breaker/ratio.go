// Package breaker provides alternative circuit breakers for gemguard.
package breaker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ineyio/gemguard"
	"github.com/sony/gobreaker"
)

// RatioConfig configures a failure-ratio breaker.
type RatioConfig struct {
	Name string
	// MaxRequests is the number of trial calls allowed while half-open.
	MaxRequests uint32
	// Interval is the closed-state window after which counts are cleared.
	// 0 never clears them.
	Interval time.Duration
	// Timeout is how long the breaker stays open.
	Timeout time.Duration
	// MinRequests is the number of calls in the window before the ratio is
	// considered.
	MinRequests uint32
	// TripRatio opens the breaker when failures/requests reaches it.
	TripRatio float64
	// Expected selects counted failures; other errors count as successes.
	// Nil counts every error.
	Expected func(error) bool
}

// Ratio is a breaker that trips on a failure ratio rather than a run of
// consecutive failures. It is backed by sony/gobreaker.
type Ratio struct {
	cb    *gobreaker.CircuitBreaker
	meter gemguard.Meter
}

var _ gemguard.Middleware = (*Ratio)(nil)

// NewRatio creates a Ratio breaker. Transitions are reported to m when it
// is non-nil.
func NewRatio(cfg RatioConfig, m gemguard.Meter) *Ratio {
	if cfg.MinRequests == 0 {
		cfg.MinRequests = 3
	}
	if cfg.TripRatio <= 0 {
		cfg.TripRatio = 0.6
	}
	expected := cfg.Expected
	if expected == nil {
		expected = gemguard.MatchAll
	}

	r := &Ratio{meter: m}
	st := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= cfg.TripRatio
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !expected(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if r.meter == nil {
				return
			}
			r.meter.OnBreaker(gemguard.BreakerEvent{
				Name: name,
				From: convertState(from),
				To:   convertState(to),
			})
		},
	}
	r.cb = gobreaker.NewCircuitBreaker(st)
	return r
}

// Do runs fn unless the breaker is open or its half-open trial budget is
// used up. Rejections match gemguard.ErrCircuitOpen.
func (r *Ratio) Do(ctx context.Context, fn func(context.Context) error) error {
	_, err := r.cb.Execute(func() (interface{}, error) {
		return nil, fn(ctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %s: %v", gemguard.ErrCircuitOpen, r.cb.Name(), err)
	}
	return err
}

// State returns the current breaker state.
func (r *Ratio) State() gemguard.BreakerState {
	return convertState(r.cb.State())
}

// Counts returns the requests and failures seen in the current window.
func (r *Ratio) Counts() (requests, failures uint32) {
	c := r.cb.Counts()
	return c.Requests, c.TotalFailures
}

func convertState(s gobreaker.State) gemguard.BreakerState {
	switch s {
	case gobreaker.StateOpen:
		return gemguard.StateOpen
	case gobreaker.StateHalfOpen:
		return gemguard.StateHalfOpen
	default:
		return gemguard.StateClosed
	}
}
