package gemguard_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	gg "github.com/ineyio/gemguard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func failing(ctx context.Context) error    { return gg.ErrServerError }
func succeeding(ctx context.Context) error { return nil }

func TestBreaker_OpensAtThreshold(t *testing.T) {
	clock := newFakeClock()
	b := gg.NewCircuitBreaker(gg.BreakerConfig{Name: "test", FailureThreshold: 3, Timeout: time.Minute},
		gg.WithBreakerClock(clock.Now))

	for i := 0; i < 2; i++ {
		assert.ErrorIs(t, b.Do(context.Background(), failing), gg.ErrServerError)
		assert.Equal(t, gg.StateClosed, b.State())
	}
	assert.ErrorIs(t, b.Do(context.Background(), failing), gg.ErrServerError)
	assert.Equal(t, gg.StateOpen, b.State())

	invoked := false
	err := b.Do(context.Background(), func(ctx context.Context) error {
		invoked = true
		return nil
	})
	require.Error(t, err)
	assert.False(t, invoked)
	assert.ErrorIs(t, err, gg.ErrCircuitOpen)

	var openErr *gg.BreakerOpenError
	require.ErrorAs(t, err, &openErr)
	assert.Equal(t, "test", openErr.Name)
	assert.Equal(t, 3, openErr.Failures)
	assert.InDelta(t, 60.0, openErr.RetryAfter, 0.001)
}

func TestBreaker_SuccessResetsCount(t *testing.T) {
	b := gg.NewCircuitBreaker(gg.BreakerConfig{FailureThreshold: 3, Timeout: time.Minute})

	_ = b.Do(context.Background(), failing)
	_ = b.Do(context.Background(), failing)
	require.NoError(t, b.Do(context.Background(), succeeding))
	assert.Equal(t, 0, b.Snapshot().Failures)

	_ = b.Do(context.Background(), failing)
	_ = b.Do(context.Background(), failing)
	assert.Equal(t, gg.StateClosed, b.State())
}

func TestBreaker_HalfOpenRecovery(t *testing.T) {
	clock := newFakeClock()
	m := &recordingMeter{}
	b := gg.NewCircuitBreaker(gg.BreakerConfig{Name: "test", FailureThreshold: 1, Timeout: 30 * time.Second},
		gg.WithBreakerClock(clock.Now), gg.WithBreakerMeter(m))

	_ = b.Do(context.Background(), failing)
	require.Equal(t, gg.StateOpen, b.State())

	clock.Advance(29 * time.Second)
	assert.ErrorIs(t, b.Do(context.Background(), succeeding), gg.ErrCircuitOpen)

	clock.Advance(time.Second)
	// State does not move until a call arrives.
	assert.Equal(t, gg.StateOpen, b.State())

	var seen gg.BreakerState
	err := b.Do(context.Background(), func(ctx context.Context) error {
		seen = b.State()
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, gg.StateHalfOpen, seen)
	assert.Equal(t, gg.StateClosed, b.State())
	assert.Equal(t, 0, b.Snapshot().Failures)

	var transitions []string
	for _, e := range m.breakers {
		if e.Transition() {
			transitions = append(transitions, e.From.String()+"->"+e.To.String())
		}
	}
	assert.Equal(t, []string{"closed->open", "open->half-open", "half-open->closed"}, transitions)
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	clock := newFakeClock()
	b := gg.NewCircuitBreaker(gg.BreakerConfig{FailureThreshold: 2, Timeout: 10 * time.Second},
		gg.WithBreakerClock(clock.Now))

	_ = b.Do(context.Background(), failing)
	_ = b.Do(context.Background(), failing)
	require.Equal(t, gg.StateOpen, b.State())

	clock.Advance(10 * time.Second)
	assert.ErrorIs(t, b.Do(context.Background(), failing), gg.ErrServerError)
	assert.Equal(t, gg.StateOpen, b.State())

	// The open timeout restarts from the trial failure.
	clock.Advance(5 * time.Second)
	assert.ErrorIs(t, b.Do(context.Background(), succeeding), gg.ErrCircuitOpen)
}

func TestBreaker_HalfOpenAdmitsConcurrentCallers(t *testing.T) {
	clock := newFakeClock()
	b := gg.NewCircuitBreaker(gg.BreakerConfig{FailureThreshold: 1, Timeout: time.Second},
		gg.WithBreakerClock(clock.Now))

	_ = b.Do(context.Background(), failing)
	require.Equal(t, gg.StateOpen, b.State())
	clock.Advance(time.Second)

	const callers = 5
	var entered, done sync.WaitGroup
	release := make(chan struct{})
	errs := make(chan error, callers)
	entered.Add(callers)
	done.Add(callers)
	for i := 0; i < callers; i++ {
		go func() {
			defer done.Done()
			errs <- b.Do(context.Background(), func(ctx context.Context) error {
				entered.Done()
				<-release
				return nil
			})
		}()
	}

	entered.Wait()
	assert.Equal(t, gg.StateHalfOpen, b.State())
	close(release)
	done.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, gg.StateClosed, b.State())
}

func TestBreaker_UnexpectedErrorsBypass(t *testing.T) {
	b := gg.NewCircuitBreaker(gg.BreakerConfig{
		FailureThreshold: 1,
		Timeout:          time.Minute,
		Expected:         gg.MatchErrors(gg.ErrServerError),
	})

	for i := 0; i < 5; i++ {
		err := b.Do(context.Background(), func(ctx context.Context) error { return gg.ErrInvalidRequest })
		assert.ErrorIs(t, err, gg.ErrInvalidRequest)
	}
	assert.Equal(t, gg.StateClosed, b.State())
	assert.Equal(t, 0, b.Snapshot().Failures)

	_ = b.Do(context.Background(), failing)
	assert.Equal(t, gg.StateOpen, b.State())
}

func TestBreaker_CancellationNotCounted(t *testing.T) {
	b := gg.NewCircuitBreaker(gg.BreakerConfig{FailureThreshold: 1, Timeout: time.Minute})

	err := b.Do(context.Background(), func(ctx context.Context) error { return context.Canceled })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, gg.StateClosed, b.State())
}

func TestBreaker_CallReturnsValue(t *testing.T) {
	b := gg.NewCircuitBreaker(gg.DefaultBreakerConfig())

	v, err := gg.Call(context.Background(), b, func(ctx context.Context) (int, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestBreaker_ConcurrentFailures(t *testing.T) {
	b := gg.NewCircuitBreaker(gg.BreakerConfig{FailureThreshold: 10, Timeout: time.Minute})

	var wg sync.WaitGroup
	var invoked atomic.Int64
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = b.Do(context.Background(), func(ctx context.Context) error {
				invoked.Add(1)
				return gg.ErrServerError
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, gg.StateOpen, b.State())
	snap := b.Snapshot()
	assert.GreaterOrEqual(t, snap.Failures, 10)
	assert.LessOrEqual(t, int64(snap.Failures), invoked.Load())

	err := b.Do(context.Background(), succeeding)
	assert.True(t, errors.Is(err, gg.ErrCircuitOpen))
}

func TestBreakerState_String(t *testing.T) {
	assert.Equal(t, "closed", gg.StateClosed.String())
	assert.Equal(t, "open", gg.StateOpen.String())
	assert.Equal(t, "half-open", gg.StateHalfOpen.String())
}
