package gemguard

import "context"

// Caller is the interface that provider adapters must implement.
type Caller interface {
	// Name returns the provider identifier (e.g. "gemini", "mock").
	Name() string

	// Generate performs a single remote generation call.
	Generate(ctx context.Context, req Request) (*Response, error)
}

// Op is a zero-argument remote operation producing a T.
type Op[T any] func(ctx context.Context) (T, error)

// Middleware wraps an operation with resilience behaviour.
// RetryExecutor, CircuitBreaker and RateLimiter implement it.
type Middleware interface {
	Do(ctx context.Context, fn func(context.Context) error) error
}

// Wrap applies m to op, preserving the result type.
func Wrap[T any](m Middleware, op Op[T]) Op[T] {
	return func(ctx context.Context) (T, error) {
		var out T
		err := m.Do(ctx, func(ctx context.Context) error {
			v, err := op(ctx)
			if err != nil {
				return err
			}
			out = v
			return nil
		})
		if err != nil {
			var zero T
			return zero, err
		}
		return out, nil
	}
}

// Chain wraps op with mws, the first middleware being outermost.
// Chain(op, breaker, retry) is breaker.Wrap(retry.Wrap(op)).
func Chain[T any](op Op[T], mws ...Middleware) Op[T] {
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] == nil {
			continue
		}
		op = Wrap(mws[i], op)
	}
	return op
}

// SafeCall runs op and never propagates a failure past the result: on error
// it returns fallback together with the error.
func SafeCall[T any](ctx context.Context, op Op[T], fallback T) (T, error) {
	v, err := op(ctx)
	if err != nil {
		return fallback, err
	}
	return v, nil
}
