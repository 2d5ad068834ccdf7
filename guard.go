package gemguard

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

// Guard wraps a Caller with rate limiting, a circuit breaker, retries,
// safety-block inspection and usage accounting.
//
// Call order is limiter -> breaker -> retry -> caller, so a whole retried
// sequence counts as a single breaker outcome.
type Guard struct {
	caller       Caller
	defaultModel string
	safety       SafetySettings
	retry        *RetryExecutor
	breaker      Middleware
	limiter      *RateLimiter
	ledger       *Ledger
	inspector    *SafetyInspector
	meter        Meter
}

// Option configures a Guard.
type Option func(*Guard)

// WithRetry sets the retry executor.
func WithRetry(r *RetryExecutor) Option {
	return func(g *Guard) { g.retry = r }
}

// WithBreaker sets the breaker. Any Middleware works, e.g. a
// *CircuitBreaker or a breaker.Ratio.
func WithBreaker(b Middleware) Option {
	return func(g *Guard) { g.breaker = b }
}

// WithRateLimiter sets the rate limiter.
func WithRateLimiter(l *RateLimiter) Option {
	return func(g *Guard) { g.limiter = l }
}

// WithLedger sets the usage ledger.
func WithLedger(l *Ledger) Option {
	return func(g *Guard) { g.ledger = l }
}

// WithMeter sets the meter for result events and for components the guard
// creates itself.
func WithMeter(m Meter) Option {
	return func(g *Guard) { g.meter = m }
}

// WithSafety sets the safety settings used when a request carries none.
func WithSafety(s SafetySettings) Option {
	return func(g *Guard) { g.safety = s }
}

// WithDefaultModel sets the model used when a request names none.
func WithDefaultModel(model string) Option {
	return func(g *Guard) { g.defaultModel = model }
}

// NewGuard creates a Guard around caller. Default components (default retry
// policy, default breaker, fresh ledger, no rate limit) are used unless
// overridden via options.
func NewGuard(caller Caller, opts ...Option) (*Guard, error) {
	if caller == nil {
		return nil, fmt.Errorf("gemguard: caller is required")
	}

	g := &Guard{
		caller:       caller,
		defaultModel: ModelFlash,
	}

	for _, opt := range opts {
		opt(g)
	}

	// Apply defaults after options.
	if g.meter == nil {
		g.meter = noopMeter{}
	}
	if g.retry == nil {
		g.retry = NewRetryExecutor(DefaultRetryPolicy(), WithRetryMeter(g.meter))
	}
	if g.breaker == nil {
		g.breaker = NewCircuitBreaker(DefaultBreakerConfig(), WithBreakerMeter(g.meter))
	}
	if g.ledger == nil {
		g.ledger = NewLedger(WithLedgerMeter(g.meter))
	}
	if g.inspector == nil {
		g.inspector = NewSafetyInspector(g.meter)
	}

	return g, nil
}

// NewGuardFromConfig creates a Guard whose components are built from cfg.
// Options are applied afterwards and may replace any of them.
func NewGuardFromConfig(cfg Config, caller Caller, opts ...Option) (*Guard, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	safety, err := cfg.Safety.Settings()
	if err != nil {
		return nil, err
	}

	// The meter must be known before components are built.
	pre := &Guard{}
	for _, opt := range opts {
		opt(pre)
	}
	m := pre.meter
	if m == nil {
		m = noopMeter{}
	}

	base := []Option{
		WithMeter(m),
		WithDefaultModel(cfg.DefaultModel),
		WithSafety(safety),
		WithRetry(NewRetryExecutor(cfg.Retry.Policy(), WithRetryMeter(m))),
		WithBreaker(NewCircuitBreaker(cfg.Breaker, WithBreakerMeter(m))),
		WithLedger(NewLedger(WithPricing(cfg.Pricing), WithLedgerMeter(m))),
	}
	if cfg.RateLimit.RequestsPerSecond > 0 {
		base = append(base, WithRateLimiter(NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)))
	}

	return NewGuard(caller, append(base, opts...)...)
}

// Ledger returns the guard's usage ledger.
func (g *Guard) Ledger() *Ledger { return g.ledger }

// Result is the outcome of a guarded generation.
type Result struct {
	Response      *Response
	Usage         UsageRecord
	UsageRecorded bool
	Blocked       bool
	BlockReason   string
	Attempts      int
	Duration      time.Duration
}

// Generate performs a guarded generation.
func (g *Guard) Generate(ctx context.Context, req Request) (Result, error) {
	if req.Model == "" {
		req.Model = g.defaultModel
	}
	if len(req.Safety) == 0 {
		req.Safety = g.safety
	}

	var attempts atomic.Int64
	op := Op[*Response](func(ctx context.Context) (*Response, error) {
		attempts.Add(1)
		return g.caller.Generate(ctx, req)
	})

	mws := make([]Middleware, 0, 3)
	if g.limiter != nil {
		mws = append(mws, g.limiter)
	}
	mws = append(mws, g.breaker, g.retry)

	start := time.Now()
	resp, err := Chain(op, mws...)(ctx)
	duration := time.Since(start)

	if err != nil {
		g.meter.OnResult(ResultEvent{
			Provider: g.caller.Name(),
			Model:    req.Model,
			Success:  false,
			Duration: duration,
			Error:    err,
		})
		return Result{Attempts: int(attempts.Load()), Duration: duration}, err
	}

	res := Result{
		Response: resp,
		Attempts: int(attempts.Load()),
		Duration: duration,
	}
	res.Blocked, res.BlockReason = g.inspector.Inspect(resp)
	res.Usage, res.UsageRecorded = g.ledger.RecordFromResponse(resp, req.Model)

	ev := ResultEvent{
		Provider:    g.caller.Name(),
		Model:       req.Model,
		Success:     true,
		Duration:    duration,
		Blocked:     res.Blocked,
		BlockReason: res.BlockReason,
		Cost:        res.Usage.Cost,
	}
	if resp != nil && resp.Usage != nil {
		ev.Usage = *resp.Usage
	}
	g.meter.OnResult(ev)

	return res, nil
}

// GenerateText performs a guarded generation and returns only the text.
// A blocked response yields an empty string and no error.
func (g *Guard) GenerateText(ctx context.Context, prompt string) (string, error) {
	res, err := g.Generate(ctx, Request{Prompt: prompt})
	if err != nil {
		return "", err
	}
	if res.Blocked || res.Response == nil {
		return "", nil
	}
	return res.Response.Text, nil
}
