package mock

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ineyio/gemguard"
)

// Caller is a scripted generation caller for tests and examples.
type Caller struct {
	name         string
	latency      time.Duration
	failFirst    int
	failErr      error
	staticErr    error
	usage        *gemguard.UsageMetadata
	text         string
	feedback     *gemguard.PromptFeedback
	finishReason string
	ratings      []gemguard.SafetyRating
	responseFunc func(call int, req gemguard.Request) (*gemguard.Response, error)

	callCount atomic.Int64

	mu       sync.Mutex
	requests []gemguard.Request
}

var _ gemguard.Caller = (*Caller)(nil)

// Option configures a mock Caller.
type Option func(*Caller)

// New creates a mock caller with the given options.
func New(opts ...Option) *Caller {
	c := &Caller{
		name: "mock",
		text: "Hello from mock caller",
		usage: &gemguard.UsageMetadata{
			PromptTokenCount:     10,
			CandidatesTokenCount: 20,
			TotalTokenCount:      30,
		},
		finishReason: "STOP",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithName sets the caller name.
func WithName(name string) Option {
	return func(c *Caller) { c.name = name }
}

// WithLatency adds simulated latency to each call.
func WithLatency(d time.Duration) Option {
	return func(c *Caller) { c.latency = d }
}

// WithFailFirst makes the first n calls fail with err.
func WithFailFirst(n int, err error) Option {
	return func(c *Caller) {
		c.failFirst = n
		c.failErr = err
	}
}

// WithError makes every call fail with err.
func WithError(err error) Option {
	return func(c *Caller) { c.staticErr = err }
}

// WithUsage sets the usage metadata returned by the mock.
func WithUsage(prompt, completion int64) Option {
	return func(c *Caller) {
		c.usage = &gemguard.UsageMetadata{
			PromptTokenCount:     prompt,
			CandidatesTokenCount: completion,
			TotalTokenCount:      prompt + completion,
		}
	}
}

// WithoutUsage makes responses carry no usage metadata.
func WithoutUsage() Option {
	return func(c *Caller) { c.usage = nil }
}

// WithText sets the generated text.
func WithText(text string) Option {
	return func(c *Caller) { c.text = text }
}

// WithPromptBlock makes responses report a request-level block.
func WithPromptBlock(reason string) Option {
	return func(c *Caller) {
		c.feedback = &gemguard.PromptFeedback{BlockReason: reason}
		c.text = ""
	}
}

// WithFinishReason sets the first candidate's finish reason and ratings.
func WithFinishReason(reason string, ratings ...gemguard.SafetyRating) Option {
	return func(c *Caller) {
		c.finishReason = reason
		c.ratings = ratings
	}
}

// WithResponseFunc sets a custom response function. call is 1-based.
func WithResponseFunc(fn func(call int, req gemguard.Request) (*gemguard.Response, error)) Option {
	return func(c *Caller) { c.responseFunc = fn }
}

func (c *Caller) Name() string { return c.name }

func (c *Caller) Generate(ctx context.Context, req gemguard.Request) (*gemguard.Response, error) {
	if c.latency > 0 {
		select {
		case <-time.After(c.latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	count := int(c.callCount.Add(1))

	c.mu.Lock()
	c.requests = append(c.requests, req)
	c.mu.Unlock()

	if c.staticErr != nil {
		return nil, c.staticErr
	}

	if count <= c.failFirst {
		return nil, c.failErr
	}

	if c.responseFunc != nil {
		return c.responseFunc(count, req)
	}

	resp := &gemguard.Response{
		Text:           c.text,
		Model:          req.Model,
		PromptFeedback: c.feedback,
	}
	if c.usage != nil {
		u := *c.usage
		resp.Usage = &u
	}
	if c.feedback == nil {
		resp.Candidates = []gemguard.Candidate{{
			Content:       c.text,
			FinishReason:  c.finishReason,
			SafetyRatings: c.ratings,
		}}
	}
	return resp, nil
}

// CallCount returns the number of calls made to the caller.
func (c *Caller) CallCount() int64 { return c.callCount.Load() }

// Requests returns the requests received so far.
func (c *Caller) Requests() []gemguard.Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]gemguard.Request, len(c.requests))
	copy(out, c.requests)
	return out
}
