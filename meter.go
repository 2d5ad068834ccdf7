package gemguard

import "time"

// Meter observes resilience and accounting events for monitoring/logging.
type Meter interface {
	// OnRetry is called after every failed attempt of a retried operation.
	OnRetry(event RetryEvent)

	// OnBreaker is called when a breaker counts a failure or changes state.
	OnBreaker(event BreakerEvent)

	// OnUsage is called when a usage record is added to a ledger.
	OnUsage(event UsageEvent)

	// OnExtraction is called when usage or safety fields could not be read.
	OnExtraction(event ExtractionEvent)

	// OnResult is called when a guarded generation completes.
	OnResult(event ResultEvent)
}

// RetryEvent describes a failed attempt.
type RetryEvent struct {
	Attempt      int // zero-based
	MaxAttempts  int
	Delay        time.Duration // wait before the next attempt, 0 when terminal
	Err          error
	NonRetryable bool // the error stopped retrying immediately
	Exhausted    bool // no attempts remain
}

// BreakerEvent describes a breaker failure count or state transition.
type BreakerEvent struct {
	Name      string
	From      BreakerState
	To        BreakerState
	Failures  int
	Threshold int
	Err       error
}

// Transition reports whether the event is a state change.
func (e BreakerEvent) Transition() bool { return e.From != e.To }

// UsageEvent describes a recorded usage.
type UsageEvent struct {
	Record       UsageRecord
	UnknownModel bool // pricing fell back to the default entry
}

// ExtractionEvent describes a missing or malformed response field.
type ExtractionEvent struct {
	Field  string // "usage" or "safety"
	Model  string
	Reason string
}

// ResultEvent describes the outcome of a guarded generation.
type ResultEvent struct {
	Provider    string
	Model       string
	Success     bool
	Duration    time.Duration
	Usage       UsageMetadata
	Cost        float64
	Blocked     bool
	BlockReason string
	Error       error
}

// noopMeter is a meter that does nothing.
type noopMeter struct{}

func (noopMeter) OnRetry(RetryEvent)           {}
func (noopMeter) OnBreaker(BreakerEvent)       {}
func (noopMeter) OnUsage(UsageEvent)           {}
func (noopMeter) OnExtraction(ExtractionEvent) {}
func (noopMeter) OnResult(ResultEvent)         {}
