package meter

import (
	"context"
	"log/slog"

	"github.com/ineyio/gemguard"
)

// LogMeter logs resilience and accounting events using slog.
type LogMeter struct {
	Logger *slog.Logger
}

var _ gemguard.Meter = (*LogMeter)(nil)

// NewLogMeter creates a LogMeter with the given logger.
// If logger is nil, slog.Default() is used.
func NewLogMeter(logger *slog.Logger) *LogMeter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMeter{Logger: logger}
}

func (m *LogMeter) OnRetry(e gemguard.RetryEvent) {
	switch {
	case e.NonRetryable:
		m.Logger.Error("retry_non_retryable",
			"attempt", e.Attempt+1,
			"max_attempts", e.MaxAttempts,
			"error", e.Err,
		)
	case e.Exhausted:
		m.Logger.Error("retry_exhausted",
			"attempts", e.MaxAttempts,
			"error", e.Err,
		)
	default:
		m.Logger.Warn("retry",
			"attempt", e.Attempt+1,
			"max_attempts", e.MaxAttempts,
			"delay_ms", e.Delay.Milliseconds(),
			"error", e.Err,
		)
	}
}

func (m *LogMeter) OnBreaker(e gemguard.BreakerEvent) {
	if !e.Transition() {
		m.Logger.Warn("breaker_failure",
			"breaker", e.Name,
			"failures", e.Failures,
			"threshold", e.Threshold,
			"error", e.Err,
		)
		return
	}

	level := slog.LevelInfo
	if e.To == gemguard.StateOpen {
		level = slog.LevelError
	}
	m.Logger.Log(context.Background(), level, "breaker_state",
		"breaker", e.Name,
		"from", e.From.String(),
		"to", e.To.String(),
		"failures", e.Failures,
	)
}

func (m *LogMeter) OnUsage(e gemguard.UsageEvent) {
	if e.UnknownModel {
		m.Logger.Warn("usage_unknown_model",
			"model", e.Record.Model,
			"cost", e.Record.Cost,
		)
	}
	m.Logger.Debug("usage",
		"id", e.Record.ID,
		"model", e.Record.Model,
		"prompt_tokens", e.Record.PromptTokens,
		"completion_tokens", e.Record.CompletionTokens,
		"cost", e.Record.Cost,
	)
}

func (m *LogMeter) OnExtraction(e gemguard.ExtractionEvent) {
	m.Logger.Warn("extraction_failed",
		"field", e.Field,
		"model", e.Model,
		"reason", e.Reason,
	)
}

func (m *LogMeter) OnResult(e gemguard.ResultEvent) {
	if e.Success {
		m.Logger.Info("result",
			"provider", e.Provider,
			"model", e.Model,
			"duration_ms", e.Duration.Milliseconds(),
			"prompt_tokens", e.Usage.PromptTokenCount,
			"completion_tokens", e.Usage.CandidatesTokenCount,
			"cost", e.Cost,
			"blocked", e.Blocked,
			"block_reason", e.BlockReason,
		)
	} else {
		m.Logger.Warn("result_error",
			"provider", e.Provider,
			"model", e.Model,
			"duration_ms", e.Duration.Milliseconds(),
			"error", e.Error,
		)
	}
}
