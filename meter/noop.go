package meter

import "github.com/ineyio/gemguard"

// NoopMeter is a meter that does nothing.
type NoopMeter struct{}

var _ gemguard.Meter = (*NoopMeter)(nil)

func (m *NoopMeter) OnRetry(gemguard.RetryEvent)           {}
func (m *NoopMeter) OnBreaker(gemguard.BreakerEvent)       {}
func (m *NoopMeter) OnUsage(gemguard.UsageEvent)           {}
func (m *NoopMeter) OnExtraction(gemguard.ExtractionEvent) {}
func (m *NoopMeter) OnResult(gemguard.ResultEvent)         {}
