package gemguard

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// UsageRecord is the token usage and estimated cost of a single request.
type UsageRecord struct {
	ID               string    `json:"id"`
	PromptTokens     int64     `json:"prompt_tokens"`
	CompletionTokens int64     `json:"completion_tokens"`
	TotalTokens      int64     `json:"total_tokens"`
	Model            string    `json:"model"`
	Timestamp        time.Time `json:"timestamp"`
	Cost             float64   `json:"cost_estimate"`
}

// Summary aggregates a ledger.
type Summary struct {
	TotalRequests       int     `json:"total_requests"`
	TotalTokens         int64   `json:"total_tokens"`
	PromptTokens        int64   `json:"prompt_tokens"`
	CompletionTokens    int64   `json:"completion_tokens"`
	TotalCost           float64 `json:"estimated_cost_usd"`
	AvgTokensPerRequest float64 `json:"average_tokens_per_request"`
	AvgCostPerRequest   float64 `json:"average_cost_per_request"`
}

// Ledger records usage across requests and keeps running totals.
// A Ledger is safe for concurrent use.
type Ledger struct {
	mu      sync.Mutex
	pricing PricingTable
	meter   Meter
	now     func() time.Time

	records          []UsageRecord
	promptTokens     int64
	completionTokens int64
	cost             float64
}

// LedgerOption configures a Ledger.
type LedgerOption func(*Ledger)

// WithPricing sets the pricing table used to cost new records.
func WithPricing(t PricingTable) LedgerOption {
	return func(l *Ledger) { l.pricing = t }
}

// WithLedgerMeter sets the meter receiving usage and extraction events.
func WithLedgerMeter(m Meter) LedgerOption {
	return func(l *Ledger) { l.meter = m }
}

// WithLedgerClock sets the clock used to timestamp records.
func WithLedgerClock(now func() time.Time) LedgerOption {
	return func(l *Ledger) { l.now = now }
}

// NewLedger creates an empty Ledger using DefaultPricing unless overridden.
func NewLedger(opts ...LedgerOption) *Ledger {
	l := &Ledger{
		pricing: DefaultPricing(),
		meter:   noopMeter{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Record adds a usage record and returns it. Negative token counts are a
// caller defect and are clamped to zero.
func (l *Ledger) Record(promptTokens, completionTokens int64, model string) UsageRecord {
	promptTokens = max(promptTokens, 0)
	completionTokens = max(completionTokens, 0)

	l.mu.Lock()
	rates, known := l.pricing.Lookup(model)
	rec := UsageRecord{
		ID:               uuid.New().String(),
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      promptTokens + completionTokens,
		Model:            model,
		Timestamp:        l.now(),
		Cost:             rates.Cost(promptTokens, completionTokens),
	}
	l.records = append(l.records, rec)
	l.promptTokens += promptTokens
	l.completionTokens += completionTokens
	l.cost += rec.Cost
	l.mu.Unlock()

	l.meter.OnUsage(UsageEvent{Record: rec, UnknownModel: !known})
	return rec
}

// RecordFromResponse records the usage reported by resp. It returns false,
// leaving the ledger untouched, when resp carries no usage metadata.
func (l *Ledger) RecordFromResponse(resp *Response, model string) (UsageRecord, bool) {
	if resp == nil || resp.Usage == nil {
		l.meter.OnExtraction(ExtractionEvent{
			Field:  "usage",
			Model:  model,
			Reason: "response does not contain usage metadata",
		})
		return UsageRecord{}, false
	}
	return l.Record(resp.Usage.PromptTokenCount, resp.Usage.CandidatesTokenCount, model), true
}

// Summary returns aggregate statistics.
func (l *Ledger) Summary() Summary {
	l.mu.Lock()
	defer l.mu.Unlock()

	return summarize(len(l.records), l.promptTokens, l.completionTokens, l.cost)
}

func summarize(n int, prompt, completion int64, cost float64) Summary {
	s := Summary{
		TotalRequests:    n,
		TotalTokens:      prompt + completion,
		PromptTokens:     prompt,
		CompletionTokens: completion,
		TotalCost:        cost,
	}
	if n > 0 {
		s.AvgTokensPerRequest = float64(s.TotalTokens) / float64(n)
		s.AvgCostPerRequest = cost / float64(n)
	}
	return s
}

// CostByModel returns the cost per model, rounded to 4 decimal places.
func (l *Ledger) CostByModel() map[string]float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	return costByModel(l.records)
}

func costByModel(records []UsageRecord) map[string]float64 {
	costs := make(map[string]float64)
	for _, r := range records {
		costs[r.Model] += r.Cost
	}
	for k, v := range costs {
		costs[k] = round4(v)
	}
	return costs
}

// Records returns a copy of the recorded usage in insertion order.
func (l *Ledger) Records() []UsageRecord {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]UsageRecord, len(l.records))
	copy(out, l.records)
	return out
}

// Len returns the number of recorded requests.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// Reset clears all records and totals.
func (l *Ledger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.records = nil
	l.promptTokens = 0
	l.completionTokens = 0
	l.cost = 0
}

// Snapshot builds the export document for the current ledger state.
func (l *Ledger) Snapshot() ExportDocument {
	l.mu.Lock()
	defer l.mu.Unlock()

	doc := ExportDocument{
		Summary:    summarize(len(l.records), l.promptTokens, l.completionTokens, l.cost),
		ModelCosts: costByModel(l.records),
		Usage:      make([]ExportRecord, 0, len(l.records)),
	}
	for _, r := range l.records {
		doc.Usage = append(doc.Usage, exportRecord(r))
	}
	return doc
}

// Export writes the ledger's summary, per-model costs and records to sink.
func (l *Ledger) Export(sink ExportSink) error {
	if err := sink.WriteExport(l.Snapshot()); err != nil {
		return fmt.Errorf("gemguard: export ledger: %w", err)
	}
	return nil
}

// WriteSummary writes a human-readable usage report to w.
func (l *Ledger) WriteSummary(w io.Writer) error {
	return l.Snapshot().WriteSummary(w)
}

// WriteSummary writes a human-readable usage report to w.
func (d ExportDocument) WriteSummary(w io.Writer) error {
	s := d.Summary
	rule := strings.Repeat("=", 60)

	var b strings.Builder
	fmt.Fprintf(&b, "\n%s\nGEMINI API USAGE SUMMARY\n%s\n", rule, rule)
	fmt.Fprintf(&b, "Total Requests:              %d\n", s.TotalRequests)
	fmt.Fprintf(&b, "Total Tokens:                %d\n", s.TotalTokens)
	fmt.Fprintf(&b, "  - Prompt Tokens:           %d\n", s.PromptTokens)
	fmt.Fprintf(&b, "  - Completion Tokens:       %d\n", s.CompletionTokens)
	fmt.Fprintf(&b, "Estimated Cost:              $%.4f\n", s.TotalCost)
	fmt.Fprintf(&b, "Avg Tokens/Request:          %.2f\n", s.AvgTokensPerRequest)
	fmt.Fprintf(&b, "Avg Cost/Request:            $%.4f\n", s.AvgCostPerRequest)

	if len(d.ModelCosts) > 0 {
		models := make([]string, 0, len(d.ModelCosts))
		for m := range d.ModelCosts {
			models = append(models, m)
		}
		sort.Strings(models)

		b.WriteString("\nCost by Model:\n")
		for _, m := range models {
			fmt.Fprintf(&b, "  - %s: $%.4f\n", m, d.ModelCosts[m])
		}
	}
	fmt.Fprintf(&b, "%s\n", rule)

	_, err := io.WriteString(w, b.String())
	return err
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
