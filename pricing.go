package gemguard

import (
	"fmt"
	"strings"
)

// PricingEntry holds per-1000-token rates for models whose identifier
// contains Match.
type PricingEntry struct {
	Match       string  `yaml:"match" json:"match"`
	InputPer1K  float64 `yaml:"input_per_1k" json:"input_per_1k"`
	OutputPer1K float64 `yaml:"output_per_1k" json:"output_per_1k"`
}

// PricingTable maps model identifiers to rates. Entries are matched in
// order; the first entry whose Match is a case-insensitive substring of the
// model wins. Fallback is used when nothing matches.
type PricingTable struct {
	Entries  []PricingEntry `yaml:"entries" json:"entries"`
	Fallback PricingEntry   `yaml:"fallback" json:"fallback"`
}

// DefaultPricing returns example Gemini rates.
// The numbers are placeholders; verify current pricing before relying on them.
func DefaultPricing() PricingTable {
	pro := PricingEntry{Match: "gemini-pro", InputPer1K: 0.0005, OutputPer1K: 0.0015}
	return PricingTable{
		Entries: []PricingEntry{
			{Match: "gemini-2.5-flash", InputPer1K: 0.00001875, OutputPer1K: 0.000075},
			{Match: "gemini-2.5-pro", InputPer1K: 0.000125, OutputPer1K: 0.000625},
			{Match: "gemini-2.0-flash", InputPer1K: 0.00001875, OutputPer1K: 0.000075},
			pro,
		},
		Fallback: pro,
	}
}

// Lookup returns the rates for model. ok is false when the fallback entry
// was used.
func (t PricingTable) Lookup(model string) (entry PricingEntry, ok bool) {
	lower := strings.ToLower(model)
	for _, e := range t.Entries {
		if e.Match == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(e.Match)) {
			return e, true
		}
	}
	return t.Fallback, false
}

// Cost computes the dollar cost of a usage at the given rates.
func (e PricingEntry) Cost(promptTokens, completionTokens int64) float64 {
	return float64(promptTokens)/1000*e.InputPer1K +
		float64(completionTokens)/1000*e.OutputPer1K
}

// Validate checks that rates are finite and non-negative.
func (t PricingTable) Validate() error {
	check := func(name string, e PricingEntry) error {
		if e.InputPer1K < 0 || e.OutputPer1K < 0 {
			return fmt.Errorf("gemguard: pricing %s: negative rate", name)
		}
		return nil
	}
	for i, e := range t.Entries {
		if e.Match == "" {
			return fmt.Errorf("gemguard: pricing entries[%d]: match is required", i)
		}
		if err := check(e.Match, e); err != nil {
			return err
		}
	}
	return check("fallback", t.Fallback)
}
