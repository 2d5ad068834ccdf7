package gemguard

import (
	"fmt"
	"strings"
)

// HarmCategory names a content safety category.
type HarmCategory string

const (
	HarmHarassment       HarmCategory = "HARM_CATEGORY_HARASSMENT"
	HarmHateSpeech       HarmCategory = "HARM_CATEGORY_HATE_SPEECH"
	HarmSexuallyExplicit HarmCategory = "HARM_CATEGORY_SEXUALLY_EXPLICIT"
	HarmDangerousContent HarmCategory = "HARM_CATEGORY_DANGEROUS_CONTENT"
)

// HarmCategories lists the configurable categories in canonical order.
var HarmCategories = []HarmCategory{
	HarmHarassment,
	HarmHateSpeech,
	HarmSexuallyExplicit,
	HarmDangerousContent,
}

// SafetyThreshold is the probability level at which content is blocked.
type SafetyThreshold string

const (
	BlockNone           SafetyThreshold = "BLOCK_NONE"
	BlockOnlyHigh       SafetyThreshold = "BLOCK_ONLY_HIGH"
	BlockMediumAndAbove SafetyThreshold = "BLOCK_MEDIUM_AND_ABOVE"
	BlockLowAndAbove    SafetyThreshold = "BLOCK_LOW_AND_ABOVE"
)

// ParseThreshold accepts either the API spelling ("BLOCK_ONLY_HIGH") or a
// config spelling ("block-only-high").
func ParseThreshold(s string) (SafetyThreshold, error) {
	norm := SafetyThreshold(strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_")))
	switch norm {
	case BlockNone, BlockOnlyHigh, BlockMediumAndAbove, BlockLowAndAbove:
		return norm, nil
	}
	return "", fmt.Errorf("gemguard: unknown safety threshold %q", s)
}

// SafetySetting pairs a category with its threshold.
type SafetySetting struct {
	Category  HarmCategory    `json:"category" yaml:"category"`
	Threshold SafetyThreshold `json:"threshold" yaml:"threshold"`
}

// SafetySettings is passed through unchanged to the Caller.
type SafetySettings []SafetySetting

func uniformSafety(t SafetyThreshold) SafetySettings {
	out := make(SafetySettings, 0, len(HarmCategories))
	for _, c := range HarmCategories {
		out = append(out, SafetySetting{Category: c, Threshold: t})
	}
	return out
}

// PermissiveSafety blocks only high-probability content in every category.
func PermissiveSafety() SafetySettings { return uniformSafety(BlockOnlyHigh) }

// ModerateSafety blocks medium and high probability content.
func ModerateSafety() SafetySettings { return uniformSafety(BlockMediumAndAbove) }

// StrictSafety blocks low, medium and high probability content.
func StrictSafety() SafetySettings { return uniformSafety(BlockLowAndAbove) }

// CustomSafety sets each category independently.
func CustomSafety(harassment, hateSpeech, sexuallyExplicit, dangerousContent SafetyThreshold) SafetySettings {
	return SafetySettings{
		{Category: HarmHarassment, Threshold: harassment},
		{Category: HarmHateSpeech, Threshold: hateSpeech},
		{Category: HarmSexuallyExplicit, Threshold: sexuallyExplicit},
		{Category: HarmDangerousContent, Threshold: dangerousContent},
	}
}

// SafetyPreset returns a named preset: permissive, moderate or strict.
func SafetyPreset(name string) (SafetySettings, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "permissive":
		return PermissiveSafety(), nil
	case "", "moderate":
		return ModerateSafety(), nil
	case "strict":
		return StrictSafety(), nil
	}
	return nil, fmt.Errorf("gemguard: unknown safety preset %q", name)
}

// ExplainSafetyRatings renders ratings for humans.
func ExplainSafetyRatings(ratings []SafetyRating) string {
	if len(ratings) == 0 {
		return "No safety ratings available."
	}

	var b strings.Builder
	b.WriteString("Safety Ratings:")
	for _, r := range ratings {
		category, probability := string(r.Category), r.Probability
		if category == "" {
			category = "UNKNOWN"
		}
		if probability == "" {
			probability = "UNKNOWN"
		}
		fmt.Fprintf(&b, "\n  - %s: %s", category, probability)
	}
	return b.String()
}

const blockReasonUnspecified = "BLOCKED_REASON_UNSPECIFIED"

// SafetyInspector decides whether a response was withheld by safety
// filters. It never panics or returns an error.
type SafetyInspector struct {
	meter Meter
}

// NewSafetyInspector creates an inspector reporting inspection failures to m.
// A nil meter discards them.
func NewSafetyInspector(m Meter) *SafetyInspector {
	if m == nil {
		m = noopMeter{}
	}
	return &SafetyInspector{meter: m}
}

// Inspect reports whether resp was blocked and why. A request-level block
// (prompt feedback) is checked before a response-level one (first candidate
// finishing with SAFETY or BLOCKED).
func (s *SafetyInspector) Inspect(resp *Response) (blocked bool, reason string) {
	defer func() {
		if r := recover(); r != nil {
			s.meter.OnExtraction(ExtractionEvent{
				Field:  "safety",
				Reason: fmt.Sprintf("could not check safety block status: %v", r),
			})
			blocked, reason = false, ""
		}
	}()

	if resp == nil {
		return false, ""
	}

	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" && fb.BlockReason != blockReasonUnspecified {
		return true, "Blocked: " + fb.BlockReason
	}

	if len(resp.Candidates) > 0 {
		c := resp.Candidates[0]
		switch finish := strings.ToUpper(c.FinishReason); finish {
		case "SAFETY", "BLOCKED":
			return true, fmt.Sprintf("Content blocked (finish reason %s). %s",
				finish, ExplainSafetyRatings(c.SafetyRatings))
		}
	}

	return false, ""
}

// InspectSafety is SafetyInspector.Inspect without diagnostics.
func InspectSafety(resp *Response) (bool, string) {
	return NewSafetyInspector(nil).Inspect(resp)
}
