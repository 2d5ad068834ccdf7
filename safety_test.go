package gemguard_test

import (
	"testing"

	gg "github.com/ineyio/gemguard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInspect_FinishReasonSafety(t *testing.T) {
	resp := &gg.Response{
		Candidates: []gg.Candidate{{
			FinishReason: "SAFETY",
			SafetyRatings: []gg.SafetyRating{
				{Category: gg.HarmHarassment, Probability: "HIGH"},
				{Category: gg.HarmHateSpeech, Probability: "NEGLIGIBLE"},
			},
		}},
	}

	blocked, reason := gg.InspectSafety(resp)
	assert.True(t, blocked)
	assert.Contains(t, reason, "Content blocked (finish reason SAFETY).")
	assert.Contains(t, reason, "HARM_CATEGORY_HARASSMENT: HIGH")
	assert.Contains(t, reason, "HARM_CATEGORY_HATE_SPEECH: NEGLIGIBLE")
}

func TestInspect_FinishReasonBlockedLowercase(t *testing.T) {
	resp := &gg.Response{Candidates: []gg.Candidate{{FinishReason: "blocked"}}}

	blocked, reason := gg.InspectSafety(resp)
	assert.True(t, blocked)
	assert.Contains(t, reason, "finish reason BLOCKED")
	assert.Contains(t, reason, "No safety ratings available.")
}

func TestInspect_PromptBlockWins(t *testing.T) {
	resp := &gg.Response{
		PromptFeedback: &gg.PromptFeedback{BlockReason: "PROHIBITED_CONTENT"},
		Candidates:     []gg.Candidate{{FinishReason: "SAFETY"}},
	}

	blocked, reason := gg.InspectSafety(resp)
	assert.True(t, blocked)
	assert.Equal(t, "Blocked: PROHIBITED_CONTENT", reason)
}

func TestInspect_UnspecifiedBlockReasonIgnored(t *testing.T) {
	resp := &gg.Response{
		PromptFeedback: &gg.PromptFeedback{BlockReason: "BLOCKED_REASON_UNSPECIFIED"},
		Candidates:     []gg.Candidate{{FinishReason: "STOP"}},
	}

	blocked, reason := gg.InspectSafety(resp)
	assert.False(t, blocked)
	assert.Empty(t, reason)
}

func TestInspect_NotBlocked(t *testing.T) {
	tests := []struct {
		name string
		resp *gg.Response
	}{
		{"nil response", nil},
		{"empty response", &gg.Response{}},
		{"normal stop", &gg.Response{Candidates: []gg.Candidate{{FinishReason: "STOP"}}}},
		{"max tokens", &gg.Response{Candidates: []gg.Candidate{{FinishReason: "MAX_TOKENS"}}}},
		{"only later candidate blocked", &gg.Response{Candidates: []gg.Candidate{
			{FinishReason: "STOP"},
			{FinishReason: "SAFETY"},
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blocked, reason := gg.InspectSafety(tt.resp)
			assert.False(t, blocked)
			assert.Empty(t, reason)
		})
	}
}

func TestSafetyPresets(t *testing.T) {
	tests := []struct {
		name      string
		settings  gg.SafetySettings
		threshold gg.SafetyThreshold
	}{
		{"permissive", gg.PermissiveSafety(), gg.BlockOnlyHigh},
		{"moderate", gg.ModerateSafety(), gg.BlockMediumAndAbove},
		{"strict", gg.StrictSafety(), gg.BlockLowAndAbove},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Len(t, tt.settings, 4)
			for i, s := range tt.settings {
				assert.Equal(t, gg.HarmCategories[i], s.Category)
				assert.Equal(t, tt.threshold, s.Threshold)
			}

			byName, err := gg.SafetyPreset(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.settings, byName)
		})
	}

	def, err := gg.SafetyPreset("")
	require.NoError(t, err)
	assert.Equal(t, gg.ModerateSafety(), def)

	_, err = gg.SafetyPreset("paranoid")
	assert.Error(t, err)
}

func TestCustomSafety(t *testing.T) {
	s := gg.CustomSafety(gg.BlockNone, gg.BlockOnlyHigh, gg.BlockMediumAndAbove, gg.BlockLowAndAbove)
	require.Len(t, s, 4)
	assert.Equal(t, gg.SafetySetting{Category: gg.HarmHarassment, Threshold: gg.BlockNone}, s[0])
	assert.Equal(t, gg.SafetySetting{Category: gg.HarmDangerousContent, Threshold: gg.BlockLowAndAbove}, s[3])
}

func TestParseThreshold(t *testing.T) {
	for in, want := range map[string]gg.SafetyThreshold{
		"block-none":              gg.BlockNone,
		"BLOCK_ONLY_HIGH":         gg.BlockOnlyHigh,
		" block-medium-and-above": gg.BlockMediumAndAbove,
		"block_low_and_above":     gg.BlockLowAndAbove,
	} {
		got, err := gg.ParseThreshold(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := gg.ParseThreshold("block-everything")
	assert.Error(t, err)
}

func TestExplainSafetyRatings_Unknowns(t *testing.T) {
	out := gg.ExplainSafetyRatings([]gg.SafetyRating{{}})
	assert.Equal(t, "Safety Ratings:\n  - UNKNOWN: UNKNOWN", out)
}
