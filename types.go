package gemguard

// Request is a single generation request handed to a Caller.
type Request struct {
	Model           string         `json:"model"`
	Prompt          string         `json:"prompt"`
	SystemPrompt    string         `json:"system_prompt,omitempty"`
	Temperature     *float64       `json:"temperature,omitempty"`
	MaxOutputTokens *int           `json:"max_output_tokens,omitempty"`
	Safety          SafetySettings `json:"safety,omitempty"`
}

// Response is the provider-neutral shape of a generation response.
// Every optional part is a pointer or slice; nil means the provider did not
// report it.
type Response struct {
	Text           string          `json:"text"`
	Model          string          `json:"model,omitempty"`
	Usage          *UsageMetadata  `json:"usage,omitempty"`
	PromptFeedback *PromptFeedback `json:"prompt_feedback,omitempty"`
	Candidates     []Candidate     `json:"candidates,omitempty"`
}

// UsageMetadata holds token counts reported by the provider.
type UsageMetadata struct {
	PromptTokenCount     int64 `json:"prompt_token_count"`
	CandidatesTokenCount int64 `json:"candidates_token_count"`
	TotalTokenCount      int64 `json:"total_token_count"`
}

// PromptFeedback describes a request-level block.
type PromptFeedback struct {
	BlockReason   string         `json:"block_reason,omitempty"`
	SafetyRatings []SafetyRating `json:"safety_ratings,omitempty"`
}

// Candidate is a single generated candidate.
type Candidate struct {
	Content       string         `json:"content"`
	FinishReason  string         `json:"finish_reason,omitempty"`
	SafetyRatings []SafetyRating `json:"safety_ratings,omitempty"`
}

// SafetyRating is a per-category safety score attached to a response.
type SafetyRating struct {
	Category    HarmCategory `json:"category"`
	Probability string       `json:"probability"`
	Blocked     bool         `json:"blocked,omitempty"`
}

// IntPtr returns a pointer to the given int.
func IntPtr(v int) *int { return &v }

// Float64Ptr returns a pointer to the given float64.
func Float64Ptr(v float64) *float64 { return &v }
