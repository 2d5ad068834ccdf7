package gemini

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"google.golang.org/genai"

	"github.com/ineyio/gemguard"
)

// ContentGenerator is the part of the genai client used by the caller.
// *genai.Models implements it.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Caller is the Gemini API adapter.
type Caller struct {
	models ContentGenerator
}

var _ gemguard.Caller = (*Caller)(nil)

// New creates a Caller backed by a Gemini API client.
func New(ctx context.Context, apiKey string) (*Caller, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &Caller{models: client.Models}, nil
}

// NewWithGenerator creates a Caller around an existing generator.
func NewWithGenerator(g ContentGenerator) *Caller {
	return &Caller{models: g}
}

func (c *Caller) Name() string { return "gemini" }

func (c *Caller) Generate(ctx context.Context, req gemguard.Request) (*gemguard.Response, error) {
	resp, err := c.models.GenerateContent(ctx, req.Model, genai.Text(req.Prompt), BuildConfig(req))
	if err != nil {
		return nil, MapError(err)
	}
	out := FromGenAI(resp)
	if out.Model == "" {
		out.Model = req.Model
	}
	return out, nil
}

// BuildConfig converts request parameters and safety settings into a genai
// generation config.
func BuildConfig(req gemguard.Request) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		SafetySettings: SafetySettings(req.Safety),
	}
	if req.SystemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}
	if req.Temperature != nil {
		t := float32(*req.Temperature)
		cfg.Temperature = &t
	}
	if req.MaxOutputTokens != nil {
		cfg.MaxOutputTokens = int32(*req.MaxOutputTokens)
	}
	return cfg
}

// SafetySettings converts gemguard safety settings to genai settings.
func SafetySettings(s gemguard.SafetySettings) []*genai.SafetySetting {
	if len(s) == 0 {
		return nil
	}
	out := make([]*genai.SafetySetting, 0, len(s))
	for _, setting := range s {
		out = append(out, &genai.SafetySetting{
			Category:  genai.HarmCategory(setting.Category),
			Threshold: genai.HarmBlockThreshold(setting.Threshold),
		})
	}
	return out
}

// FromGenAI converts a genai response into the provider-neutral shape.
// Missing parts stay nil.
func FromGenAI(resp *genai.GenerateContentResponse) *gemguard.Response {
	if resp == nil {
		return &gemguard.Response{}
	}

	out := &gemguard.Response{Model: resp.ModelVersion}

	if u := resp.UsageMetadata; u != nil {
		out.Usage = &gemguard.UsageMetadata{
			PromptTokenCount:     int64(u.PromptTokenCount),
			CandidatesTokenCount: int64(u.CandidatesTokenCount),
			TotalTokenCount:      int64(u.TotalTokenCount),
		}
	}

	if fb := resp.PromptFeedback; fb != nil {
		out.PromptFeedback = &gemguard.PromptFeedback{
			BlockReason:   string(fb.BlockReason),
			SafetyRatings: convertRatings(fb.SafetyRatings),
		}
	}

	for _, c := range resp.Candidates {
		if c == nil {
			continue
		}
		cand := gemguard.Candidate{
			FinishReason:  string(c.FinishReason),
			SafetyRatings: convertRatings(c.SafetyRatings),
		}
		if c.Content != nil {
			for _, p := range c.Content.Parts {
				if p != nil && !p.Thought {
					cand.Content += p.Text
				}
			}
		}
		out.Candidates = append(out.Candidates, cand)
	}

	if len(out.Candidates) > 0 {
		out.Text = out.Candidates[0].Content
	}
	return out
}

func convertRatings(in []*genai.SafetyRating) []gemguard.SafetyRating {
	if len(in) == 0 {
		return nil
	}
	out := make([]gemguard.SafetyRating, 0, len(in))
	for _, r := range in {
		if r == nil {
			continue
		}
		out = append(out, gemguard.SafetyRating{
			Category:    gemguard.HarmCategory(r.Category),
			Probability: string(r.Probability),
			Blocked:     r.Blocked,
		})
	}
	return out
}

// statusPattern matches the "Error <code>," prefix of genai API error text.
// It is only used for errors that do not carry a genai.APIError.
var statusPattern = regexp.MustCompile(`Error (\d{3})\b`)

// MapError converts a genai error into the gemguard taxonomy.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code != 0 {
		return fmt.Errorf("%w: %v", &gemguard.StatusError{Code: apiErr.Code, Message: apiErr.Status}, err)
	}

	if m := statusPattern.FindStringSubmatch(err.Error()); m != nil {
		code, _ := strconv.Atoi(m[1])
		return fmt.Errorf("%w: %v", &gemguard.StatusError{Code: code}, err)
	}

	return fmt.Errorf("%w: %v", gemguard.ErrUnavailable, err)
}
