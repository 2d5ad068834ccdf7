package gemguard

// Model identifiers used by RecommendModel.
const (
	ModelFlash = "gemini-2.5-flash"
	ModelPro   = "gemini-2.5-pro"
)

// recommendThreshold is the prompt size, in tokens, above which the
// higher-quality model is preferred.
const recommendThreshold = 1000

// EstimateTokens provides a rough token count estimate for text.
// Uses the approximation: ~4 chars per token for English text.
func EstimateTokens(text string) int64 {
	return int64(len(text)) / 4
}

// EstimateRequestTokens estimates the prompt tokens of a request, system
// prompt included.
func EstimateRequestTokens(req Request) int64 {
	return EstimateTokens(req.SystemPrompt) + EstimateTokens(req.Prompt)
}

// RecommendModel picks a model for a prompt of the given size.
// costPriority wins over qualityPriority when both are set.
func RecommendModel(promptTokens int64, qualityPriority, costPriority bool) string {
	switch {
	case costPriority:
		return ModelFlash
	case qualityPriority:
		return ModelPro
	case promptTokens < recommendThreshold:
		return ModelFlash
	default:
		return ModelPro
	}
}

// EstimateCost prices a request before it is sent, assuming
// completionTokens of output.
func EstimateCost(t PricingTable, model string, promptTokens, completionTokens int64) float64 {
	rates, _ := t.Lookup(model)
	return rates.Cost(promptTokens, completionTokens)
}
