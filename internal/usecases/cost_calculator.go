package usecases

import "math"

// DefaultModel is also the pricing fallback for models missing from the table.
const DefaultModel = "claude-3-5-sonnet-20241022"

type modelPricing struct {
	input  float64 // USD per 1K input tokens
	output float64 // USD per 1K output tokens
}

var modelPrices = map[string]modelPricing{
	"claude-3-5-sonnet-20241022": {input: 0.003, output: 0.015},
	"claude-3-5-haiku-20241022":  {input: 0.0008, output: 0.004},
	"claude-3-opus-20240229":     {input: 0.015, output: 0.075},
}

type TokenCost struct {
	InputTokens   int     `json:"inputTokens"`
	OutputTokens  int     `json:"outputTokens"`
	TotalTokens   int     `json:"totalTokens"`
	EstimatedCost float64 `json:"estimatedCost"`
}

// CalculateTokenCost estimates the spend for one completion, rounded to four
// decimal places. Unknown models silently use the default model's pricing.
func CalculateTokenCost(inputTokens, outputTokens int, model string) TokenCost {
	pricing, ok := modelPrices[model]
	if !ok {
		pricing = modelPrices[DefaultModel]
	}

	inputCost := float64(inputTokens) / 1000 * pricing.input
	outputCost := float64(outputTokens) / 1000 * pricing.output

	return TokenCost{
		InputTokens:   inputTokens,
		OutputTokens:  outputTokens,
		TotalTokens:   inputTokens + outputTokens,
		EstimatedCost: math.Round((inputCost+outputCost)*10000) / 10000,
	}
}
