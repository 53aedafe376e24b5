package usecases

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateTokenCost(t *testing.T) {
	cost := CalculateTokenCost(1000, 1000, "claude-3-5-sonnet-20241022")

	assert.Equal(t, 1000, cost.InputTokens)
	assert.Equal(t, 1000, cost.OutputTokens)
	assert.Equal(t, 2000, cost.TotalTokens)
	assert.Equal(t, 0.018, cost.EstimatedCost)
}

func TestCalculateTokenCostRounding(t *testing.T) {
	// 123 in * 0.003/1K + 456 out * 0.015/1K = 0.000369 + 0.00684 = 0.007209
	cost := CalculateTokenCost(123, 456, "claude-3-5-sonnet-20241022")
	assert.Equal(t, 0.0072, cost.EstimatedCost)
}

func TestCalculateTokenCostUnknownModelUsesDefault(t *testing.T) {
	unknown := CalculateTokenCost(500, 200, "some-future-model")
	known := CalculateTokenCost(500, 200, DefaultModel)
	assert.Equal(t, known.EstimatedCost, unknown.EstimatedCost)
}

func TestCalculateTokenCostZero(t *testing.T) {
	cost := CalculateTokenCost(0, 0, DefaultModel)
	assert.Equal(t, 0, cost.TotalTokens)
	assert.Equal(t, 0.0, cost.EstimatedCost)
}

func TestCalculateTokenCostHaikuCheaper(t *testing.T) {
	haiku := CalculateTokenCost(10000, 10000, "claude-3-5-haiku-20241022")
	opus := CalculateTokenCost(10000, 10000, "claude-3-opus-20240229")
	assert.Less(t, haiku.EstimatedCost, opus.EstimatedCost)
}
