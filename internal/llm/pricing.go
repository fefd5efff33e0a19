package llm

import "math"

// ModelPricing holds per-1k-token USD rates for one model.
type ModelPricing struct {
	InputPer1K  float64
	OutputPer1K float64
}

// pricingTable is the static per-model rate table. Rates are advisory
// telemetry; an unknown model estimates to zero rather than failing.
var pricingTable = map[string]ModelPricing{
	"gpt-4o":                   {InputPer1K: 0.0025, OutputPer1K: 0.01},
	"gpt-4o-mini":              {InputPer1K: 0.00015, OutputPer1K: 0.0006},
	"gpt-4-turbo":              {InputPer1K: 0.01, OutputPer1K: 0.03},
	"gpt-3.5-turbo":            {InputPer1K: 0.0005, OutputPer1K: 0.0015},
	"claude-3-5-sonnet-latest": {InputPer1K: 0.003, OutputPer1K: 0.015},
	"claude-3-haiku-20240307":  {InputPer1K: 0.00025, OutputPer1K: 0.00125},
}

// costPrecision is the decimal precision of cost estimates.
const costPrecision = 1e6

// EstimateCost returns the estimated USD cost of a completion.
// Unknown models yield 0: cost is never a gate on functionality.
func EstimateCost(promptTokens, completionTokens int, model string) float64 {
	rates, ok := pricingTable[model]
	if !ok {
		return 0
	}
	cost := float64(promptTokens)/1000*rates.InputPer1K +
		float64(completionTokens)/1000*rates.OutputPer1K
	return math.Round(cost*costPrecision) / costPrecision
}
