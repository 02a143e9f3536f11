package llm

// ModelCost is the USD price per million tokens.
type ModelCost struct {
	InputPerMTok  float64
	OutputPerMTok float64
}

// Cost returns the USD cost of a request.
func (c ModelCost) Cost(inputTokens, outputTokens int) float64 {
	return float64(inputTokens)*c.InputPerMTok/1_000_000 +
		float64(outputTokens)*c.OutputPerMTok/1_000_000
}

// LookupCost returns the price of modelID, or nil when unknown.
func LookupCost(modelID string) *ModelCost {
	if c, ok := modelCosts[modelID]; ok {
		return &c
	}
	return nil
}

// Prices of the models the default aliases resolve to.
var modelCosts = map[string]ModelCost{
	"claude-haiku-4-5-20251001":  {1, 5},
	"claude-sonnet-4-5-20250929": {3, 15},
	"gpt-4o-mini":                {0.15, 0.6},
	"gpt-4.1-mini":               {0.4, 1.6},
	"gemini-2.5-flash":           {0.3, 2.5},
	"gemini-2.5-pro":             {1.25, 10},
	"google/gemini-2.5-flash":    {0.3, 2.5},
}
