package analytics

import "strings"

// ModelRate is USD per 1000 tokens.
type ModelRate struct {
	Input  float64
	Output float64
}

// modelRates is keyed on lowercase model-name substrings; the first match in
// ratePriority wins, otherwise defaultRate applies.
var modelRates = map[string]ModelRate{
	"gpt-4o":          {Input: 0.0025, Output: 0.01},
	"gpt-4":           {Input: 0.03, Output: 0.06},
	"gpt-3.5-turbo":   {Input: 0.0005, Output: 0.0015},
	"claude-3-opus":   {Input: 0.015, Output: 0.075},
	"claude-3-sonnet": {Input: 0.003, Output: 0.015},
	"claude-3-haiku":  {Input: 0.00025, Output: 0.00125},
	"cursor-small":    {Input: 0.0001, Output: 0.0002},
}

var ratePriority = []string{
	"gpt-4o", "gpt-4", "gpt-3.5-turbo",
	"claude-3-opus", "claude-3-sonnet", "claude-3-haiku",
	"cursor-small",
}

var defaultRate = ModelRate{Input: 0.001, Output: 0.002}

// RateFor resolves the pricing row for a model name.
func RateFor(modelName string) ModelRate {
	name := strings.ToLower(strings.TrimSpace(modelName))
	for _, key := range ratePriority {
		if strings.Contains(name, key) {
			return modelRates[key]
		}
	}
	return defaultRate
}

// EstimateTokens is the simple deterministic chars/4 estimate, rounded up.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + 3) / 4
}

// EstimateCost prices input and output token counts for a model.
func EstimateCost(modelName string, inputTokens, outputTokens int) float64 {
	rate := RateFor(modelName)
	return float64(inputTokens)/1000*rate.Input + float64(outputTokens)/1000*rate.Output
}
