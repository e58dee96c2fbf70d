package llm

import "strings"

// price is USD per 1K tokens.
type price struct {
	input, output float64
}

var prices = map[string]price{
	"gemini-2.0-flash": {0.0001, 0.0004},
	"gemini-1.5-flash": {0.000075, 0.0003},
	"gemini-1.5-pro":   {0.00125, 0.005},

	"gpt-4o":      {0.005, 0.015},
	"gpt-4o-mini": {0.00015, 0.0006},

	"claude-3-haiku-20240307":  {0.00025, 0.00125},
	"claude-sonnet-4-20250514": {0.003, 0.015},
}

// lookupPrice matches exact names first, then the longest known prefix so
// pinned revisions such as gemini-2.0-flash-001 are priced too.
func lookupPrice(model string) (price, bool) {
	if p, ok := prices[model]; ok {
		return p, true
	}
	best := ""
	for name := range prices {
		if strings.HasPrefix(model, name) && len(name) > len(best) {
			best = name
		}
	}
	if best == "" {
		return price{}, false
	}
	return prices[best], true
}

// CalculateCost is zero for unknown and local models.
func CalculateCost(model string, inputTokens, outputTokens int) float64 {
	p, ok := lookupPrice(model)
	if !ok {
		return 0
	}
	return float64(inputTokens)/1000.0*p.input + float64(outputTokens)/1000.0*p.output
}
