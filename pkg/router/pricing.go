package router

// defaultPrices is the static per-model price table, in dollars per 1000
// tokens. Unknown models price at zero rather than failing.
var defaultPrices = map[string]ModelPrice{
	// OpenAI
	"gpt-4o-mini":         {Input: 0.00015, Output: 0.0006},
	"gpt-4o":              {Input: 0.0025, Output: 0.01},
	"gpt-4-turbo-preview": {Input: 0.01, Output: 0.03},
	"gpt-3.5-turbo":       {Input: 0.0005, Output: 0.0015},

	// Anthropic
	"claude-3-haiku-20240307":    {Input: 0.00025, Output: 0.00125},
	"claude-3-5-sonnet-20241022": {Input: 0.003, Output: 0.015},
	"claude-3-opus-20240229":     {Input: 0.015, Output: 0.075},
}

// priceFor looks up a model's price, falling back to zero
func (r *ModelRouter) priceFor(model string) ModelPrice {
	if price, ok := r.prices[model]; ok {
		return price
	}
	return ModelPrice{}
}

// usageCost computes the cost of a usage record against the price table:
// (input/1000 * price_in) + (output/1000 * price_out)
func (r *ModelRouter) usageCost(usage TokenUsage) float64 {
	price := r.priceFor(usage.Model)
	return float64(usage.InputTokens)/1000*price.Input + float64(usage.OutputTokens)/1000*price.Output
}
