package router

import (
	"math"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Confidence handling:
//   - below lowConfidence the raw winner is discarded for conversation
//   - below escalateConfidence a fast-tier pick is escalated to standard
const (
	lowConfidence      = 0.3
	escalateConfidence = 0.5
)

// Options configures a ModelRouter
type Options struct {
	OpenAIModels    TierModels
	AnthropicModels TierModels

	FastMaxTokens     int
	StandardMaxTokens int
	PremiumMaxTokens  int

	OpenAIConfigured    bool
	AnthropicConfigured bool
	DefaultProvider     string

	// Prices overrides the built-in price table when non-nil
	Prices map[string]ModelPrice

	Logger zerolog.Logger
}

// ModelRouter classifies user messages and routes them to cost-appropriate
// models, tracking per-session token usage and derived cost.
type ModelRouter struct {
	opts   Options
	prices map[string]ModelPrice
	logger zerolog.Logger

	trackers map[string]*sessionCostTracker
	mu       sync.Mutex
}

// New creates a ModelRouter
func New(opts Options) *ModelRouter {
	if opts.FastMaxTokens <= 0 {
		opts.FastMaxTokens = 1024
	}
	if opts.StandardMaxTokens <= 0 {
		opts.StandardMaxTokens = 4096
	}
	if opts.PremiumMaxTokens <= 0 {
		opts.PremiumMaxTokens = 8192
	}
	if opts.DefaultProvider == "" {
		opts.DefaultProvider = "openai"
	}

	prices := opts.Prices
	if prices == nil {
		prices = defaultPrices
	}

	return &ModelRouter{
		opts:     opts,
		prices:   prices,
		logger:   opts.Logger,
		trackers: make(map[string]*sessionCostTracker),
	}
}

// Classify maps a message and optional context to a task category and a
// confidence in [0, 1]. Deterministic: identical inputs yield identical
// results. A weak signal (confidence below 0.3) falls back to the
// conversation category.
func (r *ModelRouter) Classify(message string, ctx *Context) (TaskCategory, float64) {
	lower := strings.ToLower(strings.TrimSpace(message))

	scores := make(map[TaskCategory]float64, len(allCategories))
	for _, category := range allCategories {
		for _, pattern := range taskPatterns[category] {
			if pattern.MatchString(lower) {
				scores[category] += 1.0
			}
		}
	}

	if ctx != nil {
		if ctx.HasCodeContext {
			scores[CategoryCodeAnalysis] += 0.5
			scores[CategoryCodeGeneration] += 0.3
		}
		if ctx.HasError {
			scores[CategoryDebugging] += 1.0
		}
		if ctx.IsFollowup {
			scores[CategoryConversation] += 0.5
		}
		if ctx.HasToolCalls {
			scores[CategoryToolExecution] += 0.5
		}
	}

	wordCount := len(strings.Fields(message))
	if wordCount > 100 {
		scores[CategoryArchitecture] += 0.3
		scores[CategoryPlanning] += 0.3
	} else if wordCount < 10 {
		scores[CategorySimpleQuery] += 0.5
	}

	// Ties break to the earliest declared category.
	best := allCategories[0]
	total := 0.0
	for _, category := range allCategories {
		total += scores[category]
		if scores[category] > scores[best] {
			best = category
		}
	}

	confidence := scores[best] / math.Max(total, 1.0)

	if confidence < lowConfidence {
		best = CategoryConversation
	}

	return best, confidence
}

// SelectModel picks a concrete provider model for a message. forceTier
// bypasses the classification-derived tier (classification still runs for
// bookkeeping). preferProvider overrides provider resolution.
func (r *ModelRouter) SelectModel(message string, ctx *Context, forceTier *ModelTier, preferProvider string) (string, ModelTier, TaskCategory) {
	category, confidence := r.Classify(message, ctx)

	var tier ModelTier
	if forceTier != nil {
		tier = *forceTier
	} else {
		var ok bool
		tier, ok = categoryToTier[category]
		if !ok {
			tier = TierStandard
		}

		// Low-confidence escalation applies to the fast tier only.
		if confidence < escalateConfidence && tier == TierFast {
			tier = TierStandard
		}
	}

	provider := r.resolveProvider(preferProvider)
	model := r.modelForTier(tier, provider)

	r.logger.Debug().
		Str("category", string(category)).
		Float64("confidence", confidence).
		Str("tier", string(tier)).
		Str("model", model).
		Msg("Model selected")

	return model, tier, category
}

func (r *ModelRouter) resolveProvider(prefer string) string {
	if prefer != "" {
		return prefer
	}
	if r.opts.OpenAIConfigured {
		return "openai"
	}
	if r.opts.AnthropicConfigured {
		return "anthropic"
	}
	return r.opts.DefaultProvider
}

func (r *ModelRouter) modelForTier(tier ModelTier, provider string) string {
	if provider == "anthropic" {
		return r.opts.AnthropicModels.forTier(tier)
	}
	return r.opts.OpenAIModels.forTier(tier)
}

// MaxTokensForTier returns the fixed output token ceiling for a tier
func (r *ModelRouter) MaxTokensForTier(tier ModelTier) int {
	switch tier {
	case TierFast:
		return r.opts.FastMaxTokens
	case TierPremium:
		return r.opts.PremiumMaxTokens
	default:
		return r.opts.StandardMaxTokens
	}
}

// TrackUsage records token usage for a session, lazily creating the
// session's cost tracker.
func (r *ModelRouter) TrackUsage(sessionID, model string, inputTokens, outputTokens int) TokenUsage {
	usage := TokenUsage{
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		Model:        model,
		Timestamp:    time.Now(),
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tracker, exists := r.trackers[sessionID]
	if !exists {
		tracker = &sessionCostTracker{sessionID: sessionID}
		r.trackers[sessionID] = tracker
	}

	tracker.usageHistory = append(tracker.usageHistory, usage)
	tracker.totalInputTokens += usage.InputTokens
	tracker.totalOutputTokens += usage.OutputTokens
	tracker.totalCost += r.usageCost(usage)

	return usage
}

// SessionCosts returns the cost summary for one session. Sessions with no
// usage yield a zeroed summary rather than an error.
func (r *ModelRouter) SessionCosts(sessionID string) SessionCostSummary {
	r.mu.Lock()
	defer r.mu.Unlock()

	tracker, exists := r.trackers[sessionID]
	if !exists {
		return SessionCostSummary{
			SessionID:   sessionID,
			CostByModel: map[string]float64{},
		}
	}

	byModel := make(map[string]float64)
	for _, usage := range tracker.usageHistory {
		byModel[usage.Model] = round6(byModel[usage.Model] + r.usageCost(usage))
	}

	return SessionCostSummary{
		SessionID:         sessionID,
		TotalCost:         round6(tracker.totalCost),
		TotalInputTokens:  tracker.totalInputTokens,
		TotalOutputTokens: tracker.totalOutputTokens,
		TotalRequests:     len(tracker.usageHistory),
		CostByModel:       byModel,
	}
}

// AllCosts returns the cost summary across every session
func (r *ModelRouter) AllCosts() GlobalCostSummary {
	r.mu.Lock()
	defer r.mu.Unlock()

	summary := GlobalCostSummary{Sessions: len(r.trackers)}
	for _, tracker := range r.trackers {
		summary.TotalCost += tracker.totalCost
		summary.TotalInputTokens += tracker.totalInputTokens
		summary.TotalOutputTokens += tracker.totalOutputTokens
		summary.TotalRequests += len(tracker.usageHistory)
	}
	summary.TotalCost = round6(summary.TotalCost)

	return summary
}

// DropSession discards a session's cost tracker. Called when the session
// itself is deleted.
func (r *ModelRouter) DropSession(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.trackers, sessionID)
}

// EstimateCost approximates the cost of a message without calling any
// provider. Input tokens are approximated from word count.
func (r *ModelRouter) EstimateCost(message string, estimatedOutputTokens int) CostEstimate {
	if estimatedOutputTokens <= 0 {
		estimatedOutputTokens = 500
	}

	model, tier, category := r.SelectModel(message, nil, nil, "")
	estimatedInput := float64(len(strings.Fields(message))) * 1.3

	price := r.priceFor(model)
	cost := estimatedInput/1000*price.Input + float64(estimatedOutputTokens)/1000*price.Output

	return CostEstimate{
		Model:                 model,
		Tier:                  tier,
		Category:              category,
		EstimatedInputTokens:  int(estimatedInput),
		EstimatedOutputTokens: estimatedOutputTokens,
		EstimatedCost:         round6(cost),
	}
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
