package router

import (
	"time"
)

// ModelTier is a cost/capability class used to pick a concrete model
type ModelTier string

const (
	TierFast     ModelTier = "fast"
	TierStandard ModelTier = "standard"
	TierPremium  ModelTier = "premium"
)

// TaskCategory is the classifier's heuristic label for a user message
type TaskCategory string

const (
	CategorySimpleQuery    TaskCategory = "simple_query"
	CategoryFileOperation  TaskCategory = "file_operation"
	CategoryCodeGeneration TaskCategory = "code_generation"
	CategoryCodeAnalysis   TaskCategory = "code_analysis"
	CategoryDebugging      TaskCategory = "debugging"
	CategoryArchitecture   TaskCategory = "architecture"
	CategoryDataAnalysis   TaskCategory = "data_analysis"
	CategoryToolExecution  TaskCategory = "tool_execution"
	CategoryConversation   TaskCategory = "conversation"
	CategoryPlanning       TaskCategory = "planning"
)

// allCategories is the canonical declaration order. Classification scores
// are scanned in this order and ties go to the earliest entry, which keeps
// the winner deterministic.
var allCategories = []TaskCategory{
	CategorySimpleQuery,
	CategoryFileOperation,
	CategoryCodeGeneration,
	CategoryCodeAnalysis,
	CategoryDebugging,
	CategoryArchitecture,
	CategoryDataAnalysis,
	CategoryToolExecution,
	CategoryConversation,
	CategoryPlanning,
}

// Context carries request signals that bias classification
type Context struct {
	HasCodeContext bool `json:"has_code_context,omitempty"`
	HasError       bool `json:"has_error,omitempty"`
	IsFollowup     bool `json:"is_followup,omitempty"`
	HasToolCalls   bool `json:"tool_calls,omitempty"`
}

// TokenUsage records one completion's token consumption. Immutable once
// recorded.
type TokenUsage struct {
	InputTokens  int       `json:"input_tokens"`
	OutputTokens int       `json:"output_tokens"`
	Model        string    `json:"model"`
	Timestamp    time.Time `json:"timestamp"`
}

// TotalTokens returns input plus output tokens
func (u TokenUsage) TotalTokens() int {
	return u.InputTokens + u.OutputTokens
}

// ModelPrice is the price per 1000 tokens for one model
type ModelPrice struct {
	Input  float64 `json:"input"`
	Output float64 `json:"output"`
}

// sessionCostTracker accumulates usage for a single session. Created
// lazily on first usage; destroyed only with the session.
type sessionCostTracker struct {
	sessionID         string
	usageHistory      []TokenUsage
	totalCost         float64
	totalInputTokens  int
	totalOutputTokens int
}

// SessionCostSummary is the per-session cost report
type SessionCostSummary struct {
	SessionID         string             `json:"session_id"`
	TotalCost         float64            `json:"total_cost"`
	TotalInputTokens  int                `json:"total_input_tokens"`
	TotalOutputTokens int                `json:"total_output_tokens"`
	TotalRequests     int                `json:"total_requests"`
	CostByModel       map[string]float64 `json:"cost_by_model"`
}

// GlobalCostSummary is the cross-session cost report
type GlobalCostSummary struct {
	TotalCost         float64 `json:"total_cost"`
	TotalInputTokens  int     `json:"total_input_tokens"`
	TotalOutputTokens int     `json:"total_output_tokens"`
	TotalRequests     int     `json:"total_requests"`
	Sessions          int     `json:"sessions"`
}

// CostEstimate approximates the cost of a message before sending it
type CostEstimate struct {
	Model                 string       `json:"model"`
	Tier                  ModelTier    `json:"tier"`
	Category              TaskCategory `json:"category"`
	EstimatedInputTokens  int          `json:"estimated_input_tokens"`
	EstimatedOutputTokens int          `json:"estimated_output_tokens"`
	EstimatedCost         float64      `json:"estimated_cost"`
}

// TierModels names one provider's model for each tier
type TierModels struct {
	Fast     string `json:"fast"`
	Standard string `json:"standard"`
	Premium  string `json:"premium"`
}

// forTier returns the model name for a tier
func (tm TierModels) forTier(tier ModelTier) string {
	switch tier {
	case TierFast:
		return tm.Fast
	case TierPremium:
		return tm.Premium
	default:
		return tm.Standard
	}
}
