package llm

import (
	"context"

	"github.com/kevinai/kevin/pkg/store"
	"github.com/kevinai/kevin/pkg/tooldispatch"
)

// Request is one completion call against a provider
type Request struct {
	Model        string
	SystemPrompt string
	Messages     []store.HistoryEntry
	Tools        []tooldispatch.Definition
	MaxTokens    int
	Temperature  float64
}

// Usage is the provider-reported token count for one completion
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Completion is the normalized provider response: text content plus zero
// or more proposed tool calls. Tool call arguments stay serialized; the
// orchestrator parses them.
type Completion struct {
	Content   string           `json:"content"`
	ToolCalls []store.ToolCall `json:"tool_calls,omitempty"`
	Usage     Usage            `json:"usage"`
}

// Provider is a single upstream LLM API
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (*Completion, error)
}
