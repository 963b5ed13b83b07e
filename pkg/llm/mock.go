package llm

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/kevinai/kevin/pkg/store"
)

// MockProvider answers completions without any upstream API. It backs the
// daemon when no provider key is configured, so the whole surface stays
// exercisable in demos and tests.
type MockProvider struct{}

// NewMockProvider creates a mock provider
func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

// Name returns the provider name
func (p *MockProvider) Name() string {
	return "mock"
}

// Complete fabricates a response keyed off the last message
func (p *MockProvider) Complete(ctx context.Context, req Request) (*Completion, error) {
	last := ""
	if len(req.Messages) > 0 {
		last = req.Messages[len(req.Messages)-1].Content
	}
	lower := strings.ToLower(last)

	usage := Usage{
		InputTokens:  len(strings.Fields(last)),
		OutputTokens: 25,
	}

	switch {
	case strings.Contains(lower, "hello"):
		return &Completion{
			Content: "Hello! I'm Kevin AI, your virtual software engineer. How can I help you today?",
			Usage:   usage,
		}, nil

	case strings.Contains(lower, "todo") || strings.Contains(lower, "task"):
		args, _ := json.Marshal(map[string]interface{}{
			"todos": []map[string]string{
				{"content": "Analyze the request", "status": "in_progress"},
				{"content": "Create implementation plan", "status": "pending"},
			},
		})
		return &Completion{
			Content: "I'll help you manage your tasks.",
			ToolCalls: []store.ToolCall{
				{ID: "call_1", Name: "todo_write", Arguments: string(args)},
			},
			Usage: usage,
		}, nil

	default:
		preview := last
		if len(preview) > 100 {
			preview = preview[:100]
		}
		return &Completion{
			Content: "I understand you want help with: " + preview + ". Let me assist you with that. Note: For full functionality, please configure an API key (OpenAI or Anthropic) in the .env file.",
			Usage:   usage,
		}, nil
	}
}
