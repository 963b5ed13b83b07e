package llm

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/kevinai/kevin/pkg/router"
	"github.com/kevinai/kevin/pkg/store"
	"github.com/kevinai/kevin/pkg/tooldispatch"
)

// ClientOptions configures a Client
type ClientOptions struct {
	OpenAIAPIKey    string
	AnthropicAPIKey string
	Temperature     float64
	Router          *router.ModelRouter
	Logger          zerolog.Logger
}

// Client is the single entry point to the LLM boundary. It consults the
// model router for model selection, dispatches to the matching provider
// and records token usage. With no provider configured every completion
// degrades to the mock provider instead of failing.
type Client struct {
	openaiProvider    Provider
	anthropicProvider Provider
	mockProvider      Provider

	router      *router.ModelRouter
	temperature float64
	logger      zerolog.Logger
}

// CompleteOptions tunes one completion call
type CompleteOptions struct {
	// SessionID attributes token usage; empty skips tracking
	SessionID string

	// Model pins a concrete model, bypassing routing
	Model string

	// ForceTier bypasses the classification-derived tier
	ForceTier *router.ModelTier

	// Context feeds the task classifier
	Context *router.Context

	// PreferProvider overrides provider resolution during routing
	PreferProvider string
}

// NewClient creates a Client with whichever providers have keys
func NewClient(opts ClientOptions) *Client {
	c := &Client{
		mockProvider: NewMockProvider(),
		router:       opts.Router,
		temperature:  opts.Temperature,
		logger:       opts.Logger,
	}
	if opts.OpenAIAPIKey != "" {
		c.openaiProvider = NewOpenAIProvider(opts.OpenAIAPIKey)
	}
	if opts.AnthropicAPIKey != "" {
		c.anthropicProvider = NewAnthropicProvider(opts.AnthropicAPIKey)
	}
	return c
}

// Complete runs one completion over the conversation history. The last
// user message drives routing when no model is pinned. Returns the
// completion and the model that produced it.
func (c *Client) Complete(ctx context.Context, messages []store.HistoryEntry, tools []tooldispatch.Definition, opts CompleteOptions) (*Completion, string, error) {
	model := opts.Model
	tier := router.TierStandard

	if model == "" {
		routed, routedTier, category := c.router.SelectModel(lastUserContent(messages), opts.Context, opts.ForceTier, opts.PreferProvider)
		model = routed
		tier = routedTier
		c.logger.Debug().
			Str("model", model).
			Str("tier", string(tier)).
			Str("category", string(category)).
			Msg("Completion routed")
	}

	provider := c.providerFor(model)

	req := Request{
		Model:        model,
		SystemPrompt: SystemPrompt,
		Messages:     messages,
		Tools:        tools,
		MaxTokens:    c.router.MaxTokensForTier(tier),
		Temperature:  c.temperature,
	}

	completion, err := provider.Complete(ctx, req)
	if err != nil {
		return nil, model, err
	}

	if opts.SessionID != "" {
		c.router.TrackUsage(opts.SessionID, model, completion.Usage.InputTokens, completion.Usage.OutputTokens)
	}

	return completion, model, nil
}

// providerFor maps a model name to its provider, falling back to the
// mock provider when the matching one has no key.
func (c *Client) providerFor(model string) Provider {
	lower := strings.ToLower(model)
	switch {
	case strings.Contains(lower, "gpt") && c.openaiProvider != nil:
		return c.openaiProvider
	case strings.Contains(lower, "claude") && c.anthropicProvider != nil:
		return c.anthropicProvider
	default:
		return c.mockProvider
	}
}

func lastUserContent(messages []store.HistoryEntry) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == store.RoleUser {
			return messages[i].Content
		}
	}
	if len(messages) > 0 {
		return messages[len(messages)-1].Content
	}
	return ""
}
