package llm

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kevinai/kevin/pkg/router"
	"github.com/kevinai/kevin/pkg/store"
)

func newTestClient() *Client {
	r := router.New(router.Options{
		OpenAIModels: router.TierModels{
			Fast:     "gpt-4o-mini",
			Standard: "gpt-4o",
			Premium:  "gpt-4-turbo-preview",
		},
		OpenAIConfigured: true,
		Logger:           zerolog.Nop(),
	})
	return NewClient(ClientOptions{
		Temperature: 0.7,
		Router:      r,
		Logger:      zerolog.Nop(),
	})
}

func TestClient_FallsBackToMockWithoutKeys(t *testing.T) {
	c := newTestClient()

	completion, model, err := c.Complete(context.Background(), []store.HistoryEntry{
		{Role: store.RoleUser, Content: "hello"},
	}, nil, CompleteOptions{SessionID: "s1"})

	require.NoError(t, err)
	assert.Contains(t, completion.Content, "Kevin AI")
	assert.NotEmpty(t, model)
}

func TestClient_TracksUsage(t *testing.T) {
	r := router.New(router.Options{
		OpenAIModels:     router.TierModels{Fast: "gpt-4o-mini", Standard: "gpt-4o", Premium: "gpt-4-turbo-preview"},
		OpenAIConfigured: true,
		Logger:           zerolog.Nop(),
	})
	c := NewClient(ClientOptions{Router: r, Logger: zerolog.Nop()})

	_, _, err := c.Complete(context.Background(), []store.HistoryEntry{
		{Role: store.RoleUser, Content: "hello"},
	}, nil, CompleteOptions{SessionID: "s1"})
	require.NoError(t, err)

	assert.Equal(t, 1, r.SessionCosts("s1").TotalRequests)
	assert.Equal(t, 0, r.SessionCosts("other").TotalRequests)
}

func TestClient_PinnedModelBypassesRouting(t *testing.T) {
	c := newTestClient()

	_, model, err := c.Complete(context.Background(), []store.HistoryEntry{
		{Role: store.RoleUser, Content: "hello"},
	}, nil, CompleteOptions{Model: "some-local-model"})

	require.NoError(t, err)
	assert.Equal(t, "some-local-model", model)
}

func TestLastUserContent(t *testing.T) {
	messages := []store.HistoryEntry{
		{Role: store.RoleUser, Content: "first"},
		{Role: store.RoleAssistant, Content: "reply"},
		{Role: store.RoleUser, Content: "second"},
		{Role: store.RoleTool, Content: "{}", ToolCallID: "c1"},
	}
	assert.Equal(t, "second", lastUserContent(messages))
	assert.Equal(t, "", lastUserContent(nil))
}

func TestMockProvider_Greeting(t *testing.T) {
	p := NewMockProvider()

	completion, err := p.Complete(context.Background(), Request{
		Messages: []store.HistoryEntry{{Role: store.RoleUser, Content: "Hello there"}},
	})

	require.NoError(t, err)
	assert.Contains(t, completion.Content, "Kevin AI")
	assert.Empty(t, completion.ToolCalls)
}

func TestMockProvider_TodoTriggersToolCall(t *testing.T) {
	p := NewMockProvider()

	completion, err := p.Complete(context.Background(), Request{
		Messages: []store.HistoryEntry{{Role: store.RoleUser, Content: "please manage my tasks"}},
	})

	require.NoError(t, err)
	require.Len(t, completion.ToolCalls, 1)
	assert.Equal(t, "todo_write", completion.ToolCalls[0].Name)
	assert.Equal(t, "call_1", completion.ToolCalls[0].ID)
	assert.Contains(t, completion.ToolCalls[0].Arguments, "Analyze the request")
}

func TestMockProvider_DefaultEchoesRequest(t *testing.T) {
	p := NewMockProvider()

	completion, err := p.Complete(context.Background(), Request{
		Messages: []store.HistoryEntry{{Role: store.RoleUser, Content: "refactor the billing module"}},
	})

	require.NoError(t, err)
	assert.Contains(t, completion.Content, "refactor the billing module")
}
