package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kevinai/kevin/pkg/commandqueue"
	"github.com/kevinai/kevin/pkg/llm"
	"github.com/kevinai/kevin/pkg/store"
	"github.com/kevinai/kevin/pkg/tooldispatch"
)

// scriptedClient plays back a fixed sequence of completions. Once the
// script runs out it repeats the last step.
type scriptedClient struct {
	steps []*llm.Completion
	err   error
	calls int
}

func (s *scriptedClient) Complete(ctx context.Context, messages []store.HistoryEntry, tools []tooldispatch.Definition, opts llm.CompleteOptions) (*llm.Completion, string, error) {
	s.calls++
	if s.err != nil {
		return nil, "test-model", s.err
	}
	idx := s.calls - 1
	if idx >= len(s.steps) {
		idx = len(s.steps) - 1
	}
	return s.steps[idx], "test-model", nil
}

type fixture struct {
	store        *store.MemoryStore
	dispatcher   *tooldispatch.Dispatcher
	queue        *commandqueue.CommandQueue
	orchestrator *Orchestrator
	sessionID    string
}

func newFixture(t *testing.T, client Completer, opts Options) *fixture {
	t.Helper()

	st := store.NewMemoryStore(zerolog.Nop())
	session, err := st.Create("test", "/workspace")
	require.NoError(t, err)

	dispatcher := tooldispatch.New(zerolog.Nop())
	queue := commandqueue.New(zerolog.Nop())
	t.Cleanup(func() { queue.Close() })

	return &fixture{
		store:        st,
		dispatcher:   dispatcher,
		queue:        queue,
		orchestrator: New(st, client, dispatcher, queue, opts, zerolog.Nop()),
		sessionID:    session.ID,
	}
}

func TestProcessMessage_PlainAnswer(t *testing.T) {
	client := &scriptedClient{steps: []*llm.Completion{
		{Content: "Hi! How can I help?"},
	}}
	f := newFixture(t, client, Options{})

	result, err := f.orchestrator.ProcessMessage(context.Background(), f.sessionID, "hello")

	require.NoError(t, err)
	assert.Equal(t, "Hi! How can I help?", result.Message)
	assert.Equal(t, 1, result.Iterations)
	assert.Empty(t, result.ToolResults)

	session, _ := f.store.Get(f.sessionID)
	require.Len(t, session.Messages, 2)
	assert.Equal(t, store.RoleUser, session.Messages[0].Role)
	assert.Equal(t, "hello", session.Messages[0].Content)
	assert.Equal(t, store.RoleAssistant, session.Messages[1].Role)
	assert.Equal(t, "test-model", session.Messages[1].Metadata["model"])
}

func TestProcessMessage_ToolLoop(t *testing.T) {
	client := &scriptedClient{steps: []*llm.Completion{
		{
			Content:   "Let me check.",
			ToolCalls: []store.ToolCall{{ID: "c1", Name: "probe", Arguments: `{"key":"value"}`}},
		},
		{Content: "All done."},
	}}
	f := newFixture(t, client, Options{})

	var seenArgs map[string]interface{}
	require.NoError(t, f.dispatcher.Register(tooldispatch.Definition{
		Name:        "probe",
		Description: "Capture arguments",
		Handler: tooldispatch.HandlerFunc(func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			seenArgs = args
			ec, ok := tooldispatch.ExecContextFrom(ctx)
			require.True(t, ok)
			assert.Equal(t, f.sessionID, ec.SessionID)
			assert.Equal(t, "/workspace", ec.WorkspaceDir)
			return map[string]interface{}{"observed": true}, nil
		}),
	}))

	result, err := f.orchestrator.ProcessMessage(context.Background(), f.sessionID, "check something")

	require.NoError(t, err)
	assert.Equal(t, "All done.", result.Message)
	assert.Equal(t, 2, result.Iterations)
	require.Len(t, result.ToolResults, 1)
	assert.Equal(t, "probe", result.ToolResults[0].Tool)
	assert.Equal(t, map[string]interface{}{"key": "value"}, seenArgs)

	session, _ := f.store.Get(f.sessionID)
	// user, assistant(tool call), tool result, assistant
	require.Len(t, session.Messages, 4)
	assert.Equal(t, store.RoleTool, session.Messages[2].Role)
	assert.Equal(t, "c1", session.Messages[2].ToolCallID)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(session.Messages[2].Content), &decoded))
	assert.Equal(t, true, decoded["observed"])
}

func TestProcessMessage_UnknownToolIsContained(t *testing.T) {
	client := &scriptedClient{steps: []*llm.Completion{
		{ToolCalls: []store.ToolCall{{ID: "c1", Name: "nope", Arguments: `{}`}}},
		{Content: "Recovered."},
	}}
	f := newFixture(t, client, Options{})

	result, err := f.orchestrator.ProcessMessage(context.Background(), f.sessionID, "do it")

	require.NoError(t, err)
	assert.Equal(t, "Recovered.", result.Message)
	require.Len(t, result.ToolResults, 1)

	errorPayload := result.ToolResults[0].Result.(map[string]interface{})
	assert.Equal(t, "Unknown tool: nope", errorPayload["error"])
}

func TestProcessMessage_MalformedArgumentsBecomeEmptyMap(t *testing.T) {
	client := &scriptedClient{steps: []*llm.Completion{
		{ToolCalls: []store.ToolCall{{ID: "c1", Name: "probe", Arguments: `{not json`}}},
		{Content: "Done."},
	}}
	f := newFixture(t, client, Options{})

	var seenArgs map[string]interface{}
	require.NoError(t, f.dispatcher.Register(tooldispatch.Definition{
		Name:        "probe",
		Description: "Capture arguments",
		Handler: tooldispatch.HandlerFunc(func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			seenArgs = args
			return "ok", nil
		}),
	}))

	_, err := f.orchestrator.ProcessMessage(context.Background(), f.sessionID, "go")

	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{}, seenArgs)
}

func TestProcessMessage_ProviderFailureEndsTurn(t *testing.T) {
	client := &scriptedClient{err: errors.New("upstream unavailable")}
	f := newFixture(t, client, Options{})

	result, err := f.orchestrator.ProcessMessage(context.Background(), f.sessionID, "hello")

	require.NoError(t, err)
	assert.Equal(t, "Error: upstream unavailable", result.Message)
	assert.Equal(t, 1, result.Iterations)
	assert.Equal(t, 1, client.calls)

	session, _ := f.store.Get(f.sessionID)
	require.Len(t, session.Messages, 2)
	assert.Equal(t, store.RoleAssistant, session.Messages[1].Role)
	assert.Equal(t, "Error: upstream unavailable", session.Messages[1].Content)
}

func TestProcessMessage_IterationLimit(t *testing.T) {
	// The script always asks for another tool call.
	client := &scriptedClient{steps: []*llm.Completion{
		{ToolCalls: []store.ToolCall{{ID: "c1", Name: "spin", Arguments: `{}`}}},
	}}
	f := newFixture(t, client, Options{MaxIterations: 3})

	require.NoError(t, f.dispatcher.Register(tooldispatch.Definition{
		Name:        "spin",
		Description: "Does nothing",
		Handler: tooldispatch.HandlerFunc(func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			return "again", nil
		}),
	}))

	result, err := f.orchestrator.ProcessMessage(context.Background(), f.sessionID, "loop forever")

	require.NoError(t, err)
	assert.Equal(t, "Max iterations reached", result.Message)
	assert.Equal(t, 3, result.Iterations)
	assert.Len(t, result.ToolResults, 3)
	assert.Equal(t, 3, client.calls)
}

func TestProcessMessage_UnknownSession(t *testing.T) {
	client := &scriptedClient{steps: []*llm.Completion{{Content: "x"}}}
	f := newFixture(t, client, Options{})

	_, err := f.orchestrator.ProcessMessage(context.Background(), "missing", "hello")
	assert.ErrorIs(t, err, store.ErrSessionNotFound)
	assert.Equal(t, 0, client.calls)
}

func TestParseArguments(t *testing.T) {
	assert.Equal(t, map[string]interface{}{}, parseArguments(""))
	assert.Equal(t, map[string]interface{}{}, parseArguments("   "))
	assert.Equal(t, map[string]interface{}{}, parseArguments("{broken"))
	assert.Equal(t, map[string]interface{}{"a": "b"}, parseArguments(`{"a":"b"}`))
}
