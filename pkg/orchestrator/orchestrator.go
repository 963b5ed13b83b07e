package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/kevinai/kevin/pkg/commandqueue"
	"github.com/kevinai/kevin/pkg/llm"
	"github.com/kevinai/kevin/pkg/router"
	"github.com/kevinai/kevin/pkg/store"
	"github.com/kevinai/kevin/pkg/tooldispatch"
)

// ToolTrace is one executed tool call within a turn
type ToolTrace struct {
	Tool   string                 `json:"tool"`
	Args   map[string]interface{} `json:"args"`
	Result interface{}            `json:"result"`
}

// TurnResult is the outcome of one full agent turn
type TurnResult struct {
	Message     string      `json:"message"`
	ToolResults []ToolTrace `json:"tool_results"`
	Iterations  int         `json:"iterations"`
}

// Options configures an Orchestrator
type Options struct {
	// MaxIterations bounds the completion/tool loop per turn
	MaxIterations int

	// HistoryLimit caps how many messages are projected to the LLM
	HistoryLimit int

	// ToolTimeout bounds each tool invocation
	ToolTimeout time.Duration
}

// Completer is the slice of the LLM client the loop needs. *llm.Client
// satisfies it.
type Completer interface {
	Complete(ctx context.Context, messages []store.HistoryEntry, tools []tooldispatch.Definition, opts llm.CompleteOptions) (*llm.Completion, string, error)
}

// Orchestrator runs the agent loop: completion, tool execution, repeat
// until the model answers without tool calls or the iteration bound is
// hit. Turns for the same session are serialized on a per-session lane;
// different sessions proceed concurrently.
type Orchestrator struct {
	store      store.Store
	client     Completer
	dispatcher *tooldispatch.Dispatcher
	queue      *commandqueue.CommandQueue
	opts       Options
	logger     zerolog.Logger
}

// New creates an Orchestrator
func New(st store.Store, client Completer, dispatcher *tooldispatch.Dispatcher, queue *commandqueue.CommandQueue, opts Options, logger zerolog.Logger) *Orchestrator {
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = 10
	}
	if opts.ToolTimeout <= 0 {
		opts.ToolTimeout = tooldispatch.DefaultTimeout
	}
	return &Orchestrator{
		store:      st,
		client:     client,
		dispatcher: dispatcher,
		queue:      queue,
		opts:       opts,
		logger:     logger,
	}
}

// ProcessMessage runs one agent turn for a session. Returns
// store.ErrSessionNotFound for unknown sessions. The turn is enqueued on
// the session's lane, so overlapping calls for one session run strictly
// one after another.
func (o *Orchestrator) ProcessMessage(ctx context.Context, sessionID, userMessage string) (*TurnResult, error) {
	session, err := o.store.Get(sessionID)
	if err != nil {
		return nil, err
	}

	value, err := o.queue.EnqueueWithContext(ctx, "session-"+sessionID, func(taskCtx context.Context) (interface{}, error) {
		return o.runTurn(taskCtx, session.ID, session.WorkspacePath, userMessage)
	}, nil)
	if err != nil {
		return nil, err
	}

	return value.(*TurnResult), nil
}

func (o *Orchestrator) runTurn(ctx context.Context, sessionID, workspacePath, userMessage string) (*TurnResult, error) {
	if _, err := o.store.AppendMessage(sessionID, store.Message{
		Role:    store.RoleUser,
		Content: userMessage,
	}); err != nil {
		return nil, err
	}

	trace := []ToolTrace{}
	catalog := o.dispatcher.Catalog()

	for iteration := 1; iteration <= o.opts.MaxIterations; iteration++ {
		history, err := o.store.History(sessionID, o.opts.HistoryLimit)
		if err != nil {
			return nil, err
		}

		completion, model, err := o.client.Complete(ctx, history, catalog, llm.CompleteOptions{
			SessionID: sessionID,
			Context:   turnContext(history, iteration, trace),
		})
		if err != nil {
			// Provider failures end the turn as an assistant message
			// instead of unwinding the loop.
			o.logger.Error().Str("session_id", sessionID).Err(err).Msg("Completion failed")
			content := fmt.Sprintf("Error: %v", err)
			if _, appendErr := o.store.AppendMessage(sessionID, store.Message{
				Role:    store.RoleAssistant,
				Content: content,
			}); appendErr != nil {
				return nil, appendErr
			}
			return &TurnResult{Message: content, ToolResults: trace, Iterations: iteration}, nil
		}

		if _, err := o.store.AppendMessage(sessionID, store.Message{
			Role:      store.RoleAssistant,
			Content:   completion.Content,
			ToolCalls: completion.ToolCalls,
			Metadata:  map[string]interface{}{"model": model},
		}); err != nil {
			return nil, err
		}

		if len(completion.ToolCalls) == 0 {
			return &TurnResult{
				Message:     completion.Content,
				ToolResults: trace,
				Iterations:  iteration,
			}, nil
		}

		for _, tc := range completion.ToolCalls {
			args := parseArguments(tc.Arguments)

			execCtx := tooldispatch.WithExecContext(ctx, tooldispatch.ExecContext{
				SessionID:    sessionID,
				WorkspaceDir: workspacePath,
				Timeout:      o.opts.ToolTimeout,
			})
			result := o.dispatcher.Invoke(execCtx, tc.Name, args)

			var data interface{}
			if result.Error != "" {
				data = map[string]interface{}{"error": result.Error}
			} else {
				data = result.Output
			}

			trace = append(trace, ToolTrace{Tool: tc.Name, Args: args, Result: data})

			if _, err := o.store.AppendMessage(sessionID, store.Message{
				Role:       store.RoleTool,
				Content:    serializeResult(data),
				ToolCallID: tc.ID,
			}); err != nil {
				return nil, err
			}
		}
	}

	o.logger.Warn().
		Str("session_id", sessionID).
		Int("iterations", o.opts.MaxIterations).
		Msg("Turn hit iteration limit")

	return &TurnResult{
		Message:     "Max iterations reached",
		ToolResults: trace,
		Iterations:  o.opts.MaxIterations,
	}, nil
}

// parseArguments decodes serialized tool arguments. Malformed payloads
// degrade to an empty map; the tool's own validation reports what is
// missing.
func parseArguments(raw string) map[string]interface{} {
	args := map[string]interface{}{}
	if strings.TrimSpace(raw) == "" {
		return args
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return map[string]interface{}{}
	}
	return args
}

func serializeResult(data interface{}) string {
	encoded, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(encoded)
}

// turnContext derives the classifier signals from the conversation shape
func turnContext(history []store.HistoryEntry, iteration int, trace []ToolTrace) *router.Context {
	ctx := &router.Context{
		IsFollowup:   len(history) > 2,
		HasToolCalls: iteration > 1,
	}

	for _, entry := range history {
		if strings.Contains(entry.Content, "```") {
			ctx.HasCodeContext = true
			break
		}
	}

	for _, t := range trace {
		if m, ok := t.Result.(map[string]interface{}); ok {
			if _, failed := m["error"]; failed {
				ctx.HasError = true
				break
			}
		}
	}

	return ctx
}
