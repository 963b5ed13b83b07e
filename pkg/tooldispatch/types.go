package tooldispatch

import (
	"context"
	"time"
)

// Handler executes a tool invocation. Implementations live outside the
// dispatcher; registering one is the only step needed to add a tool.
type Handler interface {
	Execute(ctx context.Context, args map[string]interface{}) (interface{}, error)
}

// HandlerFunc adapts a plain function to the Handler interface
type HandlerFunc func(ctx context.Context, args map[string]interface{}) (interface{}, error)

// Execute implements Handler
func (f HandlerFunc) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	return f(ctx, args)
}

// Parameter describes one tool argument
type Parameter struct {
	Name        string      `json:"name"`
	Type        string      `json:"type"`
	Description string      `json:"description"`
	Required    bool        `json:"required"`
	Enum        []string    `json:"enum,omitempty"`
	Items       interface{} `json:"items,omitempty"`
}

// Definition is a tool's catalog entry: name, description and parameter
// schema. Definitions are handed to the LLM boundary verbatim.
type Definition struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  []Parameter `json:"parameters"`
	Handler     Handler     `json:"-"`
}

// InputSchema renders the parameter list as a JSON Schema object, the
// shape both provider APIs expect.
func (d Definition) InputSchema() map[string]interface{} {
	properties := make(map[string]interface{}, len(d.Parameters))
	var required []string

	for _, param := range d.Parameters {
		prop := map[string]interface{}{
			"type":        param.Type,
			"description": param.Description,
		}
		if len(param.Enum) > 0 {
			prop["enum"] = param.Enum
		}
		if param.Items != nil {
			prop["items"] = param.Items
		}
		properties[param.Name] = prop
		if param.Required {
			required = append(required, param.Name)
		}
	}

	schema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// Result is the uniform envelope for every tool invocation. Failures are
// data, never panics: the conversation loop is never unwound by a tool.
type Result struct {
	Success  bool        `json:"success"`
	Output   interface{} `json:"output,omitempty"`
	Error    string      `json:"error,omitempty"`
	Duration time.Duration `json:"-"`

	// DurationMs mirrors Duration for serialization
	DurationMs int64 `json:"duration_ms"`
}

// ExecContext carries per-invocation runtime information for handlers that
// need it (the session tools).
type ExecContext struct {
	SessionID    string
	WorkspaceDir string
	Timeout      time.Duration
}

type execContextKey struct{}

// WithExecContext attaches an ExecContext to a context
func WithExecContext(ctx context.Context, ec ExecContext) context.Context {
	return context.WithValue(ctx, execContextKey{}, ec)
}

// ExecContextFrom extracts the ExecContext, if any
func ExecContextFrom(ctx context.Context) (ExecContext, bool) {
	ec, ok := ctx.Value(execContextKey{}).(ExecContext)
	return ec, ok
}
