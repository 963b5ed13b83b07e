package tooldispatch

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/xeipuuv/gojsonschema"
)

// DefaultTimeout bounds a single tool invocation unless the ExecContext
// overrides it.
const DefaultTimeout = 30 * time.Second

// Dispatcher maintains the name-to-handler registry and provides the
// uniform "invoke by name with argument map" contract. The dispatcher holds
// no cross-call state; state, if any, belongs to individual tools.
type Dispatcher struct {
	tools   map[string]*Definition
	schemas map[string]*gojsonschema.Schema
	mu      sync.RWMutex
	logger  zerolog.Logger
}

// New creates an empty dispatcher
func New(logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		tools:   make(map[string]*Definition),
		schemas: make(map[string]*gojsonschema.Schema),
		logger:  logger,
	}
}

// Register adds a tool to the registry
func (d *Dispatcher) Register(def Definition) error {
	if def.Name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if def.Description == "" {
		return fmt.Errorf("tool description cannot be empty")
	}
	if def.Handler == nil {
		return fmt.Errorf("tool handler cannot be nil")
	}
	for _, param := range def.Parameters {
		if param.Name == "" {
			return fmt.Errorf("parameter name cannot be empty")
		}
		switch param.Type {
		case "string", "number", "integer", "boolean", "object", "array":
		default:
			return fmt.Errorf("invalid parameter type %q for %s", param.Type, param.Name)
		}
	}

	schema, err := compileSchema(def)
	if err != nil {
		return fmt.Errorf("failed to compile schema for %s: %w", def.Name, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.tools[def.Name] = &def
	d.schemas[def.Name] = schema

	d.logger.Info().Str("tool", def.Name).Msg("Tool registered")
	return nil
}

// Unregister removes a tool
func (d *Dispatcher) Unregister(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.tools, name)
	delete(d.schemas, name)
}

// Get returns a tool definition by name, or nil
func (d *Dispatcher) Get(name string) *Definition {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.tools[name]
}

// Catalog returns every registered definition, sorted by name
func (d *Dispatcher) Catalog() []Definition {
	d.mu.RLock()
	defer d.mu.RUnlock()

	catalog := make([]Definition, 0, len(d.tools))
	for _, def := range d.tools {
		catalog = append(catalog, *def)
	}
	sort.Slice(catalog, func(i, j int) bool { return catalog[i].Name < catalog[j].Name })
	return catalog
}

// Invoke executes a tool by name. It never returns an error and never
// panics: unknown tools, handler errors, panics and timeouts all come back
// as a Result carrying an error string. Execution duration is always set.
func (d *Dispatcher) Invoke(ctx context.Context, name string, args map[string]interface{}) Result {
	start := time.Now()

	d.mu.RLock()
	def := d.tools[name]
	schema := d.schemas[name]
	d.mu.RUnlock()

	if def == nil {
		d.logger.Warn().Str("tool", name).Msg("Unknown tool requested")
		return finish(Result{
			Error: fmt.Sprintf("Unknown tool: %s", name),
		}, start)
	}

	if args == nil {
		args = map[string]interface{}{}
	}

	if err := validateArgs(schema, args); err != nil {
		d.logger.Warn().Str("tool", name).Err(err).Msg("Tool argument validation failed")
		return finish(Result{
			Error: fmt.Sprintf("invalid arguments: %v", err),
		}, start)
	}

	timeout := DefaultTimeout
	if ec, ok := ExecContextFrom(ctx); ok && ec.Timeout > 0 {
		timeout = ec.Timeout
	}

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		output interface{}
		err    error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("tool panicked: %v", r)}
			}
		}()
		output, err := def.Handler.Execute(execCtx, args)
		done <- outcome{output: output, err: err}
	}()

	select {
	case out := <-done:
		result := Result{}
		if out.err != nil {
			result.Error = out.err.Error()
			d.logger.Error().Str("tool", name).Err(out.err).Msg("Tool execution failed")
		} else {
			result.Success = true
			result.Output = out.output
		}
		result = finish(result, start)
		d.logger.Debug().
			Str("tool", name).
			Dur("duration", result.Duration).
			Bool("success", result.Success).
			Msg("Tool invocation finished")
		return result

	case <-execCtx.Done():
		d.logger.Error().Str("tool", name).Dur("timeout", timeout).Msg("Tool execution timed out")
		return finish(Result{
			Error: fmt.Sprintf("tool execution timeout after %v", timeout),
		}, start)
	}
}

func finish(result Result, start time.Time) Result {
	result.Duration = time.Since(start)
	result.DurationMs = result.Duration.Milliseconds()
	return result
}

func compileSchema(def Definition) (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewGoLoader(def.InputSchema()))
}

func validateArgs(schema *gojsonschema.Schema, args map[string]interface{}) error {
	if schema == nil {
		return nil
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(args))
	if err != nil {
		return err
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, resultErr := range result.Errors() {
			msgs = append(msgs, resultErr.String())
		}
		return fmt.Errorf("validation errors: %v", msgs)
	}
	return nil
}
