package tooldispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoTool() Definition {
	return Definition{
		Name:        "echo",
		Description: "Echo the input back",
		Parameters: []Parameter{
			{Name: "text", Type: "string", Description: "Text to echo", Required: true},
		},
		Handler: HandlerFunc(func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			return map[string]interface{}{"echo": args["text"]}, nil
		}),
	}
}

func TestRegister_Validation(t *testing.T) {
	d := New(zerolog.Nop())

	tests := []struct {
		name string
		def  Definition
	}{
		{"empty name", Definition{Description: "x", Handler: HandlerFunc(nil)}},
		{"empty description", Definition{Name: "x", Handler: HandlerFunc(nil)}},
		{"nil handler", Definition{Name: "x", Description: "y"}},
		{"bad parameter type", Definition{
			Name: "x", Description: "y",
			Parameters: []Parameter{{Name: "p", Type: "tuple"}},
			Handler:    HandlerFunc(func(ctx context.Context, args map[string]interface{}) (interface{}, error) { return nil, nil }),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, d.Register(tt.def))
		})
	}

	assert.NoError(t, d.Register(echoTool()))
}

func TestInvoke_Success(t *testing.T) {
	d := New(zerolog.Nop())
	require.NoError(t, d.Register(echoTool()))

	result := d.Invoke(context.Background(), "echo", map[string]interface{}{"text": "hi"})

	assert.True(t, result.Success)
	assert.Empty(t, result.Error)
	assert.Equal(t, map[string]interface{}{"echo": "hi"}, result.Output)
	assert.GreaterOrEqual(t, result.DurationMs, int64(0))
}

func TestInvoke_UnknownTool(t *testing.T) {
	d := New(zerolog.Nop())

	result := d.Invoke(context.Background(), "not_a_real_tool", nil)

	assert.False(t, result.Success)
	assert.Equal(t, "Unknown tool: not_a_real_tool", result.Error)
}

func TestInvoke_NilArgs(t *testing.T) {
	d := New(zerolog.Nop())
	require.NoError(t, d.Register(Definition{
		Name:        "noargs",
		Description: "Needs nothing",
		Handler: HandlerFunc(func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			assert.NotNil(t, args)
			return "ok", nil
		}),
	}))

	result := d.Invoke(context.Background(), "noargs", nil)
	assert.True(t, result.Success)
}

func TestInvoke_SchemaRejectsMissingRequired(t *testing.T) {
	d := New(zerolog.Nop())
	require.NoError(t, d.Register(echoTool()))

	result := d.Invoke(context.Background(), "echo", map[string]interface{}{})

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "invalid arguments")
}

func TestInvoke_HandlerErrorIsData(t *testing.T) {
	d := New(zerolog.Nop())
	require.NoError(t, d.Register(Definition{
		Name:        "boom",
		Description: "Always fails",
		Handler: HandlerFunc(func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			return nil, errors.New("disk on fire")
		}),
	}))

	result := d.Invoke(context.Background(), "boom", nil)

	assert.False(t, result.Success)
	assert.Equal(t, "disk on fire", result.Error)
}

func TestInvoke_PanicIsContained(t *testing.T) {
	d := New(zerolog.Nop())
	require.NoError(t, d.Register(Definition{
		Name:        "panicky",
		Description: "Panics",
		Handler: HandlerFunc(func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			panic("unexpected state")
		}),
	}))

	result := d.Invoke(context.Background(), "panicky", nil)

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "tool panicked")
}

func TestInvoke_Timeout(t *testing.T) {
	d := New(zerolog.Nop())
	require.NoError(t, d.Register(Definition{
		Name:        "slow",
		Description: "Sleeps",
		Handler: HandlerFunc(func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			time.Sleep(500 * time.Millisecond)
			return "done", nil
		}),
	}))

	ctx := WithExecContext(context.Background(), ExecContext{Timeout: 20 * time.Millisecond})
	result := d.Invoke(ctx, "slow", nil)

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "timeout")
}

func TestCatalog_SortedByName(t *testing.T) {
	d := New(zerolog.Nop())
	for _, name := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, d.Register(Definition{
			Name:        name,
			Description: "x",
			Handler: HandlerFunc(func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
				return nil, nil
			}),
		}))
	}

	catalog := d.Catalog()
	require.Len(t, catalog, 3)
	assert.Equal(t, "alpha", catalog[0].Name)
	assert.Equal(t, "mid", catalog[1].Name)
	assert.Equal(t, "zeta", catalog[2].Name)
}

func TestUnregister(t *testing.T) {
	d := New(zerolog.Nop())
	require.NoError(t, d.Register(echoTool()))
	d.Unregister("echo")

	assert.Nil(t, d.Get("echo"))
	result := d.Invoke(context.Background(), "echo", map[string]interface{}{"text": "hi"})
	assert.Equal(t, "Unknown tool: echo", result.Error)
}

func TestInputSchema(t *testing.T) {
	def := Definition{
		Name:        "sample",
		Description: "x",
		Parameters: []Parameter{
			{Name: "mode", Type: "string", Description: "pick one", Required: true, Enum: []string{"a", "b"}},
			{Name: "count", Type: "integer", Description: "how many"},
		},
	}

	schema := def.InputSchema()
	assert.Equal(t, "object", schema["type"])

	properties := schema["properties"].(map[string]interface{})
	mode := properties["mode"].(map[string]interface{})
	assert.Equal(t, "string", mode["type"])
	assert.Equal(t, []string{"a", "b"}, mode["enum"])

	assert.Equal(t, []string{"mode"}, schema["required"])
}

func TestStandardCatalog_RegisterKnownImpls(t *testing.T) {
	d := New(zerolog.Nop())

	impls := map[string]Handler{
		"think": HandlerFunc(func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			return args["thought"], nil
		}),
	}
	require.NoError(t, d.RegisterCatalog(impls))

	// Only the implemented entry is registered.
	assert.NotNil(t, d.Get("think"))
	assert.Nil(t, d.Get("bash"))

	result := d.Invoke(context.Background(), "bash", map[string]interface{}{"command": "ls"})
	assert.Equal(t, "Unknown tool: bash", result.Error)
}
