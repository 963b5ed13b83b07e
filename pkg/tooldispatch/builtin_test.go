package tooldispatch

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kevinai/kevin/pkg/store"
)

func sessionToolContext(sessionID string) context.Context {
	return WithExecContext(context.Background(), ExecContext{SessionID: sessionID})
}

func TestTodoWrite(t *testing.T) {
	st := store.NewMemoryStore(zerolog.Nop())
	session, _ := st.Create("todos", "")

	d := New(zerolog.Nop())
	require.NoError(t, d.RegisterCatalog(SessionTools(st, nil, zerolog.Nop())))

	result := d.Invoke(sessionToolContext(session.ID), "todo_write", map[string]interface{}{
		"todos": []interface{}{
			map[string]interface{}{"content": "write tests", "status": "in_progress"},
			map[string]interface{}{"content": "ship it", "status": "pending"},
		},
	})

	require.True(t, result.Success, result.Error)
	output := result.Output.(map[string]interface{})
	assert.Equal(t, 2, output["updated"])

	got, err := st.Get(session.ID)
	require.NoError(t, err)
	require.Len(t, got.Todos, 2)
	assert.Equal(t, "write tests", got.Todos[0].Content)
	assert.Equal(t, store.TodoInProgress, got.Todos[0].Status)
}

func TestTodoWrite_InvalidStatus(t *testing.T) {
	st := store.NewMemoryStore(zerolog.Nop())
	session, _ := st.Create("todos", "")

	d := New(zerolog.Nop())
	require.NoError(t, d.RegisterCatalog(SessionTools(st, nil, zerolog.Nop())))

	result := d.Invoke(sessionToolContext(session.ID), "todo_write", map[string]interface{}{
		"todos": []interface{}{
			map[string]interface{}{"content": "x", "status": "someday"},
		},
	})

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "invalid")
}

func TestTodoWrite_RequiresSession(t *testing.T) {
	st := store.NewMemoryStore(zerolog.Nop())
	d := New(zerolog.Nop())
	require.NoError(t, d.RegisterCatalog(SessionTools(st, nil, zerolog.Nop())))

	result := d.Invoke(context.Background(), "todo_write", map[string]interface{}{
		"todos": []interface{}{map[string]interface{}{"content": "x", "status": "pending"}},
	})

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "session")
}

func TestMessageUser(t *testing.T) {
	st := store.NewMemoryStore(zerolog.Nop())
	session, _ := st.Create("notify", "")

	var gotSession, gotMessage string
	notify := func(sessionID, message string) {
		gotSession = sessionID
		gotMessage = message
	}

	d := New(zerolog.Nop())
	require.NoError(t, d.RegisterCatalog(SessionTools(st, notify, zerolog.Nop())))

	result := d.Invoke(sessionToolContext(session.ID), "message_user", map[string]interface{}{
		"message": "build finished",
	})

	require.True(t, result.Success, result.Error)
	assert.Equal(t, session.ID, gotSession)
	assert.Equal(t, "build finished", gotMessage)
}

func TestMessageUser_EmptyMessage(t *testing.T) {
	st := store.NewMemoryStore(zerolog.Nop())
	d := New(zerolog.Nop())
	require.NoError(t, d.RegisterCatalog(SessionTools(st, nil, zerolog.Nop())))

	result := d.Invoke(context.Background(), "message_user", map[string]interface{}{"message": ""})
	assert.False(t, result.Success)
}

func TestThink(t *testing.T) {
	st := store.NewMemoryStore(zerolog.Nop())
	d := New(zerolog.Nop())
	require.NoError(t, d.RegisterCatalog(SessionTools(st, nil, zerolog.Nop())))

	result := d.Invoke(context.Background(), "think", map[string]interface{}{
		"thought": "the cache is stale",
	})

	require.True(t, result.Success, result.Error)
	output := result.Output.(map[string]interface{})
	assert.Equal(t, "the cache is stale", output["thought"])
}
