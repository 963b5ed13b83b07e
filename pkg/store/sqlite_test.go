package store

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "kevin.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	s := newTestSQLiteStore(t)

	session, err := s.Create("", "/workspace")
	require.NoError(t, err)
	assert.Equal(t, "Session 1", session.Name)

	_, err = s.AppendMessage(session.ID, Message{Role: RoleUser, Content: "hi"})
	require.NoError(t, err)
	_, err = s.AppendMessage(session.ID, Message{
		Role:      RoleAssistant,
		Content:   "on it",
		ToolCalls: []ToolCall{{ID: "c1", Name: "bash", Arguments: `{"command":"ls"}`}},
		Metadata:  map[string]interface{}{"model": "gpt-4o"},
	})
	require.NoError(t, err)
	_, err = s.AppendMessage(session.ID, Message{Role: RoleTool, Content: "{}", ToolCallID: "c1"})
	require.NoError(t, err)

	got, err := s.Get(session.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 3)
	assert.Equal(t, "/workspace", got.WorkspacePath)
	require.Len(t, got.Messages[1].ToolCalls, 1)
	assert.Equal(t, "bash", got.Messages[1].ToolCalls[0].Name)
	assert.Equal(t, "gpt-4o", got.Messages[1].Metadata["model"])
	assert.Equal(t, "c1", got.Messages[2].ToolCallID)
}

func TestSQLiteStore_ToolPairingEnforced(t *testing.T) {
	s := newTestSQLiteStore(t)
	session, _ := s.Create("p", "")

	_, err := s.AppendMessage(session.ID, Message{Role: RoleTool, Content: "{}", ToolCallID: "ghost"})
	assert.Error(t, err)
}

func TestSQLiteStore_DeleteCascades(t *testing.T) {
	s := newTestSQLiteStore(t)
	session, _ := s.Create("d", "")
	_, _ = s.AppendMessage(session.ID, Message{Role: RoleUser, Content: "x"})
	_, _ = s.ReplaceTodos(session.ID, []Todo{{Content: "t"}})

	existed, err := s.Delete(session.ID)
	require.NoError(t, err)
	assert.True(t, existed)

	existed, err = s.Delete(session.ID)
	require.NoError(t, err)
	assert.False(t, existed)

	_, err = s.Get(session.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSQLiteStore_TodosKeepOrder(t *testing.T) {
	s := newTestSQLiteStore(t)
	session, _ := s.Create("t", "")

	saved, err := s.ReplaceTodos(session.ID, []Todo{
		{Content: "first", Status: TodoCompleted},
		{Content: "second"},
		{Content: "third", Status: TodoInProgress},
	})
	require.NoError(t, err)
	require.Len(t, saved, 3)

	got, _ := s.Get(session.ID)
	require.Len(t, got.Todos, 3)
	assert.Equal(t, "first", got.Todos[0].Content)
	assert.Equal(t, "second", got.Todos[1].Content)
	assert.Equal(t, TodoPending, got.Todos[1].Status)
	assert.Equal(t, "third", got.Todos[2].Content)
}

func TestSQLiteStore_HistoryTruncation(t *testing.T) {
	s := newTestSQLiteStore(t)
	session, _ := s.Create("h", "")

	_, _ = s.AppendMessage(session.ID, Message{Role: RoleUser, Content: "u1"})
	_, _ = s.AppendMessage(session.ID, Message{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "c1", Name: "grep"}}})
	_, _ = s.AppendMessage(session.ID, Message{Role: RoleTool, Content: "r1", ToolCallID: "c1"})
	_, _ = s.AppendMessage(session.ID, Message{Role: RoleAssistant, Content: "done"})

	history, err := s.History(session.ID, 2)
	require.NoError(t, err)
	// The window lands on the tool result; it is dropped with its pair.
	require.Len(t, history, 1)
	assert.Equal(t, "done", history[0].Content)
}
