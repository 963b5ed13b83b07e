package store

import (
	"errors"
	"time"
)

// ErrSessionNotFound is returned by every operation taking a session id
// when no such session exists. Callers translate it to a 404.
var ErrSessionNotFound = errors.New("session not found")

// Role identifies the author of a conversation message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// Valid reports whether the role is one of the four known values
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem, RoleTool:
		return true
	}
	return false
}

// TodoStatus is the lifecycle state of a todo item
type TodoStatus string

const (
	TodoPending    TodoStatus = "pending"
	TodoInProgress TodoStatus = "in_progress"
	TodoCompleted  TodoStatus = "completed"
)

// Valid reports whether the status is one of the three known values
func (s TodoStatus) Valid() bool {
	switch s {
	case TodoPending, TodoInProgress, TodoCompleted:
		return true
	}
	return false
}

// Todo is a single task item on a session's todo list
type Todo struct {
	ID        string     `json:"id"`
	Content   string     `json:"content"`
	Status    TodoStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// ToolCall is an LLM-proposed invocation of a named tool. Arguments are
// carried as serialized text exactly as the provider returned them; the
// orchestrator parses them at execution time.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Message is a single conversation turn. Messages are immutable once
// appended; the log is append-only and never reordered.
type Message struct {
	ID         string                 `json:"id"`
	Role       Role                   `json:"role"`
	Content    string                 `json:"content"`
	ToolCalls  []ToolCall             `json:"tool_calls,omitempty"`
	ToolCallID string                 `json:"tool_call_id,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
}

// Session is one ongoing conversation plus its todo list and metadata
type Session struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	WorkspacePath string    `json:"workspace_path,omitempty"`
	Messages      []Message `json:"messages"`
	Todos         []Todo    `json:"todos"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// HistoryEntry is the read-only projection of a message handed to the
// LLM boundary.
type HistoryEntry struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// Store is the session/conversation store contract. Implementations must
// support concurrent operations on different session ids without blocking
// each other; same-session mutations are serialized internally.
type Store interface {
	Create(name, workspacePath string) (*Session, error)
	Get(id string) (*Session, error)
	List() ([]*Session, error)
	Delete(id string) (bool, error)
	AppendMessage(id string, msg Message) (*Message, error)
	ReplaceTodos(id string, todos []Todo) ([]Todo, error)
	History(id string, limit int) ([]HistoryEntry, error)
}
