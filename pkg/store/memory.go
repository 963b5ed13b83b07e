package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

// sessionState holds one session and its mutation lock. Each session has
// its own lock so operations on different sessions never block each other.
type sessionState struct {
	mu      sync.Mutex
	session Session
}

// MemoryStore is the in-memory Store implementation. Session lifetime is
// tied to the host process.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*sessionState
	order    []string // insertion order for List
	created  int      // total sessions ever created, for default names
	logger   zerolog.Logger
}

// NewMemoryStore creates an empty in-memory session store
func NewMemoryStore(logger zerolog.Logger) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*sessionState),
		logger:   logger,
	}
}

// Create generates a new session with a unique id. Never fails.
func (s *MemoryStore) Create(name, workspacePath string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.created++
	if name == "" {
		name = fmt.Sprintf("Session %d", s.created)
	}

	now := time.Now()
	session := Session{
		ID:            uuid.NewString(),
		Name:          name,
		WorkspacePath: workspacePath,
		Messages:      []Message{},
		Todos:         []Todo{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	s.sessions[session.ID] = &sessionState{session: session}
	s.order = append(s.order, session.ID)

	s.logger.Info().Str("session_id", session.ID).Str("name", name).Msg("Session created")

	out := cloneSession(&session)
	return &out, nil
}

// Get returns a copy of the session or ErrSessionNotFound
func (s *MemoryStore) Get(id string) (*Session, error) {
	state, err := s.state(id)
	if err != nil {
		return nil, err
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	out := cloneSession(&state.session)
	return &out, nil
}

// List returns all sessions in insertion order
func (s *MemoryStore) List() ([]*Session, error) {
	s.mu.RLock()
	ids := make([]string, len(s.order))
	copy(ids, s.order)
	s.mu.RUnlock()

	sessions := make([]*Session, 0, len(ids))
	for _, id := range ids {
		session, err := s.Get(id)
		if err != nil {
			// Deleted between snapshot and read
			continue
		}
		sessions = append(sessions, session)
	}

	return sessions, nil
}

// Delete removes a session. Idempotent; reports whether it existed.
func (s *MemoryStore) Delete(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[id]; !exists {
		return false, nil
	}

	delete(s.sessions, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}

	s.logger.Info().Str("session_id", id).Msg("Session deleted")
	return true, nil
}

// AppendMessage appends to the session's message log. Prior messages are
// never mutated or removed. A tool message must reference a tool call
// proposed by the nearest preceding assistant message.
func (s *MemoryStore) AppendMessage(id string, msg Message) (*Message, error) {
	state, err := s.state(id)
	if err != nil {
		return nil, err
	}

	if !msg.Role.Valid() {
		return nil, fmt.Errorf("invalid message role: %q", msg.Role)
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	if msg.Role == RoleTool {
		if err := validateToolPairing(state.session.Messages, msg.ToolCallID); err != nil {
			return nil, err
		}
	}

	if msg.ID == "" {
		msg.ID = gonanoid.Must()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	state.session.Messages = append(state.session.Messages, msg)
	state.session.UpdatedAt = time.Now()

	s.logger.Debug().
		Str("session_id", id).
		Str("role", string(msg.Role)).
		Int("messages", len(state.session.Messages)).
		Msg("Message appended")

	out := cloneMessage(&msg)
	return &out, nil
}

// ReplaceTodos atomically replaces the entire todo list
func (s *MemoryStore) ReplaceTodos(id string, todos []Todo) ([]Todo, error) {
	state, err := s.state(id)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	replacement := make([]Todo, len(todos))
	for i, todo := range todos {
		if todo.ID == "" {
			todo.ID = gonanoid.Must()
		}
		if todo.Status == "" {
			todo.Status = TodoPending
		}
		if todo.CreatedAt.IsZero() {
			todo.CreatedAt = now
		}
		todo.UpdatedAt = now
		replacement[i] = todo
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	state.session.Todos = replacement
	state.session.UpdatedAt = now

	s.logger.Debug().Str("session_id", id).Int("todos", len(replacement)).Msg("Todos replaced")

	out := make([]Todo, len(replacement))
	copy(out, replacement)
	return out, nil
}

// History returns the conversation projection for the LLM boundary. When
// limit > 0 only the most recent messages are returned, without ever
// splitting a tool-call/tool-result pair across the truncation boundary.
func (s *MemoryStore) History(id string, limit int) ([]HistoryEntry, error) {
	state, err := s.state(id)
	if err != nil {
		return nil, err
	}

	state.mu.Lock()
	messages := make([]Message, len(state.session.Messages))
	copy(messages, state.session.Messages)
	state.mu.Unlock()

	return projectHistory(messages, limit), nil
}

func (s *MemoryStore) state(id string) (*sessionState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, exists := s.sessions[id]
	if !exists {
		return nil, ErrSessionNotFound
	}
	return state, nil
}

// validateToolPairing checks that toolCallID matches a call proposed by the
// nearest preceding assistant message.
func validateToolPairing(messages []Message, toolCallID string) error {
	if toolCallID == "" {
		return fmt.Errorf("tool message requires a tool call id")
	}

	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role != RoleAssistant {
			continue
		}
		for _, call := range messages[i].ToolCalls {
			if call.ID == toolCallID {
				return nil
			}
		}
		return fmt.Errorf("tool call id %q not proposed by the preceding assistant message", toolCallID)
	}

	return fmt.Errorf("tool message %q has no preceding assistant message", toolCallID)
}

func cloneSession(in *Session) Session {
	out := *in
	out.Messages = make([]Message, len(in.Messages))
	for i := range in.Messages {
		out.Messages[i] = cloneMessage(&in.Messages[i])
	}
	out.Todos = make([]Todo, len(in.Todos))
	copy(out.Todos, in.Todos)
	return out
}

func cloneMessage(in *Message) Message {
	out := *in
	if in.ToolCalls != nil {
		out.ToolCalls = make([]ToolCall, len(in.ToolCalls))
		copy(out.ToolCalls, in.ToolCalls)
	}
	if in.Metadata != nil {
		out.Metadata = make(map[string]interface{}, len(in.Metadata))
		for k, v := range in.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}
