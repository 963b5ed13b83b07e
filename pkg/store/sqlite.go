package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// SQLiteStore persists sessions in a SQLite database behind the same Store
// contract as MemoryStore, so the orchestrator is unaware of the backend.
type SQLiteStore struct {
	db     *sql.DB
	locks  map[string]*sync.Mutex
	mu     sync.Mutex
	logger zerolog.Logger
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	id             TEXT PRIMARY KEY,
	name           TEXT NOT NULL,
	workspace_path TEXT NOT NULL DEFAULT '',
	created_at     TIMESTAMP NOT NULL,
	updated_at     TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	id           TEXT PRIMARY KEY,
	session_id   TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	seq          INTEGER NOT NULL,
	role         TEXT NOT NULL,
	content      TEXT NOT NULL,
	tool_calls   TEXT,
	tool_call_id TEXT NOT NULL DEFAULT '',
	metadata     TEXT,
	created_at   TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_session_seq ON messages(session_id, seq);

CREATE TABLE IF NOT EXISTS todos (
	id         TEXT NOT NULL,
	session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	position   INTEGER NOT NULL,
	content    TEXT NOT NULL,
	status     TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	PRIMARY KEY (session_id, id)
);
`

// NewSQLiteStore opens (creating if needed) a SQLite-backed session store
func NewSQLiteStore(path string, logger zerolog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	logger.Info().Str("path", path).Msg("SQLite session store opened")

	return &SQLiteStore{
		db:     db,
		locks:  make(map[string]*sync.Mutex),
		logger: logger,
	}, nil
}

// Close closes the underlying database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// sessionLock returns the per-session mutex, creating it on first use
func (s *SQLiteStore) sessionLock(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, exists := s.locks[id]
	if !exists {
		lock = &sync.Mutex{}
		s.locks[id] = lock
	}
	return lock
}

// Create generates a new session with a unique id
func (s *SQLiteStore) Create(name, workspacePath string) (*Session, error) {
	if name == "" {
		var count int
		if err := s.db.QueryRow(`SELECT COUNT(*) FROM sessions`).Scan(&count); err == nil {
			name = fmt.Sprintf("Session %d", count+1)
		} else {
			name = "New Session"
		}
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

	_, err := s.db.Exec(
		`INSERT INTO sessions (id, name, workspace_path, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		session.ID, session.Name, session.WorkspacePath, session.CreatedAt, session.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert session: %w", err)
	}

	s.logger.Info().Str("session_id", session.ID).Str("name", name).Msg("Session created")
	return &session, nil
}

// Get returns the session with its messages and todos
func (s *SQLiteStore) Get(id string) (*Session, error) {
	session := Session{ID: id}
	err := s.db.QueryRow(
		`SELECT name, workspace_path, created_at, updated_at FROM sessions WHERE id = ?`, id,
	).Scan(&session.Name, &session.WorkspacePath, &session.CreatedAt, &session.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	session.Messages, err = s.loadMessages(id)
	if err != nil {
		return nil, err
	}

	session.Todos, err = s.loadTodos(id)
	if err != nil {
		return nil, err
	}

	return &session, nil
}

// List returns all sessions in creation order
func (s *SQLiteStore) List() ([]*Session, error) {
	rows, err := s.db.Query(`SELECT id FROM sessions ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sessions := make([]*Session, 0, len(ids))
	for _, id := range ids {
		session, err := s.Get(id)
		if err != nil {
			continue
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}

// Delete removes a session and everything attached to it
func (s *SQLiteStore) Delete(id string) (bool, error) {
	res, err := s.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete session: %w", err)
	}
	affected, _ := res.RowsAffected()

	s.mu.Lock()
	delete(s.locks, id)
	s.mu.Unlock()

	return affected > 0, nil
}

// AppendMessage appends to the session's message log
func (s *SQLiteStore) AppendMessage(id string, msg Message) (*Message, error) {
	if !msg.Role.Valid() {
		return nil, fmt.Errorf("invalid message role: %q", msg.Role)
	}

	lock := s.sessionLock(id)
	lock.Lock()
	defer lock.Unlock()

	if _, err := s.Get(id); err != nil {
		return nil, err
	}

	if msg.Role == RoleTool {
		messages, err := s.loadMessages(id)
		if err != nil {
			return nil, err
		}
		if err := validateToolPairing(messages, msg.ToolCallID); err != nil {
			return nil, err
		}
	}

	if msg.ID == "" {
		msg.ID = gonanoid.Must()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	var toolCalls, metadata []byte
	var err error
	if len(msg.ToolCalls) > 0 {
		if toolCalls, err = json.Marshal(msg.ToolCalls); err != nil {
			return nil, fmt.Errorf("failed to marshal tool calls: %w", err)
		}
	}
	if msg.Metadata != nil {
		if metadata, err = json.Marshal(msg.Metadata); err != nil {
			return nil, fmt.Errorf("failed to marshal metadata: %w", err)
		}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var seq int
	if err := tx.QueryRow(
		`SELECT COALESCE(MAX(seq), -1) + 1 FROM messages WHERE session_id = ?`, id,
	).Scan(&seq); err != nil {
		return nil, fmt.Errorf("failed to compute sequence: %w", err)
	}

	if _, err := tx.Exec(
		`INSERT INTO messages (id, session_id, seq, role, content, tool_calls, tool_call_id, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, id, seq, string(msg.Role), msg.Content, nullable(toolCalls), msg.ToolCallID, nullable(metadata), msg.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("failed to insert message: %w", err)
	}

	if _, err := tx.Exec(`UPDATE sessions SET updated_at = ? WHERE id = ?`, time.Now(), id); err != nil {
		return nil, fmt.Errorf("failed to touch session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit message: %w", err)
	}

	return &msg, nil
}

// ReplaceTodos atomically replaces the entire todo list
func (s *SQLiteStore) ReplaceTodos(id string, todos []Todo) ([]Todo, error) {
	lock := s.sessionLock(id)
	lock.Lock()
	defer lock.Unlock()

	if _, err := s.Get(id); err != nil {
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

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM todos WHERE session_id = ?`, id); err != nil {
		return nil, fmt.Errorf("failed to clear todos: %w", err)
	}

	for i, todo := range replacement {
		if _, err := tx.Exec(
			`INSERT INTO todos (id, session_id, position, content, status, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			todo.ID, id, i, todo.Content, string(todo.Status), todo.CreatedAt, todo.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to insert todo: %w", err)
		}
	}

	if _, err := tx.Exec(`UPDATE sessions SET updated_at = ? WHERE id = ?`, now, id); err != nil {
		return nil, fmt.Errorf("failed to touch session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit todos: %w", err)
	}

	return replacement, nil
}

// History returns the conversation projection for the LLM boundary
func (s *SQLiteStore) History(id string, limit int) ([]HistoryEntry, error) {
	if _, err := s.Get(id); err != nil {
		return nil, err
	}

	messages, err := s.loadMessages(id)
	if err != nil {
		return nil, err
	}

	return projectHistory(messages, limit), nil
}

func (s *SQLiteStore) loadMessages(id string) ([]Message, error) {
	rows, err := s.db.Query(
		`SELECT id, role, content, tool_calls, tool_call_id, metadata, created_at
		 FROM messages WHERE session_id = ? ORDER BY seq`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var msg Message
		var role string
		var toolCalls, metadata sql.NullString
		if err := rows.Scan(&msg.ID, &role, &msg.Content, &toolCalls, &msg.ToolCallID, &metadata, &msg.CreatedAt); err != nil {
			return nil, err
		}
		msg.Role = Role(role)
		if toolCalls.Valid && toolCalls.String != "" {
			if err := json.Unmarshal([]byte(toolCalls.String), &msg.ToolCalls); err != nil {
				s.logger.Warn().Str("message_id", msg.ID).Err(err).Msg("Failed to decode tool calls, skipping field")
			}
		}
		if metadata.Valid && metadata.String != "" {
			if err := json.Unmarshal([]byte(metadata.String), &msg.Metadata); err != nil {
				s.logger.Warn().Str("message_id", msg.ID).Err(err).Msg("Failed to decode metadata, skipping field")
			}
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func (s *SQLiteStore) loadTodos(id string) ([]Todo, error) {
	rows, err := s.db.Query(
		`SELECT id, content, status, created_at, updated_at
		 FROM todos WHERE session_id = ? ORDER BY position`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load todos: %w", err)
	}
	defer rows.Close()

	todos := []Todo{}
	for rows.Next() {
		var todo Todo
		var status string
		if err := rows.Scan(&todo.ID, &todo.Content, &status, &todo.CreatedAt, &todo.UpdatedAt); err != nil {
			return nil, err
		}
		todo.Status = TodoStatus(status)
		todos = append(todos, todo)
	}
	return todos, rows.Err()
}

func nullable(data []byte) interface{} {
	if len(data) == 0 {
		return nil
	}
	return string(data)
}
