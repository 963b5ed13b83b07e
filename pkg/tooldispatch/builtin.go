package tooldispatch

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/kevinai/kevin/pkg/store"
)

// Notifier delivers a message_user payload to whoever is watching the
// session (the websocket gateway in practice). A nil notifier is fine;
// the message is still returned as tool output.
type Notifier func(sessionID, message string)

// SessionTools builds the handlers for the built-in session tools:
// todo_write, message_user and think. They are the only tools the daemon
// implements itself; everything else in the catalog is bound by embedders.
func SessionTools(st store.Store, notify Notifier, logger zerolog.Logger) map[string]Handler {
	return map[string]Handler{
		"todo_write":   todoWriteHandler(st, logger),
		"message_user": messageUserHandler(notify, logger),
		"think":        thinkHandler(),
	}
}

func todoWriteHandler(st store.Store, logger zerolog.Logger) Handler {
	return HandlerFunc(func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		ec, ok := ExecContextFrom(ctx)
		if !ok || ec.SessionID == "" {
			return nil, fmt.Errorf("todo_write requires a session")
		}

		rawList, ok := args["todos"].([]interface{})
		if !ok {
			return nil, fmt.Errorf("todos must be an array")
		}

		todos := make([]store.Todo, 0, len(rawList))
		for i, raw := range rawList {
			entry, ok := raw.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("todos[%d] must be an object", i)
			}
			content, _ := entry["content"].(string)
			status, _ := entry["status"].(string)
			if content == "" {
				return nil, fmt.Errorf("todos[%d] is missing content", i)
			}
			todoStatus := store.TodoStatus(status)
			if !todoStatus.Valid() {
				return nil, fmt.Errorf("todos[%d] has invalid status %q", i, status)
			}
			todos = append(todos, store.Todo{Content: content, Status: todoStatus})
		}

		saved, err := st.ReplaceTodos(ec.SessionID, todos)
		if err != nil {
			return nil, err
		}

		logger.Debug().Str("session_id", ec.SessionID).Int("count", len(saved)).Msg("Todos updated")
		return map[string]interface{}{
			"updated": len(saved),
			"todos":   saved,
		}, nil
	})
}

func messageUserHandler(notify Notifier, logger zerolog.Logger) Handler {
	return HandlerFunc(func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		message, _ := args["message"].(string)
		if message == "" {
			return nil, fmt.Errorf("message cannot be empty")
		}

		if notify != nil {
			if ec, ok := ExecContextFrom(ctx); ok && ec.SessionID != "" {
				notify(ec.SessionID, message)
			}
		}

		logger.Debug().Int("length", len(message)).Msg("Message relayed to user")
		return map[string]interface{}{"delivered": true}, nil
	})
}

// thinkHandler records the thought as output and nothing else. The value
// is in the transcript, not in any side effect.
func thinkHandler() Handler {
	return HandlerFunc(func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		thought, _ := args["thought"].(string)
		if thought == "" {
			return nil, fmt.Errorf("thought cannot be empty")
		}
		return map[string]interface{}{"thought": thought}, nil
	})
}
