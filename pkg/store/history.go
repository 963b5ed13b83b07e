package store

// projectHistory builds the LLM-facing view of a message log. A positive
// limit keeps only the most recent messages. Truncation never splits a
// tool-call/tool-result pair: tool messages whose proposing assistant
// message fell outside the window are omitted entirely.
func projectHistory(messages []Message, limit int) []HistoryEntry {
	if limit > 0 && len(messages) > limit {
		messages = messages[len(messages)-limit:]

		// Drop leading tool results whose assistant message was cut off.
		for len(messages) > 0 && messages[0].Role == RoleTool {
			messages = messages[1:]
		}
	}

	history := make([]HistoryEntry, 0, len(messages))
	for _, msg := range messages {
		entry := HistoryEntry{
			Role:       msg.Role,
			Content:    msg.Content,
			ToolCallID: msg.ToolCallID,
		}
		if len(msg.ToolCalls) > 0 {
			entry.ToolCalls = make([]ToolCall, len(msg.ToolCalls))
			copy(entry.ToolCalls, msg.ToolCalls)
		}
		history = append(history, entry)
	}

	return history
}
