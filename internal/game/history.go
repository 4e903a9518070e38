package game

import (
	"fmt"
	"strings"
)

// HistoryWindow is how many rendered turns FormatHistory keeps. The
// model only needs recent context; older turns stay in the log for
// auditing but are not re-sent.
const HistoryWindow = 20

// FormatHistory renders a session log as a compact transcript for
// prompt embedding. User messages render as "User:" lines; assistant
// and tool messages render their surfaced text as "Assistant:" lines.
// System messages and empty turns are skipped. Only the most recent
// HistoryWindow rendered lines are kept.
func FormatHistory(log []Message) string {
	lines := make([]string, 0, len(log))
	for _, m := range log {
		switch m.Role {
		case RoleUser:
			if m.Content != "" {
				lines = append(lines, fmt.Sprintf("User: %s", m.Content))
			}
		case RoleAssistant, RoleTool:
			if text, ok := AssistantText(m); ok {
				lines = append(lines, fmt.Sprintf("Assistant: %s", text))
			}
		}
	}

	if len(lines) > HistoryWindow {
		lines = lines[len(lines)-HistoryWindow:]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
