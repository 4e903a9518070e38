// Package game holds per-session game state and its storage.
package game

import "time"

// Message roles. Tool messages are internal carriers of action results
// and are never surfaced to a caller directly.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
	RoleTool      = "tool"
)

// PageLoadSignal is the reserved control string the frontend sends when
// the page loads with no user text. The dispatcher branches on it
// instead of treating it as a literal chat message.
const PageLoadSignal = "page_load"

// Message is one turn in a session's log.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content,omitempty"`
	Action    string    `json:"action,omitempty"` // tool messages: which action produced Result
	Result    *Result   `json:"result,omitempty"` // tool messages: the typed action result
	Timestamp time.Time `json:"timestamp"`
}

// Delta is a partial update to a Session. Unset fields leave the session
// unchanged; ClearSecret takes precedence over SetSecret.
type Delta struct {
	SetSecret   *string `json:"set_secret,omitempty"`
	ClearSecret bool    `json:"clear_secret,omitempty"`
}

// Result is the typed outcome of executing one action: a state delta
// plus the reply messages to fold into the log. It is carried as
// structured data end to end, never re-parsed out of a string.
type Result struct {
	Delta   Delta     `json:"delta"`
	Replies []Message `json:"replies"`
}

// Session is one user's ongoing game conversation.
type Session struct {
	ID           string    `json:"id"`
	SecretAnswer *string   `json:"secret_answer,omitempty"`
	Log          []Message `json:"log"`
	LastActivity time.Time `json:"last_activity"`
}

// RoundActive reports whether a secret answer is currently set.
func (s *Session) RoundActive() bool {
	return s.SecretAnswer != nil && *s.SecretAnswer != ""
}

// Secret returns the current secret answer, or "" when no round is active.
func (s *Session) Secret() string {
	if s.SecretAnswer == nil {
		return ""
	}
	return *s.SecretAnswer
}

// ApplyDelta merges a delta into the session. Application is total:
// unset fields leave the session as-is.
func (s *Session) ApplyDelta(d Delta) {
	switch {
	case d.ClearSecret:
		s.SecretAnswer = nil
	case d.SetSecret != nil:
		secret := *d.SetSecret
		s.SecretAnswer = &secret
	}
}

// Copy returns a deep copy of the session. Stores hand out copies so a
// caller can never mutate shared state outside a Save.
func (s *Session) Copy() *Session {
	log := make([]Message, len(s.Log))
	copy(log, s.Log)

	cp := &Session{
		ID:           s.ID,
		Log:          log,
		LastActivity: s.LastActivity,
	}
	if s.SecretAnswer != nil {
		secret := *s.SecretAnswer
		cp.SecretAnswer = &secret
	}
	return cp
}

// AssistantText recovers the assistant-facing text of a message:
// the content of an assistant message, or the first reply carried by a
// tool message. Returns ok=false when there is nothing to surface.
func AssistantText(m Message) (string, bool) {
	switch m.Role {
	case RoleAssistant:
		if m.Content != "" {
			return m.Content, true
		}
	case RoleTool:
		if m.Result != nil && len(m.Result.Replies) > 0 {
			if text := m.Result.Replies[0].Content; text != "" {
				return text, true
			}
		}
	}
	return "", false
}
