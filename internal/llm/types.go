// Package llm provides hosted language model client implementations.
package llm

import (
	"errors"
	"log/slog"
)

// LevelTrace is below Debug, used for wire-level payload logging.
const LevelTrace = slog.Level(-8)

// Message represents a chat message for the model.
type Message struct {
	Role    string `json:"role"` // system, user, assistant
	Content string `json:"content"`
}

// Completion is the unified free-text response from any provider.
type Completion struct {
	Content      string
	Model        string
	InputTokens  int
	OutputTokens int
}

// ToolSpec describes one selectable tool for a forced-selection call.
// Parameters is a JSON-schema object in the OpenAI function format.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ToolSelection is the outcome of a forced-selection call: exactly one
// tool name plus its string arguments.
type ToolSelection struct {
	Name      string
	Arguments map[string]string
}

// Errors surfaced when a provider violates the exactly-one-tool contract.
// Callers treat these as invariant violations, not retryable failures.
var (
	ErrNoToolSelected    = errors.New("llm: model selected no tool")
	ErrMultipleSelected  = errors.New("llm: model selected more than one tool")
	ErrUnknownToolChoice = errors.New("llm: model selected a tool outside the offered set")
)
