// Package dispatch runs one select-then-execute agent turn.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"mysteryagent/internal/actions"
	"mysteryagent/internal/game"
	"mysteryagent/internal/llm"
	"mysteryagent/internal/prompts"
)

// ErrInvariantViolation marks a model response that broke the one-turn
// contract: zero or multiple actions, an action outside the registry,
// or a missing required parameter. The session is left unchanged.
var ErrInvariantViolation = errors.New("invariant violation")

// Dispatcher asks the model to select exactly one action for the
// user's message, executes it, and merges the result into the session.
type Dispatcher struct {
	model    llm.Client
	registry *actions.Registry
	logger   *slog.Logger
}

// New creates a dispatcher.
func New(model llm.Client, registry *actions.Registry, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{model: model, registry: registry, logger: logger}
}

// Step runs one turn. The session's log is expected to already end
// with the incoming user message. On success the session is mutated in
// place: the action's delta is applied, its result appended as a tool
// message, and LastActivity refreshed. On error the session is
// untouched, so the caller can simply not persist it.
func (d *Dispatcher) Step(ctx context.Context, sess *game.Session, userMessage string) (string, error) {
	msgs, force := d.buildSelection(sess, userMessage)

	selection, err := d.model.SelectTool(ctx, msgs, d.registry.Specs(), force)
	if err != nil {
		if errors.Is(err, llm.ErrNoToolSelected) || errors.Is(err, llm.ErrMultipleSelected) {
			return "", fmt.Errorf("%w: %v", ErrInvariantViolation, err)
		}
		return "", fmt.Errorf("select action: %w", err)
	}
	if selection == nil {
		return "", fmt.Errorf("%w: model returned no selection", ErrInvariantViolation)
	}

	action := d.registry.Get(selection.Name)
	if action == nil {
		return "", fmt.Errorf("%w: model selected unknown action %q", ErrInvariantViolation, selection.Name)
	}
	for _, param := range action.Required {
		if _, ok := selection.Arguments[param]; !ok {
			return "", fmt.Errorf("%w: action %q missing required parameter %q",
				ErrInvariantViolation, selection.Name, param)
		}
	}

	d.logger.Debug("action selected",
		"session_id", sess.ID,
		"action", selection.Name,
		"forced", force != "",
	)

	result, err := d.registry.Execute(ctx, selection.Name, sess, selection.Arguments)
	if err != nil {
		return "", fmt.Errorf("execute %s: %w", selection.Name, err)
	}

	now := time.Now()
	sess.ApplyDelta(result.Delta)
	sess.Log = append(sess.Log, game.Message{
		Role:      game.RoleTool,
		Action:    selection.Name,
		Result:    result,
		Timestamp: now,
	})
	sess.LastActivity = now

	return selection.Name, nil
}

// buildSelection assembles the selection-step messages and decides
// whether to pin the model to a single action. The reserved page-load
// signal is a session resume, not chat: with no round active it forces
// start_round, with a round active it forces general_chat plus a
// reminder instruction.
func (d *Dispatcher) buildSelection(sess *game.Session, userMessage string) ([]llm.Message, string) {
	history := game.FormatHistory(sess.Log)

	msgs := []llm.Message{
		{Role: game.RoleSystem, Content: prompts.Selection},
		{Role: game.RoleSystem, Content: prompts.GameContext(sess.Secret(), history)},
	}

	force := ""
	if userMessage == game.PageLoadSignal {
		if sess.RoundActive() {
			force = actions.GeneralChat
			msgs = append(msgs, llm.Message{Role: game.RoleSystem, Content: prompts.SelectionResume})
		} else {
			force = actions.StartRound
		}
	}

	// The live log, surfaced text only. Ends with the current user turn.
	for _, m := range sess.Log {
		switch m.Role {
		case game.RoleUser:
			if m.Content != "" {
				msgs = append(msgs, llm.Message{Role: game.RoleUser, Content: m.Content})
			}
		case game.RoleAssistant, game.RoleTool:
			if text, ok := game.AssistantText(m); ok {
				msgs = append(msgs, llm.Message{Role: game.RoleAssistant, Content: text})
			}
		}
	}

	return msgs, force
}
