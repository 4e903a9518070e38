// Package session owns the per-session step lifecycle: load, dispatch,
// persist, and reply extraction.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"mysteryagent/internal/dispatch"
	"mysteryagent/internal/game"
	"mysteryagent/internal/prompts"
)

// StepResult is what one completed turn returns to the caller.
type StepResult struct {
	Reply        string
	Action       string
	SecretAnswer *string
}

// Controller serializes steps per session and commits state only when
// a dispatcher step fully succeeds.
type Controller struct {
	store      game.Store
	dispatcher *dispatch.Dispatcher
	logger     *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a controller over the given store and dispatcher.
func New(store game.Store, dispatcher *dispatch.Dispatcher, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		store:      store,
		dispatcher: dispatcher,
		logger:     logger,
		locks:      make(map[string]*sync.Mutex),
	}
}

// sessionLock returns the mutex serializing steps for one session id.
// Two concurrent steps on the same session are a read-modify-write
// race; different sessions proceed in parallel.
func (c *Controller) sessionLock(sessionID string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()

	lock, ok := c.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		c.locks[sessionID] = lock
	}
	return lock
}

// Step runs one agent turn for the session. The user message is
// persisted immediately; the action's effects commit atomically via
// Save only when the dispatcher succeeds. Model and invariant failures
// surface as a fixed apology reply, never as a corrupted session.
func (c *Controller) Step(ctx context.Context, sessionID, userMessage string) (*StepResult, error) {
	lock := c.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	sess, err := c.store.Load(sessionID)
	if err != nil {
		return nil, err
	}

	// The page-load signal is a control string, not chat; it is never
	// recorded as a user turn.
	if userMessage != "" && userMessage != game.PageLoadSignal {
		userMsg := game.Message{
			Role:      game.RoleUser,
			Content:   userMessage,
			Timestamp: time.Now(),
		}
		if err := c.store.Append(sessionID, userMsg); err != nil {
			return nil, err
		}
		sess.Log = append(sess.Log, userMsg)
	}

	action, err := c.dispatcher.Step(ctx, sess, userMessage)
	if err != nil {
		c.logger.Error("dispatch failed",
			"session_id", sessionID,
			"error", err,
		)
		return &StepResult{
			Reply:        prompts.Fallback,
			SecretAnswer: sess.SecretAnswer,
		}, nil
	}

	if err := c.store.Save(sess); err != nil {
		return nil, err
	}

	return &StepResult{
		Reply:        extractReply(sess.Log),
		Action:       action,
		SecretAnswer: sess.SecretAnswer,
	}, nil
}

// Reset clears the session's round and log. Returns false only when
// the store operation fails.
func (c *Controller) Reset(sessionID string) bool {
	lock := c.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	if err := c.store.Reset(sessionID); err != nil {
		c.logger.Error("reset failed", "session_id", sessionID, "error", err)
		return false
	}
	return true
}

// extractReply walks the log backwards for the newest assistant-facing
// text, falling back to a fixed apology when nothing surfaces.
func extractReply(log []game.Message) string {
	for i := len(log) - 1; i >= 0; i-- {
		if text, ok := game.AssistantText(log[i]); ok {
			return text
		}
	}
	return prompts.Fallback
}
