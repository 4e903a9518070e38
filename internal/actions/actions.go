// Package actions defines the game actions the agent can dispatch to.
package actions

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"mysteryagent/internal/game"
	"mysteryagent/internal/llm"
	"mysteryagent/internal/prompts"
)

// Canonical action names. The dispatcher validates model output against
// this closed set before lookup.
const (
	StartRound     = "start_round"
	ResetRound     = "reset_round"
	CheckGuess     = "check_guess"
	AnswerQuestion = "answer_question"
	GiveHint       = "give_hint"
	GeneralChat    = "general_chat"
)

// Handler executes one action against the session and returns the
// state delta plus reply messages to fold into the log.
type Handler func(ctx context.Context, sess *game.Session, args map[string]string) (*game.Result, error)

// Action is one dispatchable game behavior.
type Action struct {
	Name        string
	Description string
	Parameters  map[string]any
	Required    []string
	Handler     Handler
}

// Registry holds the fixed action set.
type Registry struct {
	actions map[string]*Action
	order   []string
	model   llm.Client
	logger  *slog.Logger

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewRegistry builds the registry with all six game actions bound to
// the given model client.
func NewRegistry(model llm.Client, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		actions: make(map[string]*Action),
		model:   model,
		logger:  logger,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	r.registerBuiltins()
	return r
}

func (r *Registry) registerBuiltins() {
	r.register(&Action{
		Name:        StartRound,
		Description: "Start a new game round by generating a secret answer. Use when the user wants to play, agrees to play, or expresses readiness.",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
		Handler: r.handleStartRound,
	})

	r.register(&Action{
		Name:        ResetRound,
		Description: "End the current round. Use when the user gives up, wants to start over, or wants to stop playing.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"secret_answer": map[string]any{
					"type":        "string",
					"description": "The current secret answer, if a game is in progress",
				},
			},
		},
		Handler: r.handleResetRound,
	})

	r.register(&Action{
		Name:        CheckGuess,
		Description: "Judge whether the user's direct guess matches the secret answer.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"user_guess": map[string]any{
					"type":        "string",
					"description": "The user's most recent guess",
				},
				"secret_answer": map[string]any{
					"type":        "string",
					"description": "The current secret answer",
				},
				"history": map[string]any{
					"type":        "string",
					"description": "The formatted conversation history",
				},
			},
			"required": []string{"user_guess", "secret_answer", "history"},
		},
		Required: []string{"user_guess", "secret_answer", "history"},
		Handler:  r.handleCheckGuess,
	})

	r.register(&Action{
		Name:        AnswerQuestion,
		Description: "Answer a question about properties of the secret answer without revealing it.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"user_question": map[string]any{
					"type":        "string",
					"description": "The user's most recent question",
				},
				"secret_answer": map[string]any{
					"type":        "string",
					"description": "The current secret answer",
				},
				"history": map[string]any{
					"type":        "string",
					"description": "The formatted conversation history",
				},
			},
			"required": []string{"user_question", "secret_answer", "history"},
		},
		Required: []string{"user_question", "secret_answer", "history"},
		Handler:  r.handleAnswerQuestion,
	})

	r.register(&Action{
		Name:        GiveHint,
		Description: "Give a hint about the secret answer without revealing it. Use when the user asks for a hint or sounds frustrated.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"user_message": map[string]any{
					"type":        "string",
					"description": "The user's most recent message",
				},
				"secret_answer": map[string]any{
					"type":        "string",
					"description": "The current secret answer",
				},
				"history": map[string]any{
					"type":        "string",
					"description": "The formatted conversation history",
				},
			},
			"required": []string{"user_message", "secret_answer", "history"},
		},
		Required: []string{"user_message", "secret_answer", "history"},
		Handler:  r.handleGiveHint,
	})

	r.register(&Action{
		Name:        GeneralChat,
		Description: "Respond to anything else: jokes, unrelated questions, small talk.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"user_message": map[string]any{
					"type":        "string",
					"description": "The user's most recent message",
				},
				"history": map[string]any{
					"type":        "string",
					"description": "The formatted conversation history",
				},
			},
			"required": []string{"user_message", "history"},
		},
		Required: []string{"user_message", "history"},
		Handler:  r.handleGeneralChat,
	})
}

func (r *Registry) register(a *Action) {
	r.actions[a.Name] = a
	r.order = append(r.order, a.Name)
}

// Get returns the named action, or nil if it is not in the set.
func (r *Registry) Get(name string) *Action {
	return r.actions[name]
}

// Names returns the action names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Specs renders the registry as tool specs for the model's
// forced-selection call.
func (r *Registry) Specs() []llm.ToolSpec {
	out := make([]llm.ToolSpec, 0, len(r.order))
	for _, name := range r.order {
		a := r.actions[name]
		out = append(out, llm.ToolSpec{
			Name:        a.Name,
			Description: a.Description,
			Parameters:  a.Parameters,
		})
	}
	return out
}

// Execute runs the named action. Unknown names error; required-parameter
// validation is the dispatcher's job.
func (r *Registry) Execute(ctx context.Context, name string, sess *game.Session, args map[string]string) (*game.Result, error) {
	a := r.actions[name]
	if a == nil {
		return nil, fmt.Errorf("unknown action: %s", name)
	}
	return a.Handler(ctx, sess, args)
}

// handleStartRound asks the model for a fresh secret answer drawn from
// a random topic and letter set, then announces the round without
// revealing it.
func (r *Registry) handleStartRound(ctx context.Context, _ *game.Session, _ map[string]string) (*game.Result, error) {
	r.rngMu.Lock()
	prompt := prompts.StartRound(r.rng)
	r.rngMu.Unlock()

	completion, err := r.model.Complete(ctx, []llm.Message{
		{Role: game.RoleSystem, Content: prompt},
	})
	if err != nil {
		return nil, fmt.Errorf("generate secret answer: %w", err)
	}

	secret := strings.TrimSpace(strings.Trim(strings.TrimSpace(completion.Content), `"'`))
	if secret == "" {
		return nil, fmt.Errorf("model returned an empty secret answer")
	}

	r.logger.Debug("round started", "secret_len", len(secret))
	return &game.Result{
		Delta:   game.Delta{SetSecret: &secret},
		Replies: []game.Message{assistantReply(prompts.RoundStarted)},
	}, nil
}

// handleResetRound is deterministic: no model call, just a goodbye that
// reveals the prior answer if one existed.
func (r *Registry) handleResetRound(_ context.Context, sess *game.Session, args map[string]string) (*game.Result, error) {
	secret := args["secret_answer"]
	if secret == "" {
		secret = sess.Secret()
	}

	return &game.Result{
		Delta:   game.Delta{ClearSecret: true},
		Replies: []game.Message{assistantReply(prompts.ResetMessage(secret))},
	}, nil
}

// handleCheckGuess asks the model to judge the guess. The reply must
// start with a correctness sentinel, which is stripped before storage.
// A correct guess ends the round.
func (r *Registry) handleCheckGuess(ctx context.Context, _ *game.Session, args map[string]string) (*game.Result, error) {
	completion, err := r.model.Complete(ctx, []llm.Message{
		{Role: game.RoleSystem, Content: prompts.CheckGuess},
		{Role: game.RoleSystem, Content: prompts.GameContext(args["secret_answer"], args["history"])},
		{Role: game.RoleUser, Content: args["user_guess"]},
	})
	if err != nil {
		return nil, fmt.Errorf("check guess: %w", err)
	}

	text := strings.TrimSpace(completion.Content)
	correct := false
	switch {
	case strings.HasPrefix(text, prompts.SentinelCorrect):
		correct = true
		text = strings.TrimSpace(strings.TrimPrefix(text, prompts.SentinelCorrect))
	case strings.HasPrefix(text, prompts.SentinelIncorrect):
		text = strings.TrimSpace(strings.TrimPrefix(text, prompts.SentinelIncorrect))
	default:
		// No sentinel: treat as incorrect and keep the text as-is.
		r.logger.Warn("guess judgement missing sentinel prefix")
	}

	result := &game.Result{
		Replies: []game.Message{assistantReply(text)},
	}
	if correct {
		result.Delta = game.Delta{ClearSecret: true}
	}
	return result, nil
}

func (r *Registry) handleAnswerQuestion(ctx context.Context, _ *game.Session, args map[string]string) (*game.Result, error) {
	completion, err := r.model.Complete(ctx, []llm.Message{
		{Role: game.RoleSystem, Content: prompts.AnswerQuestion},
		{Role: game.RoleSystem, Content: prompts.GameContext(args["secret_answer"], args["history"])},
		{Role: game.RoleUser, Content: args["user_question"]},
	})
	if err != nil {
		return nil, fmt.Errorf("answer question: %w", err)
	}

	return &game.Result{
		Replies: []game.Message{assistantReply(strings.TrimSpace(completion.Content))},
	}, nil
}

func (r *Registry) handleGiveHint(ctx context.Context, _ *game.Session, args map[string]string) (*game.Result, error) {
	completion, err := r.model.Complete(ctx, []llm.Message{
		{Role: game.RoleSystem, Content: prompts.GiveHint},
		{Role: game.RoleSystem, Content: prompts.GameContext(args["secret_answer"], args["history"])},
		{Role: game.RoleUser, Content: args["user_message"]},
	})
	if err != nil {
		return nil, fmt.Errorf("give hint: %w", err)
	}

	return &game.Result{
		Replies: []game.Message{assistantReply(strings.TrimSpace(completion.Content))},
	}, nil
}

// handleGeneralChat never sees the secret answer; it only learns
// whether a round is active, so it cannot leak the answer.
func (r *Registry) handleGeneralChat(ctx context.Context, sess *game.Session, args map[string]string) (*game.Result, error) {
	completion, err := r.model.Complete(ctx, []llm.Message{
		{Role: game.RoleSystem, Content: prompts.GeneralChat},
		{Role: game.RoleSystem, Content: prompts.ChatContext(sess.RoundActive(), args["history"])},
		{Role: game.RoleUser, Content: args["user_message"]},
	})
	if err != nil {
		return nil, fmt.Errorf("general chat: %w", err)
	}

	return &game.Result{
		Replies: []game.Message{assistantReply(strings.TrimSpace(completion.Content))},
	}, nil
}

func assistantReply(text string) game.Message {
	return game.Message{
		Role:      game.RoleAssistant,
		Content:   text,
		Timestamp: time.Now(),
	}
}
