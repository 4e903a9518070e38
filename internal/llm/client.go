package llm

import "context"

// Client is the interface all model providers must implement.
type Client interface {
	// Complete sends a free-text completion request and returns the response.
	Complete(ctx context.Context, messages []Message) (*Completion, error)

	// SelectTool sends a forced-selection request: the model must pick
	// exactly one of the offered tools and supply its arguments. If force
	// is non-empty, the provider constrains the model to that single tool.
	// A response selecting zero or multiple tools yields ErrNoToolSelected
	// or ErrMultipleSelected respectively.
	SelectTool(ctx context.Context, messages []Message, tools []ToolSpec, force string) (*ToolSelection, error)

	// Ping checks if the provider is reachable.
	Ping(ctx context.Context) error
}
