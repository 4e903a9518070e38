package llm

import "context"

// MockClient is a scripted model client for testing. Completions are
// served from the Completions queue in order (the last entry repeats);
// tool selections from Selections. CompleteFunc/SelectFunc override the
// queues entirely when set.
type MockClient struct {
	Completions []string
	Selections  []*ToolSelection
	Err         error

	CompleteFunc func(ctx context.Context, messages []Message) (*Completion, error)
	SelectFunc   func(ctx context.Context, messages []Message, tools []ToolSpec, force string) (*ToolSelection, error)

	// Recorded calls for assertions.
	CompleteCalls [][]Message
	SelectCalls   []SelectCall

	completeIdx int
	selectIdx   int
}

// SelectCall records one SelectTool invocation.
type SelectCall struct {
	Messages []Message
	Tools    []ToolSpec
	Force    string
}

var _ Client = (*MockClient)(nil)

func (m *MockClient) Complete(ctx context.Context, messages []Message) (*Completion, error) {
	m.CompleteCalls = append(m.CompleteCalls, messages)
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, messages)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	if len(m.Completions) == 0 {
		return &Completion{Content: "ok", Model: "mock"}, nil
	}
	idx := m.completeIdx
	if idx >= len(m.Completions) {
		idx = len(m.Completions) - 1
	}
	m.completeIdx++
	return &Completion{Content: m.Completions[idx], Model: "mock"}, nil
}

func (m *MockClient) SelectTool(ctx context.Context, messages []Message, tools []ToolSpec, force string) (*ToolSelection, error) {
	m.SelectCalls = append(m.SelectCalls, SelectCall{Messages: messages, Tools: tools, Force: force})
	if m.SelectFunc != nil {
		return m.SelectFunc(ctx, messages, tools, force)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	if len(m.Selections) == 0 {
		return nil, ErrNoToolSelected
	}
	idx := m.selectIdx
	if idx >= len(m.Selections) {
		idx = len(m.Selections) - 1
	}
	m.selectIdx++
	return m.Selections[idx], nil
}

func (m *MockClient) Ping(ctx context.Context) error {
	return m.Err
}
