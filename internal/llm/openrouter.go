package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"mysteryagent/internal/httpkit"
)

const defaultOpenRouterURL = "https://openrouter.ai/api/v1"

// OpenRouterClient is a client for OpenRouter's OpenAI-compatible
// chat completions API.
type OpenRouterClient struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewOpenRouterClient creates a new OpenRouter client. baseURL may be
// empty to use the public endpoint.
func NewOpenRouterClient(baseURL, apiKey, model string, logger *slog.Logger) *OpenRouterClient {
	if baseURL == "" {
		baseURL = defaultOpenRouterURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	// Model responses can take significant time before headers arrive
	// (long prompts, cold models). Use a generous response header
	// timeout and rely on ctx deadlines for overall control.
	t := httpkit.NewTransport()
	t.ResponseHeaderTimeout = 120 * time.Second

	return &OpenRouterClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		logger:  logger.With("provider", "openrouter"),
		httpClient: httpkit.NewClient(
			httpkit.WithTimeout(0),
			httpkit.WithTransport(t),
			httpkit.WithRetry(2, 500*time.Millisecond),
			httpkit.WithLogger(logger),
		),
	}
}

// OpenAI-compatible request/response types

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	Tools       []chatTool    `json:"tools,omitempty"`
	ToolChoice  any           `json:"tool_choice,omitempty"` // "required" or {"type":"function",...}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatTool struct {
	Type     string       `json:"type"`
	Function chatFunction `json:"function"`
}

type chatFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters"`
}

type chatResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   chatUsage    `json:"usage"`
}

type chatChoice struct {
	Index        int                 `json:"index"`
	FinishReason string              `json:"finish_reason"`
	Message      chatResponseMessage `json:"message"`
}

type chatResponseMessage struct {
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	ToolCalls []chatToolCall `json:"tool_calls,omitempty"`
}

type chatToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"` // JSON-encoded argument object
	} `json:"function"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// Complete sends a free-text completion request.
func (c *OpenRouterClient) Complete(ctx context.Context, messages []Message) (*Completion, error) {
	resp, err := c.send(ctx, chatRequest{
		Model:    c.model,
		Messages: toWire(messages),
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openrouter: response contained no choices")
	}

	result := &Completion{
		Content:      resp.Choices[0].Message.Content,
		Model:        resp.Model,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}

	c.logger.Debug("completion received",
		"model", result.Model,
		"input_tokens", result.InputTokens,
		"output_tokens", result.OutputTokens,
		"content_len", len(result.Content),
	)
	return result, nil
}

// SelectTool sends a forced-selection request. The returned selection
// names exactly one of the offered tools; anything else is an error.
func (c *OpenRouterClient) SelectTool(ctx context.Context, messages []Message, tools []ToolSpec, force string) (*ToolSelection, error) {
	req := chatRequest{
		Model:      c.model,
		Messages:   toWire(messages),
		Tools:      toWireTools(tools),
		ToolChoice: "required",
	}
	if force != "" {
		req.ToolChoice = map[string]any{
			"type":     "function",
			"function": map[string]any{"name": force},
		}
	}

	resp, err := c.send(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openrouter: response contained no choices")
	}

	calls := resp.Choices[0].Message.ToolCalls
	switch {
	case len(calls) == 0:
		return nil, ErrNoToolSelected
	case len(calls) > 1:
		return nil, fmt.Errorf("%w: got %d", ErrMultipleSelected, len(calls))
	}

	call := calls[0]
	offered := false
	for _, t := range tools {
		if t.Name == call.Function.Name {
			offered = true
			break
		}
	}
	if !offered {
		return nil, fmt.Errorf("%w: %q", ErrUnknownToolChoice, call.Function.Name)
	}

	args, err := decodeArguments(call.Function.Arguments)
	if err != nil {
		return nil, fmt.Errorf("openrouter: decode tool arguments: %w", err)
	}

	c.logger.Debug("tool selected", "tool", call.Function.Name, "args", len(args))
	return &ToolSelection{Name: call.Function.Name, Arguments: args}, nil
}

// Ping checks if the OpenRouter API is reachable and the key is valid.
func (c *OpenRouterClient) Ping(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/models", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer httpkit.DrainAndClose(resp.Body, 4096)

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("invalid API key")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status from OpenRouter API: %d", resp.StatusCode)
	}
	return nil
}

func (c *OpenRouterClient) send(ctx context.Context, req chatRequest) (*chatResponse, error) {
	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	c.logger.Log(ctx, LevelTrace, "request payload", "json", string(jsonData))

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody := httpkit.ReadErrorBody(resp.Body, 4096)
		c.logger.Error("API error", "status", resp.StatusCode, "body", errBody)
		return nil, fmt.Errorf("openrouter API error %d: %s", resp.StatusCode, errBody)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	c.logger.Log(ctx, LevelTrace, "response payload", "id", parsed.ID, "choices", len(parsed.Choices))
	return &parsed, nil
}

func toWire(messages []Message) []chatMessage {
	out := make([]chatMessage, len(messages))
	for i, m := range messages {
		out[i] = chatMessage{Role: m.Role, Content: m.Content}
	}
	return out
}

func toWireTools(tools []ToolSpec) []chatTool {
	out := make([]chatTool, len(tools))
	for i, t := range tools {
		out[i] = chatTool{
			Type: "function",
			Function: chatFunction{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		}
	}
	return out
}

// decodeArguments parses the provider's JSON-encoded argument object into
// string values. Non-string values are rendered with their JSON form so a
// sloppy model emitting numbers or booleans still round-trips cleanly.
func decodeArguments(raw string) (map[string]string, error) {
	if strings.TrimSpace(raw) == "" {
		return map[string]string{}, nil
	}

	var parsed map[string]any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, err
	}

	args := make(map[string]string, len(parsed))
	for k, v := range parsed {
		if s, ok := v.(string); ok {
			args[k] = s
			continue
		}
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		args[k] = string(b)
	}
	return args, nil
}
