package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestComplete(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("Authorization = %q", auth)
		}
		json.NewDecoder(r.Body).Decode(&captured)

		json.NewEncoder(w).Encode(map[string]any{
			"id":    "gen-1",
			"model": "test-model",
			"choices": []map[string]any{
				{"index": 0, "message": map[string]any{"role": "assistant", "content": "hello there"}},
			},
			"usage": map[string]any{"prompt_tokens": 12, "completion_tokens": 4},
		})
	}))
	defer server.Close()

	c := NewOpenRouterClient(server.URL, "test-key", "test-model", discardLogger())
	got, err := c.Complete(context.Background(), []Message{
		{Role: "system", Content: "be brief"},
		{Role: "user", Content: "hi"},
	})
	if err != nil {
		t.Fatalf("Complete error: %v", err)
	}

	if got.Content != "hello there" {
		t.Errorf("content = %q", got.Content)
	}
	if got.InputTokens != 12 || got.OutputTokens != 4 {
		t.Errorf("tokens = %d/%d", got.InputTokens, got.OutputTokens)
	}
	if captured["model"] != "test-model" {
		t.Errorf("request model = %v", captured["model"])
	}
	msgs := captured["messages"].([]any)
	if len(msgs) != 2 {
		t.Errorf("sent %d messages, want 2", len(msgs))
	}
}

func TestComplete_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": "rate limited"}`))
	}))
	defer server.Close()

	c := NewOpenRouterClient(server.URL, "k", "m", discardLogger())
	_, err := c.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}})
	if err == nil {
		t.Fatal("expected error on 429")
	}
}

func toolCallResponse(name, args string) map[string]any {
	return map[string]any{
		"id":    "gen-2",
		"model": "test-model",
		"choices": []map[string]any{
			{
				"index":         0,
				"finish_reason": "tool_calls",
				"message": map[string]any{
					"role": "assistant",
					"tool_calls": []map[string]any{
						{
							"id":   "call-1",
							"type": "function",
							"function": map[string]any{
								"name":      name,
								"arguments": args,
							},
						},
					},
				},
			},
		},
	}
}

func TestSelectTool(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&captured)
		json.NewEncoder(w).Encode(toolCallResponse("check_guess", `{"user_guess": "banana", "tries": 3}`))
	}))
	defer server.Close()

	tools := []ToolSpec{
		{Name: "check_guess", Parameters: map[string]any{"type": "object"}},
		{Name: "general_chat", Parameters: map[string]any{"type": "object"}},
	}

	c := NewOpenRouterClient(server.URL, "k", "m", discardLogger())
	got, err := c.SelectTool(context.Background(), []Message{{Role: "user", Content: "banana"}}, tools, "")
	if err != nil {
		t.Fatalf("SelectTool error: %v", err)
	}

	if got.Name != "check_guess" {
		t.Errorf("name = %q", got.Name)
	}
	if got.Arguments["user_guess"] != "banana" {
		t.Errorf("user_guess = %q", got.Arguments["user_guess"])
	}
	// Non-string values keep their JSON form
	if got.Arguments["tries"] != "3" {
		t.Errorf("tries = %q, want 3", got.Arguments["tries"])
	}

	// Wire shape: tools offered, selection required
	if captured["tool_choice"] != "required" {
		t.Errorf("tool_choice = %v, want required", captured["tool_choice"])
	}
	if sent := captured["tools"].([]any); len(sent) != 2 {
		t.Errorf("sent %d tools, want 2", len(sent))
	}
}

func TestSelectTool_Forced(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&captured)
		json.NewEncoder(w).Encode(toolCallResponse("start_round", `{}`))
	}))
	defer server.Close()

	tools := []ToolSpec{{Name: "start_round", Parameters: map[string]any{"type": "object"}}}

	c := NewOpenRouterClient(server.URL, "k", "m", discardLogger())
	got, err := c.SelectTool(context.Background(), nil, tools, "start_round")
	if err != nil {
		t.Fatalf("SelectTool error: %v", err)
	}
	if got.Name != "start_round" {
		t.Errorf("name = %q", got.Name)
	}

	choice, ok := captured["tool_choice"].(map[string]any)
	if !ok {
		t.Fatalf("tool_choice = %v, want function pin object", captured["tool_choice"])
	}
	fn := choice["function"].(map[string]any)
	if fn["name"] != "start_round" {
		t.Errorf("pinned function = %v", fn["name"])
	}
}

func TestSelectTool_NoCalls(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"id": "gen-3", "model": "m",
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "I refuse to pick"}},
			},
		})
	}))
	defer server.Close()

	c := NewOpenRouterClient(server.URL, "k", "m", discardLogger())
	_, err := c.SelectTool(context.Background(), nil, []ToolSpec{{Name: "x"}}, "")
	if !errors.Is(err, ErrNoToolSelected) {
		t.Errorf("err = %v, want ErrNoToolSelected", err)
	}
}

func TestSelectTool_UnknownTool(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(toolCallResponse("made_up_tool", `{}`))
	}))
	defer server.Close()

	c := NewOpenRouterClient(server.URL, "k", "m", discardLogger())
	_, err := c.SelectTool(context.Background(), nil, []ToolSpec{{Name: "real_tool"}}, "")
	if !errors.Is(err, ErrUnknownToolChoice) {
		t.Errorf("err = %v, want ErrUnknownToolChoice", err)
	}
}

func TestPing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(`{"data": []}`))
	}))
	defer server.Close()

	c := NewOpenRouterClient(server.URL, "k", "m", discardLogger())
	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("Ping error: %v", err)
	}
}

func TestPing_BadKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	c := NewOpenRouterClient(server.URL, "bad", "m", discardLogger())
	if err := c.Ping(context.Background()); err == nil {
		t.Error("expected error for 401")
	}
}

func TestDecodeArguments(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want map[string]string
	}{
		{"empty", "", map[string]string{}},
		{"strings", `{"a": "x"}`, map[string]string{"a": "x"}},
		{"mixed types", `{"n": 7, "b": true, "s": "ok"}`, map[string]string{"n": "7", "b": "true", "s": "ok"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeArguments(tt.raw)
			if err != nil {
				t.Fatalf("decodeArguments error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("arg %q = %q, want %q", k, got[k], v)
				}
			}
		})
	}
}

func TestDecodeArguments_Invalid(t *testing.T) {
	if _, err := decodeArguments("{broken"); err == nil {
		t.Error("expected error for invalid JSON")
	}
}
