package api

import (
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"mysteryagent/internal/actions"
	"mysteryagent/internal/llm"
)

func TestWS_ChatTurn(t *testing.T) {
	mock := &llm.MockClient{
		Selections: []*llm.ToolSelection{{
			Name:      actions.GeneralChat,
			Arguments: map[string]string{"user_message": "hi", "history": ""},
		}},
		Completions: []string{"Hello over the socket!"},
	}
	ts := newTestServer(t, mock)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/game/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(wsInbound{Message: "hi"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	var out wsOutbound
	if err := conn.ReadJSON(&out); err != nil {
		t.Fatalf("read: %v", err)
	}
	if out.SessionID == "" {
		t.Error("server should mint a session id for the connection")
	}
	if out.Response != "Hello over the socket!" {
		t.Errorf("response = %q", out.Response)
	}
	if out.ActionName != actions.GeneralChat {
		t.Errorf("action_name = %q", out.ActionName)
	}
}

func TestWS_EmptyMessage(t *testing.T) {
	ts := newTestServer(t, &llm.MockClient{})

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/game/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(wsInbound{}); err != nil {
		t.Fatalf("write: %v", err)
	}

	var out wsOutbound
	if err := conn.ReadJSON(&out); err != nil {
		t.Fatalf("read: %v", err)
	}
	if out.Error == "" {
		t.Error("empty message should produce an error payload")
	}
}
