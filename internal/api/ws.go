package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// wsInbound is one chat turn over the socket. Session affinity is
// per-connection: the first turn without a session_id mints one and
// every later turn reuses it.
type wsInbound struct {
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`
}

type wsOutbound struct {
	SessionID    string  `json:"session_id"`
	Response     string  `json:"response"`
	ActionName   string  `json:"action_name"`
	SecretAnswer *string `json:"secret_answer"`
	Error        string  `json:"error,omitempty"`
}

// handleWS serves the game over a WebSocket so the frontend can keep a
// single connection instead of POSTing each turn.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, o := range s.allowedOrigins {
				if o == "*" || o == origin {
					return true
				}
			}
			return false
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	sessionID := ""
	for {
		var in wsInbound
		if err := conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("websocket read failed", "error", err)
			}
			return
		}

		if in.SessionID != "" {
			sessionID = in.SessionID
		}
		if sessionID == "" {
			sessionID = uuid.NewString()
		}

		if in.Message == "" {
			if err := conn.WriteJSON(wsOutbound{SessionID: sessionID, Error: "message is required"}); err != nil {
				return
			}
			continue
		}

		result, err := s.controller.Step(r.Context(), sessionID, in.Message)
		if err != nil {
			s.logger.Error("step failed", "session_id", sessionID, "error", err)
			if err := conn.WriteJSON(wsOutbound{SessionID: sessionID, Error: "internal error"}); err != nil {
				return
			}
			continue
		}

		out := wsOutbound{
			SessionID:    sessionID,
			Response:     result.Reply,
			ActionName:   result.Action,
			SecretAnswer: result.SecretAnswer,
		}
		if err := conn.WriteJSON(out); err != nil {
			return
		}
	}
}
