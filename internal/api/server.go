// Package api implements the game's HTTP API.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"mysteryagent/internal/buildinfo"
	"mysteryagent/internal/session"
)

// writeJSON encodes v as JSON to w, logging any errors at debug level.
// Errors here typically mean the client disconnected mid-response.
func writeJSON(w http.ResponseWriter, v any, logger *slog.Logger) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("failed to write JSON response", "error", err)
	}
}

// Server is the HTTP API server.
type Server struct {
	address        string
	port           int
	controller     *session.Controller
	allowedOrigins []string
	logger         *slog.Logger
	server         *http.Server
}

// NewServer creates a new API server.
func NewServer(address string, port int, controller *session.Controller, allowedOrigins []string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		address:        address,
		port:           port,
		controller:     controller,
		allowedOrigins: allowedOrigins,
		logger:         logger,
	}
}

// Handler builds the route mux with logging and CORS applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Game endpoints
	mux.HandleFunc("POST /game/invoke", s.handleInvoke)
	mux.HandleFunc("POST /game/reset", s.handleReset)
	mux.HandleFunc("GET /game/ws", s.handleWS)

	// Health endpoints
	mux.HandleFunc("GET /version", s.handleVersion)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /", s.handleRoot)

	return s.withLogging(CORS(s.allowedOrigins)(mux))
}

// Start runs the server until it fails or is shut down.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.address, s.port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second, // model calls can be slow
	}

	addr := s.address
	if addr == "" {
		addr = "0.0.0.0"
	}
	s.logger.Info("starting API server", "address", addr, "port", s.port)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}

// InvokeRequest is one chat turn. A null or empty session_id means "no
// session yet"; the server mints one and the caller keeps it.
type InvokeRequest struct {
	SessionID *string `json:"session_id"`
	Message   string  `json:"message"`
}

// InvokeResponse carries the assistant reply plus observability fields.
type InvokeResponse struct {
	SessionID    string  `json:"session_id"`
	Response     string  `json:"response"`
	ActionName   string  `json:"action_name"`
	SecretAnswer *string `json:"secret_answer"`
}

func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	var req InvokeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Message == "" {
		s.errorResponse(w, http.StatusBadRequest, "message is required")
		return
	}

	sessionID := ""
	if req.SessionID != nil {
		sessionID = *req.SessionID
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	result, err := s.controller.Step(r.Context(), sessionID, req.Message)
	if err != nil {
		s.logger.Error("step failed", "session_id", sessionID, "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, InvokeResponse{
		SessionID:    sessionID,
		Response:     result.Reply,
		ActionName:   result.Action,
		SecretAnswer: result.SecretAnswer,
	}, s.logger)
}

// ResetRequest clears a session's round and history.
type ResetRequest struct {
	SessionID string `json:"session_id"`
}

// ResetResponse reports whether the reset took effect.
type ResetResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var req ResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.SessionID == "" {
		s.errorResponse(w, http.StatusBadRequest, "session_id is required")
		return
	}

	resp := ResetResponse{Success: true, Message: "session reset"}
	if !s.controller.Reset(req.SessionID) {
		resp = ResetResponse{Success: false, Message: "reset failed"}
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, resp, s.logger)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{
		"name":    "mysteryagent",
		"version": buildinfo.Version,
		"status":  "ok",
	}, s.logger)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, buildinfo.Info(), s.logger)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{"status": "healthy"}, s.logger)
}

func (s *Server) errorResponse(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	writeJSON(w, map[string]any{
		"error": map[string]any{
			"message": message,
			"code":    code,
		},
	}, s.logger)
}
