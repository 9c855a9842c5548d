// Package server exposes the query router over a small JSON HTTP API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/amasuba/uraics-revenue-assurance/internal/config"
	"github.com/amasuba/uraics-revenue-assurance/internal/router"
	"github.com/amasuba/uraics-revenue-assurance/internal/types"
)

// maxMessageBytes bounds a chat message body.
const maxMessageBytes = 16 << 10

// HealthChecker reports the health of the graph store.
type HealthChecker interface {
	Health(ctx context.Context) types.HealthStatus
}

// Server holds chat sessions and routes their messages.
type Server struct {
	cfg     config.ServerConfig
	router  *router.Router
	health  HealthChecker
	metrics http.Handler
	logger  *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*router.Session
}

// New creates a Server. metrics may be nil, in which case /metrics answers 404.
func New(cfg config.ServerConfig, r *router.Router, health HealthChecker, metrics http.Handler, logger *slog.Logger) *Server {
	if metrics == nil {
		metrics = http.NotFoundHandler()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:      cfg,
		router:   r,
		health:   health,
		metrics:  metrics,
		logger:   logger,
		sessions: make(map[string]*router.Session),
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/sessions", s.handleCreateSession)
	mux.HandleFunc("POST /api/v1/sessions/{id}/messages", s.handleMessage)
	mux.HandleFunc("GET /api/v1/sessions/{id}/transcript", s.handleTranscript)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", s.metrics)
	return mux
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Address,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "address", s.cfg.Address)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("http server shutting down")
	return srv.Shutdown(shutdownCtx)
}

// SessionResponse is returned when a session is created.
type SessionResponse struct {
	ID string `json:"session_id"`
}

// MessageRequest is one chat input.
type MessageRequest struct {
	Text string `json:"text"`
}

// TranscriptResponse lists a session's turns.
type TranscriptResponse struct {
	ID    string        `json:"session_id"`
	Turns []router.Turn `json:"turns"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	id := uuid.NewString()

	s.mu.Lock()
	s.sessions[id] = router.NewSession(id)
	s.mu.Unlock()

	s.logger.DebugContext(r.Context(), "session created", "session", id)
	writeJSON(w, http.StatusCreated, SessionResponse{ID: id})
}

func (s *Server) session(id string) (*router.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(r.PathValue("id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "session not found"})
		return
	}

	var req MessageRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxMessageBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	reply := s.router.Handle(r.Context(), sess, req.Text)
	writeJSON(w, http.StatusOK, reply)
}

func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(r.PathValue("id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "session not found"})
		return
	}
	writeJSON(w, http.StatusOK, TranscriptResponse{ID: sess.ID, Turns: sess.Transcript()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.health.Health(r.Context())
	code := http.StatusOK
	if status.State == types.HealthStateUnhealthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
