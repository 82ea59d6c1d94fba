// Package server exposes a repository over HTTP and streams session
// snapshots over a websocket.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/thiagokokada/gitdesk/internal/git"
	"github.com/thiagokokada/gitdesk/internal/session"
)

type Server struct {
	repo     session.Repository
	ctrl     *session.Controller
	mux      *http.ServeMux
	upgrader websocket.Upgrader
	reset    func() error
}

// New serves repo under /api. The /ws feed is only mounted when ctrl is not
// nil.
func New(repo session.Repository, ctrl *session.Controller) *Server {
	s := &Server{
		repo: repo,
		ctrl: ctrl,
		mux:  http.NewServeMux(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /ping", s.handlePing)
	s.mux.HandleFunc("GET /api/commits", s.handleCommits)
	s.mux.HandleFunc("GET /api/uncommitted", s.handleUncommitted)
	s.mux.HandleFunc("GET /api/changed-files", s.handleChangedFiles)
	s.mux.HandleFunc("GET /api/file-versions", s.handleFileVersions)
	s.mux.HandleFunc("GET /api/file-content", s.handleFileContent)
	s.mux.HandleFunc("PUT /api/file-content", s.handleUpdateFileContent)
	s.mux.HandleFunc("POST /api/commit", s.handleCreateCommit)
	s.mux.HandleFunc("POST /api/rollback", s.handleRollback)
	s.mux.HandleFunc("GET /api/tree", s.handleTree)
	if s.ctrl != nil {
		s.mux.HandleFunc("GET /ws", s.handleWebSocket)
	}
}

// OnReset replaces what a session.reset message does. By default only the
// controller is reset.
func (s *Server) OnReset(fn func() error) {
	s.reset = fn
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "pong"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("write response", slog.Any("error", err))
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, git.ErrInvalidPath), errors.Is(err, git.ErrNoFiles), errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, git.ErrUnknownCommit):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
