package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
)

var errBadRequest = errors.New("bad request")

type updateContentRequest struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

type commitRequest struct {
	Files   []string `json:"files"`
	Message string   `json:"message"`
}

type commitResponse struct {
	Hash string `json:"hash"`
}

type rollbackRequest struct {
	Commit string   `json:"commit"`
	Files  []string `json:"files"`
}

type rollbackResponse struct {
	Message string `json:"message"`
}

func (s *Server) handleCommits(w http.ResponseWriter, r *http.Request) {
	commits, err := s.repo.ListCommits(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, commits)
}

func (s *Server) handleUncommitted(w http.ResponseWriter, r *http.Request) {
	files, err := s.repo.ListUncommittedChanges(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(files))
}

func (s *Server) handleChangedFiles(w http.ResponseWriter, r *http.Request) {
	hash := r.URL.Query().Get("commit")
	if hash == "" {
		writeError(w, fmt.Errorf("%w: missing commit", errBadRequest))
		return
	}
	files, err := s.repo.ListChangedFiles(r.Context(), hash)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(files))
}

func (s *Server) handleFileVersions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	hash, path := q.Get("commit"), q.Get("path")
	if hash == "" || path == "" {
		writeError(w, fmt.Errorf("%w: commit and path are required", errBadRequest))
		return
	}
	versions, err := s.repo.FileVersions(r.Context(), hash, path)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, versions)
}

func (s *Server) handleFileContent(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	path := q.Get("path")
	if path == "" {
		writeError(w, fmt.Errorf("%w: missing path", errBadRequest))
		return
	}
	content, err := s.repo.FileContent(r.Context(), q.Get("ref"), path)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"content": content})
}

func (s *Server) handleUpdateFileContent(w http.ResponseWriter, r *http.Request) {
	var req updateContentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.repo.UpdateFileContent(r.Context(), req.Path, req.Content); err != nil {
		writeError(w, err)
		return
	}
	slog.Debug("file updated over API", slog.String("path", req.Path))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateCommit(w http.ResponseWriter, r *http.Request) {
	var req commitRequest
	if !decodeBody(w, r, &req) {
		return
	}
	hash, err := s.repo.CreateCommit(r.Context(), req.Files, req.Message)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, commitResponse{Hash: hash})
}

func (s *Server) handleRollback(w http.ResponseWriter, r *http.Request) {
	var req rollbackRequest
	if !decodeBody(w, r, &req) {
		return
	}
	msg, err := s.repo.RollbackFiles(r.Context(), req.Commit, req.Files)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rollbackResponse{Message: msg})
}

func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	tree, err := s.repo.RepositoryTree(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tree)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, fmt.Errorf("%w: %v", errBadRequest, err))
		return false
	}
	return true
}

func nonNil(files []string) []string {
	if files == nil {
		return []string{}
	}
	return files
}
