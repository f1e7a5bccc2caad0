package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/claude/wlog/internal/auth"
	"github.com/claude/wlog/internal/notion"
	"github.com/claude/wlog/internal/storage"
	"github.com/claude/wlog/internal/workout"
)

const maxBodyBytes = 1 << 20

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeJSON encodes v before writing the header so an unencodable value
// becomes a 500 instead of an empty 200.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		data, _ = json.Marshal(map[string]string{"error": "encoding response: " + err.Error()})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(data, '\n'))
}

// writeError maps err to a status code and writes it as {"error": ...}.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	var apiErr *notion.APIError
	switch {
	case errors.Is(err, workout.ErrInvalid), errors.Is(err, workout.ErrNotConfigured):
		status = http.StatusBadRequest
	case errors.Is(err, auth.ErrUnauthorized), notion.IsUnauthorized(err):
		status = http.StatusUnauthorized
	case errors.Is(err, storage.ErrNotFound), notion.IsNotFound(err):
		status = http.StatusNotFound
	case errors.As(err, &apiErr):
		status = http.StatusBadGateway
	}
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	} else {
		s.log.Warn("request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// decodeBody reads a JSON request body into v, answering 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return false
	}
	return true
}
