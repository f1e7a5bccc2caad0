package server

import (
	"errors"
	"net/http"

	"github.com/claude/wlog/internal/auth"
)

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	state, err := s.auth.NewState(w)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	http.Redirect(w, r, s.auth.LoginURL(state), http.StatusFound)
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": e})
		return
	}
	if q.Get("code") == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing code"})
		return
	}
	if err := s.auth.CheckState(w, r); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	grant, err := s.auth.Exchange(r.Context(), q.Get("code"))
	if err != nil {
		s.log.Error("oauth exchange failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if _, err := s.auth.StartSession(r.Context(), w, grant); err != nil {
		s.writeError(w, r, err)
		return
	}
	http.Redirect(w, r, s.auth.HomeURL(), http.StatusFound)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.EndSession(w, r); err != nil && !errors.Is(err, auth.ErrUnauthorized) {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
