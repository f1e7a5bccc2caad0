package server

import (
	"net/http"
	"strings"

	"github.com/claude/wlog/internal/models"
)

type meResponse struct {
	models.UserInfo
	WorkspaceName string `json:"workspaceName,omitempty"`
}

type configResponse struct {
	models.DatabaseConfig
	IsConfigured bool `json:"isConfigured"`
}

func newConfigResponse(cfg models.DatabaseConfig) configResponse {
	return configResponse{DatabaseConfig: cfg, IsConfigured: cfg.IsConfigured()}
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r)
	writeJSON(w, http.StatusOK, meResponse{
		UserInfo:      s.workout.UserInfo(r.Context(), sess.Credentials()),
		WorkspaceName: sess.WorkspaceName,
	})
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newConfigResponse(sessionFromContext(r).Databases))
}

func (s *Server) handleSaveConfig(w http.ResponseWriter, r *http.Request) {
	var cfg models.DatabaseConfig
	if !decodeBody(w, r, &cfg) {
		return
	}
	cfg.WorkoutDBID = strings.TrimSpace(cfg.WorkoutDBID)
	cfg.LogDBID = strings.TrimSpace(cfg.LogDBID)
	cfg.RoutineDBID = strings.TrimSpace(cfg.RoutineDBID)
	if cfg.WorkoutDBID == "" || cfg.LogDBID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "workoutDbId and logDbId are required"})
		return
	}

	sess := sessionFromContext(r)
	if err := s.sessions.SaveDatabaseConfig(r.Context(), sess.ID, cfg); err != nil {
		s.writeError(w, r, err)
		return
	}
	if cfg.RoutineDBID == "" {
		cfg.RoutineDBID = sess.Databases.RoutineDBID
	}
	s.log.Info("database config saved", "workspace", sess.WorkspaceName, "configured", cfg.IsConfigured())
	writeJSON(w, http.StatusOK, newConfigResponse(cfg))
}

func (s *Server) handleClearConfig(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.ClearDatabaseConfig(r.Context(), sessionFromContext(r).ID); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newConfigResponse(models.DatabaseConfig{}))
}

func (s *Server) handleSearchDatabases(w http.ResponseWriter, r *http.Request) {
	dbs, err := s.workout.SearchDatabases(r.Context(), sessionFromContext(r).Credentials())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dbs)
}
