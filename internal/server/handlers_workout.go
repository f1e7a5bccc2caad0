package server

import (
	"net/http"

	"github.com/claude/wlog/internal/models"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleListExercises(w http.ResponseWriter, r *http.Request) {
	exercises, err := s.workout.ListExercises(r.Context(), sessionFromContext(r).Credentials())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, exercises)
}

func (s *Server) handleExerciseOptions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.workout.ExerciseOptions(r.Context(), sessionFromContext(r).Credentials()))
}

func (s *Server) handleCreateExercise(w http.ResponseWriter, r *http.Request) {
	var ex models.Exercise
	if !decodeBody(w, r, &ex) {
		return
	}
	created, err := s.workout.CreateExercise(r.Context(), sessionFromContext(r).Credentials(), ex)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateExercise(w http.ResponseWriter, r *http.Request) {
	var ex models.Exercise
	if !decodeBody(w, r, &ex) {
		return
	}
	ex.ID = chi.URLParam(r, "id")
	if err := s.workout.UpdateExercise(r.Context(), sessionFromContext(r).Credentials(), ex); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleDeleteExercise(w http.ResponseWriter, r *http.Request) {
	if err := s.workout.DeleteExercise(r.Context(), sessionFromContext(r).Credentials(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleSubmitLog(w http.ResponseWriter, r *http.Request) {
	var entries []models.LogEntry
	if !decodeBody(w, r, &entries) {
		return
	}
	n, err := s.workout.SubmitLog(r.Context(), sessionFromContext(r).Credentials(), entries)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "count": n})
}

type saveRoutineRequest struct {
	Name  string               `json:"name"`
	Items []models.RoutineItem `json:"items"`
}

func (s *Server) handleListRoutines(w http.ResponseWriter, r *http.Request) {
	routines, err := s.workout.ListRoutines(r.Context(), sessionFromContext(r).Credentials())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, routines)
}

func (s *Server) handleSaveRoutine(w http.ResponseWriter, r *http.Request) {
	var req saveRoutineRequest
	if !decodeBody(w, r, &req) {
		return
	}
	saved, err := s.workout.SaveRoutine(r.Context(), sessionFromContext(r).Credentials(), req.Name, req.Items)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleDeleteRoutine(w http.ResponseWriter, r *http.Request) {
	if err := s.workout.DeleteRoutine(r.Context(), sessionFromContext(r).Credentials(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
