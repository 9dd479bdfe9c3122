package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/claude/splitlog/internal/models"
)

type splitRequest struct {
	Name        string         `json:"name"`
	Color       string         `json:"color"`
	Weekdays    []time.Weekday `json:"weekdays"`
	ExerciseIDs []string       `json:"exercise_ids"`
}

func (s *Server) handleListSplits(w http.ResponseWriter, r *http.Request) {
	splits, err := s.store.ListSplits(r.Context(), userIDFromContext(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if splits == nil {
		splits = []models.Split{}
	}
	writeJSON(w, http.StatusOK, splits)
}

func (s *Server) handleCreateSplit(w http.ResponseWriter, r *http.Request) {
	var req splitRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("name is required"))
		return
	}
	for _, d := range req.Weekdays {
		if d < time.Sunday || d > time.Saturday {
			writeJSON(w, http.StatusBadRequest, errorBody("weekdays must be 0 (Sunday) to 6 (Saturday)"))
			return
		}
	}

	split, err := s.store.CreateSplit(r.Context(), models.Split{
		UserID:      userIDFromContext(r),
		Name:        req.Name,
		Color:       req.Color,
		Weekdays:    req.Weekdays,
		ExerciseIDs: req.ExerciseIDs,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, split)
}
