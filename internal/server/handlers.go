package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/claude/splitlog/internal/ingest"
	"github.com/claude/splitlog/internal/storage"
	"github.com/claude/splitlog/internal/workout"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

// writeError maps controller and store errors onto HTTP status codes.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, workout.ErrSessionNotFound),
		errors.Is(err, workout.ErrExerciseNotFound),
		errors.Is(err, storage.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody(err.Error()))
	case errors.Is(err, workout.ErrSessionNotActive),
		errors.Is(err, ingest.ErrActiveSession):
		writeJSON(w, http.StatusConflict, errorBody(err.Error()))
	case errors.Is(err, workout.ErrUserRequired),
		errors.Is(err, workout.ErrExerciseRequired),
		errors.Is(err, workout.ErrInvalidReorder),
		errors.Is(err, workout.ErrInvalidStatus),
		errors.Is(err, workout.ErrInvalidPolicy),
		errors.Is(err, workout.ErrInvalidUnit),
		errors.Is(err, workout.ErrInvalidOverride):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	default:
		s.log.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
	}
}

func decodeJSON(r *http.Request, v any) error {
	if r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s: %w", name, err)
	}
	return id, nil
}

func parseTime(v string) (t time.Time, dateOnly bool, err error) {
	t, err = time.Parse(time.RFC3339, v)
	if err == nil {
		return t, false, nil
	}
	t, err = time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, false, err
	}
	return t, true, nil
}

// parseTimeRange reads start/end query parameters. Without a start the range
// is the last fallback duration. A date-only end covers that whole day.
func parseTimeRange(r *http.Request, fallback time.Duration) (start, end time.Time, err error) {
	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")

	end = time.Now()
	if endStr != "" {
		var dateOnly bool
		end, dateOnly, err = parseTime(endStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end: %w", err)
		}
		if dateOnly {
			end = end.Add(24 * time.Hour)
		}
	}

	if startStr == "" {
		return end.Add(-fallback), end, nil
	}
	start, _, err = parseTime(startStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start: %w", err)
	}
	return start, end, nil
}
