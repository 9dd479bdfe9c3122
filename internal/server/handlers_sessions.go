package server

import (
	"net/http"
	"time"

	"github.com/claude/splitlog/internal/models"
	"github.com/claude/splitlog/internal/workout"
	"github.com/google/uuid"
)

const (
	historyWindow = 30 * 24 * time.Hour
	summaryWindow = 183 * 24 * time.Hour
)

type activeSessionResponse struct {
	Active    bool       `json:"active"`
	SessionID *uuid.UUID `json:"session_id"`
}

func (s *Server) handleActiveSession(w http.ResponseWriter, r *http.Request) {
	id, ok, err := s.ctl.ActiveSessionID(r.Context(), userIDFromContext(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	resp := activeSessionResponse{Active: ok}
	if ok {
		resp.SessionID = &id
	}
	writeJSON(w, http.StatusOK, resp)
}

type startRequest struct {
	SplitID     *uuid.UUID          `json:"split_id"`
	Policy      workout.StartPolicy `json:"policy"`
	ExerciseIDs []string            `json:"exercise_ids"`
	StartedAt   *time.Time          `json:"started_at"`
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	res, err := s.ctl.Start(r.Context(), userIDFromContext(r), req.SplitID, workout.StartOptions{
		Policy:            req.Policy,
		FromExerciseIDs:   req.ExerciseIDs,
		StartedAtOverride: req.StartedAt,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	status := http.StatusCreated
	if res.Resumed {
		status = http.StatusOK
	}
	writeJSON(w, status, res)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseTimeRange(r, historyWindow)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	sessions, err := s.store.ListSessions(r.Context(), userIDFromContext(r), start, end)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if sessions == nil {
		sessions = []models.WorkoutSession{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleSessionSummary(w http.ResponseWriter, r *http.Request) {
	bucket := r.URL.Query().Get("bucket")
	if bucket == "" {
		bucket = "week"
	}
	if !workout.ValidBucket(bucket) {
		writeJSON(w, http.StatusBadRequest, errorBody("bucket must be week or month"))
		return
	}
	start, end, err := parseTimeRange(r, summaryWindow)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	sessions, err := s.store.ListSessions(r.Context(), userIDFromContext(r), start, end)
	if err != nil {
		s.writeError(w, err)
		return
	}
	periods, err := workout.Summarize(sessions, bucket)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if periods == nil {
		periods = []workout.PeriodSummary{}
	}
	writeJSON(w, http.StatusOK, periods)
}

// openOwned loads the session named by the {id} path parameter. Sessions of
// other users are reported as not found.
func (s *Server) openOwned(w http.ResponseWriter, r *http.Request) (workout.Snapshot, bool) {
	id, err := uuidParam(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return workout.Snapshot{}, false
	}
	snap, err := s.ctl.Open(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return workout.Snapshot{}, false
	}
	if snap.Session().UserID != userIDFromContext(r) {
		s.writeError(w, workout.ErrSessionNotFound)
		return workout.Snapshot{}, false
	}
	return snap, true
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.openOwned(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleFinalizeSession(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.openOwned(w, r)
	if !ok {
		return
	}
	var opts workout.FinalizeOptions
	if err := decodeJSON(r, &opts); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	res, err := s.ctl.Finalize(r.Context(), snap.ID(), opts)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleDiscardSession(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.openOwned(w, r)
	if !ok {
		return
	}
	deleted, err := s.ctl.Discard(r.Context(), snap.ID())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": deleted})
}

type addExerciseRequest struct {
	ExerciseID string `json:"exercise_id"`
}

func (s *Server) handleAddExercise(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.openOwned(w, r)
	if !ok {
		return
	}
	var req addExerciseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	_, se, err := s.ctl.AddExercise(r.Context(), snap, req.ExerciseID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, se)
}

func (s *Server) handleRemoveExercise(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.openOwned(w, r)
	if !ok {
		return
	}
	eid, err := uuidParam(r, "eid")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	_, removed, err := s.ctl.RemoveExercise(r.Context(), snap, eid)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !removed {
		writeJSON(w, http.StatusNotFound, errorBody(workout.ErrExerciseNotFound.Error()))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type reorderRequest struct {
	Order []uuid.UUID `json:"order"`
}

func (s *Server) handleReorderExercises(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.openOwned(w, r)
	if !ok {
		return
	}
	var req reorderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	next, err := s.ctl.ReorderExercises(r.Context(), snap, req.Order)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, next)
}

func (s *Server) handleAddSet(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.openOwned(w, r)
	if !ok {
		return
	}
	eid, err := uuidParam(r, "eid")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	var req setRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	_, set, err := s.ctl.AddSet(r.Context(), snap, eid, req.fields())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, set)
}

func (s *Server) handleUpdateSet(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.openOwned(w, r)
	if !ok {
		return
	}
	sid, err := uuidParam(r, "sid")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	var req setPatchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	next, found, err := s.ctl.UpdateSet(r.Context(), snap, sid, req.patch())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !found {
		writeJSON(w, http.StatusNotFound, errorBody("set not found"))
		return
	}
	set, _ := next.Set(sid)
	writeJSON(w, http.StatusOK, set)
}

func (s *Server) handleDeleteSet(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.openOwned(w, r)
	if !ok {
		return
	}
	sid, err := uuidParam(r, "sid")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	if _, err := s.ctl.DeleteSet(r.Context(), snap, sid); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
