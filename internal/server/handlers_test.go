package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/claude/splitlog/internal/ingest/alpha"
	"github.com/claude/splitlog/internal/models"
	"github.com/claude/splitlog/internal/storage"
	"github.com/claude/splitlog/internal/workout"
	"github.com/google/uuid"
)

const testAPIKey = "test-key"

const importCSV = `
"Push · Day 1 · Week 4 · Push-Pull-Legs";"2026-02-17 5:04 h";"1:12 hr"
"1. Bench Press · Barbell · 6 reps";"WU1 · 47,5 kg · 8 reps"
#;KG;REPS;RIR
1;102,5;6;0
2;100;6;0
`

func newTestServer(t *testing.T) *Server {
	t.Helper()
	db, err := storage.OpenLocal(filepath.Join(t.TempDir(), "splitlog.db"))
	if err != nil {
		t.Fatalf("OpenLocal: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctl := workout.New(db, log)
	return New(db, ctl, alpha.NewProvider(db, ctl, log), testAPIKey, log)
}

type call struct {
	method string
	path   string
	body   any
	header map[string]string
}

func (s *Server) do(t *testing.T, c call) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	switch b := c.body.(type) {
	case nil:
	case string:
		body = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(c.method, c.path, body)
	for k, v := range c.header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

type sessionView struct {
	Session   models.WorkoutSession `json:"session"`
	Exercises []struct {
		models.SessionExercise
		Sets []models.Set `json:"sets"`
	} `json:"exercises"`
}

func (s *Server) startSession(t *testing.T, exerciseIDs ...string) uuid.UUID {
	t.Helper()
	rec := s.do(t, call{method: http.MethodPost, path: "/api/v1/sessions", body: map[string]any{"exercise_ids": exerciseIDs}})
	if rec.Code != http.StatusCreated {
		t.Fatalf("start status = %d, body %s", rec.Code, rec.Body)
	}
	return decode[workout.StartResult](t, rec).SessionID
}

// TestStartThenResume verifies the second start resumes with 200 and the
// active endpoint reports the session.
func TestStartThenResume(t *testing.T) {
	s := newTestServer(t)
	id := s.startSession(t, "bench")

	rec := s.do(t, call{method: http.MethodPost, path: "/api/v1/sessions", body: map[string]any{"exercise_ids": []string{"squat"}}})
	if rec.Code != http.StatusOK {
		t.Fatalf("resume status = %d, want 200", rec.Code)
	}
	res := decode[workout.StartResult](t, rec)
	if !res.Resumed || res.SessionID != id {
		t.Errorf("resume = %+v, want resumed %s", res, id)
	}

	rec = s.do(t, call{method: http.MethodGet, path: "/api/v1/sessions/active"})
	active := decode[activeSessionResponse](t, rec)
	if !active.Active || active.SessionID == nil || *active.SessionID != id {
		t.Errorf("active = %+v, want %s", active, id)
	}
}

// TestActiveSessionNone verifies a user without a session gets a null id.
func TestActiveSessionNone(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, call{method: http.MethodGet, path: "/api/v1/sessions/active"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"active":false,"session_id":null}` {
		t.Errorf("body = %s", got)
	}
}

// TestStartInvalidPolicy verifies an unknown policy is a 400.
func TestStartInvalidPolicy(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, call{method: http.MethodPost, path: "/api/v1/sessions", body: map[string]any{"policy": "sometimes"}})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

// TestSessionWorkflow walks a session through set logging and finalize.
func TestSessionWorkflow(t *testing.T) {
	s := newTestServer(t)
	id := s.startSession(t, "bench")
	base := "/api/v1/sessions/" + id.String()

	view := decode[sessionView](t, s.do(t, call{method: http.MethodGet, path: base}))
	if len(view.Exercises) != 1 || view.Exercises[0].ExerciseID != "bench" {
		t.Fatalf("exercises = %+v", view.Exercises)
	}
	eid := view.Exercises[0].ID

	rec := s.do(t, call{method: http.MethodPost, path: base + "/exercises/" + eid.String() + "/sets",
		body: `{"weight":"102,5","reps":"8","is_completed":true}`})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add set status = %d, body %s", rec.Code, rec.Body)
	}
	set := decode[models.Set](t, rec)
	if set.WeightKg != 102.5 || set.Reps != 8 {
		t.Errorf("set = %+v, want 102.5 kg x 8", set)
	}

	rec = s.do(t, call{method: http.MethodPost, path: base + "/exercises/" + eid.String() + "/sets",
		body: `{"weight":"abc","reps":""}`})
	junk := decode[models.Set](t, rec)
	if junk.WeightKg != 0 || junk.Reps != 0 {
		t.Errorf("unparseable input set = %+v, want zeros", junk)
	}

	rec = s.do(t, call{method: http.MethodPatch, path: base + "/sets/" + set.ID.String(), body: `{"reps":10}`})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body %s", rec.Code, rec.Body)
	}
	if got := decode[models.Set](t, rec); got.Reps != 10 || got.WeightKg != 102.5 {
		t.Errorf("updated set = %+v", got)
	}

	rec = s.do(t, call{method: http.MethodPatch, path: base + "/sets/" + uuid.NewString(), body: `{"reps":1}`})
	if rec.Code != http.StatusNotFound {
		t.Errorf("update missing set status = %d, want 404", rec.Code)
	}

	for range 2 {
		rec = s.do(t, call{method: http.MethodDelete, path: base + "/sets/" + junk.ID.String()})
		if rec.Code != http.StatusNoContent {
			t.Errorf("delete set status = %d, want 204", rec.Code)
		}
	}

	rec = s.do(t, call{method: http.MethodPost, path: base + "/finalize", body: map[string]any{"note": "good"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("finalize status = %d, body %s", rec.Code, rec.Body)
	}
	fin := decode[workout.FinalizeResult](t, rec)
	if fin.State != models.StateCompleted || fin.Aggregates.TotalSets != 1 || fin.Aggregates.TotalVolumeKg != 1025 {
		t.Errorf("finalize = %+v", fin)
	}

	rec = s.do(t, call{method: http.MethodPost, path: base + "/finalize"})
	if !decode[workout.FinalizeResult](t, rec).AlreadyFinalized {
		t.Error("second finalize should report already_finalized")
	}

	rec = s.do(t, call{method: http.MethodPost, path: base + "/exercises/" + eid.String() + "/sets", body: `{"weight":50,"reps":5}`})
	if rec.Code != http.StatusConflict {
		t.Errorf("add set after finalize status = %d, want 409", rec.Code)
	}
}

// TestExerciseEndpoints covers add, reorder and remove.
func TestExerciseEndpoints(t *testing.T) {
	s := newTestServer(t)
	id := s.startSession(t, "bench")
	base := "/api/v1/sessions/" + id.String()

	rec := s.do(t, call{method: http.MethodPost, path: base + "/exercises", body: map[string]string{"exercise_id": "row"}})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add exercise status = %d, body %s", rec.Code, rec.Body)
	}
	row := decode[models.SessionExercise](t, rec)

	rec = s.do(t, call{method: http.MethodPost, path: base + "/exercises", body: map[string]string{"exercise_id": ""}})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty exercise status = %d, want 400", rec.Code)
	}

	view := decode[sessionView](t, s.do(t, call{method: http.MethodGet, path: base}))
	bench := view.Exercises[0].ID

	rec = s.do(t, call{method: http.MethodPut, path: base + "/exercises/order", body: map[string]any{"order": []uuid.UUID{row.ID}}})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("partial reorder status = %d, want 400", rec.Code)
	}

	rec = s.do(t, call{method: http.MethodPut, path: base + "/exercises/order", body: map[string]any{"order": []uuid.UUID{row.ID, bench}}})
	if rec.Code != http.StatusOK {
		t.Fatalf("reorder status = %d, body %s", rec.Code, rec.Body)
	}
	view = decode[sessionView](t, rec)
	if view.Exercises[0].ExerciseID != "row" {
		t.Errorf("first exercise = %q, want row", view.Exercises[0].ExerciseID)
	}

	rec = s.do(t, call{method: http.MethodDelete, path: base + "/exercises/" + bench.String()})
	if rec.Code != http.StatusNoContent {
		t.Errorf("remove status = %d, want 204", rec.Code)
	}
	rec = s.do(t, call{method: http.MethodDelete, path: base + "/exercises/" + bench.String()})
	if rec.Code != http.StatusNotFound {
		t.Errorf("second remove status = %d, want 404", rec.Code)
	}
}

// TestSessionOwnership verifies another user's session is invisible.
func TestSessionOwnership(t *testing.T) {
	s := newTestServer(t)
	id := s.startSession(t)

	rec := s.do(t, call{method: http.MethodGet, path: "/api/v1/sessions/" + id.String(), header: map[string]string{"X-User-ID": "2"}})
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	rec = s.do(t, call{method: http.MethodDelete, path: "/api/v1/sessions/" + id.String(), header: map[string]string{"X-User-ID": "2"}})
	if rec.Code != http.StatusNotFound {
		t.Errorf("discard status = %d, want 404", rec.Code)
	}
}

// TestDeleteSetOfOtherUser verifies a set id from another user's session
// cannot be deleted through one's own session.
func TestDeleteSetOfOtherUser(t *testing.T) {
	s := newTestServer(t)
	user2 := map[string]string{"X-User-ID": "2"}

	rec := s.do(t, call{method: http.MethodPost, path: "/api/v1/sessions", body: map[string]any{"exercise_ids": []string{"deadlift"}}, header: user2})
	if rec.Code != http.StatusCreated {
		t.Fatalf("start status = %d, body %s", rec.Code, rec.Body)
	}
	otherBase := "/api/v1/sessions/" + decode[workout.StartResult](t, rec).SessionID.String()
	view := decode[sessionView](t, s.do(t, call{method: http.MethodGet, path: otherBase, header: user2}))
	rec = s.do(t, call{method: http.MethodPost, path: otherBase + "/exercises/" + view.Exercises[0].ID.String() + "/sets",
		body: `{"weight":180,"reps":3}`, header: user2})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add set status = %d, body %s", rec.Code, rec.Body)
	}
	foreign := decode[models.Set](t, rec)

	own := s.startSession(t, "bench")
	rec = s.do(t, call{method: http.MethodDelete, path: "/api/v1/sessions/" + own.String() + "/sets/" + foreign.ID.String()})
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", rec.Code)
	}

	view = decode[sessionView](t, s.do(t, call{method: http.MethodGet, path: otherBase, header: user2}))
	if sets := view.Exercises[0].Sets; len(sets) != 1 || sets[0].ID != foreign.ID {
		t.Errorf("other user's sets = %+v, want the set kept", sets)
	}
}

// TestSetInputRejectsNonFiniteAndNegative verifies NaN, infinite and negative
// numbers are stored as 0.
func TestSetInputRejectsNonFiniteAndNegative(t *testing.T) {
	s := newTestServer(t)
	id := s.startSession(t, "bench")
	base := "/api/v1/sessions/" + id.String()
	view := decode[sessionView](t, s.do(t, call{method: http.MethodGet, path: base}))
	setsPath := base + "/exercises/" + view.Exercises[0].ID.String() + "/sets"

	for _, body := range []string{
		`{"weight":"NaN","reps":5}`,
		`{"weight":"Inf","reps":5}`,
		`{"weight":"-Infinity","reps":5}`,
		`{"weight":-100,"reps":5,"rest_sec":-60,"distance_m":-3}`,
	} {
		rec := s.do(t, call{method: http.MethodPost, path: setsPath, body: body})
		if rec.Code != http.StatusCreated {
			t.Fatalf("%s: status = %d, body %s", body, rec.Code, rec.Body)
		}
		set := decode[models.Set](t, rec)
		if set.WeightKg != 0 || set.Reps != 5 {
			t.Errorf("%s: set = %+v, want 0 kg x 5", body, set)
		}
		if set.RestSec != nil && *set.RestSec != 0 || set.DistanceM != nil && *set.DistanceM != 0 {
			t.Errorf("%s: set = %+v, want rest and distance 0", body, set)
		}
	}

	rec := s.do(t, call{method: http.MethodPost, path: setsPath, body: `{"weight":100,"reps":5}`})
	set := decode[models.Set](t, rec)
	rec = s.do(t, call{method: http.MethodPatch, path: base + "/sets/" + set.ID.String(), body: `{"weight":"nan","reps":-5}`})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body %s", rec.Code, rec.Body)
	}
	if got := decode[models.Set](t, rec); got.WeightKg != 0 || got.Reps != 0 {
		t.Errorf("updated set = %+v, want zeros", got)
	}

	rec = s.do(t, call{method: http.MethodPost, path: base + "/finalize"})
	if fin := decode[workout.FinalizeResult](t, rec); fin.Aggregates.TotalVolumeKg != 0 {
		t.Errorf("volume = %v, want 0", fin.Aggregates.TotalVolumeKg)
	}
}

// TestDiscardSession verifies discard removes the session.
func TestDiscardSession(t *testing.T) {
	s := newTestServer(t)
	id := s.startSession(t, "bench")
	path := "/api/v1/sessions/" + id.String()

	rec := s.do(t, call{method: http.MethodDelete, path: path})
	if rec.Code != http.StatusOK {
		t.Fatalf("discard status = %d, body %s", rec.Code, rec.Body)
	}
	if !decode[map[string]bool](t, rec)["deleted"] {
		t.Error("deleted = false, want true")
	}
	if rec := s.do(t, call{method: http.MethodGet, path: path}); rec.Code != http.StatusNotFound {
		t.Errorf("get after discard status = %d, want 404", rec.Code)
	}
}

// TestBadSessionID verifies malformed ids are a 400.
func TestBadSessionID(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, call{method: http.MethodGet, path: "/api/v1/sessions/not-a-uuid"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

// TestHistoryAndSummary verifies finalized sessions show up in history and
// the weekly summary.
func TestHistoryAndSummary(t *testing.T) {
	s := newTestServer(t)
	id := s.startSession(t)
	if rec := s.do(t, call{method: http.MethodPost, path: "/api/v1/sessions/" + id.String() + "/finalize"}); rec.Code != http.StatusOK {
		t.Fatalf("finalize status = %d", rec.Code)
	}

	rec := s.do(t, call{method: http.MethodGet, path: "/api/v1/sessions"})
	sessions := decode[[]models.WorkoutSession](t, rec)
	if len(sessions) != 1 || sessions[0].ID != id {
		t.Fatalf("history = %+v", sessions)
	}

	rec = s.do(t, call{method: http.MethodGet, path: "/api/v1/sessions/summary?bucket=month"})
	periods := decode[[]workout.PeriodSummary](t, rec)
	if len(periods) != 1 || periods[0].Sessions != 1 {
		t.Errorf("summary = %+v", periods)
	}

	rec = s.do(t, call{method: http.MethodGet, path: "/api/v1/sessions/summary?bucket=year"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad bucket status = %d, want 400", rec.Code)
	}
}

// TestSplits verifies a created split is listed and seeds a session.
func TestSplits(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, call{method: http.MethodPost, path: "/api/v1/splits", body: map[string]any{
		"name": "Push", "color": "#ff0000", "weekdays": []int{1, 4}, "exercise_ids": []string{"bench", "ohp"},
	}})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body)
	}
	split := decode[models.Split](t, rec)

	splits := decode[[]models.Split](t, s.do(t, call{method: http.MethodGet, path: "/api/v1/splits"}))
	if len(splits) != 1 || splits[0].Name != "Push" {
		t.Fatalf("splits = %+v", splits)
	}

	rec = s.do(t, call{method: http.MethodPost, path: "/api/v1/sessions", body: map[string]any{"split_id": split.ID}})
	id := decode[workout.StartResult](t, rec).SessionID
	view := decode[sessionView](t, s.do(t, call{method: http.MethodGet, path: "/api/v1/sessions/" + id.String()}))
	if len(view.Exercises) != 2 || view.Exercises[1].ExerciseID != "ohp" {
		t.Errorf("exercises = %+v", view.Exercises)
	}

	rec = s.do(t, call{method: http.MethodPost, path: "/api/v1/splits", body: map[string]any{"name": " "}})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("blank name status = %d, want 400", rec.Code)
	}
}

// TestAlphaImport verifies the import endpoint requires the API key and
// refuses to run during an active session.
func TestAlphaImport(t *testing.T) {
	s := newTestServer(t)
	path := "/api/v1/import/alpha"

	if rec := s.do(t, call{method: http.MethodPost, path: path, body: importCSV}); rec.Code != http.StatusUnauthorized {
		t.Errorf("no key status = %d, want 401", rec.Code)
	}

	keyed := map[string]string{"X-API-Key": testAPIKey, "Content-Type": "text/csv"}
	rec := s.do(t, call{method: http.MethodPost, path: path, body: importCSV, header: keyed})
	if rec.Code != http.StatusOK {
		t.Fatalf("import status = %d, body %s", rec.Code, rec.Body)
	}
	var res struct {
		SessionsImported int `json:"sessions_imported"`
		SetsImported     int `json:"sets_imported"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.SessionsImported != 1 || res.SetsImported != 3 {
		t.Errorf("result = %+v, want 1 session / 3 sets", res)
	}

	s.startSession(t)
	rec = s.do(t, call{method: http.MethodPost, path: path, body: importCSV, header: keyed})
	if rec.Code != http.StatusConflict {
		t.Errorf("import during session status = %d, want 409", rec.Code)
	}
}

// TestParseTimeRange verifies defaults and date-only end handling.
func TestParseTimeRange(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?start=2025-03-01&end=2025-03-07", nil)
	start, end, err := parseTimeRange(req, historyWindow)
	if err != nil {
		t.Fatalf("parseTimeRange: %v", err)
	}
	if want := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC); !start.Equal(want) {
		t.Errorf("start = %v, want %v", start, want)
	}
	if want := time.Date(2025, 3, 8, 0, 0, 0, 0, time.UTC); !end.Equal(want) {
		t.Errorf("end = %v, want %v", end, want)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	start, end, err = parseTimeRange(req, historyWindow)
	if err != nil {
		t.Fatalf("parseTimeRange: %v", err)
	}
	if got := end.Sub(start); got != historyWindow {
		t.Errorf("default window = %v, want %v", got, historyWindow)
	}

	req = httptest.NewRequest(http.MethodGet, "/?start=yesterday", nil)
	if _, _, err := parseTimeRange(req, historyWindow); err == nil {
		t.Error("expected error for bad start")
	}
}
