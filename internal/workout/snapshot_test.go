package workout

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/claude/splitlog/internal/models"
	"github.com/google/uuid"
)

// TestNewSnapshotOrdersRows verifies exercises and sets are sorted by position
// and orphan sets are dropped.
func TestNewSnapshotOrdersRows(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	snap := NewSnapshot(models.WorkoutSession{ID: uuid.New(), StartedAt: testStart},
		[]models.SessionExercise{{ID: b, ExerciseID: "squat", Position: 1}, {ID: a, ExerciseID: "bench", Position: 0}},
		[]models.Set{
			{ID: uuid.New(), SessionExerciseID: a, Position: 1, Reps: 6},
			{ID: uuid.New(), SessionExerciseID: a, Position: 0, Reps: 8},
			{ID: uuid.New(), SessionExerciseID: uuid.New(), Position: 0},
		})

	if got := snap.Exercises()[0].ExerciseID; got != "bench" {
		t.Errorf("first exercise = %q, want %q", got, "bench")
	}
	sets := snap.SetsFor(a)
	if len(sets) != 2 || sets[0].Reps != 8 {
		t.Errorf("sets = %+v", sets)
	}
	if n := len(snap.AllSets()); n != 2 {
		t.Errorf("all sets = %d, want 2", n)
	}
}

// TestSnapshotElapsed verifies the timer derives from started_at and stops at finished_at.
func TestSnapshotElapsed(t *testing.T) {
	snap := NewSnapshot(models.WorkoutSession{StartedAt: testStart}, nil, nil)
	if got := snap.Elapsed(testStart.Add(90 * time.Second)); got != 90*time.Second {
		t.Errorf("elapsed = %v, want 90s", got)
	}
	if got := snap.Elapsed(testStart.Add(-time.Minute)); got != 0 {
		t.Errorf("elapsed before start = %v, want 0", got)
	}

	finished := testStart.Add(time.Hour)
	done := NewSnapshot(models.WorkoutSession{StartedAt: testStart, FinishedAt: &finished}, nil, nil)
	if got := done.Elapsed(testStart.Add(5 * time.Hour)); got != time.Hour {
		t.Errorf("elapsed finished = %v, want 1h", got)
	}
}

// TestSnapshotMarshalJSON verifies sets are nested under their exercise.
func TestSnapshotMarshalJSON(t *testing.T) {
	a := uuid.New()
	snap := NewSnapshot(models.WorkoutSession{ID: uuid.New(), State: models.StateActive},
		[]models.SessionExercise{{ID: a, ExerciseID: "bench"}},
		[]models.Set{{ID: uuid.New(), SessionExerciseID: a, WeightKg: 60, Reps: 5}})

	data, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var out struct {
		Session   models.WorkoutSession `json:"session"`
		Exercises []struct {
			ExerciseID string       `json:"exercise_id"`
			Sets       []models.Set `json:"sets"`
		} `json:"exercises"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if out.Session.State != models.StateActive {
		t.Errorf("state = %q, want %q", out.Session.State, models.StateActive)
	}
	if len(out.Exercises) != 1 || len(out.Exercises[0].Sets) != 1 || out.Exercises[0].Sets[0].WeightKg != 60 {
		t.Errorf("exercises = %+v", out.Exercises)
	}
}
