package workout

import (
	"testing"
	"time"

	"github.com/claude/splitlog/internal/models"
	"github.com/google/uuid"
)

func completedSession(started time.Time, sets int, volume float64, minutes int) models.WorkoutSession {
	return models.WorkoutSession{
		ID:            uuid.New(),
		State:         models.StateCompleted,
		StartedAt:     started,
		TotalSets:     &sets,
		TotalVolumeKg: &volume,
		DurationMin:   &minutes,
	}
}

// TestSummarizeWeekly verifies sessions are grouped by ISO week, newest first.
func TestSummarizeWeekly(t *testing.T) {
	sessions := []models.WorkoutSession{
		completedSession(time.Date(2025, 3, 10, 18, 0, 0, 0, time.UTC), 12, 5000, 60), // Monday
		completedSession(time.Date(2025, 3, 16, 9, 0, 0, 0, time.UTC), 10, 4000, 50),  // Sunday, same week
		completedSession(time.Date(2025, 3, 3, 18, 0, 0, 0, time.UTC), 8, 3000, 45),
		{ID: uuid.New(), State: models.StateActive, StartedAt: time.Date(2025, 3, 11, 7, 0, 0, 0, time.UTC)},
	}

	got, err := Summarize(sessions, "week")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("periods = %d, want 2", len(got))
	}
	if got[0].Period != "2025-03-10" {
		t.Errorf("period = %q, want %q", got[0].Period, "2025-03-10")
	}
	if got[0].Sessions != 2 || got[0].TotalSets != 22 || got[0].TotalVolumeKg != 9000 || got[0].TotalMinutes != 110 {
		t.Errorf("week = %+v", got[0])
	}
	if got[1].Period != "2025-03-03" {
		t.Errorf("period = %q, want %q", got[1].Period, "2025-03-03")
	}
}

// TestSummarizeMonthly verifies monthly buckets and bucket validation.
func TestSummarizeMonthly(t *testing.T) {
	sessions := []models.WorkoutSession{
		completedSession(time.Date(2025, 2, 27, 18, 0, 0, 0, time.UTC), 5, 1000, 30),
		completedSession(time.Date(2025, 3, 1, 18, 0, 0, 0, time.UTC), 6, 2000, 40),
	}
	got, err := Summarize(sessions, "month")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if len(got) != 2 || got[0].Period != "2025-03-01" || got[1].Period != "2025-02-01" {
		t.Errorf("periods = %+v", got)
	}

	if _, err := Summarize(sessions, "day"); err == nil {
		t.Error("expected error for bucket day")
	}
}
