package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionState is the lifecycle state of a workout session.
type SessionState string

const (
	StateActive    SessionState = "active"
	StateCompleted SessionState = "completed"
	StateCancelled SessionState = "cancelled"
)

// IsTerminal reports whether the state can no longer change.
func (s SessionState) IsTerminal() bool {
	return s == StateCompleted || s == StateCancelled
}

// IsValid reports whether s is one of the known states.
func (s SessionState) IsValid() bool {
	switch s {
	case StateActive, StateCompleted, StateCancelled:
		return true
	default:
		return false
	}
}

// WorkoutSession is a row of the workout_sessions table.
// The aggregate fields are only populated at finalize time.
type WorkoutSession struct {
	ID            uuid.UUID    `json:"id"`
	UserID        int          `json:"user_id"`
	SplitID       *uuid.UUID   `json:"split_id,omitempty"`
	State         SessionState `json:"state"`
	StartedAt     time.Time    `json:"started_at"`
	FinishedAt    *time.Time   `json:"finished_at,omitempty"`
	DurationMin   *int         `json:"duration_min,omitempty"`
	TotalVolumeKg *float64     `json:"total_volume_kg,omitempty"`
	TotalSets     *int         `json:"total_sets,omitempty"`
	Note          *string      `json:"note,omitempty"`
	SessionName   *string      `json:"session_name,omitempty"`
}

// SessionSummary is the minimal view returned by an active-session lookup.
type SessionSummary struct {
	ID        uuid.UUID  `json:"id"`
	UserID    int        `json:"user_id"`
	SplitID   *uuid.UUID `json:"split_id,omitempty"`
	StartedAt time.Time  `json:"started_at"`
}

// SessionExercise is an exercise placed into a session, ordered by Position.
type SessionExercise struct {
	ID         uuid.UUID `json:"id"`
	SessionID  uuid.UUID `json:"session_id"`
	ExerciseID string    `json:"exercise_id"`
	Position   int       `json:"position"`
}

// Set is a single set of a session exercise. Weight is always stored in kilograms.
type Set struct {
	ID                uuid.UUID `json:"id"`
	SessionExerciseID uuid.UUID `json:"session_exercise_id"`
	Position          int       `json:"position"`
	WeightKg          float64   `json:"weight_kg"`
	Reps              int       `json:"reps"`
	DurationSec       *int      `json:"duration_sec,omitempty"`
	DistanceM         *float64  `json:"distance_m,omitempty"`
	RestSec           *int      `json:"rest_sec,omitempty"`
	IsWarmup          bool      `json:"is_warmup"`
	IsCompleted       bool      `json:"is_completed"`
}

// Volume returns weight × reps for the set.
func (s Set) Volume() float64 {
	return s.WeightKg * float64(s.Reps)
}

// SetFields seeds a new set. Zero values mean "unspecified".
type SetFields struct {
	Weight      float64    `json:"weight"`
	Unit        WeightUnit `json:"unit,omitempty"`
	Reps        int        `json:"reps"`
	DurationSec *int       `json:"duration_sec,omitempty"`
	DistanceM   *float64   `json:"distance_m,omitempty"`
	RestSec     *int       `json:"rest_sec,omitempty"`
	IsWarmup    bool       `json:"is_warmup"`
	IsCompleted bool       `json:"is_completed"`
}

// Normalized returns a copy with the weight converted to kilograms and Unit cleared.
// Negative or non-finite numbers become 0.
func (f SetFields) Normalized() SetFields {
	f.Weight = nonNegative(f.Unit.ToKg(f.Weight))
	f.Unit = UnitKg
	f.Reps = max(f.Reps, 0)
	f.DurationSec = nonNegativePtr(f.DurationSec)
	f.DistanceM = nonNegativePtr(f.DistanceM)
	f.RestSec = nonNegativePtr(f.RestSec)
	return f
}

// SetPatch is a partial update of a set. Nil fields are left untouched.
type SetPatch struct {
	Weight      *float64   `json:"weight,omitempty"`
	Unit        WeightUnit `json:"unit,omitempty"`
	Reps        *int       `json:"reps,omitempty"`
	DurationSec *int       `json:"duration_sec,omitempty"`
	DistanceM   *float64   `json:"distance_m,omitempty"`
	RestSec     *int       `json:"rest_sec,omitempty"`
	IsWarmup    *bool      `json:"is_warmup,omitempty"`
	IsCompleted *bool      `json:"is_completed,omitempty"`
}

// Normalized returns a copy with the weight converted to kilograms.
// Negative or non-finite numbers become 0.
func (p SetPatch) Normalized() SetPatch {
	if p.Weight != nil {
		kg := nonNegative(p.Unit.ToKg(*p.Weight))
		p.Weight = &kg
	}
	p.Unit = UnitKg
	p.Reps = nonNegativePtr(p.Reps)
	p.DurationSec = nonNegativePtr(p.DurationSec)
	p.DistanceM = nonNegativePtr(p.DistanceM)
	p.RestSec = nonNegativePtr(p.RestSec)
	return p
}

// IsEmpty reports whether the patch changes nothing.
func (p SetPatch) IsEmpty() bool {
	return p.Weight == nil && p.Reps == nil && p.DurationSec == nil && p.DistanceM == nil &&
		p.RestSec == nil && p.IsWarmup == nil && p.IsCompleted == nil
}

// Apply returns s with the (already normalized) patch applied.
func (p SetPatch) Apply(s Set) Set {
	if p.Weight != nil {
		s.WeightKg = *p.Weight
	}
	if p.Reps != nil {
		s.Reps = *p.Reps
	}
	if p.DurationSec != nil {
		v := *p.DurationSec
		s.DurationSec = &v
	}
	if p.DistanceM != nil {
		v := *p.DistanceM
		s.DistanceM = &v
	}
	if p.RestSec != nil {
		v := *p.RestSec
		s.RestSec = &v
	}
	if p.IsWarmup != nil {
		s.IsWarmup = *p.IsWarmup
	}
	if p.IsCompleted != nil {
		s.IsCompleted = *p.IsCompleted
	}
	return s
}

// Aggregates are the values written when a session is finalized.
type Aggregates struct {
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
	DurationMin   int       `json:"duration_min"`
	TotalVolumeKg float64   `json:"total_volume_kg"`
	TotalSets     int       `json:"total_sets"`
	Note          *string   `json:"note,omitempty"`
	SessionName   *string   `json:"session_name,omitempty"`
}
