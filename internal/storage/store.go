package storage

import (
	"context"
	"errors"
	"time"

	"github.com/claude/splitlog/internal/models"
	"github.com/google/uuid"
)

// ErrNotFound is returned by lookups of a single row that does not exist.
var ErrNotFound = errors.New("not found")

// Store is the persistence contract the workout controller is written against.
// It is a plain CRUD surface: it does not enforce one active session per user.
type Store interface {
	CreateSession(ctx context.Context, userID int, splitID *uuid.UUID, startedAt time.Time) (uuid.UUID, error)
	GetSession(ctx context.Context, sessionID uuid.UUID) (*models.WorkoutSession, error)
	// GetActiveSession returns nil, nil when the user has no active session.
	GetActiveSession(ctx context.Context, userID int) (*models.SessionSummary, error)
	ListSessions(ctx context.Context, userID int, start, end time.Time) ([]models.WorkoutSession, error)
	FinalizeSession(ctx context.Context, sessionID uuid.UUID, agg models.Aggregates, state models.SessionState) (bool, error)
	DeleteSession(ctx context.Context, sessionID uuid.UUID) (bool, error)

	AddSessionExercise(ctx context.Context, sessionID uuid.UUID, exerciseID string) (models.SessionExercise, error)
	ListSessionExercises(ctx context.Context, sessionID uuid.UUID) ([]models.SessionExercise, error)
	RemoveSessionExercise(ctx context.Context, sessionExerciseID uuid.UUID) (bool, error)
	ReorderSessionExercises(ctx context.Context, sessionID uuid.UUID, ordered []uuid.UUID) error

	AddSet(ctx context.Context, sessionExerciseID uuid.UUID, fields models.SetFields) (models.Set, error)
	ListSets(ctx context.Context, sessionID uuid.UUID) ([]models.Set, error)
	UpdateSet(ctx context.Context, setID uuid.UUID, patch models.SetPatch) (bool, error)
	DeleteSet(ctx context.Context, setID uuid.UUID) (bool, error)

	CreateSplit(ctx context.Context, split models.Split) (models.Split, error)
	GetSplit(ctx context.Context, splitID uuid.UUID) (*models.Split, error)
	ListSplits(ctx context.Context, userID int) ([]models.Split, error)
}

// Compile-time checks: both backends satisfy Store.
var (
	_ Store = (*DB)(nil)
	_ Store = (*LocalDB)(nil)
)
