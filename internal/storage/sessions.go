package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/claude/splitlog/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const sessionColumns = `id, user_id, split_id, state, started_at, finished_at,
	duration_min, total_volume_kg, total_sets, note, session_name`

// CreateSession inserts a new active session and returns its id.
func (db *DB) CreateSession(ctx context.Context, userID int, splitID *uuid.UUID, startedAt time.Time) (uuid.UUID, error) {
	id := uuid.New()
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO workout_sessions (id, user_id, split_id, state, started_at)
		 VALUES ($1, $2, $3, 'active', $4)`,
		id, userID, splitID, startedAt)
	if err != nil {
		return uuid.Nil, fmt.Errorf("inserting session: %w", err)
	}
	return id, nil
}

// GetSession retrieves a single session by id.
func (db *DB) GetSession(ctx context.Context, sessionID uuid.UUID) (*models.WorkoutSession, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM workout_sessions WHERE id = $1`, sessionID)
	s, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}
	return s, nil
}

// GetActiveSession returns the newest active session of the user, or nil.
func (db *DB) GetActiveSession(ctx context.Context, userID int) (*models.SessionSummary, error) {
	var s models.SessionSummary
	err := db.Pool.QueryRow(ctx,
		`SELECT id, user_id, split_id, started_at
		 FROM workout_sessions
		 WHERE user_id = $1 AND state = 'active'
		 ORDER BY started_at DESC
		 LIMIT 1`,
		userID).Scan(&s.ID, &s.UserID, &s.SplitID, &s.StartedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying active session: %w", err)
	}
	return &s, nil
}

// ListSessions retrieves sessions started in [start, end), newest first.
func (db *DB) ListSessions(ctx context.Context, userID int, start, end time.Time) ([]models.WorkoutSession, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT `+sessionColumns+`
		 FROM workout_sessions
		 WHERE user_id = $1 AND started_at >= $2 AND started_at < $3
		 ORDER BY started_at DESC`,
		userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var result []models.WorkoutSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		result = append(result, *s)
	}
	return result, rows.Err()
}

// FinalizeSession writes the aggregates and moves the session out of the
// active state in one statement. Returns false if the session was not active.
func (db *DB) FinalizeSession(ctx context.Context, sessionID uuid.UUID, agg models.Aggregates, state models.SessionState) (bool, error) {
	tag, err := db.Pool.Exec(ctx,
		`UPDATE workout_sessions
		 SET state = $2, started_at = $3, finished_at = $4, duration_min = $5,
		     total_volume_kg = $6, total_sets = $7, note = $8, session_name = $9
		 WHERE id = $1 AND state = 'active'`,
		sessionID, string(state), agg.StartedAt, agg.FinishedAt, agg.DurationMin,
		agg.TotalVolumeKg, agg.TotalSets, agg.Note, agg.SessionName)
	if err != nil {
		return false, fmt.Errorf("finalizing session: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteSession removes a session; exercises and sets go with it (ON DELETE CASCADE).
func (db *DB) DeleteSession(ctx context.Context, sessionID uuid.UUID) (bool, error) {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM workout_sessions WHERE id = $1`, sessionID)
	if err != nil {
		return false, fmt.Errorf("deleting session: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func scanSession(row pgx.Row) (*models.WorkoutSession, error) {
	var s models.WorkoutSession
	var state string
	if err := row.Scan(&s.ID, &s.UserID, &s.SplitID, &state, &s.StartedAt, &s.FinishedAt,
		&s.DurationMin, &s.TotalVolumeKg, &s.TotalSets, &s.Note, &s.SessionName); err != nil {
		return nil, err
	}
	s.State = models.SessionState(state)
	return &s, nil
}
