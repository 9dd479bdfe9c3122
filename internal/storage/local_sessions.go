package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/claude/splitlog/internal/models"
	"github.com/google/uuid"
)

// CreateSession inserts a new active session and returns its id.
func (l *LocalDB) CreateSession(ctx context.Context, userID int, splitID *uuid.UUID, startedAt time.Time) (uuid.UUID, error) {
	id := uuid.New()
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO workout_sessions (id, user_id, split_id, state, started_at) VALUES (?, ?, ?, 'active', ?)`,
		id.String(), userID, nullUUID(splitID), toMillis(startedAt))
	if err != nil {
		return uuid.Nil, fmt.Errorf("inserting session: %w", err)
	}
	return id, nil
}

// GetSession retrieves a single session by id.
func (l *LocalDB) GetSession(ctx context.Context, sessionID uuid.UUID) (*models.WorkoutSession, error) {
	row := l.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM workout_sessions WHERE id = ?`, sessionID.String())
	s, err := scanLocalSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}
	return s, nil
}

// GetActiveSession returns the newest active session of the user, or nil.
func (l *LocalDB) GetActiveSession(ctx context.Context, userID int) (*models.SessionSummary, error) {
	var (
		s         models.SessionSummary
		splitID   uuid.NullUUID
		startedAt int64
	)
	err := l.db.QueryRowContext(ctx,
		`SELECT id, user_id, split_id, started_at
		 FROM workout_sessions
		 WHERE user_id = ? AND state = 'active'
		 ORDER BY started_at DESC
		 LIMIT 1`,
		userID).Scan(&s.ID, &s.UserID, &splitID, &startedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying active session: %w", err)
	}
	s.SplitID = uuidPtr(splitID)
	s.StartedAt = fromMillis(startedAt)
	return &s, nil
}

// ListSessions retrieves sessions started in [start, end), newest first.
func (l *LocalDB) ListSessions(ctx context.Context, userID int, start, end time.Time) ([]models.WorkoutSession, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT `+sessionColumns+`
		 FROM workout_sessions
		 WHERE user_id = ? AND started_at >= ? AND started_at < ?
		 ORDER BY started_at DESC`,
		userID, toMillis(start), toMillis(end))
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var result []models.WorkoutSession
	for rows.Next() {
		s, err := scanLocalSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		result = append(result, *s)
	}
	return result, rows.Err()
}

// FinalizeSession writes the aggregates and moves the session out of the
// active state in one statement. Returns false if the session was not active.
func (l *LocalDB) FinalizeSession(ctx context.Context, sessionID uuid.UUID, agg models.Aggregates, state models.SessionState) (bool, error) {
	res, err := l.db.ExecContext(ctx,
		`UPDATE workout_sessions
		 SET state = ?, started_at = ?, finished_at = ?, duration_min = ?,
		     total_volume_kg = ?, total_sets = ?, note = ?, session_name = ?
		 WHERE id = ? AND state = 'active'`,
		string(state), toMillis(agg.StartedAt), toMillis(agg.FinishedAt), agg.DurationMin,
		agg.TotalVolumeKg, agg.TotalSets, agg.Note, agg.SessionName, sessionID.String())
	if err != nil {
		return false, fmt.Errorf("finalizing session: %w", err)
	}
	return affected(res)
}

// DeleteSession removes a session together with its exercises and sets.
func (l *LocalDB) DeleteSession(ctx context.Context, sessionID uuid.UUID) (bool, error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning session delete: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	id := sessionID.String()
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM session_sets WHERE session_exercise_id IN
		 (SELECT id FROM session_exercises WHERE session_id = ?)`, id); err != nil {
		return false, fmt.Errorf("deleting session sets: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM session_exercises WHERE session_id = ?`, id); err != nil {
		return false, fmt.Errorf("deleting session exercises: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM workout_sessions WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("deleting session: %w", err)
	}
	deleted, err := affected(res)
	if err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing session delete: %w", err)
	}
	return deleted, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLocalSession(row rowScanner) (*models.WorkoutSession, error) {
	var (
		s          models.WorkoutSession
		splitID    uuid.NullUUID
		state      string
		startedAt  int64
		finishedAt sql.NullInt64
	)
	if err := row.Scan(&s.ID, &s.UserID, &splitID, &state, &startedAt, &finishedAt,
		&s.DurationMin, &s.TotalVolumeKg, &s.TotalSets, &s.Note, &s.SessionName); err != nil {
		return nil, err
	}
	s.SplitID = uuidPtr(splitID)
	s.State = models.SessionState(state)
	s.StartedAt = fromMillis(startedAt)
	s.FinishedAt = fromNullMillis(finishedAt)
	return &s, nil
}

func nullUUID(id *uuid.UUID) any {
	if id == nil {
		return nil
	}
	return id.String()
}

func uuidPtr(n uuid.NullUUID) *uuid.UUID {
	if !n.Valid {
		return nil
	}
	id := n.UUID
	return &id
}
