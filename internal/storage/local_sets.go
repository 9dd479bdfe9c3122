package storage

import (
	"context"
	"fmt"

	"github.com/claude/splitlog/internal/models"
	"github.com/google/uuid"
)

// AddSessionExercise appends an exercise to the end of the session's list.
func (l *LocalDB) AddSessionExercise(ctx context.Context, sessionID uuid.UUID, exerciseID string) (models.SessionExercise, error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return models.SessionExercise{}, fmt.Errorf("beginning exercise insert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	se := models.SessionExercise{ID: uuid.New(), SessionID: sessionID, ExerciseID: exerciseID}
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position) + 1, 0) FROM session_exercises WHERE session_id = ?`,
		sessionID.String()).Scan(&se.Position); err != nil {
		return models.SessionExercise{}, fmt.Errorf("querying next exercise position: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO session_exercises (id, session_id, exercise_id, position) VALUES (?, ?, ?, ?)`,
		se.ID.String(), sessionID.String(), exerciseID, se.Position); err != nil {
		return models.SessionExercise{}, fmt.Errorf("inserting session exercise: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return models.SessionExercise{}, fmt.Errorf("committing session exercise: %w", err)
	}
	return se, nil
}

// ListSessionExercises retrieves the session's exercises in position order.
func (l *LocalDB) ListSessionExercises(ctx context.Context, sessionID uuid.UUID) ([]models.SessionExercise, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, session_id, exercise_id, position
		 FROM session_exercises
		 WHERE session_id = ?
		 ORDER BY position ASC`,
		sessionID.String())
	if err != nil {
		return nil, fmt.Errorf("querying session exercises: %w", err)
	}
	defer rows.Close()

	var result []models.SessionExercise
	for rows.Next() {
		var se models.SessionExercise
		if err := rows.Scan(&se.ID, &se.SessionID, &se.ExerciseID, &se.Position); err != nil {
			return nil, fmt.Errorf("scanning session exercise: %w", err)
		}
		result = append(result, se)
	}
	return result, rows.Err()
}

// RemoveSessionExercise deletes the exercise and its sets.
func (l *LocalDB) RemoveSessionExercise(ctx context.Context, sessionExerciseID uuid.UUID) (bool, error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning exercise delete: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	id := sessionExerciseID.String()
	if _, err := tx.ExecContext(ctx, `DELETE FROM session_sets WHERE session_exercise_id = ?`, id); err != nil {
		return false, fmt.Errorf("deleting exercise sets: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM session_exercises WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("deleting session exercise: %w", err)
	}
	deleted, err := affected(res)
	if err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing exercise delete: %w", err)
	}
	return deleted, nil
}

// ReorderSessionExercises rewrites positions so ordered[i] gets position i.
func (l *LocalDB) ReorderSessionExercises(ctx context.Context, sessionID uuid.UUID, ordered []uuid.UUID) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning reorder: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i, id := range ordered {
		if _, err := tx.ExecContext(ctx,
			`UPDATE session_exercises SET position = ? WHERE id = ? AND session_id = ?`,
			i, id.String(), sessionID.String()); err != nil {
			return fmt.Errorf("updating position of %s: %w", id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing reorder: %w", err)
	}
	return nil
}

// AddSet appends a set to a session exercise and returns the stored row.
func (l *LocalDB) AddSet(ctx context.Context, sessionExerciseID uuid.UUID, fields models.SetFields) (models.Set, error) {
	f := fields.Normalized()

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Set{}, fmt.Errorf("beginning set insert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	s := models.Set{
		ID:                uuid.New(),
		SessionExerciseID: sessionExerciseID,
		WeightKg:          f.Weight,
		Reps:              f.Reps,
		DurationSec:       f.DurationSec,
		DistanceM:         f.DistanceM,
		RestSec:           f.RestSec,
		IsWarmup:          f.IsWarmup,
		IsCompleted:       f.IsCompleted,
	}
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position) + 1, 0) FROM session_sets WHERE session_exercise_id = ?`,
		sessionExerciseID.String()).Scan(&s.Position); err != nil {
		return models.Set{}, fmt.Errorf("querying next set position: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO session_sets (id, session_exercise_id, position, weight_kg, reps,
		 duration_sec, distance_m, rest_sec, is_warmup, is_completed)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID.String(), sessionExerciseID.String(), s.Position, s.WeightKg, s.Reps,
		s.DurationSec, s.DistanceM, s.RestSec, s.IsWarmup, s.IsCompleted); err != nil {
		return models.Set{}, fmt.Errorf("inserting set: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return models.Set{}, fmt.Errorf("committing set: %w", err)
	}
	return s, nil
}

// ListSets retrieves every set of the session, ordered by exercise then set position.
func (l *LocalDB) ListSets(ctx context.Context, sessionID uuid.UUID) ([]models.Set, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT s.id, s.session_exercise_id, s.position, s.weight_kg, s.reps,
		 s.duration_sec, s.distance_m, s.rest_sec, s.is_warmup, s.is_completed
		 FROM session_sets s
		 JOIN session_exercises e ON e.id = s.session_exercise_id
		 WHERE e.session_id = ?
		 ORDER BY e.position ASC, s.position ASC`,
		sessionID.String())
	if err != nil {
		return nil, fmt.Errorf("querying sets: %w", err)
	}
	defer rows.Close()

	var result []models.Set
	for rows.Next() {
		var s models.Set
		if err := rows.Scan(&s.ID, &s.SessionExerciseID, &s.Position, &s.WeightKg, &s.Reps,
			&s.DurationSec, &s.DistanceM, &s.RestSec, &s.IsWarmup, &s.IsCompleted); err != nil {
			return nil, fmt.Errorf("scanning set: %w", err)
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

// UpdateSet applies a partial update. Returns false if the set does not exist.
func (l *LocalDB) UpdateSet(ctx context.Context, setID uuid.UUID, patch models.SetPatch) (bool, error) {
	p := patch.Normalized()
	res, err := l.db.ExecContext(ctx,
		`UPDATE session_sets SET
		 weight_kg = COALESCE(?, weight_kg),
		 reps = COALESCE(?, reps),
		 duration_sec = COALESCE(?, duration_sec),
		 distance_m = COALESCE(?, distance_m),
		 rest_sec = COALESCE(?, rest_sec),
		 is_warmup = COALESCE(?, is_warmup),
		 is_completed = COALESCE(?, is_completed)
		 WHERE id = ?`,
		p.Weight, p.Reps, p.DurationSec, p.DistanceM, p.RestSec, p.IsWarmup, p.IsCompleted, setID.String())
	if err != nil {
		return false, fmt.Errorf("updating set: %w", err)
	}
	return affected(res)
}

// DeleteSet removes a set. Returns false if it was already gone.
func (l *LocalDB) DeleteSet(ctx context.Context, setID uuid.UUID) (bool, error) {
	res, err := l.db.ExecContext(ctx, `DELETE FROM session_sets WHERE id = ?`, setID.String())
	if err != nil {
		return false, fmt.Errorf("deleting set: %w", err)
	}
	return affected(res)
}
