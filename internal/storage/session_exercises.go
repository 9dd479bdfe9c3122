package storage

import (
	"context"
	"fmt"

	"github.com/claude/splitlog/internal/models"
	"github.com/google/uuid"
)

// AddSessionExercise appends an exercise to the end of the session's list.
func (db *DB) AddSessionExercise(ctx context.Context, sessionID uuid.UUID, exerciseID string) (models.SessionExercise, error) {
	se := models.SessionExercise{ID: uuid.New(), SessionID: sessionID, ExerciseID: exerciseID}
	err := db.Pool.QueryRow(ctx,
		`INSERT INTO session_exercises (id, session_id, exercise_id, position)
		 SELECT $1::uuid, $2::uuid, $3::text, COALESCE(MAX(position) + 1, 0)
		 FROM session_exercises WHERE session_id = $2
		 RETURNING position`,
		se.ID, sessionID, exerciseID).Scan(&se.Position)
	if err != nil {
		return models.SessionExercise{}, fmt.Errorf("inserting session exercise: %w", err)
	}
	return se, nil
}

// ListSessionExercises retrieves the session's exercises in position order.
func (db *DB) ListSessionExercises(ctx context.Context, sessionID uuid.UUID) ([]models.SessionExercise, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, session_id, exercise_id, position
		 FROM session_exercises
		 WHERE session_id = $1
		 ORDER BY position ASC`,
		sessionID)
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
func (db *DB) RemoveSessionExercise(ctx context.Context, sessionExerciseID uuid.UUID) (bool, error) {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM session_exercises WHERE id = $1`, sessionExerciseID)
	if err != nil {
		return false, fmt.Errorf("deleting session exercise: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ReorderSessionExercises rewrites positions so ordered[i] gets position i.
func (db *DB) ReorderSessionExercises(ctx context.Context, sessionID uuid.UUID, ordered []uuid.UUID) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning reorder: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for i, id := range ordered {
		if _, err := tx.Exec(ctx,
			`UPDATE session_exercises SET position = $1 WHERE id = $2 AND session_id = $3`,
			i, id, sessionID); err != nil {
			return fmt.Errorf("updating position of %s: %w", id, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing reorder: %w", err)
	}
	return nil
}
