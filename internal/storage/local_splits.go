package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/claude/splitlog/internal/models"
	"github.com/google/uuid"
)

// CreateSplit inserts a split with its ordered exercise list.
func (l *LocalDB) CreateSplit(ctx context.Context, split models.Split) (models.Split, error) {
	split.ID = uuid.New()

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Split{}, fmt.Errorf("beginning split insert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO splits (id, user_id, name, color, weekday_mask) VALUES (?, ?, ?, ?, ?)`,
		split.ID.String(), split.UserID, split.Name, split.Color, models.WeekdayMask(split.Weekdays)); err != nil {
		return models.Split{}, fmt.Errorf("inserting split: %w", err)
	}
	for i, exID := range split.ExerciseIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO split_exercises (split_id, position, exercise_id) VALUES (?, ?, ?)`,
			split.ID.String(), i, exID); err != nil {
			return models.Split{}, fmt.Errorf("inserting split exercise: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return models.Split{}, fmt.Errorf("committing split: %w", err)
	}
	return split, nil
}

// GetSplit retrieves a split with its exercises.
func (l *LocalDB) GetSplit(ctx context.Context, splitID uuid.UUID) (*models.Split, error) {
	var sp models.Split
	var mask int
	err := l.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, color, weekday_mask FROM splits WHERE id = ?`,
		splitID.String()).Scan(&sp.ID, &sp.UserID, &sp.Name, &sp.Color, &mask)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying split: %w", err)
	}
	sp.Weekdays = models.WeekdaysFromMask(mask)

	if sp.ExerciseIDs, err = l.splitExercises(ctx, sp.ID); err != nil {
		return nil, err
	}
	return &sp, nil
}

// ListSplits retrieves all splits of a user ordered by name.
func (l *LocalDB) ListSplits(ctx context.Context, userID int) ([]models.Split, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, user_id, name, color, weekday_mask FROM splits WHERE user_id = ? ORDER BY name ASC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("querying splits: %w", err)
	}

	var result []models.Split
	for rows.Next() {
		var sp models.Split
		var mask int
		if err := rows.Scan(&sp.ID, &sp.UserID, &sp.Name, &sp.Color, &mask); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning split: %w", err)
		}
		sp.Weekdays = models.WeekdaysFromMask(mask)
		result = append(result, sp)
	}
	// The single connection must be released before the per-split queries.
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range result {
		if result[i].ExerciseIDs, err = l.splitExercises(ctx, result[i].ID); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (l *LocalDB) splitExercises(ctx context.Context, splitID uuid.UUID) ([]string, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT exercise_id FROM split_exercises WHERE split_id = ? ORDER BY position ASC`, splitID.String())
	if err != nil {
		return nil, fmt.Errorf("querying split exercises: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning split exercise: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
