package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/claude/splitlog/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CreateSplit inserts a split with its ordered exercise list.
func (db *DB) CreateSplit(ctx context.Context, split models.Split) (models.Split, error) {
	split.ID = uuid.New()

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return models.Split{}, fmt.Errorf("beginning split insert: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		`INSERT INTO splits (id, user_id, name, color, weekday_mask) VALUES ($1, $2, $3, $4, $5)`,
		split.ID, split.UserID, split.Name, split.Color, models.WeekdayMask(split.Weekdays)); err != nil {
		return models.Split{}, fmt.Errorf("inserting split: %w", err)
	}
	for i, exID := range split.ExerciseIDs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO split_exercises (split_id, position, exercise_id) VALUES ($1, $2, $3)`,
			split.ID, i, exID); err != nil {
			return models.Split{}, fmt.Errorf("inserting split exercise: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return models.Split{}, fmt.Errorf("committing split: %w", err)
	}
	return split, nil
}

// GetSplit retrieves a split with its exercises.
func (db *DB) GetSplit(ctx context.Context, splitID uuid.UUID) (*models.Split, error) {
	var sp models.Split
	var mask int
	err := db.Pool.QueryRow(ctx,
		`SELECT id, user_id, name, color, weekday_mask FROM splits WHERE id = $1`,
		splitID).Scan(&sp.ID, &sp.UserID, &sp.Name, &sp.Color, &mask)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying split: %w", err)
	}
	sp.Weekdays = models.WeekdaysFromMask(mask)

	if sp.ExerciseIDs, err = db.splitExercises(ctx, sp.ID); err != nil {
		return nil, err
	}
	return &sp, nil
}

// ListSplits retrieves all splits of a user ordered by name.
func (db *DB) ListSplits(ctx context.Context, userID int) ([]models.Split, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, user_id, name, color, weekday_mask FROM splits WHERE user_id = $1 ORDER BY name ASC`,
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
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range result {
		if result[i].ExerciseIDs, err = db.splitExercises(ctx, result[i].ID); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (db *DB) splitExercises(ctx context.Context, splitID uuid.UUID) ([]string, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT exercise_id FROM split_exercises WHERE split_id = $1 ORDER BY position ASC`, splitID)
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
