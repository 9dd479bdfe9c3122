package storage

import (
	"context"
	"fmt"

	"github.com/claude/splitlog/internal/models"
	"github.com/google/uuid"
)

const setColumns = `id, session_exercise_id, position, weight_kg, reps,
	duration_sec, distance_m, rest_sec, is_warmup, is_completed`

// AddSet appends a set to a session exercise and returns the stored row.
func (db *DB) AddSet(ctx context.Context, sessionExerciseID uuid.UUID, fields models.SetFields) (models.Set, error) {
	f := fields.Normalized()
	row := db.Pool.QueryRow(ctx,
		`INSERT INTO session_sets (id, session_exercise_id, position, weight_kg, reps,
		 duration_sec, distance_m, rest_sec, is_warmup, is_completed)
		 SELECT $1::uuid, $2::uuid, COALESCE(MAX(position) + 1, 0), $3::double precision, $4::integer,
		 $5::integer, $6::double precision, $7::integer, $8::boolean, $9::boolean
		 FROM session_sets WHERE session_exercise_id = $2
		 RETURNING `+setColumns,
		uuid.New(), sessionExerciseID, f.Weight, f.Reps,
		f.DurationSec, f.DistanceM, f.RestSec, f.IsWarmup, f.IsCompleted)

	var s models.Set
	if err := row.Scan(&s.ID, &s.SessionExerciseID, &s.Position, &s.WeightKg, &s.Reps,
		&s.DurationSec, &s.DistanceM, &s.RestSec, &s.IsWarmup, &s.IsCompleted); err != nil {
		return models.Set{}, fmt.Errorf("inserting set: %w", err)
	}
	return s, nil
}

// ListSets retrieves every set of the session, ordered by exercise then set position.
func (db *DB) ListSets(ctx context.Context, sessionID uuid.UUID) ([]models.Set, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT s.id, s.session_exercise_id, s.position, s.weight_kg, s.reps,
		 s.duration_sec, s.distance_m, s.rest_sec, s.is_warmup, s.is_completed
		 FROM session_sets s
		 JOIN session_exercises e ON e.id = s.session_exercise_id
		 WHERE e.session_id = $1
		 ORDER BY e.position ASC, s.position ASC`,
		sessionID)
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
func (db *DB) UpdateSet(ctx context.Context, setID uuid.UUID, patch models.SetPatch) (bool, error) {
	p := patch.Normalized()
	tag, err := db.Pool.Exec(ctx,
		`UPDATE session_sets SET
		 weight_kg = COALESCE($2, weight_kg),
		 reps = COALESCE($3, reps),
		 duration_sec = COALESCE($4, duration_sec),
		 distance_m = COALESCE($5, distance_m),
		 rest_sec = COALESCE($6, rest_sec),
		 is_warmup = COALESCE($7, is_warmup),
		 is_completed = COALESCE($8, is_completed)
		 WHERE id = $1`,
		setID, p.Weight, p.Reps, p.DurationSec, p.DistanceM, p.RestSec, p.IsWarmup, p.IsCompleted)
	if err != nil {
		return false, fmt.Errorf("updating set: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteSet removes a set. Returns false if it was already gone.
func (db *DB) DeleteSet(ctx context.Context, setID uuid.UUID) (bool, error) {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM session_sets WHERE id = $1`, setID)
	if err != nil {
		return false, fmt.Errorf("deleting set: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
