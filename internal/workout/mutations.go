package workout

import (
	"context"
	"fmt"

	"github.com/claude/splitlog/internal/models"
	"github.com/google/uuid"
)

// ensureMutable rejects edits to a session that left the active state or
// whose finalize is running or done.
func (c *Controller) ensureMutable(snap Snapshot) error {
	if snap.Session().State != models.StateActive {
		return fmt.Errorf("session %s is %s: %w", snap.ID(), snap.Session().State, ErrSessionNotActive)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.finalizing[snap.ID()] {
		return fmt.Errorf("session %s is being finalized: %w", snap.ID(), ErrSessionNotActive)
	}
	if _, ok := c.finalized[snap.ID()]; ok {
		return fmt.Errorf("session %s was finalized: %w", snap.ID(), ErrSessionNotActive)
	}
	return nil
}

// AddSet appends a set to a session exercise and returns the new snapshot
// together with the persisted set.
func (c *Controller) AddSet(ctx context.Context, snap Snapshot, sessionExerciseID uuid.UUID, fields models.SetFields) (Snapshot, models.Set, error) {
	if err := c.ensureMutable(snap); err != nil {
		return snap, models.Set{}, err
	}
	if !snap.HasExercise(sessionExerciseID) {
		return snap, models.Set{}, fmt.Errorf("%w: %s", ErrExerciseNotFound, sessionExerciseID)
	}
	if !fields.Unit.IsValid() {
		return snap, models.Set{}, fmt.Errorf("%w: %q", ErrInvalidUnit, fields.Unit)
	}

	set, err := c.store.AddSet(ctx, sessionExerciseID, fields.Normalized())
	if err != nil {
		return snap, models.Set{}, fmt.Errorf("adding set: %w", err)
	}
	return snap.withSet(set), set, nil
}

// UpdateSet applies a partial update. It returns false, and creates nothing,
// when the set is unknown.
func (c *Controller) UpdateSet(ctx context.Context, snap Snapshot, setID uuid.UUID, patch models.SetPatch) (Snapshot, bool, error) {
	if err := c.ensureMutable(snap); err != nil {
		return snap, false, err
	}
	if !patch.Unit.IsValid() {
		return snap, false, fmt.Errorf("%w: %q", ErrInvalidUnit, patch.Unit)
	}
	if _, ok := snap.Set(setID); !ok {
		return snap, false, nil
	}

	patch = patch.Normalized()
	if patch.IsEmpty() {
		return snap, true, nil
	}
	ok, err := c.store.UpdateSet(ctx, setID, patch)
	if err != nil {
		return snap, false, fmt.Errorf("updating set: %w", err)
	}
	if !ok {
		return snap.withoutSet(setID), false, nil
	}
	return snap.withUpdatedSet(setID, patch), true, nil
}

// DeleteSet removes a set. Deleting a set that is already gone, or that
// belongs to another session, is a no-op.
func (c *Controller) DeleteSet(ctx context.Context, snap Snapshot, setID uuid.UUID) (Snapshot, error) {
	if err := c.ensureMutable(snap); err != nil {
		return snap, err
	}
	if _, ok := snap.Set(setID); !ok {
		return snap, nil
	}
	if _, err := c.store.DeleteSet(ctx, setID); err != nil {
		return snap, fmt.Errorf("deleting set: %w", err)
	}
	return snap.withoutSet(setID), nil
}

// AddExercise appends a catalog exercise to the end of the session.
func (c *Controller) AddExercise(ctx context.Context, snap Snapshot, exerciseID string) (Snapshot, models.SessionExercise, error) {
	if err := c.ensureMutable(snap); err != nil {
		return snap, models.SessionExercise{}, err
	}
	if exerciseID == "" {
		return snap, models.SessionExercise{}, ErrExerciseRequired
	}
	se, err := c.store.AddSessionExercise(ctx, snap.ID(), exerciseID)
	if err != nil {
		return snap, models.SessionExercise{}, fmt.Errorf("adding exercise: %w", err)
	}
	return snap.withExercise(se), se, nil
}

// RemoveExercise drops a session exercise and all of its sets.
func (c *Controller) RemoveExercise(ctx context.Context, snap Snapshot, sessionExerciseID uuid.UUID) (Snapshot, bool, error) {
	if err := c.ensureMutable(snap); err != nil {
		return snap, false, err
	}
	if !snap.HasExercise(sessionExerciseID) {
		return snap, false, nil
	}
	ok, err := c.store.RemoveSessionExercise(ctx, sessionExerciseID)
	if err != nil {
		return snap, false, fmt.Errorf("removing exercise: %w", err)
	}
	return snap.withoutExercise(sessionExerciseID), ok, nil
}

// ReorderExercises sets the exercise order. ordered must be a permutation of
// the session's current exercise ids.
func (c *Controller) ReorderExercises(ctx context.Context, snap Snapshot, ordered []uuid.UUID) (Snapshot, error) {
	if err := c.ensureMutable(snap); err != nil {
		return snap, err
	}
	if !snap.isPermutation(ordered) {
		return snap, ErrInvalidReorder
	}
	if err := c.store.ReorderSessionExercises(ctx, snap.ID(), ordered); err != nil {
		return snap, fmt.Errorf("reordering exercises: %w", err)
	}
	return snap.reordered(ordered), nil
}
