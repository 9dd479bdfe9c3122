package workout

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/claude/splitlog/internal/models"
	"github.com/google/uuid"
)

// FinalizeOptions configures Finalize. All overrides are optional; they are
// used to log a workout after the fact.
type FinalizeOptions struct {
	Status              models.SessionState `json:"status,omitempty"`
	StartedAtOverride   *time.Time          `json:"started_at,omitempty"`
	FinishedAtOverride  *time.Time          `json:"finished_at,omitempty"`
	DurationMinOverride *int                `json:"duration_min,omitempty"`
	Note                *string             `json:"note,omitempty"`
	SessionName         *string             `json:"session_name,omitempty"`
}

// FinalizeResult describes a finalized session.
type FinalizeResult struct {
	SessionID        uuid.UUID           `json:"session_id"`
	State            models.SessionState `json:"state"`
	Aggregates       models.Aggregates   `json:"aggregates"`
	AlreadyFinalized bool                `json:"already_finalized"`
}

type finalizeRecord struct {
	userID int
	result FinalizeResult
}

func (o FinalizeOptions) validate() (FinalizeOptions, error) {
	switch o.Status {
	case "":
		o.Status = models.StateCompleted
	case models.StateCompleted, models.StateCancelled:
	default:
		return o, fmt.Errorf("%w: %q", ErrInvalidStatus, o.Status)
	}
	if o.DurationMinOverride != nil && *o.DurationMinOverride < 0 {
		return o, fmt.Errorf("%w: negative duration", ErrInvalidOverride)
	}
	if o.StartedAtOverride != nil && o.FinishedAtOverride != nil && o.FinishedAtOverride.Before(*o.StartedAtOverride) {
		return o, fmt.Errorf("%w: finished before started", ErrInvalidOverride)
	}
	return o, nil
}

// Finalize computes the session aggregates and moves it to a terminal state.
//
// Calls racing on the same session share one store write and one result.
// Calls after a successful finalize get the recorded result with
// AlreadyFinalized set. A failed finalize records nothing, so it can be retried.
func (c *Controller) Finalize(ctx context.Context, sessionID uuid.UUID, opts FinalizeOptions) (FinalizeResult, error) {
	opts, err := opts.validate()
	if err != nil {
		return FinalizeResult{}, err
	}
	if res, ok := c.recorded(sessionID); ok {
		return res, nil
	}

	ran := false
	v, err, _ := c.finalizes.Do(sessionID.String(), func() (any, error) {
		ran = true
		return c.finalize(context.WithoutCancel(ctx), sessionID, opts)
	})
	if err != nil {
		return FinalizeResult{}, err
	}
	res := v.(FinalizeResult)
	if !ran {
		res.AlreadyFinalized = true
	}
	return res, nil
}

func (c *Controller) recorded(sessionID uuid.UUID) (FinalizeResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.finalized[sessionID]
	if !ok {
		return FinalizeResult{}, false
	}
	res := rec.result
	res.AlreadyFinalized = true
	return res, true
}

func (c *Controller) finalize(ctx context.Context, sessionID uuid.UUID, opts FinalizeOptions) (FinalizeResult, error) {
	c.mu.Lock()
	if rec, ok := c.finalized[sessionID]; ok {
		c.mu.Unlock()
		res := rec.result
		res.AlreadyFinalized = true
		return res, nil
	}
	c.finalizing[sessionID] = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.finalizing, sessionID)
		c.mu.Unlock()
	}()

	session, err := c.getSession(ctx, sessionID)
	if err != nil {
		return FinalizeResult{}, err
	}
	if session.State.IsTerminal() {
		return storedResult(session), nil
	}

	sets, err := c.store.ListSets(ctx, sessionID)
	if err != nil {
		return FinalizeResult{}, fmt.Errorf("loading sets: %w", err)
	}
	agg := ComputeAggregates(session.StartedAt, sets, opts, c.now())

	ok, err := c.store.FinalizeSession(ctx, sessionID, agg, opts.Status)
	if err != nil {
		return FinalizeResult{}, fmt.Errorf("finalizing session: %w", err)
	}
	if !ok {
		// Someone else moved it out of active between the read and the write.
		session, err = c.getSession(ctx, sessionID)
		if err != nil {
			return FinalizeResult{}, err
		}
		if !session.State.IsTerminal() {
			return FinalizeResult{}, fmt.Errorf("finalizing session %s: no row updated", sessionID)
		}
		return storedResult(session), nil
	}

	res := FinalizeResult{SessionID: sessionID, State: opts.Status, Aggregates: agg}

	c.mu.Lock()
	c.finalized[sessionID] = finalizeRecord{userID: session.UserID, result: res}
	if c.current[session.UserID] == sessionID {
		delete(c.current, session.UserID)
	}
	c.mu.Unlock()

	c.log.Info("session finalized",
		"user_id", session.UserID,
		"session_id", sessionID,
		"state", opts.Status,
		"sets", agg.TotalSets,
		"volume_kg", agg.TotalVolumeKg,
		"duration_min", agg.DurationMin,
	)
	return res, nil
}

// storedResult reports a session that was already terminal in the store.
func storedResult(s *models.WorkoutSession) FinalizeResult {
	agg := models.Aggregates{
		StartedAt:   s.StartedAt,
		Note:        s.Note,
		SessionName: s.SessionName,
	}
	if s.FinishedAt != nil {
		agg.FinishedAt = *s.FinishedAt
	}
	if s.DurationMin != nil {
		agg.DurationMin = *s.DurationMin
	}
	if s.TotalVolumeKg != nil {
		agg.TotalVolumeKg = *s.TotalVolumeKg
	}
	if s.TotalSets != nil {
		agg.TotalSets = *s.TotalSets
	}
	return FinalizeResult{SessionID: s.ID, State: s.State, Aggregates: agg, AlreadyFinalized: true}
}

// ComputeAggregates derives the values written at finalize time.
//
// The finish time is the explicit override, else started+duration when a
// backdated start and duration are both given, else now. Without a duration
// override the duration is finished minus started, rounded to the nearest
// minute and never negative. Volume is Σ weight×reps over every set, rounded
// to the nearest kilogram.
func ComputeAggregates(startedAt time.Time, sets []models.Set, opts FinalizeOptions, now time.Time) models.Aggregates {
	if opts.StartedAtOverride != nil {
		startedAt = *opts.StartedAtOverride
	}

	var finishedAt time.Time
	switch {
	case opts.FinishedAtOverride != nil:
		finishedAt = *opts.FinishedAtOverride
	case opts.StartedAtOverride != nil && opts.DurationMinOverride != nil:
		finishedAt = startedAt.Add(time.Duration(*opts.DurationMinOverride) * time.Minute)
	default:
		finishedAt = now
	}

	var durationMin int
	if opts.DurationMinOverride != nil {
		durationMin = *opts.DurationMinOverride
	} else {
		durationMin = int(finishedAt.Sub(startedAt).Round(time.Minute) / time.Minute)
	}
	durationMin = max(durationMin, 0)

	var volume float64
	for _, s := range sets {
		volume += s.Volume()
	}

	return models.Aggregates{
		StartedAt:     startedAt,
		FinishedAt:    finishedAt,
		DurationMin:   durationMin,
		TotalVolumeKg: math.Round(volume),
		TotalSets:     len(sets),
		Note:          opts.Note,
		SessionName:   opts.SessionName,
	}
}
