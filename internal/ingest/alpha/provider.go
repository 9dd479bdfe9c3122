package alpha

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/claude/splitlog/internal/ingest"
	"github.com/claude/splitlog/internal/models"
	"github.com/claude/splitlog/internal/storage"
	"github.com/claude/splitlog/internal/workout"
	"github.com/google/uuid"
)

// Provider logs Alpha Progression sessions through the workout controller,
// so imported sessions get the same aggregates as ones recorded live.
type Provider struct {
	store      storage.Store
	controller *workout.Controller
	log        *slog.Logger
}

var _ ingest.Provider = (*Provider)(nil)

// NewProvider creates a new Alpha Progression ingest provider.
func NewProvider(store storage.Store, controller *workout.Controller, log *slog.Logger) *Provider {
	return &Provider{store: store, controller: controller, log: log}
}

// Ingest parses a CSV export and logs every session not already present.
// A session is considered present when the user has one starting at the
// same instant. Per-session failures are collected in the result.
func (p *Provider) Ingest(ctx context.Context, r io.Reader, userID int) (*ingest.Result, error) {
	sessions, err := Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing CSV: %w", err)
	}
	result := &ingest.Result{SessionsReceived: len(sessions)}
	if len(sessions) == 0 {
		return result, nil
	}

	if _, active, err := p.controller.ActiveSessionID(ctx, userID); err != nil {
		return nil, err
	} else if active {
		return nil, ingest.ErrActiveSession
	}

	existing, err := p.existingStarts(ctx, userID, sessions)
	if err != nil {
		return nil, err
	}

	for _, s := range sessions {
		if existing[s.StartedAt.UnixMilli()] {
			result.SessionsSkipped++
			continue
		}
		sets, err := p.logSession(ctx, userID, s)
		if err != nil {
			p.log.Warn("alpha session import failed", "session", s.Name, "started_at", s.StartedAt, "error", err)
			result.Errors = append(result.Errors, fmt.Sprintf("%s (%s): %v", s.Name, s.StartedAt.Format("2006-01-02 15:04"), err))
			continue
		}
		existing[s.StartedAt.UnixMilli()] = true
		result.SessionsImported++
		result.SetsImported += sets
	}

	p.log.Info("alpha import done",
		"user_id", userID,
		"received", result.SessionsReceived,
		"imported", result.SessionsImported,
		"skipped", result.SessionsSkipped,
		"sets", result.SetsImported,
	)
	return result, nil
}

func (p *Provider) existingStarts(ctx context.Context, userID int, sessions []Session) (map[int64]bool, error) {
	first, last := sessions[0].StartedAt, sessions[0].StartedAt
	for _, s := range sessions[1:] {
		if s.StartedAt.Before(first) {
			first = s.StartedAt
		}
		if s.StartedAt.After(last) {
			last = s.StartedAt
		}
	}
	rows, err := p.store.ListSessions(ctx, userID, first, last.Add(time.Millisecond))
	if err != nil {
		return nil, fmt.Errorf("listing existing sessions: %w", err)
	}
	starts := make(map[int64]bool, len(rows))
	for _, row := range rows {
		starts[row.StartedAt.UnixMilli()] = true
	}
	return starts, nil
}

// logSession records one session as a backdated workout. On failure the
// partially written session is discarded.
func (p *Provider) logSession(ctx context.Context, userID int, s Session) (int, error) {
	started, err := p.controller.Start(ctx, userID, nil, workout.StartOptions{StartedAtOverride: &s.StartedAt})
	if err != nil {
		return 0, fmt.Errorf("starting session: %w", err)
	}
	if started.Resumed {
		return 0, ingest.ErrActiveSession
	}

	sets, err := p.fill(ctx, started.SessionID, s)
	if err == nil {
		opts := workout.FinalizeOptions{
			Status:            models.StateCompleted,
			StartedAtOverride: &s.StartedAt,
			SessionName:       &s.Name,
		}
		if s.DurationMin >= 0 {
			opts.DurationMinOverride = &s.DurationMin
		} else {
			opts.FinishedAtOverride = &s.StartedAt
		}
		_, err = p.controller.Finalize(ctx, started.SessionID, opts)
	}
	if err != nil {
		if _, discardErr := p.controller.Discard(ctx, started.SessionID); discardErr != nil {
			p.log.Error("discarding failed import", "session_id", started.SessionID, "error", discardErr)
		}
		return 0, err
	}
	return sets, nil
}

func (p *Provider) fill(ctx context.Context, sessionID uuid.UUID, s Session) (int, error) {
	snap, err := p.controller.Open(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	sets := 0
	for _, ex := range s.Exercises {
		var se models.SessionExercise
		snap, se, err = p.controller.AddExercise(ctx, snap, ex.CatalogID())
		if err != nil {
			return 0, fmt.Errorf("adding %s: %w", ex.Name, err)
		}
		for _, set := range ex.Sets {
			snap, _, err = p.controller.AddSet(ctx, snap, se.ID, models.SetFields{
				Weight:      set.WeightKg,
				Unit:        models.UnitKg,
				Reps:        set.Reps,
				IsWarmup:    set.Warmup,
				IsCompleted: true,
			})
			if err != nil {
				return 0, fmt.Errorf("adding set %d of %s: %w", set.Number, ex.Name, err)
			}
			sets++
		}
	}
	return sets, nil
}
