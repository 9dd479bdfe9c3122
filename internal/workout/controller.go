// Package workout coordinates the lifecycle of in-progress workout sessions:
// starting or resuming, in-place mutation of exercises and sets, and
// finalization or discard.
package workout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/claude/splitlog/internal/models"
	"github.com/claude/splitlog/internal/storage"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// StartPolicy decides what Start does when the user already has an active session.
type StartPolicy string

const (
	// ResumeIfActive returns the existing active session untouched.
	ResumeIfActive StartPolicy = "resume_if_active"
	// EndExistingThenStart finalizes the existing session as completed, then starts a new one.
	EndExistingThenStart StartPolicy = "end_existing_then_start"
)

// StartOptions configures Start.
type StartOptions struct {
	Policy            StartPolicy
	FromExerciseIDs   []string
	StartedAtOverride *time.Time
}

// StartResult is the session handle returned by Start.
type StartResult struct {
	SessionID uuid.UUID `json:"session_id"`
	Resumed   bool      `json:"resumed"`
}

// Controller owns session start/resume/finalize/discard transitions for every
// user of one app instance. The at-most-one-active rule is arbitrated through
// the store's active-session query; the controller only keeps in-memory guards
// against duplicate calls racing each other.
type Controller struct {
	store storage.Store
	log   *slog.Logger
	now   func() time.Time

	starts    singleflight.Group
	finalizes singleflight.Group

	mu         sync.Mutex
	current    map[int]uuid.UUID
	finalizing map[uuid.UUID]bool
	finalized  map[uuid.UUID]finalizeRecord
}

// Option customizes a Controller.
type Option func(*Controller)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// New creates a Controller on top of the given store.
func New(store storage.Store, log *slog.Logger, opts ...Option) *Controller {
	c := &Controller{
		store:      store,
		log:        log,
		now:        time.Now,
		current:    make(map[int]uuid.UUID),
		finalizing: make(map[uuid.UUID]bool),
		finalized:  make(map[uuid.UUID]finalizeRecord),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start resumes the user's active session or creates a new one.
//
// Concurrent calls for the same user share one execution, so a double tap
// cannot create two sessions. The store writes run detached from ctx: a
// caller that goes away does not abort a half-created session.
func (c *Controller) Start(ctx context.Context, userID int, splitID *uuid.UUID, opts StartOptions) (StartResult, error) {
	if userID <= 0 {
		return StartResult{}, ErrUserRequired
	}
	switch opts.Policy {
	case "":
		opts.Policy = ResumeIfActive
	case ResumeIfActive, EndExistingThenStart:
	default:
		return StartResult{}, fmt.Errorf("%w: %q", ErrInvalidPolicy, opts.Policy)
	}

	v, err, _ := c.starts.Do(strconv.Itoa(userID), func() (any, error) {
		return c.start(context.WithoutCancel(ctx), userID, splitID, opts)
	})
	if err != nil {
		return StartResult{}, err
	}
	return v.(StartResult), nil
}

func (c *Controller) start(ctx context.Context, userID int, splitID *uuid.UUID, opts StartOptions) (StartResult, error) {
	active, err := c.store.GetActiveSession(ctx, userID)
	if err != nil {
		return StartResult{}, fmt.Errorf("looking up active session: %w", err)
	}

	if active != nil && c.closing(active.ID) {
		// A finalize is already under way: wait for it and start fresh.
		if _, err := c.Finalize(ctx, active.ID, FinalizeOptions{}); err != nil {
			return StartResult{}, fmt.Errorf("waiting for session %s to finalize: %w", active.ID, err)
		}
		c.log.Info("active session finalized during start", "user_id", userID, "session_id", active.ID)
		active = nil
	}

	if active != nil {
		if opts.Policy == ResumeIfActive {
			c.mu.Lock()
			c.current[userID] = active.ID
			c.mu.Unlock()
			c.log.Info("resuming active session", "user_id", userID, "session_id", active.ID)
			return StartResult{SessionID: active.ID, Resumed: true}, nil
		}
		if _, err := c.Finalize(ctx, active.ID, FinalizeOptions{Status: models.StateCompleted}); err != nil {
			return StartResult{}, fmt.Errorf("ending session %s: %w", active.ID, err)
		}
		c.log.Info("ended active session before start", "user_id", userID, "session_id", active.ID)
	}

	seeds := opts.FromExerciseIDs
	if len(seeds) == 0 && splitID != nil {
		split, err := c.store.GetSplit(ctx, *splitID)
		if err != nil {
			return StartResult{}, fmt.Errorf("loading split %s: %w", *splitID, err)
		}
		seeds = split.ExerciseIDs
	}
	seeds = dedupe(seeds)

	startedAt := c.now()
	if opts.StartedAtOverride != nil {
		startedAt = *opts.StartedAtOverride
	}

	id, err := c.store.CreateSession(ctx, userID, splitID, startedAt)
	if err != nil {
		return StartResult{}, fmt.Errorf("creating session: %w", err)
	}
	for _, exID := range seeds {
		if _, err := c.store.AddSessionExercise(ctx, id, exID); err != nil {
			return StartResult{}, c.abortStart(ctx, id, fmt.Errorf("seeding exercise %q: %w", exID, err))
		}
	}

	c.mu.Lock()
	if prev, ok := c.current[userID]; ok && prev != id {
		delete(c.finalized, prev)
	}
	for sid, rec := range c.finalized {
		if rec.userID == userID {
			delete(c.finalized, sid)
		}
	}
	c.current[userID] = id
	c.mu.Unlock()

	c.log.Info("session started", "user_id", userID, "session_id", id, "exercises", len(seeds))
	return StartResult{SessionID: id, Resumed: false}, nil
}

// closing reports whether sessionID is being finalized or already has been.
func (c *Controller) closing(sessionID uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, done := c.finalized[sessionID]
	return done || c.finalizing[sessionID]
}

// abortStart removes a session whose seeding failed so no active row is left
// behind. If that delete fails as well, the orphan id is reported.
func (c *Controller) abortStart(ctx context.Context, sessionID uuid.UUID, cause error) error {
	if _, err := c.store.DeleteSession(ctx, sessionID); err != nil {
		c.log.Error("orphaned session after failed start", "session_id", sessionID, "error", err)
		return errors.Join(cause, fmt.Errorf("removing orphaned session %s: %w", sessionID, err))
	}
	return cause
}

// ActiveSessionID returns the id of the user's active session, if any.
func (c *Controller) ActiveSessionID(ctx context.Context, userID int) (uuid.UUID, bool, error) {
	s, err := c.store.GetActiveSession(ctx, userID)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("looking up active session: %w", err)
	}
	if s == nil {
		return uuid.Nil, false, nil
	}
	return s.ID, true, nil
}

// Current returns the session this controller last started or resumed for the
// user, cleared again by finalize and discard.
func (c *Controller) Current(userID int) (uuid.UUID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.current[userID]
	return id, ok
}

// Open loads the session and its exercises and sets into a Snapshot.
func (c *Controller) Open(ctx context.Context, sessionID uuid.UUID) (Snapshot, error) {
	session, err := c.getSession(ctx, sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	exercises, err := c.store.ListSessionExercises(ctx, sessionID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("loading exercises: %w", err)
	}
	sets, err := c.store.ListSets(ctx, sessionID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("loading sets: %w", err)
	}
	return NewSnapshot(*session, exercises, sets), nil
}

// Discard deletes the session and everything it owns without computing
// aggregates. It is allowed while the session is active or right after this
// controller finalized it. A session that is already gone yields false.
func (c *Controller) Discard(ctx context.Context, sessionID uuid.UUID) (bool, error) {
	session, err := c.getSession(ctx, sessionID)
	if errors.Is(err, ErrSessionNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	c.mu.Lock()
	_, justFinalized := c.finalized[sessionID]
	finalizing := c.finalizing[sessionID]
	c.mu.Unlock()

	if finalizing || (session.State != models.StateActive && !justFinalized) {
		return false, fmt.Errorf("discarding %s session: %w", session.State, ErrSessionNotActive)
	}

	deleted, err := c.store.DeleteSession(ctx, sessionID)
	if err != nil {
		return false, fmt.Errorf("deleting session: %w", err)
	}

	c.mu.Lock()
	delete(c.finalized, sessionID)
	if c.current[session.UserID] == sessionID {
		delete(c.current, session.UserID)
	}
	c.mu.Unlock()

	c.log.Info("session discarded", "user_id", session.UserID, "session_id", sessionID)
	return deleted, nil
}

func (c *Controller) getSession(ctx context.Context, sessionID uuid.UUID) (*models.WorkoutSession, error) {
	session, err := c.store.GetSession(ctx, sessionID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	return session, nil
}

// dedupe drops empty and repeated ids, keeping first-seen order.
func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
