package workout

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/claude/splitlog/internal/models"
	"github.com/claude/splitlog/internal/storage"
	"github.com/google/uuid"
)

var testStart = time.Date(2025, 3, 10, 18, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openTestStore(t *testing.T) *storage.LocalDB {
	t.Helper()
	db, err := storage.OpenLocal(filepath.Join(t.TempDir(), "splitlog.db"))
	if err != nil {
		t.Fatalf("OpenLocal: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestController(t *testing.T, store storage.Store, now time.Time) *Controller {
	t.Helper()
	return New(store, testLogger(), WithClock(func() time.Time { return now }))
}

func mustStart(t *testing.T, c *Controller, userID int, seeds ...string) uuid.UUID {
	t.Helper()
	res, err := c.Start(context.Background(), userID, nil, StartOptions{FromExerciseIDs: seeds})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	return res.SessionID
}

func mustOpen(t *testing.T, c *Controller, id uuid.UUID) Snapshot {
	t.Helper()
	snap, err := c.Open(context.Background(), id)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return snap
}

var errInjected = errors.New("injected failure")

// faultyStore wraps a real store and fails selected operations.
type faultyStore struct {
	storage.Store

	failAddExercise   bool
	failDeleteSession bool
	finalizeFailures  atomic.Int32
	finalizeWrites    atomic.Int32

	// When finalizeRelease is set, FinalizeSession signals finalizeEntered
	// and blocks until finalizeRelease is closed.
	finalizeEntered chan struct{}
	finalizeRelease chan struct{}
	// activeLookups, when set, receives after each GetActiveSession.
	activeLookups chan struct{}
}

func (f *faultyStore) GetActiveSession(ctx context.Context, userID int) (*models.SessionSummary, error) {
	s, err := f.Store.GetActiveSession(ctx, userID)
	if f.activeLookups != nil {
		f.activeLookups <- struct{}{}
	}
	return s, err
}

func (f *faultyStore) AddSessionExercise(ctx context.Context, sessionID uuid.UUID, exerciseID string) (models.SessionExercise, error) {
	if f.failAddExercise {
		return models.SessionExercise{}, errInjected
	}
	return f.Store.AddSessionExercise(ctx, sessionID, exerciseID)
}

func (f *faultyStore) DeleteSession(ctx context.Context, sessionID uuid.UUID) (bool, error) {
	if f.failDeleteSession {
		return false, errInjected
	}
	return f.Store.DeleteSession(ctx, sessionID)
}

func (f *faultyStore) FinalizeSession(ctx context.Context, sessionID uuid.UUID, agg models.Aggregates, state models.SessionState) (bool, error) {
	if f.finalizeFailures.Load() > 0 {
		f.finalizeFailures.Add(-1)
		return false, errInjected
	}
	if f.finalizeRelease != nil {
		f.finalizeEntered <- struct{}{}
		<-f.finalizeRelease
	}
	f.finalizeWrites.Add(1)
	return f.Store.FinalizeSession(ctx, sessionID, agg, state)
}
