// Package ingest holds what all export importers share.
package ingest

import (
	"context"
	"errors"
	"io"
)

// ErrActiveSession is returned when an import is attempted while the user
// has a workout in progress.
var ErrActiveSession = errors.New("finish or discard the active workout before importing")

// Result holds the outcome of an import.
type Result struct {
	SessionsReceived int      `json:"sessions_received"`
	SessionsImported int      `json:"sessions_imported"`
	SessionsSkipped  int      `json:"sessions_skipped"`
	SetsImported     int      `json:"sets_imported"`
	Errors           []string `json:"errors,omitempty"`
}

// Provider turns an export file into logged workouts for one user.
type Provider interface {
	Ingest(ctx context.Context, r io.Reader, userID int) (*Result, error)
}
