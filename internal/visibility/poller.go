// Package visibility decides whether an "active workout" indicator should be
// shown, by polling for the user's active session on a fixed interval.
package visibility

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultInterval         = 1500 * time.Millisecond
	DefaultFailureThreshold = 3
)

// ActiveSessionSource looks up the user's active session id.
// *workout.Controller and *client.Client both satisfy it.
type ActiveSessionSource interface {
	ActiveSessionID(ctx context.Context, userID int) (uuid.UUID, bool, error)
}

// Visibility is the indicator state derived from the last lookup.
type Visibility struct {
	Visible   bool      `json:"visible"`
	SessionID uuid.UUID `json:"session_id"`
}

// Options configures a Poller. Zero values take the defaults.
type Options struct {
	Interval time.Duration
	// FailureThreshold is the number of consecutive failed lookups after
	// which the indicator is hidden.
	FailureThreshold int
	// OnChange is called from the polling goroutine on every transition.
	OnChange func(Visibility)
	Logger   *slog.Logger
}

// Poller periodically asks an ActiveSessionSource whether the user has an
// active session. Lookup errors never propagate; the last known state is
// kept until FailureThreshold lookups in a row have failed.
type Poller struct {
	source ActiveSessionSource
	userID int
	opts   Options

	mu       sync.Mutex
	state    Visibility
	failures int
}

// New creates a Poller for one user.
func New(source ActiveSessionSource, userID int, opts Options) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.FailureThreshold <= 0 {
		opts.FailureThreshold = DefaultFailureThreshold
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Poller{source: source, userID: userID, opts: opts}
}

// Visibility returns the current state.
func (p *Poller) Visibility() Visibility {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Start runs the poller in a goroutine. The returned function stops it and
// waits for the goroutine to exit; it is safe to call more than once.
func (p *Poller) Start(ctx context.Context) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.Run(ctx)
	}()
	return func() {
		cancel()
		<-done
	}
}

// Run polls immediately and then on every tick until ctx is done.
func (p *Poller) Run(ctx context.Context) {
	p.Poll(ctx)

	ticker := time.NewTicker(p.opts.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Poll(ctx)
		}
	}
}

// Poll performs one lookup and applies its outcome.
func (p *Poller) Poll(ctx context.Context) {
	lookupCtx, cancel := context.WithTimeout(ctx, p.opts.Interval)
	id, ok, err := p.source.ActiveSessionID(lookupCtx, p.userID)
	cancel()
	if ctx.Err() != nil {
		return
	}

	p.mu.Lock()
	prev := p.state
	if err != nil {
		p.failures++
		if p.failures >= p.opts.FailureThreshold {
			p.state = Visibility{}
		}
		p.opts.Logger.Debug("active session lookup failed", "user_id", p.userID, "failures", p.failures, "error", err)
	} else {
		p.failures = 0
		p.state = Visibility{Visible: ok, SessionID: id}
		if !ok {
			p.state.SessionID = uuid.Nil
		}
	}
	next := p.state
	p.mu.Unlock()

	if next != prev && p.opts.OnChange != nil {
		p.opts.OnChange(next)
	}
}
