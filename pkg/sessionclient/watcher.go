package sessionclient

import (
	"context"
	"errors"
	"sync"
	"time"
)

const (
	// DefaultWindow and DefaultMaxCalls bound how often one observer
	// may hit the server: at most 3 calls per 30s fixed window.
	DefaultWindow   = 30 * time.Second
	DefaultMaxCalls = 3
	// DefaultNotFoundThreshold is the number of consecutive "not
	// found" responses tolerated as "not created yet" before the
	// condition escalates to ErrNoSession.
	DefaultNotFoundThreshold = 3

	DefaultPollInterval = 5 * time.Second
)

// Snapshot is the watcher's view of a session at one poll.
//
// Pending marks a session that simply does not exist yet — a neutral
// waiting state, not an error. Stale marks a value served from cache
// without contacting the server.
type Snapshot struct {
	Session *Session
	Pending bool
	Stale   bool
}

// WatcherConfig overrides the polling limits; zero values take the
// defaults above.
type WatcherConfig struct {
	Window            time.Duration
	MaxCalls          int
	NotFoundThreshold int
}

// Watcher observes a single appointment's session. Limits and the
// not-found streak are per watcher, so unrelated sessions watched
// concurrently do not starve each other's quota.
type Watcher struct {
	client        *Client
	appointmentID string

	window            time.Duration
	maxCalls          int
	notFoundThreshold int

	now func() time.Time

	mu             sync.Mutex
	windowStart    time.Time
	calls          int
	notFoundStreak int
	cached         *Session
	// version fences in-flight responses: a fetch only lands if the
	// cache has not moved since the fetch started.
	version uint64
}

func NewWatcher(client *Client, appointmentID string, cfg WatcherConfig) *Watcher {
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.MaxCalls <= 0 {
		cfg.MaxCalls = DefaultMaxCalls
	}
	if cfg.NotFoundThreshold <= 0 {
		cfg.NotFoundThreshold = DefaultNotFoundThreshold
	}

	return &Watcher{
		client:            client,
		appointmentID:     appointmentID,
		window:            cfg.Window,
		maxCalls:          cfg.MaxCalls,
		notFoundThreshold: cfg.NotFoundThreshold,
		now:               time.Now,
	}
}

// Cached returns the last successfully retrieved session, if any.
func (w *Watcher) Cached() *Session {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cached
}

// Poll fetches the current session state, subject to the fixed-window
// rate limit. When the limit is hit it serves the cache (Stale) or
// ErrRateLimited if there is nothing to serve. "Not found" below the
// streak threshold is reported as Pending with a nil error.
func (w *Watcher) Poll(ctx context.Context) (Snapshot, error) {
	w.mu.Lock()
	if !w.allowLocked() {
		cached := w.cached
		w.mu.Unlock()
		if cached != nil {
			return Snapshot{Session: cached, Stale: true}, nil
		}
		return Snapshot{}, ErrRateLimited
	}
	version := w.version
	w.mu.Unlock()

	session, err := w.client.GetSession(ctx, w.appointmentID)

	w.mu.Lock()
	defer w.mu.Unlock()

	switch {
	case err == nil:
		w.notFoundStreak = 0
		if w.version == version {
			w.cached = session
			w.version++
		}
		return Snapshot{Session: w.cached}, nil

	case errors.Is(err, ErrUnauthorized):
		// Security errors are never absorbed: drop everything.
		w.resetLocked()
		return Snapshot{}, err

	case errors.Is(err, ErrNotFound):
		w.notFoundStreak++
		if w.notFoundStreak >= w.notFoundThreshold {
			return Snapshot{}, ErrNoSession
		}
		return Snapshot{Session: w.cached, Pending: true}, nil

	default:
		return Snapshot{Session: w.cached, Stale: w.cached != nil}, err
	}
}

// Admit admits a participant and updates the cache twice: once from
// the admit response itself and once from a confirming fetch. The
// confirming fetch is fenced by version so it cannot regress state
// that moved on while it was in flight.
func (w *Watcher) Admit(ctx context.Context, participantID string) (*Session, error) {
	session, err := w.client.AdmitParticipant(ctx, w.appointmentID, participantID)
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			w.mu.Lock()
			w.resetLocked()
			w.mu.Unlock()
		}
		return nil, err
	}

	w.mu.Lock()
	w.cached = session
	w.version++
	version := w.version
	w.mu.Unlock()

	if fresh, err := w.client.GetSession(ctx, w.appointmentID); err == nil {
		w.mu.Lock()
		if w.version == version {
			w.cached = fresh
			w.version++
		}
		w.mu.Unlock()
	}

	return session, nil
}

// Run polls until ctx is cancelled, reporting every snapshot to
// observe. Polling is the subsystem's consistency model; there is no
// push channel for session-state changes.
func (w *Watcher) Run(ctx context.Context, interval time.Duration, observe func(Snapshot, error)) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		observe(w.Poll(ctx))
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				observe(w.Poll(ctx))
			}
		}
	}()
}

func (w *Watcher) allowLocked() bool {
	now := w.now()
	if w.windowStart.IsZero() || now.Sub(w.windowStart) >= w.window {
		w.windowStart = now
		w.calls = 0
	}
	if w.calls >= w.maxCalls {
		return false
	}
	w.calls++
	return true
}

func (w *Watcher) resetLocked() {
	w.cached = nil
	w.version++
	w.notFoundStreak = 0
	w.calls = 0
	w.windowStart = time.Time{}
}
