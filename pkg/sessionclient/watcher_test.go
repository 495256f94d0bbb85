package sessionclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

const testAppointmentID = "7d7a1f2e-61bc-4f4f-9be6-0a4dd52a2c41"

func testSession(waitingRoomEnabled bool) *Session {
	return &Session{
		ID:            "f5b6f3d0-3a48-4f75-9a37-cdd7f58d2f7a",
		AppointmentID: testAppointmentID,
		PatientID:     "patient-1",
		DoctorID:      "doctor-1",
		CreatedAt:     time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC),
		Connection: ConnectionConfig{
			ProviderSessionID:  "room-1",
			AccessToken:        "tok",
			WaitingRoomEnabled: waitingRoomEnabled,
		},
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func newWatcherWithServer(t *testing.T, handler http.Handler, cfg WatcherConfig) (*Watcher, *time.Time) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	w := NewWatcher(New(srv.URL, "test-token"), testAppointmentID, cfg)
	clock := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return clock }
	return w, &clock
}

func TestPollRateLimiterBoundary(t *testing.T) {
	var serverCalls int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&serverCalls, 1)
		writeJSON(w, http.StatusOK, testSession(true))
	})
	w, clock := newWatcherWithServer(t, handler, WatcherConfig{})
	ctx := context.Background()

	// Exactly MaxCalls polls within the window reach the server.
	for i := 0; i < DefaultMaxCalls; i++ {
		snap, err := w.Poll(ctx)
		if err != nil {
			t.Fatalf("Poll() #%d error = %v", i+1, err)
		}
		if snap.Stale {
			t.Fatalf("Poll() #%d stale = true, want fresh", i+1)
		}
	}
	if n := atomic.LoadInt32(&serverCalls); n != DefaultMaxCalls {
		t.Fatalf("server calls = %d, want %d", n, DefaultMaxCalls)
	}

	// The next poll inside the window is served from cache.
	snap, err := w.Poll(ctx)
	if err != nil {
		t.Fatalf("rate-limited Poll() error = %v", err)
	}
	if !snap.Stale || snap.Session == nil {
		t.Fatalf("rate-limited Poll() = %+v, want stale cached session", snap)
	}
	if n := atomic.LoadInt32(&serverCalls); n != DefaultMaxCalls {
		t.Fatalf("server calls after limit = %d, want %d (no server contact)", n, DefaultMaxCalls)
	}

	// After the window elapses the count resets.
	*clock = clock.Add(DefaultWindow)
	snap, err = w.Poll(ctx)
	if err != nil {
		t.Fatalf("post-window Poll() error = %v", err)
	}
	if snap.Stale {
		t.Fatalf("post-window Poll() stale = true, want fresh")
	}
	if n := atomic.LoadInt32(&serverCalls); n != DefaultMaxCalls+1 {
		t.Fatalf("server calls after window reset = %d, want %d", n, DefaultMaxCalls+1)
	}
}

func TestPollRateLimitedWithoutCache(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "session not found")
	})
	w, _ := newWatcherWithServer(t, handler, WatcherConfig{MaxCalls: 1, NotFoundThreshold: 5})
	ctx := context.Background()

	if _, err := w.Poll(ctx); err != nil {
		t.Fatalf("Poll() error = %v, want nil (pending)", err)
	}

	_, err := w.Poll(ctx)
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("Poll() error = %v, want ErrRateLimited with empty cache", err)
	}
}

func TestPollNotFoundStreakEscalates(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "session not found")
	})
	w, _ := newWatcherWithServer(t, handler, WatcherConfig{MaxCalls: 10})
	ctx := context.Background()

	for i := 0; i < DefaultNotFoundThreshold-1; i++ {
		snap, err := w.Poll(ctx)
		if err != nil {
			t.Fatalf("Poll() #%d error = %v, want nil below threshold", i+1, err)
		}
		if !snap.Pending {
			t.Fatalf("Poll() #%d pending = false, want true", i+1)
		}
	}

	_, err := w.Poll(ctx)
	if !errors.Is(err, ErrNoSession) {
		t.Fatalf("Poll() at threshold error = %v, want ErrNoSession", err)
	}
}

func TestPollNotFoundPreservesCache(t *testing.T) {
	var serverCalls int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&serverCalls, 1) == 1 {
			writeJSON(w, http.StatusOK, testSession(true))
			return
		}
		writeError(w, http.StatusNotFound, "session not found")
	})
	w, _ := newWatcherWithServer(t, handler, WatcherConfig{MaxCalls: 10})
	ctx := context.Background()

	if _, err := w.Poll(ctx); err != nil {
		t.Fatalf("priming Poll() error = %v", err)
	}

	snap, err := w.Poll(ctx)
	if err != nil {
		t.Fatalf("Poll() error = %v, want nil", err)
	}
	if !snap.Pending || snap.Session == nil {
		t.Fatalf("Poll() = %+v, want pending with preserved cache", snap)
	}

	// A success resets the streak bookkeeping alongside the error path.
	if w.notFoundStreak != 1 {
		t.Fatalf("notFoundStreak = %d, want 1", w.notFoundStreak)
	}
}

func TestPollUnauthorizedClearsCache(t *testing.T) {
	var serverCalls int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&serverCalls, 1) == 1 {
			writeJSON(w, http.StatusOK, testSession(true))
			return
		}
		writeError(w, http.StatusUnauthorized, "token expired")
	})
	w, _ := newWatcherWithServer(t, handler, WatcherConfig{MaxCalls: 10})
	ctx := context.Background()

	if _, err := w.Poll(ctx); err != nil {
		t.Fatalf("priming Poll() error = %v", err)
	}
	if w.Cached() == nil {
		t.Fatalf("Cached() = nil after successful poll")
	}

	_, err := w.Poll(ctx)
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("Poll() error = %v, want ErrUnauthorized", err)
	}
	if w.Cached() != nil {
		t.Fatalf("Cached() = %+v, want nil after credential failure", w.Cached())
	}
}

func TestAdmitAmbiguousSurfaced(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusConflict, "multiple participants waiting")
	})
	w, _ := newWatcherWithServer(t, handler, WatcherConfig{})

	_, err := w.Admit(context.Background(), SentinelParticipantID)
	if !errors.Is(err, ErrAmbiguous) {
		t.Fatalf("Admit() error = %v, want ErrAmbiguous", err)
	}
}

// A fetch that was already in flight when an admission lands must not
// overwrite the admitted state with its older view.
func TestStalePollCannotRegressAdmittedState(t *testing.T) {
	var gets int32
	firstGetStarted := make(chan struct{})
	releaseFirstGet := make(chan struct{})

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/waiting-room/admit") {
			writeJSON(w, http.StatusOK, testSession(false))
			return
		}
		if atomic.AddInt32(&gets, 1) == 1 {
			close(firstGetStarted)
			<-releaseFirstGet
			// Old view from before the admission.
			writeJSON(w, http.StatusOK, testSession(true))
			return
		}
		writeJSON(w, http.StatusOK, testSession(false))
	})
	w, _ := newWatcherWithServer(t, handler, WatcherConfig{MaxCalls: 10})
	ctx := context.Background()

	pollDone := make(chan struct{})
	go func() {
		defer close(pollDone)
		_, _ = w.Poll(ctx)
	}()

	<-firstGetStarted
	if _, err := w.Admit(ctx, SentinelParticipantID); err != nil {
		t.Fatalf("Admit() error = %v", err)
	}

	close(releaseFirstGet)
	<-pollDone

	cached := w.Cached()
	if cached == nil {
		t.Fatalf("Cached() = nil, want admitted session")
	}
	if cached.Connection.WaitingRoomEnabled {
		t.Fatalf("WaitingRoomEnabled = true, stale poll regressed the admitted state")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	var serverCalls int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&serverCalls, 1)
		writeJSON(w, http.StatusOK, testSession(true))
	})
	w, _ := newWatcherWithServer(t, handler, WatcherConfig{MaxCalls: 1000})

	ctx, cancel := context.WithCancel(context.Background())
	snapshots := make(chan Snapshot, 64)
	w.Run(ctx, 5*time.Millisecond, func(snap Snapshot, err error) {
		if err == nil {
			snapshots <- snap
		}
	})

	select {
	case <-snapshots:
	case <-time.After(time.Second):
		t.Fatalf("no snapshot observed before timeout")
	}

	cancel()
	time.Sleep(20 * time.Millisecond)
	before := atomic.LoadInt32(&serverCalls)
	time.Sleep(50 * time.Millisecond)
	if after := atomic.LoadInt32(&serverCalls); after != before {
		t.Fatalf("server calls grew from %d to %d after cancel", before, after)
	}
}
