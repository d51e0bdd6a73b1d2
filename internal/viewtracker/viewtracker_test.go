package viewtracker

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/cncf/clomonitor-go/internal/model"
	"github.com/cncf/clomonitor-go/internal/platform/logging"
	"github.com/cncf/clomonitor-go/internal/store"
)

// recordingStore implements store.Store, capturing every
// UpdateViewCounts call; every other method is unused by the view
// tracker and returns a zero value.
type recordingStore struct {
	mu    sync.Mutex
	calls [][]store.ViewDelta
}

func (s *recordingStore) UpdateViewCounts(_ context.Context, deltas []store.ViewDelta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := append([]store.ViewDelta(nil), deltas...)
	s.calls = append(s.calls, cp)
	return nil
}

func (s *recordingStore) total(projectID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, batch := range s.calls {
		for _, d := range batch {
			if d.ProjectID == projectID {
				total += d.Delta
			}
		}
	}
	return total
}

func (s *recordingStore) Foundations(context.Context) ([]model.Foundation, error) { return nil, nil }
func (s *recordingStore) ProjectsOf(context.Context, string) (map[string]string, error) {
	return nil, nil
}
func (s *recordingStore) UpsertProject(context.Context, string, model.Project, []model.Repository) error {
	return nil
}
func (s *recordingStore) DeleteProject(context.Context, string, string) error { return nil }
func (s *recordingStore) Repositories(context.Context) ([]store.RepositoryWithProject, error) {
	return nil, nil
}
func (s *recordingStore) StoreResults(context.Context, store.StoreResultsInput) error { return nil }
func (s *recordingStore) ProjectSnapshotDates(context.Context, string) ([]time.Time, error) {
	return nil, nil
}
func (s *recordingStore) StoreProjectSnapshot(context.Context, string, time.Time, []byte) error {
	return nil
}
func (s *recordingStore) DeleteProjectSnapshot(context.Context, string, time.Time) error { return nil }
func (s *recordingStore) ProjectCurrentData(context.Context, string) ([]byte, error)    { return nil, nil }
func (s *recordingStore) StatsSnapshotDates(context.Context, *string) ([]time.Time, error) {
	return nil, nil
}
func (s *recordingStore) StoreStatsSnapshot(context.Context, *string, time.Time, []byte) error {
	return nil
}
func (s *recordingStore) DeleteStatsSnapshot(context.Context, *string, time.Time) error { return nil }
func (s *recordingStore) StatsCurrentData(context.Context, *string) ([]byte, error)    { return nil, nil }
func (s *recordingStore) AllProjectIDs(context.Context) ([]string, error)              { return nil, nil }
func (s *recordingStore) AllFoundationIDs(context.Context) ([]string, error)           { return nil, nil }
func (s *recordingStore) Close() error                                                 { return nil }

func nopLogger() logging.Logger { return logging.New(io.Discard, "error", false) }

// TestTrackViewFlushesOnShutdown: on shutdown the aggregator flushes
// its residual map before exiting. Three TrackView calls for two
// projects, then a cancelled context, must result in P1 counted twice
// and P2 counted once.
func TestTrackViewFlushesOnShutdown(t *testing.T) {
	st := &recordingStore{}
	tr := New(st, nopLogger(), Config{FlushInterval: time.Hour, QueueCapacity: 10})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		tr.Run(ctx)
		close(done)
	}()

	tr.TrackView(ctx, "p1")
	tr.TrackView(ctx, "p1")
	tr.TrackView(ctx, "p2")

	// Cancel immediately: the shutdown path must drain whatever is still
	// buffered on the inbound channel, not just what had already been
	// folded into the in-memory map.
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}

	if got := st.total("p1"); got != 2 {
		t.Fatalf("p1 total = %d, want 2", got)
	}
	if got := st.total("p2"); got != 1 {
		t.Fatalf("p2 total = %d, want 1", got)
	}
}

// TestTrackViewPeriodicFlush checks that a short flush interval drains
// the aggregator without waiting for shutdown.
func TestTrackViewPeriodicFlush(t *testing.T) {
	st := &recordingStore{}
	tr := New(st, nopLogger(), Config{FlushInterval: 20 * time.Millisecond, QueueCapacity: 10})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		tr.Run(ctx)
		close(done)
	}()

	tr.TrackView(ctx, "p1")

	deadline := time.After(2 * time.Second)
	for st.total("p1") == 0 {
		select {
		case <-deadline:
			t.Fatal("periodic flush never observed")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	<-done
}
