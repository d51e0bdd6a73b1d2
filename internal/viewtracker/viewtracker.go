// Package viewtracker implements the View Tracker: a single aggregator
// task and a single flusher task connected by a bounded channel, which
// batches per-project view counts before writing them to the store.
package viewtracker

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cncf/clomonitor-go/internal/platform/logging"
	"github.com/cncf/clomonitor-go/internal/store"
)

type trackEvent struct {
	projectID string
	day       time.Time
}

type key struct {
	projectID string
	day       time.Time
}

// Tracker runs the aggregator and flusher goroutines. TrackView is the
// only operation callers outside this package use.
type Tracker struct {
	store         store.Store
	log           logging.Logger
	flushInterval time.Duration

	events chan trackEvent
	batch  chan map[key]int

	wg sync.WaitGroup
}

// Config configures a Tracker.
type Config struct {
	FlushInterval time.Duration
	QueueCapacity int
}

// New returns a Tracker. Call Run to start its two worker goroutines,
// and Close (or cancel ctx) to drain and stop them.
func New(st store.Store, log logging.Logger, cfg Config) *Tracker {
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 300 * time.Second
	}
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = 100
	}
	return &Tracker{
		store:         st,
		log:           log,
		flushInterval: cfg.FlushInterval,
		events:        make(chan trackEvent, cfg.QueueCapacity),
		batch:         make(chan map[key]int),
	}
}

// TrackView enqueues a view of projectID. It blocks only if the bounded
// inbound channel is full; callers should treat it as best-effort and
// not let it stall a request path.
func (t *Tracker) TrackView(ctx context.Context, projectID string) {
	day := time.Now().UTC().Truncate(24 * time.Hour)
	select {
	case t.events <- trackEvent{projectID: projectID, day: day}:
	case <-ctx.Done():
	}
}

// Run starts the aggregator and flusher goroutines and blocks until ctx
// is cancelled, at which point both are drained and stopped: the
// aggregator flushes its residual map before exiting.
func (t *Tracker) Run(ctx context.Context) {
	t.wg.Add(2)
	go t.aggregate(ctx)
	go t.flush(ctx)
	t.wg.Wait()
}

func (t *Tracker) aggregate(ctx context.Context) {
	defer t.wg.Done()
	defer close(t.batch)

	ticker := time.NewTicker(t.flushInterval)
	defer ticker.Stop()

	counts := make(map[key]int)
	emit := func() {
		if len(counts) == 0 {
			return
		}
		clone := make(map[key]int, len(counts))
		for k, v := range counts {
			clone[k] = v
		}
		// The flusher drains t.batch until it is closed, and it closes only
		// after this goroutine returns, so a blocking send never deadlocks —
		// including on the shutdown path, where the residual map must reach
		// the flusher rather than race against ctx.Done().
		t.batch <- clone
		counts = make(map[key]int)
	}

	for {
		select {
		case ev, ok := <-t.events:
			if !ok {
				emit()
				return
			}
			counts[key{projectID: ev.projectID, day: ev.day}]++
		case <-ticker.C:
			emit()
		case <-ctx.Done():
			// Drain whatever is already buffered on the inbound channel
			// before emitting: TrackView callers may have enqueued views
			// just ahead of shutdown, and the stop sequence must flush
			// every count already accepted, not only what had been read
			// into the map.
			t.drainPending(counts)
			emit()
			return
		}
	}
}

// drainPending folds every event already sitting in the inbound channel
// into counts without blocking, used only on the shutdown path above.
func (t *Tracker) drainPending(counts map[key]int) {
	for {
		select {
		case ev, ok := <-t.events:
			if !ok {
				return
			}
			counts[key{projectID: ev.projectID, day: ev.day}]++
		default:
			return
		}
	}
}

func (t *Tracker) flush(ctx context.Context) {
	defer t.wg.Done()
	for batch := range t.batch {
		deltas := toSortedDeltas(batch)
		if err := t.store.UpdateViewCounts(context.Background(), deltas); err != nil {
			t.log.Error("viewtracker: flush failed", logging.Int("entries", len(deltas)), logging.Err(err))
		}
	}
}

func toSortedDeltas(batch map[key]int) []store.ViewDelta {
	deltas := make([]store.ViewDelta, 0, len(batch))
	for k, v := range batch {
		deltas = append(deltas, store.ViewDelta{ProjectID: k.projectID, Day: k.day, Delta: v})
	}
	sort.Slice(deltas, func(i, j int) bool {
		if deltas[i].ProjectID != deltas[j].ProjectID {
			return deltas[i].ProjectID < deltas[j].ProjectID
		}
		return deltas[i].Day.Before(deltas[j].Day)
	})
	return deltas
}
