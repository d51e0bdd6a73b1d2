// Command clomonitor-viewtracker runs the View Tracker: a long-lived
// aggregator/flusher pair that batches per-project page-view counts
// before writing them to the store. TrackView itself is invoked by the
// (out-of-scope) HTTP API process; this binary only owns the
// aggregate-then-flush loop and its graceful shutdown.
package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"

	"github.com/cncf/clomonitor-go/internal/platform/config"
	"github.com/cncf/clomonitor-go/internal/platform/logging"
	"github.com/cncf/clomonitor-go/internal/store"
	"github.com/cncf/clomonitor-go/internal/viewtracker"
)

func main() {
	log := logging.Default()

	cfg, err := config.LoadViewTracker()
	if err != nil {
		log.Error("viewtracker: load config", logging.Err(err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := migrate(cfg.DB.DSN); err != nil {
		log.Error("viewtracker: migrate", logging.Err(err))
		os.Exit(1)
	}

	db, err := store.Open(ctx, cfg.DB)
	if err != nil {
		log.Error("viewtracker: open store", logging.Err(err))
		os.Exit(1)
	}
	defer db.Close()

	vt := viewtracker.New(db, log, viewtracker.Config{
		FlushInterval: cfg.FlushInterval,
		QueueCapacity: cfg.QueueCapacity,
	})

	log.Info("viewtracker: starting", logging.Duration("flush_interval", cfg.FlushInterval), logging.Int("queue_capacity", cfg.QueueCapacity))

	// Run blocks until ctx is cancelled, at which point the aggregator
	// flushes its residual map and both workers exit.
	vt.Run(ctx)

	log.Info("viewtracker: shut down")
}

func migrate(dsn string) error {
	raw, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}
	defer raw.Close()
	return store.Migrate(raw)
}
