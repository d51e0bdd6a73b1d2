// Command clomonitor-archiver runs the Archiver daemon: on a fixed
// schedule, it snapshots every project's and stats scope's current
// rendered data and prunes history to the retention policy.
package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-co-op/gocron/v2"
	_ "github.com/lib/pq"

	"github.com/cncf/clomonitor-go/internal/archiver"
	"github.com/cncf/clomonitor-go/internal/platform/config"
	"github.com/cncf/clomonitor-go/internal/platform/logging"
	"github.com/cncf/clomonitor-go/internal/store"
)

func main() {
	log := logging.Default()

	cfg, err := config.LoadArchiver()
	if err != nil {
		log.Error("archiver: load config", logging.Err(err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := migrate(cfg.DB.DSN); err != nil {
		log.Error("archiver: migrate", logging.Err(err))
		os.Exit(1)
	}

	db, err := store.Open(ctx, cfg.DB)
	if err != nil {
		log.Error("archiver: open store", logging.Err(err))
		os.Exit(1)
	}
	defer db.Close()

	a := archiver.New(db, log)

	sched, err := gocron.NewScheduler()
	if err != nil {
		log.Error("archiver: create scheduler", logging.Err(err))
		os.Exit(1)
	}

	_, err = sched.NewJob(
		gocron.DurationJob(cfg.TickInterval),
		gocron.NewTask(func() {
			if err := a.Run(ctx); err != nil {
				log.Error("archiver: run failed", logging.Err(err))
			}
		}),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		log.Error("archiver: schedule job", logging.Err(err))
		os.Exit(1)
	}

	log.Info("archiver: starting", logging.Duration("tick_interval", cfg.TickInterval))
	sched.Start()

	<-ctx.Done()
	log.Info("archiver: shutting down")
	if err := sched.Shutdown(); err != nil {
		log.Error("archiver: scheduler shutdown", logging.Err(err))
	}
}

func migrate(dsn string) error {
	raw, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}
	defer raw.Close()
	return store.Migrate(raw)
}
