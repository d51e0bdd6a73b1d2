// Command clomonitor-registrar runs the Registrar daemon: on a fixed
// schedule, it reconciles every foundation's catalogue with the store.
package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-co-op/gocron/v2"
	_ "github.com/lib/pq"

	"github.com/cncf/clomonitor-go/internal/platform/config"
	"github.com/cncf/clomonitor-go/internal/platform/logging"
	"github.com/cncf/clomonitor-go/internal/registrar"
	"github.com/cncf/clomonitor-go/internal/store"
)

// migrate applies embedded schema migrations using a short-lived raw
// connection, ahead of the pooled connection store.Open establishes.
func migrate(dsn string) error {
	raw, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}
	defer raw.Close()
	return store.Migrate(raw)
}

func main() {
	log := logging.Default()

	cfg, err := config.LoadRegistrar()
	if err != nil {
		log.Error("registrar: load config", logging.Err(err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := migrate(cfg.DB.DSN); err != nil {
		log.Error("registrar: migrate", logging.Err(err))
		os.Exit(1)
	}

	db, err := store.Open(ctx, cfg.DB)
	if err != nil {
		log.Error("registrar: open store", logging.Err(err))
		os.Exit(1)
	}
	defer db.Close()

	r := registrar.New(db, log, registrar.Config{
		Concurrency:   cfg.Concurrency,
		FoundationTTL: cfg.FoundationTTL,
	})

	sched, err := gocron.NewScheduler()
	if err != nil {
		log.Error("registrar: create scheduler", logging.Err(err))
		os.Exit(1)
	}

	_, err = sched.NewJob(
		gocron.DurationJob(cfg.TickInterval),
		gocron.NewTask(func() {
			if err := r.Run(ctx); err != nil {
				log.Error("registrar: run failed", logging.Err(err))
			}
		}),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		log.Error("registrar: schedule job", logging.Err(err))
		os.Exit(1)
	}

	log.Info("registrar: starting", logging.Duration("tick_interval", cfg.TickInterval), logging.Int("concurrency", cfg.Concurrency))
	sched.Start()

	<-ctx.Done()
	log.Info("registrar: shutting down")
	if err := sched.Shutdown(); err != nil {
		log.Error("registrar: scheduler shutdown", logging.Err(err))
	}
}
