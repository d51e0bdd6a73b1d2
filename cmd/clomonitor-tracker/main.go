// Command clomonitor-tracker runs the Tracker daemon: on a fixed
// schedule, it clones, lints, scores and stores results for every
// tracked repository.
package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-co-op/gocron/v2"
	_ "github.com/lib/pq"

	"github.com/cncf/clomonitor-go/internal/linter/check"
	"github.com/cncf/clomonitor-go/internal/linter/checks"
	ghclient "github.com/cncf/clomonitor-go/internal/linter/github"
	"github.com/cncf/clomonitor-go/internal/linter/landscape"
	"github.com/cncf/clomonitor-go/internal/platform/config"
	"github.com/cncf/clomonitor-go/internal/platform/logging"
	"github.com/cncf/clomonitor-go/internal/score"
	"github.com/cncf/clomonitor-go/internal/store"
	"github.com/cncf/clomonitor-go/internal/tracker"
)

func main() {
	log := logging.Default()

	cfg, err := config.LoadTracker()
	if err != nil {
		log.Error("tracker: load config", logging.Err(err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := migrate(cfg.DB.DSN); err != nil {
		log.Error("tracker: migrate", logging.Err(err))
		os.Exit(1)
	}

	db, err := store.Open(ctx, cfg.DB)
	if err != nil {
		log.Error("tracker: open store", logging.Err(err))
		os.Exit(1)
	}
	defer db.Close()

	pool, err := ghclient.NewPool(cfg.GitHub.Tokens)
	if err != nil {
		log.Error("tracker: create github credential pool", logging.Err(err))
		os.Exit(1)
	}

	lc := landscape.NewCache(nil)
	registry := checks.NewRegistry(lc)
	engine := check.NewEngine(registry)
	scorer := score.New(registry)

	store.SetScorer(scorer.Score)
	store.SetProjectMerger(score.MergeProject)

	t := tracker.New(db, pool, engine, scorer, log, tracker.Config{
		Concurrency:   cfg.Concurrency,
		RepositoryTTL: cfg.RepositoryTTL,
		StaleAfter:    cfg.StaleAfter,
		CloneDepth:    cfg.CloneDepth,
		ScorecardBin:  cfg.ScorecardBin,
	})

	sched, err := gocron.NewScheduler()
	if err != nil {
		log.Error("tracker: create scheduler", logging.Err(err))
		os.Exit(1)
	}

	_, err = sched.NewJob(
		gocron.DurationJob(cfg.TickInterval),
		gocron.NewTask(func() {
			if err := t.Run(ctx); err != nil {
				log.Error("tracker: run failed", logging.Err(err))
			}
		}),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		log.Error("tracker: schedule job", logging.Err(err))
		os.Exit(1)
	}

	log.Info("tracker: starting", logging.Duration("tick_interval", cfg.TickInterval),
		logging.Int("concurrency", cfg.Concurrency), logging.Int("github_credentials", pool.Len()))
	sched.Start()

	<-ctx.Done()
	log.Info("tracker: shutting down")
	if err := sched.Shutdown(); err != nil {
		log.Error("tracker: scheduler shutdown", logging.Err(err))
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
