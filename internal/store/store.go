// Package store defines the durable-state contract every other
// component depends on, and its Postgres implementation. Every write
// that must be visible
// atomically goes through a single transaction; see Store.StoreResults.
package store

import (
	"context"
	"time"

	"github.com/cncf/clomonitor-go/internal/model"
)

// Store is the durable-state contract every other component depends on.
type Store interface {
	Foundations(ctx context.Context) ([]model.Foundation, error)

	// ProjectsOf returns the current {name: digest} map for a foundation,
	// used by the Registrar to diff against the incoming catalogue.
	ProjectsOf(ctx context.Context, foundationID string) (map[string]string, error)
	UpsertProject(ctx context.Context, foundationID string, p model.Project, repos []model.Repository) error
	DeleteProject(ctx context.Context, foundationID, name string) error

	Repositories(ctx context.Context) ([]RepositoryWithProject, error)

	// StoreResults atomically upserts the report, updates the repository's
	// score/digest, and recomputes the owning project's aggregate score,
	// rating and passed-check set.
	StoreResults(ctx context.Context, in StoreResultsInput) error

	ProjectSnapshotDates(ctx context.Context, projectID string) ([]time.Time, error)
	StoreProjectSnapshot(ctx context.Context, projectID string, date time.Time, data []byte) error
	DeleteProjectSnapshot(ctx context.Context, projectID string, date time.Time) error
	ProjectCurrentData(ctx context.Context, projectID string) ([]byte, error)

	StatsSnapshotDates(ctx context.Context, foundationID *string) ([]time.Time, error)
	StoreStatsSnapshot(ctx context.Context, foundationID *string, date time.Time, data []byte) error
	DeleteStatsSnapshot(ctx context.Context, foundationID *string, date time.Time) error
	StatsCurrentData(ctx context.Context, foundationID *string) ([]byte, error)

	AllProjectIDs(ctx context.Context) ([]string, error)
	AllFoundationIDs(ctx context.Context) ([]string, error)

	// UpdateViewCounts increments view totals for each (project, day)
	// under a process-wide advisory lock, so concurrent flushers never
	// interleave partial sums.
	UpdateViewCounts(ctx context.Context, deltas []ViewDelta) error

	Close() error
}

// RepositoryWithProject pairs a repository with its owning project's
// identity, the shape the Tracker needs for its per-repository walk.
type RepositoryWithProject struct {
	model.Repository
	ProjectName  string
	FoundationID string
	// LandscapeURL is the owning foundation's landscape.yml document, if any.
	LandscapeURL string
}

// StoreResultsInput is the payload for Store.StoreResults.
type StoreResultsInput struct {
	RepositoryID string
	CheckSets    []model.CheckSet
	Report       *model.Report // nil iff the tracking pass failed outright
	Errors       string        // set iff Report is nil
	NewDigest    string
}

// ViewDelta is one (project, day) increment to apply to the view counter
// table.
type ViewDelta struct {
	ProjectID string
	Day       time.Time
	Delta     int
}

// advisoryLockKey is the fixed constant serialising concurrent
// view-count flushers across processes.
const advisoryLockKey = int64(1)
