// Package archiver implements the Archiver and Stats snapshotting
// component: it takes one snapshot per project/stats-scope per day and
// prunes history to a fixed retention shape.
package archiver

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/cncf/clomonitor-go/internal/platform/logging"
	"github.com/cncf/clomonitor-go/internal/store"
)

// Archiver takes daily snapshots of every project's and every stats
// scope's current data, then prunes older snapshots to the retention
// policy computed by SnapshotsToKeep.
type Archiver struct {
	store store.Store
	log   logging.Logger
}

// New returns an Archiver backed by st.
func New(st store.Store, log logging.Logger) *Archiver {
	return &Archiver{store: st, log: log}
}

// Run snapshots and prunes every project, then every stats scope
// (per-foundation plus the foundation=nil aggregate).
func (a *Archiver) Run(ctx context.Context) error {
	today := time.Now().UTC().Truncate(24 * time.Hour)

	projectIDs, err := a.store.AllProjectIDs(ctx)
	if err != nil {
		return fmt.Errorf("list project ids: %w", err)
	}
	for _, id := range projectIDs {
		if err := a.archiveProject(ctx, id, today); err != nil {
			a.log.Error("archiver: project snapshotting failed", logging.String("project_id", id), logging.Err(err))
		}
	}

	foundationIDs, err := a.store.AllFoundationIDs(ctx)
	if err != nil {
		return fmt.Errorf("list foundation ids: %w", err)
	}
	scopes := make([]*string, 0, len(foundationIDs)+1)
	scopes = append(scopes, nil) // the foundation=none aggregate
	for _, id := range foundationIDs {
		id := id
		scopes = append(scopes, &id)
	}
	for _, scope := range scopes {
		if err := a.archiveStats(ctx, scope, today); err != nil {
			a.log.Error("archiver: stats snapshotting failed", logging.Err(err))
		}
	}

	return nil
}

func (a *Archiver) archiveProject(ctx context.Context, projectID string, today time.Time) error {
	dates, err := a.store.ProjectSnapshotDates(ctx, projectID)
	if err != nil {
		return fmt.Errorf("list snapshot dates: %w", err)
	}
	dates = sortDesc(dates)

	if len(dates) == 0 || dates[0].Before(today) {
		data, err := a.store.ProjectCurrentData(ctx, projectID)
		if err != nil {
			return fmt.Errorf("load current data: %w", err)
		}
		if err := a.store.StoreProjectSnapshot(ctx, projectID, today, data); err != nil {
			return fmt.Errorf("store snapshot: %w", err)
		}
		dates = append([]time.Time{today}, dates...)
	}

	keep := SnapshotsToKeep(today, dates)
	for _, d := range dates {
		if !containsDate(keep, d) {
			if err := a.store.DeleteProjectSnapshot(ctx, projectID, d); err != nil {
				return fmt.Errorf("delete stale snapshot %s: %w", d.Format("2006-01-02"), err)
			}
		}
	}
	return nil
}

func (a *Archiver) archiveStats(ctx context.Context, foundationID *string, today time.Time) error {
	dates, err := a.store.StatsSnapshotDates(ctx, foundationID)
	if err != nil {
		return fmt.Errorf("list stats snapshot dates: %w", err)
	}
	dates = sortDesc(dates)

	if len(dates) == 0 || dates[0].Before(today) {
		data, err := a.store.StatsCurrentData(ctx, foundationID)
		if err != nil {
			return fmt.Errorf("load current stats: %w", err)
		}
		if err := a.store.StoreStatsSnapshot(ctx, foundationID, today, data); err != nil {
			return fmt.Errorf("store stats snapshot: %w", err)
		}
		dates = append([]time.Time{today}, dates...)
	}

	keep := SnapshotsToKeep(today, dates)
	for _, d := range dates {
		if !containsDate(keep, d) {
			if err := a.store.DeleteStatsSnapshot(ctx, foundationID, d); err != nil {
				return fmt.Errorf("delete stale stats snapshot %s: %w", d.Format("2006-01-02"), err)
			}
		}
	}
	return nil
}

// SnapshotsToKeep applies the four-rule retention policy to dates (which
// need not be sorted) as of reference "now": keep every snapshot within
// the last 2 days; within the last 30 days, keep one per ISO week; within
// the last 2 years, keep one per month; beyond that, keep one per year.
// The decision is made in a single descending pass. Each rule compares
// against the last kept date it tracks, and a date kept under a finer
// rule also becomes the last kept date for every coarser rule.
func SnapshotsToKeep(now time.Time, dates []time.Time) []time.Time {
	sorted := sortDesc(dates)

	var kept []time.Time
	var lastWeekKept, lastMonthKept, lastYearKept *time.Time

	for _, d := range sorted {
		age := now.Sub(d)

		switch {
		case age <= 2*24*time.Hour:
			kept = append(kept, d)
			lastWeekKept, lastMonthKept, lastYearKept = &d, &d, &d
		case age <= 30*24*time.Hour && isNewISOWeek(d, lastWeekKept):
			kept = append(kept, d)
			lastWeekKept, lastMonthKept, lastYearKept = &d, &d, &d
		case age <= 2*365*24*time.Hour && isNewMonth(d, lastMonthKept):
			kept = append(kept, d)
			lastMonthKept, lastYearKept = &d, &d
		case isNewYear(d, lastYearKept):
			kept = append(kept, d)
			lastYearKept = &d
		}
	}
	return kept
}

func isNewISOWeek(d time.Time, last *time.Time) bool {
	if last == nil {
		return true
	}
	dy, dw := d.ISOWeek()
	ly, lw := last.ISOWeek()
	return ly > dy || (ly == dy && lw > dw)
}

func isNewMonth(d time.Time, last *time.Time) bool {
	if last == nil {
		return true
	}
	return last.Year() > d.Year() || (last.Year() == d.Year() && last.Month() > d.Month())
}

func isNewYear(d time.Time, last *time.Time) bool {
	if last == nil {
		return true
	}
	return last.Year() > d.Year()
}

func sortDesc(dates []time.Time) []time.Time {
	out := make([]time.Time, len(dates))
	copy(out, dates)
	sort.Slice(out, func(i, j int) bool { return out[i].After(out[j]) })
	return out
}

func containsDate(dates []time.Time, d time.Time) bool {
	for _, c := range dates {
		if c.Equal(d) {
			return true
		}
	}
	return false
}
