package archiver

import (
	"testing"
	"time"
)

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("parse date %s: %v", s, err)
	}
	return d
}

func datesOf(t *testing.T, ss ...string) []time.Time {
	t.Helper()
	out := make([]time.Time, len(ss))
	for i, s := range ss {
		out[i] = mustDate(t, s)
	}
	return out
}

// TestSnapshotsToKeep_DailyRunKeepsOnePerPriorISOWeek reproduces a daily
// archiver run over a dense run of consecutive dates: every date within
// 2 days of now is kept outright, then the pass keeps only the newest
// date in each earlier ISO week relative to the last kept date, not a
// fixed calendar-week bucketing.
func TestSnapshotsToKeep_DailyRunKeepsOnePerPriorISOWeek(t *testing.T) {
	now := mustDate(t, "2022-10-25")
	dates := datesOf(t,
		"2022-10-25", "2022-10-24", "2022-10-23", "2022-10-22", "2022-10-21",
		"2022-10-20", "2022-10-19", "2022-10-18", "2022-10-17", "2022-10-16",
		"2022-10-15", "2022-10-14", "2022-10-13",
	)

	got := SnapshotsToKeep(now, dates)

	// 10-25 and 10-24 fall within 2 days; 10-23 is exactly 2 days old
	// and the boundary is inclusive, so it is kept too. 10-22 through
	// 10-17 share 10-23's ISO week and are dropped. 10-16 starts a new
	// ISO week relative to 10-23 and is kept; 10-15 through 10-13 share
	// 10-16's week and are dropped in turn.
	want := map[string]bool{
		"2022-10-25": true, "2022-10-24": true, "2022-10-23": true, "2022-10-16": true,
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d kept dates, got %d: %v", len(want), len(got), formatDates(got))
	}
	for _, d := range got {
		if !want[d.Format("2006-01-02")] {
			t.Errorf("unexpected date kept: %s", d.Format("2006-01-02"))
		}
	}
}

// TestSnapshotsToKeep_OnePerISOWeekBeyond2Days checks the weekly-bucket
// rule in isolation, with dates spaced far enough apart that ISO-week
// membership is unambiguous.
func TestSnapshotsToKeep_OnePerISOWeekBeyond2Days(t *testing.T) {
	now := mustDate(t, "2022-11-01")
	dates := datesOf(t, "2022-11-01", "2022-10-20", "2022-10-06")
	got := SnapshotsToKeep(now, dates)

	if len(got) != 3 {
		t.Fatalf("expected all 3 dates kept (distinct ISO weeks), got %d: %v", len(got), formatDates(got))
	}
}

// TestSnapshotsToKeep_SameISOWeekKeepsNewestOnly checks that of two
// dates sharing an ISO week, only the more recent is kept.
func TestSnapshotsToKeep_SameISOWeekKeepsNewestOnly(t *testing.T) {
	now := mustDate(t, "2022-11-10")
	dates := datesOf(t, "2022-11-04", "2022-11-02")
	got := SnapshotsToKeep(now, dates)

	if len(got) != 1 || got[0].Format("2006-01-02") != "2022-11-04" {
		t.Fatalf("expected only 2022-11-04 kept, got %v", formatDates(got))
	}
}

func TestSnapshotsToKeep_AllWithin2Days(t *testing.T) {
	now := mustDate(t, "2022-10-25")
	dates := datesOf(t, "2022-10-25", "2022-10-24", "2022-10-23")
	got := SnapshotsToKeep(now, dates)
	if len(got) != 3 {
		t.Errorf("expected all 3 snapshots within 2 days kept, got %d", len(got))
	}
}

func TestSnapshotsToKeep_OnePerMonthBeyond30Days(t *testing.T) {
	now := mustDate(t, "2023-06-30")
	dates := datesOf(t, "2023-05-15", "2023-05-02", "2023-04-20", "2023-04-05")
	got := SnapshotsToKeep(now, dates)

	want := map[string]bool{"2023-05-15": true, "2023-04-20": true}
	if len(got) != 2 {
		t.Fatalf("expected 2 kept dates (one per month), got %d: %v", len(got), formatDates(got))
	}
	for _, d := range got {
		if !want[d.Format("2006-01-02")] {
			t.Errorf("unexpected date kept: %s", d.Format("2006-01-02"))
		}
	}
}

func TestSnapshotsToKeep_OnePerYearBeyond2Years(t *testing.T) {
	now := mustDate(t, "2023-01-01")
	dates := datesOf(t, "2020-06-01", "2020-03-01", "2019-11-01")
	got := SnapshotsToKeep(now, dates)

	want := map[string]bool{"2020-06-01": true, "2019-11-01": true}
	if len(got) != 2 {
		t.Fatalf("expected 2 kept dates (one per year), got %d: %v", len(got), formatDates(got))
	}
	for _, d := range got {
		if !want[d.Format("2006-01-02")] {
			t.Errorf("unexpected date kept: %s", d.Format("2006-01-02"))
		}
	}
}

// TestSnapshotsToKeep_MixedWindow walks a history spanning the 2-day and
// ISO-week rules together: two fresh dates kept outright, then one per
// earlier ISO week.
func TestSnapshotsToKeep_MixedWindow(t *testing.T) {
	now := mustDate(t, "2022-10-25")
	dates := datesOf(t, "2022-10-25", "2022-10-24", "2022-10-20", "2022-10-19", "2022-10-13", "2022-10-10")
	got := SnapshotsToKeep(now, dates)

	want := []string{"2022-10-25", "2022-10-24", "2022-10-20", "2022-10-13"}
	if len(got) != len(want) {
		t.Fatalf("expected %v kept, got %v", want, formatDates(got))
	}
	for i, d := range got {
		if d.Format("2006-01-02") != want[i] {
			t.Fatalf("expected %v kept, got %v", want, formatDates(got))
		}
	}
}

func TestSnapshotsToKeep_EmptyInput(t *testing.T) {
	if got := SnapshotsToKeep(mustDate(t, "2022-01-01"), nil); len(got) != 0 {
		t.Errorf("expected no kept dates for empty input, got %d", len(got))
	}
}

func formatDates(dates []time.Time) []string {
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = d.Format("2006-01-02")
	}
	return out
}
