package checks

import (
	"time"

	"github.com/cncf/clomonitor-go/internal/linter/check"
	"github.com/cncf/clomonitor-go/internal/linter/landscape"
	"github.com/cncf/clomonitor-go/internal/model"
)

// LandscapeLookup is the narrow interface the landscape-derived checks
// need; *landscape.Cache implements it.
type LandscapeLookup interface {
	Lookup(url, clomonitorName string) (landscape.Entry, bool, error)
}

// annualReview passes iff the foundation landscape records an annual
// review date for the project within the last year.
func annualReview(lc LandscapeLookup) check.Func {
	return func(in *check.Input) (*model.CheckOutput, error) {
		if lc == nil || in.Project.LandscapeURL == "" {
			return &model.CheckOutput{}, nil
		}
		entry, ok, err := lc.Lookup(in.Project.LandscapeURL, in.Project.Name)
		if err != nil {
			return nil, err
		}
		if !ok || entry.AnnualReviewDate == "" {
			return &model.CheckOutput{}, nil
		}
		t, err := time.Parse("2006-01-02", entry.AnnualReviewDate)
		if err != nil || !isRecent(t) {
			return &model.CheckOutput{}, nil
		}
		return &model.CheckOutput{Passed: true, URL: entry.AnnualReviewURL, Value: entry.AnnualReviewDate}, nil
	}
}

// summaryTable passes iff the foundation landscape records a summary
// table URL for the project. The value is reported under the wire key
// `release_date`, mirroring the source's `summary_release_rate` /
// `release_date` naming quirk.
func summaryTable(lc LandscapeLookup) check.Func {
	return func(in *check.Input) (*model.CheckOutput, error) {
		if lc == nil || in.Project.LandscapeURL == "" {
			return &model.CheckOutput{}, nil
		}
		entry, ok, err := lc.Lookup(in.Project.LandscapeURL, in.Project.Name)
		if err != nil {
			return nil, err
		}
		if !ok || entry.SummaryTableURL == "" {
			return &model.CheckOutput{}, nil
		}
		out := &model.CheckOutput{Passed: true, URL: entry.SummaryTableURL}
		if entry.SummaryReleaseRate != "" {
			out.Value = map[string]string{"release_date": entry.SummaryReleaseRate}
		}
		return out, nil
	}
}
