// Package check defines the CheckInput/CheckOutput contract and the
// engine that runs the check catalogue against it.
package check

import (
	"net/http"
	"time"

	"github.com/cncf/clomonitor-go/internal/model"
)

// ProjectMeta identifies the project a repository belongs to, for checks
// that consult the foundation landscape (e.g. annual_review).
type ProjectMeta struct {
	Name         string
	FoundationID string
	LandscapeURL string
}

// Release is the subset of a repository's latest non-pre-release node
// the check catalogue consults.
type Release struct {
	TagName     string
	Description string
	CreatedAt   time.Time
	IsPrerelease bool
	Assets      []string
}

// StatusContext is one check-suite/check-run/commit-status entry found
// on a pull request's head commit.
type StatusContext struct {
	Name string
}

// Discussion is the latest GitHub Discussions node, if the repository
// has discussions enabled.
type Discussion struct {
	CreatedAt time.Time
}

// GitHubMetadata is the repository metadata retrieved via the GraphQL
// API.
type GitHubMetadata struct {
	Owner                  string
	DefaultBranch          string
	LicenseSPDXID          string
	HomepageURL            string
	SecurityPolicyURL      string
	LatestRelease          *Release
	LatestPRStatusContexts []StatusContext
	LatestDiscussion       *Discussion
	HasDiscussionsEnabled  bool
}

// ScorecardResult is the parsed output of the external security
// scanner, or the error captured if it failed to run.
type ScorecardResult struct {
	Checks map[string]ScorecardCheck
}

// ScorecardCheck is one named sub-check's score, reason and docs URL
// from the external scanner's output.
type ScorecardCheck struct {
	Name          string
	Score         float64
	Reason        string
	DocumentationURL string
}

// Input carries everything a check implementation needs to evaluate a
// single repository. It is read-only for the
// duration of a run; multiple checks may read it concurrently.
type Input struct {
	Project          ProjectMeta
	Root             string
	URL              string
	CheckSets        []model.CheckSet
	ClomonitorYML    *model.ClomonitorYML
	GitHubMetadata   *GitHubMetadata
	Scorecard        *ScorecardResult
	ScorecardErr     error
	SecurityInsights *model.SecurityInsights
	HTTPClient       *http.Client
}
