// Package scorecard invokes the external OpenSSF Scorecard binary and
// parses its JSON output into the subset of sub-checks the check engine
// delegates to.
package scorecard

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"

	"github.com/cncf/clomonitor-go/internal/linter/check"
)

// checksArg is the fixed sub-check list the scanner is invoked with.
const checksArg = "Binary-Artifacts,Code-Review,Dangerous-Workflow,Dependency-Update-Tool,Maintained,Signed-Releases,Token-Permissions"

type rawOutput struct {
	Checks []struct {
		Name          string `json:"name"`
		Score         float64 `json:"score"`
		Reason        string `json:"reason"`
		Documentation struct {
			URL string `json:"url"`
		} `json:"documentation"`
	} `json:"checks"`
}

// Run spawns the scorecard binary against repoURL, authenticating via
// githubToken, and parses its stdout as JSON.
func Run(ctx context.Context, bin, repoURL, githubToken string) (*check.ScorecardResult, error) {
	cmd := exec.CommandContext(ctx, bin,
		fmt.Sprintf("--repo=%s", repoURL),
		fmt.Sprintf("--checks=%s", checksArg),
		"--format=json",
	)
	cmd.Env = append(os.Environ(), "GITHUB_TOKEN="+githubToken)

	out, err := cmd.Output()
	if err != nil {
		if ee, ok := err.(*exec.ExitError); ok {
			return nil, fmt.Errorf("scorecard exited with error: %s", string(ee.Stderr))
		}
		return nil, fmt.Errorf("run scorecard: %w", err)
	}

	var raw rawOutput
	if err := json.Unmarshal(out, &raw); err != nil {
		return nil, fmt.Errorf("parse scorecard output: %w", err)
	}

	result := &check.ScorecardResult{Checks: make(map[string]check.ScorecardCheck, len(raw.Checks))}
	for _, c := range raw.Checks {
		result.Checks[c.Name] = check.ScorecardCheck{
			Name:             c.Name,
			Score:            c.Score,
			Reason:           c.Reason,
			DocumentationURL: c.Documentation.URL,
		}
	}
	return result, nil
}
