// Package checks implements the ~30-check catalogue as small
// compositions of a handful of primitives: file globbing, README regex
// matching, release/status-context inspection, remote probes, and
// delegation to the external scorecard output.
package checks

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/cncf/clomonitor-go/internal/linter/check"
	"github.com/cncf/clomonitor-go/internal/model"
)

// findFile searches root for the first file matching any of the given
// glob patterns (relative to root), returning its relative path.
func findFile(root string, globs ...string) (string, bool) {
	for _, g := range globs {
		matches, err := filepath.Glob(filepath.Join(root, g))
		if err != nil || len(matches) == 0 {
			continue
		}
		rel, err := filepath.Rel(root, matches[0])
		if err != nil {
			continue
		}
		return rel, true
	}
	return "", false
}

// canonicalURL builds the canonical GitHub blob URL for a file found in
// the working tree, the url a passing file-presence check reports.
func canonicalURL(repoURL, defaultBranch, relPath string) string {
	base := strings.TrimSuffix(repoURL, "/")
	branch := defaultBranch
	if branch == "" {
		branch = "HEAD"
	}
	return fmt.Sprintf("%s/blob/%s/%s", base, branch, filepath.ToSlash(relPath))
}

// filePresence passes iff any glob matches a file in the working tree.
func filePresence(globs ...string) check.Func {
	return func(in *check.Input) (*model.CheckOutput, error) {
		rel, ok := findFile(in.Root, globs...)
		if !ok {
			return &model.CheckOutput{}, nil
		}
		branch := ""
		if in.GitHubMetadata != nil {
			branch = in.GitHubMetadata.DefaultBranch
		}
		return &model.CheckOutput{Passed: true, URL: canonicalURL(in.URL, branch, rel)}, nil
	}
}

// readmeGlobs are the filenames searched for README content checks.
var readmeGlobs = []string{"README*", "docs/README*", ".github/README*"}

// readmeMatches passes iff any README file's content matches one of the
// given regexes. If captureGroup is true, the first match's capture
// group becomes the output's URL.
func readmeMatches(captureGroup bool, patterns ...string) check.Func {
	res := compileAll(patterns)
	return func(in *check.Input) (*model.CheckOutput, error) {
		for _, g := range readmeGlobs {
			matches, err := filepath.Glob(filepath.Join(in.Root, g))
			if err != nil {
				continue
			}
			for _, p := range matches {
				data, err := os.ReadFile(p)
				if err != nil {
					return nil, fmt.Errorf("read readme: %w", err)
				}
				text := string(data)
				for _, re := range res {
					m := re.FindStringSubmatch(text)
					if m == nil {
						continue
					}
					out := &model.CheckOutput{Passed: true}
					if captureGroup && len(m) > 1 {
						out.URL = m[1]
					}
					return out, nil
				}
			}
		}
		return &model.CheckOutput{}, nil
	}
}

func compileAll(patterns []string) []*regexp.Regexp {
	res := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		res = append(res, regexp.MustCompile(p))
	}
	return res
}

// firstOf tries each check in order and returns the first one that
// passes; if none pass, it returns the last non-passing result. An error
// from any check is returned at once and the remaining checks are not
// tried.
func firstOf(fns ...check.Func) check.Func {
	return func(in *check.Input) (*model.CheckOutput, error) {
		var last *model.CheckOutput
		for _, fn := range fns {
			out, err := fn(in)
			if err != nil {
				return nil, err
			}
			if out.Passed {
				return out, nil
			}
			last = out
		}
		return last, nil
	}
}

// fileOrCommunityHealth passes iff the file is present locally under any
// of globs, falling back to the organisation's centralised `.github`
// repository.
func fileOrCommunityHealth(healthFile string, globs ...string) check.Func {
	return firstOf(filePresence(globs...), communityHealthFile(healthFile))
}

// securityPolicyFromMetadata passes iff the host reports a security
// policy for the repository, using the URL it advertises.
func securityPolicyFromMetadata() check.Func {
	return func(in *check.Input) (*model.CheckOutput, error) {
		if in.GitHubMetadata == nil || in.GitHubMetadata.SecurityPolicyURL == "" {
			return &model.CheckOutput{}, nil
		}
		return &model.CheckOutput{Passed: true, URL: in.GitHubMetadata.SecurityPolicyURL}, nil
	}
}

// recentRelease passes iff the latest non-pre-release was created less
// than 365 days ago.
func recentRelease() check.Func {
	return func(in *check.Input) (*model.CheckOutput, error) {
		if in.GitHubMetadata == nil || in.GitHubMetadata.LatestRelease == nil {
			return &model.CheckOutput{}, nil
		}
		rel := in.GitHubMetadata.LatestRelease
		if rel.IsPrerelease {
			return &model.CheckOutput{}, nil
		}
		if isRecent(rel.CreatedAt) {
			return &model.CheckOutput{Passed: true, Value: rel.TagName}, nil
		}
		return &model.CheckOutput{}, nil
	}
}

// isRecent reports whether t is less than 365 days before now (UTC).
func isRecent(t time.Time) bool {
	if t.IsZero() {
		return false
	}
	return time.Since(t.UTC()) < 365*24*time.Hour
}

// releaseDescriptionMatches passes iff the latest release's description
// matches any of the given regexes.
func releaseDescriptionMatches(patterns ...string) check.Func {
	res := compileAll(patterns)
	return func(in *check.Input) (*model.CheckOutput, error) {
		if in.GitHubMetadata == nil || in.GitHubMetadata.LatestRelease == nil {
			return &model.CheckOutput{}, nil
		}
		desc := in.GitHubMetadata.LatestRelease.Description
		for _, re := range res {
			if re.MatchString(desc) {
				return &model.CheckOutput{Passed: true}, nil
			}
		}
		return &model.CheckOutput{}, nil
	}
}

// releaseAssetMatches passes iff any asset name of the latest release
// matches any of the given regexes (e.g. SBOM artifact naming).
func releaseAssetMatches(patterns ...string) check.Func {
	res := compileAll(patterns)
	return func(in *check.Input) (*model.CheckOutput, error) {
		if in.GitHubMetadata == nil || in.GitHubMetadata.LatestRelease == nil {
			return &model.CheckOutput{}, nil
		}
		for _, asset := range in.GitHubMetadata.LatestRelease.Assets {
			for _, re := range res {
				if re.MatchString(asset) {
					return &model.CheckOutput{Passed: true, Value: asset}, nil
				}
			}
		}
		return &model.CheckOutput{}, nil
	}
}

// statusContextMatches passes iff the latest merged PR's head commit
// carries a check-suite/check-run/status context matching any regex.
func statusContextMatches(patterns ...string) check.Func {
	res := compileAll(patterns)
	return func(in *check.Input) (*model.CheckOutput, error) {
		if in.GitHubMetadata == nil {
			return &model.CheckOutput{}, nil
		}
		for _, ctx := range in.GitHubMetadata.LatestPRStatusContexts {
			for _, re := range res {
				if re.MatchString(ctx.Name) {
					return &model.CheckOutput{Passed: true}, nil
				}
			}
		}
		return &model.CheckOutput{}, nil
	}
}

// communityHealthFile issues a HEAD request to raw.<host>/<owner>/.github/HEAD/<file>;
// a 200 response is a pass whose URL points at the file.
func communityHealthFile(file string) check.Func {
	return func(in *check.Input) (*model.CheckOutput, error) {
		if in.GitHubMetadata == nil || in.GitHubMetadata.Owner == "" {
			return &model.CheckOutput{}, nil
		}
		url := fmt.Sprintf("https://raw.githubusercontent.com/%s/.github/HEAD/%s", in.GitHubMetadata.Owner, file)
		client := in.HTTPClient
		if client == nil {
			client = http.DefaultClient
		}
		req, err := http.NewRequest(http.MethodHead, url, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("probe community health file: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			return &model.CheckOutput{Passed: true, URL: url}, nil
		}
		return &model.CheckOutput{}, nil
	}
}

// remoteContentMatches GETs url (or the repository's homepage URL if
// url is empty) and regex-matches the body.
func remoteContentMatches(explicitURL string, patterns ...string) check.Func {
	res := compileAll(patterns)
	return func(in *check.Input) (*model.CheckOutput, error) {
		url := explicitURL
		if url == "" {
			if in.GitHubMetadata == nil || in.GitHubMetadata.HomepageURL == "" {
				return &model.CheckOutput{}, nil
			}
			url = in.GitHubMetadata.HomepageURL
		}
		client := in.HTTPClient
		if client == nil {
			client = http.DefaultClient
		}
		resp, err := client.Get(url)
		if err != nil {
			return nil, fmt.Errorf("fetch remote content: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return &model.CheckOutput{}, nil
		}
		if len(res) == 0 {
			// No content pattern to match: presence plus reachability is
			// the whole check (e.g. a self-assessment evidence URL).
			return &model.CheckOutput{Passed: true, URL: url}, nil
		}
		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return nil, fmt.Errorf("read remote content: %w", err)
		}
		for _, re := range res {
			if re.Match(body) {
				return &model.CheckOutput{Passed: true, URL: url}, nil
			}
		}
		return &model.CheckOutput{}, nil
	}
}

// websiteReachable passes iff the repository's reported homepage URL
// responds with HTTP 200.
func websiteReachable() check.Func {
	return func(in *check.Input) (*model.CheckOutput, error) {
		if in.GitHubMetadata == nil || in.GitHubMetadata.HomepageURL == "" {
			return &model.CheckOutput{}, nil
		}
		client := in.HTTPClient
		if client == nil {
			client = http.DefaultClient
		}
		resp, err := client.Get(in.GitHubMetadata.HomepageURL)
		if err != nil {
			return nil, fmt.Errorf("probe website: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			return &model.CheckOutput{Passed: true, URL: in.GitHubMetadata.HomepageURL}, nil
		}
		return &model.CheckOutput{}, nil
	}
}

// scorecardDelegate delegates to a named sub-check of the external
// scanner's output; it passes iff the sub-check's score is at or above
// the pass threshold (5.0, or 1.0 for "Signed-Releases").
func scorecardDelegate(subCheck string) check.Func {
	return func(in *check.Input) (*model.CheckOutput, error) {
		if in.ScorecardErr != nil {
			return &model.CheckOutput{Failed: true, FailReason: in.ScorecardErr.Error()}, nil
		}
		if in.Scorecard == nil {
			return &model.CheckOutput{}, nil
		}
		sc, ok := in.Scorecard.Checks[subCheck]
		if !ok {
			return &model.CheckOutput{}, nil
		}
		threshold := 5.0
		if subCheck == "Signed-Releases" {
			threshold = 1.0
		}
		out := &model.CheckOutput{
			URL: sc.DocumentationURL,
			Details: fmt.Sprintf(
				"**Score**: %.1f\n\n**Reason**: %s\n\n**Documentation**: %s\n",
				sc.Score, sc.Reason, sc.DocumentationURL,
			),
		}
		if sc.Score >= threshold {
			out.Passed = true
		}
		return out, nil
	}
}
