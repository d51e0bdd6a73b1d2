// Package tracker implements the tracker: it clones each tracked
// repository, runs the check engine and scorer against it, and stores
// the resulting report.
package tracker

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	gogit "github.com/go-git/go-git/v5"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"gopkg.in/yaml.v3"

	cmerrors "github.com/cncf/clomonitor-go/internal/errors"
	"github.com/cncf/clomonitor-go/internal/linter/check"
	ghclient "github.com/cncf/clomonitor-go/internal/linter/github"
	"github.com/cncf/clomonitor-go/internal/linter/scorecard"
	"github.com/cncf/clomonitor-go/internal/model"
	"github.com/cncf/clomonitor-go/internal/platform/logging"
	"github.com/cncf/clomonitor-go/internal/score"
	"github.com/cncf/clomonitor-go/internal/store"
)

// Config configures a Tracker.
type Config struct {
	Concurrency   int
	RepositoryTTL time.Duration
	StaleAfter    time.Duration
	CloneDepth    int
	ScorecardBin  string
	HTTPClient    *http.Client
}

// Tracker clones, lints, scores and stores results for every tracked
// repository on each Run call.
type Tracker struct {
	store      store.Store
	pool       *ghclient.Pool
	engine     *check.Engine
	scorer     *score.Scorer
	log        logging.Logger
	httpClient *http.Client
	cfg        Config
}

// New returns a Tracker. pool must contain at least one credential.
func New(st store.Store, pool *ghclient.Pool, engine *check.Engine, scorer *score.Scorer, log logging.Logger, cfg Config) *Tracker {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.RepositoryTTL <= 0 {
		cfg.RepositoryTTL = 600 * time.Second
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 24 * time.Hour
	}
	if cfg.CloneDepth <= 0 {
		cfg.CloneDepth = 10
	}
	if cfg.ScorecardBin == "" {
		cfg.ScorecardBin = "scorecard"
	}
	client := cfg.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	return &Tracker{store: st, pool: pool, engine: engine, scorer: scorer, log: log, httpClient: client, cfg: cfg}
}

// Run walks every tracked repository once, bounded by t.cfg.Concurrency
// concurrent repositories. Each repository's task is isolated: a panic,
// timeout or error in one never aborts the others.
func (t *Tracker) Run(ctx context.Context) error {
	repos, err := t.store.Repositories(ctx)
	if err != nil {
		return fmt.Errorf("list repositories: %w", err)
	}

	sem := make(chan struct{}, t.cfg.Concurrency)
	var wg sync.WaitGroup

	for _, repo := range repos {
		repo := repo
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			defer func() {
				if r := recover(); r != nil {
					t.log.Error("tracker: repository task panicked",
						logging.String("repository", repo.URL), logging.String("panic", fmt.Sprint(r)))
				}
			}()

			rctx, cancel := context.WithTimeout(ctx, t.cfg.RepositoryTTL)
			defer cancel()

			if err := t.processRepository(rctx, repo); err != nil {
				if cmerrors.IsTimeout(err) {
					t.log.Error("tracker: repository tracking timed out",
						logging.String("repository", repo.URL), logging.Err(err))
					return
				}
				t.log.Error("tracker: repository tracking failed",
					logging.String("repository", repo.URL), logging.Err(err))
			}
		}()
	}
	wg.Wait()

	if remaining, limit, err := t.rateLimitOf(ctx); err == nil {
		t.log.Info("tracker: run complete", logging.Int("github_rate_remaining", remaining), logging.Int("github_rate_limit", limit))
	}
	return nil
}

func (t *Tracker) rateLimitOf(ctx context.Context) (int, int, error) {
	token, release, err := t.pool.Acquire(ctx)
	if err != nil {
		return 0, 0, err
	}
	defer release()
	return ghclient.New(ctx, token).RateLimit(ctx)
}

func (t *Tracker) processRepository(ctx context.Context, repo store.RepositoryWithProject) error {
	remoteDigest, err := lsRemoteHead(ctx, repo.URL)
	if err != nil {
		return cmerrors.NewGitError("ls-remote", repo.URL, err)
	}

	// Skip re-linting only when the remote HEAD is unchanged AND the
	// stored report is still fresh; an unchanged digest alone is not
	// enough once the staleness window has elapsed.
	if remoteDigest == repo.Digest && time.Since(repo.UpdatedAt) < t.cfg.StaleAfter {
		return nil
	}

	tempDir, err := os.MkdirTemp("", "clomonitor-tracker-*")
	if err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	token, release, err := t.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire github credential: %w", err)
	}
	defer release()

	// A clone failure aborts this repository's pass without touching the
	// store: persisting the new digest here would make the next cycle
	// skip the repository as already-evaluated, so the stored digest is
	// left alone and the clone is retried next cycle.
	if err := cloneRepo(ctx, repo.URL, tempDir, t.cfg.CloneDepth, token); err != nil {
		return cmerrors.NewGitError("clone", repo.URL, err)
	}

	// An invalid .clomonitor.yml aborts the whole repository pass: its
	// exemption semantics cannot be trusted, so no partial report is
	// produced.
	cmYML, cmErr := loadClomonitorYML(tempDir)
	if cmErr != nil {
		return t.storeFailure(ctx, repo, remoteDigest, cmerrors.NewParseError(".clomonitor.yml", cmErr))
	}

	// GraphQL metadata fetch and scorecard invocation both only apply to
	// GitHub-hosted repositories, and run sequentially per repository to
	// avoid secondary rate limits on either API.
	var md *check.GitHubMetadata
	var sc *check.ScorecardResult
	var scErr error
	if owner, name, ok := githubOwnerRepo(repo.URL); ok {
		client := ghclient.New(ctx, token)
		var mdErr error
		md, mdErr = client.FetchMetadata(ctx, owner, name)
		if mdErr != nil {
			// Without gh_md every metadata-dependent check would silently
			// come out not-passed, so a fetch failure fails the whole pass
			// rather than producing a misleadingly complete report.
			return t.storeFailure(ctx, repo, remoteDigest,
				fmt.Errorf("error linting repository: %w",
					cmerrors.NewTransportError("fetch github metadata", repo.URL, mdErr)))
		}

		if t.cfg.ScorecardBin != "" {
			sc, scErr = scorecard.Run(ctx, t.cfg.ScorecardBin, repo.URL, token)
			if scErr != nil {
				t.log.Warn("tracker: scorecard invocation failed", logging.String("repository", repo.URL), logging.Err(scErr))
			}
		}
	}

	in := &check.Input{
		Project:          check.ProjectMeta{Name: repo.ProjectName, FoundationID: repo.FoundationID, LandscapeURL: repo.LandscapeURL},
		Root:             tempDir,
		URL:              repo.URL,
		CheckSets:        repo.CheckSets,
		ClomonitorYML:    cmYML,
		GitHubMetadata:   md,
		Scorecard:        sc,
		ScorecardErr:     scErr,
		SecurityInsights: loadSecurityInsights(tempDir),
		HTTPClient:       t.httpClient,
	}

	report := t.engine.Run(in)
	report.RepositoryID = repo.RepositoryID
	report.GeneratedAt = time.Now().UTC()

	return t.store.StoreResults(ctx, store.StoreResultsInput{
		RepositoryID: repo.RepositoryID,
		CheckSets:    repo.CheckSets,
		Report:       report,
		NewDigest:    remoteDigest,
	})
}

func (t *Tracker) storeFailure(ctx context.Context, repo store.RepositoryWithProject, newDigest string, cause error) error {
	storeErr := t.store.StoreResults(ctx, store.StoreResultsInput{
		RepositoryID: repo.RepositoryID,
		CheckSets:    repo.CheckSets,
		Errors:       cause.Error(),
		NewDigest:    newDigest,
	})
	if storeErr != nil {
		return fmt.Errorf("%w (and failed to persist failure: %v)", cause, storeErr)
	}
	return cause
}

// lsRemoteHead returns the commit hash `git ls-remote <url> HEAD` reports,
// used as the repository's content digest.
func lsRemoteHead(ctx context.Context, repoURL string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "ls-remote", repoURL, "HEAD")
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return "", err
	}
	fields := strings.Fields(out.String())
	if len(fields) == 0 {
		return "", fmt.Errorf("empty ls-remote output for %s", repoURL)
	}
	return fields[0], nil
}

func cloneRepo(ctx context.Context, repoURL, dest string, depth int, token string) error {
	opts := &gogit.CloneOptions{URL: repoURL, Depth: depth}
	// Auth only applies to the HTTP transport; local-path clones (tests)
	// and ssh URLs would reject a BasicAuth method.
	if token != "" && strings.HasPrefix(repoURL, "http") {
		opts.Auth = &githttp.BasicAuth{Username: "x-access-token", Password: token}
	}
	_, err := gogit.PlainCloneContext(ctx, dest, false, opts)
	return err
}

// githubOwnerRepo extracts the owner and repository name from a
// github.com HTTPS URL; ok is false for any other kind of URL (local
// paths in tests, non-GitHub hosts).
func githubOwnerRepo(repoURL string) (owner, name string, ok bool) {
	u, err := url.Parse(repoURL)
	if err != nil || !strings.HasSuffix(u.Host, "github.com") {
		return "", "", false
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 {
		return "", "", false
	}
	return parts[0], strings.TrimSuffix(parts[1], ".git"), true
}

// loadClomonitorYML reads and parses the repository's optional
// `.clomonitor.yml`. A missing file is not an error (nil, nil); a
// present-but-malformed file is, since its exemption semantics cannot
// be trusted.
func loadClomonitorYML(root string) (*model.ClomonitorYML, error) {
	data, err := os.ReadFile(filepath.Join(root, ".clomonitor.yml"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var y model.ClomonitorYML
	if err := yaml.Unmarshal(data, &y); err != nil {
		return nil, err
	}
	return &y, nil
}

func loadSecurityInsights(root string) *model.SecurityInsights {
	data, err := os.ReadFile(filepath.Join(root, "SECURITY-INSIGHTS.yml"))
	if err != nil {
		return nil
	}
	var si model.SecurityInsights
	if err := yaml.Unmarshal(data, &si); err != nil {
		return nil
	}
	return &si
}
