// Command clomonitor-linter is a one-shot evaluator: it runs the same
// check engine the Tracker uses against a single local directory or a
// freshly cloned repository URL, and renders the resulting score as a
// table or as JSON.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	gogit "github.com/go-git/go-git/v5"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cncf/clomonitor-go/internal/linter/check"
	"github.com/cncf/clomonitor-go/internal/linter/checks"
	ghclient "github.com/cncf/clomonitor-go/internal/linter/github"
	"github.com/cncf/clomonitor-go/internal/linter/landscape"
	"github.com/cncf/clomonitor-go/internal/model"
	"github.com/cncf/clomonitor-go/internal/platform/config"
	"github.com/cncf/clomonitor-go/internal/score"
)

type flags struct {
	path      string
	url       string
	checkSets []string
	passScore int
	format    string
}

func main() {
	f := &flags{}
	exitCode := 0

	root := &cobra.Command{
		Use:   "clomonitor-linter",
		Short: "Evaluate a repository against the clomonitor check catalogue",
		Long:  `Runs the full check engine against a local directory (--path) or a cloned repository (--url) and prints its score.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			pass, err := run(cmd.Context(), f)
			if err != nil {
				return err
			}
			if !pass {
				exitCode = 1
			}
			return nil
		},
	}

	root.Flags().StringVar(&f.path, "path", "", "local repository directory to evaluate")
	root.Flags().StringVar(&f.url, "url", "", "HTTPS repository URL to clone and evaluate")
	root.Flags().StringArrayVar(&f.checkSets, "check-set", nil, "check set to evaluate against (code|code-lite|community|docs), repeatable")
	root.Flags().IntVar(&f.passScore, "pass-score", 0, "minimum global score (0-100) required for a zero exit code")
	root.Flags().StringVar(&f.format, "format", "table", "output format: table|json")

	if err := root.Execute(); err != nil {
		color.Red("%v", err)
		os.Exit(1)
	}
	os.Exit(exitCode)
}

// run evaluates the repository and reports whether its global score met
// the configured pass score. The exit code is decided by the caller so
// deferred cleanup (the temp clone) still runs.
func run(ctx context.Context, f *flags) (bool, error) {
	if f.path == "" && f.url == "" {
		return false, fmt.Errorf("one of --path or --url is required")
	}
	if f.format != "table" && f.format != "json" {
		return false, fmt.Errorf("--format must be table or json")
	}

	cfg, err := config.LoadLinter()
	if err != nil {
		return false, fmt.Errorf("load config: %w", err)
	}
	if len(cfg.GitHub.Tokens) == 0 {
		if tok := os.Getenv("GITHUB_TOKEN"); tok != "" {
			cfg.GitHub.Tokens = []string{tok}
		}
	}
	if f.passScore > 0 {
		cfg.PassScore = f.passScore
	}

	root := f.path
	if f.url != "" {
		tempDir, err := os.MkdirTemp("", "clomonitor-linter-*")
		if err != nil {
			return false, fmt.Errorf("create temp dir: %w", err)
		}
		defer os.RemoveAll(tempDir)
		if err := cloneRepo(ctx, f.url, tempDir, cfg.GitHub.Tokens); err != nil {
			return false, fmt.Errorf("clone %s: %w", f.url, err)
		}
		root = tempDir
	}

	checkSets := parseCheckSets(f.checkSets)
	if len(checkSets) == 0 {
		checkSets = []model.CheckSet{model.CheckSetCode, model.CheckSetCodeLite, model.CheckSetCommunity, model.CheckSetDocs}
	}

	cmYML, err := loadClomonitorYML(root)
	if err != nil {
		return false, fmt.Errorf("parse .clomonitor.yml: %w", err)
	}

	in := &check.Input{
		Root:          root,
		URL:           f.url,
		CheckSets:     checkSets,
		ClomonitorYML: cmYML,
		HTTPClient:    http.DefaultClient,
	}
	if len(cfg.GitHub.Tokens) > 0 {
		client := ghclient.New(ctx, cfg.GitHub.Tokens[0])
		if owner, name, err := splitOwnerRepo(f.url); err == nil {
			if md, err := client.FetchMetadata(ctx, owner, name); err == nil {
				in.GitHubMetadata = md
			}
		}
	}

	lc := landscape.NewCache(nil)
	registry := checks.NewRegistry(lc)
	engine := check.NewEngine(registry)
	scorer := score.New(registry)

	report := engine.Run(in)
	sc := scorer.Score(report)

	if err := render(f.format, sc); err != nil {
		return false, err
	}

	return sc.Global >= float64(cfg.PassScore), nil
}

func render(format string, sc *model.Score) error {
	if format == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(sc)
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Section", "Score", "Weight"})
	for _, section := range model.Sections {
		v, ok := sc.SectionValue(section)
		if !ok {
			tw.AppendRow(table.Row{section, "n/a", "-"})
			continue
		}
		tw.AppendRow(table.Row{section, fmt.Sprintf("%.2f", v), sectionWeight(sc, section)})
	}
	tw.AppendSeparator()
	tw.AppendRow(table.Row{"global", fmt.Sprintf("%.2f", sc.Global), sc.GlobalWeight})
	tw.Render()

	rating := model.RatingFor(sc.Global)
	color.Cyan("rating: %s", rating)
	return nil
}

func sectionWeight(sc *model.Score, section model.Section) uint32 {
	switch section {
	case model.SectionDocumentation:
		if sc.DocumentationW != nil {
			return *sc.DocumentationW
		}
	case model.SectionLicense:
		if sc.LicenseW != nil {
			return *sc.LicenseW
		}
	case model.SectionBestPractices:
		if sc.BestPracticesW != nil {
			return *sc.BestPracticesW
		}
	case model.SectionSecurity:
		if sc.SecurityW != nil {
			return *sc.SecurityW
		}
	case model.SectionLegal:
		if sc.LegalW != nil {
			return *sc.LegalW
		}
	}
	return 0
}

func parseCheckSets(raw []string) []model.CheckSet {
	out := make([]model.CheckSet, 0, len(raw))
	for _, r := range raw {
		out = append(out, model.CheckSet(r))
	}
	return out
}

func cloneRepo(ctx context.Context, repoURL, dest string, tokens []string) error {
	opts := &gogit.CloneOptions{URL: repoURL, Depth: 1}
	if len(tokens) > 0 {
		opts.Auth = &githttp.BasicAuth{Username: "x-access-token", Password: tokens[0]}
	}
	_, err := gogit.PlainCloneContext(ctx, dest, false, opts)
	return err
}

func splitOwnerRepo(repoURL string) (owner, name string, err error) {
	u, err := url.Parse(repoURL)
	if err != nil {
		return "", "", err
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 {
		return "", "", fmt.Errorf("cannot determine owner/repo from %s", repoURL)
	}
	return parts[0], strings.TrimSuffix(parts[1], ".git"), nil
}

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
