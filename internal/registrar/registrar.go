// Package registrar implements the registrar: it periodically
// fetches each foundation's YAML catalogue and reconciles it with the
// store via content digest.
package registrar

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	cmerrors "github.com/cncf/clomonitor-go/internal/errors"
	"github.com/cncf/clomonitor-go/internal/model"
	"github.com/cncf/clomonitor-go/internal/platform/digest"
	"github.com/cncf/clomonitor-go/internal/platform/joinerr"
	"github.com/cncf/clomonitor-go/internal/platform/logging"
	"github.com/cncf/clomonitor-go/internal/store"
)

// serviceName is the value Registrar.Run looks for in a catalogue
// repository's `exclude` list to skip ingesting that repository.
const serviceName = "clomonitor"

// Registrar reconciles every foundation's catalogue with the store on
// each Run call.
type Registrar struct {
	store       store.Store
	httpClient  *http.Client
	log         logging.Logger
	concurrency int
	foundationTTL time.Duration
}

// Config configures a Registrar.
type Config struct {
	Concurrency   int
	FoundationTTL time.Duration
	HTTPClient    *http.Client
}

// New returns a Registrar backed by st.
func New(st store.Store, log logging.Logger, cfg Config) *Registrar {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.FoundationTTL <= 0 {
		cfg.FoundationTTL = 300 * time.Second
	}
	client := cfg.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	return &Registrar{store: st, httpClient: client, log: log, concurrency: cfg.Concurrency, foundationTTL: cfg.FoundationTTL}
}

// Run processes every foundation once, bounded by r.concurrency
// concurrent foundations. Errors from individual
// foundations are collected and returned jointly; one foundation's
// error never aborts the others.
func (r *Registrar) Run(ctx context.Context) error {
	foundations, err := r.store.Foundations(ctx)
	if err != nil {
		return fmt.Errorf("list foundations: %w", err)
	}

	errs := joinerr.New()
	sem := make(chan struct{}, r.concurrency)
	var wg sync.WaitGroup

	for _, f := range foundations {
		f := f
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			fctx, cancel := context.WithTimeout(ctx, r.foundationTTL)
			defer cancel()

			if err := r.processFoundation(fctx, f); err != nil {
				r.log.Error("registrar: foundation reconciliation failed",
					logging.String("foundation", f.FoundationID), logging.Err(err))
				errs.Add(f.FoundationID, err)
			}
		}()
	}
	wg.Wait()

	return errs.Err()
}

func (r *Registrar) processFoundation(ctx context.Context, f model.Foundation) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.DataURL, nil)
	if err != nil {
		return fmt.Errorf("build catalogue request: %w", err)
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return cmerrors.NewTransportError("fetch catalogue", f.DataURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return cmerrors.NewTransportError("fetch catalogue", f.DataURL, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return cmerrors.NewTransportError("read catalogue", f.DataURL, err)
	}

	var records []model.CatalogueProject
	if err := yaml.Unmarshal(body, &records); err != nil {
		return cmerrors.NewParseError(f.DataURL, err)
	}

	filtered := filterExcluded(records)

	stored, err := r.store.ProjectsOf(ctx, f.FoundationID)
	if err != nil {
		return fmt.Errorf("load stored project digests: %w", err)
	}

	incoming := make(map[string]bool, len(filtered))
	for _, rec := range filtered {
		if rec.Name == "" {
			return cmerrors.NewParseError(fmt.Sprintf("catalogue entry for foundation %s", f.FoundationID), fmt.Errorf("missing a project name"))
		}
		digestValue, err := digest.OfValue(rec)
		if err != nil {
			return fmt.Errorf("compute digest for project %s: %w", rec.Name, err)
		}
		incoming[rec.Name] = true

		if stored[rec.Name] == digestValue {
			continue
		}

		proj, repos := toProject(f.FoundationID, rec, digestValue)
		if err := r.store.UpsertProject(ctx, f.FoundationID, proj, repos); err != nil {
			return fmt.Errorf("upsert project %s: %w", rec.Name, err)
		}
	}

	// Tombstone-only reconciliation: never delete when the incoming set
	// is empty, to avoid mass deletion on upstream outage.
	if len(incoming) == 0 {
		return nil
	}
	for name := range stored {
		if !incoming[name] {
			if err := r.store.DeleteProject(ctx, f.FoundationID, name); err != nil {
				return fmt.Errorf("delete stale project %s: %w", name, err)
			}
		}
	}
	return nil
}

// filterExcluded drops repository entries whose `exclude` list names
// this service.
func filterExcluded(records []model.CatalogueProject) []model.CatalogueProject {
	out := make([]model.CatalogueProject, 0, len(records))
	for _, rec := range records {
		repos := make([]model.CatalogueRepository, 0, len(rec.Repositories))
		for _, repo := range rec.Repositories {
			if containsServiceName(repo.Exclude) {
				continue
			}
			repos = append(repos, repo)
		}
		rec.Repositories = repos
		out = append(out, rec)
	}
	return out
}

func containsServiceName(exclude []string) bool {
	for _, e := range exclude {
		if e == serviceName {
			return true
		}
	}
	return false
}

func toProject(foundationID string, rec model.CatalogueProject, digestValue string) (model.Project, []model.Repository) {
	var accepted *time.Time
	if rec.AcceptedAt != "" {
		if t, err := time.Parse("2006-01-02", rec.AcceptedAt); err == nil {
			accepted = &t
		}
	}
	proj := model.Project{
		FoundationID: foundationID,
		Name:         rec.Name,
		DisplayName:  rec.DisplayName,
		Description:  rec.Description,
		Category:     rec.Category,
		HomeURL:      rec.HomeURL,
		LogoURL:      rec.LogoURL,
		LogoDarkURL:  rec.LogoDarkURL,
		DevstatsURL:  rec.DevstatsURL,
		AcceptedAt:   accepted,
		Maturity:     rec.Maturity,
		Digest:       digestValue,
	}
	repos := make([]model.Repository, 0, len(rec.Repositories))
	for _, r := range rec.Repositories {
		sets := make([]model.CheckSet, 0, len(r.CheckSets))
		for _, cs := range r.CheckSets {
			sets = append(sets, model.CheckSet(cs))
		}
		repos = append(repos, model.Repository{Name: r.Name, URL: r.URL, CheckSets: sets})
	}
	return proj, repos
}
