package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/cncf/clomonitor-go/internal/model"
	"github.com/cncf/clomonitor-go/internal/platform/config"
)

// Postgres implements Store backed by database/sql + lib/pq, the way the
// rest of the corpus's service packages wrap a *sql.DB behind a narrow
// per-domain store.
type Postgres struct {
	db *sql.DB
}

// Open connects to Postgres per cfg, verifies connectivity, and returns a
// ready Postgres store. The caller must Close it on shutdown.
func Open(ctx context.Context, cfg config.DB) (*Postgres, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres DSN is required")
	}
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Postgres{db: db}, nil
}

// NewPostgres wraps an already-open *sql.DB, used by tests with sqlmock.
func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

func (p *Postgres) Close() error { return p.db.Close() }

func (p *Postgres) Foundations(ctx context.Context) ([]model.Foundation, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT foundation_id, data_url, landscape_url FROM foundation ORDER BY foundation_id`)
	if err != nil {
		return nil, fmt.Errorf("list foundations: %w", err)
	}
	defer rows.Close()

	var out []model.Foundation
	for rows.Next() {
		var f model.Foundation
		if err := rows.Scan(&f.FoundationID, &f.DataURL, &f.LandscapeURL); err != nil {
			return nil, fmt.Errorf("scan foundation: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (p *Postgres) ProjectsOf(ctx context.Context, foundationID string) (map[string]string, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT name, digest FROM project WHERE foundation_id = $1`, foundationID)
	if err != nil {
		return nil, fmt.Errorf("list project digests: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var name, digest string
		if err := rows.Scan(&name, &digest); err != nil {
			return nil, fmt.Errorf("scan project digest: %w", err)
		}
		out[name] = digest
	}
	return out, rows.Err()
}

func (p *Postgres) UpsertProject(ctx context.Context, foundationID string, proj model.Project, repos []model.Repository) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert project tx: %w", err)
	}
	defer tx.Rollback()

	var projectID string
	err = tx.QueryRowContext(ctx, `
		INSERT INTO project (
			project_id, foundation_id, name, display_name, description, category,
			home_url, logo_url, logo_dark_url, devstats_url, accepted_at, maturity,
			digest, updated_at
		) VALUES (
			$13, $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, now()
		)
		ON CONFLICT (foundation_id, name) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			description  = EXCLUDED.description,
			category     = EXCLUDED.category,
			home_url     = EXCLUDED.home_url,
			logo_url     = EXCLUDED.logo_url,
			logo_dark_url = EXCLUDED.logo_dark_url,
			devstats_url = EXCLUDED.devstats_url,
			accepted_at  = EXCLUDED.accepted_at,
			maturity     = EXCLUDED.maturity,
			digest       = EXCLUDED.digest,
			updated_at   = now()
		RETURNING project_id
	`, foundationID, proj.Name, proj.DisplayName, proj.Description, proj.Category,
		proj.HomeURL, proj.LogoURL, proj.LogoDarkURL, proj.DevstatsURL, proj.AcceptedAt, proj.Maturity,
		proj.Digest, uuid.NewString()).Scan(&projectID)
	if err != nil {
		return fmt.Errorf("upsert project: %w", err)
	}

	keep := make([]string, 0, len(repos))
	for _, r := range repos {
		checkSets := make([]string, len(r.CheckSets))
		for i, cs := range r.CheckSets {
			checkSets[i] = string(cs)
		}
		var repoID string
		err = tx.QueryRowContext(ctx, `
			INSERT INTO repository (repository_id, project_id, name, url, check_sets, updated_at)
			VALUES ($5, $1, $2, $3, $4, now())
			ON CONFLICT (project_id, name) DO UPDATE SET
				url = EXCLUDED.url,
				check_sets = EXCLUDED.check_sets,
				updated_at = now()
			RETURNING repository_id
		`, projectID, r.Name, r.URL, pq.Array(checkSets), uuid.NewString()).Scan(&repoID)
		if err != nil {
			return fmt.Errorf("upsert repository %s: %w", r.Name, err)
		}
		keep = append(keep, r.Name)
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM repository WHERE project_id = $1 AND NOT (name = ANY($2))
	`, projectID, pq.Array(keep)); err != nil {
		return fmt.Errorf("prune stale repositories: %w", err)
	}

	return tx.Commit()
}

func (p *Postgres) DeleteProject(ctx context.Context, foundationID, name string) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM project WHERE foundation_id = $1 AND name = $2`, foundationID, name)
	if err != nil {
		return fmt.Errorf("delete project %s: %w", name, err)
	}
	return nil
}

func (p *Postgres) Repositories(ctx context.Context) ([]RepositoryWithProject, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT r.repository_id, r.project_id, r.name, r.url, r.check_sets, r.digest, r.updated_at,
		       p.name, p.foundation_id, f.landscape_url
		FROM repository r
		JOIN project p ON p.project_id = r.project_id
		JOIN foundation f ON f.foundation_id = p.foundation_id
	`)
	if err != nil {
		return nil, fmt.Errorf("list repositories: %w", err)
	}
	defer rows.Close()

	var out []RepositoryWithProject
	for rows.Next() {
		var rp RepositoryWithProject
		var checkSets []string
		var digest sql.NullString
		if err := rows.Scan(&rp.RepositoryID, &rp.ProjectID, &rp.Name, &rp.URL,
			pq.Array(&checkSets), &digest, &rp.UpdatedAt, &rp.ProjectName, &rp.FoundationID, &rp.LandscapeURL); err != nil {
			return nil, fmt.Errorf("scan repository: %w", err)
		}
		rp.Digest = digest.String
		rp.CheckSets = make([]model.CheckSet, len(checkSets))
		for i, cs := range checkSets {
			rp.CheckSets[i] = model.CheckSet(cs)
		}
		out = append(out, rp)
	}
	return out, rows.Err()
}

// StoreResults upserts the report, the repository's score/digest, and
// recomputes the project aggregate, all inside one transaction, so a
// reader never observes a repository score inconsistent with its report
// or its project aggregate.
func (p *Postgres) StoreResults(ctx context.Context, in StoreResultsInput) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin store results tx: %w", err)
	}
	defer tx.Rollback()

	var reportJSON []byte
	var repoErrors string
	var sc *model.Score
	if in.Report != nil {
		reportJSON, err = json.Marshal(in.Report.Data)
		if err != nil {
			return fmt.Errorf("marshal report: %w", err)
		}
		sc = computeScoreFn(in.Report)
	} else {
		repoErrors = in.Errors
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO report (repository_id, data, errors, generated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (repository_id) DO UPDATE SET
			data = EXCLUDED.data, errors = EXCLUDED.errors, generated_at = now()
	`, in.RepositoryID, nullableJSON(reportJSON), repoErrors); err != nil {
		return fmt.Errorf("upsert report: %w", err)
	}

	var projectID string
	var scoreJSON []byte
	if sc != nil {
		scoreJSON, err = json.Marshal(sc)
		if err != nil {
			return fmt.Errorf("marshal score: %w", err)
		}
	}
	if err := tx.QueryRowContext(ctx, `
		UPDATE repository SET digest = $1, score = $2, updated_at = now()
		WHERE repository_id = $3
		RETURNING project_id
	`, in.NewDigest, nullableJSON(scoreJSON), in.RepositoryID).Scan(&projectID); err != nil {
		return fmt.Errorf("update repository: %w", err)
	}

	if err := recomputeProjectAggregate(ctx, tx, projectID); err != nil {
		return err
	}

	return tx.Commit()
}

// computeScoreFn is the scoring hook StoreResults calls; it delegates to
// scoreReportFn.
var computeScoreFn = func(r *model.Report) *model.Score { return scoreReportFn(r) }

// scoreReportFn is set by main() through SetScorer, so store does not
// import score; until then it returns nil.
var scoreReportFn func(*model.Report) *model.Score = func(*model.Report) *model.Score { return nil }

// SetScorer lets main() wire the score package's pure function in
// without store importing score directly.
func SetScorer(fn func(*model.Report) *model.Score) { scoreReportFn = fn }

func recomputeProjectAggregate(ctx context.Context, tx *sql.Tx, projectID string) error {
	rows, err := tx.QueryContext(ctx, `SELECT score FROM repository WHERE project_id = $1 AND score IS NOT NULL`, projectID)
	if err != nil {
		return fmt.Errorf("load repository scores: %w", err)
	}
	var scores []*model.Score
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			rows.Close()
			return fmt.Errorf("scan repository score: %w", err)
		}
		var sc model.Score
		if err := json.Unmarshal(raw, &sc); err != nil {
			rows.Close()
			return fmt.Errorf("unmarshal repository score: %w", err)
		}
		scores = append(scores, &sc)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	rows.Close()

	merged := mergeProjectScoreFn(scores)

	passedRows, err := tx.QueryContext(ctx, `
		SELECT r.data
		FROM report r
		JOIN repository rep ON rep.repository_id = r.repository_id
		WHERE rep.project_id = $1 AND r.data IS NOT NULL
	`, projectID)
	if err != nil {
		return fmt.Errorf("load reports for passed-check union: %w", err)
	}
	passed := map[string]struct{}{}
	for passedRows.Next() {
		var raw []byte
		if err := passedRows.Scan(&raw); err != nil {
			passedRows.Close()
			return fmt.Errorf("scan report data: %w", err)
		}
		var sections map[model.Section]map[string]*model.CheckOutput
		if err := json.Unmarshal(raw, &sections); err != nil {
			passedRows.Close()
			return fmt.Errorf("unmarshal report data: %w", err)
		}
		for _, checks := range sections {
			for id, out := range checks {
				if out != nil && out.Passed {
					passed[id] = struct{}{}
				}
			}
		}
	}
	if err := passedRows.Err(); err != nil {
		return err
	}
	passedRows.Close()

	ids := make([]string, 0, len(passed))
	for id := range passed {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var scoreJSON []byte
	var rating string
	if merged != nil {
		scoreJSON, err = json.Marshal(merged)
		if err != nil {
			return fmt.Errorf("marshal merged score: %w", err)
		}
		rating = string(model.RatingFor(merged.Global))
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE project SET score = $1, rating = $2, passed_checks = $3, updated_at = now()
		WHERE project_id = $4
	`, nullableJSON(scoreJSON), nullableString(rating), pq.Array(ids), projectID); err != nil {
		return fmt.Errorf("update project aggregate: %w", err)
	}
	return nil
}

// mergeProjectScoreFn is wired by the score package (avoids an import
// cycle; same pattern as computeScoreFn above).
var mergeProjectScoreFn = func(scores []*model.Score) *model.Score { return nil }

// SetProjectMerger lets main() wire the score package's merge function.
func SetProjectMerger(fn func([]*model.Score) *model.Score) { mergeProjectScoreFn = fn }

func (p *Postgres) ProjectSnapshotDates(ctx context.Context, projectID string) ([]time.Time, error) {
	return queryDates(ctx, p.db, `SELECT date FROM project_snapshot WHERE project_id = $1 ORDER BY date DESC`, projectID)
}

func (p *Postgres) StoreProjectSnapshot(ctx context.Context, projectID string, date time.Time, data []byte) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO project_snapshot (project_id, date, data) VALUES ($1, $2, $3)
		ON CONFLICT (project_id, date) DO UPDATE SET data = EXCLUDED.data
	`, projectID, date, data)
	if err != nil {
		return fmt.Errorf("store project snapshot: %w", err)
	}
	return nil
}

func (p *Postgres) DeleteProjectSnapshot(ctx context.Context, projectID string, date time.Time) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM project_snapshot WHERE project_id = $1 AND date = $2`, projectID, date)
	if err != nil {
		return fmt.Errorf("delete project snapshot: %w", err)
	}
	return nil
}

func (p *Postgres) ProjectCurrentData(ctx context.Context, projectID string) ([]byte, error) {
	var raw []byte
	row := p.db.QueryRowContext(ctx, `
		SELECT json_build_object(
			'project_id', project_id, 'name', name, 'display_name', display_name,
			'score', score, 'rating', rating, 'passed_checks', passed_checks,
			'updated_at', updated_at
		) FROM project WHERE project_id = $1
	`, projectID)
	if err := row.Scan(&raw); err != nil {
		return nil, fmt.Errorf("render project data: %w", err)
	}
	return raw, nil
}

func (p *Postgres) StatsSnapshotDates(ctx context.Context, foundationID *string) ([]time.Time, error) {
	if foundationID == nil {
		return queryDates(ctx, p.db, `SELECT date FROM stats_snapshot WHERE foundation_id IS NULL ORDER BY date DESC`)
	}
	return queryDates(ctx, p.db, `SELECT date FROM stats_snapshot WHERE foundation_id = $1 ORDER BY date DESC`, *foundationID)
}

func (p *Postgres) StoreStatsSnapshot(ctx context.Context, foundationID *string, date time.Time, data []byte) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO stats_snapshot (foundation_id, date, data) VALUES ($1, $2, $3)
		ON CONFLICT ((COALESCE(foundation_id, '')), date) DO UPDATE SET data = EXCLUDED.data
	`, foundationID, date, data)
	if err != nil {
		return fmt.Errorf("store stats snapshot: %w", err)
	}
	return nil
}

func (p *Postgres) DeleteStatsSnapshot(ctx context.Context, foundationID *string, date time.Time) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM stats_snapshot WHERE foundation_id IS NOT DISTINCT FROM $1 AND date = $2`, foundationID, date)
	if err != nil {
		return fmt.Errorf("delete stats snapshot: %w", err)
	}
	return nil
}

func (p *Postgres) StatsCurrentData(ctx context.Context, foundationID *string) ([]byte, error) {
	var raw []byte
	row := p.db.QueryRowContext(ctx, `
		SELECT json_build_object(
			'foundation_id', $1::text,
			'projects', (SELECT count(*) FROM project WHERE foundation_id IS NOT DISTINCT FROM $1),
			'generated_at', now()
		)
	`, foundationID)
	if err := row.Scan(&raw); err != nil {
		return nil, fmt.Errorf("render stats data: %w", err)
	}
	return raw, nil
}

func (p *Postgres) AllProjectIDs(ctx context.Context) ([]string, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT project_id FROM project ORDER BY project_id`)
	if err != nil {
		return nil, fmt.Errorf("list project ids: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (p *Postgres) AllFoundationIDs(ctx context.Context) ([]string, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT foundation_id FROM foundation ORDER BY foundation_id`)
	if err != nil {
		return nil, fmt.Errorf("list foundation ids: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// UpdateViewCounts increments view totals under a process-wide advisory
// lock, so concurrent flushers across processes never
// interleave.
func (p *Postgres) UpdateViewCounts(ctx context.Context, deltas []ViewDelta) error {
	if len(deltas) == 0 {
		return nil
	}
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin view count tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, advisoryLockKey); err != nil {
		return fmt.Errorf("acquire view count advisory lock: %w", err)
	}

	sorted := append([]ViewDelta(nil), deltas...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].ProjectID != sorted[j].ProjectID {
			return sorted[i].ProjectID < sorted[j].ProjectID
		}
		return sorted[i].Day.Before(sorted[j].Day)
	})

	for _, d := range sorted {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO project_view (project_id, day, count) VALUES ($1, $2, $3)
			ON CONFLICT (project_id, day) DO UPDATE SET count = project_view.count + EXCLUDED.count
		`, d.ProjectID, d.Day, d.Delta); err != nil {
			return fmt.Errorf("increment view count for %s: %w", d.ProjectID, err)
		}
	}

	return tx.Commit()
}

func queryDates(ctx context.Context, db *sql.DB, query string, args ...any) ([]time.Time, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query snapshot dates: %w", err)
	}
	defer rows.Close()
	var out []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan snapshot date: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullableJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}
