package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"fantasy-alpha-lab/internal/domain"
	"fantasy-alpha-lab/internal/observability"
	"fantasy-alpha-lab/internal/storage"
)

// ABRunStore implements storage.ABRunStore using PostgreSQL.
type ABRunStore struct {
	pool *Pool
}

// NewABRunStore creates a new ABRunStore.
func NewABRunStore(pool *Pool) *ABRunStore {
	return &ABRunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ABRunStore = (*ABRunStore)(nil)

const abRunColumns = `
	run_id, created_at, league_id, team_id, year,
	profile, seeds, config_hash, git_sha, decision_status,
	manifest, summary, decision
`

// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
func (s *ABRunStore) Insert(ctx context.Context, run *domain.ABRun) (err error) {
	if run == nil || run.RunID == "" {
		return storage.ErrInvalidInput
	}
	start := time.Now()
	defer func() {
		observability.RecordDBQuery("postgres", "insert_ab_run", time.Since(start).Seconds(), err)
	}()

	query := `
		INSERT INTO ab_runs (` + abRunColumns + `) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10,
			$11, $12, $13
		)
	`

	_, err = s.pool.Exec(ctx, query,
		run.RunID, run.CreatedAt, run.LeagueID, run.TeamID, run.Year,
		run.Profile, run.Seeds, run.ConfigHash, run.GitSHA, run.DecisionStatus,
		jsonDocument(run.Manifest), jsonDocument(run.Summary), jsonDocument(run.Decision),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert ab run: %w", err)
	}
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *ABRunStore) GetByID(ctx context.Context, runID string) (*domain.ABRun, error) {
	query := `SELECT ` + abRunColumns + ` FROM ab_runs WHERE run_id = $1`

	run, err := scanABRun(s.pool.QueryRow(ctx, query, runID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get ab run by id: %w", err)
	}
	return run, nil
}

// ListByLeague retrieves runs for a league and team, newest first.
func (s *ABRunStore) ListByLeague(ctx context.Context, leagueID, teamID int) ([]*domain.ABRun, error) {
	query := `
		SELECT ` + abRunColumns + `
		FROM ab_runs
		WHERE league_id = $1 AND team_id = $2
		ORDER BY created_at DESC, run_id DESC
	`

	rows, err := s.pool.Query(ctx, query, leagueID, teamID)
	if err != nil {
		return nil, fmt.Errorf("list ab runs: %w", err)
	}
	defer rows.Close()

	var runs []*domain.ABRun
	for rows.Next() {
		run, err := scanABRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ab run row: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ab run rows: %w", err)
	}
	return runs, nil
}

func scanABRun(row pgx.Row) (*domain.ABRun, error) {
	var (
		run                         domain.ABRun
		manifest, summary, decision []byte
	)
	err := row.Scan(
		&run.RunID, &run.CreatedAt, &run.LeagueID, &run.TeamID, &run.Year,
		&run.Profile, &run.Seeds, &run.ConfigHash, &run.GitSHA, &run.DecisionStatus,
		&manifest, &summary, &decision,
	)
	if err != nil {
		return nil, err
	}
	run.Manifest = json.RawMessage(manifest)
	run.Summary = json.RawMessage(summary)
	run.Decision = json.RawMessage(decision)
	return &run, nil
}

// jsonDocument maps an empty document to an empty object for JSONB columns.
func jsonDocument(doc json.RawMessage) string {
	if len(doc) == 0 {
		return "{}"
	}
	return string(doc)
}
