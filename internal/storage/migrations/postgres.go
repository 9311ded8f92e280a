package migrations

import (
	"context"
	"fmt"

	"fantasy-alpha-lab/internal/storage/postgres"
)

// RunPostgresMigrations creates the run and feed snapshot tables and returns
// the migrations it executed. Every file uses IF NOT EXISTS, so reruns are safe.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool) ([]Migration, error) {
	list, err := List(PostgresFS, "postgres")
	if err != nil {
		return nil, err
	}
	for _, m := range list {
		if _, err := pool.Exec(ctx, m.SQL); err != nil {
			return nil, fmt.Errorf("apply migration %s: %w", m.Name, err)
		}
	}
	return list, nil
}
