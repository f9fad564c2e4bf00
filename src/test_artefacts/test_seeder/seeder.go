package test_seeder

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type TestSeeder struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) TestSeeder {
	return TestSeeder{pool: pool}
}

// TruncateTables limpa o grafo. TRUNCATE does not fire the row triggers that
// keep graph_events append-only.
func (ts TestSeeder) TruncateTables(ctx context.Context) {
	tables := []string{
		"graph_events",
		"graph_edges",
		"graph_nodes",
	}

	for _, table := range tables {
		_, err := ts.pool.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table))
		if err != nil {
			panic(fmt.Sprintf("Failed to truncate %s: %v", table, err))
		}
	}
}
