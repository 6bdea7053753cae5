// Package store persists the domain model to PostgreSQL via pgx,
// following the teacher's preference for small, explicit repository
// structs over a generic ORM layer. Each aggregate (tender, procuring
// entity, bidder, document, product item, risk flag, crawl cursor,
// health report) gets its own file with a focused interface, matching
// the teacher's internal/storage package-per-concern layout -- scaled
// here to a real relational store instead of its in-memory map.
package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool wraps a pgxpool.Pool and is the shared dependency every
// repository in this package embeds.
type Pool struct {
	*pgxpool.Pool
}

// Open establishes a pgx connection pool against dsn (the
// config.Config.DatabaseURL value).
func Open(ctx context.Context, dsn string) (*Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Pool{pool}, nil
}
