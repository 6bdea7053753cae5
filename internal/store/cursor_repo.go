package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/macedonia-transparency/procurement-pipeline/internal/domain"
)

// CursorRepo persists per-(portal, category, year) crawl cursors so a
// crawler invocation can resume incremental scans across process
// restarts instead of re-walking the full listing every run.
type CursorRepo struct {
	pool *Pool
}

func NewCursorRepo(pool *Pool) *CursorRepo { return &CursorRepo{pool: pool} }

func (r *CursorRepo) Load(ctx context.Context, key domain.CursorKey) (*domain.CrawlCursor, error) {
	var c domain.CrawlCursor
	var year *int
	err := r.pool.QueryRow(ctx, `
		SELECT id, portal, category, year, last_page, last_tender_number, last_run_at, last_run_error_count
		FROM crawl_cursors WHERE portal = $1 AND category = $2 AND year IS NOT DISTINCT FROM $3`,
		string(key.Portal), key.Category, key.Year,
	).Scan(&c.ID, &c.Portal, &c.Category, &year, &c.LastPage, &c.LastTenderNumber, &c.LastRunAt, &c.LastRunErrorCount)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c.Year = year
	return &c, nil
}

func (r *CursorRepo) Save(ctx context.Context, c *domain.CrawlCursor) error {
	now := time.Now()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO crawl_cursors (portal, category, year, last_page, last_tender_number, last_run_at, last_run_error_count, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (portal, category, year) DO UPDATE SET
			last_page = EXCLUDED.last_page,
			last_tender_number = EXCLUDED.last_tender_number,
			last_run_at = EXCLUDED.last_run_at,
			last_run_error_count = EXCLUDED.last_run_error_count,
			updated_at = EXCLUDED.updated_at`,
		string(c.Portal), c.Category, c.Year, c.LastPage, c.LastTenderNumber, now, c.LastRunErrorCount, now,
	)
	return err
}
