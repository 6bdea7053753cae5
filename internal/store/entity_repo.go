package store

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/macedonia-transparency/procurement-pipeline/internal/domain"
)

// EntityRepo resolves-or-creates procuring entities and bidders by
// their normalized identity, the two "company" aggregates the
// ingestion pipeline de-duplicates against on every tender write.
type EntityRepo struct {
	pool *Pool
}

func NewEntityRepo(pool *Pool) *EntityRepo { return &EntityRepo{pool: pool} }

// ResolveProcuringEntity returns e's row id, inserting a new row if no
// match exists for (legal_name, tax_id).
func (r *EntityRepo) ResolveProcuringEntity(ctx context.Context, tx pgx.Tx, e *domain.ProcuringEntity) (int64, error) {
	var id int64
	err := tx.QueryRow(ctx, `
		INSERT INTO procuring_entities (legal_name, tax_id, address)
		VALUES ($1,$2,$3)
		ON CONFLICT (legal_name, tax_id) DO UPDATE SET address = EXCLUDED.address
		RETURNING id`,
		domain.NormalizeLegalName(e.LegalName), e.TaxID, e.Address,
	).Scan(&id)
	return id, err
}

// ResolveBidder returns b's row id, inserting a new row if no match
// exists for (legal_name, tax_id).
func (r *EntityRepo) ResolveBidder(ctx context.Context, tx pgx.Tx, b *domain.Bidder) (int64, error) {
	var id int64
	err := tx.QueryRow(ctx, `
		INSERT INTO bidders (legal_name, tax_id, address, manager)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (legal_name, tax_id) DO UPDATE SET address = EXCLUDED.address, manager = EXCLUDED.manager
		RETURNING id`,
		domain.NormalizeLegalName(b.LegalName), b.TaxID, b.Address, b.Manager,
	).Scan(&id)
	return id, err
}

// AwardHistory returns the ids of procuring entities that have awarded
// bidderID a tender before, used by internal/features' relationship
// family to compute repeat-winner concentration.
func (r *EntityRepo) AwardHistory(ctx context.Context, bidderID int64) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT t.procuring_entity_id
		FROM tender_bids b
		JOIN tenders t ON t.id = b.tender_id
		WHERE b.bidder_id = $1 AND b.winner = true`, bidderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
