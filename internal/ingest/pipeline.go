// Package ingest implements the transactional upsert pipeline
// (spec.md §5, component C5) that turns a freshly-parsed domain.Tender
// into stored rows: resolve-or-create its procuring entity and
// bidders, validate its invariants, check the status transition is
// legal against whatever is currently stored, and write everything in
// one pgx.Tx. A unique-constraint conflict is retried exactly once
// (spec.md's published "conflict retry-once" semantics) before being
// surfaced as a data_integrity error.
package ingest

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/macedonia-transparency/procurement-pipeline/internal/apperr"
	"github.com/macedonia-transparency/procurement-pipeline/internal/domain"
	"github.com/macedonia-transparency/procurement-pipeline/internal/logging"
	"github.com/macedonia-transparency/procurement-pipeline/internal/store"
)

var log = logging.For("ingest")

// Pipeline wires the repositories UpsertTender needs.
type Pipeline struct {
	pool       *store.Pool
	tenders    *store.TenderRepo
	entities   *store.EntityRepo
}

func NewPipeline(pool *store.Pool) *Pipeline {
	return &Pipeline{
		pool:     pool,
		tenders:  store.NewTenderRepo(pool),
		entities: store.NewEntityRepo(pool),
	}
}

// UpsertTender resolves t's procuring entity and every bidder
// referenced by its lots/bids, validates t's invariants, checks the
// status transition against the currently-stored status, and writes
// everything transactionally. It returns the tender's row id.
func (p *Pipeline) UpsertTender(ctx context.Context, t *domain.Tender, entity *domain.ProcuringEntity, bidders map[int64]*domain.Bidder) (int64, error) {
	if err := t.ValidateInvariants(); err != nil {
		return 0, apperr.New(apperr.CategoryDataIntegrity, "ingest", err)
	}

	id, err := p.attemptUpsert(ctx, t, entity, bidders)
	if isUniqueViolation(err) {
		log.WithFields(logging.Fields{"tender_number": t.TenderNumber, "year": t.Year}).
			Warn("conflict on tender upsert, retrying once")
		id, err = p.attemptUpsert(ctx, t, entity, bidders)
	}
	if err != nil {
		return 0, apperr.New(apperr.CategoryDataIntegrity, "ingest", err)
	}
	return id, nil
}

func (p *Pipeline) attemptUpsert(ctx context.Context, t *domain.Tender, entity *domain.ProcuringEntity, bidders map[int64]*domain.Bidder) (int64, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	if entity != nil {
		entityID, err := p.entities.ResolveProcuringEntity(ctx, tx, entity)
		if err != nil {
			return 0, err
		}
		t.ProcuringEntityID = entityID
	}

	if err := p.checkStatusTransition(ctx, t); err != nil {
		return 0, err
	}

	for tmpID, bidder := range bidders {
		resolvedID, err := p.entities.ResolveBidder(ctx, tx, bidder)
		if err != nil {
			return 0, err
		}
		rewriteBidderID(t, tmpID, resolvedID)
	}

	id, err := p.tenders.Upsert(ctx, tx, t)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return id, nil
}

func (p *Pipeline) checkStatusTransition(ctx context.Context, t *domain.Tender) error {
	current, found, err := p.tenders.StatusByKey(ctx, t.Key())
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	if !domain.StatusTransitionAllowed(current, t.Status) {
		return domain.ErrInvalidStatusTransition
	}
	return nil
}

// rewriteBidderID substitutes the real store id for every bid
// referencing the placeholder id the caller assigned while building
// the in-memory bidders map (crawlers don't know a bidder's database
// id until it has been resolved-or-created).
func rewriteBidderID(t *domain.Tender, placeholder, real int64) {
	for i := range t.Bids {
		if t.Bids[i].BidderID == placeholder {
			t.Bids[i].BidderID = real
		}
	}
	for li := range t.Lots {
		for i := range t.Lots[li].Bids {
			if t.Lots[li].Bids[i].BidderID == placeholder {
				t.Lots[li].Bids[i].BidderID = real
			}
		}
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return errors.Is(err, pgx.ErrTxClosed)
}
