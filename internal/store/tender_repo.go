package store

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"

	"github.com/macedonia-transparency/procurement-pipeline/internal/domain"
)

// TenderRepo persists domain.Tender aggregates and their nested lots
// and bids inside a single transaction per upsert, matching spec.md
// §7's "conflict retry-once" ingestion semantics: callers (internal/ingest)
// are responsible for the retry, this repo simply fails cleanly on
// constraint violation.
type TenderRepo struct {
	pool *Pool
}

func NewTenderRepo(pool *Pool) *TenderRepo { return &TenderRepo{pool: pool} }

// Upsert writes t and its lots/bids inside tx, resolving the tender's
// identity by (tender_number, year) per domain.Tender.Key.
func (r *TenderRepo) Upsert(ctx context.Context, tx pgx.Tx, t *domain.Tender) (int64, error) {
	rawData := t.RawData
	if rawData == nil {
		rawData = json.RawMessage("{}")
	}

	var estimated, awarded *int64
	if t.EstimatedValue != nil {
		v := t.EstimatedValue.Units
		estimated = &v
	}
	if t.AwardedValue != nil {
		v := t.AwardedValue.Units
		awarded = &v
	}

	var id int64
	err := tx.QueryRow(ctx, `
		INSERT INTO tenders (
			tender_number, year, source_portal, source_url, title, description,
			procuring_entity_id, procedure_type, cpv_code, category, currency,
			estimated_value_units, awarded_value_units,
			publication_date, opening_date, closing_date, signing_date,
			status, contact_person, contact_email, contact_phone,
			raw_data, amendments_count, updated_at
		) VALUES (
			$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23, now()
		)
		ON CONFLICT (tender_number, year) DO UPDATE SET
			source_url = EXCLUDED.source_url,
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			procuring_entity_id = EXCLUDED.procuring_entity_id,
			procedure_type = EXCLUDED.procedure_type,
			cpv_code = EXCLUDED.cpv_code,
			category = EXCLUDED.category,
			currency = EXCLUDED.currency,
			estimated_value_units = EXCLUDED.estimated_value_units,
			awarded_value_units = EXCLUDED.awarded_value_units,
			publication_date = EXCLUDED.publication_date,
			opening_date = EXCLUDED.opening_date,
			closing_date = EXCLUDED.closing_date,
			signing_date = EXCLUDED.signing_date,
			status = EXCLUDED.status,
			contact_person = EXCLUDED.contact_person,
			contact_email = EXCLUDED.contact_email,
			contact_phone = EXCLUDED.contact_phone,
			raw_data = EXCLUDED.raw_data,
			amendments_count = EXCLUDED.amendments_count,
			updated_at = now()
		RETURNING id`,
		t.TenderNumber, t.Year, string(t.SourcePortal), t.SourceURL, t.Title, t.Description,
		nullableID(t.ProcuringEntityID), t.ProcedureType, t.CPVCode, t.Category, string(t.Currency),
		estimated, awarded,
		t.PublicationDate, t.OpeningDate, t.ClosingDate, t.SigningDate,
		string(t.Status), t.Contact.Person, t.Contact.Email, t.Contact.Phone,
		rawData, t.AmendmentsCount,
	).Scan(&id)
	if err != nil {
		return 0, err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM lots WHERE tender_id = $1`, id); err != nil {
		return 0, err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM tender_bids WHERE tender_id = $1`, id); err != nil {
		return 0, err
	}

	for _, lot := range t.Lots {
		var lotID int64
		var estUnits, actUnits *int64
		if lot.EstimatedValue != nil {
			v := lot.EstimatedValue.Units
			estUnits = &v
		}
		if lot.ActualValue != nil {
			v := lot.ActualValue.Units
			actUnits = &v
		}
		err := tx.QueryRow(ctx, `
			INSERT INTO lots (tender_id, lot_number, title, estimated_value_units, actual_value_units)
			VALUES ($1,$2,$3,$4,$5) RETURNING id`,
			id, lot.LotNumber, lot.Title, estUnits, actUnits,
		).Scan(&lotID)
		if err != nil {
			return 0, err
		}
		for _, bid := range lot.Bids {
			if err := insertBid(ctx, tx, id, &lotID, bid); err != nil {
				return 0, err
			}
		}
	}
	for _, bid := range t.Bids {
		if err := insertBid(ctx, tx, id, nil, bid); err != nil {
			return 0, err
		}
	}

	return id, nil
}

func insertBid(ctx context.Context, tx pgx.Tx, tenderID int64, lotID *int64, bid domain.TenderBid) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO tender_bids (tender_id, lot_id, bidder_id, amount_units, rank, winner, disqualified, disqualified_reason)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		tenderID, lotID, bid.BidderID, bid.Amount.Units, bid.Rank, bid.Winner, bid.Disqualified, bid.DisqualifiedReason,
	)
	return err
}

func nullableID(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}

// StatusByKey looks up a tender's current status by its natural key, used by
// internal/ingest to decide whether a status transition is legal
// before writing.
func (r *TenderRepo) StatusByKey(ctx context.Context, key domain.TenderKey) (domain.Status, bool, error) {
	var status string
	err := r.pool.QueryRow(ctx, `SELECT status FROM tenders WHERE tender_number = $1 AND year = $2`,
		key.Number, key.Year).Scan(&status)
	if err == pgx.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return domain.Status(status), true, nil
}

// CloseExpired transitions every `open` tender whose closing_date has
// passed to `closed`, the orchestrator's daily lifecycle job (spec.md
// §4.9). The WHERE clause enforces the same edge as
// domain.StatusTransitionAllowed(StatusOpen, StatusClosed) at the SQL
// level, so a concurrent writer racing a status change can never
// un-close a tender this statement just closed. Returns the number of
// rows transitioned.
func (r *TenderRepo) CloseExpired(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE tenders
		SET status = 'closed', updated_at = now()
		WHERE status = 'open' AND closing_date IS NOT NULL AND closing_date < now()`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
