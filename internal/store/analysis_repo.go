package store

import (
	"context"

	"github.com/macedonia-transparency/procurement-pipeline/internal/domain"
	"github.com/macedonia-transparency/procurement-pipeline/internal/features"
)

// AnalysisRepo loads the tender aggregates and peer/history data
// internal/risk and internal/features need for one analyzer pass. It
// is read-mostly: the only write path is RiskFlagRepo, kept separate
// since an analysis read and a risk-flag write are not part of the
// same transaction (spec.md §7 treats analysis as safely re-runnable,
// not atomic with ingestion).
type AnalysisRepo struct {
	pool *Pool
}

func NewAnalysisRepo(pool *Pool) *AnalysisRepo { return &AnalysisRepo{pool: pool} }

// PendingTenderIDs returns up to limit ids of closed/awarded tenders
// whose risk flags predate their last update (or have none yet), the
// analyzer's "needs (re)scoring" definition.
func (r *AnalysisRepo) PendingTenderIDs(ctx context.Context, limit int) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT t.id
		FROM tenders t
		LEFT JOIN (SELECT tender_id, max(detected_at) AS last_scored FROM risk_flags GROUP BY tender_id) rf
			ON rf.tender_id = t.id
		WHERE t.status IN ('closed', 'awarded')
			AND (rf.last_scored IS NULL OR rf.last_scored < t.updated_at)
		ORDER BY t.updated_at
		LIMIT $1`, limit)
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

// LoadTender reads one tender with its bids, the aggregate shape
// internal/features.Compute and internal/risk.Rule operate on.
func (r *AnalysisRepo) LoadTender(ctx context.Context, tenderID int64) (*domain.Tender, error) {
	var t domain.Tender
	var currency string
	var estimated, awarded *int64
	err := r.pool.QueryRow(ctx, `
		SELECT id, tender_number, year, source_portal, source_url, title, description,
			procuring_entity_id, procedure_type, cpv_code, category, currency,
			estimated_value_units, awarded_value_units,
			publication_date, opening_date, closing_date, signing_date,
			status, contact_person, contact_email, contact_phone, raw_data,
			amendments_count, created_at, updated_at
		FROM tenders WHERE id = $1`, tenderID).Scan(
		&t.ID, &t.TenderNumber, &t.Year, &t.SourcePortal, &t.SourceURL, &t.Title, &t.Description,
		&t.ProcuringEntityID, &t.ProcedureType, &t.CPVCode, &t.Category, &currency,
		&estimated, &awarded,
		&t.PublicationDate, &t.OpeningDate, &t.ClosingDate, &t.SigningDate,
		&t.Status, &t.Contact.Person, &t.Contact.Email, &t.Contact.Phone, &t.RawData,
		&t.AmendmentsCount, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.Currency = domain.Currency(currency)
	if estimated != nil {
		t.EstimatedValue = &domain.Decimal{Units: *estimated}
	}
	if awarded != nil {
		t.AwardedValue = &domain.Decimal{Units: *awarded}
	}

	bidRows, err := r.pool.Query(ctx, `
		SELECT id, tender_id, lot_id, bidder_id, amount_units, rank, winner, disqualified, disqualified_reason
		FROM tender_bids WHERE tender_id = $1`, tenderID)
	if err != nil {
		return nil, err
	}
	defer bidRows.Close()
	for bidRows.Next() {
		var b domain.TenderBid
		var amount int64
		if err := bidRows.Scan(&b.ID, &b.TenderID, &b.LotID, &b.BidderID, &amount, &b.Rank, &b.Winner, &b.Disqualified, &b.DisqualifiedReason); err != nil {
			return nil, err
		}
		b.Amount = domain.Decimal{Units: amount}
		t.Bids = append(t.Bids, b)
	}
	if err := bidRows.Err(); err != nil {
		return nil, err
	}

	return &t, nil
}

// LoadPeer assembles the comparison data features.Compute needs: other
// awarded tenders sharing t's CPV code, the procuring entity's award
// history by bidder, and its past document specification text.
func (r *AnalysisRepo) LoadPeer(ctx context.Context, t *domain.Tender) (features.Peer, error) {
	var peer features.Peer

	if t.CPVCode != "" {
		rows, err := r.pool.Query(ctx, `
			SELECT awarded_value_units FROM tenders
			WHERE cpv_code = $1 AND id != $2 AND awarded_value_units IS NOT NULL`, t.CPVCode, t.ID)
		if err != nil {
			return peer, err
		}
		for rows.Next() {
			var units int64
			if err := rows.Scan(&units); err != nil {
				rows.Close()
				return peer, err
			}
			peer.CPVPeerAwardedValues = append(peer.CPVPeerAwardedValues, float64(units)/100)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return peer, err
		}
	}

	if t.ProcuringEntityID != 0 {
		rows, err := r.pool.Query(ctx, `
			SELECT tb.bidder_id, count(*)
			FROM tender_bids tb
			JOIN tenders t2 ON t2.id = tb.tender_id
			WHERE t2.procuring_entity_id = $1 AND tb.winner AND t2.id != $2
			GROUP BY tb.bidder_id`, t.ProcuringEntityID, t.ID)
		if err != nil {
			return peer, err
		}
		peer.EntityPastWinnersByBidder = make(map[int64]int)
		for rows.Next() {
			var bidderID int64
			var count int
			if err := rows.Scan(&bidderID, &count); err != nil {
				rows.Close()
				return peer, err
			}
			peer.EntityPastWinnersByBidder[bidderID] = count
			peer.EntityPastAwardsTotal += count
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return peer, err
		}

		if err := r.pool.QueryRow(ctx, `
			SELECT count(*) FROM tenders WHERE procuring_entity_id = $1 AND status = 'cancelled' AND id != $2`,
			t.ProcuringEntityID, t.ID).Scan(&peer.EntityPastCancelCount); err != nil {
			return peer, err
		}

		rows, err = r.pool.Query(ctx, `
			SELECT d.extracted_text
			FROM documents d
			JOIN tenders t2 ON t2.id = d.tender_id
			WHERE t2.procuring_entity_id = $1 AND t2.id != $2 AND d.extraction_status = 'success'
			ORDER BY t2.updated_at DESC LIMIT 20`, t.ProcuringEntityID, t.ID)
		if err != nil {
			return peer, err
		}
		for rows.Next() {
			var text string
			if err := rows.Scan(&text); err != nil {
				rows.Close()
				return peer, err
			}
			peer.PastSpecTexts = append(peer.PastSpecTexts, text)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return peer, err
		}
	}

	return peer, nil
}

// SpecText concatenates tenderID's successfully extracted document
// text, the input features.Compute mines for spec-rigging phrases.
func (r *AnalysisRepo) SpecText(ctx context.Context, tenderID int64) (string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT extracted_text FROM documents
		WHERE tender_id = $1 AND extraction_status = 'success'`, tenderID)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	var text string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return "", err
		}
		text += t + "\n"
	}
	return text, rows.Err()
}
