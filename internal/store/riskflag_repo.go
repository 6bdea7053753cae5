package store

import (
	"context"
	"encoding/json"

	"github.com/macedonia-transparency/procurement-pipeline/internal/domain"
)

// RiskFlagRepo persists the analyzer's per-tender risk flags. A flag
// type is unique per tender (re-running the analyzer replaces its
// prior verdict rather than accumulating duplicates), matching the
// "analyzer is idempotent/deterministic" property spec.md §8 requires.
type RiskFlagRepo struct {
	pool *Pool
}

func NewRiskFlagRepo(pool *Pool) *RiskFlagRepo { return &RiskFlagRepo{pool: pool} }

func (r *RiskFlagRepo) Upsert(ctx context.Context, f *domain.RiskFlag) error {
	evidence := f.Evidence
	if evidence == nil {
		evidence = json.RawMessage("{}")
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO risk_flags (tender_id, flag_type, severity, score, evidence, explanation, detected_at)
		VALUES ($1,$2,$3,$4,$5,$6, now())
		ON CONFLICT (tender_id, flag_type) DO UPDATE SET
			severity = EXCLUDED.severity,
			score = EXCLUDED.score,
			evidence = EXCLUDED.evidence,
			explanation = EXCLUDED.explanation,
			detected_at = now()`,
		f.TenderID, string(f.FlagType), string(f.Severity), f.Score, evidence, f.Explanation,
	)
	return err
}

// DeleteStale removes flag types no longer raised for tenderID by the
// current analysis pass, so a resolved risk (e.g. a second bidder
// later registered) doesn't linger forever.
func (r *RiskFlagRepo) DeleteStale(ctx context.Context, tenderID int64, currentTypes []domain.FlagType) error {
	keep := make([]string, len(currentTypes))
	for i, t := range currentTypes {
		keep[i] = string(t)
	}
	_, err := r.pool.Exec(ctx, `DELETE FROM risk_flags WHERE tender_id = $1 AND flag_type != ALL($2)`, tenderID, keep)
	return err
}

// RefreshViews calls the refresh_risk_views() stored procedure that
// rebuilds the materialized procuring_entity_award_stats view. Nothing
// in this repository reads that view; the relationship-family features
// are computed from tender_bids via AnalysisRepo.LoadPeer.
func (r *RiskFlagRepo) RefreshViews(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `SELECT refresh_risk_views()`)
	return err
}
