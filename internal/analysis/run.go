// Package analysis wires internal/store, internal/features and
// internal/risk into one backlog-scoring sweep, shared by the
// one-shot analyzer command and the optional orchestrator daemon's
// risk-analysis schedule entry so the scoring logic isn't duplicated
// between the two entrypoints.
package analysis

import (
	"context"
	"fmt"

	"github.com/macedonia-transparency/procurement-pipeline/internal/domain"
	"github.com/macedonia-transparency/procurement-pipeline/internal/features"
	"github.com/macedonia-transparency/procurement-pipeline/internal/logging"
	"github.com/macedonia-transparency/procurement-pipeline/internal/risk"
	"github.com/macedonia-transparency/procurement-pipeline/internal/store"
)

var log = logging.For("analysis")

// Run scores up to limit pending tenders, persists their risk flags,
// deletes any flag type no longer raised, and refreshes the
// relationship-family materialized views. The returned counts are
// {"scored": n, "failed": n} for a health report.
func Run(ctx context.Context, pool *store.Pool, analyzer *risk.Analyzer, limit int) (map[string]int, int, error) {
	analysisRepo := store.NewAnalysisRepo(pool)
	flagRepo := store.NewRiskFlagRepo(pool)

	ids, err := analysisRepo.PendingTenderIDs(ctx, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("analysis: listing pending tenders: %w", err)
	}

	var scored, failed int
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return map[string]int{"scored": scored, "failed": failed}, failed, err
		}
		if err := scoreOne(ctx, analysisRepo, flagRepo, analyzer, id); err != nil {
			log.WithFields(logging.Fields{"tender_id": id, "error": err}).Warn("tender scoring failed")
			failed++
			continue
		}
		scored++
	}

	counts := map[string]int{"scored": scored, "failed": failed}
	if err := flagRepo.RefreshViews(ctx); err != nil {
		return counts, failed, fmt.Errorf("analysis: refreshing views: %w", err)
	}
	return counts, failed, nil
}

func scoreOne(ctx context.Context, analysisRepo *store.AnalysisRepo, flagRepo *store.RiskFlagRepo, analyzer *risk.Analyzer, tenderID int64) error {
	t, err := analysisRepo.LoadTender(ctx, tenderID)
	if err != nil {
		return fmt.Errorf("loading tender %d: %w", tenderID, err)
	}
	peer, err := analysisRepo.LoadPeer(ctx, t)
	if err != nil {
		return fmt.Errorf("loading peer data for tender %d: %w", tenderID, err)
	}
	specText, err := analysisRepo.SpecText(ctx, tenderID)
	if err != nil {
		return fmt.Errorf("loading spec text for tender %d: %w", tenderID, err)
	}

	f := features.Compute(t, peer, specText)
	raised := analyzer.Analyze(t, f)

	raisedTypes := make([]domain.FlagType, len(raised))
	for i, flag := range raised {
		if err := flagRepo.Upsert(ctx, flag); err != nil {
			return fmt.Errorf("persisting flag %s for tender %d: %w", flag.FlagType, tenderID, err)
		}
		raisedTypes[i] = flag.FlagType
	}
	return flagRepo.DeleteStale(ctx, tenderID, raisedTypes)
}
