package orchestrator

import (
	"context"

	"github.com/macedonia-transparency/procurement-pipeline/internal/store"
)

// CloseExpiredTenders implements spec.md §4.9's daily lifecycle job:
// transition every open tender whose closing_date is in the past to
// closed, across both source portals (the unified tenders table makes
// this a single statement rather than one per portal).
func CloseExpiredTenders(tenders *store.TenderRepo) JobFunc {
	return func(ctx context.Context) (map[string]int, int, error) {
		n, err := tenders.CloseExpired(ctx)
		if err != nil {
			return nil, 1, err
		}
		return map[string]int{"closed": int(n)}, 0, nil
	}
}
