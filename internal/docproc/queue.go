package docproc

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/macedonia-transparency/procurement-pipeline/internal/domain"
	"github.com/macedonia-transparency/procurement-pipeline/internal/logging"
	"github.com/macedonia-transparency/procurement-pipeline/internal/store"
)

// RunOptions configures one sweep of the pending/failed document
// queue.
type RunOptions struct {
	Limit       int
	Workers     int
	MaxAttempts int
	Force       bool // reprocess documents already marked success
}

// Result summarizes one queue sweep for the orchestrator's health
// report.
type Result struct {
	Processed int
	Succeeded int
	Failed    int
}

// Run drains up to opts.Limit pending/failed documents across
// opts.Workers concurrent goroutines (spec.md §5's "configurable
// worker count, default 2" for document processing), the same bounded
// cooperative-concurrency shape internal/crawler/enabavki uses for
// detail fetches.
func Run(ctx context.Context, pool *store.Pool, docs *store.DocumentRepo, proc *Processor, opts RunOptions) (Result, error) {
	pending, err := docs.PendingForRetry(ctx, opts.MaxAttempts, opts.Limit, opts.Force)
	if err != nil {
		return Result{}, fmt.Errorf("docproc: listing pending documents: %w", err)
	}

	var result Result
	sem := semaphore.NewWeighted(int64(opts.Workers))
	g, gctx := errgroup.WithContext(ctx)

	for i := range pending {
		doc := pending[i]
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			ok := processOne(gctx, pool, docs, proc, &doc)
			result.Processed++
			if ok {
				result.Succeeded++
			} else {
				result.Failed++
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return result, err
	}
	return result, nil
}

func processOne(ctx context.Context, pool *store.Pool, docs *store.DocumentRepo, proc *Processor, doc *domain.Document) bool {
	now := time.Now()

	if doc.LocalPath == "" {
		tenderKey := fmt.Sprintf("tender-%d", doc.TenderID)
		if err := proc.Download(ctx, doc, tenderKey); err != nil {
			_ = docs.MarkAttempt(ctx, doc.ID, domain.ExtractionFailed, now)
			log.WithFields(logging.Fields{"document_id": doc.ID, "error": err}).Warn("document download failed")
			return false
		}
	}

	items := proc.ProcessText(ctx, doc, doc.TenderID)

	if err := persist(ctx, pool, docs, doc, items); err != nil {
		log.WithFields(logging.Fields{"document_id": doc.ID, "error": err}).Error("failed to persist document extraction result")
		return false
	}
	return doc.ExtractionStatus == domain.ExtractionSuccess
}

func persist(ctx context.Context, pool *store.Pool, docs *store.DocumentRepo, doc *domain.Document, items []domain.ProductItem) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := docs.Upsert(ctx, tx, doc); err != nil {
		return err
	}
	for i := range items {
		if err := docs.InsertProductItem(ctx, tx, &items[i], nil); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
