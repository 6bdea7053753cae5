// Command crawler-epazar runs one e-pazar listing crawl for a single
// category, per spec.md §6. Unlike e-nabavki, e-pazar requires no
// login, so it runs against the plain HTTPTransport rather than a
// headless browser session.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/macedonia-transparency/procurement-pipeline/internal/config"
	"github.com/macedonia-transparency/procurement-pipeline/internal/crawler/epazar"
	"github.com/macedonia-transparency/procurement-pipeline/internal/domain"
	"github.com/macedonia-transparency/procurement-pipeline/internal/fetchsession"
	"github.com/macedonia-transparency/procurement-pipeline/internal/ingest"
	"github.com/macedonia-transparency/procurement-pipeline/internal/logging"
	"github.com/macedonia-transparency/procurement-pipeline/internal/orchestrator"
	"github.com/macedonia-transparency/procurement-pipeline/internal/store"
)

func main() {
	os.Exit(run())
}

func run() int {
	category := flag.String("category", "", "e-pazar category code")
	maxPages := flag.Int("max_pages", 0, "stop after this many listing pages (0 = unbounded)")
	startPage := flag.Int("start_page", 0, "listing page to start from (0 = resume from cursor)")
	forceFullScan := flag.Bool("force_full_scan", false, "ignore the cursor and re-walk from page 1")
	maxItems := flag.Int("max_items", 0, "stop after this many tenders (0 = unbounded)")
	flag.Parse()

	if *category == "" {
		fmt.Fprintln(os.Stderr, "crawler-epazar: --category is required")
		return orchestrator.ExitFailure
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "crawler-epazar: %v\n", err)
		return orchestrator.ExitFailure
	}

	dataset := "crawler-epazar-" + *category
	if err := logging.Configure(cfg.LogLevel, cfg.LogDir, dataset); err != nil {
		fmt.Fprintf(os.Stderr, "crawler-epazar: logging: %v\n", err)
		return orchestrator.ExitFailure
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lock := orchestrator.NewLock(cfg.LockDir + "/" + dataset + ".lock")
	if err := lock.Acquire(cfg.LockAcquireTimeout, cfg.StaleLockAge); err != nil {
		fmt.Fprintf(os.Stderr, "crawler-epazar: %v\n", err)
		return orchestrator.ExitLockContest
	}
	defer lock.Release()

	pool, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "crawler-epazar: database: %v\n", err)
		return orchestrator.ExitFailure
	}
	defer pool.Close()

	transport := fetchsession.NewHTTPTransport()
	cursors := store.NewCursorRepo(pool)
	pipeline := ingest.NewPipeline(pool)

	cursorKey := domain.CursorKey{Portal: domain.PortalEPazar, Category: *category}
	cursor, err := cursors.Load(ctx, cursorKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "crawler-epazar: loading cursor: %v\n", err)
		return orchestrator.ExitFailure
	}
	if cursor == nil {
		cursor = &domain.CrawlCursor{Portal: domain.PortalEPazar, Category: *category}
	}

	crawler := epazar.New(transport, epazar.Options{
		Category:      *category,
		MaxPages:      *maxPages,
		StartPage:     *startPage,
		ForceFullScan: *forceFullScan,
		MaxItems:      *maxItems,
	})

	exitCode := orchestrator.Run(ctx, dataset, cfg.HealthDir, cfg.LogDir, cfg.CrawlJobTimeout,
		func(jobCtx context.Context) (map[string]int, int, error) {
			result, err := crawler.Run(jobCtx, *cursor, func(ctx context.Context, t *domain.Tender) error {
				_, upsertErr := pipeline.UpsertTender(ctx, t, nil, map[int64]*domain.Bidder{})
				return upsertErr
			})

			result.Cursor.LastRunAt = time.Now()
			result.Cursor.LastRunErrorCount = result.ItemErrors
			if saveErr := cursors.Save(ctx, &result.Cursor); saveErr != nil && err == nil {
				err = saveErr
			}

			return map[string]int{"tenders_fetched": result.TendersFetched}, result.ItemErrors, err
		})

	return exitCode
}
