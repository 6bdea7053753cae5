// Command crawler-enabavki runs one e-nabavki listing+dossier crawl
// for a single category/year, per spec.md §6's CLI surface. It is
// meant to be invoked repeatedly by an external scheduler (cron(1),
// systemd timer) on the schedule invariants spec.md §4.9 enumerates --
// it does not loop or daemonize itself.
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
	"github.com/macedonia-transparency/procurement-pipeline/internal/crawler/enabavki"
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
	category := flag.String("category", "", "e-nabavki category code")
	yearFlag := flag.Int("year", 0, "archive year (0 = live/default view)")
	maxPages := flag.Int("max_pages", 0, "stop after this many listing pages (0 = unbounded)")
	startPage := flag.Int("start_page", 0, "listing page to start from (0 = resume from cursor)")
	reverse := flag.Bool("reverse", false, "walk listing pages in reverse (for 2022+ live-view access)")
	forceFullScan := flag.Bool("force_full_scan", false, "ignore the cursor and re-walk the full archive")
	maxItems := flag.Int("max_items", 0, "stop after this many tenders (0 = unbounded)")
	flag.Parse()

	if *category == "" {
		fmt.Fprintln(os.Stderr, "crawler-enabavki: --category is required")
		return orchestrator.ExitFailure
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "crawler-enabavki: %v\n", err)
		return orchestrator.ExitFailure
	}
	if err := cfg.RequireNabavkiCredentials(); err != nil {
		fmt.Fprintf(os.Stderr, "crawler-enabavki: %v\n", err)
		return orchestrator.ExitFailure
	}

	dataset := "crawler-enabavki-" + *category
	if err := logging.Configure(cfg.LogLevel, cfg.LogDir, dataset); err != nil {
		fmt.Fprintf(os.Stderr, "crawler-enabavki: logging: %v\n", err)
		return orchestrator.ExitFailure
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lock := orchestrator.NewLock(cfg.LockDir + "/" + dataset + ".lock")
	if err := lock.Acquire(cfg.LockAcquireTimeout, cfg.StaleLockAge); err != nil {
		fmt.Fprintf(os.Stderr, "crawler-enabavki: %v\n", err)
		return orchestrator.ExitLockContest
	}
	defer lock.Release()

	pool, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "crawler-enabavki: database: %v\n", err)
		return orchestrator.ExitFailure
	}
	defer pool.Close()

	jar, err := fetchsession.NewPersistentJar(cfg.CookieJarPath, fetchsession.DefaultCookieTTL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "crawler-enabavki: cookie jar: %v\n", err)
		return orchestrator.ExitFailure
	}
	browser, err := fetchsession.NewBrowserTransport(ctx, jar)
	if err != nil {
		fmt.Fprintf(os.Stderr, "crawler-enabavki: browser transport: %v\n", err)
		return orchestrator.ExitFailure
	}
	defer browser.Close()

	cursors := store.NewCursorRepo(pool)
	pipeline := ingest.NewPipeline(pool)

	var year *int
	if *yearFlag != 0 {
		year = yearFlag
	}
	cursorKey := domain.CursorKey{Portal: domain.PortalENabavki, Category: *category, Year: year}
	cursor, err := cursors.Load(ctx, cursorKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "crawler-enabavki: loading cursor: %v\n", err)
		return orchestrator.ExitFailure
	}
	if cursor == nil {
		cursor = &domain.CrawlCursor{Portal: domain.PortalENabavki, Category: *category, Year: year}
	}

	crawler := enabavki.New(browser, enabavki.Options{
		Category:          *category,
		Year:              year,
		MaxPages:          *maxPages,
		StartPage:         *startPage,
		Reverse:           *reverse,
		ForceFullScan:     *forceFullScan,
		MaxItems:          *maxItems,
		DetailConcurrency: cfg.CrawlerDetailConcurrency,
	})

	exitCode := orchestrator.Run(ctx, dataset, cfg.HealthDir, cfg.LogDir, cfg.CrawlJobTimeout,
		func(jobCtx context.Context) (map[string]int, int, error) {
			result, err := crawler.Run(jobCtx, *cursor, func(ctx context.Context, t *domain.Tender, entity *domain.ProcuringEntity) error {
				if t == nil {
					return nil
				}
				_, upsertErr := pipeline.UpsertTender(ctx, t, entity, map[int64]*domain.Bidder{})
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
