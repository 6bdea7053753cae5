// Command orchestrator runs the daily tender-lifecycle sweep (closing
// expired open tenders) per spec.md §4.9/§6, or, with --daemon, starts
// an in-process schedule table covering the lifecycle, document
// processing and risk-analysis jobs plus a live-progress websocket
// feed. Crawls stay on the external-scheduler contract (cmd/crawler-*)
// since each run is scoped to one portal/category and a daemon has no
// good way to enumerate that set on its own.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/macedonia-transparency/procurement-pipeline/internal/analysis"
	"github.com/macedonia-transparency/procurement-pipeline/internal/config"
	"github.com/macedonia-transparency/procurement-pipeline/internal/docproc"
	"github.com/macedonia-transparency/procurement-pipeline/internal/llm"
	"github.com/macedonia-transparency/procurement-pipeline/internal/logging"
	"github.com/macedonia-transparency/procurement-pipeline/internal/orchestrator"
	"github.com/macedonia-transparency/procurement-pipeline/internal/risk"
	"github.com/macedonia-transparency/procurement-pipeline/internal/store"
)

func main() {
	os.Exit(run())
}

func run() int {
	daemon := flag.Bool("daemon", false, "start the in-process schedule table instead of running once")
	listen := flag.String("listen", ":8090", "address the daemon's live-progress websocket listens on")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "orchestrator: %v\n", err)
		return orchestrator.ExitFailure
	}

	dataset := "orchestrator-lifecycle"
	if err := logging.Configure(cfg.LogLevel, cfg.LogDir, dataset); err != nil {
		fmt.Fprintf(os.Stderr, "orchestrator: logging: %v\n", err)
		return orchestrator.ExitFailure
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "orchestrator: database: %v\n", err)
		return orchestrator.ExitFailure
	}
	defer pool.Close()

	tenders := store.NewTenderRepo(pool)

	if !*daemon {
		lock := orchestrator.NewLock(cfg.LockDir + "/" + dataset + ".lock")
		if err := lock.Acquire(cfg.LockAcquireTimeout, cfg.StaleLockAge); err != nil {
			fmt.Fprintf(os.Stderr, "orchestrator: %v\n", err)
			return orchestrator.ExitLockContest
		}
		defer lock.Release()

		return orchestrator.Run(ctx, dataset, cfg.HealthDir, cfg.LogDir, cfg.CrawlJobTimeout,
			orchestrator.CloseExpiredTenders(tenders))
	}

	return runDaemon(ctx, cfg, pool, tenders, *listen)
}

func runDaemon(ctx context.Context, cfg *config.Config, pool *store.Pool, tenders *store.TenderRepo, listen string) int {
	docs := store.NewDocumentRepo(pool)

	var polisher risk.ExplanationPolisher
	var extractor *llm.ProductExtractor
	if cfg.LineItemExtractionEnabled() {
		app, err := llm.NewApp(ctx, cfg.DocLLMAPIKey)
		if err != nil {
			fmt.Fprintf(os.Stderr, "orchestrator: llm init: %v\n", err)
			return orchestrator.ExitFailure
		}
		polisher = llm.NewExplanationFlow(app, llm.DefaultModelName)
		extractor = llm.NewProductExtractor(app, llm.DefaultModelName)
	}
	analyzer := risk.NewAnalyzer(polisher)

	procOpts := docproc.Options{
		FileStoreRoot:    cfg.FileStoreRoot,
		MaxDocumentBytes: cfg.MaxDocumentBytes,
		FetchTimeout:     cfg.DocumentFetchTimeout,
	}
	var proc *docproc.Processor
	if extractor != nil {
		proc = docproc.NewProcessor(procOpts, http.DefaultClient, extractor)
	} else {
		proc = docproc.NewProcessor(procOpts, http.DefaultClient, nil)
	}

	daemon := orchestrator.NewDaemon()

	if err := daemon.Add(orchestrator.ScheduleDailyEnrichment, "orchestrator-lifecycle", cfg.HealthDir, cfg.LogDir,
		int(cfg.CrawlJobTimeout.Seconds()), orchestrator.CloseExpiredTenders(tenders)); err != nil {
		fmt.Fprintf(os.Stderr, "orchestrator: scheduling lifecycle job: %v\n", err)
		return orchestrator.ExitFailure
	}

	if err := daemon.Add(orchestrator.ScheduleDocumentProcessing, "docproc", cfg.HealthDir, cfg.LogDir,
		int(cfg.DocJobTimeout.Seconds()), func(jobCtx context.Context) (map[string]int, int, error) {
			result, err := docproc.Run(jobCtx, pool, docs, proc, docproc.RunOptions{
				Limit:       500,
				Workers:     cfg.DocProcessorWorkers,
				MaxAttempts: cfg.MaxDocumentRetries,
			})
			return map[string]int{"processed": result.Processed, "succeeded": result.Succeeded, "failed": result.Failed}, result.Failed, err
		}); err != nil {
		fmt.Fprintf(os.Stderr, "orchestrator: scheduling document processing job: %v\n", err)
		return orchestrator.ExitFailure
	}

	if err := daemon.Add(orchestrator.ScheduleRiskAnalysis, "analyzer", cfg.HealthDir, cfg.LogDir,
		int(cfg.DocJobTimeout.Seconds()), func(jobCtx context.Context) (map[string]int, int, error) {
			return analysis.Run(jobCtx, pool, analyzer, 2000)
		}); err != nil {
		fmt.Fprintf(os.Stderr, "orchestrator: scheduling risk analysis job: %v\n", err)
		return orchestrator.ExitFailure
	}

	daemon.Start()
	defer daemon.Stop()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", daemon.Hub().ServeWS)
	srv := &http.Server{Addr: listen, Handler: mux}

	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		fmt.Fprintf(os.Stderr, "orchestrator: daemon http server: %v\n", err)
		return orchestrator.ExitFailure
	}
	return orchestrator.ExitSuccess
}
