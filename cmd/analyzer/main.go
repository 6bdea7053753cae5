// Command analyzer scores closed/awarded tenders for corruption-risk
// signals, per spec.md §6's CLI surface: compute each tender's feature
// vector, run it through every risk rule, persist the resulting flags,
// and refresh the procuring_entity_award_stats materialized view.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/macedonia-transparency/procurement-pipeline/internal/analysis"
	"github.com/macedonia-transparency/procurement-pipeline/internal/config"
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
	limit := flag.Int("limit", 500, "max tenders to (re)score this run")
	statsOnly := flag.Bool("stats", false, "print the number of pending tenders (counted up to --limit) and exit, without scoring")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "analyzer: %v\n", err)
		return orchestrator.ExitFailure
	}

	dataset := "analyzer"
	if err := logging.Configure(cfg.LogLevel, cfg.LogDir, dataset); err != nil {
		fmt.Fprintf(os.Stderr, "analyzer: logging: %v\n", err)
		return orchestrator.ExitFailure
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "analyzer: database: %v\n", err)
		return orchestrator.ExitFailure
	}
	defer pool.Close()

	if *statsOnly {
		ids, err := store.NewAnalysisRepo(pool).PendingTenderIDs(ctx, *limit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "analyzer: stats: %v\n", err)
			return orchestrator.ExitFailure
		}
		fmt.Printf("pending tenders: %d\n", len(ids))
		return orchestrator.ExitSuccess
	}

	lock := orchestrator.NewLock(cfg.LockDir + "/" + dataset + ".lock")
	if err := lock.Acquire(cfg.LockAcquireTimeout, cfg.StaleLockAge); err != nil {
		fmt.Fprintf(os.Stderr, "analyzer: %v\n", err)
		return orchestrator.ExitLockContest
	}
	defer lock.Release()

	var polisher risk.ExplanationPolisher
	if cfg.LineItemExtractionEnabled() {
		app, err := llm.NewApp(ctx, cfg.DocLLMAPIKey)
		if err != nil {
			fmt.Fprintf(os.Stderr, "analyzer: llm init: %v\n", err)
			return orchestrator.ExitFailure
		}
		polisher = llm.NewExplanationFlow(app, llm.DefaultModelName)
	}
	analyzer := risk.NewAnalyzer(polisher)

	return orchestrator.Run(ctx, dataset, cfg.HealthDir, cfg.LogDir, cfg.DocJobTimeout,
		func(jobCtx context.Context) (map[string]int, int, error) {
			return analysis.Run(jobCtx, pool, analyzer, *limit)
		})
}
