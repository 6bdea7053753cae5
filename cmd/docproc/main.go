// Command docproc sweeps the pending/failed document queue, per
// spec.md §6's CLI surface: download each tender's linked documents,
// extract text (native or OCR fallback), and -- when DOC_LLM_API_KEY
// is set -- mine a structured product/line-item table from the text.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/macedonia-transparency/procurement-pipeline/internal/config"
	"github.com/macedonia-transparency/procurement-pipeline/internal/docproc"
	"github.com/macedonia-transparency/procurement-pipeline/internal/llm"
	"github.com/macedonia-transparency/procurement-pipeline/internal/logging"
	"github.com/macedonia-transparency/procurement-pipeline/internal/orchestrator"
	"github.com/macedonia-transparency/procurement-pipeline/internal/store"
)

func main() {
	os.Exit(run())
}

func run() int {
	limit := flag.Int("limit", 200, "max documents to process this run")
	workers := flag.Int("workers", 0, "concurrent download/extract workers (0 = config default)")
	maxAttempts := flag.Int("max_attempts", 0, "skip documents already retried this many times (0 = config default)")
	force := flag.Bool("force", false, "reprocess documents already marked extraction_success")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "docproc: %v\n", err)
		return orchestrator.ExitFailure
	}

	dataset := "docproc"
	if err := logging.Configure(cfg.LogLevel, cfg.LogDir, dataset); err != nil {
		fmt.Fprintf(os.Stderr, "docproc: logging: %v\n", err)
		return orchestrator.ExitFailure
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lock := orchestrator.NewLock(cfg.LockDir + "/" + dataset + ".lock")
	if err := lock.Acquire(cfg.LockAcquireTimeout, cfg.StaleLockAge); err != nil {
		fmt.Fprintf(os.Stderr, "docproc: %v\n", err)
		return orchestrator.ExitLockContest
	}
	defer lock.Release()

	pool, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "docproc: database: %v\n", err)
		return orchestrator.ExitFailure
	}
	defer pool.Close()

	docs := store.NewDocumentRepo(pool)

	procOpts := docproc.Options{
		FileStoreRoot:    cfg.FileStoreRoot,
		MaxDocumentBytes: cfg.MaxDocumentBytes,
		FetchTimeout:     cfg.DocumentFetchTimeout,
		OCR:              nil,
	}

	var proc *docproc.Processor
	if cfg.LineItemExtractionEnabled() {
		app, err := llm.NewApp(ctx, cfg.DocLLMAPIKey)
		if err != nil {
			fmt.Fprintf(os.Stderr, "docproc: llm init: %v\n", err)
			return orchestrator.ExitFailure
		}
		extractor := llm.NewProductExtractor(app, llm.DefaultModelName)
		proc = docproc.NewProcessor(procOpts, http.DefaultClient, extractor)
	} else {
		proc = docproc.NewProcessor(procOpts, http.DefaultClient, nil)
	}

	workerCount := *workers
	if workerCount <= 0 {
		workerCount = cfg.DocProcessorWorkers
	}
	attemptCeiling := *maxAttempts
	if attemptCeiling <= 0 {
		attemptCeiling = cfg.MaxDocumentRetries
	}

	runOpts := docproc.RunOptions{
		Limit:       *limit,
		Workers:     workerCount,
		MaxAttempts: attemptCeiling,
		Force:       *force,
	}

	return orchestrator.Run(ctx, dataset, cfg.HealthDir, cfg.LogDir, cfg.DocJobTimeout,
		func(jobCtx context.Context) (map[string]int, int, error) {
			result, err := docproc.Run(jobCtx, pool, docs, proc, runOpts)
			counts := map[string]int{
				"processed": result.Processed,
				"succeeded": result.Succeeded,
				"failed":    result.Failed,
			}
			return counts, result.Failed, err
		})
}
