package orchestrator

import (
	"context"
	"time"

	"github.com/macedonia-transparency/procurement-pipeline/internal/domain"
	"github.com/macedonia-transparency/procurement-pipeline/internal/logging"
	"github.com/macedonia-transparency/procurement-pipeline/internal/store"
)

// Exit codes per spec.md §6.
const (
	ExitSuccess      = 0
	ExitFailure      = 1
	ExitLockContest  = 75
	ExitTimeout      = 124
)

// JobFunc is a unit of scheduled work. It must itself be cancellable:
// Run honors ctx's deadline by racing the call against ctx.Done, but
// cannot forcibly stop work that ignores cancellation.
type JobFunc func(ctx context.Context) (itemCounts map[string]int, errorCount int, err error)

// Run executes fn under a wall-clock timeout, writes a HealthReport to
// healthDir/<dataset>-<timestamp>.json on every exit path (success,
// error, or timeout), and returns the process exit code the caller's
// main() should use.
func Run(ctx context.Context, dataset, healthDir, logPath string, timeout time.Duration, fn JobFunc) int {
	started := time.Now()
	jobCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		counts map[string]int
		errs   int
		err    error
	}
	done := make(chan result, 1)
	go func() {
		counts, errs, err := fn(jobCtx)
		done <- result{counts, errs, err}
	}()

	var report domain.HealthReport
	report.Dataset = dataset
	report.Started = started
	report.LogPath = logPath

	var exitCode int
	select {
	case <-jobCtx.Done():
		report.Status = domain.JobTimeout
		report.ExitCode = ExitTimeout
		exitCode = ExitTimeout
		log.WithFields(logging.Fields{"dataset": dataset}).Error("job exceeded wall-clock timeout")
	case r := <-done:
		report.ItemCounts = r.counts
		report.ErrorCount = r.errs
		if r.err != nil {
			report.Status = domain.JobFailure
			report.ExitCode = ExitFailure
			exitCode = ExitFailure
			log.WithFields(logging.Fields{"dataset": dataset, "error": r.err}).Error("job failed")
		} else {
			report.Status = domain.JobSuccess
			report.ExitCode = ExitSuccess
			exitCode = ExitSuccess
		}
	}
	report.Finished = time.Now()

	if _, err := store.WriteHealthReport(healthDir, dataset, &report); err != nil {
		log.WithFields(logging.Fields{"dataset": dataset, "error": err}).Error("failed to write health report")
	}
	return exitCode
}
