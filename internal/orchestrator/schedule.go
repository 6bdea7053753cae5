package orchestrator

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/macedonia-transparency/procurement-pipeline/internal/limits"
)

// Schedule invariants per spec.md §4.9. These are the default cron
// expressions for the optional daemon mode's in-process table; the
// primary contract remains the one-shot CLI subcommands run by an
// external scheduler, so a deployment is free to ignore this table
// entirely and cron(1)/systemd-time the subcommands instead.
const (
	ScheduleActiveTendersCrawl  = "0 */4 * * *"   // every 4h
	ScheduleDailyEnrichment     = "30 2 * * *"    // once daily, off-peak
	ScheduleHistoricalBackfill = "0 3 * * 6,0"    // weekend-only
	ScheduleDocumentProcessing = "0 */2 * * *"    // every 2h
	ScheduleRiskAnalysis       = "0 4 * * *"      // daily, off-peak
	ScheduleModelRetrain       = "0 5 * * 1"      // weekly (Monday)
)

// Daemon wires JobFuncs to the schedule invariants above using
// robfig/cron/v3, the way the teacher's build used it nowhere itself
// but the surveyed reference corpus's batch services use it for
// exactly this kind of fixed recurring table.
type Daemon struct {
	cron *cron.Cron
	hub  *ProgressHub
}

// NewDaemon constructs an empty schedule table plus its progress hub,
// whose event history is bounded by limits.DefaultMonitoringLimits.
func NewDaemon() *Daemon {
	tracker := NewEventTracker(limits.NewLimiter(nil))
	return &Daemon{cron: cron.New(), hub: NewProgressHub(tracker)}
}

// Hub returns the daemon's live-progress broadcaster, for wiring an
// HTTP mux's /ws route to hub.ServeWS.
func (d *Daemon) Hub() *ProgressHub { return d.hub }

// Add registers fn to run on spec (a cron expression, typically one of
// the Schedule* constants), wrapping it with the standard job runner
// so every scheduled firing still produces a health report.
func (d *Daemon) Add(spec, dataset, healthDir, logPath string, timeoutSeconds int, fn JobFunc) error {
	_, err := d.cron.AddFunc(spec, func() {
		d.hub.Broadcast(Event{Dataset: dataset, Kind: "job_start"})
		code := Run(context.Background(), dataset, healthDir, logPath, time.Duration(timeoutSeconds)*time.Second, fn)
		d.hub.Broadcast(Event{Dataset: dataset, Kind: "job_end", Detail: exitCodeLabel(code)})
	})
	return err
}

// Start launches the hub's event loop and the schedule table in their
// own goroutines and returns immediately; Stop halts the table.
func (d *Daemon) Start() {
	go d.hub.Run()
	d.cron.Start()
}

// Stop halts the schedule table, waiting for any in-flight job to
// finish per cron.Cron's own semantics.
func (d *Daemon) Stop() {
	ctx := d.cron.Stop()
	<-ctx.Done()
}

func exitCodeLabel(code int) string {
	switch code {
	case ExitSuccess:
		return "success"
	case ExitTimeout:
		return "timeout"
	case ExitLockContest:
		return "lock_contested"
	default:
		return "failure"
	}
}
