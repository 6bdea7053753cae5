package orchestrator

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/macedonia-transparency/procurement-pipeline/internal/limits"
)

func TestLockAcquireReleaseRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.lock")
	l := NewLock(path)
	if err := l.Acquire(time.Second, time.Hour); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if err := l.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}

	l2 := NewLock(path)
	if err := l2.Acquire(time.Second, time.Hour); err != nil {
		t.Fatalf("re-Acquire after Release: %v", err)
	}
	l2.Release()
}

func TestLockEvictsStaleHolder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stale.lock")
	stale := NewLock(path)
	if err := stale.Acquire(time.Second, time.Hour); err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	fresh := NewLock(path)
	if err := fresh.Acquire(2*time.Second, 0); err != nil {
		t.Fatalf("Acquire should have evicted the stale holder: %v", err)
	}
	fresh.Release()
}

func TestEventTrackerEvictsAtCapacity(t *testing.T) {
	const max = 20
	tr := NewEventTracker(limits.NewLimiter(&limits.MonitoringLimits{MaxRecentEvents: max, MaxEventAge: time.Hour}))
	for i := 0; i < max+10; i++ {
		tr.Record("crawler-enabavki", "page_fetched", "")
	}
	if len(tr.Recent()) != max {
		t.Fatalf("expected %d retained events, got %d", max, len(tr.Recent()))
	}
	if tr.Total() != int64(max+10) {
		t.Fatalf("expected total %d, got %d", max+10, tr.Total())
	}
}

func TestEventTrackerEvictsAgedEntries(t *testing.T) {
	tr := NewEventTracker(limits.NewLimiter(&limits.MonitoringLimits{MaxRecentEvents: 100, MaxEventAge: time.Hour}))
	tr.mu.Lock()
	tr.events = append(tr.events, Event{Timestamp: time.Now().Add(-2 * time.Hour).Unix(), Dataset: "stale"})
	tr.mu.Unlock()

	tr.Record("crawler-enabavki", "page_fetched", "")

	for _, e := range tr.Recent() {
		if e.Dataset == "stale" {
			t.Fatalf("expected aged-out event to be evicted on next Record")
		}
	}
}
