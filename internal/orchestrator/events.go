package orchestrator

import (
	"sync"
	"time"

	"github.com/macedonia-transparency/procurement-pipeline/internal/limits"
)

// Event is one progress update a running job emits: a crawl page
// fetched, a document processed, a risk flag raised.
type Event struct {
	Timestamp int64  `json:"timestamp"`
	Dataset   string `json:"dataset"`
	Kind      string `json:"kind"`
	Detail    string `json:"detail"`
}

// EventTracker keeps the most recent progress events across all
// running jobs in a single process, bounded by an internal/limits.Limiter
// (count and age, same as the teacher's ContextLimiter-bounded request
// history) rather than a hand-rolled constant, for the daemon mode's
// live-progress hub to broadcast.
type EventTracker struct {
	mu      sync.RWMutex
	events  []Event
	total   int64
	limiter *limits.Limiter
}

// NewEventTracker returns an empty tracker bounded by limiter; a nil
// limiter falls back to limits.DefaultMonitoringLimits.
func NewEventTracker(limiter *limits.Limiter) *EventTracker {
	if limiter == nil {
		limiter = limits.NewLimiter(nil)
	}
	return &EventTracker{limiter: limiter}
}

// Record appends an event, evicting aged-out entries and then trimming
// to the limiter's MaxRecentEvents.
func (t *EventTracker) Record(dataset, kind, detail string) Event {
	t.mu.Lock()
	defer t.mu.Unlock()

	e := Event{Timestamp: time.Now().Unix(), Dataset: dataset, Kind: kind, Detail: detail}
	t.events = append(t.events, e)

	i := 0
	for i < len(t.events) && t.limiter.ShouldEvict(t.events[i].Timestamp) {
		i++
	}
	t.events = t.events[i:]

	t.events = limits.TrimToLimit(t.limiter, t.events)
	t.total++
	return e
}

// Recent returns a snapshot of the tracked events, oldest first.
func (t *EventTracker) Recent() []Event {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Event, len(t.events))
	copy(out, t.events)
	return out
}

// Total returns the number of events recorded since the tracker was
// created, including ones already evicted.
func (t *EventTracker) Total() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.total
}
