// Package limits bounds the orchestrator's in-memory monitoring state
// so a years-long unattended daemon never grows an unbounded cache.
// Generalized from the teacher repo's internal/limits.ContextLimiter,
// which bounded an in-memory site-context cache (recent requests,
// forms, resources) the same way; here the bounded collection is
// internal/orchestrator.EventTracker's recent-event history. Crawl
// cursors are persisted to Postgres via store.CursorRepo rather than
// cached in memory, so this package has no cursor-cache counterpart to
// the teacher's resource/form caches.
package limits

import (
	"fmt"
	"time"
)

// MonitoringLimits bounds EventTracker's recent-event history: at most
// MaxRecentEvents entries, each retired once older than MaxEventAge.
type MonitoringLimits struct {
	MaxRecentEvents int           `json:"max_recent_events"`
	MaxEventAge     time.Duration `json:"max_event_age"`
}

// DefaultMonitoringLimits returns the limits used when no override is
// configured.
func DefaultMonitoringLimits() *MonitoringLimits {
	return &MonitoringLimits{
		MaxRecentEvents: 200,
		MaxEventAge:     24 * time.Hour,
	}
}

// Limiter enforces MonitoringLimits against EventTracker's in-memory
// event history.
type Limiter struct {
	limits *MonitoringLimits
}

// NewLimiter builds a Limiter; a nil limits argument falls back to
// DefaultMonitoringLimits.
func NewLimiter(limits *MonitoringLimits) *Limiter {
	if limits == nil {
		limits = DefaultMonitoringLimits()
	}
	return &Limiter{limits: limits}
}

// GetLimits returns the limiter's current limits.
func (l *Limiter) GetLimits() *MonitoringLimits {
	return l.limits
}

// UpdateLimits replaces the limiter's limits after validating every
// field is positive.
func (l *Limiter) UpdateLimits(limits *MonitoringLimits) error {
	if limits.MaxRecentEvents <= 0 {
		return fmt.Errorf("MaxRecentEvents must be positive")
	}
	if limits.MaxEventAge <= 0 {
		return fmt.Errorf("MaxEventAge must be positive")
	}
	l.limits = limits
	return nil
}

// ShouldEvict reports whether an event recorded at unixTimestamp has
// aged out of the retention window.
func (l *Limiter) ShouldEvict(unixTimestamp int64) bool {
	cutoff := time.Now().Add(-l.limits.MaxEventAge).Unix()
	return unixTimestamp < cutoff
}

// TrimEvents keeps only the most recent max entries, assuming events is
// already ordered oldest-to-newest.
func TrimEvents[T any](events []T, max int) []T {
	if len(events) <= max {
		return events
	}
	return events[len(events)-max:]
}

// TrimToLimit is the Limiter-bound convenience form of TrimEvents,
// trimming to the limiter's own MaxRecentEvents.
func TrimToLimit[T any](l *Limiter, events []T) []T {
	return TrimEvents(events, l.limits.MaxRecentEvents)
}

// EstimateMemoryBytes returns an approximate byte footprint of the
// bounded event history at full occupancy, used by the orchestrator's
// health report to flag configurations likely to exhaust memory over a
// multi-year unattended run.
func (l *Limiter) EstimateMemoryBytes() int64 {
	const (
		baseSize = int64(1024)
		perEvent = int64(200)
	)
	return baseSize + int64(l.limits.MaxRecentEvents)*perEvent
}

// Validate rejects configurations whose limits are implausibly large
// for a long-running, memory-bounded orchestrator process.
func (l *Limiter) Validate() error {
	if l.limits.MaxRecentEvents > 1000 {
		return fmt.Errorf("MaxRecentEvents too large (> 1000)")
	}
	if l.limits.MaxEventAge > 24*7*time.Hour {
		return fmt.Errorf("MaxEventAge too large (> 168h)")
	}
	return nil
}
