package domain

import "time"

// CrawlCursor is per-(portal, category, year) resumable iteration
// state. It is a first-class entity (spec.md §9): the implicit file
// artifacts / JSON scratchpads of the source system are replaced here
// by a store-backed row updated at every page boundary.
type CrawlCursor struct {
	ID               int64
	Portal           SourcePortal
	Category         string
	Year             *int // nil when the category has no archive year dimension
	LastPage         int
	LastTenderNumber string
	LastRunAt        time.Time
	LastRunErrorCount int
	UpdatedAt        time.Time
}

// Key identifies the scratch-state row this cursor belongs to.
type CursorKey struct {
	Portal   SourcePortal
	Category string
	Year     *int
}
