package domain

import (
	"encoding/json"
	"time"
)

// ExtractionStatus is the monotonic ladder a Document's processing
// state climbs: pending -> {success, auth_required, failed, skipped}.
// Once a document leaves `pending` it never returns to it.
type ExtractionStatus string

const (
	ExtractionPending      ExtractionStatus = "pending"
	ExtractionSuccess      ExtractionStatus = "success"
	ExtractionAuthRequired ExtractionStatus = "auth_required"
	ExtractionFailed       ExtractionStatus = "failed"
	ExtractionSkipped      ExtractionStatus = "skipped"
)

// ExtractionTransitionAllowed mirrors Tender's status DAG for documents:
// any terminal status is reachable directly from pending; success,
// auth_required and skipped never transition again, while failed (a
// retry) may move to failed again or to any other terminal status.
func ExtractionTransitionAllowed(from, to ExtractionStatus) bool {
	if from == to {
		return from == ExtractionPending || from == ExtractionFailed
	}
	if from == ExtractionPending {
		return true
	}
	if from == ExtractionFailed {
		// Retried documents can move on to any terminal state.
		return to == ExtractionSuccess || to == ExtractionAuthRequired || to == ExtractionSkipped
	}
	return false
}

// Specifications is the structured block mined from a document's text:
// CPV codes, emails, phone numbers and deadline phrases.
type Specifications struct {
	CPVCodes        []string `json:"cpv_codes,omitempty"`
	Emails          []string `json:"emails,omitempty"`
	Phones          []string `json:"phones,omitempty"`
	DeadlinePhrases []string `json:"deadline_phrases,omitempty"`
}

// Document belongs to exactly one tender.
type Document struct {
	ID               int64
	TenderID         int64
	SourceURL        string
	LocalPath        string
	MIME             string
	FileSizeBytes    int64
	PageCount        int
	ExtractionStatus ExtractionStatus
	ExtractedText    string
	Specifications   Specifications
	StatusPayload    json.RawMessage // auxiliary status detail, e.g. products_extraction_failed
	Attempts         int
	LastAttemptAt    *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ProductItem is one extracted line item from a Document.
type ProductItem struct {
	ID             int64
	DocumentID     int64
	TenderID       int64
	Name           string
	Quantity       float64
	Unit           string
	UnitPrice      *Decimal
	TotalPrice     *Decimal
	Specifications Specifications
	Category       string
}
