// Package domain holds the typed records for the procurement data model
// described by the tender, document and risk entities the pipeline
// ingests, enriches and scores.
package domain

import (
	"encoding/json"
	"time"
)

// SourcePortal identifies which government portal produced a tender.
type SourcePortal string

const (
	PortalENabavki SourcePortal = "enabavki"
	PortalEPazar   SourcePortal = "epazar"
)

// Status is a tender's lifecycle state. Transitions form a DAG:
// open -> closed -> awarded, and * -> cancelled. No other transition
// is legal; StatusTransitionAllowed enforces this.
type Status string

const (
	StatusOpen      Status = "open"
	StatusClosed    Status = "closed"
	StatusAwarded   Status = "awarded"
	StatusCancelled Status = "cancelled"
)

// StatusTransitionAllowed reports whether moving a tender from `from` to
// `to` is a legal edge in the status DAG. Calling with from == to is
// always allowed (no-op update).
func StatusTransitionAllowed(from, to Status) bool {
	if from == to {
		return true
	}
	switch from {
	case StatusOpen:
		return to == StatusClosed || to == StatusCancelled
	case StatusClosed:
		return to == StatusAwarded || to == StatusCancelled
	case StatusAwarded, StatusCancelled:
		return false
	default:
		// Unknown current status (e.g. freshly-crawled record with no
		// prior row): any first status is allowed.
		return from == ""
	}
}

// Currency is one of the two denominations used on the portals.
type Currency string

const (
	CurrencyMKD Currency = "MKD"
	CurrencyEUR Currency = "EUR"
)

// ContactBlock is the procuring entity's published contact information
// on a dossier page.
type ContactBlock struct {
	Person string
	Email  string
	Phone  string
}

// Tender is the central entity: one procurement notice, uniquely
// identified by (TenderNumber, Year).
type Tender struct {
	ID             int64
	TenderNumber   string
	Year           int
	SourcePortal   SourcePortal
	SourceURL      string
	Title          string
	Description    string
	ProcuringEntityID int64
	ProcedureType  string
	CPVCode        string
	Category       string
	Currency       Currency
	EstimatedValue *Decimal
	AwardedValue   *Decimal
	PublicationDate *time.Time
	OpeningDate     *time.Time
	ClosingDate     *time.Time
	SigningDate     *time.Time
	Status          Status
	Contact         ContactBlock
	RawData         json.RawMessage
	AmendmentsCount int
	CreatedAt       time.Time
	UpdatedAt       time.Time

	Lots       []Lot
	Bids       []TenderBid
	Documents  []Document
}

// Key returns the (tender_number, year) identity tuple as a comparable
// value usable as a map key.
func (t *Tender) Key() TenderKey {
	return TenderKey{Number: t.TenderNumber, Year: t.Year}
}

// TenderKey is the natural (tender_number, year) identity.
type TenderKey struct {
	Number string
	Year   int
}

// ValidateInvariants checks the invariants spec.md §3 places on a
// single tender record, independent of any prior stored state.
func (t *Tender) ValidateInvariants() error {
	if t.ClosingDate != nil && t.OpeningDate != nil && t.ClosingDate.Before(*t.OpeningDate) {
		return ErrClosingBeforeOpening
	}
	winners := 0
	for _, lot := range t.Lots {
		if err := lot.validateSingleWinner(); err != nil {
			return err
		}
	}
	if len(t.Lots) == 0 {
		for _, b := range t.Bids {
			if b.Winner {
				winners++
			}
		}
		if winners > 1 {
			return ErrMultipleWinners
		}
	}
	return nil
}

// Lot is an optional sub-division of a tender, evaluated and awarded
// independently.
type Lot struct {
	ID             int64
	TenderID       int64
	LotNumber      string
	Title          string
	EstimatedValue *Decimal
	ActualValue    *Decimal
	Bids           []TenderBid
}

func (l *Lot) validateSingleWinner() error {
	winners := 0
	for _, b := range l.Bids {
		if b.Winner {
			winners++
		}
	}
	if winners > 1 {
		return ErrMultipleWinners
	}
	return nil
}

// TenderBid is one bidder's offer against a tender or lot.
type TenderBid struct {
	ID                int64
	TenderID          int64
	LotID             *int64
	BidderID          int64
	Amount            Decimal
	Rank              int
	Winner            bool
	Disqualified      bool
	DisqualifiedReason string
}

// ProcuringEntity is a contracting institution, normalized by legal
// name and tax ID.
type ProcuringEntity struct {
	ID         int64
	LegalName  string
	TaxID      string
	Address    string
	CreatedAt  time.Time
}

// NormalizedKey is the (legal name, tax ID) identity used to
// resolve-or-create a ProcuringEntity during ingestion.
func (p *ProcuringEntity) NormalizedKey() string {
	return NormalizeLegalName(p.LegalName) + "|" + p.TaxID
}

// Bidder is a company that has placed at least one bid.
type Bidder struct {
	ID        int64
	LegalName string
	TaxID     string
	Address   string
	Manager   string
	CreatedAt time.Time
}
