package domain

import "errors"

// Invariant violations a single tender or document record can exhibit.
// These are returned by ValidateInvariants and friends; the ingestion
// pipeline admits the data anyway per spec.md §7 ("Data integrity") and
// leaves it to the risk analyzer to raise a data_integrity flag rather
// than silently repair scraped data.
var (
	ErrClosingBeforeOpening = errors.New("domain: closing_date before opening_date")
	ErrMultipleWinners      = errors.New("domain: more than one winner for a tender or lot")
	ErrInvalidStatusTransition = errors.New("domain: illegal status transition")
	ErrScoreOutOfRange      = errors.New("domain: risk flag score outside [0,1]")
	ErrMissingEvidence      = errors.New("domain: risk flag missing evidence")
	ErrMissingExplanation   = errors.New("domain: risk flag missing explanation")
)
