// Package features computes the per-tender statistical feature
// vector (spec.md §5, component C7) the risk rules score against. The
// seven families -- competition, price, timing, relationship,
// procedural, document, historical -- are each a small pure function
// over a domain.Tender plus whatever peer/history data the caller
// supplies, with explicit nullable fields so a rule can distinguish
// "computed zero" from "insufficient data to compute."
package features

import "github.com/macedonia-transparency/procurement-pipeline/internal/domain"

// TenderFeatures is the full feature vector for one tender. Every
// field that can be legitimately absent (too few peer samples, no
// historical data for the procuring entity) is a pointer so risk
// rules can skip rather than misinterpret a zero value.
type TenderFeatures struct {
	TenderID int64

	// Competition family
	BidderCount         int
	DisqualifiedCount   int
	SingleBidder        bool

	// Price family
	EstimatedValue      *domain.Decimal
	AwardedValue        *domain.Decimal
	PriceRatio          *float64 // awarded / estimated
	PeerZScore          *float64 // z-score of awarded value vs CPV-code peer mean

	// Timing family
	PublicationToOpeningDays *float64
	PublicationToClosingDays *float64
	AmendmentsCount          int

	// Relationship family
	ProcuringEntityID        int64
	WinnerConcentration      *float64 // fraction of this entity's past awards going to the winning bidder
	WinnerPastAwardsCount    int
	SharedAddressBidderPairs int

	// Procedural family
	ProcedureType       string
	IsOpenProcedure     bool
	BidCV               *float64 // coefficient of variation (stddev/mean) across all non-disqualified bids

	// Document family
	DocumentCount          int
	ExtractionFailureCount int
	SpecSimilarityToPast   *float64

	// Historical family
	ProcuringEntityAwardCount int
	ProcuringEntityCancelRate *float64
}

// Peer supplies the comparison data Compute needs for price and
// relationship features; callers assemble it from internal/store
// queries (peer tenders by CPV code, award history by bidder).
type Peer struct {
	CPVPeerAwardedValues []float64
	EntityPastWinnersByBidder map[int64]int // bidderID -> past award count from this procuring entity
	EntityPastAwardsTotal     int
	EntityPastCancelCount     int
	SharedAddressBidderPairs  int
	PastSpecTexts             []string
}
