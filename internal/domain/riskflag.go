package domain

import (
	"encoding/json"
	"time"
)

// FlagType enumerates the minimum contractual set of risk flags a Risk
// Analyzer rule can emit. Implementers may add more flag types but may
// not remove any of these (spec.md §4.8).
type FlagType string

const (
	FlagSingleBidder      FlagType = "single_bidder"
	FlagRepeatWinner      FlagType = "repeat_winner"
	FlagPriceAnomaly      FlagType = "price_anomaly"
	FlagBidClustering     FlagType = "bid_clustering"
	FlagShortDeadline     FlagType = "short_deadline"
	FlagHighAmendments    FlagType = "high_amendments"
	FlagSpecRigging       FlagType = "spec_rigging"
	FlagRelatedCompanies  FlagType = "related_companies"
	FlagDataIntegrity     FlagType = "data_integrity"
)

// Severity is thresholded from a rule's score. Per tender testable
// property, severity must be monotone non-decreasing in score for a
// single rule.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// RiskFlag is a single statistical corruption-risk indicator for one
// tender. RiskFlags are relation rows keyed by (tender, flag_type);
// the analyzer recomputes them idempotently on every run.
type RiskFlag struct {
	ID          int64
	TenderID    int64
	FlagType    FlagType
	Severity    Severity
	Score       float64
	Evidence    json.RawMessage
	Explanation string
	DetectedAt  time.Time
}

// Validate enforces the testable properties from spec.md §8:
// score in [0,1], non-empty evidence, non-empty explanation.
func (f *RiskFlag) Validate() error {
	if f.Score < 0 || f.Score > 1 {
		return ErrScoreOutOfRange
	}
	if len(f.Evidence) == 0 {
		return ErrMissingEvidence
	}
	if f.Explanation == "" {
		return ErrMissingExplanation
	}
	return nil
}
