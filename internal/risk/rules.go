package risk

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/macedonia-transparency/procurement-pipeline/internal/domain"
	"github.com/macedonia-transparency/procurement-pipeline/internal/features"
)

// Rule scores one risk dimension against a tender's feature vector. A
// nil return means the rule did not fire (insufficient data or the
// feature was within bounds); rules never error since they are pure
// functions over already-computed features.
type Rule func(t *domain.Tender, f features.TenderFeatures, th Thresholds) *domain.RiskFlag

// AllRules returns every published rule in the order spec.md §5
// enumerates the eight flag types. A ninth, data_integrity, is raised
// separately by CheckDataIntegrity since it reflects a structural
// problem with the tender record itself rather than a statistical
// pattern over its features.
func AllRules() []Rule {
	return []Rule{
		SingleBidderRule,
		RepeatWinnerRule,
		PriceAnomalyRule,
		BidClusteringRule,
		ShortDeadlineRule,
		HighAmendmentsRule,
		SpecRiggingRule,
		RelatedCompaniesRule,
	}
}

func evidence(v any) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("{}")
	}
	return raw
}

// SingleBidderRule flags tenders above the exemption threshold that
// drew exactly one bidder -- the single most common published
// indicator of restricted competition. Severity escalates to high once
// the estimated value clears SingleBidderHighSeverityValue, since a
// single bid on a large-value tender draws materially more scrutiny
// than one on a tender just above the small-purchase floor.
func SingleBidderRule(t *domain.Tender, f features.TenderFeatures, th Thresholds) *domain.RiskFlag {
	if !f.SingleBidder {
		return nil
	}
	if f.EstimatedValue == nil {
		return nil
	}
	value := f.EstimatedValue.Float64()
	if value < th.SingleBidderMinEstimatedValue {
		return nil
	}
	severity := domain.SeverityMedium
	score := 0.6
	if value >= th.SingleBidderHighSeverityValue {
		severity = domain.SeverityHigh
		score = 0.8
	}
	return &domain.RiskFlag{
		TenderID: t.ID,
		FlagType: domain.FlagSingleBidder,
		Severity: severity,
		Score:    score,
		Evidence: evidence(map[string]any{"bidder_count": f.BidderCount, "estimated_value": value}),
	}
}

// RepeatWinnerRule flags a procuring entity whose awards concentrate
// heavily on one bidder, once enough award history exists to make the
// concentration meaningful.
func RepeatWinnerRule(t *domain.Tender, f features.TenderFeatures, th Thresholds) *domain.RiskFlag {
	if f.WinnerConcentration == nil || f.ProcuringEntityAwardCount < th.RepeatWinnerMinAwardsCount {
		return nil
	}
	if *f.WinnerConcentration < th.RepeatWinnerConcentration {
		return nil
	}
	severity := domain.SeverityHigh
	if *f.WinnerConcentration > 0.9 {
		severity = domain.SeverityCritical
	}
	return &domain.RiskFlag{
		TenderID: t.ID,
		FlagType: domain.FlagRepeatWinner,
		Severity: severity,
		Score:    clamp(*f.WinnerConcentration),
		Evidence: evidence(map[string]any{
			"concentration":      *f.WinnerConcentration,
			"past_awards_count":  f.ProcuringEntityAwardCount,
			"winner_past_awards": f.WinnerPastAwardsCount,
		}),
	}
}

// PriceAnomalyRule implements spec.md §4.8's published price_anomaly
// rule: an awarded value that deviates from the estimate by more than
// PriceAnomalyRatio, or -- the rule's exact-equality special case --
// that matches the estimate to the deni exactly while the estimate
// itself is not a round figure (an estimate this precise matching the
// winning bid to the minor unit is itself improbable absent advance
// knowledge of the award). The CPV-peer z-score is kept as a second,
// independent signal for tenders with enough peer history to support
// it; either trigger is sufficient to raise the flag.
func PriceAnomalyRule(t *domain.Tender, f features.TenderFeatures, th Thresholds) *domain.RiskFlag {
	if flag := priceRatioAnomaly(t, f, th); flag != nil {
		return flag
	}
	return priceZScoreAnomaly(t, f, th)
}

func priceRatioAnomaly(t *domain.Tender, f features.TenderFeatures, th Thresholds) *domain.RiskFlag {
	if f.PriceRatio == nil {
		return nil
	}
	deviation := math.Abs(*f.PriceRatio - 1)
	exactMatch := t.EstimatedValue != nil && t.AwardedValue != nil &&
		t.AwardedValue.Equal(*t.EstimatedValue) && !isRoundEstimate(*t.EstimatedValue)

	if deviation <= th.PriceAnomalyRatio && !exactMatch {
		return nil
	}

	severity := domain.SeverityMedium
	score := clamp(deviation / (th.PriceAnomalyRatio * 2))
	if exactMatch {
		severity = domain.SeverityHigh
		if score < 0.75 {
			score = 0.75
		}
	} else if deviation > th.PriceAnomalyRatio*2 {
		severity = domain.SeverityHigh
	}

	return &domain.RiskFlag{
		TenderID: t.ID,
		FlagType: domain.FlagPriceAnomaly,
		Severity: severity,
		Score:    score,
		Evidence: evidence(map[string]any{"price_ratio": *f.PriceRatio, "exact_match": exactMatch}),
	}
}

// isRoundEstimate reports whether v's major-unit value is a multiple of
// 10,000, the shape a deliberately rounded budget estimate takes on
// these portals. A non-round estimate exactly matched by the winning
// bid is the anomaly priceRatioAnomaly's exact-match branch targets.
func isRoundEstimate(v domain.Decimal) bool {
	major := v.Units / 100
	return major%10_000 == 0
}

func priceZScoreAnomaly(t *domain.Tender, f features.TenderFeatures, th Thresholds) *domain.RiskFlag {
	if f.PeerZScore == nil {
		return nil
	}
	z := *f.PeerZScore
	absZ := math.Abs(z)
	if absZ < th.PriceAnomalyZScore {
		return nil
	}
	severity := domain.SeverityMedium
	if absZ >= th.PriceAnomalyZScore*1.2 {
		severity = domain.SeverityHigh
	}
	return &domain.RiskFlag{
		TenderID: t.ID,
		FlagType: domain.FlagPriceAnomaly,
		Severity: severity,
		Score:    clamp(absZ / (th.PriceAnomalyZScore * 2)),
		Evidence: evidence(map[string]any{"z_score": z}),
	}
}

// BidClusteringRule flags bids clustered implausibly close together --
// spec.md §4.8's coefficient-of-variation test across all bids, not
// just the two lowest -- a published indicator of coordinated bidding
// among nominally independent bidders.
func BidClusteringRule(t *domain.Tender, f features.TenderFeatures, th Thresholds) *domain.RiskFlag {
	if f.BidCV == nil || f.BidderCount < th.BidClusteringMinBidders {
		return nil
	}
	if *f.BidCV > th.BidClusteringMaxCV {
		return nil
	}
	return &domain.RiskFlag{
		TenderID: t.ID,
		FlagType: domain.FlagBidClustering,
		Severity: domain.SeverityMedium,
		Score:    clamp(1 - (*f.BidCV / th.BidClusteringMaxCV)),
		Evidence: evidence(map[string]any{"cv": *f.BidCV, "bidder_count": f.BidderCount}),
	}
}

// ShortDeadlineRule flags tenders whose publication-to-closing window
// was unusually short, limiting the field of bidders able to prepare
// a competitive offer in time. Severity scales with how far below the
// category floor the window fell, rather than a flat low: a window at
// a large fraction of the floor is a low-severity nudge, one deep
// inside it escalates toward high.
func ShortDeadlineRule(t *domain.Tender, f features.TenderFeatures, th Thresholds) *domain.RiskFlag {
	if f.PublicationToClosingDays == nil {
		return nil
	}
	days := *f.PublicationToClosingDays
	if days < 0 || days >= th.ShortDeadlineDays {
		return nil
	}
	ratio := days / th.ShortDeadlineDays

	severity := domain.SeverityLow
	switch {
	case ratio <= th.ShortDeadlineHighSeverityRatio:
		severity = domain.SeverityHigh
	case ratio <= th.ShortDeadlineMediumSeverityRatio:
		severity = domain.SeverityMedium
	}

	return &domain.RiskFlag{
		TenderID: t.ID,
		FlagType: domain.FlagShortDeadline,
		Severity: severity,
		Score:    clamp(1 - ratio),
		Evidence: evidence(map[string]any{"days": days, "floor_days": th.ShortDeadlineDays}),
	}
}

// HighAmendmentsRule flags tenders amended an unusually high number of
// times, often used to quietly narrow specifications toward a
// preferred bidder after initial publication.
func HighAmendmentsRule(t *domain.Tender, f features.TenderFeatures, th Thresholds) *domain.RiskFlag {
	if f.AmendmentsCount < th.HighAmendmentsCount {
		return nil
	}
	return &domain.RiskFlag{
		TenderID: t.ID,
		FlagType: domain.FlagHighAmendments,
		Severity: domain.SeverityLow,
		Score:    clamp(float64(f.AmendmentsCount) / float64(th.HighAmendmentsCount*2)),
		Evidence: evidence(map[string]any{"amendments_count": f.AmendmentsCount}),
	}
}

// SpecRiggingRule flags technical specification text implausibly
// similar to a past tender from the same procuring entity, a
// published indicator of specifications drafted around one vendor's
// existing boilerplate ("tailored specs").
func SpecRiggingRule(t *domain.Tender, f features.TenderFeatures, th Thresholds) *domain.RiskFlag {
	if f.SpecSimilarityToPast == nil || *f.SpecSimilarityToPast < th.SpecRiggingSimilarity {
		return nil
	}
	return &domain.RiskFlag{
		TenderID: t.ID,
		FlagType: domain.FlagSpecRigging,
		Severity: domain.SeverityHigh,
		Score:    clamp(*f.SpecSimilarityToPast),
		Evidence: evidence(map[string]any{"similarity": *f.SpecSimilarityToPast}),
	}
}

// RelatedCompaniesRule flags tenders where multiple bidders share a
// registered address, a common shell-company pattern used to simulate
// competition.
func RelatedCompaniesRule(t *domain.Tender, f features.TenderFeatures, th Thresholds) *domain.RiskFlag {
	if f.SharedAddressBidderPairs < th.RelatedCompaniesSharedAddressMin {
		return nil
	}
	return &domain.RiskFlag{
		TenderID: t.ID,
		FlagType: domain.FlagRelatedCompanies,
		Severity: domain.SeverityHigh,
		Score:    clamp(float64(f.SharedAddressBidderPairs) / float64(f.BidderCount+1)),
		Evidence: evidence(map[string]any{"shared_address_pairs": f.SharedAddressBidderPairs}),
	}
}

// CheckDataIntegrity raises the data_integrity flag when a tender's
// invariants are violated in stored data that predates a later
// tightening of ValidateInvariants (e.g. rows imported before this
// pipeline enforced single-winner-per-lot at write time).
func CheckDataIntegrity(t *domain.Tender) *domain.RiskFlag {
	if err := t.ValidateInvariants(); err != nil {
		return &domain.RiskFlag{
			TenderID: t.ID,
			FlagType: domain.FlagDataIntegrity,
			Severity: domain.SeverityCritical,
			Score:    1.0,
			Evidence: evidence(map[string]any{"violation": err.Error()}),
			Explanation: fmt.Sprintf("stored record violates invariant: %v", err),
		}
	}
	return nil
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
