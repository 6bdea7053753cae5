package features

import (
	"math"

	"github.com/macedonia-transparency/procurement-pipeline/internal/domain"
)

// Compute derives t's full feature vector given peer comparison data.
// It never errors: every family degrades to nil/zero fields when its
// inputs are insufficient, matching spec.md §7's directive that a
// missing feature is not itself an ingestion or analysis failure.
func Compute(t *domain.Tender, peer Peer, specText string) TenderFeatures {
	f := TenderFeatures{
		TenderID:          t.ID,
		ProcuringEntityID: t.ProcuringEntityID,
		ProcedureType:     t.ProcedureType,
		IsOpenProcedure:   isOpenProcedure(t.ProcedureType),
		AmendmentsCount:   t.AmendmentsCount,
		EstimatedValue:    t.EstimatedValue,
		AwardedValue:      t.AwardedValue,
		DocumentCount:     len(t.Documents),
	}

	computeCompetition(t, &f)
	computePrice(t, peer, &f)
	computeTiming(t, &f)
	computeRelationship(t, peer, &f)
	computeDocument(t, peer, specText, &f)
	computeHistorical(peer, &f)

	return f
}

func isOpenProcedure(procedureType string) bool {
	switch procedureType {
	case "", "отворена постапка", "open":
		return true
	default:
		return false
	}
}

func computeCompetition(t *domain.Tender, f *TenderFeatures) {
	allBids := allBids(t)
	f.BidderCount = distinctBidders(allBids)
	for _, b := range allBids {
		if b.Disqualified {
			f.DisqualifiedCount++
		}
	}
	f.SingleBidder = f.BidderCount <= 1
}

func allBids(t *domain.Tender) []domain.TenderBid {
	bids := append([]domain.TenderBid{}, t.Bids...)
	for _, lot := range t.Lots {
		bids = append(bids, lot.Bids...)
	}
	return bids
}

func distinctBidders(bids []domain.TenderBid) int {
	seen := map[int64]bool{}
	for _, b := range bids {
		seen[b.BidderID] = true
	}
	return len(seen)
}

func computePrice(t *domain.Tender, peer Peer, f *TenderFeatures) {
	if t.EstimatedValue != nil && t.AwardedValue != nil {
		if ratio, ok := t.AwardedValue.Ratio(*t.EstimatedValue); ok {
			f.PriceRatio = &ratio
		}
	}
	if t.AwardedValue == nil || len(peer.CPVPeerAwardedValues) < 5 {
		return
	}
	mean, stddev := meanStddev(peer.CPVPeerAwardedValues)
	if stddev == 0 {
		return
	}
	z := (t.AwardedValue.Float64() - mean) / stddev
	f.PeerZScore = &z
}

func meanStddev(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values))
	return mean, math.Sqrt(variance)
}

func computeTiming(t *domain.Tender, f *TenderFeatures) {
	if t.PublicationDate != nil && t.OpeningDate != nil {
		days := t.OpeningDate.Sub(*t.PublicationDate).Hours() / 24
		f.PublicationToOpeningDays = &days
	}
	if t.PublicationDate != nil && t.ClosingDate != nil {
		days := t.ClosingDate.Sub(*t.PublicationDate).Hours() / 24
		f.PublicationToClosingDays = &days
	}
}

func computeRelationship(t *domain.Tender, peer Peer, f *TenderFeatures) {
	f.SharedAddressBidderPairs = peer.SharedAddressBidderPairs

	amounts := bidAmounts(t)
	if len(amounts) >= 3 {
		mean, stddev := meanStddev(amounts)
		if mean != 0 {
			cv := stddev / mean
			f.BidCV = &cv
		}
	}

	winner := winningBidderID(t)
	if winner == 0 || peer.EntityPastAwardsTotal < 1 {
		return
	}
	pastWins := peer.EntityPastWinnersByBidder[winner]
	f.WinnerPastAwardsCount = pastWins
	ratio := float64(pastWins) / float64(peer.EntityPastAwardsTotal)
	f.WinnerConcentration = &ratio
}

func winningBidderID(t *domain.Tender) int64 {
	for _, b := range t.Bids {
		if b.Winner {
			return b.BidderID
		}
	}
	for _, lot := range t.Lots {
		for _, b := range lot.Bids {
			if b.Winner {
				return b.BidderID
			}
		}
	}
	return 0
}

func bidAmounts(t *domain.Tender) []float64 {
	var out []float64
	for _, b := range allBids(t) {
		if !b.Disqualified {
			out = append(out, b.Amount.Float64())
		}
	}
	return out
}

func computeDocument(t *domain.Tender, peer Peer, specText string, f *TenderFeatures) {
	for _, d := range t.Documents {
		if d.ExtractionStatus == domain.ExtractionFailed {
			f.ExtractionFailureCount++
		}
	}
	if specText == "" || len(peer.PastSpecTexts) == 0 {
		return
	}
	best := 0.0
	for _, past := range peer.PastSpecTexts {
		if s := similarity(specText, past); s > best {
			best = s
		}
	}
	f.SpecSimilarityToPast = &best
}

func computeHistorical(peer Peer, f *TenderFeatures) {
	f.ProcuringEntityAwardCount = peer.EntityPastAwardsTotal
	if peer.EntityPastAwardsTotal == 0 {
		return
	}
	rate := float64(peer.EntityPastCancelCount) / float64(peer.EntityPastAwardsTotal)
	f.ProcuringEntityCancelRate = &rate
}
