package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macedonia-transparency/procurement-pipeline/internal/domain"
	"github.com/macedonia-transparency/procurement-pipeline/internal/features"
)

func TestSingleBidderRule(t *testing.T) {
	estimated := domain.NewDecimalFromMajor(1_000_000, 0)
	tender := &domain.Tender{ID: 1}
	f := features.TenderFeatures{SingleBidder: true, BidderCount: 1, EstimatedValue: &estimated}

	flag := SingleBidderRule(tender, f, DefaultThresholds())
	require.NotNil(t, flag)
	assert.Equal(t, domain.FlagSingleBidder, flag.FlagType)

	small := domain.NewDecimalFromMajor(1000, 0)
	f.EstimatedValue = &small
	assert.Nil(t, SingleBidderRule(tender, f, DefaultThresholds()))
}

// TestSingleBidderRule_SeedScenario1 pins spec.md §8 scenario 1: a
// single bid against a 10,000,000 MKD estimate must land severity high.
func TestSingleBidderRule_SeedScenario1(t *testing.T) {
	estimated := domain.NewDecimalFromMajor(10_000_000, 0)
	tender := &domain.Tender{ID: 1}
	f := features.TenderFeatures{SingleBidder: true, BidderCount: 1, EstimatedValue: &estimated}

	flag := SingleBidderRule(tender, f, DefaultThresholds())
	require.NotNil(t, flag)
	assert.Equal(t, domain.SeverityHigh, flag.Severity)
}

func TestPriceAnomalyRule(t *testing.T) {
	z := 3.0
	f := features.TenderFeatures{PeerZScore: &z}
	flag := PriceAnomalyRule(&domain.Tender{ID: 2}, f, DefaultThresholds())
	require.NotNil(t, flag)
	assert.Equal(t, domain.SeverityHigh, flag.Severity)

	lowZ := 0.5
	f.PeerZScore = &lowZ
	assert.Nil(t, PriceAnomalyRule(&domain.Tender{ID: 2}, f, DefaultThresholds()))
}

// TestPriceAnomalyRule_ExactEstimateMatch pins spec.md §8 scenario 2's
// price_anomaly path: no peer distribution is supplied at all (fewer
// than 5 CPV peers, so PeerZScore is nil), yet the winning bid matches
// a non-round estimate exactly and must still raise the flag via the
// ratio/exact-equality rule.
func TestPriceAnomalyRule_ExactEstimateMatch(t *testing.T) {
	estimated := domain.NewDecimalFromMajor(1_234_567, 0)
	awarded := domain.NewDecimalFromMajor(1_234_567, 0)
	tender := &domain.Tender{ID: 3, EstimatedValue: &estimated, AwardedValue: &awarded}
	ratio := 1.0
	f := features.TenderFeatures{PriceRatio: &ratio}

	flag := PriceAnomalyRule(tender, f, DefaultThresholds())
	require.NotNil(t, flag)
	assert.Equal(t, domain.FlagPriceAnomaly, flag.FlagType)
}

// TestPriceAnomalyRule_RoundEstimateMatchNotFlagged confirms the
// exact-equality branch only fires for a non-round estimate: a
// perfectly round estimate exactly matched by the bid is not itself
// surprising.
func TestPriceAnomalyRule_RoundEstimateMatchNotFlagged(t *testing.T) {
	estimated := domain.NewDecimalFromMajor(1_200_000, 0)
	awarded := domain.NewDecimalFromMajor(1_200_000, 0)
	tender := &domain.Tender{ID: 4, EstimatedValue: &estimated, AwardedValue: &awarded}
	ratio := 1.0
	f := features.TenderFeatures{PriceRatio: &ratio}

	assert.Nil(t, PriceAnomalyRule(tender, f, DefaultThresholds()))
}

// TestPriceAnomalyRule_RatioDeviation covers the plain ratio-deviation
// trigger (no exact match involved).
func TestPriceAnomalyRule_RatioDeviation(t *testing.T) {
	estimated := domain.NewDecimalFromMajor(1_000_000, 0)
	awarded := domain.NewDecimalFromMajor(1_400_000, 0)
	tender := &domain.Tender{ID: 5, EstimatedValue: &estimated, AwardedValue: &awarded}
	ratio := 1.4
	f := features.TenderFeatures{PriceRatio: &ratio}

	flag := PriceAnomalyRule(tender, f, DefaultThresholds())
	require.NotNil(t, flag)
	assert.Equal(t, domain.SeverityHigh, flag.Severity)
}

// TestBidClusteringRule_SeedScenario2 pins spec.md §8 scenario 2's
// bid_clustering path: 3 bidders, CV 0.001.
func TestBidClusteringRule_SeedScenario2(t *testing.T) {
	cv := 0.001
	f := features.TenderFeatures{BidCV: &cv, BidderCount: 3}
	flag := BidClusteringRule(&domain.Tender{ID: 6}, f, DefaultThresholds())
	require.NotNil(t, flag)
	assert.Equal(t, domain.FlagBidClustering, flag.FlagType)

	tooFewBidders := features.TenderFeatures{BidCV: &cv, BidderCount: 2}
	assert.Nil(t, BidClusteringRule(&domain.Tender{ID: 6}, tooFewBidders, DefaultThresholds()))
}

// TestShortDeadlineRule_SeedScenario4 pins spec.md §8 scenario 4: a
// 4-day window against a 14-day floor lands severity medium.
func TestShortDeadlineRule_SeedScenario4(t *testing.T) {
	days := 4.0
	f := features.TenderFeatures{PublicationToClosingDays: &days}
	flag := ShortDeadlineRule(&domain.Tender{ID: 7}, f, DefaultThresholds())
	require.NotNil(t, flag)
	assert.Equal(t, domain.SeverityMedium, flag.Severity)
}

// TestShortDeadlineRule_SeverityEscalatesWithDepth confirms a window
// deep inside the floor escalates past medium to high.
func TestShortDeadlineRule_SeverityEscalatesWithDepth(t *testing.T) {
	days := 1.0
	f := features.TenderFeatures{PublicationToClosingDays: &days}
	flag := ShortDeadlineRule(&domain.Tender{ID: 8}, f, DefaultThresholds())
	require.NotNil(t, flag)
	assert.Equal(t, domain.SeverityHigh, flag.Severity)
}

func TestAnalyzer_Analyze_Deterministic(t *testing.T) {
	a := NewAnalyzer(nil)
	tender := &domain.Tender{ID: 5}
	estimated := domain.NewDecimalFromMajor(1_000_000, 0)
	f := features.TenderFeatures{SingleBidder: true, BidderCount: 1, EstimatedValue: &estimated}

	first := a.Analyze(tender, f)
	second := a.Analyze(tender, f)
	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].FlagType, second[0].FlagType)
	assert.Equal(t, first[0].Score, second[0].Score)
	assert.NotEmpty(t, first[0].Explanation)
}

func TestCheckDataIntegrity(t *testing.T) {
	tender := &domain.Tender{
		Bids: []domain.TenderBid{{Winner: true}, {Winner: true}},
	}
	flag := CheckDataIntegrity(tender)
	require.NotNil(t, flag)
	assert.Equal(t, domain.FlagDataIntegrity, flag.FlagType)
	assert.Equal(t, domain.SeverityCritical, flag.Severity)
}
