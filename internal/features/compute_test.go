package features

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macedonia-transparency/procurement-pipeline/internal/domain"
)

func TestCompute_SingleBidder(t *testing.T) {
	estimated := domain.NewDecimalFromMajor(1_000_000, 0)
	tender := &domain.Tender{
		EstimatedValue: &estimated,
		Bids: []domain.TenderBid{
			{BidderID: 1, Amount: domain.NewDecimalFromMajor(950_000, 0), Winner: true},
		},
	}
	f := Compute(tender, Peer{}, "")
	assert.True(t, f.SingleBidder)
	assert.Equal(t, 1, f.BidderCount)
}

func TestCompute_PriceRatioAndPeerZScore(t *testing.T) {
	estimated := domain.NewDecimalFromMajor(100_000, 0)
	awarded := domain.NewDecimalFromMajor(200_000, 0)
	tender := &domain.Tender{EstimatedValue: &estimated, AwardedValue: &awarded}

	peer := Peer{CPVPeerAwardedValues: []float64{100_000, 105_000, 98_000, 102_000, 99_000}}
	f := Compute(tender, peer, "")

	require.NotNil(t, f.PriceRatio)
	assert.InDelta(t, 2.0, *f.PriceRatio, 0.001)
	require.NotNil(t, f.PeerZScore)
	assert.Greater(t, *f.PeerZScore, 2.0)
}

func TestCompute_TimingDays(t *testing.T) {
	pub := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	close := pub.Add(3 * 24 * time.Hour)
	tender := &domain.Tender{PublicationDate: &pub, ClosingDate: &close}

	f := Compute(tender, Peer{}, "")
	require.NotNil(t, f.PublicationToClosingDays)
	assert.InDelta(t, 3.0, *f.PublicationToClosingDays, 0.01)
}

func TestCompute_BidClusteringCV(t *testing.T) {
	tender := &domain.Tender{
		Bids: []domain.TenderBid{
			{BidderID: 1, Amount: domain.NewDecimalFromMajor(1_234_567, 0), Winner: true},
			{BidderID: 2, Amount: domain.NewDecimalFromMajor(1_234_800, 0)},
			{BidderID: 3, Amount: domain.NewDecimalFromMajor(1_234_300, 0)},
		},
	}
	f := Compute(tender, Peer{}, "")
	require.NotNil(t, f.BidCV)
	assert.Less(t, *f.BidCV, 0.01)
}

func TestCompute_BidClusteringCV_TooFewBids(t *testing.T) {
	tender := &domain.Tender{
		Bids: []domain.TenderBid{
			{BidderID: 1, Amount: domain.NewDecimalFromMajor(100_000, 0)},
			{BidderID: 2, Amount: domain.NewDecimalFromMajor(101_000, 0)},
		},
	}
	f := Compute(tender, Peer{}, "")
	assert.Nil(t, f.BidCV)
}

func TestCompute_RelationshipConcentration(t *testing.T) {
	tender := &domain.Tender{
		Bids: []domain.TenderBid{{BidderID: 7, Winner: true}},
	}
	peer := Peer{
		EntityPastWinnersByBidder: map[int64]int{7: 8},
		EntityPastAwardsTotal:     10,
	}
	f := Compute(tender, peer, "")
	require.NotNil(t, f.WinnerConcentration)
	assert.InDelta(t, 0.8, *f.WinnerConcentration, 0.001)
}

func TestEntityProfileManager_EvictsAtCapacity(t *testing.T) {
	m := NewEntityProfileManager(EntityProfileManagerOptions{MaxProfiles: 2})
	defer m.Stop()

	p1 := m.GetOrCreate(1)
	p1.Record(10, false)
	time.Sleep(time.Millisecond)
	p2 := m.GetOrCreate(2)
	p2.Record(20, false)
	time.Sleep(time.Millisecond)

	m.GetOrCreate(3)
	m.evictIfOverCap()

	assert.LessOrEqual(t, len(m.profiles), 2)
}
