package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/macedonia-transparency/procurement-pipeline/internal/domain"
)

func TestRewriteBidderID(t *testing.T) {
	tender := &domain.Tender{
		Bids: []domain.TenderBid{{BidderID: -1}, {BidderID: -2}},
		Lots: []domain.Lot{{Bids: []domain.TenderBid{{BidderID: -1}}}},
	}
	rewriteBidderID(tender, -1, 42)

	assert.Equal(t, int64(42), tender.Bids[0].BidderID)
	assert.Equal(t, int64(-2), tender.Bids[1].BidderID)
	assert.Equal(t, int64(42), tender.Lots[0].Bids[0].BidderID)
}

func TestTenderInvariantsCaughtBeforeUpsert(t *testing.T) {
	opening := time.Now()
	closing := opening.Add(-time.Hour)
	tender := &domain.Tender{
		TenderNumber: "01/2024",
		Year:         2024,
		OpeningDate:  &opening,
		ClosingDate:  &closing,
	}
	err := tender.ValidateInvariants()
	assert.ErrorIs(t, err, domain.ErrClosingBeforeOpening)
}
