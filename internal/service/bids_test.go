package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bidwise/bidcore/internal/auction"
	"github.com/bidwise/bidcore/internal/events"
	"github.com/bidwise/bidcore/internal/ledger"
	"github.com/bidwise/bidcore/pkg/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	svc      *Services
	ledger   *ledger.MemoryLedger
	recorder *events.Recorder
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	led := ledger.NewMemoryLedger()
	rec := events.NewRecorder()
	svc, err := NewServices(led, rec, decimal.NewFromInt(1), logger.NewNop())
	require.NoError(t, err)
	return &testEnv{svc: svc, ledger: led, recorder: rec}
}

func (e *testEnv) seedItem(t *testing.T, sellerID uuid.UUID, startingPrice int64, endTime time.Time) *auction.Item {
	t.Helper()
	price := decimal.NewFromInt(startingPrice)
	item := &auction.Item{
		ID:            uuid.New(),
		Title:         "vintage camera",
		Category:      "collectibles",
		StartingPrice: price,
		CurrentBid:    price,
		SellerID:      sellerID,
		EndTime:       endTime,
		Status:        auction.ItemStatusActive,
	}
	require.NoError(t, e.ledger.CreateItem(context.Background(), item))
	return item
}

func TestPlaceBid_Accepted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	item := env.seedItem(t, uuid.New(), 100, time.Now().Add(time.Hour))
	bidder := uuid.New()

	result, err := env.svc.Bids.PlaceBid(ctx, item.ID, bidder, decimal.NewFromInt(150))
	require.NoError(t, err)
	assert.True(t, result.Bid.Amount.Equal(decimal.NewFromInt(150)))
	assert.Equal(t, auction.BidStatusActive, result.Bid.Status)
	assert.True(t, result.NextMinimumBid.Equal(decimal.NewFromInt(151)))

	got, err := env.ledger.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.True(t, got.CurrentBid.Equal(decimal.NewFromInt(150)))
	assert.Equal(t, 1, got.TotalBids)

	evs := env.recorder.Events()
	require.Len(t, evs, 1)
	placed, ok := evs[0].(events.BidPlaced)
	require.True(t, ok)
	assert.Equal(t, result.Bid.ID, placed.BidID)
	assert.Equal(t, bidder, placed.BidderID)
}

func TestPlaceBid_TooLowReportsMinimum(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	item := env.seedItem(t, uuid.New(), 100, time.Now().Add(time.Hour))

	_, err := env.svc.Bids.PlaceBid(ctx, item.ID, uuid.New(), decimal.NewFromInt(150))
	require.NoError(t, err)

	_, err = env.svc.Bids.PlaceBid(ctx, item.ID, uuid.New(), decimal.NewFromInt(120))
	var rej *auction.Rejection
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, auction.RejectBidTooLow, rej.Reason)
	assert.True(t, rej.Minimum.Equal(decimal.NewFromInt(151)))

	// Nothing changed; no second event.
	got, err := env.ledger.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.TotalBids)
	assert.Len(t, env.recorder.Events(), 1)
}

func TestPlaceBid_SupersedesPriorLeader(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	item := env.seedItem(t, uuid.New(), 100, time.Now().Add(time.Hour))
	bidderA, bidderB := uuid.New(), uuid.New()

	first, err := env.svc.Bids.PlaceBid(ctx, item.ID, bidderA, decimal.NewFromInt(150))
	require.NoError(t, err)
	second, err := env.svc.Bids.PlaceBid(ctx, item.ID, bidderB, decimal.NewFromInt(200))
	require.NoError(t, err)

	prior, err := env.ledger.GetBid(ctx, first.Bid.ID)
	require.NoError(t, err)
	assert.Equal(t, auction.BidStatusOutbid, prior.Status)

	leader, err := env.ledger.GetBid(ctx, second.Bid.ID)
	require.NoError(t, err)
	assert.Equal(t, auction.BidStatusActive, leader.Status)

	got, err := env.ledger.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.True(t, got.CurrentBid.Equal(decimal.NewFromInt(200)))
	assert.Equal(t, 2, got.TotalBids)
}

func TestPlaceBid_SelfBidRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seller := uuid.New()
	item := env.seedItem(t, seller, 100, time.Now().Add(time.Hour))

	_, err := env.svc.Bids.PlaceBid(ctx, item.ID, seller, decimal.NewFromInt(10_000))
	var rej *auction.Rejection
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, auction.RejectSelfBidForbidden, rej.Reason)
}

func TestPlaceBid_ExpiredAuctionRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	item := env.seedItem(t, uuid.New(), 100, time.Now().Add(-time.Minute))

	_, err := env.svc.Bids.PlaceBid(ctx, item.ID, uuid.New(), decimal.NewFromInt(150))
	var rej *auction.Rejection
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, auction.RejectAuctionExpired, rej.Reason)
}

func TestPlaceBid_UnknownItem(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Bids.PlaceBid(context.Background(), uuid.New(), uuid.New(), decimal.NewFromInt(1))
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestPlaceBid_ConcurrentSameAmount(t *testing.T) {
	// Two bids of 500 against current 400 submitted at once: exactly one
	// commits, the other sees the updated baseline and fails BID_TOO_LOW.
	env := newTestEnv(t)
	ctx := context.Background()
	item := env.seedItem(t, uuid.New(), 400, time.Now().Add(time.Hour))

	const attempts = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
		tooLow   int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.svc.Bids.PlaceBid(ctx, item.ID, uuid.New(), decimal.NewFromInt(500))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				accepted++
				return
			}
			var rej *auction.Rejection
			if assert.ErrorAs(t, err, &rej) {
				assert.Equal(t, auction.RejectBidTooLow, rej.Reason)
				tooLow++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, accepted)
	assert.Equal(t, attempts-1, tooLow)

	got, err := env.ledger.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.True(t, got.CurrentBid.Equal(decimal.NewFromInt(500)))
	assert.Equal(t, 1, got.TotalBids)
	assert.Len(t, env.recorder.Events(), 1)
}

func TestPlaceBid_ConcurrentEscalation_OneLeaderSettles(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	item := env.seedItem(t, uuid.New(), 10, time.Now().Add(time.Hour))

	var wg sync.WaitGroup
	for i := 1; i <= 20; i++ {
		wg.Add(1)
		go func(amount int64) {
			defer wg.Done()
			// Rejections are expected; only the invariant matters.
			_, _ = env.svc.Bids.PlaceBid(ctx, item.ID, uuid.New(), decimal.NewFromInt(amount*10))
		}(int64(i))
	}
	wg.Wait()

	bids, err := env.svc.Bids.GetItemBids(ctx, item.ID)
	require.NoError(t, err)
	require.NotEmpty(t, bids)

	got, err := env.ledger.GetItem(ctx, item.ID)
	require.NoError(t, err)

	var activeCount int
	for _, b := range bids {
		if b.Status == auction.BidStatusActive {
			activeCount++
			assert.True(t, got.CurrentBid.Equal(b.Amount),
				"item current bid %s must equal the active bid amount %s", got.CurrentBid, b.Amount)
		}
	}
	assert.Equal(t, 1, activeCount, "exactly one bid may be active at a settled instant")
	assert.Equal(t, len(bids), got.TotalBids)
}

func TestGetItemBids_OrderedByAmountDesc(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	item := env.seedItem(t, uuid.New(), 10, time.Now().Add(time.Hour))

	for _, amount := range []int64{20, 35, 50} {
		_, err := env.svc.Bids.PlaceBid(ctx, item.ID, uuid.New(), decimal.NewFromInt(amount))
		require.NoError(t, err)
	}

	bids, err := env.svc.Bids.GetItemBids(ctx, item.ID)
	require.NoError(t, err)
	require.Len(t, bids, 3)
	assert.True(t, bids[0].Amount.Equal(decimal.NewFromInt(50)))
	assert.True(t, bids[1].Amount.Equal(decimal.NewFromInt(35)))
	assert.True(t, bids[2].Amount.Equal(decimal.NewFromInt(20)))
}

func TestWithdrawBid_PromotesNextHighest(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	item := env.seedItem(t, uuid.New(), 100, time.Now().Add(time.Hour))
	bidderA, bidderB := uuid.New(), uuid.New()

	first, err := env.svc.Bids.PlaceBid(ctx, item.ID, bidderA, decimal.NewFromInt(150))
	require.NoError(t, err)
	second, err := env.svc.Bids.PlaceBid(ctx, item.ID, bidderB, decimal.NewFromInt(200))
	require.NoError(t, err)

	require.NoError(t, env.svc.Bids.WithdrawBid(ctx, second.Bid.ID, bidderB))

	got, err := env.ledger.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.True(t, got.CurrentBid.Equal(decimal.NewFromInt(150)))
	assert.Equal(t, 1, got.TotalBids)

	promoted, err := env.ledger.GetBid(ctx, first.Bid.ID)
	require.NoError(t, err)
	assert.Equal(t, auction.BidStatusActive, promoted.Status)

	_, err = env.ledger.GetBid(ctx, second.Bid.ID)
	assert.ErrorIs(t, err, ledger.ErrBidNotFound)
}

func TestWithdrawBid_LastBidResetsToStartingPrice(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	item := env.seedItem(t, uuid.New(), 100, time.Now().Add(time.Hour))
	bidder := uuid.New()

	placed, err := env.svc.Bids.PlaceBid(ctx, item.ID, bidder, decimal.NewFromInt(150))
	require.NoError(t, err)
	require.NoError(t, env.svc.Bids.WithdrawBid(ctx, placed.Bid.ID, bidder))

	got, err := env.ledger.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.True(t, got.CurrentBid.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, 0, got.TotalBids)
}

func TestWithdrawBid_NonActiveBidLeavesLeaderAlone(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	item := env.seedItem(t, uuid.New(), 100, time.Now().Add(time.Hour))
	bidderA, bidderB := uuid.New(), uuid.New()

	first, err := env.svc.Bids.PlaceBid(ctx, item.ID, bidderA, decimal.NewFromInt(150))
	require.NoError(t, err)
	_, err = env.svc.Bids.PlaceBid(ctx, item.ID, bidderB, decimal.NewFromInt(200))
	require.NoError(t, err)

	require.NoError(t, env.svc.Bids.WithdrawBid(ctx, first.Bid.ID, bidderA))

	got, err := env.ledger.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.True(t, got.CurrentBid.Equal(decimal.NewFromInt(200)))
	assert.Equal(t, 1, got.TotalBids)
}

func TestWithdrawBid_OnlyOwnerMay(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	item := env.seedItem(t, uuid.New(), 100, time.Now().Add(time.Hour))

	placed, err := env.svc.Bids.PlaceBid(ctx, item.ID, uuid.New(), decimal.NewFromInt(150))
	require.NoError(t, err)

	err = env.svc.Bids.WithdrawBid(ctx, placed.Bid.ID, uuid.New())
	var rej *auction.Rejection
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, auction.RejectUnauthorized, rej.Reason)
}

func TestWithdrawBid_RejectedAfterAuctionEnd(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	item := env.seedItem(t, uuid.New(), 100, time.Now().Add(50*time.Millisecond))
	bidder := uuid.New()

	placed, err := env.svc.Bids.PlaceBid(ctx, item.ID, bidder, decimal.NewFromInt(150))
	require.NoError(t, err)

	time.Sleep(60 * time.Millisecond)

	err = env.svc.Bids.WithdrawBid(ctx, placed.Bid.ID, bidder)
	var rej *auction.Rejection
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, auction.RejectAuctionEnded, rej.Reason)
}

func TestGetBidderBids_FiltersByStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	item := env.seedItem(t, uuid.New(), 100, time.Now().Add(time.Hour))
	bidder := uuid.New()

	_, err := env.svc.Bids.PlaceBid(ctx, item.ID, bidder, decimal.NewFromInt(150))
	require.NoError(t, err)
	_, err = env.svc.Bids.PlaceBid(ctx, item.ID, uuid.New(), decimal.NewFromInt(200))
	require.NoError(t, err)
	_, err = env.svc.Bids.PlaceBid(ctx, item.ID, bidder, decimal.NewFromInt(250))
	require.NoError(t, err)

	active, err := env.svc.Bids.GetBidderBids(ctx, bidder, auction.BidStatusActive)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.True(t, active[0].Amount.Equal(decimal.NewFromInt(250)))

	outbid, err := env.svc.Bids.GetBidderBids(ctx, bidder, auction.BidStatusOutbid)
	require.NoError(t, err)
	require.Len(t, outbid, 1)
	assert.True(t, outbid[0].Amount.Equal(decimal.NewFromInt(150)))

	all, err := env.svc.Bids.GetBidderBids(ctx, bidder, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
