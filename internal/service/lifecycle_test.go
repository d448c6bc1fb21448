package service

import (
	"context"
	"testing"
	"time"

	"github.com/bidwise/bidcore/internal/auction"
	"github.com/bidwise/bidcore/internal/events"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcileItem_SoldWithWinner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	item := env.seedItem(t, uuid.New(), 100, time.Now().Add(40*time.Millisecond))
	bidderA, bidderB := uuid.New(), uuid.New()

	first, err := env.svc.Bids.PlaceBid(ctx, item.ID, bidderA, decimal.NewFromInt(150))
	require.NoError(t, err)
	second, err := env.svc.Bids.PlaceBid(ctx, item.ID, bidderB, decimal.NewFromInt(200))
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)

	transitioned, err := env.svc.Lifecycle.ReconcileItem(ctx, item.ID)
	require.NoError(t, err)
	assert.True(t, transitioned)

	got, err := env.ledger.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, auction.ItemStatusSold, got.Status)

	winner, err := env.ledger.GetBid(ctx, second.Bid.ID)
	require.NoError(t, err)
	assert.Equal(t, auction.BidStatusWon, winner.Status)

	loser, err := env.ledger.GetBid(ctx, first.Bid.ID)
	require.NoError(t, err)
	assert.Equal(t, auction.BidStatusLost, loser.Status)

	evs := env.recorder.Events()
	require.NotEmpty(t, evs)
	ended, ok := evs[len(evs)-1].(events.AuctionEnded)
	require.True(t, ok)
	require.NotNil(t, ended.WinningBidID)
	assert.Equal(t, second.Bid.ID, *ended.WinningBidID)
}

func TestReconcileItem_NoBidsEndsWithoutSale(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	item := env.seedItem(t, uuid.New(), 100, time.Now().Add(-time.Minute))

	transitioned, err := env.svc.Lifecycle.ReconcileItem(ctx, item.ID)
	require.NoError(t, err)
	assert.True(t, transitioned)

	got, err := env.ledger.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, auction.ItemStatusEnded, got.Status)

	evs := env.recorder.Events()
	require.Len(t, evs, 1)
	ended, ok := evs[0].(events.AuctionEnded)
	require.True(t, ok)
	assert.Nil(t, ended.WinningBidID)
}

func TestReconcileItem_Idempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	item := env.seedItem(t, uuid.New(), 100, time.Now().Add(-time.Minute))

	first, err := env.svc.Lifecycle.ReconcileItem(ctx, item.ID)
	require.NoError(t, err)
	assert.True(t, first)

	before, err := env.ledger.GetItem(ctx, item.ID)
	require.NoError(t, err)

	second, err := env.svc.Lifecycle.ReconcileItem(ctx, item.ID)
	require.NoError(t, err)
	assert.False(t, second, "second reconciliation must be a no-op")

	after, err := env.ledger.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, before.Status, after.Status)
	assert.Len(t, env.recorder.Events(), 1, "no second AuctionEnded event")
}

func TestReconcileItem_NotYetDue(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	item := env.seedItem(t, uuid.New(), 100, time.Now().Add(time.Hour))

	transitioned, err := env.svc.Lifecycle.ReconcileItem(ctx, item.ID)
	require.NoError(t, err)
	assert.False(t, transitioned)

	got, err := env.ledger.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, auction.ItemStatusActive, got.Status)
}

func TestReconcileExpired_SweepsOnlyExpired(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	expiredA := env.seedItem(t, uuid.New(), 100, time.Now().Add(-time.Minute))
	expiredB := env.seedItem(t, uuid.New(), 100, time.Now().Add(-time.Second))
	running := env.seedItem(t, uuid.New(), 100, time.Now().Add(time.Hour))

	ids, err := env.svc.Lifecycle.ReconcileExpired(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{expiredA.ID, expiredB.ID}, ids)

	still, err := env.ledger.GetItem(ctx, running.ID)
	require.NoError(t, err)
	assert.Equal(t, auction.ItemStatusActive, still.Status)
}

func TestScenario_FullAuction(t *testing.T) {
	// Start 100. A bids 150: accepted. B bids 120: too low, minimum 151.
	// B bids 200: accepted, A outbid. Expiry: sold, B won, A lost.
	env := newTestEnv(t)
	ctx := context.Background()
	seller := uuid.New()
	item := env.seedItem(t, seller, 100, time.Now().Add(40*time.Millisecond))
	bidderA, bidderB := uuid.New(), uuid.New()

	bidA, err := env.svc.Bids.PlaceBid(ctx, item.ID, bidderA, decimal.NewFromInt(150))
	require.NoError(t, err)

	_, err = env.svc.Bids.PlaceBid(ctx, item.ID, bidderB, decimal.NewFromInt(120))
	var rej *auction.Rejection
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, auction.RejectBidTooLow, rej.Reason)
	assert.True(t, rej.Minimum.Equal(decimal.NewFromInt(151)))

	bidB, err := env.svc.Bids.PlaceBid(ctx, item.ID, bidderB, decimal.NewFromInt(200))
	require.NoError(t, err)

	mid, err := env.ledger.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.True(t, mid.CurrentBid.Equal(decimal.NewFromInt(200)))
	assert.Equal(t, 2, mid.TotalBids)

	time.Sleep(50 * time.Millisecond)

	transitioned, err := env.svc.Lifecycle.ReconcileItem(ctx, item.ID)
	require.NoError(t, err)
	require.True(t, transitioned)

	final, err := env.ledger.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, auction.ItemStatusSold, final.Status)

	won, err := env.ledger.GetBid(ctx, bidB.Bid.ID)
	require.NoError(t, err)
	assert.Equal(t, auction.BidStatusWon, won.Status)

	lost, err := env.ledger.GetBid(ctx, bidA.Bid.ID)
	require.NoError(t, err)
	assert.Equal(t, auction.BidStatusLost, lost.Status)
}
