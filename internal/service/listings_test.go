package service

import (
	"context"
	"testing"
	"time"

	"github.com/bidwise/bidcore/internal/auction"
	"github.com/bidwise/bidcore/internal/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listingParams(sellerID uuid.UUID) ListingParams {
	return ListingParams{
		SellerID:      sellerID,
		Title:         "antique clock",
		Description:   "keeps perfect time",
		Category:      "antiques",
		Images:        []string{"clock-front.jpg"},
		StartingPrice: decimal.NewFromInt(100),
		EndTime:       time.Now().Add(24 * time.Hour),
	}
}

func TestCreateListing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seller := uuid.New()

	item, err := env.svc.Listings.CreateListing(ctx, listingParams(seller))
	require.NoError(t, err)
	assert.Equal(t, auction.ItemStatusActive, item.Status)
	assert.True(t, item.CurrentBid.Equal(item.StartingPrice))
	assert.Equal(t, 0, item.TotalBids)

	got, err := env.svc.Listings.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, seller, got.SellerID)
}

func TestCreateListing_EndTimeMustBeFuture(t *testing.T) {
	env := newTestEnv(t)
	params := listingParams(uuid.New())
	params.EndTime = time.Now().Add(-time.Hour)

	_, err := env.svc.Listings.CreateListing(context.Background(), params)
	var rej *auction.Rejection
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, auction.RejectInvalidEndTime, rej.Reason)
}

func TestCreateListing_NegativeStartingPrice(t *testing.T) {
	env := newTestEnv(t)
	params := listingParams(uuid.New())
	params.StartingPrice = decimal.NewFromInt(-5)

	_, err := env.svc.Listings.CreateListing(context.Background(), params)
	var rej *auction.Rejection
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, auction.RejectInvalidAmount, rej.Reason)
}

func TestDeleteListing_AllowedWhileUntouched(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seller := uuid.New()

	item, err := env.svc.Listings.CreateListing(ctx, listingParams(seller))
	require.NoError(t, err)

	require.NoError(t, env.svc.Listings.DeleteListing(ctx, item.ID, seller))

	_, err = env.svc.Listings.GetItem(ctx, item.ID)
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestDeleteListing_LockedOnceBidExists(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seller := uuid.New()

	item, err := env.svc.Listings.CreateListing(ctx, listingParams(seller))
	require.NoError(t, err)

	_, err = env.svc.Bids.PlaceBid(ctx, item.ID, uuid.New(), decimal.NewFromInt(150))
	require.NoError(t, err)

	err = env.svc.Listings.DeleteListing(ctx, item.ID, seller)
	var rej *auction.Rejection
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, auction.RejectItemLocked, rej.Reason)

	// Commercial history preserved.
	got, err := env.svc.Listings.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.TotalBids)
}

func TestDeleteListing_OnlySeller(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	item, err := env.svc.Listings.CreateListing(ctx, listingParams(uuid.New()))
	require.NoError(t, err)

	err = env.svc.Listings.DeleteListing(ctx, item.ID, uuid.New())
	var rej *auction.Rejection
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, auction.RejectUnauthorized, rej.Reason)
}

func TestUpdateListing_ResetsCurrentBidWithStartingPrice(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seller := uuid.New()

	item, err := env.svc.Listings.CreateListing(ctx, listingParams(seller))
	require.NoError(t, err)

	params := listingParams(seller)
	params.Title = "antique clock (restored)"
	params.StartingPrice = decimal.NewFromInt(250)

	updated, err := env.svc.Listings.UpdateListing(ctx, item.ID, seller, params)
	require.NoError(t, err)
	assert.Equal(t, "antique clock (restored)", updated.Title)
	assert.True(t, updated.StartingPrice.Equal(decimal.NewFromInt(250)))
	assert.True(t, updated.CurrentBid.Equal(decimal.NewFromInt(250)))
}

func TestUpdateListing_LockedAfterBid(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seller := uuid.New()

	item, err := env.svc.Listings.CreateListing(ctx, listingParams(seller))
	require.NoError(t, err)
	_, err = env.svc.Bids.PlaceBid(ctx, item.ID, uuid.New(), decimal.NewFromInt(150))
	require.NoError(t, err)

	_, err = env.svc.Listings.UpdateListing(ctx, item.ID, seller, listingParams(seller))
	var rej *auction.Rejection
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, auction.RejectItemLocked, rej.Reason)
}

func TestGetItem_LazyReconciliation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	item := env.seedItem(t, uuid.New(), 100, time.Now().Add(40*time.Millisecond))

	_, err := env.svc.Bids.PlaceBid(ctx, item.ID, uuid.New(), decimal.NewFromInt(150))
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)

	// Plain read after expiry reconciles through the same transition the
	// sweep uses.
	got, err := env.svc.Listings.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, auction.ItemStatusSold, got.Status)
}

func TestListItems_FilterAndSort(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seller := uuid.New()

	cheap := listingParams(seller)
	cheap.Title = "cheap teapot"
	cheap.StartingPrice = decimal.NewFromInt(10)
	mid := listingParams(seller)
	mid.Title = "mid table"
	mid.StartingPrice = decimal.NewFromInt(50)
	dear := listingParams(seller)
	dear.Title = "dear painting"
	dear.Category = "art"
	dear.StartingPrice = decimal.NewFromInt(500)

	for _, p := range []ListingParams{cheap, mid, dear} {
		_, err := env.svc.Listings.CreateListing(ctx, p)
		require.NoError(t, err)
	}

	min := decimal.NewFromInt(20)
	items, err := env.svc.Listings.ListItems(ctx, ledger.ItemFilter{
		MinPrice: &min,
		Sort:     ledger.SortPriceAsc,
	})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "mid table", items[0].Title)
	assert.Equal(t, "dear painting", items[1].Title)

	art, err := env.svc.Listings.ListItems(ctx, ledger.ItemFilter{Category: "art"})
	require.NoError(t, err)
	require.Len(t, art, 1)
	assert.Equal(t, "dear painting", art[0].Title)
}
