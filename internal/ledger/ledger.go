// Package ledger is the source of truth for item and bid state. All
// read-then-write transitions go through WithItemLock, which serializes
// mutations per item: at most one transition per item commits at a
// time, and each one observes the effects of all prior commits on that
// item. Different items never block each other.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/bidwise/bidcore/internal/auction"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrItemNotFound = errors.New("item not found")
	ErrBidNotFound  = errors.New("bid not found")
)

// SortOrder values accepted by ListItems.
const (
	SortPriceAsc   = "price_asc"
	SortPriceDesc  = "price_desc"
	SortNewest     = "newest"
	SortEndingSoon = "ending_soon"
)

type ItemFilter struct {
	Search   string
	Category string
	Status   auction.ItemStatus
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	Sort     string
	Limit    int
	Offset   int
}

type Ledger interface {
	CreateItem(ctx context.Context, item *auction.Item) error
	GetItem(ctx context.Context, id uuid.UUID) (*auction.Item, error)
	ListItems(ctx context.Context, filter ItemFilter) ([]auction.Item, error)

	GetBid(ctx context.Context, id uuid.UUID) (*auction.Bid, error)
	// ListBidsForItem returns the item's bids ordered by amount, highest first.
	ListBidsForItem(ctx context.Context, itemID uuid.UUID) ([]auction.Bid, error)
	// ListBidsForBidder returns a bidder's bids, newest first, optionally
	// filtered by stored status.
	ListBidsForBidder(ctx context.Context, bidderID uuid.UUID, status auction.BidStatus) ([]auction.Bid, error)

	// ListExpiredActiveItems returns ids of items still marked active whose
	// end time has passed, for the reconciliation sweep.
	ListExpiredActiveItems(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)

	// WithItemLock runs fn with the item exclusively held. Mutations made
	// through the ItemTx commit as one atomic unit when fn returns nil and
	// are discarded entirely when it returns an error.
	WithItemLock(ctx context.Context, itemID uuid.UUID, fn func(ctx context.Context, tx ItemTx) error) error

	Close()
}

// ItemTx exposes the locked item and the mutations permitted on it.
type ItemTx interface {
	// Item is the snapshot read under the lock. It reflects prior
	// commits, never concurrent uncommitted work.
	Item() *auction.Item

	GetBid(ctx context.Context, bidID uuid.UUID) (*auction.Bid, error)
	// ActiveBid returns the item's current leader, or nil when the item
	// has no active bid.
	ActiveBid(ctx context.Context) (*auction.Bid, error)
	// HighestBidExcluding returns the highest remaining bid once bidID is
	// ignored, or nil when none remain.
	HighestBidExcluding(ctx context.Context, bidID uuid.UUID) (*auction.Bid, error)

	InsertBid(ctx context.Context, bid *auction.Bid) error
	SetBidStatus(ctx context.Context, bidID uuid.UUID, status auction.BidStatus) error
	// DemoteActiveBid moves the item's active bid, if any, to outbid.
	DemoteActiveBid(ctx context.Context) error
	// SetRemainingBidsLost marks every bid except wonBidID as lost. Pass
	// uuid.Nil to mark all of them.
	SetRemainingBidsLost(ctx context.Context, wonBidID uuid.UUID) error
	DeleteBid(ctx context.Context, bidID uuid.UUID) error

	SetItemBidState(ctx context.Context, currentBid decimal.Decimal, totalBids int) error
	SetItemStatus(ctx context.Context, status auction.ItemStatus) error
	UpdateListing(ctx context.Context, item *auction.Item) error
	DeleteItem(ctx context.Context) error
}
