// Package events carries the domain events the core emits after a
// committed transition. Delivery transport is an external concern; the
// publishers here are thin adapters over the broadcast and archival
// collaborators.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	NameBidPlaced    = "bid.placed"
	NameBidWithdrawn = "bid.withdrawn"
	NameAuctionEnded = "auction.ended"
)

// Event is a committed domain fact scoped to one item. For a given
// item, events are published in commit order.
type Event interface {
	Name() string
	Item() uuid.UUID
}

type BidPlaced struct {
	EventID  uuid.UUID       `json:"event_id"`
	ItemID   uuid.UUID       `json:"item_id"`
	BidID    uuid.UUID       `json:"bid_id"`
	BidderID uuid.UUID       `json:"bidder_id"`
	Amount   decimal.Decimal `json:"amount"`
	PlacedAt time.Time       `json:"placed_at"`
}

func (BidPlaced) Name() string      { return NameBidPlaced }
func (e BidPlaced) Item() uuid.UUID { return e.ItemID }

type BidWithdrawn struct {
	EventID    uuid.UUID       `json:"event_id"`
	ItemID     uuid.UUID       `json:"item_id"`
	BidID      uuid.UUID       `json:"bid_id"`
	CurrentBid decimal.Decimal `json:"current_bid"`
}

func (BidWithdrawn) Name() string      { return NameBidWithdrawn }
func (e BidWithdrawn) Item() uuid.UUID { return e.ItemID }

type AuctionEnded struct {
	EventID      uuid.UUID  `json:"event_id"`
	ItemID       uuid.UUID  `json:"item_id"`
	WinningBidID *uuid.UUID `json:"winning_bid_id,omitempty"`
	EndedAt      time.Time  `json:"ended_at"`
}

func (AuctionEnded) Name() string      { return NameAuctionEnded }
func (e AuctionEnded) Item() uuid.UUID { return e.ItemID }

type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// NopPublisher discards every event.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, event Event) error { return nil }
func (NopPublisher) Close() error { return nil }
