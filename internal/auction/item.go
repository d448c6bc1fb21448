package auction

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ItemStatus string

const (
	ItemStatusActive ItemStatus = "active"
	ItemStatusEnded  ItemStatus = "ended"
	ItemStatusSold   ItemStatus = "sold"
)

// Item is an auction listing. CurrentBid starts at StartingPrice and is
// monotonically non-decreasing while the auction is active.
type Item struct {
	ID            uuid.UUID       `json:"id"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	Category      string          `json:"category"`
	Images        []string        `json:"images"`
	StartingPrice decimal.Decimal `json:"starting_price"`
	CurrentBid    decimal.Decimal `json:"current_bid"`
	SellerID      uuid.UUID       `json:"seller_id"`
	EndTime       time.Time       `json:"end_time"`
	Status        ItemStatus      `json:"status"`
	TotalBids     int             `json:"total_bids"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// HasEnded reports whether the item's end time has passed. The end time
// is authoritative over a possibly stale Status field.
func (i *Item) HasEnded(now time.Time) bool {
	return !now.Before(i.EndTime)
}

// NextMinimumBid is the smallest amount the next bid must reach.
func (i *Item) NextMinimumBid(increment decimal.Decimal) decimal.Decimal {
	return i.CurrentBid.Add(increment)
}

// Mutable reports whether the listing may still be edited or deleted:
// seller-owned checks aside, only an active listing nobody has bid on.
func (i *Item) Mutable() bool {
	return i.Status == ItemStatusActive && i.TotalBids == 0
}
