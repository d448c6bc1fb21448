package auction

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type BidStatus string

const (
	// BidStatusActive marks the current highest, not-yet-superseded bid.
	// At most one bid per item holds it at any instant.
	BidStatusActive BidStatus = "active"
	BidStatusOutbid BidStatus = "outbid"
	BidStatusWon    BidStatus = "won"
	BidStatusLost   BidStatus = "lost"
)

// Bid status is stored, not recomputed: it changes only inside the same
// transaction that changes the item it belongs to.
type Bid struct {
	ID       uuid.UUID       `json:"id"`
	ItemID   uuid.UUID       `json:"item_id"`
	BidderID uuid.UUID       `json:"bidder_id"`
	Amount   decimal.Decimal `json:"amount"`
	PlacedAt time.Time       `json:"placed_at"`
	Status   BidStatus       `json:"status"`
}
