package auction

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type RejectReason string

const (
	RejectAuctionNotActive RejectReason = "AUCTION_NOT_ACTIVE"
	RejectAuctionExpired   RejectReason = "AUCTION_EXPIRED"
	RejectSelfBidForbidden RejectReason = "SELF_BID_FORBIDDEN"
	RejectBidTooLow        RejectReason = "BID_TOO_LOW"
	RejectInvalidAmount    RejectReason = "INVALID_AMOUNT"
	RejectItemLocked       RejectReason = "ITEM_LOCKED"
	RejectInvalidEndTime   RejectReason = "INVALID_END_TIME"
	RejectUnauthorized     RejectReason = "UNAUTHORIZED"
	RejectAuctionEnded     RejectReason = "AUCTION_ENDED"
)

// Rejection is an expected business outcome, not a fault. It travels as
// an error so callers can distinguish it from infrastructure failures
// with errors.As.
type Rejection struct {
	Reason  RejectReason
	Message string
	// Minimum is the smallest acceptable bid, set on BID_TOO_LOW.
	Minimum decimal.Decimal
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("%s: %s", r.Reason, r.Message)
}

func Reject(reason RejectReason, message string) *Rejection {
	return &Rejection{Reason: reason, Message: message}
}

// ValidateBid decides whether a proposed bid may proceed against the
// given item snapshot. It performs no mutation, so the coordinator can
// re-run it under the item lock without duplicating business rules.
// Checks run in a fixed order; the first failure wins.
func ValidateBid(item *Item, bidderID uuid.UUID, amount decimal.Decimal, increment decimal.Decimal, now time.Time) *Rejection {
	if item.Status != ItemStatusActive {
		return Reject(RejectAuctionNotActive, "this auction has ended")
	}
	if item.HasEnded(now) {
		return Reject(RejectAuctionExpired, "this auction has expired")
	}
	if bidderID == item.SellerID {
		return Reject(RejectSelfBidForbidden, "you cannot bid on your own item")
	}
	if amount.Cmp(item.CurrentBid) <= 0 {
		rej := Reject(RejectBidTooLow, "bid amount must be higher than current bid")
		rej.Minimum = item.NextMinimumBid(increment)
		return rej
	}
	if !amount.IsPositive() {
		return Reject(RejectInvalidAmount, "bid amount must be positive")
	}
	return nil
}
