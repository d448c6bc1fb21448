package service

import (
	"context"
	"errors"
	"time"

	"github.com/bidwise/bidcore/internal/auction"
	"github.com/bidwise/bidcore/internal/events"
	"github.com/bidwise/bidcore/internal/ledger"
	"github.com/bidwise/bidcore/pkg/logger"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"
)

type BidServicer interface {
	PlaceBid(ctx context.Context, itemID, bidderID uuid.UUID, amount decimal.Decimal) (*PlaceBidResult, error)
	WithdrawBid(ctx context.Context, bidID, requesterID uuid.UUID) error
	GetItemBids(ctx context.Context, itemID uuid.UUID) ([]auction.Bid, error)
	GetBidderBids(ctx context.Context, bidderID uuid.UUID, status auction.BidStatus) ([]auction.Bid, error)
}

type PlaceBidResult struct {
	Bid            auction.Bid
	NextMinimumBid decimal.Decimal
}

// BidService is the transaction coordinator: it commits accepted bids
// and withdrawals atomically against the ledger and emits the matching
// event afterwards. Business rules themselves live in auction.ValidateBid,
// re-run here against the locked snapshot.
type BidService struct {
	ledger    ledger.Ledger
	publisher events.Publisher
	increment decimal.Decimal
	seq       *itemSequencer
	log       *logger.Logger
}

const (
	commitAttempts = 3
	commitBackoff  = 50 * time.Millisecond
)

func NewBidService(led ledger.Ledger, pub events.Publisher, increment decimal.Decimal, seq *itemSequencer, log *logger.Logger) (*BidService, error) {
	if !increment.IsPositive() {
		return nil, errors.New("bid increment must be positive")
	}
	return &BidService{
		ledger:    led,
		publisher: pub,
		increment: increment,
		seq:       seq,
		log:       log,
	}, nil
}

// commit runs fn under the item lock with a bounded retry on transient
// failures. Business rejections and not-found pass through untouched;
// anything else exhausts the retries and collapses to
// ErrServiceUnavailable.
func (s *BidService) commit(ctx context.Context, itemID uuid.UUID, fn func(ctx context.Context, tx ledger.ItemTx) error) error {
	backoff := retry.WithMaxRetries(commitAttempts-1, retry.NewConstant(commitBackoff))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := s.ledger.WithItemLock(ctx, itemID, fn)
		if err == nil {
			return nil
		}
		var rej *auction.Rejection
		if errors.As(err, &rej) {
			return err
		}
		if errors.Is(err, ledger.ErrItemNotFound) || errors.Is(err, ledger.ErrBidNotFound) {
			return err
		}
		return retry.RetryableError(err)
	})
	if err == nil {
		return nil
	}

	var rej *auction.Rejection
	switch {
	case errors.As(err, &rej):
		return rej
	case errors.Is(err, ledger.ErrItemNotFound):
		return ErrItemNotFound
	case errors.Is(err, ledger.ErrBidNotFound):
		return ErrBidNotFound
	default:
		s.log.Errorw("commit failed after retries", "item_id", itemID, "error", err)
		return ErrServiceUnavailable
	}
}

func (s *BidService) publish(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		// The state change is committed; a broken broadcast channel must
		// not undo it or fail the request.
		s.log.Warnw("event publish failed", "event", event.Name(), "item_id", event.Item(), "error", err)
	}
}

func (s *BidService) PlaceBid(ctx context.Context, itemID, bidderID uuid.UUID, amount decimal.Decimal) (*PlaceBidResult, error) {
	unlock := s.seq.lock(itemID)
	defer unlock()

	var (
		result PlaceBidResult
		event  events.BidPlaced
	)
	err := s.commit(ctx, itemID, func(ctx context.Context, tx ledger.ItemTx) error {
		item := tx.Item()
		now := time.Now().UTC()

		if rej := auction.ValidateBid(item, bidderID, amount, s.increment, now); rej != nil {
			return rej
		}

		if err := tx.DemoteActiveBid(ctx); err != nil {
			return err
		}

		bid := &auction.Bid{
			ID:       uuid.New(),
			ItemID:   itemID,
			BidderID: bidderID,
			Amount:   amount,
			PlacedAt: now,
			Status:   auction.BidStatusActive,
		}
		if err := tx.InsertBid(ctx, bid); err != nil {
			return err
		}
		if err := tx.SetItemBidState(ctx, amount, item.TotalBids+1); err != nil {
			return err
		}

		result = PlaceBidResult{
			Bid:            *bid,
			NextMinimumBid: amount.Add(s.increment),
		}
		event = events.BidPlaced{
			EventID:  uuid.New(),
			ItemID:   itemID,
			BidID:    bid.ID,
			BidderID: bidderID,
			Amount:   amount,
			PlacedAt: now,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, event)
	return &result, nil
}

func (s *BidService) WithdrawBid(ctx context.Context, bidID, requesterID uuid.UUID) error {
	// Unlocked read just to find the item the bid belongs to; everything
	// that matters is re-read under the lock.
	ref, err := s.ledger.GetBid(ctx, bidID)
	if err != nil {
		if errors.Is(err, ledger.ErrBidNotFound) {
			return ErrBidNotFound
		}
		return err
	}

	unlock := s.seq.lock(ref.ItemID)
	defer unlock()

	var event events.BidWithdrawn
	err = s.commit(ctx, ref.ItemID, func(ctx context.Context, tx ledger.ItemTx) error {
		item := tx.Item()
		now := time.Now().UTC()

		bid, err := tx.GetBid(ctx, bidID)
		if err != nil {
			return err
		}
		if bid.BidderID != requesterID {
			return auction.Reject(auction.RejectUnauthorized, "you do not own this bid")
		}
		if item.HasEnded(now) {
			return auction.Reject(auction.RejectAuctionEnded, "cannot withdraw a bid after the auction has ended")
		}

		wasLeader := bid.Status == auction.BidStatusActive

		var next *auction.Bid
		if wasLeader {
			if next, err = tx.HighestBidExcluding(ctx, bidID); err != nil {
				return err
			}
		}

		// Delete before promoting, so the one-active-bid-per-item
		// constraint never sees two leaders.
		if err := tx.DeleteBid(ctx, bidID); err != nil {
			return err
		}

		newCurrent := item.CurrentBid
		if wasLeader {
			if next != nil {
				if err := tx.SetBidStatus(ctx, next.ID, auction.BidStatusActive); err != nil {
					return err
				}
				newCurrent = next.Amount
			} else {
				newCurrent = item.StartingPrice
			}
		}
		if err := tx.SetItemBidState(ctx, newCurrent, item.TotalBids-1); err != nil {
			return err
		}

		event = events.BidWithdrawn{
			EventID:    uuid.New(),
			ItemID:     item.ID,
			BidID:      bidID,
			CurrentBid: newCurrent,
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.publish(ctx, event)
	return nil
}

func (s *BidService) GetItemBids(ctx context.Context, itemID uuid.UUID) ([]auction.Bid, error) {
	if _, err := s.ledger.GetItem(ctx, itemID); err != nil {
		if errors.Is(err, ledger.ErrItemNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}
	return s.ledger.ListBidsForItem(ctx, itemID)
}

func (s *BidService) GetBidderBids(ctx context.Context, bidderID uuid.UUID, status auction.BidStatus) ([]auction.Bid, error) {
	return s.ledger.ListBidsForBidder(ctx, bidderID, status)
}
