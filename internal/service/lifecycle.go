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
)

type LifecycleServicer interface {
	// ReconcileItem transitions one expired item to ended/sold. It is
	// idempotent: an already-ended item reports transitioned=false with
	// no state change.
	ReconcileItem(ctx context.Context, itemID uuid.UUID) (transitioned bool, err error)
	// ReconcileExpired sweeps every expired-but-still-active item and
	// returns the ids that transitioned.
	ReconcileExpired(ctx context.Context) ([]uuid.UUID, error)
	// RunSweeper reconciles on a fixed interval until ctx is cancelled.
	RunSweeper(ctx context.Context, interval time.Duration)
}

// errNoTransition signals the item was not due (still running) or
// already ended. Internal to this file; callers see transitioned=false.
var errNoTransition = errors.New("no lifecycle transition")

const sweepBatchSize = 100

// LifecycleService owns the active → ended → sold transition. The lazy
// read-path check and the periodic sweep both land in ReconcileItem so
// the two paths cannot diverge.
type LifecycleService struct {
	ledger    ledger.Ledger
	publisher events.Publisher
	seq       *itemSequencer
	log       *logger.Logger
}

func NewLifecycleService(led ledger.Ledger, pub events.Publisher, seq *itemSequencer, log *logger.Logger) (*LifecycleService, error) {
	return &LifecycleService{
		ledger:    led,
		publisher: pub,
		seq:       seq,
		log:       log,
	}, nil
}

func (s *LifecycleService) ReconcileItem(ctx context.Context, itemID uuid.UUID) (bool, error) {
	unlock := s.seq.lock(itemID)
	defer unlock()

	var event events.AuctionEnded
	err := s.ledger.WithItemLock(ctx, itemID, func(ctx context.Context, tx ledger.ItemTx) error {
		item := tx.Item()
		if item.Status != auction.ItemStatusActive {
			return errNoTransition
		}
		now := time.Now().UTC()
		if !item.HasEnded(now) {
			return errNoTransition
		}

		if err := tx.SetItemStatus(ctx, auction.ItemStatusEnded); err != nil {
			return err
		}

		event = events.AuctionEnded{
			EventID: uuid.New(),
			ItemID:  itemID,
			EndedAt: now,
		}

		winner, err := tx.ActiveBid(ctx)
		if err != nil {
			return err
		}
		if winner == nil {
			// Ended with no sale; bids stay untouched (there are none).
			return nil
		}

		if err := tx.SetBidStatus(ctx, winner.ID, auction.BidStatusWon); err != nil {
			return err
		}
		if err := tx.SetRemainingBidsLost(ctx, winner.ID); err != nil {
			return err
		}
		if err := tx.SetItemStatus(ctx, auction.ItemStatusSold); err != nil {
			return err
		}
		event.WinningBidID = &winner.ID
		return nil
	})
	if errors.Is(err, errNoTransition) {
		return false, nil
	}
	if err != nil {
		if errors.Is(err, ledger.ErrItemNotFound) {
			return false, ErrItemNotFound
		}
		return false, err
	}

	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log.Warnw("event publish failed", "event", event.Name(), "item_id", itemID, "error", err)
	}
	return true, nil
}

func (s *LifecycleService) ReconcileExpired(ctx context.Context) ([]uuid.UUID, error) {
	ids, err := s.ledger.ListExpiredActiveItems(ctx, time.Now().UTC(), sweepBatchSize)
	if err != nil {
		return nil, err
	}

	transitioned := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		// One broken item must not abort the rest of the sweep.
		done, err := s.ReconcileItem(ctx, id)
		if err != nil {
			s.log.Errorw("reconciliation failed", "item_id", id, "error", err)
			continue
		}
		if done {
			transitioned = append(transitioned, id)
		}
	}
	return transitioned, nil
}

func (s *LifecycleService) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.log.Infow("lifecycle sweeper started", "interval", interval)
	for {
		select {
		case <-ctx.Done():
			s.log.Infow("lifecycle sweeper stopped")
			return
		case <-ticker.C:
			if ids, err := s.ReconcileExpired(ctx); err != nil {
				s.log.Errorw("lifecycle sweep failed", "error", err)
			} else if len(ids) > 0 {
				s.log.Infow("lifecycle sweep ended auctions", "count", len(ids))
			}
		}
	}
}
