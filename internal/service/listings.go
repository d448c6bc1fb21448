package service

import (
	"context"
	"errors"
	"time"

	"github.com/bidwise/bidcore/internal/auction"
	"github.com/bidwise/bidcore/internal/ledger"
	"github.com/bidwise/bidcore/pkg/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ListingServicer interface {
	CreateListing(ctx context.Context, params ListingParams) (*auction.Item, error)
	UpdateListing(ctx context.Context, itemID, requesterID uuid.UUID, params ListingParams) (*auction.Item, error)
	DeleteListing(ctx context.Context, itemID, requesterID uuid.UUID) error
	GetItem(ctx context.Context, itemID uuid.UUID) (*auction.Item, error)
	ListItems(ctx context.Context, filter ledger.ItemFilter) ([]auction.Item, error)
}

type ListingParams struct {
	SellerID      uuid.UUID
	Title         string
	Description   string
	Category      string
	Images        []string
	StartingPrice decimal.Decimal
	EndTime       time.Time
}

// ListingService handles listing CRUD behind the mutation guard: a
// listing may be edited or deleted only by its seller, only while
// active, and only before anyone has bid. Reads reconcile expired
// items lazily through the lifecycle service.
type ListingService struct {
	ledger    ledger.Ledger
	lifecycle LifecycleServicer
	seq       *itemSequencer
	log       *logger.Logger
}

func NewListingService(led ledger.Ledger, lc LifecycleServicer, seq *itemSequencer, log *logger.Logger) (*ListingService, error) {
	return &ListingService{
		ledger:    led,
		lifecycle: lc,
		seq:       seq,
		log:       log,
	}, nil
}

func validateListingParams(params ListingParams, now time.Time) *auction.Rejection {
	if params.StartingPrice.IsNegative() {
		return auction.Reject(auction.RejectInvalidAmount, "starting price must not be negative")
	}
	if !params.EndTime.After(now) {
		return auction.Reject(auction.RejectInvalidEndTime, "end time must be in the future")
	}
	return nil
}

func (s *ListingService) CreateListing(ctx context.Context, params ListingParams) (*auction.Item, error) {
	now := time.Now().UTC()
	if rej := validateListingParams(params, now); rej != nil {
		return nil, rej
	}

	item := &auction.Item{
		ID:            uuid.New(),
		Title:         params.Title,
		Description:   params.Description,
		Category:      params.Category,
		Images:        params.Images,
		StartingPrice: params.StartingPrice,
		CurrentBid:    params.StartingPrice,
		SellerID:      params.SellerID,
		EndTime:       params.EndTime,
		Status:        auction.ItemStatusActive,
		TotalBids:     0,
	}
	if err := s.ledger.CreateItem(ctx, item); err != nil {
		s.log.Errorw("create listing failed", "seller_id", params.SellerID, "error", err)
		return nil, ErrServiceUnavailable
	}
	return item, nil
}

// guardMutation enforces the listing mutation guard against the locked
// snapshot.
func guardMutation(item *auction.Item, requesterID uuid.UUID) *auction.Rejection {
	if item.SellerID != requesterID {
		return auction.Reject(auction.RejectUnauthorized, "only the seller may modify this listing")
	}
	if !item.Mutable() {
		return auction.Reject(auction.RejectItemLocked, "listing has bids or has ended and can no longer be modified")
	}
	return nil
}

func (s *ListingService) UpdateListing(ctx context.Context, itemID, requesterID uuid.UUID, params ListingParams) (*auction.Item, error) {
	now := time.Now().UTC()
	if rej := validateListingParams(params, now); rej != nil {
		return nil, rej
	}

	unlock := s.seq.lock(itemID)
	defer unlock()

	var updated auction.Item
	err := s.ledger.WithItemLock(ctx, itemID, func(ctx context.Context, tx ledger.ItemTx) error {
		item := tx.Item()
		if rej := guardMutation(item, requesterID); rej != nil {
			return rej
		}

		next := *item
		next.Title = params.Title
		next.Description = params.Description
		next.Category = params.Category
		if len(params.Images) > 0 {
			next.Images = params.Images
		}
		next.StartingPrice = params.StartingPrice
		next.CurrentBid = params.StartingPrice
		next.EndTime = params.EndTime

		if err := tx.UpdateListing(ctx, &next); err != nil {
			return err
		}
		updated = next
		return nil
	})
	if err != nil {
		return nil, mapLedgerErr(err, s.log, itemID)
	}
	return &updated, nil
}

func (s *ListingService) DeleteListing(ctx context.Context, itemID, requesterID uuid.UUID) error {
	unlock := s.seq.lock(itemID)
	defer unlock()

	err := s.ledger.WithItemLock(ctx, itemID, func(ctx context.Context, tx ledger.ItemTx) error {
		if rej := guardMutation(tx.Item(), requesterID); rej != nil {
			return rej
		}
		return tx.DeleteItem(ctx)
	})
	return mapLedgerErr(err, s.log, itemID)
}

func (s *ListingService) GetItem(ctx context.Context, itemID uuid.UUID) (*auction.Item, error) {
	item, err := s.ledger.GetItem(ctx, itemID)
	if err != nil {
		return nil, mapLedgerErr(err, s.log, itemID)
	}

	// Expiry is checked lazily on read; the sweep uses the exact same
	// transition.
	if item.Status == auction.ItemStatusActive && item.HasEnded(time.Now().UTC()) {
		if _, err := s.lifecycle.ReconcileItem(ctx, itemID); err != nil {
			return nil, err
		}
		if item, err = s.ledger.GetItem(ctx, itemID); err != nil {
			return nil, mapLedgerErr(err, s.log, itemID)
		}
	}
	return item, nil
}

func (s *ListingService) ListItems(ctx context.Context, filter ledger.ItemFilter) ([]auction.Item, error) {
	return s.ledger.ListItems(ctx, filter)
}

func mapLedgerErr(err error, log *logger.Logger, itemID uuid.UUID) error {
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
		log.Errorw("ledger operation failed", "item_id", itemID, "error", err)
		return ErrServiceUnavailable
	}
}
