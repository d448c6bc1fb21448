package service

import (
	"sync"

	"github.com/bidwise/bidcore/internal/events"
	"github.com/bidwise/bidcore/internal/ledger"
	"github.com/bidwise/bidcore/pkg/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Services struct {
	Bids      BidServicer
	Listings  ListingServicer
	Lifecycle LifecycleServicer
}

func NewServices(led ledger.Ledger, pub events.Publisher, increment decimal.Decimal, log *logger.Logger) (*Services, error) {
	seq := newItemSequencer()

	lifecycle, err := NewLifecycleService(led, pub, seq, log)
	if err != nil {
		return nil, err
	}
	bids, err := NewBidService(led, pub, increment, seq, log)
	if err != nil {
		return nil, err
	}
	listings, err := NewListingService(led, lifecycle, seq, log)
	if err != nil {
		return nil, err
	}

	return &Services{
		Bids:      bids,
		Listings:  listings,
		Lifecycle: lifecycle,
	}, nil
}

// itemSequencer hands out one mutex per item id. Holding it across the
// commit AND the event publication keeps the emitted stream for an item
// in commit order; the ledger's own lock alone only orders the commits.
type itemSequencer struct {
	locks sync.Map // uuid.UUID -> *sync.Mutex
}

func newItemSequencer() *itemSequencer {
	return &itemSequencer{}
}

func (s *itemSequencer) lock(itemID uuid.UUID) func() {
	l, _ := s.locks.LoadOrStore(itemID, &sync.Mutex{})
	mu := l.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
