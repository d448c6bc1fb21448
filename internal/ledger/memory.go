package ledger

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bidwise/bidcore/internal/auction"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MemoryLedger keeps the whole ledger in process memory. It backs the
// unit tests and single-process deployments, and gives the same
// per-item serialization guarantee as the Postgres ledger through a
// keyed mutex: one transition per item at a time, items independent.
type MemoryLedger struct {
	mu    sync.RWMutex
	items map[uuid.UUID]*auction.Item
	bids  map[uuid.UUID]*auction.Bid
	locks sync.Map // itemID -> *sync.Mutex
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		items: make(map[uuid.UUID]*auction.Item),
		bids:  make(map[uuid.UUID]*auction.Bid),
	}
}

func (m *MemoryLedger) itemLock(id uuid.UUID) *sync.Mutex {
	l, _ := m.locks.LoadOrStore(id, &sync.Mutex{})
	return l.(*sync.Mutex)
}

func copyItem(i *auction.Item) *auction.Item {
	c := *i
	c.Images = append([]string(nil), i.Images...)
	return &c
}

func copyBid(b *auction.Bid) *auction.Bid {
	c := *b
	return &c
}

func (m *MemoryLedger) CreateItem(ctx context.Context, item *auction.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now
	m.items[item.ID] = copyItem(item)
	return nil
}

func (m *MemoryLedger) GetItem(ctx context.Context, id uuid.UUID) (*auction.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	item, ok := m.items[id]
	if !ok {
		return nil, ErrItemNotFound
	}
	return copyItem(item), nil
}

func (m *MemoryLedger) ListItems(ctx context.Context, filter ItemFilter) ([]auction.Item, error) {
	m.mu.RLock()
	matched := make([]auction.Item, 0)
	for _, item := range m.items {
		if !matchesFilter(item, filter) {
			continue
		}
		matched = append(matched, *copyItem(item))
	}
	m.mu.RUnlock()

	sortItems(matched, filter.Sort)

	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return []auction.Item{}, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

func matchesFilter(item *auction.Item, filter ItemFilter) bool {
	if filter.Search != "" {
		needle := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(item.Title), needle) &&
			!strings.Contains(strings.ToLower(item.Description), needle) {
			return false
		}
	}
	if filter.Category != "" && item.Category != filter.Category {
		return false
	}
	if filter.Status != "" && item.Status != filter.Status {
		return false
	}
	if filter.MinPrice != nil && item.CurrentBid.Cmp(*filter.MinPrice) < 0 {
		return false
	}
	if filter.MaxPrice != nil && item.CurrentBid.Cmp(*filter.MaxPrice) > 0 {
		return false
	}
	return true
}

func sortItems(items []auction.Item, order string) {
	switch order {
	case SortPriceAsc:
		sort.Slice(items, func(i, j int) bool { return items[i].CurrentBid.Cmp(items[j].CurrentBid) < 0 })
	case SortPriceDesc:
		sort.Slice(items, func(i, j int) bool { return items[i].CurrentBid.Cmp(items[j].CurrentBid) > 0 })
	case SortEndingSoon:
		sort.Slice(items, func(i, j int) bool { return items[i].EndTime.Before(items[j].EndTime) })
	default: // newest
		sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	}
}

func (m *MemoryLedger) GetBid(ctx context.Context, id uuid.UUID) (*auction.Bid, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	bid, ok := m.bids[id]
	if !ok {
		return nil, ErrBidNotFound
	}
	return copyBid(bid), nil
}

func (m *MemoryLedger) ListBidsForItem(ctx context.Context, itemID uuid.UUID) ([]auction.Bid, error) {
	m.mu.RLock()
	out := make([]auction.Bid, 0)
	for _, bid := range m.bids {
		if bid.ItemID == itemID {
			out = append(out, *copyBid(bid))
		}
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Amount.Cmp(out[j].Amount) > 0 })
	return out, nil
}

func (m *MemoryLedger) ListBidsForBidder(ctx context.Context, bidderID uuid.UUID, status auction.BidStatus) ([]auction.Bid, error) {
	m.mu.RLock()
	out := make([]auction.Bid, 0)
	for _, bid := range m.bids {
		if bid.BidderID != bidderID {
			continue
		}
		if status != "" && bid.Status != status {
			continue
		}
		out = append(out, *copyBid(bid))
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].PlacedAt.After(out[j].PlacedAt) })
	return out, nil
}

func (m *MemoryLedger) ListExpiredActiveItems(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]uuid.UUID, 0)
	for id, item := range m.items {
		if item.Status == auction.ItemStatusActive && item.HasEnded(now) {
			out = append(out, id)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (m *MemoryLedger) WithItemLock(ctx context.Context, itemID uuid.UUID, fn func(ctx context.Context, tx ItemTx) error) error {
	lock := m.itemLock(itemID)
	lock.Lock()
	defer lock.Unlock()

	m.mu.RLock()
	item, ok := m.items[itemID]
	if !ok {
		m.mu.RUnlock()
		return ErrItemNotFound
	}
	tx := &memoryTx{
		ledger: m,
		item:   copyItem(item),
		bids:   make(map[uuid.UUID]*auction.Bid),
	}
	for id, bid := range m.bids {
		if bid.ItemID == itemID {
			tx.bids[id] = copyBid(bid)
		}
	}
	m.mu.RUnlock()

	if err := fn(ctx, tx); err != nil {
		// Discard staged changes entirely.
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if tx.itemDeleted {
		delete(m.items, itemID)
		for id, bid := range m.bids {
			if bid.ItemID == itemID {
				delete(m.bids, id)
			}
		}
		return nil
	}
	tx.item.UpdatedAt = time.Now().UTC()
	m.items[itemID] = tx.item
	for _, id := range tx.deleted {
		delete(m.bids, id)
	}
	for id, bid := range tx.bids {
		m.bids[id] = bid
	}
	return nil
}

func (m *MemoryLedger) Close() {}

// memoryTx stages all mutations on copies; WithItemLock swaps them in
// only when fn succeeds.
type memoryTx struct {
	ledger      *MemoryLedger
	item        *auction.Item
	bids        map[uuid.UUID]*auction.Bid
	deleted     []uuid.UUID
	itemDeleted bool
}

func (t *memoryTx) Item() *auction.Item { return t.item }

func (t *memoryTx) GetBid(ctx context.Context, bidID uuid.UUID) (*auction.Bid, error) {
	bid, ok := t.bids[bidID]
	if !ok {
		return nil, ErrBidNotFound
	}
	return copyBid(bid), nil
}

func (t *memoryTx) ActiveBid(ctx context.Context) (*auction.Bid, error) {
	for _, bid := range t.bids {
		if bid.Status == auction.BidStatusActive {
			return copyBid(bid), nil
		}
	}
	return nil, nil
}

func (t *memoryTx) HighestBidExcluding(ctx context.Context, bidID uuid.UUID) (*auction.Bid, error) {
	var highest *auction.Bid
	for id, bid := range t.bids {
		if id == bidID {
			continue
		}
		if highest == nil || bid.Amount.Cmp(highest.Amount) > 0 {
			highest = bid
		}
	}
	if highest == nil {
		return nil, nil
	}
	return copyBid(highest), nil
}

func (t *memoryTx) InsertBid(ctx context.Context, bid *auction.Bid) error {
	t.bids[bid.ID] = copyBid(bid)
	return nil
}

func (t *memoryTx) SetBidStatus(ctx context.Context, bidID uuid.UUID, status auction.BidStatus) error {
	bid, ok := t.bids[bidID]
	if !ok {
		return ErrBidNotFound
	}
	bid.Status = status
	return nil
}

func (t *memoryTx) DemoteActiveBid(ctx context.Context) error {
	for _, bid := range t.bids {
		if bid.Status == auction.BidStatusActive {
			bid.Status = auction.BidStatusOutbid
		}
	}
	return nil
}

func (t *memoryTx) SetRemainingBidsLost(ctx context.Context, wonBidID uuid.UUID) error {
	for id, bid := range t.bids {
		if id != wonBidID {
			bid.Status = auction.BidStatusLost
		}
	}
	return nil
}

func (t *memoryTx) DeleteBid(ctx context.Context, bidID uuid.UUID) error {
	if _, ok := t.bids[bidID]; !ok {
		return ErrBidNotFound
	}
	delete(t.bids, bidID)
	t.deleted = append(t.deleted, bidID)
	return nil
}

func (t *memoryTx) SetItemBidState(ctx context.Context, currentBid decimal.Decimal, totalBids int) error {
	t.item.CurrentBid = currentBid
	t.item.TotalBids = totalBids
	return nil
}

func (t *memoryTx) SetItemStatus(ctx context.Context, status auction.ItemStatus) error {
	t.item.Status = status
	return nil
}

func (t *memoryTx) UpdateListing(ctx context.Context, item *auction.Item) error {
	t.item.Title = item.Title
	t.item.Description = item.Description
	t.item.Category = item.Category
	t.item.Images = append([]string(nil), item.Images...)
	t.item.StartingPrice = item.StartingPrice
	t.item.CurrentBid = item.StartingPrice
	t.item.EndTime = item.EndTime
	return nil
}

func (t *memoryTx) DeleteItem(ctx context.Context) error {
	t.itemDeleted = true
	return nil
}
