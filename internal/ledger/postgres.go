package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bidwise/bidcore/internal/auction"
	"github.com/bidwise/bidcore/internal/ledger/migrations"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/shopspring/decimal"
)

// PostgresLedger persists items and bids in Postgres. Per-item
// serialization comes from a row lock: every mutating transaction opens
// with SELECT ... FOR UPDATE on the item row and holds it until commit.
type PostgresLedger struct {
	pool *pgxpool.Pool
}

func NewPostgresLedger(ctx context.Context, dsn string) (*PostgresLedger, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("ledger: connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ledger: ping: %w", err)
	}

	return &PostgresLedger{pool: pool}, nil
}

// RunMigrations applies the embedded goose migrations.
func RunMigrations(ctx context.Context, dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}

func (l *PostgresLedger) Close() {
	l.pool.Close()
}

const itemColumns = `id, title, description, category, images,
	starting_price::text, current_bid::text, seller_id, end_time,
	status, total_bids, created_at, updated_at`

const bidColumns = `id, item_id, bidder_id, amount::text, placed_at, status`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*auction.Item, error) {
	var (
		it               auction.Item
		starting, curr   string
		status           string
	)
	err := row.Scan(&it.ID, &it.Title, &it.Description, &it.Category, &it.Images,
		&starting, &curr, &it.SellerID, &it.EndTime, &status, &it.TotalBids,
		&it.CreatedAt, &it.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, err
	}
	if it.StartingPrice, err = decimal.NewFromString(starting); err != nil {
		return nil, err
	}
	if it.CurrentBid, err = decimal.NewFromString(curr); err != nil {
		return nil, err
	}
	it.Status = auction.ItemStatus(status)
	return &it, nil
}

func scanBid(row rowScanner) (*auction.Bid, error) {
	var (
		b      auction.Bid
		amount string
		status string
	)
	err := row.Scan(&b.ID, &b.ItemID, &b.BidderID, &amount, &b.PlacedAt, &status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrBidNotFound
	}
	if err != nil {
		return nil, err
	}
	if b.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, err
	}
	b.Status = auction.BidStatus(status)
	return &b, nil
}

func (l *PostgresLedger) CreateItem(ctx context.Context, item *auction.Item) error {
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now
	_, err := l.pool.Exec(ctx, `
		INSERT INTO items (id, title, description, category, images,
			starting_price, current_bid, seller_id, end_time, status,
			total_bids, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6::numeric, $7::numeric, $8, $9, $10, $11, $12, $13)`,
		item.ID, item.Title, item.Description, item.Category, item.Images,
		item.StartingPrice.String(), item.CurrentBid.String(), item.SellerID,
		item.EndTime, string(item.Status), item.TotalBids, item.CreatedAt, item.UpdatedAt)
	return err
}

func (l *PostgresLedger) GetItem(ctx context.Context, id uuid.UUID) (*auction.Item, error) {
	row := l.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1`, id)
	return scanItem(row)
}

func (l *PostgresLedger) ListItems(ctx context.Context, filter ItemFilter) ([]auction.Item, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Search != "" {
		p := arg("%" + filter.Search + "%")
		where = append(where, fmt.Sprintf("(title ILIKE %s OR description ILIKE %s)", p, p))
	}
	if filter.Category != "" {
		where = append(where, "category = "+arg(filter.Category))
	}
	if filter.Status != "" {
		where = append(where, "status = "+arg(string(filter.Status)))
	}
	if filter.MinPrice != nil {
		where = append(where, "current_bid >= "+arg(filter.MinPrice.String())+"::numeric")
	}
	if filter.MaxPrice != nil {
		where = append(where, "current_bid <= "+arg(filter.MaxPrice.String())+"::numeric")
	}

	query := `SELECT ` + itemColumns + ` FROM items`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	switch filter.Sort {
	case SortPriceAsc:
		query += " ORDER BY current_bid ASC"
	case SortPriceDesc:
		query += " ORDER BY current_bid DESC"
	case SortEndingSoon:
		query += " ORDER BY end_time ASC"
	default:
		query += " ORDER BY created_at DESC"
	}

	if filter.Limit > 0 {
		query += " LIMIT " + arg(filter.Limit)
	}
	if filter.Offset > 0 {
		query += " OFFSET " + arg(filter.Offset)
	}

	rows, err := l.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]auction.Item, 0)
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *it)
	}
	return items, rows.Err()
}

func (l *PostgresLedger) GetBid(ctx context.Context, id uuid.UUID) (*auction.Bid, error) {
	row := l.pool.QueryRow(ctx, `SELECT `+bidColumns+` FROM bids WHERE id = $1`, id)
	return scanBid(row)
}

func (l *PostgresLedger) ListBidsForItem(ctx context.Context, itemID uuid.UUID) ([]auction.Bid, error) {
	rows, err := l.pool.Query(ctx,
		`SELECT `+bidColumns+` FROM bids WHERE item_id = $1 ORDER BY amount DESC, placed_at ASC`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBids(rows)
}

func (l *PostgresLedger) ListBidsForBidder(ctx context.Context, bidderID uuid.UUID, status auction.BidStatus) ([]auction.Bid, error) {
	query := `SELECT ` + bidColumns + ` FROM bids WHERE bidder_id = $1`
	args := []any{bidderID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, string(status))
	}
	query += ` ORDER BY placed_at DESC`

	rows, err := l.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBids(rows)
}

func collectBids(rows pgx.Rows) ([]auction.Bid, error) {
	bids := make([]auction.Bid, 0)
	for rows.Next() {
		b, err := scanBid(rows)
		if err != nil {
			return nil, err
		}
		bids = append(bids, *b)
	}
	return bids, rows.Err()
}

func (l *PostgresLedger) ListExpiredActiveItems(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	query := `SELECT id FROM items WHERE status = 'active' AND end_time <= $1`
	args := []any{now}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	rows, err := l.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (l *PostgresLedger) WithItemLock(ctx context.Context, itemID uuid.UUID, fn func(ctx context.Context, tx ItemTx) error) error {
	tx, err := l.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	// Row lock held until commit; concurrent transitions on the same
	// item queue behind it.
	row := tx.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1 FOR UPDATE`, itemID)
	item, err := scanItem(row)
	if err != nil {
		return err
	}

	ptx := &postgresTx{tx: tx, item: item}
	if err := fn(ctx, ptx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type postgresTx struct {
	tx   pgx.Tx
	item *auction.Item
}

func (t *postgresTx) Item() *auction.Item { return t.item }

func (t *postgresTx) GetBid(ctx context.Context, bidID uuid.UUID) (*auction.Bid, error) {
	row := t.tx.QueryRow(ctx,
		`SELECT `+bidColumns+` FROM bids WHERE id = $1 AND item_id = $2`, bidID, t.item.ID)
	return scanBid(row)
}

func (t *postgresTx) ActiveBid(ctx context.Context) (*auction.Bid, error) {
	row := t.tx.QueryRow(ctx,
		`SELECT `+bidColumns+` FROM bids WHERE item_id = $1 AND status = 'active' LIMIT 1`, t.item.ID)
	bid, err := scanBid(row)
	if errors.Is(err, ErrBidNotFound) {
		return nil, nil
	}
	return bid, err
}

func (t *postgresTx) HighestBidExcluding(ctx context.Context, bidID uuid.UUID) (*auction.Bid, error) {
	row := t.tx.QueryRow(ctx, `
		SELECT `+bidColumns+` FROM bids
		WHERE item_id = $1 AND id <> $2
		ORDER BY amount DESC, placed_at ASC
		LIMIT 1`, t.item.ID, bidID)
	bid, err := scanBid(row)
	if errors.Is(err, ErrBidNotFound) {
		return nil, nil
	}
	return bid, err
}

func (t *postgresTx) InsertBid(ctx context.Context, bid *auction.Bid) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO bids (id, item_id, bidder_id, amount, placed_at, status)
		VALUES ($1, $2, $3, $4::numeric, $5, $6)`,
		bid.ID, bid.ItemID, bid.BidderID, bid.Amount.String(), bid.PlacedAt, string(bid.Status))
	return err
}

func (t *postgresTx) SetBidStatus(ctx context.Context, bidID uuid.UUID, status auction.BidStatus) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE bids SET status = $1 WHERE id = $2 AND item_id = $3`,
		string(status), bidID, t.item.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBidNotFound
	}
	return nil
}

func (t *postgresTx) DemoteActiveBid(ctx context.Context) error {
	_, err := t.tx.Exec(ctx,
		`UPDATE bids SET status = 'outbid' WHERE item_id = $1 AND status = 'active'`, t.item.ID)
	return err
}

func (t *postgresTx) SetRemainingBidsLost(ctx context.Context, wonBidID uuid.UUID) error {
	if wonBidID == uuid.Nil {
		_, err := t.tx.Exec(ctx,
			`UPDATE bids SET status = 'lost' WHERE item_id = $1`, t.item.ID)
		return err
	}
	_, err := t.tx.Exec(ctx,
		`UPDATE bids SET status = 'lost' WHERE item_id = $1 AND id <> $2`, t.item.ID, wonBidID)
	return err
}

func (t *postgresTx) DeleteBid(ctx context.Context, bidID uuid.UUID) error {
	tag, err := t.tx.Exec(ctx,
		`DELETE FROM bids WHERE id = $1 AND item_id = $2`, bidID, t.item.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBidNotFound
	}
	return nil
}

func (t *postgresTx) SetItemBidState(ctx context.Context, currentBid decimal.Decimal, totalBids int) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE items SET current_bid = $1::numeric, total_bids = $2, updated_at = now()
		WHERE id = $3`, currentBid.String(), totalBids, t.item.ID)
	return err
}

func (t *postgresTx) SetItemStatus(ctx context.Context, status auction.ItemStatus) error {
	_, err := t.tx.Exec(ctx,
		`UPDATE items SET status = $1, updated_at = now() WHERE id = $2`,
		string(status), t.item.ID)
	return err
}

func (t *postgresTx) UpdateListing(ctx context.Context, item *auction.Item) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE items SET title = $1, description = $2, category = $3, images = $4,
			starting_price = $5::numeric, current_bid = $5::numeric, end_time = $6,
			updated_at = now()
		WHERE id = $7`,
		item.Title, item.Description, item.Category, item.Images,
		item.StartingPrice.String(), item.EndTime, t.item.ID)
	return err
}

func (t *postgresTx) DeleteItem(ctx context.Context) error {
	// Bids cascade, though the mutation guard only lets bid-free items
	// get this far.
	_, err := t.tx.Exec(ctx, `DELETE FROM items WHERE id = $1`, t.item.ID)
	return err
}
