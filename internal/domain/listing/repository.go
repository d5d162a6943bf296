package listing

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// DB exposes the pool so the saga can share its finalize transaction with the
// order store.
func (r *Repository) DB() *sqlx.DB {
	return r.db
}

func (r *Repository) Create(ctx context.Context, l *Listing) error {
	return r.db.GetContext(ctx, l, `
		INSERT INTO listings (id, seller_id, amount, kind, price_per_unit, reserve, status)
		VALUES ($1, $2, $3, $4, $5, $6, 'OPEN')
		RETURNING id, seller_id, amount, kind, price_per_unit, reserve, status, created_at, updated_at
	`, l.ID, l.SellerID, l.Amount, l.Kind, l.PricePerUnit, l.Reserve)
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Listing, error) {
	var l Listing
	err := r.db.GetContext(ctx, &l, `
		SELECT id, seller_id, amount, kind, price_per_unit, reserve, status, created_at, updated_at
		FROM listings WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *Repository) List(ctx context.Context) ([]Listing, error) {
	out := []Listing{}
	err := r.db.SelectContext(ctx, &out, `
		SELECT id, seller_id, amount, kind, price_per_unit, reserve, status, created_at, updated_at
		FROM listings ORDER BY created_at DESC
	`)
	return out, err
}

func (r *Repository) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]Listing, error) {
	out := []Listing{}
	err := r.db.SelectContext(ctx, &out, `
		SELECT id, seller_id, amount, kind, price_per_unit, reserve, status, created_at, updated_at
		FROM listings WHERE seller_id = $1 ORDER BY created_at DESC
	`, sellerID)
	return out, err
}

// MarkSoldTx flips OPEN -> SOLD inside the given transaction. Idempotent: a
// listing already SOLD (a resumed saga) is not an error.
func (r *Repository) MarkSoldTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE listings SET status = 'SOLD', updated_at = now()
		WHERE id = $1 AND status = 'OPEN'
	`, id)
	return err
}

// --- bids ---

// InsertBid validates and appends a bid while holding the listing row lock, so
// two concurrent bids at the same amount cannot both win the comparison.
func (r *Repository) InsertBid(ctx context.Context, b *Bid) error {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var l Listing
	err = tx.GetContext(ctx, &l, `
		SELECT id, seller_id, amount, kind, price_per_unit, reserve, status, created_at, updated_at
		FROM listings WHERE id = $1 FOR UPDATE
	`, b.ListingID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if l.Status != StatusOpen {
		return ErrAlreadySold
	}
	if l.Kind != KindAuction {
		return ErrWrongKind
	}
	if b.BidderID == l.SellerID {
		return ErrSelfTrade
	}

	// A claimed settlement attempt means the auction is already closing.
	var closing bool
	if err := tx.GetContext(ctx, &closing, `
		SELECT EXISTS (SELECT 1 FROM settlement_attempts WHERE listing_id = $1)
	`, b.ListingID); err != nil {
		return err
	}
	if closing {
		return ErrAlreadySold
	}

	var best decimal.NullDecimal
	if err := tx.GetContext(ctx, &best, `
		SELECT MAX(amount) FROM bids WHERE listing_id = $1
	`, b.ListingID); err != nil {
		return err
	}

	// Strict > comparison: against the best bid when one exists, against the
	// reserve for the first bid. Ties lose, so the earliest bid at an amount wins.
	floor := decimal.Zero
	if best.Valid {
		floor = best.Decimal
	} else if l.Reserve.Valid {
		floor = l.Reserve.Decimal
	}
	if !b.Amount.GreaterThan(floor) {
		return ErrBidTooLow
	}

	if err := tx.GetContext(ctx, b, `
		INSERT INTO bids (id, listing_id, bidder_id, amount)
		VALUES ($1, $2, $3, $4)
		RETURNING id, listing_id, bidder_id, amount, created_at
	`, b.ID, b.ListingID, b.BidderID, b.Amount); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *Repository) ListBids(ctx context.Context, listingID uuid.UUID) ([]Bid, error) {
	out := []Bid{}
	err := r.db.SelectContext(ctx, &out, `
		SELECT id, listing_id, bidder_id, amount, created_at
		FROM bids WHERE listing_id = $1
		ORDER BY amount DESC, created_at ASC
	`, listingID)
	return out, err
}

// BestBid returns the winning bid: maximum amount, earliest placed on a tie.
func (r *Repository) BestBid(ctx context.Context, listingID uuid.UUID) (*Bid, error) {
	var b Bid
	err := r.db.GetContext(ctx, &b, `
		SELECT id, listing_id, bidder_id, amount, created_at
		FROM bids WHERE listing_id = $1
		ORDER BY amount DESC, created_at ASC
		LIMIT 1
	`, listingID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoBids
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// ClaimAuctionAttempt picks the winning bid and claims the settlement attempt
// in one transaction while holding the listing row lock. Bid inserts take the
// same lock, so every bid committed before the close is considered and none
// can land between selection and the claim. A second close of the same
// auction returns the existing in-flight attempt.
func (r *Repository) ClaimAuctionAttempt(ctx context.Context, listingID uuid.UUID) (*Attempt, *Bid, error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	var l Listing
	err = tx.GetContext(ctx, &l, `
		SELECT id, seller_id, amount, kind, price_per_unit, reserve, status, created_at, updated_at
		FROM listings WHERE id = $1 FOR UPDATE
	`, listingID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	if l.Status != StatusOpen {
		return nil, nil, ErrAlreadySold
	}
	if l.Kind != KindAuction {
		return nil, nil, ErrWrongKind
	}

	var best Bid
	err = tx.GetContext(ctx, &best, `
		SELECT id, listing_id, bidder_id, amount, created_at
		FROM bids WHERE listing_id = $1
		ORDER BY amount DESC, created_at ASC
		LIMIT 1
	`, listingID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, ErrNoBids
	}
	if err != nil {
		return nil, nil, err
	}

	var a Attempt
	err = tx.GetContext(ctx, &a, `
		SELECT id, listing_id, buyer_id, amount, total_price, step, created_at, updated_at
		FROM settlement_attempts WHERE listing_id = $1
	`, listingID)
	if err == nil {
		if commitErr := tx.Commit(); commitErr != nil {
			return nil, nil, commitErr
		}
		return &a, &best, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, nil, err
	}

	if err := tx.GetContext(ctx, &a, `
		INSERT INTO settlement_attempts (id, listing_id, buyer_id, amount, total_price, step)
		VALUES ($1, $2, $3, $4, $5, 'started')
		RETURNING id, listing_id, buyer_id, amount, total_price, step, created_at, updated_at
	`, uuid.New(), listingID, best.BidderID, l.Amount, best.Amount.Mul(l.Amount)); err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}
	return &a, &best, nil
}

// --- settlement attempts ---

// ClaimAttempt inserts the saga log row for a listing. The unique listing_id
// constraint is the serialization point: exactly one caller claims it, every
// concurrent rival observes the existing attempt.
func (r *Repository) ClaimAttempt(ctx context.Context, a *Attempt) (claimed bool, existing *Attempt, err error) {
	err = r.db.GetContext(ctx, a, `
		INSERT INTO settlement_attempts (id, listing_id, buyer_id, amount, total_price, step)
		VALUES ($1, $2, $3, $4, $5, 'started')
		RETURNING id, listing_id, buyer_id, amount, total_price, step, created_at, updated_at
	`, a.ID, a.ListingID, a.BuyerID, a.Amount, a.TotalPrice)
	if err == nil {
		return true, nil, nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		cur, getErr := r.AttemptByListing(ctx, a.ListingID)
		if getErr != nil {
			return false, nil, getErr
		}
		return false, cur, nil
	}
	return false, nil, err
}

func (r *Repository) AttemptByListing(ctx context.Context, listingID uuid.UUID) (*Attempt, error) {
	var a Attempt
	err := r.db.GetContext(ctx, &a, `
		SELECT id, listing_id, buyer_id, amount, total_price, step, created_at, updated_at
		FROM settlement_attempts WHERE listing_id = $1
	`, listingID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *Repository) MarkAttemptTransferred(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE settlement_attempts SET step = 'transferred', updated_at = now()
		WHERE id = $1 AND step = 'started'
	`, id)
	return err
}

func (r *Repository) MarkAttemptCompletedTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE settlement_attempts SET step = 'completed', updated_at = now()
		WHERE id = $1
	`, id)
	return err
}

// DeleteAttempt removes the saga row for a settlement where no credits moved,
// reopening the listing for other buyers.
func (r *Repository) DeleteAttempt(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM settlement_attempts WHERE id = $1`, id)
	return err
}

// StalledAttempts returns attempts that have not completed within the cutoff.
// The recovery sweep inspects the ledger to decide how to repair each one.
func (r *Repository) StalledAttempts(ctx context.Context, olderThan time.Duration) ([]Attempt, error) {
	out := []Attempt{}
	err := r.db.SelectContext(ctx, &out, `
		SELECT id, listing_id, buyer_id, amount, total_price, step, created_at, updated_at
		FROM settlement_attempts
		WHERE step <> 'completed' AND updated_at < now() - ($1 * interval '1 second')
		ORDER BY updated_at ASC
	`, int64(olderThan.Seconds()))
	return out, err
}
