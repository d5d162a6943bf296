package order

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

const selectColumns = `id, listing_id, buyer_id, seller_id, amount, total_price, status, created_at, updated_at`

// CreateTx inserts the order inside the caller's settlement transaction. The
// unique listing_id constraint makes retries idempotent: when the row already
// exists the existing order is returned.
func (r *Repository) CreateTx(ctx context.Context, tx *sqlx.Tx, o *Order) error {
	err := tx.GetContext(ctx, o, `
		INSERT INTO orders (id, listing_id, buyer_id, seller_id, amount, total_price, status)
		VALUES ($1, $2, $3, $4, $5, $6, 'PENDING')
		ON CONFLICT (listing_id) DO NOTHING
		RETURNING `+selectColumns+`
	`, o.ID, o.ListingID, o.BuyerID, o.SellerID, o.Amount, o.TotalPrice)
	if errors.Is(err, sql.ErrNoRows) {
		return tx.GetContext(ctx, o, `
			SELECT `+selectColumns+` FROM orders WHERE listing_id = $1
		`, o.ListingID)
	}
	return err
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	var o Order
	err := r.db.GetContext(ctx, &o, `
		SELECT `+selectColumns+` FROM orders WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *Repository) List(ctx context.Context, limit int) ([]Order, error) {
	out := []Order{}
	err := r.db.SelectContext(ctx, &out, `
		SELECT `+selectColumns+` FROM orders ORDER BY created_at DESC LIMIT $1
	`, limit)
	return out, err
}

func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]Order, error) {
	out := []Order{}
	err := r.db.SelectContext(ctx, &out, `
		SELECT `+selectColumns+` FROM orders
		WHERE buyer_id = $1 OR seller_id = $1
		ORDER BY created_at DESC
	`, userID)
	return out, err
}

// UpdateStatus moves a PENDING order to a terminal status. The WHERE guard
// makes the transition one-way: a finalized order is never rewritten.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) (*Order, error) {
	var o Order
	err := r.db.GetContext(ctx, &o, `
		UPDATE orders SET status = $2, updated_at = now()
		WHERE id = $1 AND status = 'PENDING'
		RETURNING `+selectColumns+`
	`, id, status)
	if errors.Is(err, sql.ErrNoRows) {
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, ErrFinalized
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}
