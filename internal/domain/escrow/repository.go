package escrow

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

const selectColumns = `id, buyer_id, seller_id, listing_id, payment_id, amount,
	fee_percentage, fee_amount, status, release_conditions, notes, released_at,
	created_at, updated_at`

func (r *Repository) Create(ctx context.Context, e *Escrow) error {
	return r.db.GetContext(ctx, e, `
		INSERT INTO escrows (id, buyer_id, seller_id, listing_id, payment_id,
			amount, fee_percentage, fee_amount, status, release_conditions)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'created', $9)
		RETURNING `+selectColumns+`
	`, e.ID, e.BuyerID, e.SellerID, e.ListingID, e.PaymentID,
		e.Amount, e.FeePercentage, e.FeeAmount, e.ReleaseConditions)
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Escrow, error) {
	var e Escrow
	err := r.db.GetContext(ctx, &e, `
		SELECT `+selectColumns+` FROM escrows WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]Escrow, error) {
	out := []Escrow{}
	err := r.db.SelectContext(ctx, &out, `
		SELECT `+selectColumns+` FROM escrows
		WHERE buyer_id = $1 OR seller_id = $1
		ORDER BY created_at DESC
	`, userID)
	return out, err
}

// Transition moves the escrow from to next in one guarded update. The WHERE
// clause is the compare-and-swap: a concurrent transition loses and gets
// ErrInvalidState.
func (r *Repository) Transition(ctx context.Context, id uuid.UUID, from, next Status, notes *string, releasedAt *time.Time) (*Escrow, error) {
	var e Escrow
	err := r.db.GetContext(ctx, &e, `
		UPDATE escrows
		SET status = $3,
		    notes = COALESCE($4, notes),
		    released_at = COALESCE($5, released_at),
		    updated_at = now()
		WHERE id = $1 AND status = $2
		RETURNING `+selectColumns+`
	`, id, from, next, notes, releasedAt)
	if errors.Is(err, sql.ErrNoRows) {
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, ErrInvalidState
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}
