package escrow

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusCreated  Status = "created"
	StatusFunded   Status = "funded"
	StatusReleased Status = "released"
	StatusRefunded Status = "refunded"
	StatusDisputed Status = "disputed"
)

// Escrow holds buyer funds on the payment side until release conditions are
// met. Its lifecycle is independent of the credit ledger and correlated with
// the marketplace only through ListingID.
type Escrow struct {
	ID                uuid.UUID       `db:"id" json:"id"`
	BuyerID           uuid.UUID       `db:"buyer_id" json:"buyer_id"`
	SellerID          uuid.UUID       `db:"seller_id" json:"seller_id"`
	ListingID         uuid.UUID       `db:"listing_id" json:"listing_id"`
	PaymentID         string          `db:"payment_id" json:"payment_id"`
	Amount            decimal.Decimal `db:"amount" json:"amount"`
	FeePercentage     decimal.Decimal `db:"fee_percentage" json:"fee_percentage"`
	FeeAmount         decimal.Decimal `db:"fee_amount" json:"fee_amount"`
	Status            Status          `db:"status" json:"status"`
	ReleaseConditions string          `db:"release_conditions" json:"release_conditions"`
	Notes             *string         `db:"notes" json:"notes,omitempty"`
	ReleasedAt        *time.Time      `db:"released_at" json:"released_at,omitempty"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at" json:"updated_at"`
}

// CanTransition reports whether the state machine allows moving to next.
func (e *Escrow) CanTransition(next Status) bool {
	switch e.Status {
	case StatusCreated:
		return next == StatusFunded
	case StatusFunded:
		return next == StatusReleased || next == StatusDisputed
	case StatusDisputed:
		return next == StatusReleased || next == StatusRefunded
	default:
		return false
	}
}
