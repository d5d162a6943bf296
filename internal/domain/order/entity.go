package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

// Order is the record of a settled sale. Status moves from PENDING to exactly
// one terminal state and never again.
type Order struct {
	ID         uuid.UUID       `db:"id" json:"id"`
	ListingID  uuid.UUID       `db:"listing_id" json:"listing_id"`
	BuyerID    uuid.UUID       `db:"buyer_id" json:"buyer_id"`
	SellerID   uuid.UUID       `db:"seller_id" json:"seller_id"`
	Amount     decimal.Decimal `db:"amount" json:"amount"`
	TotalPrice decimal.Decimal `db:"total_price" json:"total_price"`
	Status     Status          `db:"status" json:"status"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at" json:"updated_at"`
}
