package listing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Kind string

const (
	KindFixed   Kind = "FIXED"
	KindAuction Kind = "AUCTION"
)

type Status string

const (
	StatusOpen Status = "OPEN"
	StatusSold Status = "SOLD"
)

// Listing is an open offer to sell a fixed amount of credits. Amount and price
// are immutable after creation; only settlement flips the status.
type Listing struct {
	ID           uuid.UUID           `db:"id" json:"id"`
	SellerID     uuid.UUID           `db:"seller_id" json:"seller_id"`
	Amount       decimal.Decimal     `db:"amount" json:"amount"`
	Kind         Kind                `db:"kind" json:"kind"`
	PricePerUnit decimal.NullDecimal `db:"price_per_unit" json:"price_per_unit,omitempty"`
	Reserve      decimal.NullDecimal `db:"reserve" json:"reserve,omitempty"`
	Status       Status              `db:"status" json:"status"`
	CreatedAt    time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time           `db:"updated_at" json:"updated_at"`
}

// Bid is an append-only offer against an auction listing.
type Bid struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	ListingID uuid.UUID       `db:"listing_id" json:"listing_id"`
	BidderID  uuid.UUID       `db:"bidder_id" json:"bidder_id"`
	Amount    decimal.Decimal `db:"amount" json:"amount"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// Settlement attempt steps. The attempt row is the durable saga log: it is
// claimed before any money moves and only deleted when no transfer happened.
type AttemptStep string

const (
	StepStarted     AttemptStep = "started"
	StepTransferred AttemptStep = "transferred"
	StepCompleted   AttemptStep = "completed"
)

// Attempt records one settlement in flight for a listing. listing_id is
// unique, which serializes concurrent purchases of the same listing.
type Attempt struct {
	ID         uuid.UUID       `db:"id" json:"id"`
	ListingID  uuid.UUID       `db:"listing_id" json:"listing_id"`
	BuyerID    uuid.UUID       `db:"buyer_id" json:"buyer_id"`
	Amount     decimal.Decimal `db:"amount" json:"amount"`
	TotalPrice decimal.Decimal `db:"total_price" json:"total_price"`
	Step       AttemptStep     `db:"step" json:"step"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at" json:"updated_at"`
}

// TransferReference is the ledger idempotency key for this attempt.
func (a *Attempt) TransferReference() string {
	return "settlement:" + a.ID.String()
}
