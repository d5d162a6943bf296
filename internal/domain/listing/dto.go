package listing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CreateListingRequest struct {
	Amount       decimal.Decimal `json:"amount" validate:"required"`
	Kind         string          `json:"kind" validate:"required,listing_kind"`
	PricePerUnit *decimal.Decimal `json:"price_per_unit,omitempty"`
	Reserve      *decimal.Decimal `json:"reserve,omitempty"`
}

type PlaceBidRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"required"`
}

// OrderRecord is what the saga hands to the order ledger once credits moved.
type OrderRecord struct {
	ListingID  uuid.UUID
	BuyerID    uuid.UUID
	SellerID   uuid.UUID
	Amount     decimal.Decimal
	TotalPrice decimal.Decimal
}

// CloseResult is returned by a successful auction close.
type CloseResult struct {
	Winner  *Bid      `json:"winner"`
	OrderID uuid.UUID `json:"order_id"`
}
