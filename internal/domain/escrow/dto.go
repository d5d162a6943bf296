package escrow

import "github.com/shopspring/decimal"

type CreateEscrowRequest struct {
	SellerID          string          `json:"seller_id" validate:"required,uuid"`
	ListingID         string          `json:"listing_id" validate:"required,uuid"`
	Amount            decimal.Decimal `json:"amount" validate:"required"`
	ReleaseConditions string          `json:"release_conditions,omitempty"`
}

type DisputeRequest struct {
	Reason string `json:"reason" validate:"required,min=3,max=500"`
}

type ResolveRequest struct {
	Outcome string `json:"outcome" validate:"required,escrow_outcome"`
	Notes   string `json:"notes,omitempty"`
}
