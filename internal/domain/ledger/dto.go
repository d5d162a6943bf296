package ledger

import "github.com/shopspring/decimal"

type CreateWalletRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
}

type MintRequest struct {
	UserID string          `json:"user_id" validate:"required,uuid"`
	Amount decimal.Decimal `json:"amount" validate:"required"`
}

type BurnRequest struct {
	UserID string          `json:"user_id" validate:"required,uuid"`
	Amount decimal.Decimal `json:"amount" validate:"required"`
}

type TransferRequest struct {
	FromUserID string          `json:"from_user_id" validate:"required,uuid"`
	ToUserID   string          `json:"to_user_id" validate:"required,uuid"`
	Amount     decimal.Decimal `json:"amount" validate:"required"`
}

// WalletResponse is the wallet together with its recent ledger entries.
type WalletResponse struct {
	Wallet   *Wallet       `json:"wallet"`
	Incoming []Transaction `json:"incoming"`
	Outgoing []Transaction `json:"outgoing"`
}
