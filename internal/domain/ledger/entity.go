package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionKind string

const (
	KindMint     TransactionKind = "MINT"
	KindTransfer TransactionKind = "TRANSFER"
	KindBurn     TransactionKind = "BURN"
)

// Wallet holds one carbon-credit balance per owner. The balance never goes
// negative; every mutation is guarded by a row lock inside a transaction.
type Wallet struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	OwnerID   uuid.UUID       `db:"owner_id" json:"owner_id"`
	Balance   decimal.Decimal `db:"balance" json:"balance"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

// Transaction is an immutable ledger entry. A TRANSFER touches two wallets,
// MINT credits only, BURN debits only. Rows are append-only.
type Transaction struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	Kind         TransactionKind `db:"kind" json:"kind"`
	FromWalletID uuid.NullUUID   `db:"from_wallet_id" json:"from_wallet_id,omitempty"`
	ToWalletID   uuid.NullUUID   `db:"to_wallet_id" json:"to_wallet_id,omitempty"`
	Amount       decimal.Decimal `db:"amount" json:"amount"`
	ReferenceID  *string         `db:"reference_id" json:"reference_id,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}

// Totals aggregates the ledger for the conservation check:
// sum(MINT) - sum(BURN) must equal sum of all wallet balances.
type Totals struct {
	Minted   decimal.Decimal `db:"minted" json:"minted"`
	Burned   decimal.Decimal `db:"burned" json:"burned"`
	Balances decimal.Decimal `db:"balances" json:"balances"`
}

// Balanced reports whether the conservation law holds.
func (t Totals) Balanced() bool {
	return t.Minted.Sub(t.Burned).Equal(t.Balances)
}
