package ledger

import (
	"bytes"
	"context"
	"database/sql"
	"errors"

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

func (r *Repository) beginTx(ctx context.Context) (*sqlx.Tx, error) {
	return r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
}

// CreateWallet inserts a zero-balance wallet. Returns ErrWalletExists when the
// owner already has one.
func (r *Repository) CreateWallet(ctx context.Context, ownerID uuid.UUID) (*Wallet, error) {
	var w Wallet
	err := r.db.GetContext(ctx, &w, `
		INSERT INTO wallets (id, owner_id, balance)
		VALUES ($1, $2, 0)
		RETURNING id, owner_id, balance, created_at, updated_at
	`, uuid.New(), ownerID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, ErrWalletExists
		}
		return nil, err
	}
	return &w, nil
}

// GetByOwner returns the wallet for an owner, ErrWalletNotFound when absent.
func (r *Repository) GetByOwner(ctx context.Context, ownerID uuid.UUID) (*Wallet, error) {
	var w Wallet
	err := r.db.GetContext(ctx, &w, `
		SELECT id, owner_id, balance, created_at, updated_at
		FROM wallets WHERE owner_id = $1
	`, ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrWalletNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// ListTransactions returns ledger entries touching the given wallet, newest first.
func (r *Repository) ListTransactions(ctx context.Context, walletID uuid.UUID, limit int) ([]Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	txs := []Transaction{}
	err := r.db.SelectContext(ctx, &txs, `
		SELECT id, kind, from_wallet_id, to_wallet_id, amount, reference_id, created_at
		FROM ledger_transactions
		WHERE from_wallet_id = $1 OR to_wallet_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, walletID, limit)
	return txs, err
}

// HasTransferReference reports whether a transfer with the given idempotency
// reference has been committed. The settlement sweep uses this to decide
// whether credits already moved for a stalled attempt.
func (r *Repository) HasTransferReference(ctx context.Context, referenceID string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `
		SELECT EXISTS (SELECT 1 FROM ledger_transactions WHERE reference_id = $1)
	`, referenceID)
	return exists, err
}

// Totals aggregates mint/burn totals and the sum of balances.
func (r *Repository) Totals(ctx context.Context) (*Totals, error) {
	var t Totals
	err := r.db.GetContext(ctx, &t, `
		SELECT
			COALESCE((SELECT SUM(amount) FROM ledger_transactions WHERE kind = 'MINT'), 0) AS minted,
			COALESCE((SELECT SUM(amount) FROM ledger_transactions WHERE kind = 'BURN'), 0) AS burned,
			COALESCE((SELECT SUM(balance) FROM wallets), 0) AS balances
	`)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ensureWallet creates the wallet row if it is missing. Safe to call inside a
// transaction before taking the row lock.
func (r *Repository) ensureWallet(ctx context.Context, tx *sqlx.Tx, ownerID uuid.UUID) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO wallets (id, owner_id, balance)
		VALUES ($1, $2, 0)
		ON CONFLICT (owner_id) DO NOTHING
	`, uuid.New(), ownerID)
	return err
}

func (r *Repository) walletID(ctx context.Context, tx *sqlx.Tx, ownerID uuid.UUID) (uuid.UUID, error) {
	var id uuid.UUID
	err := tx.GetContext(ctx, &id, `SELECT id FROM wallets WHERE owner_id = $1`, ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return uuid.Nil, ErrWalletNotFound
	}
	return id, err
}

func (r *Repository) lockWallet(ctx context.Context, tx *sqlx.Tx, walletID uuid.UUID) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := tx.GetContext(ctx, &balance, `SELECT balance FROM wallets WHERE id = $1 FOR UPDATE`, walletID)
	return balance, err
}

func (r *Repository) setBalance(ctx context.Context, tx *sqlx.Tx, walletID uuid.UUID, balance decimal.Decimal) error {
	_, err := tx.ExecContext(ctx, `UPDATE wallets SET balance = $1, updated_at = now() WHERE id = $2`, balance, walletID)
	return err
}

func (r *Repository) insertEntry(ctx context.Context, tx *sqlx.Tx, e *Transaction) error {
	var ref interface{}
	if e.ReferenceID != nil && *e.ReferenceID != "" {
		ref = *e.ReferenceID
	}
	err := tx.GetContext(ctx, e, `
		INSERT INTO ledger_transactions (id, kind, from_wallet_id, to_wallet_id, amount, reference_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, kind, from_wallet_id, to_wallet_id, amount, reference_id, created_at
	`, e.ID, e.Kind, e.FromWalletID, e.ToWalletID, e.Amount, ref)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrReferenceConflict
		}
	}
	return err
}

// Mint credits the owner's wallet, creating it if absent, and appends a MINT
// entry, all in one transaction.
func (r *Repository) Mint(ctx context.Context, ownerID uuid.UUID, amount decimal.Decimal) (*Transaction, error) {
	tx, err := r.beginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := r.ensureWallet(ctx, tx, ownerID); err != nil {
		return nil, err
	}
	walletID, err := r.walletID(ctx, tx, ownerID)
	if err != nil {
		return nil, err
	}
	balance, err := r.lockWallet(ctx, tx, walletID)
	if err != nil {
		return nil, err
	}
	if err := r.setBalance(ctx, tx, walletID, balance.Add(amount)); err != nil {
		return nil, err
	}

	entry := &Transaction{
		ID:         uuid.New(),
		Kind:       KindMint,
		ToWalletID: uuid.NullUUID{UUID: walletID, Valid: true},
		Amount:     amount,
	}
	if err := r.insertEntry(ctx, tx, entry); err != nil {
		return nil, err
	}

	return entry, tx.Commit()
}

// Burn debits the owner's wallet and appends a BURN entry.
func (r *Repository) Burn(ctx context.Context, ownerID uuid.UUID, amount decimal.Decimal) (*Transaction, error) {
	tx, err := r.beginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	walletID, err := r.walletID(ctx, tx, ownerID)
	if err != nil {
		return nil, err
	}
	balance, err := r.lockWallet(ctx, tx, walletID)
	if err != nil {
		return nil, err
	}
	if balance.LessThan(amount) {
		return nil, ErrInsufficientBalance
	}
	if err := r.setBalance(ctx, tx, walletID, balance.Sub(amount)); err != nil {
		return nil, err
	}

	entry := &Transaction{
		ID:           uuid.New(),
		Kind:         KindBurn,
		FromWalletID: uuid.NullUUID{UUID: walletID, Valid: true},
		Amount:       amount,
	}
	if err := r.insertEntry(ctx, tx, entry); err != nil {
		return nil, err
	}

	return entry, tx.Commit()
}

// Transfer atomically debits the sender and credits the recipient, appending
// one TRANSFER entry. Both wallet rows are locked in ascending wallet-id order
// so concurrent transfers cannot deadlock. With a non-empty referenceID the
// operation is idempotent: a retry that finds a committed entry with the same
// reference and amount succeeds without moving credits again.
func (r *Repository) Transfer(ctx context.Context, fromOwnerID, toOwnerID uuid.UUID, amount decimal.Decimal, referenceID string) (*Transaction, error) {
	tx, err := r.beginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// Sender must already hold a wallet; the recipient's is created lazily.
	fromID, err := r.walletID(ctx, tx, fromOwnerID)
	if err != nil {
		return nil, err
	}
	if err := r.ensureWallet(ctx, tx, toOwnerID); err != nil {
		return nil, err
	}
	toID, err := r.walletID(ctx, tx, toOwnerID)
	if err != nil {
		return nil, err
	}
	if fromID == toID {
		return nil, ErrSameWallet
	}

	if referenceID != "" {
		existing, err := r.transferByReference(ctx, tx, referenceID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			if !existing.Amount.Equal(amount) || existing.FromWalletID.UUID != fromID || existing.ToWalletID.UUID != toID {
				return nil, ErrReferenceConflict
			}
			return existing, nil
		}
	}

	// Fixed global lock order by wallet id.
	first, second := fromID, toID
	if bytes.Compare(second[:], first[:]) < 0 {
		first, second = second, first
	}
	firstBal, err := r.lockWallet(ctx, tx, first)
	if err != nil {
		return nil, err
	}
	secondBal, err := r.lockWallet(ctx, tx, second)
	if err != nil {
		return nil, err
	}

	fromBal, toBal := firstBal, secondBal
	if first != fromID {
		fromBal, toBal = secondBal, firstBal
	}

	if fromBal.LessThan(amount) {
		return nil, ErrInsufficientBalance
	}

	if err := r.setBalance(ctx, tx, fromID, fromBal.Sub(amount)); err != nil {
		return nil, err
	}
	if err := r.setBalance(ctx, tx, toID, toBal.Add(amount)); err != nil {
		return nil, err
	}

	entry := &Transaction{
		ID:           uuid.New(),
		Kind:         KindTransfer,
		FromWalletID: uuid.NullUUID{UUID: fromID, Valid: true},
		ToWalletID:   uuid.NullUUID{UUID: toID, Valid: true},
		Amount:       amount,
	}
	if referenceID != "" {
		entry.ReferenceID = &referenceID
	}
	if err := r.insertEntry(ctx, tx, entry); err != nil {
		if errors.Is(err, ErrReferenceConflict) {
			// Lost a race on the same reference. The unique violation aborted
			// this transaction, so re-read on the pool and treat a matching
			// committed entry as success.
			tx.Rollback()
			existing, checkErr := r.transferByReference(ctx, r.db, referenceID)
			if checkErr != nil {
				return nil, checkErr
			}
			if existing != nil && existing.Amount.Equal(amount) {
				return existing, nil
			}
		}
		return nil, err
	}

	return entry, tx.Commit()
}

func (r *Repository) transferByReference(ctx context.Context, q sqlx.QueryerContext, referenceID string) (*Transaction, error) {
	var existing Transaction
	err := sqlx.GetContext(ctx, q, &existing, `
		SELECT id, kind, from_wallet_id, to_wallet_id, amount, reference_id, created_at
		FROM ledger_transactions
		WHERE reference_id = $1
		LIMIT 1
	`, referenceID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &existing, nil
}

