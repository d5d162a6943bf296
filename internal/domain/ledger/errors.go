package ledger

import "errors"

var (
	ErrInvalidAmount       = errors.New("amount must be greater than zero")
	ErrWalletExists        = errors.New("wallet already exists for owner")
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrInsufficientBalance = errors.New("insufficient credit balance")
	ErrSameWallet          = errors.New("sender and recipient are the same wallet")
	ErrReferenceConflict   = errors.New("reference conflicts with an earlier transfer")
)
