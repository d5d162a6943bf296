package listing

import "errors"

var (
	ErrInvalidInput     = errors.New("invalid listing input")
	ErrNotFound         = errors.New("listing not found")
	ErrAlreadySold      = errors.New("listing already sold")
	ErrSelfTrade        = errors.New("buyer and seller are the same user")
	ErrWrongKind        = errors.New("operation does not match listing kind")
	ErrBidTooLow        = errors.New("bid must exceed the current best bid")
	ErrNoBids           = errors.New("auction has no bids")
	ErrSettlementFailed = errors.New("settlement failed")

	// ErrTransferDeclined marks ledger failures where it is certain no credits
	// moved (insufficient balance, missing seller wallet). Anything else is
	// treated as an unknown outcome and left to the recovery sweep.
	ErrTransferDeclined = errors.New("credit transfer declined")
)
