package escrow

import "errors"

var (
	ErrNotFound      = errors.New("escrow not found")
	ErrInvalidInput  = errors.New("invalid escrow input")
	ErrInvalidState  = errors.New("escrow state does not allow this transition")
	ErrCaptureFailed = errors.New("payment capture failed")
	ErrRefundFailed  = errors.New("payment refund failed")
)
