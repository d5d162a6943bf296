package order

import "errors"

var (
	ErrNotFound      = errors.New("order not found")
	ErrFinalized     = errors.New("order already in a terminal state")
	ErrInvalidStatus = errors.New("invalid order status")
)
