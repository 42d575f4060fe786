package orders

import "errors"

var (
	ErrEmptyCart         = errors.New("cart is empty")
	ErrUnavailable       = errors.New("one or more items are no longer available")
	ErrNotFound          = errors.New("order not found")
	ErrInvalidID         = errors.New("invalid order id")
	ErrInvalidStatus     = errors.New("unknown order status")
	ErrInvalidTransition = errors.New("order status change not allowed")
	ErrPaymentsDisabled  = errors.New("payments not configured")
)
