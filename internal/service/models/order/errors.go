package order

import "errors"

var (
	ErrOrderNotFound = errors.New("order not found")

	// ErrDuplicateCode is returned by the store when the generated order
	// code collides with an existing one.
	ErrDuplicateCode = errors.New("order code already exists")

	// ErrEmptyCart rejects order creation with no line items.
	ErrEmptyCart = errors.New("cart is empty")

	// ErrInvalidQuantity rejects a cart line with a non-positive quantity.
	ErrInvalidQuantity = errors.New("cart item quantity must be positive")

	// ErrMissingShippingAddress rejects an incomplete shipping address.
	ErrMissingShippingAddress = errors.New("shipping address is required")

	// ErrPaymentConflict signals a lost race on the payment status: the
	// order was already paid or already expired.
	ErrPaymentConflict = errors.New("order is no longer awaiting payment")
)
