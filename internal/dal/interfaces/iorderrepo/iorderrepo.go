package iorderrepo

import (
	"context"

	"github.com/snowberry/order/internal/service/models/order"
)

// IOrderRepository is an interface for the order postgres repository.
type IOrderRepository interface {
	// Insert persists a new order row and returns its id. A collision on
	// the customer-facing code surfaces as order.ErrDuplicateCode.
	Insert(ctx context.Context, o *order.Order) (int64, error)

	GetByID(ctx context.Context, id int64) (*order.Order, error)
	GetByCode(ctx context.Context, code string) (*order.Order, error)

	Query(ctx context.Context, filter *order.QueryOrdersModel) ([]order.Order, error)

	// MarkExpired conditionally moves a still-unpaid order to
	// Canceled/Failed. It reports whether this call won the transition.
	MarkExpired(ctx context.Context, id int64) (bool, error)

	// MarkPaid conditionally moves a still-unpaid order to Paid. It
	// reports whether this call won the transition.
	MarkPaid(ctx context.Context, id int64) (bool, error)

	// UpdateStatus is the administrative override: it writes the
	// fulfillment status and shipping metadata directly.
	UpdateStatus(ctx context.Context, id int64, status order.Status, trackingID, courierPartner string) error
}
