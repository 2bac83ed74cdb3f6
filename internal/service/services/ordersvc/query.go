package ordersvc

import (
	"context"
	"log/slog"

	"github.com/snowberry/order/internal/service/models/order"
)

// GetOrders retrieves orders matching the filter with their line items.
func (s *OrderService) GetOrders(
	ctx context.Context,
	filter *order.QueryOrdersModel,
) ([]order.Order, error) {
	work := s.newUOW()

	orders, err := work.OrderRepository().Query(ctx, filter)
	if err != nil {
		return nil, err
	}

	if len(orders) == 0 {
		return []order.Order{}, nil
	}

	orderIds := make([]int64, len(orders))
	for i, o := range orders {
		orderIds[i] = o.ID
	}

	orderItems, err := work.OrderItemRepository().QueryByOrderIds(ctx, orderIds)
	if err != nil {
		return nil, err
	}

	for i := range orders {
		for _, item := range orderItems {
			if item.OrderID == orders[i].ID {
				orders[i].OrderItems = append(orders[i].OrderItems, item)
			}
		}
	}

	return orders, nil
}

// TrackOrders is the guest tracking lookup: orders whose buyer contact
// snapshot, guest or registered, matches the given email and phone. A code
// narrows the match to a single order.
func (s *OrderService) TrackOrders(
	ctx context.Context,
	email, phone, code string,
) ([]order.Order, error) {
	filter := &order.QueryOrdersModel{
		Email: email,
		Phone: phone,
	}
	if code != "" {
		filter.Codes = []string{code}
	}

	return s.GetOrders(ctx, filter)
}

// OrdersByUser lists the orders of a registered customer, newest first.
func (s *OrderService) OrdersByUser(ctx context.Context, userID int64) ([]order.Order, error) {
	return s.GetOrders(ctx, &order.QueryOrdersModel{
		UserIds: []int64{userID},
	})
}

// OrderByID fetches one order with its line items.
func (s *OrderService) OrderByID(ctx context.Context, id int64) (*order.Order, error) {
	work := s.newUOW()

	o, err := work.OrderRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	o.OrderItems, err = work.OrderItemRepository().QueryByOrderIds(ctx, []int64{id})
	if err != nil {
		return nil, err
	}

	return o, nil
}

// UpdateStatus is the administrative override used by fulfillment staff: it
// writes the fulfillment status and shipping metadata directly, outside the
// automatic payment/expiry transitions, and returns the updated order.
func (s *OrderService) UpdateStatus(
	ctx context.Context,
	id int64,
	status order.Status,
	trackingID, courierPartner string,
) (*order.Order, error) {
	work := s.newUOW()

	if err := work.OrderRepository().UpdateStatus(ctx, id, status, trackingID, courierPartner); err != nil {
		return nil, err
	}

	slog.Info("Order status updated",
		"order_id", id,
		"status", status,
		"tracking_id", trackingID,
		"courier_partner", courierPartner,
	)

	return s.OrderByID(ctx, id)
}
