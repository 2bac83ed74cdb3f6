package events

import "time"

// Routing keys for order lifecycle events on the orders exchange.
const (
	RoutingKeyOrderCreated = "order.created"
	RoutingKeyOrderPaid    = "order.paid"
	RoutingKeyOrderExpired = "order.expired"
)

// OrderEvent is the payload published for every order lifecycle transition.
type OrderEvent struct {
	OrderID         int64     `json:"orderId"`
	Code            string    `json:"code"`
	PaymentStatus   string    `json:"paymentStatus"`
	OrderStatus     string    `json:"orderStatus"`
	TotalPriceCents int64     `json:"totalPriceCents"`
	OccurredAt      time.Time `json:"occurredAt"`
}
