package converters

import (
	"time"

	"github.com/snowberry/order/internal/service/models/buyer"
	"github.com/snowberry/order/internal/service/models/order"
	"github.com/snowberry/order/internal/service/models/orderitem"
)

// notSet is what customers see for shipping metadata fulfillment has not
// filled in yet.
const notSet = "N/A"

// OrderItemView is the read-side shape of a line item.
type OrderItemView struct {
	ProductID     int64  `json:"productId"`
	Name          string `json:"name"`
	PriceCents    int64  `json:"priceCents"`
	Quantity      int    `json:"quantity"`
	SubtotalCents int64  `json:"subtotalCents"`
}

// BuyerView is the read-side shape of the buyer snapshot.
type BuyerView struct {
	IsRegisteredUser bool   `json:"isRegisteredUser"`
	UserID           int64  `json:"userId,omitempty"`
	Name             string `json:"name"`
	Email            string `json:"email"`
	Phone            string `json:"phone"`
}

// OrderView is the read-side shape of an order. OrderID is the
// customer-facing code, not the internal id.
type OrderView struct {
	ID              int64           `json:"id"`
	OrderID         string          `json:"orderId"`
	Buyer           BuyerView       `json:"buyer"`
	OrderItems      []OrderItemView `json:"orderItems"`
	ShippingAddress order.Address   `json:"shippingAddress"`
	PaymentMethod   string          `json:"paymentMethod"`
	PaymentStatus   string          `json:"paymentStatus"`
	OrderStatus     string          `json:"orderStatus"`
	TrackingID      string          `json:"trackingId"`
	CourierPartner  string          `json:"courierPartner"`
	TotalPriceCents int64           `json:"totalPriceCents"`
	ExpiresAt       time.Time       `json:"expiresAt"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

func toBuyerView(b buyer.Buyer) BuyerView {
	return BuyerView{
		IsRegisteredUser: b.IsRegistered(),
		UserID:           b.UserID,
		Name:             b.Name,
		Email:            b.Email,
		Phone:            b.Phone,
	}
}

func toOrderItemViews(items []orderitem.OrderItem) []OrderItemView {
	views := make([]OrderItemView, len(items))
	for i, item := range items {
		views[i] = OrderItemView{
			ProductID:     item.ProductID,
			Name:          item.Name,
			PriceCents:    item.PriceCents,
			Quantity:      item.Quantity,
			SubtotalCents: item.SubtotalCents,
		}
	}

	return views
}

// ToOrderView converts a service layer order to its read-side shape.
func ToOrderView(o *order.Order) OrderView {
	trackingID := o.TrackingID
	if trackingID == "" {
		trackingID = notSet
	}

	courierPartner := o.CourierPartner
	if courierPartner == "" {
		courierPartner = notSet
	}

	return OrderView{
		ID:              o.ID,
		OrderID:         o.Code,
		Buyer:           toBuyerView(o.Buyer),
		OrderItems:      toOrderItemViews(o.OrderItems),
		ShippingAddress: o.ShippingAddress,
		PaymentMethod:   o.PaymentMethod.String(),
		PaymentStatus:   o.PaymentStatus.String(),
		OrderStatus:     o.Status.String(),
		TrackingID:      trackingID,
		CourierPartner:  courierPartner,
		TotalPriceCents: o.TotalPriceCents,
		ExpiresAt:       o.ExpiresAt,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}

// ToOrderViews converts a list of orders to their read-side shapes.
func ToOrderViews(orders []order.Order) []OrderView {
	views := make([]OrderView, len(orders))
	for i := range orders {
		views[i] = ToOrderView(&orders[i])
	}

	return views
}
