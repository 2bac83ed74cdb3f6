package order

import (
	"database/sql/driver"
	"errors"
	"time"

	"github.com/snowberry/order/internal/service/models/buyer"
	"github.com/snowberry/order/internal/service/models/orderitem"
)

// PaymentMethod is the gateway the customer picked at checkout.
type PaymentMethod string

const (
	PaymentMethodRazorpay PaymentMethod = "razorpay"
	PaymentMethodPhonePe  PaymentMethod = "phonepe"
)

var ErrInvalidPaymentMethod = errors.New("invalid payment method")

func (m PaymentMethod) String() string {
	return string(m)
}

func (m PaymentMethod) Value() (driver.Value, error) {
	return m.String(), nil
}

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch s {
	case PaymentMethodRazorpay.String():
		return PaymentMethodRazorpay, nil
	case PaymentMethodPhonePe.String():
		return PaymentMethodPhonePe, nil
	default:
		return "", ErrInvalidPaymentMethod
	}
}

// PaymentStatus moves Pending -> Paid on confirmation or Pending -> Failed
// on expiry. Both transitions are conditional updates so only one wins.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "Pending"
	PaymentStatusPaid    PaymentStatus = "Paid"
	PaymentStatusFailed  PaymentStatus = "Failed"
)

func (s PaymentStatus) String() string {
	return string(s)
}

// Status is the fulfillment state of an order.
type Status string

const (
	StatusPending    Status = "Pending"
	StatusProcessing Status = "Processing"
	StatusShipped    Status = "Shipped"
	StatusDelivered  Status = "Delivered"
	StatusCanceled   Status = "Canceled"
)

var ErrInvalidStatus = errors.New("invalid order status")

func (s Status) String() string {
	return string(s)
}

func ParseStatus(v string) (Status, error) {
	switch v {
	case StatusPending.String():
		return StatusPending, nil
	case StatusProcessing.String():
		return StatusProcessing, nil
	case StatusShipped.String():
		return StatusShipped, nil
	case StatusDelivered.String():
		return StatusDelivered, nil
	case StatusCanceled.String():
		return StatusCanceled, nil
	default:
		return "", ErrInvalidStatus
	}
}

// Address is the shipping destination. Every field is required.
type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zipcode string `json:"zipcode"`
	Country string `json:"country"`
}

// Complete reports whether all address fields are filled in.
func (a Address) Complete() bool {
	return a.Street != "" && a.City != "" && a.State != "" &&
		a.Zipcode != "" && a.Country != ""
}

// Order represents a placed order. Stock for every line item is reserved at
// creation time and stays reserved until the order is paid or expires.
type Order struct {
	ID              int64                 `json:"id"`
	Code            string                `json:"code"`
	Buyer           buyer.Buyer           `json:"buyer"`
	ShippingAddress Address               `json:"shippingAddress"`
	PaymentMethod   PaymentMethod         `json:"paymentMethod"`
	PaymentStatus   PaymentStatus         `json:"paymentStatus"`
	Status          Status                `json:"orderStatus"`
	TrackingID      string                `json:"trackingId,omitempty"`
	CourierPartner  string                `json:"courierPartner,omitempty"`
	TotalPriceCents int64                 `json:"totalPriceCents"`
	ExpiresAt       time.Time             `json:"expiresAt"`
	CreatedAt       time.Time             `json:"createdAt"`
	UpdatedAt       time.Time             `json:"updatedAt"`
	OrderItems      []orderitem.OrderItem `json:"orderItems"`
}
