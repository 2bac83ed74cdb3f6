package createorder

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/snowberry/order/internal/service/models/order"
	"github.com/snowberry/order/internal/service/models/product"
	"github.com/snowberry/order/internal/service/services/ordersvc"
	"github.com/snowberry/order/pkg/http/middleware/auth"
)

// service is an interface for the service layer.
type service interface {
	CreateOrder(ctx context.Context, model ordersvc.CreateOrderModel) (*order.Order, error)
}

// validate is shared across requests; struct tags are parsed once.
var validate = validator.New()

// itemInCreateOrderRequest represents a cart line in a create order request.
type itemInCreateOrderRequest struct {
	ProductID int64 `json:"productId" validate:"gt=0"`
	Quantity  int   `json:"quantity"  validate:"gt=0"`
}

// addressInCreateOrderRequest represents the shipping address.
type addressInCreateOrderRequest struct {
	Street  string `json:"street"  validate:"required"`
	City    string `json:"city"    validate:"required"`
	State   string `json:"state"   validate:"required"`
	Zipcode string `json:"zipcode" validate:"required"`
	Country string `json:"country" validate:"required"`
}

// userInfoInCreateOrderRequest carries guest contact info for checkouts
// without an authenticated principal.
type userInfoInCreateOrderRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// createOrderRequest represents a create order request.
type createOrderRequest struct {
	CartItems       []itemInCreateOrderRequest    `json:"cartItems"`
	ShippingAddress *addressInCreateOrderRequest  `json:"shippingAddress"`
	PaymentMethod   string                        `json:"paymentMethod"`
	UserID          int64                         `json:"userId,omitempty"`
	UserInfo        *userInfoInCreateOrderRequest `json:"userInfo,omitempty"`
}

// createOrderResponse returns the customer-facing order code.
type createOrderResponse struct {
	Message string `json:"message"`
	OrderID string `json:"orderId"`
}

func (r *createOrderRequest) toModel(ctx context.Context) ordersvc.CreateOrderModel {
	model := ordersvc.CreateOrderModel{
		PaymentMethod: order.PaymentMethod(r.PaymentMethod),
	}

	for _, item := range r.CartItems {
		model.CartItems = append(model.CartItems, ordersvc.CartItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}

	if r.ShippingAddress != nil {
		model.ShippingAddress = order.Address{
			Street:  r.ShippingAddress.Street,
			City:    r.ShippingAddress.City,
			State:   r.ShippingAddress.State,
			Zipcode: r.ShippingAddress.Zipcode,
			Country: r.ShippingAddress.Country,
		}
	}

	// The authenticated principal wins over a user id in the body.
	model.Buyer.UserID = r.UserID
	if userID, ok := auth.UserID(ctx); ok {
		model.Buyer.UserID = userID
	}
	if r.UserInfo != nil {
		model.Buyer.Name = r.UserInfo.Name
		model.Buyer.Email = r.UserInfo.Email
		model.Buyer.Phone = r.UserInfo.Phone
	}

	return model
}

// CreateOrder handles the create order request.
func CreateOrder(w http.ResponseWriter, r *http.Request, service service) {
	req := createOrderRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error decoding request body for create order", "error", err)

		return
	}

	if len(req.CartItems) == 0 {
		http.Error(w, "Cart is empty", http.StatusBadRequest)

		return
	}

	if req.ShippingAddress == nil || req.PaymentMethod == "" {
		http.Error(w, "Shipping address and payment method are required", http.StatusUnprocessableEntity)

		return
	}

	if err := validate.Struct(&req); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		slog.Error("Error validating request body for create order", "error", err)

		return
	}

	created, err := service.CreateOrder(r.Context(), req.toModel(r.Context()))
	if err != nil {
		writeError(w, err)

		return
	}

	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(createOrderResponse{
		Message: "Order created successfully",
		OrderID: created.Code,
	}); err != nil {
		slog.Error("Error sending response for create order", "error", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	var notFound *product.NotFoundError
	var insufficient *product.InsufficientStockError

	switch {
	case errors.Is(err, order.ErrEmptyCart) || errors.Is(err, order.ErrInvalidQuantity):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, order.ErrMissingShippingAddress) || errors.Is(err, order.ErrInvalidPaymentMethod):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.As(err, &notFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.As(err, &insufficient):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, "Error creating order", http.StatusInternalServerError)
		slog.Error("Error creating order", "error", err)
	}
}
