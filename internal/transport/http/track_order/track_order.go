package trackorder

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/snowberry/order/internal/service/models/order"
	"github.com/snowberry/order/internal/transport/http/converters"
)

// service is an interface for the service layer.
type service interface {
	TrackOrders(ctx context.Context, email, phone, code string) ([]order.Order, error)
}

// trackOrderRequest represents a guest tracking request. The order id is
// the customer-facing code and optional; without it all orders matching
// the contact info are returned.
type trackOrderRequest struct {
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	OrderID string `json:"orderId,omitempty"`
}

// TrackOrder handles the guest order tracking request.
func TrackOrder(w http.ResponseWriter, r *http.Request, service service) {
	req := trackOrderRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error decoding request body for track order", "error", err)

		return
	}

	if req.Email == "" || req.Phone == "" {
		http.Error(w, "Email and phone are required", http.StatusBadRequest)

		return
	}

	orders, err := service.TrackOrders(r.Context(), req.Email, req.Phone, req.OrderID)
	if err != nil {
		http.Error(w, "Error tracking orders", http.StatusInternalServerError)
		slog.Error("Error tracking orders", "error", err)

		return
	}

	if len(orders) == 0 {
		http.Error(w, "No orders found", http.StatusNotFound)

		return
	}

	if err := json.NewEncoder(w).Encode(converters.ToOrderViews(orders)); err != nil {
		slog.Error("Error sending response for track order", "error", err)
	}
}
