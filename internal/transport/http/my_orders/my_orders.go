package myorders

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/snowberry/order/internal/service/models/order"
	"github.com/snowberry/order/internal/transport/http/converters"
	"github.com/snowberry/order/pkg/http/middleware/auth"
)

// service is an interface for the service layer.
type service interface {
	OrdersByUser(ctx context.Context, userID int64) ([]order.Order, error)
}

// MyOrders lists the orders of the authenticated customer.
func MyOrders(w http.ResponseWriter, r *http.Request, service service) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		http.Error(w, "Authentication required", http.StatusUnauthorized)

		return
	}

	orders, err := service.OrdersByUser(r.Context(), userID)
	if err != nil {
		http.Error(w, "Error fetching orders", http.StatusInternalServerError)
		slog.Error("Error fetching user orders", "user_id", userID, "error", err)

		return
	}

	if len(orders) == 0 {
		http.Error(w, "No orders found", http.StatusNotFound)

		return
	}

	if err := json.NewEncoder(w).Encode(converters.ToOrderViews(orders)); err != nil {
		slog.Error("Error sending response for my orders", "error", err)
	}
}
