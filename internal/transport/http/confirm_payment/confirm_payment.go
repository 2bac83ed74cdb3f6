package confirmpayment

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/snowberry/order/internal/service/models/order"
	"github.com/snowberry/order/internal/transport/http/converters"
)

// service is an interface for the service layer.
type service interface {
	ConfirmPayment(ctx context.Context, code string) (*order.Order, error)
}

// ConfirmPayment handles the payment gateway callback for an order. The
// confirmation only lands while the order is still awaiting payment; an
// expired order answers with a conflict.
func ConfirmPayment(w http.ResponseWriter, r *http.Request, service service) {
	code := chi.URLParam(r, "code")

	o, err := service.ConfirmPayment(r.Context(), code)
	if err != nil {
		switch {
		case errors.Is(err, order.ErrOrderNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, order.ErrPaymentConflict):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			http.Error(w, "Error confirming payment", http.StatusInternalServerError)
			slog.Error("Error confirming payment", "code", code, "error", err)
		}

		return
	}

	if err := json.NewEncoder(w).Encode(converters.ToOrderView(o)); err != nil {
		slog.Error("Error sending response for confirm payment", "error", err)
	}
}
