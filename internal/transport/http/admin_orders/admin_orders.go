package adminorders

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/schema"
	"github.com/snowberry/order/internal/service/models/order"
	"github.com/snowberry/order/internal/transport/http/converters"
)

// service is an interface for the service layer.
type service interface {
	GetOrders(ctx context.Context, filter *order.QueryOrdersModel) ([]order.Order, error)
	OrderByID(ctx context.Context, id int64) (*order.Order, error)
	UpdateStatus(ctx context.Context, id int64, status order.Status, trackingID, courierPartner string) (*order.Order, error)
}

// queryDecoder is shared across requests. Unknown query parameters are
// ignored rather than rejected.
var queryDecoder = newQueryDecoder()

func newQueryDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)

	return d
}

// queryOrdersRequest represents the admin list filter.
type queryOrdersRequest struct {
	Statuses []string `schema:"status,omitempty"`
	Limit    int      `schema:"limit,omitempty"`
	Offset   int      `schema:"offset,omitempty"`
}

func (q *queryOrdersRequest) toModel() (*order.QueryOrdersModel, error) {
	filter := &order.QueryOrdersModel{
		Limit:  q.Limit,
		Offset: q.Offset,
	}

	for _, raw := range q.Statuses {
		status, err := order.ParseStatus(raw)
		if err != nil {
			return nil, err
		}
		filter.Statuses = append(filter.Statuses, status)
	}

	return filter, nil
}

// ListOrders handles the admin order listing request.
func ListOrders(w http.ResponseWriter, r *http.Request, service service) {
	query := &queryOrdersRequest{}
	if err := queryDecoder.Decode(query, r.URL.Query()); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error decoding request for list orders", "error", err)

		return
	}

	filter, err := query.toModel()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)

		return
	}

	orders, err := service.GetOrders(r.Context(), filter)
	if err != nil {
		http.Error(w, "Error fetching orders", http.StatusInternalServerError)
		slog.Error("Error fetching orders", "error", err)

		return
	}

	if err := json.NewEncoder(w).Encode(converters.ToOrderViews(orders)); err != nil {
		slog.Error("Error sending response for list orders", "error", err)
	}
}

// GetOrder handles the admin single order fetch.
func GetOrder(w http.ResponseWriter, r *http.Request, service service) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid order id", http.StatusBadRequest)

		return
	}

	o, err := service.OrderByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)

			return
		}

		http.Error(w, "Error fetching order", http.StatusInternalServerError)
		slog.Error("Error fetching order", "order_id", id, "error", err)

		return
	}

	if err := json.NewEncoder(w).Encode(converters.ToOrderView(o)); err != nil {
		slog.Error("Error sending response for get order", "error", err)
	}
}

// updateStatusRequest represents the fulfillment status update.
type updateStatusRequest struct {
	Status         string `json:"status"`
	TrackingID     string `json:"trackingId,omitempty"`
	CourierPartner string `json:"courierPartner,omitempty"`
}

// UpdateStatus handles the admin status update request.
func UpdateStatus(w http.ResponseWriter, r *http.Request, service service) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid order id", http.StatusBadRequest)

		return
	}

	req := updateStatusRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error decoding request body for update status", "error", err)

		return
	}

	status, err := order.ParseStatus(req.Status)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)

		return
	}

	o, err := service.UpdateStatus(r.Context(), id, status, req.TrackingID, req.CourierPartner)
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)

			return
		}

		http.Error(w, "Error updating order status", http.StatusInternalServerError)
		slog.Error("Error updating order status", "order_id", id, "error", err)

		return
	}

	if err := json.NewEncoder(w).Encode(converters.ToOrderView(o)); err != nil {
		slog.Error("Error sending response for update status", "error", err)
	}
}
