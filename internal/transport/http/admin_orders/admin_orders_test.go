package adminorders_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/snowberry/order/internal/service/models/order"
	adminorders "github.com/snowberry/order/internal/transport/http/admin_orders"
	"github.com/snowberry/order/internal/transport/http/converters"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockService struct {
	getOrdersFunc    func(ctx context.Context, filter *order.QueryOrdersModel) ([]order.Order, error)
	orderByIDFunc    func(ctx context.Context, id int64) (*order.Order, error)
	updateStatusFunc func(ctx context.Context, id int64, status order.Status, trackingID, courierPartner string) (*order.Order, error)
}

func (m *mockService) GetOrders(ctx context.Context, filter *order.QueryOrdersModel) ([]order.Order, error) {
	return m.getOrdersFunc(ctx, filter)
}

func (m *mockService) OrderByID(ctx context.Context, id int64) (*order.Order, error) {
	return m.orderByIDFunc(ctx, id)
}

func (m *mockService) UpdateStatus(
	ctx context.Context,
	id int64,
	status order.Status,
	trackingID, courierPartner string,
) (*order.Order, error) {
	return m.updateStatusFunc(ctx, id, status, trackingID, courierPartner)
}

func newRouter(svc *mockService) http.Handler {
	r := chi.NewRouter()
	r.Get("/api/orders", func(w http.ResponseWriter, r *http.Request) {
		adminorders.ListOrders(w, r, svc)
	})
	r.Get("/api/orders/{id}", func(w http.ResponseWriter, r *http.Request) {
		adminorders.GetOrder(w, r, svc)
	})
	r.Patch("/api/orders/{id}/status", func(w http.ResponseWriter, r *http.Request) {
		adminorders.UpdateStatus(w, r, svc)
	})

	return r
}

func TestListOrders(t *testing.T) {
	t.Run("decodes_status_filter_and_paging", func(t *testing.T) {
		svc := &mockService{
			getOrdersFunc: func(_ context.Context, filter *order.QueryOrdersModel) ([]order.Order, error) {
				assert.Equal(t, []order.Status{order.StatusPending, order.StatusShipped}, filter.Statuses)
				assert.Equal(t, 20, filter.Limit)
				assert.Equal(t, 40, filter.Offset)

				return []order.Order{{ID: 1, Code: "ORD-20250829-0001"}}, nil
			},
		}

		req := httptest.NewRequest(http.MethodGet, "/api/orders?status=Pending&status=Shipped&limit=20&offset=40", nil)
		w := httptest.NewRecorder()

		newRouter(svc).ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var views []converters.OrderView
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &views))
		require.Len(t, views, 1)
		assert.Equal(t, "ORD-20250829-0001", views[0].OrderID)
	})

	t.Run("stray_query_parameters_are_ignored", func(t *testing.T) {
		svc := &mockService{
			getOrdersFunc: func(_ context.Context, filter *order.QueryOrdersModel) ([]order.Order, error) {
				assert.Equal(t, []order.Status{order.StatusPending}, filter.Statuses)

				return []order.Order{}, nil
			},
		}

		req := httptest.NewRequest(http.MethodGet, "/api/orders?status=Pending&utm_source=dashboard", nil)
		w := httptest.NewRecorder()

		newRouter(svc).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("unknown_status_is_400", func(t *testing.T) {
		svc := &mockService{
			getOrdersFunc: func(context.Context, *order.QueryOrdersModel) ([]order.Order, error) {
				t.Fatal("service must not be called for an invalid filter")

				return nil, nil
			},
		}

		req := httptest.NewRequest(http.MethodGet, "/api/orders?status=Teleported", nil)
		w := httptest.NewRecorder()

		newRouter(svc).ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestGetOrder(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		svc := &mockService{
			orderByIDFunc: func(_ context.Context, id int64) (*order.Order, error) {
				assert.Equal(t, int64(10), id)

				return &order.Order{ID: 10, Code: "ORD-20250829-0417"}, nil
			},
		}

		req := httptest.NewRequest(http.MethodGet, "/api/orders/10", nil)
		w := httptest.NewRecorder()

		newRouter(svc).ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("not_found", func(t *testing.T) {
		svc := &mockService{
			orderByIDFunc: func(context.Context, int64) (*order.Order, error) {
				return nil, order.ErrOrderNotFound
			},
		}

		req := httptest.NewRequest(http.MethodGet, "/api/orders/10", nil)
		w := httptest.NewRecorder()

		newRouter(svc).ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("non_numeric_id", func(t *testing.T) {
		svc := &mockService{}

		req := httptest.NewRequest(http.MethodGet, "/api/orders/abc", nil)
		w := httptest.NewRecorder()

		newRouter(svc).ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestUpdateStatus(t *testing.T) {
	t.Run("writes_status_and_shipping_metadata", func(t *testing.T) {
		svc := &mockService{
			updateStatusFunc: func(
				_ context.Context,
				id int64,
				status order.Status,
				trackingID, courierPartner string,
			) (*order.Order, error) {
				assert.Equal(t, int64(10), id)
				assert.Equal(t, order.StatusShipped, status)
				assert.Equal(t, "AWB123", trackingID)
				assert.Equal(t, "BlueDart", courierPartner)

				return &order.Order{
					ID:             10,
					Code:           "ORD-20250829-0417",
					Status:         order.StatusShipped,
					TrackingID:     "AWB123",
					CourierPartner: "BlueDart",
				}, nil
			},
		}

		body := `{"status": "Shipped", "trackingId": "AWB123", "courierPartner": "BlueDart"}`
		req := httptest.NewRequest(http.MethodPatch, "/api/orders/10/status", strings.NewReader(body))
		w := httptest.NewRecorder()

		newRouter(svc).ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var view converters.OrderView
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
		assert.Equal(t, "Shipped", view.OrderStatus)
		assert.Equal(t, "AWB123", view.TrackingID)
	})

	t.Run("invalid_status_is_400", func(t *testing.T) {
		svc := &mockService{}

		body := `{"status": "Lost"}`
		req := httptest.NewRequest(http.MethodPatch, "/api/orders/10/status", strings.NewReader(body))
		w := httptest.NewRecorder()

		newRouter(svc).ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown_order_is_404", func(t *testing.T) {
		svc := &mockService{
			updateStatusFunc: func(context.Context, int64, order.Status, string, string) (*order.Order, error) {
				return nil, order.ErrOrderNotFound
			},
		}

		body := `{"status": "Shipped"}`
		req := httptest.NewRequest(http.MethodPatch, "/api/orders/10/status", strings.NewReader(body))
		w := httptest.NewRecorder()

		newRouter(svc).ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
