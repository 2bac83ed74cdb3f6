package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/snowberry/order/internal/service/models/order"
	"github.com/snowberry/order/internal/service/services/ordersvc"
	adminorders "github.com/snowberry/order/internal/transport/http/admin_orders"
	confirmpayment "github.com/snowberry/order/internal/transport/http/confirm_payment"
	createorder "github.com/snowberry/order/internal/transport/http/create_order"
	myorders "github.com/snowberry/order/internal/transport/http/my_orders"
	trackorder "github.com/snowberry/order/internal/transport/http/track_order"
	"github.com/snowberry/order/pkg/http/middleware/auth"
	"github.com/snowberry/order/pkg/http/middleware/trace"
	"github.com/snowberry/order/pkg/logger"
	"github.com/spf13/viper"
)

type service interface {
	CreateOrder(ctx context.Context, model ordersvc.CreateOrderModel) (*order.Order, error)
	ConfirmPayment(ctx context.Context, code string) (*order.Order, error)
	TrackOrders(ctx context.Context, email, phone, code string) ([]order.Order, error)
	OrdersByUser(ctx context.Context, userID int64) ([]order.Order, error)
	GetOrders(ctx context.Context, filter *order.QueryOrdersModel) ([]order.Order, error)
	OrderByID(ctx context.Context, id int64) (*order.Order, error)
	UpdateStatus(ctx context.Context, id int64, status order.Status, trackingID, courierPartner string) (*order.Order, error)
}

type HTTPTransport struct {
	server  *http.Server
	router  *chi.Mux
	service service
}

func NewHTTPTransport(service service) *HTTPTransport {
	router := newRouter()
	server := newServer(router)
	return &HTTPTransport{
		server:  server,
		router:  router,
		service: service,
	}
}

func (h *HTTPTransport) Run() error {
	return h.server.ListenAndServe()
}

func (h *HTTPTransport) Shutdown(ctx context.Context) error {
	return h.server.Shutdown(ctx)
}

// RegisterRoutes registers the routes for the HTTPTransport.
func (h *HTTPTransport) RegisterRoutes() {
	h.router.Route("/api/orders", func(r chi.Router) {
		r.Post("/create-order", h.createOrder)
		r.Post("/track-order", h.trackOrder)
		r.Get("/my-orders", h.myOrders)
		r.Get("/", h.listOrders)
		r.Get("/{id}", h.getOrder)
		r.Patch("/{id}/status", h.updateStatus)
		r.Post("/{code}/payment", h.confirmPayment)
	})
}

func (h *HTTPTransport) createOrder(w http.ResponseWriter, r *http.Request) {
	createorder.CreateOrder(w, r, h.service)
}

func (h *HTTPTransport) trackOrder(w http.ResponseWriter, r *http.Request) {
	trackorder.TrackOrder(w, r, h.service)
}

func (h *HTTPTransport) myOrders(w http.ResponseWriter, r *http.Request) {
	myorders.MyOrders(w, r, h.service)
}

func (h *HTTPTransport) listOrders(w http.ResponseWriter, r *http.Request) {
	adminorders.ListOrders(w, r, h.service)
}

func (h *HTTPTransport) getOrder(w http.ResponseWriter, r *http.Request) {
	adminorders.GetOrder(w, r, h.service)
}

func (h *HTTPTransport) updateStatus(w http.ResponseWriter, r *http.Request) {
	adminorders.UpdateStatus(w, r, h.service)
}

func (h *HTTPTransport) confirmPayment(w http.ResponseWriter, r *http.Request) {
	confirmpayment.ConfirmPayment(w, r, h.service)
}

func newRouter() *chi.Mux {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(logger.NewLoggerMiddleware(slog.Default()))
	router.Use(trace.NewTraceMiddleware)
	router.Use(auth.NewPrincipalMiddleware)

	allowedOrigins := viper.GetStringSlice("server.http.cors.allowed_origins")
	allowedMethods := viper.GetStringSlice("server.http.cors.allowed_methods")
	allowedHeaders := viper.GetStringSlice("server.http.cors.allowed_headers")
	exposedHeaders := viper.GetStringSlice("server.http.cors.exposed_headers")
	allowCredentials := viper.GetBool("server.http.cors.allow_credentials")
	maxAge := viper.GetInt("server.http.cors.max_age")

	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   allowedMethods,
		AllowedHeaders:   allowedHeaders,
		ExposedHeaders:   exposedHeaders,
		AllowCredentials: allowCredentials,
		MaxAge:           maxAge,
	})

	router.Use(c.Handler)

	return router
}

func newServer(router http.Handler) *http.Server {
	return &http.Server{
		Addr:    "0.0.0.0:" + viper.GetString("server.http.port"),
		Handler: router,
	}
}
