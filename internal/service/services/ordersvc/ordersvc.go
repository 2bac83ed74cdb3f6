package ordersvc

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/snowberry/order/internal/dal/interfaces/iorderitemrepo"
	"github.com/snowberry/order/internal/dal/interfaces/iorderrepo"
	"github.com/snowberry/order/internal/dal/interfaces/ioutboxrepo"
	"github.com/snowberry/order/internal/dal/interfaces/iproductrepo"
	"github.com/snowberry/order/internal/dal/interfaces/iuserrepo"
	"github.com/snowberry/order/internal/dal/postgres"
	"github.com/snowberry/order/internal/dal/uow"
	"github.com/snowberry/order/internal/service/models/buyer"
	"github.com/snowberry/order/internal/service/models/events"
	"github.com/snowberry/order/internal/service/models/order"
	"github.com/snowberry/order/internal/service/models/orderitem"
	"github.com/snowberry/order/internal/service/models/outbox"
	"github.com/snowberry/order/internal/service/models/user"
	"github.com/spf13/viper"
)

const (
	defaultPaymentTTLMinutes = 30
	defaultOutboxMaxRetries  = 5
	defaultOrdersExchange    = "orders"

	// codeInsertAttempts bounds how many times a colliding order code is
	// regenerated before the creation fails.
	codeInsertAttempts = 5

	// expireTimeout bounds the deferred expiry check fired by the
	// in-process timer.
	expireTimeout = 30 * time.Second
)

// UnitOfWork scopes repository access to one transaction.
type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	OrderRepository() iorderrepo.IOrderRepository
	OrderItemRepository() iorderitemrepo.IOrderItemRepository
	ProductRepository() iproductrepo.IProductRepository
	UserRepository() iuserrepo.IUserRepository
	OutboxRepository() ioutboxrepo.IOutboxRepository
}

// OrderService coordinates order placement, payment confirmation, expiry
// and the read side.
type OrderService struct {
	pgClient *postgres.Client
	newUOW   func() UnitOfWork

	paymentTTL       time.Duration
	ordersExchange   string
	outboxMaxRetries int
}

// option is a function that configures the OrderService.
type option func(*OrderService)

// MustNewOrderService creates a new OrderService.
func MustNewOrderService(opts ...option) *OrderService {
	paymentTTLMinutes := viper.GetInt("orders.payment_ttl_minutes")
	if paymentTTLMinutes == 0 {
		paymentTTLMinutes = defaultPaymentTTLMinutes
	}

	maxRetries := viper.GetInt("rabbitmq.outbox.max_retries")
	if maxRetries == 0 {
		maxRetries = defaultOutboxMaxRetries
	}

	exchange := viper.GetString("rabbitmq.orders_exchange")
	if exchange == "" {
		exchange = defaultOrdersExchange
	}

	s := &OrderService{
		paymentTTL:       time.Duration(paymentTTLMinutes) * time.Minute,
		ordersExchange:   exchange,
		outboxMaxRetries: maxRetries,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.newUOW == nil {
		if s.pgClient == nil {
			panic("ordersvc: either a postgres client or a unit of work factory is required")
		}
		s.newUOW = func() UnitOfWork {
			return uow.NewUnitOfWork(s.pgClient)
		}
	}

	return s
}

// WithPostgresClient sets the Postgres client for the OrderService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithPostgresClient(pgClient *postgres.Client) option {
	return func(s *OrderService) {
		s.pgClient = pgClient
	}
}

// WithUnitOfWorkFactory overrides how transactions are created.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithUnitOfWorkFactory(f func() UnitOfWork) option {
	return func(s *OrderService) {
		s.newUOW = f
	}
}

// WithPaymentTTL overrides how long an order may stay unpaid.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithPaymentTTL(ttl time.Duration) option {
	return func(s *OrderService) {
		s.paymentTTL = ttl
	}
}

// PaymentTTL returns how long an order may stay unpaid.
func (s *OrderService) PaymentTTL() time.Duration {
	return s.paymentTTL
}

// CartItem is one requested cart line.
type CartItem struct {
	ProductID int64
	Quantity  int
}

// BuyerInput carries the buyer identity from the request: a user id for
// registered customers, contact info for guests, possibly both.
type BuyerInput struct {
	UserID int64
	Name   string
	Email  string
	Phone  string
}

// CreateOrderModel is the input of CreateOrder.
type CreateOrderModel struct {
	CartItems       []CartItem
	ShippingAddress order.Address
	PaymentMethod   order.PaymentMethod
	Buyer           BuyerInput
}

// CreateOrder validates the cart, reserves stock for every line item,
// persists the order and schedules its payment expiry. Stock decrements,
// the order write and the outbox event commit or roll back together.
func (s *OrderService) CreateOrder(ctx context.Context, model CreateOrderModel) (*order.Order, error) {
	if len(model.CartItems) == 0 {
		return nil, order.ErrEmptyCart
	}
	if !model.ShippingAddress.Complete() {
		return nil, order.ErrMissingShippingAddress
	}
	if _, err := order.ParsePaymentMethod(model.PaymentMethod.String()); err != nil {
		return nil, err
	}
	for _, item := range model.CartItems {
		if item.Quantity <= 0 {
			return nil, order.ErrInvalidQuantity
		}
	}

	b, err := s.resolveBuyer(ctx, model.Buyer)
	if err != nil {
		return nil, err
	}

	var created *order.Order
	for attempt := 0; attempt < codeInsertAttempts; attempt++ {
		created, err = s.createOrderTx(ctx, model, b)
		if errors.Is(err, order.ErrDuplicateCode) {
			slog.Warn("Order code collision, retrying", "attempt", attempt+1)

			continue
		}

		break
	}
	if err != nil {
		return nil, err
	}

	s.armExpiry(created.ID)

	slog.Info("Order created",
		"order_id", created.ID,
		"code", created.Code,
		"total_price_cents", created.TotalPriceCents,
		"expires_at", created.ExpiresAt,
	)

	return created, nil
}

// resolveBuyer snapshots the buyer identity. A supplied user id whose
// lookup finds nothing degrades to a guest order built from the request's
// contact info; creation never fails on a dangling user reference.
func (s *OrderService) resolveBuyer(ctx context.Context, input BuyerInput) (buyer.Buyer, error) {
	if input.UserID == 0 {
		return buyer.Guest(input.Name, input.Email, input.Phone), nil
	}

	u, err := s.newUOW().UserRepository().GetByID(ctx, input.UserID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			slog.Warn("User not found for order, treating buyer as guest", "user_id", input.UserID)

			return buyer.Guest(input.Name, input.Email, input.Phone), nil
		}

		return buyer.Buyer{}, err
	}

	return buyer.Registered(u.ID, u.Name, u.Email, u.Phone), nil
}

// createOrderTx runs one all-or-nothing creation attempt. A duplicate order
// code aborts the whole transaction, releasing the reserved stock, and the
// caller retries with a fresh code.
func (s *OrderService) createOrderTx(
	ctx context.Context,
	model CreateOrderModel,
	b buyer.Buyer,
) (createdOrder *order.Order, err error) {
	work := s.newUOW()

	if err = work.Begin(ctx); err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			if rbErr := work.Rollback(); rbErr != nil {
				slog.Error("Failed to roll back order creation", "error", rbErr)
			}
		}
	}()

	now := time.Now()

	items := make([]orderitem.OrderItem, 0, len(model.CartItems))
	var totalPriceCents int64
	for _, cartItem := range model.CartItems {
		p, reserveErr := work.ProductRepository().ReserveStock(ctx, cartItem.ProductID, cartItem.Quantity)
		if reserveErr != nil {
			err = reserveErr

			return nil, err
		}

		subtotal := p.PriceCents * int64(cartItem.Quantity)
		totalPriceCents += subtotal

		items = append(items, orderitem.OrderItem{
			ProductID:     p.ID,
			Name:          p.Name,
			PriceCents:    p.PriceCents,
			Quantity:      cartItem.Quantity,
			SubtotalCents: subtotal,
		})
	}

	code, err := order.NewCode(now)
	if err != nil {
		return nil, err
	}

	o := &order.Order{
		Code:            code,
		Buyer:           b,
		ShippingAddress: model.ShippingAddress,
		PaymentMethod:   model.PaymentMethod,
		PaymentStatus:   order.PaymentStatusPending,
		Status:          order.StatusPending,
		TotalPriceCents: totalPriceCents,
		ExpiresAt:       now.Add(s.paymentTTL),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	o.ID, err = work.OrderRepository().Insert(ctx, o)
	if err != nil {
		return nil, err
	}

	for i := range items {
		items[i].OrderID = o.ID
	}
	o.OrderItems, err = work.OrderItemRepository().BulkInsert(ctx, items)
	if err != nil {
		return nil, err
	}

	if err = s.insertEvent(ctx, work.OutboxRepository(), events.RoutingKeyOrderCreated, o); err != nil {
		return nil, err
	}

	if err = work.Commit(); err != nil {
		return nil, err
	}

	return o, nil
}

// armExpiry schedules the deferred payment check for a freshly created
// order. The timer is in-process; orders that outlive the process are
// picked up by the expiry sweep worker via their persisted deadline.
func (s *OrderService) armExpiry(orderID int64) {
	time.AfterFunc(s.paymentTTL, func() {
		ctx, cancel := context.WithTimeout(context.Background(), expireTimeout)
		defer cancel()

		if err := s.ExpireOrder(ctx, orderID); err != nil {
			slog.Error("Deferred expiry check failed", "order_id", orderID, "error", err)
		}
	})
}

// ExpireOrder cancels an order that is still awaiting payment and returns
// its reserved stock. The conditional status update guarantees the expiry
// and a racing payment confirmation cannot both win; if the order has
// already left the pending state this is a no-op.
func (s *OrderService) ExpireOrder(ctx context.Context, orderID int64) (err error) {
	work := s.newUOW()

	if err = work.Begin(ctx); err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rbErr := work.Rollback(); rbErr != nil {
				slog.Error("Failed to roll back order expiry", "order_id", orderID, "error", rbErr)
			}
		}
	}()

	won, err := work.OrderRepository().MarkExpired(ctx, orderID)
	if err != nil {
		return err
	}
	if !won {
		if rbErr := work.Rollback(); rbErr != nil {
			slog.Error("Failed to roll back order expiry", "order_id", orderID, "error", rbErr)
		}
		slog.Info("Order no longer awaiting payment, skipping expiry", "order_id", orderID)

		return nil
	}

	items, err := work.OrderItemRepository().QueryByOrderIds(ctx, []int64{orderID})
	if err != nil {
		return err
	}

	o, err := work.OrderRepository().GetByID(ctx, orderID)
	if err != nil {
		return err
	}

	// The order.expired event commits or rolls back with the cancellation
	// itself; a failed attempt leaves the order pending for the sweep to
	// retry.
	if err = s.insertEvent(ctx, work.OutboxRepository(), events.RoutingKeyOrderExpired, o); err != nil {
		return err
	}

	if err = work.Commit(); err != nil {
		return err
	}

	// Stock restoration is best-effort and per-item: one failed product
	// must not block the rest, and a failure must not undo the committed
	// cancellation.
	restore := s.newUOW()
	for _, item := range items {
		if restoreErr := restore.ProductRepository().RestoreStock(ctx, item.ProductID, item.Quantity); restoreErr != nil {
			slog.Error("Failed to restore stock for expired order",
				"order_id", orderID,
				"product_id", item.ProductID,
				"quantity", item.Quantity,
				"error", restoreErr,
			)
		}
	}

	slog.Info("Order expired due to non-payment", "order_id", orderID, "code", o.Code)

	return nil
}

// ConfirmPayment records an external payment confirmation for the order
// with the given code. It only succeeds while the order is still awaiting
// payment; a confirmation that lost the race to the expiry timer gets
// order.ErrPaymentConflict.
func (s *OrderService) ConfirmPayment(ctx context.Context, code string) (confirmed *order.Order, err error) {
	work := s.newUOW()

	if err = work.Begin(ctx); err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			if rbErr := work.Rollback(); rbErr != nil {
				slog.Error("Failed to roll back payment confirmation", "code", code, "error", rbErr)
			}
		}
	}()

	o, err := work.OrderRepository().GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	won, err := work.OrderRepository().MarkPaid(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	if !won {
		err = order.ErrPaymentConflict

		return nil, err
	}

	o.PaymentStatus = order.PaymentStatusPaid

	// The order.paid event lands in the same transaction as the status
	// change; the gateway retries the callback if we fail here.
	if err = s.insertEvent(ctx, work.OutboxRepository(), events.RoutingKeyOrderPaid, o); err != nil {
		return nil, err
	}

	if err = work.Commit(); err != nil {
		return nil, err
	}

	slog.Info("Payment confirmed", "order_id", o.ID, "code", o.Code)

	// Reload so the response carries the persisted timestamps and line
	// items, not the pre-update snapshot.
	confirmed, reloadErr := s.OrderByID(ctx, o.ID)
	if reloadErr != nil {
		return nil, reloadErr
	}

	return confirmed, nil
}

// OverduePendingOrders lists ids of unpaid orders whose payment deadline
// passed; the expiry sweep worker resolves them one by one.
func (s *OrderService) OverduePendingOrders(ctx context.Context, limit int) ([]int64, error) {
	orders, err := s.newUOW().OrderRepository().Query(ctx, &order.QueryOrdersModel{
		PaymentPendingBefore: time.Now(),
		Limit:                limit,
	})
	if err != nil {
		return nil, err
	}

	ids := make([]int64, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}

	return ids, nil
}

func (s *OrderService) insertEvent(
	ctx context.Context,
	repo ioutboxrepo.IOutboxRepository,
	routingKey string,
	o *order.Order,
) error {
	payload, err := json.Marshal(events.OrderEvent{
		OrderID:         o.ID,
		Code:            o.Code,
		PaymentStatus:   o.PaymentStatus.String(),
		OrderStatus:     o.Status.String(),
		TotalPriceCents: o.TotalPriceCents,
		OccurredAt:      time.Now(),
	})
	if err != nil {
		return err
	}

	return repo.Insert(ctx, outbox.NewJSON(s.ordersExchange, routingKey, payload, s.outboxMaxRetries))
}
