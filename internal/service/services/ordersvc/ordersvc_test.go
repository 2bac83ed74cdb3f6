package ordersvc_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/snowberry/order/internal/dal/interfaces/iorderitemrepo"
	"github.com/snowberry/order/internal/dal/interfaces/iorderrepo"
	"github.com/snowberry/order/internal/dal/interfaces/ioutboxrepo"
	"github.com/snowberry/order/internal/dal/interfaces/iproductrepo"
	"github.com/snowberry/order/internal/dal/interfaces/iuserrepo"
	"github.com/snowberry/order/internal/service/models/buyer"
	"github.com/snowberry/order/internal/service/models/order"
	"github.com/snowberry/order/internal/service/models/orderitem"
	"github.com/snowberry/order/internal/service/models/outbox"
	"github.com/snowberry/order/internal/service/models/product"
	"github.com/snowberry/order/internal/service/models/user"
	"github.com/snowberry/order/internal/service/services/ordersvc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is an in-memory stand-in for Postgres. A unit of work holds the
// store lock from Begin to Commit/Rollback, which models row-level
// serialization of concurrent transactions, and Rollback restores the
// pre-transaction snapshot so all-or-nothing semantics are observable.
type fakeStore struct {
	mu       sync.Mutex
	products map[int64]*product.Product
	users    map[int64]*user.User
	orders   map[int64]*order.Order
	items    map[int64][]orderitem.OrderItem
	outbox   []outbox.Message
	nextID   int64

	// Failure injection, each counts down per call.
	dupCodeInserts    int
	failOutboxInserts int
}

var errOutboxDown = errors.New("outbox unavailable")

func newFakeStore() *fakeStore {
	return &fakeStore{
		products: make(map[int64]*product.Product),
		users:    make(map[int64]*user.User),
		orders:   make(map[int64]*order.Order),
		items:    make(map[int64][]orderitem.OrderItem),
	}
}

func (s *fakeStore) stock(id int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.products[id].AvailableStock
}

func (s *fakeStore) routingKeys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, len(s.outbox))
	for i, m := range s.outbox {
		keys[i] = m.RoutingKey
	}

	return keys
}

func (s *fakeStore) order(id int64) order.Order {
	s.mu.Lock()
	defer s.mu.Unlock()

	o := *s.orders[id]
	o.OrderItems = s.items[id]

	return o
}

type fakeUOW struct {
	store *fakeStore
	inTx  bool

	stockSnap  map[int64]int
	orderSnap  map[int64]order.Order
	outboxSnap int
}

func (u *fakeUOW) Begin(_ context.Context) error {
	u.store.mu.Lock()
	u.inTx = true

	u.stockSnap = make(map[int64]int, len(u.store.products))
	for id, p := range u.store.products {
		u.stockSnap[id] = p.AvailableStock
	}
	u.orderSnap = make(map[int64]order.Order, len(u.store.orders))
	for id, o := range u.store.orders {
		u.orderSnap[id] = *o
	}
	u.outboxSnap = len(u.store.outbox)

	return nil
}

func (u *fakeUOW) Commit() error {
	if u.inTx {
		u.inTx = false
		u.store.mu.Unlock()
	}

	return nil
}

func (u *fakeUOW) Rollback() error {
	if !u.inTx {
		return nil
	}

	for id, stock := range u.stockSnap {
		u.store.products[id].AvailableStock = stock
	}
	for id := range u.store.orders {
		if _, existed := u.orderSnap[id]; !existed {
			delete(u.store.orders, id)
			delete(u.store.items, id)
		}
	}
	for id, snap := range u.orderSnap {
		restored := snap
		u.store.orders[id] = &restored
	}
	u.store.outbox = u.store.outbox[:u.outboxSnap]

	u.inTx = false
	u.store.mu.Unlock()

	return nil
}

// lock acquires the store lock for a standalone repository call outside a
// transaction.
func (u *fakeUOW) lock() func() {
	if u.inTx {
		return func() {}
	}
	u.store.mu.Lock()

	return u.store.mu.Unlock
}

type fakeOrderRepo struct{ u *fakeUOW }

func (r fakeOrderRepo) Insert(_ context.Context, o *order.Order) (int64, error) {
	defer r.u.lock()()

	if r.u.store.dupCodeInserts > 0 {
		r.u.store.dupCodeInserts--

		return 0, order.ErrDuplicateCode
	}

	for _, existing := range r.u.store.orders {
		if existing.Code == o.Code {
			return 0, order.ErrDuplicateCode
		}
	}

	r.u.store.nextID++
	saved := *o
	saved.ID = r.u.store.nextID
	r.u.store.orders[saved.ID] = &saved

	return saved.ID, nil
}

func (r fakeOrderRepo) GetByID(_ context.Context, id int64) (*order.Order, error) {
	defer r.u.lock()()

	o, ok := r.u.store.orders[id]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	found := *o

	return &found, nil
}

func (r fakeOrderRepo) GetByCode(_ context.Context, code string) (*order.Order, error) {
	defer r.u.lock()()

	for _, o := range r.u.store.orders {
		if o.Code == code {
			found := *o

			return &found, nil
		}
	}

	return nil, order.ErrOrderNotFound
}

func (r fakeOrderRepo) Query(_ context.Context, filter *order.QueryOrdersModel) ([]order.Order, error) {
	defer r.u.lock()()

	var result []order.Order
	for _, o := range r.u.store.orders {
		if filter.Email != "" && o.Buyer.Email != filter.Email {
			continue
		}
		if filter.Phone != "" && o.Buyer.Phone != filter.Phone {
			continue
		}
		if len(filter.UserIds) > 0 && (!o.Buyer.IsRegistered() || o.Buyer.UserID != filter.UserIds[0]) {
			continue
		}
		if len(filter.Codes) > 0 && o.Code != filter.Codes[0] {
			continue
		}
		if !filter.PaymentPendingBefore.IsZero() {
			if o.PaymentStatus != order.PaymentStatusPending || o.ExpiresAt.After(filter.PaymentPendingBefore) {
				continue
			}
		}
		result = append(result, *o)
	}

	return result, nil
}

func (r fakeOrderRepo) MarkExpired(_ context.Context, id int64) (bool, error) {
	defer r.u.lock()()

	o, ok := r.u.store.orders[id]
	if !ok || o.PaymentStatus != order.PaymentStatusPending {
		return false, nil
	}
	o.PaymentStatus = order.PaymentStatusFailed
	o.Status = order.StatusCanceled
	o.UpdatedAt = time.Now()

	return true, nil
}

func (r fakeOrderRepo) MarkPaid(_ context.Context, id int64) (bool, error) {
	defer r.u.lock()()

	o, ok := r.u.store.orders[id]
	if !ok || o.PaymentStatus != order.PaymentStatusPending {
		return false, nil
	}
	o.PaymentStatus = order.PaymentStatusPaid
	o.UpdatedAt = time.Now()

	return true, nil
}

func (r fakeOrderRepo) UpdateStatus(_ context.Context, id int64, status order.Status, trackingID, courierPartner string) error {
	defer r.u.lock()()

	o, ok := r.u.store.orders[id]
	if !ok {
		return order.ErrOrderNotFound
	}
	o.Status = status
	if trackingID != "" {
		o.TrackingID = trackingID
	}
	if courierPartner != "" {
		o.CourierPartner = courierPartner
	}

	return nil
}

type fakeOrderItemRepo struct{ u *fakeUOW }

func (r fakeOrderItemRepo) BulkInsert(_ context.Context, items []orderitem.OrderItem) ([]orderitem.OrderItem, error) {
	defer r.u.lock()()

	for i := range items {
		r.u.store.nextID++
		items[i].ID = r.u.store.nextID
		r.u.store.items[items[i].OrderID] = append(r.u.store.items[items[i].OrderID], items[i])
	}

	return items, nil
}

func (r fakeOrderItemRepo) QueryByOrderIds(_ context.Context, orderIds []int64) ([]orderitem.OrderItem, error) {
	defer r.u.lock()()

	var result []orderitem.OrderItem
	for _, id := range orderIds {
		result = append(result, r.u.store.items[id]...)
	}

	return result, nil
}

type fakeProductRepo struct{ u *fakeUOW }

func (r fakeProductRepo) GetByID(_ context.Context, id int64) (*product.Product, error) {
	defer r.u.lock()()

	p, ok := r.u.store.products[id]
	if !ok {
		return nil, &product.NotFoundError{ProductID: id}
	}
	found := *p

	return &found, nil
}

func (r fakeProductRepo) ReserveStock(_ context.Context, id int64, quantity int) (*product.Product, error) {
	defer r.u.lock()()

	p, ok := r.u.store.products[id]
	if !ok {
		return nil, &product.NotFoundError{ProductID: id}
	}
	if p.AvailableStock < quantity {
		return nil, &product.InsufficientStockError{
			ProductID: id,
			Name:      p.Name,
			Requested: quantity,
			Available: p.AvailableStock,
		}
	}
	p.AvailableStock -= quantity
	reserved := *p

	return &reserved, nil
}

func (r fakeProductRepo) RestoreStock(_ context.Context, id int64, quantity int) error {
	defer r.u.lock()()

	p, ok := r.u.store.products[id]
	if !ok {
		return &product.NotFoundError{ProductID: id}
	}
	p.AvailableStock += quantity

	return nil
}

type fakeUserRepo struct{ u *fakeUOW }

func (r fakeUserRepo) GetByID(_ context.Context, id int64) (*user.User, error) {
	defer r.u.lock()()

	found, ok := r.u.store.users[id]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	u := *found

	return &u, nil
}

type fakeOutboxRepo struct{ u *fakeUOW }

func (r fakeOutboxRepo) Insert(_ context.Context, msg outbox.Message) error {
	defer r.u.lock()()

	if r.u.store.failOutboxInserts > 0 {
		r.u.store.failOutboxInserts--

		return errOutboxDown
	}

	r.u.store.outbox = append(r.u.store.outbox, msg)

	return nil
}

func (r fakeOutboxRepo) GetPendingMessages(_ context.Context, _ int) ([]outbox.Message, error) {
	return nil, nil
}

func (r fakeOutboxRepo) Delete(_ context.Context, _ int64) error { return nil }

func (r fakeOutboxRepo) UpdateRetry(_ context.Context, _ int64, _ int, _ string, _ time.Time) error {
	return nil
}

func (u *fakeUOW) OrderRepository() iorderrepo.IOrderRepository { return fakeOrderRepo{u} }

func (u *fakeUOW) OrderItemRepository() iorderitemrepo.IOrderItemRepository {
	return fakeOrderItemRepo{u}
}

func (u *fakeUOW) ProductRepository() iproductrepo.IProductRepository { return fakeProductRepo{u} }
func (u *fakeUOW) UserRepository() iuserrepo.IUserRepository          { return fakeUserRepo{u} }
func (u *fakeUOW) OutboxRepository() ioutboxrepo.IOutboxRepository    { return fakeOutboxRepo{u} }

func newService(t *testing.T, store *fakeStore) *ordersvc.OrderService {
	t.Helper()

	return ordersvc.MustNewOrderService(
		ordersvc.WithUnitOfWorkFactory(func() ordersvc.UnitOfWork {
			return &fakeUOW{store: store}
		}),
		// Long enough that the in-process expiry timer never fires during
		// a test; expiry paths are driven explicitly.
		ordersvc.WithPaymentTTL(time.Hour),
	)
}

func validModel() ordersvc.CreateOrderModel {
	return ordersvc.CreateOrderModel{
		CartItems: []ordersvc.CartItem{{ProductID: 1, Quantity: 2}},
		ShippingAddress: order.Address{
			Street:  "12 Orchard Lane",
			City:    "Pune",
			State:   "MH",
			Zipcode: "411001",
			Country: "IN",
		},
		PaymentMethod: order.PaymentMethodRazorpay,
		Buyer: ordersvc.BuyerInput{
			Name:  "Asha",
			Email: "a@b.com",
			Phone: "123",
		},
	}
}

func TestOrderService_CreateOrder(t *testing.T) {
	t.Run("reserves_stock_and_totals_line_items", func(t *testing.T) {
		store := newFakeStore()
		store.products[1] = &product.Product{ID: 1, Name: "Snow Apples 1kg", PriceCents: 1000, AvailableStock: 5}

		svc := newService(t, store)

		created, err := svc.CreateOrder(context.Background(), validModel())
		require.NoError(t, err)

		assert.Regexp(t, order.CodePattern, created.Code)
		assert.Equal(t, int64(2000), created.TotalPriceCents)
		assert.Equal(t, order.StatusPending, created.Status)
		assert.Equal(t, order.PaymentStatusPending, created.PaymentStatus)
		assert.Equal(t, 3, store.stock(1))

		require.Len(t, created.OrderItems, 1)
		item := created.OrderItems[0]
		assert.Equal(t, "Snow Apples 1kg", item.Name)
		assert.Equal(t, int64(2000), item.SubtotalCents)
		assert.Equal(t, item.SubtotalCents, created.TotalPriceCents)

		// One order.created event staged for the outbox worker.
		require.Len(t, store.outbox, 1)
		assert.Equal(t, "order.created", store.outbox[0].RoutingKey)
	})

	t.Run("validation", func(t *testing.T) {
		tests := []struct {
			name      string
			mutate    func(*ordersvc.CreateOrderModel)
			wantErrIs error
		}{
			{
				name:      "empty_cart",
				mutate:    func(m *ordersvc.CreateOrderModel) { m.CartItems = nil },
				wantErrIs: order.ErrEmptyCart,
			},
			{
				name:      "incomplete_address",
				mutate:    func(m *ordersvc.CreateOrderModel) { m.ShippingAddress.City = "" },
				wantErrIs: order.ErrMissingShippingAddress,
			},
			{
				name:      "unknown_payment_method",
				mutate:    func(m *ordersvc.CreateOrderModel) { m.PaymentMethod = "cash" },
				wantErrIs: order.ErrInvalidPaymentMethod,
			},
			{
				name:      "non_positive_quantity",
				mutate:    func(m *ordersvc.CreateOrderModel) { m.CartItems[0].Quantity = 0 },
				wantErrIs: order.ErrInvalidQuantity,
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				store := newFakeStore()
				store.products[1] = &product.Product{ID: 1, Name: "Snow Apples 1kg", PriceCents: 1000, AvailableStock: 5}

				model := validModel()
				tt.mutate(&model)

				_, err := newService(t, store).CreateOrder(context.Background(), model)
				assert.ErrorIs(t, err, tt.wantErrIs)
				// Validation failures never touch stock.
				assert.Equal(t, 5, store.stock(1))
			})
		}
	})

	t.Run("rolls_back_earlier_reservations_on_failure", func(t *testing.T) {
		store := newFakeStore()
		store.products[1] = &product.Product{ID: 1, Name: "Snow Apples 1kg", PriceCents: 1000, AvailableStock: 5}
		store.products[2] = &product.Product{ID: 2, Name: "Berry Jam", PriceCents: 450, AvailableStock: 1}

		model := validModel()
		model.CartItems = []ordersvc.CartItem{
			{ProductID: 1, Quantity: 2},
			{ProductID: 2, Quantity: 3},
		}

		_, err := newService(t, store).CreateOrder(context.Background(), model)

		var insufficient *product.InsufficientStockError
		require.ErrorAs(t, err, &insufficient)
		assert.Equal(t, int64(2), insufficient.ProductID)
		assert.Equal(t, "Berry Jam", insufficient.Name)

		// The first item's decrement must not survive the rollback.
		assert.Equal(t, 5, store.stock(1))
		assert.Equal(t, 1, store.stock(2))
		assert.Empty(t, store.orders)
		assert.Empty(t, store.outbox)
	})

	t.Run("unknown_product_fails_whole_order", func(t *testing.T) {
		store := newFakeStore()
		store.products[1] = &product.Product{ID: 1, Name: "Snow Apples 1kg", PriceCents: 1000, AvailableStock: 5}

		model := validModel()
		model.CartItems = append(model.CartItems, ordersvc.CartItem{ProductID: 99, Quantity: 1})

		_, err := newService(t, store).CreateOrder(context.Background(), model)

		var notFound *product.NotFoundError
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, int64(99), notFound.ProductID)
		assert.Equal(t, 5, store.stock(1))
	})

	t.Run("concurrent_orders_cannot_oversell_last_unit", func(t *testing.T) {
		store := newFakeStore()
		store.products[1] = &product.Product{ID: 1, Name: "Snow Apples 1kg", PriceCents: 1000, AvailableStock: 1}

		svc := newService(t, store)

		model := validModel()
		model.CartItems = []ordersvc.CartItem{{ProductID: 1, Quantity: 1}}

		errs := make(chan error, 2)
		var wg sync.WaitGroup
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := svc.CreateOrder(context.Background(), model)
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)

		var succeeded, rejected int
		for err := range errs {
			if err == nil {
				succeeded++
				continue
			}
			var insufficient *product.InsufficientStockError
			require.ErrorAs(t, err, &insufficient)
			rejected++
		}

		assert.Equal(t, 1, succeeded)
		assert.Equal(t, 1, rejected)
		assert.Equal(t, 0, store.stock(1))
	})

	t.Run("regenerates_code_on_collision", func(t *testing.T) {
		store := newFakeStore()
		store.products[1] = &product.Product{ID: 1, Name: "Snow Apples 1kg", PriceCents: 1000, AvailableStock: 5}
		store.dupCodeInserts = 1

		created, err := newService(t, store).CreateOrder(context.Background(), validModel())
		require.NoError(t, err)

		assert.Regexp(t, order.CodePattern, created.Code)
		assert.Equal(t, 3, store.stock(1))
		assert.Equal(t, []string{"order.created"}, store.routingKeys())
	})

	t.Run("gives_up_after_repeated_collisions", func(t *testing.T) {
		store := newFakeStore()
		store.products[1] = &product.Product{ID: 1, Name: "Snow Apples 1kg", PriceCents: 1000, AvailableStock: 5}
		store.dupCodeInserts = 5

		_, err := newService(t, store).CreateOrder(context.Background(), validModel())
		assert.ErrorIs(t, err, order.ErrDuplicateCode)

		// Every attempt rolled back in full.
		assert.Equal(t, 5, store.stock(1))
		assert.Empty(t, store.orders)
		assert.Empty(t, store.outbox)
	})

	t.Run("registered_buyer_snapshot", func(t *testing.T) {
		store := newFakeStore()
		store.products[1] = &product.Product{ID: 1, Name: "Snow Apples 1kg", PriceCents: 1000, AvailableStock: 5}
		store.users[7] = &user.User{ID: 7, Name: "Ravi", Email: "ravi@example.com", Phone: "999"}

		model := validModel()
		model.Buyer = ordersvc.BuyerInput{UserID: 7}

		created, err := newService(t, store).CreateOrder(context.Background(), model)
		require.NoError(t, err)

		assert.Equal(t, buyer.KindRegistered, created.Buyer.Kind)
		assert.Equal(t, int64(7), created.Buyer.UserID)
		assert.Equal(t, "Ravi", created.Buyer.Name)
		assert.Equal(t, "ravi@example.com", created.Buyer.Email)
	})

	t.Run("dangling_user_id_degrades_to_guest", func(t *testing.T) {
		store := newFakeStore()
		store.products[1] = &product.Product{ID: 1, Name: "Snow Apples 1kg", PriceCents: 1000, AvailableStock: 5}

		model := validModel()
		model.Buyer.UserID = 42 // no such user

		created, err := newService(t, store).CreateOrder(context.Background(), model)
		require.NoError(t, err)

		assert.Equal(t, buyer.KindGuest, created.Buyer.Kind)
		assert.Zero(t, created.Buyer.UserID)
		assert.Equal(t, "Asha", created.Buyer.Name)
	})
}

func TestOrderService_ExpireOrder(t *testing.T) {
	t.Run("cancels_unpaid_order_and_restores_stock", func(t *testing.T) {
		store := newFakeStore()
		store.products[1] = &product.Product{ID: 1, Name: "Snow Apples 1kg", PriceCents: 1000, AvailableStock: 5}

		svc := newService(t, store)

		created, err := svc.CreateOrder(context.Background(), validModel())
		require.NoError(t, err)
		require.Equal(t, 3, store.stock(1))

		require.NoError(t, svc.ExpireOrder(context.Background(), created.ID))

		expired := store.order(created.ID)
		assert.Equal(t, order.StatusCanceled, expired.Status)
		assert.Equal(t, order.PaymentStatusFailed, expired.PaymentStatus)
		assert.Equal(t, 5, store.stock(1))
		assert.Equal(t, []string{"order.created", "order.expired"}, store.routingKeys())
	})

	t.Run("failed_event_write_leaves_the_order_pending", func(t *testing.T) {
		store := newFakeStore()
		store.products[1] = &product.Product{ID: 1, Name: "Snow Apples 1kg", PriceCents: 1000, AvailableStock: 5}

		svc := newService(t, store)

		created, err := svc.CreateOrder(context.Background(), validModel())
		require.NoError(t, err)

		// The cancellation and its event commit together: if the event
		// cannot be staged the whole expiry rolls back and the sweep
		// retries later.
		store.failOutboxInserts = 1
		require.Error(t, svc.ExpireOrder(context.Background(), created.ID))

		pending := store.order(created.ID)
		assert.Equal(t, order.StatusPending, pending.Status)
		assert.Equal(t, order.PaymentStatusPending, pending.PaymentStatus)
		assert.Equal(t, 3, store.stock(1))
		assert.Equal(t, []string{"order.created"}, store.routingKeys())

		// The retry succeeds once the outbox is reachable again.
		require.NoError(t, svc.ExpireOrder(context.Background(), created.ID))
		assert.Equal(t, 5, store.stock(1))
		assert.Equal(t, []string{"order.created", "order.expired"}, store.routingKeys())
	})

	t.Run("firing_twice_never_restores_stock_twice", func(t *testing.T) {
		store := newFakeStore()
		store.products[1] = &product.Product{ID: 1, Name: "Snow Apples 1kg", PriceCents: 1000, AvailableStock: 5}

		svc := newService(t, store)

		created, err := svc.CreateOrder(context.Background(), validModel())
		require.NoError(t, err)

		require.NoError(t, svc.ExpireOrder(context.Background(), created.ID))
		require.NoError(t, svc.ExpireOrder(context.Background(), created.ID))

		assert.Equal(t, 5, store.stock(1))
	})

	t.Run("paid_order_is_left_alone", func(t *testing.T) {
		store := newFakeStore()
		store.products[1] = &product.Product{ID: 1, Name: "Snow Apples 1kg", PriceCents: 1000, AvailableStock: 5}

		svc := newService(t, store)

		created, err := svc.CreateOrder(context.Background(), validModel())
		require.NoError(t, err)

		_, err = svc.ConfirmPayment(context.Background(), created.Code)
		require.NoError(t, err)

		// The expiry timer fires after the payment landed: no-op.
		require.NoError(t, svc.ExpireOrder(context.Background(), created.ID))

		paid := store.order(created.ID)
		assert.Equal(t, order.PaymentStatusPaid, paid.PaymentStatus)
		assert.Equal(t, order.StatusPending, paid.Status)
		assert.Equal(t, 3, store.stock(1))
	})
}

func TestOrderService_ConfirmPayment(t *testing.T) {
	t.Run("returns_the_persisted_order", func(t *testing.T) {
		store := newFakeStore()
		store.products[1] = &product.Product{ID: 1, Name: "Snow Apples 1kg", PriceCents: 1000, AvailableStock: 5}

		svc := newService(t, store)

		created, err := svc.CreateOrder(context.Background(), validModel())
		require.NoError(t, err)

		paid, err := svc.ConfirmPayment(context.Background(), created.Code)
		require.NoError(t, err)

		// The response is a fresh read of the stored row, line items and
		// updated timestamp included.
		assert.Equal(t, order.PaymentStatusPaid, paid.PaymentStatus)
		require.Len(t, paid.OrderItems, 1)
		assert.Equal(t, "Snow Apples 1kg", paid.OrderItems[0].Name)
		assert.False(t, paid.UpdatedAt.Before(created.UpdatedAt))
		assert.Equal(t, []string{"order.created", "order.paid"}, store.routingKeys())
	})

	t.Run("failed_event_write_aborts_the_confirmation", func(t *testing.T) {
		store := newFakeStore()
		store.products[1] = &product.Product{ID: 1, Name: "Snow Apples 1kg", PriceCents: 1000, AvailableStock: 5}

		svc := newService(t, store)

		created, err := svc.CreateOrder(context.Background(), validModel())
		require.NoError(t, err)

		store.failOutboxInserts = 1
		_, err = svc.ConfirmPayment(context.Background(), created.Code)
		require.Error(t, err)

		// Status change and event roll back together; the gateway can
		// retry the callback.
		pending := store.order(created.ID)
		assert.Equal(t, order.PaymentStatusPending, pending.PaymentStatus)
		assert.Equal(t, []string{"order.created"}, store.routingKeys())

		paid, err := svc.ConfirmPayment(context.Background(), created.Code)
		require.NoError(t, err)
		assert.Equal(t, order.PaymentStatusPaid, paid.PaymentStatus)
	})

	t.Run("unknown_code", func(t *testing.T) {
		store := newFakeStore()

		_, err := newService(t, store).ConfirmPayment(context.Background(), "ORD-20250101-0001")
		assert.ErrorIs(t, err, order.ErrOrderNotFound)
	})

	t.Run("expired_order_rejects_late_payment", func(t *testing.T) {
		store := newFakeStore()
		store.products[1] = &product.Product{ID: 1, Name: "Snow Apples 1kg", PriceCents: 1000, AvailableStock: 5}

		svc := newService(t, store)

		created, err := svc.CreateOrder(context.Background(), validModel())
		require.NoError(t, err)
		require.NoError(t, svc.ExpireOrder(context.Background(), created.ID))

		_, err = svc.ConfirmPayment(context.Background(), created.Code)
		assert.ErrorIs(t, err, order.ErrPaymentConflict)

		// The late confirmation must not resurrect the reservation.
		assert.Equal(t, 5, store.stock(1))
	})
}

func TestOrderService_OverduePendingOrders(t *testing.T) {
	store := newFakeStore()
	store.orders[1] = &order.Order{
		ID:            1,
		Code:          "ORD-20250101-1111",
		PaymentStatus: order.PaymentStatusPending,
		ExpiresAt:     time.Now().Add(-time.Minute),
	}
	store.orders[2] = &order.Order{
		ID:            2,
		Code:          "ORD-20250101-2222",
		PaymentStatus: order.PaymentStatusPending,
		ExpiresAt:     time.Now().Add(time.Hour),
	}
	store.orders[3] = &order.Order{
		ID:            3,
		Code:          "ORD-20250101-3333",
		PaymentStatus: order.PaymentStatusPaid,
		ExpiresAt:     time.Now().Add(-time.Minute),
	}

	ids, err := newService(t, store).OverduePendingOrders(context.Background(), 10)
	require.NoError(t, err)

	assert.Equal(t, []int64{1}, ids)
}

func TestOrderService_TrackOrders(t *testing.T) {
	store := newFakeStore()
	store.products[1] = &product.Product{ID: 1, Name: "Snow Apples 1kg", PriceCents: 1000, AvailableStock: 5}

	svc := newService(t, store)

	created, err := svc.CreateOrder(context.Background(), validModel())
	require.NoError(t, err)

	t.Run("matches_guest_contact_snapshot", func(t *testing.T) {
		orders, err := svc.TrackOrders(context.Background(), "a@b.com", "123", "")
		require.NoError(t, err)
		require.Len(t, orders, 1)
		assert.Equal(t, created.Code, orders[0].Code)
		require.Len(t, orders[0].OrderItems, 1)
	})

	t.Run("code_narrows_the_match", func(t *testing.T) {
		orders, err := svc.TrackOrders(context.Background(), "a@b.com", "123", "ORD-19990101-0000")
		require.NoError(t, err)
		assert.Empty(t, orders)
	})

	t.Run("wrong_contact_matches_nothing", func(t *testing.T) {
		orders, err := svc.TrackOrders(context.Background(), "x@y.com", "123", "")
		require.NoError(t, err)
		assert.Empty(t, orders)
	})
}

func TestOrderService_UpdateStatus(t *testing.T) {
	store := newFakeStore()
	store.products[1] = &product.Product{ID: 1, Name: "Snow Apples 1kg", PriceCents: 1000, AvailableStock: 5}

	svc := newService(t, store)

	created, err := svc.CreateOrder(context.Background(), validModel())
	require.NoError(t, err)

	updated, err := svc.UpdateStatus(context.Background(), created.ID, order.StatusShipped, "AWB123", "BlueDart")
	require.NoError(t, err)

	assert.Equal(t, order.StatusShipped, updated.Status)
	assert.Equal(t, "AWB123", updated.TrackingID)
	assert.Equal(t, "BlueDart", updated.CourierPartner)

	// The override writes status directly and never touches stock.
	assert.Equal(t, 3, store.stock(1))

	t.Run("unknown_order", func(t *testing.T) {
		_, err := svc.UpdateStatus(context.Background(), 9999, order.StatusShipped, "", "")
		assert.ErrorIs(t, err, order.ErrOrderNotFound)
	})
}
