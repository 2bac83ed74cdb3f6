package uow

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/snowberry/order/internal/dal/interfaces/iorderitemrepo"
	"github.com/snowberry/order/internal/dal/interfaces/iorderrepo"
	"github.com/snowberry/order/internal/dal/interfaces/ioutboxrepo"
	"github.com/snowberry/order/internal/dal/interfaces/iproductrepo"
	"github.com/snowberry/order/internal/dal/interfaces/iuserrepo"
	"github.com/snowberry/order/internal/dal/postgres"
	orderrepo "github.com/snowberry/order/internal/dal/repositories/order/postgres"
	orderitemrepo "github.com/snowberry/order/internal/dal/repositories/orderitem/postgres"
	outboxrepo "github.com/snowberry/order/internal/dal/repositories/outbox/postgres"
	productrepo "github.com/snowberry/order/internal/dal/repositories/product/postgres"
	userrepo "github.com/snowberry/order/internal/dal/repositories/user/postgres"
)

// unitOfWork scopes the order, order item, product and outbox repositories
// to one transaction so stock decrements and the order write land or roll
// back together.
type unitOfWork struct {
	db            *sqlx.DB
	tx            *sqlx.Tx
	orderRepo     iorderrepo.IOrderRepository
	orderItemRepo iorderitemrepo.IOrderItemRepository
	productRepo   iproductrepo.IProductRepository
	userRepo      iuserrepo.IUserRepository
	outboxRepo    ioutboxrepo.IOutboxRepository
}

func NewUnitOfWork(client *postgres.Client) *unitOfWork {
	db := client.DB()

	return &unitOfWork{
		db:            db,
		orderRepo:     orderrepo.NewPostgresOrderRepository(db),
		orderItemRepo: orderitemrepo.NewPostgresOrderItemRepository(db),
		productRepo:   productrepo.NewPostgresProductRepository(db),
		userRepo:      userrepo.NewPostgresUserRepository(db),
		outboxRepo:    outboxrepo.NewPostgresOutboxRepository(db),
	}
}

func (u *unitOfWork) OrderRepository() iorderrepo.IOrderRepository {
	return u.orderRepo
}

func (u *unitOfWork) OrderItemRepository() iorderitemrepo.IOrderItemRepository {
	return u.orderItemRepo
}

func (u *unitOfWork) ProductRepository() iproductrepo.IProductRepository {
	return u.productRepo
}

func (u *unitOfWork) UserRepository() iuserrepo.IUserRepository {
	return u.userRepo
}

func (u *unitOfWork) OutboxRepository() ioutboxrepo.IOutboxRepository {
	return u.outboxRepo
}

func (u *unitOfWork) Begin(ctx context.Context) error {
	tx, err := u.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	u.tx = tx
	// Rebind the repositories to the transaction
	u.orderRepo = orderrepo.NewPostgresOrderRepository(tx)
	u.orderItemRepo = orderitemrepo.NewPostgresOrderItemRepository(tx)
	u.productRepo = productrepo.NewPostgresProductRepository(tx)
	u.userRepo = userrepo.NewPostgresUserRepository(tx)
	u.outboxRepo = outboxrepo.NewPostgresOutboxRepository(tx)

	return nil
}

func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return nil
	}
	return u.tx.Commit()
}

func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil
	}
	return u.tx.Rollback()
}
