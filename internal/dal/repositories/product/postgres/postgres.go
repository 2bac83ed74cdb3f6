package postgresrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/snowberry/order/internal/service/models/product"
)

// ProductDal represents the inventory data access layer model.
type ProductDal struct {
	Id             int64  `db:"id"`
	Name           string `db:"name"`
	PriceCents     int64  `db:"price_cents"`
	AvailableStock int    `db:"available_stock"`
}

// ToModel converts ProductDal to the service layer Product model.
func (p *ProductDal) ToModel() *product.Product {
	return &product.Product{
		ID:             p.Id,
		Name:           p.Name,
		PriceCents:     p.PriceCents,
		AvailableStock: p.AvailableStock,
	}
}

type PostgresProductRepository struct {
	conn sqlx.ExtContext
}

func NewPostgresProductRepository(conn sqlx.ExtContext) *PostgresProductRepository {
	return &PostgresProductRepository{
		conn: conn,
	}
}

// GetByID retrieves a product by id.
func (r *PostgresProductRepository) GetByID(ctx context.Context, id int64) (*product.Product, error) {
	query := `
		SELECT id, name, price_cents, available_stock
		FROM products
		WHERE id = $1
	`

	var dal ProductDal
	if err := sqlx.GetContext(ctx, r.conn, &dal, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &product.NotFoundError{ProductID: id}
		}

		return nil, fmt.Errorf("failed to select product: %w", err)
	}

	return dal.ToModel(), nil
}

// ReserveStock decrements available stock by quantity, guarded so the value
// never goes negative. Concurrent reservations against the same product
// serialize on the row; the loser of the last unit gets an
// InsufficientStockError.
func (r *PostgresProductRepository) ReserveStock(
	ctx context.Context,
	id int64,
	quantity int,
) (*product.Product, error) {
	query := `
		UPDATE products
		SET available_stock = available_stock - $2
		WHERE id = $1 AND available_stock >= $2
		RETURNING id, name, price_cents, available_stock
	`

	var dal ProductDal
	err := sqlx.GetContext(ctx, r.conn, &dal, query, id, quantity)
	if err == nil {
		return dal.ToModel(), nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to reserve stock: %w", err)
	}

	// The conditional update matched nothing: either the product does not
	// exist or it is short on stock.
	current, getErr := r.GetByID(ctx, id)
	if getErr != nil {
		return nil, getErr
	}

	return nil, &product.InsufficientStockError{
		ProductID: id,
		Name:      current.Name,
		Requested: quantity,
		Available: current.AvailableStock,
	}
}

// RestoreStock returns previously reserved units to the pool.
func (r *PostgresProductRepository) RestoreStock(ctx context.Context, id int64, quantity int) error {
	query := `
		UPDATE products
		SET available_stock = available_stock + $2
		WHERE id = $1
	`

	res, err := r.conn.ExecContext(ctx, query, id, quantity)
	if err != nil {
		return fmt.Errorf("failed to restore stock: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return &product.NotFoundError{ProductID: id}
	}

	return nil
}
