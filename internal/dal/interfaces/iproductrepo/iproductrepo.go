package iproductrepo

import (
	"context"

	"github.com/snowberry/order/internal/service/models/product"
)

// IProductRepository is the inventory store contract. Stock moves only
// through the conditional reserve/restore pair, never through plain writes.
type IProductRepository interface {
	GetByID(ctx context.Context, id int64) (*product.Product, error)

	// ReserveStock decrements available stock by quantity only if enough
	// is available, returning the product snapshot used for the line
	// item. Failures are *product.NotFoundError or
	// *product.InsufficientStockError.
	ReserveStock(ctx context.Context, id int64, quantity int) (*product.Product, error)

	// RestoreStock returns previously reserved units to the pool.
	RestoreStock(ctx context.Context, id int64, quantity int) error
}
