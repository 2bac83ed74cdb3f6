package product

import "fmt"

// Product holds the inventory view of a catalog item. Catalog CRUD lives
// elsewhere; this service only reads products and moves available stock.
type Product struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	PriceCents     int64  `json:"priceCents"`
	AvailableStock int    `json:"availableStock"`
}

// NotFoundError reports a cart line referencing an unknown product.
type NotFoundError struct {
	ProductID int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("product %d not found", e.ProductID)
}

// InsufficientStockError reports a cart line asking for more units than the
// product has available.
type InsufficientStockError struct {
	ProductID int64
	Name      string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	name := e.Name
	if name == "" {
		name = fmt.Sprintf("product %d", e.ProductID)
	}

	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d",
		name, e.Requested, e.Available)
}
