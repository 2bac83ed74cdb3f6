package postgresrepo

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/snowberry/order/internal/service/models/orderitem"
)

// OrderItemDal represents the order item data access layer model.
type OrderItemDal struct {
	Id            int64  `db:"id"`
	OrderId       int64  `db:"order_id"`
	ProductId     int64  `db:"product_id"`
	Name          string `db:"name"`
	PriceCents    int64  `db:"price_cents"`
	Quantity      int    `db:"quantity"`
	SubtotalCents int64  `db:"subtotal_cents"`
}

// ToModel converts OrderItemDal to the service layer OrderItem model.
func (i *OrderItemDal) ToModel() orderitem.OrderItem {
	return orderitem.OrderItem{
		ID:            i.Id,
		OrderID:       i.OrderId,
		ProductID:     i.ProductId,
		Name:          i.Name,
		PriceCents:    i.PriceCents,
		Quantity:      i.Quantity,
		SubtotalCents: i.SubtotalCents,
	}
}

type PostgresOrderItemRepository struct {
	conn sqlx.ExtContext
}

func NewPostgresOrderItemRepository(conn sqlx.ExtContext) *PostgresOrderItemRepository {
	return &PostgresOrderItemRepository{
		conn: conn,
	}
}

// BulkInsert inserts the line items of an order and returns them with ids.
func (r *PostgresOrderItemRepository) BulkInsert(
	ctx context.Context,
	items []orderitem.OrderItem,
) ([]orderitem.OrderItem, error) {
	if len(items) == 0 {
		return []orderitem.OrderItem{}, nil
	}

	query := `
		INSERT INTO order_items (
			order_id,
			product_id,
			name,
			price_cents,
			quantity,
			subtotal_cents
		)
		SELECT
			order_id,
			product_id,
			name,
			price_cents,
			quantity,
			subtotal_cents
		FROM unnest($1::bigint[], $2::bigint[], $3::text[], $4::bigint[], $5::int[], $6::bigint[])
		AS t(order_id, product_id, name, price_cents, quantity, subtotal_cents)
		RETURNING
			id,
			order_id,
			product_id,
			name,
			price_cents,
			quantity,
			subtotal_cents
	`

	orderIds := make([]int64, len(items))
	productIds := make([]int64, len(items))
	names := make([]string, len(items))
	priceCents := make([]int64, len(items))
	quantities := make([]int64, len(items))
	subtotalCents := make([]int64, len(items))

	for i, item := range items {
		orderIds[i] = item.OrderID
		productIds[i] = item.ProductID
		names[i] = item.Name
		priceCents[i] = item.PriceCents
		quantities[i] = int64(item.Quantity)
		subtotalCents[i] = item.SubtotalCents
	}

	rows, err := r.conn.QueryxContext(ctx, query,
		pq.Array(orderIds),
		pq.Array(productIds),
		pq.Array(names),
		pq.Array(priceCents),
		pq.Array(quantities),
		pq.Array(subtotalCents))
	if err != nil {
		return nil, fmt.Errorf("failed to bulk insert order items: %w", err)
	}
	defer rows.Close()

	var result []orderitem.OrderItem
	for rows.Next() {
		var dal OrderItemDal
		if err := rows.StructScan(&dal); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		result = append(result, dal.ToModel())
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}

// QueryByOrderIds retrieves the line items of the given orders.
func (r *PostgresOrderItemRepository) QueryByOrderIds(
	ctx context.Context,
	orderIds []int64,
) ([]orderitem.OrderItem, error) {
	if len(orderIds) == 0 {
		return []orderitem.OrderItem{}, nil
	}

	query := `
		SELECT
			id,
			order_id,
			product_id,
			name,
			price_cents,
			quantity,
			subtotal_cents
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY id
	`

	rows, err := r.conn.QueryxContext(ctx, query, pq.Array(orderIds))
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var result []orderitem.OrderItem
	for rows.Next() {
		var dal OrderItemDal
		if err := rows.StructScan(&dal); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		result = append(result, dal.ToModel())
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}
