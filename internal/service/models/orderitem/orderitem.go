package orderitem

// OrderItem is a line item within an order. Name and price are snapshotted
// from the product at creation time so later catalog edits do not rewrite
// order history.
type OrderItem struct {
	ID            int64  `json:"id"`
	OrderID       int64  `json:"orderId"`
	ProductID     int64  `json:"productId"`
	Name          string `json:"name"`
	PriceCents    int64  `json:"priceCents"`
	Quantity      int    `json:"quantity"`
	SubtotalCents int64  `json:"subtotalCents"`
}
