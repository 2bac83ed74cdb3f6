package postgresrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/snowberry/order/internal/service/models/buyer"
	"github.com/snowberry/order/internal/service/models/order"
	"github.com/snowberry/order/internal/service/models/orderitem"
)

const pgUniqueViolation = "23505"

var orderColumns = []string{
	"id",
	"code",
	"is_registered_user",
	"user_id",
	"buyer_name",
	"buyer_email",
	"buyer_phone",
	"street",
	"city",
	"state",
	"zipcode",
	"country",
	"payment_method",
	"payment_status",
	"order_status",
	"tracking_id",
	"courier_partner",
	"total_price_cents",
	"expires_at",
	"created_at",
	"updated_at",
}

// OrderDal represents the order data access layer model.
type OrderDal struct {
	Id               int64          `db:"id"`
	Code             string         `db:"code"`
	IsRegisteredUser bool           `db:"is_registered_user"`
	UserId           sql.NullInt64  `db:"user_id"`
	BuyerName        string         `db:"buyer_name"`
	BuyerEmail       string         `db:"buyer_email"`
	BuyerPhone       string         `db:"buyer_phone"`
	Street           string         `db:"street"`
	City             string         `db:"city"`
	State            string         `db:"state"`
	Zipcode          string         `db:"zipcode"`
	Country          string         `db:"country"`
	PaymentMethod    string         `db:"payment_method"`
	PaymentStatus    string         `db:"payment_status"`
	OrderStatus      string         `db:"order_status"`
	TrackingId       sql.NullString `db:"tracking_id"`
	CourierPartner   sql.NullString `db:"courier_partner"`
	TotalPriceCents  int64          `db:"total_price_cents"`
	ExpiresAt        time.Time      `db:"expires_at"`
	CreatedAt        time.Time      `db:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at"`
}

// ToModel converts OrderDal to the service layer Order model.
func (o *OrderDal) ToModel() (*order.Order, error) {
	method, err := order.ParsePaymentMethod(o.PaymentMethod)
	if err != nil {
		return nil, err
	}

	status, err := order.ParseStatus(o.OrderStatus)
	if err != nil {
		return nil, err
	}

	var b buyer.Buyer
	if o.IsRegisteredUser {
		b = buyer.Registered(o.UserId.Int64, o.BuyerName, o.BuyerEmail, o.BuyerPhone)
	} else {
		b = buyer.Guest(o.BuyerName, o.BuyerEmail, o.BuyerPhone)
	}

	return &order.Order{
		ID:    o.Id,
		Code:  o.Code,
		Buyer: b,
		ShippingAddress: order.Address{
			Street:  o.Street,
			City:    o.City,
			State:   o.State,
			Zipcode: o.Zipcode,
			Country: o.Country,
		},
		PaymentMethod:   method,
		PaymentStatus:   order.PaymentStatus(o.PaymentStatus),
		Status:          status,
		TrackingID:      o.TrackingId.String,
		CourierPartner:  o.CourierPartner.String,
		TotalPriceCents: o.TotalPriceCents,
		ExpiresAt:       o.ExpiresAt,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
		OrderItems:      []orderitem.OrderItem{}, // Will be populated separately
	}, nil
}

// OrderDalFromModel converts a service layer Order model to OrderDal.
func OrderDalFromModel(o *order.Order) *OrderDal {
	dal := &OrderDal{
		Id:               o.ID,
		Code:             o.Code,
		IsRegisteredUser: o.Buyer.IsRegistered(),
		BuyerName:        o.Buyer.Name,
		BuyerEmail:       o.Buyer.Email,
		BuyerPhone:       o.Buyer.Phone,
		Street:           o.ShippingAddress.Street,
		City:             o.ShippingAddress.City,
		State:            o.ShippingAddress.State,
		Zipcode:          o.ShippingAddress.Zipcode,
		Country:          o.ShippingAddress.Country,
		PaymentMethod:    o.PaymentMethod.String(),
		PaymentStatus:    o.PaymentStatus.String(),
		OrderStatus:      o.Status.String(),
		TotalPriceCents:  o.TotalPriceCents,
		ExpiresAt:        o.ExpiresAt,
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
	}
	if o.Buyer.IsRegistered() {
		dal.UserId = sql.NullInt64{Int64: o.Buyer.UserID, Valid: true}
	}
	if o.TrackingID != "" {
		dal.TrackingId = sql.NullString{String: o.TrackingID, Valid: true}
	}
	if o.CourierPartner != "" {
		dal.CourierPartner = sql.NullString{String: o.CourierPartner, Valid: true}
	}

	return dal
}

type PostgresOrderRepository struct {
	conn sqlx.ExtContext
}

func NewPostgresOrderRepository(conn sqlx.ExtContext) *PostgresOrderRepository {
	return &PostgresOrderRepository{
		conn: conn,
	}
}

// Insert persists a new order and returns its id. A duplicate order code
// surfaces as order.ErrDuplicateCode so the caller can regenerate and retry.
func (r *PostgresOrderRepository) Insert(ctx context.Context, o *order.Order) (int64, error) {
	dal := OrderDalFromModel(o)

	query, args, err := sq.Insert("orders").
		Columns(orderColumns[1:]...).
		Values(
			dal.Code,
			dal.IsRegisteredUser,
			dal.UserId,
			dal.BuyerName,
			dal.BuyerEmail,
			dal.BuyerPhone,
			dal.Street,
			dal.City,
			dal.State,
			dal.Zipcode,
			dal.Country,
			dal.PaymentMethod,
			dal.PaymentStatus,
			dal.OrderStatus,
			dal.TrackingId,
			dal.CourierPartner,
			dal.TotalPriceCents,
			dal.ExpiresAt,
			dal.CreatedAt,
			dal.UpdatedAt,
		).
		Suffix("RETURNING id").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build insert query: %w", err)
	}

	var id int64
	if err := r.conn.QueryRowxContext(ctx, query, args...).Scan(&id); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return 0, order.ErrDuplicateCode
		}

		return 0, fmt.Errorf("failed to insert order: %w", err)
	}

	return id, nil
}

// GetByID retrieves a single order by its internal id.
func (r *PostgresOrderRepository) GetByID(ctx context.Context, id int64) (*order.Order, error) {
	return r.getOne(ctx, sq.Eq{"id": id})
}

// GetByCode retrieves a single order by its customer-facing code.
func (r *PostgresOrderRepository) GetByCode(ctx context.Context, code string) (*order.Order, error) {
	return r.getOne(ctx, sq.Eq{"code": code})
}

func (r *PostgresOrderRepository) getOne(ctx context.Context, cond sq.Eq) (*order.Order, error) {
	query, args, err := sq.Select(orderColumns...).
		From("orders").
		Where(cond).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	var dal OrderDal
	if err := sqlx.GetContext(ctx, r.conn, &dal, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, order.ErrOrderNotFound
		}

		return nil, fmt.Errorf("failed to select order: %w", err)
	}

	return dal.ToModel()
}

// Query retrieves orders based on filter criteria, newest first.
func (r *PostgresOrderRepository) Query(ctx context.Context, filter *order.QueryOrdersModel) ([]order.Order, error) {
	builder := sq.Select(orderColumns...).
		From("orders").
		OrderBy("created_at DESC").
		PlaceholderFormat(sq.Dollar)

	if len(filter.Ids) > 0 {
		builder = builder.Where(sq.Eq{"id": filter.Ids})
	}
	if len(filter.Codes) > 0 {
		builder = builder.Where(sq.Eq{"code": filter.Codes})
	}
	if len(filter.UserIds) > 0 {
		builder = builder.Where(sq.Eq{"user_id": filter.UserIds})
	}
	if filter.Email != "" {
		builder = builder.Where(sq.Eq{"buyer_email": filter.Email})
	}
	if filter.Phone != "" {
		builder = builder.Where(sq.Eq{"buyer_phone": filter.Phone})
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = s.String()
		}
		builder = builder.Where(sq.Eq{"order_status": statuses})
	}
	if !filter.PaymentPendingBefore.IsZero() {
		builder = builder.
			Where(sq.Eq{"payment_status": order.PaymentStatusPending.String()}).
			Where(sq.LtOrEq{"expires_at": filter.PaymentPendingBefore})
	}
	if filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		builder = builder.Offset(uint64(filter.Offset))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	rows, err := r.conn.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var result []order.Order
	for rows.Next() {
		var dal OrderDal
		if err := rows.StructScan(&dal); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}

		model, err := dal.ToModel()
		if err != nil {
			return nil, fmt.Errorf("failed to convert order dal to model: %w", err)
		}
		result = append(result, *model)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}

// MarkExpired conditionally cancels a still-unpaid order. The payment_status
// guard makes the expiry timer and a racing payment confirmation mutually
// exclusive.
func (r *PostgresOrderRepository) MarkExpired(ctx context.Context, id int64) (bool, error) {
	return r.casPaymentStatus(ctx, id, order.PaymentStatusFailed, order.StatusCanceled)
}

// MarkPaid conditionally confirms payment on a still-unpaid order.
func (r *PostgresOrderRepository) MarkPaid(ctx context.Context, id int64) (bool, error) {
	return r.casPaymentStatus(ctx, id, order.PaymentStatusPaid, "")
}

func (r *PostgresOrderRepository) casPaymentStatus(
	ctx context.Context,
	id int64,
	paymentStatus order.PaymentStatus,
	orderStatus order.Status,
) (bool, error) {
	builder := sq.Update("orders").
		Set("payment_status", paymentStatus.String()).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": id}).
		Where(sq.Eq{"payment_status": order.PaymentStatusPending.String()}).
		PlaceholderFormat(sq.Dollar)

	if orderStatus != "" {
		builder = builder.Set("order_status", orderStatus.String())
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build update query: %w", err)
	}

	res, err := r.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to update payment status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}

	return affected == 1, nil
}

// UpdateStatus writes the fulfillment status and shipping metadata directly.
func (r *PostgresOrderRepository) UpdateStatus(
	ctx context.Context,
	id int64,
	status order.Status,
	trackingID, courierPartner string,
) error {
	builder := sq.Update("orders").
		Set("order_status", status.String()).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": id}).
		PlaceholderFormat(sq.Dollar)

	if trackingID != "" {
		builder = builder.Set("tracking_id", trackingID)
	}
	if courierPartner != "" {
		builder = builder.Set("courier_partner", courierPartner)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}

	res, err := r.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return order.ErrOrderNotFound
	}

	return nil
}
