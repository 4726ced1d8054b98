package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-backoffice/internal/domain/money"
	"github.com/xenking/kart-backoffice/internal/domain/order"
)

const (
	createOrderSQL = `INSERT INTO orders (id, reference, user_id, cart_id,
		billing_address_id, shipping_address_id, carrier_id, shipping_method_id,
		products_total, shipping_fee, grand_total, weight, tracking_number,
		status_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	updateOrderSQL = `UPDATE orders SET status_id = $2, tracking_number = $3 WHERE id = $1`

	getOrderByIDSQL = `SELECT o.id, o.reference, o.user_id, o.cart_id,
		o.billing_address_id, o.shipping_address_id, o.carrier_id, o.shipping_method_id,
		o.products_total, o.shipping_fee, o.grand_total, o.weight, o.tracking_number,
		s.id, s.label, o.created_at
		FROM orders o
		JOIN order_statuses s ON s.id = o.status_id
		WHERE o.id = $1
		FOR UPDATE OF o`

	appendHistorySQL = `INSERT INTO order_status_history (id, order_id, status_id, created_at)
		VALUES ($1, $2, $3, $4)`

	listHistorySQL = `SELECT h.id, h.order_id, s.id, s.label, h.created_at
		FROM order_status_history h
		JOIN order_statuses s ON s.id = h.status_id
		WHERE h.order_id = $1
		ORDER BY h.created_at, h.id`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	if o.Status == nil {
		return errors.Errorf("order %q has no status", o.ID)
	}
	_, err := conn(ctx, r.pool).Exec(ctx, createOrderSQL,
		o.ID, o.Reference, o.UserID, nullable(o.CartID),
		nullable(o.BillingAddressID), nullable(o.ShippingAddressID),
		nullable(o.CarrierID), nullable(o.ShippingMethodID),
		o.ProductsTotal.Decimal(), o.ShippingFee.Decimal(), o.GrandTotal.Decimal(),
		o.Weight, o.TrackingNumber, o.Status.ID, o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	return nil
}

// Update writes the mutable fields of an order: status and tracking number.
func (r *OrderRepository) Update(ctx context.Context, o *order.Order) error {
	if o.Status == nil {
		return errors.Errorf("order %q has no status", o.ID)
	}
	tag, err := conn(ctx, r.pool).Exec(ctx, updateOrderSQL, o.ID, o.Status.ID, o.TrackingNumber)
	if err != nil {
		return fmt.Errorf("updating order %q: %w", o.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

// GetByID returns the stored order and locks its row for the rest of the
// enclosing transaction.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, getOrderByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	return &o, nil
}

// AppendHistory records a status change.
func (r *OrderRepository) AppendHistory(ctx context.Context, e *order.HistoryEntry) error {
	_, err := conn(ctx, r.pool).Exec(ctx, appendHistorySQL, e.ID, e.OrderID, e.Status.ID, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("appending history to order %q: %w", e.OrderID, err)
	}
	return nil
}

// History lists the status changes of an order, oldest first.
func (r *OrderRepository) History(ctx context.Context, orderID string) ([]order.HistoryEntry, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, listHistorySQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("listing history of order %q: %w", orderID, err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (order.HistoryEntry, error) {
		var e order.HistoryEntry
		err := row.Scan(&e.ID, &e.OrderID, &e.Status.ID, &e.Status.Label, &e.CreatedAt)
		return e, err
	})
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o                                    order.Order
		cartID, billingID, shippingID        *string
		carrierID, methodID                  *string
		productsTotal, shippingFee, grandTot decimal.Decimal
		st                                   order.Status
	)
	err := row.Scan(
		&o.ID, &o.Reference, &o.UserID, &cartID,
		&billingID, &shippingID, &carrierID, &methodID,
		&productsTotal, &shippingFee, &grandTot, &o.Weight, &o.TrackingNumber,
		&st.ID, &st.Label, &o.CreatedAt,
	)
	o.CartID = deref(cartID)
	o.BillingAddressID = deref(billingID)
	o.ShippingAddressID = deref(shippingID)
	o.CarrierID = deref(carrierID)
	o.ShippingMethodID = deref(methodID)
	o.ProductsTotal = money.New(productsTotal)
	o.ShippingFee = money.New(shippingFee)
	o.GrandTotal = money.New(grandTot)
	o.Status = &st
	return o, err
}
