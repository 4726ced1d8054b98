package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-backoffice/internal/domain/cart"
	"github.com/xenking/kart-backoffice/internal/domain/money"
)

const (
	findOpenCartSQL = `SELECT id, user_id, status, total, created_at, updated_at
		FROM carts WHERE user_id = $1 AND status = 'open'
		FOR UPDATE`

	listCartLinesSQL = `SELECT id, cart_id, product_id, quantity, unit_price, total
		FROM cart_lines WHERE cart_id = $1 ORDER BY created_at, id`

	createCartSQL = `INSERT INTO carts (id, user_id, status, total, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	updateCartSQL = `UPDATE carts SET status = $2, total = $3, updated_at = $4 WHERE id = $1`

	saveCartLineSQL = `INSERT INTO cart_lines (id, cart_id, product_id, quantity, unit_price, total)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE
		SET quantity = EXCLUDED.quantity, unit_price = EXCLUDED.unit_price, total = EXCLUDED.total`

	deleteCartLineSQL = `DELETE FROM cart_lines WHERE id = $1`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// FindOpen returns the user's open cart with its lines. The cart row stays
// locked until the enclosing transaction ends, serializing mutations of the
// same cart.
func (r *CartRepository) FindOpen(ctx context.Context, userID string) (*cart.Cart, error) {
	q := conn(ctx, r.pool)

	rows, err := q.Query(ctx, findOpenCartSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("finding open cart for user %q: %w", userID, err)
	}
	c, err := pgx.CollectExactlyOneRow(rows, scanCart)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrNotFound
		}
		return nil, fmt.Errorf("finding open cart for user %q: %w", userID, err)
	}

	rows, err = q.Query(ctx, listCartLinesSQL, c.ID)
	if err != nil {
		return nil, fmt.Errorf("listing lines of cart %q: %w", c.ID, err)
	}
	c.Lines, err = pgx.CollectRows(rows, scanCartLine)
	if err != nil {
		return nil, fmt.Errorf("listing lines of cart %q: %w", c.ID, err)
	}
	return &c, nil
}

// Create persists a new cart without lines.
func (r *CartRepository) Create(ctx context.Context, c *cart.Cart) error {
	_, err := conn(ctx, r.pool).Exec(ctx, createCartSQL,
		c.ID, c.UserID, string(c.Status), c.Total.Decimal(), c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating cart %q: %w", c.ID, err)
	}
	return nil
}

// Update writes the cart header: status, total and modification time.
func (r *CartRepository) Update(ctx context.Context, c *cart.Cart) error {
	updatedAt := c.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	tag, err := conn(ctx, r.pool).Exec(ctx, updateCartSQL,
		c.ID, string(c.Status), c.Total.Decimal(), updatedAt,
	)
	if err != nil {
		return fmt.Errorf("updating cart %q: %w", c.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return cart.ErrNotFound
	}
	return nil
}

// SaveLine inserts the line or overwrites its quantity and prices.
func (r *CartRepository) SaveLine(ctx context.Context, l *cart.Line) error {
	_, err := conn(ctx, r.pool).Exec(ctx, saveCartLineSQL,
		l.ID, l.CartID, l.ProductID, l.Quantity, l.UnitPrice.Decimal(), l.Total.Decimal(),
	)
	if err != nil {
		return fmt.Errorf("saving cart line %q: %w", l.ID, err)
	}
	return nil
}

// DeleteLine removes a line from its cart.
func (r *CartRepository) DeleteLine(ctx context.Context, lineID string) error {
	_, err := conn(ctx, r.pool).Exec(ctx, deleteCartLineSQL, lineID)
	if err != nil {
		return fmt.Errorf("deleting cart line %q: %w", lineID, err)
	}
	return nil
}

func scanCart(row pgx.CollectableRow) (cart.Cart, error) {
	var (
		c      cart.Cart
		status string
		total  decimal.Decimal
	)
	err := row.Scan(&c.ID, &c.UserID, &status, &total, &c.CreatedAt, &c.UpdatedAt)
	c.Status = cart.Status(status)
	c.Total = money.New(total)
	return c, err
}

func scanCartLine(row pgx.CollectableRow) (cart.Line, error) {
	var (
		l         cart.Line
		qty       int32
		unitPrice decimal.Decimal
		total     decimal.Decimal
	)
	err := row.Scan(&l.ID, &l.CartID, &l.ProductID, &qty, &unitPrice, &total)
	l.Quantity = int(qty)
	l.UnitPrice = money.New(unitPrice)
	l.Total = money.New(total)
	return l, err
}
