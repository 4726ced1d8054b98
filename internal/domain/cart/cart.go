package cart

import (
	"context"
	"time"

	"github.com/xenking/kart-backoffice/internal/domain/money"
)

// Status is the lifecycle state of a cart.
type Status string

const (
	// StatusOpen carts accept line mutations. A user has at most one.
	StatusOpen Status = "open"
	// StatusClosed carts were consumed by order assembly. They are kept for
	// audit and never reopened.
	StatusClosed Status = "closed"
)

// Line is one product-quantity pair owned by a cart.
type Line struct {
	ID        string
	CartID    string
	ProductID string
	Quantity  int
	UnitPrice money.Money
	Total     money.Money
}

// reprice sets the unit price and recomputes the line total.
func (l *Line) reprice(unit money.Money) {
	l.UnitPrice = unit
	l.Total = unit.MulQty(l.Quantity)
}

// Cart is a user's in-progress selection of products.
type Cart struct {
	ID        string
	UserID    string
	Status    Status
	Lines     []Line
	Total     money.Money
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsOpen reports whether the cart still accepts mutations.
func (c *Cart) IsOpen() bool {
	return c.Status == StatusOpen
}

// Line returns the line holding productID, or nil.
func (c *Cart) Line(productID string) *Line {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			return &c.Lines[i]
		}
	}
	return nil
}

// Quantity returns the quantity of productID in the cart, zero if absent.
func (c *Cart) Quantity(productID string) int {
	if l := c.Line(productID); l != nil {
		return l.Quantity
	}
	return 0
}

// ItemCount returns the total number of units across all lines.
func (c *Cart) ItemCount() int {
	n := 0
	for _, l := range c.Lines {
		n += l.Quantity
	}
	return n
}

// Recalculate sets Total to the sum of the current line totals. It is always
// a full fold, never an incremental delta, so the total cannot drift from the
// lines it summarizes.
func (c *Cart) Recalculate() {
	totals := make([]money.Money, len(c.Lines))
	for i, l := range c.Lines {
		totals[i] = l.Total
	}
	c.Total = money.Sum(totals...)
}

// removeLine drops the line holding productID.
func (c *Cart) removeLine(productID string) {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
			return
		}
	}
}

// Close marks the cart as consumed. A cart is closed exactly once.
func (c *Cart) Close(now time.Time) error {
	if !c.IsOpen() {
		return ErrCartClosed
	}
	c.Status = StatusClosed
	c.UpdatedAt = now
	return nil
}

// Repository defines persistence operations for carts and their lines.
//
// FindOpen must lock the returned cart for the rest of the enclosing
// transaction so that concurrent mutations of the same cart serialize.
type Repository interface {
	FindOpen(ctx context.Context, userID string) (*Cart, error)
	Create(ctx context.Context, c *Cart) error
	Update(ctx context.Context, c *Cart) error
	SaveLine(ctx context.Context, l *Line) error
	DeleteLine(ctx context.Context, lineID string) error
}

// Transactor runs fn inside one atomic unit of work. The context passed to
// fn carries the transaction; repositories called with it join it.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
