package cart

import (
	"fmt"

	"github.com/go-faster/errors"
)

// Sentinel errors for cart mutation. Stock failures are returned wrapped in
// a *StockError carrying the details.
var (
	ErrNotFound             = errors.New("no open cart")
	ErrCartClosed           = errors.New("cart is closed")
	ErrInvalidQuantity      = errors.New("quantity must be greater than 0")
	ErrOutOfStock           = errors.New("product out of stock")
	ErrQuantityExceedsStock = errors.New("quantity exceeds available stock")
	ErrStockInsufficient    = errors.New("insufficient stock")
	ErrLineNotFound         = errors.New("product not in cart")
)

// StockError describes a stock check failure. It unwraps to one of
// ErrOutOfStock, ErrQuantityExceedsStock or ErrStockInsufficient.
type StockError struct {
	Kind      error
	ProductID string
	Requested int
	Available int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("%s: product %s requested %d, available %d",
		e.Kind, e.ProductID, e.Requested, e.Available)
}

func (e *StockError) Unwrap() error {
	return e.Kind
}

// LineNotFoundError indicates the product has no line in the cart.
type LineNotFoundError struct {
	ProductID string
}

func (e *LineNotFoundError) Error() string {
	return fmt.Sprintf("product %s not in cart", e.ProductID)
}

func (e *LineNotFoundError) Unwrap() error {
	return ErrLineNotFound
}
