package product

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/xenking/kart-backoffice/internal/domain/money"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product is a read-only snapshot of a catalog item: its current unit price
// and the stock available for carts.
type Product struct {
	ID       string
	Name     string
	Category string
	Price    money.Money
	Stock    int
}

// InStock reports whether at least one unit is available.
func (p *Product) InStock() bool {
	return p.Stock > 0
}

// Repository defines catalog operations needed by the cart pipeline and the
// maintenance tools.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
	SetStock(ctx context.Context, id string, stock int) error
}
