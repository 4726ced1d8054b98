package shipping

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/xenking/kart-backoffice/internal/domain/money"
)

// ErrMethodNotFound is returned when a shipping method does not exist.
var ErrMethodNotFound = errors.New("shipping method not found")

// Carrier is a delivery provider.
type Carrier struct {
	ID   string
	Name string
}

// Method is a priced service level. Carrier is nil when the method has not
// been attached to a carrier yet.
type Method struct {
	ID      string
	Name    string
	Price   money.Money
	Carrier *Carrier
}

// Repository provides lookup of shipping methods with their carrier.
type Repository interface {
	GetMethod(ctx context.Context, id string) (*Method, error)
}
