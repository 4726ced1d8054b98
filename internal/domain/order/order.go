package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/kart-backoffice/internal/domain/money"
)

// Well-known status labels. The status set is data-driven: any label may be
// stored and any status may follow any other.
const (
	StatusPendingPayment = "Pending Payment"
	StatusPaid           = "Paid"
	StatusShipped        = "Shipped"
)

// Status is a named stage in an order's lifecycle.
type Status struct {
	ID    string
	Label string
}

// HistoryEntry records that an order held a status from CreatedAt on.
type HistoryEntry struct {
	ID        string
	OrderID   string
	Status    Status
	CreatedAt time.Time
}

// Order is the snapshot of a paid purchase. Only its status (and tracking
// number) change after creation.
type Order struct {
	ID                string
	Reference         string
	UserID            string
	CartID            string
	BillingAddressID  string
	ShippingAddressID string
	CarrierID         string
	ShippingMethodID  string
	ProductsTotal     money.Money
	ShippingFee       money.Money
	GrandTotal        money.Money
	Weight            decimal.Decimal
	TrackingNumber    string
	Status            *Status
	CreatedAt         time.Time
}

// Repository defines persistence operations for orders and their history.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	Update(ctx context.Context, o *Order) error
	// GetByID returns the persisted state of the order, locking it for the
	// rest of the enclosing transaction.
	GetByID(ctx context.Context, id string) (*Order, error)
	AppendHistory(ctx context.Context, e *HistoryEntry) error
	History(ctx context.Context, orderID string) ([]HistoryEntry, error)
}

// StatusRepository provides the order status reference data.
type StatusRepository interface {
	// Ensure returns the status with the given label, creating it when
	// absent. Concurrent calls with the same label yield the same row.
	Ensure(ctx context.Context, label string) (*Status, error)
	GetByID(ctx context.Context, id string) (*Status, error)
}

// Transactor runs fn inside one atomic unit of work.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
