package order

import (
	"fmt"

	"github.com/go-faster/errors"
)

// Sentinel errors for order assembly and status changes.
var (
	ErrNotFound            = errors.New("order not found")
	ErrStatusNotFound      = errors.New("order status not found")
	ErrEmptyCart           = errors.New("cart is empty")
	ErrCarrierRequired     = errors.New("shipping method has no carrier")
	ErrPaymentFailed       = errors.New("payment failed, order not created")
	ErrOrderStatusRequired = errors.New("order status required")
	ErrForbidden           = errors.New("order belongs to another user")

	// ErrStatusChangeForbidden is returned when a non-privileged actor picks
	// an order status.
	ErrStatusChangeForbidden = errors.New("setting an order status requires the admin scope")
)

// PaymentError reports a declined or failed payment confirmation. It
// unwraps to ErrPaymentFailed; Cause holds the transport error, if any.
type PaymentError struct {
	AmountMinor int64
	Currency    string
	Reason      string
	Cause       error
}

func (e *PaymentError) Error() string {
	msg := fmt.Sprintf("payment of %d %s failed", e.AmountMinor, e.Currency)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *PaymentError) Unwrap() error {
	return ErrPaymentFailed
}

// StatusRequiredError indicates the order references a status that cannot be
// resolved.
type StatusRequiredError struct {
	StatusID string
}

func (e *StatusRequiredError) Error() string {
	return fmt.Sprintf("order status required: unknown status %q", e.StatusID)
}

func (e *StatusRequiredError) Unwrap() error {
	return ErrOrderStatusRequired
}
