// Package payment defines the contract of the payment gateway collaborator.
// Only the confirm/decline outcome matters to the order pipeline.
package payment

import "context"

// Confirmation is the gateway's answer to a confirmation request.
type Confirmation struct {
	Success bool
	// Reference is the gateway transaction id, when it provides one.
	Reference string
	// Reason is a human-readable decline reason.
	Reason string
}

// Gateway confirms a charge of amount minor units in the given currency.
// A transport failure is returned as an error; a decline is a Confirmation
// with Success false.
type Gateway interface {
	ConfirmPayment(ctx context.Context, amountMinor int64, currency string) (*Confirmation, error)
}
