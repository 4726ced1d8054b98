package gateway

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/xenking/kart-backoffice/internal/domain/payment"
)

var _ payment.Gateway = (*Sandbox)(nil)

// Sandbox is an in-process gateway for local runs and demos. It approves
// every charge up to Limit minor units and declines the rest. A zero Limit
// approves everything.
type Sandbox struct {
	Limit int64

	seq atomic.Int64
}

// ConfirmPayment approves or declines the charge without any I/O.
func (s *Sandbox) ConfirmPayment(_ context.Context, amountMinor int64, currency string) (*payment.Confirmation, error) {
	if amountMinor <= 0 {
		return &payment.Confirmation{Reason: "amount must be positive"}, nil
	}
	if s.Limit > 0 && amountMinor > s.Limit {
		return &payment.Confirmation{
			Reason: fmt.Sprintf("amount %d %s exceeds sandbox limit %d", amountMinor, currency, s.Limit),
		}, nil
	}
	return &payment.Confirmation{
		Success:   true,
		Reference: fmt.Sprintf("sandbox-%06d", s.seq.Add(1)),
	}, nil
}
