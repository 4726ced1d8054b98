package order

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/kart-backoffice/internal/domain/user"
)

// ApplyOrderRequest holds an order being created or updated through the
// status pipeline.
type ApplyOrderRequest struct {
	Actor user.Actor
	// TargetUserID assigns the order to another user. Honored only for
	// privileged actors and only when the order has no owner yet.
	TargetUserID string
	Order        *Order
	IsNew        bool
}

// ApplyOrder fills in the owner, reference and default status of an order,
// persists it and records a history row when the status is new or has
// changed. Re-saving an order with the same status writes no history row.
// Any status may follow any other. req.Order is updated only on success.
func (s *Service) ApplyOrder(ctx context.Context, req ApplyOrderRequest) (*Order, error) {
	if req.Order == nil {
		return nil, errors.New("order required")
	}
	work := *req.Order
	o := &work

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		now := s.now()

		if o.UserID == "" {
			o.UserID = req.Actor.UserID
			if req.Actor.Privileged && req.TargetUserID != "" {
				o.UserID = req.TargetUserID
			}
		}
		if !req.Actor.CanActFor(o.UserID) {
			return ErrForbidden
		}
		if o.Reference == "" {
			o.Reference = s.newRef(o.UserID, now)
		}

		st, err := s.resolveStatus(ctx, o.Status)
		if err != nil {
			return err
		}
		o.Status = st

		if req.IsNew {
			if o.ID == "" {
				o.ID = s.newID()
			}
			if o.CreatedAt.IsZero() {
				o.CreatedAt = now
			}
			if err := s.orders.Create(ctx, o); err != nil {
				return errors.Wrap(err, "create order")
			}
			return s.appendHistory(ctx, o, now)
		}

		prev, err := s.orders.GetByID(ctx, o.ID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return ErrNotFound
			}
			return errors.Wrap(err, "get persisted order")
		}
		if !req.Actor.CanActFor(prev.UserID) {
			return ErrForbidden
		}

		if err := s.orders.Update(ctx, o); err != nil {
			return errors.Wrap(err, "update order")
		}
		if prev.Status != nil && prev.Status.ID == o.Status.ID {
			return nil
		}
		if err := s.appendHistory(ctx, o, now); err != nil {
			return err
		}

		s.metrics.statusTransitions.Add(ctx, 1)
		from := ""
		if prev.Status != nil {
			from = prev.Status.Label
		}
		zctx.From(ctx).Info("Order status changed",
			zap.String("order_id", o.ID),
			zap.String("from", from),
			zap.String("to", o.Status.Label),
		)
		return nil
	})
	if err != nil {
		return nil, err
	}
	*req.Order = work
	return req.Order, nil
}

// ChangeStatus moves an existing order to the status with the given label,
// creating the status when it does not exist yet. Only privileged actors may
// change statuses. The order is read under its row lock so concurrent edits
// to other fields are kept.
func (s *Service) ChangeStatus(ctx context.Context, actor user.Actor, orderID, label string) (*Order, error) {
	if label == "" {
		return nil, ErrOrderStatusRequired
	}
	if !actor.Privileged {
		return nil, ErrStatusChangeForbidden
	}

	var out *Order
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		o, err := s.Get(ctx, actor, orderID)
		if err != nil {
			return err
		}
		o.Status = &Status{Label: label}
		out, err = s.ApplyOrder(ctx, ApplyOrderRequest{Actor: actor, Order: o})
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns an order visible to the actor.
func (s *Service) Get(ctx context.Context, actor user.Actor, id string) (*Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "get order")
	}
	if !actor.CanActFor(o.UserID) {
		// Other users' orders are reported as missing.
		return nil, ErrNotFound
	}
	return o, nil
}

// History returns the status history of an order visible to the actor,
// oldest first.
func (s *Service) History(ctx context.Context, actor user.Actor, id string) ([]HistoryEntry, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	entries, err := s.orders.History(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "list history")
	}
	return entries, nil
}

// resolveStatus returns the persisted status for st. An empty status
// resolves to StatusPendingPayment; a status given by label is created on
// demand; a status given by id must exist.
func (s *Service) resolveStatus(ctx context.Context, st *Status) (*Status, error) {
	switch {
	case st == nil || (st.ID == "" && st.Label == ""):
		resolved, err := s.statuses.Ensure(ctx, StatusPendingPayment)
		if err != nil {
			return nil, errors.Wrapf(err, "ensure status %q", StatusPendingPayment)
		}
		return resolved, nil
	case st.ID != "":
		resolved, err := s.statuses.GetByID(ctx, st.ID)
		if err != nil {
			if errors.Is(err, ErrStatusNotFound) {
				return nil, &StatusRequiredError{StatusID: st.ID}
			}
			return nil, errors.Wrap(err, "get status")
		}
		return resolved, nil
	default:
		resolved, err := s.statuses.Ensure(ctx, st.Label)
		if err != nil {
			return nil, errors.Wrapf(err, "ensure status %q", st.Label)
		}
		return resolved, nil
	}
}
