package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/kart-backoffice/internal/domain/address"
	"github.com/xenking/kart-backoffice/internal/domain/cart"
	"github.com/xenking/kart-backoffice/internal/domain/order"
	"github.com/xenking/kart-backoffice/internal/domain/product"
	"github.com/xenking/kart-backoffice/internal/domain/shipping"
)

var errForbidden = errors.New("acting for another user requires the admin scope")

// badRequestError marks malformed input.
type badRequestError struct {
	err error
}

func (e *badRequestError) Error() string { return e.err.Error() }

func (e *badRequestError) Unwrap() error { return e.err }

func badRequest(err error) error {
	return &badRequestError{err: err}
}

// statusOf maps an error to its HTTP status. 500 means the error is not a
// domain outcome.
func statusOf(err error) int {
	var br *badRequestError
	switch {
	case errors.As(err, &br):
		return http.StatusBadRequest
	case errors.Is(err, order.ErrPaymentFailed):
		return http.StatusPaymentRequired
	case errors.Is(err, errForbidden),
		errors.Is(err, order.ErrForbidden),
		errors.Is(err, order.ErrStatusChangeForbidden):
		return http.StatusForbidden
	case errors.Is(err, cart.ErrCartClosed):
		return http.StatusConflict
	case errors.Is(err, cart.ErrNotFound),
		errors.Is(err, cart.ErrLineNotFound),
		errors.Is(err, order.ErrNotFound),
		errors.Is(err, product.ErrNotFound),
		errors.Is(err, address.ErrNotFound),
		errors.Is(err, shipping.ErrMethodNotFound):
		return http.StatusNotFound
	case errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, cart.ErrOutOfStock),
		errors.Is(err, cart.ErrQuantityExceedsStock),
		errors.Is(err, cart.ErrStockInsufficient),
		errors.Is(err, order.ErrEmptyCart),
		errors.Is(err, order.ErrCarrierRequired),
		errors.Is(err, order.ErrOrderStatusRequired):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the error body. Internal errors are logged and their
// message is not exposed.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		zctx.From(r.Context()).Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeError(w, status, "internal error")
		return
	}

	msg := err.Error()
	if status == http.StatusPaymentRequired {
		msg = order.ErrPaymentFailed.Error()
	}

	writeJSON(w, status, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("code")
		e.Int(status)
		e.FieldStart("message")
		e.Str(msg)

		var stockErr *cart.StockError
		if errors.As(err, &stockErr) {
			e.FieldStart("productId")
			e.Str(stockErr.ProductID)
			e.FieldStart("requested")
			e.Int(stockErr.Requested)
			e.FieldStart("available")
			e.Int(stockErr.Available)
		}
		var lineErr *cart.LineNotFoundError
		if errors.As(err, &lineErr) {
			e.FieldStart("productId")
			e.Str(lineErr.ProductID)
		}
		var payErr *order.PaymentError
		if errors.As(err, &payErr) && payErr.Reason != "" {
			e.FieldStart("reason")
			e.Str(payErr.Reason)
		}
		e.ObjEnd()
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("code")
		e.Int(status)
		e.FieldStart("message")
		e.Str(msg)
		e.ObjEnd()
	})
}
