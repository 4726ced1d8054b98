package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/kart-backoffice/internal/domain/order"
)

// CreateOrder confirms payment for the open cart and converts it into an
// order.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	req, err := decodeCreateOrder(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	userID := actor.UserID
	if req.UserID != "" && req.UserID != actor.UserID {
		if !actor.Privileged {
			respondError(w, r, errForbidden)
			return
		}
		userID = req.UserID
	}
	if req.InitialStatus != "" && !actor.Privileged {
		respondError(w, r, order.ErrStatusChangeForbidden)
		return
	}

	o, err := h.orders.CreateOrderAfterPayment(r.Context(), order.CreateOrderRequest{
		UserID:            userID,
		ShippingMethodID:  req.ShippingMethodID,
		ShippingAddressID: req.ShippingAddressID,
		BillingAddressID:  req.BillingAddressID,
		TrackingNumber:    req.TrackingNumber,
		Weight:            req.Weight,
		InitialStatus:     req.InitialStatus,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeOrder(e, o) })
}

// GetOrder returns an order visible to the caller.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	o, err := h.orders.Get(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeOrder(e, o) })
}

// ChangeOrderStatus moves an order to another status.
func (h *Handler) ChangeOrderStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	req, err := decodeChangeStatus(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	o, err := h.orders.ChangeStatus(r.Context(), actor, r.PathValue("id"), req.Status)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeOrder(e, o) })
}

// OrderHistory lists the status history of an order, oldest first.
func (h *Handler) OrderHistory(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id := r.PathValue("id")
	entries, err := h.orders.History(r.Context(), actor, id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeHistory(e, id, entries) })
}
