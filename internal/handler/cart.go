package handler

import (
	"context"
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/kart-backoffice/internal/domain/cart"
)

// GetCart returns the open cart of the target user.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.owner(w, r)
	if !ok {
		return
	}
	c, err := h.carts.Get(r.Context(), userID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeCart(w, c)
}

// AddLine adds a quantity of a product, creating the cart on first use.
func (h *Handler) AddLine(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.owner(w, r)
	if !ok {
		return
	}
	req, err := decodeAddLine(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	c, err := h.carts.AddLine(r.Context(), cart.AddLineRequest{
		UserID:    userID,
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeCart(w, c)
}

// IncrementLine raises a line's quantity by one.
func (h *Handler) IncrementLine(w http.ResponseWriter, r *http.Request) {
	h.mutateLine(w, r, h.carts.IncrementLine)
}

// DecrementLine lowers a line's quantity by one, removing it at zero.
func (h *Handler) DecrementLine(w http.ResponseWriter, r *http.Request) {
	h.mutateLine(w, r, h.carts.DecrementLine)
}

func (h *Handler) mutateLine(
	w http.ResponseWriter,
	r *http.Request,
	fn func(ctx context.Context, req cart.LineRequest) (*cart.Cart, error),
) {
	userID, ok := h.owner(w, r)
	if !ok {
		return
	}
	c, err := fn(r.Context(), cart.LineRequest{
		UserID:    userID,
		ProductID: r.PathValue("productId"),
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeCart(w, c)
}

// owner resolves the user whose cart the request addresses, writing the
// error response when it cannot.
func (h *Handler) owner(w http.ResponseWriter, r *http.Request) (string, bool) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return "", false
	}
	userID, err := targetUser(r, actor)
	if err != nil {
		respondError(w, r, err)
		return "", false
	}
	return userID, true
}

func writeCart(w http.ResponseWriter, c *cart.Cart) {
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeCart(e, c) })
}
