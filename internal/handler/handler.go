// Package handler serves the cart and order JSON API over net/http.
package handler

import (
	"context"
	"net/http"

	"github.com/xenking/kart-backoffice/internal/domain/cart"
	"github.com/xenking/kart-backoffice/internal/domain/order"
	"github.com/xenking/kart-backoffice/internal/domain/user"
)

// CartService is the cart pipeline used by the API.
type CartService interface {
	Get(ctx context.Context, userID string) (*cart.Cart, error)
	AddLine(ctx context.Context, req cart.AddLineRequest) (*cart.Cart, error)
	IncrementLine(ctx context.Context, req cart.LineRequest) (*cart.Cart, error)
	DecrementLine(ctx context.Context, req cart.LineRequest) (*cart.Cart, error)
}

// OrderService is the order pipeline used by the API.
type OrderService interface {
	CreateOrderAfterPayment(ctx context.Context, req order.CreateOrderRequest) (*order.Order, error)
	Get(ctx context.Context, actor user.Actor, id string) (*order.Order, error)
	ChangeStatus(ctx context.Context, actor user.Actor, orderID, label string) (*order.Order, error)
	History(ctx context.Context, actor user.Actor, id string) ([]order.HistoryEntry, error)
}

var (
	_ CartService  = (*cart.Service)(nil)
	_ OrderService = (*order.Service)(nil)
)

// Handler holds the API endpoints.
type Handler struct {
	carts  CartService
	orders OrderService
}

// NewHandler constructs a Handler with the required domain services.
func NewHandler(carts CartService, orders OrderService) *Handler {
	return &Handler{carts: carts, orders: orders}
}

// Register mounts the API routes on mux behind auth.
func (h *Handler) Register(mux *http.ServeMux, auth *SecurityHandler) {
	route := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, auth.Authenticate(fn))
	}

	route("GET /api/cart", h.GetCart)
	route("POST /api/cart/lines", h.AddLine)
	route("POST /api/cart/lines/{productId}/increment", h.IncrementLine)
	route("POST /api/cart/lines/{productId}/decrement", h.DecrementLine)

	route("POST /api/orders", h.CreateOrder)
	route("GET /api/orders/{id}", h.GetOrder)
	route("PATCH /api/orders/{id}/status", h.ChangeOrderStatus)
	route("GET /api/orders/{id}/history", h.OrderHistory)
}

// targetUser resolves whose cart or order the request addresses. Privileged
// actors may name another user with ?user_id=.
func targetUser(r *http.Request, actor user.Actor) (string, error) {
	id := r.URL.Query().Get("user_id")
	if id == "" || id == actor.UserID {
		return actor.UserID, nil
	}
	if !actor.Privileged {
		return "", errForbidden
	}
	return id, nil
}
