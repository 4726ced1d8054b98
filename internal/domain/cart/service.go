package cart

import (
	"context"
	"math"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xenking/kart-backoffice/internal/domain/money"
	"github.com/xenking/kart-backoffice/internal/domain/product"
)

// AddLineRequest holds the input for adding a product to a user's cart.
type AddLineRequest struct {
	UserID    string
	ProductID string
	Quantity  int
}

// LineRequest identifies a line by its owner and product.
type LineRequest struct {
	UserID    string
	ProductID string
}

// Service encapsulates cart line mutation. Every mutating call re-validates
// stock and recomputes totals inside one transaction holding the cart lock.
type Service struct {
	carts    Repository
	products product.Repository
	tx       Transactor
	now      func() time.Time
	newID    func() string
}

// NewService creates a cart Service with the required dependencies.
func NewService(carts Repository, products product.Repository, tx Transactor) *Service {
	return &Service{
		carts:    carts,
		products: products,
		tx:       tx,
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
	}
}

// Get returns the user's open cart, or ErrNotFound when none exists yet.
func (s *Service) Get(ctx context.Context, userID string) (*Cart, error) {
	c, err := s.carts.FindOpen(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "find open cart")
	}
	return c, nil
}

// AddLine adds req.Quantity units of a product, creating the cart on first
// use and the line when the product is not in the cart yet. The resulting
// cumulative quantity must not exceed available stock.
func (s *Service) AddLine(ctx context.Context, req AddLineRequest) (*Cart, error) {
	if req.Quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	var out *Cart
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		c, err := s.openOrCreate(ctx, req.UserID)
		if err != nil {
			return err
		}
		p, err := s.product(ctx, req.ProductID)
		if err != nil {
			return err
		}

		have := c.Quantity(p.ID)
		if !p.InStock() {
			return &StockError{Kind: ErrOutOfStock, ProductID: p.ID, Requested: addQuantity(have, req.Quantity)}
		}
		// Compare against the remaining room so have+req.Quantity cannot wrap.
		if req.Quantity > p.Stock-have {
			return &StockError{
				Kind:      ErrQuantityExceedsStock,
				ProductID: p.ID,
				Requested: addQuantity(have, req.Quantity),
				Available: p.Stock,
			}
		}
		want := have + req.Quantity

		l := c.Line(p.ID)
		if l == nil {
			c.Lines = append(c.Lines, Line{ID: s.newID(), CartID: c.ID, ProductID: p.ID})
			l = &c.Lines[len(c.Lines)-1]
		}
		l.Quantity = want
		l.reprice(p.Price)

		if err := s.persist(ctx, c, l); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// addQuantity sums two non-negative quantities, saturating at math.MaxInt.
func addQuantity(a, b int) int {
	if b > math.MaxInt-a {
		return math.MaxInt
	}
	return a + b
}

// IncrementLine adds one unit to an existing line, subject to stock.
func (s *Service) IncrementLine(ctx context.Context, req LineRequest) (*Cart, error) {
	var out *Cart
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		c, l, err := s.findLine(ctx, req)
		if err != nil {
			return err
		}
		p, err := s.product(ctx, req.ProductID)
		if err != nil {
			return err
		}

		want := l.Quantity + 1
		if want > p.Stock {
			return &StockError{Kind: ErrStockInsufficient, ProductID: p.ID, Requested: want, Available: p.Stock}
		}
		l.Quantity = want
		l.reprice(p.Price)

		if err := s.persist(ctx, c, l); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DecrementLine removes one unit from a line. A line that would drop below
// one unit is deleted; the cart total is recomputed from the remaining lines.
func (s *Service) DecrementLine(ctx context.Context, req LineRequest) (*Cart, error) {
	var out *Cart
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		c, l, err := s.findLine(ctx, req)
		if err != nil {
			return err
		}

		if l.Quantity-1 < 1 {
			if err := s.carts.DeleteLine(ctx, l.ID); err != nil {
				return errors.Wrap(err, "delete line")
			}
			c.removeLine(req.ProductID)
			if len(c.Lines) == 0 {
				c.Total = money.Zero
			} else {
				c.Recalculate()
			}
			c.UpdatedAt = s.now()
			if err := s.carts.Update(ctx, c); err != nil {
				return errors.Wrap(err, "update cart")
			}
			out = c
			return nil
		}

		l.Quantity--
		l.reprice(l.UnitPrice)
		if err := s.persist(ctx, c, l); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) openOrCreate(ctx context.Context, userID string) (*Cart, error) {
	c, err := s.carts.FindOpen(ctx, userID)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, errors.Wrap(err, "find open cart")
	}

	now := s.now()
	c = &Cart{
		ID:        s.newID(),
		UserID:    userID,
		Status:    StatusOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.carts.Create(ctx, c); err != nil {
		return nil, errors.Wrap(err, "create cart")
	}
	zctx.From(ctx).Debug("Cart opened", zap.String("cart_id", c.ID), zap.String("user_id", userID))
	return c, nil
}

func (s *Service) findLine(ctx context.Context, req LineRequest) (*Cart, *Line, error) {
	c, err := s.carts.FindOpen(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil, &LineNotFoundError{ProductID: req.ProductID}
		}
		return nil, nil, errors.Wrap(err, "find open cart")
	}
	l := c.Line(req.ProductID)
	if l == nil {
		return nil, nil, &LineNotFoundError{ProductID: req.ProductID}
	}
	return c, l, nil
}

func (s *Service) product(ctx context.Context, id string) (*product.Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			return nil, product.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get product %s", id)
	}
	return p, nil
}

// persist recomputes the cart total and writes the line and the cart.
func (s *Service) persist(ctx context.Context, c *Cart, l *Line) error {
	c.Recalculate()
	c.UpdatedAt = s.now()

	if err := s.carts.SaveLine(ctx, l); err != nil {
		return errors.Wrap(err, "save line")
	}
	if err := s.carts.Update(ctx, c); err != nil {
		return errors.Wrap(err, "update cart")
	}
	return nil
}
