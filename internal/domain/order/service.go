package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/kart-backoffice/internal/domain/address"
	"github.com/xenking/kart-backoffice/internal/domain/cart"
	"github.com/xenking/kart-backoffice/internal/domain/money"
	"github.com/xenking/kart-backoffice/internal/domain/payment"
	"github.com/xenking/kart-backoffice/internal/domain/product"
	"github.com/xenking/kart-backoffice/internal/domain/shipping"
)

const instrumentationName = "github.com/xenking/kart-backoffice/internal/domain/order"

// CreateOrderRequest holds the input for turning a user's open cart into a
// paid order.
type CreateOrderRequest struct {
	UserID            string
	ShippingMethodID  string
	ShippingAddressID string
	// BillingAddressID may be empty, in which case the shipping address is
	// mirrored into a new billing address.
	BillingAddressID string
	TrackingNumber   string
	Weight           decimal.Decimal
	// InitialStatus is the label recorded on creation. Defaults to StatusPaid.
	InitialStatus string
}

// Deps lists the collaborators of the order Service.
type Deps struct {
	Carts     cart.Repository
	Products  product.Repository
	Shipping  shipping.Repository
	Addresses address.Repository
	Payments  payment.Gateway
	Orders    Repository
	Statuses  StatusRepository
	Tx        Transactor
}

// Option configures a Service.
type Option func(*Service)

// WithCurrency sets the ISO 4217 currency sent to the payment gateway.
func WithCurrency(currency string) Option {
	return func(s *Service) { s.currency = currency }
}

// WithClock overrides the time source used for orders and history rows.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithTracerProvider sets the tracer provider. Defaults to the global one.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) { s.tracerProvider = tp }
}

// WithMeterProvider sets the meter provider. Defaults to the global one.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *Service) { s.meterProvider = mp }
}

// Service assembles orders from carts and maintains the status history.
type Service struct {
	carts     cart.Repository
	products  product.Repository
	shipping  shipping.Repository
	addresses address.Repository
	payments  payment.Gateway
	orders    Repository
	statuses  StatusRepository
	tx        Transactor

	currency string
	now      func() time.Time
	newID    func() string
	newRef   func(userID string, at time.Time) string

	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	tracer         trace.Tracer
	metrics        serviceMetrics
}

// NewService creates an order Service.
func NewService(deps Deps, opts ...Option) *Service {
	s := &Service{
		carts:          deps.Carts,
		products:       deps.Products,
		shipping:       deps.Shipping,
		addresses:      deps.Addresses,
		payments:       deps.Payments,
		orders:         deps.Orders,
		statuses:       deps.Statuses,
		tx:             deps.Tx,
		currency:       "EUR",
		now:            time.Now,
		newID:          func() string { return uuid.New().String() },
		newRef:         newReference,
		tracerProvider: otel.GetTracerProvider(),
		meterProvider:  otel.GetMeterProvider(),
	}
	for _, o := range opts {
		o(s)
	}
	s.tracer = s.tracerProvider.Tracer(instrumentationName)
	s.metrics = newServiceMetrics(s.meterProvider.Meter(instrumentationName))
	return s
}

// CreateOrderAfterPayment converts the user's open cart into an order. The
// payment gateway is asked to confirm the grand total first; the order, its
// initial history row and the cart closure are written only after a
// successful confirmation, all in one transaction.
func (s *Service) CreateOrderAfterPayment(ctx context.Context, req CreateOrderRequest) (_ *Order, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.CreateOrderAfterPayment",
		trace.WithAttributes(attribute.String("user.id", req.UserID)),
	)
	defer func() {
		if rerr != nil {
			span.RecordError(rerr)
			span.SetStatus(codes.Error, rerr.Error())
		}
		span.End()
	}()

	var out *Order
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		c, err := s.carts.FindOpen(ctx, req.UserID)
		if err != nil {
			if errors.Is(err, cart.ErrNotFound) {
				return cart.ErrNotFound
			}
			return errors.Wrap(err, "find open cart")
		}
		if len(c.Lines) == 0 {
			return ErrEmptyCart
		}

		method, err := s.shipping.GetMethod(ctx, req.ShippingMethodID)
		if err != nil {
			if errors.Is(err, shipping.ErrMethodNotFound) {
				return shipping.ErrMethodNotFound
			}
			return errors.Wrap(err, "get shipping method")
		}
		if method.Carrier == nil {
			return ErrCarrierRequired
		}

		if err := s.checkStock(ctx, c); err != nil {
			return err
		}

		shippingAddr, err := s.ownedAddress(ctx, req.UserID, req.ShippingAddressID)
		if err != nil {
			return err
		}
		billingID, err := s.billingAddress(ctx, req, shippingAddr)
		if err != nil {
			return err
		}

		productsTotal := c.Total
		shippingFee := method.Price
		grandTotal := productsTotal.Add(shippingFee)

		if err := s.confirmPayment(ctx, grandTotal); err != nil {
			return err
		}

		label := req.InitialStatus
		if label == "" {
			label = StatusPaid
		}
		st, err := s.statuses.Ensure(ctx, label)
		if err != nil {
			return errors.Wrapf(err, "ensure status %q", label)
		}

		now := s.now()
		o := &Order{
			ID:                s.newID(),
			Reference:         s.newRef(req.UserID, now),
			UserID:            req.UserID,
			CartID:            c.ID,
			BillingAddressID:  billingID,
			ShippingAddressID: shippingAddr.ID,
			CarrierID:         method.Carrier.ID,
			ShippingMethodID:  method.ID,
			ProductsTotal:     productsTotal.Round(),
			ShippingFee:       shippingFee.Round(),
			GrandTotal:        grandTotal.Round(),
			Weight:            req.Weight,
			TrackingNumber:    req.TrackingNumber,
			Status:            st,
			CreatedAt:         now,
		}
		if err := s.orders.Create(ctx, o); err != nil {
			return errors.Wrap(err, "create order")
		}
		if err := s.appendHistory(ctx, o, now); err != nil {
			return err
		}

		if err := c.Close(now); err != nil {
			return err
		}
		if err := s.carts.Update(ctx, c); err != nil {
			return errors.Wrap(err, "close cart")
		}

		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ordersCreated.Add(ctx, 1)
	zctx.From(ctx).Info("Order created",
		zap.String("order_id", out.ID),
		zap.String("reference", out.Reference),
		zap.String("user_id", out.UserID),
		zap.Stringer("grand_total", out.GrandTotal),
	)
	return out, nil
}

// checkStock re-validates every line of the locked cart against current
// stock.
func (s *Service) checkStock(ctx context.Context, c *cart.Cart) error {
	ids := make([]string, len(c.Lines))
	for i, l := range c.Lines {
		ids[i] = l.ProductID
	}
	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return errors.Wrap(err, "get products")
	}

	stock := make(map[string]int, len(fetched))
	for _, p := range fetched {
		stock[p.ID] = p.Stock
	}
	for _, l := range c.Lines {
		available, ok := stock[l.ProductID]
		if !ok {
			return errors.Wrapf(product.ErrNotFound, "product %s", l.ProductID)
		}
		if l.Quantity > available {
			return &cart.StockError{
				Kind:      cart.ErrStockInsufficient,
				ProductID: l.ProductID,
				Requested: l.Quantity,
				Available: available,
			}
		}
	}
	return nil
}

func (s *Service) ownedAddress(ctx context.Context, userID, id string) (*address.Address, error) {
	a, err := s.addresses.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, address.ErrNotFound) {
			return nil, address.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get address %s", id)
	}
	if a.UserID != userID {
		return nil, address.ErrNotFound
	}
	return a, nil
}

// billingAddress returns the billing address id for the order, mirroring the
// shipping address when none was given.
func (s *Service) billingAddress(ctx context.Context, req CreateOrderRequest, shippingAddr *address.Address) (string, error) {
	if req.BillingAddressID != "" {
		a, err := s.ownedAddress(ctx, req.UserID, req.BillingAddressID)
		if err != nil {
			return "", err
		}
		return a.ID, nil
	}

	mirror := address.Mirror(*shippingAddr, s.newID())
	if err := s.addresses.Create(ctx, &mirror); err != nil {
		return "", errors.Wrap(err, "create billing address")
	}
	return mirror.ID, nil
}

func (s *Service) confirmPayment(ctx context.Context, amount money.Money) error {
	minor := amount.MinorUnits()
	conf, err := s.payments.ConfirmPayment(ctx, minor, s.currency)
	if err == nil && conf != nil && conf.Success {
		return nil
	}

	perr := &PaymentError{AmountMinor: minor, Currency: s.currency, Cause: err}
	if conf != nil {
		perr.Reason = conf.Reason
	}
	s.metrics.paymentsDeclined.Add(ctx, 1)
	zctx.From(ctx).Warn("Payment not confirmed",
		zap.Int64("amount_minor", minor),
		zap.String("currency", s.currency),
		zap.String("reason", perr.Reason),
		zap.NamedError("cause", err),
	)
	return perr
}

func (s *Service) appendHistory(ctx context.Context, o *Order, at time.Time) error {
	e := &HistoryEntry{
		ID:        s.newID(),
		OrderID:   o.ID,
		Status:    *o.Status,
		CreatedAt: at,
	}
	if err := s.orders.AppendHistory(ctx, e); err != nil {
		return errors.Wrap(err, "append history")
	}
	return nil
}
