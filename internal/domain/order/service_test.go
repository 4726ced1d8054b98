package order

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/kart-backoffice/internal/domain/address"
	"github.com/xenking/kart-backoffice/internal/domain/cart"
	"github.com/xenking/kart-backoffice/internal/domain/money"
	"github.com/xenking/kart-backoffice/internal/domain/payment"
	"github.com/xenking/kart-backoffice/internal/domain/product"
	"github.com/xenking/kart-backoffice/internal/domain/shipping"
	"github.com/xenking/kart-backoffice/internal/domain/user"
)

// --- Mock implementations ---

type mockCartRepo struct {
	carts   map[string]*cart.Cart
	updated []*cart.Cart
}

func (m *mockCartRepo) FindOpen(_ context.Context, userID string) (*cart.Cart, error) {
	c, ok := m.carts[userID]
	if !ok || !c.IsOpen() {
		return nil, cart.ErrNotFound
	}
	cp := *c
	cp.Lines = append([]cart.Line(nil), c.Lines...)
	return &cp, nil
}

func (m *mockCartRepo) Create(_ context.Context, c *cart.Cart) error {
	m.carts[c.UserID] = c
	return nil
}

func (m *mockCartRepo) Update(_ context.Context, c *cart.Cart) error {
	cp := *c
	m.carts[c.UserID] = &cp
	m.updated = append(m.updated, &cp)
	return nil
}

func (m *mockCartRepo) SaveLine(_ context.Context, _ *cart.Line) error { return nil }

func (m *mockCartRepo) DeleteLine(_ context.Context, _ string) error { return nil }

type mockProductRepo struct {
	byID map[string]product.Product
}

func (m *mockProductRepo) List(_ context.Context) ([]product.Product, error) { return nil, nil }

func (m *mockProductRepo) GetByID(_ context.Context, id string) (*product.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

func (m *mockProductRepo) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	var out []product.Product
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockProductRepo) SetStock(_ context.Context, _ string, _ int) error { return nil }

type mockShippingRepo struct {
	methods map[string]*shipping.Method
}

func (m *mockShippingRepo) GetMethod(_ context.Context, id string) (*shipping.Method, error) {
	sm, ok := m.methods[id]
	if !ok {
		return nil, shipping.ErrMethodNotFound
	}
	return sm, nil
}

type mockAddressRepo struct {
	byID    map[string]*address.Address
	created []address.Address
}

func (m *mockAddressRepo) GetByID(_ context.Context, id string) (*address.Address, error) {
	a, ok := m.byID[id]
	if !ok {
		return nil, address.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *mockAddressRepo) Create(_ context.Context, a *address.Address) error {
	m.created = append(m.created, *a)
	m.byID[a.ID] = a
	return nil
}

type mockGateway struct {
	calls    []int64
	currency string
	conf     *payment.Confirmation
	err      error
}

func (m *mockGateway) ConfirmPayment(_ context.Context, amountMinor int64, currency string) (*payment.Confirmation, error) {
	m.calls = append(m.calls, amountMinor)
	m.currency = currency
	return m.conf, m.err
}

type mockOrderRepo struct {
	orders    map[string]Order
	history   []HistoryEntry
	createErr error
}

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{orders: make(map[string]Order)}
}

func (m *mockOrderRepo) Create(_ context.Context, o *Order) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.orders[o.ID] = m.snapshot(o)
	return nil
}

func (m *mockOrderRepo) Update(_ context.Context, o *Order) error {
	m.orders[o.ID] = m.snapshot(o)
	return nil
}

func (m *mockOrderRepo) snapshot(o *Order) Order {
	cp := *o
	if o.Status != nil {
		st := *o.Status
		cp.Status = &st
	}
	return cp
}

func (m *mockOrderRepo) GetByID(_ context.Context, id string) (*Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := m.snapshot(&o)
	return &cp, nil
}

func (m *mockOrderRepo) AppendHistory(_ context.Context, e *HistoryEntry) error {
	m.history = append(m.history, *e)
	return nil
}

func (m *mockOrderRepo) History(_ context.Context, orderID string) ([]HistoryEntry, error) {
	var out []HistoryEntry
	for _, e := range m.history {
		if e.OrderID == orderID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockOrderRepo) historyFor(orderID string) []HistoryEntry {
	out, _ := m.History(context.Background(), orderID)
	return out
}

type mockStatusRepo struct {
	byLabel map[string]*Status
	n       int
}

func newMockStatusRepo() *mockStatusRepo {
	return &mockStatusRepo{byLabel: make(map[string]*Status)}
}

func (m *mockStatusRepo) Ensure(_ context.Context, label string) (*Status, error) {
	if st, ok := m.byLabel[label]; ok {
		return st, nil
	}
	m.n++
	st := &Status{ID: fmt.Sprintf("status-%d", m.n), Label: label}
	m.byLabel[label] = st
	return st, nil
}

func (m *mockStatusRepo) GetByID(_ context.Context, id string) (*Status, error) {
	for _, st := range m.byLabel {
		if st.ID == id {
			return st, nil
		}
	}
	return nil, ErrStatusNotFound
}

type recordingTx struct {
	commits   int
	rollbacks int
	// onBegin runs as each unit of work starts.
	onBegin func()
}

func (t *recordingTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if t.onBegin != nil {
		t.onBegin()
	}
	if err := fn(ctx); err != nil {
		t.rollbacks++
		return err
	}
	t.commits++
	return nil
}

// --- Helpers ---

var fixedNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

type fixture struct {
	carts     *mockCartRepo
	products  *mockProductRepo
	shipping  *mockShippingRepo
	addresses *mockAddressRepo
	gateway   *mockGateway
	orders    *mockOrderRepo
	statuses  *mockStatusRepo
	tx        *recordingTx
	svc       *Service
}

func eur(v string) money.Money {
	return money.MustParse(v)
}

// newFixture builds a service around user u1 holding an open cart worth
// 45.50 and a 4.50 shipping method.
func newFixture() *fixture {
	f := &fixture{
		carts: &mockCartRepo{carts: map[string]*cart.Cart{
			"u1": {
				ID:     "cart-1",
				UserID: "u1",
				Status: cart.StatusOpen,
				Lines: []cart.Line{
					{ID: "l1", ProductID: "A", Quantity: 2, UnitPrice: eur("20.25"), Total: eur("40.50")},
					{ID: "l2", ProductID: "B", Quantity: 1, UnitPrice: eur("5.00"), Total: eur("5.00")},
				},
				Total: eur("45.50"),
			},
		}},
		products: &mockProductRepo{byID: map[string]product.Product{
			"A": {ID: "A", Price: eur("20.25"), Stock: 10},
			"B": {ID: "B", Price: eur("5.00"), Stock: 1},
		}},
		shipping: &mockShippingRepo{methods: map[string]*shipping.Method{
			"colissimo": {ID: "colissimo", Name: "Colissimo 48h", Price: eur("4.50"), Carrier: &shipping.Carrier{ID: "laposte", Name: "La Poste"}},
			"orphan":    {ID: "orphan", Name: "Unassigned", Price: eur("1.00")},
		}},
		addresses: &mockAddressRepo{byID: map[string]*address.Address{
			"ship-1":  {ID: "ship-1", UserID: "u1", City: "Paris"},
			"bill-1":  {ID: "bill-1", UserID: "u1", City: "Lyon"},
			"other-1": {ID: "other-1", UserID: "u2", City: "Nantes"},
		}},
		gateway:  &mockGateway{conf: &payment.Confirmation{Success: true, Reference: "pay_1"}},
		orders:   newMockOrderRepo(),
		statuses: newMockStatusRepo(),
		tx:       &recordingTx{},
	}

	f.svc = NewService(Deps{
		Carts:     f.carts,
		Products:  f.products,
		Shipping:  f.shipping,
		Addresses: f.addresses,
		Payments:  f.gateway,
		Orders:    f.orders,
		Statuses:  f.statuses,
		Tx:        f.tx,
	}, WithClock(func() time.Time { return fixedNow }), WithCurrency("EUR"))

	n := 0
	f.svc.newID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	return f
}

func validRequest() CreateOrderRequest {
	return CreateOrderRequest{
		UserID:            "u1",
		ShippingMethodID:  "colissimo",
		ShippingAddressID: "ship-1",
		BillingAddressID:  "bill-1",
		TrackingNumber:    "6A12345678901",
		Weight:            decimal.RequireFromString("1.250"),
	}
}

// --- Tests ---

func TestCreateOrderAfterPayment_Totals(t *testing.T) {
	f := newFixture()

	o, err := f.svc.CreateOrderAfterPayment(context.Background(), validRequest())
	require.NoError(t, err)

	require.Equal(t, []int64{5000}, f.gateway.calls)
	assert.Equal(t, "EUR", f.gateway.currency)

	assert.Equal(t, "45.50", o.ProductsTotal.String())
	assert.Equal(t, "4.50", o.ShippingFee.String())
	assert.True(t, eur("50.00").Equal(o.GrandTotal))
	assert.Equal(t, "u1", o.UserID)
	assert.Equal(t, "cart-1", o.CartID)
	assert.Equal(t, "laposte", o.CarrierID)
	assert.Equal(t, "colissimo", o.ShippingMethodID)
	assert.Equal(t, "bill-1", o.BillingAddressID)
	assert.Equal(t, "ship-1", o.ShippingAddressID)
	assert.Equal(t, "6A12345678901", o.TrackingNumber)
	assert.True(t, decimal.RequireFromString("1.25").Equal(o.Weight))
	assert.Equal(t, fixedNow, o.CreatedAt)
	assert.Regexp(t, `^U1-20250615-[0-9A-F]{8}$`, o.Reference)

	require.NotNil(t, o.Status)
	assert.Equal(t, StatusPaid, o.Status.Label)

	history := f.orders.historyFor(o.ID)
	require.Len(t, history, 1)
	assert.Equal(t, StatusPaid, history[0].Status.Label)
	assert.Equal(t, fixedNow, history[0].CreatedAt)

	// The cart is consumed.
	assert.Equal(t, cart.StatusClosed, f.carts.carts["u1"].Status)
	assert.Equal(t, 1, f.tx.commits)
}

func TestCreateOrderAfterPayment_PaymentDeclinedThenRetried(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.gateway.conf = &payment.Confirmation{Success: false, Reason: "card declined"}

	_, err := f.svc.CreateOrderAfterPayment(ctx, validRequest())
	require.ErrorIs(t, err, ErrPaymentFailed)

	var perr *PaymentError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, int64(5000), perr.AmountMinor)
	assert.Equal(t, "card declined", perr.Reason)

	assert.Empty(t, f.orders.orders)
	assert.Empty(t, f.orders.history)
	assert.Empty(t, f.statuses.byLabel)
	assert.True(t, f.carts.carts["u1"].IsOpen())
	assert.Equal(t, 1, f.tx.rollbacks)

	// The caller retries the whole operation after the gateway recovers.
	f.gateway.conf = &payment.Confirmation{Success: true}
	o, err := f.svc.CreateOrderAfterPayment(ctx, validRequest())
	require.NoError(t, err)

	assert.Len(t, f.orders.orders, 1)
	assert.Len(t, f.orders.historyFor(o.ID), 1)
	assert.Len(t, f.gateway.calls, 2)

	// The cart is closed, so a third call finds nothing to order.
	_, err = f.svc.CreateOrderAfterPayment(ctx, validRequest())
	require.ErrorIs(t, err, cart.ErrNotFound)
	assert.Len(t, f.orders.orders, 1)
}

func TestCreateOrderAfterPayment_GatewayError(t *testing.T) {
	f := newFixture()
	f.gateway.conf = nil
	f.gateway.err = errors.New("connection reset")

	_, err := f.svc.CreateOrderAfterPayment(context.Background(), validRequest())
	require.ErrorIs(t, err, ErrPaymentFailed)

	var perr *PaymentError
	require.ErrorAs(t, err, &perr)
	require.Error(t, perr.Cause)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Empty(t, f.orders.orders)
}

func TestCreateOrderAfterPayment_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(f *fixture, req *CreateOrderRequest)
		wantErr error
	}{
		{
			name:    "carrier required",
			mutate:  func(_ *fixture, req *CreateOrderRequest) { req.ShippingMethodID = "orphan" },
			wantErr: ErrCarrierRequired,
		},
		{
			name:    "unknown shipping method",
			mutate:  func(_ *fixture, req *CreateOrderRequest) { req.ShippingMethodID = "teleport" },
			wantErr: shipping.ErrMethodNotFound,
		},
		{
			name:    "no open cart",
			mutate:  func(_ *fixture, req *CreateOrderRequest) { req.UserID = "u2" },
			wantErr: cart.ErrNotFound,
		},
		{
			name: "empty cart",
			mutate: func(f *fixture, _ *CreateOrderRequest) {
				c := f.carts.carts["u1"]
				c.Lines = nil
				c.Total = money.Zero
			},
			wantErr: ErrEmptyCart,
		},
		{
			name: "stock dropped since add",
			mutate: func(f *fixture, _ *CreateOrderRequest) {
				p := f.products.byID["A"]
				p.Stock = 1
				f.products.byID["A"] = p
			},
			wantErr: cart.ErrStockInsufficient,
		},
		{
			name:    "shipping address of another user",
			mutate:  func(_ *fixture, req *CreateOrderRequest) { req.ShippingAddressID = "other-1" },
			wantErr: address.ErrNotFound,
		},
		{
			name:    "billing address of another user",
			mutate:  func(_ *fixture, req *CreateOrderRequest) { req.BillingAddressID = "other-1" },
			wantErr: address.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			req := validRequest()
			tt.mutate(f, &req)

			_, err := f.svc.CreateOrderAfterPayment(context.Background(), req)
			require.ErrorIs(t, err, tt.wantErr)

			assert.Empty(t, f.gateway.calls, "payment must not be requested")
			assert.Empty(t, f.orders.orders)
		})
	}
}

func TestCreateOrderAfterPayment_MirrorsBillingAddress(t *testing.T) {
	f := newFixture()
	req := validRequest()
	req.BillingAddressID = ""

	o, err := f.svc.CreateOrderAfterPayment(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, f.addresses.created, 1)
	mirror := f.addresses.created[0]
	assert.Equal(t, "ship-1", mirror.MirroredFromID)
	assert.Equal(t, "Paris", mirror.City)
	assert.Equal(t, "u1", mirror.UserID)
	assert.Equal(t, mirror.ID, o.BillingAddressID)
	assert.NotEqual(t, o.ShippingAddressID, o.BillingAddressID)
}

func TestCreateOrderAfterPayment_InitialStatus(t *testing.T) {
	f := newFixture()
	req := validRequest()
	req.InitialStatus = "Awaiting Pickup"

	o, err := f.svc.CreateOrderAfterPayment(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "Awaiting Pickup", o.Status.Label)
	assert.Contains(t, f.statuses.byLabel, "Awaiting Pickup")
}

func TestCreateOrderAfterPayment_ReusesExistingStatus(t *testing.T) {
	f := newFixture()
	paid, err := f.statuses.Ensure(context.Background(), StatusPaid)
	require.NoError(t, err)

	o, err := f.svc.CreateOrderAfterPayment(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, paid.ID, o.Status.ID)
	assert.Len(t, f.statuses.byLabel, 1)
}

func TestCreateOrderAfterPayment_CreateError(t *testing.T) {
	f := newFixture()
	f.orders.createErr = errors.New("duplicate key value violates unique constraint")

	_, err := f.svc.CreateOrderAfterPayment(context.Background(), validRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create order")
	assert.Empty(t, f.orders.history)
	assert.True(t, f.carts.carts["u1"].IsOpen())
}

func TestFormatReference(t *testing.T) {
	at := time.Date(2025, 1, 2, 23, 30, 0, 0, time.UTC)

	assert.Equal(t, "3F2504E0-20250102-ABCD1234",
		formatReference("3f2504e0-4f89-11d3-9a0c-0305e82c3301", at, "ABCD1234"))
	assert.Equal(t, "ANON-20250102-ABCD1234", formatReference("", at, "ABCD1234"))
	assert.NotEqual(t, newReference("u1", at), newReference("u1", at))
}

func TestApplyOrder_NewOrderDefaults(t *testing.T) {
	f := newFixture()
	actor := user.Actor{UserID: "u1"}

	o, err := f.svc.ApplyOrder(context.Background(), ApplyOrderRequest{
		Actor: actor,
		Order: &Order{GrandTotal: eur("12.00")},
		IsNew: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "u1", o.UserID)
	assert.NotEmpty(t, o.ID)
	assert.NotEmpty(t, o.Reference)
	assert.Equal(t, fixedNow, o.CreatedAt)
	require.NotNil(t, o.Status)
	assert.Equal(t, StatusPendingPayment, o.Status.Label)

	history := f.orders.historyFor(o.ID)
	require.Len(t, history, 1)
	assert.Equal(t, o.Status.ID, history[0].Status.ID)
}

func TestApplyOrder_TargetUser(t *testing.T) {
	tests := []struct {
		name      string
		actor     user.Actor
		target    string
		wantOwner string
	}{
		{name: "privileged actor assigns target", actor: user.Actor{UserID: "admin", Privileged: true}, target: "u2", wantOwner: "u2"},
		{name: "privileged actor without target", actor: user.Actor{UserID: "admin", Privileged: true}, wantOwner: "admin"},
		{name: "regular actor ignores target", actor: user.Actor{UserID: "u1"}, target: "u2", wantOwner: "u1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()

			o, err := f.svc.ApplyOrder(context.Background(), ApplyOrderRequest{
				Actor:        tt.actor,
				TargetUserID: tt.target,
				Order:        &Order{},
				IsNew:        true,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.wantOwner, o.UserID)
		})
	}
}

func TestApplyOrder_HistoryOnlyOnChange(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	actor := user.Actor{UserID: "u1"}
	admin := user.Actor{UserID: "ops", Privileged: true}

	o, err := f.svc.CreateOrderAfterPayment(ctx, validRequest())
	require.NoError(t, err)
	require.Len(t, f.orders.historyFor(o.ID), 1)

	// Unrelated edit with the same status: no row.
	o.TrackingNumber = "6A00000000000"
	_, err = f.svc.ApplyOrder(ctx, ApplyOrderRequest{Actor: actor, Order: o})
	require.NoError(t, err)
	assert.Len(t, f.orders.historyFor(o.ID), 1)

	// Same status by label: no row.
	_, err = f.svc.ChangeStatus(ctx, admin, o.ID, StatusPaid)
	require.NoError(t, err)
	assert.Len(t, f.orders.historyFor(o.ID), 1)

	// Different status: exactly one more row.
	shipped, err := f.svc.ChangeStatus(ctx, admin, o.ID, StatusShipped)
	require.NoError(t, err)
	assert.Equal(t, StatusShipped, shipped.Status.Label)

	history, err := f.svc.History(ctx, actor, o.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, StatusPaid, history[0].Status.Label)
	assert.Equal(t, StatusShipped, history[1].Status.Label)

	// Any status may follow any other.
	_, err = f.svc.ChangeStatus(ctx, admin, o.ID, StatusPendingPayment)
	require.NoError(t, err)
	assert.Len(t, f.orders.historyFor(o.ID), 3)
}

func TestApplyOrder_ComparesPersistedStatus(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	actor := user.Actor{UserID: "u1"}

	o, err := f.svc.CreateOrderAfterPayment(ctx, validRequest())
	require.NoError(t, err)

	shipped, err := f.statuses.Ensure(ctx, StatusShipped)
	require.NoError(t, err)

	// The caller holds an in-memory order already pointing at the new
	// status; the comparison must use the stored one.
	o.Status = shipped
	_, err = f.svc.ApplyOrder(ctx, ApplyOrderRequest{Actor: actor, Order: o})
	require.NoError(t, err)
	assert.Len(t, f.orders.historyFor(o.ID), 2)
}

func TestApplyOrder_UnknownStatusID(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	actor := user.Actor{UserID: "u1"}

	o, err := f.svc.CreateOrderAfterPayment(ctx, validRequest())
	require.NoError(t, err)

	o.Status = &Status{ID: "status-404"}
	_, err = f.svc.ApplyOrder(ctx, ApplyOrderRequest{Actor: actor, Order: o})
	require.ErrorIs(t, err, ErrOrderStatusRequired)

	var srErr *StatusRequiredError
	require.ErrorAs(t, err, &srErr)
	assert.Equal(t, "status-404", srErr.StatusID)
	assert.Len(t, f.orders.historyFor(o.ID), 1)
}

func TestApplyOrder_Ownership(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	o, err := f.svc.CreateOrderAfterPayment(ctx, validRequest())
	require.NoError(t, err)

	stranger := user.Actor{UserID: "u2"}
	_, err = f.svc.ChangeStatus(ctx, stranger, o.ID, StatusShipped)
	require.ErrorIs(t, err, ErrStatusChangeForbidden)

	o.Status = &Status{Label: StatusShipped}
	_, err = f.svc.ApplyOrder(ctx, ApplyOrderRequest{Actor: stranger, Order: o})
	require.ErrorIs(t, err, ErrForbidden)

	admin := user.Actor{UserID: "ops", Privileged: true}
	_, err = f.svc.ChangeStatus(ctx, admin, o.ID, StatusShipped)
	require.NoError(t, err)
	assert.Len(t, f.orders.historyFor(o.ID), 2)
}

func TestChangeStatus_Errors(t *testing.T) {
	f := newFixture()
	actor := user.Actor{UserID: "ops", Privileged: true}

	_, err := f.svc.ChangeStatus(context.Background(), actor, "order-1", "")
	require.ErrorIs(t, err, ErrOrderStatusRequired)

	_, err = f.svc.ChangeStatus(context.Background(), actor, "missing", StatusShipped)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestChangeStatus_RequiresPrivilege(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	o, err := f.svc.CreateOrderAfterPayment(ctx, validRequest())
	require.NoError(t, err)

	owner := user.Actor{UserID: "u1"}
	_, err = f.svc.ChangeStatus(ctx, owner, o.ID, StatusShipped)
	require.ErrorIs(t, err, ErrStatusChangeForbidden)

	assert.Len(t, f.orders.historyFor(o.ID), 1)
	assert.Equal(t, StatusPaid, f.orders.orders[o.ID].Status.Label)
	_, created := f.statuses.byLabel[StatusShipped]
	assert.False(t, created, "no status row may be created")
}

func TestChangeStatus_KeepsConcurrentTrackingNumber(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	o, err := f.svc.CreateOrderAfterPayment(ctx, validRequest())
	require.NoError(t, err)

	// Another writer commits a tracking number before the status change
	// takes the order lock.
	f.tx.onBegin = func() {
		stored := f.orders.orders[o.ID]
		stored.TrackingNumber = "6A00000000001"
		f.orders.orders[o.ID] = stored
	}

	admin := user.Actor{UserID: "ops", Privileged: true}
	shipped, err := f.svc.ChangeStatus(ctx, admin, o.ID, StatusShipped)
	require.NoError(t, err)

	assert.Equal(t, "6A00000000001", shipped.TrackingNumber)
	assert.Equal(t, "6A00000000001", f.orders.orders[o.ID].TrackingNumber)
	assert.Equal(t, StatusShipped, f.orders.orders[o.ID].Status.Label)
}

func TestApplyOrder_FailureLeavesOrderUntouched(t *testing.T) {
	f := newFixture()
	f.orders.createErr = errors.New("db write failed")

	o := &Order{GrandTotal: eur("12.00")}
	_, err := f.svc.ApplyOrder(context.Background(), ApplyOrderRequest{
		Actor: user.Actor{UserID: "u1"},
		Order: o,
		IsNew: true,
	})
	require.Error(t, err)

	assert.Equal(t, &Order{GrandTotal: eur("12.00")}, o)
}

func TestApplyOrder_SuccessUpdatesCallerOrder(t *testing.T) {
	f := newFixture()

	o := &Order{GrandTotal: eur("12.00")}
	got, err := f.svc.ApplyOrder(context.Background(), ApplyOrderRequest{
		Actor: user.Actor{UserID: "u1"},
		Order: o,
		IsNew: true,
	})
	require.NoError(t, err)

	assert.Same(t, o, got)
	assert.Equal(t, "u1", o.UserID)
	assert.NotEmpty(t, o.ID)
	assert.NotEmpty(t, o.Reference)
	require.NotNil(t, o.Status)
}
