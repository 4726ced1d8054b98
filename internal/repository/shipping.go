package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-backoffice/internal/domain/money"
	"github.com/xenking/kart-backoffice/internal/domain/shipping"
)

const (
	getShippingMethodSQL = `SELECT m.id, m.name, m.price, c.id, c.name
		FROM shipping_methods m
		LEFT JOIN carriers c ON c.id = m.carrier_id
		WHERE m.id = $1`

	upsertCarrierSQL = `INSERT INTO carriers (id, name) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name`

	upsertShippingMethodSQL = `INSERT INTO shipping_methods (id, name, price, carrier_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, price = EXCLUDED.price, carrier_id = EXCLUDED.carrier_id`
)

var _ shipping.Repository = (*ShippingRepository)(nil)

// ShippingRepository implements shipping.Repository backed by PostgreSQL.
type ShippingRepository struct {
	pool *pgxpool.Pool
}

// NewShippingRepository returns a ShippingRepository that uses the given pool.
func NewShippingRepository(pool *pgxpool.Pool) *ShippingRepository {
	return &ShippingRepository{pool: pool}
}

// GetMethod returns a shipping method with its carrier, if any.
func (r *ShippingRepository) GetMethod(ctx context.Context, id string) (*shipping.Method, error) {
	var (
		m           shipping.Method
		price       decimal.Decimal
		carrierID   *string
		carrierName *string
	)
	err := conn(ctx, r.pool).QueryRow(ctx, getShippingMethodSQL, id).Scan(
		&m.ID, &m.Name, &price, &carrierID, &carrierName,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shipping.ErrMethodNotFound
		}
		return nil, fmt.Errorf("getting shipping method %q: %w", id, err)
	}
	m.Price = money.New(price)
	if carrierID != nil {
		m.Carrier = &shipping.Carrier{ID: *carrierID, Name: deref(carrierName)}
	}
	return &m, nil
}

// UpsertCarrier inserts or renames a carrier.
func (r *ShippingRepository) UpsertCarrier(ctx context.Context, c shipping.Carrier) error {
	if _, err := conn(ctx, r.pool).Exec(ctx, upsertCarrierSQL, c.ID, c.Name); err != nil {
		return fmt.Errorf("upserting carrier %q: %w", c.ID, err)
	}
	return nil
}

// UpsertMethod inserts or replaces a shipping method.
func (r *ShippingRepository) UpsertMethod(ctx context.Context, m shipping.Method) error {
	var carrierID *string
	if m.Carrier != nil {
		carrierID = &m.Carrier.ID
	}
	_, err := conn(ctx, r.pool).Exec(ctx, upsertShippingMethodSQL,
		m.ID, m.Name, m.Price.Decimal(), carrierID,
	)
	if err != nil {
		return fmt.Errorf("upserting shipping method %q: %w", m.ID, err)
	}
	return nil
}
