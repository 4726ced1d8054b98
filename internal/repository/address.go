package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/kart-backoffice/internal/domain/address"
)

const (
	getAddressByIDSQL = `SELECT id, user_id, full_name, line1, line2, postal_code, city, country, mirrored_from_id
		FROM addresses WHERE id = $1`

	createAddressSQL = `INSERT INTO addresses
		(id, user_id, full_name, line1, line2, postal_code, city, country, mirrored_from_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
)

var _ address.Repository = (*AddressRepository)(nil)

// AddressRepository implements address.Repository backed by PostgreSQL.
type AddressRepository struct {
	pool *pgxpool.Pool
}

// NewAddressRepository returns an AddressRepository that uses the given pool.
func NewAddressRepository(pool *pgxpool.Pool) *AddressRepository {
	return &AddressRepository{pool: pool}
}

// GetByID returns an address by its identifier.
func (r *AddressRepository) GetByID(ctx context.Context, id string) (*address.Address, error) {
	var (
		a        address.Address
		mirrored *string
	)
	err := conn(ctx, r.pool).QueryRow(ctx, getAddressByIDSQL, id).Scan(
		&a.ID, &a.UserID, &a.FullName, &a.Line1, &a.Line2,
		&a.PostalCode, &a.City, &a.Country, &mirrored,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, address.ErrNotFound
		}
		return nil, fmt.Errorf("getting address %q: %w", id, err)
	}
	a.MirroredFromID = deref(mirrored)
	return &a, nil
}

// Create persists a new address.
func (r *AddressRepository) Create(ctx context.Context, a *address.Address) error {
	_, err := conn(ctx, r.pool).Exec(ctx, createAddressSQL,
		a.ID, a.UserID, a.FullName, a.Line1, a.Line2,
		a.PostalCode, a.City, a.Country, nullable(a.MirroredFromID),
	)
	if err != nil {
		return fmt.Errorf("creating address %q: %w", a.ID, err)
	}
	return nil
}
