package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/kart-backoffice/internal/domain/order"
)

const (
	// The no-op update makes RETURNING yield the existing row on conflict.
	ensureStatusSQL = `INSERT INTO order_statuses (id, label) VALUES ($1, $2)
		ON CONFLICT (label) DO UPDATE SET label = EXCLUDED.label
		RETURNING id, label`

	getStatusByIDSQL = `SELECT id, label FROM order_statuses WHERE id = $1`
)

var _ order.StatusRepository = (*StatusRepository)(nil)

// StatusRepository implements order.StatusRepository backed by PostgreSQL.
type StatusRepository struct {
	pool *pgxpool.Pool
}

// NewStatusRepository returns a StatusRepository that uses the given pool.
func NewStatusRepository(pool *pgxpool.Pool) *StatusRepository {
	return &StatusRepository{pool: pool}
}

// Ensure returns the status with the given label, inserting it when absent.
func (r *StatusRepository) Ensure(ctx context.Context, label string) (*order.Status, error) {
	var st order.Status
	err := conn(ctx, r.pool).QueryRow(ctx, ensureStatusSQL, uuid.New().String(), label).
		Scan(&st.ID, &st.Label)
	if err != nil {
		return nil, fmt.Errorf("ensuring status %q: %w", label, err)
	}
	return &st, nil
}

// GetByID returns a status by its identifier.
func (r *StatusRepository) GetByID(ctx context.Context, id string) (*order.Status, error) {
	var st order.Status
	err := conn(ctx, r.pool).QueryRow(ctx, getStatusByIDSQL, id).Scan(&st.ID, &st.Label)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrStatusNotFound
		}
		return nil, fmt.Errorf("getting status %q: %w", id, err)
	}
	return &st, nil
}
