package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-backoffice/internal/domain/money"
	"github.com/xenking/kart-backoffice/internal/domain/product"
)

const (
	listProductsSQL = `SELECT id, name, category, price, stock
		FROM products ORDER BY id`

	getProductByIDSQL = `SELECT id, name, category, price, stock
		FROM products WHERE id = $1`

	getProductsByIDsSQL = `SELECT id, name, category, price, stock
		FROM products WHERE id = ANY($1)`

	setProductStockSQL = `UPDATE products SET stock = $2, updated_at = now() WHERE id = $1`

	upsertProductSQL = `INSERT INTO products (id, name, category, price, stock)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, category = EXCLUDED.category,
			price = EXCLUDED.price, stock = EXCLUDED.stock, updated_at = now()`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns all products from the catalog ordered by ID.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	return &p, nil
}

// GetByIDs returns products matching any of the given IDs.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]product.Product, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, getProductsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// SetStock overwrites the available stock of a product.
func (r *ProductRepository) SetStock(ctx context.Context, id string, stock int) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, setProductStockSQL, id, stock)
	if err != nil {
		return fmt.Errorf("setting stock for product %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

// ApplyStock sets stock levels for many products in one batch and returns
// the ids that matched no product.
func (r *ProductRepository) ApplyStock(ctx context.Context, levels map[string]int) ([]string, error) {
	if len(levels) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(levels))
	batch := &pgx.Batch{}
	for id, stock := range levels {
		ids = append(ids, id)
		batch.Queue(setProductStockSQL, id, stock)
	}

	br := conn(ctx, r.pool).SendBatch(ctx, batch)
	defer br.Close()

	var missing []string
	for _, id := range ids {
		tag, err := br.Exec()
		if err != nil {
			return nil, fmt.Errorf("setting stock for product %q: %w", id, err)
		}
		if tag.RowsAffected() == 0 {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

// Upsert inserts or replaces a catalog entry.
func (r *ProductRepository) Upsert(ctx context.Context, p product.Product) error {
	_, err := conn(ctx, r.pool).Exec(ctx, upsertProductSQL,
		p.ID, p.Name, p.Category, p.Price.Decimal(), p.Stock,
	)
	if err != nil {
		return fmt.Errorf("upserting product %q: %w", p.ID, err)
	}
	return nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var (
		p     product.Product
		price decimal.Decimal
		stock int32
	)
	err := row.Scan(&p.ID, &p.Name, &p.Category, &price, &stock)
	p.Price = money.New(price)
	p.Stock = int(stock)
	return p, err
}
