// Package postgres implements catalog.ProductLookup against a products table
// shared with the catalog service. Read-only: the cart never writes catalog
// rows.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	apperrors "github.com/nhallard/storefront-cart/pkg/errors"

	"github.com/nhallard/storefront-cart/internal/catalog"
)

// Querier is the subset of pgxpool.Pool the repository needs.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// ProductRepository reads products with pgx.
type ProductRepository struct {
	db Querier
}

// NewProductRepository creates a read-only product repository.
func NewProductRepository(db Querier) *ProductRepository {
	return &ProductRepository{db: db}
}

const productColumns = `id, name, description, COALESCE(image_url, ''), price::text, count_in_stock`

// GetProduct returns a single product or apperrors.NotFound.
func (r *ProductRepository) GetProduct(ctx context.Context, id string) (*catalog.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	row := r.db.QueryRow(ctx, query, id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("product", id)
		}
		return nil, fmt.Errorf("querying product %s: %w", id, err)
	}
	return p, nil
}

// GetProducts resolves a batch of IDs in one round trip. IDs without a
// matching row are absent from the result.
func (r *ProductRepository) GetProducts(ctx context.Context, ids []string) (map[string]*catalog.Product, error) {
	products := make(map[string]*catalog.Product, len(ids))
	if len(ids) == 0 {
		return products, nil
	}

	query := `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1)`

	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("querying products: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning product: %w", err)
		}
		products[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating products: %w", err)
	}
	return products, nil
}

func scanProduct(row pgx.Row) (*catalog.Product, error) {
	var (
		p        catalog.Product
		priceRaw string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Image, &priceRaw, &p.CountInStock); err != nil {
		return nil, err
	}

	price, err := decimal.NewFromString(priceRaw)
	if err != nil {
		return nil, fmt.Errorf("parsing price %q: %w", priceRaw, err)
	}
	p.Price = price
	return &p, nil
}
