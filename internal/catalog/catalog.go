// Package catalog defines the read-only view of the product catalog the cart
// service depends on. The catalog is owned elsewhere; this service never
// writes to it and never caches stock counts.
package catalog

import (
	"context"

	"github.com/shopspring/decimal"
)

// Product is the subset of catalog data the cart needs: display fields for
// response population plus price and stock for validation.
type Product struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Image        string          `json:"image"`
	Price        decimal.Decimal `json:"price"`
	CountInStock int             `json:"count_in_stock"`
}

// ProductLookup resolves products from the catalog.
type ProductLookup interface {
	// GetProduct returns the product with the given ID, or an error wrapping
	// apperrors.ErrNotFound if it does not exist. Stock is read fresh on
	// every call.
	GetProduct(ctx context.Context, id string) (*Product, error)

	// GetProducts resolves a batch of product IDs for response population.
	// IDs that no longer exist in the catalog are simply absent from the
	// result; a partial catalog must not fail a cart read.
	GetProducts(ctx context.Context, ids []string) (map[string]*Product, error)
}
