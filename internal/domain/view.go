package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductDetails holds the catalog display fields joined into cart responses.
// This is read-side enrichment only; it is never written back to the stored
// cart document.
type ProductDetails struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Image       string          `json:"image,omitempty"`
	Price       decimal.Decimal `json:"price"`
}

// PopulatedItem is a cart line with its product details joined in. Price is
// the cart's snapshot price; Product.Price is the current catalog price.
type PopulatedItem struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Product   *ProductDetails `json:"product,omitempty"`
}

// PopulatedCart is the response shape for all cart operations.
type PopulatedCart struct {
	ID         string          `json:"id"`
	UserID     string          `json:"user_id"`
	Items      []PopulatedItem `json:"items"`
	TotalItems int             `json:"total_items"`
	TotalPrice decimal.Decimal `json:"total_price"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}
