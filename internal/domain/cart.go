package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cart is the per-user aggregate of selected-but-not-yet-ordered product
// lines. TotalItems and TotalPrice are derived; Recompute is the only place
// they are set. Version backs the optimistic-concurrency save in the
// repository and is never touched by business code.
type Cart struct {
	ID         string          `json:"id"`
	UserID     string          `json:"user_id"`
	Items      []CartItem      `json:"items"`
	TotalItems int             `json:"total_items"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Version    int             `json:"version"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// CartItem is one line within a cart. Price is the unit price captured when
// the product was first added; it is intentionally not re-priced when the
// catalog price changes later.
type CartItem struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// Subtotal returns price × quantity for this line.
func (i CartItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Recompute derives TotalItems and TotalPrice from the line items. Mutators
// must call it immediately before persisting and never adjust the totals
// incrementally.
func (c *Cart) Recompute() {
	items := 0
	total := decimal.Zero
	for _, it := range c.Items {
		items += it.Quantity
		total = total.Add(it.Subtotal())
	}
	c.TotalItems = items
	c.TotalPrice = total
}

// FindItem returns the index of the line referencing the given product, or -1.
func (c *Cart) FindItem(productID string) int {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// RemoveItemAt deletes the line at index i, preserving line order.
func (c *Cart) RemoveItemAt(i int) {
	c.Items = append(c.Items[:i], c.Items[i+1:]...)
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}
