// Package repository defines storage ports for the cart service.
package repository

import (
	"context"

	"github.com/nhallard/storefront-cart/internal/domain"
)

// CartRepository stores carts keyed by user. Carts are created lazily and
// never deleted; clearing a cart persists it with zero lines.
type CartRepository interface {
	// Get returns the user's cart, or an error wrapping apperrors.ErrNotFound
	// if none has been persisted yet.
	Get(ctx context.Context, userID string) (*domain.Cart, error)

	// SaveIfVersion persists the cart only if the stored version still equals
	// expectedVersion (0 means "no cart exists yet"). On success the cart's
	// Version is advanced to expectedVersion+1 and (true, nil) is returned;
	// (false, nil) means another writer got there first and the caller should
	// re-read and retry.
	SaveIfVersion(ctx context.Context, cart *domain.Cart, expectedVersion int) (bool, error)
}
