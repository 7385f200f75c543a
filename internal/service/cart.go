// Package service holds the cart business logic: validation against the
// catalog, line merging, derived totals, and the optimistic retry loop around
// concurrent writes to the same user's cart.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/nhallard/storefront-cart/pkg/errors"
	"github.com/nhallard/storefront-cart/pkg/logger"

	"github.com/nhallard/storefront-cart/internal/catalog"
	"github.com/nhallard/storefront-cart/internal/domain"
	"github.com/nhallard/storefront-cart/internal/event"
	"github.com/nhallard/storefront-cart/internal/repository"
)

const (
	// MaxQuantityPerItem caps a single line's quantity regardless of stock.
	MaxQuantityPerItem = 100
	// MaxItemsPerCart caps the number of distinct lines in a cart.
	MaxItemsPerCart = 50

	// saveAttempts bounds the optimistic-concurrency retry loop. Losing the
	// version race this many times in a row means the user is hammering their
	// own cart; surface a conflict instead of spinning.
	saveAttempts = 3
)

// CartService implements the cart operations.
type CartService struct {
	repo      repository.CartRepository
	catalog   catalog.ProductLookup
	publisher event.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

// NewCartService wires a cart service.
func NewCartService(repo repository.CartRepository, products catalog.ProductLookup, publisher event.Publisher, log *slog.Logger) *CartService {
	return &CartService{
		repo:      repo,
		catalog:   products,
		publisher: publisher,
		logger:    log,
		now:       time.Now,
	}
}

// GetCart returns the user's cart, creating and persisting an empty one on
// first access.
func (s *CartService) GetCart(ctx context.Context, userID string) (*domain.PopulatedCart, error) {
	cart, err := s.repo.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
		cart = s.newCart(userID)
		ok, saveErr := s.repo.SaveIfVersion(ctx, cart, 0)
		if saveErr != nil {
			return nil, saveErr
		}
		if !ok {
			// Another request created the cart between our read and write.
			cart, err = s.repo.Get(ctx, userID)
			if err != nil {
				return nil, err
			}
		}
	}
	return s.populate(ctx, cart)
}

// AddItem adds quantity units of a product to the cart. If the product is
// already in the cart the quantities merge into the existing line; the line
// keeps the price captured when it was first added. The combined quantity is
// checked against current stock, so repeating an add cannot oversell.
func (s *CartService) AddItem(ctx context.Context, userID, productID string, quantity int) (*domain.PopulatedCart, error) {
	if quantity < 1 {
		return nil, apperrors.InvalidInput("quantity must be at least 1")
	}
	if quantity > MaxQuantityPerItem {
		return nil, apperrors.InvalidInput(fmt.Sprintf("quantity must not exceed %d", MaxQuantityPerItem))
	}

	cart, err := s.mutate(ctx, userID, func(ctx context.Context, cart *domain.Cart) error {
		// Stock is read fresh on every attempt: a retry after a lost version
		// race must validate against the store, not a stale snapshot.
		product, err := s.catalog.GetProduct(ctx, productID)
		if err != nil {
			return err
		}

		idx := cart.FindItem(productID)
		existing := 0
		if idx >= 0 {
			existing = cart.Items[idx].Quantity
		}

		requested := existing + quantity
		if requested > product.CountInStock {
			return apperrors.InsufficientStock(productID, product.CountInStock)
		}
		if requested > MaxQuantityPerItem {
			return apperrors.InvalidInput(fmt.Sprintf("quantity must not exceed %d", MaxQuantityPerItem))
		}

		if idx >= 0 {
			cart.Items[idx].Quantity = requested
			return nil
		}
		if len(cart.Items) >= MaxItemsPerCart {
			return apperrors.InvalidInput(fmt.Sprintf("cart must not exceed %d distinct products", MaxItemsPerCart))
		}
		cart.Items = append(cart.Items, domain.CartItem{
			ProductID: productID,
			Quantity:  quantity,
			Price:     product.Price,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publisher.CartUpdated(ctx, cart)
	return s.populate(ctx, cart)
}

// UpdateItem sets the quantity of an existing line to an absolute value.
func (s *CartService) UpdateItem(ctx context.Context, userID, productID string, quantity int) (*domain.PopulatedCart, error) {
	if quantity < 1 {
		return nil, apperrors.InvalidInput("quantity must be at least 1")
	}
	if quantity > MaxQuantityPerItem {
		return nil, apperrors.InvalidInput(fmt.Sprintf("quantity must not exceed %d", MaxQuantityPerItem))
	}

	cart, err := s.mutate(ctx, userID, func(ctx context.Context, cart *domain.Cart) error {
		idx := cart.FindItem(productID)
		if idx < 0 {
			return apperrors.NotFound("cart item", productID)
		}

		product, err := s.catalog.GetProduct(ctx, productID)
		if err != nil {
			return err
		}
		if quantity > product.CountInStock {
			return apperrors.InsufficientStock(productID, product.CountInStock)
		}

		cart.Items[idx].Quantity = quantity
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publisher.CartUpdated(ctx, cart)
	return s.populate(ctx, cart)
}

// RemoveItem deletes a product's line from the cart. Removing a product that
// is not in the cart is a no-op: the cart is returned unchanged and nothing
// is written, so removal is safe to repeat.
func (s *CartService) RemoveItem(ctx context.Context, userID, productID string) (*domain.PopulatedCart, error) {
	cart, err := s.repo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return s.GetCart(ctx, userID)
		}
		return nil, err
	}
	if cart.FindItem(productID) < 0 {
		return s.populate(ctx, cart)
	}

	cart, err = s.mutate(ctx, userID, func(_ context.Context, cart *domain.Cart) error {
		if idx := cart.FindItem(productID); idx >= 0 {
			cart.RemoveItemAt(idx)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publisher.CartUpdated(ctx, cart)
	return s.populate(ctx, cart)
}

// ClearCart empties the cart. The cart itself survives with zero lines so the
// user's next read finds it with its identity and timestamps intact.
func (s *CartService) ClearCart(ctx context.Context, userID string) (*domain.PopulatedCart, error) {
	cart, err := s.mutate(ctx, userID, func(_ context.Context, cart *domain.Cart) error {
		cart.Items = nil
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publisher.CartCleared(ctx, cart)
	return s.populate(ctx, cart)
}

// mutate runs fn against a fresh copy of the user's cart and saves the result
// with a version check, retrying the whole read-mutate-write cycle on a lost
// race. fn must be side-effect free outside the cart it is handed.
func (s *CartService) mutate(ctx context.Context, userID string, fn func(ctx context.Context, cart *domain.Cart) error) (*domain.Cart, error) {
	log := logger.WithContext(ctx, s.logger)

	for attempt := 1; attempt <= saveAttempts; attempt++ {
		cart, err := s.repo.Get(ctx, userID)
		if err != nil {
			if !errors.Is(err, apperrors.ErrNotFound) {
				return nil, err
			}
			cart = s.newCart(userID)
		}

		if err := fn(ctx, cart); err != nil {
			return nil, err
		}

		cart.Recompute()
		cart.UpdatedAt = s.now().UTC()

		ok, err := s.repo.SaveIfVersion(ctx, cart, cart.Version)
		if err != nil {
			return nil, err
		}
		if ok {
			return cart, nil
		}

		log.Debug("cart version conflict, retrying",
			slog.String("user_id", userID),
			slog.Int("attempt", attempt))
	}

	return nil, apperrors.Conflict("cart was modified concurrently, please retry")
}

func (s *CartService) newCart(userID string) *domain.Cart {
	now := s.now().UTC()
	cart := &domain.Cart{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	cart.Recompute()
	return cart
}

// populate joins catalog details into the cart for the response. Products no
// longer in the catalog keep their line but carry no product details; a
// partially missing catalog must not fail a cart read.
func (s *CartService) populate(ctx context.Context, cart *domain.Cart) (*domain.PopulatedCart, error) {
	ids := make([]string, len(cart.Items))
	for i, item := range cart.Items {
		ids[i] = item.ProductID
	}

	products, err := s.catalog.GetProducts(ctx, ids)
	if err != nil {
		return nil, err
	}

	items := make([]domain.PopulatedItem, len(cart.Items))
	for i, item := range cart.Items {
		populated := domain.PopulatedItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price,
		}
		if p, ok := products[item.ProductID]; ok {
			populated.Product = &domain.ProductDetails{
				Name:        p.Name,
				Description: p.Description,
				Image:       p.Image,
				Price:       p.Price,
			}
		}
		items[i] = populated
	}

	return &domain.PopulatedCart{
		ID:         cart.ID,
		UserID:     cart.UserID,
		Items:      items,
		TotalItems: cart.TotalItems,
		TotalPrice: cart.TotalPrice,
		CreatedAt:  cart.CreatedAt,
		UpdatedAt:  cart.UpdatedAt,
	}, nil
}
