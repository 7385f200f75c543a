package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/nhallard/storefront-cart/pkg/errors"

	"github.com/nhallard/storefront-cart/internal/catalog"
	"github.com/nhallard/storefront-cart/internal/domain"
	"github.com/nhallard/storefront-cart/internal/event"
)

// fakeRepo is an in-memory CartRepository with the same version semantics as
// the Redis implementation. Carts round-trip through JSON so tests exercise
// the stored representation, not shared pointers.
type fakeRepo struct {
	mu    sync.Mutex
	carts map[string][]byte
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{carts: make(map[string][]byte)}
}

func (r *fakeRepo) Get(_ context.Context, userID string) (*domain.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, ok := r.carts[userID]
	if !ok {
		return nil, apperrors.NotFound("cart", userID)
	}
	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *fakeRepo) SaveIfVersion(_ context.Context, cart *domain.Cart, expectedVersion int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current := 0
	if data, ok := r.carts[cart.UserID]; ok {
		var stored domain.Cart
		if err := json.Unmarshal(data, &stored); err != nil {
			return false, err
		}
		current = stored.Version
	}
	if current != expectedVersion {
		return false, nil
	}

	next := *cart
	next.Version = expectedVersion + 1
	data, err := json.Marshal(&next)
	if err != nil {
		return false, err
	}
	r.carts[cart.UserID] = data
	cart.Version = next.Version
	return true, nil
}

// fakeCatalog serves a fixed product map.
type fakeCatalog struct {
	products map[string]*catalog.Product
}

func (c *fakeCatalog) GetProduct(_ context.Context, id string) (*catalog.Product, error) {
	p, ok := c.products[id]
	if !ok {
		return nil, apperrors.NotFound("product", id)
	}
	return p, nil
}

func (c *fakeCatalog) GetProducts(_ context.Context, ids []string) (map[string]*catalog.Product, error) {
	result := make(map[string]*catalog.Product, len(ids))
	for _, id := range ids {
		if p, ok := c.products[id]; ok {
			result[id] = p
		}
	}
	return result, nil
}

// TestCartInvariants_RandomOperations throws a random operation sequence at
// the service and checks after every step that the stored cart's totals match
// its lines, no line exceeds stock, and no duplicate lines exist.
func TestCartInvariants_RandomOperations(t *testing.T) {
	products := map[string]*catalog.Product{}
	for i := range 5 {
		id := fmt.Sprintf("prod-%d", i)
		products[id] = &catalog.Product{
			ID:           id,
			Name:         fmt.Sprintf("Product %d", i),
			Price:        decimal.New(int64(100+i*25), -2),
			CountInStock: 3 + i*2,
		}
	}

	repo := newFakeRepo()
	svc := NewCartService(repo, &fakeCatalog{products: products}, event.NoopPublisher{}, slog.New(slog.DiscardHandler))
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))

	for step := range 300 {
		id := fmt.Sprintf("prod-%d", rng.Intn(5))
		switch rng.Intn(10) {
		case 0:
			_, err := svc.ClearCart(ctx, "u1")
			require.NoError(t, err, "step %d", step)
		case 1, 2:
			_, err := svc.RemoveItem(ctx, "u1", id)
			require.NoError(t, err, "step %d", step)
		case 3, 4:
			_, err := svc.UpdateItem(ctx, "u1", id, 1+rng.Intn(12))
			if err != nil {
				require.True(t,
					apperrors.HTTPStatus(err) == 404 || apperrors.HTTPStatus(err) == 409,
					"step %d: unexpected error %v", step, err)
			}
		default:
			_, err := svc.AddItem(ctx, "u1", id, 1+rng.Intn(4))
			if err != nil {
				assert.ErrorIs(t, err, apperrors.ErrInsufficientStock, "step %d", step)
			}
		}

		cart, err := repo.Get(ctx, "u1")
		require.NoError(t, err, "step %d", step)

		seen := map[string]bool{}
		wantItems := 0
		wantTotal := decimal.Zero
		for _, item := range cart.Items {
			require.False(t, seen[item.ProductID], "step %d: duplicate line for %s", step, item.ProductID)
			seen[item.ProductID] = true
			require.GreaterOrEqual(t, item.Quantity, 1, "step %d", step)
			require.LessOrEqual(t, item.Quantity, products[item.ProductID].CountInStock, "step %d", step)
			wantItems += item.Quantity
			wantTotal = wantTotal.Add(item.Subtotal())
		}
		require.Equal(t, wantItems, cart.TotalItems, "step %d", step)
		require.True(t, wantTotal.Equal(cart.TotalPrice), "step %d: want %s got %s", step, wantTotal, cart.TotalPrice)
	}
}
