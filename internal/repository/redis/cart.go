// Package redis implements repository.CartRepository on Redis. Each cart is a
// single JSON value; writes go through a Lua compare-and-set on the cart's
// version so concurrent mutations on the same user cannot silently overwrite
// each other.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/nhallard/storefront-cart/pkg/errors"

	"github.com/nhallard/storefront-cart/internal/domain"
)

const keyPrefix = "cart:"

// saveIfVersionScript compares the version field of the stored cart JSON with
// ARGV[1] and writes ARGV[2] only on match. An expected version of 0 requires
// that no cart exists yet. ARGV[3] is a TTL in milliseconds, 0 for none.
// Returns 1 on success, 0 on version mismatch.
var saveIfVersionScript = redis.NewScript(`
local current = redis.call('GET', KEYS[1])
local expected = tonumber(ARGV[1])
if current == false then
    if expected ~= 0 then
        return 0
    end
else
    local cart = cjson.decode(current)
    if tonumber(cart['version']) ~= expected then
        return 0
    end
end
local ttl = tonumber(ARGV[3])
if ttl > 0 then
    redis.call('SET', KEYS[1], ARGV[2], 'PX', ttl)
else
    redis.call('SET', KEYS[1], ARGV[2])
end
return 1
`)

// CartRepository stores carts in Redis, one JSON value per user.
type CartRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCartRepository creates a Redis-backed cart repository. A zero ttl means
// carts persist indefinitely.
func NewCartRepository(client *redis.Client, ttl time.Duration) *CartRepository {
	return &CartRepository{client: client, ttl: ttl}
}

func cartKey(userID string) string {
	return keyPrefix + userID
}

// Get loads the user's cart.
func (r *CartRepository) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	data, err := r.client.Get(ctx, cartKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.NotFound("cart", userID)
		}
		return nil, fmt.Errorf("getting cart for user %s: %w", userID, err)
	}

	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("unmarshaling cart for user %s: %w", userID, err)
	}
	return &cart, nil
}

// SaveIfVersion persists the cart if the stored version still equals
// expectedVersion. On success the in-memory cart's Version is advanced.
func (r *CartRepository) SaveIfVersion(ctx context.Context, cart *domain.Cart, expectedVersion int) (bool, error) {
	next := *cart
	next.Version = expectedVersion + 1

	data, err := json.Marshal(&next)
	if err != nil {
		return false, fmt.Errorf("marshaling cart for user %s: %w", cart.UserID, err)
	}

	res, err := saveIfVersionScript.Run(ctx, r.client,
		[]string{cartKey(cart.UserID)},
		expectedVersion, data, r.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("saving cart for user %s: %w", cart.UserID, err)
	}
	if res != 1 {
		return false, nil
	}

	cart.Version = next.Version
	return true, nil
}
