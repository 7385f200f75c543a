package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/nhallard/storefront-cart/pkg/errors"
	"github.com/nhallard/storefront-cart/pkg/health"
	"github.com/nhallard/storefront-cart/pkg/httputil"

	"github.com/nhallard/storefront-cart/internal/catalog"
	"github.com/nhallard/storefront-cart/internal/domain"
	"github.com/nhallard/storefront-cart/internal/event"
	"github.com/nhallard/storefront-cart/internal/service"
)

type memRepo struct {
	carts map[string]*domain.Cart
}

func (r *memRepo) Get(_ context.Context, userID string) (*domain.Cart, error) {
	cart, ok := r.carts[userID]
	if !ok {
		return nil, apperrors.NotFound("cart", userID)
	}
	c := *cart
	c.Items = append([]domain.CartItem(nil), c.Items...)
	return &c, nil
}

func (r *memRepo) SaveIfVersion(_ context.Context, cart *domain.Cart, expectedVersion int) (bool, error) {
	current := 0
	if stored, ok := r.carts[cart.UserID]; ok {
		current = stored.Version
	}
	if current != expectedVersion {
		return false, nil
	}
	c := *cart
	c.Items = append([]domain.CartItem(nil), c.Items...)
	c.Version = expectedVersion + 1
	r.carts[cart.UserID] = &c
	cart.Version = c.Version
	return true, nil
}

type memCatalog struct {
	products map[string]*catalog.Product
}

func (c *memCatalog) GetProduct(_ context.Context, id string) (*catalog.Product, error) {
	p, ok := c.products[id]
	if !ok {
		return nil, apperrors.NotFound("product", id)
	}
	return p, nil
}

func (c *memCatalog) GetProducts(_ context.Context, ids []string) (map[string]*catalog.Product, error) {
	result := make(map[string]*catalog.Product, len(ids))
	for _, id := range ids {
		if p, ok := c.products[id]; ok {
			result[id] = p
		}
	}
	return result, nil
}

func newTestRouter(t *testing.T, jwtSecret string) http.Handler {
	t.Helper()

	log := slog.New(slog.DiscardHandler)
	repo := &memRepo{carts: make(map[string]*domain.Cart)}
	products := &memCatalog{products: map[string]*catalog.Product{
		"prod-1": {
			ID:           "prod-1",
			Name:         "Espresso Beans",
			Price:        decimal.RequireFromString("10.00"),
			CountInStock: 5,
		},
	}}
	svc := service.NewCartService(repo, products, event.NoopPublisher{}, log)
	handler := NewCartHandler(svc, log)

	return NewRouter(RouterConfig{
		ServiceName: "cart-service-test",
		JWTSecret:   jwtSecret,
	}, handler, health.NewHandler(), log)
}

func doRequest(t *testing.T, router http.Handler, method, path, userID, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeCart(t *testing.T, rec *httptest.ResponseRecorder) domain.PopulatedCart {
	t.Helper()
	var resp struct {
		Data domain.PopulatedCart `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Data
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) httputil.ErrorResponse {
	t.Helper()
	var resp struct {
		Error httputil.ErrorResponse `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

func TestGetCart_CreatesEmptyCart(t *testing.T) {
	router := newTestRouter(t, "")

	rec := doRequest(t, router, http.MethodGet, "/api/v1/cart", "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	cart := decodeCart(t, rec)
	assert.Equal(t, "u1", cart.UserID)
	assert.Empty(t, cart.Items)
	assert.Equal(t, 0, cart.TotalItems)
}

func TestCartFlow(t *testing.T) {
	router := newTestRouter(t, "")

	rec := doRequest(t, router, http.MethodPost, "/api/v1/cart/items", "u1",
		`{"product_id":"prod-1","quantity":3}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cart := decodeCart(t, rec)
	assert.Equal(t, 3, cart.TotalItems)
	assert.True(t, cart.TotalPrice.Equal(decimal.RequireFromString("30.00")))
	require.Len(t, cart.Items, 1)
	require.NotNil(t, cart.Items[0].Product)
	assert.Equal(t, "Espresso Beans", cart.Items[0].Product.Name)

	// A second add of 3 would exceed the 5 in stock.
	rec = doRequest(t, router, http.MethodPost, "/api/v1/cart/items", "u1",
		`{"product_id":"prod-1","quantity":3}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	errResp := decodeError(t, rec)
	assert.Equal(t, "INSUFFICIENT_STOCK", errResp.Code)
	assert.Contains(t, errResp.Message, "prod-1")

	rec = doRequest(t, router, http.MethodPut, "/api/v1/cart/items/prod-1", "u1",
		`{"quantity":5}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cart = decodeCart(t, rec)
	assert.Equal(t, 5, cart.TotalItems)
	assert.True(t, cart.TotalPrice.Equal(decimal.RequireFromString("50.00")))

	rec = doRequest(t, router, http.MethodDelete, "/api/v1/cart/items/prod-1", "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	cart = decodeCart(t, rec)
	assert.Empty(t, cart.Items)

	rec = doRequest(t, router, http.MethodDelete, "/api/v1/cart", "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	cart = decodeCart(t, rec)
	assert.Equal(t, 0, cart.TotalItems)
	assert.True(t, cart.TotalPrice.IsZero())
}

func TestAddItem_ValidationErrors(t *testing.T) {
	router := newTestRouter(t, "")

	tests := []struct {
		name string
		body string
	}{
		{"missing body", ""},
		{"malformed json", `{"product_id":`},
		{"missing product id", `{"quantity":2}`},
		{"zero quantity", `{"product_id":"prod-1","quantity":0}`},
		{"negative quantity", `{"product_id":"prod-1","quantity":-2}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, router, http.MethodPost, "/api/v1/cart/items", "u1", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestAddItem_UnknownProduct(t *testing.T) {
	router := newTestRouter(t, "")

	rec := doRequest(t, router, http.MethodPost, "/api/v1/cart/items", "u1",
		`{"product_id":"ghost","quantity":1}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, rec).Code)
}

func TestUpdateItem_NotInCart(t *testing.T) {
	router := newTestRouter(t, "")

	rec := doRequest(t, router, http.MethodPut, "/api/v1/cart/items/prod-1", "u1",
		`{"quantity":2}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMissingIdentity(t *testing.T) {
	router := newTestRouter(t, "")

	for _, tc := range []struct{ method, path, body string }{
		{http.MethodGet, "/api/v1/cart", ""},
		{http.MethodPost, "/api/v1/cart/items", `{"product_id":"prod-1","quantity":1}`},
		{http.MethodDelete, "/api/v1/cart", ""},
	} {
		rec := doRequest(t, router, tc.method, tc.path, "", tc.body)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", tc.method, tc.path)
		assert.Equal(t, "UNAUTHORIZED", decodeError(t, rec).Code)
	}
}

func TestJWTIdentity(t *testing.T) {
	const secret = "test-secret"
	router := newTestRouter(t, secret)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "u-jwt",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "u-jwt", decodeCart(t, rec).UserID)

	// When a JWT secret is configured the gateway header is not trusted.
	rec = doRequest(t, router, http.MethodGet, "/api/v1/cart", "u1", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTIdentity_BadToken(t *testing.T) {
	router := newTestRouter(t, "test-secret")

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "u-jwt",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte("wrong-secret"))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUnsupportedContentType(t *testing.T) {
	router := newTestRouter(t, "")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader("product_id=prod-1"))
	req.Header.Set("X-User-ID", "u1")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestHealthEndpoints(t *testing.T) {
	router := newTestRouter(t, "")

	rec := doRequest(t, router, http.MethodGet, "/health/live", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/health/ready", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
