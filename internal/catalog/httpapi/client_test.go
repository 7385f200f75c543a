package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/nhallard/storefront-cart/pkg/errors"
	"github.com/nhallard/storefront-cart/pkg/httpclient"

	"github.com/nhallard/storefront-cart/internal/catalog"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := httpclient.DefaultConfig()
	cfg.MaxRetries = 0
	return NewClient(httpclient.New(cfg), srv.URL)
}

func TestGetProduct_Success(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/products/prod-1", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"id":             "prod-1",
				"name":           "Espresso Beans",
				"description":    "Dark roast",
				"image":          "https://img.example.com/beans.jpg",
				"price":          "12.50",
				"count_in_stock": 5,
			},
		})
	})

	p, err := client.GetProduct(context.Background(), "prod-1")
	require.NoError(t, err)
	assert.Equal(t, "prod-1", p.ID)
	assert.Equal(t, "Espresso Beans", p.Name)
	assert.True(t, p.Price.Equal(decimal.RequireFromString("12.50")))
	assert.Equal(t, 5, p.CountInStock)
}

func TestGetProduct_NotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"code": "NOT_FOUND", "message": "product not found"},
		})
	})

	p, err := client.GetProduct(context.Background(), "missing")
	assert.Nil(t, p)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestGetProduct_ServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	p, err := client.GetProduct(context.Background(), "prod-1")
	assert.Nil(t, p)
	require.Error(t, err)
	assert.NotErrorIs(t, err, apperrors.ErrNotFound)
}

func TestGetProducts_SkipsMissing(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/api/v1/products/gone" {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]string{"code": "NOT_FOUND", "message": "product not found"},
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"id":             "prod-1",
				"name":           "Espresso Beans",
				"price":          "12.50",
				"count_in_stock": 5,
			},
		})
	})

	products, err := client.GetProducts(context.Background(), []string{"prod-1", "gone"})
	require.NoError(t, err)
	require.Len(t, products, 1)

	var p *catalog.Product = products["prod-1"]
	require.NotNil(t, p)
	assert.Equal(t, "Espresso Beans", p.Name)
	assert.NotContains(t, products, "gone")
}
