// Package httpapi implements catalog.ProductLookup against the catalog
// service's HTTP API.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	apperrors "github.com/nhallard/storefront-cart/pkg/errors"
	"github.com/nhallard/storefront-cart/pkg/httpclient"

	"github.com/nhallard/storefront-cart/internal/catalog"
)

// HTTPGetter performs GET requests. Both httpclient.Client and
// httpclient.CircuitBreakerClient satisfy this.
type HTTPGetter interface {
	Get(ctx context.Context, url string) (*http.Response, error)
}

// Client is an HTTP adapter to the catalog service.
type Client struct {
	http    HTTPGetter
	baseURL string
}

// NewClient creates a catalog client for the given base URL
// (e.g. "http://catalog:8001").
func NewClient(getter HTTPGetter, baseURL string) *Client {
	return &Client{
		http:    getter,
		baseURL: baseURL,
	}
}

// productResponse is the catalog service's response envelope.
type productResponse struct {
	Data *catalog.Product `json:"data"`
}

// GetProduct fetches a single product. A catalog 404 is returned as an
// apperrors.NotFound so callers can branch on apperrors.ErrNotFound.
func (c *Client) GetProduct(ctx context.Context, id string) (*catalog.Product, error) {
	u := c.baseURL + "/api/v1/products/" + url.PathEscape(id)

	resp, err := c.http.Get(ctx, u)
	if err != nil {
		if errors.Is(err, httpclient.ErrCircuitOpen) {
			return nil, apperrors.ServiceUnavailable("catalog is temporarily unavailable")
		}
		return nil, fmt.Errorf("call catalog: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, httpclient.ParseResponseError(resp, "catalog")
	}
	defer func() { _ = resp.Body.Close() }()

	var pr productResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return nil, fmt.Errorf("decode product response: %w", err)
	}
	if pr.Data == nil {
		return nil, fmt.Errorf("catalog returned empty product payload")
	}

	return pr.Data, nil
}

// GetProducts resolves a batch of IDs one by one, skipping products the
// catalog no longer knows. Population tolerates a partial catalog; any other
// failure aborts the batch.
func (c *Client) GetProducts(ctx context.Context, ids []string) (map[string]*catalog.Product, error) {
	products := make(map[string]*catalog.Product, len(ids))
	for _, id := range ids {
		p, err := c.GetProduct(ctx, id)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				continue
			}
			return nil, err
		}
		products[id] = p
	}
	return products, nil
}
