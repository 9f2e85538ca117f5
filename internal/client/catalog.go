// Package client holds HTTP clients for downstream services.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	apperrors "github.com/sellforge/ratings-service/pkg/errors"
	"github.com/sellforge/ratings-service/pkg/httpclient"
)

// HTTPDoer executes HTTP requests. Both httpclient.Client and
// httpclient.CircuitBreakerClient satisfy this.
type HTTPDoer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Product is the subset of the catalog's product document the ratings
// service cares about.
type Product struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

// CatalogClient talks to the catalog service to verify that reviewed
// products exist.
type CatalogClient struct {
	httpClient HTTPDoer
	baseURL    string
	logger     *slog.Logger
}

// NewCatalogClient creates a catalog client against baseURL.
func NewCatalogClient(httpClient HTTPDoer, baseURL string, logger *slog.Logger) *CatalogClient {
	return &CatalogClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		logger:     logger,
	}
}

// GetProduct fetches a product by ID. It returns apperrors.ErrNotFound when
// the catalog does not know the product.
func (c *CatalogClient) GetProduct(ctx context.Context, productID string) (*Product, error) {
	endpoint := c.baseURL + "/api/v1/products/" + url.PathEscape(productID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create product request: %w", err)
	}

	resp, err := c.httpClient.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("call catalog service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, httpclient.ParseResponseError(resp, "catalog")
	}

	var product Product
	if err := json.NewDecoder(resp.Body).Decode(&product); err != nil {
		return nil, fmt.Errorf("decode product response: %w", err)
	}

	return &product, nil
}

// ProductExists reports whether the catalog knows the product. A missing
// product is not an error; any other catalog failure is.
func (c *CatalogClient) ProductExists(ctx context.Context, productID string) (bool, error) {
	_, err := c.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
