package client

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sellforge/ratings-service/pkg/httpclient"
)

func newTestCatalogClient(t *testing.T, handler http.HandlerFunc) *CatalogClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	hc := httpclient.New(httpclient.Config{Timeout: time.Second, MaxRetries: 0})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewCatalogClient(hc, srv.URL, logger)
}

func TestCatalogClient_GetProduct_Success(t *testing.T) {
	c := newTestCatalogClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/products/prod-100", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"prod-100","name":"Face Serum","status":"active"}`))
	})

	p, err := c.GetProduct(context.Background(), "prod-100")
	require.NoError(t, err)
	assert.Equal(t, "prod-100", p.ID)
	assert.Equal(t, "Face Serum", p.Name)
}

func TestCatalogClient_ProductExists_True(t *testing.T) {
	c := newTestCatalogClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"prod-100"}`))
	})

	ok, err := c.ProductExists(context.Background(), "prod-100")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCatalogClient_ProductExists_NotFound(t *testing.T) {
	c := newTestCatalogClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":"NOT_FOUND","message":"product not found"}}`))
	})

	ok, err := c.ProductExists(context.Background(), "prod-missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCatalogClient_ProductExists_ServerError(t *testing.T) {
	c := newTestCatalogClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`upstream exploded`))
	})

	_, err := c.ProductExists(context.Background(), "prod-100")
	assert.Error(t, err)
}
