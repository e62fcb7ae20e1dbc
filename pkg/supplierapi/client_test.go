package supplierapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchStyles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "account", user)
		assert.Equal(t, "key", pass)
		assert.Equal(t, "/v2/styles/", r.URL.Path)
		assert.Equal(t, "5001", r.URL.Query().Get("search"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"styleID": 39, "partNumber": "5001", "styleName": "5001", "brandName": "Gildan", "title": "Heavy Cotton Tee"}]`))
	}))
	t.Cleanup(srv.Close)

	c := NewClient("account", "key", srv.URL)
	styles, err := c.SearchStyles(context.Background(), "5001")
	require.NoError(t, err)
	require.Len(t, styles, 1)
	assert.Equal(t, 39, styles[0].StyleID)
	assert.Equal(t, "Gildan", styles[0].Brand)
}

func TestListProducts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/products/", r.URL.Path)
		assert.Equal(t, "39", r.URL.Query().Get("styleid"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"sku": "B001", "styleID": 39, "colorName": "Black", "sizeName": "S", "customerPrice": 5.20}]`))
	}))
	t.Cleanup(srv.Close)

	c := NewClient("account", "key", srv.URL)
	products, err := c.ListProducts(context.Background(), 39)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Black", products[0].ColorName)
	assert.Equal(t, "5.2", products[0].Price.String())
}

func TestAPIError429(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "120")
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	t.Cleanup(srv.Close)

	c := NewClient("account", "key", srv.URL)
	_, err := c.SearchStyles(context.Background(), "5001")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 429, apiErr.StatusCode)
	assert.Equal(t, 2*time.Minute, apiErr.RetryAfter)
	assert.Contains(t, apiErr.Error(), "HTTP 429")
}

func TestAPIErrorNon429HasNoRetryAfter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "broken", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	c := NewClient("account", "key", srv.URL)
	_, err := c.ListProducts(context.Background(), 39)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 500, apiErr.StatusCode)
	assert.Zero(t, apiErr.RetryAfter)
}

func TestMalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"not": "a list"`))
	}))
	t.Cleanup(srv.Close)

	c := NewClient("account", "key", srv.URL)
	_, err := c.SearchStyles(context.Background(), "5001")
	assert.Error(t, err)
}
