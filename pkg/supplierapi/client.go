// Package supplierapi provides a client for an apparel supplier's official
// catalog API: Basic-Auth GETs against a style list endpoint and a per-style
// product variant endpoint.
package supplierapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
)

// Client defines the two read operations the import pipeline needs.
type Client interface {
	// SearchStyles queries the style list endpoint with a free-text search.
	SearchStyles(ctx context.Context, query string) ([]Style, error)
	// ListProducts returns the product variants for a style.
	ListProducts(ctx context.Context, styleID int) ([]Product, error)
}

// Style is one entry from GET /styles.
type Style struct {
	StyleID     int    `json:"styleID"`
	PartNumber  string `json:"partNumber"`
	Name        string `json:"styleName"`
	Brand       string `json:"brandName"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"baseCategory"`
	StyleImage  string `json:"styleImage"`
}

// Product is one variant (color × size) from GET /products.
type Product struct {
	SKU          string          `json:"sku"`
	StyleID      int             `json:"styleID"`
	ColorName    string          `json:"colorName"`
	SizeName     string          `json:"sizeName"`
	Price        decimal.Decimal `json:"customerPrice"`
	ColorFront   string          `json:"colorFrontImage"`
	ColorBack    string          `json:"colorBackImage"`
	ColorSwatch  string          `json:"colorSwatchImage"`
	QtyAvailable int             `json:"qty"`
}

// APIError is returned when the supplier responds with a non-2xx status.
// RetryAfter is populated from the Retry-After header on 429 responses.
type APIError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	return fmt.Sprintf("supplierapi: HTTP %d: %s", e.StatusCode, e.Body)
}

// Option configures the httpClient.
type Option func(*httpClient)

// WithBaseURL overrides the default base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) { c.baseURL = u }
}

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

type httpClient struct {
	account string
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a supplier API client. account and apiKey form the
// Basic-Auth pair.
func NewClient(account, apiKey, baseURL string, opts ...Option) Client {
	c := &httpClient{
		account: account,
		apiKey:  apiKey,
		baseURL: baseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) SearchStyles(ctx context.Context, query string) ([]Style, error) {
	var styles []Style
	path := "/v2/styles/?search=" + url.QueryEscape(query)
	if err := c.get(ctx, path, &styles); err != nil {
		return nil, eris.Wrap(err, "supplierapi: search styles")
	}
	return styles, nil
}

func (c *httpClient) ListProducts(ctx context.Context, styleID int) ([]Product, error) {
	var products []Product
	path := "/v2/products/?styleid=" + strconv.Itoa(styleID)
	if err := c.get(ctx, path, &products); err != nil {
		return nil, eris.Wrapf(err, "supplierapi: list products for style %d", styleID)
	}
	return products, nil
}

func (c *httpClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	req.SetBasicAuth(c.account, c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "do request")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return eris.Wrap(err, "read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(body)}
		if resp.StatusCode == http.StatusTooManyRequests {
			apiErr.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
		}
		return apiErr
	}

	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "unmarshal response")
	}
	return nil
}

// parseRetryAfter handles the delay-seconds form of the Retry-After header.
// The HTTP-date form is rare on supplier APIs and falls back to a minute.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return time.Minute
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	return time.Minute
}
