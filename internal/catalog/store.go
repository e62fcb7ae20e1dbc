// Package catalog persists finished product records and assigns them
// identity. It is the downstream collaborator of the extraction pipeline:
// records arrive finalized and immutable, with optional caller overrides.
package catalog

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"

	"github.com/sells-group/supplier-import/internal/model"
)

// Overrides are caller-supplied fields applied at save time.
type Overrides struct {
	PricingTier string `json:"pricing_tier,omitempty"`
	Active      *bool  `json:"active,omitempty"`
}

// StoredProduct is a catalog row: the record plus assigned identity.
type StoredProduct struct {
	ID          string              `json:"id"`
	SupplierURL string              `json:"supplier_url"`
	Record      model.ProductRecord `json:"record"`
	Warnings    []string            `json:"warnings,omitempty"`
	PricingTier string              `json:"pricing_tier,omitempty"`
	Active      bool                `json:"active"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// Store defines catalog persistence. One row per supplier URL: re-importing
// a URL updates the stored record in place but keeps its identity.
type Store interface {
	SaveProduct(ctx context.Context, supplierURL string, rec *model.ProductRecord, warnings []string, ov Overrides) (*StoredProduct, error)
	GetProduct(ctx context.Context, id string) (*StoredProduct, error)
	ListProducts(ctx context.Context, limit int) ([]StoredProduct, error)
	// UpdateBaseCost sets the wholesale cost for every stored product
	// matching brand and style name, returning the number updated. Used by
	// the bulk price feed sync.
	UpdateBaseCost(ctx context.Context, brand, name string, cost decimal.Decimal) (int64, error)
	Migrate(ctx context.Context) error
	Close() error
}

// ErrNotFound is returned when a product id does not exist.
var ErrNotFound = eris.New("catalog: product not found")

// Config selects and configures the storage driver.
type Config struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	Path        string `yaml:"path" mapstructure:"path"`
}

// New creates a Store from config: "postgres" or "sqlite" (default).
func New(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL)
	case "", "sqlite":
		path := cfg.Path
		if path == "" {
			path = "catalog.db"
		}
		return NewSQLite(path)
	default:
		return nil, eris.Errorf("catalog: unknown driver %q", cfg.Driver)
	}
}
