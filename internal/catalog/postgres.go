package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"

	"github.com/sells-group/supplier-import/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses, satisfied by pgxmock
// in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements Store using pgx.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool (used by tests).
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS products (
	id           UUID PRIMARY KEY,
	supplier_url TEXT NOT NULL UNIQUE,
	name         TEXT NOT NULL,
	brand        TEXT NOT NULL,
	record       JSONB NOT NULL,
	warnings     JSONB,
	pricing_tier TEXT NOT NULL DEFAULT '',
	active       BOOLEAN NOT NULL DEFAULT TRUE,
	created_at   TIMESTAMPTZ NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_products_brand_name ON products(lower(brand), lower(name));
`

// Migrate creates the products table.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresMigration); err != nil {
		return eris.Wrap(err, "postgres: migrate")
	}
	return nil
}

// SaveProduct upserts by supplier URL, keeping the original id and
// created_at on re-import.
func (s *PostgresStore) SaveProduct(ctx context.Context, supplierURL string, rec *model.ProductRecord, warnings []string, ov Overrides) (*StoredProduct, error) {
	recJSON, err := json.Marshal(rec)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal record")
	}
	warnJSON, err := json.Marshal(warnings)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal warnings")
	}

	active := true
	if ov.Active != nil {
		active = *ov.Active
	}
	now := time.Now().UTC()

	_, err = s.pool.Exec(ctx, `
		INSERT INTO products (id, supplier_url, name, brand, record, warnings, pricing_tier, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (supplier_url) DO UPDATE SET
			name = EXCLUDED.name,
			brand = EXCLUDED.brand,
			record = EXCLUDED.record,
			warnings = EXCLUDED.warnings,
			pricing_tier = EXCLUDED.pricing_tier,
			active = EXCLUDED.active,
			updated_at = EXCLUDED.updated_at`,
		uuid.NewString(), supplierURL, rec.Name, rec.Brand, recJSON, warnJSON, ov.PricingTier, active, now, now)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: save product")
	}

	row := s.pool.QueryRow(ctx, `
		SELECT id, supplier_url, record, warnings, pricing_tier, active, created_at, updated_at
		FROM products WHERE supplier_url = $1`, supplierURL)
	return scanPostgresProduct(row)
}

func (s *PostgresStore) GetProduct(ctx context.Context, id string) (*StoredProduct, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, supplier_url, record, warnings, pricing_tier, active, created_at, updated_at
		FROM products WHERE id = $1`, id)
	return scanPostgresProduct(row)
}

func (s *PostgresStore) ListProducts(ctx context.Context, limit int) ([]StoredProduct, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, supplier_url, record, warnings, pricing_tier, active, created_at, updated_at
		FROM products ORDER BY updated_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list products")
	}
	defer rows.Close()

	var out []StoredProduct
	for rows.Next() {
		p, err := scanPostgresProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate products")
}

func (s *PostgresStore) UpdateBaseCost(ctx context.Context, brand, name string, cost decimal.Decimal) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE products
		SET record = jsonb_set(record, '{base_cost}', to_jsonb($1::text)), updated_at = $2
		WHERE lower(brand) = lower($3) AND lower(name) = lower($4)`,
		cost.String(), time.Now().UTC(), brand, name)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: update base cost")
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func scanPostgresProduct(row pgx.Row) (*StoredProduct, error) {
	var (
		p        StoredProduct
		recJSON  []byte
		warnJSON []byte
	)
	err := row.Scan(&p.ID, &p.SupplierURL, &recJSON, &warnJSON, &p.PricingTier, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan product")
	}
	if err := json.Unmarshal(recJSON, &p.Record); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal record")
	}
	if len(warnJSON) > 0 {
		if err := json.Unmarshal(warnJSON, &p.Warnings); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal warnings")
		}
	}
	return &p, nil
}
