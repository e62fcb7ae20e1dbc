package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/sells-group/supplier-import/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS products (
	id           TEXT PRIMARY KEY,
	supplier_url TEXT NOT NULL UNIQUE,
	name         TEXT NOT NULL,
	brand        TEXT NOT NULL,
	record       TEXT NOT NULL,
	warnings     TEXT,
	pricing_tier TEXT NOT NULL DEFAULT '',
	active       INTEGER NOT NULL DEFAULT 1,
	created_at   DATETIME NOT NULL,
	updated_at   DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_products_brand_name ON products(brand, name);
`

// Migrate creates the products table.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteMigration); err != nil {
		return eris.Wrap(err, "sqlite: migrate")
	}
	return nil
}

// SaveProduct upserts by supplier URL, keeping the original id and
// created_at on re-import.
func (s *SQLiteStore) SaveProduct(ctx context.Context, supplierURL string, rec *model.ProductRecord, warnings []string, ov Overrides) (*StoredProduct, error) {
	recJSON, err := json.Marshal(rec)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal record")
	}
	warnJSON, err := json.Marshal(warnings)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal warnings")
	}

	active := true
	if ov.Active != nil {
		active = *ov.Active
	}
	now := time.Now().UTC()
	id := uuid.NewString()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO products (id, supplier_url, name, brand, record, warnings, pricing_tier, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(supplier_url) DO UPDATE SET
			name = excluded.name,
			brand = excluded.brand,
			record = excluded.record,
			warnings = excluded.warnings,
			pricing_tier = excluded.pricing_tier,
			active = excluded.active,
			updated_at = excluded.updated_at`,
		id, supplierURL, rec.Name, rec.Brand, string(recJSON), string(warnJSON), ov.PricingTier, active, now, now)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: save product")
	}

	return s.getBySupplierURL(ctx, supplierURL)
}

func (s *SQLiteStore) GetProduct(ctx context.Context, id string) (*StoredProduct, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, supplier_url, record, warnings, pricing_tier, active, created_at, updated_at
		FROM products WHERE id = ?`, id)
	return scanSQLiteProduct(row)
}

func (s *SQLiteStore) getBySupplierURL(ctx context.Context, supplierURL string) (*StoredProduct, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, supplier_url, record, warnings, pricing_tier, active, created_at, updated_at
		FROM products WHERE supplier_url = ?`, supplierURL)
	return scanSQLiteProduct(row)
}

func (s *SQLiteStore) ListProducts(ctx context.Context, limit int) ([]StoredProduct, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, supplier_url, record, warnings, pricing_tier, active, created_at, updated_at
		FROM products ORDER BY updated_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list products")
	}
	defer func() { _ = rows.Close() }()

	var out []StoredProduct
	for rows.Next() {
		p, err := scanSQLiteProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate products")
}

func (s *SQLiteStore) UpdateBaseCost(ctx context.Context, brand, name string, cost decimal.Decimal) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET record = json_set(record, '$.base_cost', ?), updated_at = ?
		WHERE brand = ? COLLATE NOCASE AND name = ? COLLATE NOCASE`,
		cost.String(), time.Now().UTC(), brand, name)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: update base cost")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: rows affected")
	}
	return n, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteProduct(row rowScanner) (*StoredProduct, error) {
	var (
		p        StoredProduct
		recJSON  string
		warnJSON sql.NullString
	)
	err := row.Scan(&p.ID, &p.SupplierURL, &recJSON, &warnJSON, &p.PricingTier, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan product")
	}
	if err := json.Unmarshal([]byte(recJSON), &p.Record); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal record")
	}
	if warnJSON.Valid && warnJSON.String != "" {
		if err := json.Unmarshal([]byte(warnJSON.String), &p.Warnings); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal warnings")
		}
	}
	return &p, nil
}
