package catalog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/supplier-import/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := NewSQLite(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func testRecord() *model.ProductRecord {
	cost := decimal.RequireFromString("5.20")
	rec := model.NewProductRecord()
	rec.Name = "Heavy Cotton Tee"
	rec.Brand = "Gildan"
	rec.BaseCost = &cost
	rec.AddColor("Black")
	rec.SetColorImage("Black", "https://cdn.example.com/black.jpg")
	return rec
}

func TestSQLiteSaveAndGet(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	stored, err := st.SaveProduct(ctx, "https://www.ssactivewear.com/p/5001", testRecord(),
		[]string{"low-color-count: found 1 colors, supplier typically carries ~20"},
		Overrides{PricingTier: "wholesale"})
	require.NoError(t, err)
	require.NotEmpty(t, stored.ID)
	assert.Equal(t, "Heavy Cotton Tee", stored.Record.Name)
	assert.Equal(t, "wholesale", stored.PricingTier)
	assert.True(t, stored.Active)
	assert.Len(t, stored.Warnings, 1)

	got, err := st.GetProduct(ctx, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, stored.ID, got.ID)
	assert.Equal(t, "Gildan", got.Record.Brand)
	require.NotNil(t, got.Record.BaseCost)
	assert.Equal(t, "5.2", got.Record.BaseCost.String())
}

func TestSQLiteUpsertKeepsIdentity(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	url := "https://www.ssactivewear.com/p/5001"

	first, err := st.SaveProduct(ctx, url, testRecord(), nil, Overrides{})
	require.NoError(t, err)

	updated := testRecord()
	updated.AddColor("White")
	second, err := st.SaveProduct(ctx, url, updated, nil, Overrides{})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "re-importing a URL keeps the row identity")
	assert.Equal(t, []string{"Black", "White"}, second.Record.Colors)

	all, err := st.ListProducts(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSQLiteGetNotFound(t *testing.T) {
	st := newTestStore(t)
	_, err := st.GetProduct(context.Background(), "missing-id")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteUpdateBaseCost(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	_, err := st.SaveProduct(ctx, "https://www.ssactivewear.com/p/5001", testRecord(), nil, Overrides{})
	require.NoError(t, err)

	n, err := st.UpdateBaseCost(ctx, "gildan", "heavy cotton tee", decimal.RequireFromString("4.85"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	all, err := st.ListProducts(ctx, 1)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.NotNil(t, all[0].Record.BaseCost)
	assert.Equal(t, "4.85", all[0].Record.BaseCost.String())

	n, err = st.UpdateBaseCost(ctx, "Gildan", "No Such Style", decimal.RequireFromString("1.00"))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSQLiteInactiveOverride(t *testing.T) {
	st := newTestStore(t)
	inactive := false

	stored, err := st.SaveProduct(context.Background(), "https://www.ssactivewear.com/p/5001",
		testRecord(), nil, Overrides{Active: &inactive})
	require.NoError(t, err)
	assert.False(t, stored.Active)
}

func TestNewUnknownDriver(t *testing.T) {
	_, err := New(context.Background(), Config{Driver: "oracle"})
	assert.Error(t, err)
}
