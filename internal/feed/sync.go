package feed

import (
	"context"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/supplier-import/internal/catalog"
)

// SyncResult summarizes one feed run.
type SyncResult struct {
	Rows    int   `json:"rows"`
	Updated int64 `json:"updated"`
	Skipped int   `json:"skipped"`
}

// Syncer downloads a supplier price feed and applies its wholesale costs to
// the catalog by brand and style name.
type Syncer struct {
	store catalog.Store
}

// NewSyncer creates a Syncer backed by the given store.
func NewSyncer(store catalog.Store) *Syncer {
	return &Syncer{store: store}
}

// Sync runs one download-parse-apply cycle. Rows matching no stored product
// are counted as skipped, not failed: feeds cover whole supplier catalogs
// while the store holds only imported products.
func (s *Syncer) Sync(ctx context.Context, feedURL string) (*SyncResult, error) {
	path, err := Download(ctx, feedURL)
	if err != nil {
		return nil, err
	}
	defer func() { _ = os.Remove(path) }()

	rows, err := parseFile(path)
	if err != nil {
		return nil, err
	}

	result := &SyncResult{Rows: len(rows)}
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		n, err := s.store.UpdateBaseCost(ctx, row.Brand, row.Style, row.Cost)
		if err != nil {
			return result, eris.Wrapf(err, "feed: apply cost for %s %s", row.Brand, row.Style)
		}
		if n == 0 {
			result.Skipped++
			continue
		}
		result.Updated += n
	}

	zap.L().Info("price feed synced",
		zap.String("url", feedURL),
		zap.Int("rows", result.Rows),
		zap.Int64("updated", result.Updated),
		zap.Int("skipped", result.Skipped),
	)
	return result, nil
}

func parseFile(path string) ([]PriceRow, error) {
	if strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		return ParseXLSX(path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "feed: open downloaded file")
	}
	defer func() { _ = f.Close() }()
	return ParseCSV(f)
}
