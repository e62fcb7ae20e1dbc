// Package feed ingests supplier bulk price files (CSV or XLSX over HTTP or
// FTP) and applies wholesale costs to stored catalog products.
package feed

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx/v2"
)

// PriceRow is one parsed feed line: a style's wholesale cost.
type PriceRow struct {
	Brand string
	Style string
	Cost  decimal.Decimal
}

// Column aliases seen across supplier feeds. Matching is case-insensitive
// on the header row.
var (
	brandColumns = []string{"brand", "brand name", "mill"}
	styleColumns = []string{"style", "style name", "style_name", "product"}
	costColumns  = []string{"price", "piece price", "piece_price", "cost", "wholesale"}
)

// ParseCSV reads a price feed with a header row. Rows with an unparseable
// cost are skipped, not fatal: supplier feeds routinely carry footer junk.
func ParseCSV(r io.Reader) ([]PriceRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, eris.Wrap(err, "feed: read csv header")
	}
	cols, err := mapColumns(header)
	if err != nil {
		return nil, err
	}

	var rows []PriceRow
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "feed: read csv row")
		}
		if row, ok := cols.row(record); ok {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// ParseXLSX reads a price feed from the first sheet of an XLSX workbook.
func ParseXLSX(path string) ([]PriceRow, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "feed: open xlsx")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("feed: xlsx has no sheets")
	}
	sheet := f.Sheets[0]
	if len(sheet.Rows) == 0 {
		return nil, eris.New("feed: xlsx sheet is empty")
	}

	cols, err := mapColumns(rowToStrings(sheet.Rows[0]))
	if err != nil {
		return nil, err
	}

	var rows []PriceRow
	for _, r := range sheet.Rows[1:] {
		if row, ok := cols.row(rowToStrings(r)); ok {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func rowToStrings(row *xlsx.Row) []string {
	out := make([]string, len(row.Cells))
	for i, c := range row.Cells {
		out[i] = c.String()
	}
	return out
}

type columnMap struct {
	brand int
	style int
	cost  int
}

func mapColumns(header []string) (*columnMap, error) {
	cm := &columnMap{brand: -1, style: -1, cost: -1}
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(h))
		switch {
		case cm.brand == -1 && containsName(brandColumns, name):
			cm.brand = i
		case cm.style == -1 && containsName(styleColumns, name):
			cm.style = i
		case cm.cost == -1 && containsName(costColumns, name):
			cm.cost = i
		}
	}
	if cm.style == -1 || cm.cost == -1 {
		return nil, eris.Errorf("feed: header %v missing style or price column", header)
	}
	return cm, nil
}

func containsName(aliases []string, name string) bool {
	for _, a := range aliases {
		if a == name {
			return true
		}
	}
	return false
}

// row converts one record, reporting ok=false for short or junk lines.
func (cm *columnMap) row(record []string) (PriceRow, bool) {
	if cm.style >= len(record) || cm.cost >= len(record) {
		return PriceRow{}, false
	}
	style := strings.TrimSpace(record[cm.style])
	if style == "" {
		return PriceRow{}, false
	}

	costStr := strings.TrimSpace(record[cm.cost])
	costStr = strings.TrimPrefix(costStr, "$")
	cost, err := decimal.NewFromString(costStr)
	if err != nil {
		return PriceRow{}, false
	}

	row := PriceRow{Style: style, Cost: cost}
	if cm.brand >= 0 && cm.brand < len(record) {
		row.Brand = strings.TrimSpace(record[cm.brand])
	}
	return row, true
}
