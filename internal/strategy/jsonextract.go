package strategy

import (
	"encoding/json"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"

	"github.com/sells-group/supplier-import/internal/model"
)

// firstJSONObject locates the first balanced JSON object in free-form text.
// Model responses wrap JSON in prose or code fences with no formatting
// guarantee, so the object is found by brace counting with string-literal
// awareness rather than trusting the response shape.
func firstJSONObject(text string) (string, bool) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i, r := range text {
		if start == -1 {
			if r == '{' {
				start = i
				depth = 1
			}
			continue
		}

		if inString {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			}
			continue
		}

		switch r {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

// wireRecord is the tagged schema for upstream JSON responses. Every field
// is optional; validation happens after merging, never on trust of field
// presence.
type wireRecord struct {
	Name            string            `json:"name"`
	Brand           string            `json:"brand"`
	Description     string            `json:"description"`
	Category        string            `json:"category"`
	Colors          []string          `json:"colors"`
	Sizes           []string          `json:"sizes"`
	BaseCost        *decimal.Decimal  `json:"base_cost"`
	ThumbnailURL    string            `json:"thumbnail_url"`
	ColorImages     map[string]string `json:"color_images"`
	ColorBackImages map[string]string `json:"color_back_images"`
}

// parseRecordResponse locates and decodes the first JSON object in an
// upstream text response into a partial record.
func parseRecordResponse(text string) (*model.ProductRecord, error) {
	raw, ok := firstJSONObject(text)
	if !ok {
		return nil, eris.New("no JSON object found in response")
	}

	var wire wireRecord
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return nil, eris.Wrap(err, "decode response JSON")
	}
	return wire.toRecord(), nil
}

func (w *wireRecord) toRecord() *model.ProductRecord {
	rec := model.NewProductRecord()
	rec.Name = w.Name
	rec.Brand = w.Brand
	rec.Description = w.Description
	rec.Category = w.Category
	rec.BaseCost = w.BaseCost
	rec.ThumbnailURL = w.ThumbnailURL
	for _, c := range w.Colors {
		rec.AddColor(c)
	}
	for _, s := range w.Sizes {
		rec.AddSize(s)
	}
	// Map keys are walked sorted so colors absent from the colors list are
	// still appended in a stable order.
	for _, c := range sortedKeys(w.ColorImages) {
		rec.AddColor(c)
		rec.SetColorImage(c, w.ColorImages[c])
	}
	for _, c := range sortedKeys(w.ColorBackImages) {
		rec.AddColor(c)
		rec.SetColorBackImage(c, w.ColorBackImages[c])
	}
	return rec
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
