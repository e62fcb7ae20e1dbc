// Package validate finalizes accumulated extraction results: completeness
// checks, degenerate-result detection, color dedup, and thumbnail defaulting.
package validate

import (
	"fmt"
	"strings"

	"github.com/sells-group/supplier-import/internal/model"
	"github.com/sells-group/supplier-import/internal/supplier"
)

// ValidationError reports that a record is unusable because required fields
// never materialized. Name and brand are the only non-negotiable fields.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return "record missing required fields: " + strings.Join(e.Missing, ", ")
}

// Result is a finalized record plus any data-quality warnings. Warnings are
// diagnostics for caller review, never failures.
type Result struct {
	Record   *model.ProductRecord `json:"record"`
	Warnings []string             `json:"warnings,omitempty"`
}

// Finalize validates and normalizes the accumulated record. On success the
// returned record satisfies: name and brand present, colors deduplicated,
// every image-map key a member of colors, and thumbnail populated when any
// front image exists.
func Finalize(rec *model.ProductRecord, profile *supplier.Profile) (*Result, error) {
	if missing := rec.MissingRequired(); len(missing) > 0 {
		return nil, &ValidationError{Missing: missing}
	}

	dedupeColors(rec)
	rekeyImages(rec)

	res := &Result{Record: rec}

	if w := duplicateImageWarning(rec); w != "" {
		res.Warnings = append(res.Warnings, w)
	}
	if w := lowColorCountWarning(rec, profile); w != "" {
		res.Warnings = append(res.Warnings, w)
	}

	if rec.ThumbnailURL == "" {
		for _, c := range rec.Colors {
			if u, ok := rec.ColorImages[c]; ok {
				rec.ThumbnailURL = u
				break
			}
		}
	}

	return res, nil
}

// normalizeColor collapses whitespace for case-insensitive comparison.
func normalizeColor(c string) string {
	return strings.ToLower(strings.Join(strings.Fields(c), " "))
}

// dedupeColors removes case-insensitive, whitespace-normalized duplicates,
// keeping the first spelling seen.
func dedupeColors(rec *model.ProductRecord) {
	seen := make(map[string]struct{}, len(rec.Colors))
	deduped := rec.Colors[:0]
	for _, c := range rec.Colors {
		key := normalizeColor(c)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		deduped = append(deduped, strings.Join(strings.Fields(c), " "))
	}
	rec.Colors = deduped
}

// rekeyImages maps image entries onto the deduplicated color spellings so
// that every key of both maps is a member of Colors. A key that matches no
// color is kept by appending it as a color rather than dropping its image.
func rekeyImages(rec *model.ProductRecord) {
	canonical := make(map[string]string, len(rec.Colors))
	for _, c := range rec.Colors {
		canonical[normalizeColor(c)] = c
	}

	rec.ColorImages = rekeyMap(rec.ColorImages, canonical, rec)
	// Canonical set may have grown; refresh before the back map.
	for _, c := range rec.Colors {
		canonical[normalizeColor(c)] = c
	}
	rec.ColorBackImages = rekeyMap(rec.ColorBackImages, canonical, rec)
}

func rekeyMap(m map[string]string, canonical map[string]string, rec *model.ProductRecord) map[string]string {
	out := make(map[string]string, len(m))
	for k, u := range m {
		key := strings.Join(strings.Fields(k), " ")
		if c, ok := canonical[normalizeColor(k)]; ok {
			key = c
		} else {
			rec.Colors = append(rec.Colors, key)
		}
		if _, exists := out[key]; !exists {
			out[key] = u
		}
	}
	return out
}

// duplicateImageWarning fires when multiple colors collapse onto one front
// image URL. The source treats this as a data-quality signal, not a failure:
// the import still succeeds and the caller reviews the warning.
func duplicateImageWarning(rec *model.ProductRecord) string {
	if len(rec.ColorImages) < 2 {
		return ""
	}
	unique := rec.UniqueImageCount()
	if unique == 1 {
		return fmt.Sprintf("duplicate-image: %d colors share a single front image URL", len(rec.ColorImages))
	}
	return ""
}

// lowColorCountWarning fires when far fewer colors were found than the
// supplier is known to carry, a hint that extraction truncated the list.
func lowColorCountWarning(rec *model.ProductRecord, profile *supplier.Profile) string {
	if profile == nil || profile.ExpectedColors <= 0 {
		return ""
	}
	if len(rec.Colors) < profile.ExpectedColors/2 {
		return fmt.Sprintf("low-color-count: found %d colors, supplier typically carries ~%d",
			len(rec.Colors), profile.ExpectedColors)
	}
	return ""
}
