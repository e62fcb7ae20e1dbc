// Package model defines the canonical product record and extraction outcome types.
package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ProductRecord is the normalized catalog record produced by an import.
// Colors and Sizes preserve discovery order. Every key of ColorImages and
// ColorBackImages must be a member of Colors once the record is finalized.
type ProductRecord struct {
	Name            string            `json:"name"`
	Brand           string            `json:"brand"`
	Description     string            `json:"description,omitempty"`
	Category        string            `json:"category,omitempty"`
	Colors          []string          `json:"colors"`
	Sizes           []string          `json:"sizes"`
	BaseCost        *decimal.Decimal  `json:"base_cost,omitempty"`
	ThumbnailURL    string            `json:"thumbnail_url,omitempty"`
	ColorImages     map[string]string `json:"color_images"`
	ColorBackImages map[string]string `json:"color_back_images"`
}

// NewProductRecord returns an empty record with initialized image maps.
func NewProductRecord() *ProductRecord {
	return &ProductRecord{
		ColorImages:     make(map[string]string),
		ColorBackImages: make(map[string]string),
	}
}

// AddColor appends a color if it is not already present (case-insensitive).
func (r *ProductRecord) AddColor(color string) {
	color = strings.TrimSpace(color)
	if color == "" {
		return
	}
	for _, c := range r.Colors {
		if strings.EqualFold(c, color) {
			return
		}
	}
	r.Colors = append(r.Colors, color)
}

// AddSize appends a size label if it is not already present.
func (r *ProductRecord) AddSize(size string) {
	size = strings.TrimSpace(size)
	if size == "" {
		return
	}
	for _, s := range r.Sizes {
		if strings.EqualFold(s, size) {
			return
		}
	}
	r.Sizes = append(r.Sizes, size)
}

// SetColorImage records the front image for a color, first writer wins.
func (r *ProductRecord) SetColorImage(color, url string) {
	if r.ColorImages == nil {
		r.ColorImages = make(map[string]string)
	}
	if _, ok := r.ColorImages[color]; !ok && url != "" {
		r.ColorImages[color] = url
	}
}

// SetColorBackImage records the back image for a color, first writer wins.
func (r *ProductRecord) SetColorBackImage(color, url string) {
	if r.ColorBackImages == nil {
		r.ColorBackImages = make(map[string]string)
	}
	if _, ok := r.ColorBackImages[color]; !ok && url != "" {
		r.ColorBackImages[color] = url
	}
}

// Merge folds a partial record into the receiver. Scalar fields are filled
// only when the receiver's field is empty, colors and sizes are appended with
// dedup, and image mappings keep the receiver's existing entries (first
// writer wins). Earlier strategies in the chain therefore take priority.
func (r *ProductRecord) Merge(other *ProductRecord) {
	if other == nil {
		return
	}
	if r.Name == "" {
		r.Name = other.Name
	}
	if r.Brand == "" {
		r.Brand = other.Brand
	}
	if r.Description == "" {
		r.Description = other.Description
	}
	if r.Category == "" {
		r.Category = other.Category
	}
	if r.BaseCost == nil {
		r.BaseCost = other.BaseCost
	}
	if r.ThumbnailURL == "" {
		r.ThumbnailURL = other.ThumbnailURL
	}
	for _, c := range other.Colors {
		r.AddColor(c)
	}
	for _, s := range other.Sizes {
		r.AddSize(s)
	}
	for c, u := range other.ColorImages {
		r.SetColorImage(c, u)
	}
	for c, u := range other.ColorBackImages {
		r.SetColorBackImage(c, u)
	}
}

// MissingRequired returns the names of required fields that are still empty.
// Name and brand are the only non-negotiable fields.
func (r *ProductRecord) MissingRequired() []string {
	var missing []string
	if strings.TrimSpace(r.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(r.Brand) == "" {
		missing = append(missing, "brand")
	}
	return missing
}

// UniqueImageCount returns the number of distinct front image URLs.
func (r *ProductRecord) UniqueImageCount() int {
	seen := make(map[string]struct{}, len(r.ColorImages))
	for _, u := range r.ColorImages {
		seen[u] = struct{}{}
	}
	return len(seen)
}

// Outcome tags the result of one extraction attempt.
type Outcome int

const (
	// OutcomeSuccess means the strategy produced a result worth validating.
	OutcomeSuccess Outcome = iota
	// OutcomeSoftFailure means the strategy failed in a way that permits
	// falling back to the next strategy.
	OutcomeSoftFailure
	// OutcomeRateLimited means an upstream collaborator is throttling;
	// the whole import must abort.
	OutcomeRateLimited
)

// String returns the outcome label used in logs and diagnostics.
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeSoftFailure:
		return "soft_failure"
	case OutcomeRateLimited:
		return "rate_limited"
	default:
		return "unknown"
	}
}

// ExtractionAttempt is the typed diagnostic trail for one strategy run.
type ExtractionAttempt struct {
	Strategy     string        `json:"strategy"`
	Outcome      Outcome       `json:"-"`
	OutcomeLabel string        `json:"outcome"`
	ColorsFound  int           `json:"colors_found"`
	UniqueImages int           `json:"unique_images"`
	RetryAfter   time.Duration `json:"-"`
	Err          error         `json:"-"`
	Error        string        `json:"error,omitempty"`
}

// NewAttempt builds an attempt for a strategy with outcome and diagnostics
// derived from the accumulated record.
func NewAttempt(strategy string, outcome Outcome, rec *ProductRecord, err error) ExtractionAttempt {
	a := ExtractionAttempt{
		Strategy:     strategy,
		Outcome:      outcome,
		OutcomeLabel: outcome.String(),
		Err:          err,
	}
	if rec != nil {
		a.ColorsFound = len(rec.Colors)
		a.UniqueImages = rec.UniqueImageCount()
	}
	if err != nil {
		a.Error = err.Error()
	}
	return a
}
