// Package pattern mines per-color product imagery from raw markup using
// supplier CDN filename conventions. No network and no model calls: the
// extractor is a pure function over the page bytes, so it can run before
// any paid collaborator and its output is reproducible.
package pattern

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/supplier-import/internal/supplier"
)

// View keywords denote camera angle, never color. Front and back feed the
// image mappings; other angles are recognized but carry no mapping.
var (
	frontKeywords = map[string]struct{}{
		"FRONT": {}, "THUMB": {}, "FLAT": {}, "MAIN": {},
	}
	backKeywords = map[string]struct{}{
		"BACK": {}, "REAR": {},
	}
	otherViewKeywords = map[string]struct{}{
		"SIDE": {}, "DETAIL": {}, "ANGLE": {}, "CLOSEUP": {}, "SLEEVE": {},
	}
)

// sizeSuffixRe matches the trailing numeric resolution variant in asset
// filenames, e.g. "__123" in "5001_STAPLE_TEE_FOG_BLUE_THUMB__123.jpg".
var sizeSuffixRe = regexp.MustCompile(`__\d+`)

var titleCaser = cases.Title(language.English)

// Mapping is the result of mining one page: color name to front/back image
// URL, first writer wins. Order preserves color discovery order.
type Mapping struct {
	Front map[string]string
	Back  map[string]string
	Order []string

	// AssetsMatched counts raw asset URLs that matched the CDN convention,
	// including ones later excluded. Diagnostic only.
	AssetsMatched int
}

// NewMapping returns an empty mapping.
func NewMapping() *Mapping {
	return &Mapping{
		Front: make(map[string]string),
		Back:  make(map[string]string),
	}
}

// BothSides returns the number of colors mapped on both front and back.
func (m *Mapping) BothSides() int {
	n := 0
	for c := range m.Front {
		if _, ok := m.Back[c]; ok {
			n++
		}
	}
	return n
}

// Empty reports whether nothing was mined.
func (m *Mapping) Empty() bool {
	return len(m.Front) == 0 && len(m.Back) == 0
}

// Extract mines color→image mappings from raw HTML using the supplier's
// asset URL convention. Suppliers without a known convention yield an empty
// mapping. Re-running on the same input yields an identical result: matches
// are processed in document order and existing entries are never overwritten.
func Extract(html string, p *supplier.Profile) *Mapping {
	m := NewMapping()
	if p == nil || p.AssetPattern == nil {
		return m
	}

	for _, match := range p.AssetPattern.FindAllStringSubmatch(html, -1) {
		if len(match) < 2 {
			continue
		}
		m.AssetsMatched++

		assetURL := canonicalSize(match[0], p.MaxImageSize)
		stem := sizeSuffixRe.ReplaceAllString(match[1], "")

		tokens := splitTokens(stem)
		if len(tokens) == 0 {
			continue
		}

		descriptor := strings.ToUpper(tokens[len(tokens)-1])
		if isExcluded(descriptor, p.ExcludeDescriptors) {
			continue
		}

		view := viewFront
		colorTokens := tokens
		switch {
		case isKeyword(descriptor, frontKeywords):
			colorTokens = tokens[:len(tokens)-1]
		case isKeyword(descriptor, backKeywords):
			view = viewBack
			colorTokens = tokens[:len(tokens)-1]
		case isKeyword(descriptor, otherViewKeywords):
			// Recognized angle with no mapping slot.
			continue
		}

		color := colorName(colorTokens, p.PrefixTokens)
		if color == "" {
			continue
		}

		m.record(view, color, assetURL)
	}

	return m
}

type view int

const (
	viewFront view = iota
	viewBack
)

// record writes a color→URL entry, first match wins, and tracks discovery
// order across both sides.
func (m *Mapping) record(v view, color, url string) {
	target := m.Front
	if v == viewBack {
		target = m.Back
	}
	if _, ok := target[color]; ok {
		return
	}
	if _, front := m.Front[color]; !front {
		if _, back := m.Back[color]; !back {
			m.Order = append(m.Order, color)
		}
	}
	target[color] = url
}

// canonicalSize rewrites the numeric resolution suffix to the supplier's
// largest available size.
func canonicalSize(assetURL, maxSize string) string {
	if maxSize == "" {
		return assetURL
	}
	return sizeSuffixRe.ReplaceAllString(assetURL, "__"+maxSize)
}

// splitTokens breaks a filename stem into underscore-separated tokens,
// dropping empties left by double underscores.
func splitTokens(stem string) []string {
	parts := strings.Split(stem, "_")
	tokens := parts[:0]
	for _, p := range parts {
		if p != "" {
			tokens = append(tokens, p)
		}
	}
	return tokens
}

// colorName strips leading style-code and garment tokens, then normalizes
// the remainder: underscores already split, joined by spaces, title-cased.
func colorName(tokens []string, prefixTokens []string) string {
	start := 0
	for start < len(tokens) {
		t := tokens[start]
		if isNumeric(t) || containsFold(prefixTokens, t) {
			start++
			continue
		}
		break
	}
	if start >= len(tokens) {
		return ""
	}
	raw := strings.Join(tokens[start:], " ")
	return titleCaser.String(strings.ToLower(raw))
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isKeyword(descriptor string, set map[string]struct{}) bool {
	_, ok := set[descriptor]
	return ok
}

func isExcluded(descriptor string, excluded []string) bool {
	return containsFold(excluded, descriptor)
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
