// Package supplier classifies product URLs into configured supplier profiles.
package supplier

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrUnsupported is returned when a URL's domain matches no configured profile.
var ErrUnsupported = eris.New("supplier: url not handled by any configured supplier")

// Profile describes one supplier's conventions. All fields are static
// configuration; a profile is never mutated during an import.
type Profile struct {
	// Name identifies the supplier in logs and diagnostics.
	Name string
	// Domain is the host suffix that routes a URL to this supplier.
	Domain string
	// APIConfigured reports whether official API credentials are present,
	// enabling the API strategy for this supplier.
	APIConfigured bool
	// StyleIDPattern extracts the supplier-internal style identifier from a
	// product URL. The first capture group is the ID.
	StyleIDPattern *regexp.Regexp
	// AssetPattern matches CDN asset URLs in raw markup. The first capture
	// group is the filename stem (without extension or directory). Empty
	// when the supplier's CDN conventions are unknown, which disables
	// pattern mining.
	AssetPattern *regexp.Regexp
	// PrefixTokens are filename tokens stripped before the color name
	// (style codes, garment words). Matched case-insensitively.
	PrefixTokens []string
	// ExcludeDescriptors are trailing descriptors that disqualify an asset
	// entirely (marketing/model/detail shots). Matched case-insensitively.
	ExcludeDescriptors []string
	// MaxImageSize is the canonical "largest available" numeric size
	// suffix; mined asset URLs are rewritten to it.
	MaxImageSize string
	// ImageBaseURL prefixes relative image paths returned by the official
	// API.
	ImageBaseURL string
	// DefaultBrand is the brand attributed to this supplier's products when
	// a page does not state one (single-brand suppliers).
	DefaultBrand string
	// ExpectedColors is the approximate colorway count this supplier
	// carries, used for low-count warnings. Zero disables the check.
	ExpectedColors int
	// FastPathMinColors is the front+back coverage at which pattern mining
	// alone is trusted and the extraction model is skipped.
	FastPathMinColors int
}

// SupportsPatternMining reports whether CDN conventions are known for this
// supplier.
func (p *Profile) SupportsPatternMining() bool {
	return p.AssetPattern != nil
}

// StyleID extracts the supplier-internal style identifier from a product URL.
func (p *Profile) StyleID(rawURL string) (string, error) {
	if p.StyleIDPattern == nil {
		return "", eris.Errorf("supplier: %s has no style id rule", p.Name)
	}
	m := p.StyleIDPattern.FindStringSubmatch(rawURL)
	if len(m) < 2 || m[1] == "" {
		return "", eris.Errorf("supplier: no style id in url %s", rawURL)
	}
	return m[1], nil
}

// Registry holds the configured supplier profiles.
type Registry struct {
	profiles []*Profile
}

// NewRegistry creates a registry over the given profiles.
func NewRegistry(profiles ...*Profile) *Registry {
	return &Registry{profiles: profiles}
}

// Classify resolves a URL to its supplier profile. Pure and deterministic:
// the same URL always yields the same profile or ErrUnsupported. No network
// calls are made.
func (r *Registry) Classify(rawURL string) (*Profile, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, eris.Wrapf(ErrUnsupported, "parse url %q", rawURL)
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return nil, eris.Wrapf(ErrUnsupported, "url %q has no host", rawURL)
	}
	for _, p := range r.profiles {
		d := strings.ToLower(p.Domain)
		if host == d || strings.HasSuffix(host, "."+d) {
			return p, nil
		}
	}
	return nil, eris.Wrapf(ErrUnsupported, "host %s", host)
}

// Get returns a profile by supplier name, or nil.
func (r *Registry) Get(name string) *Profile {
	for _, p := range r.profiles {
		if strings.EqualFold(p.Name, name) {
			return p
		}
	}
	return nil
}

// List returns the configured supplier names.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.profiles))
	for _, p := range r.profiles {
		names = append(names, p.Name)
	}
	return names
}
