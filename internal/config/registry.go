package config

import (
	"regexp"

	"github.com/rotisserie/eris"

	"github.com/sells-group/supplier-import/internal/supplier"
)

// BuildRegistry compiles the configured suppliers into a profile registry.
// With no suppliers configured, the built-in set is used. API-backed profiles
// are only marked as such when credentials are actually present.
func BuildRegistry(cfg *Config) (*supplier.Registry, error) {
	entries := cfg.Suppliers
	if len(entries) == 0 {
		entries = defaultSuppliers()
	}

	hasCreds := cfg.SupplierAPI.Username != "" && cfg.SupplierAPI.Password != ""
	profiles := make([]*supplier.Profile, 0, len(entries))
	for _, sc := range entries {
		p, err := compileProfile(sc)
		if err != nil {
			return nil, err
		}
		p.APIConfigured = p.APIConfigured && hasCreds
		profiles = append(profiles, p)
	}
	return supplier.NewRegistry(profiles...), nil
}

func compileProfile(sc SupplierConfig) (*supplier.Profile, error) {
	if sc.Name == "" || sc.Domain == "" {
		return nil, eris.Errorf("config: supplier entry %+v needs name and domain", sc)
	}
	p := &supplier.Profile{
		Name:               sc.Name,
		Domain:             sc.Domain,
		APIConfigured:      sc.APIConfigured,
		PrefixTokens:       sc.PrefixTokens,
		ExcludeDescriptors: sc.ExcludeDescriptors,
		MaxImageSize:       sc.MaxImageSize,
		ImageBaseURL:       sc.ImageBaseURL,
		DefaultBrand:       sc.DefaultBrand,
		ExpectedColors:     sc.ExpectedColors,
		FastPathMinColors:  sc.FastPathMinColors,
	}
	var err error
	if sc.StyleIDPattern != "" {
		p.StyleIDPattern, err = regexp.Compile(sc.StyleIDPattern)
		if err != nil {
			return nil, eris.Wrapf(err, "config: supplier %s style_id_pattern", sc.Name)
		}
	}
	if sc.AssetPattern != "" {
		p.AssetPattern, err = regexp.Compile(sc.AssetPattern)
		if err != nil {
			return nil, eris.Wrapf(err, "config: supplier %s asset_pattern", sc.Name)
		}
	}
	return p, nil
}

// defaultSuppliers is the built-in supplier set covering the apparel vendors
// the import pipeline was built against.
func defaultSuppliers() []SupplierConfig {
	return []SupplierConfig{
		{
			Name:           "ssactivewear",
			Domain:         "ssactivewear.com",
			APIConfigured:  true,
			StyleIDPattern: `(?i)/p/([a-z0-9_]+)`,
			ImageBaseURL:   "https://cdn.ssactivewear.com/",
			ExpectedColors: 20,
		},
		{
			Name:               "laapparel",
			Domain:             "losangelesapparel.net",
			StyleIDPattern:     `(?i)/products/([a-z0-9-]+)`,
			AssetPattern:       `(?i)https?://cdn\.shopify\.com/s/files/[^"'\s]*/([A-Za-z0-9_-]+)\.(?:jpg|jpeg|png|webp)`,
			PrefixTokens:       []string{"STAPLE", "TEE", "CREW", "HOODIE", "FLEECE"},
			ExcludeDescriptors: []string{"SWATCH", "MODEL", "LIFESTYLE", "GROUP"},
			MaxImageSize:       "1024",
			DefaultBrand:       "Los Angeles Apparel",
			ExpectedColors:     30,
			FastPathMinColors:  8,
		},
		{
			Name:           "sanmar",
			Domain:         "sanmar.com",
			StyleIDPattern: `(?i)/p/(\d+)`,
			ExpectedColors: 15,
		},
	}
}
