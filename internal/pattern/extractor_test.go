package pattern

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/supplier-import/internal/supplier"
)

func miningProfile() *supplier.Profile {
	return &supplier.Profile{
		Name:               "laapparel",
		Domain:             "losangelesapparel.net",
		AssetPattern:       regexp.MustCompile(`(?i)https?://cdn\.example\.com/assets/([A-Za-z0-9_]+)\.jpg`),
		PrefixTokens:       []string{"STAPLE", "TEE"},
		ExcludeDescriptors: []string{"SWATCH", "MODEL"},
		MaxImageSize:       "1024",
	}
}

func TestExtractFilenameConvention(t *testing.T) {
	html := `<img src="https://cdn.example.com/assets/5001_STAPLE_TEE_FOG_BLUE_THUMB__123.jpg">`

	m := Extract(html, miningProfile())

	require.Contains(t, m.Front, "Fog Blue")
	assert.Equal(t, "https://cdn.example.com/assets/5001_STAPLE_TEE_FOG_BLUE_THUMB__1024.jpg", m.Front["Fog Blue"])
	assert.Equal(t, []string{"Fog Blue"}, m.Order)
	assert.Equal(t, 1, m.AssetsMatched)
}

func TestExtractFrontAndBackViews(t *testing.T) {
	html := `
		<img src="https://cdn.example.com/assets/5001_STAPLE_TEE_BLACK_FRONT__200.jpg">
		<img src="https://cdn.example.com/assets/5001_STAPLE_TEE_BLACK_BACK__200.jpg">
		<img src="https://cdn.example.com/assets/5001_STAPLE_TEE_WHITE_MAIN__200.jpg">
	`

	m := Extract(html, miningProfile())

	assert.Contains(t, m.Front, "Black")
	assert.Contains(t, m.Back, "Black")
	assert.Contains(t, m.Front, "White")
	assert.Equal(t, 1, m.BothSides())
	assert.Equal(t, []string{"Black", "White"}, m.Order)
}

func TestExtractSkipsOtherViewAngles(t *testing.T) {
	html := `
		<img src="https://cdn.example.com/assets/5001_STAPLE_TEE_BLACK_SIDE__200.jpg">
		<img src="https://cdn.example.com/assets/5001_STAPLE_TEE_BLACK_DETAIL__200.jpg">
	`

	m := Extract(html, miningProfile())

	assert.True(t, m.Empty())
	assert.Equal(t, 2, m.AssetsMatched, "recognized angles still count as matched assets")
}

func TestExtractExcludedDescriptors(t *testing.T) {
	html := `
		<img src="https://cdn.example.com/assets/5001_STAPLE_TEE_BLACK_SWATCH__200.jpg">
		<img src="https://cdn.example.com/assets/5001_STAPLE_TEE_BLACK_model__200.jpg">
	`

	m := Extract(html, miningProfile())

	assert.True(t, m.Empty())
}

func TestExtractNoDescriptorDefaultsToFront(t *testing.T) {
	html := `<img src="https://cdn.example.com/assets/5001_STAPLE_TEE_CRANBERRY__200.jpg">`

	m := Extract(html, miningProfile())

	assert.Contains(t, m.Front, "Cranberry")
}

func TestExtractFirstMatchWins(t *testing.T) {
	html := `
		<img src="https://cdn.example.com/assets/5001_STAPLE_TEE_BLACK_FRONT__200.jpg">
		<img src="https://cdn.example.com/assets/5001_STAPLE_TEE_BLACK_THUMB__800.jpg">
	`

	m := Extract(html, miningProfile())

	assert.Equal(t, "https://cdn.example.com/assets/5001_STAPLE_TEE_BLACK_FRONT__1024.jpg", m.Front["Black"])
}

func TestExtractIsIdempotent(t *testing.T) {
	html := `
		<img src="https://cdn.example.com/assets/5001_STAPLE_TEE_FOG_BLUE_THUMB__123.jpg">
		<img src="https://cdn.example.com/assets/5001_STAPLE_TEE_FOG_BLUE_BACK__123.jpg">
		<img src="https://cdn.example.com/assets/5001_STAPLE_TEE_BLACK_THUMB__123.jpg">
	`
	p := miningProfile()

	first := Extract(html, p)
	for i := 0; i < 3; i++ {
		again := Extract(html, p)
		assert.Equal(t, first.Front, again.Front)
		assert.Equal(t, first.Back, again.Back)
		assert.Equal(t, first.Order, again.Order)
	}
}

func TestExtractWithoutConvention(t *testing.T) {
	p := &supplier.Profile{Name: "sanmar", Domain: "sanmar.com"}
	m := Extract(`<img src="https://cdn.example.com/assets/5001_BLACK__200.jpg">`, p)
	assert.True(t, m.Empty())
	assert.Equal(t, 0, m.AssetsMatched)
}

func TestExtractNoSizeSuffix(t *testing.T) {
	p := miningProfile()
	p.MaxImageSize = ""
	html := `<img src="https://cdn.example.com/assets/5001_STAPLE_TEE_BLACK_FRONT__200.jpg">`

	m := Extract(html, p)

	// Without a canonical size the URL passes through untouched.
	assert.Equal(t, "https://cdn.example.com/assets/5001_STAPLE_TEE_BLACK_FRONT__200.jpg", m.Front["Black"])
}
