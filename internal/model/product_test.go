package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddColorDedupesCaseInsensitive(t *testing.T) {
	rec := NewProductRecord()
	rec.AddColor("Fog Blue")
	rec.AddColor("fog blue")
	rec.AddColor("FOG BLUE")
	rec.AddColor("  ")
	rec.AddColor("Black")

	assert.Equal(t, []string{"Fog Blue", "Black"}, rec.Colors)
}

func TestSetColorImageFirstWriterWins(t *testing.T) {
	rec := NewProductRecord()
	rec.SetColorImage("Black", "https://cdn.example.com/a.jpg")
	rec.SetColorImage("Black", "https://cdn.example.com/b.jpg")
	rec.SetColorImage("White", "")

	assert.Equal(t, "https://cdn.example.com/a.jpg", rec.ColorImages["Black"])
	assert.NotContains(t, rec.ColorImages, "White")
}

func TestMergeFillsOnlyEmptyScalars(t *testing.T) {
	cost := decimal.RequireFromString("5.20")
	other := NewProductRecord()
	other.Name = "Other Tee"
	other.Brand = "Other Brand"
	other.Description = "soft cotton"
	other.BaseCost = &cost
	other.AddColor("Black")
	other.SetColorImage("Black", "https://cdn.example.com/black.jpg")

	rec := NewProductRecord()
	rec.Name = "Staple Tee"
	rec.AddColor("White")
	rec.SetColorImage("White", "https://cdn.example.com/white.jpg")

	rec.Merge(other)

	assert.Equal(t, "Staple Tee", rec.Name, "existing name must not be overwritten")
	assert.Equal(t, "Other Brand", rec.Brand)
	assert.Equal(t, "soft cotton", rec.Description)
	require.NotNil(t, rec.BaseCost)
	assert.True(t, rec.BaseCost.Equal(cost))
	assert.Equal(t, []string{"White", "Black"}, rec.Colors)
	assert.Len(t, rec.ColorImages, 2)
}

func TestMergeKeepsExistingImageEntries(t *testing.T) {
	rec := NewProductRecord()
	rec.SetColorImage("Black", "https://cdn.example.com/mined.jpg")

	other := NewProductRecord()
	other.SetColorImage("Black", "https://cdn.example.com/model-guess.jpg")

	rec.Merge(other)

	assert.Equal(t, "https://cdn.example.com/mined.jpg", rec.ColorImages["Black"])
}

func TestMergeNilIsNoop(t *testing.T) {
	rec := NewProductRecord()
	rec.Name = "Tee"
	rec.Merge(nil)
	assert.Equal(t, "Tee", rec.Name)
}

func TestMissingRequired(t *testing.T) {
	rec := NewProductRecord()
	assert.Equal(t, []string{"name", "brand"}, rec.MissingRequired())

	rec.Name = "Staple Tee"
	assert.Equal(t, []string{"brand"}, rec.MissingRequired())

	rec.Brand = "  "
	assert.Equal(t, []string{"brand"}, rec.MissingRequired())

	rec.Brand = "Los Angeles Apparel"
	assert.Empty(t, rec.MissingRequired())
}

func TestUniqueImageCount(t *testing.T) {
	rec := NewProductRecord()
	rec.SetColorImage("Black", "https://cdn.example.com/same.jpg")
	rec.SetColorImage("White", "https://cdn.example.com/same.jpg")
	rec.SetColorImage("Red", "https://cdn.example.com/red.jpg")

	assert.Equal(t, 2, rec.UniqueImageCount())
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "success", OutcomeSuccess.String())
	assert.Equal(t, "soft_failure", OutcomeSoftFailure.String())
	assert.Equal(t, "rate_limited", OutcomeRateLimited.String())
}

func TestNewAttemptDiagnostics(t *testing.T) {
	rec := NewProductRecord()
	rec.AddColor("Black")
	rec.AddColor("White")
	rec.SetColorImage("Black", "https://cdn.example.com/b.jpg")

	a := NewAttempt("markup", OutcomeSoftFailure, rec, assert.AnError)

	assert.Equal(t, "markup", a.Strategy)
	assert.Equal(t, OutcomeSoftFailure, a.Outcome)
	assert.Equal(t, "soft_failure", a.OutcomeLabel)
	assert.Equal(t, 2, a.ColorsFound)
	assert.Equal(t, 1, a.UniqueImages)
	assert.Equal(t, assert.AnError.Error(), a.Error)
}
