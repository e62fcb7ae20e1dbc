package strategy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/supplier-import/internal/model"
	"github.com/sells-group/supplier-import/internal/resilience"
	"github.com/sells-group/supplier-import/internal/supplier"
	"github.com/sells-group/supplier-import/pkg/perplexity"
)

// fakeFetcher scripts perplexity responses.
type fakeFetcher struct {
	text        string
	err         error
	instruction string
}

func (f *fakeFetcher) Extract(_ context.Context, _ string, instruction string) (string, error) {
	f.instruction = instruction
	return f.text, f.err
}

func fetchProfile() *supplier.Profile {
	return &supplier.Profile{
		Name:           "laapparel",
		Domain:         "losangelesapparel.net",
		ExpectedColors: 30,
	}
}

func TestRemoteFetchParsesWrappedJSON(t *testing.T) {
	fetcher := &fakeFetcher{text: "Here is the product data:\n```json\n" + `{
		"name": "Staple Tee",
		"brand": "Los Angeles Apparel",
		"colors": ["Black", "Fog Blue"],
		"sizes": ["S", "M", "L"],
		"base_cost": "7.50",
		"color_images": {"Black": "https://cdn.example.com/black.jpg", "Fog Blue": "https://cdn.example.com/fog.jpg"}
	}` + "\n```\nLet me know if you need anything else."}
	s := NewRemoteFetchStrategy(fetcher, resilience.NewLimiterSet())

	rec := model.NewProductRecord()
	req := Request{URL: "https://losangelesapparel.net/products/1801gd", Profile: fetchProfile()}
	attempt := s.Extract(context.Background(), req, rec)

	assert.Equal(t, model.OutcomeSuccess, attempt.Outcome)
	assert.Equal(t, "Staple Tee", rec.Name)
	assert.Equal(t, []string{"Black", "Fog Blue"}, rec.Colors)
	require.NotNil(t, rec.BaseCost)
	assert.Equal(t, "7.5", rec.BaseCost.String())
	assert.Contains(t, fetcher.instruction, "30 colorways", "contract should carry the expected color magnitude")
	assert.Contains(t, fetcher.instruction, "Do not truncate")
}

func TestRemoteFetchMissingBrandIsSoftButCarriesPartials(t *testing.T) {
	fetcher := &fakeFetcher{text: `{
		"name": "Staple Tee",
		"colors": ["Black"],
		"color_images": {"Black": "https://cdn.example.com/black.jpg"}
	}`}
	s := NewRemoteFetchStrategy(fetcher, resilience.NewLimiterSet())

	rec := model.NewProductRecord()
	req := Request{URL: "https://losangelesapparel.net/products/1801gd", Profile: fetchProfile()}
	attempt := s.Extract(context.Background(), req, rec)

	assert.Equal(t, model.OutcomeSoftFailure, attempt.Outcome)
	assert.Contains(t, attempt.Error, "brand")
	// The partial still carried forward into the accumulated record.
	assert.Equal(t, "Staple Tee", rec.Name)
	assert.Equal(t, []string{"Black"}, rec.Colors)
	assert.Equal(t, "https://cdn.example.com/black.jpg", rec.ColorImages["Black"])
}

func TestRemoteFetch429IsTerminal(t *testing.T) {
	fetcher := &fakeFetcher{err: &perplexity.APIError{StatusCode: 429, RetryAfter: 90 * time.Second}}
	s := NewRemoteFetchStrategy(fetcher, resilience.NewLimiterSet())

	rec := model.NewProductRecord()
	req := Request{URL: "https://losangelesapparel.net/products/1801gd", Profile: fetchProfile()}
	attempt := s.Extract(context.Background(), req, rec)

	assert.Equal(t, model.OutcomeRateLimited, attempt.Outcome)
	assert.Equal(t, 90*time.Second, attempt.RetryAfter)
	assert.True(t, resilience.IsRateLimited(attempt.Err))
}

func TestRemoteFetchUnparseableResponseIsSoft(t *testing.T) {
	fetcher := &fakeFetcher{text: "I could not access that page, sorry."}
	s := NewRemoteFetchStrategy(fetcher, resilience.NewLimiterSet())

	rec := model.NewProductRecord()
	req := Request{URL: "https://losangelesapparel.net/products/1801gd", Profile: fetchProfile()}
	attempt := s.Extract(context.Background(), req, rec)

	assert.Equal(t, model.OutcomeSoftFailure, attempt.Outcome)
}

func TestRemoteFetchServiceErrorIsSoft(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("connection refused")}
	s := NewRemoteFetchStrategy(fetcher, resilience.NewLimiterSet())

	rec := model.NewProductRecord()
	req := Request{URL: "https://losangelesapparel.net/products/1801gd", Profile: fetchProfile()}
	attempt := s.Extract(context.Background(), req, rec)

	assert.Equal(t, model.OutcomeSoftFailure, attempt.Outcome)
}

func TestRemoteFetchLimiterShortCircuits(t *testing.T) {
	limiters := resilience.NewLimiterSet()
	limiters.Configure(RemoteFetchName, 0.001, 1)
	require.NoError(t, limiters.Acquire(RemoteFetchName))

	fetcher := &fakeFetcher{text: "{}"}
	s := NewRemoteFetchStrategy(fetcher, limiters)

	rec := model.NewProductRecord()
	req := Request{URL: "https://losangelesapparel.net/products/1801gd", Profile: fetchProfile()}
	attempt := s.Extract(context.Background(), req, rec)

	assert.Equal(t, model.OutcomeRateLimited, attempt.Outcome)
	assert.Empty(t, fetcher.instruction, "the collaborator must not be called when throttled locally")
}

func TestRemoteFetchApplies(t *testing.T) {
	s := NewRemoteFetchStrategy(&fakeFetcher{}, resilience.NewLimiterSet())
	assert.True(t, s.Applies(ModeAuto, nil))
	assert.True(t, s.Applies(ModeBrowser, nil))
	assert.False(t, s.Applies(ModeStandard, nil))

	nilClient := NewRemoteFetchStrategy(nil, resilience.NewLimiterSet())
	assert.False(t, nilClient.Applies(ModeAuto, nil))
}
