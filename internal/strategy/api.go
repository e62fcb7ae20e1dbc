package strategy

import (
	"context"
	"errors"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/supplier-import/internal/model"
	"github.com/sells-group/supplier-import/internal/resilience"
	"github.com/sells-group/supplier-import/internal/supplier"
	"github.com/sells-group/supplier-import/pkg/supplierapi"
)

// APIName identifies the official API strategy in attempts and limiters.
const APIName = "official_api"

// APIStrategy queries the supplier's own catalog API. It is the most trusted
// source and runs first whenever credentials are configured. All of its
// failure modes short of throttling are soft: the official API being down
// says nothing about the page itself.
type APIStrategy struct {
	client   supplierapi.Client
	limiters *resilience.LimiterSet
	retry    resilience.RetryConfig
}

// NewAPIStrategy creates the official API strategy.
func NewAPIStrategy(client supplierapi.Client, limiters *resilience.LimiterSet) *APIStrategy {
	retry := resilience.DefaultRetryConfig()
	retry.ShouldRetry = retryableAPIError
	return &APIStrategy{client: client, limiters: limiters, retry: retry}
}

// retryableAPIError treats server-side supplier faults as transient. 429 is
// carried on the APIError, not retried here.
func retryableAPIError(err error) bool {
	var apiErr *supplierapi.APIError
	if errors.As(err, &apiErr) {
		return resilience.IsTransientHTTPStatus(apiErr.StatusCode)
	}
	return resilience.IsTransient(err)
}

func (s *APIStrategy) Name() string { return APIName }

// Applies requires configured credentials and excludes the browser-only mode.
func (s *APIStrategy) Applies(mode Mode, profile *supplier.Profile) bool {
	return mode != ModeBrowser && s.client != nil && profile.APIConfigured
}

func (s *APIStrategy) Extract(ctx context.Context, req Request, rec *model.ProductRecord) model.ExtractionAttempt {
	styleToken, err := req.Profile.StyleID(req.URL)
	if err != nil {
		return s.soft(rec, err)
	}

	if err := s.limiters.Acquire(APIName); err != nil {
		return s.rateLimited(rec, err)
	}

	styles, err := resilience.Do(ctx, s.retry, APIName, func(ctx context.Context) ([]supplierapi.Style, error) {
		return s.client.SearchStyles(ctx, styleToken)
	})
	if err != nil {
		return s.classify(rec, eris.Wrap(err, "search styles"))
	}

	style := matchStyle(styles, styleToken)
	if style == nil {
		return s.soft(rec, eris.Errorf("no style matching %q", styleToken))
	}

	if err := s.limiters.Acquire(APIName); err != nil {
		return s.rateLimited(rec, err)
	}

	variants, err := resilience.Do(ctx, s.retry, APIName, func(ctx context.Context) ([]supplierapi.Product, error) {
		return s.client.ListProducts(ctx, style.StyleID)
	})
	if err != nil {
		return s.classify(rec, eris.Wrapf(err, "list products for style %d", style.StyleID))
	}
	if len(variants) == 0 {
		return s.soft(rec, eris.Errorf("style %d has no variants", style.StyleID))
	}

	partial := model.NewProductRecord()
	partial.Name = firstNonEmpty(style.Title, style.Name)
	partial.Brand = style.Brand
	partial.Description = style.Description
	partial.Category = style.Category
	partial.ThumbnailURL = s.absoluteURL(req.Profile, style.StyleImage)

	// Variants arrive in the supplier's canonical order; the first
	// price/image observed per color wins.
	for _, v := range variants {
		if v.ColorName == "" {
			continue
		}
		partial.AddColor(v.ColorName)
		partial.AddSize(v.SizeName)
		partial.SetColorImage(v.ColorName, s.absoluteURL(req.Profile, v.ColorFront))
		partial.SetColorBackImage(v.ColorName, s.absoluteURL(req.Profile, v.ColorBack))
		if partial.BaseCost == nil && !v.Price.IsZero() {
			price := v.Price
			partial.BaseCost = &price
		}
	}

	rec.Merge(partial)

	zap.L().Debug("official api extraction complete",
		zap.String("url", req.URL),
		zap.Int("style_id", style.StyleID),
		zap.Int("variants", len(variants)),
		zap.Int("colors", len(rec.Colors)),
	)

	return model.NewAttempt(APIName, model.OutcomeSuccess, rec, nil)
}

// classify turns client errors into attempt outcomes: 429 aborts the whole
// chain, anything else falls through to the next strategy.
func (s *APIStrategy) classify(rec *model.ProductRecord, err error) model.ExtractionAttempt {
	var apiErr *supplierapi.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == 429 {
		return s.rateLimited(rec, resilience.NewRateLimitError(APIName, apiErr.RetryAfter))
	}
	return s.soft(rec, err)
}

func (s *APIStrategy) soft(rec *model.ProductRecord, err error) model.ExtractionAttempt {
	return model.NewAttempt(APIName, model.OutcomeSoftFailure, rec, err)
}

func (s *APIStrategy) rateLimited(rec *model.ProductRecord, err error) model.ExtractionAttempt {
	a := model.NewAttempt(APIName, model.OutcomeRateLimited, rec, err)
	a.RetryAfter = resilience.RetryAfterHint(err)
	return a
}

func (s *APIStrategy) absoluteURL(p *supplier.Profile, path string) string {
	if path == "" || strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimSuffix(p.ImageBaseURL, "/") + "/" + strings.TrimPrefix(path, "/")
}

// matchStyle picks the style whose part number or name equals the token
// parsed from the URL. A single-result search is accepted as-is.
func matchStyle(styles []supplierapi.Style, token string) *supplierapi.Style {
	for i := range styles {
		if strings.EqualFold(styles[i].PartNumber, token) || strings.EqualFold(styles[i].Name, token) {
			return &styles[i]
		}
	}
	if len(styles) == 1 {
		return &styles[0]
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
