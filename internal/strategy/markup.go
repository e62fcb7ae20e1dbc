package strategy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/supplier-import/internal/model"
	"github.com/sells-group/supplier-import/internal/pattern"
	"github.com/sells-group/supplier-import/internal/resilience"
	"github.com/sells-group/supplier-import/internal/supplier"
	"github.com/sells-group/supplier-import/pkg/anthropic"
)

// MarkupName identifies the markup-extraction strategy.
const MarkupName = "markup"

// ExtractionModelName is the limiter key for the general extraction model.
const ExtractionModelName = "extraction_model"

// maxHintBlocks bounds how many structured-data blocks are forwarded to the
// extraction model.
const maxHintBlocks = 5

// MarkupConfig tunes the markup strategy.
type MarkupConfig struct {
	// HTMLBudget is the cleaned-HTML character budget sent to the model.
	HTMLBudget int
	// Model and MaxTokens configure the extraction model call.
	Model     string
	MaxTokens int64
	// UserAgent identifies the fetcher to supplier sites.
	UserAgent string
	// FetchTimeout bounds the raw page fetch.
	FetchTimeout time.Duration
}

// DefaultMarkupConfig returns the markup strategy defaults.
func DefaultMarkupConfig() MarkupConfig {
	return MarkupConfig{
		HTMLBudget:   200_000,
		Model:        "claude-sonnet-4-5-20250929",
		MaxTokens:    8192,
		UserAgent:    "Mozilla/5.0 (compatible; CatalogImportBot/1.0)",
		FetchTimeout: 20 * time.Second,
	}
}

// MarkupStrategy fetches raw HTML itself and mines it deterministically.
// When pattern mining alone clears the supplier's confidence threshold, the
// record is assembled with no model call at all; otherwise the cleaned page
// plus mined hints go to the general extraction model as the last resort.
type MarkupStrategy struct {
	extractor anthropic.Client // nil disables the model fallback
	limiters  *resilience.LimiterSet
	cfg       MarkupConfig
	http      *http.Client
}

// NewMarkupStrategy creates the markup-extraction strategy.
func NewMarkupStrategy(extractor anthropic.Client, limiters *resilience.LimiterSet, cfg MarkupConfig) *MarkupStrategy {
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 20 * time.Second
	}
	return &MarkupStrategy{
		extractor: extractor,
		limiters:  limiters,
		cfg:       cfg,
		http:      &http.Client{Timeout: cfg.FetchTimeout},
	}
}

func (s *MarkupStrategy) Name() string { return MarkupName }

// Applies is unconditional: markup extraction is the floor of the chain in
// every mode except browser-only.
func (s *MarkupStrategy) Applies(mode Mode, _ *supplier.Profile) bool {
	return mode != ModeBrowser
}

func (s *MarkupStrategy) Extract(ctx context.Context, req Request, rec *model.ProductRecord) model.ExtractionAttempt {
	html, attempt := s.fetch(ctx, req, rec)
	if attempt != nil {
		return *attempt
	}

	mined := pattern.Extract(html, req.Profile)

	// Mined mappings are confirmed data: they go in before anything the
	// model says, so the model can never overwrite them.
	for _, color := range mined.Order {
		rec.AddColor(color)
		rec.SetColorImage(color, mined.Front[color])
		rec.SetColorBackImage(color, mined.Back[color])
	}

	if s.fastPathReady(req.Profile, mined) {
		return s.assembleFastPath(req, rec, html, mined)
	}

	return s.modelPath(ctx, req, rec, html, mined)
}

// fetch retrieves the raw page. A throttling supplier aborts the chain;
// other failures are soft.
func (s *MarkupStrategy) fetch(ctx context.Context, req Request, rec *model.ProductRecord) (string, *model.ExtractionAttempt) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		a := model.NewAttempt(MarkupName, model.OutcomeSoftFailure, rec, err)
		return "", &a
	}
	httpReq.Header.Set("User-Agent", s.cfg.UserAgent)

	resp, err := s.http.Do(httpReq)
	if err != nil {
		a := model.NewAttempt(MarkupName, model.OutcomeSoftFailure, rec, err)
		return "", &a
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := parseRetryAfterHeader(resp.Header.Get("Retry-After"))
		rl := resilience.NewRateLimitError(MarkupName, retryAfter)
		a := model.NewAttempt(MarkupName, model.OutcomeRateLimited, rec, rl)
		a.RetryAfter = retryAfter
		return "", &a
	}
	if resp.StatusCode >= 400 {
		err := fmt.Errorf("fetch %s: status %d", req.URL, resp.StatusCode)
		a := model.NewAttempt(MarkupName, model.OutcomeSoftFailure, rec, err)
		return "", &a
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		a := model.NewAttempt(MarkupName, model.OutcomeSoftFailure, rec, err)
		return "", &a
	}
	return string(body), nil
}

// fastPathReady reports whether pattern mining alone clears the supplier's
// front+back coverage threshold.
func (s *MarkupStrategy) fastPathReady(p *supplier.Profile, mined *pattern.Mapping) bool {
	return p.FastPathMinColors > 0 && mined.BothSides() >= p.FastPathMinColors
}

// assembleFastPath builds the record from mined mappings plus lightweight
// page metadata, skipping the extraction model entirely.
func (s *MarkupStrategy) assembleFastPath(req Request, rec *model.ProductRecord, html string, mined *pattern.Mapping) model.ExtractionAttempt {
	if rec.Name == "" {
		rec.Name = pageTitle(html)
	}
	if rec.Brand == "" {
		rec.Brand = req.Profile.DefaultBrand
	}
	if rec.Description == "" {
		rec.Description = metaDescription(html)
	}
	for _, size := range pageSizes(html) {
		rec.AddSize(size)
	}
	if rec.BaseCost == nil {
		rec.BaseCost = pagePrice(html)
	}

	zap.L().Info("fast path: pattern mining cleared confidence threshold",
		zap.String("supplier", req.Profile.Name),
		zap.Int("both_sides", mined.BothSides()),
		zap.Int("threshold", req.Profile.FastPathMinColors),
	)

	if missing := rec.MissingRequired(); len(missing) > 0 {
		err := fmt.Errorf("fast path record missing required fields: %s", strings.Join(missing, ", "))
		return model.NewAttempt(MarkupName, model.OutcomeSoftFailure, rec, err)
	}
	return model.NewAttempt(MarkupName, model.OutcomeSuccess, rec, nil)
}

// modelPath submits cleaned HTML plus mined and structured-data hints to the
// general extraction model.
func (s *MarkupStrategy) modelPath(ctx context.Context, req Request, rec *model.ProductRecord, html string, mined *pattern.Mapping) model.ExtractionAttempt {
	if s.extractor == nil {
		if len(rec.MissingRequired()) == 0 {
			return model.NewAttempt(MarkupName, model.OutcomeSuccess, rec, nil)
		}
		err := errors.New("extraction incomplete and no extraction model configured")
		return model.NewAttempt(MarkupName, model.OutcomeSoftFailure, rec, err)
	}

	if err := s.limiters.Acquire(ExtractionModelName); err != nil {
		a := model.NewAttempt(MarkupName, model.OutcomeRateLimited, rec, err)
		a.RetryAfter = resilience.RetryAfterHint(err)
		return a
	}

	text, err := s.extractor.Complete(ctx, anthropic.Request{
		Model:     s.cfg.Model,
		MaxTokens: s.cfg.MaxTokens,
		System:    markupContract(req.Profile),
		Prompt:    s.buildPrompt(req, html, mined),
	})
	if err != nil {
		var rlErr *anthropic.RateLimitedError
		if errors.As(err, &rlErr) {
			rl := resilience.NewRateLimitError(ExtractionModelName, rlErr.RetryAfter)
			a := model.NewAttempt(MarkupName, model.OutcomeRateLimited, rec, rl)
			a.RetryAfter = rlErr.RetryAfter
			return a
		}
		return model.NewAttempt(MarkupName, model.OutcomeSoftFailure, rec, err)
	}

	partial, err := parseRecordResponse(text)
	if err != nil {
		return model.NewAttempt(MarkupName, model.OutcomeSoftFailure, rec, err)
	}
	rec.Merge(partial)

	if missing := rec.MissingRequired(); len(missing) > 0 {
		err := fmt.Errorf("extraction model response missing required fields: %s", strings.Join(missing, ", "))
		return model.NewAttempt(MarkupName, model.OutcomeSoftFailure, rec, err)
	}
	return model.NewAttempt(MarkupName, model.OutcomeSuccess, rec, nil)
}

// buildPrompt assembles the model input: cleaned page text, mined color
// mappings, and embedded structured-data blocks as hints.
func (s *MarkupStrategy) buildPrompt(req Request, html string, mined *pattern.Mapping) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Product page URL: %s\n\n", req.URL)

	if !mined.Empty() {
		hints, err := json.Marshal(map[string]any{
			"color_images":      mined.Front,
			"color_back_images": mined.Back,
		})
		if err == nil {
			b.WriteString("Color image mappings already mined from asset URLs (treat as confirmed):\n")
			b.Write(hints)
			b.WriteString("\n\n")
		}
	}

	blocks := structuredDataBlocks(html)
	if len(blocks) > maxHintBlocks {
		blocks = blocks[:maxHintBlocks]
	}
	for i, block := range blocks {
		fmt.Fprintf(&b, "Embedded structured data block %d:\n%s\n\n", i+1, block)
	}

	b.WriteString("Page text:\n")
	b.WriteString(cleanHTML(html, s.cfg.HTMLBudget))

	return b.String()
}

// markupContract is the extraction model's system instruction: exhaustive
// color enumeration and unique per-color image URLs.
func markupContract(p *supplier.Profile) string {
	var b strings.Builder
	b.WriteString("You extract apparel product data from page text. Return one JSON ")
	b.WriteString(`object with keys "name", "brand", "description", "category", `)
	b.WriteString(`"colors", "sizes", "base_cost", "color_images", "color_back_images". `)
	b.WriteString(`"name" and "brand" are required. Enumerate every color exhaustively `)
	if p.ExpectedColors > 0 {
		fmt.Fprintf(&b, "(this supplier carries roughly %d colorways) ", p.ExpectedColors)
	}
	b.WriteString("and map each color to a distinct image URL. Never assign the same ")
	b.WriteString("image URL to multiple colors. Respond with JSON only.")
	return b.String()
}

func parseRetryAfterHeader(v string) time.Duration {
	if v == "" {
		return time.Minute
	}
	var secs int
	if _, err := fmt.Sscanf(v, "%d", &secs); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	return time.Minute
}
