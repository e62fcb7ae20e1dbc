package strategy

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/supplier-import/internal/model"
	"github.com/sells-group/supplier-import/internal/resilience"
	"github.com/sells-group/supplier-import/internal/supplier"
	"github.com/sells-group/supplier-import/pkg/perplexity"
)

// RemoteFetchName identifies the AI remote-fetch strategy.
const RemoteFetchName = "remote_fetch"

// RemoteFetchStrategy delegates both page retrieval and extraction to the
// AI-assisted fetch collaborator, constrained by a strict extraction
// contract. The response is free-form text; the JSON object inside it is
// located defensively.
type RemoteFetchStrategy struct {
	client   perplexity.Client
	limiters *resilience.LimiterSet
}

// NewRemoteFetchStrategy creates the remote-fetch strategy.
func NewRemoteFetchStrategy(client perplexity.Client, limiters *resilience.LimiterSet) *RemoteFetchStrategy {
	return &RemoteFetchStrategy{client: client, limiters: limiters}
}

func (s *RemoteFetchStrategy) Name() string { return RemoteFetchName }

// Applies excludes the standard mode, which forbids AI-assisted fetching.
func (s *RemoteFetchStrategy) Applies(mode Mode, _ *supplier.Profile) bool {
	return mode != ModeStandard && s.client != nil
}

func (s *RemoteFetchStrategy) Extract(ctx context.Context, req Request, rec *model.ProductRecord) model.ExtractionAttempt {
	if err := s.limiters.Acquire(RemoteFetchName); err != nil {
		a := model.NewAttempt(RemoteFetchName, model.OutcomeRateLimited, rec, err)
		a.RetryAfter = resilience.RetryAfterHint(err)
		return a
	}

	text, err := s.client.Extract(ctx, req.URL, remoteFetchContract(req.Profile))
	if err != nil {
		var apiErr *perplexity.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == 429 {
			rl := resilience.NewRateLimitError(RemoteFetchName, apiErr.RetryAfter)
			a := model.NewAttempt(RemoteFetchName, model.OutcomeRateLimited, rec, rl)
			a.RetryAfter = apiErr.RetryAfter
			return a
		}
		return model.NewAttempt(RemoteFetchName, model.OutcomeSoftFailure, rec, err)
	}

	partial, err := parseRecordResponse(text)
	if err != nil {
		return model.NewAttempt(RemoteFetchName, model.OutcomeSoftFailure, rec, err)
	}

	// Merge before judging: a response missing name/brand is a soft failure,
	// but its colors and images still carry forward to the next stage.
	rec.Merge(partial)

	if missing := rec.MissingRequired(); len(missing) > 0 {
		err := fmt.Errorf("response missing required fields: %s", strings.Join(missing, ", "))
		return model.NewAttempt(RemoteFetchName, model.OutcomeSoftFailure, rec, err)
	}

	zap.L().Debug("remote fetch extraction complete",
		zap.String("url", req.URL),
		zap.Int("colors", len(rec.Colors)),
	)

	return model.NewAttempt(RemoteFetchName, model.OutcomeSuccess, rec, nil)
}

// remoteFetchContract builds the extraction instruction. It names the
// required fields, sets the expected color magnitude, and warns against
// truncating long color lists, which the fetch service is prone to do.
func remoteFetchContract(p *supplier.Profile) string {
	var b strings.Builder
	b.WriteString("Fetch the apparel product page at the URL provided by the user ")
	b.WriteString("and return a single JSON object with exactly these keys: ")
	b.WriteString(`"name", "brand", "description", "category", "colors", "sizes", `)
	b.WriteString(`"base_cost", "color_images", "color_back_images". `)
	b.WriteString(`"name" and "brand" are required. "colors" is the complete ordered `)
	b.WriteString(`list of colorway names. "color_images" and "color_back_images" map `)
	b.WriteString("each color name to its front and back image URL; every color must ")
	b.WriteString("map to its own distinct image URL, never one shared URL. ")
	if p.ExpectedColors > 0 {
		fmt.Fprintf(&b, "This supplier typically carries around %d colorways; ", p.ExpectedColors)
	}
	b.WriteString("enumerate every color on the page. Do not truncate, summarize, or ")
	b.WriteString("sample the color list, however long it is. ")
	b.WriteString("Respond with the JSON object only, no commentary.")
	return b.String()
}
