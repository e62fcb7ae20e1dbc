package strategy

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/supplier-import/internal/model"
	"github.com/sells-group/supplier-import/internal/resilience"
	"github.com/sells-group/supplier-import/internal/supplier"
	"github.com/sells-group/supplier-import/internal/validate"
)

// ImportResult is a validated import: the canonical record, any data-quality
// warnings, the winning strategy, and the full attempt trail.
type ImportResult struct {
	Record   *model.ProductRecord      `json:"record"`
	Warnings []string                  `json:"warnings,omitempty"`
	Strategy string                    `json:"strategy"`
	Attempts []model.ExtractionAttempt `json:"attempts"`
}

// Orchestrator classifies a URL and runs the applicable strategies in
// priority order, short-circuiting on the first validated success. Strategies
// run strictly sequentially: each later one builds on the accumulated record,
// and fan-out would burn shared upstream rate budgets.
type Orchestrator struct {
	registry   *supplier.Registry
	strategies []Strategy
}

// NewOrchestrator creates an orchestrator over the given strategy order.
func NewOrchestrator(registry *supplier.Registry, strategies ...Strategy) *Orchestrator {
	return &Orchestrator{registry: registry, strategies: strategies}
}

// Run executes one import. The error is one of: supplier.ErrUnsupported (in
// the chain), a *resilience.RateLimitError, a *validate.ValidationError, or
// ctx.Err(). The caller never sees a partial success.
func (o *Orchestrator) Run(ctx context.Context, rawURL string, mode Mode) (*ImportResult, error) {
	profile, err := o.registry.Classify(rawURL)
	if err != nil {
		return nil, err
	}

	req := Request{URL: rawURL, Profile: profile}
	rec := model.NewProductRecord()
	var attempts []model.ExtractionAttempt

	for _, st := range o.strategies {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !st.Applies(mode, profile) {
			continue
		}

		attempt := st.Extract(ctx, req, rec)
		attempts = append(attempts, attempt)

		switch attempt.Outcome {
		case model.OutcomeRateLimited:
			// Later strategies share the same upstream budgets; trying
			// them now would waste the caller's retry window.
			zap.L().Warn("import aborted: upstream rate limited",
				zap.String("url", rawURL),
				zap.String("strategy", attempt.Strategy),
				zap.Duration("retry_after", attempt.RetryAfter),
			)
			if attempt.Err != nil && resilience.IsRateLimited(attempt.Err) {
				return nil, attempt.Err
			}
			return nil, resilience.NewRateLimitError(attempt.Strategy, attempt.RetryAfter)

		case model.OutcomeSoftFailure:
			zap.L().Info("strategy failed, trying next",
				zap.String("url", rawURL),
				zap.String("strategy", attempt.Strategy),
				zap.Int("colors_so_far", attempt.ColorsFound),
				zap.Error(attempt.Err),
			)

		case model.OutcomeSuccess:
			res, err := validate.Finalize(rec, profile)
			if err != nil {
				// The strategy thought it succeeded but the record does
				// not validate; treat as a soft failure and keep going.
				zap.L().Info("strategy result failed validation, trying next",
					zap.String("url", rawURL),
					zap.String("strategy", attempt.Strategy),
					zap.Error(err),
				)
				continue
			}
			zap.L().Info("import complete",
				zap.String("url", rawURL),
				zap.String("strategy", attempt.Strategy),
				zap.Int("colors", len(res.Record.Colors)),
				zap.Strings("warnings", res.Warnings),
			)
			return &ImportResult{
				Record:   res.Record,
				Warnings: res.Warnings,
				Strategy: attempt.Strategy,
				Attempts: attempts,
			}, nil
		}
	}

	// Exhausted. A soft-failing last strategy can still have completed the
	// record through carried-forward partials, so finalize once more.
	if len(rec.MissingRequired()) == 0 {
		if res, err := validate.Finalize(rec, profile); err == nil {
			return &ImportResult{
				Record:   res.Record,
				Warnings: res.Warnings,
				Strategy: lastStrategy(attempts),
				Attempts: attempts,
			}, nil
		}
	}

	missing := rec.MissingRequired()
	zap.L().Warn("all strategies exhausted",
		zap.String("url", rawURL),
		zap.Int("attempts", len(attempts)),
		zap.Strings("missing", missing),
	)
	return nil, &validate.ValidationError{Missing: missing}
}

func lastStrategy(attempts []model.ExtractionAttempt) string {
	if len(attempts) == 0 {
		return ""
	}
	return attempts[len(attempts)-1].Strategy
}
