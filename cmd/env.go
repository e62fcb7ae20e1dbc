package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/supplier-import/internal/catalog"
	"github.com/sells-group/supplier-import/internal/config"
	"github.com/sells-group/supplier-import/internal/resilience"
	"github.com/sells-group/supplier-import/internal/strategy"
	"github.com/sells-group/supplier-import/internal/supplier"
	anthropicpkg "github.com/sells-group/supplier-import/pkg/anthropic"
	"github.com/sells-group/supplier-import/pkg/perplexity"
	"github.com/sells-group/supplier-import/pkg/supplierapi"
)

// importEnv holds the initialized clients, registry, orchestrator, and store
// needed by the import/batch/feed/serve commands.
type importEnv struct {
	Registry     *supplier.Registry
	Orchestrator *strategy.Orchestrator
	Store        catalog.Store
}

// Close releases resources held by the environment.
func (e *importEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initEnv builds the supplier registry, rate limiters, strategy chain, and
// catalog store from config. Callers should defer env.Close(). Strategies
// whose backing service is unconfigured are still registered; their Applies
// or nil-client handling keeps them inert.
func initEnv(ctx context.Context) (*importEnv, error) {
	registry, err := config.BuildRegistry(cfg)
	if err != nil {
		return nil, err
	}

	limiters := resilience.NewLimiterSet()
	limiters.Configure(strategy.APIName, cfg.RateLimits.OfficialAPIRPS, cfg.RateLimits.Burst)
	limiters.Configure(strategy.RemoteFetchName, cfg.RateLimits.RemoteFetchRPS, cfg.RateLimits.Burst)
	limiters.Configure(strategy.ExtractionModelName, cfg.RateLimits.ExtractionModelRPS, cfg.RateLimits.Burst)

	var apiClient supplierapi.Client
	if cfg.SupplierAPI.Username != "" && cfg.SupplierAPI.Password != "" {
		apiClient = supplierapi.NewClient(cfg.SupplierAPI.Username, cfg.SupplierAPI.Password, cfg.SupplierAPI.BaseURL)
	} else {
		zap.L().Debug("supplier api credentials not set, official api strategy disabled")
	}

	var fetchClient perplexity.Client
	if cfg.Perplexity.Key != "" {
		fetchClient = perplexity.NewClient(cfg.Perplexity.Key,
			perplexity.WithBaseURL(cfg.Perplexity.BaseURL),
			perplexity.WithModel(cfg.Perplexity.Model),
		)
	} else {
		zap.L().Debug("perplexity key not set, remote fetch strategy disabled")
	}

	var extractor anthropicpkg.Client
	if cfg.Anthropic.Key != "" {
		extractor = anthropicpkg.NewClient(cfg.Anthropic.Key)
	} else {
		zap.L().Debug("anthropic key not set, markup extraction runs pattern mining only")
	}

	markupCfg := strategy.DefaultMarkupConfig()
	if cfg.Import.HTMLBudget > 0 {
		markupCfg.HTMLBudget = cfg.Import.HTMLBudget
	}
	if cfg.Anthropic.Model != "" {
		markupCfg.Model = cfg.Anthropic.Model
	}
	if cfg.Anthropic.MaxTokens > 0 {
		markupCfg.MaxTokens = int64(cfg.Anthropic.MaxTokens)
	}
	if cfg.Import.FetchTimeoutSecs > 0 {
		markupCfg.FetchTimeout = time.Duration(cfg.Import.FetchTimeoutSecs) * time.Second
	}
	if cfg.Import.UserAgent != "" {
		markupCfg.UserAgent = cfg.Import.UserAgent
	}

	orch := strategy.NewOrchestrator(registry,
		strategy.NewAPIStrategy(apiClient, limiters),
		strategy.NewRemoteFetchStrategy(fetchClient, limiters),
		strategy.NewMarkupStrategy(extractor, limiters, markupCfg),
	)

	st, err := catalog.New(ctx, cfg.Catalog)
	if err != nil {
		return nil, eris.Wrap(err, "init catalog store")
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate catalog store")
	}

	return &importEnv{
		Registry:     registry,
		Orchestrator: orch,
		Store:        st,
	}, nil
}
