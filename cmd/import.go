package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/supplier-import/internal/catalog"
	"github.com/sells-group/supplier-import/internal/resilience"
	"github.com/sells-group/supplier-import/internal/strategy"
)

var (
	importStrategy string
	importSave     bool
	importTier     string
)

var importCmd = &cobra.Command{
	Use:   "import <url>",
	Short: "Import one supplier product page into a canonical record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rawURL := args[0]

		mode, err := strategy.ParseMode(importStrategy)
		if err != nil {
			return err
		}

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		result, err := env.Orchestrator.Run(ctx, rawURL, mode)
		if err != nil {
			if rl, ok := resilience.AsRateLimited(err); ok {
				zap.L().Warn("import rate limited",
					zap.String("url", rawURL),
					zap.String("service", rl.Service),
					zap.Duration("retry_after", rl.RetryAfter),
				)
			}
			return eris.Wrap(err, "import")
		}

		if importSave {
			stored, err := env.Store.SaveProduct(ctx, rawURL, result.Record, result.Warnings, catalogOverrides())
			if err != nil {
				return eris.Wrap(err, "save product")
			}
			zap.L().Info("product saved", zap.String("id", stored.ID))
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func catalogOverrides() catalog.Overrides {
	return catalog.Overrides{PricingTier: importTier}
}

func init() {
	importCmd.Flags().StringVar(&importStrategy, "strategy", "", "extraction mode: auto, browser, or standard")
	importCmd.Flags().BoolVar(&importSave, "save", false, "persist the record to the catalog")
	importCmd.Flags().StringVar(&importTier, "pricing-tier", "", "pricing tier override applied on save")
	rootCmd.AddCommand(importCmd)
}
