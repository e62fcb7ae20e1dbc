package main

import (
	"bufio"
	"os"
	"strings"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/supplier-import/internal/resilience"
	"github.com/sells-group/supplier-import/internal/strategy"
)

var (
	batchFile     string
	batchStrategy string
	batchSave     bool
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Import many product URLs concurrently from a file",
	Long:  "Reads one URL per line (blank lines and # comments skipped) and runs imports with bounded concurrency. A rate-limited upstream aborts the whole batch.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		mode, err := strategy.ParseMode(batchStrategy)
		if err != nil {
			return err
		}

		urls, err := readURLFile(batchFile)
		if err != nil {
			return err
		}
		if len(urls) == 0 {
			return eris.Errorf("no urls in %s", batchFile)
		}

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		var imported, failed atomic.Int64

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(cfg.Batch.MaxConcurrentImports)
		for _, rawURL := range urls {
			g.Go(func() error {
				result, err := env.Orchestrator.Run(gctx, rawURL, mode)
				if err != nil {
					// Throttling is shared across the batch; stop instead of
					// hammering the same upstream with the remaining URLs.
					if resilience.IsRateLimited(err) {
						return err
					}
					failed.Add(1)
					zap.L().Warn("batch import failed",
						zap.String("url", rawURL),
						zap.Error(err),
					)
					return nil
				}
				if batchSave {
					if _, err := env.Store.SaveProduct(gctx, rawURL, result.Record, result.Warnings, catalogOverrides()); err != nil {
						failed.Add(1)
						zap.L().Warn("batch save failed",
							zap.String("url", rawURL),
							zap.Error(err),
						)
						return nil
					}
				}
				imported.Add(1)
				return nil
			})
		}

		err = g.Wait()
		zap.L().Info("batch complete",
			zap.Int("urls", len(urls)),
			zap.Int64("imported", imported.Load()),
			zap.Int64("failed", failed.Load()),
		)
		if err != nil {
			return eris.Wrap(err, "batch")
		}
		return nil
	},
}

func readURLFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "open url file %s", path)
	}
	defer func() { _ = f.Close() }()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	return urls, eris.Wrap(scanner.Err(), "read url file")
}

func init() {
	batchCmd.Flags().StringVar(&batchFile, "file", "", "path to file with one URL per line (required)")
	batchCmd.Flags().StringVar(&batchStrategy, "strategy", "", "extraction mode: auto, browser, or standard")
	batchCmd.Flags().BoolVar(&batchSave, "save", false, "persist records to the catalog")
	_ = batchCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(batchCmd)
}
