package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/supplier-import/internal/catalog"
	"github.com/sells-group/supplier-import/internal/feed"
)

var feedURL string

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Sync wholesale costs from a supplier bulk price feed",
	Long:  "Downloads a CSV or XLSX price file over HTTP or FTP and updates base costs of stored products by brand and style name.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		url := feedURL
		if url == "" {
			url = cfg.Feed.URL
		}
		if url == "" {
			return eris.New("feed url is required (--url or SUPPLIER_FEED_URL)")
		}

		st, err := catalog.New(ctx, cfg.Catalog)
		if err != nil {
			return eris.Wrap(err, "init catalog store")
		}
		defer func() { _ = st.Close() }()
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate catalog store")
		}

		result, err := feed.NewSyncer(st).Sync(ctx, url)
		if err != nil {
			return eris.Wrap(err, "feed sync")
		}

		zap.L().Info("feed sync complete",
			zap.Int("rows", result.Rows),
			zap.Int64("updated", result.Updated),
			zap.Int("skipped", result.Skipped),
		)
		return nil
	},
}

func init() {
	feedCmd.Flags().StringVar(&feedURL, "url", "", "feed URL (http, https, or ftp; default from config)")
	rootCmd.AddCommand(feedCmd)
}
