package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hyperjump/skillrec/internal/scraper"
	"github.com/hyperjump/skillrec/pkg/utils"
	"github.com/spf13/cobra"
)

var (
	scrapeMaxPages int
	scrapeOutput   string
	scrapeResume   bool
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Scrape the SHL product catalog into a catalog file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg, _, err := loadConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		logger, err := utils.NewLogger(cfg.Debug || debug)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		defer logger.Sync()

		if scrapeMaxPages > 0 {
			cfg.Scraper.MaxPages = scrapeMaxPages
		}
		if scrapeOutput != "" {
			cfg.Scraper.CatalogPath = scrapeOutput
		}

		sc := scraper.New(cfg.Scraper, logger)
		run := sc.Run
		if scrapeResume {
			run = sc.Resume
		}
		res, err := run(ctx)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Listed %d assessments, saved %d to %s\n", res.Listed, res.Saved, cfg.Scraper.CatalogPath)
		if !res.Complete {
			fmt.Fprintf(out, "Warning: expected at least %d assessments; the catalog may be incomplete\n", cfg.Scraper.MinEntries)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scrapeCmd)

	scrapeCmd.Flags().IntVar(&scrapeMaxPages, "max-pages", 0, "number of listing pages to walk (overrides config)")
	scrapeCmd.Flags().StringVarP(&scrapeOutput, "output", "o", "", "catalog path, .csv or .json (overrides config)")
	scrapeCmd.Flags().BoolVar(&scrapeResume, "from-links", false, "skip the listing walk and fetch details for the saved links file")
}
