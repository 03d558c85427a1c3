package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"car-scout/models"
	"car-scout/scraper/autotrader"
	"car-scout/services"
	"car-scout/storage"
)

var scrapeFlags struct {
	fresh  bool
	enrich bool
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Scrape listings, store them and print a ranked market report",
	RunE:  runScrape,
}

func init() {
	scrapeCmd.Flags().BoolVar(&scrapeFlags.fresh, "fresh", false, "clear stored listings before writing")
	scrapeCmd.Flags().BoolVar(&scrapeFlags.enrich, "enrich", true, "fetch reference data from RELIABILITY_SOURCES")
	rootCmd.AddCommand(scrapeCmd)
}

func runScrape(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	logger.Info("=== car-scout scrape starting ===")
	logger.Info("Config: pages: %d | listings/page: %d | concurrency: %d | rate: %dms",
		cfg.PagesToScrape, cfg.ListingsPerPage, cfg.MaxConcurrency, cfg.RateLimitMs)

	pipeline, err := newPipeline()
	if err != nil {
		return err
	}

	csvWriter, err := storage.NewCSVWriter(cfg.CSVOutputPath)
	if err != nil {
		return fmt.Errorf("create CSV writer: %w", err)
	}
	defer csvWriter.Close()

	pgWriter, err := storage.NewPostgresWriter(cfg.DSN())
	if err != nil {
		logger.Error("Make sure Docker is running: docker compose up -d")
		return fmt.Errorf("connect to PostgreSQL: %w", err)
	}
	defer pgWriter.Close()

	rawListings, err := autotrader.New(cfg, logger).Scrape(ctx)
	if err != nil {
		logger.Error("Scrape failed: %v", err)
	}
	if len(rawListings) == 0 {
		return errors.New("no listings were scraped")
	}

	logger.Info("Scraped %d raw listings, writing to CSV...", len(rawListings))
	if err := csvWriter.WriteRaw(rawListings); err != nil {
		logger.Error("CSV write failed: %v", err)
	} else {
		logger.Info("Raw listings saved to %s", cfg.CSVOutputPath)
	}

	cleanListings, excluded := services.NewCleaner(logger).Clean(rawListings)
	if len(cleanListings) == 0 {
		return errors.New("all listings were dropped during cleaning")
	}
	logger.Info("Cleaned dataset: %d listings (%d excluded)", len(cleanListings), len(excluded))

	if scrapeFlags.fresh {
		if err := pgWriter.Clear(); err != nil {
			return err
		}
	}
	if err := pgWriter.Write(cleanListings); err != nil {
		logger.Error("PostgreSQL write failed: %v", err)
	} else {
		logger.Info("Clean listings stored in PostgreSQL (table: listings)")
	}

	dbListings, err := pgWriter.FetchAll()
	if err != nil {
		logger.Error("Failed to fetch listings from DB for ranking: %v", err)
		dbListings = cleanListings
	}

	var catalog []models.ReferenceRecord
	if scrapeFlags.enrich {
		catalog = enrich(ctx, catalog, dbListings)
	}

	report, err := pipeline.Run(dbListings, catalog, models.FactorSet{})
	if err != nil {
		return err
	}
	if err := pgWriter.WriteReport(ctx, report); err != nil {
		logger.Error("Storing run %s failed: %v", report.RunID, err)
	}

	out := cmd.OutOrStdout()
	printRanked(out, report.Results, 20)
	insights := services.NewInsightService(logger)
	insights.Print(out, insights.Generate(report))

	fmt.Fprintf(out, "  Done. Raw CSV → %s | Clean data → PostgreSQL (listings table)\n\n", cfg.CSVOutputPath)
	return nil
}
