package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"car-scout/models"
	"car-scout/services"
	"car-scout/storage"
)

var rankFlags struct {
	listings   string
	raw        string
	references []string
	catalog    bool
	enrich     bool
	priorities models.FactorSet
	json       bool
	csv        string
	persist    bool
	limit      int
}

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Rank listings by reliability, value, recency and mileage",
	Example: `  car-scout rank --listings listings.yaml --references refs.yaml
  car-scout rank --raw output/raw_listings.csv --catalog --priority-value 1 --csv output/ranked.csv`,
	RunE: runRank,
}

func init() {
	f := rankCmd.Flags()
	f.StringVar(&rankFlags.listings, "listings", "", "cleaned listings file (.json, .yaml)")
	f.StringVar(&rankFlags.raw, "raw", "", "raw listings CSV written by scrape")
	f.StringSliceVar(&rankFlags.references, "references", nil, "reference record files (.json, .yaml)")
	f.BoolVar(&rankFlags.catalog, "catalog", false, "include every record in the SQLite reference catalog")
	f.BoolVar(&rankFlags.enrich, "enrich", false, "fetch reference data from RELIABILITY_SOURCES")
	f.Float64Var(&rankFlags.priorities.Reliability, "priority-reliability", 0, "boost for the reliability factor")
	f.Float64Var(&rankFlags.priorities.Value, "priority-value", 0, "boost for the value factor")
	f.Float64Var(&rankFlags.priorities.Recency, "priority-recency", 0, "boost for the recency factor")
	f.Float64Var(&rankFlags.priorities.Mileage, "priority-mileage", 0, "boost for the mileage factor")
	f.BoolVar(&rankFlags.json, "json", false, "print the full report as JSON")
	f.StringVar(&rankFlags.csv, "csv", "", "also write ranked results to this CSV file")
	f.BoolVar(&rankFlags.persist, "persist", false, "store the run in PostgreSQL")
	f.IntVar(&rankFlags.limit, "limit", 20, "rows to print in the ranked table (0 for all)")
	rootCmd.AddCommand(rankCmd)
}

func runRank(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if (rankFlags.listings == "") == (rankFlags.raw == "") {
		return errors.New("exactly one of --listings or --raw is required")
	}

	pipeline, err := newPipeline()
	if err != nil {
		return err
	}

	var catalog []models.ReferenceRecord
	for _, path := range rankFlags.references {
		records, err := storage.LoadReferences(path)
		if err != nil {
			return err
		}
		catalog = append(catalog, records...)
	}
	if rankFlags.catalog {
		store, err := storage.NewReferenceStore(cfg.SQLitePath)
		if err != nil {
			return err
		}
		records, err := store.All(ctx)
		store.Close()
		if err != nil {
			return err
		}
		catalog = append(catalog, records...)
	}

	var report *models.RankReport
	if rankFlags.raw != "" {
		raw, err := storage.LoadRawCSV(rankFlags.raw)
		if err != nil {
			return err
		}
		if rankFlags.enrich {
			listings, _ := services.NewCleaner(logger).Clean(raw)
			catalog = enrich(ctx, catalog, listings)
		}
		report, err = pipeline.RunRaw(raw, catalog, rankFlags.priorities)
		if err != nil {
			return err
		}
	} else {
		listings, err := storage.LoadListings(rankFlags.listings)
		if err != nil {
			return err
		}
		if rankFlags.enrich {
			catalog = enrich(ctx, catalog, listings)
		}
		report, err = pipeline.Run(listings, catalog, rankFlags.priorities)
		if err != nil {
			return err
		}
	}

	if rankFlags.csv != "" {
		if err := storage.WriteResultsCSV(rankFlags.csv, report.Results); err != nil {
			return err
		}
		logger.Info("[rank] Ranked results saved to %s", rankFlags.csv)
	}
	if rankFlags.persist {
		pg, err := storage.NewPostgresWriter(cfg.DSN())
		if err != nil {
			return err
		}
		defer pg.Close()
		if err := pg.WriteReport(ctx, report); err != nil {
			return err
		}
		logger.Info("[rank] Run %s stored in PostgreSQL", report.RunID)
	}

	out := cmd.OutOrStdout()
	if rankFlags.json {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	printRanked(out, report.Results, rankFlags.limit)
	insights := services.NewInsightService(logger)
	insights.Print(out, insights.Generate(report))
	return nil
}

// printRanked renders the ranked table with the scores that explain each rank.
func printRanked(w io.Writer, results []models.RankedResult, limit int) {
	header := color.New(color.FgCyan, color.Bold)
	header.Fprintf(w, "\n%-4s %-6s %-34s %5s %8s %8s %-11s %-10s\n",
		"#", "SCORE", "LISTING", "YEAR", "PRICE", "MILES", "RELIABILITY", "VALUE")

	for i, r := range results {
		if limit > 0 && i >= limit {
			fmt.Fprintf(w, "... %d more\n", len(results)-limit)
			break
		}
		l := r.Listing
		reliability := r.Reliability.Label
		if r.Reliability.Scored() {
			reliability = fmt.Sprintf("%.1f %s", r.Reliability.Overall, r.Reliability.Label)
		}
		line := fmt.Sprintf("%-4d %-6.3f %-34s %5d %8.0f %8d %-11s %-10s",
			r.Rank, r.TotalScore, clip(l.Title, 34), l.Year, l.Price, l.Mileage,
			clip(reliability, 11), r.Value.Category)

		switch {
		case r.MatchStatus == models.MatchStatusUnmatched:
			color.New(color.Faint).Fprintln(w, line)
		case r.Percentile >= 75:
			color.New(color.FgGreen).Fprintln(w, line)
		default:
			fmt.Fprintln(w, line)
		}
	}
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
