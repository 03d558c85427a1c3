package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"car-scout/models"
)

// CSVWriter writes raw (uncleaned) listings to a CSV file.
// It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewCSVWriter creates (or truncates) the CSV file at the given path and
// writes the header row. Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	f, w, err := createCSV(path, []string{
		"platform", "title", "raw_price", "raw_mileage", "raw_year", "make", "model", "trim",
		"engine", "transmission", "drivetrain", "location", "url", "features", "description", "scraped_at",
	})
	if err != nil {
		return nil, err
	}
	return &CSVWriter{file: f, writer: w}, nil
}

// WriteRaw appends raw listings to the CSV file.
func (c *CSVWriter) WriteRaw(listings []*models.RawListing) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, l := range listings {
		row := []string{
			l.Platform,
			l.Title,
			l.RawPrice,
			l.RawMileage,
			l.RawYear,
			l.Make,
			l.Model,
			l.Trim,
			l.Engine,
			l.Transmission,
			l.Drivetrain,
			l.Location,
			l.URL,
			strings.Join(l.Features, "; "),
			l.Description,
			l.ScrapedAt.Format(time.RFC3339),
		}
		if err := c.writer.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.writer.Flush()
	return c.file.Close()
}

// WriteResultsCSV writes ranked results, one row per listing in rank order,
// with the component scores that explain each rank.
func WriteResultsCSV(path string, results []models.RankedResult) error {
	f, w, err := createCSV(path, []string{
		"rank", "percentile", "total_score", "title", "make", "model", "year", "price", "mileage", "url",
		"match_status", "match_score", "reliability", "reliability_label", "confidence",
		"value", "value_category", "c_reliability", "c_value", "c_recency", "c_mileage",
	})
	if err != nil {
		return err
	}
	defer f.Close()

	for _, r := range results {
		l := r.Listing
		var matchScore string
		if r.Match != nil {
			matchScore = formatFloat(r.Match.Score, 3)
		}
		var reliability string
		if r.Reliability.Scored() {
			reliability = formatFloat(r.Reliability.Overall, 1)
		}
		row := []string{
			strconv.Itoa(r.Rank),
			formatFloat(r.Percentile, 2),
			formatFloat(r.TotalScore, 4),
			l.Title,
			l.Make,
			l.Model,
			strconv.Itoa(l.Year),
			formatFloat(l.Price, 0),
			strconv.Itoa(l.Mileage),
			l.URL,
			string(r.MatchStatus),
			matchScore,
			reliability,
			r.Reliability.Label,
			string(r.Reliability.Confidence),
			formatFloat(r.Value.Score, 2),
			r.Value.Category,
			formatFloat(r.Components.Reliability, 4),
			formatFloat(r.Components.Value, 4),
			formatFloat(r.Components.Recency, 4),
			formatFloat(r.Components.Mileage, 4),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	w.Flush()
	return w.Error()
}

func createCSV(path string, header []string) (*os.File, *csv.Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		_ = f.Close()
		return nil, nil, fmt.Errorf("csv: write header: %w", err)
	}
	w.Flush()
	return f, w, nil
}

func formatFloat(v float64, places int) string {
	return strconv.FormatFloat(v, 'f', places, 64)
}
