package storage

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"car-scout/models"
)

// ErrUnsupportedFormat is returned for input files that are neither JSON
// nor YAML.
var ErrUnsupportedFormat = errors.New("unsupported input format")

type listingFile struct {
	Listings []*models.Listing `json:"listings" yaml:"listings"`
}

type referenceFile struct {
	References []models.ReferenceRecord `json:"references" yaml:"references"`
}

// LoadListings reads cleaned listings from a JSON or YAML file. The file may
// hold a bare list or an object with a "listings" key. Seq is assigned from
// file order.
func LoadListings(path string) ([]*models.Listing, error) {
	var listings []*models.Listing
	var wrapped listingFile
	if err := decodeFile(path, &listings, &wrapped); err != nil {
		return nil, err
	}
	if listings == nil {
		listings = wrapped.Listings
	}
	for i, l := range listings {
		if l != nil {
			l.Seq = i
		}
	}
	return listings, nil
}

// LoadReferences reads reference records from a JSON or YAML file. The file
// may hold a bare list or an object with a "references" key.
func LoadReferences(path string) ([]models.ReferenceRecord, error) {
	var records []models.ReferenceRecord
	var wrapped referenceFile
	if err := decodeFile(path, &records, &wrapped); err != nil {
		return nil, err
	}
	if records == nil {
		records = wrapped.References
	}
	return records, nil
}

// decodeFile tries the bare-list form first and falls back to the wrapper.
func decodeFile(path string, list, wrapped any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	var unmarshal func([]byte, any) error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		unmarshal = json.Unmarshal
	case ".yaml", ".yml":
		unmarshal = yaml.Unmarshal
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil
	}
	if listErr := unmarshal(trimmed, list); listErr == nil {
		return nil
	}
	if err := unmarshal(trimmed, wrapped); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

// LoadRawCSV reads raw listings previously written by CSVWriter.
func LoadRawCSV(path string) ([]*models.RawListing, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("csv: open %q: %w", path, err)
	}
	defer f.Close()
	return readRawCSV(f)
}

func readRawCSV(r io.Reader) ([]*models.RawListing, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("csv: read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.TrimSpace(h)] = i
	}

	var out []*models.RawListing
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: read row %d: %w", len(out)+1, err)
		}
		get := func(name string) string {
			if i, ok := col[name]; ok && i < len(row) {
				return row[i]
			}
			return ""
		}

		raw := &models.RawListing{
			Platform:     get("platform"),
			Title:        get("title"),
			RawPrice:     get("raw_price"),
			RawMileage:   get("raw_mileage"),
			RawYear:      get("raw_year"),
			Make:         get("make"),
			Model:        get("model"),
			Trim:         get("trim"),
			Engine:       get("engine"),
			Transmission: get("transmission"),
			Drivetrain:   get("drivetrain"),
			Location:     get("location"),
			URL:          get("url"),
			Description:  get("description"),
		}
		if f := get("features"); f != "" {
			raw.Features = strings.Split(f, "; ")
		}
		if ts, err := time.Parse(time.RFC3339, get("scraped_at")); err == nil {
			raw.ScrapedAt = ts
		}
		out = append(out, raw)
	}
	return out, nil
}
