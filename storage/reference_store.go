package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"car-scout/cache"
	"car-scout/models"
	"car-scout/services"
)

// ReferenceStore is a local SQLite catalog of reference records grouped by
// vehicle. It satisfies cache.ReferenceCache so it can sit in front of the
// remote sources as a persistent cache.
type ReferenceStore struct {
	db *sql.DB
}

// NewReferenceStore opens or creates the catalog database at path.
func NewReferenceStore(path string) (*ReferenceStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating catalog directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}

	s := &ReferenceStore{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

func (s *ReferenceStore) Close() error {
	return s.db.Close()
}

func (s *ReferenceStore) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS reference_sets (
			cache_key TEXT PRIMARY KEY,
			make TEXT NOT NULL,
			model TEXT NOT NULL,
			year INTEGER NOT NULL,
			records TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reference_sets_make ON reference_sets(make, model)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

func (s *ReferenceStore) Get(ctx context.Context, key cache.Key) ([]models.ReferenceRecord, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT records FROM reference_sets WHERE cache_key = ?`, key.String(),
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, cache.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("querying references: %w", err)
	}

	var records []models.ReferenceRecord
	if err := json.Unmarshal([]byte(payload), &records); err != nil {
		return nil, fmt.Errorf("decoding references for %s: %w", key, err)
	}
	return records, nil
}

func (s *ReferenceStore) Set(ctx context.Context, key cache.Key, records []models.ReferenceRecord) error {
	payload, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encoding references: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO reference_sets (cache_key, make, model, year, records, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		key.String(), key.Make, key.Model, key.Year, string(payload),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("storing references for %s: %w", key, err)
	}
	return nil
}

// Import merges records into the catalog. Records are grouped by their
// normalized make, model and year; existing groups are replaced.
func (s *ReferenceStore) Import(ctx context.Context, records []models.ReferenceRecord) (int, error) {
	groups := make(map[cache.Key][]models.ReferenceRecord)
	var order []cache.Key
	for i := range records {
		v := services.VectorizeReference(&records[i])
		key := cache.Key{Make: v.Make, Model: v.Model, Year: v.Year}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], records[i])
	}

	for _, key := range order {
		if err := s.Set(ctx, key, groups[key]); err != nil {
			return 0, err
		}
	}
	return len(order), nil
}

// All returns every stored record ordered by make, model and year.
func (s *ReferenceStore) All(ctx context.Context) ([]models.ReferenceRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT cache_key, records FROM reference_sets ORDER BY make, model, year`)
	if err != nil {
		return nil, fmt.Errorf("querying catalog: %w", err)
	}
	defer rows.Close()

	var all []models.ReferenceRecord
	for rows.Next() {
		var key, payload string
		if err := rows.Scan(&key, &payload); err != nil {
			return nil, fmt.Errorf("scanning catalog row: %w", err)
		}
		var records []models.ReferenceRecord
		if err := json.Unmarshal([]byte(payload), &records); err != nil {
			return nil, fmt.Errorf("decoding references for %s: %w", key, err)
		}
		all = append(all, records...)
	}
	return all, rows.Err()
}
