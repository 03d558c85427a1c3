package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"car-scout/models"
)

const listingColumns = 15

// PostgresWriter persists cleaned listings and ranking runs to PostgreSQL.
type PostgresWriter struct {
	db *sql.DB
}

// NewPostgresWriter opens a connection to PostgreSQL, runs schema migrations,
// and returns a ready-to-use PostgresWriter.
func NewPostgresWriter(dsn string) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	pw := &PostgresWriter{db: db}
	if err := pw.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return pw, nil
}

func (pw *PostgresWriter) migrate() error {
	_, err := pw.db.Exec(`
		CREATE TABLE IF NOT EXISTS listings (
			id           SERIAL PRIMARY KEY,
			platform     VARCHAR(50)   NOT NULL,
			title        TEXT          NOT NULL,
			make         TEXT          NOT NULL DEFAULT '',
			model        TEXT          NOT NULL DEFAULT '',
			year         INTEGER       NOT NULL DEFAULT 0,
			trim_level   TEXT          NOT NULL DEFAULT '',
			engine       TEXT          NOT NULL DEFAULT '',
			transmission TEXT          NOT NULL DEFAULT '',
			drivetrain   TEXT          NOT NULL DEFAULT '',
			price        NUMERIC(10,2) NOT NULL DEFAULT 0,
			mileage      INTEGER       NOT NULL DEFAULT 0,
			location     TEXT          NOT NULL DEFAULT '',
			url          TEXT          UNIQUE NOT NULL,
			description  TEXT          NOT NULL DEFAULT '',
			features     TEXT[]        NOT NULL DEFAULT '{}',
			created_at   TIMESTAMPTZ   NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_listings_make_model ON listings(make, model);
		CREATE INDEX IF NOT EXISTS idx_listings_price      ON listings(price);
		CREATE INDEX IF NOT EXISTS idx_listings_year       ON listings(year);

		CREATE TABLE IF NOT EXISTS rank_runs (
			run_id            UUID        PRIMARY KEY,
			generated_at      TIMESTAMPTZ NOT NULL,
			input             INTEGER     NOT NULL,
			excluded          INTEGER     NOT NULL,
			unmatched         INTEGER     NOT NULL,
			insufficient_data INTEGER     NOT NULL
		);

		CREATE TABLE IF NOT EXISTS ranked_results (
			run_id      UUID          NOT NULL REFERENCES rank_runs(run_id) ON DELETE CASCADE,
			rank        INTEGER       NOT NULL,
			url         TEXT          NOT NULL,
			total_score NUMERIC(8,4)  NOT NULL,
			percentile  NUMERIC(6,2)  NOT NULL,
			reliability NUMERIC(3,1),
			value_score NUMERIC(4,2)  NOT NULL,
			detail      JSONB         NOT NULL,
			PRIMARY KEY (run_id, rank)
		);
	`)
	return err
}

// Clear deletes all existing listings from the table.
func (pw *PostgresWriter) Clear() error {
	_, err := pw.db.Exec("DELETE FROM listings")
	if err != nil {
		return fmt.Errorf("postgres: clear: %w", err)
	}
	return nil
}

// Write batch-upserts cleaned listings keyed by URL. A listing seen again
// keeps its row and takes the new price, mileage and description.
func (pw *PostgresWriter) Write(listings []*models.Listing) error {
	if len(listings) == 0 {
		return nil
	}

	const batchSize = 50
	for i := 0; i < len(listings); i += batchSize {
		end := min(i+batchSize, len(listings))
		query, args := listingInsert(listings[i:end])
		if _, err := pw.db.Exec(query, args...); err != nil {
			return fmt.Errorf("postgres: insert listings: %w", err)
		}
	}
	return nil
}

func listingInsert(batch []*models.Listing) (string, []any) {
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]any, 0, len(batch)*listingColumns)

	for idx, l := range batch {
		base := idx * listingColumns
		placeholders := make([]string, listingColumns)
		for c := range placeholders {
			placeholders[c] = fmt.Sprintf("$%d", base+c+1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(placeholders, ",")+")")
		valueArgs = append(valueArgs,
			l.Platform, l.Title, l.Make, l.Model, l.Year, l.Trim, l.Engine, l.Transmission,
			l.Drivetrain, l.Price, l.Mileage, l.Location, l.URL, l.Description, pq.Array(l.Features))
	}

	query := fmt.Sprintf(`
		INSERT INTO listings (platform, title, make, model, year, trim_level, engine, transmission,
			drivetrain, price, mileage, location, url, description, features)
		VALUES %s
		ON CONFLICT (url) DO UPDATE SET
			price = EXCLUDED.price,
			mileage = EXCLUDED.mileage,
			description = EXCLUDED.description,
			features = EXCLUDED.features
	`, strings.Join(valueStrings, ","))
	return query, valueArgs
}

// WriteReport stores a ranking run and its ordered results in one
// transaction.
func (pw *PostgresWriter) WriteReport(ctx context.Context, report *models.RankReport) error {
	tx, err := pw.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO rank_runs (run_id, generated_at, input, excluded, unmatched, insufficient_data)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, report.RunID, report.GeneratedAt, report.Input, len(report.Excluded),
		report.Unmatched, report.InsufficientData); err != nil {
		return fmt.Errorf("postgres: insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO ranked_results (run_id, rank, url, total_score, percentile, reliability, value_score, detail)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`)
	if err != nil {
		return fmt.Errorf("postgres: prepare results: %w", err)
	}
	defer stmt.Close()

	for _, r := range report.Results {
		detail, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("postgres: encode result: %w", err)
		}
		var reliability sql.NullFloat64
		if r.Reliability.Scored() {
			reliability = sql.NullFloat64{Float64: r.Reliability.Overall, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, report.RunID, r.Rank, r.Listing.URL, r.TotalScore,
			r.Percentile, reliability, r.Value.Score, detail); err != nil {
			return fmt.Errorf("postgres: insert result %d: %w", r.Rank, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}

// FetchAll retrieves all stored listings in insertion order; Seq follows
// that order.
func (pw *PostgresWriter) FetchAll() ([]*models.Listing, error) {
	rows, err := pw.db.Query(`
		SELECT id, platform, title, make, model, year, trim_level, engine, transmission, drivetrain,
			price, mileage, location, url, description, features, created_at
		FROM listings
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch all: %w", err)
	}
	defer rows.Close()

	var listings []*models.Listing
	for rows.Next() {
		l := &models.Listing{Seq: len(listings)}
		if err := rows.Scan(
			&l.ID, &l.Platform, &l.Title, &l.Make, &l.Model, &l.Year, &l.Trim, &l.Engine,
			&l.Transmission, &l.Drivetrain, &l.Price, &l.Mileage, &l.Location, &l.URL,
			&l.Description, pq.Array(&l.Features), &l.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}
