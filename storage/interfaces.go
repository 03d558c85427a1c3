package storage

import (
	"context"

	"car-scout/models"
)

// ListingWriter is the interface any storage backend must satisfy.
type ListingWriter interface {
	Write(listings []*models.Listing) error
	Close() error
}

// RawListingWriter is the interface for persisting unprocessed scraped data.
type RawListingWriter interface {
	WriteRaw(listings []*models.RawListing) error
	Close() error
}

// ReportWriter persists the outcome of a ranking pass.
type ReportWriter interface {
	WriteReport(ctx context.Context, report *models.RankReport) error
	Close() error
}
