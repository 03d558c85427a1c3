package services

import (
	"testing"
	"time"

	"car-scout/models"
	"car-scout/utils"
)

func newTestLogger() *utils.Logger { return utils.NewNopLogger() }

func TestCleanerParsePrice(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
	}{
		{"£2,450", 2450},
		{"£12,995 (was £13,495)", 12995},
		{"", 0},
		{"POA", 0},
		{"£1,200.50", 1200.50},
		{"GBP 999", 999},
	}

	for _, tt := range tests {
		got := parsePrice(tt.raw)
		if got != tt.want {
			t.Errorf("parsePrice(%q) = %.2f; want %.2f", tt.raw, got, tt.want)
		}
	}
}

func TestCleanerParseMileage(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"62,000 miles", 62000},
		{"62000mi", 62000},
		{"62k miles", 62000},
		{"7.5K", 7500},
		{"", 0},
		{"Unknown", 0},
	}

	for _, tt := range tests {
		got := parseMileage(tt.raw)
		if got != tt.want {
			t.Errorf("parseMileage(%q) = %d; want %d", tt.raw, got, tt.want)
		}
	}
}

func TestCleanerSplitTitle(t *testing.T) {
	tests := []struct {
		title                string
		make, model, variant string
	}{
		{"2012 Toyota Yaris 1.3 VVT-i TR", "Toyota", "Yaris", "1.3 VVT-i TR"},
		{"Land Rover Defender 110", "Land Rover", "Defender", "110"},
		{"Mercedes-Benz C220 AMG Line", "Mercedes-Benz", "C220", "AMG Line"},
		{"VW", "VW", "", ""},
		{"Lovely little runabout", "", "", ""},
	}

	for _, tt := range tests {
		mk, model, variant := splitTitle(tt.title)
		if mk != tt.make || model != tt.model || variant != tt.variant {
			t.Errorf("splitTitle(%q) = (%q, %q, %q); want (%q, %q, %q)",
				tt.title, mk, model, variant, tt.make, tt.model, tt.variant)
		}
	}
}

func TestCleanerDropsEmptyURL(t *testing.T) {
	c := NewCleaner(newTestLogger())
	raw := []*models.RawListing{
		{Title: "No URL", Make: "Ford", RawPrice: "£100", URL: "", Platform: "autotrader", ScrapedAt: time.Now()},
		{Title: "Has URL", Make: "Ford", RawPrice: "£200", URL: "https://example.test/cars/1", Platform: "autotrader", ScrapedAt: time.Now()},
	}

	cleaned, excluded := c.Clean(raw)
	if len(cleaned) != 1 {
		t.Errorf("expected 1 listing after dropping empty URL, got %d", len(cleaned))
	}
	if len(excluded) != 1 || excluded[0].Reason != models.ExclusionMissingURL {
		t.Errorf("expected one missing_url exclusion, got %+v", excluded)
	}
}

func TestCleanerDeduplicatesURL(t *testing.T) {
	c := NewCleaner(newTestLogger())
	raw := []*models.RawListing{
		{Title: "A", Make: "Ford", URL: "https://example.test/cars/1", Platform: "autotrader", ScrapedAt: time.Now()},
		{Title: "B", Make: "Ford", URL: " https://example.test/cars/1 ", Platform: "autotrader", ScrapedAt: time.Now()},
	}

	cleaned, excluded := c.Clean(raw)
	if len(cleaned) != 1 {
		t.Errorf("expected 1 listing after deduplication, got %d", len(cleaned))
	}
	if len(excluded) != 1 || excluded[0].Reason != models.ExclusionDuplicateURL {
		t.Errorf("expected one duplicate_url exclusion, got %+v", excluded)
	}
}

func TestCleanerExcludesMissingMake(t *testing.T) {
	c := NewCleaner(newTestLogger())
	raw := []*models.RawListing{
		{Title: "Great first car", URL: "https://example.test/cars/1"},
	}

	cleaned, excluded := c.Clean(raw)
	if len(cleaned) != 0 {
		t.Fatalf("expected no listings, got %d", len(cleaned))
	}
	if len(excluded) != 1 || excluded[0].Reason != models.ExclusionMissingMake {
		t.Errorf("expected one missing_make exclusion, got %+v", excluded)
	}
}

func TestCleanerBuildsListing(t *testing.T) {
	c := NewCleaner(newTestLogger())
	scraped := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	raw := []*models.RawListing{
		nil,
		{
			Title:      "  2012 Toyota   Yaris 1.3 VVT-i TR ",
			RawPrice:   "£2,450",
			RawMileage: "62,000 miles",
			Location:   " Leeds ",
			URL:        "https://example.test/cars/1",
			Features:   []string{"Bluetooth", " bluetooth ", "", "Air Conditioning"},
			Platform:   " AutoTrader ",
			ScrapedAt:  scraped,
		},
	}

	cleaned, excluded := c.Clean(raw)
	if len(cleaned) != 1 || len(excluded) != 1 {
		t.Fatalf("expected 1 listing and 1 exclusion, got %d and %d", len(cleaned), len(excluded))
	}

	l := cleaned[0]
	checks := []struct {
		name      string
		got, want any
	}{
		{"Seq", l.Seq, 1},
		{"Platform", l.Platform, "autotrader"},
		{"Title", l.Title, "2012 Toyota Yaris 1.3 VVT-i TR"},
		{"Make", l.Make, "Toyota"},
		{"Model", l.Model, "Yaris"},
		{"Trim", l.Trim, "1.3 VVT-i TR"},
		{"Year", l.Year, 2012},
		{"Price", l.Price, 2450.0},
		{"Mileage", l.Mileage, 62000},
		{"Location", l.Location, "Leeds"},
		{"Features", len(l.Features), 2},
		{"CreatedAt", l.CreatedAt, scraped},
	}
	for _, ch := range checks {
		if ch.got != ch.want {
			t.Errorf("%s = %v; want %v", ch.name, ch.got, ch.want)
		}
	}
}
