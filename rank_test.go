package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"

	"car-scout/models"
)

func TestPrintRankedLimit(t *testing.T) {
	color.NoColor = true
	results := make([]models.RankedResult, 3)
	for i := range results {
		results[i] = models.RankedResult{
			AnnotatedListing: models.AnnotatedListing{
				Listing:     &models.Listing{Title: "Toyota Yaris", Year: 2012, Price: 3995, Mileage: 62000},
				MatchStatus: models.MatchStatusMatched,
				Reliability: models.ReliabilityAssessment{Status: models.ReliabilityScored, Overall: 4.5, Label: "Excellent"},
				Value:       models.ValueAssessment{Category: "Good"},
			},
			Rank: i + 1,
		}
	}

	var buf bytes.Buffer
	printRanked(&buf, results, 2)
	out := buf.String()

	if !strings.Contains(out, "4.5 Excell") {
		t.Errorf("expected reliability column, got:\n%s", out)
	}
	if !strings.Contains(out, "... 1 more") {
		t.Errorf("expected truncation marker, got:\n%s", out)
	}
}

func TestClip(t *testing.T) {
	if got := clip("short", 10); got != "short" {
		t.Errorf("clip short: %q", got)
	}
	if got := clip("Volkswagen Golf", 6); got != "Volks…" {
		t.Errorf("clip long: %q", got)
	}
}
