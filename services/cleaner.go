package services

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"car-scout/models"
	"car-scout/utils"
)

var (
	// numberRegexp captures the first number, with thousands separators
	numberRegexp = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)
	// mileageRegexp captures "62,000 miles", "62000mi" or "62k miles"
	mileageRegexp = regexp.MustCompile(`(?i)(\d[\d,]*(?:\.\d+)?)\s*(k)?\s*(?:miles|mi|mls)?\b`)
	// yearRegexp captures a plausible model year
	yearRegexp = regexp.MustCompile(`\b(19[5-9]\d|20\d\d)\b`)
)

// knownMakes lets the cleaner read make and model from a title when the
// listing page did not expose them separately. Keys are normalized.
var knownMakes = map[string]struct{}{
	"abarth": {}, "alfa romeo": {}, "aston martin": {}, "audi": {}, "bmw": {},
	"chevrolet": {}, "citroen": {}, "cupra": {}, "dacia": {}, "ds": {}, "fiat": {},
	"ford": {}, "honda": {}, "hyundai": {}, "jaguar": {}, "jeep": {}, "kia": {},
	"land rover": {}, "lexus": {}, "mazda": {}, "mercedes": {}, "mercedes benz": {},
	"mg": {}, "mini": {}, "mitsubishi": {}, "nissan": {}, "peugeot": {}, "porsche": {},
	"renault": {}, "rolls royce": {}, "seat": {}, "skoda": {}, "smart": {}, "subaru": {},
	"suzuki": {}, "tesla": {}, "toyota": {}, "vauxhall": {}, "volkswagen": {}, "volvo": {},
	"vw": {},
}

// Cleaner transforms RawListings into clean, validated Listings.
type Cleaner struct {
	logger *utils.Logger
	now    func() time.Time
}

// NewCleaner creates a Cleaner with the given logger.
func NewCleaner(logger *utils.Logger) *Cleaner {
	return &Cleaner{logger: logger, now: time.Now}
}

// Clean processes raw listings and returns cleaned records together with
// every record it dropped and why. Seq is the record's position in raw.
func (c *Cleaner) Clean(raw []*models.RawListing) ([]*models.Listing, []models.Exclusion) {
	seen := utils.NewStringSet()
	result := make([]*models.Listing, 0, len(raw))
	var excluded []models.Exclusion

	for i, r := range raw {
		if r == nil {
			excluded = append(excluded, models.Exclusion{Reason: models.ExclusionMissingURL})
			continue
		}
		title := normaliseText(r.Title)
		url := strings.TrimSpace(r.URL)
		if url == "" {
			c.logger.Warn("[cleaner] Dropping listing with empty URL: %s", title)
			excluded = append(excluded, models.Exclusion{Title: title, Reason: models.ExclusionMissingURL})
			continue
		}

		if !seen.Add(url) {
			c.logger.Debug("[cleaner] Duplicate URL skipped: %s", url)
			excluded = append(excluded, models.Exclusion{URL: url, Title: title, Reason: models.ExclusionDuplicateURL})
			continue
		}

		mk, model, trim := normaliseText(r.Make), normaliseText(r.Model), normaliseText(r.Trim)
		if mk == "" {
			var variant string
			mk, model, variant = splitTitle(title)
			if trim == "" {
				trim = variant
			}
		}
		if mk == "" {
			c.logger.Warn("[cleaner] Dropping listing without make: %s (%s)", title, url)
			excluded = append(excluded, models.Exclusion{URL: url, Title: title, Reason: models.ExclusionMissingMake})
			continue
		}

		year := parseYear(r.RawYear)
		if year == 0 {
			year = parseYear(title)
		}

		createdAt := r.ScrapedAt
		if createdAt.IsZero() {
			createdAt = c.now()
		}

		result = append(result, &models.Listing{
			Seq:          i,
			Platform:     normalisePlatform(r.Platform),
			Title:        title,
			Make:         mk,
			Model:        model,
			Year:         year,
			Trim:         trim,
			Engine:       normaliseText(r.Engine),
			Transmission: normaliseText(r.Transmission),
			Drivetrain:   normaliseText(r.Drivetrain),
			Price:        parsePrice(r.RawPrice),
			Mileage:      parseMileage(r.RawMileage),
			Location:     normaliseText(r.Location),
			URL:          url,
			Description:  normaliseText(r.Description),
			Features:     cleanFeatures(r.Features),
			CreatedAt:    createdAt,
		})
	}

	c.logger.Info("[cleaner] Cleaned %d → %d listings (dropped %d)",
		len(raw), len(result), len(excluded))
	return result, excluded
}

// parsePrice extracts a price in whole currency units.
// Examples:
//
//	"£2,450" → 2450
//	"£12,995 (was £13,495)" → 12995
//	"POA" → 0
func parsePrice(raw string) float64 {
	match := numberRegexp.FindString(raw)
	if match == "" {
		return 0
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(match, ",", ""), 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

// parseMileage extracts odometer miles, expanding a "k" suffix.
func parseMileage(raw string) int {
	m := mileageRegexp.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return 0
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil || v < 0 {
		return 0
	}
	if m[2] != "" {
		v *= 1000
	}
	return int(v)
}

func parseYear(raw string) int {
	m := yearRegexp.FindStringSubmatch(raw)
	if m == nil {
		return 0
	}
	y, _ := strconv.Atoi(m[1])
	return y
}

// splitTitle reads "2012 Toyota Yaris 1.3 VVT-i TR" as make "Toyota",
// model "Yaris" and variant "1.3 VVT-i TR". The longest known make prefix
// wins; unknown makes return empty strings.
func splitTitle(title string) (mk, model, variant string) {
	words := strings.Fields(yearRegexp.ReplaceAllString(title, " "))
	for n := min(3, len(words)); n > 0; n-- {
		prefix := strings.Join(words[:n], " ")
		if _, ok := knownMakes[Normalize(prefix)]; !ok {
			continue
		}
		rest := words[n:]
		if len(rest) == 0 {
			return prefix, "", ""
		}
		return prefix, rest[0], strings.Join(rest[1:], " ")
	}
	return "", "", ""
}

func cleanFeatures(features []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(features))
	for _, f := range features {
		f = normaliseText(f)
		key := strings.ToLower(f)
		if f == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, f)
	}
	return out
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	s = strings.TrimSpace(s)
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r)
	})
	return strings.Join(fields, " ")
}

func normalisePlatform(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
