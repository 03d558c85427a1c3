package services

import (
	"regexp"
	"strings"

	"car-scout/models"
)

// displacementRegexp finds an engine size such as "1.3", "2.0L" or "1.6 litre"
// embedded in a model string.
var displacementRegexp = regexp.MustCompile(`(?i)\b(\d\.\d)\s*(?:l|litre|liter)?\b`)

var makeAliases = map[string]string{
	"vw":        "volkswagen",
	"merc":      "mercedes benz",
	"mercedes":  "mercedes benz",
	"chevy":     "chevrolet",
	"landrover": "land rover",
	"alfa":      "alfa romeo",
	"citroën":   "citroen",
	"škoda":     "skoda",
}

var transmissionAliases = map[string]string{
	"auto":           "automatic",
	"automatic":      "automatic",
	"at":             "automatic",
	"cvt":            "automatic",
	"dsg":            "automatic",
	"tiptronic":      "automatic",
	"semi auto":      "automatic",
	"semi automatic": "automatic",
	"manual":         "manual",
	"mt":             "manual",
	"stick":          "manual",
	"manual gearbox": "manual",
}

var driveAliases = map[string]string{
	"fwd":               "fwd",
	"2wd":               "fwd",
	"front wheel drive": "fwd",
	"rwd":               "rwd",
	"rear wheel drive":  "rwd",
	"awd":               "awd",
	"4wd":               "awd",
	"4x4":               "awd",
	"all wheel drive":   "awd",
	"four wheel drive":  "awd",
}

// VectorizeListing builds the comparison vector of a listing.
func VectorizeListing(l *models.Listing) models.FeatureVector {
	if l == nil {
		return models.FeatureVector{}
	}
	return vectorize(l.Make, l.Model, l.Year, l.Trim, l.Engine, l.Transmission, l.Drivetrain)
}

// VectorizeReference builds the comparison vector of a reference record.
func VectorizeReference(r *models.ReferenceRecord) models.FeatureVector {
	if r == nil {
		return models.FeatureVector{}
	}
	return vectorize(r.Make, r.Model, r.Year, r.Trim, r.Engine, r.Transmission, r.Drivetrain)
}

func vectorize(mk, model string, year int, trim, engine, transmission, drive string) models.FeatureVector {
	// An engine size written into the model ("Yaris 1.3") belongs to the
	// engine field; it is moved before punctuation is stripped.
	if m := displacementRegexp.FindStringSubmatch(model); m != nil {
		model = displacementRegexp.ReplaceAllString(model, " ")
		if strings.TrimSpace(engine) == "" {
			engine = m[1]
		}
	}

	if year < 1886 || year > 2100 {
		year = 0
	}

	return models.FeatureVector{
		Make:         canonical(Normalize(mk), makeAliases),
		Model:        Normalize(model),
		Year:         year,
		Trim:         Normalize(trim),
		Engine:       Normalize(engine),
		Transmission: canonical(Normalize(transmission), transmissionAliases),
		Drive:        canonical(Normalize(drive), driveAliases),
	}
}

func canonical(normalized string, aliases map[string]string) string {
	if c, ok := aliases[normalized]; ok {
		return c
	}
	return normalized
}
