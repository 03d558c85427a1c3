package services

import (
	"fmt"
	"math"
	"time"

	"car-scout/models"
	"car-scout/utils"
)

// Average miles driven per year.
var annualMileageByCountry = map[string]int{
	"UK": 7400,
	"US": 13500,
}

const defaultAnnualMileage = 10000

// Typical total lifespan in miles by normalized make.
var makeLifespans = map[string]int{
	"toyota":        250000,
	"lexus":         250000,
	"honda":         230000,
	"acura":         230000,
	"subaru":        220000,
	"mazda":         220000,
	"ford":          200000,
	"chevrolet":     200000,
	"nissan":        200000,
	"volkswagen":    190000,
	"audi":          180000,
	"bmw":           180000,
	"mercedes benz": 180000,
	"kia":           180000,
	"hyundai":       180000,
	"volvo":         180000,
	"fiat":          150000,
	"mini":          150000,
	"land rover":    150000,
	"jaguar":        150000,
}

const defaultLifespan = 180000

// MileageAnalyzer compares a listing's mileage with what is typical for its
// age. The result is informational and does not feed the scores.
type MileageAnalyzer struct {
	annual int
	logger *utils.Logger
}

// NewMileageAnalyzer creates an analyzer for country ("UK", "US"); unknown
// countries use a 10,000 mile annual average.
func NewMileageAnalyzer(country string, logger *utils.Logger) *MileageAnalyzer {
	annual, ok := annualMileageByCountry[country]
	if !ok {
		annual = defaultAnnualMileage
	}
	return &MileageAnalyzer{annual: annual, logger: logger}
}

// Analyze returns the mileage analysis of l as of now. Listings without a
// year or mileage yield an analysis with Known unset.
func (a *MileageAnalyzer) Analyze(l *models.Listing, now time.Time) models.MileageAnalysis {
	if l == nil || l.Year == 0 || l.Mileage == 0 {
		return models.MileageAnalysis{Summary: "Insufficient data for mileage analysis"}
	}

	age := now.Year() - l.Year
	if age < 0 {
		age = 0
	}
	expected := a.annual * age

	var deviation float64
	if expected > 0 {
		deviation = float64(l.Mileage-expected) / float64(expected) * 100
	}

	annual := float64(l.Mileage)
	if age > 0 {
		annual /= float64(age)
	}

	lifespan, ok := makeLifespans[VectorizeListing(l).Make]
	if !ok {
		lifespan = defaultLifespan
	}
	remaining := lifespan - l.Mileage
	if remaining < 0 {
		remaining = 0
	}

	m := models.MileageAnalysis{
		Known:             true,
		Age:               age,
		ExpectedMileage:   expected,
		DeviationPercent:  round(deviation, 1),
		AnnualMileage:     math.Round(annual),
		Rating:            round(mileageRating(l.Mileage, expected), 2),
		RemainingLifespan: remaining,
	}
	m.Summary = a.summary(l.Mileage, m)
	return m
}

// mileageRating scores actual against expected mileage on 1-5, higher is
// better. Brand-new cars score a neutral 3.
func mileageRating(actual, expected int) float64 {
	if expected <= 0 {
		return 3
	}
	ratio := float64(actual) / float64(expected)
	switch {
	case ratio <= 0.5:
		return 5
	case ratio <= 1:
		return 4 + (1-ratio)*2
	case ratio <= 1.5:
		return 3 + (1.5-ratio)*2
	default:
		return math.Max(1, 3-(ratio-1.5)*2)
	}
}

func (a *MileageAnalyzer) summary(actual int, m models.MileageAnalysis) string {
	var age string
	switch m.Age {
	case 0:
		age = "a current year model"
	case 1:
		age = "a 1-year-old vehicle"
	default:
		age = fmt.Sprintf("a %d-year-old vehicle", m.Age)
	}

	var compared string
	d := m.DeviationPercent
	switch {
	case d <= -30:
		compared = fmt.Sprintf("significantly below average (%.0f%% less)", -d)
	case d <= -10:
		compared = fmt.Sprintf("below average (%.0f%% less)", -d)
	case d <= 10:
		compared = "around average"
	case d <= 30:
		compared = fmt.Sprintf("above average (%.0f%% more)", d)
	default:
		compared = fmt.Sprintf("significantly above average (%.0f%% more)", d)
	}

	var remaining string
	switch r := m.RemainingLifespan; {
	case r <= 20000:
		remaining = "limited"
	case r <= 50000:
		remaining = "moderate"
	case r <= 100000:
		remaining = "good"
	default:
		remaining = "excellent"
	}

	return fmt.Sprintf("This is %s with %d miles, which is %s for its age. It averages %.0f miles/year with %s expected remaining life of %d miles.",
		age, actual, compared, m.AnnualMileage, remaining, m.RemainingLifespan)
}
