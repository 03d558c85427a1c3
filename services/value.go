package services

import (
	"fmt"
	"math"

	"car-scout/config"
	"car-scout/models"
	"car-scout/utils"
)

const (
	// neutralPercentile stands in for a percentile that cannot be computed.
	neutralPercentile = 0.5
	// neutralFactor stands in for a factor score with no signal.
	neutralFactor = 3.0

	notablyStrong = 4.0
	notablyWeak   = 2.0
)

var valueFactors = []models.ValueFactor{
	models.FactorPrice,
	models.FactorReliability,
	models.FactorMileage,
	models.FactorAge,
	models.FactorFeatures,
}

var justificationTemplates = map[models.ValueFactor]map[models.Polarity]string{
	models.FactorPrice: {
		models.PolarityPositive: "Priced below most comparable listings",
		models.PolarityNegative: "Priced above most comparable listings",
	},
	models.FactorReliability: {
		models.PolarityPositive: "Strong reliability record for this model",
		models.PolarityNegative: "Weak reliability record for this model",
	},
	models.FactorMileage: {
		models.PolarityPositive: "Lower mileage than comparable listings",
		models.PolarityNegative: "Higher mileage than comparable listings",
	},
	models.FactorAge: {
		models.PolarityPositive: "Newer than comparable listings",
		models.PolarityNegative: "Older than comparable listings",
	},
	models.FactorFeatures: {
		models.PolarityPositive: "Well equipped compared with similar cars",
		models.PolarityNegative: "Sparsely equipped compared with similar cars",
	},
}

// ValueAssessor rates value for money against market comparables.
type ValueAssessor struct {
	cfg    config.ValueConfig
	logger *utils.Logger
}

// NewValueAssessor creates an assessor. The weights in cfg are the default
// used by the pipeline; Assess takes its own.
func NewValueAssessor(cfg config.ValueConfig, logger *utils.Logger) *ValueAssessor {
	return &ValueAssessor{cfg: cfg, logger: logger}
}

// Assess rates l given its reliability assessment and the market. market
// may contain l itself and listings of other models; only comparables are
// used. Percentiles that cannot be computed count as neutral. weights are
// normalized over the factors they weight; invalid weights return an error
// wrapping config.ErrInvalidConfig.
func (a *ValueAssessor) Assess(l *models.Listing, rel models.ReliabilityAssessment, market []*models.Listing, weights config.ValueWeights) (models.ValueAssessment, error) {
	if err := validateValueWeights(weights); err != nil {
		return models.ValueAssessment{}, err
	}

	comps := a.Comparables(l, market)

	price := a.percentile(l.Price, comps, func(c *models.Listing) float64 { return c.Price })
	mileage := a.percentile(float64(l.Mileage), comps, func(c *models.Listing) float64 { return float64(c.Mileage) })
	// Age percentile: the fraction of comparables that are newer.
	age := a.percentile(ageKey(l.Year), comps, func(c *models.Listing) float64 { return ageKey(c.Year) })

	reliability := neutralFactor
	if rel.Scored() {
		reliability = rel.Overall
	}

	scores := map[models.ValueFactor]float64{
		models.FactorPrice:       percentileScore(price),
		models.FactorReliability: clamp(reliability, 1, 5),
		models.FactorMileage:     percentileScore(mileage),
		models.FactorAge:         percentileScore(age),
		models.FactorFeatures:    a.featureScore(l, comps),
	}

	var total, weightSum float64
	for _, f := range valueFactors {
		weightSum += weights.For(f)
	}

	va := models.ValueAssessment{
		PricePercentile:   price,
		MileagePercentile: mileage,
		AgePercentile:     age,
		Comparables:       len(comps),
		Factors:           make([]models.FactorScore, 0, len(valueFactors)),
	}
	for _, f := range valueFactors {
		w := weights.For(f) / weightSum
		s := scores[f]
		total += w * s
		va.Factors = append(va.Factors, models.FactorScore{Factor: f, Score: round(s, 2), Weight: w})

		if w == 0 {
			continue
		}
		switch {
		case s >= notablyStrong:
			va.Justifications = append(va.Justifications, justify(f, models.PolarityPositive))
		case s <= notablyWeak:
			va.Justifications = append(va.Justifications, justify(f, models.PolarityNegative))
		}
	}

	va.Score = round(clamp(total, 1, 5), 2)
	va.Category = ValueCategory(va.Score)
	return va, nil
}

func justify(f models.ValueFactor, p models.Polarity) models.Justification {
	return models.Justification{Factor: f, Polarity: p, Text: justificationTemplates[f][p]}
}

func validateValueWeights(w config.ValueWeights) error {
	var sum float64
	for _, f := range valueFactors {
		v := w.For(f)
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("%w: value weight %s must be a non-negative number, got %v", config.ErrInvalidConfig, f, v)
		}
		sum += v
	}
	if sum == 0 {
		return fmt.Errorf("%w: value weights are all zero", config.ErrInvalidConfig)
	}
	return nil
}

// Comparables returns the listings in market that share l's make and model,
// lie within the configured year window and, when enabled, price window.
// l itself is never its own comparable.
func (a *ValueAssessor) Comparables(l *models.Listing, market []*models.Listing) []*models.Listing {
	v := VectorizeListing(l)
	var out []*models.Listing
	for _, c := range market {
		if c == nil || c == l || (l.URL != "" && c.URL == l.URL) {
			continue
		}
		cv := VectorizeListing(c)
		if cv.Make == "" || cv.Make != v.Make || cv.Model != v.Model {
			continue
		}
		if l.Year > 0 && c.Year > 0 && absInt(l.Year-c.Year) > a.cfg.YearWindow {
			continue
		}
		if a.cfg.PriceWindow > 0 && l.Price > 0 && c.Price > 0 &&
			math.Abs(c.Price-l.Price) > a.cfg.PriceWindow*l.Price {
			continue
		}
		out = append(out, c)
	}
	return out
}

// percentile returns the mid-rank position of value among the comparables
// that know theirs. Zero means unknown on either side.
func (a *ValueAssessor) percentile(value float64, comps []*models.Listing, get func(*models.Listing) float64) models.Percentile {
	if value == 0 {
		return models.Percentile{Value: neutralPercentile}
	}

	var less, equal, n int
	for _, c := range comps {
		cv := get(c)
		if cv == 0 {
			continue
		}
		n++
		switch {
		case cv < value:
			less++
		case cv == value:
			equal++
		}
	}
	if n < a.cfg.MinComparables {
		return models.Percentile{Value: neutralPercentile}
	}
	return models.Percentile{
		Value:   round((float64(less)+0.5*float64(equal))/float64(n), 4),
		Defined: true,
	}
}

// ageKey orders listings by age without needing the current date: newer
// years give smaller keys. Unknown years stay 0.
func ageKey(year int) float64 {
	if year == 0 {
		return 0
	}
	return float64(3000 - year)
}

func percentileScore(p models.Percentile) float64 {
	return 5 - 4*p.Value
}

// featureScore compares the listing's equipment with the equipment most
// comparables list, or with the baseline when comparables list none.
// Listings that list nothing score neutral.
func (a *ValueAssessor) featureScore(l *models.Listing, comps []*models.Listing) float64 {
	have := featureSet(l.Features)
	if len(have) == 0 {
		return neutralFactor
	}

	reference := a.typicalEquipment(comps)
	if len(reference) == 0 {
		return neutralFactor
	}

	var covered, extras int
	for f := range have {
		if _, ok := reference[f]; ok {
			covered++
		} else {
			extras++
		}
	}
	coverage := float64(covered) / float64(len(reference))
	return clamp(1+4*coverage+0.25*float64(extras), 1, 5)
}

// typicalEquipment is the set of features listed by at least half of the
// comparables that list any features.
func (a *ValueAssessor) typicalEquipment(comps []*models.Listing) map[string]struct{} {
	counts := make(map[string]int)
	listing := 0
	for _, c := range comps {
		set := featureSet(c.Features)
		if len(set) == 0 {
			continue
		}
		listing++
		for f := range set {
			counts[f]++
		}
	}

	if listing == 0 {
		return featureSet(a.cfg.BaselineEquipment)
	}

	typical := make(map[string]struct{})
	for f, n := range counts {
		if 2*n >= listing {
			typical[f] = struct{}{}
		}
	}
	return typical
}

func featureSet(features []string) map[string]struct{} {
	set := make(map[string]struct{}, len(features))
	for _, f := range features {
		if n := Normalize(f); n != "" {
			set[n] = struct{}{}
		}
	}
	return set
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
