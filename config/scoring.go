package config

import (
	"errors"
	"fmt"
	"math"

	"github.com/spf13/viper"

	"car-scout/models"
)

// ErrInvalidConfig is wrapped by every validation failure. It indicates a
// caller defect and is the only scoring failure returned as an error.
var ErrInvalidConfig = errors.New("invalid configuration")

// FieldWeights are the per-field weights of the similarity matcher.
type FieldWeights struct {
	Model        float64 `mapstructure:"model" yaml:"model"`
	Year         float64 `mapstructure:"year" yaml:"year"`
	Trim         float64 `mapstructure:"trim" yaml:"trim"`
	Engine       float64 `mapstructure:"engine" yaml:"engine"`
	Transmission float64 `mapstructure:"transmission" yaml:"transmission"`
	Drive        float64 `mapstructure:"drive" yaml:"drive"`
}

// MatchConfig controls listing-to-reference matching.
type MatchConfig struct {
	MinSimilarity float64      `mapstructure:"min_similarity" yaml:"min_similarity"`
	Weights       FieldWeights `mapstructure:"weights" yaml:"weights"`
}

// ComponentWeights are the reliability weights of the six subsystems.
type ComponentWeights struct {
	Engine       float64 `mapstructure:"engine" yaml:"engine"`
	Transmission float64 `mapstructure:"transmission" yaml:"transmission"`
	Electrical   float64 `mapstructure:"electrical" yaml:"electrical"`
	Suspension   float64 `mapstructure:"suspension" yaml:"suspension"`
	Body         float64 `mapstructure:"body" yaml:"body"`
	Interior     float64 `mapstructure:"interior" yaml:"interior"`
}

// For returns the weight of a component, 0 for unknown components.
func (w ComponentWeights) For(c models.Component) float64 {
	switch c {
	case models.ComponentEngine:
		return w.Engine
	case models.ComponentTransmission:
		return w.Transmission
	case models.ComponentElectrical:
		return w.Electrical
	case models.ComponentSuspension:
		return w.Suspension
	case models.ComponentBody:
		return w.Body
	case models.ComponentInterior:
		return w.Interior
	default:
		return 0
	}
}

// ReliabilityConfig controls the reliability scorer. The age and mileage
// factors fall linearly from 1 and never drop below their floor.
type ReliabilityConfig struct {
	Weights            ComponentWeights `mapstructure:"weights" yaml:"weights"`
	AgeDecayPerYear    float64          `mapstructure:"age_decay_per_year" yaml:"age_decay_per_year"`
	AgeFloor           float64          `mapstructure:"age_floor" yaml:"age_floor"`
	MileageDecayPer10k float64          `mapstructure:"mileage_decay_per_10k" yaml:"mileage_decay_per_10k"`
	MileageFloor       float64          `mapstructure:"mileage_floor" yaml:"mileage_floor"`
	UseDescription     bool             `mapstructure:"use_description" yaml:"use_description"`
}

// ValueWeights weight the five value factors. A zero weight drops the factor.
type ValueWeights struct {
	Price       float64 `mapstructure:"price" yaml:"price"`
	Reliability float64 `mapstructure:"reliability" yaml:"reliability"`
	Mileage     float64 `mapstructure:"mileage" yaml:"mileage"`
	Age         float64 `mapstructure:"age" yaml:"age"`
	Features    float64 `mapstructure:"features" yaml:"features"`
}

// For returns the weight of a value factor.
func (w ValueWeights) For(f models.ValueFactor) float64 {
	switch f {
	case models.FactorPrice:
		return w.Price
	case models.FactorReliability:
		return w.Reliability
	case models.FactorMileage:
		return w.Mileage
	case models.FactorAge:
		return w.Age
	case models.FactorFeatures:
		return w.Features
	default:
		return 0
	}
}

// ValueConfig controls the value assessor. Comparables must share make and
// model and lie within YearWindow years; PriceWindow (a fraction, 0 = off)
// additionally bounds their price relative to the listing.
type ValueConfig struct {
	Weights           ValueWeights `mapstructure:"weights" yaml:"weights"`
	MinComparables    int          `mapstructure:"min_comparables" yaml:"min_comparables"`
	YearWindow        int          `mapstructure:"year_window" yaml:"year_window"`
	PriceWindow       float64      `mapstructure:"price_window" yaml:"price_window"`
	BaselineEquipment []string     `mapstructure:"baseline_equipment" yaml:"baseline_equipment"`
}

// RankConfig holds the base ranking weights before user priorities apply.
type RankConfig struct {
	Weights models.FactorSet `mapstructure:"weights" yaml:"weights"`
}

// Scoring groups the configuration of every core component.
type Scoring struct {
	Match       MatchConfig       `mapstructure:"match" yaml:"match"`
	Reliability ReliabilityConfig `mapstructure:"reliability" yaml:"reliability"`
	Value       ValueConfig       `mapstructure:"value" yaml:"value"`
	Rank        RankConfig        `mapstructure:"rank" yaml:"rank"`
}

// DefaultScoring returns the documented defaults.
func DefaultScoring() Scoring {
	return Scoring{
		Match: MatchConfig{
			MinSimilarity: 0.8,
			Weights: FieldWeights{
				Model:        0.50,
				Year:         0.30,
				Trim:         0.10,
				Engine:       0.05,
				Transmission: 0.025,
				Drive:        0.025,
			},
		},
		Reliability: ReliabilityConfig{
			Weights: ComponentWeights{
				Engine:       0.30,
				Transmission: 0.25,
				Electrical:   0.15,
				Suspension:   0.15,
				Body:         0.10,
				Interior:     0.05,
			},
			AgeDecayPerYear:    0.02,
			AgeFloor:           0.7,
			MileageDecayPer10k: 0.025,
			MileageFloor:       0.7,
			UseDescription:     true,
		},
		Value: ValueConfig{
			Weights: ValueWeights{
				Price:       0.2,
				Reliability: 0.2,
				Mileage:     0.2,
				Age:         0.2,
				Features:    0.2,
			},
			MinComparables: 3,
			YearWindow:     2,
			BaselineEquipment: []string{
				"air conditioning",
				"bluetooth",
				"cruise control",
				"parking sensors",
				"alloy wheels",
			},
		},
		Rank: RankConfig{
			Weights: models.FactorSet{
				Reliability: 0.35,
				Value:       0.35,
				Recency:     0.15,
				Mileage:     0.15,
			},
		},
	}
}

// LoadScoring overlays the "scoring" section of v onto the defaults and
// returns the validated, normalized result. A nil viper yields the defaults.
func LoadScoring(v *viper.Viper) (Scoring, error) {
	s := DefaultScoring()
	if v != nil && v.IsSet("scoring") {
		if err := v.UnmarshalKey("scoring", &s); err != nil {
			return Scoring{}, fmt.Errorf("%w: decode scoring: %v", ErrInvalidConfig, err)
		}
	}
	return s.Normalized()
}

// Validate checks every numeric field without modifying the receiver.
func (s Scoring) Validate() error {
	m := s.Match
	if err := unitInterval("match.min_similarity", m.MinSimilarity); err != nil {
		return err
	}
	if err := weightSet("match.weights", map[string]float64{
		"model": m.Weights.Model, "year": m.Weights.Year, "trim": m.Weights.Trim,
		"engine": m.Weights.Engine, "transmission": m.Weights.Transmission, "drive": m.Weights.Drive,
	}); err != nil {
		return err
	}

	r := s.Reliability
	if err := weightSet("reliability.weights", map[string]float64{
		"engine": r.Weights.Engine, "transmission": r.Weights.Transmission, "electrical": r.Weights.Electrical,
		"suspension": r.Weights.Suspension, "body": r.Weights.Body, "interior": r.Weights.Interior,
	}); err != nil {
		return err
	}
	for name, v := range map[string]float64{
		"reliability.age_decay_per_year":    r.AgeDecayPerYear,
		"reliability.mileage_decay_per_10k": r.MileageDecayPer10k,
	} {
		if err := nonNegative(name, v); err != nil {
			return err
		}
	}
	if err := unitInterval("reliability.age_floor", r.AgeFloor); err != nil {
		return err
	}
	if err := unitInterval("reliability.mileage_floor", r.MileageFloor); err != nil {
		return err
	}

	v := s.Value
	if err := weightSet("value.weights", map[string]float64{
		"price": v.Weights.Price, "reliability": v.Weights.Reliability, "mileage": v.Weights.Mileage,
		"age": v.Weights.Age, "features": v.Weights.Features,
	}); err != nil {
		return err
	}
	if v.MinComparables < 1 {
		return fmt.Errorf("%w: value.min_comparables must be at least 1, got %d", ErrInvalidConfig, v.MinComparables)
	}
	if v.YearWindow < 0 {
		return fmt.Errorf("%w: value.year_window must be non-negative, got %d", ErrInvalidConfig, v.YearWindow)
	}
	if err := nonNegative("value.price_window", v.PriceWindow); err != nil {
		return err
	}

	return ValidateRankWeights(s.Rank.Weights, "rank.weights")
}

// Normalized validates s and returns a copy whose weight sets each sum to 1.
func (s Scoring) Normalized() (Scoring, error) {
	if err := s.Validate(); err != nil {
		return Scoring{}, err
	}

	fw := &s.Match.Weights
	normalize(&fw.Model, &fw.Year, &fw.Trim, &fw.Engine, &fw.Transmission, &fw.Drive)

	cw := &s.Reliability.Weights
	normalize(&cw.Engine, &cw.Transmission, &cw.Electrical, &cw.Suspension, &cw.Body, &cw.Interior)

	vw := &s.Value.Weights
	normalize(&vw.Price, &vw.Reliability, &vw.Mileage, &vw.Age, &vw.Features)

	rw := &s.Rank.Weights
	normalize(&rw.Reliability, &rw.Value, &rw.Recency, &rw.Mileage)

	s.Value.BaselineEquipment = append([]string(nil), s.Value.BaselineEquipment...)
	return s, nil
}

// ValidateRankWeights checks a ranking factor set for negative or non-finite
// values and for an all-zero set.
func ValidateRankWeights(w models.FactorSet, name string) error {
	return weightSet(name, map[string]float64{
		"reliability": w.Reliability, "value": w.Value, "recency": w.Recency, "mileage": w.Mileage,
	})
}

// EffectiveRankWeights boosts each base weight by (1 + priority) and
// normalizes the result to sum to 1. Priorities must be non-negative.
func EffectiveRankWeights(base, priorities models.FactorSet) (models.FactorSet, error) {
	if err := ValidateRankWeights(base, "rank.weights"); err != nil {
		return models.FactorSet{}, err
	}
	for name, p := range map[string]float64{
		"reliability": priorities.Reliability, "value": priorities.Value,
		"recency": priorities.Recency, "mileage": priorities.Mileage,
	} {
		if err := nonNegative("priorities."+name, p); err != nil {
			return models.FactorSet{}, err
		}
	}

	w := models.FactorSet{
		Reliability: base.Reliability * (1 + priorities.Reliability),
		Value:       base.Value * (1 + priorities.Value),
		Recency:     base.Recency * (1 + priorities.Recency),
		Mileage:     base.Mileage * (1 + priorities.Mileage),
	}
	if w.Sum() <= 0 || math.IsInf(w.Sum(), 0) {
		return models.FactorSet{}, fmt.Errorf("%w: rank weights cannot be normalized", ErrInvalidConfig)
	}
	normalize(&w.Reliability, &w.Value, &w.Recency, &w.Mileage)
	return w, nil
}

func nonNegative(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return fmt.Errorf("%w: %s must be a non-negative number, got %v", ErrInvalidConfig, name, v)
	}
	return nil
}

func unitInterval(name string, v float64) error {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return fmt.Errorf("%w: %s must be within [0,1], got %v", ErrInvalidConfig, name, v)
	}
	return nil
}

func weightSet(name string, weights map[string]float64) error {
	var total float64
	for field, w := range weights {
		if err := nonNegative(name+"."+field, w); err != nil {
			return err
		}
		total += w
	}
	if total == 0 {
		return fmt.Errorf("%w: %s are all zero", ErrInvalidConfig, name)
	}
	return nil
}

func normalize(vals ...*float64) {
	var total float64
	for _, v := range vals {
		total += *v
	}
	if total == 0 {
		return
	}
	for _, v := range vals {
		*v /= total
	}
}
