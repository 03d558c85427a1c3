package services

import "math"

// scoreBand maps every score at or above Min to Label. Band tables are
// ordered from the highest Min down and end with a catch-all.
type scoreBand struct {
	Min   float64
	Label string
}

const (
	ReliabilityExcellentMin = 4.5
	ReliabilityGoodMin      = 3.5
	ReliabilityFairMin      = 2.5
	ReliabilityPoorMin      = 1.5

	ValueExcellentMin = 4.5
	ValueGoodMin      = 3.5
	ValueFairMin      = 2.5

	ConditionExcellentMin = 9.0
	ConditionVeryGoodMin  = 7.0
	ConditionGoodMin      = 5.0
	ConditionFairMin      = 3.0
)

// Label used when a score could not be computed.
const LabelUnknown = "Unknown"

var reliabilityBands = []scoreBand{
	{ReliabilityExcellentMin, "Excellent"},
	{ReliabilityGoodMin, "Good"},
	{ReliabilityFairMin, "Fair"},
	{ReliabilityPoorMin, "Poor"},
	{math.Inf(-1), "Very Poor"},
}

var valueBands = []scoreBand{
	{ValueExcellentMin, "Excellent"},
	{ValueGoodMin, "Good"},
	{ValueFairMin, "Fair"},
	{math.Inf(-1), "Poor"},
}

var conditionBands = []scoreBand{
	{ConditionExcellentMin, "Excellent"},
	{ConditionVeryGoodMin, "Very Good"},
	{ConditionGoodMin, "Good"},
	{ConditionFairMin, "Fair"},
	{math.Inf(-1), "Poor"},
}

func bandLabel(bands []scoreBand, score float64) string {
	for _, b := range bands {
		if score >= b.Min {
			return b.Label
		}
	}
	return LabelUnknown
}

// ReliabilityLabel returns the category of a 1-5 reliability score.
func ReliabilityLabel(score float64) string { return bandLabel(reliabilityBands, score) }

// ValueCategory returns the category of a 1-5 value score.
func ValueCategory(score float64) string { return bandLabel(valueBands, score) }

// ConditionLabel returns the category of a 0-10 condition rating.
func ConditionLabel(rating float64) string { return bandLabel(conditionBands, rating) }

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
