package services

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"car-scout/config"
	"car-scout/models"
	"car-scout/utils"
)

func newTestAssessor() *ValueAssessor {
	return NewValueAssessor(config.DefaultScoring().Value, utils.NewNopLogger())
}

func defaultValueWeights() config.ValueWeights {
	return config.DefaultScoring().Value.Weights
}

func scored(overall float64) models.ReliabilityAssessment {
	return models.ReliabilityAssessment{Status: models.ReliabilityScored, Overall: overall}
}

// yarisMarket returns three comparable Yaris listings and one unrelated car.
func yarisMarket() []*models.Listing {
	return []*models.Listing{
		{Seq: 1, Make: "Toyota", Model: "Yaris", Year: 2011, Price: 3000, Mileage: 70000, URL: "u1", Features: []string{"Air Conditioning", "Bluetooth"}},
		{Seq: 2, Make: "Toyota", Model: "Yaris 1.0", Year: 2013, Price: 4000, Mileage: 50000, URL: "u2", Features: []string{"air conditioning", "bluetooth", "alloy wheels"}},
		{Seq: 3, Make: "toyota", Model: "yaris", Year: 2012, Price: 5000, Mileage: 90000, URL: "u3"},
		{Seq: 4, Make: "Ford", Model: "Fiesta", Year: 2012, Price: 1000, Mileage: 10000, URL: "u4"},
	}
}

func TestValueWithoutComparablesIsNeutral(t *testing.T) {
	a := newTestAssessor()
	l := yarisListing()

	va, err := a.Assess(l, models.ReliabilityAssessment{Status: models.ReliabilityInsufficientData}, nil, defaultValueWeights())
	require.NoError(t, err)

	for _, p := range []models.Percentile{va.PricePercentile, va.MileagePercentile, va.AgePercentile} {
		assert.False(t, p.Defined)
		assert.Equal(t, 0.5, p.Value)
	}
	assert.Equal(t, 3.0, va.Score)
	assert.Equal(t, "Fair", va.Category)
	assert.Empty(t, va.Justifications)
	assert.Zero(t, va.Comparables)
}

func TestValueFeaturesScoredWithoutComparables(t *testing.T) {
	a := newTestAssessor()
	l := yarisListing()
	l.Features = []string{"Air Conditioning", "Bluetooth"}

	va, err := a.Assess(l, models.ReliabilityAssessment{}, nil, defaultValueWeights())
	require.NoError(t, err)

	var features models.FactorScore
	for _, f := range va.Factors {
		if f.Factor == models.FactorFeatures {
			features = f
		}
	}
	assert.Equal(t, 2.6, features.Score, "two of five baseline items")
	assert.Equal(t, 2.92, va.Score)
	assert.Equal(t, "Fair", va.Category)
}

func TestValueComparables(t *testing.T) {
	a := newTestAssessor()
	l := yarisListing()
	market := append(yarisMarket(),
		l,
		&models.Listing{Make: "Toyota", Model: "Yaris", Year: 2020, Price: 9000, URL: "u5"},
		&models.Listing{Make: "Toyota", Model: "Yaris", Year: 2012, Price: 2450, URL: l.URL},
	)

	comps := a.Comparables(l, market)
	require.Len(t, comps, 3)
	for _, c := range comps {
		assert.NotEqual(t, l.URL, c.URL)
		assert.Equal(t, "yaris", VectorizeListing(c).Model)
	}
}

func TestValuePercentilesAndJustifications(t *testing.T) {
	a := newTestAssessor()
	l := yarisListing()

	va, err := a.Assess(l, scored(4.5), yarisMarket(), defaultValueWeights())
	require.NoError(t, err)

	require.True(t, va.PricePercentile.Defined)
	assert.Equal(t, 0.0, va.PricePercentile.Value)
	assert.InDelta(t, 1.0/3, va.MileagePercentile.Value, 1e-4)
	assert.Equal(t, 0.5, va.AgePercentile.Value)
	assert.Equal(t, 3, va.Comparables)

	assert.Contains(t, va.Justifications, models.Justification{
		Factor:   models.FactorPrice,
		Polarity: models.PolarityPositive,
		Text:     "Priced below most comparable listings",
	})
	assert.Contains(t, va.Justifications, models.Justification{
		Factor:   models.FactorReliability,
		Polarity: models.PolarityPositive,
		Text:     "Strong reliability record for this model",
	})
}

func TestValueMonotonicInPrice(t *testing.T) {
	a := newTestAssessor()
	market := yarisMarket()

	prev := -1.0
	for _, price := range []float64{6000, 5000, 4500, 4000, 3500, 3000, 2000} {
		l := yarisListing()
		l.Price = price
		va, err := a.Assess(l, scored(3.5), market, defaultValueWeights())
		require.NoError(t, err)
		assert.GreaterOrEqual(t, va.Score, prev, "lowering the price to %.0f must not lower the score", price)
		prev = va.Score
	}
}

func TestValueMonotonicInReliability(t *testing.T) {
	a := newTestAssessor()
	market := yarisMarket()

	prev := -1.0
	for _, rel := range []float64{1, 1.5, 2.5, 3.2, 4, 4.8, 5} {
		va, err := a.Assess(yarisListing(), scored(rel), market, defaultValueWeights())
		require.NoError(t, err)
		assert.GreaterOrEqual(t, va.Score, prev, fmt.Sprintf("reliability %.1f", rel))
		prev = va.Score
	}
}

func TestValueWeights(t *testing.T) {
	a := newTestAssessor()

	_, err := a.Assess(yarisListing(), scored(3), nil, config.ValueWeights{Price: -1, Reliability: 1})
	assert.ErrorIs(t, err, config.ErrInvalidConfig)

	_, err = a.Assess(yarisListing(), scored(3), nil, config.ValueWeights{})
	assert.ErrorIs(t, err, config.ErrInvalidConfig)

	// Only reliability carries weight: the score is the reliability score.
	va, err := a.Assess(yarisListing(), scored(4.6), yarisMarket(), config.ValueWeights{Reliability: 7})
	require.NoError(t, err)
	assert.Equal(t, 4.6, va.Score)
	assert.Equal(t, "Excellent", va.Category)
	require.Len(t, va.Justifications, 1)
	assert.Equal(t, models.FactorReliability, va.Justifications[0].Factor)
}

func TestValueCategoryBands(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{5, "Excellent"},
		{ValueExcellentMin, "Excellent"},
		{4.49, "Good"},
		{ValueGoodMin, "Good"},
		{3.49, "Fair"},
		{ValueFairMin, "Fair"},
		{2.49, "Poor"},
		{1, "Poor"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ValueCategory(tt.score), "score %.2f", tt.score)
	}
}
