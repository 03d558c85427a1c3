package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"car-scout/models"
	"car-scout/utils"
)

func TestMileageAnalyze(t *testing.T) {
	a := NewMileageAnalyzer("UK", utils.NewNopLogger())
	m := a.Analyze(yarisListing(), testNow)

	assert.True(t, m.Known)
	assert.Equal(t, 14, m.Age)
	assert.Equal(t, 103600, m.ExpectedMileage)
	assert.Equal(t, -40.2, m.DeviationPercent)
	assert.Equal(t, 4429.0, m.AnnualMileage)
	assert.Equal(t, 4.8, m.Rating)
	assert.Equal(t, 188000, m.RemainingLifespan)
	assert.Contains(t, m.Summary, "significantly below average")
	assert.Contains(t, m.Summary, "excellent expected remaining life")
}

func TestMileageAnalyzeUnknown(t *testing.T) {
	a := NewMileageAnalyzer("UK", utils.NewNopLogger())

	for _, l := range []*models.Listing{nil, {Make: "Ford", Year: 2015}, {Make: "Ford", Mileage: 40000}} {
		m := a.Analyze(l, testNow)
		assert.False(t, m.Known)
		assert.NotEmpty(t, m.Summary)
	}
}

func TestMileageAnalyzeDefaults(t *testing.T) {
	a := NewMileageAnalyzer("FR", utils.NewNopLogger())
	m := a.Analyze(&models.Listing{Make: "Alpine", Year: 2016, Mileage: 300000}, testNow)

	assert.Equal(t, 100000, m.ExpectedMileage)
	assert.Equal(t, 0, m.RemainingLifespan, "lifespan never goes negative")
	assert.Equal(t, 1.0, m.Rating)
}

func TestMileageRating(t *testing.T) {
	tests := []struct {
		actual, expected int
		want             float64
	}{
		{10000, 0, 3},
		{20000, 50000, 5},
		{50000, 50000, 4},
		{75000, 50000, 3},
		{100000, 50000, 2},
		{500000, 50000, 1},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, mileageRating(tt.actual, tt.expected), 1e-9, "%d/%d", tt.actual, tt.expected)
	}
}
