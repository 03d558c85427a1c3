package config

import (
	"bytes"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"car-scout/models"
)

func TestDefaultScoringIsValid(t *testing.T) {
	s := DefaultScoring()
	require.NoError(t, s.Validate())

	n, err := s.Normalized()
	require.NoError(t, err)
	assert.InDelta(t, 0.8, n.Match.MinSimilarity, 1e-12)
	assert.InDelta(t, 1.0, n.Rank.Weights.Sum(), 1e-9)
	assert.InDelta(t, 0.30, n.Reliability.Weights.Engine, 1e-9)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Scoring)
	}{
		{"negative field weight", func(s *Scoring) { s.Match.Weights.Trim = -0.1 }},
		{"threshold above one", func(s *Scoring) { s.Match.MinSimilarity = 1.2 }},
		{"all-zero component weights", func(s *Scoring) { s.Reliability.Weights = ComponentWeights{} }},
		{"all-zero value weights", func(s *Scoring) { s.Value.Weights = ValueWeights{} }},
		{"negative decay", func(s *Scoring) { s.Reliability.AgeDecayPerYear = -1 }},
		{"floor above one", func(s *Scoring) { s.Reliability.MileageFloor = 2 }},
		{"no comparables", func(s *Scoring) { s.Value.MinComparables = 0 }},
		{"negative year window", func(s *Scoring) { s.Value.YearWindow = -1 }},
		{"all-zero rank weights", func(s *Scoring) { s.Rank.Weights = models.FactorSet{} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultScoring()
			tt.mutate(&s)
			assert.ErrorIs(t, s.Validate(), ErrInvalidConfig)
			_, err := s.Normalized()
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestNormalizedSumsToOne(t *testing.T) {
	s := DefaultScoring()
	s.Value.Weights = ValueWeights{Price: 2, Reliability: 2, Features: 4}

	n, err := s.Normalized()
	require.NoError(t, err)
	assert.InDelta(t, 0.25, n.Value.Weights.Price, 1e-9)
	assert.InDelta(t, 0.5, n.Value.Weights.Features, 1e-9)
	assert.Zero(t, n.Value.Weights.Age)
	assert.Equal(t, 2.0, s.Value.Weights.Price, "receiver is not modified")
}

func TestEffectiveRankWeights(t *testing.T) {
	base := DefaultScoring().Rank.Weights

	w, err := EffectiveRankWeights(base, models.FactorSet{})
	require.NoError(t, err)
	assert.InDelta(t, 0.35, w.Reliability, 1e-9)

	w, err = EffectiveRankWeights(base, models.FactorSet{Reliability: 1})
	require.NoError(t, err)
	assert.InDelta(t, 0.7/1.35, w.Reliability, 1e-9)
	assert.InDelta(t, 1.0, w.Sum(), 1e-9)
	assert.Greater(t, w.Reliability, base.Reliability)

	_, err = EffectiveRankWeights(base, models.FactorSet{Value: -1})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = EffectiveRankWeights(models.FactorSet{}, models.FactorSet{})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoadScoringFromViper(t *testing.T) {
	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewBufferString(`
scoring:
  match:
    min_similarity: 0.75
  value:
    min_comparables: 5
    weights:
      price: 1
      reliability: 1
      mileage: 0
      age: 0
      features: 0
  rank:
    weights:
      reliability: 2
      value: 2
      recency: 0
      mileage: 0
`)))

	s, err := LoadScoring(v)
	require.NoError(t, err)
	assert.Equal(t, 0.75, s.Match.MinSimilarity)
	assert.InDelta(t, 0.5, s.Match.Weights.Model, 1e-9, "unset keys keep their defaults")
	assert.Equal(t, 5, s.Value.MinComparables)
	assert.InDelta(t, 0.5, s.Value.Weights.Price, 1e-9)
	assert.InDelta(t, 0.5, s.Rank.Weights.Value, 1e-9)
	assert.Zero(t, s.Rank.Weights.Mileage)
}

func TestLoadScoringDefaultsAndErrors(t *testing.T) {
	s, err := LoadScoring(nil)
	require.NoError(t, err)
	assert.Equal(t, 0.8, s.Match.MinSimilarity)

	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewBufferString("scoring:\n  match:\n    min_similarity: -1\n")))
	_, err = LoadScoring(v)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
