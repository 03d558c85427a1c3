package services

import (
	"sort"

	"car-scout/config"
	"car-scout/models"
	"car-scout/utils"
)

// Ranker orders annotated listings by a weighted, set-relative total score.
type Ranker struct {
	base   models.FactorSet
	logger *utils.Logger
}

// NewRanker creates a ranker using cfg's weights as the base weights that
// user priorities boost.
func NewRanker(cfg config.RankConfig, logger *utils.Logger) *Ranker {
	return &Ranker{base: cfg.Weights, logger: logger}
}

// Rank scores and orders items. Year and mileage are min-max normalized
// over items, so the same listing can score differently in another set.
// Equal totals keep discovery order. An empty input yields an empty
// result. Invalid priorities return an error wrapping
// config.ErrInvalidConfig.
func (r *Ranker) Rank(items []models.AnnotatedListing, priorities models.FactorSet) ([]models.RankedResult, error) {
	weights, err := config.EffectiveRankWeights(r.base, priorities)
	if err != nil {
		return nil, err
	}

	results := make([]models.RankedResult, len(items))
	if len(items) == 0 {
		return results, nil
	}

	years := newSpan()
	miles := newSpan()
	for _, it := range items {
		if it.Listing == nil {
			continue
		}
		years.add(it.Listing.Year)
		miles.add(it.Listing.Mileage)
	}

	for i, it := range items {
		c := models.FactorSet{
			Reliability: neutralFactor / 5,
			Value:       neutralFactor / 5,
		}
		if it.Reliability.Scored() {
			c.Reliability = it.Reliability.Overall / 5
		}
		if it.Value.Score > 0 {
			c.Value = it.Value.Score / 5
		}
		if it.Listing != nil {
			c.Recency = years.scale(it.Listing.Year, false)
			c.Mileage = miles.scale(it.Listing.Mileage, true)
		}

		total := weights.Reliability*c.Reliability +
			weights.Value*c.Value +
			weights.Recency*c.Recency +
			weights.Mileage*c.Mileage

		results[i] = models.RankedResult{
			AnnotatedListing: it,
			TotalScore:       round(total, 4),
			Components:       roundSet(c),
			Weights:          weights,
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].TotalScore != results[j].TotalScore {
			return results[i].TotalScore > results[j].TotalScore
		}
		return seq(results[i].Listing) < seq(results[j].Listing)
	})

	n := float64(len(results))
	for i := range results {
		results[i].Rank = i + 1
		results[i].Percentile = round((n-float64(i+1)+1)/n*100, 2)
	}

	r.logger.Debug("[ranker] Ranked %d listings (weights rel=%.3f val=%.3f rec=%.3f mil=%.3f)",
		len(results), weights.Reliability, weights.Value, weights.Recency, weights.Mileage)
	return results, nil
}

func seq(l *models.Listing) int {
	if l == nil {
		return int(^uint(0) >> 1)
	}
	return l.Seq
}

func roundSet(f models.FactorSet) models.FactorSet {
	return models.FactorSet{
		Reliability: round(f.Reliability, 4),
		Value:       round(f.Value, 4),
		Recency:     round(f.Recency, 4),
		Mileage:     round(f.Mileage, 4),
	}
}

// span tracks the range of the known (non-zero) values of a field.
type span struct {
	min, max int
	seen     bool
}

func newSpan() *span { return &span{} }

func (s *span) add(v int) {
	if v <= 0 {
		return
	}
	if !s.seen {
		s.min, s.max, s.seen = v, v, true
		return
	}
	if v < s.min {
		s.min = v
	}
	if v > s.max {
		s.max = v
	}
}

// scale maps v into [0,1] across the span, inverted when lower is better.
// Unknown values score 0; a degenerate span scores every known value 1.
func (s *span) scale(v int, lowerIsBetter bool) float64 {
	if v <= 0 || !s.seen {
		return 0
	}
	if s.max == s.min {
		return 1
	}
	x := float64(v-s.min) / float64(s.max-s.min)
	if lowerIsBetter {
		return 1 - x
	}
	return x
}
