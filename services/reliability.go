package services

import (
	"math"
	"sort"
	"time"

	"car-scout/config"
	"car-scout/models"
	"car-scout/utils"
)

// ReliabilityScorer aggregates per-subsystem reliability observations from
// several sources into one assessment per listing.
type ReliabilityScorer struct {
	cfg    config.ReliabilityConfig
	logger *utils.Logger
}

// NewReliabilityScorer creates a scorer. cfg must already be normalized.
func NewReliabilityScorer(cfg config.ReliabilityConfig, logger *utils.Logger) *ReliabilityScorer {
	return &ReliabilityScorer{cfg: cfg, logger: logger}
}

type observation struct {
	sum float64
	n   int
}

func (o observation) mean() float64 { return o.sum / float64(o.n) }

// Score assesses l from the reference records matched for it, one per
// source. A source without usable entries is skipped. When no source
// contributes a single component score the assessment is marked
// insufficient data; known issues are still reported.
//
// Components nobody reported take the weighted mean of the reported ones,
// which spreads their weight across the available subsystems. The age and
// mileage factors are applied afterwards, uniformly to every component.
func (s *ReliabilityScorer) Score(l *models.Listing, sources []models.ReferenceRecord, now time.Time) models.ReliabilityAssessment {
	obs := make(map[models.Component]observation)
	var contributing []string

	addSource := func(name string, entries []models.ReliabilityEntry) {
		perSource := make(map[models.Component]observation)
		for _, e := range entries {
			c, ok := ComponentFor(e.Component)
			if !ok || math.IsNaN(e.Score) || e.Score <= 0 {
				continue
			}
			o := perSource[c]
			o.sum += clamp(e.Score, 1, 5)
			o.n++
			perSource[c] = o
		}
		if len(perSource) == 0 {
			s.logger.Debug("[reliability] Source %q had no usable component scores", name)
			return
		}
		for c, o := range perSource {
			agg := obs[c]
			agg.sum += o.mean()
			agg.n++
			obs[c] = agg
		}
		contributing = append(contributing, name)
	}

	for _, ref := range sources {
		addSource(ref.Source, ref.Reliability)
	}
	if s.cfg.UseDescription && l != nil {
		addSource(DescriptionSource, DescribeReliability(l.Description))
	}

	ageFactor, mileageFactor := s.factors(l, now)
	a := models.ReliabilityAssessment{
		Issues:        relevantIssues(l, sources),
		Sources:       contributing,
		Confidence:    confidence(len(obs), len(contributing)),
		AgeFactor:     round(ageFactor, 3),
		MileageFactor: round(mileageFactor, 3),
	}

	if len(obs) == 0 {
		a.Status = models.ReliabilityInsufficientData
		a.Label = LabelUnknown
		return a
	}

	var observedWeight, observedTotal, plainTotal float64
	for c, o := range obs {
		w := s.cfg.Weights.For(c)
		observedWeight += w
		observedTotal += w * o.mean()
		plainTotal += o.mean()
	}
	fallback := plainTotal / float64(len(obs))
	if observedWeight > 0 {
		fallback = observedTotal / observedWeight
	}

	factor := ageFactor * mileageFactor
	var overall float64
	a.Subsystems = make([]models.SubsystemScore, 0, len(models.Components))
	for _, c := range models.Components {
		o, observed := obs[c]
		raw := fallback
		if observed {
			raw = o.mean()
		}
		adjusted := clamp(raw*factor, 1, 5)
		overall += s.cfg.Weights.For(c) * adjusted

		a.Subsystems = append(a.Subsystems, models.SubsystemScore{
			Component:    c,
			Score:        round(adjusted, 2),
			Label:        ReliabilityLabel(adjusted),
			Observations: o.n,
			Backfilled:   !observed,
		})
	}

	a.Status = models.ReliabilityScored
	a.Overall = round(clamp(overall, 1, 5), 1)
	a.Label = ReliabilityLabel(a.Overall)
	return a
}

// factors returns the age and mileage multipliers. Unknown year or mileage
// leaves the respective factor at 1.
func (s *ReliabilityScorer) factors(l *models.Listing, now time.Time) (float64, float64) {
	age, miles := 1.0, 1.0
	if l == nil {
		return age, miles
	}
	if l.Year > 0 {
		years := math.Max(0, float64(now.Year()-l.Year))
		age = math.Max(s.cfg.AgeFloor, 1-s.cfg.AgeDecayPerYear*years)
	}
	if l.Mileage > 0 {
		miles = math.Max(s.cfg.MileageFloor, 1-s.cfg.MileageDecayPer10k*float64(l.Mileage)/10000)
	}
	return age, miles
}

func confidence(components, sources int) models.ConfidenceLevel {
	switch {
	case components >= 4 && sources >= 2:
		return models.ConfidenceHigh
	case components >= 2:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
	}
}

// relevantIssues merges the known issues of all sources. Issues with the
// same title and component are one issue: the highest severity and the
// earliest onset win. Issues whose onset lies beyond the listing's mileage
// are dropped unless the mileage is unknown.
func relevantIssues(l *models.Listing, sources []models.ReferenceRecord) []models.RankedIssue {
	type entry struct {
		issue   models.RankedIssue
		sources map[string]struct{}
	}
	merged := make(map[string]*entry)
	var order []string

	for _, ref := range sources {
		for _, is := range ref.Issues {
			title := Normalize(is.Title)
			if title == "" {
				continue
			}
			key := title + "|" + Normalize(is.Component)
			e, ok := merged[key]
			if !ok {
				e = &entry{
					issue: models.RankedIssue{
						Title:        is.Title,
						Component:    is.Component,
						Severity:     is.Severity,
						OnsetMileage: is.OnsetMileage,
					},
					sources: make(map[string]struct{}),
				}
				merged[key] = e
				order = append(order, key)
			} else {
				if is.Severity.Rank() > e.issue.Severity.Rank() {
					e.issue.Severity = is.Severity
				}
				if is.OnsetMileage < e.issue.OnsetMileage {
					e.issue.OnsetMileage = is.OnsetMileage
				}
			}
			if ref.Source != "" {
				e.sources[ref.Source] = struct{}{}
			}
		}
	}

	issues := make([]models.RankedIssue, 0, len(order))
	for _, key := range order {
		e := merged[key]
		if l != nil && l.Mileage > 0 && e.issue.OnsetMileage > l.Mileage {
			continue
		}
		e.issue.Sources = make([]string, 0, len(e.sources))
		for src := range e.sources {
			e.issue.Sources = append(e.issue.Sources, src)
		}
		sort.Strings(e.issue.Sources)
		issues = append(issues, e.issue)
	}

	sort.SliceStable(issues, func(i, j int) bool {
		a, b := issues[i], issues[j]
		if a.Severity.Rank() != b.Severity.Rank() {
			return a.Severity.Rank() > b.Severity.Rank()
		}
		if a.OnsetMileage != b.OnsetMileage {
			return a.OnsetMileage < b.OnsetMileage
		}
		return a.Title < b.Title
	})
	return issues
}
