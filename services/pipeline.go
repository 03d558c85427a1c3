package services

import (
	"time"

	"github.com/google/uuid"

	"car-scout/config"
	"car-scout/models"
	"car-scout/utils"
)

// Pipeline runs one ranking pass: match, score reliability and value, rank.
// It never modifies the listings or the catalog it is given.
type Pipeline struct {
	scoring     config.Scoring
	cleaner     *Cleaner
	reliability *ReliabilityScorer
	value       *ValueAssessor
	mileage     *MileageAnalyzer
	condition   *ConditionAssessor
	ranker      *Ranker
	logger      *utils.Logger
	now         func() time.Time
	country     string
}

// PipelineOption customizes a Pipeline.
type PipelineOption func(*Pipeline)

// WithClock sets the clock used for vehicle ages and report timestamps.
func WithClock(now func() time.Time) PipelineOption {
	return func(p *Pipeline) { p.now = now }
}

// WithCountry selects the annual mileage baseline ("UK" by default).
func WithCountry(country string) PipelineOption {
	return func(p *Pipeline) { p.country = country }
}

// NewPipeline validates and normalizes scoring once and wires the core
// services. Invalid scoring returns an error wrapping config.ErrInvalidConfig.
func NewPipeline(scoring config.Scoring, logger *utils.Logger, opts ...PipelineOption) (*Pipeline, error) {
	normalized, err := scoring.Normalized()
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		scoring: normalized,
		logger:  logger,
		now:     time.Now,
		country: "UK",
	}
	for _, opt := range opts {
		opt(p)
	}

	p.cleaner = NewCleaner(logger)
	p.cleaner.now = p.now
	p.reliability = NewReliabilityScorer(normalized.Reliability, logger)
	p.value = NewValueAssessor(normalized.Value, logger)
	p.mileage = NewMileageAnalyzer(p.country, logger)
	p.condition = NewConditionAssessor(logger)
	p.ranker = NewRanker(normalized.Rank, logger)
	return p, nil
}

// Scoring returns the normalized configuration in use.
func (p *Pipeline) Scoring() config.Scoring {
	return p.scoring
}

// RunRaw cleans raw scraped records and ranks the result. Records dropped
// by the cleaner are reported as exclusions alongside those dropped later.
func (p *Pipeline) RunRaw(raw []*models.RawListing, catalog []models.ReferenceRecord, priorities models.FactorSet) (*models.RankReport, error) {
	if _, err := config.EffectiveRankWeights(p.scoring.Rank.Weights, priorities); err != nil {
		return nil, err
	}

	listings, excluded := p.cleaner.Clean(raw)
	report, err := p.Run(listings, catalog, priorities)
	if err != nil {
		return nil, err
	}
	report.Input = len(raw)
	report.Excluded = append(excluded, report.Excluded...)
	return report, nil
}

// Run ranks listings against catalog. Listings without a make are excluded
// with a recorded reason; every other listing appears in the results, with
// unmatched or insufficient-data states carried as data. priorities boost
// the configured ranking weights.
func (p *Pipeline) Run(listings []*models.Listing, catalog []models.ReferenceRecord, priorities models.FactorSet) (*models.RankReport, error) {
	if _, err := config.EffectiveRankWeights(p.scoring.Rank.Weights, priorities); err != nil {
		return nil, err
	}

	start := time.Now()
	now := p.now()
	report := &models.RankReport{
		RunID:       uuid.NewString(),
		GeneratedAt: now,
		Input:       len(listings),
		Excluded:    []models.Exclusion{},
	}

	valid := make([]*models.Listing, 0, len(listings))
	for _, l := range listings {
		if l == nil {
			report.Excluded = append(report.Excluded, models.Exclusion{Reason: models.ExclusionMissingMake})
			continue
		}
		if VectorizeListing(l).Make == "" {
			p.logger.Warn("[pipeline] Excluding listing without make: %s (%s)", l.Title, l.URL)
			report.Excluded = append(report.Excluded, models.Exclusion{
				URL:    l.URL,
				Title:  l.Title,
				Reason: models.ExclusionMissingMake,
			})
			continue
		}
		valid = append(valid, l)
	}

	matcher := NewMatcher(p.scoring.Match, catalog, p.logger)
	annotated := make([]models.AnnotatedListing, len(valid))
	for i, l := range valid {
		candidates := matcher.Match(l)
		sources := PerSource(candidates)

		a := models.AnnotatedListing{
			Listing:     l,
			MatchStatus: models.MatchStatusUnmatched,
			Match:       Best(candidates),
			Reliability: p.reliability.Score(l, sources, now),
			Mileage:     p.mileage.Analyze(l, now),
			Condition:   p.condition.Assess(l, now),
		}
		if a.Match != nil {
			a.MatchStatus = models.MatchStatusMatched
			for _, src := range sources {
				a.Sources = append(a.Sources, src.Source)
			}
		} else {
			report.Unmatched++
			p.logger.Debug("[pipeline] No reference above %.2f for %s", p.scoring.Match.MinSimilarity, l.Title)
		}
		if !a.Reliability.Scored() {
			report.InsufficientData++
		}
		annotated[i] = a
	}

	// Every valid listing is part of the market the others are compared with.
	for i := range annotated {
		va, err := p.value.Assess(annotated[i].Listing, annotated[i].Reliability, valid, p.scoring.Value.Weights)
		if err != nil {
			return nil, err
		}
		annotated[i].Value = va
	}

	results, err := p.ranker.Rank(annotated, priorities)
	if err != nil {
		return nil, err
	}
	report.Results = results

	p.logger.Elapsed(start, "[pipeline] Run %s: %d input = %d ranked + %d excluded (%d unmatched, %d insufficient data)",
		report.RunID, report.Input, len(report.Results), len(report.Excluded), report.Unmatched, report.InsufficientData)
	return report, nil
}
