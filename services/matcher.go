package services

import (
	"math"
	"sort"

	"car-scout/cache"
	"car-scout/config"
	"car-scout/models"
	"car-scout/utils"
)

// Candidate is a reference record that cleared the similarity threshold.
// Index is the record's position in the catalog and breaks score ties.
type Candidate struct {
	Index     int
	Reference *models.ReferenceRecord
	Score     float64
}

// Neutral score for optional data that one side does not carry.
const missingFieldScore = 0.5

// Similarity scores how closely a reference vector describes a listing
// vector, in [0,1]. Differing or missing makes score 0.
func Similarity(listing, ref models.FeatureVector, w config.FieldWeights) float64 {
	if listing.Make == "" || listing.Make != ref.Make {
		return 0
	}

	score := w.Model*jaccard(listing.Model, ref.Model) +
		w.Year*yearSimilarity(listing.Year, ref.Year) +
		w.Trim*optionalJaccard(listing.Trim, ref.Trim) +
		w.Engine*optionalJaccard(listing.Engine, ref.Engine) +
		w.Transmission*categorical(listing.Transmission, ref.Transmission) +
		w.Drive*categorical(listing.Drive, ref.Drive)

	return math.Min(1, math.Max(0, score))
}

// yearSimilarity treats 0 as unknown. Two unknown years are equal; one
// unknown year scores 0.
func yearSimilarity(a, b int) float64 {
	if a == 0 && b == 0 {
		return 1
	}
	if a == 0 || b == 0 {
		return 0
	}
	d := a - b
	if d < 0 {
		d = -d
	}
	switch {
	case d <= 1:
		return 1
	case d <= 3:
		return 0.5
	default:
		return 0
	}
}

func optionalJaccard(a, b string) float64 {
	if a == "" || b == "" {
		return missingFieldScore
	}
	return jaccard(a, b)
}

func categorical(a, b string) float64 {
	switch {
	case a == "" || b == "":
		return missingFieldScore
	case a == b:
		return 1
	default:
		return 0
	}
}

// MatchVectors scores every reference vector against the listing vector and
// returns the indexes and scores at or above minSimilarity, best first.
// Equal scores keep catalog order. An empty result means "no match".
func MatchVectors(listing models.FeatureVector, refs []models.FeatureVector, minSimilarity float64, w config.FieldWeights) []Candidate {
	out := make([]Candidate, 0)
	for i, ref := range refs {
		s := Similarity(listing, ref, w)
		if s >= minSimilarity && s > 0 {
			out = append(out, Candidate{Index: i, Score: s})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Index < out[j].Index
	})
	return out
}

// Matcher matches listings against a fixed catalog snapshot. It is safe for
// concurrent use; results are cached per listing vector.
type Matcher struct {
	cfg     config.MatchConfig
	catalog []models.ReferenceRecord
	vectors []models.FeatureVector
	byMake  map[string][]int
	cache   cache.Store[models.FeatureVector, []Candidate]
	logger  *utils.Logger
}

// NewMatcher copies catalog and pre-computes its vectors. cfg must already
// be normalized.
func NewMatcher(cfg config.MatchConfig, catalog []models.ReferenceRecord, logger *utils.Logger) *Matcher {
	m := &Matcher{
		cfg:     cfg,
		catalog: append([]models.ReferenceRecord(nil), catalog...),
		vectors: make([]models.FeatureVector, len(catalog)),
		byMake:  make(map[string][]int),
		cache:   cache.NewMemory[models.FeatureVector, []Candidate](),
		logger:  logger,
	}
	for i := range m.catalog {
		v := VectorizeReference(&m.catalog[i])
		m.vectors[i] = v
		if v.Make != "" {
			m.byMake[v.Make] = append(m.byMake[v.Make], i)
		}
	}
	logger.Debug("[matcher] Indexed %d reference records across %d makes", len(m.catalog), len(m.byMake))
	return m
}

// Match returns every catalog record that clears the threshold for the
// listing, best first.
func (m *Matcher) Match(l *models.Listing) []Candidate {
	v := VectorizeListing(l)
	if v.Make == "" {
		return []Candidate{}
	}
	if cached, ok := m.cache.Get(v); ok {
		return cloneCandidates(cached)
	}

	idx := m.byMake[v.Make]
	refs := make([]models.FeatureVector, len(idx))
	for i, ci := range idx {
		refs[i] = m.vectors[ci]
	}

	found := MatchVectors(v, refs, m.cfg.MinSimilarity, m.cfg.Weights)
	for i := range found {
		ci := idx[found[i].Index]
		found[i].Index = ci
		found[i].Reference = &m.catalog[ci]
	}

	m.cache.Set(v, found)
	return cloneCandidates(found)
}

// Best returns the highest-scoring candidate, or nil when nothing matched.
func Best(candidates []Candidate) *models.MatchResult {
	if len(candidates) == 0 {
		return nil
	}
	return &models.MatchResult{Reference: *candidates[0].Reference, Score: candidates[0].Score}
}

// PerSource keeps the best candidate of every source, in rank order. These
// are the reliability observations handed to the scorer.
func PerSource(candidates []Candidate) []models.ReferenceRecord {
	seen := utils.NewStringSet()
	out := make([]models.ReferenceRecord, 0, len(candidates))
	for _, c := range candidates {
		if !seen.Add(c.Reference.Source) {
			continue
		}
		out = append(out, *c.Reference)
	}
	return out
}

func cloneCandidates(c []Candidate) []Candidate {
	return append([]Candidate(nil), c...)
}
