package models

import "time"

// MatchStatus records whether a listing found a reference record above the
// similarity threshold. Unmatched is a normal outcome, not an error.
type MatchStatus string

const (
	MatchStatusMatched   MatchStatus = "matched"
	MatchStatusUnmatched MatchStatus = "unmatched"
)

// MatchResult pairs a listing with its accepted reference record.
type MatchResult struct {
	Reference ReferenceRecord `json:"reference"`
	Score     float64         `json:"score"`
}

// Component is one of the six mechanical subsystems scored for reliability.
type Component string

const (
	ComponentEngine       Component = "engine"
	ComponentTransmission Component = "transmission"
	ComponentElectrical   Component = "electrical"
	ComponentSuspension   Component = "suspension"
	ComponentBody         Component = "body"
	ComponentInterior     Component = "interior"
)

// Components lists every subsystem in reporting order.
var Components = []Component{
	ComponentEngine,
	ComponentTransmission,
	ComponentElectrical,
	ComponentSuspension,
	ComponentBody,
	ComponentInterior,
}

type ReliabilityStatus string

const (
	ReliabilityScored           ReliabilityStatus = "scored"
	ReliabilityInsufficientData ReliabilityStatus = "insufficient_data"
)

type ConfidenceLevel string

const (
	ConfidenceLow    ConfidenceLevel = "low"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceHigh   ConfidenceLevel = "high"
)

// SubsystemScore is the adjusted score of one component. Backfilled is set
// when no source reported the component and the value was derived from the
// components that were reported.
type SubsystemScore struct {
	Component    Component `json:"component"`
	Score        float64   `json:"score"`
	Label        string    `json:"label"`
	Observations int       `json:"observations"`
	Backfilled   bool      `json:"backfilled"`
}

// RankedIssue is a deduplicated known issue relevant at the listing's mileage.
type RankedIssue struct {
	Title        string   `json:"title"`
	Component    string   `json:"component,omitempty"`
	Severity     Severity `json:"severity"`
	OnsetMileage int      `json:"onset_mileage,omitempty"`
	Sources      []string `json:"sources"`
}

// ReliabilityAssessment is the per-listing reliability output. Overall and
// Subsystems are only meaningful when Status is ReliabilityScored.
type ReliabilityAssessment struct {
	Status        ReliabilityStatus `json:"status"`
	Overall       float64           `json:"overall,omitempty"`
	Label         string            `json:"label"`
	Subsystems    []SubsystemScore  `json:"subsystems,omitempty"`
	Issues        []RankedIssue     `json:"issues,omitempty"`
	Sources       []string          `json:"sources,omitempty"`
	Confidence    ConfidenceLevel   `json:"confidence"`
	AgeFactor     float64           `json:"age_factor"`
	MileageFactor float64           `json:"mileage_factor"`
}

// Scored reports whether an overall score was computed.
func (r ReliabilityAssessment) Scored() bool {
	return r.Status == ReliabilityScored
}

// Percentile is a position in [0,1] among market comparables. Defined is
// false when there were too few comparables or the listing lacked the value.
type Percentile struct {
	Value   float64 `json:"value"`
	Defined bool    `json:"defined"`
}

type ValueFactor string

const (
	FactorPrice       ValueFactor = "price"
	FactorReliability ValueFactor = "reliability"
	FactorMileage     ValueFactor = "mileage"
	FactorAge         ValueFactor = "age"
	FactorFeatures    ValueFactor = "features"
)

// FactorScore is one value factor on the 1-5 scale with the normalized
// weight it carried.
type FactorScore struct {
	Factor ValueFactor `json:"factor"`
	Score  float64     `json:"score"`
	Weight float64     `json:"weight"`
}

type Polarity string

const (
	PolarityPositive Polarity = "positive"
	PolarityNegative Polarity = "negative"
)

// Justification explains a notably strong or weak value factor.
type Justification struct {
	Factor   ValueFactor `json:"factor"`
	Polarity Polarity    `json:"polarity"`
	Text     string      `json:"text"`
}

// ValueAssessment is the per-listing value-for-money output.
type ValueAssessment struct {
	Score             float64         `json:"score"`
	Category          string          `json:"category"`
	PricePercentile   Percentile      `json:"price_percentile"`
	MileagePercentile Percentile      `json:"mileage_percentile"`
	AgePercentile     Percentile      `json:"age_percentile"`
	Factors           []FactorScore   `json:"factors"`
	Justifications    []Justification `json:"justifications,omitempty"`
	Comparables       int             `json:"comparables"`
}

// MileageAnalysis compares a listing's mileage with what is expected for its age.
type MileageAnalysis struct {
	Known             bool    `json:"known"`
	Age               int     `json:"age"`
	ExpectedMileage   int     `json:"expected_mileage"`
	DeviationPercent  float64 `json:"deviation_percent"`
	AnnualMileage     float64 `json:"annual_mileage"`
	Rating            float64 `json:"rating"`
	RemainingLifespan int     `json:"remaining_lifespan"`
	Summary           string  `json:"summary"`
}

// ConditionAssessment estimates a listing's condition on a 0-10 scale from
// its age, mileage, make and description. MaintenanceCost is the estimated
// annual cost in pounds, 0 when neither year nor mileage is known.
type ConditionAssessment struct {
	Rating          float64  `json:"rating"`
	Label           string   `json:"label"`
	MaintenanceCost float64  `json:"maintenance_cost,omitempty"`
	PotentialIssues []string `json:"potential_issues,omitempty"`
	Summary         string   `json:"summary"`
}

// AnnotatedListing wraps a listing with everything the core attached to it.
// The wrapped Listing is shared with the caller and never modified.
type AnnotatedListing struct {
	Listing     *Listing              `json:"listing"`
	MatchStatus MatchStatus           `json:"match_status"`
	Match       *MatchResult          `json:"match,omitempty"`
	Sources     []string              `json:"sources,omitempty"`
	Reliability ReliabilityAssessment `json:"reliability"`
	Value       ValueAssessment       `json:"value"`
	Mileage     MileageAnalysis       `json:"mileage"`
	Condition   ConditionAssessment   `json:"condition"`
}

// FactorSet holds one number per ranking factor. It is used both for the
// component scores of a result and for the weights that were applied.
type FactorSet struct {
	Reliability float64 `json:"reliability" yaml:"reliability" mapstructure:"reliability"`
	Value       float64 `json:"value" yaml:"value" mapstructure:"value"`
	Recency     float64 `json:"recency" yaml:"recency" mapstructure:"recency"`
	Mileage     float64 `json:"mileage" yaml:"mileage" mapstructure:"mileage"`
}

// Sum returns the total of the four factors.
func (f FactorSet) Sum() float64 {
	return f.Reliability + f.Value + f.Recency + f.Mileage
}

// RankedResult is the final per-listing output of a ranking pass.
type RankedResult struct {
	AnnotatedListing
	Rank       int       `json:"rank"`
	Percentile float64   `json:"percentile"`
	TotalScore float64   `json:"total_score"`
	Components FactorSet `json:"components"`
	Weights    FactorSet `json:"weights"`
}

type ExclusionReason string

const (
	ExclusionMissingURL   ExclusionReason = "missing_url"
	ExclusionDuplicateURL ExclusionReason = "duplicate_url"
	ExclusionMissingMake  ExclusionReason = "missing_make"
)

// Exclusion records a listing that was dropped before ranking and why.
type Exclusion struct {
	URL    string          `json:"url"`
	Title  string          `json:"title"`
	Reason ExclusionReason `json:"reason"`
}

// RankReport is the outcome of one ranking pass. Every input listing is
// either in Results or in Excluded.
type RankReport struct {
	RunID            string         `json:"run_id"`
	GeneratedAt      time.Time      `json:"generated_at"`
	Input            int            `json:"input"`
	Results          []RankedResult `json:"results"`
	Excluded         []Exclusion    `json:"excluded"`
	Unmatched        int            `json:"unmatched"`
	InsufficientData int            `json:"insufficient_data"`
}

// MarketReport holds summary statistics over a ranked result set.
type MarketReport struct {
	TotalListings    int
	Excluded         int
	Unmatched        int
	InsufficientData int
	AveragePrice     float64
	MinPrice         float64
	MaxPrice         float64
	MostExpensive    *Listing
	TopRanked        []RankedResult
	ListingsByMake   map[string]int
}
