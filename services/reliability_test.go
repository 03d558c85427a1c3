package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"car-scout/config"
	"car-scout/models"
	"car-scout/utils"
)

var testNow = time.Date(2026, time.June, 1, 12, 0, 0, 0, time.UTC)

func newTestScorer(useDescription bool) *ReliabilityScorer {
	cfg := config.DefaultScoring().Reliability
	cfg.UseDescription = useDescription
	return NewReliabilityScorer(cfg, utils.NewNopLogger())
}

func entries(kv ...any) []models.ReliabilityEntry {
	var out []models.ReliabilityEntry
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, models.ReliabilityEntry{Component: kv[i].(string), Score: kv[i+1].(float64)})
	}
	return out
}

func TestReliabilityBackfillsMissingComponents(t *testing.T) {
	s := newTestScorer(false)
	// Current-year car with unknown mileage: no age or mileage adjustment.
	l := &models.Listing{Make: "Toyota", Model: "Yaris", Year: testNow.Year()}
	src := []models.ReferenceRecord{{Source: "edmunds", Reliability: entries("engine", 5.0, "transmission", 4.0)}}

	a := s.Score(l, src, testNow)

	require.Equal(t, models.ReliabilityScored, a.Status)
	assert.Equal(t, 4.5, a.Overall)
	assert.Equal(t, "Excellent", a.Label)
	assert.Equal(t, models.ConfidenceMedium, a.Confidence)
	require.Len(t, a.Subsystems, 6)

	backfilled := 0
	for _, sub := range a.Subsystems {
		if sub.Backfilled {
			backfilled++
			assert.Equal(t, 4.55, sub.Score, "backfill is the weighted mean of reported components")
			assert.Zero(t, sub.Observations)
		}
	}
	assert.Equal(t, 4, backfilled)
}

func TestReliabilityInsufficientData(t *testing.T) {
	s := newTestScorer(true)
	l := &models.Listing{Make: "Toyota", Model: "Yaris", Year: 2012, Mileage: 62000}
	src := []models.ReferenceRecord{
		{Source: "empty"},
		{Source: "unknown-components", Reliability: entries("cupholders", 5.0)},
		{Source: "issues-only", Issues: []models.KnownIssue{{Title: "Water pump leak", Component: "engine", Severity: models.SeverityMedium, OnsetMileage: 50000}}},
	}

	a := s.Score(l, src, testNow)

	assert.Equal(t, models.ReliabilityInsufficientData, a.Status)
	assert.False(t, a.Scored())
	assert.Equal(t, LabelUnknown, a.Label)
	assert.Zero(t, a.Overall)
	assert.Empty(t, a.Subsystems)
	assert.Empty(t, a.Sources)
	assert.Equal(t, models.ConfidenceLow, a.Confidence)
	require.Len(t, a.Issues, 1, "known issues are reported even without scores")
}

func TestReliabilityAgeAndMileageAdjustment(t *testing.T) {
	s := newTestScorer(false)
	l := &models.Listing{Make: "Toyota", Model: "Yaris", Year: 2012, Mileage: 62000}
	all := entries("engine", 5.0, "transmission", 5.0, "electrical", 5.0, "suspension", 5.0, "body", 5.0, "interior", 5.0)

	a := s.Score(l, []models.ReferenceRecord{{Source: "a", Reliability: all}}, testNow)

	assert.InDelta(t, 0.72, a.AgeFactor, 1e-9)
	assert.InDelta(t, 0.845, a.MileageFactor, 1e-9)
	assert.Equal(t, 3.0, a.Overall)
	assert.Equal(t, "Fair", a.Label)
}

func TestReliabilityOverallAlwaysInRange(t *testing.T) {
	s := newTestScorer(false)
	tests := []struct {
		name    string
		listing *models.Listing
		score   float64
	}{
		{"old high mileage, poor scores", &models.Listing{Make: "Fiat", Year: 1990, Mileage: 400000}, 1},
		{"new, top scores", &models.Listing{Make: "Lexus", Year: testNow.Year()}, 5},
		{"out of scale inputs", &models.Listing{Make: "Lexus", Year: testNow.Year()}, 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := []models.ReferenceRecord{{Source: "a", Reliability: entries("engine", tt.score, "body", tt.score)}}
			a := s.Score(tt.listing, src, testNow)
			require.True(t, a.Scored())
			assert.GreaterOrEqual(t, a.Overall, 1.0)
			assert.LessOrEqual(t, a.Overall, 5.0)
			for _, sub := range a.Subsystems {
				assert.GreaterOrEqual(t, sub.Score, 1.0)
				assert.LessOrEqual(t, sub.Score, 5.0)
			}
		})
	}
}

func TestReliabilityAveragesSourcesAndAliases(t *testing.T) {
	s := newTestScorer(false)
	l := &models.Listing{Make: "Ford", Model: "Focus", Year: testNow.Year()}
	src := []models.ReferenceRecord{
		{Source: "a", Reliability: entries("Engine", 4.0, "Gearbox", 3.0, "Clutch", 5.0)},
		{Source: "b", Reliability: entries("engine", 2.0, "Electronics", 4.0, "Brakes", 4.0)},
	}

	a := s.Score(l, src, testNow)

	byComponent := make(map[models.Component]models.SubsystemScore)
	for _, sub := range a.Subsystems {
		byComponent[sub.Component] = sub
	}
	assert.Equal(t, 3.0, byComponent[models.ComponentEngine].Score)
	assert.Equal(t, 2, byComponent[models.ComponentEngine].Observations)
	assert.Equal(t, 4.0, byComponent[models.ComponentTransmission].Score, "gearbox and clutch average within one source")
	assert.Equal(t, 1, byComponent[models.ComponentTransmission].Observations)
	assert.Equal(t, 4.0, byComponent[models.ComponentElectrical].Score)
	assert.Equal(t, 4.0, byComponent[models.ComponentSuspension].Score)
	assert.True(t, byComponent[models.ComponentBody].Backfilled)
	assert.Equal(t, []string{"a", "b"}, a.Sources)
	assert.Equal(t, models.ConfidenceHigh, a.Confidence)
}

func TestReliabilityUsesDescription(t *testing.T) {
	l := &models.Listing{
		Make:        "Toyota",
		Model:       "Yaris",
		Year:        testNow.Year(),
		Description: "Very reliable engine, but gearbox problems.",
	}

	a := newTestScorer(true).Score(l, nil, testNow)
	require.True(t, a.Scored())
	assert.Equal(t, []string{DescriptionSource}, a.Sources)

	off := newTestScorer(false).Score(l, nil, testNow)
	assert.False(t, off.Scored())
}

func TestRelevantIssues(t *testing.T) {
	l := &models.Listing{Make: "Toyota", Mileage: 62000}
	src := []models.ReferenceRecord{
		{Source: "a", Issues: []models.KnownIssue{
			{Title: "Timing chain stretch", Component: "engine", Severity: models.SeverityHigh, OnsetMileage: 60000},
			{Title: "Clutch judder", Component: "transmission", Severity: models.SeverityMedium, OnsetMileage: 40000},
		}},
		{Source: "b", Issues: []models.KnownIssue{
			{Title: "timing chain stretch", Component: "Engine", Severity: models.SeverityCritical, OnsetMileage: 80000},
			{Title: "Rust on sills", Component: "body", Severity: models.SeverityLow},
			{Title: "Gearbox failure", Component: "transmission", Severity: models.SeverityCritical, OnsetMileage: 120000},
		}},
	}

	issues := relevantIssues(l, src)
	require.Len(t, issues, 3)

	assert.Equal(t, "Timing chain stretch", issues[0].Title)
	assert.Equal(t, models.SeverityCritical, issues[0].Severity)
	assert.Equal(t, 60000, issues[0].OnsetMileage)
	assert.Equal(t, []string{"a", "b"}, issues[0].Sources)
	assert.Equal(t, "Clutch judder", issues[1].Title)
	assert.Equal(t, "Rust on sills", issues[2].Title)

	unknownMileage := relevantIssues(&models.Listing{Make: "Toyota"}, src)
	assert.Len(t, unknownMileage, 4, "without a mileage every issue is relevant")
	assert.Equal(t, "Timing chain stretch", unknownMileage[0].Title)
	assert.Equal(t, "Gearbox failure", unknownMileage[1].Title, "equal severity orders by earliest onset")
}

func TestReliabilityLabelBands(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{5, "Excellent"},
		{ReliabilityExcellentMin, "Excellent"},
		{4.49, "Good"},
		{ReliabilityGoodMin, "Good"},
		{ReliabilityFairMin, "Fair"},
		{ReliabilityPoorMin, "Poor"},
		{1.49, "Very Poor"},
		{1, "Very Poor"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ReliabilityLabel(tt.score), "score %.2f", tt.score)
	}
}
