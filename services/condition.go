package services

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"car-scout/models"
	"car-scout/utils"
)

const (
	conditionNeutral   = 5.0
	conditionMax       = 10.0
	issueContextRunes  = 30
	defaultMaintenance = 1000.0
)

// conditionPhrases maps seller wording about overall condition to a rating
// adjustment. Tiers are checked in order and the first hit wins.
var conditionPhrases = []struct {
	Terms  []string
	Adjust float64
}{
	{[]string{"excellent", "perfect", "immaculate", "mint"}, 3.5},
	{[]string{"very good", "great", "superb"}, 2},
	{[]string{"good", "clean", "tidy"}, 0.5},
	{[]string{"fair", "average", "okay", "ok"}, -1},
	{[]string{"poor", "bad", "needs work", "project"}, -3.5},
}

// issueKeywords mark a description as mentioning a fault. A word matches
// when it starts with the keyword, so "scratches" counts as "scratch".
var issueKeywords = []string{
	"rust", "damage", "dent", "scratch", "worn", "issue", "problem",
	"leak", "repair", "needs", "fix", "cracked", "broken", "fault",
}

var issueKeywordPattern = regexp.MustCompile(`\b(` + strings.Join(issueKeywords, "|") + `)\w*`)

type ageBand struct {
	MaxAge int
	Value  float64
}

type mileageBand struct {
	MaxMileage int
	Value      float64
}

var conditionAgeAdjust = []ageBand{
	{2, 2.5},
	{5, 1.5},
	{8, 0},
	{12, -1},
	{math.MaxInt, -2.5},
}

var conditionMileageAdjust = []mileageBand{
	{10000, 2.5},
	{30000, 1.5},
	{60000, 0.5},
	{100000, 0},
	{150000, -1},
	{math.MaxInt, -2.5},
}

var makeConditionAdjust = map[string]float64{
	"toyota":        1,
	"lexus":         1,
	"honda":         1,
	"acura":         1,
	"mazda":         0.5,
	"subaru":        0.5,
	"kia":           0.5,
	"hyundai":       0.5,
	"bmw":           -0.5,
	"audi":          -0.5,
	"mercedes benz": -0.5,
	"volvo":         -0.5,
}

// makeClasses groups makes by running cost. Makes not listed are "standard".
var makeClasses = map[string]string{
	"toyota":        "economy",
	"honda":         "economy",
	"nissan":        "economy",
	"hyundai":       "economy",
	"kia":           "economy",
	"ford":          "standard",
	"chevrolet":     "standard",
	"mazda":         "standard",
	"volkswagen":    "standard",
	"subaru":        "standard",
	"bmw":           "luxury",
	"mercedes benz": "luxury",
	"audi":          "luxury",
	"lexus":         "luxury",
	"jaguar":        "premium",
	"land rover":    "premium",
	"porsche":       "premium",
	"maserati":      "exotic",
	"ferrari":       "exotic",
	"lamborghini":   "exotic",
	"bentley":       "exotic",
	"rolls royce":   "exotic",
}

// baseMaintenance is the yearly cost in pounds of an average car per class.
var baseMaintenance = map[string]float64{
	"economy":  500,
	"standard": 800,
	"luxury":   1500,
	"premium":  2000,
	"exotic":   3500,
}

var maintenanceAgeFactor = []ageBand{
	{3, 0.7},
	{6, 0.9},
	{10, 1.2},
	{math.MaxInt, 1.5},
}

var maintenanceMileageFactor = []mileageBand{
	{20000, 0.8},
	{60000, 1},
	{100000, 1.3},
	{math.MaxInt, 1.6},
}

var maintenanceConditionFactor = []struct {
	Min    float64
	Factor float64
}{
	{8, 0.8},
	{6, 1},
	{4, 1.3},
	{math.Inf(-1), 1.8},
}

var makeIssues = map[string][]string{
	"bmw":           {"Oil leaks", "Cooling system issues"},
	"audi":          {"Electrical issues", "Oil consumption"},
	"mercedes benz": {"Rust issues", "Airmatic suspension problems"},
	"volkswagen":    {"Timing belt issues", "Water pump failures"},
	"ford":          {"Rust issues", "Automatic transmission failures"},
	"toyota":        {"Oil consumption in some engines", "Water pump failures"},
	"honda":         {"Automatic transmission issues in older models", "Airbag recalls"},
}

var defaultMakeIssues = []string{
	"Wear and tear issues based on age and mileage",
	"Routine maintenance requirements",
}

var ageIssues = []struct {
	MaxAge int
	Issues []string
}{
	{3, []string{"Minor warranty items", "Software updates"}},
	{7, []string{"Battery replacements", "Brake system wear"}},
	{12, []string{"Major component wear", "Transmission problems"}},
	{math.MaxInt, []string{"Comprehensive rust issues", "Major mechanical components"}},
}

var mileageIssues = []struct {
	MaxMileage int
	Issues     []string
}{
	{20000, []string{"Minor initial quality issues", "Break-in period maintenance"}},
	{60000, []string{"Routine maintenance items", "Brake pad replacements"}},
	{100000, []string{"Timing belt/chain service", "Water pump replacements"}},
	{150000, []string{"Major component wear", "Transmission service or issues"}},
	{math.MaxInt, []string{"Comprehensive mechanical attention required", "Major engine and transmission concerns"}},
}

// issueCaps limits how many potential issues are reported for a rating.
// Cars in better condition get a shorter list.
var issueCaps = []struct {
	Min float64
	Max int
}{
	{8, 2},
	{6, 4},
	{4, 6},
	{math.Inf(-1), 10},
}

// ConditionAssessor estimates the condition of a listing and what it is
// likely to cost to keep on the road.
type ConditionAssessor struct {
	logger *utils.Logger
}

func NewConditionAssessor(logger *utils.Logger) *ConditionAssessor {
	return &ConditionAssessor{logger: logger}
}

// Assess rates l as of now. Each known input (description wording, age,
// mileage, make, fault keywords) moves the rating away from the neutral 5;
// the sum is averaged over the inputs that were known.
func (c *ConditionAssessor) Assess(l *models.Listing, now time.Time) models.ConditionAssessment {
	if l == nil {
		return models.ConditionAssessment{Rating: conditionNeutral, Label: ConditionLabel(conditionNeutral)}
	}

	age := -1
	if l.Year > 0 {
		age = max(now.Year()-l.Year, 0)
	}
	mk := VectorizeListing(l).Make

	rating := round(conditionRating(l, age, mk), 1)
	ca := models.ConditionAssessment{
		Rating:          rating,
		Label:           ConditionLabel(rating),
		MaintenanceCost: maintenanceCost(mk, age, l.Mileage, rating),
		PotentialIssues: potentialIssues(l, age, mk, rating),
	}
	ca.Summary = conditionSummary(l, ca)
	c.logger.Debug("[condition] %s rated %.1f (%s)", l.Title, ca.Rating, ca.Label)
	return ca
}

func conditionRating(l *models.Listing, age int, mk string) float64 {
	var total float64
	factors := 0

	if adj, ok := describedCondition(l.Description); ok {
		total += adj
		factors++
	}
	if age >= 0 {
		total += ageValue(conditionAgeAdjust, age)
		factors++
	}
	if l.Mileage > 0 {
		total += mileageValue(conditionMileageAdjust, l.Mileage)
		factors++
	}
	if mk != "" {
		total += makeConditionAdjust[mk]
		factors++
	}
	if l.Description != "" {
		switch n := countIssueKeywords(l.Description); {
		case n == 0:
		case n == 1:
			total -= 0.5
		case n <= 3:
			total -= 1
		default:
			total -= 2
		}
		factors++
	}

	if factors == 0 {
		return conditionNeutral
	}
	return clamp(conditionNeutral+total/float64(factors), 0, conditionMax)
}

// describedCondition matches whole words of the description against
// conditionPhrases.
func describedCondition(desc string) (float64, bool) {
	if desc == "" {
		return 0, false
	}
	padded := " " + Normalize(desc) + " "
	for _, tier := range conditionPhrases {
		for _, term := range tier.Terms {
			if strings.Contains(padded, " "+term+" ") {
				return tier.Adjust, true
			}
		}
	}
	return 0, false
}

// countIssueKeywords returns how many distinct fault keywords desc mentions.
func countIssueKeywords(desc string) int {
	found := make(map[string]bool)
	for _, m := range issueKeywordPattern.FindAllStringSubmatch(strings.ToLower(desc), -1) {
		found[m[1]] = true
	}
	return len(found)
}

func maintenanceCost(mk string, age, mileage int, rating float64) float64 {
	if age < 0 && mileage <= 0 {
		return 0
	}
	class, ok := makeClasses[mk]
	if !ok {
		class = "standard"
	}
	cost, ok := baseMaintenance[class]
	if !ok {
		cost = defaultMaintenance
	}
	if age >= 0 {
		cost *= ageValue(maintenanceAgeFactor, age)
	}
	if mileage > 0 {
		cost *= mileageValue(maintenanceMileageFactor, mileage)
	}
	for _, f := range maintenanceConditionFactor {
		if rating >= f.Min {
			cost *= f.Factor
			break
		}
	}
	return math.Round(cost/10) * 10
}

// potentialIssues lists make, age and mileage issues followed by the
// fault mentions found in the description, without duplicates, capped by
// rating.
func potentialIssues(l *models.Listing, age int, mk string, rating float64) []string {
	seen := utils.NewStringSet()
	var issues []string
	add := func(list ...string) {
		for _, s := range list {
			if s != "" && seen.Add(s) {
				issues = append(issues, s)
			}
		}
	}

	if mk != "" {
		if known, ok := makeIssues[mk]; ok {
			add(known...)
		} else {
			add(defaultMakeIssues...)
		}
	}
	if age >= 0 {
		for _, b := range ageIssues {
			if age <= b.MaxAge {
				add(b.Issues...)
				break
			}
		}
	}
	if l.Mileage > 0 {
		for _, b := range mileageIssues {
			if l.Mileage <= b.MaxMileage {
				add(b.Issues...)
				break
			}
		}
	}
	add(issueMentions(l.Description)...)

	limit := 10
	for _, c := range issueCaps {
		if rating >= c.Min {
			limit = c.Max
			break
		}
	}
	if len(issues) > limit {
		issues = issues[:limit]
	}
	return issues
}

// issueMentions returns the text around each fault keyword in desc, up to
// issueContextRunes either side, capitalized.
func issueMentions(desc string) []string {
	if desc == "" {
		return nil
	}
	lower := []rune(strings.ToLower(desc))
	text := string(lower)

	var out []string
	for _, loc := range issueKeywordPattern.FindAllStringIndex(text, -1) {
		start := utf8.RuneCountInString(text[:loc[0]])
		end := utf8.RuneCountInString(text[:loc[1]])
		from := max(start-issueContextRunes, 0)
		to := min(end+issueContextRunes, len(lower))
		out = append(out, capitalize(strings.TrimSpace(string(lower[from:to]))))
	}
	return out
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func conditionSummary(l *models.Listing, ca models.ConditionAssessment) string {
	name := "This car"
	if l.Year > 0 && l.Make != "" && l.Model != "" {
		name = fmt.Sprintf("%d %s %s", l.Year, l.Make, l.Model)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s appears to be in %s condition overall.", name, strings.ToLower(ca.Label))
	if ca.MaintenanceCost > 0 {
		fmt.Fprintf(&b, " The estimated annual maintenance cost is approximately £%.0f.", ca.MaintenanceCost)
	}

	lowered := make([]string, len(ca.PotentialIssues))
	for i, s := range ca.PotentialIssues {
		lowered[i] = strings.ToLower(s)
	}
	switch n := len(lowered); {
	case n == 1:
		fmt.Fprintf(&b, " A potential concern to be aware of is %s.", lowered[0])
	case n == 2:
		fmt.Fprintf(&b, " Potential concerns to be aware of are %s and %s.", lowered[0], lowered[1])
	case n > 2:
		fmt.Fprintf(&b, " Potential concerns to be aware of include %s, and %s.",
			strings.Join(lowered[:n-1], ", "), lowered[n-1])
	}

	switch r := ca.Rating; {
	case r >= 8:
		b.WriteString(" This vehicle represents an excellent choice in terms of condition.")
	case r >= 6:
		b.WriteString(" This vehicle is in good condition and should be reliable with proper maintenance.")
	case r >= 4:
		b.WriteString(" This vehicle may require some attention and repairs in the near future.")
	default:
		b.WriteString(" This vehicle will likely need significant work to restore to good condition.")
	}
	return b.String()
}

func ageValue(bands []ageBand, age int) float64 {
	for _, b := range bands {
		if age <= b.MaxAge {
			return b.Value
		}
	}
	return bands[len(bands)-1].Value
}

func mileageValue(bands []mileageBand, mileage int) float64 {
	for _, b := range bands {
		if mileage <= b.MaxMileage {
			return b.Value
		}
	}
	return bands[len(bands)-1].Value
}
