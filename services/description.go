package services

import (
	"regexp"
	"sort"
	"strings"

	"car-scout/models"
)

// DescriptionSource is the source name of observations derived from the
// seller's own description.
const DescriptionSource = "listing_description"

// qualifierSentiment scores seller wording on a -2..+2 scale.
var qualifierSentiment = map[string]float64{
	"very reliable": 2,
	"excellent":     1.5,
	"reliable":      1,
	"solid":         1,
	"robust":        1,
	"rebuilt":       0.5,
	"replaced":      0.5,
	"noisy":         -0.5,
	"worn":          -1,
	"issues":        -1,
	"problems":      -1,
	"problematic":   -1.5,
	"faulty":        -1.5,
	"fault":         -1.5,
	"faults":        -1.5,
	"unreliable":    -2,
	"failure":       -2,
}

// fillerWords may sit between a qualifier and the component it describes.
var fillerWords = []string{
	"a", "also", "are", "been", "completely", "fully", "had", "has", "have",
	"is", "just", "out", "quite", "recently", "slightly", "the", "was", "were",
}

var (
	qualifierBeforeRegexp *regexp.Regexp
	qualifierAfterRegexp  *regexp.Regexp
)

func init() {
	components := alternation(keys(componentAliases))
	qualifiers := alternation(keys(qualifierSentiment))
	fillers := `(?:(?:` + strings.Join(fillerWords, "|") + `)\s+){0,2}`

	// "reliable engine", "worn out clutch"
	qualifierBeforeRegexp = regexp.MustCompile(`\b(` + qualifiers + `)\s+` + fillers + `(` + components + `)\b`)
	// "gearbox problems", "timing belt recently replaced"
	qualifierAfterRegexp = regexp.MustCompile(`\b(` + components + `)\s+` + fillers + `(` + qualifiers + `)\b`)
}

// DescribeReliability extracts per-component reliability observations from
// free text. Each mentioned component scores 3 plus the mean sentiment of
// the wording around it, clamped to [1,5]. Components that are not
// mentioned are absent from the result.
func DescribeReliability(description string) []models.ReliabilityEntry {
	if strings.TrimSpace(description) == "" {
		return nil
	}

	sum := make(map[models.Component]float64)
	n := make(map[models.Component]int)

	for _, clause := range splitClauses(description) {
		text := Normalize(clause)
		for _, m := range qualifierBeforeRegexp.FindAllStringSubmatch(text, -1) {
			c := componentAliases[m[2]]
			sum[c] += qualifierSentiment[m[1]]
			n[c]++
		}
		for _, m := range qualifierAfterRegexp.FindAllStringSubmatch(text, -1) {
			c := componentAliases[m[1]]
			sum[c] += qualifierSentiment[m[2]]
			n[c]++
		}
	}

	var entries []models.ReliabilityEntry
	for _, c := range models.Components {
		if n[c] == 0 {
			continue
		}
		entries = append(entries, models.ReliabilityEntry{
			Component: string(c),
			Score:     clamp(3+sum[c]/float64(n[c]), 1, 5),
		})
	}
	return entries
}

// clauseBreakRegexp splits on punctuation and contrasting conjunctions so
// wording in one clause never qualifies a component named in the next.
var clauseBreakRegexp = regexp.MustCompile(`(?i)[.,;:!?\n]+|\b(?:but|however|although|though)\b`)

func splitClauses(s string) []string {
	return clauseBreakRegexp.Split(s, -1)
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// alternation joins phrases longest first so "very reliable" wins over
// "reliable" and "timing belt" over shorter names.
func alternation(phrases []string) string {
	sort.Slice(phrases, func(i, j int) bool {
		if len(phrases[i]) != len(phrases[j]) {
			return len(phrases[i]) > len(phrases[j])
		}
		return phrases[i] < phrases[j]
	})
	quoted := make([]string, len(phrases))
	for i, p := range phrases {
		quoted[i] = regexp.QuoteMeta(p)
	}
	return strings.Join(quoted, "|")
}
