package services

import (
	"strings"
	"unicode"
)

// Normalize canonicalizes free text for comparison: lower case, no
// punctuation, single spaces, trimmed. Hyphens, underscores and slashes
// separate words ("Mercedes-Benz" -> "mercedes benz"), as does a dot
// between letters ("VVT.i" -> "vvt i"). All other punctuation is removed,
// so "1.3" becomes "13". Normalize is idempotent.
func Normalize(s string) string {
	if s == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(s))
	runes := []rune(strings.ToLower(s))
	for i, r := range runes {
		switch {
		case r == '-' || r == '_' || r == '/' || r == '\\':
			b.WriteRune(' ')
		case r == '.' && i > 0 && i < len(runes)-1 && unicode.IsLetter(runes[i-1]) && unicode.IsLetter(runes[i+1]):
			b.WriteRune(' ')
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			continue
		default:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// tokens splits already-normalized text into a set of words.
func tokens(normalized string) map[string]struct{} {
	fields := strings.Fields(normalized)
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// jaccard returns |A∩B| / |A∪B| over the word sets of two normalized
// strings, or 0 when either side is empty.
func jaccard(a, b string) float64 {
	ta, tb := tokens(a), tokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	inter := 0
	for t := range ta {
		if _, ok := tb[t]; ok {
			inter++
		}
	}
	union := len(ta) + len(tb) - inter
	return float64(inter) / float64(union)
}
