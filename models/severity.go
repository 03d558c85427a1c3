package models

import (
	"fmt"
	"strings"
)

type Severity string

const (
	SeverityUnknown  Severity = "unknown"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank returns an integer rank for comparison (Low=1, Critical=4).
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

func (s Severity) String() string {
	return string(s)
}

// UnmarshalText accepts any casing and maps unrecognised values to
// SeverityUnknown instead of failing the whole document.
func (s *Severity) UnmarshalText(b []byte) error {
	parsed, err := ParseSeverity(string(b))
	if err != nil {
		*s = SeverityUnknown
		return nil
	}
	*s = parsed
	return nil
}

// ParseSeverity parses a severity string case-insensitively.
// Accepts "moderate" as "medium" and "major" as "high".
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low", "minor":
		return SeverityLow, nil
	case "medium", "moderate":
		return SeverityMedium, nil
	case "high", "major":
		return SeverityHigh, nil
	case "critical":
		return SeverityCritical, nil
	default:
		return SeverityUnknown, fmt.Errorf("invalid severity: %s", s)
	}
}
