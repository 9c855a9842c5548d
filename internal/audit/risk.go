package audit

import (
	"fmt"
	"strings"
)

// Severity is the ordered impact class of a risk flag.
type Severity string

const (
	SeverityLow      Severity = "Low"
	SeverityMedium   Severity = "Medium"
	SeverityHigh     Severity = "High"
	SeverityCritical Severity = "Critical"
)

// Rank orders severities Low < Medium < High < Critical. Unknown values rank 0.
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

// IsValid reports whether s is one of the four known severities.
func (s Severity) IsValid() bool {
	return s.Rank() > 0
}

// ParseSeverity accepts any casing of a known severity.
func ParseSeverity(v string) (Severity, error) {
	for _, s := range []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical} {
		if strings.EqualFold(v, string(s)) {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown severity %q", v)
}

// RiskFlag is one of the fixed risk categories a taxpayer can be flagged by.
type RiskFlag struct {
	ID          string   `json:"risk_id" yaml:"id"`
	Name        string   `json:"risk_name" yaml:"name"`
	Severity    Severity `json:"severity" yaml:"severity"`
	Description string   `json:"description,omitempty" yaml:"description"`
}

// Flag is a FLAGGED_BY edge: a risk raised against a taxpayer with the
// revenue estimated to be at stake.
type Flag struct {
	Risk         RiskFlag `json:"risk"`
	Exposure     float64  `json:"exposure"`
	DetectedDate string   `json:"detected_date,omitempty"`
	Evidence     string   `json:"evidence,omitempty"`
}

// ClampExposure enforces the non-negative exposure invariant.
func ClampExposure(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
