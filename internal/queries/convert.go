package queries

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"

	"github.com/amasuba/uraics-revenue-assurance/internal/audit"
)

// dateLayout is how graph dates are rendered when a string is needed.
const dateLayout = "2006-01-02"

// toInt64 safely converts various numeric types to int64.
// Neo4j driver returns int64, but JSON unmarshaling or other sources may return float64.
func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case float64:
		return int64(n), true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	default:
		return 0, false
	}
}

func toInt(v any) int {
	n, _ := toInt64(v)
	return int(n)
}

// toFloat64 accepts both integer and float properties; exposure amounts are
// loaded by external ingestion with either type. Null becomes 0.
func toFloat64(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int64:
		return float64(n)
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// toString renders scalar properties, including temporal ones, as text.
// Null becomes "".
func toString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case int64:
		return strconv.FormatInt(s, 10)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case time.Time:
		return s.Format(dateLayout)
	case dbtype.Date:
		return s.Time().Format(dateLayout)
	case dbtype.LocalDateTime:
		return s.Time().Format(dateLayout)
	default:
		return fmt.Sprint(v)
	}
}

// toTime parses temporal properties. Missing or unparseable values are nil.
func toTime(v any) *time.Time {
	var t time.Time
	switch s := v.(type) {
	case time.Time:
		t = s
	case dbtype.Date:
		t = s.Time()
	case dbtype.LocalDateTime:
		t = s.Time()
	case string:
		parsed, err := time.Parse(time.RFC3339, s)
		if err != nil {
			parsed, err = time.Parse(dateLayout, s)
			if err != nil {
				return nil
			}
		}
		t = parsed
	default:
		return nil
	}
	return &t
}

// toStrings accepts a list property or a legacy newline-joined string.
func toStrings(v any) []string {
	switch s := v.(type) {
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			if str := toString(item); str != "" {
				out = append(out, str)
			}
		}
		return out
	case []string:
		return s
	case string:
		if s == "" {
			return nil
		}
		return strings.Split(s, "\n")
	default:
		return nil
	}
}

func toMaps(v any) []map[string]any {
	items, ok := v.([]any)
	if !ok {
		if maps, ok := v.([]map[string]any); ok {
			return maps
		}
		return nil
	}
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func recordToTaxpayer(r map[string]any, prefix string) audit.Taxpayer {
	return audit.Taxpayer{
		TIN:              toString(r[prefix+"tin"]),
		Name:             toString(r[prefix+"name"]),
		Region:           toString(r[prefix+"region"]),
		Sector:           toString(r[prefix+"sector"]),
		ComplianceStatus: toString(r[prefix+"status"]),
	}
}

func recordToRiskFlag(r map[string]any) audit.RiskFlag {
	return audit.RiskFlag{
		ID:          toString(r["risk_id"]),
		Name:        toString(r["risk_name"]),
		Severity:    audit.Severity(toString(r["severity"])),
		Description: toString(r["description"]),
	}
}

func recordToFlag(r map[string]any) audit.Flag {
	return audit.Flag{
		Risk:         recordToRiskFlag(r),
		Exposure:     audit.ClampExposure(toFloat64(r["exposure"])),
		DetectedDate: toString(r["detected_date"]),
		Evidence:     toString(r["evidence"]),
	}
}

// round rounds v to the given number of decimal places.
func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
