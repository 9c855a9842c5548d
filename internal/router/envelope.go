package router

import (
	"math"

	"github.com/amasuba/uraics-revenue-assurance/internal/audit"
	"github.com/amasuba/uraics-revenue-assurance/internal/intent"
	"github.com/amasuba/uraics-revenue-assurance/internal/queries"
)

// Kind tags the outcome of a dispatch.
type Kind string

const (
	// KindPrompt asks the user for a missing parameter. No store access.
	KindPrompt Kind = "prompt"
	// KindEmpty is a successful query with no rows.
	KindEmpty Kind = "empty"
	// KindResult carries a payload.
	KindResult Kind = "result"
	// KindError is a store failure, already logged.
	KindError Kind = "error"
	// KindHelp is the static capability summary.
	KindHelp Kind = "help"
)

// Envelope is the normalized result of one dispatch. Payload is set only
// for KindResult and holds one of the *Result types below.
type Envelope struct {
	Kind    Kind          `json:"kind"`
	Intent  intent.Intent `json:"intent"`
	Payload any           `json:"payload,omitempty"`
	Message string        `json:"message,omitempty"`
}

// Recommendation is the audit action suggested by a taxpayer's risk count.
type Recommendation string

const (
	RecommendCritical Recommendation = "CRITICAL - Immediate Audit"
	RecommendHigh     Recommendation = "HIGH PRIORITY - Schedule Audit"
	RecommendMedium   Recommendation = "MEDIUM - Review Risk Profile"
	RecommendLow      Recommendation = "LOW - Routine Monitoring"
)

// RecommendationFor maps a count of distinct risk flags to a tier.
func RecommendationFor(riskCount int) Recommendation {
	switch {
	case riskCount >= 10:
		return RecommendCritical
	case riskCount >= 5:
		return RecommendHigh
	case riskCount >= 2:
		return RecommendMedium
	default:
		return RecommendLow
	}
}

// Similarity is the share of all risk categories two taxpayers have in
// common, as a percentage rounded to one decimal.
func Similarity(shared, totalCategories int) float64 {
	if totalCategories <= 0 {
		return 0
	}
	return math.Round(1000*float64(shared)/float64(totalCategories)) / 10
}

// IdentifierResult answers search-by-identifier.
type IdentifierResult struct {
	Profile         *queries.TaxpayerProfile `json:"profile"`
	RiskCount       int                      `json:"risk_count"`
	TotalCategories int                      `json:"total_categories"`
	TotalExposure   float64                  `json:"total_exposure"`
	Recommendation  Recommendation           `json:"recommendation"`
}

// RiskProfileResult answers risk-analysis: the taxpayer's flags ranked by
// exposure with a count per severity.
type RiskProfileResult struct {
	Taxpayer       audit.Taxpayer         `json:"taxpayer"`
	Flags          []audit.Flag           `json:"risks"`
	SeverityCounts map[audit.Severity]int `json:"severity_counts"`
	TotalExposure  float64                `json:"total_exposure"`
	Recommendation Recommendation         `json:"recommendation"`
}

// NameSearchResult answers search-by-name.
type NameSearchResult struct {
	Query     string                    `json:"query"`
	Taxpayers []queries.TaxpayerSummary `json:"taxpayers"`
}

// RelatedMatch is a related taxpayer with its similarity score.
type RelatedMatch struct {
	queries.RelatedTaxpayer
	Similarity float64 `json:"similarity"`
}

// RelatedResult answers find-related.
type RelatedResult struct {
	TIN     string         `json:"tin"`
	Matches []RelatedMatch `json:"related"`
}

// PathwayResult answers evidence-pathway.
type PathwayResult struct {
	Pathway     *queries.RiskPathway `json:"pathway"`
	Variance    float64              `json:"variance"`
	HasVariance bool                 `json:"has_variance"`
}

// HighImpactResult answers high-impact-cases.
type HighImpactResult struct {
	RiskID      string                   `json:"risk_id,omitempty"`
	MinExposure float64                  `json:"min_exposure"`
	Cases       []queries.HighImpactCase `json:"cases"`
}

// SectorResult answers sector-analysis.
type SectorResult struct {
	Sector string               `json:"sector"`
	Risks  []queries.SectorRisk `json:"risks"`
}

// ConnectionResult answers a connection trace between two taxpayers.
type ConnectionResult struct {
	FromTIN string                  `json:"from_tin"`
	ToTIN   string                  `json:"to_tin"`
	MaxHops int                     `json:"max_hops"`
	Path    *queries.ConnectionPath `json:"path"`
}
