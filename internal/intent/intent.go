package intent

// Intent is a classified category of user request.
type Intent string

const (
	SearchByIdentifier Intent = "search-by-identifier"
	SearchByName       Intent = "search-by-name"
	RiskAnalysis       Intent = "risk-analysis"
	FindRelated        Intent = "find-related"
	EvidencePathway    Intent = "evidence-pathway"
	SectorAnalysis     Intent = "sector-analysis"
	HighImpactCases    Intent = "high-impact-cases"
	Help               Intent = "help"
)

// All lists every intent in classification priority order, Help last.
var All = []Intent{
	SearchByIdentifier,
	SearchByName,
	RiskAnalysis,
	FindRelated,
	EvidencePathway,
	SectorAnalysis,
	HighImpactCases,
	Help,
}

func (i Intent) String() string {
	return string(i)
}

// IsValid reports whether i is a known intent.
func (i Intent) IsValid() bool {
	for _, known := range All {
		if i == known {
			return true
		}
	}
	return false
}

// Stage records which pass produced a classification.
type Stage string

const (
	StagePattern  Stage = "pattern"
	StageKeyword  Stage = "keyword"
	StageFallback Stage = "fallback"
)

// Result is the outcome of Classify. Param is only meaningful when HasParam
// is true; keyword hits never carry one.
type Result struct {
	Intent   Intent `json:"intent"`
	Param    string `json:"param,omitempty"`
	HasParam bool   `json:"has_param"`
	Stage    Stage  `json:"stage"`
}
