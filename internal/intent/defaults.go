package intent

import "regexp"

// Fragments shared by the built-in patterns. Input is already normalized,
// so patterns are lowercase with single spaces.
const (
	tinGroup    = `(\d{6,})`
	riskIDShape = `[a-z]{1,4}-?\d{1,3}`
	tinPrefix   = `(?: tin| taxpayer)?`
)

var (
	identifierPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^(?:search|find|lookup|look up|show|get)(?: for)?` + tinPrefix + ` ` + tinGroup + `\b`),
		regexp.MustCompile(`^(?:tin|taxpayer)(?: no| number)?:? ?` + tinGroup + `\b`),
		regexp.MustCompile(`^` + tinGroup + `$`),
	}

	namePatterns = []*regexp.Regexp{
		regexp.MustCompile(`^(?:search|find|lookup|look up)(?: for)? (?:taxpayers?|company|companies|business|businesses)(?: named| called)? (\D.*)$`),
		regexp.MustCompile(`^(?:search|find)(?: for)? ([a-z]\D{2,})$`),
	}

	riskPatterns = []*regexp.Regexp{
		regexp.MustCompile(`risk (?:analysis|profile|assessment|breakdown)(?: for| of)?` + tinPrefix + ` ` + tinGroup + `\b`),
		regexp.MustCompile(`(?:analy[sz]e|assess|profile)(?: the)?(?: risks?)?(?: for| of)?` + tinPrefix + ` ` + tinGroup + `\b`),
		regexp.MustCompile(`risks? (?:for|of|on)` + tinPrefix + ` ` + tinGroup + `\b`),
		regexp.MustCompile(tinGroup + ` risks?\b`),
	}

	relatedPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?:similar|related|connected|linked)(?: taxpayers?)?(?: to| with| of| for)?` + tinPrefix + ` ` + tinGroup + `\b`),
		regexp.MustCompile(`network(?: of| for| around)?` + tinPrefix + ` ` + tinGroup + `\b`),
		regexp.MustCompile(`^(?:find|search|show|list|get)(?: me)?(?: the)? (?:similar|related|connected|linked)(?: taxpayers?)?$`),
	}

	evidencePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?:evidence|pathway)(?: pathway| trail)?(?: for| of)?` + tinPrefix + ` (\d{6,} ` + riskIDShape + `)\b`),
		regexp.MustCompile(`(?:evidence|pathway)(?: pathway| trail)?(?: for| of)?` + tinPrefix + ` ` + tinGroup + `\b`),
	}

	sectorPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?:sector|industry)(?: analysis| profile| breakdown| risks?)?(?: for| of| in)?(?: the)? ([a-z][a-z &-]*[a-z])$`),
		regexp.MustCompile(`\b([a-z]+) (?:sector|industry)\b`),
		regexp.MustCompile(`\b(agriculture|manufacturing|services|construction|mining|retail|wholesale|hospitality|transport|telecommunications|finance|energy)\b`),
		regexp.MustCompile(`^(?:which|what) (?:sector|industry)\b`),
	}

	highImpactPatterns = []*regexp.Regexp{
		regexp.MustCompile(`high[ -]?impact(?: cases?| audits?)?(?: for| in| on)?(?: risk)?(?: (` + riskIDShape + `))?`),
		regexp.MustCompile(`\btop(?: \d+)? (?:cases|exposures?)(?: for(?: risk)? (` + riskIDShape + `))?`),
		regexp.MustCompile(`\bpriority(?: audit)?(?: cases)?(?: for(?: risk)? (` + riskIDShape + `))?`),
	}
)

// DefaultDefinitions returns the built-in priority list: identifier, name,
// risk, related, evidence, sector, high-impact.
func DefaultDefinitions() []Definition {
	return []Definition{
		{
			Intent:   SearchByIdentifier,
			Patterns: identifierPatterns,
			Keywords: []string{"tin", "search", "find", "taxpayer"},
		},
		{
			Intent:   SearchByName,
			Patterns: namePatterns,
			Keywords: []string{"name", "company", "business"},
			Ignore:   []string{"taxpayer", "taxpayers", "company", "companies", "business", "businesses"},
			IgnoreLeading: []string{
				"risk", "risks", "similar", "related", "connected", "linked", "network",
				"evidence", "pathway", "details", "sector", "industry",
				"high", "impact", "high-impact", "top", "priority", "urgent",
			},
		},
		{
			Intent:   RiskAnalysis,
			Patterns: riskPatterns,
			Keywords: []string{"risk", "flagged", "exposure", "profile"},
		},
		{
			Intent:   FindRelated,
			Patterns: relatedPatterns,
			Keywords: []string{"similar", "related", "network", "connected"},
		},
		{
			Intent:   EvidencePathway,
			Patterns: evidencePatterns,
			Keywords: []string{"evidence", "pathway", "details"},
		},
		{
			Intent:   SectorAnalysis,
			Patterns: sectorPatterns,
			Keywords: []string{"sector", "industry", "agriculture", "manufacturing", "services"},
			Ignore:   []string{"analysis", "profile", "breakdown", "risk", "risks", "the", "this", "that", "each", "every", "which", "what", "by", "per", "all", "a"},
			IgnoreLeading: []string{
				"has", "have", "had", "is", "are", "was", "were", "with", "does", "do",
				"carries", "shows", "gets", "most", "more", "least",
			},
		},
		{
			Intent:   HighImpactCases,
			Patterns: highImpactPatterns,
			Keywords: []string{"high", "impact", "priority", "urgent"},
		},
	}
}

// Default returns a classifier over DefaultDefinitions.
func Default() *Classifier {
	return NewClassifier(DefaultDefinitions()...)
}
